/*
Copyright 2022 The Knative Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package logging

import (
	"errors"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/manimino/filtered/internal/exit"
)

// ExitingZapcore is a zap.Option which will exit the process with deterministic
// POSIX retcode for every Fatal+ invocation. IndexSet itself never
// installs this (a library must not call os.Exit); it exists for
// cmd/filteredctl, the demonstration CLI, to install on its own logger.
// The retcode mapping itself lives in internal/exit.ForError, not
// here: this core's only job is picking the error a Fatal+ entry
// carries.
var ExitingZapcore = zap.WrapCore(func(core zapcore.Core) zapcore.Core {
	return exitingCore{base: core}
})

type exitingCore struct {
	base   zapcore.Core
	fields []zapcore.Field
}

func (r exitingCore) Enabled(level zapcore.Level) bool {
	return r.base.Enabled(level)
}

func (r exitingCore) With(fields []zapcore.Field) zapcore.Core {
	return exitingCore{
		base:   r.base.With(fields),
		fields: fields,
	}
}

func (r exitingCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if entry.Level >= zapcore.FatalLevel {
		return ce.AddCore(entry, r)
	}
	return r.base.Check(entry, ce)
}

func (r exitingCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	if err := r.base.Write(entry, fields); err != nil {
		return err
	}
	_ = r.Sync()
	exit.ForError(r.errorFor(entry, fields))
	return nil
}

func (r exitingCore) Sync() error {
	return r.base.Sync()
}

// errorFor finds the error a Fatal+ entry carries, if any, falling
// back to the entry's message so ForError always has something to map
// to a retcode.
func (r exitingCore) errorFor(entry zapcore.Entry, fields []zapcore.Field) error {
	for _, field := range append(r.fields, fields...) {
		if field.Type == zapcore.ErrorType {
			return field.Interface.(error)
		}
	}
	return errors.New(entry.Message)
}
