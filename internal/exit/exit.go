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

// Package exit terminates the process on behalf of a fatal logging
// path (see logging.ExitingZapcore), mapping the triggering error to
// a deterministic POSIX status via retcode.Calc rather than exposing
// a raw os.Exit(code) seam. Tests stub the process-termination seam,
// so a fatal log call can be asserted against without ending the test
// process.
package exit

import (
	"fmt"
	"os"

	"github.com/manimino/filtered/internal/retcode"
)

var _real = func(code int) { os.Exit(code) }

// ForError terminates the process with the exit code retcode.Calc
// derives from err (0 for a nil error). If the package is stubbed, it
// instead records the call on the active StubbedExit.
func ForError(err error) {
	_real(retcode.Calc(err))
}

// A StubbedExit is a testing fake standing in for ForError's call to
// os.Exit.
type StubbedExit struct {
	Exited bool
	Code   int
	Panic  interface{}
	prev   func(code int)
}

// Stub substitutes a fake for the process-terminating call ForError
// would otherwise make.
func Stub() *StubbedExit {
	s := &StubbedExit{prev: _real}
	_real = s.exit
	return s
}

// WithStub runs fn with ForError stubbed, returning the stub used so
// the caller can assert whether the process would have terminated and
// with which retcode.
func WithStub(fn func()) *StubbedExit {
	s := Stub()
	defer s.Unstub()
	panicCh := make(chan interface{})
	go handle(fn, panicCh)
	s.Panic = <-panicCh
	return s
}

// Unstub restores the previous exit function.
func (se *StubbedExit) Unstub() {
	_real = se.prev
}

func (se *StubbedExit) exit(code int) {
	se.Exited = true
	se.Code = code
	panic(fmt.Sprintf("exit with code: %d", code))
}

func handle(fn func(), panicCh chan interface{}) {
	defer func() {
		if r := recover(); r != nil {
			panicCh <- r
		}
	}()
	fn()
	close(panicCh)
}
