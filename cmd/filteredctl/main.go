// Command filteredctl is a small demonstration CLI around an IndexSet:
// it loads a newline-delimited JSON object file, builds an index on
// the requested fields, runs one find query, and prints the matches.
// It exists to exercise the library end-to-end, not as a query
// language — the actual query surface (spec.md §1) is out of scope
// for a CLI.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/manimino/filtered"
	"github.com/manimino/filtered/logging"
)

func main() {
	var (
		fields     = pflag.StringSlice("field", nil, "attribute name to index on (repeatable)")
		matchJSON  = pflag.String("match", "{}", `JSON object, e.g. {"planet":["mars","earth"]}`)
		excludeRaw = pflag.String("exclude", "{}", `JSON object of attributes to exclude`)
		verbose    = pflag.BoolP("verbose", "v", false, "log bucket rebalancing at debug level")
	)
	pflag.Parse()

	if len(*fields) == 0 {
		exitf("at least one --field is required")
	}
	if pflag.NArg() != 1 {
		exitf("usage: filteredctl --field=NAME [--field=NAME ...] --match='{...}' <objects.ndjson>")
	}

	log := buildLogger(*verbose)
	ctx := logging.WithLogger(context.Background(), log)

	objs, err := loadNDJSON(pflag.Arg(0))
	if err != nil {
		log.Fatalw("loading objects", "error", err)
	}

	attrs := make([]filtered.Attribute, len(*fields))
	for i, f := range *fields {
		attrs[i] = filtered.Field(f)
	}

	is, err := filtered.New(objs, attrs, filtered.WithContext(ctx))
	if err != nil {
		log.Fatalw("building index", "error", err)
	}

	match, err := parseMatch(*matchJSON)
	if err != nil {
		log.Fatalw("parsing --match", "error", err)
	}
	exclude, err := parseMatch(*excludeRaw)
	if err != nil {
		log.Fatalw("parsing --exclude", "error", err)
	}

	results, err := is.Find(match, exclude)
	if err != nil {
		log.Fatalw("query failed", "error", err)
	}
	for _, r := range results {
		b, _ := json.Marshal(r)
		fmt.Println(string(b))
	}
}

func buildLogger(verbose bool) *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	l, err := cfg.Build(logging.ExitingZapcore)
	if err != nil {
		// Can't use the not-yet-built logger; this is construction-time
		// misconfiguration, not a runtime query failure.
		fmt.Fprintln(os.Stderr, "filteredctl: building logger:", err)
		os.Exit(1)
	}
	return l.Sugar()
}

func loadNDJSON(path string) ([]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []any
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		m := make(map[string]any)
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			return nil, fmt.Errorf("parsing line %q: %w", line, err)
		}
		out = append(out, m)
	}
	return out, sc.Err()
}

// parseMatch decodes a JSON object into a filtered.Match, surfacing
// ErrTypeViolation (rather than a generic JSON error) when the input
// parses but isn't a JSON object. The library's typed Go API (Match is
// a map) cannot produce this case itself; it returns ErrTypeViolation
// only from Add, for an object that is not a non-nil pointer or map.
func parseMatch(raw string) (filtered.Match, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, filtered.ErrTypeViolation
	}
	return filtered.Match(m), nil
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	pflag.Usage()
	os.Exit(2)
}
