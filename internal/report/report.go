// Package report renders rule results and writes the failure report that
// gates a build.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/phobologic/archcheck/internal/rule"
)

// FileName is the report's name inside the output directory.
const FileName = "failure-report.txt"

// WriteError is returned when the report cannot be written. The check cannot
// pass or fail without it.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("writing report %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// GateFailure signals that at least one rule was violated. It is only
// returned after the report has been written.
type GateFailure struct {
	Path       string
	Violations int
}

func (e *GateFailure) Error() string {
	return fmt.Sprintf("Architecture check failed. See '%s' for details.", e.Path)
}

// Failing returns the results that have at least one violation, in order.
func Failing(results []rule.Result) []rule.Result {
	var out []rule.Result
	for _, r := range results {
		if r.HasViolation() {
			out = append(out, r)
		}
	}
	return out
}

// Render produces the report text: one block per failing rule in the order
// given, blocks separated by a blank line, ending in a newline. It is empty
// when nothing failed.
func Render(results []rule.Result) string {
	var blocks []string
	for _, r := range Failing(results) {
		blocks = append(blocks, r.FailureReport())
	}
	if len(blocks) == 0 {
		return ""
	}
	return strings.Join(blocks, "\n\n") + "\n"
}

// Write creates dir as needed and writes the rendered report to
// dir/failure-report.txt, replacing any earlier content. A passing run leaves
// an empty file. It returns the path written.
func Write(dir string, results []rule.Result) (string, error) {
	path := filepath.Join(dir, FileName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return path, &WriteError{Path: path, Err: err}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return path, &WriteError{Path: path, Err: err}
	}
	if _, err := f.WriteString(Render(results)); err != nil {
		f.Close()
		return path, &WriteError{Path: path, Err: err}
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return path, &WriteError{Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return path, &WriteError{Path: path, Err: err}
	}
	return path, nil
}

// Gate returns a *GateFailure naming path when any result has a violation.
func Gate(path string, results []rule.Result) error {
	n := 0
	for _, r := range results {
		n += len(r.Violations)
	}
	if n == 0 {
		return nil
	}
	return &GateFailure{Path: path, Violations: n}
}
