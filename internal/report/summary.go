package report

import "github.com/phobologic/archcheck/internal/rule"

// Summary describes one check run for display on the console.
type Summary struct {
	// Report is the path of the written report file.
	Report  string
	Types   int
	Results []rule.Result
}

// Violations counts violations across all rules.
func (s *Summary) Violations() int {
	n := 0
	for _, r := range s.Results {
		n += len(r.Violations)
	}
	return n
}

func (s *Summary) Failed() bool { return s.Violations() > 0 }
