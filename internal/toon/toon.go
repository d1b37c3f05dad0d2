// Package toon implements TOON (Token-Oriented Object Notation) encoding of
// a check run summary.
package toon

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/phobologic/archcheck/internal/report"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// Encode converts a run summary into TOON format.
func Encode(s *report.Summary) string {
	var parts []string

	status := "passed"
	if s.Failed() {
		status = "failed"
	}
	parts = append(parts, fmt.Sprintf("report: %s", encodeValue(s.Report)))
	parts = append(parts, fmt.Sprintf("status: %s", status))
	parts = append(parts, fmt.Sprintf("types: %d", s.Types))
	parts = append(parts, fmt.Sprintf("violations: %d", s.Violations()))

	var ruleRows [][]string
	for i := range s.Results {
		r := &s.Results[i]
		ruleRows = append(ruleRows, []string{
			r.Rule,
			string(r.Priority),
			strconv.Itoa(len(r.Violations)),
		})
	}
	parts = append(parts, formatTabular("rules", []string{"rule", "priority", "violations"}, ruleRows))

	if s.Failed() {
		var rows [][]string
		for i := range s.Results {
			r := &s.Results[i]
			for _, v := range r.Violations {
				element := ""
				if v.Element != nil {
					element = v.Element.FullName()
				}
				rows = append(rows, []string{strconv.Itoa(i), element, v.Message})
			}
		}
		parts = append(parts, formatTabular("failures", []string{"rule", "element", "message"}, rows))
	}

	return strings.Join(parts, "\n")
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
