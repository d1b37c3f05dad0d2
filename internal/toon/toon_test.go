package toon

import (
	"strings"
	"testing"

	"github.com/phobologic/archcheck/internal/model"
	"github.com/phobologic/archcheck/internal/report"
	"github.com/phobologic/archcheck/internal/rule"
)

func TestEncodeValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", `""`},
		{"simple", "hello", "hello"},
		{"leading space", " hello", `" hello"`},
		{"trailing space", "hello ", `"hello "`},
		{"newline", "a\nb", `"a\nb"`},
		{"tab", "a\tb", `"a\tb"`},
		{"carriage return", "a\rb", `"a\rb"`},
		{"true keyword", "true", `"true"`},
		{"True keyword", "True", `"True"`},
		{"false keyword", "false", `"false"`},
		{"null keyword", "null", `"null"`},
		{"integer", "42", "42"},
		{"negative integer", "-1", "-1"},
		{"float", "3.14", "3.14"},
		{"zero", "0", "0"},
		{"leading zero invalid", "01", "01"},
		{"comma", "a,b", `"a,b"`},
		{"colon", "a:b", `"a:b"`},
		{"quote", `a"b`, `"a\"b"`},
		{"backslash", `a\b`, `"a\\b"`},
		{"bracket", "a[b", `"a[b"`},
		{"brace", "a{b", `"a{b"`},
		{"dash prefix", "-foo", `"-foo"`},
		{"path", "build/checkArchitecture/failure-report.txt", "build/checkArchitecture/failure-report.txt"},
		{"qualified name", "com.example.Config$Inner", "com.example.Config$Inner"},
		{"rule description", "slices matching '**' should be free of cycles", "slices matching '**' should be free of cycles"},
		{"element", "Method <a.B.c(int, a.D)>", `"Method <a.B.c(int, a.D)>"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := encodeValue(tt.in)
			if got != tt.want {
				t.Errorf("encodeValue(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEncode(t *testing.T) {
	t.Parallel()

	g := model.NewGraph()
	m := g.Declare("com.example.AppConfig").AddMethod("processor", g.Ref("int"), 0)

	s := &report.Summary{
		Report: "build/checkArchitecture/failure-report.txt",
		Types:  12,
		Results: []rule.Result{
			{Rule: "slices should be free of cycles", Priority: rule.Medium},
			{Rule: "methods should be static", Priority: rule.High, Violations: []rule.Violation{
				{Element: m, Message: "Method <com.example.AppConfig.processor()> does not have modifier STATIC"},
			}},
			{Rule: "classes should be found", Priority: rule.Low, Violations: []rule.Violation{
				{Message: "nothing matched"},
			}},
		},
	}

	got := Encode(s)

	lines := strings.Split(got, "\n")
	want := []string{
		"report: build/checkArchitecture/failure-report.txt",
		"status: failed",
		"types: 12",
		"violations: 2",
		"rules[3]{rule,priority,violations}:",
		"  slices should be free of cycles,MEDIUM,0",
		"  methods should be static,HIGH,1",
		"  classes should be found,LOW,1",
		"failures[2]{rule,element,message}:",
		"  1,com.example.AppConfig.processor(),Method <com.example.AppConfig.processor()> does not have modifier STATIC",
		`  2,"",nothing matched`,
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), got)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d: got %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestEncodePassed(t *testing.T) {
	t.Parallel()

	s := &report.Summary{
		Report:  "out/failure-report.txt",
		Results: []rule.Result{{Rule: "r", Priority: rule.Medium}},
	}

	got := Encode(s)
	if !strings.Contains(got, "status: passed") {
		t.Errorf("expected passed status, got:\n%s", got)
	}
	if !strings.Contains(got, "rules[1]{rule,priority,violations}:") {
		t.Errorf("expected rules section, got:\n%s", got)
	}
	if strings.Contains(got, "failures") {
		t.Errorf("unexpected failures section, got:\n%s", got)
	}
}
