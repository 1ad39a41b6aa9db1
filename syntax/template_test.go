package syntax

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustParse(t *testing.T, pattern string, binary bool) *Regexp {
	t.Helper()
	re, err := Parse(pattern, 0, binary)
	if err != nil {
		t.Fatalf("Parse(%q): %v", pattern, err)
	}
	return re
}

func TestParseTemplate(t *testing.T) {
	re := mustParse(t, `(?P<first>a)(b)(c)(d)(e)(f)(g)(h)(i)(j)(k)`, false)
	tests := []struct {
		tmpl string
		want *Template
	}{
		{"plain", &Template{Literals: []string{"plain"}}},
		{`x\1y`, &Template{Literals: []string{"x", "y"}, Groups: []int{1}}},
		{`\11`, &Template{Literals: []string{"", ""}, Groups: []int{11}}},
		{`\g<first>\g<2>`, &Template{Literals: []string{"", "", ""}, Groups: []int{1, 2}}},
		{`\g<0>`, &Template{Literals: []string{"", ""}, Groups: []int{0}}},
		{`\n\t\\`, &Template{Literals: []string{"\n\t\\"}}},
		{`\-\é`, &Template{Literals: []string{`\-\é`}}},
		{`\0`, &Template{Literals: []string{"\x00"}}},
		{`\08`, &Template{Literals: []string{"\x008"}}},
		{`\141`, &Template{Literals: []string{"a"}}},
		{`\377`, &Template{Literals: []string{"ÿ"}}},
	}
	for _, tt := range tests {
		t.Run(tt.tmpl, func(t *testing.T) {
			got, err := ParseTemplate(tt.tmpl, re)
			if err != nil {
				t.Fatalf("ParseTemplate(%q): %v", tt.tmpl, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseTemplate(%q) mismatch (-want +got):\n%s", tt.tmpl, diff)
			}
		})
	}
}

func TestParseTemplateBinary(t *testing.T) {
	re := mustParse(t, `(a)`, true)
	got, err := ParseTemplate(`\377\1`, re)
	if err != nil {
		t.Fatal(err)
	}
	want := &Template{Literals: []string{"\xff", ""}, Groups: []int{1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestParseTemplateErrors(t *testing.T) {
	re := mustParse(t, `(?P<a>x)(y)`, false)
	tests := []struct {
		tmpl string
		msg  string
		pos  int
	}{
		{`\3`, "invalid group reference 3", 1},
		{`\g<3>`, "invalid group reference 3", 3},
		{`\g<99999999999999999999>`, "invalid group reference 99999999999999999999", 3},
		{`\g`, "missing <", 2},
		{`\g<`, "missing group name", 3},
		{`\g<>`, "missing group name", 3},
		{`\g<a`, "missing >, unterminated name", 3},
		{`\g<1a>`, "bad character in group name '1a'", 3},
		{`\g<-1>`, "bad character in group name '-1'", 3},
		{`\g<ab>`, "unknown group name 'ab'", 3},
		{`\g<١>`, "bad character in group name '١'", 3},
		{`\400`, `octal escape value \400 outside of range 0-0o377`, 0},
		{`\q`, `bad escape \q`, 0},
		{`x\`, "bad escape (end of pattern)", 1},
	}
	for _, tt := range tests {
		t.Run(tt.tmpl, func(t *testing.T) {
			_, err := ParseTemplate(tt.tmpl, re)
			var se *Error
			if !errors.As(err, &se) {
				t.Fatalf("ParseTemplate(%q) = %v, want error", tt.tmpl, err)
			}
			if !errors.Is(err, ErrTemplate) {
				t.Errorf("kind = %v, want ErrTemplate", se.Kind)
			}
			if se.Msg != tt.msg || se.Pos != tt.pos {
				t.Errorf("ParseTemplate(%q) = %q at %d, want %q at %d", tt.tmpl, se.Msg, se.Pos, tt.msg, tt.pos)
			}
		})
	}
}

func TestTemplateExpand(t *testing.T) {
	re := mustParse(t, `(a)(b)?`, false)
	tmpl, err := ParseTemplate(`[\2|\1]`, re)
	if err != nil {
		t.Fatal(err)
	}
	groups := []string{"a", "a", ""}
	got := string(tmpl.Expand(nil, func(i int) string { return groups[i] }))
	if got != "[|a]" {
		t.Errorf("Expand = %q, want %q", got, "[|a]")
	}
	if _, ok := tmpl.Literal(); ok {
		t.Error("template with references reported as literal")
	}
	lit, _ := ParseTemplate("x", re)
	if s, ok := lit.Literal(); !ok || s != "x" {
		t.Errorf("Literal() = %q, %v", s, ok)
	}
}
