package backtrack

import (
	"strings"
	"testing"

	"github.com/dlclark/regexp2"
	"github.com/google/go-cmp/cmp"

	"github.com/coregx/sre/internal/input"
	"github.com/coregx/sre/syntax"
)

func compileForTest(t *testing.T, pattern string, flags syntax.Flag) *Machine {
	t.Helper()
	re, err := syntax.Parse(pattern, flags, false)
	if err != nil {
		t.Fatalf("Parse(%q): %v", pattern, err)
	}
	prog, err := Compile(re)
	if err != nil {
		t.Fatalf("Compile(%q): %v", pattern, err)
	}
	return NewMachine(prog)
}

func TestSearchSpans(t *testing.T) {
	tests := []struct {
		pattern string
		flags   syntax.Flag
		input   string
		want    []int // nil when no match
	}{
		{"abc", 0, "xxabcxx", []int{2, 5}},
		{"a|ab", 0, "ab", []int{0, 1}},
		{"ab|a", 0, "ab", []int{0, 2}},
		{"a*?b", 0, "aaab", []int{0, 4}},
		{"a+?", 0, "aaa", []int{0, 1}},
		{"(a)(b)?", 0, "a", []int{0, 1, 0, 1, -1, -1}},
		{"(a|b)*", 0, "abab", []int{0, 4, 3, 4}},
		{"(a*)*", 0, "b", []int{0, 0, 0, 0}},
		{"(a*)+", 0, "b", []int{0, 0, 0, 0}},
		{"(a|)*", 0, "aa", []int{0, 2, 2, 2}},
		{"(?:a|(b))+", 0, "ba", []int{0, 2, 0, 1}},
		{`(a)\1`, 0, "xaa", []int{1, 3, 1, 2}},
		{`(?i)(a)\1`, 0, "aA", []int{0, 2, 0, 1}},
		{`(?P<x>\w+) (?P=x)`, 0, "hello hello", []int{0, 11, 0, 5}},
		{`a(?=b)`, 0, "acab", []int{2, 3}},
		{`a(?!b)`, 0, "abac", []int{2, 3}},
		{`(?<=a)b`, 0, "cbab", []int{3, 4}},
		{`(?<!a)b`, 0, "abcb", []int{3, 4}},
		{`(?<=(a))b`, 0, "ab", []int{1, 2, 0, 1}},
		{`(?>a+)b`, 0, "aab", []int{0, 3}},
		{`(?>a+)a`, 0, "aaa", nil},
		{`a++a`, 0, "aaa", nil},
		{`(?:ab)++ab`, 0, "abab", nil},
		{`a{2,3}+a`, 0, "aaaa", []int{0, 4}},
		{`(a)?(?(1)b|c)`, 0, "ab", []int{0, 2, 0, 1}},
		{`(a)?(?(1)b|c)`, 0, "c", []int{0, 1, -1, -1}},
		{`(?P<q>")?\w+(?(q)")`, 0, `"word"`, []int{0, 6, 0, 1}},
		{`^abc`, 0, "xabc", nil},
		{`(?m)^abc`, 0, "x\nabc", []int{2, 5}},
		{`abc$`, 0, "abc\n", []int{0, 3}},
		{`abc$`, 0, "abc\nx", nil},
		{`(?m)abc$`, 0, "abc\nx", []int{0, 3}},
		{`abc\Z`, 0, "abc\n", nil},
		{`\bfoo\b`, 0, "a foo b", []int{2, 5}},
		{`\Bfoo`, 0, "afoo", []int{1, 4}},
		{`\B`, 0, "", nil},
		{`\b`, 0, "", nil},
		{`.`, 0, "\n", nil},
		{`(?s).`, 0, "\n", []int{0, 1}},
		{`(?i)straße`, 0, "STRASSE", nil},
		{`(?i)ǅ`, 0, "ǆ", []int{0, 2}},
		{`(?i)k`, 0, "\u212a", []int{0, 3}},
		{`(?ia)k`, 0, "\u212a", nil},
		{`\w+`, 0, "héllo", []int{0, 6}},
		{`(?a)\w+`, 0, "héllo", []int{0, 1}},
		{`[^a]`, 0, "a€", []int{1, 4}},
		{`(?!)`, 0, "abc", nil},
		{`x*`, 0, "abc", []int{0, 0}},
		{`(a)|b`, 0, "b", []int{0, 1, -1, -1}},
		{`(?:(a)|b)*`, 0, "ab", []int{0, 2, 0, 1}},
		{`(a+)+b`, 0, "aaab", []int{0, 4, 0, 3}},
		{`(?:a{2})*`, 0, "aaaaa", []int{0, 4}},
		{`(?:a{2})*?$`, 0, "aaaa", []int{0, 4}},
		{`(ab|a)(bc|c)?`, 0, "abc", []int{0, 3, 0, 2, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.input, func(t *testing.T) {
			m := compileForTest(t, tt.pattern, tt.flags)
			ok := m.Search(input.New(tt.input, false), 0, Options{})
			if !ok {
				if tt.want != nil {
					t.Fatalf("Search(%q, %q) found no match, want %v", tt.pattern, tt.input, tt.want)
				}
				return
			}
			if tt.want == nil {
				t.Fatalf("Search(%q, %q) = %v, want no match", tt.pattern, tt.input, m.Caps())
			}
			got := m.Caps()[:len(tt.want)]
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Search(%q, %q) mismatch (-want +got):\n%s", tt.pattern, tt.input, diff)
			}
		})
	}
}

func TestLastIndex(t *testing.T) {
	tests := []struct {
		pattern string
		input   string
		want    int
	}{
		{`(a)b`, "ab", 1},
		{`((a)b)`, "ab", 1},
		{`((a))`, "a", 1},
		{`(a)(b)`, "ab", 2},
		{`(a)(b)?b`, "ab", 1},
		{`(a)?a`, "a", -1},
		{`a`, "a", -1},
		{`(a)|(b)`, "b", 2},
	}
	for _, tt := range tests {
		m := compileForTest(t, tt.pattern, 0)
		if !m.Search(input.New(tt.input, false), 0, Options{}) {
			t.Fatalf("Search(%q, %q) found no match", tt.pattern, tt.input)
		}
		if got := m.LastIndex(); got != tt.want {
			t.Errorf("LastIndex(%q, %q) = %d, want %d", tt.pattern, tt.input, got, tt.want)
		}
	}
}

func TestOptions(t *testing.T) {
	m := compileForTest(t, `a*`, 0)
	in := input.New("aab", false)

	if m.MatchAt(in, 0, Options{Full: true}) {
		t.Errorf("full match of a* on %q succeeded", in.S)
	}
	if !m.MatchAt(input.New("aa", false), 0, Options{Full: true}) {
		t.Error("full match of a* on \"aa\" failed")
	}

	if !m.Search(in, 2, Options{MustAdvance: true}) {
		t.Fatal("search with MustAdvance found nothing")
	}
	if got := m.Caps()[:2]; got[0] != 3 || got[1] != 3 {
		t.Errorf("MustAdvance search = %v, want [3 3]", got)
	}
	if !m.MatchAt(in, 0, Options{MustAdvance: true}) {
		t.Error("non-empty anchored match rejected by MustAdvance")
	}
}

func TestAnchoredSearch(t *testing.T) {
	m := compileForTest(t, `^a|\Ab`, 0)
	if !m.Program().Anchored {
		t.Fatal("program not detected as anchored")
	}
	if m.Search(input.New("xa", false), 0, Options{}) {
		t.Error("anchored pattern matched after start")
	}
	if m.Search(input.New("ab", false), 1, Options{}) {
		t.Error("anchored pattern matched at pos > 0")
	}
}

func TestBinaryInput(t *testing.T) {
	re, err := syntax.Parse(`\xff.`, 0, true)
	if err != nil {
		t.Fatal(err)
	}
	prog, _ := Compile(re)
	m := NewMachine(prog)
	if !m.Search(input.New("a\xff\xc3\xa9", true), 0, Options{}) {
		t.Fatal("no match")
	}
	if got := m.Caps()[:2]; got[0] != 1 || got[1] != 3 {
		t.Errorf("span = %v, want [1 3]", got)
	}
}

func TestLookbehindOverflow(t *testing.T) {
	if testing.Short() {
		t.Skip("large subject")
	}
	subject := input.New(strings.Repeat("x", 2500000), false)

	m := compileForTest(t, `(?<=((.{128}){128}){128})`, 0)
	if !m.Search(subject, 0, Options{}) {
		t.Fatal("positive lookbehind found nothing")
	}
	if got := m.Caps()[:2]; got[0] != 1<<21 || got[1] != 1<<21 {
		t.Errorf("span = %v, want [%d %d]", got, 1<<21, 1<<21)
	}

	m = compileForTest(t, `(?<!((.{128}){128}){128})`, 0)
	if !m.Search(subject, 0, Options{}) {
		t.Fatal("negative lookbehind found nothing")
	}
	if got := m.Caps()[:2]; got[0] != 0 || got[1] != 0 {
		t.Errorf("span = %v, want [0 0]", got)
	}
}

func TestDeepRepeatDoesNotOverflow(t *testing.T) {
	m := compileForTest(t, `(?:ab|ba)*c`, 0)
	subject := strings.Repeat("ab", 100000) + "c"
	if !m.Search(input.New(subject, false), 0, Options{}) {
		t.Fatal("no match")
	}
	if got := m.Caps()[1]; got != len(subject) {
		t.Errorf("end = %d, want %d", got, len(subject))
	}
}

func TestProgramString(t *testing.T) {
	re, _ := syntax.Parse(`a(b|c)*d`, 0, false)
	prog, _ := Compile(re)
	listing := prog.String()
	for _, want := range []string{"LITERAL 97", "REPEAT MAX_REPEAT 0 MAXREPEAT", "MARK 2", "UNTIL", "SUCCESS"} {
		if !strings.Contains(listing, want) {
			t.Errorf("listing missing %q:\n%s", want, listing)
		}
	}
}

// TestAgainstRegexp2 cross-checks spans and groups on patterns whose
// semantics agree between Python and .NET.
func TestAgainstRegexp2(t *testing.T) {
	patterns := []string{
		`a+b`, `(a|ab)(c|bcd)(d*)`, `(\w+)@(\w+)\.com`, `(a+)+$`,
		`(?<=\d)x`, `(?<!\d)x`, `x(?=\d)`, `x(?!\d)`,
		`(\w)\1`, `(?i)(\w)\1`, `(?>a+)b`, `(a)?b`,
		`[a-c]+?c`, `(?:ab)*c`, `^(\d+)-(\d+)$`, `(?m)^\w+$`,
		`a{2,4}`, `a{2,4}?`, `(x)(y)?(z)`,
	}
	subjects := []string{
		"aab", "abcd", "user@example.com", "aaaa", "1x x", "ax 2x", "x1 xa",
		"aabbcc", "AaBb", "aaab", "b", "ab", "abacbc", "ababc", "12-34", "foo\nbar",
		"aaaaa", "xz", "xyz",
	}
	for _, p := range patterns {
		m := compileForTest(t, p, 0)
		ref := regexp2.MustCompile(p, regexp2.None)
		for _, s := range subjects {
			want := regexp2Spans(t, ref, s)
			var got []int
			if m.Search(input.New(s, false), 0, Options{}) {
				got = append(got, m.Caps()...)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("pattern %q subject %q mismatch (-regexp2 +backtrack):\n%s", p, s, diff)
			}
		}
	}
}

func regexp2Spans(t *testing.T, re *regexp2.Regexp, s string) []int {
	t.Helper()
	m, err := re.FindStringMatch(s)
	if err != nil {
		t.Fatalf("regexp2: %v", err)
	}
	if m == nil {
		return nil
	}
	var out []int
	for _, g := range m.Groups() {
		if len(g.Captures) == 0 {
			out = append(out, -1, -1)
			continue
		}
		out = append(out, g.Index, g.Index+g.Length)
	}
	return out
}
