package nfa

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/coregx/sre/backtrack"
	"github.com/coregx/sre/internal/input"
	"github.com/coregx/sre/syntax"
)

func parse(t *testing.T, pattern string) *syntax.Regexp {
	t.Helper()
	re, err := syntax.Parse(pattern, 0, false)
	if err != nil {
		t.Fatalf("Parse(%q): %v", pattern, err)
	}
	return re
}

func compileVM(t *testing.T, pattern string) (*PikeVM, *PikeVMState) {
	t.Helper()
	n, err := Compile(parse(t, pattern))
	if err != nil {
		t.Fatalf("Compile(%q): %v", pattern, err)
	}
	vm := NewPikeVM(n)
	return vm, vm.NewState()
}

func TestPikeVMSearch(t *testing.T) {
	tests := []struct {
		pattern string
		input   string
		want    []int // nil when no match
	}{
		{"abc", "xxabcxx", []int{2, 5}},
		{"a|ab", "ab", []int{0, 1}},
		{"ab|a", "ab", []int{0, 2}},
		{"a*?b", "aaab", []int{0, 4}},
		{"a+?", "aaa", []int{0, 1}},
		{"a*", "baaa", []int{0, 0}},
		{"(a)(b)?", "a", []int{0, 1, 0, 1, -1, -1}},
		{"(a|b)*", "abab", []int{0, 4, 3, 4}},
		{"(?:a*)*", "aab", []int{0, 2}},
		{"(?:a|)*b", "aab", []int{0, 3}},
		{"(a)(?:b*)+", "abb", []int{0, 3, 0, 1}},
		{"(?:a|){0,3}", "aa", []int{0, 2}},
		{"(?:a|(b))+", "ba", []int{0, 2, 0, 1}},
		{"(a+)+b", "aaab", []int{0, 4, 0, 3}},
		{"(?:a{2})*", "aaaaa", []int{0, 4}},
		{"(?:a{2})*?$", "aaaa", []int{0, 4}},
		{"a{2,3}", "aaaa", []int{0, 3}},
		{"a{2,3}?", "aaaa", []int{0, 2}},
		{"a{,2}b", "aaab", []int{1, 4}},
		{"(ab|a)(bc|c)?", "abc", []int{0, 3, 0, 2, 2, 3}},
		{"^abc", "xabc", nil},
		{"(?m)^abc", "x\nabc", []int{2, 5}},
		{"abc$", "abc\n", []int{0, 3}},
		{`abc\Z`, "abc\n", nil},
		{`\bfoo\b`, "a foo b", []int{2, 5}},
		{`\B`, "", nil},
		{`.`, "\n", nil},
		{`(?s).`, "\n", []int{0, 1}},
		{`(?i)k`, "\u212a", []int{0, 3}},
		{`\w+`, "héllo", []int{0, 6}},
		{`[^a]`, "a€", []int{1, 4}},
		{`(?!)`, "abc", nil},
		{`x|(?!)`, "abx", []int{2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.input, func(t *testing.T) {
			vm, s := compileVM(t, tt.pattern)
			ok := vm.Search(s, input.New(tt.input, false), 0, Options{})
			if !ok {
				if tt.want != nil {
					t.Fatalf("Search(%q, %q) found no match, want %v", tt.pattern, tt.input, tt.want)
				}
				return
			}
			if tt.want == nil {
				t.Fatalf("Search(%q, %q) = %v, want no match", tt.pattern, tt.input, s.Caps())
			}
			if diff := cmp.Diff(tt.want, s.Caps()[:len(tt.want)]); diff != "" {
				t.Errorf("Search(%q, %q) mismatch (-want +got):\n%s", tt.pattern, tt.input, diff)
			}
		})
	}
}

func TestPikeVMLastIndex(t *testing.T) {
	tests := []struct {
		pattern string
		input   string
		want    int
	}{
		{`(a)b`, "ab", 1},
		{`((a)b)`, "ab", 1},
		{`(a)(b)`, "ab", 2},
		{`(a)(b)?b`, "ab", 1},
		{`a`, "a", -1},
		{`(a)|(b)`, "b", 2},
	}
	for _, tt := range tests {
		vm, s := compileVM(t, tt.pattern)
		if !vm.Search(s, input.New(tt.input, false), 0, Options{}) {
			t.Fatalf("Search(%q, %q) found no match", tt.pattern, tt.input)
		}
		if got := s.LastIndex(); got != tt.want {
			t.Errorf("LastIndex(%q, %q) = %d, want %d", tt.pattern, tt.input, got, tt.want)
		}
	}
}

func TestPikeVMOptions(t *testing.T) {
	vm, s := compileVM(t, `a*`)
	in := input.New("aab", false)

	if vm.MatchAt(s, in, 0, Options{Full: true}) {
		t.Errorf("full match of a* on %q succeeded", in.S)
	}
	if !vm.MatchAt(s, input.New("aa", false), 0, Options{Full: true}) {
		t.Error("full match of a* on \"aa\" failed")
	}
	if !vm.Search(s, in, 2, Options{MustAdvance: true}) {
		t.Fatal("search with MustAdvance found nothing")
	}
	if got := s.Caps()[:2]; got[0] != 3 || got[1] != 3 {
		t.Errorf("MustAdvance search = %v, want [3 3]", got)
	}

	vm, s = compileVM(t, `a|ab`)
	if !vm.MatchAt(s, input.New("ab", false), 0, Options{Full: true}) {
		t.Fatal("full match fell short of the second branch")
	}
	if got := s.Caps()[1]; got != 2 {
		t.Errorf("end = %d, want 2", got)
	}
}

func TestAnchored(t *testing.T) {
	tests := []struct {
		pattern string
		want    bool
	}{
		{`^a`, true},
		{`\Aa|^b`, true},
		{`(^a)*`, false},
		{`(?:^a)+`, true},
		{`a|^b`, false},
		{`(?m)^a`, false},
		{`(^)`, true},
	}
	for _, tt := range tests {
		n, err := Compile(parse(t, tt.pattern))
		if err != nil {
			t.Fatal(err)
		}
		if got := n.IsAnchored(); got != tt.want {
			t.Errorf("IsAnchored(%q) = %v, want %v", tt.pattern, got, tt.want)
		}
	}
}

func TestUnsupported(t *testing.T) {
	tests := []struct {
		pattern   string
		construct string
		pos       int
	}{
		{`(a)\1`, "backreference", 3},
		{`(?P<x>a)(?P=x)`, "backreference", 8},
		{`x(?=a)`, "lookahead", 1},
		{`x(?!a)`, "negative lookahead", 1},
		{`(?<=a)`, "lookbehind", 0},
		{`(?<!a)`, "negative lookbehind", 0},
		{`(a)?(?(1)b)`, "conditional group", 4},
		{`(?>a)`, "atomic group", 0},
		{`xa++`, "possessive repeat", 2},
		{`(a*)*`, "empty-matching repeat with groups", 4},
		{`x(a|)?`, "empty-matching repeat with groups", 5},
		{`(?:(a)|b|())*c`, "empty-matching repeat with groups", 12},
		{`(()|a){1,}`, "empty-matching repeat with groups", 6},
	}
	for _, tt := range tests {
		_, err := Compile(parse(t, tt.pattern))
		var ue *UnsupportedError
		if !errors.As(err, &ue) {
			t.Fatalf("Compile(%q) = %v, want *UnsupportedError", tt.pattern, err)
		}
		if !errors.Is(err, ErrUnsupported) {
			t.Errorf("Compile(%q) error does not wrap ErrUnsupported", tt.pattern)
		}
		if ue.Construct != tt.construct || ue.Pos != tt.pos {
			t.Errorf("Compile(%q) = %q at %d, want %q at %d", tt.pattern, ue.Construct, ue.Pos, tt.construct, tt.pos)
		}
	}
}

func TestTooComplex(t *testing.T) {
	c := NewCompiler(CompilerConfig{MaxStates: 100})
	_, err := c.Compile(parse(t, `x(?:abc){1000}`))
	if !errors.Is(err, ErrTooComplex) {
		t.Fatalf("Compile = %v, want ErrTooComplex", err)
	}
	if _, err := c.Compile(parse(t, `(?:abc){10}`)); err != nil {
		t.Errorf("small repeat rejected: %v", err)
	}
}

func TestBuilderValidate(t *testing.T) {
	b := NewBuilder()
	if _, err := b.Build(); err == nil {
		t.Error("Build without start succeeded")
	}

	b = NewBuilder()
	r := b.AddRune('a', InvalidState)
	b.SetStart(r)
	var be *BuildError
	if _, err := b.Build(); !errors.As(err, &be) {
		t.Fatalf("Build with dangling state = %v, want *BuildError", err)
	}

	b = NewBuilder()
	m := b.AddMatch()
	if err := b.Patch(m, m); err == nil {
		t.Error("patching a match state succeeded")
	}
	r = b.AddRune('a', m)
	b.SetStart(b.AddSplit(r, m))
	n, err := b.Build(WithCaptureCount(1))
	if err != nil {
		t.Fatal(err)
	}
	if n.States() != 3 || n.State(n.Start()).Kind() != StateSplit {
		t.Errorf("unexpected NFA:\n%s", n)
	}
}

func TestNFAString(t *testing.T) {
	n, err := Compile(parse(t, `(a|b)*c`))
	if err != nil {
		t.Fatal(err)
	}
	listing := n.String()
	for _, want := range []string{"Split", "Capture slot 2", "Capture slot 3", "Rune 'c'", "Match"} {
		if !strings.Contains(listing, want) {
			t.Errorf("listing missing %q:\n%s", want, listing)
		}
	}
	if got := n.SubexpNames(); len(got) != 2 {
		t.Errorf("SubexpNames = %q", got)
	}
}

// TestAgainstBacktrack checks that both engines agree on spans, groups and
// lastindex for patterns the linear engine accepts.
func TestAgainstBacktrack(t *testing.T) {
	patterns := []string{
		`a+b`, `(a|ab)(c|bcd)(d*)`, `(\w+)@(\w+)\.com`, `(a+)+$`,
		`(?:a*)*b`, `(a|b)*?b`, `((a)|b)+`, `(a?)(a?)(a?)aa`, `(?:a|b|)*c`,
		`[a-c]+?c`, `(?:ab)*c`, `^(\d+)-(\d+)$`, `(?m)^\w+$`, `(x)(y)?(z)`,
		`a{2,4}`, `a{2,4}?`, `(?:a|){2,4}`, `(?:a*?)*?c`, `(?i)[k-m]+`, `\b\w`,
		`(a)|(b)|(c)`, `((a)(b))?c`, `(?s).*?x`, `.*$`,
	}
	subjects := []string{
		"", "aab", "abcd", "user@example.com", "aaaa", "b", "ab", "abac",
		"aabbcc", "ababc", "12-34", "foo\nbar", "xz", "xyz", "aaaaa",
		"KELVIN \u212a", "a b\nc", "abc", "bbac", "\xffa",
	}
	for _, p := range patterns {
		re := parse(t, p)
		n, err := Compile(re)
		if err != nil {
			t.Fatalf("Compile(%q): %v", p, err)
		}
		vm := NewPikeVM(n)
		s := vm.NewState()
		prog, err := backtrack.Compile(re)
		if err != nil {
			t.Fatalf("backtrack.Compile(%q): %v", p, err)
		}
		m := backtrack.NewMachine(prog)

		for _, subj := range subjects {
			in := input.New(subj, false)
			for _, opts := range []Options{{}, {Full: true}, {MustAdvance: true}} {
				bopts := backtrack.Options{Full: opts.Full, MustAdvance: opts.MustAdvance}
				var got, want []int
				gotIndex, wantIndex := -1, -1
				if vm.Search(s, in, 0, opts) {
					got = append(got, s.Caps()...)
					gotIndex = s.LastIndex()
				}
				if m.Search(in, 0, bopts) {
					want = append(want, m.Caps()...)
					wantIndex = m.LastIndex()
				}
				if diff := cmp.Diff(want, got); diff != "" {
					t.Errorf("%q on %q %+v mismatch (-backtrack +pikevm):\n%s", p, subj, opts, diff)
				}
				if gotIndex != wantIndex {
					t.Errorf("%q on %q %+v lastindex = %d, want %d", p, subj, opts, gotIndex, wantIndex)
				}
			}
		}
	}
}

func BenchmarkPikeVMSearch(b *testing.B) {
	re, err := syntax.Parse(`(\w+)@(\w+)\.com`, 0, false)
	if err != nil {
		b.Fatal(err)
	}
	n, err := Compile(re)
	if err != nil {
		b.Fatal(err)
	}
	vm := NewPikeVM(n)
	s := vm.NewState()
	in := input.New(strings.Repeat("lorem ipsum ", 100)+"user@example.com", false)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		vm.Search(s, in, 0, Options{})
	}
}
