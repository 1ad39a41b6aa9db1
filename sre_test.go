package sre

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/coregx/sre/meta"
)

func span(t *testing.T, m *Match) [2]int {
	t.Helper()
	if m == nil {
		return [2]int{-1, -1}
	}
	start, end, err := m.Span(0)
	if err != nil {
		t.Fatalf("Span(0) failed: %v", err)
	}
	return [2]int{start, end}
}

func TestScenarios(t *testing.T) {
	t.Run("search empty", func(t *testing.T) {
		m, err := Search("x*", "axx", 0)
		if err != nil {
			t.Fatal(err)
		}
		if got := span(t, m); got != [2]int{0, 0} {
			t.Errorf("span = %v, want (0, 0)", got)
		}
	})

	t.Run("fullmatch alternation", func(t *testing.T) {
		m, err := FullMatch("a|ab", "ab", 0)
		if err != nil {
			t.Fatal(err)
		}
		if got := span(t, m); got != [2]int{0, 2} {
			t.Errorf("span = %v, want (0, 2)", got)
		}
	})

	t.Run("sub ignorecase", func(t *testing.T) {
		got, err := Sub("(?i)b+", "x", "bbbb BBBB", 0, 0)
		if err != nil {
			t.Fatal(err)
		}
		if got != "x x" {
			t.Errorf("Sub() = %q, want %q", got, "x x")
		}
	})

	t.Run("split groups", func(t *testing.T) {
		got, err := Split("(:+)", ":a:b::c", 0, 0)
		if err != nil {
			t.Fatal(err)
		}
		want := []string{"", ":", "a", ":", "b", "::", "c"}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Split() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("bad range", func(t *testing.T) {
		_, err := Compile("a[b-a]", 0)
		var serr *Error
		if !errors.As(err, &serr) || !errors.Is(err, ErrSyntax) {
			t.Fatalf("Compile() error = %v, want syntax error", err)
		}
		if got, want := err.Error(), "bad character range b-a at position 2"; got != want {
			t.Errorf("Error() = %q, want %q", got, want)
		}
	})

	t.Run("lastindex", func(t *testing.T) {
		m, err := MatchString("(a)(b)?b", "ab", 0)
		if err != nil {
			t.Fatal(err)
		}
		if m == nil || m.LastIndex() != 1 {
			t.Fatalf("LastIndex() = %v, want 1", m)
		}
	})

	t.Run("greedy and lazy", func(t *testing.T) {
		greedy, _ := Search("a.*b", "axxbxxb", 0)
		lazy, _ := Search("a.*?b", "axxbxxb", 0)
		if got := span(t, greedy); got != [2]int{0, 7} {
			t.Errorf("greedy span = %v, want (0, 7)", got)
		}
		if got := span(t, lazy); got != [2]int{0, 4} {
			t.Errorf("lazy span = %v, want (0, 4)", got)
		}
	})
}

func TestFindIter(t *testing.T) {
	tests := []struct {
		pattern string
		s       string
		want    [][2]int
	}{
		{`x*`, "axxb", [][2]int{{0, 0}, {1, 3}, {3, 3}, {4, 4}}},
		{`\d+`, "a1b22c333", [][2]int{{1, 2}, {3, 5}, {6, 9}}},
		{``, "ab", [][2]int{{0, 0}, {1, 1}, {2, 2}}},
		{``, "中文", [][2]int{{0, 0}, {3, 3}, {6, 6}}},
		{`\b`, "ab cd", [][2]int{{0, 0}, {2, 2}, {3, 3}, {5, 5}}},
		{`a|`, "ab", [][2]int{{0, 1}, {1, 1}, {2, 2}}},
		{`(?=a)`, "aa", [][2]int{{0, 0}, {1, 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			p := MustCompile(tt.pattern, 0)
			var got [][2]int
			for m := range p.FindIter(tt.s) {
				got = append(got, span(t, m))
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("FindIter(%q) mismatch (-want +got):\n%s", tt.s, diff)
			}
		})
	}
}

func TestFindIterStop(t *testing.T) {
	p := MustCompile(`\w`, 0)
	n := 0
	for range p.FindIter("abcdef") {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Errorf("iterations = %d, want 2", n)
	}
}

func TestFindAll(t *testing.T) {
	tests := []struct {
		pattern string
		s       string
		want    [][]string
	}{
		{`\w+`, "a bc", [][]string{{"a"}, {"bc"}}},
		{`(a)x`, "axax", [][]string{{"a"}, {"a"}}},
		{`(a)(b)?`, "ab a", [][]string{{"a", "b"}, {"a", ""}}},
		{`x*`, "axx", [][]string{{""}, {"xx"}, {""}}},
		{`z`, "abc", nil},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			got, err := FindAll(tt.pattern, tt.s, 0)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("FindAll(%q) mismatch (-want +got):\n%s", tt.s, diff)
			}
		})
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		pattern  string
		s        string
		maxsplit int
		want     []string
	}{
		{`\W+`, "Words, words, words.", 0, []string{"Words", "words", "words", ""}},
		{`(\W+)`, "Words, words, words.", 0, []string{"Words", ", ", "words", ", ", "words", ".", ""}},
		{`\W+`, "Words, words, words.", 1, []string{"Words", "words, words."}},
		{`\W+`, "Words, words, words.", -1, []string{"Words, words, words."}},
		{`\W*`, "...words...", 0, []string{"", "", "w", "o", "r", "d", "s", "", ""}},
		{`\b`, "Words, words", 0, []string{"", "Words", ", ", "words", ""}},
		{`(a)|b`, "xbyaz", 0, []string{"x", "", "y", "a", "z"}},
		{`x`, "", 0, []string{""}},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			got := MustCompile(tt.pattern, 0).Split(tt.s, tt.maxsplit)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Split(%q, %d) mismatch (-want +got):\n%s", tt.s, tt.maxsplit, diff)
			}
		})
	}
}

func TestSplitSpans(t *testing.T) {
	got := MustCompile(`(a)|b`, 0).SplitSpans("xbya", 0)
	want := [][2]int{{0, 1}, {-1, -1}, {2, 3}, {3, 4}, {4, 4}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SplitSpans() mismatch (-want +got):\n%s", diff)
	}
}

func TestRanges(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		run     func(p *Pattern) *Match
		want    [2]int
	}{
		{"search from pos", "abc", func(p *Pattern) *Match { return p.SearchRange("abcabc", 1, 6) }, [2]int{3, 6}},
		{"search before endpos", "abc", func(p *Pattern) *Match { return p.SearchRange("abcabc", 1, 5) }, [2]int{-1, -1}},
		{"caret is not pos", "^a", func(p *Pattern) *Match { return p.MatchRange("aaa", 1, 3) }, [2]int{-1, -1}},
		{"dollar at endpos", "a$", func(p *Pattern) *Match { return p.SearchRange("ab", 0, 1) }, [2]int{0, 1}},
		{"fullmatch slice", "abc", func(p *Pattern) *Match { return p.FullMatchRange("xabcx", 1, 4) }, [2]int{1, 4}},
		{"inverted range", "", func(p *Pattern) *Match { return p.SearchRange("abc", 2, 1) }, [2]int{-1, -1}},
		{"clamped", "c", func(p *Pattern) *Match { return p.SearchRange("abc", -5, 99) }, [2]int{2, 3}},
		{"lookbehind sees before pos", "(?<=a)b", func(p *Pattern) *Match { return p.MatchRange("ab", 1, 2) }, [2]int{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := tt.run(MustCompile(tt.pattern, 0))
			if got := span(t, m); got != tt.want {
				t.Errorf("span = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatchRangeRecordsPos(t *testing.T) {
	m := MustCompile(`b`, 0).SearchRange("abcb", 1, 3)
	if m == nil {
		t.Fatal("SearchRange() = nil")
	}
	if m.Pos() != 1 || m.EndPos() != 3 || m.Subject() != "abcb" {
		t.Errorf("Pos, EndPos, Subject = %d, %d, %q", m.Pos(), m.EndPos(), m.Subject())
	}
}

func TestBinaryPatterns(t *testing.T) {
	p, err := CompileBytes([]byte(`\xff+`), 0)
	if err != nil {
		t.Fatal(err)
	}
	if got := span(t, p.Search("a\xff\xffb")); got != [2]int{1, 3} {
		t.Errorf("span = %v, want (1, 3)", got)
	}
	if p.Flags() != 0 {
		t.Errorf("Flags() = %s, want re.NOFLAG", p.Flags())
	}

	// a text pattern sees an invalid byte as one character
	if got := span(t, MustCompile(`.`, 0).Search("\xff")); got != [2]int{0, 1} {
		t.Errorf("text span = %v, want (0, 1)", got)
	}
}

func TestCaseFolding(t *testing.T) {
	tests := []struct {
		pattern string
		flags   Flag
		s       string
		match   bool
	}{
		{`k`, IgnoreCase, "\u212a", true},
		{`k`, IgnoreCase | ASCII, "\u212a", false},
		{`s`, IgnoreCase, "\u017f", true},
		{`[a-z]+`, IgnoreCase, "HeLLo", true},
		{`É`, IgnoreCase, "é", true},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.s, func(t *testing.T) {
			m, err := FullMatch(tt.pattern, tt.s, tt.flags)
			if err != nil {
				t.Fatal(err)
			}
			if (m != nil) != tt.match {
				t.Errorf("FullMatch(%q, %q, %s) = %v, want match %v", tt.pattern, tt.s, tt.flags, m, tt.match)
			}
		})
	}
}

func TestPatternAccessors(t *testing.T) {
	p := MustCompile(`(?P<a>x)(y)(?P<b>z)`, Multiline)
	if p.Pattern() != `(?P<a>x)(y)(?P<b>z)` || p.IsBinary() {
		t.Errorf("Pattern(), IsBinary() = %q, %v", p.Pattern(), p.IsBinary())
	}
	if p.Groups() != 3 {
		t.Errorf("Groups() = %d, want 3", p.Groups())
	}
	if p.Flags() != Multiline|Unicode {
		t.Errorf("Flags() = %s, want re.MULTILINE|re.UNICODE", p.Flags())
	}
	if diff := cmp.Diff(map[string]int{"a": 1, "b": 3}, p.GroupIndex()); diff != "" {
		t.Errorf("GroupIndex() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"", "a", "", "b"}, p.GroupNames()); diff != "" {
		t.Errorf("GroupNames() mismatch (-want +got):\n%s", diff)
	}

	// callers cannot modify the pattern through the copy
	p.GroupIndex()["a"] = 7
	if p.GroupIndex()["a"] != 1 {
		t.Error("GroupIndex() returned the internal map")
	}
}

func TestPatternString(t *testing.T) {
	tests := []struct {
		pattern string
		binary  bool
		flags   Flag
		want    string
	}{
		{"a", false, 0, "re.compile('a')"},
		{"a+", false, IgnoreCase, "re.compile('a+', re.IGNORECASE)"},
		{"a", true, 0, "re.compile(b'a')"},
		{"a", false, ASCII, "re.compile('a', re.ASCII)"},
		{"a", false, Fallback | Multiline, "re.compile('a', re.MULTILINE|re.FALLBACK)"},
		{"(?i)a", false, 0, "re.compile('(?i)a', re.IGNORECASE)"},
		{"it's", false, 0, `re.compile("it's")`},
		{`\d`, false, 0, `re.compile('\\d')`},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			var p *Pattern
			var err error
			if tt.binary {
				p, err = CompileBytes([]byte(tt.pattern), tt.flags)
			} else {
				p, err = Compile(tt.pattern, tt.flags)
			}
			if err != nil {
				t.Fatal(err)
			}
			if got := p.String(); got != tt.want {
				t.Errorf("String() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		pattern string
		flags   Flag
		kind    error
		msg     string
	}{
		{"(abc", 0, ErrSyntax, "missing ), unterminated subpattern at position 0"},
		{"a**", 0, ErrSyntax, "multiple repeat at position 2"},
		{`(?<=a+)b`, 0, ErrSyntax, "look-behind requires fixed-width pattern"},
		{"a", Locale, ErrUsage, "cannot use LOCALE flag with a str pattern"},
		{"a", ASCII | Unicode, ErrUsage, "ASCII and UNICODE flags are incompatible"},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			p, err := Compile(tt.pattern, tt.flags)
			if p != nil || !errors.Is(err, tt.kind) {
				t.Fatalf("Compile() = %v, %v; want %v", p, err, tt.kind)
			}
			if got := err.Error(); !strings.HasPrefix(got, tt.msg) {
				t.Errorf("Error() = %q, want prefix %q", got, tt.msg)
			}
		})
	}
}

func TestMultilineErrorPosition(t *testing.T) {
	_, err := Compile("a\nb\n(c", Verbose)
	var serr *Error
	if !errors.As(err, &serr) {
		t.Fatalf("Compile() error = %v", err)
	}
	if serr.Pos != 4 || serr.Line != 3 || serr.Column != 1 {
		t.Errorf("Pos, Line, Column = %d, %d, %d; want 4, 3, 1", serr.Pos, serr.Line, serr.Column)
	}
}

func TestMustCompilePanics(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("MustCompile did not panic")
		}
		if msg, _ := r.(string); !strings.HasPrefix(msg, "sre: Compile('(')") {
			t.Errorf("panic = %v", r)
		}
	}()
	MustCompile("(", 0)
}

func TestPatternCache(t *testing.T) {
	m, err := NewModule(Options{Config: meta.DefaultConfig(), CacheSize: 2})
	if err != nil {
		t.Fatal(err)
	}
	a1, _ := m.Compile("a", 0)
	a2, _ := m.Compile("a", 0)
	if a1 != a2 {
		t.Error("same key returned different patterns")
	}
	if ai, _ := m.Compile("a", IgnoreCase); ai == a1 {
		t.Error("different flags returned the same pattern")
	}
	if ab, _ := m.CompileBytes([]byte("a"), 0); ab == a1 {
		t.Error("bytes pattern shares the text pattern's entry")
	}

	m.Purge()
	if a3, _ := m.Compile("a", 0); a3 == a1 {
		t.Error("Purge() kept the pattern")
	}
}

func TestPatternCacheEviction(t *testing.T) {
	m, err := NewModule(Options{Config: meta.DefaultConfig(), CacheSize: 2})
	if err != nil {
		t.Fatal(err)
	}
	a, _ := m.Compile("a", 0)
	m.Compile("b", 0)
	m.Compile("c", 0)
	if got, _ := m.Compile("a", 0); got == a {
		t.Error("a should have been evicted")
	}
	if got, _ := m.Compile("b", 0); got == a || got == nil || got.Pattern() != "b" {
		t.Errorf("Compile(b) = %v", got)
	}
}

func TestDisableCache(t *testing.T) {
	for _, opts := range []Options{
		{Config: meta.DefaultConfig(), DisableCache: true},
		{Config: meta.DefaultConfig(), CacheSize: -1},
	} {
		m, err := NewModule(opts)
		if err != nil {
			t.Fatal(err)
		}
		p1, _ := m.Compile("a", 0)
		p2, _ := m.Compile("a", 0)
		if p1 == p2 {
			t.Errorf("options %+v: patterns are cached", opts)
		}
	}
}

func TestDebugBypassesCache(t *testing.T) {
	var out bytes.Buffer
	opts := DefaultOptions()
	opts.DebugOutput = &out
	m, err := NewModule(opts)
	if err != nil {
		t.Fatal(err)
	}
	p1, err := m.Compile("a(b)", Debug)
	if err != nil {
		t.Fatal(err)
	}
	p2, _ := m.Compile("a(b)", Debug)
	if p1 == p2 {
		t.Error("Debug pattern was cached")
	}
	dump := out.String()
	for _, want := range []string{"LITERAL 97", "SUBPATTERN 1", "LITERAL 98"} {
		if !strings.Contains(dump, want) {
			t.Errorf("dump lacks %q:\n%s", want, dump)
		}
	}
}

func TestNewModuleInvalidConfig(t *testing.T) {
	opts := DefaultOptions()
	opts.Config.MaxLinearStates = 0
	_, err := NewModule(opts)
	var cerr *ConfigError
	if !errors.As(err, &cerr) || cerr.Field != "MaxLinearStates" {
		t.Fatalf("NewModule() error = %v, want ConfigError", err)
	}
}

func TestDisableFallback(t *testing.T) {
	opts := DefaultOptions()
	opts.Config.DisableFallback = true
	m, err := NewModule(opts)
	if err != nil {
		t.Fatal(err)
	}
	_, err = m.Compile(`(a)\1`, 0)
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("Compile() error = %v, want ErrUnsupported", err)
	}
	p, err := m.Compile(`(a)\1`, Fallback)
	if err != nil {
		t.Fatalf("Compile() with Fallback = %v", err)
	}
	if got := span(t, p.Search("xaa")); got != [2]int{1, 3} {
		t.Errorf("span = %v, want (1, 3)", got)
	}
}

func TestConcurrentCompile(t *testing.T) {
	m, err := NewModule(DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	results := make([]*Pattern, 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := m.Compile(`(\w+)@(\w+)\.com`, 0)
			if err != nil {
				t.Error(err)
				return
			}
			if p.Search("mail bob@example.com") == nil {
				t.Error("no match")
			}
			results[i] = p
		}()
	}
	wg.Wait()
	for _, p := range results[1:] {
		if p != results[0] {
			t.Fatal("concurrent compiles returned different patterns")
		}
	}
}

func TestEscape(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"abc", "abc"},
		{"a.b*c", `a\.b\*c`},
		{"hello world", `hello\ world`},
		{"1+1=2", `1\+1=2`},
		{"ü-\t", "ü\\-\\\t"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Escape(tt.in)
			if got != tt.want {
				t.Errorf("Escape(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if m := MustCompile(got, 0).FullMatch(tt.in); m == nil {
				t.Errorf("escaped pattern %q does not match %q", got, tt.in)
			}
		})
	}
}

// TestEmptyIterationKeepsGroups checks that a repeat ending on an empty
// iteration reports the groups set by that iteration.
func TestEmptyIterationKeepsGroups(t *testing.T) {
	tests := []struct {
		pattern   string
		s         string
		want      [][2]int
		lastIndex int
	}{
		{`(a*)*`, "aab", [][2]int{{0, 2}, {2, 2}}, 1},
		{`(a*)+`, "b", [][2]int{{0, 0}, {0, 0}}, 1},
		{`(a|)*b`, "aab", [][2]int{{0, 3}, {2, 2}}, 1},
		{`(()|a)*`, "aa", [][2]int{{0, 0}, {0, 0}, {0, 0}}, 1},
		{`(?:(a)|b|())*c`, "abcd", [][2]int{{0, 3}, {0, 1}, {2, 2}}, 2},
		{`(a|){0,3}`, "aa", [][2]int{{0, 2}, {2, 2}}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			for _, flags := range []Flag{0, Fallback} {
				m, err := MatchString(tt.pattern, tt.s, flags)
				if err != nil {
					t.Fatal(err)
				}
				if m == nil {
					t.Fatalf("MatchString(%q, %q, %v) = nil", tt.pattern, tt.s, flags)
				}
				if diff := cmp.Diff(tt.want, m.Regs()); diff != "" {
					t.Errorf("flags %v: Regs() mismatch (-want +got):\n%s", flags, diff)
				}
				if got := m.LastIndex(); got != tt.lastIndex {
					t.Errorf("flags %v: LastIndex() = %d, want %d", flags, got, tt.lastIndex)
				}
			}
		})
	}
}

// TestEnginesAgree checks that the linear and the backtracking engine give
// the same results through the public API.
func TestEnginesAgree(t *testing.T) {
	patterns := []string{
		`(a|ab)(c|bcd)(d*)`, `(?:a*)*`, `(?:a|)+b`, `(?:a|b)*?c`, `(\w+)\s+(\w+)`,
		`x{2,3}?`, `(?m)^\w+$`, `(?s).+`, `[^a-c]+`, `\bfoo\b`, `(?i)ǅ`,
	}
	subjects := []string{"abcd", "aab", "xxxx", "one two\nthree", "foo food foo", "ǆ ǅ Ǆ", ""}
	for _, pat := range patterns {
		linear := MustCompile(pat, 0)
		backtrack := MustCompile(pat, Fallback)
		for _, s := range subjects {
			var lin, bt [][]int
			for m := range linear.FindIter(s) {
				lin = append(lin, m.caps)
			}
			for m := range backtrack.FindIter(s) {
				bt = append(bt, m.caps)
			}
			if diff := cmp.Diff(lin, bt); diff != "" {
				t.Errorf("%q on %q: engines disagree (-linear +backtrack):\n%s", pat, s, diff)
			}
		}
	}
}
