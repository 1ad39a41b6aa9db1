package sre

import (
	"errors"
	"strings"
	"testing"
)

func TestSub(t *testing.T) {
	tests := []struct {
		pattern string
		repl    string
		s       string
		count   int
		want    string
		n       int
	}{
		{`x*`, "-", "abxd", 0, "-a-b--d-", 5},
		{`a`, "-", "aaa", 2, "--a", 2},
		{`a`, "-", "aaa", -1, "aaa", 0},
		{`z`, "-", "abc", 0, "abc", 0},
		{`(\w+) (\w+)`, `\2 \1`, "hello world", 0, "world hello", 1},
		{`(?P<w>\w+)`, `<\g<w>>`, "a bc", 0, "<a> <bc>", 2},
		{`(a)|b`, `<\1>`, "ab", 0, "<a><>", 2},
		{`(\w+)`, `[\1]\n`, "ab", 0, "[ab]\n", 1},
		{`a`, `\0`, "a", 0, "\x00", 1},
		{`a`, `\q`, "", 0, "", 0},
		{`b`, `\-`, "abc", 0, `a\-c`, 1},
		{`é`, "e", "café", 0, "cafe", 1},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.repl, func(t *testing.T) {
			got, n, err := MustCompile(tt.pattern, 0).Subn(tt.repl, tt.s, tt.count)
			if tt.repl == `\q` {
				if err == nil || err.Error() != `bad escape \q at position 0` {
					t.Fatalf("Subn() error = %v, want bad escape", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want || n != tt.n {
				t.Errorf("Subn() = %q, %d; want %q, %d", got, n, tt.want, tt.n)
			}
		})
	}
}

func TestSubTemplateErrors(t *testing.T) {
	p := MustCompile(`(a)`, 0)
	tests := []struct {
		repl string
		want string
	}{
		{`\g<x`, "missing >, unterminated name at position 3"},
		{`\g<>`, "missing group name at position 3"},
		{`\gx`, "missing < at position 2"},
		{`\5`, "invalid group reference 5 at position 1"},
		{`\g<nope>`, "unknown group name 'nope' at position 3"},
		{`\g<1a>`, "bad character in group name '1a' at position 3"},
		{`\777`, `octal escape value \777 outside of range 0-0o377 at position 0`},
		{`\`, "bad escape (end of pattern) at position 0"},
	}
	for _, tt := range tests {
		t.Run(tt.repl, func(t *testing.T) {
			_, err := p.Sub(tt.repl, "a", 0)
			if !errors.Is(err, ErrTemplate) {
				t.Fatalf("Sub() error = %v, want ErrTemplate", err)
			}
			if err.Error() != tt.want {
				t.Errorf("Error() = %q, want %q", err.Error(), tt.want)
			}
		})
	}
}

func TestSubFunc(t *testing.T) {
	p := MustCompile(`\w+`, 0)
	got, n, err := p.SubnFunc(func(m *Match) (string, error) {
		s, _ := m.Group(0)
		return strings.ToUpper(s), nil
	}, "one two three", 2)
	if err != nil {
		t.Fatal(err)
	}
	if got != "ONE TWO three" || n != 2 {
		t.Errorf("SubnFunc() = %q, %d", got, n)
	}

	boom := errors.New("boom")
	calls := 0
	_, err = p.SubFunc(func(*Match) (string, error) {
		calls++
		return "", boom
	}, "a b c", 0)
	if !errors.Is(err, boom) {
		t.Errorf("SubFunc() error = %v, want boom", err)
	}
	if calls != 1 {
		t.Errorf("repl called %d times after an error", calls)
	}
}

func TestSubFuncMatchFields(t *testing.T) {
	var spans [][2]int
	_, err := MustCompile(`b`, 0).SubFunc(func(m *Match) (string, error) {
		start, end, _ := m.Span(0)
		spans = append(spans, [2]int{start, end})
		if m.Pos() != 0 || m.EndPos() != 5 {
			t.Errorf("Pos, EndPos = %d, %d", m.Pos(), m.EndPos())
		}
		return "", nil
	}, "abcba", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(spans) != 2 || spans[0] != [2]int{1, 2} || spans[1] != [2]int{3, 4} {
		t.Errorf("spans = %v", spans)
	}
}

func TestTemplateCache(t *testing.T) {
	p := MustCompile(`(a)`, 0)
	t1, err := p.template(`<\1>`)
	if err != nil {
		t.Fatal(err)
	}
	t2, _ := p.template(`<\1>`)
	if t1 != t2 {
		t.Error("template was parsed twice")
	}
}

func TestModuleSub(t *testing.T) {
	got, n, err := Subn(`\s+`, " ", "a  b\t\tc", 0, 0)
	if err != nil || got != "a b c" || n != 2 {
		t.Errorf("Subn() = %q, %d, %v", got, n, err)
	}
	if _, err := Sub(`(`, "", "", 0, 0); !errors.Is(err, ErrSyntax) {
		t.Errorf("Sub() with bad pattern error = %v", err)
	}
	got, err = SubFunc(`\d`, func(m *Match) (string, error) {
		s, _ := m.Group(0)
		return s + s, nil
	}, "a1b2", 0, 0)
	if err != nil || got != "a11b22" {
		t.Errorf("SubFunc() = %q, %v", got, err)
	}
}

func BenchmarkSubTemplate(b *testing.B) {
	p := MustCompile(`(\w+)@(\w+)\.com`, 0)
	s := strings.Repeat("contact bob@example.com or alice@test.com; ", 100)
	b.SetBytes(int64(len(s)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = p.Sub(`\2 at \1`, s, 0)
	}
}
