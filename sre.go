// Package sre provides a regular expression engine for Go that follows the
// observable behaviour of Python's re module.
//
// Patterns support named and conditional groups, lookaround, atomic groups,
// possessive repeats, backreferences, Unicode case folding and the ASCII,
// UNICODE and LOCALE category modes. Error messages and positions match the
// ones Python reports.
//
// Two engines execute patterns:
//   - A Pike VM over a Thompson NFA, used whenever the pattern allows it.
//     Matching time is linear in the subject length.
//   - A backtracking VM with an explicit stack, used for backreferences,
//     lookaround, conditionals, atomic groups and possessive repeats, or when
//     the FALLBACK flag is given.
//
// Literal prefixes feed a prefilter (memchr, substring search or an
// Aho-Corasick automaton) that skips subject regions that cannot match.
//
// Basic usage:
//
//	p, err := sre.Compile(`(?P<user>\w+)@(?P<host>[\w.]+)`, 0)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if m := p.Search("mail bob@example.com"); m != nil {
//	    host, _ := m.Group("host")
//	    fmt.Println(host) // example.com
//	}
//
// Positions are byte offsets into the subject. A text pattern decodes the
// subject as UTF-8 and treats every invalid byte as a character of its own;
// a bytes pattern (CompileBytes) matches byte by byte.
//
// Compiled patterns are immutable and safe for concurrent use. The
// package-level functions compile through a shared pattern cache; a Module
// carries its own cache and options.
package sre

import (
	"fmt"
	"io"
	"iter"
	"os"

	"github.com/coregx/sre/cache"
	"github.com/coregx/sre/meta"
	"github.com/coregx/sre/syntax"
)

// Flag is a set of compile flags. The values are the ones Python uses.
type Flag = syntax.Flag

// Compile flags.
const (
	NoFlag     Flag = 0
	IgnoreCase      = syntax.FlagIgnoreCase
	Locale          = syntax.FlagLocale
	Multiline       = syntax.FlagMultiline
	DotAll          = syntax.FlagDotAll
	Unicode         = syntax.FlagUnicode
	Verbose         = syntax.FlagVerbose
	Debug           = syntax.FlagDebug
	ASCII           = syntax.FlagASCII
	Fallback        = syntax.FlagFallback
)

// Error is returned for every compile failure, bad template and bad call.
// It unwraps to one of ErrSyntax, ErrUnsupported, ErrTemplate or ErrUsage.
type Error = syntax.Error

// ConfigError is returned by NewModule for invalid engine configuration.
type ConfigError = meta.ConfigError

// Error kinds.
var (
	ErrSyntax      = syntax.ErrSyntax
	ErrUnsupported = syntax.ErrUnsupported
	ErrTemplate    = syntax.ErrTemplate
	ErrUsage       = syntax.ErrUsage
)

// DefaultCacheSize is the number of patterns a Module caches by default.
const DefaultCacheSize = 64

// Options configures a Module.
type Options struct {
	// Config tunes engine selection and prefiltering.
	Config meta.Config

	// CacheSize bounds the pattern cache. Zero selects DefaultCacheSize and
	// a negative value disables the cache.
	CacheSize int

	// DisableCache compiles every pattern afresh.
	DisableCache bool

	// DebugOutput receives the dump of patterns compiled with the Debug
	// flag. Nil means os.Stderr.
	DebugOutput io.Writer
}

// DefaultOptions returns the options of the package-level functions.
func DefaultOptions() Options {
	return Options{
		Config:    meta.DefaultConfig(),
		CacheSize: DefaultCacheSize,
	}
}

// Module compiles patterns with a fixed set of options and caches them by
// (pattern, alphabet, flags). A Module is safe for concurrent use.
type Module struct {
	opts  Options
	cache *cache.Cache[cacheKey, *Pattern]
}

type cacheKey struct {
	pattern string
	binary  bool
	flags   Flag
}

// NewModule returns a Module using opts.
func NewModule(opts Options) (*Module, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	m := &Module{opts: opts}
	if !opts.DisableCache && opts.CacheSize >= 0 {
		m.cache = cache.New[cacheKey, *Pattern](opts.CacheSize)
	}
	return m, nil
}

var std = func() *Module {
	m, err := NewModule(DefaultOptions())
	if err != nil {
		panic(err)
	}
	return m
}()

// Compile parses a text pattern and returns the compiled Pattern. Repeated
// calls with the same pattern and flags return the same *Pattern until the
// cache evicts it or Purge is called.
func (m *Module) Compile(pattern string, flags Flag) (*Pattern, error) {
	return m.compile(pattern, false, flags)
}

// CompileBytes compiles a bytes pattern. Its subjects are matched byte by
// byte, and categories and case folding are limited to ASCII unless the
// Locale flag is given.
func (m *Module) CompileBytes(pattern []byte, flags Flag) (*Pattern, error) {
	return m.compile(string(pattern), true, flags)
}

func (m *Module) compile(pattern string, binary bool, flags Flag) (*Pattern, error) {
	key := cacheKey{pattern: pattern, binary: binary, flags: flags}
	if m.cache != nil && flags&Debug == 0 {
		if p, ok := m.cache.Get(key); ok {
			return p, nil
		}
	}

	re, err := syntax.Parse(pattern, flags, binary)
	if err != nil {
		return nil, err
	}
	engine, err := meta.Compile(re, m.opts.Config)
	if err != nil {
		return nil, err
	}
	p := newPattern(re, engine)

	if re.Flags&Debug != 0 {
		m.dump(p)
		return p, nil
	}
	if m.cache != nil {
		p = m.cache.Add(key, p)
	}
	return p, nil
}

// dump writes the parse tree and the program listing of p.
func (m *Module) dump(p *Pattern) {
	w := m.opts.DebugOutput
	if w == nil {
		w = os.Stderr
	}
	_ = p.re.Dump(w)
	fmt.Fprintf(w, "\n%s\n", p.engine.Reason())
	_, _ = io.WriteString(w, p.engine.String())
}

// Purge clears the pattern cache.
func (m *Module) Purge() {
	if m.cache != nil {
		m.cache.Purge()
	}
}

// Match compiles pattern and matches it at the start of s.
func (m *Module) Match(pattern, s string, flags Flag) (*Match, error) {
	p, err := m.Compile(pattern, flags)
	if err != nil {
		return nil, err
	}
	return p.Match(s), nil
}

// Search compiles pattern and returns its first match in s.
func (m *Module) Search(pattern, s string, flags Flag) (*Match, error) {
	p, err := m.Compile(pattern, flags)
	if err != nil {
		return nil, err
	}
	return p.Search(s), nil
}

// FullMatch compiles pattern and matches it against the whole of s.
func (m *Module) FullMatch(pattern, s string, flags Flag) (*Match, error) {
	p, err := m.Compile(pattern, flags)
	if err != nil {
		return nil, err
	}
	return p.FullMatch(s), nil
}

// Split compiles pattern and splits s by its matches.
func (m *Module) Split(pattern, s string, maxsplit int, flags Flag) ([]string, error) {
	p, err := m.Compile(pattern, flags)
	if err != nil {
		return nil, err
	}
	return p.Split(s, maxsplit), nil
}

// FindAll compiles pattern and returns all its matches in s.
func (m *Module) FindAll(pattern, s string, flags Flag) ([][]string, error) {
	p, err := m.Compile(pattern, flags)
	if err != nil {
		return nil, err
	}
	return p.FindAll(s), nil
}

// FindIter compiles pattern and returns an iterator over its matches in s.
func (m *Module) FindIter(pattern, s string, flags Flag) (iter.Seq[*Match], error) {
	p, err := m.Compile(pattern, flags)
	if err != nil {
		return nil, err
	}
	return p.FindIter(s), nil
}

// Sub compiles pattern and replaces its matches in s by the template repl.
func (m *Module) Sub(pattern, repl, s string, count int, flags Flag) (string, error) {
	p, err := m.Compile(pattern, flags)
	if err != nil {
		return "", err
	}
	return p.Sub(repl, s, count)
}

// Subn is like Sub and also returns the number of replacements.
func (m *Module) Subn(pattern, repl, s string, count int, flags Flag) (string, int, error) {
	p, err := m.Compile(pattern, flags)
	if err != nil {
		return "", 0, err
	}
	return p.Subn(repl, s, count)
}

// SubFunc compiles pattern and replaces its matches in s by the results of
// repl.
func (m *Module) SubFunc(pattern string, repl func(*Match) (string, error), s string, count int, flags Flag) (string, error) {
	p, err := m.Compile(pattern, flags)
	if err != nil {
		return "", err
	}
	return p.SubFunc(repl, s, count)
}

// SubnFunc is like SubFunc and also returns the number of replacements.
func (m *Module) SubnFunc(pattern string, repl func(*Match) (string, error), s string, count int, flags Flag) (string, int, error) {
	p, err := m.Compile(pattern, flags)
	if err != nil {
		return "", 0, err
	}
	return p.SubnFunc(repl, s, count)
}

// Compile compiles a text pattern through the shared cache.
//
// Example:
//
//	p, err := sre.Compile(`\d{3}-\d{4}`, 0)
//	if err != nil {
//	    log.Fatal(err)
//	}
func Compile(pattern string, flags Flag) (*Pattern, error) {
	return std.Compile(pattern, flags)
}

// CompileBytes compiles a bytes pattern through the shared cache.
func CompileBytes(pattern []byte, flags Flag) (*Pattern, error) {
	return std.CompileBytes(pattern, flags)
}

// MustCompile is like Compile but panics if the pattern cannot be compiled.
//
// Example:
//
//	var word = sre.MustCompile(`\w+`, sre.ASCII)
func MustCompile(pattern string, flags Flag) *Pattern {
	p, err := Compile(pattern, flags)
	if err != nil {
		panic("sre: Compile(" + syntax.Quote(pattern, false) + "): " + err.Error())
	}
	return p
}

// MatchString matches pattern at the start of s. It returns nil when there
// is no match.
func MatchString(pattern, s string, flags Flag) (*Match, error) {
	return std.Match(pattern, s, flags)
}

// Search returns the first match of pattern in s, or nil.
func Search(pattern, s string, flags Flag) (*Match, error) {
	return std.Search(pattern, s, flags)
}

// FullMatch matches pattern against all of s, or returns nil.
func FullMatch(pattern, s string, flags Flag) (*Match, error) {
	return std.FullMatch(pattern, s, flags)
}

// Split splits s by the matches of pattern. See Pattern.Split.
func Split(pattern, s string, maxsplit int, flags Flag) ([]string, error) {
	return std.Split(pattern, s, maxsplit, flags)
}

// FindAll returns all non-overlapping matches of pattern in s. See
// Pattern.FindAll.
func FindAll(pattern, s string, flags Flag) ([][]string, error) {
	return std.FindAll(pattern, s, flags)
}

// FindIter returns an iterator over the matches of pattern in s.
func FindIter(pattern, s string, flags Flag) (iter.Seq[*Match], error) {
	return std.FindIter(pattern, s, flags)
}

// Sub replaces the matches of pattern in s by the template repl. See
// Pattern.Sub.
func Sub(pattern, repl, s string, count int, flags Flag) (string, error) {
	return std.Sub(pattern, repl, s, count, flags)
}

// Subn is like Sub and also returns the number of replacements.
func Subn(pattern, repl, s string, count int, flags Flag) (string, int, error) {
	return std.Subn(pattern, repl, s, count, flags)
}

// SubFunc replaces the matches of pattern in s by the results of repl.
func SubFunc(pattern string, repl func(*Match) (string, error), s string, count int, flags Flag) (string, error) {
	return std.SubFunc(pattern, repl, s, count, flags)
}

// SubnFunc is like SubFunc and also returns the number of replacements.
func SubnFunc(pattern string, repl func(*Match) (string, error), s string, count int, flags Flag) (string, int, error) {
	return std.SubnFunc(pattern, repl, s, count, flags)
}

// Purge clears the shared pattern cache.
func Purge() {
	std.Purge()
}
