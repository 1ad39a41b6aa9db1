// Package starlarkre provides Python's re module for Starlark programs,
// backed by the sre engine.
//
// Usage:
//
//	mod, err := starlarkre.NewModule(sre.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	predeclared := starlark.StringDict{"re": mod}
//	_, err = starlark.ExecFile(thread, "main.star", src, predeclared)
//
// Patterns and subjects may be str or bytes values, but both must be of the
// same kind. Groups that did not participate in a match are None.
package starlarkre

import (
	"errors"
	"fmt"
	"math"

	"go.starlark.net/starlark"

	"github.com/coregx/sre"
	"github.com/coregx/sre/syntax"
)

// posMax is the default endpos; positions are clamped to the subject.
const posMax = math.MaxInt

// Module is the Starlark value of the re module. It owns an sre.Module and
// therefore its own pattern cache.
type Module struct {
	re      *sre.Module
	members starlark.StringDict
}

var (
	_ starlark.Value    = (*Module)(nil)
	_ starlark.HasAttrs = (*Module)(nil)
)

func makeFlags(f sre.Flag) starlark.Int {
	return starlark.MakeUint64(uint64(f))
}

var moduleMembers = starlark.StringDict{
	"A":          makeFlags(sre.ASCII),
	"ASCII":      makeFlags(sre.ASCII),
	"DEBUG":      makeFlags(sre.Debug),
	"I":          makeFlags(sre.IgnoreCase),
	"IGNORECASE": makeFlags(sre.IgnoreCase),
	"L":          makeFlags(sre.Locale),
	"LOCALE":     makeFlags(sre.Locale),
	"M":          makeFlags(sre.Multiline),
	"MULTILINE":  makeFlags(sre.Multiline),
	"NOFLAG":     makeFlags(sre.NoFlag),
	"S":          makeFlags(sre.DotAll),
	"DOTALL":     makeFlags(sre.DotAll),
	"U":          makeFlags(sre.Unicode),
	"UNICODE":    makeFlags(sre.Unicode),
	"X":          makeFlags(sre.Verbose),
	"VERBOSE":    makeFlags(sre.Verbose),
	"FALLBACK":   makeFlags(sre.Fallback),

	"compile":   starlark.NewBuiltin("compile", reCompile),
	"purge":     starlark.NewBuiltin("purge", rePurge),
	"search":    starlark.NewBuiltin("search", reSearch),
	"match":     starlark.NewBuiltin("match", reMatch),
	"fullmatch": starlark.NewBuiltin("fullmatch", reFullmatch),
	"split":     starlark.NewBuiltin("split", reSplit),
	"findall":   starlark.NewBuiltin("findall", reFindall),
	"finditer":  starlark.NewBuiltin("finditer", reFinditer),
	"sub":       starlark.NewBuiltin("sub", reSub),
	"subn":      starlark.NewBuiltin("subn", reSub),
	"escape":    starlark.NewBuiltin("escape", reEscape),
	"error":     starlark.NewBuiltin("error", reError),
}

// NewModule returns a re module compiling with opts.
func NewModule(opts sre.Options) (*Module, error) {
	m, err := sre.NewModule(opts)
	if err != nil {
		return nil, err
	}
	return &Module{re: m, members: moduleMembers}, nil
}

// String returns the string representation of the value.
func (m *Module) String() string { return "<module re>" }

// Type returns a short string describing the value's type.
func (m *Module) Type() string { return "module" }

// Freeze marks the value and all members as frozen.
func (m *Module) Freeze() { m.members.Freeze() }

// Truth returns the truth value of the object.
func (m *Module) Truth() starlark.Bool { return true }

// Hash returns an error, the module is not hashable.
func (m *Module) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable: %s", m.Type()) }

// Attr returns a member of the module; builtins are bound to m.
func (m *Module) Attr(name string) (starlark.Value, error) {
	v, ok := m.members[name]
	if !ok {
		return nil, nil
	}
	if b, ok := v.(*starlark.Builtin); ok {
		return b.BindReceiver(m), nil
	}
	return v, nil
}

// AttrNames lists available dot expression members.
func (m *Module) AttrNames() []string { return m.members.Keys() }

// text is an unpacked str or bytes argument.
type text struct {
	value  string
	binary bool
}

var _ starlark.Unpacker = (*text)(nil)

// Unpack implements starlark.Unpacker.
func (s *text) Unpack(v starlark.Value) error {
	switch v := v.(type) {
	case starlark.String:
		*s = text{value: string(v)}
	case starlark.Bytes:
		*s = text{value: string(v), binary: true}
	default:
		return fmt.Errorf("got %s, want str or bytes", v.Type())
	}
	return nil
}

func (s text) typeName() string {
	if s.binary {
		return "bytes"
	}
	return "str"
}

// wrap converts a Go string to a value of the same kind as s.
func (s text) wrap(v string) starlark.Value {
	if s.binary {
		return starlark.Bytes(v)
	}
	return starlark.String(v)
}

// patternArg is an unpacked str, bytes or Pattern argument.
type patternArg struct {
	compiled *Pattern
	raw      text
}

var _ starlark.Unpacker = (*patternArg)(nil)

// Unpack implements starlark.Unpacker.
func (p *patternArg) Unpack(v starlark.Value) error {
	if c, ok := v.(*Pattern); ok {
		p.compiled = c
		return nil
	}
	if err := p.raw.Unpack(v); err != nil {
		return errors.New("first argument must be string or compiled pattern")
	}
	return nil
}

// flagsArg is an unpacked flags argument.
type flagsArg sre.Flag

var _ starlark.Unpacker = (*flagsArg)(nil)

// Unpack implements starlark.Unpacker.
func (f *flagsArg) Unpack(v starlark.Value) error {
	i, ok := v.(starlark.Int)
	if !ok {
		return fmt.Errorf("got %s, want int", v.Type())
	}
	u, ok := i.Uint64()
	if !ok || u > math.MaxUint32 {
		return fmt.Errorf("invalid flags %s", i)
	}
	*f = flagsArg(u)
	return nil
}

// compile returns the pattern of a pattern argument, compiling it through
// the module cache when needed.
func (m *Module) compile(arg patternArg, flags flagsArg) (*Pattern, error) {
	if arg.compiled != nil {
		if flags != 0 {
			return nil, errors.New("cannot process flags argument with a compiled pattern")
		}
		return arg.compiled, nil
	}
	var (
		p   *sre.Pattern
		err error
	)
	if arg.raw.binary {
		p, err = m.re.CompileBytes([]byte(arg.raw.value), sre.Flag(flags))
	} else {
		p, err = m.re.Compile(arg.raw.value, sre.Flag(flags))
	}
	if err != nil {
		return nil, err
	}
	return &Pattern{p: p}, nil
}

func receiverModule(b *starlark.Builtin) *Module {
	return b.Receiver().(*Module)
}

// reCompile implements re.compile(pattern, flags=0).
func reCompile(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		pattern patternArg
		flags   flagsArg
	)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "pattern", &pattern, "flags?", &flags); err != nil {
		return nil, err
	}
	return receiverModule(b).compile(pattern, flags)
}

// rePurge implements re.purge().
func rePurge(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackArgs(b.Name(), args, kwargs); err != nil {
		return nil, err
	}
	receiverModule(b).re.Purge()
	return starlark.None, nil
}

// matchFunc adapts a Pattern method to a module function taking
// (pattern, string, flags=0).
func matchFunc(run func(p *Pattern, s text, pos, endpos int) (starlark.Value, error)) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var (
			pattern patternArg
			s       text
			flags   flagsArg
		)
		if err := starlark.UnpackArgs(b.Name(), args, kwargs, "pattern", &pattern, "string", &s, "flags?", &flags); err != nil {
			return nil, err
		}
		p, err := receiverModule(b).compile(pattern, flags)
		if err != nil {
			return nil, err
		}
		return run(p, s, 0, posMax)
	}
}

var (
	reSearch    = matchFunc((*Pattern).search)
	reMatch     = matchFunc((*Pattern).match)
	reFullmatch = matchFunc((*Pattern).fullmatch)
	reFindall   = matchFunc((*Pattern).findall)
	reFinditer  = matchFunc((*Pattern).finditer)
)

// reSplit implements re.split(pattern, string, maxsplit=0, flags=0).
func reSplit(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		pattern  patternArg
		s        text
		maxsplit int
		flags    flagsArg
	)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "pattern", &pattern, "string", &s, "maxsplit?", &maxsplit, "flags?", &flags); err != nil {
		return nil, err
	}
	p, err := receiverModule(b).compile(pattern, flags)
	if err != nil {
		return nil, err
	}
	return p.split(s, maxsplit)
}

// reSub implements re.sub and re.subn(pattern, repl, string, count=0,
// flags=0).
func reSub(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		pattern patternArg
		repl    starlark.Value
		s       text
		count   int
		flags   flagsArg
	)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "pattern", &pattern, "repl", &repl, "string", &s, "count?", &count, "flags?", &flags); err != nil {
		return nil, err
	}
	p, err := receiverModule(b).compile(pattern, flags)
	if err != nil {
		return nil, err
	}
	return p.sub(thread, repl, s, count, b.Name() == "subn")
}

// reEscape implements re.escape(pattern).
func reEscape(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var pattern text
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "pattern", &pattern); err != nil {
		return nil, err
	}
	return pattern.wrap(sre.Escape(pattern.value)), nil
}

// reError implements re.error(msg, pattern=None, pos=None). It fails the
// calling thread with a positioned error, the way a failed compile does.
func reError(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		msg     string
		pattern starlark.Value = starlark.None
		pos     starlark.Value = starlark.None
	)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "msg", &msg, "pattern?", &pattern, "pos?", &pos); err != nil {
		return nil, err
	}
	at := -1
	if i, ok := pos.(starlark.Int); ok {
		n, ok := i.Int64()
		if !ok || n < 0 {
			return nil, fmt.Errorf("%s: invalid pos %s", b.Name(), i)
		}
		at = int(n)
	}
	var src text
	if pattern != starlark.None {
		if err := src.Unpack(pattern); err != nil {
			return nil, fmt.Errorf("%s: pattern: %w", b.Name(), err)
		}
	}
	return nil, syntax.SyntaxErrorf(src.value, at, "%s", msg)
}
