package starlarkre

import (
	"errors"
	"fmt"
	"iter"
	"sort"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/coregx/sre"
)

// Pattern is the Starlark value of a compiled pattern.
type Pattern struct {
	p *sre.Pattern
}

var (
	_ starlark.Value      = (*Pattern)(nil)
	_ starlark.HasAttrs   = (*Pattern)(nil)
	_ starlark.Comparable = (*Pattern)(nil)
)

var patternMethods = map[string]*starlark.Builtin{
	"search":    starlark.NewBuiltin("search", patternRange((*Pattern).search)),
	"match":     starlark.NewBuiltin("match", patternRange((*Pattern).match)),
	"fullmatch": starlark.NewBuiltin("fullmatch", patternRange((*Pattern).fullmatch)),
	"findall":   starlark.NewBuiltin("findall", patternRange((*Pattern).findall)),
	"finditer":  starlark.NewBuiltin("finditer", patternRange((*Pattern).finditer)),
	"split":     starlark.NewBuiltin("split", patternSplit),
	"sub":       starlark.NewBuiltin("sub", patternSub),
	"subn":      starlark.NewBuiltin("subn", patternSub),
}

var patternAttrs = []string{"flags", "groupindex", "groups", "pattern"}

// String returns the Python repr of the pattern.
func (p *Pattern) String() string { return p.p.String() }

// Type returns a short string describing the value's type.
func (p *Pattern) Type() string { return "re.Pattern" }

// Freeze is a no-op, patterns are immutable.
func (p *Pattern) Freeze() {}

// Truth returns the truth value of the object.
func (p *Pattern) Truth() starlark.Bool { return true }

// Hash hashes the pattern source and flags.
func (p *Pattern) Hash() (uint32, error) {
	h, err := p.source().Hash()
	return h ^ uint32(p.p.Flags()), err
}

// CompareSameType compares patterns by source, kind and flags.
func (p *Pattern) CompareSameType(op syntax.Token, y starlark.Value, _ int) (bool, error) {
	q := y.(*Pattern)
	eq := p.p.Pattern() == q.p.Pattern() && p.p.IsBinary() == q.p.IsBinary() && p.p.Flags() == q.p.Flags()
	switch op {
	case syntax.EQL:
		return eq, nil
	case syntax.NEQ:
		return !eq, nil
	}
	return false, fmt.Errorf("%s %s %s not implemented", p.Type(), op, q.Type())
}

// Attr returns a method bound to p or a pattern attribute.
func (p *Pattern) Attr(name string) (starlark.Value, error) {
	switch name {
	case "pattern":
		return p.source(), nil
	case "flags":
		return makeFlags(p.p.Flags()), nil
	case "groups":
		return starlark.MakeInt(p.p.Groups()), nil
	case "groupindex":
		d := starlark.NewDict(len(p.p.GroupIndex()))
		names := p.p.GroupNames()
		for i, name := range names {
			if name != "" {
				_ = d.SetKey(starlark.String(name), starlark.MakeInt(i))
			}
		}
		d.Freeze()
		return d, nil
	}
	if b, ok := patternMethods[name]; ok {
		return b.BindReceiver(p), nil
	}
	return nil, nil
}

// AttrNames lists available dot expression members.
func (p *Pattern) AttrNames() []string {
	names := make([]string, 0, len(patternMethods)+len(patternAttrs))
	for name := range patternMethods {
		names = append(names, name)
	}
	names = append(names, patternAttrs...)
	sort.Strings(names)
	return names
}

func (p *Pattern) source() starlark.Value {
	return p.kind().wrap(p.p.Pattern())
}

// kind returns an empty text of the pattern's alphabet.
func (p *Pattern) kind() text {
	return text{binary: p.p.IsBinary()}
}

// check rejects subjects of the other alphabet.
func (p *Pattern) check(s text) error {
	switch {
	case p.p.IsBinary() && !s.binary:
		return errors.New("cannot use a bytes pattern on a string-like object")
	case !p.p.IsBinary() && s.binary:
		return errors.New("cannot use a string pattern on a bytes-like object")
	}
	return nil
}

func (p *Pattern) wrapMatch(m *sre.Match) starlark.Value {
	if m == nil {
		return starlark.None
	}
	return &Match{m: m, kind: p.kind(), re: p}
}

func (p *Pattern) search(s text, pos, endpos int) (starlark.Value, error) {
	if err := p.check(s); err != nil {
		return nil, err
	}
	return p.wrapMatch(p.p.SearchRange(s.value, pos, endpos)), nil
}

func (p *Pattern) match(s text, pos, endpos int) (starlark.Value, error) {
	if err := p.check(s); err != nil {
		return nil, err
	}
	return p.wrapMatch(p.p.MatchRange(s.value, pos, endpos)), nil
}

func (p *Pattern) fullmatch(s text, pos, endpos int) (starlark.Value, error) {
	if err := p.check(s); err != nil {
		return nil, err
	}
	return p.wrapMatch(p.p.FullMatchRange(s.value, pos, endpos)), nil
}

// findall returns a list of strings when the pattern has at most one
// group, otherwise a list of tuples.
func (p *Pattern) findall(s text, pos, endpos int) (starlark.Value, error) {
	if err := p.check(s); err != nil {
		return nil, err
	}
	var elems []starlark.Value
	for _, item := range p.p.FindAllRange(s.value, pos, endpos) {
		if len(item) == 1 {
			elems = append(elems, s.wrap(item[0]))
			continue
		}
		t := make(starlark.Tuple, len(item))
		for i, g := range item {
			t[i] = s.wrap(g)
		}
		elems = append(elems, t)
	}
	return starlark.NewList(elems), nil
}

func (p *Pattern) finditer(s text, pos, endpos int) (starlark.Value, error) {
	if err := p.check(s); err != nil {
		return nil, err
	}
	return &matchIterable{re: p, seq: p.p.FindIterRange(s.value, pos, endpos)}, nil
}

func (p *Pattern) split(s text, maxsplit int) (starlark.Value, error) {
	if err := p.check(s); err != nil {
		return nil, err
	}
	spans := p.p.SplitSpans(s.value, maxsplit)
	elems := make([]starlark.Value, len(spans))
	for i, sp := range spans {
		if sp[0] < 0 {
			elems[i] = starlark.None
			continue
		}
		elems[i] = s.wrap(s.value[sp[0]:sp[1]])
	}
	return starlark.NewList(elems), nil
}

// sub replaces matches with a template string or the result of calling
// repl with each match. withCount selects the subn result shape.
func (p *Pattern) sub(thread *starlark.Thread, repl starlark.Value, s text, count int, withCount bool) (starlark.Value, error) {
	if err := p.check(s); err != nil {
		return nil, err
	}
	var (
		out string
		n   int
		err error
	)
	switch r := repl.(type) {
	case starlark.String, starlark.Bytes:
		var tmpl text
		_ = tmpl.Unpack(r)
		if tmpl.binary != s.binary {
			return nil, fmt.Errorf("expected %s instance, %s found", s.typeName(), tmpl.typeName())
		}
		out, n, err = p.p.Subn(tmpl.value, s.value, count)
	case starlark.Callable:
		out, n, err = p.p.SubnFunc(func(m *sre.Match) (string, error) {
			v, err := starlark.Call(thread, r, starlark.Tuple{p.wrapMatch(m)}, nil)
			if err != nil {
				return "", err
			}
			var res text
			if err := res.Unpack(v); err != nil || res.binary != s.binary {
				return "", fmt.Errorf("expected %s instance, %s found", s.typeName(), v.Type())
			}
			return res.value, nil
		}, s.value, count)
	default:
		return nil, fmt.Errorf("repl: got %s, want str, bytes or callable", repl.Type())
	}
	if err != nil {
		return nil, err
	}
	if withCount {
		return starlark.Tuple{s.wrap(out), starlark.MakeInt(n)}, nil
	}
	return s.wrap(out), nil
}

func receiverPattern(b *starlark.Builtin) *Pattern {
	return b.Receiver().(*Pattern)
}

// patternRange adapts a (string, pos=0, endpos=maxint) method.
func patternRange(run func(p *Pattern, s text, pos, endpos int) (starlark.Value, error)) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var (
			s      text
			pos    int
			endpos = posMax
		)
		if err := starlark.UnpackArgs(b.Name(), args, kwargs, "string", &s, "pos?", &pos, "endpos?", &endpos); err != nil {
			return nil, err
		}
		return run(receiverPattern(b), s, pos, endpos)
	}
}

func patternSplit(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		s        text
		maxsplit int
	)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "string", &s, "maxsplit?", &maxsplit); err != nil {
		return nil, err
	}
	return receiverPattern(b).split(s, maxsplit)
}

func patternSub(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		repl  starlark.Value
		s     text
		count int
	)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "repl", &repl, "string", &s, "count?", &count); err != nil {
		return nil, err
	}
	return receiverPattern(b).sub(thread, repl, s, count, b.Name() == "subn")
}

// Match is the Starlark value of a match. Indexing a match with a group key
// returns the group, like m.group(key).
type Match struct {
	m    *sre.Match
	kind text
	re   *Pattern
}

var (
	_ starlark.Value    = (*Match)(nil)
	_ starlark.HasAttrs = (*Match)(nil)
	_ starlark.Mapping  = (*Match)(nil)
)

var matchMethods = map[string]*starlark.Builtin{
	"group":     starlark.NewBuiltin("group", matchGroup),
	"groups":    starlark.NewBuiltin("groups", matchGroups),
	"groupdict": starlark.NewBuiltin("groupdict", matchGroupDict),
	"span":      starlark.NewBuiltin("span", matchSpan),
	"start":     starlark.NewBuiltin("start", matchSpan),
	"end":       starlark.NewBuiltin("end", matchSpan),
	"expand":    starlark.NewBuiltin("expand", matchExpand),
}

var matchAttrs = []string{"endpos", "lastgroup", "lastindex", "pos", "re", "regs", "string"}

// String returns the Python repr of the match.
func (m *Match) String() string { return m.m.String() }

// Type returns a short string describing the value's type.
func (m *Match) Type() string { return "re.Match" }

// Freeze is a no-op, matches are immutable.
func (m *Match) Freeze() {}

// Truth returns the truth value of the object.
func (m *Match) Truth() starlark.Bool { return true }

// Hash returns an error, matches are not hashable.
func (m *Match) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable: %s", m.Type()) }

// Get implements m[key].
func (m *Match) Get(key starlark.Value) (starlark.Value, bool, error) {
	v, err := m.group(key)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// Attr returns a method bound to m or a match attribute.
func (m *Match) Attr(name string) (starlark.Value, error) {
	switch name {
	case "pos":
		return starlark.MakeInt(m.m.Pos()), nil
	case "endpos":
		return starlark.MakeInt(m.m.EndPos()), nil
	case "string":
		return m.kind.wrap(m.m.Subject()), nil
	case "re":
		return m.re, nil
	case "lastindex":
		if i := m.m.LastIndex(); i >= 0 {
			return starlark.MakeInt(i), nil
		}
		return starlark.None, nil
	case "lastgroup":
		if name := m.m.LastGroup(); name != "" {
			return starlark.String(name), nil
		}
		return starlark.None, nil
	case "regs":
		regs := m.m.Regs()
		t := make(starlark.Tuple, len(regs))
		for i, r := range regs {
			t[i] = starlark.Tuple{starlark.MakeInt(r[0]), starlark.MakeInt(r[1])}
		}
		return t, nil
	}
	if b, ok := matchMethods[name]; ok {
		return b.BindReceiver(m), nil
	}
	return nil, nil
}

// AttrNames lists available dot expression members.
func (m *Match) AttrNames() []string {
	names := make([]string, 0, len(matchMethods)+len(matchAttrs))
	for name := range matchMethods {
		names = append(names, name)
	}
	names = append(names, matchAttrs...)
	sort.Strings(names)
	return names
}

// groupKey converts a Starlark group key. Keys of other types are passed
// through so the lookup reports them as unknown groups.
func groupKey(v starlark.Value) any {
	switch v := v.(type) {
	case starlark.Int:
		if i, ok := v.Int64(); ok && i >= 0 && i <= posMax {
			return int(i)
		}
		return -1
	case starlark.String:
		return string(v)
	}
	return v
}

func (m *Match) group(key starlark.Value) (starlark.Value, error) {
	s, ok, err := m.m.GroupOK(groupKey(key))
	if err != nil {
		return nil, err
	}
	if !ok {
		return starlark.None, nil
	}
	return m.kind.wrap(s), nil
}

func receiverMatch(b *starlark.Builtin) *Match {
	return b.Receiver().(*Match)
}

// matchGroup implements m.group(*keys).
func matchGroup(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(kwargs) > 0 {
		return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
	}
	m := receiverMatch(b)
	switch len(args) {
	case 0:
		return m.group(starlark.MakeInt(0))
	case 1:
		return m.group(args[0])
	}
	t := make(starlark.Tuple, len(args))
	for i, key := range args {
		v, err := m.group(key)
		if err != nil {
			return nil, err
		}
		t[i] = v
	}
	return t, nil
}

// matchGroups implements m.groups(default=None).
func matchGroups(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var def starlark.Value = starlark.None
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "default?", &def); err != nil {
		return nil, err
	}
	m := receiverMatch(b)
	t := make(starlark.Tuple, m.re.p.Groups())
	for i := range t {
		s, ok, _ := m.m.GroupOK(i + 1)
		if !ok {
			t[i] = def
			continue
		}
		t[i] = m.kind.wrap(s)
	}
	return t, nil
}

// matchGroupDict implements m.groupdict(default=None).
func matchGroupDict(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var def starlark.Value = starlark.None
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "default?", &def); err != nil {
		return nil, err
	}
	m := receiverMatch(b)
	d := starlark.NewDict(len(m.re.p.GroupIndex()))
	for i, name := range m.re.p.GroupNames() {
		if name == "" {
			continue
		}
		s, ok, _ := m.m.GroupOK(i)
		v := def
		if ok {
			v = m.kind.wrap(s)
		}
		if err := d.SetKey(starlark.String(name), v); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// matchSpan implements m.span, m.start and m.end(group=0).
func matchSpan(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var key starlark.Value = starlark.MakeInt(0)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "group?", &key); err != nil {
		return nil, err
	}
	start, end, err := receiverMatch(b).m.Span(groupKey(key))
	if err != nil {
		return nil, err
	}
	switch b.Name() {
	case "start":
		return starlark.MakeInt(start), nil
	case "end":
		return starlark.MakeInt(end), nil
	}
	return starlark.Tuple{starlark.MakeInt(start), starlark.MakeInt(end)}, nil
}

// matchExpand implements m.expand(template).
func matchExpand(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var tmpl text
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "template", &tmpl); err != nil {
		return nil, err
	}
	m := receiverMatch(b)
	if tmpl.binary != m.kind.binary {
		return nil, fmt.Errorf("expected %s instance, %s found", m.kind.typeName(), tmpl.typeName())
	}
	s, err := m.m.Expand(tmpl.value)
	if err != nil {
		return nil, err
	}
	return m.kind.wrap(s), nil
}

// matchIterable is the lazy result of finditer. Each Iterate call restarts
// the scan.
type matchIterable struct {
	re  *Pattern
	seq iter.Seq[*sre.Match]
}

var _ starlark.Iterable = (*matchIterable)(nil)

func (it *matchIterable) String() string        { return "<re.Scanner iterator>" }
func (it *matchIterable) Type() string          { return "re.Scanner" }
func (it *matchIterable) Freeze()               {}
func (it *matchIterable) Truth() starlark.Bool  { return true }
func (it *matchIterable) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable: %s", it.Type()) }

// Iterate starts a new scan.
func (it *matchIterable) Iterate() starlark.Iterator {
	next, stop := iter.Pull(it.seq)
	return &matchIterator{re: it.re, next: next, stop: stop}
}

type matchIterator struct {
	re   *Pattern
	next func() (*sre.Match, bool)
	stop func()
}

func (it *matchIterator) Next(p *starlark.Value) bool {
	m, ok := it.next()
	if !ok {
		return false
	}
	*p = it.re.wrapMatch(m)
	return true
}

func (it *matchIterator) Done() { it.stop() }
