// Package syntax parses Python-style regular expressions and substitution
// templates.
//
// The parser is a recursive-descent reader over an explicit cursor. It
// resolves inline and scoped flags while parsing and stamps the flags in
// force onto every node, so later stages never track flag scopes. Error
// messages and positions follow Python's re module; positions are byte
// offsets into the pattern.
package syntax

import (
	"slices"
	"strconv"
)

// parser holds the state of one Parse call.
type parser struct {
	src source

	// flags collects the caller flags and global inline flags.
	flags Flag
	// global is the stamping base for top-level items.
	global Flag

	groupIndex  map[string]int
	groupNames  []string
	groupWidths []width
	groupClosed []bool

	// lookbehindGroups is the group count when the outermost enclosing
	// lookbehind started, or -1 outside lookbehinds.
	lookbehindGroups int

	// grouprefPos records where a conditional first referenced a group
	// number that may be defined later.
	grouprefPos map[int]int
}

// Parse parses pattern. A binary pattern treats every byte as a unit; a
// text pattern is decoded as UTF-8.
func Parse(pattern string, flags Flag, binary bool) (*Regexp, error) {
	p := &parser{
		src:              source{pattern: pattern, binary: binary},
		flags:            flags,
		global:           flags,
		groupIndex:       make(map[string]int),
		groupNames:       []string{""},
		groupWidths:      []width{{}},
		groupClosed:      []bool{false},
		lookbehindGroups: -1,
		grouprefPos:      make(map[int]int),
	}
	if !binary && flags&(FlagASCII|FlagLocale) == 0 {
		p.global |= FlagUnicode
	}

	root, err := p.parseSub(flags&FlagVerbose != 0, 0, p.global)
	if err != nil {
		return nil, err
	}

	p.width(root)

	resolved, err := ResolveFlags(p.flags, binary)
	if err != nil {
		return nil, err
	}

	if !p.src.atEnd() {
		return nil, p.src.errorf("unbalanced parenthesis")
	}

	refs := make([]int, 0, len(p.grouprefPos))
	for g := range p.grouprefPos {
		if g >= p.groups() {
			refs = append(refs, g)
		}
	}
	if len(refs) > 0 {
		slices.SortFunc(refs, func(a, b int) int { return p.grouprefPos[a] - p.grouprefPos[b] })
		return nil, p.src.errorAt(p.grouprefPos[refs[0]], "invalid group reference %d", refs[0])
	}

	return &Regexp{
		Pattern:    pattern,
		Binary:     binary,
		Flags:      resolved,
		Groups:     p.groups() - 1,
		GroupIndex: p.groupIndex,
		GroupNames: p.groupNames,
		Root:       root,
	}, nil
}

func (p *parser) groups() int { return len(p.groupWidths) }

func (p *parser) openGroup(name string, pos int) (int, error) {
	gid := p.groups()
	if gid >= MaxGroups {
		return 0, p.src.errorAt(pos, "too many groups")
	}
	if name != "" {
		if old, ok := p.groupIndex[name]; ok {
			return 0, p.src.errorAt(pos, "redefinition of group name %s as group %d; was group %d",
				Quote(name, p.src.binary), gid, old)
		}
		p.groupIndex[name] = gid
	}
	p.groupNames = append(p.groupNames, name)
	p.groupWidths = append(p.groupWidths, width{})
	p.groupClosed = append(p.groupClosed, false)
	return gid, nil
}

func (p *parser) closeGroup(gid int, n *Node) {
	p.groupWidths[gid] = p.width(n)
	p.groupClosed[gid] = true
}

func (p *parser) checkGroup(gid int) bool {
	return gid < p.groups() && p.groupClosed[gid]
}

func (p *parser) checkLookbehindGroup(gid int) error {
	if p.lookbehindGroups < 0 {
		return nil
	}
	if !p.checkGroup(gid) {
		return p.src.errorf("cannot refer to an open group")
	}
	if gid >= p.lookbehindGroups {
		return p.src.errorf("cannot refer to group defined in the same lookbehind subpattern")
	}
	return nil
}

// parseSub parses an alternation a|b|c.
func (p *parser) parseSub(verbose bool, nested int, cur Flag) (*Node, error) {
	start := p.src.tell()
	var items [][]*Node
	for {
		if nested == 0 {
			cur = p.global
		}
		seq, err := p.parseSeq(verbose, nested+1, nested == 0 && len(items) == 0, cur)
		if err != nil {
			return nil, err
		}
		items = append(items, seq)
		if !p.src.match('|') {
			break
		}
		if nested == 0 {
			verbose = p.flags&FlagVerbose != 0
		}
	}

	if len(items) == 1 {
		return concat(items[0], start), nil
	}

	// move a prefix shared by every branch out of the alternation
	var prefix []*Node
	for {
		first := items[0]
		if len(first) == 0 {
			break
		}
		shared := true
		for _, item := range items[1:] {
			if len(item) == 0 || !item[0].equal(first[0]) {
				shared = false
				break
			}
		}
		if !shared {
			break
		}
		prefix = append(prefix, first[0])
		for i := range items {
			items[i] = items[i][1:]
		}
	}

	if set := mergeBranches(items); set != nil {
		return concat(append(prefix, set), start), nil
	}

	alt := &Node{Op: OpAlternate, Pos: start, Flags: cur}
	for _, item := range items {
		alt.Subs = append(alt.Subs, concat(item, start))
	}
	return concat(append(prefix, alt), start), nil
}

// mergeBranches turns an alternation of single characters into one class.
func mergeBranches(items [][]*Node) *Node {
	var set []ClassItem
	var flags Flag
	for i, item := range items {
		if len(item) != 1 {
			return nil
		}
		n := item[0]
		if i == 0 {
			flags = n.Flags
		} else if n.Flags != flags {
			return nil
		}
		switch {
		case n.Op == OpLiteral:
			set = append(set, ClassItem{Kind: ItemLiteral, Lo: n.Rune, Hi: n.Rune})
		case n.Op == OpClass && !n.Class.Negate:
			set = append(set, n.Class.Items...)
		default:
			return nil
		}
	}
	return &Node{Op: OpClass, Flags: flags, Pos: items[0][0].Pos, Class: &Class{Items: uniqueItems(set)}}
}

func uniqueItems(items []ClassItem) []ClassItem {
	out := items[:0:0]
	for _, it := range items {
		if !slices.Contains(out, it) {
			out = append(out, it)
		}
	}
	return out
}

// concat wraps a sequence into a single node.
func concat(seq []*Node, pos int) *Node {
	switch len(seq) {
	case 0:
		return &Node{Op: OpEmpty, Pos: pos}
	case 1:
		return seq[0]
	}
	return &Node{Op: OpConcat, Pos: seq[0].Pos, Subs: seq}
}

// parseSeq parses a sequence of items up to '|', ')' or the end.
func (p *parser) parseSeq(verbose bool, nested int, first bool, cur Flag) ([]*Node, error) {
	var seq []*Node
	s := &p.src

	for {
		c, ok := s.peek()
		if !ok || c == '|' || c == ')' {
			break
		}
		start := s.tell()
		s.next()

		if verbose {
			if isVerboseSpace(c) {
				continue
			}
			if c == '#' {
				s.skipComment()
				continue
			}
		}

		switch c {
		case '\\':
			n, err := p.parseEscape(start, cur)
			if err != nil {
				return nil, err
			}
			seq = append(seq, n)

		case '[':
			n, err := p.parseClass(start, cur)
			if err != nil {
				return nil, err
			}
			seq = append(seq, n)

		case '*', '+', '?', '{':
			var ok bool
			var err error
			seq, ok, err = p.parseRepeat(seq, c, start)
			if err != nil {
				return nil, err
			}
			if !ok {
				seq = append(seq, &Node{Op: OpLiteral, Rune: c, Flags: cur, Pos: start})
			}

		case '.':
			seq = append(seq, &Node{Op: OpAny, Flags: cur, Pos: start})

		case '(':
			n, err := p.parseGroup(start, verbose, nested, first && len(seq) == 0, &cur)
			if err != nil {
				return nil, err
			}
			if n == globalFlagsMarker {
				if nested == 1 {
					verbose = p.flags&FlagVerbose != 0
				}
				continue
			}
			if n != nil {
				seq = append(seq, n)
			}

		case '^':
			at := AtBeginning
			if cur&FlagMultiline != 0 {
				at = AtBeginningLine
			}
			seq = append(seq, &Node{Op: OpAnchor, At: at, Flags: cur, Pos: start})

		case '$':
			at := AtEnd
			if cur&FlagMultiline != 0 {
				at = AtEndLine
			}
			seq = append(seq, &Node{Op: OpAnchor, At: at, Flags: cur, Pos: start})

		default:
			seq = append(seq, &Node{Op: OpLiteral, Rune: c, Flags: cur, Pos: start})
		}
	}

	// inline plain non-capturing groups
	out := seq[:0:0]
	for _, n := range seq {
		if n.Op == OpGroup && n.Index == 0 && n.AddFlags == 0 && n.DelFlags == 0 {
			sub := n.Subs[0]
			switch sub.Op {
			case OpConcat:
				out = append(out, sub.Subs...)
			case OpEmpty:
			default:
				out = append(out, sub)
			}
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// parseRepeat applies a quantifier to the last item of seq. It reports
// false when a '{' does not start a valid quantifier and is a literal.
func (p *parser) parseRepeat(seq []*Node, c rune, start int) ([]*Node, bool, error) {
	s := &p.src
	here := s.tell()

	var lo, hi int
	switch c {
	case '?':
		lo, hi = 0, 1
	case '*':
		lo, hi = 0, MaxRepeat
	case '+':
		lo, hi = 1, MaxRepeat
	case '{':
		if next, ok := s.peek(); ok && next == '}' {
			return seq, false, nil
		}
		lo, hi = 0, MaxRepeat
		los := s.digits()
		his := los
		if s.match(',') {
			his = s.digits()
		}
		if !s.match('}') {
			s.seek(here)
			return seq, false, nil
		}
		var err error
		if los != "" {
			if lo, err = p.repeatCount(los, start); err != nil {
				return nil, false, err
			}
		}
		if his != "" {
			if hi, err = p.repeatCount(his, start); err != nil {
				return nil, false, err
			}
			if hi < lo {
				return nil, false, s.errorAt(here, "min repeat greater than max repeat")
			}
		}
	}

	if len(seq) == 0 || seq[len(seq)-1].Op == OpAnchor {
		return nil, false, s.errorAt(start, "nothing to repeat")
	}
	item := seq[len(seq)-1]
	if item.Op == OpRepeat {
		return nil, false, s.errorAt(start, "multiple repeat")
	}

	sub := item
	if item.Op == OpGroup && item.Index == 0 && item.AddFlags == 0 && item.DelFlags == 0 {
		sub = item.Subs[0]
	}

	greed := Greedy
	if s.match('?') {
		greed = Lazy
	} else if s.match('+') {
		greed = Possessive
	}

	seq[len(seq)-1] = &Node{
		Op:    OpRepeat,
		Min:   lo,
		Max:   hi,
		Greed: greed,
		Flags: item.Flags,
		Pos:   start,
		Subs:  []*Node{sub},
	}
	return seq, true, nil
}

func (p *parser) repeatCount(digits string, pos int) (int, error) {
	n, err := strconv.ParseUint(digits, 10, 64)
	if err != nil || n >= MaxRepeat {
		return 0, p.src.errorAt(pos, "the repetition number is too large")
	}
	return int(n), nil
}

// globalFlagsMarker is returned by parseGroup for a global flags group,
// which produces no node.
var globalFlagsMarker = &Node{Op: OpEmpty}

// parseGroup parses everything after an opening parenthesis at start.
// It returns nil for comments.
func (p *parser) parseGroup(start int, verbose bool, nested int, first bool, cur *Flag) (*Node, error) {
	s := &p.src
	capture := true
	atomic := false
	name := ""
	nameStart := start
	var add, del Flag

	if s.match('?') {
		char, ok := s.next()
		if !ok {
			return nil, s.errorf("unexpected end of pattern")
		}
		switch char {
		case 'P':
			switch {
			case s.match('<'):
				nameStart = s.tell()
				var err error
				if name, err = s.getUntil('>', "group name"); err != nil {
					return nil, err
				}
				if err := p.checkGroupName(name, nameStart); err != nil {
					return nil, err
				}
			case s.match('='):
				return p.parseNamedBackref(*cur)
			default:
				c, ok := s.next()
				if !ok {
					return nil, s.errorf("unexpected end of pattern")
				}
				return nil, s.errorAt(start+1, "unknown extension ?P%s", s.unitString(c))
			}

		case ':':
			capture = false

		case '>':
			capture = false
			atomic = true

		case '#':
			for {
				c, ok := s.next()
				if !ok {
					return nil, s.errorAt(start, "missing ), unterminated comment")
				}
				if c == ')' {
					return nil, nil
				}
				if c == '\\' {
					s.next()
				}
			}

		case '=', '!', '<':
			return p.parseLookaround(start, char, verbose, nested, *cur)

		case '(':
			return p.parseConditional(start, verbose, nested, *cur)

		default:
			if _, isFlag := inlineFlag(char); !isFlag && char != '-' {
				return nil, s.errorAt(start+1, "unknown extension ?%s", s.unitString(char))
			}
			var scoped bool
			var err error
			add, del, scoped, err = p.parseFlags(char, s.tell()-1)
			if err != nil {
				return nil, err
			}
			if !scoped {
				if !first {
					return nil, s.errorAt(start, "global flags not at the start of the expression")
				}
				p.flags |= add
				p.global = CombineFlags(p.global, add, 0)
				*cur = CombineFlags(*cur, add, 0)
				return globalFlagsMarker, nil
			}
			capture = false
		}
	}

	group := 0
	if capture {
		var err error
		if group, err = p.openGroup(name, nameStart); err != nil {
			return nil, err
		}
	}

	subVerbose := (verbose || add&FlagVerbose != 0) && del&FlagVerbose == 0
	sub, err := p.parseSub(subVerbose, nested, CombineFlags(*cur, add, del))
	if err != nil {
		return nil, err
	}
	if !s.match(')') {
		return nil, s.errorAt(start, "missing ), unterminated subpattern")
	}
	if group > 0 {
		p.closeGroup(group, sub)
	}

	if atomic {
		return &Node{Op: OpAtomic, Flags: *cur, Pos: start, Subs: []*Node{sub}}, nil
	}
	return &Node{
		Op:       OpGroup,
		Flags:    *cur,
		Pos:      start,
		Index:    group,
		Name:     name,
		AddFlags: add,
		DelFlags: del,
		Subs:     []*Node{sub},
	}, nil
}

func (p *parser) parseNamedBackref(cur Flag) (*Node, error) {
	s := &p.src
	nameStart := s.tell()
	name, err := s.getUntil(')', "group name")
	if err != nil {
		return nil, err
	}
	if err := p.checkGroupName(name, nameStart); err != nil {
		return nil, err
	}
	gid, ok := p.groupIndex[name]
	if !ok {
		return nil, s.errorAt(nameStart, "unknown group name %s", Quote(name, s.binary))
	}
	if !p.checkGroup(gid) {
		return nil, s.errorAt(nameStart, "cannot refer to an open group")
	}
	if err := p.checkLookbehindGroup(gid); err != nil {
		return nil, err
	}
	return &Node{Op: OpBackref, Index: gid, Flags: cur, Pos: nameStart - 4}, nil
}

func (p *parser) parseLookaround(start int, char rune, verbose bool, nested int, cur Flag) (*Node, error) {
	s := &p.src
	behind := false
	saved := p.lookbehindGroups
	if char == '<' {
		c, ok := s.next()
		if !ok {
			return nil, s.errorf("unexpected end of pattern")
		}
		if c != '=' && c != '!' {
			return nil, s.errorAt(start+1, "unknown extension ?<%s", s.unitString(c))
		}
		char = c
		behind = true
		if saved < 0 {
			p.lookbehindGroups = p.groups()
		}
	}

	sub, err := p.parseSub(verbose, nested, cur)
	if err != nil {
		return nil, err
	}
	if behind && saved < 0 {
		p.lookbehindGroups = -1
	}
	if !s.match(')') {
		return nil, s.errorAt(start, "missing ), unterminated subpattern")
	}

	var lookWidth int
	if behind {
		w := p.width(sub)
		if w.lo >= MaxRepeat {
			return nil, s.errorAt(start, "looks too much behind")
		}
		if w.lo != w.hi {
			return nil, s.errorAt(start, "look-behind requires fixed-width pattern")
		}
		lookWidth = int(w.lo)
	}

	if char == '!' && sub.Op == OpEmpty {
		return &Node{Op: OpFailure, Flags: cur, Pos: start}, nil
	}
	return &Node{
		Op:     OpLookaround,
		Flags:  cur,
		Pos:    start,
		Behind: behind,
		Negate: char == '!',
		Width:  lookWidth,
		Subs:   []*Node{sub},
	}, nil
}

func (p *parser) parseConditional(start int, verbose bool, nested int, cur Flag) (*Node, error) {
	s := &p.src
	nameStart := s.tell()
	name, err := s.getUntil(')', "group name")
	if err != nil {
		return nil, err
	}

	var gid int
	if isASCIIDigits(name) {
		n, err := strconv.Atoi(name)
		if err != nil || n >= MaxGroups {
			return nil, s.errorAt(nameStart, "invalid group reference %s", name)
		}
		if n == 0 {
			return nil, s.errorAt(nameStart, "bad group number")
		}
		if _, seen := p.grouprefPos[n]; !seen {
			p.grouprefPos[n] = nameStart
		}
		gid = n
	} else {
		if err := p.checkGroupName(name, nameStart); err != nil {
			return nil, err
		}
		var ok bool
		if gid, ok = p.groupIndex[name]; !ok {
			return nil, s.errorAt(nameStart, "unknown group name %s", Quote(name, s.binary))
		}
	}
	if err := p.checkLookbehindGroup(gid); err != nil {
		return nil, err
	}

	yes, err := p.parseSeq(verbose, nested, false, cur)
	if err != nil {
		return nil, err
	}
	var no *Node
	if s.match('|') {
		noSeq, err := p.parseSeq(verbose, nested, false, cur)
		if err != nil {
			return nil, err
		}
		if c, ok := s.peek(); ok && c == '|' {
			return nil, s.errorf("conditional backref with more than two branches")
		}
		no = concat(noSeq, s.tell())
	}
	if !s.match(')') {
		return nil, s.errorAt(start, "missing ), unterminated subpattern")
	}
	return &Node{
		Op:    OpConditional,
		Flags: cur,
		Pos:   start,
		Index: gid,
		Subs:  []*Node{concat(yes, nameStart), no},
	}, nil
}

// parseFlags parses inline flags after "(?". char is the first flag
// letter or '-' and at its position. scoped is false for a global group
// such as (?i).
func (p *parser) parseFlags(char rune, at int) (add, del Flag, scoped bool, err error) {
	s := &p.src
	var ok bool

	if char != '-' {
		for {
			if !s.binary && char == 'L' {
				return 0, 0, false, s.errorf("bad inline flags: cannot use 'L' flag with a str pattern")
			}
			if s.binary && char == 'u' {
				return 0, 0, false, s.errorf("bad inline flags: cannot use 'u' flag with a bytes pattern")
			}
			f, _ := inlineFlag(char)
			add |= f
			if f&TypeFlags != 0 && add&TypeFlags != f {
				return 0, 0, false, s.errorf("bad inline flags: flags 'a', 'u' and 'L' are incompatible")
			}
			at = s.tell()
			if char, ok = s.next(); !ok {
				return 0, 0, false, s.errorf("missing -, : or )")
			}
			if char == ')' || char == '-' || char == ':' {
				break
			}
			if _, isFlag := inlineFlag(char); !isFlag {
				if isASCIILetter(char) {
					return 0, 0, false, s.errorAt(at, "unknown flag")
				}
				return 0, 0, false, s.errorAt(at, "missing -, : or )")
			}
		}
	}

	if char == ')' {
		return add, 0, false, nil
	}
	if add&GlobalFlags != 0 {
		return 0, 0, false, s.errorAt(s.tell()-1, "bad inline flags: cannot turn on global flag")
	}

	if char == '-' {
		at = s.tell()
		if char, ok = s.next(); !ok {
			return 0, 0, false, s.errorf("missing flag")
		}
		if _, isFlag := inlineFlag(char); !isFlag {
			if isASCIILetter(char) {
				return 0, 0, false, s.errorAt(at, "unknown flag")
			}
			return 0, 0, false, s.errorAt(at, "missing flag")
		}
		for {
			f, _ := inlineFlag(char)
			if f&TypeFlags != 0 {
				return 0, 0, false, s.errorf("bad inline flags: cannot turn off flags 'a', 'u' and 'L'")
			}
			del |= f
			at = s.tell()
			if char, ok = s.next(); !ok {
				return 0, 0, false, s.errorf("missing :")
			}
			if char == ':' {
				break
			}
			if _, isFlag := inlineFlag(char); !isFlag {
				if isASCIILetter(char) {
					return 0, 0, false, s.errorAt(at, "unknown flag")
				}
				return 0, 0, false, s.errorAt(at, "missing :")
			}
		}
	}

	if del&GlobalFlags != 0 {
		return 0, 0, false, s.errorAt(s.tell()-1, "bad inline flags: cannot turn off global flag")
	}
	if add&del != 0 {
		return 0, 0, false, s.errorAt(s.tell()-1, "bad inline flags: flag turned on and off")
	}
	return add, del, true, nil
}

func (p *parser) checkGroupName(name string, pos int) error {
	if p.src.binary && !isASCII(name) {
		return p.src.errorAt(pos, "bad character in group name %s", Quote(name, true))
	}
	if !isIdentifier(name) {
		return p.src.errorAt(pos, "bad character in group name %s", Quote(name, p.src.binary))
	}
	return nil
}

func isASCIIDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
