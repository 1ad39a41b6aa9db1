package syntax

// width is the minimum and maximum number of units a node can match,
// saturated at MaxRepeat.
type width struct {
	lo, hi uint64
}

func satAdd(a, b uint64) uint64 {
	return min(a+b, MaxRepeat)
}

func satMul(a, b uint64) uint64 {
	if a != 0 && b > MaxRepeat/a {
		return MaxRepeat
	}
	return min(a*b, MaxRepeat)
}

// width computes the match width of n. Back references take the width of
// the referenced group as recorded when it closed.
func (p *parser) width(n *Node) width {
	return nodeWidth(n, p.groupWidths)
}

// Width returns the minimum and maximum match width of the tree. The
// maximum is MaxRepeat when unbounded.
func (re *Regexp) Width() (lo, hi uint64) {
	w := nodeWidth(re.Root, nil)
	return w.lo, w.hi
}

// nodeWidth returns the width of n, caching it on every node it visits so
// each subtree is measured once. Trees from Parse are fully measured before
// Parse returns; groups is only consulted for nodes built elsewhere.
func nodeWidth(n *Node, groups []width) width {
	if n == nil {
		return width{}
	}
	if n.measured {
		return n.width
	}
	w := measure(n, groups)
	n.width, n.measured = w, true
	return w
}

func measure(n *Node, groups []width) width {
	switch n.Op {
	case OpLiteral, OpNotLiteral, OpClass, OpAny:
		return width{1, 1}
	case OpConcat:
		var w width
		for _, sub := range n.Subs {
			sw := nodeWidth(sub, groups)
			w.lo = satAdd(w.lo, sw.lo)
			w.hi = satAdd(w.hi, sw.hi)
		}
		return w
	case OpAlternate:
		w := width{lo: MaxRepeat}
		for _, sub := range n.Subs {
			sw := nodeWidth(sub, groups)
			w.lo = min(w.lo, sw.lo)
			w.hi = max(w.hi, sw.hi)
		}
		return w
	case OpRepeat:
		sw := nodeWidth(n.Subs[0], groups)
		return width{satMul(sw.lo, uint64(n.Min)), satMul(sw.hi, uint64(n.Max))}
	case OpGroup, OpAtomic:
		return nodeWidth(n.Subs[0], groups)
	case OpBackref:
		if n.Index < len(groups) {
			return groups[n.Index]
		}
		return width{}
	case OpConditional:
		w := nodeWidth(n.Subs[0], groups)
		if n.Subs[1] != nil {
			nw := nodeWidth(n.Subs[1], groups)
			w.lo = min(w.lo, nw.lo)
			w.hi = max(w.hi, nw.hi)
		} else {
			w.lo = 0
		}
		return w
	case OpLookaround:
		nodeWidth(n.Subs[0], groups)
	}
	return width{}
}

// MinWidth returns the fewest units n can match. Back references take the
// width of their group in trees from Parse and count as possibly empty in
// trees built by hand.
func (n *Node) MinWidth() uint64 {
	return nodeWidth(n, nil).lo
}
