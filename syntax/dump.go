package syntax

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes the parse tree in the indented format Python prints for
// re.DEBUG.
func (re *Regexp) Dump(w io.Writer) error {
	var b strings.Builder
	dumpSeq(&b, re.Root, 0)
	_, err := io.WriteString(w, b.String())
	return err
}

// seq returns the items of a subpattern.
func seq(n *Node) []*Node {
	switch {
	case n == nil || n.Op == OpEmpty:
		return nil
	case n.Op == OpConcat:
		return n.Subs
	}
	return []*Node{n}
}

func dumpSeq(b *strings.Builder, n *Node, level int) {
	for _, item := range seq(n) {
		dumpNode(b, item, level)
	}
}

func dumpNode(b *strings.Builder, n *Node, level int) {
	indent := strings.Repeat("  ", level)
	switch n.Op {
	case OpLiteral, OpNotLiteral:
		fmt.Fprintf(b, "%s%s %d\n", indent, n.Op, n.Rune)
	case OpAny:
		fmt.Fprintf(b, "%sANY None\n", indent)
	case OpAnchor:
		fmt.Fprintf(b, "%sAT %s\n", indent, n.At)
	case OpClass:
		fmt.Fprintf(b, "%sIN\n", indent)
		if n.Class.Negate {
			fmt.Fprintf(b, "%s  NEGATE None\n", indent)
		}
		for _, it := range n.Class.Items {
			switch it.Kind {
			case ItemLiteral:
				fmt.Fprintf(b, "%s  LITERAL %d\n", indent, it.Lo)
			case ItemRange:
				fmt.Fprintf(b, "%s  RANGE (%d, %d)\n", indent, it.Lo, it.Hi)
			case ItemCategory:
				fmt.Fprintf(b, "%s  CATEGORY %s\n", indent, it.Category)
			}
		}
	case OpAlternate:
		fmt.Fprintf(b, "%sBRANCH\n", indent)
		for i, sub := range n.Subs {
			if i > 0 {
				fmt.Fprintf(b, "%sOR\n", indent)
			}
			dumpSeq(b, sub, level+1)
		}
	case OpRepeat:
		hi := fmt.Sprint(n.Max)
		if n.Max == MaxRepeat {
			hi = "MAXREPEAT"
		}
		fmt.Fprintf(b, "%s%s %d %s\n", indent, n.Greed, n.Min, hi)
		dumpSeq(b, n.Subs[0], level+1)
	case OpGroup:
		group := "None"
		if n.Index > 0 {
			group = fmt.Sprint(n.Index)
		}
		fmt.Fprintf(b, "%sSUBPATTERN %s %d %d\n", indent, group, n.AddFlags, n.DelFlags)
		dumpSeq(b, n.Subs[0], level+1)
	case OpBackref:
		fmt.Fprintf(b, "%sGROUPREF %d\n", indent, n.Index)
	case OpConditional:
		fmt.Fprintf(b, "%sGROUPREF_EXISTS %d\n", indent, n.Index)
		dumpSeq(b, n.Subs[0], level+1)
		if n.Subs[1] != nil && n.Subs[1].Op != OpEmpty {
			fmt.Fprintf(b, "%sELSE\n", indent)
			dumpSeq(b, n.Subs[1], level+1)
		}
	case OpLookaround:
		op, dir := "ASSERT", 1
		if n.Negate {
			op = "ASSERT_NOT"
		}
		if n.Behind {
			dir = -1
		}
		fmt.Fprintf(b, "%s%s %d\n", indent, op, dir)
		dumpSeq(b, n.Subs[0], level+1)
	case OpAtomic:
		fmt.Fprintf(b, "%sATOMIC_GROUP\n", indent)
		dumpSeq(b, n.Subs[0], level+1)
	case OpFailure:
		fmt.Fprintf(b, "%sFAILURE\n", indent)
	case OpConcat:
		dumpSeq(b, n, level)
	}
}
