package parser

import "strings"

// Op is the closed set of postfix instructions.
type Op int

const (
	OpOperand Op = iota
	OpAnd
	OpOr
	OpNot
)

func (o Op) String() string {
	switch o {
	case OpAnd:
		return "AND"
	case OpOr:
		return "OR"
	case OpNot:
		return "NOT"
	default:
		return "OPERAND"
	}
}

// Item is one postfix instruction. Term is set for OpOperand only.
type Item struct {
	Op   Op
	Term string
}

func (i Item) String() string {
	if i.Op == OpOperand {
		return i.Term
	}
	return i.Op.String()
}

func precedence(k Kind) int {
	switch k {
	case KindNot:
		return 3
	case KindAnd:
		return 2
	case KindOr:
		return 1
	}
	return 0
}

func opFor(k Kind) Op {
	switch k {
	case KindAnd:
		return OpAnd
	case KindOr:
		return OpOr
	default:
		return OpNot
	}
}

// ToPostfix orders tokens with the shunting-yard algorithm using
// NOT > AND > OR. Binary operators are left-associative; NOT is a prefix
// operator and never pops on push. A ")" pops operators to the output down to
// the nearest "("; when there is none it flushes every pending operator.
// Unmatched "(" are discarded.
func ToPostfix(tokens []Token) []Item {
	out := make([]Item, 0, len(tokens))
	var ops []Kind
	for _, tok := range tokens {
		switch tok.Kind {
		case KindOperand:
			out = append(out, Item{Op: OpOperand, Term: tok.Text})
		case KindLParen:
			ops = append(ops, KindLParen)
		case KindRParen:
			for len(ops) > 0 && ops[len(ops)-1] != KindLParen {
				out = append(out, Item{Op: opFor(ops[len(ops)-1])})
				ops = ops[:len(ops)-1]
			}
			if len(ops) > 0 {
				ops = ops[:len(ops)-1]
			}
		case KindNot:
			ops = append(ops, KindNot)
		case KindAnd, KindOr:
			p := precedence(tok.Kind)
			for len(ops) > 0 && ops[len(ops)-1] != KindLParen && precedence(ops[len(ops)-1]) >= p {
				out = append(out, Item{Op: opFor(ops[len(ops)-1])})
				ops = ops[:len(ops)-1]
			}
			ops = append(ops, tok.Kind)
		}
	}
	for i := len(ops) - 1; i >= 0; i-- {
		if ops[i] == KindLParen {
			continue
		}
		out = append(out, Item{Op: opFor(ops[i])})
	}
	return out
}

// Format renders a postfix sequence as space separated items.
func Format(items []Item) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = it.String()
	}
	return strings.Join(parts, " ")
}
