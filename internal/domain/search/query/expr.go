package query

import (
	"strings"
)

// Op is a binary boolean operator.
type Op string

// Boolean operators recognized by the parser.
const (
	OpAnd Op = "AND"
	OpOr  Op = "OR"
)

// Expr is a node of the parsed query expression.
type Expr interface {
	String() string
	expr()
}

// Term is a single word or a quoted phrase.
type Term struct {
	Text   string
	Phrase bool
}

// Not negates a single term.
type Not struct {
	Operand Expr
}

// Binary joins two fragments with AND or OR.
type Binary struct {
	Op    Op
	Left  Expr
	Right Expr
}

// Seq is a space-joined sequence of fragments.
type Seq []Expr

func (Term) expr()   {}
func (Not) expr()    {}
func (Binary) expr() {}
func (Seq) expr()    {}

// String returns the term text. Phrase quotes are not reproduced; Phrase
// carries that to backends rendering the tree.
func (t Term) String() string { return t.Text }

func (n Not) String() string { return "NOT " + n.Operand.String() }

func (b Binary) String() string {
	return "(" + b.Left.String() + " " + string(b.Op) + " " + b.Right.String() + ")"
}

func (s Seq) String() string {
	parts := make([]string, len(s))
	for i, e := range s {
		parts[i] = e.String()
	}
	return strings.Join(parts, " ")
}
