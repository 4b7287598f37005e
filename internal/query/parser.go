package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Expr is a validated predicate tree. A nil Expr matches everything.
type Expr interface {
	// Match evaluates the predicate against one record. Comparisons on
	// attributes the record has no value for are false.
	Match(src Source) bool
}

type boolExpr struct {
	and         bool
	left, right Expr
}

func (e *boolExpr) Match(src Source) bool {
	if e.and {
		return e.left.Match(src) && e.right.Match(src)
	}
	return e.left.Match(src) || e.right.Match(src)
}

type cmpExpr struct {
	field Field
	op    string
	lit   Value
}

func (e *cmpExpr) Match(src Source) bool {
	v, ok := src.Field(e.field.Name)
	if !ok {
		return false
	}
	var cmp int
	switch e.field.Type {
	case FieldNumber:
		switch {
		case v.Num < e.lit.Num:
			cmp = -1
		case v.Num > e.lit.Num:
			cmp = 1
		}
	case FieldString:
		cmp = strings.Compare(v.Str, e.lit.Str)
	case FieldDate:
		switch {
		case v.Date.Before(e.lit.Date):
			cmp = -1
		case v.Date.After(e.lit.Date):
			cmp = 1
		}
	}
	switch e.op {
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	case ">":
		return cmp > 0
	case ">=":
		return cmp >= 0
	case "==":
		return cmp == 0
	case "!=":
		return cmp != 0
	}
	return false
}

// Parse builds the expression tree for a query string. An empty or
// whitespace-only string yields a nil tree (no filter).
func Parse(s string) (Expr, *ValidationError) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	toks, err := lex(s)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	expr, perr := p.parseOr()
	if perr != nil {
		return nil, perr
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, &ValidationError{Msg: fmt.Sprintf("unexpected %q after expression", tok.text), Pos: tok.pos}
	}
	return expr, nil
}

type parser struct {
	toks []token
	i    int
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) parseOr() (Expr, *ValidationError) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOr {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &boolExpr{and: false, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, *ValidationError) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokAnd {
		p.next()
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		left = &boolExpr{and: true, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parsePrimary() (Expr, *ValidationError) {
	tok := p.peek()
	if tok.kind == tokLParen {
		p.next()
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, &ValidationError{Msg: "missing closing parenthesis", Pos: closing.pos}
		}
		return expr, nil
	}
	return p.parseComparison()
}

// parseComparison accepts "field op literal" or "literal op field"; the
// latter is normalised by mirroring the operator.
func (p *parser) parseComparison() (Expr, *ValidationError) {
	left := p.next()
	op := p.next()
	if op.kind != tokOp {
		return nil, &ValidationError{Msg: fmt.Sprintf("expected comparison operator, got %q", op.text), Pos: op.pos}
	}
	right := p.next()

	switch {
	case left.kind == tokIdent && (right.kind == tokNumber || right.kind == tokString):
		return p.buildComparison(left, op.text, right)
	case (left.kind == tokNumber || left.kind == tokString) && right.kind == tokIdent:
		return p.buildComparison(right, mirrorOp(op.text), left)
	case left.kind == tokIdent && right.kind == tokIdent:
		return nil, &ValidationError{Msg: "comparisons between two fields are not supported", Pos: right.pos}
	default:
		return nil, &ValidationError{Msg: "comparison must have a field on one side and a literal on the other", Pos: left.pos}
	}
}

func (p *parser) buildComparison(ident token, op string, lit token) (Expr, *ValidationError) {
	field, ok := lookupField(ident.text)
	if !ok {
		return nil, &ValidationError{Msg: fmt.Sprintf("unknown field %q", ident.text), Pos: ident.pos}
	}

	var val Value
	switch field.Type {
	case FieldNumber:
		if lit.kind != tokNumber {
			return nil, &ValidationError{Msg: fmt.Sprintf("field %q is numeric, got string literal", field.Name), Pos: lit.pos}
		}
		n, err := strconv.ParseFloat(lit.text, 64)
		if err != nil {
			return nil, &ValidationError{Msg: fmt.Sprintf("invalid number %q", lit.text), Pos: lit.pos}
		}
		val = Value{Type: FieldNumber, Num: n}
	case FieldString:
		if lit.kind != tokString {
			return nil, &ValidationError{Msg: fmt.Sprintf("field %q is a string, quote the value", field.Name), Pos: lit.pos}
		}
		val = Value{Type: FieldString, Str: lit.text}
	case FieldDate:
		if lit.kind != tokString {
			return nil, &ValidationError{Msg: fmt.Sprintf("field %q is a date, use a quoted YYYY-MM-DD value", field.Name), Pos: lit.pos}
		}
		t, err := parseDate(lit.text)
		if err != nil {
			return nil, &ValidationError{Msg: fmt.Sprintf("invalid date %q, want YYYY-MM-DD", lit.text), Pos: lit.pos}
		}
		val = Value{Type: FieldDate, Date: t}
	}
	return &cmpExpr{field: field, op: op, lit: val}, nil
}

func mirrorOp(op string) string {
	switch op {
	case "<":
		return ">"
	case "<=":
		return ">="
	case ">":
		return "<"
	case ">=":
		return "<="
	}
	return op // == and != are symmetric
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}
