package query

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokOp     // < > <= >= == !=
	tokAnd    // &
	tokOr     // |
	tokLParen // (
	tokRParen // )
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// lex tokenises the query string. Anything it does not recognise is a
// validation error; there is no pass-through of raw input.
func lex(s string) ([]token, *ValidationError) {
	var toks []token
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			toks = append(toks, token{tokLParen, "(", i})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, ")", i})
			i++
		case c == '&':
			toks = append(toks, token{tokAnd, "&", i})
			i++
		case c == '|':
			toks = append(toks, token{tokOr, "|", i})
			i++
		case c == '<' || c == '>':
			op := string(c)
			if i+1 < len(s) && s[i+1] == '=' {
				op += "="
			}
			toks = append(toks, token{tokOp, op, i})
			i += len(op)
		case c == '=' || c == '!':
			if i+1 >= len(s) || s[i+1] != '=' {
				return nil, &ValidationError{Msg: fmt.Sprintf("unexpected %q, did you mean %q?", string(c), string(c)+"="), Pos: i}
			}
			toks = append(toks, token{tokOp, string(c) + "=", i})
			i += 2
		case c == '"' || c == '\'':
			end := strings.IndexByte(s[i+1:], c)
			if end < 0 {
				return nil, &ValidationError{Msg: "unterminated string literal", Pos: i}
			}
			toks = append(toks, token{tokString, s[i+1 : i+1+end], i})
			i += end + 2
		case c >= '0' && c <= '9' || c == '-' || c == '.':
			start := i
			if c == '-' {
				i++
			}
			for i < len(s) && (s[i] >= '0' && s[i] <= '9' || s[i] == '.') {
				i++
			}
			if i == start || (i == start+1 && c == '-') {
				return nil, &ValidationError{Msg: fmt.Sprintf("unexpected character %q", string(c)), Pos: start}
			}
			toks = append(toks, token{tokNumber, s[start:i], start})
		case c == '_' || unicode.IsLetter(rune(c)):
			start := i
			for i < len(s) && (s[i] == '_' || s[i] >= '0' && s[i] <= '9' || unicode.IsLetter(rune(s[i]))) {
				i++
			}
			toks = append(toks, token{tokIdent, s[start:i], start})
		default:
			return nil, &ValidationError{Msg: fmt.Sprintf("unexpected character %q", string(c)), Pos: i}
		}
	}
	toks = append(toks, token{tokEOF, "", len(s)})
	return toks, nil
}
