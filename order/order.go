// Package order implements the order expression language:
//
//	createdAt,-name,owner.id
//
// A leading "-" sorts the field descending, fields are ascending otherwise.
// Dotted fields are kept as written. A trailing comma is allowed.
package order

import (
	"fmt"
	"io"
	"strings"

	"github.com/birdie-ai/qsql/ast"
	"github.com/birdie-ai/qsql/query"
	"github.com/birdie-ai/qsql/token"
)

// Tokenize splits an order expression into tokens.
// Blanks aren't part of the language: anything other than "-", "," and
// identifiers fails with a *[token.LexicalError].
func Tokenize(text string) ([]token.Token, error) {
	var toks []token.Token
	for pos := 0; pos < len(text); {
		col := pos + 1
		switch c := text[pos]; {
		case c == '-':
			toks = append(toks, token.Token{Col: col, Kind: token.Direction, Raw: "-", Value: "-"})
			pos++
		case c == ',':
			toks = append(toks, token.Token{Col: col, Kind: token.Comma, Raw: ",", Value: ","})
			pos++
		case isLetter(c):
			end := pos + 1
			for end < len(text) && isIdentChar(text[end]) {
				end++
			}
			raw := text[pos:end]
			toks = append(toks, token.Token{Col: col, Kind: token.Identifier, Raw: raw, Value: raw})
			pos = end
		default:
			return nil, &token.LexicalError{Col: col, Text: text[pos:]}
		}
	}
	return toks, nil
}

// Parse consumes the order tokens from q and returns an object mapping each
// field to "asc" or "desc", in the order given.
func Parse(q *token.Queue) (*ast.Object, error) {
	root := &ast.Object{}
	for q.Len() > 0 {
		dir := query.Asc
		if q.PeekIs(token.Direction) {
			q.Next()
			dir = query.Desc
		}
		ident, err := q.Expect(token.Identifier)
		if err != nil {
			return nil, err
		}
		root.Children = append(root.Children, ast.NewProperty(ident.Str(), &ast.Literal{Value: string(dir)}))
		if q.Len() > 0 {
			if _, err := q.Expect(token.Comma); err != nil {
				return nil, err
			}
		}
	}
	return root, nil
}

// Encode writes q as an order expression. Nested orders become dotted fields.
func Encode(w io.Writer, q query.OrderQuery) error {
	fields, err := encode(nil, "", q)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, strings.Join(fields, ","))
	return err
}

func encode(fields []string, prefix string, q query.OrderQuery) ([]string, error) {
	for _, o := range q {
		name := prefix + o.Field
		if !isIdent(name) {
			return nil, fmt.Errorf("invalid order field %q", name)
		}
		if o.Nested != nil {
			var err error
			fields, err = encode(fields, name+".", o.Nested)
			if err != nil {
				return nil, err
			}
			continue
		}
		switch o.Direction {
		case query.Asc:
			fields = append(fields, name)
		case query.Desc:
			fields = append(fields, "-"+name)
		default:
			return nil, fmt.Errorf("invalid direction %q for order field %q", o.Direction, name)
		}
	}
	return fields, nil
}

func isIdent(s string) bool {
	if s == "" || !isLetter(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentChar(s[i]) {
			return false
		}
	}
	return true
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_' || c == '$' || c == '.'
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
