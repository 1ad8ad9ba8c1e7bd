// Package filter implements the filter expression language:
//
//	key1(eq('rice')),key2.child(in(1,2,3)),key3(not(between(1,5))),key4(isNull())
//
// Properties are AND'ed. A key with a single dot addresses a field of a
// nested object, properties sharing the same parent are merged into it.
package filter

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/birdie-ai/qsql/ast"
	"github.com/birdie-ai/qsql/query"
	"github.com/birdie-ai/qsql/token"
)

// ArityError is returned when "between" doesn't get exactly two values.
type ArityError struct {
	Col    int
	Values []any
}

// ErrArity is the sentinel of [ArityError].
var ErrArity = errors.New("invalid number of values")

// Parse consumes the filter tokens from q and returns the object they describe.
// An empty queue yields an empty object.
//
// Errors are a *[token.SyntaxError] for a token of the wrong kind, a
// *[token.UnexpectedEndError] when q ends early and an *[ArityError] for
// "between" with other than two values.
func Parse(q *token.Queue) (*ast.Object, error) {
	root := &ast.Object{}
	for q.Len() > 0 {
		if err := parseProperty(q, root); err != nil {
			return nil, err
		}
		if q.Len() == 0 {
			break
		}
		if _, err := q.Expect(token.Comma); err != nil {
			return nil, err
		}
		if q.Len() == 0 {
			return nil, &token.UnexpectedEndError{Expected: []token.Kind{token.Identifier}}
		}
	}
	return root, nil
}

func parseProperty(q *token.Queue, root *ast.Object) error {
	ident, err := q.Expect(token.Identifier)
	if err != nil {
		return err
	}
	key := ident.Str()
	parent, child, dotted := strings.Cut(key, ".")
	if dotted && strings.Contains(child, ".") {
		return token.NewSyntaxError(ident, "Expected identifier %q to have at most one dot", key)
	}

	value, err := parseCall(q)
	if err != nil {
		return err
	}

	if !dotted {
		root.Children = append(root.Children, ast.NewProperty(key, value))
		return nil
	}
	prop := ast.NewProperty(child, value)
	if existing, ok := root.Lookup(parent); ok {
		if nested, ok := existing.Value.(*ast.Object); ok {
			nested.Children = append(nested.Children, prop)
			return nil
		}
	}
	root.Children = append(root.Children, ast.NewProperty(parent, &ast.Object{Children: []*ast.Property{prop}}))
	return nil
}

// parseCall parses "(op(value))".
func parseCall(q *token.Queue) (ast.Value, error) {
	if _, err := q.Expect(token.LeftParenthesis); err != nil {
		return nil, err
	}
	op, err := q.Expect(token.Operator)
	if err != nil {
		return nil, err
	}
	if _, err := q.Expect(token.LeftParenthesis); err != nil {
		return nil, err
	}
	value, err := parseOperand(q, op)
	if err != nil {
		return nil, err
	}
	if _, err := q.Expect(token.RightParenthesis); err != nil {
		return nil, err
	}
	if _, err := q.Expect(token.RightParenthesis); err != nil {
		return nil, err
	}
	return value, nil
}

// parseOperand parses the arguments of op, up to but not including its closing parenthesis.
func parseOperand(q *token.Queue, op token.Token) (*ast.Array, error) {
	name := op.Str()
	opLiteral := &ast.Literal{Value: name}

	switch query.Operator(name) {
	case query.OpLt, query.OpLte, query.OpGt, query.OpGte, query.OpEq:
		tok, err := q.ExpectPrimitive()
		if err != nil {
			return nil, err
		}
		return &ast.Array{Children: []ast.Value{opLiteral, &ast.Literal{Value: tok.Value}}}, nil

	case query.OpIn, query.OpBetween:
		values, err := parseList(q)
		if err != nil {
			return nil, err
		}
		if name == string(query.OpBetween) && len(values.Children) != 2 {
			return nil, newArityError(op, values)
		}
		return &ast.Array{Children: []ast.Value{opLiteral, values}}, nil

	case query.OpNot:
		inner, err := q.Expect(token.Operator)
		if err != nil {
			return nil, err
		}
		if _, err := q.Expect(token.LeftParenthesis); err != nil {
			return nil, err
		}
		negated, err := parseOperand(q, inner)
		if err != nil {
			return nil, err
		}
		if _, err := q.Expect(token.RightParenthesis); err != nil {
			return nil, err
		}
		return &ast.Array{Children: []ast.Value{opLiteral, negated}}, nil

	case query.OpIsNull:
		return &ast.Array{Children: []ast.Value{opLiteral}}, nil
	}
	return nil, &query.UnsupportedOperatorError{Name: name}
}

// parseList parses one or more comma separated primitives.
func parseList(q *token.Queue) (*ast.Array, error) {
	list := &ast.Array{}
	for {
		tok, err := q.ExpectPrimitive()
		if err != nil {
			return nil, err
		}
		list.Children = append(list.Children, &ast.Literal{Value: tok.Value})
		if !q.PeekIs(token.Comma) {
			return list, nil
		}
		q.Next()
	}
}

func newArityError(op token.Token, values *ast.Array) *ArityError {
	err := &ArityError{Col: op.Col, Values: make([]any, len(values.Children))}
	for i, v := range values.Children {
		err.Values[i] = v.(*ast.Literal).Value
	}
	return err
}

func (e *ArityError) Error() string {
	data, err := json.Marshal(e.Values)
	if err != nil {
		data = fmt.Appendf(nil, "%v", e.Values)
	}
	return fmt.Sprintf(`Error at character %d. Expected values "%s" to have two entries`, e.Col, data)
}

// Unwrap returns [ErrArity].
func (e *ArityError) Unwrap() error {
	return ErrArity
}
