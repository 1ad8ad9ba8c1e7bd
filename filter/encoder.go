package filter

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/birdie-ai/qsql/query"
	"github.com/birdie-ai/qsql/token"
)

// ErrUnencodable indicates a where query that has no filter expression form.
var ErrUnencodable = errors.New("query can't be encoded as a filter expression")

// Encode writes q as a filter expression, fields sorted by name.
// Dates are written as quoted RFC 3339 strings, which normalization turns back into dates.
//
// Strings with a quote or a line break, field names that aren't identifiers,
// empty "in" lists and queries nested more than once can't be expressed and
// fail with [ErrUnencodable].
func Encode(w io.Writer, q query.WhereQuery) error {
	var props []string
	for _, field := range q.Fields() {
		if !isIdent(field) {
			return fmt.Errorf("%w: invalid field %q", ErrUnencodable, field)
		}
		switch p := q[field].(type) {
		case query.Condition:
			call, err := encodeCall(p)
			if err != nil {
				return fmt.Errorf("encoding %s: %w", field, err)
			}
			props = append(props, field+call)
		case query.WhereQuery:
			for _, child := range p.Fields() {
				if !isIdent(child) {
					return fmt.Errorf("%w: invalid field %q", ErrUnencodable, field+"."+child)
				}
				c, ok := p[child].(query.Condition)
				if !ok {
					return fmt.Errorf("%w: %s.%s is nested more than once", ErrUnencodable, field, child)
				}
				call, err := encodeCall(c)
				if err != nil {
					return fmt.Errorf("encoding %s.%s: %w", field, child, err)
				}
				props = append(props, field+"."+child+call)
			}
		default:
			return fmt.Errorf("%w: unexpected predicate %T for %s", ErrUnencodable, p, field)
		}
	}
	_, err := io.WriteString(w, strings.Join(props, ","))
	return err
}

func encodeCall(c query.Condition) (string, error) {
	operand, err := encodeOperand(c)
	if err != nil {
		return "", err
	}
	return "(" + operand + ")", nil
}

// encodeOperand encodes c as "op(values)".
func encodeOperand(c query.Condition) (string, error) {
	switch c.Op {
	case query.OpIsNull:
		return "isNull()", nil
	case query.OpNot:
		if c.Operand == nil {
			return "", fmt.Errorf(`%w: "not" without operand`, ErrUnencodable)
		}
		inner, err := encodeOperand(*c.Operand)
		if err != nil {
			return "", err
		}
		return "not(" + inner + ")", nil
	case query.OpIn, query.OpBetween:
		if len(c.Values) == 0 {
			return "", fmt.Errorf("%w: %q without values", ErrUnencodable, c.Op)
		}
		vals := make([]string, len(c.Values))
		for i, v := range c.Values {
			s, err := encodeValue(v)
			if err != nil {
				return "", err
			}
			vals[i] = s
		}
		return string(c.Op) + "(" + strings.Join(vals, ",") + ")", nil
	}
	if !c.Op.IsSingleValue() {
		return "", &query.UnsupportedOperatorError{Name: string(c.Op)}
	}
	v, err := encodeValue(c.Value)
	if err != nil {
		return "", err
	}
	return string(c.Op) + "(" + v + ")", nil
}

func encodeValue(v any) (string, error) {
	switch v := v.(type) {
	case string:
		if strings.ContainsAny(v, "'\n") {
			return "", fmt.Errorf("%w: string %q has a quote or line break", ErrUnencodable, v)
		}
		return "'" + v + "'", nil
	case bool:
		return strconv.FormatBool(v), nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return "", fmt.Errorf("%w: number %v", ErrUnencodable, v)
		}
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	case time.Time:
		return "'" + v.Format(time.RFC3339Nano) + "'", nil
	}
	return "", fmt.Errorf("%w: value %v of type %T", ErrUnencodable, v, v)
}

// isIdent reports if s lexes as a single undotted identifier. Keywords don't.
func isIdent(s string) bool {
	return s != "" && lexWord(s) == len(s) && wordToken(s).Kind == token.Identifier
}
