// Package relational translates canonical queries into ORM style find options
// and renders them as SQL.
//
// A where query becomes a [FindOptionsWhere] mapping fields to [FindOperator]
// values, nested queries are kept as nested [FindOptionsWhere] addressing a relation:
//
//	{"owner": {"email": ["eq", "x"]}, "id": ["in", [1, 2]]}
//
// becomes
//
//	FindOptionsWhere{"owner": FindOptionsWhere{"email": Equal("x")}, "id": In(1, 2)}
package relational

import (
	"errors"
	"fmt"

	"github.com/birdie-ai/qsql"
	"github.com/birdie-ai/qsql/query"
)

type (
	// OperatorType is the kind of a [FindOperator].
	OperatorType string

	// FindOperator is a condition on a single column.
	FindOperator struct {
		Type OperatorType
		// Value is the operand of equal, lessThan, lessThanOrEqual, moreThan and moreThanOrEqual.
		Value any
		// Values are the operands of in and between.
		Values []any
		// Child is the negated operator of not.
		Child *FindOperator
	}

	// WhereProperty is the value of a [FindOptionsWhere] field: a [FindOperator]
	// or a nested [FindOptionsWhere].
	WhereProperty interface {
		whereProperty()
	}

	// FindOptionsWhere maps columns, or relations, to their conditions.
	FindOptionsWhere map[string]WhereProperty

	// FindOptionsOrder maps columns to their sort direction, keeping precedence.
	FindOptionsOrder query.OrderQuery

	// FindOptions are the options of a paginated find.
	FindOptions struct {
		Where       FindOptionsWhere
		Order       FindOptionsOrder
		Skip        int
		Take        int
		Relations   map[string]bool
		WithDeleted bool
	}
)

// All operator types.
const (
	OpEqual           OperatorType = "equal"
	OpLessThan        OperatorType = "lessThan"
	OpLessThanOrEqual OperatorType = "lessThanOrEqual"
	OpMoreThan        OperatorType = "moreThan"
	OpMoreThanOrEqual OperatorType = "moreThanOrEqual"
	OpIn              OperatorType = "in"
	OpBetween         OperatorType = "between"
	OpNot             OperatorType = "not"
	OpIsNull          OperatorType = "isNull"
)

// ErrNesting indicates a where query nested more than one level.
var ErrNesting = errors.New("where queries support 1 level of nesting")

// Equal creates an equal operator.
func Equal(v any) FindOperator { return FindOperator{Type: OpEqual, Value: v} }

// LessThan creates a lessThan operator.
func LessThan(v any) FindOperator { return FindOperator{Type: OpLessThan, Value: v} }

// LessThanOrEqual creates a lessThanOrEqual operator.
func LessThanOrEqual(v any) FindOperator { return FindOperator{Type: OpLessThanOrEqual, Value: v} }

// MoreThan creates a moreThan operator.
func MoreThan(v any) FindOperator { return FindOperator{Type: OpMoreThan, Value: v} }

// MoreThanOrEqual creates a moreThanOrEqual operator.
func MoreThanOrEqual(v any) FindOperator { return FindOperator{Type: OpMoreThanOrEqual, Value: v} }

// In creates an in operator.
func In(vs ...any) FindOperator {
	if vs == nil {
		vs = []any{}
	}
	return FindOperator{Type: OpIn, Values: vs}
}

// Between creates a between operator.
func Between(from, to any) FindOperator {
	return FindOperator{Type: OpBetween, Values: []any{from, to}}
}

// Not negates op.
func Not(op FindOperator) FindOperator { return FindOperator{Type: OpNot, Child: &op} }

// IsNull creates an isNull operator.
func IsNull() FindOperator { return FindOperator{Type: OpIsNull} }

// Where returns the find options of q.
func Where(q query.WhereQuery) (FindOptionsWhere, error) {
	return where(q, true)
}

func where(q query.WhereQuery, root bool) (FindOptionsWhere, error) {
	w := make(FindOptionsWhere, len(q))
	for field, p := range q {
		switch p := p.(type) {
		case query.Condition:
			op, err := findOperator(p)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", field, err)
			}
			w[field] = op
		case query.WhereQuery:
			if !root {
				return nil, fmt.Errorf("%s: %w", field, ErrNesting)
			}
			nested, err := where(p, false)
			if err != nil {
				return nil, fmt.Errorf("%s.%w", field, err)
			}
			w[field] = nested
		}
	}
	return w, nil
}

func findOperator(c query.Condition) (FindOperator, error) {
	switch c.Op {
	case query.OpLt:
		return LessThan(c.Value), nil
	case query.OpLte:
		return LessThanOrEqual(c.Value), nil
	case query.OpGt:
		return MoreThan(c.Value), nil
	case query.OpGte:
		return MoreThanOrEqual(c.Value), nil
	case query.OpEq:
		return Equal(c.Value), nil
	case query.OpIn:
		return In(c.Values...), nil
	case query.OpBetween:
		if len(c.Values) != 2 {
			return FindOperator{}, fmt.Errorf(`"between" expects 2 values, got %d`, len(c.Values))
		}
		return Between(c.Values[0], c.Values[1]), nil
	case query.OpNot:
		if c.Operand == nil {
			return FindOperator{}, errors.New(`"not" without operand`)
		}
		child, err := findOperator(*c.Operand)
		if err != nil {
			return FindOperator{}, err
		}
		return Not(child), nil
	case query.OpIsNull:
		return IsNull(), nil
	}
	return FindOperator{}, &query.UnsupportedOperatorError{Name: string(c.Op)}
}

// Order returns the find options of q, which have the same structure.
func Order(q query.OrderQuery) FindOptionsOrder {
	return FindOptionsOrder(q)
}

// Find returns the find options of q. Page is 1-based, pages are
// only applied when PerPage is set.
func Find(q qsql.Query) (FindOptions, error) {
	opts := FindOptions{
		Order:       Order(q.Order),
		Relations:   q.Relations,
		WithDeleted: q.WithDeleted,
	}
	if q.Where != nil {
		w, err := Where(q.Where)
		if err != nil {
			return FindOptions{}, err
		}
		opts.Where = w
	}
	if q.PerPage > 0 {
		opts.Take = q.PerPage
		if q.Page > 1 {
			opts.Skip = (q.Page - 1) * q.PerPage
		}
	}
	return opts, nil
}

func (FindOperator) whereProperty()     {}
func (FindOptionsWhere) whereProperty() {}
