// Package query defines the canonical where and order queries, validates
// untyped data against their shape and coerces ISO-8601 strings into dates.
//
// A where query maps field names to an operator tuple or to a nested where
// query (a single level of nesting):
//
//	{"name": ["eq", "rice"], "owner": {"id": ["in", [1, 2]]}, "deletedAt": ["isNull"]}
//
// An order query maps field names to "asc", "desc" or a nested order query:
//
//	{"createdAt": "desc", "owner": {"name": "asc"}}
package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/birdie-ai/qsql/obj"
)

type (
	// Operator is the name of a filter operator.
	Operator string

	// Predicate is the value of a [WhereQuery] field: a [Condition] or a nested [WhereQuery].
	Predicate interface {
		predicate()
	}

	// WhereQuery maps field names to predicates. Fields are implicitly AND'ed.
	WhereQuery map[string]Predicate

	// Condition is an operator tuple like ["eq", 1], ["in", [1, 2]],
	// ["not", ["eq", 1]] or ["isNull"].
	// Values are string, float64, bool or [time.Time].
	Condition struct {
		Op Operator
		// Value is the operand of single value operators (lt, lte, gt, gte, eq).
		Value any
		// Values are the operands of "in" and "between" (exactly two for "between").
		Values []any
		// Operand is the negated condition of "not".
		Operand *Condition
	}

	// UnsupportedOperatorError indicates an operator outside of the known set.
	UnsupportedOperatorError struct {
		Name string
	}
)

// All operators.
const (
	OpLt      Operator = "lt"
	OpLte     Operator = "lte"
	OpGt      Operator = "gt"
	OpGte     Operator = "gte"
	OpEq      Operator = "eq"
	OpIn      Operator = "in"
	OpBetween Operator = "between"
	OpNot     Operator = "not"
	OpIsNull  Operator = "isNull"
)

// ErrUnsupportedOperator is the sentinel of [UnsupportedOperatorError].
var ErrUnsupportedOperator = errors.New("unsupported operator")

// Lt creates a "lt" condition.
func Lt(v any) Condition { return Condition{Op: OpLt, Value: v} }

// Lte creates a "lte" condition.
func Lte(v any) Condition { return Condition{Op: OpLte, Value: v} }

// Gt creates a "gt" condition.
func Gt(v any) Condition { return Condition{Op: OpGt, Value: v} }

// Gte creates a "gte" condition.
func Gte(v any) Condition { return Condition{Op: OpGte, Value: v} }

// Eq creates a "eq" condition.
func Eq(v any) Condition { return Condition{Op: OpEq, Value: v} }

// In creates a "in" condition.
func In(vs ...any) Condition {
	if vs == nil {
		vs = []any{}
	}
	return Condition{Op: OpIn, Values: vs}
}

// Between creates a "between" condition.
func Between(from, to any) Condition { return Condition{Op: OpBetween, Values: []any{from, to}} }

// Not negates c.
func Not(c Condition) Condition { return Condition{Op: OpNot, Operand: &c} }

// IsNull creates a "isNull" condition.
func IsNull() Condition { return Condition{Op: OpIsNull} }

// IsSingleValue returns true for operators taking exactly one value.
func (op Operator) IsSingleValue() bool {
	switch op {
	case OpLt, OpLte, OpGt, OpGte, OpEq:
		return true
	}
	return false
}

// Valid returns true if op is a known operator.
func (op Operator) Valid() bool {
	switch op {
	case OpIn, OpBetween, OpNot, OpIsNull:
		return true
	}
	return op.IsSingleValue()
}

// Tuple returns the plain form of the condition, eg: []any{"in", []any{1, 2}}.
func (c Condition) Tuple() []any {
	switch {
	case c.Op == OpIsNull:
		return []any{string(c.Op)}
	case c.Op == OpNot && c.Operand != nil:
		return []any{string(c.Op), c.Operand.Tuple()}
	case c.Op == OpIn || c.Op == OpBetween:
		vals := c.Values
		if vals == nil {
			vals = []any{}
		}
		return []any{string(c.Op), vals}
	}
	return []any{string(c.Op), c.Value}
}

// MarshalJSON encodes the condition as its tuple.
func (c Condition) MarshalJSON() ([]byte, error) {
	if !c.Op.Valid() {
		return nil, &UnsupportedOperatorError{Name: string(c.Op)}
	}
	return json.Marshal(c.Tuple())
}

// Fields returns the field names sorted.
func (q WhereQuery) Fields() []string {
	return slices.Sorted(maps.Keys(q))
}

// UnmarshalJSON decodes and validates a where query with [ParseWhere].
func (q *WhereQuery) UnmarshalJSON(data []byte) error {
	v, err := obj.Unmarshal(data)
	if err != nil {
		return err
	}
	parsed, err := ParseWhere(v)
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}

func (e *UnsupportedOperatorError) Error() string {
	return fmt.Sprintf("Unsupported operator %q", e.Name)
}

// Unwrap returns [ErrUnsupportedOperator].
func (e *UnsupportedOperatorError) Unwrap() error {
	return ErrUnsupportedOperator
}

func (Condition) predicate()  {}
func (WhereQuery) predicate() {}
