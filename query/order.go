package query

import (
	"encoding/json"

	"github.com/birdie-ai/qsql/obj"
)

type (
	// Direction is a sort direction.
	Direction string

	// Order is a single field of an [OrderQuery].
	// Either Direction or Nested is set.
	Order struct {
		Field     string
		Direction Direction
		Nested    OrderQuery
	}

	// OrderQuery is an ordered list of sort fields. The first field takes precedence.
	// It encodes to JSON as an object keeping the field order.
	OrderQuery []Order
)

// Sort directions.
const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Get returns the order of the given field.
func (q OrderQuery) Get(field string) (Order, bool) {
	for _, o := range q {
		if o.Field == field {
			return o, true
		}
	}
	return Order{}, false
}

// Object returns the plain form of the query.
func (q OrderQuery) Object() *obj.O {
	o := &obj.O{}
	for _, order := range q {
		if order.Nested != nil {
			o.Set(order.Field, order.Nested.Object())
			continue
		}
		o.Set(order.Field, string(order.Direction))
	}
	return o
}

// MarshalJSON encodes the query as a JSON object keeping the field order.
func (q OrderQuery) MarshalJSON() ([]byte, error) {
	return json.Marshal(q.Object())
}

// UnmarshalJSON decodes and validates an order query with [ParseOrder], keeping field order.
func (q *OrderQuery) UnmarshalJSON(data []byte) error {
	v, err := obj.Unmarshal(data)
	if err != nil {
		return err
	}
	parsed, err := ParseOrder(v)
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}
