// Package mongodb translates canonical queries into MongoDB filters, sorts and
// Atlas Search compound clauses.
//
// Nested where and order queries address embedded documents: {"owner": {"id": ...}}
// becomes the dotted path "owner.id".
package mongodb

import (
	"errors"
	"fmt"

	"github.com/birdie-ai/qsql"
	"github.com/birdie-ai/qsql/query"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// ErrNesting indicates a query nested more than one level.
var ErrNesting = errors.New("queries support 1 level of nesting")

// Filter returns the find filter of q, eg:
//
//	{"id": ["in", [1, 2]], "owner": {"name": ["not", ["eq", "x"]]}}
//
// becomes
//
//	{"id": {"$in": [1, 2]}, "owner.name": {"$not": {"$eq": "x"}}}
//
// A path given both dotted and nested, as in {"a.b": ..., "a": {"b": ...}},
// has its conditions joined under "$and".
func Filter(q query.WhereQuery) (bson.M, error) {
	var paths []string
	ops := map[string][]bson.M{}
	err := walk(q, func(path string, c query.Condition) error {
		op, err := filterOperator(c)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if _, ok := ops[path]; !ok {
			paths = append(paths, path)
		}
		ops[path] = append(ops[path], op)
		return nil
	})
	if err != nil {
		return nil, err
	}

	filter := bson.M{}
	var and bson.A
	for _, path := range paths {
		if len(ops[path]) == 1 {
			filter[path] = ops[path][0]
			continue
		}
		for _, op := range ops[path] {
			and = append(and, bson.M{path: op})
		}
	}
	if len(and) > 0 {
		filter["$and"] = and
	}
	return filter, nil
}

func filterOperator(c query.Condition) (bson.M, error) {
	switch c.Op {
	case query.OpLt:
		return bson.M{"$lt": c.Value}, nil
	case query.OpLte:
		return bson.M{"$lte": c.Value}, nil
	case query.OpGt:
		return bson.M{"$gt": c.Value}, nil
	case query.OpGte:
		return bson.M{"$gte": c.Value}, nil
	case query.OpEq:
		return bson.M{"$eq": c.Value}, nil
	case query.OpIn:
		return bson.M{"$in": bson.A(c.Values)}, nil
	case query.OpBetween:
		if len(c.Values) != 2 {
			return nil, fmt.Errorf(`"between" expects 2 values, got %d`, len(c.Values))
		}
		return bson.M{"$gte": c.Values[0], "$lte": c.Values[1]}, nil
	case query.OpNot:
		if c.Operand == nil {
			return nil, errors.New(`"not" without operand`)
		}
		inner, err := filterOperator(*c.Operand)
		if err != nil {
			return nil, err
		}
		return bson.M{"$not": inner}, nil
	case query.OpIsNull:
		return bson.M{"$eq": nil}, nil
	}
	return nil, &query.UnsupportedOperatorError{Name: string(c.Op)}
}

// Sort returns the sort document of q, keeping the field precedence:
// "asc" is 1 and "desc" is -1.
func Sort(q query.OrderQuery) (bson.D, error) {
	sort := bson.D{}
	for _, o := range q {
		if o.Nested == nil {
			dir, err := sortDirection(o.Direction)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", o.Field, err)
			}
			sort = append(sort, bson.E{Key: o.Field, Value: dir})
			continue
		}
		for _, child := range o.Nested {
			path := o.Field + "." + child.Field
			if child.Nested != nil {
				return nil, fmt.Errorf("%s: %w", path, ErrNesting)
			}
			dir, err := sortDirection(child.Direction)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			sort = append(sort, bson.E{Key: path, Value: dir})
		}
	}
	return sort, nil
}

// Find returns the find document {filter, sort, skip, limit} of q.
// Skip and limit are only present when q has PerPage set, Page is 1-based.
func Find(q qsql.Query) (bson.D, error) {
	filter, err := Filter(q.Where)
	if err != nil {
		return nil, err
	}
	sort, err := Sort(q.Order)
	if err != nil {
		return nil, err
	}
	doc := bson.D{{Key: "filter", Value: filter}, {Key: "sort", Value: sort}}
	if q.PerPage > 0 {
		skip := 0
		if q.Page > 1 {
			skip = (q.Page - 1) * q.PerPage
		}
		doc = append(doc, bson.E{Key: "skip", Value: skip}, bson.E{Key: "limit", Value: q.PerPage})
	}
	return doc, nil
}

func sortDirection(d query.Direction) (int, error) {
	switch d {
	case query.Asc:
		return 1, nil
	case query.Desc:
		return -1, nil
	}
	return 0, fmt.Errorf("unsupported sort direction %q", d)
}

// walk calls fn for each condition of q with its dotted path, fields sorted by name.
func walk(q query.WhereQuery, fn func(path string, c query.Condition) error) error {
	for _, field := range q.Fields() {
		switch p := q[field].(type) {
		case query.Condition:
			if err := fn(field, p); err != nil {
				return err
			}
		case query.WhereQuery:
			for _, child := range p.Fields() {
				path := field + "." + child
				c, ok := p[child].(query.Condition)
				if !ok {
					return fmt.Errorf("%s: %w", path, ErrNesting)
				}
				if err := fn(path, c); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
