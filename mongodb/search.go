package mongodb

import (
	"errors"
	"fmt"

	"github.com/birdie-ai/qsql/query"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// SearchFilter are the clauses of an Atlas Search compound operator.
type SearchFilter struct {
	Must    []bson.D `bson:"must" json:"must"`
	MustNot []bson.D `bson:"mustNot" json:"mustNot"`
}

// Search returns the Atlas Search clauses of q. Conditions go to Must,
// negated ones to MustNot:
//   - lt, lte, gt, gte and between become "range"
//   - eq becomes "equals"
//   - in becomes "in", or "text" when its values are strings
//   - isNull becomes "exists" in MustNot
func Search(q query.WhereQuery) (SearchFilter, error) {
	filter := SearchFilter{Must: []bson.D{}, MustNot: []bson.D{}}
	err := walk(q, func(path string, c query.Condition) error {
		clause, negated, err := searchClause(path, c)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if negated {
			filter.MustNot = append(filter.MustNot, clause)
		} else {
			filter.Must = append(filter.Must, clause)
		}
		return nil
	})
	if err != nil {
		return SearchFilter{}, err
	}
	return filter, nil
}

// Compound returns the "compound" operator of a $search stage.
func (f SearchFilter) Compound() bson.D {
	return bson.D{{Key: "compound", Value: bson.D{
		{Key: "must", Value: f.Must},
		{Key: "mustNot", Value: f.MustNot},
	}}}
}

// searchClause returns the clause of c and if it must not match.
func searchClause(path string, c query.Condition) (bson.D, bool, error) {
	rangeOf := func(bounds ...bson.E) bson.D {
		return bson.D{{Key: "range", Value: append(bson.D{{Key: "path", Value: path}}, bounds...)}}
	}
	switch c.Op {
	case query.OpLt:
		return rangeOf(bson.E{Key: "lt", Value: c.Value}), false, nil
	case query.OpLte:
		return rangeOf(bson.E{Key: "lte", Value: c.Value}), false, nil
	case query.OpGt:
		return rangeOf(bson.E{Key: "gt", Value: c.Value}), false, nil
	case query.OpGte:
		return rangeOf(bson.E{Key: "gte", Value: c.Value}), false, nil
	case query.OpBetween:
		if len(c.Values) != 2 {
			return nil, false, fmt.Errorf(`"between" expects 2 values, got %d`, len(c.Values))
		}
		return rangeOf(bson.E{Key: "gte", Value: c.Values[0]}, bson.E{Key: "lte", Value: c.Values[1]}), false, nil
	case query.OpEq:
		return bson.D{{Key: "equals", Value: bson.D{{Key: "path", Value: path}, {Key: "value", Value: c.Value}}}}, false, nil
	case query.OpIn:
		if len(c.Values) > 0 {
			if _, ok := c.Values[0].(string); ok {
				return bson.D{{Key: "text", Value: bson.D{{Key: "path", Value: path}, {Key: "query", Value: bson.A(c.Values)}}}}, false, nil
			}
		}
		return bson.D{{Key: "in", Value: bson.D{{Key: "path", Value: path}, {Key: "value", Value: bson.A(c.Values)}}}}, false, nil
	case query.OpIsNull:
		return bson.D{{Key: "exists", Value: bson.D{{Key: "path", Value: path}}}}, true, nil
	case query.OpNot:
		if c.Operand == nil {
			return nil, false, errors.New(`"not" without operand`)
		}
		clause, negated, err := searchClause(path, *c.Operand)
		return clause, !negated, err
	}
	return nil, false, &query.UnsupportedOperatorError{Name: string(c.Op)}
}
