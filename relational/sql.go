package relational

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/birdie-ai/qsql/query"
)

// SQL renders w as a boolean SQL expression with "?" placeholders and its
// arguments. Conditions are AND'ed with columns sorted by name, columns of a
// nested where are qualified by the relation name: "owner"."email" = ?.
// An empty w renders as an empty string.
func (w FindOptionsWhere) SQL() (string, []any, error) {
	var (
		clauses []string
		args    []any
	)
	err := w.render("", func(clause string, clauseArgs ...any) {
		clauses = append(clauses, clause)
		args = append(args, clauseArgs...)
	})
	if err != nil {
		return "", nil, err
	}
	return strings.Join(clauses, " AND "), args, nil
}

func (w FindOptionsWhere) render(relation string, emit func(string, ...any)) error {
	for _, field := range slices.Sorted(maps.Keys(w)) {
		switch p := w[field].(type) {
		case FindOperator:
			column := quoteIdent(field)
			if relation != "" {
				column = quoteIdent(relation) + "." + column
			}
			clause, args, err := p.sql(column)
			if err != nil {
				return fmt.Errorf("%s: %w", field, err)
			}
			emit(clause, args...)
		case FindOptionsWhere:
			if relation != "" {
				return fmt.Errorf("%s.%s: %w", relation, field, ErrNesting)
			}
			if err := p.render(field, emit); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%s: unexpected where property %T", field, p)
		}
	}
	return nil
}

func (op FindOperator) sql(column string) (string, []any, error) {
	switch op.Type {
	case OpEqual:
		return column + " = ?", []any{op.Value}, nil
	case OpLessThan:
		return column + " < ?", []any{op.Value}, nil
	case OpLessThanOrEqual:
		return column + " <= ?", []any{op.Value}, nil
	case OpMoreThan:
		return column + " > ?", []any{op.Value}, nil
	case OpMoreThanOrEqual:
		return column + " >= ?", []any{op.Value}, nil
	case OpIn:
		if len(op.Values) == 0 {
			return "0 = 1", nil, nil
		}
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(op.Values)), ", ")
		return column + " IN (" + marks + ")", slices.Clone(op.Values), nil
	case OpBetween:
		if len(op.Values) != 2 {
			return "", nil, fmt.Errorf("between expects 2 values, got %d", len(op.Values))
		}
		return column + " BETWEEN ? AND ?", slices.Clone(op.Values), nil
	case OpIsNull:
		return column + " IS NULL", nil, nil
	case OpNot:
		if op.Child == nil {
			return "", nil, fmt.Errorf("not without operand")
		}
		clause, args, err := op.Child.sql(column)
		if err != nil {
			return "", nil, err
		}
		return "NOT (" + clause + ")", args, nil
	}
	return "", nil, fmt.Errorf("unsupported operator type %q", op.Type)
}

// SQL renders o as the expression list of an ORDER BY clause, eg:
// "createdAt" DESC, "owner"."name" ASC. Dotted fields, as produced by the
// order DSL, are qualified the same way as nested ones.
func (o FindOptionsOrder) SQL() (string, error) {
	var terms []string
	for _, order := range o {
		if order.Nested == nil {
			term, err := orderTerm(quotePath(order.Field), order.Direction)
			if err != nil {
				return "", fmt.Errorf("%s: %w", order.Field, err)
			}
			terms = append(terms, term)
			continue
		}
		for _, child := range order.Nested {
			if child.Nested != nil {
				return "", fmt.Errorf("%s.%s: order queries support 1 level of nesting", order.Field, child.Field)
			}
			term, err := orderTerm(quoteIdent(order.Field)+"."+quoteIdent(child.Field), child.Direction)
			if err != nil {
				return "", fmt.Errorf("%s.%s: %w", order.Field, child.Field, err)
			}
			terms = append(terms, term)
		}
	}
	return strings.Join(terms, ", "), nil
}

// OrderBySQL is [FindOptionsOrder.SQL] for an order query.
func OrderBySQL(q query.OrderQuery) (string, error) {
	return FindOptionsOrder(q).SQL()
}

func orderTerm(column string, dir query.Direction) (string, error) {
	switch dir {
	case query.Asc:
		return column + " ASC", nil
	case query.Desc:
		return column + " DESC", nil
	}
	return "", fmt.Errorf("unsupported sort direction %q", dir)
}

// SQL renders a SELECT of all columns of table with the options applied.
// Relations are not joined: a nested where or order must name a table
// already in scope.
func (opts FindOptions) SQL(table string) (string, []any, error) {
	var b strings.Builder
	b.WriteString("SELECT * FROM ")
	b.WriteString(quoteIdent(table))

	where, args, err := opts.Where.SQL()
	if err != nil {
		return "", nil, err
	}
	if where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(where)
	}
	orderBy, err := opts.Order.SQL()
	if err != nil {
		return "", nil, err
	}
	if orderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(orderBy)
	}
	if opts.Take > 0 {
		b.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, opts.Take, opts.Skip)
	}
	return b.String(), args, nil
}

func quotePath(path string) string {
	segments := strings.Split(path, ".")
	for i, s := range segments {
		segments[i] = quoteIdent(s)
	}
	return strings.Join(segments, ".")
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
