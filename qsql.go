// Package qsql compiles filter and order expressions typed by humans, usually
// on a URL, into canonical where and order queries:
//
//	filter=key1(eq('rice')),key2.child(in(1,2,3)),key3(not(in(true,false))),key4(isNull())
//	order=createdAt,-name
//
// The canonical queries (see package query) are what the mongodb and
// relational packages translate into backend filters.
package qsql

import (
	"github.com/birdie-ai/qsql/ast"
	"github.com/birdie-ai/qsql/filter"
	"github.com/birdie-ai/qsql/order"
	"github.com/birdie-ai/qsql/query"
	"github.com/birdie-ai/qsql/token"
)

// ToWhereQuery compiles a filter expression into a where query.
// Date-time strings become [time.Time] values.
func ToWhereQuery(text string) (query.WhereQuery, error) {
	toks, err := filter.Tokenize(text)
	if err != nil {
		return nil, err
	}
	node, err := filter.Parse(token.NewQueue(toks))
	if err != nil {
		return nil, err
	}
	o, err := ast.EvaluateObject(node)
	if err != nil {
		return nil, err
	}
	return query.ParseWhere(o)
}

// ToOrderQuery compiles an order expression into an order query.
func ToOrderQuery(text string) (query.OrderQuery, error) {
	toks, err := order.Tokenize(text)
	if err != nil {
		return nil, err
	}
	node, err := order.Parse(token.NewQueue(toks))
	if err != nil {
		return nil, err
	}
	o, err := ast.EvaluateObject(node)
	if err != nil {
		return nil, err
	}
	return query.ParseOrder(o)
}
