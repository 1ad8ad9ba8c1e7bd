package mongodb_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/birdie-ai/qsql"
	"github.com/birdie-ai/qsql/mongodb"
	"github.com/birdie-ai/qsql/query"
	"github.com/google/go-cmp/cmp"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func ExampleFilter() {
	q, err := qsql.ToWhereQuery("id(in(1,2)),owner.name(not(eq('x'))),deletedAt(isNull())")
	if err != nil {
		panic(err)
	}
	filter, err := mongodb.Filter(q)
	if err != nil {
		panic(err)
	}
	fmt.Println(filter)

	// Output: map[deletedAt:map[$eq:<nil>] id:map[$in:[1 2]] owner.name:map[$not:map[$eq:x]]]
}

func TestFilter(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	before := now.AddDate(0, 0, -3)

	type testcase struct {
		name string
		q    query.WhereQuery
		want bson.M
	}

	for _, tc := range []testcase{
		{
			name: "empty",
			q:    query.WhereQuery{},
			want: bson.M{},
		},
		{
			name: "operators",
			q: query.WhereQuery{
				"id":        query.In(1.0, 2.0, 3.0),
				"createdAt": query.Between(before, now),
				"deletedAt": query.Lte(now),
				"name":      query.Eq("folder name 1"),
				"ownerId":   query.Not(query.Eq("1")),
				"size":      query.Gt(10.0),
				"rank":      query.Gte(1.0),
				"score":     query.Lt(0.5),
			},
			want: bson.M{
				"id":        bson.M{"$in": bson.A{1.0, 2.0, 3.0}},
				"createdAt": bson.M{"$gte": before, "$lte": now},
				"deletedAt": bson.M{"$lte": now},
				"name":      bson.M{"$eq": "folder name 1"},
				"ownerId":   bson.M{"$not": bson.M{"$eq": "1"}},
				"size":      bson.M{"$gt": 10.0},
				"rank":      bson.M{"$gte": 1.0},
				"score":     bson.M{"$lt": 0.5},
			},
		},
		{
			name: "isNull",
			q:    query.WhereQuery{"ownerId": query.IsNull()},
			want: bson.M{"ownerId": bson.M{"$eq": nil}},
		},
		{
			name: "nested",
			q: query.WhereQuery{
				"child":  query.WhereQuery{"id": query.In(1.0, 2.0), "name": query.Eq("Steve")},
				"child2": query.WhereQuery{"id": query.Between(1.0, 6.0), "name": query.Not(query.Lt("Steve"))},
			},
			want: bson.M{
				"child.id":    bson.M{"$in": bson.A{1.0, 2.0}},
				"child.name":  bson.M{"$eq": "Steve"},
				"child2.id":   bson.M{"$gte": 1.0, "$lte": 6.0},
				"child2.name": bson.M{"$not": bson.M{"$lt": "Steve"}},
			},
		},
		{
			name: "dotted and nested same path",
			q: query.WhereQuery{
				"a.b":  query.Eq(1.0),
				"a":    query.WhereQuery{"b": query.Gt(5.0)},
				"name": query.Eq("x"),
			},
			want: bson.M{
				"name": bson.M{"$eq": "x"},
				"$and": bson.A{
					bson.M{"a.b": bson.M{"$gt": 5.0}},
					bson.M{"a.b": bson.M{"$eq": 1.0}},
				},
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := mongodb.Filter(tc.q)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(got, tc.want); diff != "" {
				t.Fatal(diff)
			}
		})
	}
}

func TestFilterErrors(t *testing.T) {
	t.Parallel()

	_, err := mongodb.Filter(query.WhereQuery{"a": query.Condition{Op: "like"}})
	if !errors.Is(err, query.ErrUnsupportedOperator) {
		t.Fatalf("got %v; want %v", err, query.ErrUnsupportedOperator)
	}
	_, err = mongodb.Filter(query.WhereQuery{"a": query.WhereQuery{"b": query.WhereQuery{"c": query.IsNull()}}})
	if !errors.Is(err, mongodb.ErrNesting) {
		t.Fatalf("got %v; want %v", err, mongodb.ErrNesting)
	}
}

func TestSort(t *testing.T) {
	t.Parallel()

	got, err := mongodb.Sort(query.OrderQuery{
		{Field: "id", Direction: query.Asc},
		{Field: "createdAt", Direction: query.Desc},
		{Field: "owner", Nested: query.OrderQuery{
			{Field: "email", Direction: query.Asc},
			{Field: "id", Direction: query.Desc},
		}},
		{Field: "name", Direction: query.Desc},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := bson.D{
		{Key: "id", Value: 1},
		{Key: "createdAt", Value: -1},
		{Key: "owner.email", Value: 1},
		{Key: "owner.id", Value: -1},
		{Key: "name", Value: -1},
	}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Fatal(diff)
	}

	_, err = mongodb.Sort(query.OrderQuery{{Field: "owner", Nested: query.OrderQuery{
		{Field: "address", Nested: query.OrderQuery{{Field: "city", Direction: query.Asc}}},
	}}})
	if !errors.Is(err, mongodb.ErrNesting) {
		t.Fatalf("got %v; want %v", err, mongodb.ErrNesting)
	}

	if _, err := mongodb.Sort(query.OrderQuery{{Field: "id", Direction: "up"}}); err == nil {
		t.Fatal("want error for invalid direction")
	}
}

func TestFind(t *testing.T) {
	t.Parallel()

	q, err := qsql.FromQueryString("filter=name(eq('x'))&order=-id&page=3&perPage=10")
	if err != nil {
		t.Fatal(err)
	}
	got, err := mongodb.Find(q)
	if err != nil {
		t.Fatal(err)
	}
	want := bson.D{
		{Key: "filter", Value: bson.M{"name": bson.M{"$eq": "x"}}},
		{Key: "sort", Value: bson.D{{Key: "id", Value: -1}}},
		{Key: "skip", Value: 20},
		{Key: "limit", Value: 10},
	}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Fatal(diff)
	}

	got, err = mongodb.Find(qsql.Query{Page: 2})
	if err != nil {
		t.Fatal(err)
	}
	want = bson.D{{Key: "filter", Value: bson.M{}}, {Key: "sort", Value: bson.D{}}}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Fatal(diff)
	}
}

func TestSearch(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	before := now.AddDate(0, 0, -3)

	path := func(op, p string, kv ...bson.E) bson.D {
		return bson.D{{Key: op, Value: append(bson.D{{Key: "path", Value: p}}, kv...)}}
	}

	type testcase struct {
		name string
		q    query.WhereQuery
		want mongodb.SearchFilter
	}

	for _, tc := range []testcase{
		{
			name: "operators",
			q: query.WhereQuery{
				"id":        query.In(1.0, 2.0, 3.0),
				"createdAt": query.Between(before, now),
				"deletedAt": query.Lte(now),
				"name":      query.Eq("folder name 1"),
				"ownerId":   query.Not(query.Eq("1")),
			},
			want: mongodb.SearchFilter{
				Must: []bson.D{
					path("range", "createdAt", bson.E{Key: "gte", Value: before}, bson.E{Key: "lte", Value: now}),
					path("range", "deletedAt", bson.E{Key: "lte", Value: now}),
					path("in", "id", bson.E{Key: "value", Value: bson.A{1.0, 2.0, 3.0}}),
					path("equals", "name", bson.E{Key: "value", Value: "folder name 1"}),
				},
				MustNot: []bson.D{
					path("equals", "ownerId", bson.E{Key: "value", Value: "1"}),
				},
			},
		},
		{
			name: "isNull",
			q:    query.WhereQuery{"ownerId": query.IsNull()},
			want: mongodb.SearchFilter{
				Must:    []bson.D{},
				MustNot: []bson.D{path("exists", "ownerId")},
			},
		},
		{
			name: "not isNull",
			q:    query.WhereQuery{"ownerId": query.Not(query.IsNull())},
			want: mongodb.SearchFilter{
				Must:    []bson.D{path("exists", "ownerId")},
				MustNot: []bson.D{},
			},
		},
		{
			name: "nested",
			q: query.WhereQuery{
				"child":  query.WhereQuery{"id": query.In(1.0, 2.0), "name": query.Eq("Steve")},
				"child2": query.WhereQuery{"id": query.Between(1.0, 6.0), "name": query.Not(query.Lt("Steve"))},
			},
			want: mongodb.SearchFilter{
				Must: []bson.D{
					path("in", "child.id", bson.E{Key: "value", Value: bson.A{1.0, 2.0}}),
					path("equals", "child.name", bson.E{Key: "value", Value: "Steve"}),
					path("range", "child2.id", bson.E{Key: "gte", Value: 1.0}, bson.E{Key: "lte", Value: 6.0}),
				},
				MustNot: []bson.D{
					path("range", "child2.name", bson.E{Key: "lt", Value: "Steve"}),
				},
			},
		},
		{
			name: "in with strings",
			q:    query.WhereQuery{"name": query.In("one", "two")},
			want: mongodb.SearchFilter{
				Must:    []bson.D{path("text", "name", bson.E{Key: "query", Value: bson.A{"one", "two"}})},
				MustNot: []bson.D{},
			},
		},
		{
			name: "greater than",
			q:    query.WhereQuery{"a": query.Gt(1.0), "b": query.Gte(2.0), "c": query.Lt(3.0)},
			want: mongodb.SearchFilter{
				Must: []bson.D{
					path("range", "a", bson.E{Key: "gt", Value: 1.0}),
					path("range", "b", bson.E{Key: "gte", Value: 2.0}),
					path("range", "c", bson.E{Key: "lt", Value: 3.0}),
				},
				MustNot: []bson.D{},
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := mongodb.Search(tc.q)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(got, tc.want); diff != "" {
				t.Fatal(diff)
			}
		})
	}
}

func TestSearchCompound(t *testing.T) {
	t.Parallel()

	filter, err := mongodb.Search(query.WhereQuery{"name": query.Eq("x"), "deletedAt": query.IsNull()})
	if err != nil {
		t.Fatal(err)
	}
	data, err := bson.MarshalExtJSON(filter.Compound(), false, false)
	if err != nil {
		t.Fatal(err)
	}
	const want = `{"compound":{"must":[{"equals":{"path":"name","value":"x"}}],"mustNot":[{"exists":{"path":"deletedAt"}}]}}`
	if string(data) != want {
		t.Fatalf("got %s; want %s", data, want)
	}
}
