package order_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/birdie-ai/qsql/ast"
	"github.com/birdie-ai/qsql/order"
	"github.com/birdie-ai/qsql/query"
	"github.com/birdie-ai/qsql/token"
	"github.com/google/go-cmp/cmp"
)

func compile(t *testing.T, text string) (query.OrderQuery, error) {
	t.Helper()

	toks, err := order.Tokenize(text)
	if err != nil {
		return nil, err
	}
	node, err := order.Parse(token.NewQueue(toks))
	if err != nil {
		return nil, err
	}
	v, err := ast.Evaluate(node)
	if err != nil {
		t.Fatal(err)
	}
	return query.ParseOrder(v)
}

func TestTokenize(t *testing.T) {
	t.Parallel()

	got, err := order.Tokenize("key,-key2.child_1")
	if err != nil {
		t.Fatal(err)
	}
	want := []token.Token{
		{Col: 1, Kind: token.Identifier, Raw: "key", Value: "key"},
		{Col: 4, Kind: token.Comma, Raw: ",", Value: ","},
		{Col: 5, Kind: token.Direction, Raw: "-", Value: "-"},
		{Col: 6, Kind: token.Identifier, Raw: "key2.child_1", Value: "key2.child_1"},
	}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Fatal(diff)
	}

	for text, col := range map[string]int{
		"key, key2": 5,
		"key;":      4,
		"1key":      1,
		"+key":      1,
	} {
		_, err := order.Tokenize(text)
		var lexErr *token.LexicalError
		if !errors.As(err, &lexErr) {
			t.Fatalf("%q: got %v; want *token.LexicalError", text, err)
		}
		if lexErr.Col != col {
			t.Errorf("%q: got col %d; want %d", text, lexErr.Col, col)
		}
	}
}

func TestCompile(t *testing.T) {
	t.Parallel()

	asc := func(f string) query.Order { return query.Order{Field: f, Direction: query.Asc} }
	desc := func(f string) query.Order { return query.Order{Field: f, Direction: query.Desc} }

	for _, tc := range []struct {
		text string
		want query.OrderQuery
	}{
		{text: "", want: query.OrderQuery{}},
		{text: "key", want: query.OrderQuery{asc("key")}},
		{text: "-key", want: query.OrderQuery{desc("key")}},
		{text: "key,-key2,key3", want: query.OrderQuery{asc("key"), desc("key2"), asc("key3")}},
		{text: "-key,-key2,-key3", want: query.OrderQuery{desc("key"), desc("key2"), desc("key3")}},
		{text: "-key,-key2,-key3,", want: query.OrderQuery{desc("key"), desc("key2"), desc("key3")}},
		{text: "zeta,alpha", want: query.OrderQuery{asc("zeta"), asc("alpha")}},
		{text: "owner.name", want: query.OrderQuery{asc("owner.name")}},
		{text: "a,-b,-a", want: query.OrderQuery{desc("a"), desc("b")}},
	} {
		got, err := compile(t, tc.text)
		if err != nil {
			t.Fatalf("%q: %v", tc.text, err)
		}
		if diff := cmp.Diff(got, tc.want); diff != "" {
			t.Fatalf("%q: %s", tc.text, diff)
		}
	}
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		text string
		want string
		err  error
	}{
		{
			text: "-",
			want: `Out of bounds exception: Expected "Identifier" before expression end.`,
			err:  token.ErrUnexpectedEnd,
		},
		{
			text: ",key",
			want: `Error at character 1. Expected type "Comma" to be "Identifier"`,
			err:  token.ErrSyntax,
		},
		{
			text: "key,,key2",
			want: `Error at character 5. Expected type "Comma" to be "Identifier"`,
			err:  token.ErrSyntax,
		},
		{
			text: "key-key2",
			want: `Error at character 4. Expected type "Direction" to be "Comma"`,
			err:  token.ErrSyntax,
		},
		{
			text: "--key",
			want: `Error at character 2. Expected type "Direction" to be "Identifier"`,
			err:  token.ErrSyntax,
		},
	} {
		_, err := compile(t, tc.text)
		if !errors.Is(err, tc.err) {
			t.Fatalf("%q: got %v; want %v", tc.text, err, tc.err)
		}
		if err.Error() != tc.want {
			t.Fatalf("%q: got %q; want %q", tc.text, err.Error(), tc.want)
		}
	}
}

func TestEncode(t *testing.T) {
	t.Parallel()

	q := query.OrderQuery{
		{Field: "createdAt", Direction: query.Desc},
		{Field: "owner", Nested: query.OrderQuery{{Field: "name", Direction: query.Asc}}},
		{Field: "id", Direction: query.Asc},
	}
	var buf bytes.Buffer
	if err := order.Encode(&buf, q); err != nil {
		t.Fatal(err)
	}
	const want = "-createdAt,owner.name,id"
	if got := buf.String(); got != want {
		t.Fatalf("got %q; want %q", got, want)
	}

	for _, q := range []query.OrderQuery{
		{{Field: "a b", Direction: query.Asc}},
		{{Field: "", Direction: query.Asc}},
		{{Field: "a", Direction: "up"}},
	} {
		if err := order.Encode(&bytes.Buffer{}, q); err == nil {
			t.Errorf("%v: want error", q)
		}
	}
}
