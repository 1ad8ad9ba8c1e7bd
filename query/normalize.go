package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/birdie-ai/qsql/obj"
)

type (
	// Result is the outcome of a non-failing parse ([SafeParseWhere], [SafeParseOrder]).
	// If Success is false Error has the details and Data is the zero value.
	Result[T any] struct {
		Success bool
		Data    T
		Error   *SchemaError
	}

	// SchemaError is returned when data doesn't have the shape of a where or order query.
	SchemaError struct {
		// Query is "where" or "order".
		Query  string
		Issues []Issue
	}

	// Issue is a single shape violation.
	Issue struct {
		// Path to the offending value, like "owner.id[1]". Empty for the root.
		Path    string
		Message string
	}
)

// ErrSchema is the sentinel of [SchemaError].
var ErrSchema = errors.New("schema validation failed")

// ParseWhere validates that data has the shape of a [WhereQuery] and returns it
// with ISO-8601 date-time strings converted to [time.Time].
//
// Objects may be given as map[string]any or *[obj.O], tuples as any slice.
// Values may be strings, booleans, any Go number (converted to float64) or [time.Time].
// On failure the error is a *[SchemaError].
func ParseWhere(data any) (WhereQuery, error) {
	res := SafeParseWhere(data)
	if !res.Success {
		return nil, res.Error
	}
	return res.Data, nil
}

// SafeParseWhere is like [ParseWhere] but reports failure on the returned [Result].
func SafeParseWhere(data any) Result[WhereQuery] {
	v := validator{}
	q := v.whereQuery(data, "", true)
	if len(v.issues) > 0 {
		return Result[WhereQuery]{Error: &SchemaError{Query: "where", Issues: v.issues}}
	}
	coerceDates(q)
	return Result[WhereQuery]{Success: true, Data: q}
}

// ParseOrder validates that data has the shape of an [OrderQuery].
// Field order is kept when data is an *[obj.O]; a map[string]any yields fields sorted by name.
// On failure the error is a *[SchemaError].
func ParseOrder(data any) (OrderQuery, error) {
	res := SafeParseOrder(data)
	if !res.Success {
		return nil, res.Error
	}
	return res.Data, nil
}

// SafeParseOrder is like [ParseOrder] but reports failure on the returned [Result].
func SafeParseOrder(data any) Result[OrderQuery] {
	v := validator{}
	q := v.orderQuery(data, "", true)
	if len(v.issues) > 0 {
		return Result[OrderQuery]{Error: &SchemaError{Query: "order", Issues: v.issues}}
	}
	return Result[OrderQuery]{Success: true, Data: q}
}

func (e *SchemaError) Error() string {
	msgs := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		if issue.Path == "" {
			msgs[i] = issue.Message
			continue
		}
		msgs[i] = issue.Path + ": " + issue.Message
	}
	return fmt.Sprintf("invalid %s query: %s", e.Query, strings.Join(msgs, "; "))
}

// Unwrap returns [ErrSchema].
func (e *SchemaError) Unwrap() error {
	return ErrSchema
}

type (
	validator struct {
		issues []Issue
	}

	entry struct {
		key string
		val any
	}
)

func (v *validator) fail(path, format string, args ...any) {
	v.issues = append(v.issues, Issue{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) whereQuery(data any, path string, root bool) WhereQuery {
	entries, ok := entriesOf(data)
	if !ok {
		v.fail(path, "expected object, got %s", typeName(data))
		return nil
	}
	q := make(WhereQuery, len(entries))
	for _, e := range entries {
		p := join(path, e.key)
		if tuple, ok := sliceOf(e.val); ok {
			if c, ok := v.condition(tuple, p, true); ok {
				q[e.key] = c
			}
			continue
		}
		if _, isObj := entriesOf(e.val); isObj && root {
			q[e.key] = v.whereQuery(e.val, p, false)
			continue
		}
		if root {
			v.fail(p, "expected operator tuple or nested query, got %s", typeName(e.val))
			continue
		}
		v.fail(p, "expected operator tuple, got %s", typeName(e.val))
	}
	return q
}

func (v *validator) condition(tuple []any, path string, allowNot bool) (Condition, bool) {
	if len(tuple) == 0 {
		v.fail(path, "expected operator tuple, got empty array")
		return Condition{}, false
	}
	name, ok := tuple[0].(string)
	if !ok {
		v.fail(path+"[0]", "expected operator name, got %s", typeName(tuple[0]))
		return Condition{}, false
	}
	op := Operator(name)
	if !op.Valid() {
		v.fail(path+"[0]", "unsupported operator %q", name)
		return Condition{}, false
	}
	want := 2
	if op == OpIsNull {
		want = 1
	}
	if len(tuple) != want {
		v.fail(path, "operator %q expects a tuple of %d entries, got %d", name, want, len(tuple))
		return Condition{}, false
	}

	c := Condition{Op: op}
	valuePath := path + "[1]"
	switch op {
	case OpIsNull:
	case OpNot:
		if !allowNot {
			v.fail(path, `"not" can't be nested`)
			return Condition{}, false
		}
		inner, ok := sliceOf(tuple[1])
		if !ok {
			v.fail(valuePath, "expected operator tuple, got %s", typeName(tuple[1]))
			return Condition{}, false
		}
		operand, ok := v.condition(inner, valuePath, false)
		if !ok {
			return Condition{}, false
		}
		c.Operand = &operand
	case OpIn, OpBetween:
		vals, ok := sliceOf(tuple[1])
		if !ok {
			v.fail(valuePath, "operator %q expects an array of values, got %s", name, typeName(tuple[1]))
			return Condition{}, false
		}
		if op == OpBetween && len(vals) != 2 {
			v.fail(valuePath, `operator "between" expects 2 values, got %d`, len(vals))
			return Condition{}, false
		}
		c.Values = make([]any, len(vals))
		valid := true
		for i, val := range vals {
			c.Values[i], ok = v.value(val, fmt.Sprintf("%s[%d]", valuePath, i))
			valid = valid && ok
		}
		if !valid {
			return Condition{}, false
		}
	default:
		c.Value, ok = v.value(tuple[1], valuePath)
		if !ok {
			return Condition{}, false
		}
	}
	return c, true
}

func (v *validator) value(val any, path string) (any, bool) {
	switch val := val.(type) {
	case string, bool, time.Time:
		return val, true
	case float64:
		return val, true
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			v.fail(path, "invalid number %q", val.String())
			return nil, false
		}
		return f, true
	}
	rv := reflect.ValueOf(val)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32:
		return rv.Float(), true
	}
	v.fail(path, "expected string, number, boolean or date, got %s", typeName(val))
	return nil, false
}

func (v *validator) orderQuery(data any, path string, root bool) OrderQuery {
	entries, ok := entriesOf(data)
	if !ok {
		v.fail(path, "expected object, got %s", typeName(data))
		return nil
	}
	q := make(OrderQuery, 0, len(entries))
	for _, e := range entries {
		p := join(path, e.key)
		switch val := e.val.(type) {
		case string:
			dir := Direction(val)
			if dir != Asc && dir != Desc {
				v.fail(p, `expected "asc" or "desc", got %q`, val)
				continue
			}
			q = append(q, Order{Field: e.key, Direction: dir})
			continue
		case Direction:
			if val != Asc && val != Desc {
				v.fail(p, `expected "asc" or "desc", got %q`, string(val))
				continue
			}
			q = append(q, Order{Field: e.key, Direction: val})
			continue
		}
		if _, isObj := entriesOf(e.val); isObj && root {
			q = append(q, Order{Field: e.key, Nested: v.orderQuery(e.val, p, false)})
			continue
		}
		if root {
			v.fail(p, `expected "asc", "desc" or nested query, got %s`, typeName(e.val))
			continue
		}
		v.fail(p, `expected "asc" or "desc", got %s`, typeName(e.val))
	}
	return q
}

// entriesOf returns the key/values of an object, in order for *obj.O and
// sorted by key for maps.
func entriesOf(data any) ([]entry, bool) {
	switch o := data.(type) {
	case *obj.O:
		if o == nil {
			return nil, false
		}
		entries := make([]entry, 0, o.Len())
		for k, val := range o.All() {
			entries = append(entries, entry{k, val})
		}
		return entries, true
	case map[string]any:
		if o == nil {
			return nil, false
		}
		entries := make([]entry, 0, len(o))
		for _, k := range slices.Sorted(maps.Keys(o)) {
			entries = append(entries, entry{k, o[k]})
		}
		return entries, true
	}
	return nil, false
}

func sliceOf(data any) ([]any, bool) {
	if s, ok := data.([]any); ok {
		return s, s != nil
	}
	rv := reflect.ValueOf(data)
	if rv.Kind() != reflect.Slice || rv.IsNil() || rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	s := make([]any, rv.Len())
	for i := range s {
		s[i] = rv.Index(i).Interface()
	}
	return s, true
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case *obj.O, map[string]any:
		return "object"
	case []any:
		return "array"
	}
	return fmt.Sprintf("%T", v)
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
