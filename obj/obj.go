// Package obj provides an insertion-ordered dynamic object.
// It is what evaluated query objects are made of: unlike a map[string]any it
// remembers the order keys were written in, which matters for sort clauses.
package obj

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"maps"
	"reflect"
	"slices"
)

// O is an insertion-ordered object. The zero value is ready to use.
// Methods reading an O are safe to call on a nil *O.
type O struct {
	keys []string
	vals map[string]any
}

// ErrNotObject indicates a JSON document is not an object.
var ErrNotObject = errors.New("JSON value is not an object")

// New creates an [O] with the given key/value pairs, which must alternate
// string keys and values. It panics otherwise.
func New(kv ...any) *O {
	if len(kv)%2 != 0 {
		panic("obj.New: odd number of arguments")
	}
	o := &O{}
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("obj.New: key %v is %T, not string", kv[i], kv[i]))
		}
		o.Set(key, kv[i+1])
	}
	return o
}

// FromMap creates an [O] from m with keys in lexical order.
func FromMap(m map[string]any) *O {
	o := &O{}
	for _, k := range slices.Sorted(maps.Keys(m)) {
		o.Set(k, m[k])
	}
	return o
}

// Set sets key to value. A key that already exists keeps its position.
func (o *O) Set(key string, value any) {
	if o.vals == nil {
		o.vals = map[string]any{}
	}
	if _, ok := o.vals[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = value
}

// Get returns the value of key.
func (o *O) Get(key string) (any, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.vals[key]
	return v, ok
}

// Len returns the number of keys.
func (o *O) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Keys returns the keys in insertion order.
func (o *O) Keys() []string {
	if o == nil {
		return nil
	}
	return slices.Clone(o.keys)
}

// All iterates over key/value pairs in insertion order.
func (o *O) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		if o == nil {
			return
		}
		for _, k := range o.keys {
			if !yield(k, o.vals[k]) {
				return
			}
		}
	}
}

// Equal reports whether o and other have the same keys, in the same order, with deeply equal values.
func (o *O) Equal(other *O) bool {
	if !slices.Equal(o.Keys(), other.Keys()) {
		return false
	}
	for k, v := range o.All() {
		w, _ := other.Get(k)
		if !reflect.DeepEqual(v, w) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the object keeping key order.
func (o *O) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(o.vals[k])
		if err != nil {
			return nil, fmt.Errorf("encoding key %q: %w", k, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping key order.
// Nested objects become *O, arrays []any and numbers float64.
func (o *O) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	v, err := decode(dec)
	if err != nil {
		return err
	}
	decoded, ok := v.(*O)
	if !ok {
		return fmt.Errorf("%w: got %T", ErrNotObject, v)
	}
	*o = *decoded
	return nil
}

// Unmarshal decodes data into an ordered value: *O, []any, string, float64, bool or nil.
func Unmarshal(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	v, err := decode(dec)
	if err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after JSON value at offset %d", dec.InputOffset())
	}
	return v, nil
}

func decode(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch delim {
	case '{':
		o := &O{}
		for dec.More() {
			keytok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keytok.(string)
			if !ok {
				return nil, fmt.Errorf("object key %v is %T", keytok, keytok)
			}
			v, err := decode(dec)
			if err != nil {
				return nil, err
			}
			o.Set(key, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return o, nil
	case '[':
		arr := []any{}
		for dec.More() {
			v, err := decode(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return arr, nil
	}
	return nil, fmt.Errorf("unexpected delimiter %v", delim)
}
