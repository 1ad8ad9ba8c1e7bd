package ast

import (
	"errors"
	"fmt"

	"github.com/birdie-ai/qsql/obj"
)

// evaluation errors.
var (
	ErrUnhandledNode         = errors.New("unhandled node type")
	ErrPropertyOutsideObject = errors.New("cannot evaluate object property outside of an object")
)

// UnhandledNodeError is returned by [Evaluate] for a node it does not know.
type UnhandledNodeError struct {
	Type string
}

func (e *UnhandledNodeError) Error() string {
	return fmt.Sprintf("Unhandled node type %s.", e.Type)
}

// Unwrap returns [ErrUnhandledNode].
func (e *UnhandledNodeError) Unwrap() error {
	return ErrUnhandledNode
}

// Evaluate walks the tree rooted at n and returns its plain data form:
//   - [Literal] evaluates to its scalar
//   - [Identifier] evaluates to its string
//   - [Array] evaluates to []any
//   - [Object] evaluates to *[obj.O], keeping the order of its properties.
//     If a key repeats the last value wins.
//
// A [Property] can't be evaluated on its own and yields [ErrPropertyOutsideObject].
func Evaluate(n Node) (any, error) {
	switch n := n.(type) {
	case *Literal:
		return n.Value, nil
	case *Identifier:
		return n.Value, nil
	case *Array:
		arr := make([]any, 0, len(n.Children))
		for _, child := range n.Children {
			v, err := Evaluate(child)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, nil
	case *Object:
		o := &obj.O{}
		for _, prop := range n.Children {
			v, err := Evaluate(prop.Value)
			if err != nil {
				return nil, fmt.Errorf("evaluating property %q: %w", prop.Key.Value, err)
			}
			o.Set(prop.Key.Value, v)
		}
		return o, nil
	case *Property:
		return nil, ErrPropertyOutsideObject
	case nil:
		return nil, &UnhandledNodeError{Type: "nil"}
	}
	return nil, &UnhandledNodeError{Type: n.Type()}
}

// EvaluateObject is [Evaluate] for an [Object] root.
func EvaluateObject(o *Object) (*obj.O, error) {
	v, err := Evaluate(o)
	if err != nil {
		return nil, err
	}
	return v.(*obj.O), nil
}
