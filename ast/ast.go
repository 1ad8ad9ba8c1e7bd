// Package ast defines the abstract syntax tree produced by the filter and
// order parsers and evaluates it into plain data.
package ast

type (
	// Node is any node of the tree. The set of nodes is closed: only the types
	// of this package implement it.
	Node interface {
		Type() string
		node()
	}

	// Value is a node that can be the value of a [Property] or an element of an [Array].
	// [Identifier] and [Property] are not values.
	Value interface {
		Node
		value()
	}

	// Literal is a scalar: bool, string or float64.
	Literal struct {
		Value any
	}

	// Identifier is a property name.
	Identifier struct {
		Value string
	}

	// Array is an ordered list of values.
	Array struct {
		Children []Value
	}

	// Object is an ordered list of properties.
	Object struct {
		Children []*Property
	}

	// Property is a key/value pair. It only has meaning as a child of an [Object].
	Property struct {
		Key   *Identifier
		Value Value
	}
)

// NewProperty creates a property with the given key.
func NewProperty(key string, value Value) *Property {
	return &Property{Key: &Identifier{Value: key}, Value: value}
}

// Lookup returns the last property with the given key.
func (o *Object) Lookup(key string) (*Property, bool) {
	for i := len(o.Children) - 1; i >= 0; i-- {
		if o.Children[i].Key.Value == key {
			return o.Children[i], true
		}
	}
	return nil, false
}

// Type returns "Literal".
func (*Literal) Type() string { return "Literal" }

// Type returns "Identifier".
func (*Identifier) Type() string { return "Identifier" }

// Type returns "Array".
func (*Array) Type() string { return "Array" }

// Type returns "Object".
func (*Object) Type() string { return "Object" }

// Type returns "Property".
func (*Property) Type() string { return "Property" }

func (*Literal) node()    {}
func (*Identifier) node() {}
func (*Array) node()      {}
func (*Object) node()     {}
func (*Property) node()   {}

func (*Literal) value() {}
func (*Array) value()   {}
func (*Object) value()  {}
