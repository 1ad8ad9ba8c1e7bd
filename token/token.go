// Package token defines the tokens shared by the filter and order grammars,
// the cursor used to consume them and the errors raised while doing so.
package token

import "strings"

type (
	// Kind is the type of a token. Its string form is used verbatim on error messages.
	Kind string

	// Token is a single lexeme of a filter or order expression.
	Token struct {
		// Col is the 1-based column of the first character of the token.
		Col int
		// Kind is the token type.
		Kind Kind
		// Raw is the exact source slice matched.
		Raw string
		// Value is the decoded value: float64 for [Number], bool for [Boolean]
		// and string for everything else (unquoted for [String]).
		Value any
	}
)

// All token kinds.
const (
	Number           Kind = "Number"
	String           Kind = "String"
	Boolean          Kind = "Boolean"
	Operator         Kind = "Operator"
	Identifier       Kind = "Identifier"
	LeftParenthesis  Kind = "LeftParenthesis"
	RightParenthesis Kind = "RightParenthesis"
	Comma            Kind = "Comma"
	Direction        Kind = "Direction"
)

// Primitives are the kinds allowed as operator values.
var Primitives = []Kind{Number, String, Boolean}

// IsPrimitive returns true if the token is a [Number], [String] or [Boolean].
func (t Token) IsPrimitive() bool {
	return t.Kind == Number || t.Kind == String || t.Kind == Boolean
}

// Str returns the token value as a string.
// Numbers and booleans yield their raw text.
func (t Token) Str() string {
	if s, ok := t.Value.(string); ok {
		return s
	}
	return t.Raw
}

// quoteKinds formats kinds as `"A"`, `"A" or "B"` or `"A", "B", or "C"`.
func quoteKinds(kinds []Kind) string {
	quoted := make([]string, len(kinds))
	for i, k := range kinds {
		quoted[i] = `"` + string(k) + `"`
	}
	switch len(quoted) {
	case 0:
		return `""`
	case 1:
		return quoted[0]
	case 2:
		return quoted[0] + " or " + quoted[1]
	}
	return strings.Join(quoted[:len(quoted)-1], ", ") + ", or " + quoted[len(quoted)-1]
}
