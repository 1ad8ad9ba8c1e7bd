package token

import "slices"

// Queue is a cursor over a token sequence consumed from the front.
// Parsing advances the cursor, so a Queue serves exactly one parse
// and must not be shared between concurrent parses.
type Queue struct {
	tokens []Token
	pos    int
}

// NewQueue creates a [Queue] over tokens. The slice is not modified.
func NewQueue(tokens []Token) *Queue {
	return &Queue{tokens: tokens}
}

// Len returns how many tokens are left.
func (q *Queue) Len() int {
	return len(q.tokens) - q.pos
}

// Peek returns the next token without consuming it.
func (q *Queue) Peek() (Token, bool) {
	if q.Len() == 0 {
		return Token{}, false
	}
	return q.tokens[q.pos], true
}

// PeekIs returns true if the next token has the given kind.
func (q *Queue) PeekIs(kind Kind) bool {
	tok, ok := q.Peek()
	return ok && tok.Kind == kind
}

// Next consumes the next token.
func (q *Queue) Next() (Token, bool) {
	tok, ok := q.Peek()
	if ok {
		q.pos++
	}
	return tok, ok
}

// Expect consumes the next token and checks it has one of the given kinds.
// It returns an [*UnexpectedEndError] if there are no tokens left and a
// [*SyntaxError] if the token has a different kind.
func (q *Queue) Expect(kinds ...Kind) (Token, error) {
	tok, ok := q.Next()
	if !ok {
		return Token{}, &UnexpectedEndError{Expected: kinds}
	}
	if !slices.Contains(kinds, tok.Kind) {
		return Token{}, &SyntaxError{Col: tok.Col, Expected: kinds, Actual: tok.Kind}
	}
	return tok, nil
}

// ExpectPrimitive is Expect with the [Primitives] kinds.
func (q *Queue) ExpectPrimitive() (Token, error) {
	return q.Expect(Primitives...)
}
