package token

import (
	"errors"
	"fmt"
)

// Sentinel errors. Every typed error of this package unwraps to one of them.
var (
	// ErrLexical indicates the input has a character sequence that matches no token rule.
	ErrLexical = errors.New("lexical error")
	// ErrSyntax indicates a required token was present but of the wrong kind.
	ErrSyntax = errors.New("syntax error")
	// ErrUnexpectedEnd indicates the tokens were exhausted where one was required.
	ErrUnexpectedEnd = errors.New("unexpected end of expression")
)

type (
	// LexicalError is returned by tokenizers when no rule matches at Col.
	LexicalError struct {
		Col  int
		Text string
	}

	// SyntaxError is a positioned error for a token of the wrong kind.
	SyntaxError struct {
		Col      int
		Expected []Kind
		Actual   Kind
		// Msg replaces the default "Expected type" message when set.
		Msg string
	}

	// UnexpectedEndError is returned when a token of the Expected kinds was
	// required but the input ended.
	UnexpectedEndError struct {
		Expected []Kind
	}
)

// NewSyntaxError creates a [SyntaxError] for the given token with a custom message.
func NewSyntaxError(tok Token, format string, args ...any) *SyntaxError {
	return &SyntaxError{
		Col:    tok.Col,
		Actual: tok.Kind,
		Msg:    fmt.Sprintf(format, args...),
	}
}

func (e *LexicalError) Error() string {
	return fmt.Sprintf("invalid syntax at character %d: unexpected %q", e.Col, e.Text)
}

// Unwrap returns [ErrLexical].
func (e *LexicalError) Unwrap() error {
	return ErrLexical
}

func (e *SyntaxError) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = fmt.Sprintf("Expected type %q to be %s", string(e.Actual), quoteKinds(e.Expected))
	}
	return fmt.Sprintf("Error at character %d. %s", e.Col, msg)
}

// Unwrap returns [ErrSyntax].
func (e *SyntaxError) Unwrap() error {
	return ErrSyntax
}

func (e *UnexpectedEndError) Error() string {
	return fmt.Sprintf("Out of bounds exception: Expected %s before expression end.", quoteKinds(e.Expected))
}

// Unwrap returns [ErrUnexpectedEnd].
func (e *UnexpectedEndError) Unwrap() error {
	return ErrUnexpectedEnd
}
