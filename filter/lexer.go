package filter

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/birdie-ai/qsql/token"
)

// Tokenize splits a filter expression into tokens. Spaces and tabs between
// tokens are discarded. Any character sequence matching no token rule fails
// with a *[token.LexicalError].
func Tokenize(text string) ([]token.Token, error) {
	var (
		toks []token.Token
		col  = 1
		in   = text
	)
	for len(in) > 0 {
		if in[0] == ' ' || in[0] == '\t' {
			in = in[1:]
			col++
			continue
		}
		tok, size, ok := lexToken(in)
		if !ok {
			return nil, &token.LexicalError{Col: col, Text: in}
		}
		tok.Col = col
		toks = append(toks, tok)
		col += utf8.RuneCountInString(in[:size])
		in = in[size:]
	}
	return toks, nil
}

// lexToken matches the token at the start of in, trying rules in precedence
// order: number, string, word (boolean, operator or identifier), structural.
func lexToken(in string) (token.Token, int, bool) {
	if n := lexNumber(in); n > 0 {
		raw := in[:n]
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return token.Token{}, 0, false
		}
		return token.Token{Kind: token.Number, Raw: raw, Value: f}, n, true
	}
	if in[0] == '\'' {
		end := strings.IndexAny(in[1:], "'\n")
		if end < 0 || in[1+end] != '\'' {
			return token.Token{}, 0, false
		}
		raw := in[:end+2]
		return token.Token{Kind: token.String, Raw: raw, Value: raw[1 : len(raw)-1]}, len(raw), true
	}
	if n := lexDottedWord(in); n > 0 {
		raw := in[:n]
		return wordToken(raw), n, true
	}
	switch in[0] {
	case '(':
		return token.Token{Kind: token.LeftParenthesis, Raw: "(", Value: "("}, 1, true
	case ')':
		return token.Token{Kind: token.RightParenthesis, Raw: ")", Value: ")"}, 1, true
	case ',':
		return token.Token{Kind: token.Comma, Raw: ",", Value: ","}, 1, true
	}
	return token.Token{}, 0, false
}

func wordToken(raw string) token.Token {
	switch raw {
	case "true":
		return token.Token{Kind: token.Boolean, Raw: raw, Value: true}
	case "false":
		return token.Token{Kind: token.Boolean, Raw: raw, Value: false}
	case "lt", "lte", "gt", "gte", "eq", "in", "between", "not", "isNull":
		return token.Token{Kind: token.Operator, Raw: raw, Value: raw}
	}
	return token.Token{Kind: token.Identifier, Raw: raw, Value: raw}
}

// lexNumber returns the length of [-+]?([0-9]*\.[0-9]+|[0-9]+) at the start of in.
func lexNumber(in string) int {
	pos := 0
	if pos < len(in) && (in[pos] == '-' || in[pos] == '+') {
		pos++
	}
	intDigits := countDigits(in[pos:])
	pos += intDigits
	if pos+1 < len(in) && in[pos] == '.' && isDigit(in[pos+1]) {
		return pos + 1 + countDigits(in[pos+1:])
	}
	if intDigits == 0 {
		return 0
	}
	return pos
}

// lexDottedWord returns the length of a word ([A-Za-z][\w$]*) followed by any
// number of dot separated words at the start of in. A trailing dot is not consumed.
func lexDottedWord(in string) int {
	n := lexWord(in)
	if n == 0 {
		return 0
	}
	for n < len(in) && in[n] == '.' {
		next := lexWord(in[n+1:])
		if next == 0 {
			break
		}
		n += 1 + next
	}
	return n
}

func lexWord(in string) int {
	if len(in) == 0 || !isLetter(in[0]) {
		return 0
	}
	n := 1
	for n < len(in) && (isLetter(in[n]) || isDigit(in[n]) || in[n] == '_' || in[n] == '$') {
		n++
	}
	return n
}

func countDigits(in string) int {
	n := 0
	for n < len(in) && isDigit(in[n]) {
		n++
	}
	return n
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
