package parser

import (
	"strings"
	"unicode"
)

// keywords maps uppercase keyword spellings to token types. Type
// keywords carry their synonyms.
var keywords = map[string]TokenType{
	"SELECT": SELECT,
	"FROM":   FROM,
	"WHERE":  WHERE,
	"JOIN":   JOIN,
	"ON":     ON,
	"AND":    AND,
	"OR":     OR,

	"INSERT": INSERT,
	"INTO":   INTO,
	"VALUES": VALUES,
	"UPDATE": UPDATE,
	"SET":    SET,
	"DELETE": DELETE,

	"CREATE":  CREATE,
	"TABLE":   TABLE,
	"DROP":    DROP,
	"INDEX":   INDEX,
	"PRIMARY": PRIMARY,
	"KEY":     KEY,
	"NOT":     NOT,
	"NULL":    NULL,
	"TRUE":    TRUE,
	"FALSE":   FALSE,

	"INT":     INT,
	"INTEGER": INT,
	"TEXT":    TEXT,
	"VARCHAR": TEXT,
	"STRING":  TEXT,
	"BOOLEAN": BOOLEAN,
	"BOOL":    BOOLEAN,
}

var singleCharTokens = map[byte]TokenType{
	',': COMMA,
	';': SEMICOLON,
	'(': LPAREN,
	')': RPAREN,
	'*': ASTERISK,
}

// Lexer breaks a SQL string into tokens. Keyword matching is
// case-insensitive, but the input is kept as written so string
// literals preserve their case.
type Lexer struct {
	input  string
	pos    int
	length int
}

// NewLexer creates a Lexer over the given SQL input.
func NewLexer(input string) *Lexer {
	return &Lexer{
		input:  input,
		length: len(input),
	}
}

// NextToken scans and returns the next token, an EOF token once the
// input is exhausted. Unrecognized characters yield INVALID tokens;
// rejecting them is the parser's job.
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	if l.pos >= l.length {
		return Token{Type: EOF, Position: l.pos}
	}

	start := l.pos
	ch := l.input[l.pos]

	if tt, ok := singleCharTokens[ch]; ok {
		l.pos++
		return Token{Type: tt, Value: string(ch), Position: start}
	}

	switch {
	case isOperatorChar(ch):
		return l.readOperator(start)
	case ch == '\'' || ch == '"':
		return l.readString(start)
	case unicode.IsDigit(rune(ch)):
		return l.readNumber(start)
	case ch == '-' && l.pos+1 < l.length && unicode.IsDigit(rune(l.input[l.pos+1])):
		// readNumber slices from start, so the sign is already included.
		l.pos++
		return l.readNumber(start)
	case unicode.IsLetter(rune(ch)) || ch == '_':
		return l.readIdentifier(start)
	default:
		l.pos++
		return Token{Type: INVALID, Value: string(ch), Position: start}
	}
}

func isOperatorChar(ch byte) bool {
	return ch == '=' || ch == '<' || ch == '>' || ch == '!'
}

func (l *Lexer) skipWhitespace() {
	for l.pos < l.length && unicode.IsSpace(rune(l.input[l.pos])) {
		l.pos++
	}
}

func (l *Lexer) readOperator(start int) Token {
	for l.pos < l.length && isOperatorChar(l.input[l.pos]) {
		l.pos++
	}
	return Token{Type: OPERATOR, Value: l.input[start:l.pos], Position: start}
}

// readString reads a quoted literal, consuming the closing quote. The
// quote character itself is not part of the value.
func (l *Lexer) readString(start int) Token {
	quote := l.input[l.pos]
	l.pos++

	valueStart := l.pos
	for l.pos < l.length && l.input[l.pos] != quote {
		l.pos++
	}
	value := l.input[valueStart:l.pos]

	if l.pos >= l.length {
		// Unterminated literal; the parser reports the position.
		return Token{Type: INVALID, Value: value, Position: start}
	}
	l.pos++
	return Token{Type: STRING, Value: value, Position: start}
}

func (l *Lexer) readNumber(start int) Token {
	for l.pos < l.length && unicode.IsDigit(rune(l.input[l.pos])) {
		l.pos++
	}
	return Token{Type: NUMBER, Value: l.input[start:l.pos], Position: start}
}

func (l *Lexer) readIdentifier(start int) Token {
	for l.pos < l.length {
		ch := l.input[l.pos]
		if !unicode.IsLetter(rune(ch)) && !unicode.IsDigit(rune(ch)) && ch != '_' && ch != '.' {
			break
		}
		l.pos++
	}
	value := l.input[start:l.pos]

	if tt, ok := keywords[strings.ToUpper(value)]; ok {
		return Token{Type: tt, Value: strings.ToUpper(value), Position: start}
	}
	return Token{Type: IDENTIFIER, Value: value, Position: start}
}
