package parser

// TokenType classifies one lexical unit of a SQL statement.
type TokenType int

const (
	SELECT TokenType = iota
	FROM
	WHERE
	JOIN
	ON
	AND
	OR

	INSERT
	INTO
	VALUES
	UPDATE
	SET
	DELETE

	CREATE
	TABLE
	DROP
	INDEX
	PRIMARY
	KEY
	NOT
	NULL
	TRUE
	FALSE

	INT
	TEXT
	BOOLEAN

	NUMBER
	STRING
	IDENTIFIER
	OPERATOR

	COMMA
	SEMICOLON
	LPAREN
	RPAREN
	ASTERISK

	INVALID
	EOF
)

var tokenNames = map[TokenType]string{
	SELECT: "SELECT", FROM: "FROM", WHERE: "WHERE", JOIN: "JOIN", ON: "ON",
	AND: "AND", OR: "OR",
	INSERT: "INSERT", INTO: "INTO", VALUES: "VALUES", UPDATE: "UPDATE",
	SET: "SET", DELETE: "DELETE",
	CREATE: "CREATE", TABLE: "TABLE", DROP: "DROP", INDEX: "INDEX",
	PRIMARY: "PRIMARY", KEY: "KEY", NOT: "NOT", NULL: "NULL",
	TRUE: "TRUE", FALSE: "FALSE",
	INT: "INT", TEXT: "TEXT", BOOLEAN: "BOOLEAN",
	NUMBER: "NUMBER", STRING: "STRING", IDENTIFIER: "IDENTIFIER",
	OPERATOR: "OPERATOR",
	COMMA:    "COMMA", SEMICOLON: "SEMICOLON", LPAREN: "LPAREN",
	RPAREN: "RPAREN", ASTERISK: "ASTERISK",
	INVALID: "INVALID", EOF: "EOF",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// Token is one lexical unit with its byte offset in the input, used for
// error positions.
type Token struct {
	Type     TokenType
	Value    string
	Position int
}
