package parser

import (
	"strconv"
	"strings"

	"pagedb/pkg/dberr"
	"pagedb/pkg/types"
)

// Parser turns one SQL statement into its AST by recursive descent.
// Every error is a SYNTAX_ERROR carrying the byte offset of the
// offending token.
type Parser struct {
	lexer *Lexer
	tok   Token
}

// Parse parses a single SQL statement, with an optional trailing
// semicolon. Trailing garbage after the statement is an error.
func Parse(input string) (Statement, error) {
	p := &Parser{lexer: NewLexer(input)}
	p.advance()

	var stmt Statement
	var err error
	switch p.tok.Type {
	case CREATE:
		stmt, err = p.parseCreate()
	case DROP:
		stmt, err = p.parseDropTable()
	case INSERT:
		stmt, err = p.parseInsert()
	case SELECT:
		stmt, err = p.parseSelect()
	case UPDATE:
		stmt, err = p.parseUpdate()
	case DELETE:
		stmt, err = p.parseDelete()
	default:
		return nil, dberr.Syntax(p.tok.Position, "a SQL statement", p.describe())
	}
	if err != nil {
		return nil, err
	}

	if p.tok.Type == SEMICOLON {
		p.advance()
	}
	if p.tok.Type != EOF {
		return nil, dberr.Syntax(p.tok.Position, "end of statement", p.describe())
	}
	return stmt, nil
}

func (p *Parser) advance() {
	p.tok = p.lexer.NextToken()
}

// describe renders the current token for error messages.
func (p *Parser) describe() string {
	switch p.tok.Type {
	case EOF:
		return "end of input"
	case STRING:
		return "'" + p.tok.Value + "'"
	default:
		return p.tok.Value
	}
}

func (p *Parser) expect(tt TokenType) (Token, error) {
	if p.tok.Type != tt {
		return Token{}, dberr.Syntax(p.tok.Position, tt.String(), p.describe())
	}
	tok := p.tok
	p.advance()
	return tok, nil
}

func (p *Parser) expectIdentifier(what string) (string, error) {
	if p.tok.Type != IDENTIFIER {
		return "", dberr.Syntax(p.tok.Position, what, p.describe())
	}
	name := p.tok.Value
	p.advance()
	return name, nil
}

func (p *Parser) parseCreate() (Statement, error) {
	p.advance() // CREATE
	switch p.tok.Type {
	case TABLE:
		return p.parseCreateTable()
	case INDEX:
		return p.parseCreateIndex()
	default:
		return nil, dberr.Syntax(p.tok.Position, "TABLE or INDEX", p.describe())
	}
}

func (p *Parser) parseCreateTable() (Statement, error) {
	p.advance() // TABLE
	name, err := p.expectIdentifier("table name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}

	stmt := &CreateTableStatement{Table: name}
	for {
		col, err := p.parseColumnDef()
		if err != nil {
			return nil, err
		}
		stmt.Columns = append(stmt.Columns, *col)

		if p.tok.Type == COMMA {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseColumnDef() (*ColumnDef, error) {
	name, err := p.expectIdentifier("column name")
	if err != nil {
		return nil, err
	}

	if p.tok.Type != INT && p.tok.Type != TEXT && p.tok.Type != BOOLEAN {
		return nil, dberr.Syntax(p.tok.Position, "a column type", p.describe())
	}
	kind, _ := types.TypeFromName(p.tok.Value)
	p.advance()

	col := &ColumnDef{Name: name, Type: kind, Nullable: true}
	for {
		switch p.tok.Type {
		case PRIMARY:
			p.advance()
			if _, err := p.expect(KEY); err != nil {
				return nil, err
			}
			col.PrimaryKey = true
			col.Nullable = false
		case NOT:
			p.advance()
			if _, err := p.expect(NULL); err != nil {
				return nil, err
			}
			col.Nullable = false
		case NULL:
			p.advance()
			if !col.PrimaryKey {
				col.Nullable = true
			}
		default:
			return col, nil
		}
	}
}

func (p *Parser) parseCreateIndex() (Statement, error) {
	p.advance() // INDEX
	name, err := p.expectIdentifier("index name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(ON); err != nil {
		return nil, err
	}
	table, err := p.expectIdentifier("table name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	column, err := p.expectIdentifier("column name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	return &CreateIndexStatement{Name: name, Table: table, Column: column}, nil
}

func (p *Parser) parseDropTable() (Statement, error) {
	p.advance() // DROP
	if _, err := p.expect(TABLE); err != nil {
		return nil, err
	}
	name, err := p.expectIdentifier("table name")
	if err != nil {
		return nil, err
	}
	return &DropTableStatement{Table: name}, nil
}

func (p *Parser) parseInsert() (Statement, error) {
	p.advance() // INSERT
	if _, err := p.expect(INTO); err != nil {
		return nil, err
	}
	table, err := p.expectIdentifier("table name")
	if err != nil {
		return nil, err
	}

	stmt := &InsertStatement{Table: table}
	if p.tok.Type == LPAREN {
		p.advance()
		for {
			col, err := p.expectIdentifier("column name")
			if err != nil {
				return nil, err
			}
			stmt.Columns = append(stmt.Columns, col)
			if p.tok.Type != COMMA {
				break
			}
			p.advance()
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
	}

	if _, err := p.expect(VALUES); err != nil {
		return nil, err
	}
	for {
		row, err := p.parseValueRow()
		if err != nil {
			return nil, err
		}
		stmt.Rows = append(stmt.Rows, row)
		if p.tok.Type != COMMA {
			break
		}
		p.advance()
	}
	return stmt, nil
}

func (p *Parser) parseValueRow() ([]Value, error) {
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	var row []Value
	for {
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		row = append(row, v)
		if p.tok.Type != COMMA {
			break
		}
		p.advance()
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	return row, nil
}

// parseValue reads one literal: a number, quoted string, TRUE, FALSE or
// NULL.
func (p *Parser) parseValue() (Value, error) {
	switch p.tok.Type {
	case NUMBER:
		n, err := strconv.ParseInt(p.tok.Value, 10, 64)
		if err != nil {
			return Value{}, dberr.Syntax(p.tok.Position, "a 64-bit integer", p.tok.Value)
		}
		p.advance()
		return Value{Field: types.NewIntField(n)}, nil
	case STRING:
		s := p.tok.Value
		if len(s) > types.TextMaxSize {
			return Value{}, dberr.Syntax(p.tok.Position,
				"a string of at most "+strconv.Itoa(types.TextMaxSize)+" bytes", "'"+s[:16]+"...'")
		}
		p.advance()
		return Value{Field: types.NewTextField(s)}, nil
	case TRUE:
		p.advance()
		return Value{Field: types.NewBoolField(true)}, nil
	case FALSE:
		p.advance()
		return Value{Field: types.NewBoolField(false)}, nil
	case NULL:
		p.advance()
		return Value{Null: true}, nil
	default:
		return Value{}, dberr.Syntax(p.tok.Position, "a literal value", p.describe())
	}
}

func (p *Parser) parseSelect() (Statement, error) {
	p.advance() // SELECT
	stmt := &SelectStatement{}

	if p.tok.Type == ASTERISK {
		p.advance()
	} else {
		for {
			ref, err := p.parseColumnRef()
			if err != nil {
				return nil, err
			}
			stmt.Columns = append(stmt.Columns, ref)
			if p.tok.Type != COMMA {
				break
			}
			p.advance()
		}
	}

	if _, err := p.expect(FROM); err != nil {
		return nil, err
	}
	table, err := p.expectIdentifier("table name")
	if err != nil {
		return nil, err
	}
	stmt.Table = table

	if p.tok.Type == JOIN {
		join, err := p.parseJoin()
		if err != nil {
			return nil, err
		}
		stmt.Join = join
	}

	where, err := p.parseOptionalWhere()
	if err != nil {
		return nil, err
	}
	stmt.Where = where
	return stmt, nil
}

func (p *Parser) parseJoin() (*JoinClause, error) {
	p.advance() // JOIN
	table, err := p.expectIdentifier("table name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(ON); err != nil {
		return nil, err
	}

	left, err := p.parseColumnRef()
	if err != nil {
		return nil, err
	}
	op, err := p.expect(OPERATOR)
	if err != nil {
		return nil, err
	}
	if op.Value != "=" && op.Value != "==" {
		return nil, dberr.Syntax(op.Position, "=", op.Value)
	}
	right, err := p.parseColumnRef()
	if err != nil {
		return nil, err
	}
	return &JoinClause{Table: table, Left: left, Right: right}, nil
}

func (p *Parser) parseUpdate() (Statement, error) {
	p.advance() // UPDATE
	table, err := p.expectIdentifier("table name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(SET); err != nil {
		return nil, err
	}

	stmt := &UpdateStatement{Table: table}
	for {
		col, err := p.expectIdentifier("column name")
		if err != nil {
			return nil, err
		}
		op, err := p.expect(OPERATOR)
		if err != nil {
			return nil, err
		}
		if op.Value != "=" {
			return nil, dberr.Syntax(op.Position, "=", op.Value)
		}
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		stmt.Assignments = append(stmt.Assignments, Assignment{Column: col, Value: v})
		if p.tok.Type != COMMA {
			break
		}
		p.advance()
	}

	where, err := p.parseOptionalWhere()
	if err != nil {
		return nil, err
	}
	stmt.Where = where
	return stmt, nil
}

func (p *Parser) parseDelete() (Statement, error) {
	p.advance() // DELETE
	if _, err := p.expect(FROM); err != nil {
		return nil, err
	}
	table, err := p.expectIdentifier("table name")
	if err != nil {
		return nil, err
	}

	where, err := p.parseOptionalWhere()
	if err != nil {
		return nil, err
	}
	return &DeleteStatement{Table: table, Where: where}, nil
}

func (p *Parser) parseOptionalWhere() (Expr, error) {
	if p.tok.Type != WHERE {
		return nil, nil
	}
	p.advance()
	return p.parseOrExpr()
}

// parseOrExpr parses OR chains; AND binds tighter, so each operand is
// an AND chain.
func (p *Parser) parseOrExpr() (Expr, error) {
	left, err := p.parseAndExpr()
	if err != nil {
		return nil, err
	}
	for p.tok.Type == OR {
		p.advance()
		right, err := p.parseAndExpr()
		if err != nil {
			return nil, err
		}
		left = &LogicalExpr{Op: OpOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAndExpr() (Expr, error) {
	left, err := p.parsePredicate()
	if err != nil {
		return nil, err
	}
	for p.tok.Type == AND {
		p.advance()
		right, err := p.parsePredicate()
		if err != nil {
			return nil, err
		}
		left = &LogicalExpr{Op: OpAnd, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parsePredicate() (Expr, error) {
	if p.tok.Type == LPAREN {
		p.advance()
		inner, err := p.parseOrExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		return inner, nil
	}

	col, err := p.parseColumnRef()
	if err != nil {
		return nil, err
	}
	op, err := p.expect(OPERATOR)
	if err != nil {
		return nil, err
	}
	if _, ok := types.PredicateFromOperator(op.Value); !ok {
		return nil, dberr.Syntax(op.Position, "a comparison operator", op.Value)
	}
	v, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	return &ComparisonExpr{Column: col, Op: op.Value, Value: v}, nil
}

// parseColumnRef reads a column name, optionally table-qualified. The
// lexer folds "t.c" into one identifier.
func (p *Parser) parseColumnRef() (ColumnRef, error) {
	name, err := p.expectIdentifier("column name")
	if err != nil {
		return ColumnRef{}, err
	}
	if table, column, ok := strings.Cut(name, "."); ok {
		if table == "" || column == "" || strings.Contains(column, ".") {
			return ColumnRef{}, dberr.Syntax(p.tok.Position, "table.column", name)
		}
		return ColumnRef{Table: table, Column: column}, nil
	}
	return ColumnRef{Column: name}, nil
}
