package parser

import (
	"pagedb/pkg/types"
)

// Statement is the closed set of parsed SQL statements. The executor
// switches over the concrete types.
type Statement interface {
	stmt()
}

// ColumnDef is one column in a CREATE TABLE statement. Columns are
// nullable unless marked NOT NULL or PRIMARY KEY.
type ColumnDef struct {
	Name       string
	Type       types.Type
	Nullable   bool
	PrimaryKey bool
}

// CreateTableStatement is CREATE TABLE name (col type [constraints], ...).
type CreateTableStatement struct {
	Table   string
	Columns []ColumnDef
}

// DropTableStatement is DROP TABLE name.
type DropTableStatement struct {
	Table string
}

// CreateIndexStatement is CREATE INDEX name ON table (column).
type CreateIndexStatement struct {
	Name   string
	Table  string
	Column string
}

// Value is one literal in an INSERT row, UPDATE assignment, or
// comparison. Field is nil when the literal is NULL.
type Value struct {
	Field types.Field
	Null  bool
}

// InsertStatement is INSERT INTO table [(columns)] VALUES (...), (...).
// Columns is nil when the statement targets every column in declaration
// order.
type InsertStatement struct {
	Table   string
	Columns []string
	Rows    [][]Value
}

// ColumnRef names a column, optionally qualified with its table.
type ColumnRef struct {
	Table  string
	Column string
}

func (c ColumnRef) String() string {
	if c.Table == "" {
		return c.Column
	}
	return c.Table + "." + c.Column
}

// JoinClause is JOIN table ON left = right. Equality is the only join
// predicate.
type JoinClause struct {
	Table string
	Left  ColumnRef
	Right ColumnRef
}

// SelectStatement is SELECT columns FROM table [JOIN ...] [WHERE ...].
// Columns is nil for SELECT *.
type SelectStatement struct {
	Table   string
	Columns []ColumnRef
	Join    *JoinClause
	Where   Expr
}

// Assignment is one column = literal pair in UPDATE ... SET.
type Assignment struct {
	Column string
	Value  Value
}

// UpdateStatement is UPDATE table SET assignments [WHERE ...].
type UpdateStatement struct {
	Table       string
	Assignments []Assignment
	Where       Expr
}

// DeleteStatement is DELETE FROM table [WHERE ...].
type DeleteStatement struct {
	Table string
	Where Expr
}

func (*CreateTableStatement) stmt() {}
func (*DropTableStatement) stmt()   {}
func (*CreateIndexStatement) stmt() {}
func (*InsertStatement) stmt()      {}
func (*SelectStatement) stmt()      {}
func (*UpdateStatement) stmt()      {}
func (*DeleteStatement) stmt()      {}

// Expr is a WHERE predicate tree: comparisons combined with AND/OR,
// with parentheses already resolved into the tree shape.
type Expr interface {
	expr()
}

// ComparisonExpr compares one column against a literal with =, !=, <,
// <=, > or >=.
type ComparisonExpr struct {
	Column ColumnRef
	Op     string
	Value  Value
}

// LogicalOp joins two predicate subtrees.
type LogicalOp int

const (
	OpAnd LogicalOp = iota
	OpOr
)

// LogicalExpr is Left AND/OR Right.
type LogicalExpr struct {
	Op    LogicalOp
	Left  Expr
	Right Expr
}

func (*ComparisonExpr) expr() {}
func (*LogicalExpr) expr()    {}
