package parser

import (
	"testing"

	"pagedb/pkg/dberr"
	"pagedb/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCreateTable(t *testing.T) {
	stmt, err := Parse("CREATE TABLE users (id INT PRIMARY KEY, name TEXT NOT NULL, active BOOLEAN)")
	require.NoError(t, err)

	ct, ok := stmt.(*CreateTableStatement)
	require.True(t, ok)
	assert.Equal(t, "users", ct.Table)
	require.Len(t, ct.Columns, 3)

	assert.Equal(t, ColumnDef{Name: "id", Type: types.IntType, PrimaryKey: true}, ct.Columns[0])
	assert.Equal(t, ColumnDef{Name: "name", Type: types.TextType}, ct.Columns[1])
	assert.Equal(t, ColumnDef{Name: "active", Type: types.BoolType, Nullable: true}, ct.Columns[2])
}

func TestParseTypeSynonyms(t *testing.T) {
	stmt, err := Parse("CREATE TABLE t (a INTEGER, b VARCHAR, c BOOL)")
	require.NoError(t, err)
	ct := stmt.(*CreateTableStatement)
	assert.Equal(t, types.IntType, ct.Columns[0].Type)
	assert.Equal(t, types.TextType, ct.Columns[1].Type)
	assert.Equal(t, types.BoolType, ct.Columns[2].Type)
}

func TestParseDropTable(t *testing.T) {
	stmt, err := Parse("DROP TABLE users;")
	require.NoError(t, err)
	assert.Equal(t, &DropTableStatement{Table: "users"}, stmt)
}

func TestParseCreateIndex(t *testing.T) {
	stmt, err := Parse("CREATE INDEX idx_users_name ON users (name)")
	require.NoError(t, err)
	assert.Equal(t, &CreateIndexStatement{Name: "idx_users_name", Table: "users", Column: "name"}, stmt)
}

func TestParseInsert(t *testing.T) {
	stmt, err := Parse("INSERT INTO users (id, name, active) VALUES (1, 'Alice', TRUE), (2, NULL, FALSE)")
	require.NoError(t, err)

	ins, ok := stmt.(*InsertStatement)
	require.True(t, ok)
	assert.Equal(t, "users", ins.Table)
	assert.Equal(t, []string{"id", "name", "active"}, ins.Columns)
	require.Len(t, ins.Rows, 2)

	first := ins.Rows[0]
	assert.Equal(t, int64(1), first[0].Field.(*types.IntField).Value)
	assert.Equal(t, "Alice", first[1].Field.String())
	assert.True(t, first[2].Field.(*types.BoolField).Value)

	second := ins.Rows[1]
	assert.True(t, second[1].Null)
	assert.Nil(t, second[1].Field)
}

func TestParseInsertWithoutColumnList(t *testing.T) {
	stmt, err := Parse("INSERT INTO t VALUES (-5, 'x')")
	require.NoError(t, err)
	ins := stmt.(*InsertStatement)
	assert.Nil(t, ins.Columns)
	assert.Equal(t, int64(-5), ins.Rows[0][0].Field.(*types.IntField).Value)
}

func TestParseNegativeLiterals(t *testing.T) {
	stmt, err := Parse("SELECT * FROM t WHERE balance < -100")
	require.NoError(t, err)
	cmp := stmt.(*SelectStatement).Where.(*ComparisonExpr)
	assert.Equal(t, "<", cmp.Op)
	assert.Equal(t, int64(-100), cmp.Value.Field.(*types.IntField).Value)

	stmt, err = Parse("UPDATE t SET balance = -1 WHERE id = 7")
	require.NoError(t, err)
	upd := stmt.(*UpdateStatement)
	assert.Equal(t, int64(-1), upd.Assignments[0].Value.Field.(*types.IntField).Value)
}

func TestParseSelectStar(t *testing.T) {
	stmt, err := Parse("SELECT * FROM users")
	require.NoError(t, err)
	sel := stmt.(*SelectStatement)
	assert.Equal(t, "users", sel.Table)
	assert.Nil(t, sel.Columns)
	assert.Nil(t, sel.Where)
	assert.Nil(t, sel.Join)
}

func TestParseSelectWithWhere(t *testing.T) {
	stmt, err := Parse("SELECT id, name FROM users WHERE age >= 21 AND name != 'root'")
	require.NoError(t, err)
	sel := stmt.(*SelectStatement)
	assert.Equal(t, []ColumnRef{{Column: "id"}, {Column: "name"}}, sel.Columns)

	and, ok := sel.Where.(*LogicalExpr)
	require.True(t, ok)
	assert.Equal(t, OpAnd, and.Op)

	left := and.Left.(*ComparisonExpr)
	assert.Equal(t, "age", left.Column.Column)
	assert.Equal(t, ">=", left.Op)
	assert.Equal(t, int64(21), left.Value.Field.(*types.IntField).Value)
}

func TestParseAndBindsTighterThanOr(t *testing.T) {
	stmt, err := Parse("SELECT * FROM t WHERE a = 1 OR b = 2 AND c = 3")
	require.NoError(t, err)
	sel := stmt.(*SelectStatement)

	or, ok := sel.Where.(*LogicalExpr)
	require.True(t, ok)
	require.Equal(t, OpOr, or.Op)
	_, leftIsCmp := or.Left.(*ComparisonExpr)
	assert.True(t, leftIsCmp)

	and, ok := or.Right.(*LogicalExpr)
	require.True(t, ok)
	assert.Equal(t, OpAnd, and.Op)
}

func TestParseParenthesesOverridePrecedence(t *testing.T) {
	stmt, err := Parse("SELECT * FROM t WHERE (a = 1 OR b = 2) AND c = 3")
	require.NoError(t, err)
	sel := stmt.(*SelectStatement)

	and, ok := sel.Where.(*LogicalExpr)
	require.True(t, ok)
	require.Equal(t, OpAnd, and.Op)

	or, ok := and.Left.(*LogicalExpr)
	require.True(t, ok)
	assert.Equal(t, OpOr, or.Op)
}

func TestParseSelectWithJoin(t *testing.T) {
	stmt, err := Parse("SELECT * FROM orders JOIN users ON orders.user_id = users.id WHERE users.active = TRUE")
	require.NoError(t, err)
	sel := stmt.(*SelectStatement)

	require.NotNil(t, sel.Join)
	assert.Equal(t, "users", sel.Join.Table)
	assert.Equal(t, ColumnRef{Table: "orders", Column: "user_id"}, sel.Join.Left)
	assert.Equal(t, ColumnRef{Table: "users", Column: "id"}, sel.Join.Right)

	cmp := sel.Where.(*ComparisonExpr)
	assert.Equal(t, ColumnRef{Table: "users", Column: "active"}, cmp.Column)
}

func TestParseUpdate(t *testing.T) {
	stmt, err := Parse("UPDATE users SET name = 'Bob', active = FALSE WHERE id = 7")
	require.NoError(t, err)
	upd := stmt.(*UpdateStatement)

	assert.Equal(t, "users", upd.Table)
	require.Len(t, upd.Assignments, 2)
	assert.Equal(t, "name", upd.Assignments[0].Column)
	assert.Equal(t, "Bob", upd.Assignments[0].Value.Field.String())
	require.NotNil(t, upd.Where)
}

func TestParseDelete(t *testing.T) {
	stmt, err := Parse("DELETE FROM users WHERE active = FALSE")
	require.NoError(t, err)
	del := stmt.(*DeleteStatement)
	assert.Equal(t, "users", del.Table)
	require.NotNil(t, del.Where)

	stmt, err = Parse("DELETE FROM users")
	require.NoError(t, err)
	assert.Nil(t, stmt.(*DeleteStatement).Where)
}

func TestParseSyntaxErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty input", ""},
		{"unknown statement", "VACUUM users"},
		{"missing table name", "SELECT * FROM"},
		{"missing closing paren", "CREATE TABLE t (id INT"},
		{"bad column type", "CREATE TABLE t (id BLOB)"},
		{"bare where", "SELECT * FROM t WHERE"},
		{"trailing garbage", "SELECT * FROM t; SELECT"},
		{"non-equality join", "SELECT * FROM a JOIN b ON a.x < b.y"},
		{"unterminated string", "INSERT INTO t VALUES ('oops)"},
		{"update without set", "UPDATE t name = 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			require.Error(t, err)
			assert.True(t, dberr.Is(err, dberr.CodeSyntaxError), "got %v", err)
		})
	}
}

func TestSyntaxErrorCarriesPosition(t *testing.T) {
	_, err := Parse("SELECT * FROM t WHERE @")
	require.Error(t, err)
	dbe := dberr.As(err)
	require.NotNil(t, dbe)
	assert.Equal(t, 22, dbe.Position)
}
