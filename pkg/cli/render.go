package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"pagedb/pkg/database"
)

// renderResult prints one statement's outcome. Statements without a
// row set (DML, DDL) report the affected count.
func renderResult(w io.Writer, res *database.QueryResult, format string) error {
	if res.Columns == nil {
		fmt.Fprintf(w, "OK, %d row(s) affected (%s)\n", res.Affected, res.Elapsed.Round(time.Microsecond))
		return nil
	}

	switch format {
	case "json":
		return renderJSON(w, res)
	case "csv":
		return renderCSV(w, res)
	default:
		return renderTable(w, res)
	}
}

func renderTable(w io.Writer, res *database.QueryResult) error {
	if len(res.Rows) == 0 {
		fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(res.Columns))
	for i, col := range res.Columns {
		header[i] = col
	}
	t.AppendHeader(header)

	for _, row := range res.Rows {
		cells := make(table.Row, len(row))
		for i, cell := range row {
			cells[i] = cell
		}
		t.AppendRow(cells)
	}
	t.Render()
	fmt.Fprintf(w, "(%d rows)\n", len(res.Rows))
	return nil
}

func renderCSV(w io.Writer, res *database.QueryResult) error {
	fmt.Fprintln(w, strings.Join(res.Columns, ","))
	for _, row := range res.Rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = escapeCSV(cell)
		}
		fmt.Fprintln(w, strings.Join(cells, ","))
	}
	return nil
}

func escapeCSV(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

func renderJSON(w io.Writer, res *database.QueryResult) error {
	out := make([]map[string]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		m := make(map[string]string, len(res.Columns))
		for i, col := range res.Columns {
			m[col] = row[i]
		}
		out = append(out, m)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
