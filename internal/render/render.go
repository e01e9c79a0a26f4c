package render

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Table writes a result set as a bordered terminal table with a row count
// footer. An empty result set renders as "(0 rows)" alone.
func Table(w io.Writer, columns []string, rows [][]any) {
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	headerRow := make(table.Row, len(columns))
	for i, column := range columns {
		headerRow[i] = column
	}
	t.AppendHeader(headerRow)

	for _, row := range rows {
		tableRow := make(table.Row, len(columns))
		for i := range columns {
			if i < len(row) {
				tableRow[i] = formatValue(row[i])
			} else {
				tableRow[i] = ""
			}
		}
		t.AppendRow(tableRow)
	}

	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(rows))
}

func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v)
}
