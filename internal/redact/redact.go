package redact

import "strings"

// Mask is the fixed token that replaces every sensitive value.
const Mask = "***"

// Redactor masks values of configured columns in result sets. Matching is
// case-insensitive on the column name.
type Redactor struct {
	fields map[string]struct{}
}

func New(fields []string) *Redactor {
	set := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		field = strings.ToLower(strings.TrimSpace(field))
		if field == "" {
			continue
		}
		set[field] = struct{}{}
	}
	return &Redactor{fields: set}
}

func (r *Redactor) Sensitive(column string) bool {
	_, ok := r.fields[strings.ToLower(strings.TrimSpace(column))]
	return ok
}

// Rows returns a copy of rows with every sensitive column's value replaced
// by Mask, plus the number of masked cells. The input is never mutated;
// when no column matches the input slice is returned as-is.
func (r *Redactor) Rows(columns []string, rows [][]any) ([][]any, int) {
	if len(r.fields) == 0 || len(rows) == 0 {
		return rows, 0
	}

	sensitive := make([]int, 0, len(columns))
	for i, column := range columns {
		if r.Sensitive(column) {
			sensitive = append(sensitive, i)
		}
	}
	if len(sensitive) == 0 {
		return rows, 0
	}

	masked := 0
	out := make([][]any, len(rows))
	for i, row := range rows {
		copied := make([]any, len(row))
		copy(copied, row)
		for _, idx := range sensitive {
			if idx < len(copied) {
				copied[idx] = Mask
				masked++
			}
		}
		out[i] = copied
	}
	return out, masked
}
