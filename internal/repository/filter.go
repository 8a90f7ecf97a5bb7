package repository

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// whereBuilder accumulates positional SQL predicates and their arguments.
type whereBuilder struct {
	clauses []string
	args    []any
}

func (w *whereBuilder) add(format string, value any) {
	w.args = append(w.args, value)
	w.clauses = append(w.clauses, fmt.Sprintf(format, len(w.args)))
}

func (w *whereBuilder) addIn(column string, values []string) {
	if len(values) == 0 {
		return
	}
	placeholders := lo.Map(values, func(v string, _ int) string {
		w.args = append(w.args, v)
		return fmt.Sprintf("$%d", len(w.args))
	})
	w.clauses = append(w.clauses, fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ",")))
}

func (w *whereBuilder) sql() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

func pageClause(limit, offset, defaultLimit int) string {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > 500 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}
	return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
}

func stringsOf[T ~string](values []T) []string {
	return lo.Map(values, func(v T, _ int) string { return string(v) })
}
