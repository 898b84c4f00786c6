package postgres

import (
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/fastygo/crm-analytics/repository"
)

// textColumns renders a select list with every column cast to text so that
// timestamps and numerics reach the engine in their stored representation.
func textColumns(columns []string) string {
	cast := make([]string, len(columns))
	for i, c := range columns {
		cast[i] = c + "::text"
	}
	return strings.Join(cast, ", ")
}

func collect[T any](rows pgx.Rows, scan func(repository.RowScanner) (T, error)) ([]T, error) {
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}
