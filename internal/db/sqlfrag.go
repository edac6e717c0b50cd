package db

import (
	"fmt"
	"strings"
)

func sqlCond(column string, pos int) string {
	return fmt.Sprintf(" AND %s = $%d", column, pos)
}

func joinAnd(conditions []string) string {
	// conditions already carry a leading " AND "; strip it from the first.
	joined := strings.Join(conditions, "")
	return strings.TrimPrefix(joined, " AND ")
}

func sqlLimit(pos int) string {
	return fmt.Sprintf(" LIMIT $%d", pos)
}

func sqlOffset(pos int) string {
	return fmt.Sprintf(" OFFSET $%d", pos)
}
