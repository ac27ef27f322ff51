package persistence

import (
	"strings"

	"gorm.io/gorm/clause"
)

// sortColumns whitelists the sort keys a listing accepts, mapped to their
// columns. Keys never reach SQL unless they are listed here.
type sortColumns map[string]string

var invoiceSortColumns = sortColumns{
	"id":        "id",
	"issued_at": "issued_at",
	"number":    "number",
	"status":    "status",
	"total":     "total",
}

// orderBy sorts by key, or by fallback when key is not whitelisted, with id
// as the tiebreaker so pages stay stable. Only "asc" sorts ascending.
func (s sortColumns) orderBy(key, dir, fallback string) clause.OrderBy {
	column, ok := s[strings.TrimSpace(key)]
	if !ok {
		column = s[fallback]
	}
	desc := !strings.EqualFold(strings.TrimSpace(dir), "asc")

	columns := []clause.OrderByColumn{{Column: clause.Column{Name: column}, Desc: desc}}
	if column != "id" {
		columns = append(columns, clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: desc})
	}
	return clause.OrderBy{Columns: columns}
}
