package core

import "strings"

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// OrderingClause joins orderings into an `ORDER BY` list, keeping only the allowed fields.
// The fallback is used when no ordering survives.
func OrderingClause(ordering []DBOrdering, allowed map[string]bool, fallback string) string {
	list := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		if allowed[ord.Field] {
			list = append(list, ord.String())
		}
	}
	if len(list) == 0 {
		return fallback
	}
	return strings.Join(list, ", ")
}
