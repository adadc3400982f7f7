package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ukmiverse/ukmiverse/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads `?ordering=name,-created_at`. Fields outside allowed are dropped.
func (ord *Ordering) Bind(ctx echo.Context, allowed map[string]bool) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if !allowed[field] {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// getObject returns the object set by the detail middlewares.
func getObject[T any](ctx echo.Context) (T, bool) {
	obj, ok := ctx.Get(objectKey).(T)
	return obj, ok
}
