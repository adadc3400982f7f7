// Package inmemdb keeps every table in process memory. It backs the tests and `database.engine=memory`.
package inmemdb

import (
	"sort"
	"strings"
	"sync"

	"github.com/ukmiverse/ukmiverse/core"
	"github.com/ukmiverse/ukmiverse/core/club"
	"github.com/ukmiverse/ukmiverse/core/user"
)

type (
	DB struct {
		user     *userTable
		club     *clubTable
		category *categoryTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	clubTable struct {
		sync.RWMutex
		table map[string]*club.Club
	}

	categoryTable struct {
		sync.RWMutex
		table map[string]*club.Category
	}
)

func Open() *DB {
	return &DB{
		user:     &userTable{table: make(map[string]*user.User)},
		club:     &clubTable{table: make(map[string]*club.Club)},
		category: &categoryTable{table: make(map[string]*club.Category)},
	}
}

// Close drops every row.
func (db *DB) Close() error {
	db.user.Lock()
	db.user.table = make(map[string]*user.User)
	db.user.Unlock()

	db.club.Lock()
	db.club.table = make(map[string]*club.Club)
	db.club.Unlock()

	db.category.Lock()
	db.category.table = make(map[string]*club.Category)
	db.category.Unlock()
	return nil
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

const sortableTime = "2006-01-02T15:04:05.000000000"

// sortRows orders rows by the orderings that have a key, fallback when none has.
func sortRows[T any](rows []T, keys map[string]func(T) string, ordering []core.DBOrdering, fallback core.DBOrdering) {
	valid := make([]core.DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		if _, ok := keys[ord.Field]; ok {
			valid = append(valid, ord)
		}
	}
	if len(valid) == 0 {
		valid = append(valid, fallback)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		for _, ord := range valid {
			a, b := keys[ord.Field](rows[i]), keys[ord.Field](rows[j])
			if a == b {
				continue
			}
			if ord.Ascending {
				return a < b
			}
			return a > b
		}
		return false
	})
}
