// Package inmemdb keeps every repository in process memory. It backs the unit tests and the
// API when no database is configured.
package inmemdb

import (
	"strings"
	"sync"

	"github.com/malekai-gauntlet/tsa-platform-sub001/core"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/edfi"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/event"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/invitation"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/onboarding"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/user"
)

type (
	DB struct {
		user         *table[string, user.User]
		profile      *table[string, user.Profile] // by user ID
		invitation   *table[string, invitation.Invitation]
		progress     *table[string, onboarding.Progress]
		org          *table[int64, edfi.EducationOrganization]
		school       *table[int64, edfi.School]
		staff        *table[int64, edfi.Staff]
		parent       *table[int64, edfi.Parent]
		student      *table[int64, edfi.Student]
		event        *table[string, event.Event]
		registration *table[string, event.Registration]
		enrollment   *table[string, event.Enrollment]
	}

	table[K comparable, T any] struct {
		sync.RWMutex
		rows map[K]*T
	}
)

func newTable[K comparable, T any]() *table[K, T] {
	return &table[K, T]{rows: make(map[K]*T)}
}

func Open() *DB {
	return &DB{
		user:         newTable[string, user.User](),
		profile:      newTable[string, user.Profile](),
		invitation:   newTable[string, invitation.Invitation](),
		progress:     newTable[string, onboarding.Progress](),
		org:          newTable[int64, edfi.EducationOrganization](),
		school:       newTable[int64, edfi.School](),
		staff:        newTable[int64, edfi.Staff](),
		parent:       newTable[int64, edfi.Parent](),
		student:      newTable[int64, edfi.Student](),
		event:        newTable[string, event.Event](),
		registration: newTable[string, event.Registration](),
		enrollment:   newTable[string, event.Enrollment](),
	}
}

// all returns copies of the rows matching `keep`. The caller holds the lock.
func (t *table[K, T]) all(keep func(*T) bool) []T {
	list := make([]T, 0, len(t.rows))
	for _, row := range t.rows {
		if keep == nil || keep(row) {
			list = append(list, *row)
		}
	}
	return list
}

// first returns a copy of a row matching `keep`. The caller holds the lock.
func (t *table[K, T]) first(keep func(*T) bool) (T, bool) {
	for _, row := range t.rows {
		if keep(row) {
			return *row, true
		}
	}
	var zero T
	return zero, false
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func contains[T comparable](list []T, v T) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// lessFunc compares two rows on one column; it returns <0, 0 or >0.
type lessFunc[T any] func(a, b *T) int

// sorter builds a comparison from `ordering`, falling back to `fallback` for unknown or
// absent columns.
func sorter[T any](ordering []core.DBOrdering, columns map[string]lessFunc[T], fallback []core.DBOrdering) func(a, b *T) bool {
	var cmps []func(a, b *T) int
	add := func(list []core.DBOrdering) {
		for _, ord := range list {
			cmp, ok := columns[ord.Field]
			if !ok {
				continue
			}
			if ord.Ascending {
				cmps = append(cmps, cmp)
			} else {
				cmps = append(cmps, func(a, b *T) int { return cmp(b, a) })
			}
		}
	}
	add(ordering)
	if len(cmps) == 0 {
		add(fallback)
	}
	return func(a, b *T) bool {
		for _, cmp := range cmps {
			if c := cmp(a, b); c != 0 {
				return c < 0
			}
		}
		return false
	}
}
