// Package gormrepos stores events, registrations and enrollments through gorm.
package gormrepos

import (
	"database/sql"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/malekai-gauntlet/tsa-platform-sub001/core"
)

// Open wraps an opened postgres connection pool.
func Open(db *sql.DB, conf *core.Config) (*gorm.DB, error) {
	return open(postgres.New(postgres.Config{Conn: db}), conf)
}

func open(dialector gorm.Dialector, conf *core.Config) (*gorm.DB, error) {
	level := logger.Warn
	if conf != nil && conf.TestMode {
		level = logger.Silent
	}
	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 logger.Default.LogMode(level),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "opening gorm")
	}
	return gdb, nil
}

// trapNotFound maps gorm "record not found" err to `notFound`
func trapNotFound(err error, notFound error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func likePattern(search string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(search)) + "%"
}

// orderClause restricts `ordering` to the `allowed` columns.
func orderClause(ordering []core.DBOrdering, allowed map[string]bool, fallback string) string {
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
