package sqlxrepos

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/malekai-gauntlet/tsa-platform-sub001/core"
	"github.com/malekai-gauntlet/tsa-platform-sub001/storage/database"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") + "?_time_format=sqlite"
	db, err := sqlx.Open("sqlite", dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(context.Background(), db))
	return db
}

func tstamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, "%jane%", likePattern("Jane"))
	assert.Equal(t, `%50\%\_off%`, likePattern("50%_off"))
}

func TestOrderBy(t *testing.T) {
	allowed := map[string]bool{"email": true, "created_at": true}
	tests := []struct {
		name     string
		ordering []core.DBOrdering
		want     string
	}{
		{name: "fallback", want: " ORDER BY created_at ASC"},
		{name: "desc", ordering: []core.DBOrdering{{Field: "email"}}, want: " ORDER BY email DESC"},
		{name: "asc", ordering: []core.DBOrdering{{Field: "email", Ascending: true}, {Field: "created_at"}}, want: " ORDER BY email ASC, created_at DESC"},
		{name: "unknown field ignored", ordering: []core.DBOrdering{{Field: "password", Ascending: true}}, want: " ORDER BY created_at ASC"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, orderBy(tt.ordering, allowed, "created_at ASC"))
		})
	}
}

func TestWhereBuilder(t *testing.T) {
	var w whereBuilder
	assert.Equal(t, "", w.String())

	w.add("a = ?", 1)
	w.in("b", []interface{}{"x", "y"})
	w.in("c", nil)
	assert.Equal(t, " WHERE a = ? AND b IN (?, ?)", w.String())
	assert.Equal(t, []interface{}{1, "x", "y"}, w.args)
}
