package echoapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/malekai-gauntlet/tsa-platform-sub001/core"
)

func newContext(target string) echo.Context {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return echo.New().NewContext(req, httptest.NewRecorder())
}

func TestOrdering_Bind(t *testing.T) {
	tests := []struct {
		target string
		want   []core.DBOrdering
	}{
		{"/", nil},
		{"/?ordering=", nil},
		{"/?ordering=title", []core.DBOrdering{{Field: "title", Ascending: true}}},
		{"/?ordering=-start_date,%20title,-", []core.DBOrdering{{Field: "start_date"}, {Field: "title", Ascending: true}}},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			ord := new(Ordering)
			ord.Bind(newContext(tt.target))
			assert.Equal(t, tt.want, ord.Orderings)
		})
	}
}

func TestQueryList(t *testing.T) {
	ctx := newContext("/?status=DRAFT,PUBLISHED&status=%20CANCELLED%20&status=")
	assert.Equal(t, []string{"DRAFT", "PUBLISHED", "CANCELLED"}, queryList(ctx, "status"))
	assert.Nil(t, queryList(ctx, "type"))
}

func TestQueryTime(t *testing.T) {
	got, err := queryTime(newContext("/?from=2024-08-15"), "from")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 8, 15, 0, 0, 0, 0, time.UTC), *got)

	got, err = queryTime(newContext("/?to=2024-08-15T10:30:00Z"), "to")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 8, 15, 10, 30, 0, 0, time.UTC), *got)

	got, err = queryTime(newContext("/"), "from")
	assert.NoError(t, err)
	assert.Nil(t, got)

	_, err = queryTime(newContext("/?from=15/08/2024"), "from")
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "from", vErr.Fields[0].Field)
}
