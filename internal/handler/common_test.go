package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func queryCtx(rawQuery string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?"+rawQuery, nil)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestPageParams(t *testing.T) {
	cases := map[string]struct {
		query string
		page  int
		limit int
	}{
		"defaults":        {"", 1, 10},
		"explicit":        {"page=3&limit=25", 3, 25},
		"zero page":       {"page=0", 1, 10},
		"negative limit":  {"limit=-5", 1, 10},
		"garbage":         {"page=abc&limit=xyz", 1, 10},
		"limit above cap": {"limit=1000", 1, 100},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			page, limit := pageParams(queryCtx(tc.query))
			assert.Equal(t, tc.page, page)
			assert.Equal(t, tc.limit, limit)
		})
	}
}

func TestPaginate(t *testing.T) {
	p := paginate(2, 10, 35)
	assert.Equal(t, 2, p.Page)
	assert.Equal(t, 10, p.Limit)
	assert.Equal(t, 4, p.TotalPages)
	assert.Equal(t, 35, p.TotalItems)

	empty := paginate(1, 10, 0)
	assert.Equal(t, 0, empty.TotalPages)
}
