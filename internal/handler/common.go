package handler // handler defines http handlers

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/leakwatch/leakwatch/internal/middleware"
)

// errNoIdentity is returned by principalID when the auth middleware did not
// attach an identity to the context.
var errNoIdentity = errors.New("no identity in context")

// principalID extracts the authenticated principal id set by JWTAuth.
func principalID(c echo.Context) (uint64, error) {
	if v, ok := c.Get(middleware.CtxUserID).(uint64); ok && v != 0 {
		return v, nil
	}
	return 0, errNoIdentity
}

// principalRole extracts the authenticated role set by JWTAuth.
func principalRole(c echo.Context) string {
	role, _ := c.Get(middleware.CtxRole).(string)
	return role
}

// pageParams reads the page/limit query parameters with the defaults the
// list endpoints share.  Limit is capped so a client cannot request the
// whole table in one page.
func pageParams(c echo.Context) (page, limit int) {
	page, limit = 1, 10
	if v, err := strconv.Atoi(c.QueryParam("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 {
		limit = v
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

// pagination is the envelope appended to every paginated response.
type pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
	TotalItems int `json:"totalItems"`
}

func paginate(page, limit, total int) pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return pagination{Page: page, Limit: limit, TotalPages: pages, TotalItems: total}
}

// parseID parses a numeric path parameter.
func parseID(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}
