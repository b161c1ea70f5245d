package utils

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/todoapp/todo-reminder-api/internal/constants"
)

// PaginationParams holds the pagination parameters
type PaginationParams struct {
	Page   int
	Limit  int
	Offset int
}

// Enabled reports whether the caller asked for a page. The task list is
// unpaginated unless page or limit is present in the query.
func (p PaginationParams) Enabled() bool {
	return p.Limit > 0
}

// GetPaginationParams extracts pagination parameters from the request.
// Without page and limit query parameters it returns the zero value.
func GetPaginationParams(c *gin.Context) PaginationParams {
	pageRaw, hasPage := c.GetQuery("page")
	limitRaw, hasLimit := c.GetQuery("limit")
	if !hasPage && !hasLimit {
		return PaginationParams{}
	}

	page, _ := strconv.Atoi(pageRaw)
	limit, err := strconv.Atoi(limitRaw)
	if err != nil {
		limit = constants.DefaultPageSize
	}

	if page < constants.MinPageSize {
		page = constants.MinPageSize
	}
	if limit < constants.MinPageSize || limit > constants.MaxPageSize {
		limit = constants.DefaultPageSize
	}
	// Keep the offset within int32 for every store's skip.
	if maxPage := math.MaxInt32/limit + 1; page > maxPage {
		page = maxPage
	}

	return PaginationParams{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}
