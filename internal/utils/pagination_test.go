package utils

import (
	"math"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/todoapp/todo-reminder-api/internal/constants"
)

func TestGetPaginationParams(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name  string
		query string
		want  PaginationParams
	}{
		{"no params disables paging", "", PaginationParams{}},
		{"page and limit", "?page=3&limit=10", PaginationParams{Page: 3, Limit: 10, Offset: 20}},
		{"limit only", "?limit=5", PaginationParams{Page: 1, Limit: 5, Offset: 0}},
		{"page only uses default limit", "?page=2", PaginationParams{Page: 2, Limit: constants.DefaultPageSize, Offset: constants.DefaultPageSize}},
		{"limit above max", "?page=1&limit=100000", PaginationParams{Page: 1, Limit: constants.DefaultPageSize, Offset: 0}},
		{"negative page", "?page=-4&limit=10", PaginationParams{Page: 1, Limit: 10, Offset: 0}},
		{"huge page is clamped", "?page=9223372036854775807&limit=10", PaginationParams{Page: math.MaxInt32/10 + 1, Limit: 10, Offset: math.MaxInt32 / 10 * 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest("GET", "/api/tasks"+tt.query, nil)

			got := GetPaginationParams(c)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.Limit > 0, got.Enabled())
			assert.GreaterOrEqual(t, got.Offset, 0)
			assert.LessOrEqual(t, got.Offset, math.MaxInt32)
		})
	}
}
