package dto

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 10
	maxPageSize     = 50
)

type PaginationParams struct {
	Page     int
	PageSize int
	Offset   int
}

// ParsePagination reads ?page and ?limit (page_size is accepted as an alias).
// Malformed or out-of-range values are clamped rather than rejected.
func ParsePagination(c *gin.Context) PaginationParams {
	page := atoiOr(c.Query("page"), 1)
	if page < 1 {
		page = 1
	}

	size := atoiOr(c.Query("limit"), 0)
	if size == 0 {
		size = atoiOr(c.Query("page_size"), defaultPageSize)
	}
	switch {
	case size < 1:
		size = defaultPageSize
	case size > maxPageSize:
		size = maxPageSize
	}

	return PaginationParams{Page: page, PageSize: size, Offset: (page - 1) * size}
}

func NewPagination(page, pageSize, totalItems int) Pagination {
	totalPages := 0
	if totalItems > 0 && pageSize > 0 {
		totalPages = (totalItems + pageSize - 1) / pageSize
	}
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalItems: totalItems,
		TotalPages: totalPages,
	}
}

func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
