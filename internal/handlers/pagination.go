package handlers

import (
	"strconv"
	"strings"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 50
)

type pageQuery struct {
	Page  int
	Limit int
}

func parsePageQuery(rawPage, rawLimit string, defaultLimit, maxLimit int) pageQuery {
	limit := parsePositiveInt(rawLimit, defaultLimit)
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}

	return pageQuery{
		Page:  parsePositiveInt(rawPage, 1),
		Limit: limit,
	}
}

// window clamps the page to the last one and returns the slice bounds for
// total items.
func (q pageQuery) window(total int) (page, totalPages, start, end int) {
	page = q.Page
	if total > 0 {
		totalPages = (total + q.Limit - 1) / q.Limit
	}
	if totalPages > 0 && page > totalPages {
		page = totalPages
	}

	start = (page - 1) * q.Limit
	if start > total {
		start = total
	}
	end = start + q.Limit
	if end > total {
		end = total
	}
	return page, totalPages, start, end
}

func parsePositiveInt(raw string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
