// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import (
	"errors"
	"strconv"
)

// Page bounds applied by ClampPage.
const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
	// MaxPage keeps (page-1)*pageSize far from int overflow.
	MaxPage = 1_000_000
)

// AtoiDefault converts a string to an int using strconv.Atoi.
// If the string is empty or cannot be parsed as an integer,
// it returns the provided default value instead.
//
// Example:
//
//	n := utils.AtoiDefault("42", 0) // returns 42
//	n = utils.AtoiDefault("", 10)   // returns 10
//	n = utils.AtoiDefault("x", 5)   // returns 5
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// ClampPage parses raw page and page_size query values and bounds them to
// [1, MaxPage] and [1, MaxPageSize]. Values too large for an int count as
// past the cap, not as absent.
func ClampPage(rawPage, rawSize string) (page, pageSize int) {
	page = AtoiDefault(rawPage, DefaultPage)
	if n, err := strconv.ParseInt(rawPage, 10, 64); errors.Is(err, strconv.ErrRange) && n > 0 {
		page = MaxPage
	}
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	pageSize = AtoiDefault(rawSize, DefaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// PageMeta describes one page of a listing.
func PageMeta(page, pageSize int, total int64) map[string]any {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return map[string]any{
		"page":        page,
		"page_size":   pageSize,
		"total":       total,
		"total_pages": totalPages,
		"has_next":    page < totalPages,
	}
}

// ErrInvalidID is returned by ParseID for anything but a positive decimal.
var ErrInvalidID = errors.New("id must be a positive integer")

// ParseID parses a path parameter holding a database ID.
func ParseID(s string) (uint, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, ErrInvalidID
	}
	return uint(n), nil
}
