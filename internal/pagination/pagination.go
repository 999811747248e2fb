// Package pagination normalizes page/limit query values and computes the
// metadata returned alongside every listing.
package pagination

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"newsboard/internal/models"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// Params is a resolved page window.
type Params struct {
	Page   int
	Limit  int
	Offset int
}

// Meta is the pagination block of a listing response.
type Meta struct {
	TotalItems  int64 `json:"total_items"`
	TotalPages  int   `json:"total_pages"`
	CurrentPage int   `json:"current_page"`
	Limit       int   `json:"limit"`
	HasNextPage bool  `json:"has_next_page"`
}

// Page is a listing envelope.
type Page[T any] struct {
	Data       []T  `json:"data"`
	Pagination Meta `json:"pagination"`
}

// Default returns the window used when neither value is supplied.
func Default() Params {
	return New(DefaultPage, DefaultLimit)
}

// New builds Params from already validated values.
func New(page, limit int) Params {
	return Params{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}

// Resolve parses raw query values. An empty string means the value was not
// supplied and takes its default. Supplied values must be base-10 integers
// of at least 1, and the window end (page*limit) must fit in an int.
func Resolve(rawPage, rawLimit string) (Params, error) {
	page, err := parsePositive("page", rawPage, DefaultPage)
	if err != nil {
		return Params{}, err
	}
	limit, err := parsePositive("limit", rawLimit, DefaultLimit)
	if err != nil {
		return Params{}, err
	}
	if page-1 > (math.MaxInt-limit)/limit {
		appErr := models.NewInvalidPaginationError("page", strings.TrimSpace(rawPage))
		appErr.Message = fmt.Sprintf("page %d is out of range for limit %d", page, limit)
		return Params{}, appErr
	}
	return New(page, limit), nil
}

func parsePositive(field, raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, models.NewInvalidPaginationError(field, raw)
	}
	return n, nil
}

// Meta computes listing metadata for the given total.
func (p Params) Meta(totalItems int64) Meta {
	totalPages := 0
	if totalItems > 0 && p.Limit > 0 {
		totalPages = int((totalItems + int64(p.Limit) - 1) / int64(p.Limit))
	}
	return Meta{
		TotalItems:  totalItems,
		TotalPages:  totalPages,
		CurrentPage: p.Page,
		Limit:       p.Limit,
		HasNextPage: int64(p.Offset+p.Limit) < totalItems,
	}
}

// NewPage wraps items with metadata. A nil slice is replaced with an empty
// one so listings always encode as arrays.
func NewPage[T any](items []T, totalItems int64, p Params) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Data:       items,
		Pagination: p.Meta(totalItems),
	}
}
