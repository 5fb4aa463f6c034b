package pagination

import "github.com/florelink/florelink-backend/pkg/types"

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 10
	// MaxLimit caps how many rows any page query can request.
	MaxLimit = 100
)

// Params holds page pagination inputs from controllers or services.
type Params struct {
	Page  int
	Limit int
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// NormalizePage clamps page numbers to start at one.
func NormalizePage(page int) int {
	if page <= 0 {
		return 1
	}
	return page
}

// Normalize returns params with both page and limit clamped.
func Normalize(p Params) Params {
	return Params{
		Page:  NormalizePage(p.Page),
		Limit: NormalizeLimit(p.Limit),
	}
}

// Offset computes the row offset for the normalized params.
func (p Params) Offset() int {
	return (NormalizePage(p.Page) - 1) * NormalizeLimit(p.Limit)
}

// Build assembles the response pagination block for a total row count.
func Build(p Params, total int64) types.Pagination {
	normalized := Normalize(p)
	pages := int(total / int64(normalized.Limit))
	if total%int64(normalized.Limit) != 0 {
		pages++
	}
	if pages == 0 {
		pages = 1
	}
	return types.Pagination{
		Current: normalized.Page,
		Pages:   pages,
		Total:   total,
		Limit:   normalized.Limit,
	}
}
