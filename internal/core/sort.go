package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cris2986/calendar-pulse/internal/model"
)

// SortField represents a field to sort by.
type SortField string

const (
	SortByQueue     SortField = "queue" // Insertion order
	SortByTimestamp SortField = "timestamp"
	SortByPackage   SortField = "package"
	SortByTitle     SortField = "title"
)

// SortOrder represents ascending or descending order.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// SortOptions specifies sorting criteria.
type SortOptions struct {
	Field SortField
	Order SortOrder
}

// DefaultSortOptions keeps queue order, oldest first.
func DefaultSortOptions() SortOptions {
	return SortOptions{
		Field: SortByQueue,
		Order: SortAsc,
	}
}

// Sort sorts records in place. Ties keep queue order.
func Sort(records []model.Record, opts SortOptions) {
	if len(records) == 0 {
		return
	}

	if opts.Field == SortByQueue || opts.Field == "" {
		if opts.Order == SortDesc {
			for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
				records[i], records[j] = records[j], records[i]
			}
		}
		return
	}

	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if opts.Order == SortDesc {
			a, b = b, a
		}

		switch opts.Field {
		case SortByPackage:
			return a.PackageName < b.PackageName
		case SortByTitle:
			return strings.ToLower(a.Title) < strings.ToLower(b.Title)
		default:
			return a.Timestamp < b.Timestamp
		}
	})
}

// ParseSortField parses a sort field string.
func ParseSortField(s string) (SortField, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "queue", "q":
		return SortByQueue, nil
	case "timestamp", "time", "t":
		return SortByTimestamp, nil
	case "package", "app", "p":
		return SortByPackage, nil
	case "title":
		return SortByTitle, nil
	default:
		return "", fmt.Errorf("invalid sort field: %s (use queue, timestamp, package or title)", s)
	}
}

// ParseSortOrder parses a sort order string.
func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc", "ascending", "a":
		return SortAsc, nil
	case "desc", "descending", "d":
		return SortDesc, nil
	default:
		return "", fmt.Errorf("invalid sort order: %s (use asc or desc)", s)
	}
}
