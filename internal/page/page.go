// Package page derives pagination bounds from a candidate count and a page
// size. All functions are pure.
package page

// Page describes one window into a candidate list.
type Page struct {
	Index      int // clamped page index, 0-based
	Size       int // effective page size (>= 1)
	TotalItems int
	TotalPages int // >= 1, even when the list is empty
	HasNext    bool
	HasPrev    bool
	Start      int // inclusive slice start
	End        int // exclusive slice end; may exceed TotalItems on the last page
}

// Compute derives the page window for requested within a list of
// totalItems entries. The requested index is clamped into range; a
// non-positive pageSize falls back to 1. Negative requested indices are a
// caller contract violation and are not handled.
func Compute(totalItems, pageSize, requested int) Page {
	size := pageSize
	if size < 1 {
		size = 1
	}

	totalPages := (totalItems + size - 1) / size
	if totalPages < 1 {
		totalPages = 1
	}

	index := requested
	if index > totalPages-1 {
		index = totalPages - 1
	}

	return Page{
		Index:      index,
		Size:       size,
		TotalItems: totalItems,
		TotalPages: totalPages,
		HasNext:    index < totalPages-1,
		HasPrev:    index > 0,
		Start:      index * size,
		End:        index*size + size,
	}
}

// Slice returns the items visible on this page. The last page may hold
// fewer than Size items.
func (p Page) Slice(items []string) []string {
	if p.Start >= len(items) {
		return nil
	}
	end := p.End
	if end > len(items) {
		end = len(items)
	}
	return items[p.Start:end]
}
