// Package pagination computes the compact page-number strip shown under product listings.
package pagination

// maxFullStrip is the largest page count rendered without ellipses.
const maxFullStrip = 7

// Item is one entry in the page strip: either a page number or an ellipsis marker.
type Item struct {
	Number   int
	Ellipsis bool
}

// PageNumbers returns the page strip for the given current page and page count.
//
// Up to seven pages are listed in full. Beyond that the strip always holds the
// first and last page, a window of one page either side of current, and an
// ellipsis wherever pages are skipped.
func PageNumbers(current, total int) []Item {
	items := make([]Item, 0, maxFullStrip)
	if total <= maxFullStrip {
		for i := 1; i <= total; i++ {
			items = append(items, Item{Number: i})
		}
		return items
	}

	items = append(items, Item{Number: 1})
	if current > 3 {
		items = append(items, Item{Ellipsis: true})
	}

	start := max(2, current-1)
	end := min(total-1, current+1)
	for i := start; i <= end; i++ {
		items = appendUnique(items, Item{Number: i})
	}

	if current < total-2 {
		items = append(items, Item{Ellipsis: true})
	}
	return appendUnique(items, Item{Number: total})
}

// appendUnique appends it unless it repeats the last entry.
func appendUnique(items []Item, it Item) []Item {
	if n := len(items); n > 0 && items[n-1] == it {
		return items
	}
	return append(items, it)
}

// Window describes where a listing page sits among its siblings.
type Window struct {
	Page       int
	TotalPages int
	Items      []Item
}

// New builds the Window for a listing page.
func New(page, totalPages int) Window {
	return Window{
		Page:       page,
		TotalPages: totalPages,
		Items:      PageNumbers(page, totalPages),
	}
}

// HasPrev reports whether a previous page exists.
func (w Window) HasPrev() bool { return w.Page > 1 }

// HasNext reports whether a following page exists.
func (w Window) HasNext() bool { return w.Page < w.TotalPages }

// Visible reports whether the strip is worth rendering at all.
func (w Window) Visible() bool { return w.TotalPages > 1 }

// Showing returns the 1-based inclusive range of items displayed on page,
// as in "Showing 13-24 of 40". Both are zero when the page is empty.
func Showing(page, pageSize, count int) (start, end int) {
	if count <= 0 {
		return 0, 0
	}
	start = (page-1)*pageSize + 1
	return start, start + count - 1
}
