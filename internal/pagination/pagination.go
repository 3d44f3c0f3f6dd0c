// Package pagination computes the abbreviated set of page links shown under a feed.
package pagination

const maxVisiblePages = 5

// Item is either a page number or an ellipsis marker.
type Item struct {
	Page     int  `json:"page,omitempty"`
	Ellipsis bool `json:"ellipsis,omitempty"`
}

func page(n int) Item {
	return Item{Page: n}
}

func ellipsis() Item {
	return Item{Ellipsis: true}
}

// Window returns page labels and ellipses to render for the given current page and total pages count.
func Window(current, total int) []Item {
	if total <= maxVisiblePages {
		out := make([]Item, 0, total)
		for i := 1; i <= total; i++ {
			out = append(out, page(i))
		}
		return out
	}

	out := []Item{page(1)}

	if current > 3 {
		out = append(out, ellipsis())
	}

	for i := max(2, current-1); i <= min(total-1, current+1); i++ {
		out = append(out, page(i))
	}

	if current < total-2 {
		out = append(out, ellipsis())
	}

	return append(out, page(total))
}

// Visible reports whether pagination should be rendered at all.
func Visible(total int) bool {
	return total > 1
}

// Controls ...
type Controls struct {
	Prev bool `json:"prev"`
	Next bool `json:"next"`
}

// NewControls reports whether previous and next links are enabled.
func NewControls(current, total int) Controls {
	return Controls{
		Prev: current > 1,
		Next: current < total,
	}
}
