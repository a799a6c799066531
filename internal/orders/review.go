// Package orders turns a viewer's cart into inventory deductions and audit
// records.
package orders

import (
	"github.com/hugh/go-stockroom/internal/database/models"
	"github.com/shopspring/decimal"
)

// Review is one viewer's cart while they pick how many of each entry to
// take. Nothing here touches the store.
type Review struct {
	Entries []models.CartEntry
}

func NewReview(entries []models.CartEntry) *Review {
	return &Review{Entries: entries}
}

// AdjustCounter moves entry i's counter by delta, clamped to
// [0, entry quantity]. Out of range indexes are ignored.
func (r *Review) AdjustCounter(i, delta int) {
	if i < 0 || i >= len(r.Entries) {
		return
	}
	e := &r.Entries[i]
	e.Counter = clamp(e.Counter+delta, e.Quantity)
}

// SetCounter sets entry i's counter outright, with the same clamping.
func (r *Review) SetCounter(i, counter int) {
	if i < 0 || i >= len(r.Entries) {
		return
	}
	r.Entries[i].Counter = clamp(counter, r.Entries[i].Quantity)
}

// Selected returns the entries with a positive counter.
func (r *Review) Selected() []models.CartEntry {
	var out []models.CartEntry
	for _, e := range r.Entries {
		if e.Counter > 0 {
			out = append(out, e)
		}
	}
	return out
}

// Total is Σ counter × price over the selected entries.
func (r *Review) Total() decimal.Decimal {
	total := decimal.Zero
	for _, e := range r.Selected() {
		total = total.Add(e.Subtotal())
	}
	return total
}

func clamp(v, max int) int {
	if max < 0 {
		max = 0
	}
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
