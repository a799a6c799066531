package inventory

import (
	"sort"

	"github.com/hugh/go-stockroom/internal/database/models"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortByName orders items by name the way a person would read a list:
// case-insensitive, accents after their base letter.
func SortByName(items []models.InventoryItem) {
	// collators keep internal buffers and are not safe to share
	c := collate.New(language.English, collate.IgnoreCase)
	sort.SliceStable(items, func(i, j int) bool {
		return c.CompareString(items[i].Name, items[j].Name) < 0
	})
}
