package history

import (
	"encoding/csv"
	"fmt"
	"io"
)

// ExportCSV writes the dashboard as two tables separated by a blank row.
func ExportCSV(w io.Writer, d *Dashboard) error {
	cw := csv.NewWriter(w)

	records := [][]string{{"Title", "Value", "Percentage"}}
	for _, c := range d.Cards {
		records = append(records, []string{c.Title, c.Value, c.Percentage})
	}
	records = append(records, []string{}, []string{"Seller", "Profit", "Percentage"})
	for _, s := range d.Sellers {
		records = append(records, []string{s.Seller, s.Profit.StringFixed(2), s.Percentage})
	}

	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("write dashboard csv: %w", err)
	}
	return nil
}
