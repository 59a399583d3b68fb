package schema

import (
	"sort"

	"grn-sheet-sync-go/internal/models"
)

// Flatten lays rows out as table rows following header. Absent fields become
// empty cells. Keys that the header does not carry are returned in dropped.
func Flatten(rows []*models.Row, header []string) (out [][]models.Value, dropped []string) {
	inHeader := make(map[string]struct{}, len(header))
	for _, h := range header {
		inHeader[h] = struct{}{}
	}

	missing := make(map[string]struct{})
	out = make([][]models.Value, 0, len(rows))
	for _, row := range rows {
		if row == nil {
			continue
		}
		cells := make([]models.Value, len(header))
		for i, h := range header {
			if v, ok := row.Get(h); ok {
				cells[i] = v
			}
		}
		for _, k := range row.Keys() {
			if _, ok := inHeader[k]; !ok {
				missing[k] = struct{}{}
			}
		}
		out = append(out, cells)
	}

	for k := range missing {
		dropped = append(dropped, k)
	}
	sort.Strings(dropped)
	return out, dropped
}
