// Package schema reconciles the dynamic field set of extracted rows with the
// column header of the destination table.
package schema

import (
	"sort"

	"grn-sheet-sync-go/internal/models"
)

// SortedKeys returns the distinct keys of rows in lexical order.
func SortedKeys(rows []*models.Row) []string {
	seen := make(map[string]struct{})
	for _, row := range rows {
		if row == nil {
			continue
		}
		for _, k := range row.Keys() {
			seen[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Merge appends the names in batch that existing lacks, keeping the order of
// existing. changed reports whether the result differs from existing.
func Merge(existing, batch []string) ([]string, bool) {
	merged := make([]string, 0, len(existing)+len(batch))
	seen := make(map[string]struct{}, len(existing)+len(batch))
	for _, group := range [][]string{existing, batch} {
		for _, name := range group {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			merged = append(merged, name)
		}
	}
	return merged, !equal(merged, existing)
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Reconciler fixes the header once per run from the first batch of rows.
type Reconciler struct {
	header []string
	fixed  bool
}

// NewReconciler starts from the header currently in the table.
func NewReconciler(existing []string) *Reconciler {
	h := make([]string, len(existing))
	copy(h, existing)
	return &Reconciler{header: h}
}

// Fix merges the keys of rows into the header on the first call and reports
// whether the table header has to be rewritten. Later calls leave the header
// untouched.
func (r *Reconciler) Fix(rows []*models.Row) ([]string, bool) {
	if r.fixed {
		return r.Header(), false
	}
	r.fixed = true

	merged, changed := Merge(r.header, SortedKeys(rows))
	r.header = merged
	return r.Header(), changed
}

// Header returns a copy of the current header.
func (r *Reconciler) Header() []string {
	out := make([]string, len(r.header))
	copy(out, r.header)
	return out
}

// Fixed reports whether the header has been settled for this run.
func (r *Reconciler) Fixed() bool { return r.fixed }
