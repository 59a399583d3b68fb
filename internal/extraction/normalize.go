package extraction

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"grn-sheet-sync-go/internal/models"
)

// Row fields added to every item.
const (
	FieldSourceFile    = "source_file"
	FieldProcessedDate = "processed_date"
	FieldDriveFileID   = "drive_file_id"
)

// ProcessedDateLayout formats FieldProcessedDate.
const ProcessedDateLayout = "2006-01-02 15:04:05"

// itemKeys are the document keys that may hold the line items, in priority
// order.
var itemKeys = []string{"items", "product_items"}

// Alias resolves a document-level field from the first non-empty source key.
type Alias struct {
	Field   string
	Sources []string
}

// DefaultAliases is the document-field table for goods received notes.
func DefaultAliases() []Alias {
	return []Alias{
		{Field: "po_number", Sources: []string{"po_number", "purchase_order_number"}},
		{Field: "vendor_invoice_number", Sources: []string{"vendor_invoice_number", "invoice_number", "supplier_bill_number"}},
		{Field: "supplier", Sources: []string{"supplier", "vendor"}},
		{Field: "shipping_address", Sources: []string{"shipping_address", "receiver_address", "Shipping Address"}},
		{Field: "grn_date", Sources: []string{"grn_date", "delivered_on"}},
	}
}

// MergeAliases overrides the sources of known fields and appends new fields
// in name order.
func MergeAliases(base []Alias, overrides map[string][]string) []Alias {
	out := make([]Alias, 0, len(base)+len(overrides))
	seen := make(map[string]bool, len(base))
	for _, a := range base {
		if src, ok := overrides[a.Field]; ok && len(src) > 0 {
			a.Sources = src
		}
		seen[a.Field] = true
		out = append(out, a)
	}

	var extra []string
	for field, src := range overrides {
		if !seen[field] && len(src) > 0 {
			extra = append(extra, field)
		}
	}
	sort.Strings(extra)
	for _, field := range extra {
		out = append(out, Alias{Field: field, Sources: overrides[field]})
	}
	return out
}

// Normalized is the outcome of normalizing one document.
type Normalized struct {
	Rows []*models.Row
	// Completeness is the share of alias fields that resolved to a value.
	Completeness float64
	// Missing lists alias fields that resolved to nothing.
	Missing []string
}

// Normalizer flattens extracted documents into line-item rows.
type Normalizer struct {
	aliases []Alias
	now     func() time.Time
}

// NewNormalizer uses aliases, or DefaultAliases when aliases is empty.
func NewNormalizer(aliases []Alias) *Normalizer {
	if len(aliases) == 0 {
		aliases = DefaultAliases()
	}
	return &Normalizer{aliases: aliases, now: time.Now}
}

// Normalize produces one row per line item of doc. Each row carries the
// item's own fields, the alias-resolved document fields, the source file
// name, the processing time and the file id. Document fields override item
// fields of the same name; empty values are left out.
func (n *Normalizer) Normalize(doc map[string]any, file models.StoredObject) Normalized {
	var out Normalized

	var raw any
	found := false
	for _, key := range itemKeys {
		if v, ok := doc[key]; ok {
			raw, found = v, true
			break
		}
	}
	if !found {
		logrus.Warnf("No recognizable items key in %s", file.Name)
		return out
	}
	items, ok := raw.([]any)
	if !ok {
		logrus.Warnf("Items of %s are not a list", file.Name)
		return out
	}

	resolved := make([]models.Value, len(n.aliases))
	present := 0
	for i, a := range n.aliases {
		resolved[i] = firstNonEmpty(doc, a.Sources)
		if resolved[i].IsEmpty() {
			out.Missing = append(out.Missing, a.Field)
		} else {
			present++
		}
	}
	if len(n.aliases) > 0 {
		out.Completeness = float64(present) / float64(len(n.aliases))
	}

	processed := models.StringValue(n.now().Format(ProcessedDateLayout))
	for i, rawItem := range items {
		item, ok := rawItem.(map[string]any)
		if !ok {
			logrus.Warnf("Skipping item %d of %s: not an object", i, file.Name)
			continue
		}

		row := models.NewRow()
		keys := make([]string, 0, len(item))
		for k := range item {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			row.Set(k, models.ValueOf(item[k]))
		}

		for j, a := range n.aliases {
			row.Set(a.Field, resolved[j])
		}
		row.Set(FieldSourceFile, models.StringValue(file.Name))
		row.Set(FieldProcessedDate, processed)
		row.Set(FieldDriveFileID, models.StringValue(file.ID))

		out.Rows = append(out.Rows, row)
	}
	return out
}

// firstNonEmpty returns the first source value that is set. Zero and false
// count as unset and fall through to the next source.
func firstNonEmpty(doc map[string]any, keys []string) models.Value {
	for _, k := range keys {
		raw := doc[k]
		if isZero(raw) {
			continue
		}
		if v := models.ValueOf(raw); !v.IsEmpty() {
			return v
		}
	}
	return models.Value{}
}

func isZero(raw any) bool {
	switch v := raw.(type) {
	case bool:
		return !v
	case float64:
		return v == 0
	case int:
		return v == 0
	case int64:
		return v == 0
	case json.Number:
		f, err := v.Float64()
		return err == nil && f == 0
	}
	return false
}
