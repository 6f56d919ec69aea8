// backend/src/ingest/standardize.go
package ingest

import "strings"

// stagingLeaseColumn is where a source-provided "remaining lease" text column
// is staged after header standardization. It is deliberately distinct from the
// derived remaining_lease_years column so the derivation step can never
// mistake provided text for an already-computed value.
const stagingLeaseColumn = "remaining_lease_text"

// headerSynonyms remaps known source-specific header variants onto the
// canonical names after the lower-case/underscore pass.
var headerSynonyms = map[string]string{
	"floor_area_(sqm)": "floor_area_sqm",
	"remaining_lease":  stagingLeaseColumn,
}

// standardizeHeader lower-cases a raw header and replaces spaces and hyphens
// with underscores, then applies the synonym remap.
func standardizeHeader(raw string) string {
	h := strings.ToLower(strings.TrimSpace(raw))
	h = strings.ReplaceAll(h, " ", "_")
	h = strings.ReplaceAll(h, "-", "_")
	if canonical, ok := headerSynonyms[h]; ok {
		return canonical
	}
	return h
}

// columnIndex maps standardized column names to their position in the raw
// header. The first occurrence of a name wins.
func columnIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, raw := range header {
		name := standardizeHeader(raw)
		if _, exists := idx[name]; !exists {
			idx[name] = i
		}
	}
	return idx
}
