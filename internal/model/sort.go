package model

import "sort"

// SortBy specifies the field for sorting DNS records
type SortBy string

const (
	SortByName    SortBy = "name"
	SortByType    SortBy = "type"
	SortByContent SortBy = "content"
	SortByTTL     SortBy = "ttl"
	SortByDefault SortBy = "" // Default sort: name, then ID
)

// SortRecords sorts a slice of DNS records in place based on the specified field.
// If sortBy is empty or unrecognized, records are sorted by name, then by ID.
// The sort is stable so provider order survives among equal keys.
func SortRecords(records []DNSRecord, sortBy string) {
	switch SortBy(sortBy) {
	case SortByType:
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].Type < records[j].Type
		})
	case SortByContent:
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].Content < records[j].Content
		})
	case SortByTTL:
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].TTL < records[j].TTL
		})
	case SortByName:
		sort.SliceStable(records, func(i, j int) bool {
			return NormalizeName(records[i].Name) < NormalizeName(records[j].Name)
		})
	default:
		sort.SliceStable(records, func(i, j int) bool {
			ni, nj := NormalizeName(records[i].Name), NormalizeName(records[j].Name)
			if ni != nj {
				return ni < nj
			}
			return records[i].ID < records[j].ID
		})
	}
}
