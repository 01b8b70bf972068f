package model

import "strings"

// RecordFilter contains criteria for filtering DNS records with multiple values per field.
// All criteria are optional; only non-empty slices are applied.
// Within each field, values are combined with OR logic (any value matches).
// Between fields, criteria are combined with AND logic (all fields must match).
type RecordFilter struct {
	// Names filters by exact record name (case-insensitive, trailing dot ignored)
	Names []string

	// Types filters by record type (case-insensitive)
	Types []string

	// Contents filters by exact record content
	Contents []string
}

// FilterRecords filters a slice of DNS records based on the provided criteria.
// Returns a new slice containing only records that match the filter.
// Empty filter slices are ignored (treated as "match all").
func FilterRecords(records []DNSRecord, filter RecordFilter) []DNSRecord {
	if len(filter.Names) == 0 && len(filter.Types) == 0 && len(filter.Contents) == 0 {
		return records
	}

	nameMap := make(map[string]bool)
	for _, name := range filter.Names {
		nameMap[NormalizeName(name)] = true
	}

	typeMap := make(map[string]bool)
	for _, t := range filter.Types {
		typeMap[strings.ToUpper(t)] = true
	}

	contentMap := make(map[string]bool)
	for _, c := range filter.Contents {
		contentMap[c] = true
	}

	filtered := []DNSRecord{}
	for _, record := range records {
		if len(filter.Names) > 0 && !nameMap[NormalizeName(record.Name)] {
			continue
		}
		if len(filter.Types) > 0 && !typeMap[strings.ToUpper(record.Type)] {
			continue
		}
		if len(filter.Contents) > 0 && !contentMap[record.Content] {
			continue
		}
		filtered = append(filtered, record)
	}

	return filtered
}
