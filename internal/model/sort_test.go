package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ids(records []DNSRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestSortRecords_ByType(t *testing.T) {
	records := []DNSRecord{
		{ID: "1", Type: "TXT"},
		{ID: "2", Type: "A"},
		{ID: "3", Type: "CNAME"},
	}
	SortRecords(records, "type")
	assert.Equal(t, []string{"2", "3", "1"}, ids(records))
}

func TestSortRecords_ByTTL(t *testing.T) {
	records := []DNSRecord{
		{ID: "1", TTL: 300},
		{ID: "2", TTL: 120},
		{ID: "3", TTL: 3600},
	}
	SortRecords(records, "ttl")
	assert.Equal(t, []string{"2", "1", "3"}, ids(records))
}

func TestSortRecords_ByContent(t *testing.T) {
	records := []DNSRecord{
		{ID: "1", Content: "zzz"},
		{ID: "2", Content: "aaa"},
	}
	SortRecords(records, "content")
	assert.Equal(t, []string{"2", "1"}, ids(records))
}

func TestSortRecords_Default(t *testing.T) {
	records := []DNSRecord{
		{ID: "b", Name: "b.example.com"},
		{ID: "z", Name: "A.example.com."},
		{ID: "a", Name: "a.example.com"},
	}
	SortRecords(records, "")
	assert.Equal(t, []string{"a", "z", "b"}, ids(records))
}

func TestSortRecords_UnrecognizedFallsBackToDefault(t *testing.T) {
	records := []DNSRecord{
		{ID: "2", Name: "b.example.com"},
		{ID: "1", Name: "a.example.com"},
	}
	SortRecords(records, "bogus")
	assert.Equal(t, []string{"1", "2"}, ids(records))
}

func TestSortRecords_EmptySlice(t *testing.T) {
	var records []DNSRecord
	SortRecords(records, "name")
	assert.Empty(t, records)
}
