package model

import "strings"

// RecordTypeTXT is the provider's type string for TXT records
const RecordTypeTXT = "TXT"

// Zone is a DNS zone hosted by the DNS provider.
// Name is a registrable domain suffix such as example.com.
type Zone struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DNSRecord is a single record inside a provider zone.
// Records are identified by ID; several records may share a Name.
type DNSRecord struct {
	ID      string `json:"id,omitempty"`
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
	TTL     int    `json:"ttl"`
}

// NormalizeName lowercases a DNS name and strips any trailing dot
func NormalizeName(name string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), ".")
}

// SameName reports whether two DNS names refer to the same node
func SameName(a, b string) bool {
	return NormalizeName(a) == NormalizeName(b)
}

// IsSubdomainOf reports whether name is zone itself or lies beneath it,
// respecting label boundaries (notexample.com is not under example.com).
func IsSubdomainOf(name, zone string) bool {
	name = NormalizeName(name)
	zone = NormalizeName(zone)
	if zone == "" {
		return false
	}
	return name == zone || strings.HasSuffix(name, "."+zone)
}
