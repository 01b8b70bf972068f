package store

import (
	"maps"
	"slices"
)

// maxHops bounds how many index entries Resolve follows. Account indices map an
// email to an account ID, and the account ID to itself. Certificate indices
// always point straight at a subject and are read with Lookup.
const maxHops = 2

// Index maps alternate keys (emails, domains, IDs) to the canonical key of a record
type Index map[string]string

// Set points every key at canonical
func (idx Index) Set(canonical string, keys ...string) {
	for _, k := range keys {
		if k != "" {
			idx[k] = canonical
		}
	}
}

// Lookup returns the canonical key stored directly under key
func (idx Index) Lookup(key string) (string, bool) {
	canonical, ok := idx[key]
	return canonical, ok
}

// Resolve follows key through the index until it reaches a key that maps to
// itself or is not indexed, up to maxHops entries.
func (idx Index) Resolve(key string) (string, bool) {
	cur, ok := idx[key]
	if !ok {
		return "", false
	}
	for range maxHops - 1 {
		next, ok := idx[cur]
		if !ok || next == cur {
			break
		}
		cur = next
	}
	return cur, true
}

// Keys returns the indexed keys in sorted order
func (idx Index) Keys() []string {
	return slices.Sorted(maps.Keys(idx))
}

// Table holds canonical records by canonical key
type Table[V any] map[string]V

// Get returns the record stored under key
func (t Table[V]) Get(key string) (V, bool) {
	v, ok := t[key]
	return v, ok
}

// Put stores v under key
func (t Table[V]) Put(key string, v V) {
	t[key] = v
}

// Has reports whether a record is stored under key
func (t Table[V]) Has(key string) bool {
	_, ok := t[key]
	return ok
}
