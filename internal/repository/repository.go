// Package repository chooses where the store document is kept
package repository

import "strings"

// DefaultBlobBase is the base name of the store document
const DefaultBlobBase = "greenlock"

// IsProduction reports whether environment names the production deployment.
// An empty environment counts as production.
func IsProduction(environment string) bool {
	env := strings.ToLower(strings.TrimSpace(environment))
	return env == "" || env == "production"
}

// BlobName returns the document name for an environment. Production keeps the
// historical greenlock.json name; every other environment gets its own suffix.
func BlobName(environment string) string {
	if IsProduction(environment) {
		return DefaultBlobBase + ".json"
	}
	return DefaultBlobBase + "-" + strings.ToLower(strings.TrimSpace(environment)) + ".json"
}
