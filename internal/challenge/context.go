// Package challenge publishes and removes the DNS-01 TXT record for a domain
// through a DNS hosting provider's record API and optionally waits until
// public DNS serves it.
package challenge

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

const (
	// DefaultACMEPrefix is the label under which DNS-01 records live
	DefaultACMEPrefix = "_acme-challenge"

	// RecordTTL is the TTL written on challenge records
	RecordTTL = 120
)

// Context describes one challenge for one domain
type Context struct {
	Domain           string
	ACMEPrefix       string
	KeyAuthorization string
}

// FQDN is the record name the challenge is published at
func (c Context) FQDN() string {
	return FQDN(c.Domain, c.ACMEPrefix)
}

// AuthContent is the TXT value the ACME server expects
func (c Context) AuthContent() string {
	return AuthContent(c.KeyAuthorization)
}

// FQDN joins the prefix and domain; an empty prefix means DefaultACMEPrefix.
// Any trailing dot on domain is dropped because providers store names without it.
func FQDN(domain, acmePrefix string) string {
	if acmePrefix == "" {
		acmePrefix = DefaultACMEPrefix
	}
	return acmePrefix + "." + strings.TrimSuffix(domain, ".")
}

// AuthContent returns base64url(sha256(keyAuthorization)) without padding
func AuthContent(keyAuthorization string) string {
	sum := sha256.Sum256([]byte(keyAuthorization))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
