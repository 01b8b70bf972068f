package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-acme/lego/v4/registration"
)

var (
	// ErrValidation is returned when a required field is missing
	ErrValidation = errors.New("validation error")

	// ErrIntegrity is returned when a prerequisite keypair or account is absent
	ErrIntegrity = errors.New("integrity error")

	// ErrNotImplemented is returned for lookups by public key JWK
	ErrNotImplemented = errors.New("not implemented")
)

// Keypair is a private/public key pair in both PEM and JWK encodings
type Keypair struct {
	PrivateKeyPEM string          `json:"privateKeyPem,omitempty"`
	PrivateKeyJWK json.RawMessage `json:"privateKeyJwk,omitempty"`
	PublicKeyPEM  string          `json:"publicKeyPem,omitempty"`
	PublicKeyJWK  json.RawMessage `json:"publicKeyJwk,omitempty"`
}

func (k *Keypair) clone() *Keypair {
	if k == nil {
		return nil
	}
	c := *k
	c.PrivateKeyJWK = append(json.RawMessage(nil), k.PrivateKeyJWK...)
	c.PublicKeyJWK = append(json.RawMessage(nil), k.PublicKeyJWK...)
	return &c
}

// AccountID is the hex SHA-256 of a PEM encoded public key
func AccountID(publicKeyPEM string) string {
	sum := sha256.Sum256([]byte(publicKeyPEM))
	return hex.EncodeToString(sum[:])
}

// AccountOptions identify an account. Lookups try AccountID, then the keypair's
// public key, then Email, then the first domain.
type AccountOptions struct {
	Email     string
	AccountID string
	Keypair   *Keypair
	AgreeTOS  bool
	Domains   []string
}

// Registration is what the ACME engine reports after registering an account
type Registration struct {
	Keypair  *Keypair
	AgreeTOS bool
	Resource *registration.Resource
	Extra    map[string]json.RawMessage
}

// AccountRecord is a registered ACME account
type AccountRecord struct {
	ID           string                     `json:"id"`
	AccountID    string                     `json:"accountId"`
	Email        string                     `json:"email"`
	Keypair      *Keypair                   `json:"keypair,omitempty"`
	AgreeTOS     bool                       `json:"agreeTos"`
	Registration *registration.Resource     `json:"registration,omitempty"`
	Extra        map[string]json.RawMessage `json:"extra,omitempty"`
}

// CertificateOptions identify a certificate by domains, or the certificates of an account
type CertificateOptions struct {
	Domains   []string
	Email     string
	AccountID string
}

// CertificateRecord is an issued certificate. Subject is its storage key.
type CertificateRecord struct {
	Subject   string    `json:"subject"`
	Altnames  []string  `json:"altnames"`
	Cert      string    `json:"cert"`
	PrivKey   string    `json:"privkey"`
	Chain     string    `json:"chain"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Covers reports whether the certificate names every domain
func (c *CertificateRecord) Covers(domains []string) bool {
	names := make(map[string]bool, len(c.Altnames)+1)
	names[c.Subject] = true
	for _, n := range c.Altnames {
		names[n] = true
	}
	for _, d := range domains {
		if !names[d] {
			return false
		}
	}
	return true
}
