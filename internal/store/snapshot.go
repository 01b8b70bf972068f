package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Snapshot is the whole persisted state of the store
type Snapshot struct {
	AccountIndices      Index                     `json:"accountIndices"`
	AccountKeypairs     Table[*Keypair]           `json:"accountKeypairs"`
	Accounts            Table[*AccountRecord]     `json:"accounts"`
	CertIndices         Index                     `json:"certIndices"`
	CertificateKeypairs Table[*Keypair]           `json:"certificateKeypairs"`
	Certificates        Table[*CertificateRecord] `json:"certificates"`
	AccountCerts        map[string]Index          `json:"accountCerts"`
	LastUpdate          time.Time                 `json:"_lastUpdate"`
}

// NewSnapshot returns an empty snapshot
func NewSnapshot() *Snapshot {
	s := &Snapshot{}
	s.fill()
	return s
}

// fill replaces nil maps, which a hand-edited or older document may leave out
func (s *Snapshot) fill() {
	if s.AccountIndices == nil {
		s.AccountIndices = Index{}
	}
	if s.AccountKeypairs == nil {
		s.AccountKeypairs = Table[*Keypair]{}
	}
	if s.Accounts == nil {
		s.Accounts = Table[*AccountRecord]{}
	}
	if s.CertIndices == nil {
		s.CertIndices = Index{}
	}
	if s.CertificateKeypairs == nil {
		s.CertificateKeypairs = Table[*Keypair]{}
	}
	if s.Certificates == nil {
		s.Certificates = Table[*CertificateRecord]{}
	}
	if s.AccountCerts == nil {
		s.AccountCerts = map[string]Index{}
	}
}

// ParseSnapshot decodes a persisted document
func ParseSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	s.fill()
	return &s, nil
}

// Marshal encodes the snapshot in its persisted form
func (s *Snapshot) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

// Clone returns a deep copy
func (s *Snapshot) Clone() *Snapshot {
	data, err := s.Marshal()
	if err != nil {
		// Every field is plain data; encoding cannot fail.
		panic(fmt.Sprintf("store: encode snapshot: %v", err))
	}
	c, err := ParseSnapshot(data)
	if err != nil {
		panic(fmt.Sprintf("store: decode snapshot: %v", err))
	}
	return c
}

// Validate checks that every index entry leads to a stored record.
// A dangling entry means the document was corrupted.
func (s *Snapshot) Validate() error {
	var errs []error

	for _, key := range s.AccountIndices.Keys() {
		id, _ := s.AccountIndices.Resolve(key)
		if !s.AccountKeypairs.Has(id) && !s.Accounts.Has(id) {
			errs = append(errs, fmt.Errorf("%w: account index %q points at missing account %q", ErrIntegrity, key, id))
		}
	}

	for _, key := range s.CertIndices.Keys() {
		subject, _ := s.CertIndices.Lookup(key)
		if !s.Certificates.Has(subject) && !s.CertificateKeypairs.Has(subject) {
			errs = append(errs, fmt.Errorf("%w: certificate index %q points at missing certificate %q", ErrIntegrity, key, subject))
		}
	}

	for accountID, subjects := range s.AccountCerts {
		if !s.Accounts.Has(accountID) {
			errs = append(errs, fmt.Errorf("%w: certificates linked to missing account %q", ErrIntegrity, accountID))
		}
		for _, subject := range subjects.Keys() {
			if _, ok := s.CertIndices.Lookup(subject); !ok {
				errs = append(errs, fmt.Errorf("%w: account %q links unindexed certificate %q", ErrIntegrity, accountID, subject))
			}
		}
	}

	return errors.Join(errs...)
}
