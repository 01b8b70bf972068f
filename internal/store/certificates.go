package store

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
)

// Certificates manages certificate keypairs and issued certificates
type Certificates struct {
	s *Store
}

func cloneCert(c *CertificateRecord) *CertificateRecord {
	if c == nil {
		return nil
	}
	out := *c
	out.Altnames = slices.Clone(c.Altnames)
	return &out
}

// SetKeypair stores the keypair of a certificate under its subject, the first
// of opts.Domains, and indexes every domain to that subject.
func (c *Certificates) SetKeypair(ctx context.Context, opts CertificateOptions, kp Keypair) (*Keypair, error) {
	if len(opts.Domains) == 0 || opts.Domains[0] == "" {
		return nil, fmt.Errorf("%w: domains are required to set a certificate keypair", ErrValidation)
	}
	if opts.Email == "" {
		return nil, fmt.Errorf("%w: email is required to set a certificate keypair", ErrValidation)
	}
	if err := validateKeypair(&kp); err != nil {
		return nil, err
	}

	subject := opts.Domains[0]
	err := c.s.mutate(ctx, func(snap *Snapshot) error {
		snap.CertIndices.Set(subject, opts.Domains...)
		snap.CertificateKeypairs.Put(subject, kp.clone())
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.s.log.Info("Stored certificate keypair", slog.String("subject", subject))
	return kp.clone(), nil
}

// CheckKeypair returns the keypair of the certificate indexed under the first
// of opts.Domains, or nil.
func (c *Certificates) CheckKeypair(ctx context.Context, opts CertificateOptions) (*Keypair, error) {
	if len(opts.Domains) == 0 {
		return nil, fmt.Errorf("%w: domains are required to check a certificate keypair", ErrValidation)
	}

	var out *Keypair
	err := c.s.read(func(snap *Snapshot) error {
		if subject, ok := snap.CertIndices.Lookup(opts.Domains[0]); ok {
			if kp, ok := snap.CertificateKeypairs.Get(subject); ok {
				out = kp.clone()
			}
		}
		return nil
	})
	return out, err
}

// Set stores an issued certificate for the account named by opts.AccountID or
// opts.Email. The subject is certs.Subject, or the first of opts.Domains; the
// subject and every altname (certs.Altnames, or opts.Domains) are indexed to
// it. The certificate is returned as given.
func (c *Certificates) Set(ctx context.Context, opts CertificateOptions, certs CertificateRecord) (*CertificateRecord, error) {
	key := opts.AccountID
	if key == "" {
		key = opts.Email
	}
	if key == "" {
		return nil, fmt.Errorf("%w: email or accountId is required", ErrValidation)
	}

	subject := certs.Subject
	if subject == "" && len(opts.Domains) > 0 {
		subject = opts.Domains[0]
	}
	if subject == "" {
		return nil, fmt.Errorf("%w: certificate subject or domains are required", ErrValidation)
	}
	altnames := certs.Altnames
	if len(altnames) == 0 {
		altnames = opts.Domains
	}

	err := c.s.mutate(ctx, func(snap *Snapshot) error {
		accountID, ok := snap.AccountIndices.Resolve(key)
		if !ok || !snap.Accounts.Has(accountID) {
			return fmt.Errorf("%w: account must exist before storing a certificate", ErrIntegrity)
		}

		snap.CertIndices.Set(subject, subject)
		snap.CertIndices.Set(subject, altnames...)

		linked := snap.AccountCerts[accountID]
		if linked == nil {
			linked = Index{}
			snap.AccountCerts[accountID] = linked
		}
		linked.Set(subject, subject)

		snap.Certificates.Put(subject, cloneCert(&certs))
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.s.log.Info("Stored certificate",
		slog.String("subject", subject),
		slog.Time("expiresAt", certs.ExpiresAt))
	return &certs, nil
}

// Check returns the certificate indexed under the first of opts.Domains, or nil
func (c *Certificates) Check(ctx context.Context, opts CertificateOptions) (*CertificateRecord, error) {
	if len(opts.Domains) == 0 {
		return nil, fmt.Errorf("%w: domains are required to check a certificate", ErrValidation)
	}

	var out *CertificateRecord
	err := c.s.read(func(snap *Snapshot) error {
		if subject, ok := snap.CertIndices.Lookup(opts.Domains[0]); ok {
			if cert, ok := snap.Certificates.Get(subject); ok {
				out = cloneCert(cert)
			}
		}
		return nil
	})
	return out, err
}

// CheckAccount returns the certificates linked to the account named by
// opts.AccountID or opts.Email, sorted by subject. Each link is resolved through
// the certificate index again, so a certificate moved to a new subject is still
// found. Links that no longer lead to a certificate are skipped.
func (c *Certificates) CheckAccount(ctx context.Context, opts CertificateOptions) ([]*CertificateRecord, error) {
	key := opts.AccountID
	if key == "" {
		key = opts.Email
	}
	if key == "" {
		return nil, fmt.Errorf("%w: email or accountId is required", ErrValidation)
	}

	out := []*CertificateRecord{}
	err := c.s.read(func(snap *Snapshot) error {
		accountID, ok := snap.AccountIndices.Resolve(key)
		if !ok {
			return nil
		}
		for _, linked := range snap.AccountCerts[accountID].Keys() {
			subject, ok := snap.CertIndices.Lookup(linked)
			if !ok {
				continue
			}
			if cert, ok := snap.Certificates.Get(subject); ok {
				out = append(out, cloneCert(cert))
			}
		}
		return nil
	})
	return out, err
}
