package store

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
)

// Accounts manages ACME account keypairs and registrations
type Accounts struct {
	s *Store
}

func validateKeypair(kp *Keypair) error {
	switch {
	case kp == nil:
		return fmt.Errorf("%w: keypair is required", ErrValidation)
	case len(kp.PrivateKeyJWK) == 0:
		return fmt.Errorf("%w: keypair.privateKeyJwk is required", ErrValidation)
	case kp.PrivateKeyPEM == "":
		return fmt.Errorf("%w: keypair.privateKeyPem is required", ErrValidation)
	case kp.PublicKeyPEM == "":
		return fmt.Errorf("%w: keypair.publicKeyPem is required", ErrValidation)
	}
	return nil
}

// keypairKey returns the index key identifying kp, or "" when kp carries no public key
func keypairKey(kp *Keypair) (string, error) {
	switch {
	case kp == nil:
		return "", nil
	case kp.PublicKeyPEM != "":
		return AccountID(kp.PublicKeyPEM), nil
	case len(kp.PublicKeyJWK) > 0:
		return "", fmt.Errorf("%w: account lookup by publicKeyJwk", ErrNotImplemented)
	}
	return "", nil
}

// SetKeypair stores an account keypair, indexed by its account ID and by email.
// Setting the same public key again overwrites it in place.
func (a *Accounts) SetKeypair(ctx context.Context, opts AccountOptions, kp Keypair) (*Keypair, error) {
	if opts.Email == "" {
		return nil, fmt.Errorf("%w: email is required to set an account keypair", ErrValidation)
	}
	if err := validateKeypair(&kp); err != nil {
		return nil, err
	}

	id := AccountID(kp.PublicKeyPEM)
	err := a.s.mutate(ctx, func(snap *Snapshot) error {
		snap.AccountIndices.Set(id, id, opts.Email)
		snap.AccountKeypairs.Put(id, kp.clone())
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.s.log.Info("Stored account keypair", slog.String("accountId", id), slog.String("email", opts.Email))
	return kp.clone(), nil
}

// CheckKeypair returns the account keypair matching opts.Keypair's public key,
// or failing that opts.Email. It returns nil when none is stored.
func (a *Accounts) CheckKeypair(ctx context.Context, opts AccountOptions) (*Keypair, error) {
	key, err := keypairKey(opts.Keypair)
	if err != nil {
		return nil, err
	}
	if key == "" {
		key = opts.Email
	}
	if key == "" {
		return nil, fmt.Errorf("%w: email or keypair.publicKeyPem is required", ErrValidation)
	}

	var out *Keypair
	err = a.s.read(func(snap *Snapshot) error {
		if id, ok := snap.AccountIndices.Resolve(key); ok {
			if kp, ok := snap.AccountKeypairs.Get(id); ok {
				out = kp.clone()
			}
		}
		return nil
	})
	return out, err
}

// Set records the registration of an account whose keypair was stored with SetKeypair.
// The account is identified by the registration's keypair, opts.Keypair, or opts.Email.
func (a *Accounts) Set(ctx context.Context, opts AccountOptions, reg Registration) (*AccountRecord, error) {
	kp := reg.Keypair
	if kp == nil {
		kp = opts.Keypair
	}

	key, err := keypairKey(kp)
	if err != nil {
		return nil, err
	}
	if key == "" {
		key = opts.Email
	}
	if key == "" {
		return nil, fmt.Errorf("%w: email or keypair.publicKeyPem is required", ErrValidation)
	}

	var out *AccountRecord
	err = a.s.mutate(ctx, func(snap *Snapshot) error {
		id, ok := snap.AccountIndices.Resolve(key)
		if !ok {
			return fmt.Errorf("%w: keypair was not previously set with email and keypair.publicKeyPem", ErrIntegrity)
		}

		stored := kp
		if stored == nil {
			stored, _ = snap.AccountKeypairs.Get(id)
		}
		email := opts.Email
		if prev, ok := snap.Accounts.Get(id); ok && email == "" {
			email = prev.Email
		}

		rec := &AccountRecord{
			ID:           id,
			AccountID:    id,
			Email:        email,
			Keypair:      stored.clone(),
			AgreeTOS:     opts.AgreeTOS || reg.AgreeTOS,
			Registration: reg.Resource,
			Extra:        maps.Clone(reg.Extra),
		}
		snap.Accounts.Put(id, rec)
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.s.log.Info("Stored account", slog.String("accountId", out.ID), slog.String("email", out.Email))
	c := *out
	c.Keypair = out.Keypair.clone()
	return &c, nil
}

// Check returns the account identified by opts.AccountID, the keypair's public
// key, opts.Email or the first of opts.Domains, in that order. The returned
// record carries the stored keypair. It returns nil when no account is found.
func (a *Accounts) Check(ctx context.Context, opts AccountOptions) (*AccountRecord, error) {
	var key string
	switch {
	case opts.AccountID != "":
		key = opts.AccountID
	case opts.Keypair != nil && (opts.Keypair.PublicKeyPEM != "" || len(opts.Keypair.PublicKeyJWK) > 0):
		k, err := keypairKey(opts.Keypair)
		if err != nil {
			return nil, err
		}
		key = k
	case opts.Email != "":
		key = opts.Email
	case len(opts.Domains) > 0 && opts.Domains[0] != "":
		key = opts.Domains[0]
	default:
		return nil, fmt.Errorf("%w: accountId, email or keypair.publicKeyPem is required", ErrValidation)
	}

	var out *AccountRecord
	err := a.s.read(func(snap *Snapshot) error {
		id, ok := snap.AccountIndices.Resolve(key)
		if !ok {
			return nil
		}
		rec, ok := snap.Accounts.Get(id)
		if !ok {
			return nil
		}
		c := *rec
		c.Extra = maps.Clone(rec.Extra)
		if kp, ok := snap.AccountKeypairs.Get(id); ok {
			c.Keypair = kp.clone()
		} else {
			c.Keypair = nil
		}
		out = &c
		return nil
	})
	return out, err
}
