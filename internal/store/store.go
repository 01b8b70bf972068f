// Package store keeps ACME accounts, keypairs and certificates in a single
// indexed document that is loaded once and written back after every change.
//
// The store assumes one writer. Concurrent callers are serialized, but two
// processes sharing a backend will overwrite each other's changes.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mrled/suns/dnsrenew/internal/logger"
	"github.com/mrled/suns/dnsrenew/internal/model"
)

// Options configure a Store
type Options struct {
	Logger *slog.Logger
	// Clock stamps _lastUpdate; defaults to time.Now
	Clock func() time.Time
}

// Store is the account and certificate store
type Store struct {
	repo model.BlobRepository
	log  *slog.Logger
	now  func() time.Time

	mu   sync.Mutex
	snap *Snapshot
}

// Open loads the document from repo. A missing, unreadable or malformed
// document is replaced by an empty one, which is saved straight away.
func Open(ctx context.Context, repo model.BlobRepository, opts Options) (*Store, error) {
	s := &Store{
		repo: repo,
		log:  logger.OrDefault(opts.Logger).With(slog.String("blob", repo.Name())),
		now:  opts.Clock,
	}
	if s.now == nil {
		s.now = time.Now
	}

	data, err := repo.Load(ctx)
	if err == nil {
		snap, perr := ParseSnapshot(data)
		if perr == nil {
			s.snap = snap
			s.log.Info("Loaded store",
				slog.Int("accounts", len(snap.Accounts)),
				slog.Int("certificates", len(snap.Certificates)))
			return s, nil
		}
		err = fmt.Errorf("decode document: %w", perr)
	}

	if errors.Is(err, model.ErrBlobNotFound) {
		s.log.Info("Initializing empty store")
	} else {
		s.log.Warn("Discarding unreadable store", slog.String("error", err.Error()))
	}

	empty := NewSnapshot()
	if err := s.persist(ctx, empty); err != nil {
		return nil, err
	}
	s.snap = empty
	return s, nil
}

// persist stamps and saves snap
func (s *Store) persist(ctx context.Context, snap *Snapshot) error {
	snap.LastUpdate = s.now().UTC()
	data, err := snap.Marshal()
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	if err := s.repo.Save(ctx, data); err != nil {
		return fmt.Errorf("save store to %s: %w", s.repo.Name(), err)
	}
	s.log.Debug("Saved store",
		slog.Int("accounts", len(snap.Accounts)),
		slog.Int("certificates", len(snap.Certificates)))
	return nil
}

// mutate applies fn to a copy of the current snapshot and saves it. The copy
// replaces the current snapshot only once it is saved, so a failed fn or save
// leaves the store as it was.
func (s *Store) mutate(ctx context.Context, fn func(*Snapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.snap.Clone()
	if err := fn(next); err != nil {
		return err
	}
	if err := s.persist(ctx, next); err != nil {
		return err
	}
	s.snap = next
	return nil
}

// read runs fn against the current snapshot, which fn must not modify
func (s *Store) read(fn func(*Snapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.snap)
}

// Snapshot returns a deep copy of the current state
func (s *Store) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Clone()
}

// Validate checks the index invariant of the current state
func (s *Store) Validate() error {
	return s.read(func(snap *Snapshot) error {
		return snap.Validate()
	})
}

// Accounts returns the account operations
func (s *Store) Accounts() *Accounts {
	return &Accounts{s: s}
}

// Certificates returns the certificate operations
func (s *Store) Certificates() *Certificates {
	return &Certificates{s: s}
}
