package challenge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mrled/suns/dnsrenew/internal/logger"
	"github.com/mrled/suns/dnsrenew/internal/model"
	"github.com/mrled/suns/dnsrenew/internal/service/dnsverification"
	"github.com/mrled/suns/dnsrenew/internal/service/zoneresolver"
)

var (
	// ErrZoneNotFound is returned when no provider zone contains the domain
	ErrZoneNotFound = errors.New("zone not found")

	// ErrNoTXTRecord is returned by removal when there is nothing to remove
	ErrNoTXTRecord = errors.New("no TXT record")

	// ErrPropagationTimeout is returned when the record was written but never
	// observed in public DNS within the retry budget
	ErrPropagationTimeout = dnsverification.ErrPropagationTimeout
)

// RecordAPI is the DNS provider surface the challenge provider drives
type RecordAPI interface {
	zoneresolver.API

	CreateRecord(ctx context.Context, zoneID string, record model.DNSRecord) (*model.DNSRecord, error)
	UpdateRecord(ctx context.Context, zoneID string, record model.DNSRecord) (*model.DNSRecord, error)
	DeleteRecord(ctx context.Context, zoneID, recordID string) error
}

// Verifier checks what public DNS serves at a name
type Verifier interface {
	Loopback(ctx context.Context, fqdn, authContent string) ([]string, error)
	VerifyPropagation(ctx context.Context, fqdn, authContent string, policy dnsverification.Policy) error
}

// Options are the instance defaults of a Provider
type Options struct {
	// ACMEPrefix defaults to DefaultACMEPrefix
	ACMEPrefix string
	// Propagation enables verification after set when non-nil
	Propagation *dnsverification.Policy
	// Verifier defaults to a dnsverification.Service on the system resolver
	Verifier Verifier
	Logger   *slog.Logger
}

// CallOptions override the instance defaults for a single set or remove call
type CallOptions struct {
	ACMEPrefix      string
	Propagation     *dnsverification.Policy
	SkipPropagation bool
}

// State is the lifecycle position of the challenge at one name
type State int

const (
	StateIdle State = iota
	StateSetting
	StateAwaitingPropagation
	StateVerified
	StatePropagationFailed
	StateRemoving
	StateRemoved
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSetting:
		return "setting"
	case StateAwaitingPropagation:
		return "awaiting-propagation"
	case StateVerified:
		return "verified"
	case StatePropagationFailed:
		return "propagation-failed"
	case StateRemoving:
		return "removing"
	case StateRemoved:
		return "removed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Provider reconciles the challenge TXT record for a domain against a DNS provider.
// It never starts work on its own; an ACME engine calls Set and Remove.
type Provider struct {
	api      RecordAPI
	zones    *zoneresolver.Service
	verifier Verifier
	opts     Options
	log      *slog.Logger

	mu     sync.Mutex
	states map[string]State
}

// New creates a Provider on top of a provider record API
func New(api RecordAPI, opts Options) *Provider {
	if opts.ACMEPrefix == "" {
		opts.ACMEPrefix = DefaultACMEPrefix
	}
	log := logger.OrDefault(opts.Logger)
	verifier := opts.Verifier
	if verifier == nil {
		verifier = dnsverification.NewServiceWithResolver(&dnsverification.DefaultResolver{}, log)
	}

	return &Provider{
		api:      api,
		zones:    zoneresolver.NewService(api),
		verifier: verifier,
		opts:     opts,
		log:      log,
		states:   make(map[string]State),
	}
}

// Options returns the instance defaults
func (p *Provider) Options() Options {
	return p.opts
}

// State returns the lifecycle state of the challenge published at fqdn
func (p *Provider) State(fqdn string) State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.states[model.NormalizeName(fqdn)]
}

func (p *Provider) setState(fqdn string, s State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states[model.NormalizeName(fqdn)] = s
}

// enter moves the challenge at fqdn to s and returns the state it left
func (p *Provider) enter(fqdn string, s State) State {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := model.NormalizeName(fqdn)
	prev := p.states[key]
	p.states[key] = s
	return prev
}

func (p *Provider) prefix(opts CallOptions) string {
	if opts.ACMEPrefix != "" {
		return opts.ACMEPrefix
	}
	return p.opts.ACMEPrefix
}

func (p *Provider) policy(opts CallOptions) *dnsverification.Policy {
	if opts.SkipPropagation {
		return nil
	}
	if opts.Propagation != nil {
		return opts.Propagation
	}
	return p.opts.Propagation
}

func (p *Provider) zoneFor(ctx context.Context, domain string) (*model.Zone, error) {
	zone, err := p.zones.ResolveZone(ctx, domain)
	if err != nil {
		return nil, err
	}
	if zone == nil {
		return nil, fmt.Errorf("%w for %q", ErrZoneNotFound, domain)
	}
	return zone, nil
}

// Present publishes the challenge for domain so that exactly one TXT record at
// the challenge name carries the key authorization digest, then waits for
// propagation when enabled. A failed publish leaves the challenge in the state
// it was in before the call.
func (p *Provider) Present(ctx context.Context, opts CallOptions, domain, token, keyAuthorization string) error {
	c := Context{Domain: domain, ACMEPrefix: p.prefix(opts), KeyAuthorization: keyAuthorization}
	fqdn := c.FQDN()
	content := c.AuthContent()
	log := logger.WithDomain(p.log, domain).With(slog.String("fqdn", fqdn))

	log.Info("Setting ACME challenge")
	prev := p.enter(fqdn, StateSetting)

	if err := p.publish(ctx, log, domain, fqdn, content); err != nil {
		p.setState(fqdn, prev)
		return err
	}

	policy := p.policy(opts)
	if policy == nil {
		p.setState(fqdn, StateVerified)
		return nil
	}

	p.setState(fqdn, StateAwaitingPropagation)
	if err := p.verifier.VerifyPropagation(ctx, fqdn, content, *policy); err != nil {
		p.setState(fqdn, StatePropagationFailed)
		return fmt.Errorf("verify challenge for %q: %w", domain, err)
	}
	p.setState(fqdn, StateVerified)
	return nil
}

func (p *Provider) publish(ctx context.Context, log *slog.Logger, domain, fqdn, content string) error {
	zone, err := p.zoneFor(ctx, domain)
	if err != nil {
		return err
	}

	existing, err := p.zones.ResolveTXTRecords(ctx, *zone, fqdn)
	if err != nil {
		return err
	}

	plan := Reconcile(existing, model.DNSRecord{
		Type:    model.RecordTypeTXT,
		Name:    fqdn,
		Content: content,
		TTL:     RecordTTL,
	})
	log.Info("Reconciling TXT records",
		slog.String("zone", zone.Name),
		slog.Int("existing", len(existing)),
		slog.Int("delete", len(plan.ToDelete)),
		slog.Bool("create", plan.Create))

	return p.apply(ctx, *zone, plan)
}

func (p *Provider) apply(ctx context.Context, zone model.Zone, plan Plan) error {
	if len(plan.ToDelete) > 0 {
		g, gctx := errgroup.WithContext(ctx)
		for _, rec := range plan.ToDelete {
			g.Go(func() error {
				if err := p.api.DeleteRecord(gctx, zone.ID, rec.ID); err != nil {
					return fmt.Errorf("delete surplus record %s: %w", rec.ID, err)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}

	if plan.Create {
		if _, err := p.api.CreateRecord(ctx, zone.ID, plan.ToUpsert); err != nil {
			return fmt.Errorf("create TXT record %s: %w", plan.ToUpsert.Name, err)
		}
		return nil
	}

	if _, err := p.api.UpdateRecord(ctx, zone.ID, plan.ToUpsert); err != nil {
		return fmt.Errorf("update TXT record %s: %w", plan.ToUpsert.ID, err)
	}
	return nil
}

// CleanUpRecords deletes every TXT record at the challenge name for domain.
// It fails with ErrNoTXTRecord when there is none. Like Present, a failed
// removal leaves the challenge in the state it was in before the call.
func (p *Provider) CleanUpRecords(ctx context.Context, opts CallOptions, domain, token string) error {
	fqdn := FQDN(domain, p.prefix(opts))
	log := logger.WithDomain(p.log, domain).With(slog.String("fqdn", fqdn))

	log.Info("Removing ACME challenge")
	prev := p.enter(fqdn, StateRemoving)

	deleted, err := p.unpublish(ctx, domain, fqdn)
	if err != nil {
		p.setState(fqdn, prev)
		return err
	}

	p.setState(fqdn, StateRemoved)
	log.Info("Removed ACME challenge", slog.Int("deleted", deleted))
	return nil
}

func (p *Provider) unpublish(ctx context.Context, domain, fqdn string) (int, error) {
	zone, err := p.zoneFor(ctx, domain)
	if err != nil {
		return 0, err
	}

	records, err := p.zones.ResolveTXTRecords(ctx, *zone, fqdn)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, fmt.Errorf("%w at %s", ErrNoTXTRecord, fqdn)
	}

	for _, rec := range records {
		if err := p.api.DeleteRecord(ctx, zone.ID, rec.ID); err != nil {
			return 0, fmt.Errorf("delete TXT record %s: %w", rec.ID, err)
		}
	}
	return len(records), nil
}

// Set is the callback form of Present. done is called exactly once, with any
// error or recovered panic; Set itself never panics.
func (p *Provider) Set(ctx context.Context, opts CallOptions, domain, token, keyAuthorization string, done func(error)) {
	finish(p.log, done, func() error {
		return p.Present(ctx, opts, domain, token, keyAuthorization)
	})
}

// Remove is the callback form of CleanUpRecords
func (p *Provider) Remove(ctx context.Context, opts CallOptions, domain, token string, done func(error)) {
	finish(p.log, done, func() error {
		return p.CleanUpRecords(ctx, opts, domain, token)
	})
}

func finish(log *slog.Logger, done func(error), fn func() error) {
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("challenge panicked: %v", r)
		}
		if err != nil {
			log.Error("ACME challenge failed", slog.String("error", err.Error()))
		}
		if done != nil {
			done(err)
		}
	}()
	err = fn()
}

// Loopback resolves the TXT records at the challenge name for domain through
// public DNS. With an empty authContent it only checks that something resolves.
func (p *Provider) Loopback(ctx context.Context, opts CallOptions, domain, authContent string) ([]string, error) {
	return p.verifier.Loopback(ctx, FQDN(domain, p.prefix(opts)), authContent)
}
