package dnsverification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"slices"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/mrled/suns/dnsrenew/internal/logger"
)

var (
	// ErrContentNotFound is returned when TXT records resolve but none carries the expected content
	ErrContentNotFound = errors.New("expected TXT content not present")

	// ErrPropagationTimeout is returned when the retry budget runs out before
	// the expected content is observed in public DNS
	ErrPropagationTimeout = errors.New("TXT record did not propagate")
)

// Resolver is an interface for DNS lookups, allowing dependency injection
// for testing with mock implementations
type Resolver interface {
	// LookupTXT returns the TXT records for the given name
	LookupTXT(ctx context.Context, name string) ([]string, error)
}

// DefaultResolver wraps the system resolver
type DefaultResolver struct{}

// LookupTXT implements Resolver.LookupTXT using net.DefaultResolver
func (r *DefaultResolver) LookupTXT(ctx context.Context, name string) ([]string, error) {
	return net.DefaultResolver.LookupTXT(ctx, name)
}

// CustomResolver uses a specific DNS server with a timeout and no retries
type CustomResolver struct {
	server string
}

// NewCustomResolver creates a resolver that uses the specified DNS server
// The server should be in the format "host:port" (e.g., "1.1.1.1:53")
func NewCustomResolver(server string) *CustomResolver {
	return &CustomResolver{
		server: server,
	}
}

// LookupTXT implements Resolver.LookupTXT using a custom DNS server
func (r *CustomResolver) LookupTXT(ctx context.Context, name string) ([]string, error) {
	resolver := &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
			d := net.Dialer{
				Timeout: 2 * time.Second,
			}
			return d.DialContext(ctx, "udp", r.server)
		},
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return resolver.LookupTXT(ctx, name)
}

// Policy is the retry budget for propagation polling.
// Retries counts additional attempts after the first one.
type Policy struct {
	WaitFor time.Duration `json:"waitFor"`
	Retries int           `json:"retries"`
}

// DefaultPolicy waits five seconds between up to 21 attempts
func DefaultPolicy() Policy {
	return Policy{WaitFor: 5 * time.Second, Retries: 20}
}

// Budget is the longest time a verification with this policy may wait
func (p Policy) Budget() time.Duration {
	return p.WaitFor * time.Duration(p.Retries+1)
}

// Service checks what public DNS serves for a challenge name, independently
// of the DNS provider's own view of its records
type Service struct {
	resolver Resolver
	log      *slog.Logger
}

// NewService creates a new TXT lookup service with the default resolver
func NewService() *Service {
	return NewServiceWithResolver(&DefaultResolver{}, nil)
}

// NewServiceWithResolver creates a new TXT lookup service with a custom resolver
// This is useful for testing with mock resolvers
func NewServiceWithResolver(resolver Resolver, log *slog.Logger) *Service {
	return &Service{
		resolver: resolver,
		log:      logger.OrDefault(log),
	}
}

// Loopback resolves the TXT records at fqdn. When authContent is non-empty it
// also requires that value to be among them; with an empty authContent it is a
// plain existence probe. Lookup failures are returned as-is.
func (s *Service) Loopback(ctx context.Context, fqdn, authContent string) ([]string, error) {
	if fqdn == "" {
		return nil, fmt.Errorf("fqdn cannot be empty")
	}

	s.log.Debug("Testing TXT record existence", slog.String("fqdn", fqdn))
	records, err := s.resolver.LookupTXT(ctx, fqdn)
	if err != nil {
		return nil, fmt.Errorf("lookup TXT %s: %w", fqdn, err)
	}

	if authContent != "" && !slices.Contains(records, authContent) {
		return records, fmt.Errorf("%w at %s", ErrContentNotFound, fqdn)
	}

	return records, nil
}

// VerifyPropagation polls Loopback up to policy.Retries+1 times, sleeping
// policy.WaitFor after each miss. It returns nil as soon as authContent is seen,
// ErrPropagationTimeout once the budget is exhausted, or the context error if
// ctx ends first.
func (s *Service) VerifyPropagation(ctx context.Context, fqdn, authContent string, policy Policy) error {
	wait := policy.WaitFor
	if wait <= 0 {
		wait = time.Nanosecond
	}
	retries := policy.Retries
	if retries < 0 {
		retries = 0
	}

	log := s.log.With(slog.String("fqdn", fqdn))
	log.Info("Awaiting propagation of TXT record",
		slog.Duration("wait", policy.WaitFor),
		slog.Int("retries", retries))

	attempt := 0
	var lastErr error
	backoff := retry.WithMaxRetries(uint64(retries), retry.NewConstant(wait))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if _, err := s.Loopback(ctx, fqdn, authContent); err != nil {
			lastErr = err
			log.Info("Propagation check failed",
				slog.Int("attempt", attempt),
				slog.Int("retries", retries),
				slog.Duration("wait", policy.WaitFor),
				slog.String("error", err.Error()))
			return retry.RetryableError(err)
		}
		return nil
	})
	if err == nil {
		log.Info("TXT record propagated", slog.Int("attempts", attempt))
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("propagation check for %s interrupted after %d attempts: %w", fqdn, attempt, ctxErr)
	}
	return fmt.Errorf("%w: %s not verified after %d attempts: %w", ErrPropagationTimeout, fqdn, attempt, lastErr)
}

// isNotFoundError checks if the error indicates a DNS record was not found
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsNotFound
	}

	return false
}
