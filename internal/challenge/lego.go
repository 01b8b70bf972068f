package challenge

import (
	"context"
	"strings"
	"time"

	legochallenge "github.com/go-acme/lego/v4/challenge"
	"github.com/go-acme/lego/v4/challenge/dns01"
)

var _ legochallenge.ProviderTimeout = (*LegoProvider)(nil)

// LegoProvider plugs a Provider into lego as its DNS-01 solver
type LegoProvider struct {
	ctx      context.Context
	provider *Provider
	opts     CallOptions
}

// NewLegoProvider adapts p to lego; ctx bounds every call lego makes
func NewLegoProvider(ctx context.Context, p *Provider, opts CallOptions) *LegoProvider {
	return &LegoProvider{ctx: ctx, provider: p, opts: opts}
}

func legoDomain(domain string) string {
	return strings.TrimPrefix(dns01.UnFqdn(domain), "*.")
}

// Present implements challenge.Provider
func (l *LegoProvider) Present(domain, token, keyAuth string) error {
	return l.provider.Present(l.ctx, l.opts, legoDomain(domain), token, keyAuth)
}

// CleanUp implements challenge.Provider
func (l *LegoProvider) CleanUp(domain, token, keyAuth string) error {
	return l.provider.CleanUpRecords(l.ctx, l.opts, legoDomain(domain), token)
}

// Timeout implements challenge.ProviderTimeout with the provider's propagation budget
func (l *LegoProvider) Timeout() (timeout, interval time.Duration) {
	policy := l.provider.policy(l.opts)
	if policy == nil || policy.WaitFor <= 0 {
		return dns01.DefaultPropagationTimeout, dns01.DefaultPollingInterval
	}
	return policy.Budget(), policy.WaitFor
}

// VerifiesPropagation reports whether Present waits for the record to propagate
func (l *LegoProvider) VerifiesPropagation() bool {
	return l.provider.policy(l.opts) != nil
}

// SkipPreCheck is a lego pre-check that reports success immediately, for use
// when Present already verifies propagation.
func SkipPreCheck(domain, fqdn, value string, check dns01.PreCheckFunc) (bool, error) {
	return true, nil
}
