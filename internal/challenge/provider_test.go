package challenge

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrled/suns/dnsrenew/internal/logger"
	"github.com/mrled/suns/dnsrenew/internal/model"
	"github.com/mrled/suns/dnsrenew/internal/provider/providertest"
	"github.com/mrled/suns/dnsrenew/internal/service/dnsverification"
)

const (
	testFQDN    = "_acme-challenge.example.com"
	testKeyAuth = "token.thumbprint"
)

type fakeVerifier struct {
	err      error
	calls    int
	lastName string
	lastWant string
	policy   dnsverification.Policy
}

func (f *fakeVerifier) Loopback(ctx context.Context, fqdn, authContent string) ([]string, error) {
	f.lastName = fqdn
	f.lastWant = authContent
	return []string{authContent}, f.err
}

func (f *fakeVerifier) VerifyPropagation(ctx context.Context, fqdn, authContent string, policy dnsverification.Policy) error {
	f.calls++
	f.lastName = fqdn
	f.lastWant = authContent
	f.policy = policy
	return f.err
}

func newTestProvider(opts Options) (*Provider, *providertest.Provider) {
	api := providertest.New(model.Zone{ID: "z1", Name: "example.com"})
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	if opts.Verifier == nil {
		opts.Verifier = &fakeVerifier{}
	}
	return New(api, opts), api
}

func staleRecords(n int) []model.DNSRecord {
	records := make([]model.DNSRecord, n)
	for i := range records {
		records[i] = model.DNSRecord{Type: "TXT", Name: testFQDN, Content: fmt.Sprintf("stale-%d", i), TTL: 3600}
	}
	return records
}

func TestPresent_EndToEnd(t *testing.T) {
	p, api := newTestProvider(Options{ACMEPrefix: "_acme-challenge"})
	api.Seed("z1", staleRecords(2)...)
	api.Seed("z1", model.DNSRecord{Type: "TXT", Name: "other.example.com", Content: "keep"})

	err := p.Present(context.Background(), CallOptions{}, "example.com", "token", testKeyAuth)
	require.NoError(t, err)

	assert.Equal(t, 1, api.Calls.Delete)
	assert.Equal(t, 1, api.Calls.Update)
	assert.Equal(t, 0, api.Calls.Create)

	records := api.TXTRecords("z1", testFQDN)
	require.Len(t, records, 1)
	assert.Equal(t, AuthContent(testKeyAuth), records[0].Content)
	assert.Equal(t, RecordTTL, records[0].TTL)
	assert.Len(t, api.TXTRecords("z1", "other.example.com"), 1)
	assert.Equal(t, StateVerified, p.State(testFQDN))
}

func TestPresent_ConvergesForAnyCount(t *testing.T) {
	for n := 0; n <= 4; n++ {
		t.Run(fmt.Sprintf("%d existing", n), func(t *testing.T) {
			p, api := newTestProvider(Options{})
			api.Seed("z1", staleRecords(n)...)

			require.NoError(t, p.Present(context.Background(), CallOptions{}, "example.com", "token", testKeyAuth))

			records := api.TXTRecords("z1", testFQDN)
			require.Len(t, records, 1)
			assert.Equal(t, AuthContent(testKeyAuth), records[0].Content)

			if n == 0 {
				assert.Equal(t, 1, api.Calls.Create)
			} else {
				assert.Equal(t, n-1, api.Calls.Delete)
				assert.Equal(t, 1, api.Calls.Update)
			}
		})
	}
}

func TestPresent_ZoneNotFound(t *testing.T) {
	p, _ := newTestProvider(Options{})

	err := p.Present(context.Background(), CallOptions{}, "example.org", "token", testKeyAuth)
	require.ErrorIs(t, err, ErrZoneNotFound)
	assert.Equal(t, StateIdle, p.State("_acme-challenge.example.org"))
}

func TestPresent_Subdomain(t *testing.T) {
	p, api := newTestProvider(Options{})

	require.NoError(t, p.Present(context.Background(), CallOptions{}, "www.example.com", "token", testKeyAuth))
	assert.Len(t, api.TXTRecords("z1", "_acme-challenge.www.example.com"), 1)
}

func TestPresent_SurplusDeleteFailure(t *testing.T) {
	p, api := newTestProvider(Options{})
	api.Seed("z1", staleRecords(3)...)
	api.DeleteErr = errors.New("rate limited")

	err := p.Present(context.Background(), CallOptions{}, "example.com", "token", testKeyAuth)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
	assert.Equal(t, 0, api.Calls.Update)
	assert.Equal(t, StateIdle, p.State(testFQDN))
}

func TestPresent_VerifiesPropagation(t *testing.T) {
	verifier := &fakeVerifier{}
	policy := &dnsverification.Policy{WaitFor: time.Second, Retries: 3}
	p, _ := newTestProvider(Options{Verifier: verifier, Propagation: policy})

	require.NoError(t, p.Present(context.Background(), CallOptions{}, "example.com", "token", testKeyAuth))
	assert.Equal(t, 1, verifier.calls)
	assert.Equal(t, testFQDN, verifier.lastName)
	assert.Equal(t, AuthContent(testKeyAuth), verifier.lastWant)
	assert.Equal(t, *policy, verifier.policy)
	assert.Equal(t, StateVerified, p.State(testFQDN))
}

func TestPresent_CallOptionsOverride(t *testing.T) {
	verifier := &fakeVerifier{}
	p, api := newTestProvider(Options{Verifier: verifier, Propagation: &dnsverification.Policy{WaitFor: time.Second}})

	override := &dnsverification.Policy{WaitFor: time.Millisecond, Retries: 1}
	require.NoError(t, p.Present(context.Background(), CallOptions{ACMEPrefix: "_custom", Propagation: override}, "example.com", "token", testKeyAuth))
	assert.Len(t, api.TXTRecords("z1", "_custom.example.com"), 1)
	assert.Equal(t, *override, verifier.policy)

	require.NoError(t, p.Present(context.Background(), CallOptions{SkipPropagation: true}, "example.com", "token", testKeyAuth))
	assert.Equal(t, 1, verifier.calls)
}

func TestPresent_PropagationTimeout(t *testing.T) {
	verifier := &fakeVerifier{err: fmt.Errorf("%w: gave up", dnsverification.ErrPropagationTimeout)}
	p, api := newTestProvider(Options{Verifier: verifier, Propagation: &dnsverification.Policy{WaitFor: time.Millisecond}})

	err := p.Present(context.Background(), CallOptions{}, "example.com", "token", testKeyAuth)
	require.ErrorIs(t, err, ErrPropagationTimeout)
	assert.Equal(t, StatePropagationFailed, p.State(testFQDN))
	assert.Len(t, api.TXTRecords("z1", testFQDN), 1, "record stays for removal")
}

func TestCleanUpRecords(t *testing.T) {
	p, api := newTestProvider(Options{})
	ctx := context.Background()

	require.NoError(t, p.Present(ctx, CallOptions{}, "example.com", "token", testKeyAuth))
	require.NoError(t, p.CleanUpRecords(ctx, CallOptions{}, "example.com", "token"))
	assert.Empty(t, api.TXTRecords("z1", testFQDN))
	assert.Equal(t, StateRemoved, p.State(testFQDN))

	err := p.CleanUpRecords(ctx, CallOptions{}, "example.com", "token")
	require.ErrorIs(t, err, ErrNoTXTRecord)
}

func TestCleanUpRecords_DeletesAllDuplicates(t *testing.T) {
	p, api := newTestProvider(Options{})
	api.Seed("z1", staleRecords(3)...)

	require.NoError(t, p.CleanUpRecords(context.Background(), CallOptions{}, "example.com", "token"))
	assert.Empty(t, api.TXTRecords("z1", testFQDN))
	assert.Equal(t, 3, api.Calls.Delete)
}

func TestCleanUpRecords_ZoneNotFound(t *testing.T) {
	p, _ := newTestProvider(Options{})
	err := p.CleanUpRecords(context.Background(), CallOptions{}, "example.org", "token")
	require.ErrorIs(t, err, ErrZoneNotFound)
	assert.Equal(t, StateIdle, p.State("_acme-challenge.example.org"))
}

func TestCleanUpRecords_DeleteFailureKeepsPriorState(t *testing.T) {
	p, api := newTestProvider(Options{})
	ctx := context.Background()

	require.NoError(t, p.Present(ctx, CallOptions{}, "example.com", "token", testKeyAuth))
	require.Equal(t, StateVerified, p.State(testFQDN))

	api.DeleteErr = errors.New("rate limited")
	err := p.CleanUpRecords(ctx, CallOptions{}, "example.com", "token")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
	assert.Equal(t, StateVerified, p.State(testFQDN))
	assert.Len(t, api.TXTRecords("z1", testFQDN), 1)

	api.DeleteErr = nil
	require.NoError(t, p.CleanUpRecords(ctx, CallOptions{}, "example.com", "token"))
	assert.Equal(t, StateRemoved, p.State(testFQDN))
}

// panicAPI blows up on create to exercise the callback boundary
type panicAPI struct {
	*providertest.Provider
}

func (panicAPI) CreateRecord(ctx context.Context, zoneID string, record model.DNSRecord) (*model.DNSRecord, error) {
	panic("boom")
}

func TestSetAndRemove_Callbacks(t *testing.T) {
	p, api := newTestProvider(Options{})
	ctx := context.Background()

	var calls int
	var got error
	p.Set(ctx, CallOptions{}, "example.com", "token", testKeyAuth, func(err error) {
		calls++
		got = err
	})
	assert.Equal(t, 1, calls)
	require.NoError(t, got)
	assert.Len(t, api.TXTRecords("z1", testFQDN), 1)

	p.Remove(ctx, CallOptions{}, "example.com", "token", func(err error) {
		calls++
		got = err
	})
	assert.Equal(t, 2, calls)
	require.NoError(t, got)

	p.Remove(ctx, CallOptions{}, "example.com", "token", func(err error) {
		calls++
		got = err
	})
	assert.Equal(t, 3, calls)
	require.ErrorIs(t, got, ErrNoTXTRecord)
}

func TestSet_RecoversPanic(t *testing.T) {
	api := panicAPI{providertest.New(model.Zone{ID: "z1", Name: "example.com"})}
	p := New(api, Options{Logger: logger.Discard(), Verifier: &fakeVerifier{}})

	var got error
	assert.NotPanics(t, func() {
		p.Set(context.Background(), CallOptions{}, "example.com", "token", testKeyAuth, func(err error) {
			got = err
		})
	})
	require.Error(t, got)
	assert.Contains(t, got.Error(), "boom")
}

func TestLoopback(t *testing.T) {
	verifier := &fakeVerifier{}
	p, _ := newTestProvider(Options{Verifier: verifier})

	records, err := p.Loopback(context.Background(), CallOptions{}, "example.com", "")
	require.NoError(t, err)
	assert.Equal(t, testFQDN, verifier.lastName)
	assert.Equal(t, []string{""}, records)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "awaiting-propagation", StateAwaitingPropagation.String())
	assert.Equal(t, "state(42)", State(42).String())
}

func TestCreate_RequiresCredentials(t *testing.T) {
	_, err := Create(CreateOptions{Email: "me@example.com"})
	require.Error(t, err)

	p, err := Create(CreateOptions{Token: "tok", Logger: logger.Discard()})
	require.NoError(t, err)
	assert.Equal(t, DefaultACMEPrefix, p.Options().ACMEPrefix)
	assert.Nil(t, p.Options().Propagation)
}
