// Package issue obtains and renews certificates through an ACME server,
// answering DNS-01 challenges with a challenge.Provider and keeping accounts,
// keys and certificates in the store.
package issue

import (
	"context"
	"crypto"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-acme/lego/v4/certcrypto"
	"github.com/go-acme/lego/v4/certificate"
	"github.com/go-acme/lego/v4/challenge/dns01"
	"github.com/go-acme/lego/v4/lego"
	"github.com/go-acme/lego/v4/registration"

	"github.com/mrled/suns/dnsrenew/internal/challenge"
	"github.com/mrled/suns/dnsrenew/internal/logger"
	"github.com/mrled/suns/dnsrenew/internal/store"
)

// DefaultRenewBefore is how long before expiry a certificate is renewed
const DefaultRenewBefore = 30 * 24 * time.Hour

// Options configure an Issuer
type Options struct {
	// DirectoryURL overrides the ACME directory; defaults to Let's Encrypt production
	DirectoryURL string
	RenewBefore  time.Duration
	// Challenge is passed to the challenge provider on every call
	Challenge challenge.CallOptions
	Logger    *slog.Logger
	Clock     func() time.Time

	ClientFactory  ClientFactory
	AccountKey     KeyMaker
	CertificateKey KeyMaker
}

// Request names the certificate to issue. The first domain is its subject.
type Request struct {
	Email   string
	Domains []string
}

// Result reports what Run did
type Result struct {
	// Skipped is set when the stored certificate is still good
	Skipped     bool
	Certificate *store.CertificateRecord
}

// Issuer runs the issuance workflow
type Issuer struct {
	store    *store.Store
	provider *challenge.Provider
	opts     Options
	log      *slog.Logger
}

// NewIssuer creates an Issuer
func NewIssuer(st *store.Store, provider *challenge.Provider, opts Options) *Issuer {
	if opts.DirectoryURL == "" {
		opts.DirectoryURL = lego.LEDirectoryProduction
	}
	if opts.RenewBefore == 0 {
		opts.RenewBefore = DefaultRenewBefore
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.ClientFactory == nil {
		opts.ClientFactory = NewLegoClient
	}
	if opts.AccountKey == nil {
		opts.AccountKey = NewAccountKey
	}
	if opts.CertificateKey == nil {
		opts.CertificateKey = NewCertificateKey
	}

	return &Issuer{
		store:    st,
		provider: provider,
		opts:     opts,
		log:      logger.OrDefault(opts.Logger),
	}
}

func (r *Request) normalize() error {
	r.Email = strings.TrimSpace(r.Email)
	if r.Email == "" {
		return errors.New("email is required")
	}
	domains := make([]string, 0, len(r.Domains))
	for _, d := range r.Domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			return errors.New("domain entries cannot be empty")
		}
		domains = append(domains, d)
	}
	if len(domains) == 0 {
		return errors.New("at least one domain is required")
	}
	r.Domains = domains
	return nil
}

// Run issues a certificate for req.Domains unless the stored one covers them
// and does not expire within the renewal window.
func (i *Issuer) Run(ctx context.Context, req Request) (*Result, error) {
	if err := req.normalize(); err != nil {
		return nil, err
	}
	log := logger.WithDomain(i.log, req.Domains[0])

	current, err := i.store.Certificates().Check(ctx, store.CertificateOptions{Domains: req.Domains})
	if err != nil {
		return nil, fmt.Errorf("check stored certificate: %w", err)
	}
	renewAt := i.opts.Clock().Add(i.opts.RenewBefore)
	if current != nil && current.Covers(req.Domains) && current.ExpiresAt.After(renewAt) {
		log.Info("Certificate is current",
			slog.Time("expiresAt", current.ExpiresAt),
			slog.Duration("renewBefore", i.opts.RenewBefore))
		return &Result{Skipped: true, Certificate: current}, nil
	}

	user, err := i.account(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := lego.NewConfig(user)
	cfg.CADirURL = i.opts.DirectoryURL
	cfg.Certificate.KeyType = certcrypto.RSA2048

	client, err := i.opts.ClientFactory(cfg)
	if err != nil {
		return nil, fmt.Errorf("create acme client: %w", err)
	}

	if user.registration == nil {
		if err := i.register(ctx, client, user); err != nil {
			return nil, err
		}
	}

	solver := challenge.NewLegoProvider(ctx, i.provider, i.opts.Challenge)
	var challengeOpts []dns01.ChallengeOption
	if solver.VerifiesPropagation() {
		challengeOpts = append(challengeOpts, dns01.WrapPreCheck(challenge.SkipPreCheck))
	}
	if err := client.SetDNS01Provider(solver, challengeOpts...); err != nil {
		return nil, fmt.Errorf("configure dns-01 provider: %w", err)
	}

	certKey, err := i.certificateKey(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log.Info("Requesting certificate", slog.Any("domains", req.Domains))
	res, err := client.Obtain(certificate.ObtainRequest{
		Domains:    req.Domains,
		Bundle:     false,
		PrivateKey: certKey,
	})
	if err != nil {
		return nil, fmt.Errorf("obtain certificate: %w", err)
	}

	record, err := certificateRecord(req, res)
	if err != nil {
		return nil, err
	}
	stored, err := i.store.Certificates().Set(ctx, store.CertificateOptions{Email: req.Email, Domains: req.Domains}, *record)
	if err != nil {
		return nil, fmt.Errorf("store certificate: %w", err)
	}

	log.Info("Certificate issued", slog.Time("expiresAt", stored.ExpiresAt))
	return &Result{Certificate: stored}, nil
}

// account loads the account key for email, generating and storing one if
// needed, together with any registration already recorded for it.
func (i *Issuer) account(ctx context.Context, email string) (*accountUser, error) {
	accounts := i.store.Accounts()

	kp, err := accounts.CheckKeypair(ctx, store.AccountOptions{Email: email})
	if err != nil {
		return nil, fmt.Errorf("check account keypair: %w", err)
	}
	if kp == nil {
		key, err := i.opts.AccountKey()
		if err != nil {
			return nil, fmt.Errorf("generate account key: %w", err)
		}
		encoded, err := EncodeKeypair(key)
		if err != nil {
			return nil, err
		}
		if kp, err = accounts.SetKeypair(ctx, store.AccountOptions{Email: email}, encoded); err != nil {
			return nil, fmt.Errorf("store account keypair: %w", err)
		}
	}

	key, err := DecodeKeypair(kp)
	if err != nil {
		return nil, err
	}
	user := &accountUser{email: email, key: key}

	rec, err := accounts.Check(ctx, store.AccountOptions{Email: email})
	if err != nil {
		return nil, fmt.Errorf("check account: %w", err)
	}
	if rec != nil && rec.Registration != nil {
		user.registration = rec.Registration
	}
	return user, nil
}

// register finds the ACME account for the user's key, creating it when the
// server does not know the key, and records it in the store.
func (i *Issuer) register(ctx context.Context, client ACMEClient, user *accountUser) error {
	reg, err := client.ResolveAccountByKey()
	if err != nil {
		i.log.Debug("No existing ACME account for key", slog.String("error", err.Error()))
		reg, err = client.Register(registration.RegisterOptions{TermsOfServiceAgreed: true})
		if err != nil {
			return fmt.Errorf("register account: %w", err)
		}
		i.log.Info("Registered ACME account", slog.String("email", user.email), slog.String("uri", reg.URI))
	}
	user.registration = reg

	_, err = i.store.Accounts().Set(ctx,
		store.AccountOptions{Email: user.email, AgreeTOS: true},
		store.Registration{AgreeTOS: true, Resource: reg})
	if err != nil {
		return fmt.Errorf("store account: %w", err)
	}
	return nil
}

// certificateKey loads or creates the private key for the certificate
func (i *Issuer) certificateKey(ctx context.Context, req Request) (crypto.PrivateKey, error) {
	certs := i.store.Certificates()
	opts := store.CertificateOptions{Email: req.Email, Domains: req.Domains}

	kp, err := certs.CheckKeypair(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("check certificate keypair: %w", err)
	}
	if kp == nil {
		key, err := i.opts.CertificateKey()
		if err != nil {
			return nil, fmt.Errorf("generate certificate key: %w", err)
		}
		encoded, err := EncodeKeypair(key)
		if err != nil {
			return nil, err
		}
		if kp, err = certs.SetKeypair(ctx, opts, encoded); err != nil {
			return nil, fmt.Errorf("store certificate keypair: %w", err)
		}
	}
	return DecodeKeypair(kp)
}

func certificateRecord(req Request, res *certificate.Resource) (*store.CertificateRecord, error) {
	if res == nil || len(res.Certificate) == 0 {
		return nil, errors.New("empty certificate received from ACME server")
	}
	leaf, err := certcrypto.ParsePEMCertificate(res.Certificate)
	if err != nil {
		return nil, fmt.Errorf("parse certificate: %w", err)
	}

	altnames := leaf.DNSNames
	if len(altnames) == 0 {
		altnames = req.Domains
	}
	return &store.CertificateRecord{
		Subject:   req.Domains[0],
		Altnames:  altnames,
		Cert:      string(res.Certificate),
		Chain:     string(res.IssuerCertificate),
		PrivKey:   string(res.PrivateKey),
		IssuedAt:  leaf.NotBefore.UTC(),
		ExpiresAt: leaf.NotAfter.UTC(),
	}, nil
}
