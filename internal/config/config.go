// Package config loads dnsrenew settings from the environment.
//
// A .env file in the working directory is read first if present; variables
// already set in the environment take precedence over it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-acme/lego/v4/lego"
	"github.com/joho/godotenv"

	"github.com/mrled/suns/dnsrenew/internal/challenge"
	"github.com/mrled/suns/dnsrenew/internal/repository"
	"github.com/mrled/suns/dnsrenew/internal/service/dnsverification"
)

// Cloudflare holds DNS-hosting provider credentials
type Cloudflare struct {
	BaseURL  string `env:"CLOUDFLARE_API_URL" envDefault:"https://api.cloudflare.com/client/v4"`
	Email    string `env:"CLOUDFLARE_EMAIL"`
	APIKey   string `env:"CLOUDFLARE_API_KEY"`
	APIToken string `env:"CLOUDFLARE_API_TOKEN"`
}

// Challenge controls how DNS-01 records are published and verified
type Challenge struct {
	ACMEPrefix         string        `env:"ACME_PREFIX" envDefault:"_acme-challenge"`
	PropagationWait    time.Duration `env:"PROPAGATION_WAIT" envDefault:"5s"`
	PropagationRetries int           `env:"PROPAGATION_RETRIES" envDefault:"20"`
	VerifyPropagation  bool          `env:"VERIFY_PROPAGATION" envDefault:"true"`
	// Resolver is a fixed host:port to query; when empty the zone's
	// authoritative nameservers are found through BootstrapResolver.
	Resolver          string `env:"DNS_RESOLVER"`
	BootstrapResolver string `env:"DNS_BOOTSTRAP_RESOLVER" envDefault:"1.1.1.1:53"`
}

// Store selects where the account and certificate document lives
type Store struct {
	Environment    string `env:"ENVIRONMENT" envDefault:"development"`
	File           string `env:"STORE_FILE"`
	S3Bucket       string `env:"STORE_S3_BUCKET"`
	S3Prefix       string `env:"STORE_S3_PREFIX"`
	DynamoTable    string `env:"STORE_DYNAMODB_TABLE"`
	DynamoEndpoint string `env:"STORE_DYNAMODB_ENDPOINT"`
}

// ACME holds issuance settings
type ACME struct {
	Email   string   `env:"ACME_EMAIL"`
	Domains []string `env:"ACME_DOMAINS" envSeparator:","`
	// DirectoryURL overrides the directory chosen from ENVIRONMENT
	DirectoryURL string        `env:"ACME_DIRECTORY_URL"`
	RenewBefore  time.Duration `env:"RENEW_BEFORE" envDefault:"720h"`
}

// Config is the complete dnsrenew configuration
type Config struct {
	Cloudflare Cloudflare
	Challenge  Challenge
	Store      Store
	ACME       ACME
}

// Load reads an optional .env file and parses the environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return parse(env.Options{})
}

// LoadFrom parses vars instead of the process environment
func LoadFrom(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	cfg.ACME.Domains = cleanDomains(cfg.ACME.Domains)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DirectoryFor returns the Let's Encrypt directory for an environment
func DirectoryFor(environment string) string {
	if repository.IsProduction(environment) {
		return lego.LEDirectoryProduction
	}
	return lego.LEDirectoryStaging
}

func cleanDomains(in []string) []string {
	var out []string
	for _, d := range in {
		if d = strings.TrimSpace(d); d != "" {
			out = append(out, d)
		}
	}
	return out
}

// Validate checks values the parser accepts but dnsrenew cannot use
func (c *Config) Validate() error {
	var errs []error
	if c.Challenge.PropagationRetries < 0 {
		errs = append(errs, fmt.Errorf("PROPAGATION_RETRIES must not be negative, got %d", c.Challenge.PropagationRetries))
	}
	if c.Challenge.PropagationWait < 0 {
		errs = append(errs, fmt.Errorf("PROPAGATION_WAIT must not be negative, got %s", c.Challenge.PropagationWait))
	}
	if c.ACME.RenewBefore < 0 {
		errs = append(errs, fmt.Errorf("RENEW_BEFORE must not be negative, got %s", c.ACME.RenewBefore))
	}
	return errors.Join(errs...)
}

// Propagation returns the verification policy, or nil when verification is off
func (c *Config) Propagation() *dnsverification.Policy {
	if !c.Challenge.VerifyPropagation {
		return nil
	}
	return &dnsverification.Policy{
		WaitFor: c.Challenge.PropagationWait,
		Retries: c.Challenge.PropagationRetries,
	}
}

// Resolver returns the resolver used to verify propagation
func (c *Config) Resolver() dnsverification.Resolver {
	if c.Challenge.Resolver != "" {
		return dnsverification.NewCustomResolver(c.Challenge.Resolver)
	}
	return dnsverification.NewAuthoritativeResolver(c.Challenge.BootstrapResolver)
}

// ChallengeOptions returns the options to build a challenge provider with
func (c *Config) ChallengeOptions() challenge.CreateOptions {
	return challenge.CreateOptions{
		Email:             c.Cloudflare.Email,
		Key:               c.Cloudflare.APIKey,
		Token:             c.Cloudflare.APIToken,
		BaseURL:           c.Cloudflare.BaseURL,
		ACMEPrefix:        c.Challenge.ACMEPrefix,
		VerifyPropagation: c.Propagation(),
		Resolver:          c.Resolver(),
	}
}

// Directory returns the ACME directory to issue against: ACME_DIRECTORY_URL
// when set, otherwise Let's Encrypt production for the production environment
// and staging for every other one.
func (c *Config) Directory() string {
	if c.ACME.DirectoryURL != "" {
		return c.ACME.DirectoryURL
	}
	return DirectoryFor(c.Store.Environment)
}

// RepositoryConfig returns the blob backend selection
func (c *Config) RepositoryConfig() repository.RepositoryConfig {
	return repository.RepositoryConfig{
		Environment:    c.Store.Environment,
		FilePath:       c.Store.File,
		S3Bucket:       c.Store.S3Bucket,
		S3Prefix:       c.Store.S3Prefix,
		DynamoTable:    c.Store.DynamoTable,
		DynamoEndpoint: c.Store.DynamoEndpoint,
	}
}
