package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrled/suns/dnsrenew/internal/challenge"
	"github.com/mrled/suns/dnsrenew/internal/config"
	"github.com/mrled/suns/dnsrenew/internal/repository"
	"github.com/mrled/suns/dnsrenew/internal/store"
)

// PersistenceFlags holds flags related to persistence and data storage options
type PersistenceFlags struct {
	Environment    string
	FilePath       string
	S3Bucket       string
	S3Prefix       string
	DynamoTable    string
	DynamoEndpoint string
}

// addPersistenceFlags adds common persistence-related flags to a command
func addPersistenceFlags(cmd *cobra.Command, flags *PersistenceFlags) {
	cmd.Flags().StringVar(&flags.Environment, "environment", "", "Store environment; production uses greenlock.json, others greenlock-<env>.json")
	cmd.Flags().StringVarP(&flags.FilePath, "file", "f", "", "Path to JSON file, or a directory, for persistence")
	cmd.Flags().StringVar(&flags.S3Bucket, "s3-bucket", "", "S3 bucket for persistence")
	cmd.Flags().StringVar(&flags.S3Prefix, "s3-prefix", "", "Key prefix inside the S3 bucket")
	cmd.Flags().StringVarP(&flags.DynamoTable, "dynamodb-table", "t", "", "DynamoDB table name for persistence")
	cmd.Flags().StringVarP(&flags.DynamoEndpoint, "dynamodb-endpoint", "e", "", "DynamoDB endpoint URL (optional, uses AWS SDK default if not specified)")
}

// apply overlays the flags that were set on cfg
func (p *PersistenceFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	set := func(name string, dst *string, v string) {
		if cmd.Flags().Changed(name) {
			*dst = v
		}
	}
	set("environment", &cfg.Store.Environment, p.Environment)
	set("file", &cfg.Store.File, p.FilePath)
	set("s3-bucket", &cfg.Store.S3Bucket, p.S3Bucket)
	set("s3-prefix", &cfg.Store.S3Prefix, p.S3Prefix)
	set("dynamodb-table", &cfg.Store.DynamoTable, p.DynamoTable)
	set("dynamodb-endpoint", &cfg.Store.DynamoEndpoint, p.DynamoEndpoint)
}

// ChallengeFlags holds flags controlling how challenge records are published and checked
type ChallengeFlags struct {
	Prefix   string
	Resolver string
	NoVerify bool
	Wait     time.Duration
	Retries  int
}

// addChallengeFlags adds challenge-related flags to a command
func addChallengeFlags(cmd *cobra.Command, flags *ChallengeFlags) {
	cmd.Flags().StringVar(&flags.Prefix, "prefix", "", "Challenge record label (default from ACME_PREFIX, _acme-challenge)")
	cmd.Flags().StringVar(&flags.Resolver, "resolver", "", "DNS server host:port to check propagation against (default: the zone's nameservers)")
	cmd.Flags().BoolVar(&flags.NoVerify, "no-verify", false, "Do not wait for the record to propagate")
	cmd.Flags().DurationVar(&flags.Wait, "wait", 0, "Delay between propagation checks (default from PROPAGATION_WAIT)")
	cmd.Flags().IntVar(&flags.Retries, "retries", 0, "Propagation checks after the first (default from PROPAGATION_RETRIES)")
}

// apply overlays the flags that were set on cfg
func (c *ChallengeFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("prefix") {
		cfg.Challenge.ACMEPrefix = c.Prefix
	}
	if cmd.Flags().Changed("resolver") {
		cfg.Challenge.Resolver = c.Resolver
	}
	if cmd.Flags().Changed("no-verify") {
		cfg.Challenge.VerifyPropagation = !c.NoVerify
	}
	if cmd.Flags().Changed("wait") {
		cfg.Challenge.PropagationWait = c.Wait
	}
	if cmd.Flags().Changed("retries") {
		cfg.Challenge.PropagationRetries = c.Retries
	}
}

// configOverlay is a flag set that can override configuration
type configOverlay interface {
	apply(cmd *cobra.Command, cfg *config.Config)
}

// loadConfig reads the environment and applies flag overrides
func loadConfig(cmd *cobra.Command, overlays ...configOverlay) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	for _, o := range overlays {
		o.apply(cmd, cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, &UsageError{err}
	}
	return cfg, nil
}

// newProvider builds the Cloudflare-backed challenge provider
func newProvider(cfg *config.Config) (*challenge.Provider, error) {
	opts := cfg.ChallengeOptions()
	opts.Logger = slog.Default()
	p, err := challenge.Create(opts)
	if err != nil {
		return nil, &UsageError{err}
	}
	return p, nil
}

// openStore opens the account and certificate store
func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	repoCfg := cfg.RepositoryConfig()
	repoCfg.Logger = slog.Default()
	repo, err := repository.NewRepository(ctx, repoCfg)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, repo, store.Options{Logger: slog.Default()})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}
