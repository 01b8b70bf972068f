package renew

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/mrled/suns/dnsrenew/internal/challenge"
	"github.com/mrled/suns/dnsrenew/internal/config"
	"github.com/mrled/suns/dnsrenew/internal/logger"
	"github.com/mrled/suns/dnsrenew/internal/repository"
	"github.com/mrled/suns/dnsrenew/internal/store"
	"github.com/mrled/suns/dnsrenew/internal/usecase/issue"
)

// Event is the scheduled trigger payload. Empty fields fall back to
// ACME_EMAIL and ACME_DOMAINS; other fields of the event are ignored.
type Event struct {
	Email   string   `json:"email,omitempty"`
	Domains []string `json:"domains,omitempty"`
}

// Runner issues one certificate
type Runner interface {
	Run(ctx context.Context, req issue.Request) (*issue.Result, error)
}

// RunnerFactory builds a Runner for one invocation
type RunnerFactory func(ctx context.Context, cfg *config.Config, log *slog.Logger) (Runner, error)

// Handler holds the dependencies for the renewal Lambda handler
type Handler struct {
	log       *slog.Logger
	cfg       *config.Config
	newRunner RunnerFactory
}

// NewHandler creates a new renewal handler from the environment
func NewHandler() (*Handler, error) {
	// Initialize logger with executable name for filtering
	log := logger.NewDefaultLogger()
	log = logger.WithExecutable(log, "renew")
	logger.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.Store.DynamoTable == "" && cfg.Store.S3Bucket == "" {
		return nil, fmt.Errorf("STORE_DYNAMODB_TABLE or STORE_S3_BUCKET environment variable is required")
	}
	log.Info("Using store",
		slog.String("environment", cfg.Store.Environment),
		slog.String("table", cfg.Store.DynamoTable),
		slog.String("bucket", cfg.Store.S3Bucket))

	return NewHandlerWithConfig(cfg, log, NewRunner), nil
}

// NewHandlerWithConfig creates a handler with explicit dependencies
func NewHandlerWithConfig(cfg *config.Config, log *slog.Logger, newRunner RunnerFactory) *Handler {
	return &Handler{
		log:       logger.OrDefault(log),
		cfg:       cfg,
		newRunner: newRunner,
	}
}

// NewRunner wires the challenge provider, store and issuer for cfg
func NewRunner(ctx context.Context, cfg *config.Config, log *slog.Logger) (Runner, error) {
	opts := cfg.ChallengeOptions()
	opts.Logger = log
	provider, err := challenge.Create(opts)
	if err != nil {
		return nil, err
	}

	repoCfg := cfg.RepositoryConfig()
	repoCfg.Logger = log
	repo, err := repository.NewRepository(ctx, repoCfg)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, repo, store.Options{Logger: log})
	if err != nil {
		return nil, err
	}

	return issue.NewIssuer(st, provider, issue.Options{
		DirectoryURL: cfg.Directory(),
		RenewBefore:  cfg.ACME.RenewBefore,
		Logger:       log,
	}), nil
}

// Handle processes scheduled Lambda events for certificate renewal
func (h *Handler) Handle(ctx context.Context, event Event) error {
	// Create a logger with Lambda context
	requestLogger := logger.WithLambda(h.log,
		os.Getenv("AWS_LAMBDA_FUNCTION_NAME"),
		os.Getenv("AWS_LAMBDA_FUNCTION_VERSION"),
		"") // No request ID for scheduled events

	req := issue.Request{Email: event.Email, Domains: event.Domains}
	if req.Email == "" {
		req.Email = h.cfg.ACME.Email
	}
	if len(req.Domains) == 0 {
		req.Domains = h.cfg.ACME.Domains
	}
	if req.Email == "" || len(req.Domains) == 0 {
		err := errors.New("no domains or account email configured; set ACME_EMAIL and ACME_DOMAINS")
		requestLogger.Error("Renewal not configured", slog.Bool("notify", true), slog.String("error", err.Error()))
		return err
	}

	requestLogger.Info("Scheduled renewal triggered", slog.Any("domains", req.Domains))

	runner, err := h.newRunner(ctx, h.cfg, requestLogger)
	if err != nil {
		requestLogger.Error("Failed to initialize renewal",
			slog.Bool("notify", true),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to initialize renewal: %w", err)
	}

	result, err := runner.Run(ctx, req)
	if err != nil {
		requestLogger.Error("Certificate renewal failed",
			slog.Bool("notify", true),
			slog.String("error", err.Error()))
		return fmt.Errorf("certificate renewal failed: %w", err)
	}

	certLogger := requestLogger.With(
		slog.String("subject", result.Certificate.Subject),
		slog.Time("expires_at", result.Certificate.ExpiresAt))
	if result.Skipped {
		certLogger.Info("Certificate is current, renewal skipped")
	} else {
		certLogger.Info("Certificate renewed", slog.Int("names", len(result.Certificate.Altnames)))
	}
	return nil
}
