package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrled/suns/dnsrenew/internal/presenter"
	"github.com/mrled/suns/dnsrenew/internal/usecase/issue"
)

var issueFlags struct {
	PersistenceFlags
	ChallengeFlags
	Email        string
	DirectoryURL string
	RenewBefore  time.Duration
}

var issueCmd = &cobra.Command{
	Use:           "issue [domain]...",
	Short:         "Obtain or renew a certificate using DNS-01 challenges",
	GroupID:       "store",
	SilenceUsage:  true,
	SilenceErrors: true,
	Long: `Issue obtains a certificate for the given domains, the first of which is
its subject, and keeps it in the store together with the ACME account and
both private keys.

Nothing is requested when the stored certificate already names every domain
and does not expire within the renewal window. Domains default to
ACME_DOMAINS and the account email to ACME_EMAIL.

Examples:
  dnsrenew issue example.com www.example.com --email ops@example.com --file ./data
  dnsrenew issue example.com --directory-url https://acme-staging-v02.api.letsencrypt.org/directory`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		cfg, err := loadConfig(cmd, &issueFlags.PersistenceFlags, &issueFlags.ChallengeFlags)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("email") {
			cfg.ACME.Email = issueFlags.Email
		}
		if cmd.Flags().Changed("directory-url") {
			cfg.ACME.DirectoryURL = issueFlags.DirectoryURL
		}
		if cmd.Flags().Changed("renew-before") {
			cfg.ACME.RenewBefore = issueFlags.RenewBefore
		}
		domains := args
		if len(domains) == 0 {
			domains = cfg.ACME.Domains
		}
		if len(domains) == 0 || cfg.ACME.Email == "" {
			cmd.SilenceUsage = false
			return &UsageError{errors.New("at least one domain and an account email are required")}
		}

		provider, err := newProvider(cfg)
		if err != nil {
			return err
		}
		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}

		issuer := issue.NewIssuer(st, provider, issue.Options{
			DirectoryURL: cfg.Directory(),
			RenewBefore:  cfg.ACME.RenewBefore,
			Logger:       slog.Default(),
		})
		result, err := issuer.Run(ctx, issue.Request{Email: cfg.ACME.Email, Domains: domains})
		if err != nil {
			return challengeExit("issue", err)
		}

		cert := result.Certificate
		if result.Skipped {
			fmt.Printf("✓ Certificate for %s is current\n", cert.Subject)
		} else {
			fmt.Printf("✓ Certificate for %s issued\n", cert.Subject)
		}
		fmt.Printf("Names: %v\n", cert.Altnames)
		fmt.Printf("Expires: %s (%s)\n",
			presenter.FormatTimestamp(cert.ExpiresAt),
			presenter.FormatRelative(cert.ExpiresAt, time.Now()))
		return nil
	},
}

func init() {
	addPersistenceFlags(issueCmd, &issueFlags.PersistenceFlags)
	addChallengeFlags(issueCmd, &issueFlags.ChallengeFlags)
	issueCmd.Flags().StringVar(&issueFlags.Email, "email", "", "ACME account email (default from ACME_EMAIL)")
	issueCmd.Flags().StringVar(&issueFlags.DirectoryURL, "directory-url", "", "ACME directory URL (default Let's Encrypt production for the production environment, staging otherwise)")
	issueCmd.Flags().DurationVar(&issueFlags.RenewBefore, "renew-before", 0, "Renew when the certificate expires within this window (default from RENEW_BEFORE)")
}
