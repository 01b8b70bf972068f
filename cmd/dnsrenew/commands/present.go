package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/mrled/suns/dnsrenew/internal/challenge"
)

var presentFlags ChallengeFlags

var presentCmd = &cobra.Command{
	Use:           "present <domain> <key-authorization>",
	Short:         "Publish a DNS-01 challenge record and wait for it to propagate",
	GroupID:       "challenge",
	SilenceUsage:  true,
	SilenceErrors: true,
	Long: `Present publishes the DNS-01 challenge for a domain.

It finds the provider zone hosting the domain, makes sure exactly one TXT
record exists at <prefix>.<domain> carrying the key authorization digest
(deleting surplus records, updating a stale one or creating it), and then
polls DNS until the record is visible.

Example:
  dnsrenew present example.com token.thumbprint
  dnsrenew present example.com token.thumbprint --no-verify
  dnsrenew present example.com token.thumbprint --resolver 1.1.1.1:53 --wait 10s --retries 30`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		cfg, err := loadConfig(cmd, &presentFlags)
		if err != nil {
			return err
		}
		provider, err := newProvider(cfg)
		if err != nil {
			return err
		}

		c := challenge.Context{Domain: args[0], ACMEPrefix: provider.Options().ACMEPrefix, KeyAuthorization: args[1]}
		fmt.Printf("Record: %s TXT %q\n", c.FQDN(), c.AuthContent())

		var result error
		provider.Set(ctx, challenge.CallOptions{}, args[0], "", args[1], func(err error) {
			result = err
		})
		fmt.Printf("State: %s\n", provider.State(c.FQDN()))

		if result != nil {
			return challengeExit("present", result)
		}
		fmt.Println("\n✓ Challenge published")
		return nil
	},
}

func init() {
	addChallengeFlags(presentCmd, &presentFlags)
}
