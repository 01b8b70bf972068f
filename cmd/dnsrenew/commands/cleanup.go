package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrled/suns/dnsrenew/internal/challenge"
)

var cleanupFlags ChallengeFlags

var cleanupCmd = &cobra.Command{
	Use:           "cleanup <domain>",
	Short:         "Delete the DNS-01 challenge records of a domain",
	GroupID:       "challenge",
	SilenceUsage:  true,
	SilenceErrors: true,
	Long: `Cleanup deletes every TXT record at <prefix>.<domain>.

It exits with status 3 when no zone hosts the domain and 4 when there is no
such record.

Example:
  dnsrenew cleanup example.com`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, &cleanupFlags)
		if err != nil {
			return err
		}
		provider, err := newProvider(cfg)
		if err != nil {
			return err
		}

		var result error
		provider.Remove(context.Background(), challenge.CallOptions{}, args[0], "", func(err error) {
			result = err
		})

		if result != nil {
			return challengeExit("cleanup", result)
		}
		fmt.Printf("✓ Removed challenge records at %s\n", challenge.FQDN(args[0], provider.Options().ACMEPrefix))
		return nil
	},
}

func init() {
	addChallengeFlags(cleanupCmd, &cleanupFlags)
}
