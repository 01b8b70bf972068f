package commands

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/spf13/cobra"

	"github.com/mrled/suns/dnsrenew/internal/challenge"
	"github.com/mrled/suns/dnsrenew/internal/service/dnsverification"
)

var probeFlags struct {
	ChallengeFlags
	Content          string
	KeyAuthorization string
}

var probeCmd = &cobra.Command{
	Use:           "probe <domain>",
	Short:         "Look up the challenge TXT records of a domain",
	GroupID:       "challenge",
	SilenceUsage:  true,
	SilenceErrors: true,
	Long: `Probe queries DNS for the TXT records at <prefix>.<domain> and prints them.

With --content or --key-authorization it also checks that the expected value
is among them. It exits with status 4 when nothing resolves and 5 when the
expected value is missing.

Example:
  dnsrenew probe example.com
  dnsrenew probe example.com --key-authorization token.thumbprint
  dnsrenew probe example.com --content 61rBZ_4knHblO0MNoxFsXZ_eTFUHum0B6IVRbhvUn5I`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if probeFlags.Content != "" && probeFlags.KeyAuthorization != "" {
			cmd.SilenceUsage = false
			return &UsageError{errors.New("--content and --key-authorization are mutually exclusive")}
		}

		cfg, err := loadConfig(cmd, &probeFlags.ChallengeFlags)
		if err != nil {
			return err
		}

		want := probeFlags.Content
		if probeFlags.KeyAuthorization != "" {
			want = challenge.AuthContent(probeFlags.KeyAuthorization)
		}

		fqdn := challenge.FQDN(args[0], cfg.Challenge.ACMEPrefix)
		svc := dnsverification.NewServiceWithResolver(cfg.Resolver(), nil)
		records, err := svc.Loopback(context.Background(), fqdn, want)

		fmt.Printf("TXT records at %s (%d):\n", fqdn, len(records))
		for _, r := range records {
			marker := " "
			if want != "" && r == want {
				marker = "*"
			}
			fmt.Printf("  %s %s\n", marker, r)
		}

		var dnsErr *net.DNSError
		switch {
		case errors.As(err, &dnsErr) && dnsErr.IsNotFound:
			return ExitWithCode(exitNoTXTRecord, fmt.Errorf("no TXT records at %s", fqdn))
		case errors.Is(err, dnsverification.ErrContentNotFound):
			return ExitWithCode(exitNotPropagated, fmt.Errorf("%q not found at %s", want, fqdn))
		case err != nil:
			return ExitWithCode(exitFailure, err)
		case want == "":
			return nil
		}
		fmt.Println("\n✓ Expected content found")
		return nil
	},
}

func init() {
	addChallengeFlags(probeCmd, &probeFlags.ChallengeFlags)
	probeCmd.Flags().StringVar(&probeFlags.Content, "content", "", "Expected TXT content")
	probeCmd.Flags().StringVar(&probeFlags.KeyAuthorization, "key-authorization", "", "Key authorization whose digest is expected")
}
