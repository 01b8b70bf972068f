package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrled/suns/dnsrenew/internal/challenge"
	"github.com/mrled/suns/dnsrenew/internal/model"
	"github.com/mrled/suns/dnsrenew/internal/provider/cloudflare"
	"github.com/mrled/suns/dnsrenew/internal/service/zoneresolver"
)

var zoneFlags struct {
	Prefix     string
	FirstMatch bool
	SortBy     string
}

var zoneCmd = &cobra.Command{
	Use:           "zone <domain>",
	Short:         "Show the provider zone hosting a domain and its challenge records",
	GroupID:       "challenge",
	SilenceUsage:  true,
	SilenceErrors: true,
	Long: `Zone finds the provider zone that hosts a domain and lists the TXT records
the provider holds at the domain's challenge name.

The most specific zone wins. With --first-match the first zone, in provider
order, whose name is a plain suffix of the domain is used instead.

Example:
  dnsrenew zone www.example.com
  dnsrenew zone www.example.com --sort content`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("prefix") {
			cfg.Challenge.ACMEPrefix = zoneFlags.Prefix
		}

		api := cloudflare.NewClient(cloudflare.Config{
			BaseURL:  cfg.Cloudflare.BaseURL,
			Email:    cfg.Cloudflare.Email,
			APIKey:   cfg.Cloudflare.APIKey,
			APIToken: cfg.Cloudflare.APIToken,
		})
		resolver := zoneresolver.NewService(api)

		domain := model.NormalizeName(args[0])
		var zone *model.Zone
		if zoneFlags.FirstMatch {
			zone, err = resolver.ResolveZoneFirstMatch(ctx, domain)
		} else {
			zone, err = resolver.ResolveZone(ctx, domain)
		}
		if err != nil {
			return ExitWithCode(exitFailure, err)
		}
		if zone == nil {
			return ExitWithCode(exitZoneNotFound, fmt.Errorf("%w for %q", challenge.ErrZoneNotFound, domain))
		}

		fmt.Printf("Zone: %s (id %s)\n", zone.Name, zone.ID)

		fqdn := challenge.FQDN(domain, cfg.Challenge.ACMEPrefix)
		records, err := resolver.ResolveTXTRecords(ctx, *zone, fqdn)
		if err != nil {
			return ExitWithCode(exitFailure, err)
		}
		model.SortRecords(records, zoneFlags.SortBy)

		fmt.Printf("\nTXT records at %s (%d):\n", fqdn, len(records))
		if len(records) == 0 {
			return nil
		}
		fmt.Printf("  %-34s %-6s %s\n", "ID", "TTL", "Content")
		fmt.Println("  " + strings.Repeat("-", 90))
		for _, r := range records {
			fmt.Printf("  %-34s %-6d %s\n", r.ID, r.TTL, r.Content)
		}
		return nil
	},
}

func init() {
	zoneCmd.Flags().StringVar(&zoneFlags.Prefix, "prefix", "", "Challenge record label (default from ACME_PREFIX, _acme-challenge)")
	zoneCmd.Flags().BoolVar(&zoneFlags.FirstMatch, "first-match", false, "Use the first suffix match instead of the most specific zone")
	zoneCmd.Flags().StringVar(&zoneFlags.SortBy, "sort", "", "Sort records by: name, type, content or ttl")
}
