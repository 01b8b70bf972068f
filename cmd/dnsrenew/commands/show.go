package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrled/suns/dnsrenew/internal/presenter"
	"github.com/mrled/suns/dnsrenew/internal/store"
)

var showFlags struct {
	PersistenceFlags
	Format string
}

var showCmd = &cobra.Command{
	Use:           "show [accounts|certificates]",
	Short:         "Show accounts and certificates from the store",
	GroupID:       "store",
	SilenceUsage:  true,
	SilenceErrors: true,
	Long: `Display the ACME accounts and certificates kept in the store.

Private keys are never printed. With no argument both accounts and
certificates are shown. The json format prints the whole document with
private keys removed.

Examples:
  # Show everything in a local store
  dnsrenew show --file ./data

  # Show certificates from the production document in S3
  dnsrenew show certificates --s3-bucket certs --environment production

  # Show certificates in compact format
  dnsrenew show certificates --file ./data --format compact`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"accounts", "certificates"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		what := "all"
		if len(args) == 1 {
			what = args[0]
			if what != "accounts" && what != "certificates" {
				cmd.SilenceUsage = false
				return &UsageError{fmt.Errorf("unknown section %q, want accounts or certificates", what)}
			}
		}

		cfg, err := loadConfig(cmd, &showFlags.PersistenceFlags)
		if err != nil {
			return err
		}
		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		snap := st.Snapshot()
		redact(snap)

		if showFlags.Format == "json" {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		}

		now := time.Now()
		if what != "certificates" {
			displayAccounts(snap)
		}
		if what != "accounts" {
			switch showFlags.Format {
			case "compact":
				displayCertificatesCompact(snap, now)
			default: // "detailed" or empty
				displayCertificatesDetailed(snap, now)
			}
		}

		fmt.Printf("\nLast update: %s\n", presenter.FormatTimestamp(snap.LastUpdate))
		return nil
	},
}

// redact drops private key material from a snapshot copy
func redact(snap *store.Snapshot) {
	for _, kp := range snap.AccountKeypairs {
		kp.PrivateKeyPEM, kp.PrivateKeyJWK = "", nil
	}
	for _, kp := range snap.CertificateKeypairs {
		kp.PrivateKeyPEM, kp.PrivateKeyJWK = "", nil
	}
	for _, acct := range snap.Accounts {
		if acct.Keypair != nil {
			acct.Keypair.PrivateKeyPEM, acct.Keypair.PrivateKeyJWK = "", nil
		}
	}
	for _, cert := range snap.Certificates {
		cert.PrivKey = ""
	}
}

// displayAccounts lists accounts and the certificates linked to each
func displayAccounts(snap *store.Snapshot) {
	fmt.Println("\n=== Accounts ===")
	if len(snap.Accounts) == 0 {
		fmt.Println("\nNo accounts found.")
		return
	}

	for _, id := range snap.AccountIndices.Keys() {
		if snap.AccountIndices[id] != id {
			continue
		}
		acct, ok := snap.Accounts.Get(id)
		if !ok {
			continue
		}
		fmt.Printf("\nAccount ID: %s\n", acct.ID)
		fmt.Printf("Email: %s\n", acct.Email)
		fmt.Printf("Agreed to TOS: %t\n", acct.AgreeTOS)
		if acct.Registration != nil {
			fmt.Printf("Registration: %s\n", acct.Registration.URI)
		}
		linked := snap.AccountCerts[id].Keys()
		fmt.Printf("Certificates (%d):\n", len(linked))
		for _, subject := range linked {
			fmt.Printf("  - %s\n", subject)
		}
	}
	fmt.Printf("\nTotal accounts: %d\n", len(snap.Accounts))
}

func sortedCertificates(snap *store.Snapshot) []*store.CertificateRecord {
	var out []*store.CertificateRecord
	for _, subject := range snap.CertIndices.Keys() {
		if snap.CertIndices[subject] != subject {
			continue
		}
		if cert, ok := snap.Certificates.Get(subject); ok {
			out = append(out, cert)
		}
	}
	return out
}

// displayCertificatesDetailed displays certificates in detailed format
func displayCertificatesDetailed(snap *store.Snapshot, now time.Time) {
	fmt.Println("\n=== Certificates ===")
	certs := sortedCertificates(snap)
	if len(certs) == 0 {
		fmt.Println("\nNo certificates found.")
		return
	}

	for _, cert := range certs {
		fmt.Printf("\nSubject: %s\n", cert.Subject)
		fmt.Printf("Issued: %s\n", presenter.FormatTimestamp(cert.IssuedAt))
		fmt.Printf("Expires: %s (%s)\n",
			presenter.FormatTimestamp(cert.ExpiresAt),
			presenter.FormatRelative(cert.ExpiresAt, now))
		fmt.Printf("Names (%d):\n", len(cert.Altnames))
		for _, name := range cert.Altnames {
			fmt.Printf("  - %s\n", name)
		}
	}
	fmt.Printf("\nTotal certificates: %d\n", len(certs))
}

// displayCertificatesCompact displays certificates in compact format
func displayCertificatesCompact(snap *store.Snapshot, now time.Time) {
	fmt.Println("\n=== Certificates (Compact) ===")
	fmt.Printf("%-40s %-6s %-22s %s\n", "Subject", "Names", "Expires", "Remaining")
	fmt.Println(strings.Repeat("-", 90))

	for _, cert := range sortedCertificates(snap) {
		fmt.Printf("%-40s %-6d %-22s %s\n",
			truncateString(cert.Subject, 38),
			len(cert.Altnames),
			presenter.FormatTimestamp(cert.ExpiresAt),
			presenter.FormatRelativeCompact(cert.ExpiresAt, now))
	}
}

// truncateString truncates a string to the specified length with ellipsis
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen < 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

func init() {
	addPersistenceFlags(showCmd, &showFlags.PersistenceFlags)
	showCmd.Flags().StringVar(&showFlags.Format, "format", "detailed", "Output format: detailed, compact or json")
}
