package commands

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrled/suns/dnsrenew/internal/config"
	"github.com/mrled/suns/dnsrenew/internal/store"
)

func TestChallengeFlags_OnlyChangedFlagsOverride(t *testing.T) {
	cfg, err := config.LoadFrom(map[string]string{"ACME_PREFIX": "_custom", "PROPAGATION_RETRIES": "7"})
	require.NoError(t, err)

	var flags ChallengeFlags
	cmd := &cobra.Command{Use: "test"}
	addChallengeFlags(cmd, &flags)
	require.NoError(t, cmd.ParseFlags([]string{"--no-verify", "--wait", "2s"}))

	flags.apply(cmd, cfg)
	assert.Equal(t, "_custom", cfg.Challenge.ACMEPrefix)
	assert.Equal(t, 7, cfg.Challenge.PropagationRetries)
	assert.Equal(t, 2*time.Second, cfg.Challenge.PropagationWait)
	assert.False(t, cfg.Challenge.VerifyPropagation)
	assert.Nil(t, cfg.Propagation())
}

func TestPersistenceFlags_Override(t *testing.T) {
	cfg, err := config.LoadFrom(map[string]string{"STORE_S3_BUCKET": "from-env", "ENVIRONMENT": "production"})
	require.NoError(t, err)

	var flags PersistenceFlags
	cmd := &cobra.Command{Use: "test"}
	addPersistenceFlags(cmd, &flags)
	require.NoError(t, cmd.ParseFlags([]string{"--file", "./data", "--s3-bucket", ""}))

	flags.apply(cmd, cfg)
	repo := cfg.RepositoryConfig()
	assert.Equal(t, "./data", repo.FilePath)
	assert.Empty(t, repo.S3Bucket)
	assert.Equal(t, "production", repo.Environment)
}

func TestRedact(t *testing.T) {
	snap := store.NewSnapshot()
	snap.AccountKeypairs.Put("acct", &store.Keypair{PrivateKeyPEM: "secret", PrivateKeyJWK: json.RawMessage(`{"d":"x"}`), PublicKeyPEM: "pub"})
	snap.Accounts.Put("acct", &store.AccountRecord{ID: "acct", Keypair: &store.Keypair{PrivateKeyPEM: "secret", PublicKeyPEM: "pub"}})
	snap.CertificateKeypairs.Put("example.com", &store.Keypair{PrivateKeyPEM: "secret", PublicKeyPEM: "pub"})
	snap.Certificates.Put("example.com", &store.CertificateRecord{Subject: "example.com", PrivKey: "secret", Cert: "cert"})

	redact(snap)

	data, err := snap.Marshal()
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")
	assert.NotContains(t, string(data), `"d"`)
	assert.Contains(t, string(data), "pub")
	assert.Contains(t, string(data), "cert")
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "example.com", truncateString("example.com", 20))
	assert.Equal(t, "very-lo...", truncateString("very-long-subject.example.com", 10))
	assert.Equal(t, "ab", truncateString("abcdef", 2))
}
