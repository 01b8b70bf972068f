package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrled/suns/dnsrenew/internal/logger"
)

func TestBlobName(t *testing.T) {
	tests := []struct {
		env, expected string
	}{
		{"production", "greenlock.json"},
		{"", "greenlock.json"},
		{"development", "greenlock-development.json"},
		{" Staging ", "greenlock-staging.json"},
	}
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, BlobName(tt.env))
		})
	}
}

func TestNewRepository_File(t *testing.T) {
	dir := t.TempDir()

	repo, err := NewRepository(context.Background(), RepositoryConfig{
		Environment: "development",
		FilePath:    dir,
		Logger:      logger.Discard(),
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "greenlock-development.json"), repo.Name())

	explicit := filepath.Join(dir, "state.json")
	repo, err = NewRepository(context.Background(), RepositoryConfig{FilePath: explicit, Logger: logger.Discard()})
	require.NoError(t, err)
	assert.Equal(t, explicit, repo.Name())
}

func TestNewRepository_Memory(t *testing.T) {
	repo, err := NewRepository(context.Background(), RepositoryConfig{Logger: logger.Discard()})
	require.NoError(t, err)
	assert.Equal(t, "memory", repo.Name())
}
