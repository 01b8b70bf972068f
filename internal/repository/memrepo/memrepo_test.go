package memrepo

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrled/suns/dnsrenew/internal/model"
)

func TestMemoryRepository_InMemory(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	assert.Equal(t, "memory", repo.Name())

	_, err := repo.Load(ctx)
	require.ErrorIs(t, err, model.ErrBlobNotFound)

	doc := []byte(`{"a":1}`)
	require.NoError(t, repo.Save(ctx, doc))
	doc[2] = 'X'

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(got), "saved data is copied")
}

func TestMemoryRepository_FromBytes(t *testing.T) {
	repo := NewMemoryRepositoryFromBytes([]byte("not json"))
	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "not json", string(got))
}

func TestMemoryRepository_Persistence(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "greenlock.json")

	repo, err := NewMemoryRepositoryWithPersistence(path)
	require.NoError(t, err)
	assert.Equal(t, path, repo.Name())

	_, err = repo.Load(ctx)
	require.ErrorIs(t, err, model.ErrBlobNotFound)

	require.NoError(t, repo.Save(ctx, []byte(`{"v":1}`)))
	require.NoError(t, repo.Save(ctx, []byte(`{"v":2}`)))

	// A second repository on the same file sees the last save
	reopened, err := NewMemoryRepositoryWithPersistence(path)
	require.NoError(t, err)
	got, err := reopened.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"v":2}`, string(got))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files are left behind")
}

func TestMemoryRepository_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	repo, err := NewMemoryRepositoryWithPersistence(path)
	require.NoError(t, err)
	_, err = repo.Load(context.Background())
	require.ErrorIs(t, err, model.ErrBlobNotFound)
}
