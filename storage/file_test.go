package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/credential-registry/interfaces"
)

func TestFileBackend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	b, err := NewFileBackend(dir, testLogger())
	require.NoError(t, err)
	assert.True(t, b.Available(ctx))
	assert.Equal(t, "file://"+dir, b.LocationURI())

	data := []byte("\x89PNG badge")
	addr, err := b.Store(ctx, data, "image/png")
	require.NoError(t, err)

	expected, err := interfaces.ComputeAddress(data)
	require.NoError(t, err)
	assert.Equal(t, expected, addr)

	_, err = os.Stat(filepath.Join(dir, "documents", addr.String()))
	require.NoError(t, err)

	ok, err := b.Exists(ctx, addr)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := b.Fetch(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	// Storing the same bytes again is harmless.
	again, err := b.Store(ctx, data, "image/png")
	require.NoError(t, err)
	assert.Equal(t, addr, again)

	missing, err := interfaces.ComputeAddress([]byte("missing"))
	require.NoError(t, err)

	ok, err = b.Exists(ctx, missing)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = b.Fetch(ctx, missing)
	assert.ErrorIs(t, err, interfaces.ErrContentNotFound)
}

func TestFileBackend_RejectsNonAddresses(t *testing.T) {
	b, err := NewFileBackend(t.TempDir(), testLogger())
	require.NoError(t, err)

	_, err = b.Fetch(context.Background(), "../../etc/passwd")
	assert.ErrorIs(t, err, interfaces.ErrValidation)
}

func TestStorageBackendFactory(t *testing.T) {
	sf := NewStorageBackendFactory(testLogger())
	dir := t.TempDir()

	loc, err := interfaces.NewStorageBackendLocation("file://" + dir)
	require.NoError(t, err)

	backend, err := sf.StorageBackendFor(loc)
	require.NoError(t, err)
	assert.IsType(t, &FileBackend{}, backend)

	ipfsLoc, err := interfaces.NewStorageBackendLocation("ipfs://127.0.0.1:5001/?timeout=5s")
	require.NoError(t, err)
	backend, err = sf.StorageBackendFor(ipfsLoc)
	require.NoError(t, err)
	assert.IsType(t, &IPFSBackend{}, backend)

	s3Loc, err := interfaces.NewStorageBackendLocation("s3://AKID:SECRET@docs-bucket/credentials?region=eu-west-1")
	require.NoError(t, err)
	backend, err = sf.StorageBackendFor(s3Loc)
	require.NoError(t, err)
	assert.IsType(t, &S3Backend{}, backend)
	assert.NotContains(t, backend.LocationURI(), "SECRET")

	_, err = sf.StorageBackendFor(interfaces.StorageBackendLocation{Raw: "gopher://x"})
	assert.ErrorIs(t, err, interfaces.ErrInvalidLocationURI)

	badTimeout, err := interfaces.NewStorageBackendLocation("ipfs://127.0.0.1:5001/?timeout=soon")
	require.NoError(t, err)
	_, err = sf.StorageBackendFor(badTimeout)
	assert.ErrorIs(t, err, interfaces.ErrInvalidLocationURI)

	multi, err := sf.CreateMultiBackend([]interfaces.StorageBackendLocation{loc, {Raw: "gopher://x"}})
	require.NoError(t, err)
	assert.IsType(t, &FileBackend{}, multi)

	_, err = sf.CreateMultiBackend([]interfaces.StorageBackendLocation{{Raw: "gopher://x"}})
	assert.ErrorIs(t, err, interfaces.ErrStoreUnavailable)
}
