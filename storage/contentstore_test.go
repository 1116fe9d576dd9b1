package storage

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/credential-registry/interfaces"
)

type stubSigner struct {
	ttl time.Duration
}

func (s *stubSigner) Sign(addr interfaces.ContentAddress, ttl time.Duration) (string, error) {
	s.ttl = ttl
	return "https://registry.example/api/public/content/" + addr.String() + "?sig", nil
}

func TestLimits_Check(t *testing.T) {
	limits := DefaultLimits()

	tests := []struct {
		name        string
		size        int
		contentType string
		wantErr     error
	}{
		{"pdf", 100, "application/pdf", nil},
		{"jpeg", 100, "image/jpeg", nil},
		{"png with params", 100, "image/png; charset=binary", nil},
		{"upper case", 100, "Application/PDF", nil},
		{"exactly at ceiling", DefaultMaxBytes, "application/pdf", nil},
		{"over ceiling", DefaultMaxBytes + 1, "application/pdf", interfaces.ErrPayloadTooLarge},
		{"gif", 100, "image/gif", interfaces.ErrUnsupportedType},
		{"empty type", 100, "", interfaces.ErrUnsupportedType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := limits.Check(make([]byte, tt.size), tt.contentType)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestContentStore_PutIsDeterministic(t *testing.T) {
	backend := NewMemoryBackend()
	store := NewContentStore(backend, nil, DefaultLimits(), testLogger())
	data := []byte("%PDF-1.7 diploma")

	a1, err := store.Put(context.Background(), data, "application/pdf")
	require.NoError(t, err)
	a2, err := store.Put(context.Background(), data, "application/pdf")
	require.NoError(t, err)

	assert.Equal(t, a1, a2)
	expected, err := interfaces.ComputeAddress(data)
	require.NoError(t, err)
	assert.Equal(t, expected, a1)

	got, err := store.Fetch(context.Background(), a1)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestContentStore_PutFailures(t *testing.T) {
	backend := NewMemoryBackend()
	store := NewContentStore(backend, nil, DefaultLimits(), testLogger())

	_, err := store.Put(context.Background(), bytes.Repeat([]byte{1}, DefaultMaxBytes+1), "application/pdf")
	assert.ErrorIs(t, err, interfaces.ErrPayloadTooLarge)

	_, err = store.Put(context.Background(), []byte("GIF89a"), "image/gif")
	assert.ErrorIs(t, err, interfaces.ErrUnsupportedType)
	assert.Equal(t, 0, backend.Len())

	backend.FailStores(errors.New("connection reset"))
	_, err = store.Put(context.Background(), []byte("%PDF"), "application/pdf")
	assert.ErrorIs(t, err, interfaces.ErrStoreUnavailable)
	assert.Equal(t, interfaces.KindStoreUnavailable, interfaces.KindOf(err))
}

func TestContentStore_GetSignedURL(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	signer := &stubSigner{}
	store := NewContentStore(backend, signer, DefaultLimits(), testLogger())

	addr, err := store.Put(ctx, []byte("%PDF transcript"), "application/pdf")
	require.NoError(t, err)

	u, err := store.GetSignedURL(ctx, addr, 0)
	require.NoError(t, err)
	assert.Contains(t, u, addr.String())
	assert.Equal(t, DefaultSignedURLTTL, signer.ttl)

	missing, err := interfaces.ComputeAddress([]byte("never stored"))
	require.NoError(t, err)
	_, err = store.GetSignedURL(ctx, missing, time.Minute)
	assert.ErrorIs(t, err, interfaces.ErrResolutionFailed)
	assert.Equal(t, interfaces.KindResolutionFailed, interfaces.KindOf(err))

	backend.FailExists(addr, errors.New("timeout"))
	_, err = store.GetSignedURL(ctx, addr, time.Minute)
	assert.ErrorIs(t, err, interfaces.ErrResolutionFailed)
}

func TestContentStore_GetSignedURLWithoutSigner(t *testing.T) {
	backend := NewMemoryBackend()
	store := NewContentStore(backend, nil, DefaultLimits(), testLogger())

	addr, err := store.Put(context.Background(), []byte("%PDF"), "application/pdf")
	require.NoError(t, err)

	_, err = store.GetSignedURL(context.Background(), addr, time.Minute)
	assert.ErrorIs(t, err, interfaces.ErrResolutionFailed)
}

func TestContentStore_NativePresign(t *testing.T) {
	addr := interfaces.ContentAddress("bafkreigh2akiscaildcqabsyg3dfr6chu3fgpregiymsck7e7aqa4s52zy")

	backend := &MockPresigningBackend{MockStorageBackend{name: "s3"}}
	backend.On("Exists", mock.Anything, addr).Return(true, nil)
	backend.On("PresignGet", mock.Anything, addr, 30*time.Second).Return("https://s3.example/obj?X-Amz-Signature=abc", nil)

	signer := &stubSigner{}
	store := NewContentStore(backend, signer, DefaultLimits(), testLogger())

	u, err := store.GetSignedURL(context.Background(), addr, 30*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "https://s3.example/obj?X-Amz-Signature=abc", u)
	assert.Zero(t, signer.ttl, "local signer must not be used when the backend presigns")

	backend.AssertExpectations(t)
}
