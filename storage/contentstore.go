package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"slices"
	"strings"
	"time"

	"github.com/ruteri/credential-registry/interfaces"
)

const (
	// DefaultMaxBytes is the document size ceiling.
	DefaultMaxBytes = 10 << 20

	// DefaultSignedURLTTL is the lifetime of signed retrieval URLs.
	DefaultSignedURLTTL = 60 * time.Second
)

// DefaultAllowedTypes lists the accepted document media types.
var DefaultAllowedTypes = []string{"application/pdf", "image/jpeg", "image/png"}

// Limits are the boundary constraints on stored documents.
type Limits struct {
	MaxBytes     int64
	AllowedTypes []string
}

// DefaultLimits returns the 10 MiB PDF/JPEG/PNG limits.
func DefaultLimits() Limits {
	return Limits{
		MaxBytes:     DefaultMaxBytes,
		AllowedTypes: slices.Clone(DefaultAllowedTypes),
	}
}

// NormalizeContentType strips parameters and lowercases a media type.
func NormalizeContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mediaType
}

// Allows reports whether contentType is on the allow-list.
func (l Limits) Allows(contentType string) bool {
	return slices.Contains(l.AllowedTypes, NormalizeContentType(contentType))
}

// Check validates data and contentType against the limits.
func (l Limits) Check(data []byte, contentType string) error {
	if l.MaxBytes > 0 && int64(len(data)) > l.MaxBytes {
		return fmt.Errorf("%w: %d bytes exceeds %d", interfaces.ErrPayloadTooLarge, len(data), l.MaxBytes)
	}
	if !l.Allows(contentType) {
		return fmt.Errorf("%w: %q", interfaces.ErrUnsupportedType, contentType)
	}
	return nil
}

// URLSigner issues signed URLs for backends without native presigning.
type URLSigner interface {
	Sign(addr interfaces.ContentAddress, ttl time.Duration) (string, error)
}

// ContentStore enforces document limits on top of a storage backend and issues
// time-limited retrieval URLs.
type ContentStore struct {
	backend interfaces.StorageBackend
	signer  URLSigner
	limits  Limits
	log     *slog.Logger
}

// NewContentStore wraps backend. signer may be nil when the backend presigns natively.
func NewContentStore(backend interfaces.StorageBackend, signer URLSigner, limits Limits, log *slog.Logger) *ContentStore {
	if log == nil {
		log = slog.Default()
	}
	return &ContentStore{
		backend: backend,
		signer:  signer,
		limits:  limits,
		log:     log,
	}
}

// Limits returns the configured limits.
func (s *ContentStore) Limits() Limits {
	return s.limits
}

// Put stores data and returns its content address. Identical bytes always yield
// the same address.
func (s *ContentStore) Put(ctx context.Context, data []byte, contentType string) (interfaces.ContentAddress, error) {
	if err := s.limits.Check(data, contentType); err != nil {
		return "", err
	}

	addr, err := s.backend.Store(ctx, data, NormalizeContentType(contentType))
	if err != nil {
		if errors.Is(err, interfaces.ErrStoreUnavailable) {
			return "", err
		}
		return "", fmt.Errorf("%w: %s: %w", interfaces.ErrStoreUnavailable, s.backend.Name(), err)
	}
	return addr, nil
}

// Fetch returns the stored bytes for addr.
func (s *ContentStore) Fetch(ctx context.Context, addr interfaces.ContentAddress) ([]byte, error) {
	return s.backend.Fetch(ctx, addr)
}

// GetSignedURL returns a URL granting read access to addr for ttl. A zero ttl
// uses DefaultSignedURLTTL. Any failure, including an unknown address, is
// reported as ErrResolutionFailed.
func (s *ContentStore) GetSignedURL(ctx context.Context, addr interfaces.ContentAddress, ttl time.Duration) (string, error) {
	if ttl == 0 {
		ttl = DefaultSignedURLTTL
	}
	if ttl < 0 {
		return "", fmt.Errorf("%w: negative ttl %s", interfaces.ErrResolutionFailed, ttl)
	}

	exists, err := s.backend.Exists(ctx, addr)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", interfaces.ErrResolutionFailed, addr.Short(), err)
	}
	if !exists {
		return "", fmt.Errorf("%w: %s: %w", interfaces.ErrResolutionFailed, addr.Short(), interfaces.ErrContentNotFound)
	}

	if p, ok := s.backend.(interfaces.Presigner); ok {
		u, err := p.PresignGet(ctx, addr, ttl)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, errNoPresigner) || s.signer == nil {
			return "", fmt.Errorf("%w: %s: %w", interfaces.ErrResolutionFailed, addr.Short(), err)
		}
	}

	if s.signer == nil {
		return "", fmt.Errorf("%w: %s: no url signer configured", interfaces.ErrResolutionFailed, addr.Short())
	}

	u, err := s.signer.Sign(addr, ttl)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", interfaces.ErrResolutionFailed, addr.Short(), err)
	}
	return u, nil
}
