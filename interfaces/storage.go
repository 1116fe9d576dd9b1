package interfaces

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// ContentAddress is a CID uniquely identifying stored document bytes.
type ContentAddress string

// ComputeAddress derives the CIDv1 (raw codec, sha2-256) for data.
// Identical bytes always produce the identical address.
func ComputeAddress(data []byte) (ContentAddress, error) {
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return "", fmt.Errorf("could not hash content: %w", err)
	}
	return ContentAddress(cid.NewCidV1(cid.Raw, mh).String()), nil
}

// ParseContentAddress validates a CID string (v0 or v1).
func ParseContentAddress(s string) (ContentAddress, error) {
	c, err := cid.Decode(s)
	if err != nil {
		return "", fmt.Errorf("%w: invalid content address %q: %v", ErrValidation, s, err)
	}
	return ContentAddress(c.String()), nil
}

// String returns the CID string.
func (a ContentAddress) String() string {
	return string(a)
}

// Short returns an abbreviated form for logging.
func (a ContentAddress) Short() string {
	if len(a) <= 16 {
		return string(a)
	}
	return string(a[:8]) + ".." + string(a[len(a)-6:])
}

// StorageBackendLocation represents URI for storage backend.
type StorageBackendLocation struct {
	Raw    string     // Original URI
	Scheme string     // Protocol
	Host   string     // Hostname
	Path   string     // Resource path
	Query  url.Values // Query parameters
	Auth   string     // Authentication info
}

// NewStorageBackendLocation creates a new storage location from a URI string with validation.
func NewStorageBackendLocation(uri string) (StorageBackendLocation, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return StorageBackendLocation{}, fmt.Errorf("%w: %v", ErrInvalidLocationURI, err)
	}

	scheme := parsed.Scheme
	switch scheme {
	case "file", "s3", "minio", "ipfs":
	default:
		return StorageBackendLocation{}, fmt.Errorf("%w: unsupported storage scheme: %s", ErrInvalidLocationURI, scheme)
	}

	var auth string
	if parsed.User != nil {
		auth = parsed.User.String()
	}

	return StorageBackendLocation{
		Raw:    uri,
		Scheme: scheme,
		Host:   parsed.Host,
		Path:   parsed.Path,
		Query:  parsed.Query(),
		Auth:   auth,
	}, nil
}

// String returns the original URI string.
func (loc StorageBackendLocation) String() string {
	return loc.Raw
}

// GetParam returns a query parameter value.
func (loc StorageBackendLocation) GetParam(name string) string {
	return loc.Query.Get(name)
}

// GetParamBool returns a boolean query parameter value.
func (loc StorageBackendLocation) GetParamBool(name string) bool {
	value := loc.Query.Get(name)
	return value == "true" || value == "1" || value == "yes"
}

// StorageBackend provides content-addressed document storage.
type StorageBackend interface {
	// Store saves data and returns its content address.
	Store(ctx context.Context, data []byte, contentType string) (ContentAddress, error)

	// Fetch retrieves data by content address.
	Fetch(ctx context.Context, addr ContentAddress) ([]byte, error)

	// Exists reports whether the backend holds addr.
	Exists(ctx context.Context, addr ContentAddress) (bool, error)

	// Available checks if backend is accessible.
	Available(ctx context.Context) bool

	// Name returns identifier for logging.
	Name() string

	// LocationURI returns URI identifying this backend.
	LocationURI() string
}

// Presigner is implemented by backends that can issue native time-limited URLs.
type Presigner interface {
	// PresignGet returns a URL granting read access to addr until ttl elapses.
	PresignGet(ctx context.Context, addr ContentAddress, ttl time.Duration) (string, error)
}

// StorageBackendFactory creates storage backends.
type StorageBackendFactory interface {
	// StorageBackendFor creates backend from URI.
	// Supports file://, s3://, minio://, ipfs://
	StorageBackendFor(location StorageBackendLocation) (StorageBackend, error)

	// CreateMultiBackend creates aggregated storage backend.
	CreateMultiBackend(locations []StorageBackendLocation) (StorageBackend, error)
}
