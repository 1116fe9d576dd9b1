package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ruteri/credential-registry/interfaces"
)

// MultiStorageBackend implements interfaces.StorageBackend over several backends.
// Stores go to every available backend; fetches fall back through them in order.
type MultiStorageBackend struct {
	backends []interfaces.StorageBackend
	log      *slog.Logger
}

// NewMultiStorageBackend creates a new multi-storage backend with fallback
func NewMultiStorageBackend(backends []interfaces.StorageBackend, logger *slog.Logger) *MultiStorageBackend {
	if logger == nil {
		logger = slog.Default()
	}

	return &MultiStorageBackend{
		backends: backends,
		log:      logger,
	}
}

// Fetch returns the content from the first available backend that has it.
func (m *MultiStorageBackend) Fetch(ctx context.Context, addr interfaces.ContentAddress) ([]byte, error) {
	start := time.Now()
	var errs []error
	notFound := 0

	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			m.log.Debug("Backend unavailable",
				slog.String("backend_name", backend.Name()),
				slog.String("content_address", addr.Short()))
			continue
		}

		data, err := backend.Fetch(ctx, addr)
		if err == nil {
			m.log.Debug("Fetched content",
				slog.String("backend_name", backend.Name()),
				slog.String("content_address", addr.Short()),
				slog.Duration("duration", time.Since(start)))
			return data, nil
		}

		if errors.Is(err, interfaces.ErrContentNotFound) {
			notFound++
		}
		errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
		m.log.Debug("Failed to fetch from backend",
			slog.String("backend_name", backend.Name()),
			slog.String("content_address", addr.Short()),
			"err", err)
	}

	if notFound > 0 && notFound == len(errs) {
		return nil, interfaces.ErrContentNotFound
	}

	m.log.Error("All backends failed to fetch content",
		slog.String("content_address", addr.Short()),
		slog.Int("failed_backends", len(errs)),
		slog.Duration("duration", time.Since(start)))

	return nil, fmt.Errorf("%w: all backends failed to fetch %s: %w", interfaces.ErrStoreUnavailable, addr.Short(), errors.Join(errs...))
}

// Store saves data to all available backends and returns the first address produced.
func (m *MultiStorageBackend) Store(ctx context.Context, data []byte, contentType string) (interfaces.ContentAddress, error) {
	start := time.Now()
	var result interfaces.ContentAddress
	var errs []error

	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			m.log.Debug("Backend unavailable", slog.String("backend_name", backend.Name()))
			continue
		}

		addr, err := backend.Store(ctx, data, contentType)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
			m.log.Debug("Failed to store to backend",
				slog.String("backend_name", backend.Name()),
				"err", err)
			continue
		}

		if result == "" {
			result = addr
			m.log.Info("Stored content",
				slog.String("backend_name", backend.Name()),
				slog.String("content_address", addr.String()),
				slog.Duration("duration", time.Since(start)))
		} else if result != addr {
			m.log.Warn("Inconsistent addresses from backends",
				slog.String("backend_name", backend.Name()),
				slog.String("expected_address", result.String()),
				slog.String("actual_address", addr.String()))
		}
	}

	if result == "" {
		m.log.Error("All backends failed to store data",
			slog.Int("failed_backends", len(errs)),
			slog.Duration("duration", time.Since(start)))
		return "", fmt.Errorf("%w: all backends failed to store data: %w", interfaces.ErrStoreUnavailable, errors.Join(errs...))
	}

	return result, nil
}

// Exists reports whether any available backend holds addr.
func (m *MultiStorageBackend) Exists(ctx context.Context, addr interfaces.ContentAddress) (bool, error) {
	var errs []error
	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			continue
		}
		ok, err := backend.Exists(ctx, addr)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
			continue
		}
		if ok {
			return true, nil
		}
	}
	if len(errs) > 0 && len(errs) == len(m.backends) {
		return false, fmt.Errorf("%w: %w", interfaces.ErrStoreUnavailable, errors.Join(errs...))
	}
	return false, nil
}

// PresignGet delegates to the first presigning backend that holds addr.
func (m *MultiStorageBackend) PresignGet(ctx context.Context, addr interfaces.ContentAddress, ttl time.Duration) (string, error) {
	for _, backend := range m.backends {
		p, ok := backend.(interfaces.Presigner)
		if !ok || !backend.Available(ctx) {
			continue
		}
		if has, err := backend.Exists(ctx, addr); err != nil || !has {
			continue
		}
		return p.PresignGet(ctx, addr, ttl)
	}
	return "", errNoPresigner
}

// errNoPresigner tells the content store to fall back to locally signed URLs.
var errNoPresigner = errors.New("no presigning backend holds the content")

// Available checks if any backend is available
func (m *MultiStorageBackend) Available(ctx context.Context) bool {
	for _, backend := range m.backends {
		if backend.Available(ctx) {
			return true
		}
	}
	return false
}

// Name returns the name of this backend
func (m *MultiStorageBackend) Name() string {
	return "multi-storage"
}

// LocationURI returns a combined URI listing every backend.
func (m *MultiStorageBackend) LocationURI() string {
	var locations []string
	for _, backend := range m.backends {
		locations = append(locations, backend.LocationURI())
	}

	return "multi:[" + strings.Join(locations, ",") + "]"
}
