package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ruteri/credential-registry/interfaces"
)

// FileBackend implements a storage backend using the local file system.
// Documents are stored flat under a documents directory, named by content address.
type FileBackend struct {
	baseDir     string
	docDir      string
	log         *slog.Logger
	locationURI string
}

// NewFileBackend creates a new file storage backend using the specified base directory.
// It creates the documents directory if it doesn't exist.
func NewFileBackend(baseDir string, log *slog.Logger) (*FileBackend, error) {
	docDir := filepath.Join(baseDir, "documents")
	if err := os.MkdirAll(docDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create documents directory: %w", err)
	}

	return &FileBackend{
		baseDir:     baseDir,
		docDir:      docDir,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", baseDir),
	}, nil
}

// Fetch retrieves a document from the file system by its content address.
// Returns ErrContentNotFound if the file doesn't exist.
func (b *FileBackend) Fetch(ctx context.Context, addr interfaces.ContentAddress) ([]byte, error) {
	filePath, err := b.filePath(addr)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, interfaces.ErrContentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	b.log.Debug("Fetched content from file",
		slog.String("path", filePath),
		slog.Int("size", len(data)))

	return data, nil
}

// Store saves data to the file system and returns its content address.
// Writes go through a temporary file so a partially written document is never visible.
func (b *FileBackend) Store(ctx context.Context, data []byte, contentType string) (interfaces.ContentAddress, error) {
	addr, err := interfaces.ComputeAddress(data)
	if err != nil {
		return "", err
	}

	filePath, err := b.filePath(addr)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(b.docDir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filePath); err != nil {
		return "", fmt.Errorf("failed to move file into place: %w", err)
	}

	b.log.Debug("Stored content in file",
		slog.String("path", filePath),
		slog.String("contentType", contentType),
		slog.String("contentAddress", addr.String()))

	return addr, nil
}

// Exists reports whether a document with the given address is on disk.
func (b *FileBackend) Exists(ctx context.Context, addr interfaces.ContentAddress) (bool, error) {
	filePath, err := b.filePath(addr)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(filePath)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat file: %w", err)
	}
	return true, nil
}

// Available checks if the file backend is accessible by verifying the base directory exists.
func (b *FileBackend) Available(ctx context.Context) bool {
	_, err := os.Stat(b.docDir)
	if err != nil {
		b.log.Debug("File backend unavailable", "err", err)
		return false
	}
	return true
}

// Name returns a unique identifier for this storage backend.
func (b *FileBackend) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(b.baseDir))
}

// LocationURI returns the URI that identifies this storage backend.
func (b *FileBackend) LocationURI() string {
	return b.locationURI
}

// filePath maps a content address to its file. Addresses are parsed first so
// arbitrary strings can never escape the documents directory.
func (b *FileBackend) filePath(addr interfaces.ContentAddress) (string, error) {
	parsed, err := interfaces.ParseContentAddress(addr.String())
	if err != nil {
		return "", err
	}
	return filepath.Join(b.docDir, parsed.String()), nil
}
