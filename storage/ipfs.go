package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	shell "github.com/ipfs/go-ipfs-api"

	"github.com/ruteri/credential-registry/interfaces"
)

// IPFSBackend implements a storage backend using the InterPlanetary File System (IPFS).
// Documents are added as CIDv1 with raw leaves and pinned on the connected node; the
// node-assigned CID is the content address.
type IPFSBackend struct {
	shell       *shell.Shell
	host        string
	port        string
	log         *slog.Logger
	locationURI string
}

// NewIPFSBackend creates a new IPFS storage backend connected to the API at host:port.
func NewIPFSBackend(host, port string, timeout time.Duration, log *slog.Logger) (*IPFSBackend, error) {
	apiURL := fmt.Sprintf("%s:%s", host, port)

	sh := shell.NewShell(apiURL)
	sh.SetTimeout(timeout)

	return &IPFSBackend{
		shell:       sh,
		host:        host,
		port:        port,
		log:         log,
		locationURI: fmt.Sprintf("ipfs://%s/?timeout=%s", apiURL, timeout),
	}, nil
}

// Fetch retrieves a document from IPFS by its content address.
// Returns ErrContentNotFound if the content doesn't exist or ErrStoreUnavailable
// if the IPFS node is not accessible.
func (b *IPFSBackend) Fetch(ctx context.Context, addr interfaces.ContentAddress) ([]byte, error) {
	start := time.Now()
	path := "/ipfs/" + addr.String()

	if !b.shell.IsUp() {
		b.log.Warn("IPFS node unavailable",
			slog.String("host", b.host),
			slog.String("port", b.port))
		return nil, interfaces.ErrStoreUnavailable
	}

	reader, err := b.shell.Cat(path)
	if err != nil {
		if isIPFSNotFound(err) {
			b.log.Debug("Content not found in IPFS",
				slog.String("path", path),
				slog.Duration("duration", time.Since(start)))
			return nil, interfaces.ErrContentNotFound
		}

		b.log.Error("Failed to fetch data from IPFS",
			slog.String("path", path),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("%w: failed to fetch data from IPFS: %v", interfaces.ErrStoreUnavailable, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read data from IPFS: %v", interfaces.ErrStoreUnavailable, err)
	}

	b.log.Debug("Fetched content from IPFS",
		slog.String("path", path),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return data, nil
}

// Store adds and pins data on the IPFS node and returns its CID.
// Returns ErrStoreUnavailable if the IPFS node is not accessible.
func (b *IPFSBackend) Store(ctx context.Context, data []byte, contentType string) (interfaces.ContentAddress, error) {
	if !b.shell.IsUp() {
		return "", interfaces.ErrStoreUnavailable
	}

	cid, err := b.shell.Add(bytes.NewReader(data),
		shell.CidVersion(1),
		shell.RawLeaves(true),
		shell.Pin(true))
	if err != nil {
		return "", fmt.Errorf("%w: failed to add data to IPFS: %v", interfaces.ErrStoreUnavailable, err)
	}

	b.log.Debug("Stored content in IPFS",
		slog.String("ipfsCID", cid),
		slog.String("contentType", contentType))

	return interfaces.ContentAddress(cid), nil
}

// Exists checks whether the node holds the root block locally, without fetching
// it from the network.
func (b *IPFSBackend) Exists(ctx context.Context, addr interfaces.ContentAddress) (bool, error) {
	err := b.shell.Request("block/stat", addr.String()).
		Option("offline", true).
		Exec(ctx, nil)
	if err == nil {
		return true, nil
	}
	if isIPFSNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("%w: block stat: %v", interfaces.ErrStoreUnavailable, err)
}

// Available checks if the IPFS node is accessible.
func (b *IPFSBackend) Available(ctx context.Context) bool {
	return b.shell.IsUp()
}

// Name returns a unique identifier for this storage backend.
func (b *IPFSBackend) Name() string {
	return fmt.Sprintf("ipfs-%s-%s", b.host, b.port)
}

// LocationURI returns the URI that identifies this storage backend.
func (b *IPFSBackend) LocationURI() string {
	return b.locationURI
}

func isIPFSNotFound(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "not found") || strings.Contains(msg, "no link named")
}
