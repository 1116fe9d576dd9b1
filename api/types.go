package api

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ruteri/credential-registry/endorsement"
	"github.com/ruteri/credential-registry/interfaces"
	"github.com/ruteri/credential-registry/registry"
	"github.com/ruteri/credential-registry/urlsign"
)

// Routes served by the registry HTTP server.
const (
	StudentProfilePath = "/api/public/students/{address}"
	CertificatesPath   = "/api/public/certs/{unique_id}"
	EndorsementsPath   = "/api/public/students/{address}/documents/{index}/endorsements"
	ContentPath        = urlsign.ContentPath + "{content_address}"
	OrphansPath        = "/api/admin/orphans"

	// BearerPrefix precedes the admin token in the Authorization header.
	BearerPrefix = "Bearer "

	// QuorumParam is the query parameter carrying the caller's endorsement quorum.
	QuorumParam = "quorum"
)

// RegistryReader is the read surface the HTTP API serves.
type RegistryReader interface {
	GetProfile(ctx context.Context, addr common.Address) (registry.Profile, error)
	GetDocumentsForDisplay(ctx context.Context, uniqueID string) ([]registry.DisplayDocument, error)
	EndorsementState(ctx context.Context, student common.Address, docIndex uint64, quorum int) (endorsement.State, error)
	Content(ctx context.Context, addr interfaces.ContentAddress) ([]byte, error)
	Orphans(ctx context.Context) ([]interfaces.OrphanRecord, error)
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	// Error is the error kind, e.g. "NotRegistered".
	Error interfaces.ErrorKind `json:"error"`

	// Message is a human readable description.
	Message string `json:"message"`
}

// DocumentsResponse lists a student's documents with signed URLs.
type DocumentsResponse struct {
	UniqueID  string                     `json:"unique_id"`
	Documents []registry.DisplayDocument `json:"documents"`
}

// OrphansResponse lists stored content without a ledger record.
type OrphansResponse struct {
	Orphans []interfaces.OrphanRecord `json:"orphans"`
}
