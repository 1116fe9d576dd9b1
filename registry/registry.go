// Package registry is the entry point for callers of the credential registry.
// It composes identity, upload and endorsement over one ledger and one content
// store, and serves the student profile and document listing queries.
//
// Nothing read from the ledger is cached between calls.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/ruteri/credential-registry/endorsement"
	"github.com/ruteri/credential-registry/identity"
	"github.com/ruteri/credential-registry/interfaces"
	"github.com/ruteri/credential-registry/metrics"
	"github.com/ruteri/credential-registry/storage"
	"github.com/ruteri/credential-registry/upload"
)

// DefaultURLConcurrency bounds concurrent signed URL resolutions per listing.
const DefaultURLConcurrency = 8

// ContentStore is the content store as seen by the registry.
type ContentStore interface {
	upload.ContentWriter
	Fetch(ctx context.Context, addr interfaces.ContentAddress) ([]byte, error)
	GetSignedURL(ctx context.Context, addr interfaces.ContentAddress, ttl time.Duration) (string, error)
}

// ProfileDocument is a document with its endorsement count.
type ProfileDocument struct {
	interfaces.Document
	EndorsementCount int `json:"endorsement_count"`
}

// Profile is a student and their documents in ledger order.
type Profile struct {
	Student   interfaces.Student `json:"student"`
	Documents []ProfileDocument  `json:"documents"`
}

// DisplayDocument is a document with a signed retrieval URL. URL is empty when
// it could not be issued.
type DisplayDocument struct {
	interfaces.Document
	URL string `json:"url"`
}

// Config holds the registry's tunables.
type Config struct {
	// URLTTL is the lifetime of signed URLs in document listings.
	URLTTL time.Duration

	// URLConcurrency bounds concurrent signed URL resolutions.
	URLConcurrency int
}

// Registry composes the credential registry components.
type Registry struct {
	ledger       interfaces.Ledger
	content      ContentStore
	journal      interfaces.OrphanJournal
	identity     *identity.Registry
	uploads      *upload.Coordinator
	endorsements *endorsement.Engine
	metrics      *metrics.Recorder
	cfg          Config
	log          *slog.Logger
}

// NewRegistry wires a registry. journal and recorder may be nil.
func NewRegistry(ledger interfaces.Ledger, content ContentStore, journal interfaces.OrphanJournal, recorder *metrics.Recorder, cfg Config, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	if cfg.URLTTL <= 0 {
		cfg.URLTTL = storage.DefaultSignedURLTTL
	}
	if cfg.URLConcurrency <= 0 {
		cfg.URLConcurrency = DefaultURLConcurrency
	}

	return &Registry{
		ledger:       ledger,
		content:      content,
		journal:      journal,
		identity:     identity.NewRegistry(ledger, recorder, log),
		uploads:      upload.NewCoordinator(content, ledger, journal, recorder, log),
		endorsements: endorsement.NewEngine(ledger, recorder, log),
		metrics:      recorder,
		cfg:          cfg,
		log:          log,
	}
}

// Register registers session.Address as a student.
func (r *Registry) Register(ctx context.Context, session interfaces.Session, name, uniqueID string) (interfaces.Student, error) {
	return r.identity.Register(ctx, session, name, uniqueID)
}

// Upload stores and records a document for session.Address.
func (r *Registry) Upload(ctx context.Context, session interfaces.Session, data []byte, contentType, docType string, weightage int) (interfaces.Document, error) {
	return r.uploads.Upload(ctx, session, data, contentType, docType, weightage)
}

// Endorse attests a student's document as session.Address.
func (r *Registry) Endorse(ctx context.Context, session interfaces.Session, student common.Address, docIndex uint64) ([]common.Address, error) {
	return r.endorsements.Endorse(ctx, session, student, docIndex)
}

// AddEndorser authorizes an endorser with the authority's session.
func (r *Registry) AddEndorser(ctx context.Context, authority interfaces.Session, endorser common.Address) error {
	return r.endorsements.AddEndorser(ctx, authority, endorser)
}

// EndorsementState reports a document's endorsement state against quorum.
func (r *Registry) EndorsementState(ctx context.Context, student common.Address, docIndex uint64, quorum int) (endorsement.State, error) {
	return r.endorsements.State(ctx, student, docIndex, quorum)
}

func (r *Registry) LookupByAddress(ctx context.Context, addr common.Address) (interfaces.Student, error) {
	return r.identity.LookupByAddress(ctx, addr)
}

func (r *Registry) LookupByID(ctx context.Context, uniqueID string) (common.Address, error) {
	return r.identity.LookupByID(ctx, uniqueID)
}

func (r *Registry) Status(ctx context.Context, addr common.Address) (interfaces.IdentityState, error) {
	return r.identity.Status(ctx, addr)
}

// Content returns the stored bytes for addr.
func (r *Registry) Content(ctx context.Context, addr interfaces.ContentAddress) ([]byte, error) {
	return r.content.Fetch(ctx, addr)
}

// Orphans lists stored content whose ledger write failed.
func (r *Registry) Orphans(ctx context.Context) ([]interfaces.OrphanRecord, error) {
	if r.journal == nil {
		return []interfaces.OrphanRecord{}, nil
	}
	return r.journal.List(ctx)
}

// GetProfile returns the student at addr and their documents, or ErrNotRegistered.
func (r *Registry) GetProfile(ctx context.Context, addr common.Address) (Profile, error) {
	student, err := r.identity.LookupByAddress(ctx, addr)
	if errors.Is(err, interfaces.ErrNotFound) {
		return Profile{}, fmt.Errorf("%w: %s", interfaces.ErrNotRegistered, addr.Hex())
	}
	if err != nil {
		return Profile{}, err
	}

	docs, err := r.ledger.QueryDocuments(ctx, addr)
	if err != nil {
		return Profile{}, err
	}

	profile := Profile{
		Student:   student,
		Documents: make([]ProfileDocument, len(docs)),
	}
	for i, d := range docs {
		profile.Documents[i] = ProfileDocument{Document: d, EndorsementCount: len(d.Endorsements)}
	}
	return profile, nil
}

// GetDocumentsForDisplay resolves uniqueID to a student and returns their
// documents with signed URLs. A document whose URL cannot be issued is returned
// with an empty URL; only identity and ledger failures fail the listing.
func (r *Registry) GetDocumentsForDisplay(ctx context.Context, uniqueID string) ([]DisplayDocument, error) {
	addr, err := r.identity.LookupByID(ctx, uniqueID)
	if err != nil {
		return nil, err
	}

	docs, err := r.ledger.QueryDocuments(ctx, addr)
	if err != nil {
		return nil, err
	}

	out := make([]DisplayDocument, len(docs))
	var g errgroup.Group
	g.SetLimit(r.cfg.URLConcurrency)
	for i, d := range docs {
		out[i].Document = d
		g.Go(func() error {
			u, err := r.content.GetSignedURL(ctx, d.ContentAddress, r.cfg.URLTTL)
			if err != nil {
				r.metrics.IncSignedURLFailure()
				r.log.Warn("signed url unavailable",
					"student", addr.Hex(),
					"index", d.Index,
					"content_address", d.ContentAddress.String(),
					"err", err)
				return nil
			}
			out[i].URL = u
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
