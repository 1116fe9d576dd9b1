// Package upload records a student's document as a store-then-ledger sequence.
//
// The content write always precedes the ledger write. When the ledger write
// fails the stored bytes are left in place and journaled as an orphan; nothing
// is rolled back.
package upload

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ruteri/credential-registry/interfaces"
	"github.com/ruteri/credential-registry/metrics"
	"github.com/ruteri/credential-registry/storage"
)

// ContentWriter stores document bytes under their content address.
type ContentWriter interface {
	Put(ctx context.Context, data []byte, contentType string) (interfaces.ContentAddress, error)
	Limits() storage.Limits
}

// Coordinator runs uploads. It holds no per-student state; concurrent uploads
// are ordered by the ledger.
type Coordinator struct {
	content ContentWriter
	ledger  interfaces.Ledger
	journal interfaces.OrphanJournal
	metrics *metrics.Recorder
	log     *slog.Logger
	now     func() time.Time
}

// NewCoordinator creates an upload coordinator. journal and recorder may be nil.
func NewCoordinator(content ContentWriter, ledger interfaces.Ledger, journal interfaces.OrphanJournal, recorder *metrics.Recorder, log *slog.Logger) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{
		content: content,
		ledger:  ledger,
		journal: journal,
		metrics: recorder,
		log:     log,
		now:     time.Now,
	}
}

// Validate checks upload inputs against the content limits. It has no side effects.
func (c *Coordinator) Validate(data []byte, contentType, docType string, weightage int) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty file", interfaces.ErrValidation)
	}
	if err := c.content.Limits().Check(data, contentType); err != nil {
		return fmt.Errorf("%w: %w", interfaces.ErrValidation, err)
	}
	if strings.TrimSpace(docType) == "" {
		return fmt.Errorf("%w: document type is required", interfaces.ErrValidation)
	}
	if weightage < interfaces.MinWeightage || weightage > interfaces.MaxWeightage {
		return fmt.Errorf("%w: weightage %d outside [%d,%d]", interfaces.ErrValidation, weightage, interfaces.MinWeightage, interfaces.MaxWeightage)
	}
	return nil
}

// Upload stores data and records it for session.Address, returning the
// document as the ledger recorded it.
//
// Failures are reported as ErrValidation or ErrNotRegistered before anything is
// written, ErrStorageFailed when the content write failed, and
// ErrLedgerWriteFailed when the content was stored but the ledger write was
// rejected or not observed.
func (c *Coordinator) Upload(ctx context.Context, session interfaces.Session, data []byte, contentType, docType string, weightage int) (doc interfaces.Document, err error) {
	defer func() { c.metrics.ObserveUpload(err) }()

	if err := c.Validate(data, contentType, docType, weightage); err != nil {
		return interfaces.Document{}, err
	}
	if session.Signer == nil {
		return interfaces.Document{}, interfaces.ErrNoSigner
	}
	docType = strings.TrimSpace(docType)

	status, err := c.ledger.IsRegistered(ctx, session.Address)
	if err != nil {
		return interfaces.Document{}, err
	}
	if status != interfaces.Registered {
		return interfaces.Document{}, fmt.Errorf("%w: %s", interfaces.ErrNotRegistered, session.Address.Hex())
	}

	addr, err := c.content.Put(ctx, data, contentType)
	if err != nil {
		c.log.Warn("document store failed", "student", session.Address.Hex(), "err", err)
		return interfaces.Document{}, fmt.Errorf("%w: %w", interfaces.ErrStorageFailed, err)
	}

	committed, err := c.record(ctx, session, addr, docType, uint8(weightage))
	if err != nil {
		c.orphan(ctx, session, addr, docType, err)
		return interfaces.Document{}, fmt.Errorf("%w: %s: %w", interfaces.ErrLedgerWriteFailed, addr.Short(), err)
	}

	doc, err = c.readBack(ctx, session, addr, committed)
	if err != nil {
		return interfaces.Document{}, err
	}

	c.log.Info("document uploaded",
		"student", session.Address.Hex(),
		"index", doc.Index,
		"content_address", addr.String(),
		"doc_type", doc.DocType,
		"weightage", doc.Weightage)
	return doc, nil
}

func (c *Coordinator) record(ctx context.Context, session interfaces.Session, addr interfaces.ContentAddress, docType string, weightage uint8) (*interfaces.Receipt, error) {
	receipt, err := c.ledger.SubmitDocument(ctx, session, addr, docType, weightage)
	if err != nil {
		return nil, err
	}
	c.log.Debug("document submitted", "content_address", addr.String(), "tx", receipt.TxHash.Hex())

	return c.ledger.AwaitCommit(ctx, receipt)
}

// orphan journals stored content that has no ledger record.
func (c *Coordinator) orphan(ctx context.Context, session interfaces.Session, addr interfaces.ContentAddress, docType string, cause error) {
	c.metrics.IncOrphan()
	c.log.Error("ledger write failed, stored content is orphaned",
		"student", session.Address.Hex(),
		"content_address", addr.String(),
		"err", cause)

	if c.journal == nil {
		return
	}
	rec := interfaces.OrphanRecord{
		ContentAddress: addr,
		Student:        session.Address,
		DocType:        docType,
		Reason:         cause.Error(),
		RecordedAt:     c.now().UTC(),
	}
	// The caller may have abandoned ctx; the record must still be written.
	if err := c.journal.Record(context.WithoutCancel(ctx), rec); err != nil {
		c.log.Error("failed to journal orphaned content", "content_address", addr.String(), "err", err)
	}
}

// readBack returns the document the committed write recorded. The index comes
// from the receipt, so identical concurrent uploads each get their own entry.
func (c *Coordinator) readBack(ctx context.Context, session interfaces.Session, addr interfaces.ContentAddress, committed *interfaces.Receipt) (interfaces.Document, error) {
	idx, err := c.ledger.DocumentIndex(ctx, session.Address, committed)
	if err != nil {
		return interfaces.Document{}, err
	}
	docs, err := c.ledger.QueryDocuments(ctx, session.Address)
	if err != nil {
		return interfaces.Document{}, err
	}
	if idx >= uint64(len(docs)) || docs[idx].ContentAddress != addr {
		return interfaces.Document{}, fmt.Errorf("%w: committed document %s not yet visible at index %d", interfaces.ErrLedgerUnavailable, addr.Short(), idx)
	}
	return docs[idx], nil
}
