package interfaces

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// LedgerWriter submits facts to the ledger. Every submission returns a pending
// receipt; the write is final only after AwaitCommit reports it committed.
type LedgerWriter interface {
	// SubmitRegistration registers session.Address as a student.
	SubmitRegistration(ctx context.Context, session Session, name, uniqueID string) (*Receipt, error)

	// SubmitDocument records document metadata for session.Address.
	SubmitDocument(ctx context.Context, session Session, addr ContentAddress, docType string, weightage uint8) (*Receipt, error)

	// SubmitEndorsement attests the student's document at docIndex as session.Address.
	SubmitEndorsement(ctx context.Context, session Session, student common.Address, docIndex uint64) (*Receipt, error)

	// SubmitEndorser authorizes an endorser. Only the ledger authority may call it.
	SubmitEndorser(ctx context.Context, session Session, endorser common.Address) (*Receipt, error)

	// AwaitCommit blocks until the write is committed or rejected.
	// A rejected write returns ErrTxRejected.
	AwaitCommit(ctx context.Context, receipt *Receipt) (*Receipt, error)
}

// LedgerReader reads facts from the ledger. Every call re-reads the ledger.
type LedgerReader interface {
	// QueryStudent returns the student record or ErrNotFound.
	QueryStudent(ctx context.Context, student common.Address) (Student, error)

	// QueryDocuments returns the student's documents in ledger order.
	QueryDocuments(ctx context.Context, student common.Address) ([]Document, error)

	// DocumentIndex returns the index of the document recorded by a committed
	// SubmitDocument receipt.
	DocumentIndex(ctx context.Context, student common.Address, receipt *Receipt) (uint64, error)

	// QueryEndorsements returns the endorsers of one document, or ErrInvalidIndex.
	QueryEndorsements(ctx context.Context, student common.Address, docIndex uint64) ([]common.Address, error)

	// IsRegistered returns the registration flag for an address.
	IsRegistered(ctx context.Context, student common.Address) (RegistrationStatus, error)

	// StudentByID resolves a unique id, returning ErrNotFound for the zero address.
	StudentByID(ctx context.Context, uniqueID string) (common.Address, error)

	// IsEndorser reports whether addr is an authorized endorser.
	IsEndorser(ctx context.Context, addr common.Address) (bool, error)
}

// Ledger is the typed adapter over the credential contract.
type Ledger interface {
	LedgerWriter
	LedgerReader
}

// OrphanRecord describes stored content that never got a ledger record.
type OrphanRecord struct {
	ContentAddress ContentAddress `json:"content_address"`
	Student        common.Address `json:"student"`
	DocType        string         `json:"doc_type"`
	Reason         string         `json:"reason"`
	RecordedAt     time.Time      `json:"recorded_at"`
}

// OrphanJournal keeps orphaned uploads visible for later reconciliation.
type OrphanJournal interface {
	// Record appends an orphan entry.
	Record(ctx context.Context, rec OrphanRecord) error

	// List returns all recorded orphans ordered by time.
	List(ctx context.Context) ([]OrphanRecord, error)
}
