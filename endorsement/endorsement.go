// Package endorsement lets authorized endorsers attest student documents and
// reports aggregate endorsement state.
//
// Endorsements only accumulate. The quorum that makes a document fully
// endorsed is supplied by the caller; the ledger stores no threshold.
package endorsement

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ruteri/credential-registry/interfaces"
	"github.com/ruteri/credential-registry/metrics"
)

// Status is the endorsement state of one document.
type Status int

const (
	Unendorsed Status = iota
	PartiallyEndorsed
	FullyEndorsed
)

func (s Status) String() string {
	switch s {
	case Unendorsed:
		return "unendorsed"
	case PartiallyEndorsed:
		return "partially_endorsed"
	case FullyEndorsed:
		return "fully_endorsed"
	default:
		return "unknown"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	for _, candidate := range []Status{Unendorsed, PartiallyEndorsed, FullyEndorsed} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown endorsement status %q", text)
}

// Classify derives the status from an endorsement count. A quorum of zero or
// less means no threshold, so a document is never FullyEndorsed.
func Classify(count, quorum int) Status {
	switch {
	case count <= 0:
		return Unendorsed
	case quorum > 0 && count >= quorum:
		return FullyEndorsed
	default:
		return PartiallyEndorsed
	}
}

// State is the endorsement state of one document as currently on the ledger.
type State struct {
	Student   common.Address   `json:"student"`
	Index     uint64           `json:"index"`
	Endorsers []common.Address `json:"endorsers"`
	Count     int              `json:"count"`
	Quorum    int              `json:"quorum"`
	Status    Status           `json:"status"`
}

// Engine submits endorsements and reads endorsement state from the ledger.
type Engine struct {
	ledger  interfaces.Ledger
	metrics *metrics.Recorder
	log     *slog.Logger
}

// NewEngine creates an endorsement engine. recorder may be nil.
func NewEngine(ledger interfaces.Ledger, recorder *metrics.Recorder, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		ledger:  ledger,
		metrics: recorder,
		log:     log,
	}
}

// Endorse attests the student's document at docIndex as session.Address and
// returns the endorsement set read back after commit.
//
// A repeat attestation fails with ErrAlreadyEndorsed rather than succeeding
// silently, so callers can tell new attestations from duplicates.
func (e *Engine) Endorse(ctx context.Context, session interfaces.Session, student common.Address, docIndex uint64) (endorsers []common.Address, err error) {
	defer func() { e.metrics.ObserveEndorsement(err) }()

	if session.Signer == nil {
		return nil, interfaces.ErrNoSigner
	}

	authorized, err := e.ledger.IsEndorser(ctx, session.Address)
	if err != nil {
		return nil, err
	}
	if !authorized {
		return nil, fmt.Errorf("%w: %s is not an endorser", interfaces.ErrNotAuthorized, session.Address.Hex())
	}

	current, err := e.ledger.QueryEndorsements(ctx, student, docIndex)
	if err != nil {
		return nil, err
	}
	if slices.Contains(current, session.Address) {
		return nil, fmt.Errorf("%w: document %d of %s by %s", interfaces.ErrAlreadyEndorsed, docIndex, student.Hex(), session.Address.Hex())
	}

	receipt, err := e.ledger.SubmitEndorsement(ctx, session, student, docIndex)
	if err != nil {
		return nil, err
	}
	if _, err := e.ledger.AwaitCommit(ctx, receipt); err != nil {
		e.log.Warn("endorsement not committed",
			"student", student.Hex(),
			"index", docIndex,
			"endorser", session.Address.Hex(),
			"tx", receipt.TxHash.Hex(),
			"err", err)
		return nil, err
	}

	endorsers, err = e.ledger.QueryEndorsements(ctx, student, docIndex)
	if err != nil {
		return nil, err
	}

	e.log.Info("document endorsed",
		"student", student.Hex(),
		"index", docIndex,
		"endorser", session.Address.Hex(),
		"count", len(endorsers))
	return endorsers, nil
}

// AddEndorser authorizes endorser. The ledger accepts it only from its authority.
func (e *Engine) AddEndorser(ctx context.Context, authority interfaces.Session, endorser common.Address) error {
	if endorser == interfaces.ZeroAddress {
		return fmt.Errorf("%w: zero endorser address", interfaces.ErrValidation)
	}

	receipt, err := e.ledger.SubmitEndorser(ctx, authority, endorser)
	if err != nil {
		return err
	}
	if _, err := e.ledger.AwaitCommit(ctx, receipt); err != nil {
		return err
	}

	e.log.Info("endorser authorized", "endorser", endorser.Hex(), "authority", authority.Address.Hex())
	return nil
}

// State returns the document's endorsers and status against quorum.
func (e *Engine) State(ctx context.Context, student common.Address, docIndex uint64, quorum int) (State, error) {
	endorsers, err := e.ledger.QueryEndorsements(ctx, student, docIndex)
	if err != nil {
		return State{}, err
	}
	if endorsers == nil {
		endorsers = []common.Address{}
	}
	return State{
		Student:   student,
		Index:     docIndex,
		Endorsers: endorsers,
		Count:     len(endorsers),
		Quorum:    quorum,
		Status:    Classify(len(endorsers), quorum),
	}, nil
}
