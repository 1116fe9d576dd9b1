// Package identity binds wallet addresses to student records on the ledger.
//
// Uniqueness of addresses and unique ids is enforced by the ledger. The checks
// made here before submitting only give callers a precise error without paying
// for a rejected transaction; a racing registration is still rejected at commit.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/ruteri/credential-registry/interfaces"
	"github.com/ruteri/credential-registry/metrics"
)

// NewUniqueID returns a random collision-resistant student id.
func NewUniqueID() string {
	return uuid.NewString()
}

// Registry registers and resolves student identities.
type Registry struct {
	ledger  interfaces.Ledger
	metrics *metrics.Recorder
	log     *slog.Logger
}

// NewRegistry creates an identity registry over ledger. recorder may be nil.
func NewRegistry(ledger interfaces.Ledger, recorder *metrics.Recorder, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		ledger:  ledger,
		metrics: recorder,
		log:     log,
	}
}

// Register binds session.Address to (name, uniqueID) and returns the student as
// read back from the ledger after commit.
func (r *Registry) Register(ctx context.Context, session interfaces.Session, name, uniqueID string) (student interfaces.Student, err error) {
	defer func() { r.metrics.ObserveRegistration(err) }()

	switch {
	case session.Address == interfaces.ZeroAddress:
		return interfaces.Student{}, fmt.Errorf("%w: zero wallet address", interfaces.ErrValidation)
	case session.Signer == nil:
		return interfaces.Student{}, interfaces.ErrNoSigner
	case strings.TrimSpace(name) == "":
		return interfaces.Student{}, fmt.Errorf("%w: name is required", interfaces.ErrValidation)
	case strings.TrimSpace(uniqueID) == "":
		return interfaces.Student{}, fmt.Errorf("%w: unique id is required", interfaces.ErrValidation)
	case name != strings.TrimSpace(name):
		return interfaces.Student{}, fmt.Errorf("%w: name has surrounding whitespace", interfaces.ErrValidation)
	case uniqueID != strings.TrimSpace(uniqueID):
		return interfaces.Student{}, fmt.Errorf("%w: unique id %q has surrounding whitespace", interfaces.ErrValidation, uniqueID)
	}

	status, err := r.ledger.IsRegistered(ctx, session.Address)
	if err != nil {
		return interfaces.Student{}, err
	}
	if status == interfaces.Registered {
		return interfaces.Student{}, fmt.Errorf("%w: %s", interfaces.ErrAlreadyRegistered, session.Address.Hex())
	}

	owner, err := r.ledger.StudentByID(ctx, uniqueID)
	switch {
	case errors.Is(err, interfaces.ErrNotFound):
	case err != nil:
		return interfaces.Student{}, err
	case owner != session.Address:
		return interfaces.Student{}, fmt.Errorf("%w: %q is bound to %s", interfaces.ErrDuplicateID, uniqueID, owner.Hex())
	}

	receipt, err := r.ledger.SubmitRegistration(ctx, session, name, uniqueID)
	if err != nil {
		return interfaces.Student{}, err
	}
	r.log.Debug("registration submitted", "student", session.Address.Hex(), "tx", receipt.TxHash.Hex())

	if _, err := r.ledger.AwaitCommit(ctx, receipt); err != nil {
		r.log.Warn("registration not committed", "student", session.Address.Hex(), "tx", receipt.TxHash.Hex(), "err", err)
		return interfaces.Student{}, err
	}

	student, err = r.ledger.QueryStudent(ctx, session.Address)
	if err != nil {
		return interfaces.Student{}, err
	}

	r.log.Info("student registered", "student", student.Address.Hex(), "unique_id", student.UniqueID)
	return student, nil
}

// LookupByAddress returns the student registered at addr or ErrNotFound.
func (r *Registry) LookupByAddress(ctx context.Context, addr common.Address) (interfaces.Student, error) {
	student, err := r.ledger.QueryStudent(ctx, addr)
	if err != nil {
		return interfaces.Student{}, err
	}
	if !student.Exists {
		return interfaces.Student{}, fmt.Errorf("%w: student %s", interfaces.ErrNotFound, addr.Hex())
	}
	return student, nil
}

// LookupByID resolves a unique id to the address that registered it. The
// ledger's zero-address sentinel is reported as ErrNotFound.
func (r *Registry) LookupByID(ctx context.Context, uniqueID string) (common.Address, error) {
	if strings.TrimSpace(uniqueID) == "" {
		return common.Address{}, fmt.Errorf("%w: unique id is required", interfaces.ErrValidation)
	}

	addr, err := r.ledger.StudentByID(ctx, uniqueID)
	if err != nil {
		return common.Address{}, err
	}
	if addr == interfaces.ZeroAddress {
		return common.Address{}, fmt.Errorf("%w: unique id %q", interfaces.ErrNotFound, uniqueID)
	}
	return addr, nil
}

// Status reports whether addr is registered. A failed lookup is reported as
// IdentityLookupFailed together with the cause, never as NotRegistered.
func (r *Registry) Status(ctx context.Context, addr common.Address) (interfaces.IdentityState, error) {
	status, err := r.ledger.IsRegistered(ctx, addr)
	if err != nil {
		return interfaces.IdentityLookupFailed, err
	}
	if status == interfaces.Registered {
		return interfaces.IdentityRegistered, nil
	}
	return interfaces.IdentityNotRegistered, nil
}
