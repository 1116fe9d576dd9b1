// Package interfaces defines the core interfaces and types for the credential registry.
// It provides the contract between the ledger, storage and coordination components
// without implementation details.
package interfaces

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Weightage bounds accepted for uploaded documents.
const (
	MinWeightage = 1
	MaxWeightage = 10
)

// ZeroAddress is the ledger's sentinel for "not found" on address-returning reads.
var ZeroAddress = common.Address{}

// Session carries the caller's wallet context into every ledger write.
// The core never holds keys: Signer is supplied by whoever owns the wallet.
type Session struct {
	// Address is the wallet address transactions are sent from.
	Address common.Address

	// Signer signs transactions on behalf of Address.
	Signer bind.SignerFn
}

// Student is an identity bound to a wallet address.
type Student struct {
	Address  common.Address `json:"address"`
	Name     string         `json:"name"`
	UniqueID string         `json:"unique_id"`
	Exists   bool           `json:"exists"`
}

// Document is one uploaded credential owned by exactly one student.
type Document struct {
	Owner          common.Address   `json:"owner"`
	Index          uint64           `json:"index"`
	ContentAddress ContentAddress   `json:"content_address"`
	DocType        string           `json:"doc_type"`
	Timestamp      time.Time        `json:"timestamp"`
	Weightage      uint8            `json:"weightage"`
	Endorsements   []common.Address `json:"endorsements"`
}

// HasEndorser reports whether endorser already attested this document.
func (d *Document) HasEndorser(endorser common.Address) bool {
	for _, e := range d.Endorsements {
		if e == endorser {
			return true
		}
	}
	return false
}

// Endorser is a wallet address authorized to attest documents.
type Endorser struct {
	Address    common.Address `json:"address"`
	Authorized bool           `json:"authorized"`
}

// RegistrationStatus mirrors the ledger's isStudentRegistered flag.
// The wire encoding is a uint8 with room for future states, so it is not a bool.
type RegistrationStatus uint8

const (
	NotRegistered RegistrationStatus = 0
	Registered    RegistrationStatus = 1
)

// ParseRegistrationStatus validates a raw ledger flag.
func ParseRegistrationStatus(raw uint8) (RegistrationStatus, error) {
	switch RegistrationStatus(raw) {
	case NotRegistered, Registered:
		return RegistrationStatus(raw), nil
	default:
		return NotRegistered, fmt.Errorf("unknown registration status %d", raw)
	}
}

func (s RegistrationStatus) String() string {
	switch s {
	case NotRegistered:
		return "not_registered"
	case Registered:
		return "registered"
	default:
		return "unknown"
	}
}

// IdentityState is the result of an identity lookup. Unlike RegistrationStatus it
// can express that the lookup itself could not be completed.
type IdentityState int

const (
	IdentityNotRegistered IdentityState = iota
	IdentityRegistered
	IdentityLookupFailed
)

func (s IdentityState) String() string {
	switch s {
	case IdentityNotRegistered:
		return "not_registered"
	case IdentityRegistered:
		return "registered"
	case IdentityLookupFailed:
		return "lookup_failed"
	default:
		return "unknown"
	}
}

// TxStatus is the lifecycle of a submitted ledger write.
type TxStatus int

const (
	TxPending TxStatus = iota
	TxCommitted
	TxFailed
)

func (s TxStatus) String() string {
	switch s {
	case TxPending:
		return "pending"
	case TxCommitted:
		return "committed"
	case TxFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Receipt tracks a ledger write from submission to commit or rejection.
type Receipt struct {
	TxHash      common.Hash    `json:"tx_hash"`
	From        common.Address `json:"from"`
	Status      TxStatus       `json:"status"`
	BlockNumber uint64         `json:"block_number,omitempty"`

	// TxIndex is the position of the transaction within its block once mined.
	TxIndex uint `json:"tx_index,omitempty"`

	// Tx is the submitted transaction, nil for ledgers that are not EVM backed.
	Tx *types.Transaction `json:"-"`
}
