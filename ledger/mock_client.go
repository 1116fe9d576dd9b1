package ledger

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/ruteri/credential-registry/interfaces"
)

// pendingWrite is a submitted but not yet committed transaction.
// check is re-run at commit time so racing writes are serialized by commit order.
type pendingWrite struct {
	method string
	from   common.Address
	check  func() error
	apply  func(ts time.Time)
}

// recordedDocument identifies the document a committed upload appended.
type recordedDocument struct {
	owner common.Address
	index uint64
}

// MockLedgerClient provides an in-memory implementation of the interfaces.Ledger
// interface for testing purposes without requiring a blockchain connection.
// Submissions are validated against committed state and queued; AwaitCommit
// re-validates and applies them, mirroring the contract's require checks.
type MockLedgerClient struct {
	mutex     sync.RWMutex
	authority common.Address
	students  map[common.Address]interfaces.Student
	byID      map[string]common.Address
	documents map[common.Address][]interfaces.Document
	endorsers map[common.Address]bool
	pending   map[common.Hash]pendingWrite
	committed map[common.Hash]uint64
	recorded  map[common.Hash]recordedDocument
	nonce     uint64
	block     uint64
	now       func() time.Time
}

// NewMockLedgerClient creates a new mock ledger whose authority (the contract
// deployer) may authorize endorsers.
func NewMockLedgerClient(authority common.Address) *MockLedgerClient {
	return &MockLedgerClient{
		authority: authority,
		students:  make(map[common.Address]interfaces.Student),
		byID:      make(map[string]common.Address),
		documents: make(map[common.Address][]interfaces.Document),
		endorsers: make(map[common.Address]bool),
		pending:   make(map[common.Hash]pendingWrite),
		committed: make(map[common.Hash]uint64),
		recorded:  make(map[common.Hash]recordedDocument),
		now:       time.Now,
	}
}

// SetClock replaces the clock used for ledger-assigned timestamps.
func (m *MockLedgerClient) SetClock(now func() time.Time) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.now = now
}

// MockSession returns a session whose signer passes transactions through unchanged.
func MockSession(addr common.Address) interfaces.Session {
	return interfaces.Session{
		Address: addr,
		Signer: func(_ common.Address, tx *types.Transaction) (*types.Transaction, error) {
			return tx, nil
		},
	}
}

// rejected wraps a contract-level failure the way EthLedgerClient maps reverts.
func rejected(kind error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %w: %s", interfaces.ErrTxRejected, kind, fmt.Sprintf(format, args...))
}

func (m *MockLedgerClient) submit(session interfaces.Session, method string, check func() error, apply func(ts time.Time)) (*interfaces.Receipt, error) {
	if session.Signer == nil {
		return nil, interfaces.ErrNoSigner
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if err := check(); err != nil {
		return nil, err
	}

	m.nonce++
	var nonce [8]byte
	binary.BigEndian.PutUint64(nonce[:], m.nonce)
	hash := crypto.Keccak256Hash(session.Address.Bytes(), nonce[:], []byte(method))

	m.pending[hash] = pendingWrite{method: method, from: session.Address, check: check, apply: apply}
	return &interfaces.Receipt{TxHash: hash, From: session.Address, Status: interfaces.TxPending}, nil
}

// SubmitRegistration queues registerStudent(name, uniqueID) from session.Address.
func (m *MockLedgerClient) SubmitRegistration(ctx context.Context, session interfaces.Session, name, uniqueID string) (*interfaces.Receipt, error) {
	from := session.Address
	check := func() error {
		if _, ok := m.students[from]; ok {
			return rejected(interfaces.ErrAlreadyRegistered, "student %s", from.Hex())
		}
		if owner, ok := m.byID[uniqueID]; ok && owner != from {
			return rejected(interfaces.ErrDuplicateID, "unique id %q", uniqueID)
		}
		return nil
	}
	apply := func(time.Time) {
		m.students[from] = interfaces.Student{Address: from, Name: name, UniqueID: uniqueID, Exists: true}
		m.byID[uniqueID] = from
	}
	return m.submit(session, methodRegisterStudent, check, apply)
}

// SubmitDocument queues uploadDocument(addr, docType, weightage) from session.Address.
func (m *MockLedgerClient) SubmitDocument(ctx context.Context, session interfaces.Session, addr interfaces.ContentAddress, docType string, weightage uint8) (*interfaces.Receipt, error) {
	from := session.Address
	check := func() error {
		if _, ok := m.students[from]; !ok {
			return rejected(interfaces.ErrNotRegistered, "student %s", from.Hex())
		}
		if weightage < interfaces.MinWeightage || weightage > interfaces.MaxWeightage {
			return rejected(interfaces.ErrValidation, "weightage %d", weightage)
		}
		return nil
	}
	apply := func(ts time.Time) {
		docs := m.documents[from]
		m.documents[from] = append(docs, interfaces.Document{
			Owner:          from,
			Index:          uint64(len(docs)),
			ContentAddress: addr,
			DocType:        docType,
			Timestamp:      ts,
			Weightage:      weightage,
			Endorsements:   []common.Address{},
		})
	}
	return m.submit(session, methodUploadDocument, check, apply)
}

// SubmitEndorsement queues endorseDocument(student, docIndex) from session.Address.
func (m *MockLedgerClient) SubmitEndorsement(ctx context.Context, session interfaces.Session, student common.Address, docIndex uint64) (*interfaces.Receipt, error) {
	from := session.Address
	check := func() error {
		if !m.endorsers[from] {
			return rejected(interfaces.ErrNotAuthorized, "%s is not an endorser", from.Hex())
		}
		docs := m.documents[student]
		if docIndex >= uint64(len(docs)) {
			return rejected(interfaces.ErrInvalidIndex, "document %d of %s", docIndex, student.Hex())
		}
		if docs[docIndex].HasEndorser(from) {
			return rejected(interfaces.ErrAlreadyEndorsed, "document %d of %s", docIndex, student.Hex())
		}
		return nil
	}
	apply := func(time.Time) {
		doc := &m.documents[student][docIndex]
		doc.Endorsements = append(doc.Endorsements, from)
	}
	return m.submit(session, methodEndorseDocument, check, apply)
}

// SubmitEndorser queues addEndorser(endorser). Only the authority may call it.
func (m *MockLedgerClient) SubmitEndorser(ctx context.Context, session interfaces.Session, endorser common.Address) (*interfaces.Receipt, error) {
	from := session.Address
	check := func() error {
		if from != m.authority {
			return rejected(interfaces.ErrNotAuthorized, "%s is not the authority", from.Hex())
		}
		return nil
	}
	apply := func(time.Time) {
		m.endorsers[endorser] = true
	}
	return m.submit(session, methodAddEndorser, check, apply)
}

// AwaitCommit commits a pending write in submission-independent order: whichever
// write is awaited first wins, and a conflicting later one is rejected.
func (m *MockLedgerClient) AwaitCommit(ctx context.Context, receipt *interfaces.Receipt) (*interfaces.Receipt, error) {
	if receipt == nil {
		return nil, fmt.Errorf("%w: nil receipt", interfaces.ErrValidation)
	}
	if err := ctx.Err(); err != nil {
		return receipt, fmt.Errorf("%w: commit of %s not observed: %v", interfaces.ErrTxRejected, receipt.TxHash.Hex(), err)
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	res := *receipt
	if block, ok := m.committed[receipt.TxHash]; ok {
		res.Status = interfaces.TxCommitted
		res.BlockNumber = block
		return &res, nil
	}

	write, ok := m.pending[receipt.TxHash]
	if !ok {
		return receipt, fmt.Errorf("%w: unknown transaction %s", interfaces.ErrTxRejected, receipt.TxHash.Hex())
	}
	delete(m.pending, receipt.TxHash)

	m.block++
	res.BlockNumber = m.block

	if err := write.check(); err != nil {
		res.Status = interfaces.TxFailed
		return &res, fmt.Errorf("transaction %s reverted in block %d: %w", res.TxHash.Hex(), res.BlockNumber, err)
	}

	write.apply(m.now().UTC().Truncate(time.Second))
	m.committed[receipt.TxHash] = m.block
	if write.method == methodUploadDocument {
		m.recorded[receipt.TxHash] = recordedDocument{
			owner: write.from,
			index: uint64(len(m.documents[write.from]) - 1),
		}
	}
	res.Status = interfaces.TxCommitted
	return &res, nil
}

// QueryStudent returns the committed student record or ErrNotFound.
func (m *MockLedgerClient) QueryStudent(ctx context.Context, student common.Address) (interfaces.Student, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	s, ok := m.students[student]
	if !ok {
		return interfaces.Student{}, fmt.Errorf("%w: student %s", interfaces.ErrNotFound, student.Hex())
	}
	return s, nil
}

// QueryDocuments returns a copy of the student's committed documents.
func (m *MockLedgerClient) QueryDocuments(ctx context.Context, student common.Address) ([]interfaces.Document, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	docs := make([]interfaces.Document, len(m.documents[student]))
	for i, d := range m.documents[student] {
		d.Endorsements = append([]common.Address{}, d.Endorsements...)
		docs[i] = d
	}
	return docs, nil
}

// DocumentIndex returns the index of the document appended by a committed upload.
func (m *MockLedgerClient) DocumentIndex(ctx context.Context, student common.Address, receipt *interfaces.Receipt) (uint64, error) {
	if receipt == nil {
		return 0, fmt.Errorf("%w: nil receipt", interfaces.ErrValidation)
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()

	doc, ok := m.recorded[receipt.TxHash]
	if !ok || doc.owner != student {
		return 0, fmt.Errorf("%w: no document of %s recorded by %s", interfaces.ErrNotFound, student.Hex(), receipt.TxHash.Hex())
	}
	return doc.index, nil
}

// QueryEndorsements returns a copy of one document's endorsers.
func (m *MockLedgerClient) QueryEndorsements(ctx context.Context, student common.Address, docIndex uint64) ([]common.Address, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	docs := m.documents[student]
	if docIndex >= uint64(len(docs)) {
		return nil, fmt.Errorf("%w: document %d of %s", interfaces.ErrInvalidIndex, docIndex, student.Hex())
	}
	return append([]common.Address{}, docs[docIndex].Endorsements...), nil
}

// IsRegistered returns the registration flag for an address.
func (m *MockLedgerClient) IsRegistered(ctx context.Context, student common.Address) (interfaces.RegistrationStatus, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if _, ok := m.students[student]; ok {
		return interfaces.Registered, nil
	}
	return interfaces.NotRegistered, nil
}

// StudentByID resolves a unique id to its address or ErrNotFound.
func (m *MockLedgerClient) StudentByID(ctx context.Context, uniqueID string) (common.Address, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	addr, ok := m.byID[uniqueID]
	if !ok {
		return common.Address{}, fmt.Errorf("%w: unique id %q", interfaces.ErrNotFound, uniqueID)
	}
	return addr, nil
}

// IsEndorser reports whether addr was authorized by the authority.
func (m *MockLedgerClient) IsEndorser(ctx context.Context, addr common.Address) (bool, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.endorsers[addr], nil
}

// PendingCount returns the number of submitted but uncommitted writes.
func (m *MockLedgerClient) PendingCount() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return len(m.pending)
}
