package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/ruteri/credential-registry/interfaces"
)

// contractDocument matches the EduVerify.Document tuple returned by getStudentDocuments.
type contractDocument struct {
	IpfsHash     string
	DocType      string
	Timestamp    *big.Int
	Weightage    *big.Int
	Endorsements []common.Address
}

// revertReasons maps fragments of contract revert messages to error kinds.
// Matching is case-insensitive; the first match wins.
var revertReasons = []struct {
	fragment string
	err      error
}{
	{"already registered", interfaces.ErrAlreadyRegistered},
	{"id already", interfaces.ErrDuplicateID},
	{"id taken", interfaces.ErrDuplicateID},
	{"duplicate", interfaces.ErrDuplicateID},
	{"already endorsed", interfaces.ErrAlreadyEndorsed},
	{"not an endorser", interfaces.ErrNotAuthorized},
	{"not authorized", interfaces.ErrNotAuthorized},
	{"only owner", interfaces.ErrNotAuthorized},
	{"caller is not the owner", interfaces.ErrNotAuthorized},
	{"invalid index", interfaces.ErrInvalidIndex},
	{"invalid document", interfaces.ErrInvalidIndex},
	{"out-of-bounds", interfaces.ErrInvalidIndex},
	{"not registered", interfaces.ErrNotRegistered},
}

// revertKind returns the error kind a revert message maps to, or nil.
func revertKind(err error) error {
	msg := strings.ToLower(err.Error())
	for _, r := range revertReasons {
		if strings.Contains(msg, r.fragment) {
			return r.err
		}
	}
	return nil
}

// mapSubmitError classifies a failed submission. Every submission failure is a
// TxRejected; recognised reverts additionally carry their specific kind.
func mapSubmitError(method string, err error) error {
	if errors.Is(err, interfaces.ErrNoSigner) {
		return err
	}
	if kind := revertKind(err); kind != nil {
		return fmt.Errorf("%w: %w: %s: %v", interfaces.ErrTxRejected, kind, method, err)
	}
	return fmt.Errorf("%w: %s: %v", interfaces.ErrTxRejected, method, err)
}

// mapCallError classifies a failed read.
func mapCallError(method string, err error) error {
	if kind := revertKind(err); kind != nil {
		return fmt.Errorf("%w: %s: %v", kind, method, err)
	}
	return fmt.Errorf("%w: %s: %v", interfaces.ErrLedgerUnavailable, method, err)
}

// EthLedgerClient implements interfaces.Ledger against the credential registry
// contract deployed on an EVM chain.
type EthLedgerClient struct {
	contract *bind.BoundContract
	abi      abi.ABI
	caller   bind.ContractCaller
	filterer bind.ContractFilterer
	backend  bind.DeployBackend
	address  common.Address
	log      *slog.Logger
}

// NewEthLedgerClient creates a client for the contract at address. It requires a
// ContractBackend for calls and transactions and a DeployBackend for awaiting receipts.
func NewEthLedgerClient(client bind.ContractBackend, backend bind.DeployBackend, address common.Address, log *slog.Logger) (*EthLedgerClient, error) {
	return newEthLedgerClient(client, client, client, backend, address, log)
}

func newEthLedgerClient(caller bind.ContractCaller, transactor bind.ContractTransactor, filterer bind.ContractFilterer, backend bind.DeployBackend, address common.Address, log *slog.Logger) (*EthLedgerClient, error) {
	parsed, err := ParsedABI()
	if err != nil {
		return nil, fmt.Errorf("could not parse contract abi: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}

	return &EthLedgerClient{
		contract: bind.NewBoundContract(address, parsed, caller, transactor, filterer),
		abi:      parsed,
		caller:   caller,
		filterer: filterer,
		backend:  backend,
		address:  address,
		log:      log,
	}, nil
}

// Address returns the contract address.
func (c *EthLedgerClient) Address() common.Address {
	return c.address
}

func transactOpts(ctx context.Context, session interfaces.Session) (*bind.TransactOpts, error) {
	if session.Signer == nil {
		return nil, interfaces.ErrNoSigner
	}
	return &bind.TransactOpts{
		From:    session.Address,
		Signer:  session.Signer,
		Context: ctx,
	}, nil
}

func (c *EthLedgerClient) submit(ctx context.Context, session interfaces.Session, method string, args ...interface{}) (*interfaces.Receipt, error) {
	opts, err := transactOpts(ctx, session)
	if err != nil {
		return nil, err
	}

	tx, err := c.contract.Transact(opts, method, args...)
	if err != nil {
		c.log.Debug("Ledger submission failed",
			slog.String("method", method),
			slog.String("from", session.Address.Hex()),
			"err", err)
		return nil, mapSubmitError(method, err)
	}

	c.log.Debug("Submitted ledger transaction",
		slog.String("method", method),
		slog.String("from", session.Address.Hex()),
		slog.String("txHash", tx.Hash().Hex()))

	return &interfaces.Receipt{
		TxHash: tx.Hash(),
		From:   session.Address,
		Status: interfaces.TxPending,
		Tx:     tx,
	}, nil
}

// SubmitRegistration sends registerStudent(name, uniqueID) from session.Address.
func (c *EthLedgerClient) SubmitRegistration(ctx context.Context, session interfaces.Session, name, uniqueID string) (*interfaces.Receipt, error) {
	return c.submit(ctx, session, methodRegisterStudent, name, uniqueID)
}

// SubmitDocument sends uploadDocument(contentAddress, docType, weightage).
func (c *EthLedgerClient) SubmitDocument(ctx context.Context, session interfaces.Session, addr interfaces.ContentAddress, docType string, weightage uint8) (*interfaces.Receipt, error) {
	return c.submit(ctx, session, methodUploadDocument, addr.String(), docType, new(big.Int).SetUint64(uint64(weightage)))
}

// SubmitEndorsement sends endorseDocument(student, docIndex).
func (c *EthLedgerClient) SubmitEndorsement(ctx context.Context, session interfaces.Session, student common.Address, docIndex uint64) (*interfaces.Receipt, error) {
	return c.submit(ctx, session, methodEndorseDocument, student, new(big.Int).SetUint64(docIndex))
}

// SubmitEndorser sends addEndorser(endorser). The contract restricts it to its authority.
func (c *EthLedgerClient) SubmitEndorser(ctx context.Context, session interfaces.Session, endorser common.Address) (*interfaces.Receipt, error) {
	return c.submit(ctx, session, methodAddEndorser, endorser)
}

// AwaitCommit waits for the transaction to be mined. A reverted receipt returns
// ErrTxRejected together with the failed receipt.
func (c *EthLedgerClient) AwaitCommit(ctx context.Context, receipt *interfaces.Receipt) (*interfaces.Receipt, error) {
	if receipt == nil || receipt.Tx == nil {
		return nil, fmt.Errorf("%w: receipt has no transaction", interfaces.ErrValidation)
	}

	start := time.Now()
	mined, err := bind.WaitMined(ctx, c.backend, receipt.Tx)
	if err != nil {
		return receipt, fmt.Errorf("%w: commit of %s not observed: %v", interfaces.ErrTxRejected, receipt.TxHash.Hex(), err)
	}

	res := *receipt
	res.TxIndex = mined.TransactionIndex
	if mined.BlockNumber != nil {
		res.BlockNumber = mined.BlockNumber.Uint64()
	}

	if mined.Status != types.ReceiptStatusSuccessful {
		res.Status = interfaces.TxFailed
		c.log.Warn("Ledger transaction reverted",
			slog.String("txHash", res.TxHash.Hex()),
			slog.Uint64("block", res.BlockNumber),
			slog.Duration("duration", time.Since(start)))
		if kind := c.revertReason(ctx, &res, mined.BlockNumber); kind != nil {
			return &res, fmt.Errorf("%w: %w: transaction %s reverted in block %d", interfaces.ErrTxRejected, kind, res.TxHash.Hex(), res.BlockNumber)
		}
		return &res, fmt.Errorf("%w: transaction %s reverted in block %d", interfaces.ErrTxRejected, res.TxHash.Hex(), res.BlockNumber)
	}

	res.Status = interfaces.TxCommitted
	c.log.Debug("Ledger transaction committed",
		slog.String("txHash", res.TxHash.Hex()),
		slog.Uint64("block", res.BlockNumber),
		slog.Duration("duration", time.Since(start)))
	return &res, nil
}

// revertReason replays a reverted transaction against the state of its block
// and returns the error kind its revert message maps to, or nil. Receipts carry
// no revert message.
func (c *EthLedgerClient) revertReason(ctx context.Context, receipt *interfaces.Receipt, block *big.Int) error {
	tx := receipt.Tx
	to := tx.To()
	if to == nil {
		to = &c.address
	}
	_, err := c.caller.CallContract(ctx, ethereum.CallMsg{
		From:  receipt.From,
		To:    to,
		Gas:   tx.Gas(),
		Value: tx.Value(),
		Data:  tx.Data(),
	}, block)
	if err == nil {
		return nil
	}
	c.log.Debug("Replayed reverted transaction",
		slog.String("txHash", receipt.TxHash.Hex()),
		"err", err)
	return revertKind(err)
}

func (c *EthLedgerClient) call(ctx context.Context, method string, want int, args ...interface{}) ([]interface{}, error) {
	var out []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, mapCallError(method, err)
	}
	if len(out) < want {
		return nil, fmt.Errorf("%w: %s returned %d values, expected %d", interfaces.ErrLedgerUnavailable, method, len(out), want)
	}
	return out, nil
}

// QueryStudent reads students(address). A record without the exists marker is ErrNotFound.
func (c *EthLedgerClient) QueryStudent(ctx context.Context, student common.Address) (interfaces.Student, error) {
	out, err := c.call(ctx, methodStudents, 4, student)
	if err != nil {
		return interfaces.Student{}, err
	}

	exists := *abi.ConvertType(out[3], new(bool)).(*bool)
	if !exists {
		return interfaces.Student{}, fmt.Errorf("%w: student %s", interfaces.ErrNotFound, student.Hex())
	}

	wallet := *abi.ConvertType(out[2], new(common.Address)).(*common.Address)
	if wallet == interfaces.ZeroAddress {
		wallet = student
	}

	return interfaces.Student{
		Address:  wallet,
		Name:     *abi.ConvertType(out[0], new(string)).(*string),
		UniqueID: *abi.ConvertType(out[1], new(string)).(*string),
		Exists:   true,
	}, nil
}

// QueryDocuments reads getStudentDocuments(address) in ledger order.
func (c *EthLedgerClient) QueryDocuments(ctx context.Context, student common.Address) ([]interfaces.Document, error) {
	out, err := c.call(ctx, methodGetStudentDocuments, 1, student)
	if err != nil {
		return nil, err
	}

	raw := *abi.ConvertType(out[0], new([]contractDocument)).(*[]contractDocument)
	docs := make([]interfaces.Document, 0, len(raw))
	for i, d := range raw {
		doc, err := toDocument(student, uint64(i), d)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func toDocument(owner common.Address, index uint64, d contractDocument) (interfaces.Document, error) {
	if d.Weightage == nil || !d.Weightage.IsUint64() || d.Weightage.Uint64() > math.MaxUint8 {
		return interfaces.Document{}, fmt.Errorf("%w: document %d has out of range weightage %v", interfaces.ErrLedgerUnavailable, index, d.Weightage)
	}

	var ts time.Time
	if d.Timestamp != nil && d.Timestamp.IsInt64() {
		ts = time.Unix(d.Timestamp.Int64(), 0).UTC()
	}

	endorsements := d.Endorsements
	if endorsements == nil {
		endorsements = []common.Address{}
	}

	return interfaces.Document{
		Owner:          owner,
		Index:          index,
		ContentAddress: interfaces.ContentAddress(d.IpfsHash),
		DocType:        d.DocType,
		Timestamp:      ts,
		Weightage:      uint8(d.Weightage.Uint64()),
		Endorsements:   endorsements,
	}, nil
}

// DocumentIndex returns the index of the document a committed uploadDocument
// receipt appended: the student's document count before the receipt's block
// plus the student's DocumentUploaded events earlier in the same block.
func (c *EthLedgerClient) DocumentIndex(ctx context.Context, student common.Address, receipt *interfaces.Receipt) (uint64, error) {
	if receipt == nil || receipt.Status != interfaces.TxCommitted || receipt.BlockNumber == 0 {
		return 0, fmt.Errorf("%w: receipt is not committed", interfaces.ErrValidation)
	}

	var out []interface{}
	prior := new(big.Int).SetUint64(receipt.BlockNumber - 1)
	if err := c.contract.Call(&bind.CallOpts{Context: ctx, BlockNumber: prior}, &out, methodGetStudentDocuments, student); err != nil {
		return 0, mapCallError(methodGetStudentDocuments, err)
	}
	if len(out) < 1 {
		return 0, fmt.Errorf("%w: %s returned no values", interfaces.ErrLedgerUnavailable, methodGetStudentDocuments)
	}
	before := *abi.ConvertType(out[0], new([]contractDocument)).(*[]contractDocument)

	block := new(big.Int).SetUint64(receipt.BlockNumber)
	logs, err := c.filterer.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: block,
		ToBlock:   block,
		Addresses: []common.Address{c.address},
		Topics: [][]common.Hash{
			{c.abi.Events[eventDocumentUploaded].ID},
			{common.BytesToHash(student.Bytes())},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %s logs in block %d: %v", interfaces.ErrLedgerUnavailable, eventDocumentUploaded, receipt.BlockNumber, err)
	}

	index := uint64(len(before))
	for _, l := range logs {
		if !l.Removed && l.TxIndex < receipt.TxIndex {
			index++
		}
	}
	return index, nil
}

// QueryEndorsements reads getEndorsements(address, docIndex).
func (c *EthLedgerClient) QueryEndorsements(ctx context.Context, student common.Address, docIndex uint64) ([]common.Address, error) {
	out, err := c.call(ctx, methodGetEndorsements, 1, student, new(big.Int).SetUint64(docIndex))
	if err != nil {
		return nil, err
	}

	endorsers := *abi.ConvertType(out[0], new([]common.Address)).(*[]common.Address)
	if endorsers == nil {
		endorsers = []common.Address{}
	}
	return endorsers, nil
}

// IsRegistered reads the isStudentRegistered flag.
func (c *EthLedgerClient) IsRegistered(ctx context.Context, student common.Address) (interfaces.RegistrationStatus, error) {
	out, err := c.call(ctx, methodIsStudentRegistered, 1, student)
	if err != nil {
		return interfaces.NotRegistered, err
	}

	status, err := interfaces.ParseRegistrationStatus(*abi.ConvertType(out[0], new(uint8)).(*uint8))
	if err != nil {
		return interfaces.NotRegistered, fmt.Errorf("%w: %v", interfaces.ErrLedgerUnavailable, err)
	}
	return status, nil
}

// StudentByID resolves a unique id. The zero address means the id is unbound.
func (c *EthLedgerClient) StudentByID(ctx context.Context, uniqueID string) (common.Address, error) {
	out, err := c.call(ctx, methodStudentByID, 1, uniqueID)
	if err != nil {
		return common.Address{}, err
	}

	addr := *abi.ConvertType(out[0], new(common.Address)).(*common.Address)
	if addr == interfaces.ZeroAddress {
		return common.Address{}, fmt.Errorf("%w: unique id %q", interfaces.ErrNotFound, uniqueID)
	}
	return addr, nil
}

// IsEndorser reads endorsers(address).
func (c *EthLedgerClient) IsEndorser(ctx context.Context, addr common.Address) (bool, error) {
	out, err := c.call(ctx, methodEndorsers, 1, addr)
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}
