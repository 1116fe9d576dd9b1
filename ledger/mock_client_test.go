package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/credential-registry/interfaces"
)

// committer returns a helper that commits a successful submission.
func committer(t *testing.T, l *MockLedgerClient) func(*interfaces.Receipt, error) *interfaces.Receipt {
	return func(r *interfaces.Receipt, err error) *interfaces.Receipt {
		t.Helper()
		require.NoError(t, err)
		res, err := l.AwaitCommit(context.Background(), r)
		require.NoError(t, err)
		return res
	}
}

func TestMockLedgerClient_RegistrationLifecycle(t *testing.T) {
	ctx := context.Background()
	authority := common.HexToAddress("0x01")
	alice := common.HexToAddress("0xAAA")
	l := NewMockLedgerClient(authority)

	receipt, err := l.SubmitRegistration(ctx, MockSession(alice), "Alice", "uid-1")
	require.NoError(t, err)
	assert.Equal(t, interfaces.TxPending, receipt.Status)
	assert.Equal(t, 1, l.PendingCount())

	// Not visible before commit.
	status, err := l.IsRegistered(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, interfaces.NotRegistered, status)

	res, err := l.AwaitCommit(ctx, receipt)
	require.NoError(t, err)
	assert.Equal(t, interfaces.TxCommitted, res.Status)
	assert.Equal(t, 0, l.PendingCount())

	status, err = l.IsRegistered(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, interfaces.Registered, status)

	addr, err := l.StudentByID(ctx, "uid-1")
	require.NoError(t, err)
	assert.Equal(t, alice, addr)

	// Awaiting twice is idempotent.
	again, err := l.AwaitCommit(ctx, receipt)
	require.NoError(t, err)
	assert.Equal(t, res.BlockNumber, again.BlockNumber)

	_, err = l.SubmitRegistration(ctx, MockSession(alice), "Alice", "uid-2")
	assert.ErrorIs(t, err, interfaces.ErrTxRejected)
	assert.ErrorIs(t, err, interfaces.ErrAlreadyRegistered)
}

func TestMockLedgerClient_ConflictingWritesRejectedAtCommit(t *testing.T) {
	ctx := context.Background()
	l := NewMockLedgerClient(common.HexToAddress("0x01"))
	alice := common.HexToAddress("0xAAA")
	bob := common.HexToAddress("0xBBB")

	first, err := l.SubmitRegistration(ctx, MockSession(alice), "Alice", "shared")
	require.NoError(t, err)
	second, err := l.SubmitRegistration(ctx, MockSession(bob), "Bob", "shared")
	require.NoError(t, err)

	// Commit order decides the winner.
	committer(t, l)(second, nil)

	res, err := l.AwaitCommit(ctx, first)
	assert.ErrorIs(t, err, interfaces.ErrDuplicateID)
	assert.Equal(t, interfaces.TxFailed, res.Status)

	addr, err := l.StudentByID(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, bob, addr)
}

func TestMockLedgerClient_Documents(t *testing.T) {
	ctx := context.Background()
	l := NewMockLedgerClient(common.HexToAddress("0x01"))
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l.SetClock(func() time.Time { return fixed })
	commit := committer(t, l)
	alice := common.HexToAddress("0xAAA")

	_, err := l.SubmitDocument(ctx, MockSession(alice), "bafk-one", "Transcript", 7)
	assert.ErrorIs(t, err, interfaces.ErrNotRegistered)

	commit(l.SubmitRegistration(ctx, MockSession(alice), "Alice", "uid-1"))
	commit(l.SubmitDocument(ctx, MockSession(alice), "bafk-one", "Transcript", 7))
	commit(l.SubmitDocument(ctx, MockSession(alice), "bafk-two", "Diploma", 3))

	docs, err := l.QueryDocuments(ctx, alice)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, uint64(0), docs[0].Index)
	assert.Equal(t, "Transcript", docs[0].DocType)
	assert.Equal(t, fixed, docs[0].Timestamp)
	assert.Equal(t, interfaces.ContentAddress("bafk-two"), docs[1].ContentAddress)

	// Returned slices are copies.
	docs[0].Endorsements = append(docs[0].Endorsements, common.HexToAddress("0xE1"))
	fresh, err := l.QueryEndorsements(ctx, alice, 0)
	require.NoError(t, err)
	assert.Empty(t, fresh)
}

func TestMockLedgerClient_Endorsements(t *testing.T) {
	ctx := context.Background()
	authority := common.HexToAddress("0x01")
	alice := common.HexToAddress("0xAAA")
	endorser := common.HexToAddress("0xE1")
	l := NewMockLedgerClient(authority)
	commit := committer(t, l)

	commit(l.SubmitRegistration(ctx, MockSession(alice), "Alice", "uid-1"))
	commit(l.SubmitDocument(ctx, MockSession(alice), "bafk-one", "Transcript", 7))

	_, err := l.SubmitEndorser(ctx, MockSession(alice), endorser)
	assert.ErrorIs(t, err, interfaces.ErrNotAuthorized)

	_, err = l.SubmitEndorsement(ctx, MockSession(endorser), alice, 0)
	assert.ErrorIs(t, err, interfaces.ErrNotAuthorized)

	commit(l.SubmitEndorser(ctx, MockSession(authority), endorser))
	ok, err := l.IsEndorser(ctx, endorser)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = l.SubmitEndorsement(ctx, MockSession(endorser), alice, 3)
	assert.ErrorIs(t, err, interfaces.ErrInvalidIndex)

	commit(l.SubmitEndorsement(ctx, MockSession(endorser), alice, 0))

	_, err = l.SubmitEndorsement(ctx, MockSession(endorser), alice, 0)
	assert.ErrorIs(t, err, interfaces.ErrAlreadyEndorsed)

	set, err := l.QueryEndorsements(ctx, alice, 0)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{endorser}, set)
}

func TestMockLedgerClient_RequiresSigner(t *testing.T) {
	l := NewMockLedgerClient(common.HexToAddress("0x01"))

	_, err := l.SubmitRegistration(context.Background(), interfaces.Session{Address: common.HexToAddress("0xAAA")}, "Alice", "uid-1")
	assert.ErrorIs(t, err, interfaces.ErrNoSigner)
}
