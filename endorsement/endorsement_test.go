package endorsement

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/credential-registry/interfaces"
	"github.com/ruteri/credential-registry/ledger"
)

var (
	authority = common.HexToAddress("0xA0")
	student   = common.HexToAddress("0xAAA")
	end1      = common.HexToAddress("0xE1D1")
	end2      = common.HexToAddress("0xE1D2")
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestEngine returns an engine over a ledger holding one document for student
// and end1 authorized as endorser.
func newTestEngine(t *testing.T) (*Engine, *ledger.MockLedgerClient) {
	t.Helper()
	ctx := context.Background()
	l := ledger.NewMockLedgerClient(authority)
	e := NewEngine(l, nil, testLogger())

	commit := func(r *interfaces.Receipt, err error) {
		require.NoError(t, err)
		_, err = l.AwaitCommit(ctx, r)
		require.NoError(t, err)
	}
	commit(l.SubmitRegistration(ctx, ledger.MockSession(student), "Ada", "ada-1"))

	addr, err := interfaces.ComputeAddress([]byte("%PDF transcript"))
	require.NoError(t, err)
	commit(l.SubmitDocument(ctx, ledger.MockSession(student), addr, "Transcript", 7))

	require.NoError(t, e.AddEndorser(ctx, ledger.MockSession(authority), end1))
	return e, l
}

func TestClassify(t *testing.T) {
	tests := []struct {
		count, quorum int
		want          Status
	}{
		{0, 0, Unendorsed},
		{0, 3, Unendorsed},
		{1, 0, PartiallyEndorsed},
		{1, 3, PartiallyEndorsed},
		{2, 3, PartiallyEndorsed},
		{3, 3, FullyEndorsed},
		{4, 3, FullyEndorsed},
		{1, 1, FullyEndorsed},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.count, tt.quorum), "count=%d quorum=%d", tt.count, tt.quorum)
	}
}

func TestEndorse_OneEndorsementIsPartial(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	state, err := e.State(ctx, student, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, Unendorsed, state.Status)
	assert.Equal(t, []common.Address{}, state.Endorsers)

	endorsers, err := e.Endorse(ctx, ledger.MockSession(end1), student, 0)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{end1}, endorsers)

	state, err = e.State(ctx, student, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, PartiallyEndorsed, state.Status)
	assert.Equal(t, 1, state.Count)
	assert.Equal(t, []common.Address{end1}, state.Endorsers)
}

func TestEndorse_DuplicateRejected(t *testing.T) {
	e, l := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Endorse(ctx, ledger.MockSession(end1), student, 0)
	require.NoError(t, err)

	_, err = e.Endorse(ctx, ledger.MockSession(end1), student, 0)
	require.ErrorIs(t, err, interfaces.ErrAlreadyEndorsed)
	assert.Equal(t, interfaces.KindAlreadyEndorsed, interfaces.KindOf(err))

	endorsers, err := l.QueryEndorsements(ctx, student, 0)
	require.NoError(t, err)
	assert.Len(t, endorsers, 1)
}

func TestEndorse_NotAuthorized(t *testing.T) {
	e, l := newTestEngine(t)
	ctx := context.Background()
	stranger := common.HexToAddress("0x5757")

	_, err := e.Endorse(ctx, ledger.MockSession(stranger), student, 0)
	require.ErrorIs(t, err, interfaces.ErrNotAuthorized)
	assert.Equal(t, interfaces.KindNotAuthorized, interfaces.KindOf(err))

	endorsers, err := l.QueryEndorsements(ctx, student, 0)
	require.NoError(t, err)
	assert.Empty(t, endorsers)
	assert.Zero(t, l.PendingCount())
}

func TestEndorse_InvalidIndex(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.Endorse(context.Background(), ledger.MockSession(end1), student, 5)
	assert.ErrorIs(t, err, interfaces.ErrInvalidIndex)

	_, err = e.State(context.Background(), student, 5, 0)
	assert.ErrorIs(t, err, interfaces.ErrInvalidIndex)
}

func TestEndorse_QuorumReached(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, e.AddEndorser(ctx, ledger.MockSession(authority), end2))

	_, err := e.Endorse(ctx, ledger.MockSession(end1), student, 0)
	require.NoError(t, err)
	endorsers, err := e.Endorse(ctx, ledger.MockSession(end2), student, 0)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{end1, end2}, endorsers)

	state, err := e.State(ctx, student, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, FullyEndorsed, state.Status)

	state, err = e.State(ctx, student, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, PartiallyEndorsed, state.Status)
}

func TestAddEndorser_OnlyAuthority(t *testing.T) {
	e, l := newTestEngine(t)
	ctx := context.Background()

	err := e.AddEndorser(ctx, ledger.MockSession(end1), end2)
	require.ErrorIs(t, err, interfaces.ErrNotAuthorized)

	ok, err := l.IsEndorser(ctx, end2)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, e.AddEndorser(ctx, ledger.MockSession(authority), common.Address{}), interfaces.ErrValidation)
}

func TestEndorse_RejectedAtCommit(t *testing.T) {
	l := new(ledger.MockLedger)
	e := NewEngine(l, nil, testLogger())
	ctx := context.Background()

	pending := &interfaces.Receipt{TxHash: common.HexToHash("0x02"), Status: interfaces.TxPending}
	l.On("IsEndorser", mock.Anything, end1).Return(true, nil)
	l.On("QueryEndorsements", mock.Anything, student, uint64(0)).Return([]common.Address{}, nil).Once()
	l.On("SubmitEndorsement", mock.Anything, end1, student, uint64(0)).Return(pending, nil)
	l.On("AwaitCommit", mock.Anything, pending).Return(nil, interfaces.ErrAlreadyEndorsed)

	_, err := e.Endorse(ctx, ledger.MockSession(end1), student, 0)
	assert.ErrorIs(t, err, interfaces.ErrAlreadyEndorsed)
	l.AssertExpectations(t)
}

func TestStatus_TextRoundTrip(t *testing.T) {
	text, err := PartiallyEndorsed.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "partially_endorsed", string(text))

	var s Status
	require.NoError(t, s.UnmarshalText(text))
	assert.Equal(t, PartiallyEndorsed, s)
	assert.Error(t, s.UnmarshalText([]byte("revoked")))
}
