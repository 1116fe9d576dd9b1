package identity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/credential-registry/interfaces"
	"github.com/ruteri/credential-registry/ledger"
)

var authority = common.HexToAddress("0xA0")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRegistry() (*Registry, *ledger.MockLedgerClient) {
	l := ledger.NewMockLedgerClient(authority)
	return NewRegistry(l, nil, testLogger()), l
}

func TestRegister_LookupRoundTrip(t *testing.T) {
	r, _ := newTestRegistry()
	ctx := context.Background()
	student := common.HexToAddress("0xAAA")

	id := NewUniqueID()
	s, err := r.Register(ctx, ledger.MockSession(student), "Ada Lovelace", id)
	require.NoError(t, err)
	assert.Equal(t, interfaces.Student{Address: student, Name: "Ada Lovelace", UniqueID: id, Exists: true}, s)

	addr, err := r.LookupByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, student, addr)

	got, err := r.LookupByAddress(ctx, student)
	require.NoError(t, err)
	assert.Equal(t, s, got)

	status, err := r.Status(ctx, student)
	require.NoError(t, err)
	assert.Equal(t, interfaces.IdentityRegistered, status)
}

func TestRegister_Conflicts(t *testing.T) {
	r, _ := newTestRegistry()
	ctx := context.Background()
	alice := common.HexToAddress("0xA11CE")
	bob := common.HexToAddress("0xB0B")

	_, err := r.Register(ctx, ledger.MockSession(alice), "Alice", "id-1")
	require.NoError(t, err)

	_, err = r.Register(ctx, ledger.MockSession(alice), "Alice", "id-2")
	require.ErrorIs(t, err, interfaces.ErrAlreadyRegistered)
	assert.Equal(t, interfaces.KindAlreadyRegistered, interfaces.KindOf(err))

	_, err = r.Register(ctx, ledger.MockSession(bob), "Bob", "id-1")
	require.ErrorIs(t, err, interfaces.ErrDuplicateID)
	assert.Equal(t, interfaces.KindDuplicateID, interfaces.KindOf(err))

	status, err := r.Status(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, interfaces.IdentityNotRegistered, status)
}

func TestRegister_Validation(t *testing.T) {
	r, l := newTestRegistry()
	ctx := context.Background()
	student := common.HexToAddress("0xAAA")

	tests := []struct {
		name    string
		session interfaces.Session
		sName   string
		id      string
		wantErr error
	}{
		{"blank name", ledger.MockSession(student), "  ", "id", interfaces.ErrValidation},
		{"blank id", ledger.MockSession(student), "Ada", "", interfaces.ErrValidation},
		{"zero address", ledger.MockSession(common.Address{}), "Ada", "id", interfaces.ErrValidation},
		{"no signer", interfaces.Session{Address: student}, "Ada", "id", interfaces.ErrNoSigner},
		{"padded name", ledger.MockSession(student), " Ada", "id-1", interfaces.ErrValidation},
		{"padded id", ledger.MockSession(student), "Ada", "id-1 ", interfaces.ErrValidation},
		{"tab in id", ledger.MockSession(student), "Ada", "\tid-1", interfaces.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Register(ctx, tt.session, tt.sName, tt.id)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Zero(t, l.PendingCount())
}

func TestLookupByID_Unknown(t *testing.T) {
	r, _ := newTestRegistry()

	addr, err := r.LookupByID(context.Background(), "never-registered")
	require.ErrorIs(t, err, interfaces.ErrNotFound)
	assert.Equal(t, interfaces.KindNotFound, interfaces.KindOf(err))
	assert.Equal(t, common.Address{}, addr)

	_, err = r.LookupByAddress(context.Background(), common.HexToAddress("0xDEAD"))
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestLookupByID_ZeroAddressIsNotFound(t *testing.T) {
	l := new(ledger.MockLedger)
	l.On("StudentByID", mock.Anything, "ghost").Return(common.Address{}, nil)

	r := NewRegistry(l, nil, testLogger())
	_, err := r.LookupByID(context.Background(), "ghost")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
	l.AssertExpectations(t)
}

func TestStatus_LookupFailed(t *testing.T) {
	l := new(ledger.MockLedger)
	student := common.HexToAddress("0xAAA")
	l.On("IsRegistered", mock.Anything, student).
		Return(interfaces.NotRegistered, fmt.Errorf("%w: dial tcp: refused", interfaces.ErrLedgerUnavailable))

	r := NewRegistry(l, nil, testLogger())
	status, err := r.Status(context.Background(), student)
	require.ErrorIs(t, err, interfaces.ErrLedgerUnavailable)
	assert.Equal(t, interfaces.IdentityLookupFailed, status)
}

func TestNewUniqueID_ConcurrentUniqueness(t *testing.T) {
	const n = 256
	ids := make(chan string, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- NewUniqueID()
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]struct{}, n)
	for id := range ids {
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, n)
}

func TestRegister_ConcurrentRegistrations(t *testing.T) {
	r, _ := newTestRegistry()
	ctx := context.Background()

	const n = 32
	students := make([]common.Address, n)
	ids := make([]string, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		students[i] = common.BigToAddress(big.NewInt(int64(0x1000 + i)))
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = NewUniqueID()
			_, errs[i] = r.Register(ctx, ledger.MockSession(students[i]), fmt.Sprintf("student-%d", i), ids[i])
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		addr, err := r.LookupByID(ctx, ids[i])
		require.NoError(t, err)
		assert.Equal(t, students[i], addr)
	}
}

func TestRegister_ConcurrentSameIDOneWins(t *testing.T) {
	r, _ := newTestRegistry()
	ctx := context.Background()

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			addr := common.BigToAddress(big.NewInt(int64(0x1000 + i)))
			_, errs[i] = r.Register(ctx, ledger.MockSession(addr), "twin", "shared-id")
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.True(t, errors.Is(err, interfaces.ErrDuplicateID), "unexpected error %v", err)
	}
	assert.Equal(t, 1, ok)
}
