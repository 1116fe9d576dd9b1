package ledger

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/credential-registry/interfaces"
	"github.com/stretchr/testify/mock"
)

// MockLedger mocks the interfaces.Ledger interface
type MockLedger struct {
	mock.Mock
}

func receiptArg(args mock.Arguments, i int) *interfaces.Receipt {
	if args.Get(i) == nil {
		return nil
	}
	return args.Get(i).(*interfaces.Receipt)
}

// SubmitRegistration mocks the SubmitRegistration method
func (m *MockLedger) SubmitRegistration(ctx context.Context, session interfaces.Session, name, uniqueID string) (*interfaces.Receipt, error) {
	args := m.Called(ctx, session.Address, name, uniqueID)
	return receiptArg(args, 0), args.Error(1)
}

// SubmitDocument mocks the SubmitDocument method
func (m *MockLedger) SubmitDocument(ctx context.Context, session interfaces.Session, addr interfaces.ContentAddress, docType string, weightage uint8) (*interfaces.Receipt, error) {
	args := m.Called(ctx, session.Address, addr, docType, weightage)
	return receiptArg(args, 0), args.Error(1)
}

// SubmitEndorsement mocks the SubmitEndorsement method
func (m *MockLedger) SubmitEndorsement(ctx context.Context, session interfaces.Session, student common.Address, docIndex uint64) (*interfaces.Receipt, error) {
	args := m.Called(ctx, session.Address, student, docIndex)
	return receiptArg(args, 0), args.Error(1)
}

// SubmitEndorser mocks the SubmitEndorser method
func (m *MockLedger) SubmitEndorser(ctx context.Context, session interfaces.Session, endorser common.Address) (*interfaces.Receipt, error) {
	args := m.Called(ctx, session.Address, endorser)
	return receiptArg(args, 0), args.Error(1)
}

// AwaitCommit mocks the AwaitCommit method
func (m *MockLedger) AwaitCommit(ctx context.Context, receipt *interfaces.Receipt) (*interfaces.Receipt, error) {
	args := m.Called(ctx, receipt)
	return receiptArg(args, 0), args.Error(1)
}

// QueryStudent mocks the QueryStudent method
func (m *MockLedger) QueryStudent(ctx context.Context, student common.Address) (interfaces.Student, error) {
	args := m.Called(ctx, student)
	return args.Get(0).(interfaces.Student), args.Error(1)
}

// QueryDocuments mocks the QueryDocuments method
func (m *MockLedger) QueryDocuments(ctx context.Context, student common.Address) ([]interfaces.Document, error) {
	args := m.Called(ctx, student)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]interfaces.Document), args.Error(1)
}

// DocumentIndex mocks the DocumentIndex method
func (m *MockLedger) DocumentIndex(ctx context.Context, student common.Address, receipt *interfaces.Receipt) (uint64, error) {
	args := m.Called(ctx, student, receipt)
	return args.Get(0).(uint64), args.Error(1)
}

// QueryEndorsements mocks the QueryEndorsements method
func (m *MockLedger) QueryEndorsements(ctx context.Context, student common.Address, docIndex uint64) ([]common.Address, error) {
	args := m.Called(ctx, student, docIndex)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]common.Address), args.Error(1)
}

// IsRegistered mocks the IsRegistered method
func (m *MockLedger) IsRegistered(ctx context.Context, student common.Address) (interfaces.RegistrationStatus, error) {
	args := m.Called(ctx, student)
	return args.Get(0).(interfaces.RegistrationStatus), args.Error(1)
}

// StudentByID mocks the StudentByID method
func (m *MockLedger) StudentByID(ctx context.Context, uniqueID string) (common.Address, error) {
	args := m.Called(ctx, uniqueID)
	return args.Get(0).(common.Address), args.Error(1)
}

// IsEndorser mocks the IsEndorser method
func (m *MockLedger) IsEndorser(ctx context.Context, addr common.Address) (bool, error) {
	args := m.Called(ctx, addr)
	return args.Bool(0), args.Error(1)
}
