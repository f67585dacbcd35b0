package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/repository"
)

type MockApplicationRepository struct {
	mock.Mock
}

func (m *MockApplicationRepository) Create(ctx context.Context, app *domain.LoanApplication) error {
	args := m.Called(ctx, app)
	return args.Error(0)
}

func (m *MockApplicationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.LoanApplication, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanApplication), args.Error(1)
}

func (m *MockApplicationRepository) ListByStatus(ctx context.Context, status domain.ApplicationStatus) ([]*domain.LoanApplication, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.LoanApplication), args.Error(1)
}

func (m *MockApplicationRepository) Claim(ctx context.Context, app *domain.LoanApplication) error {
	args := m.Called(ctx, app)
	if args.Error(0) == nil {
		app.Status = domain.ApplicationStatusApproving
	}
	return args.Error(0)
}

func (m *MockApplicationRepository) Release(ctx context.Context, app *domain.LoanApplication) error {
	args := m.Called(ctx, app)
	if args.Error(0) == nil {
		app.Status = domain.ApplicationStatusPending
	}
	return args.Error(0)
}

func (m *MockApplicationRepository) Reject(ctx context.Context, app *domain.LoanApplication) error {
	args := m.Called(ctx, app)
	if args.Error(0) == nil {
		app.Status = domain.ApplicationStatusRejected
	}
	return args.Error(0)
}

type MockLoanRepository struct {
	mock.Mock
}

func (m *MockLoanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) GetOutstandingByAccount(ctx context.Context, accountID string) (decimal.Decimal, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockLoanRepository) GetScheduleByLoanID(ctx context.Context, loanID uuid.UUID) (domain.Schedule, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.Schedule), args.Error(1)
}

func (m *MockLoanRepository) ApproveApplication(ctx context.Context, app *domain.LoanApplication, loan *domain.Loan, schedule domain.Schedule) error {
	args := m.Called(ctx, app, loan, schedule)
	if args.Error(0) == nil {
		app.Status = domain.ApplicationStatusApproved
		app.LoanID = uuid.NullUUID{UUID: loan.ID, Valid: true}
	}
	return args.Error(0)
}

func (m *MockLoanRepository) ListUpcomingInstallments(ctx context.Context, from, to time.Time) ([]*domain.UpcomingInstallment, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.UpcomingInstallment), args.Error(1)
}

type MockRepaymentRepository struct {
	mock.Mock
}

func (m *MockRepaymentRepository) Create(ctx context.Context, repayment *domain.Repayment) error {
	args := m.Called(ctx, repayment)
	return args.Error(0)
}

func (m *MockRepaymentRepository) Finalize(ctx context.Context, repayment *domain.Repayment) error {
	args := m.Called(ctx, repayment)
	return args.Error(0)
}

func (m *MockRepaymentRepository) ListByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.Repayment, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Repayment), args.Error(1)
}

// FakeTransactor runs the callback against Tx without a database. The
// callback error is returned unchanged so tests can observe rollbacks.
type FakeTransactor struct {
	Tx      *MockLoanTx
	LockErr error
	Calls   int
}

var _ repository.Transactor = (*FakeTransactor)(nil)

func (f *FakeTransactor) WithLoanLock(ctx context.Context, loanID uuid.UUID, fn func(ctx context.Context, tx repository.LoanTx) error) error {
	f.Calls++
	if f.LockErr != nil {
		return f.LockErr
	}
	return fn(ctx, f.Tx)
}

type MockLoanTx struct {
	mock.Mock
	LoanRow *domain.Loan
}

func (m *MockLoanTx) Loan() *domain.Loan {
	return m.LoanRow
}

func (m *MockLoanTx) Schedule(ctx context.Context) (domain.Schedule, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.Schedule), args.Error(1)
}

func (m *MockLoanTx) UpdateLoan(ctx context.Context, loan *domain.Loan) error {
	args := m.Called(ctx, loan)
	return args.Error(0)
}

func (m *MockLoanTx) UpdateScheduleEntries(ctx context.Context, entries domain.Schedule) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

func (m *MockLoanTx) FinalizeRepayment(ctx context.Context, repayment *domain.Repayment) error {
	args := m.Called(ctx, repayment)
	return args.Error(0)
}
