package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/segyhp/lending-engine/internal/domain"
)

// ApplicationRepository defines the interface for loan application data operations
type ApplicationRepository interface {
	// Create persists a new PENDING application
	Create(ctx context.Context, app *domain.LoanApplication) error

	// GetByID retrieves an application by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.LoanApplication, error)

	// ListByStatus returns applications in the given status, oldest first
	ListByStatus(ctx context.Context, status domain.ApplicationStatus) ([]*domain.LoanApplication, error)

	// Claim moves a PENDING application to APPROVING. Only one application
	// per account can be APPROVING at a time.
	Claim(ctx context.Context, app *domain.LoanApplication) error

	// Release moves an APPROVING application back to PENDING
	Release(ctx context.Context, app *domain.LoanApplication) error

	// Reject moves an APPROVING application to REJECTED with a reason
	Reject(ctx context.Context, app *domain.LoanApplication) error
}

// LoanRepository defines the interface for loan and schedule data operations
type LoanRepository interface {
	// GetByID retrieves a loan by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error)

	// GetOutstandingByAccount sums the remaining principal of the account's active loans
	GetOutstandingByAccount(ctx context.Context, accountID string) (decimal.Decimal, error)

	// GetScheduleByLoanID retrieves the schedule ordered by installment number
	GetScheduleByLoanID(ctx context.Context, loanID uuid.UUID) (domain.Schedule, error)

	// ApproveApplication stores the loan, its schedule and the APPROVED
	// application in one transaction. The application must be APPROVING.
	ApproveApplication(ctx context.Context, app *domain.LoanApplication, loan *domain.Loan, schedule domain.Schedule) error

	// ListUpcomingInstallments returns PENDING installments of active loans due in [from, to]
	ListUpcomingInstallments(ctx context.Context, from, to time.Time) ([]*domain.UpcomingInstallment, error)
}

// RepaymentRepository defines the interface for repayment ledger operations
type RepaymentRepository interface {
	// Create records a PENDING repayment
	Create(ctx context.Context, repayment *domain.Repayment) error

	// Finalize writes the terminal status of a PENDING repayment
	Finalize(ctx context.Context, repayment *domain.Repayment) error

	// ListByLoanID returns the loan's repayments, newest first
	ListByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.Repayment, error)
}

// Transactor runs work that must hold a loan's row lock.
type Transactor interface {
	// WithLoanLock locks the loan row and runs fn inside the same transaction.
	// The transaction commits only when fn returns nil.
	WithLoanLock(ctx context.Context, loanID uuid.UUID, fn func(ctx context.Context, tx LoanTx) error) error
}

// LoanTx is the unit of work available while a loan is locked.
type LoanTx interface {
	// Loan is the locked loan as read at lock time
	Loan() *domain.Loan

	Schedule(ctx context.Context) (domain.Schedule, error)

	UpdateLoan(ctx context.Context, loan *domain.Loan) error

	UpdateScheduleEntries(ctx context.Context, entries domain.Schedule) error

	FinalizeRepayment(ctx context.Context, repayment *domain.Repayment) error
}
