package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ApplicationStatus string

const (
	ApplicationStatusPending   ApplicationStatus = "PENDING"
	ApplicationStatusApproving ApplicationStatus = "APPROVING"
	ApplicationStatusApproved  ApplicationStatus = "APPROVED"
	ApplicationStatusRejected  ApplicationStatus = "REJECTED"
)

func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationStatusPending, ApplicationStatusApproving, ApplicationStatusApproved, ApplicationStatusRejected:
		return true
	}
	return false
}

// LoanApplication is the pre-loan request. It produces at most one Loan.
type LoanApplication struct {
	ID                uuid.UUID         `json:"id" db:"id"`
	AccountID         string            `json:"account_id" db:"account_id"`
	BorrowerEmail     string            `json:"borrower_email,omitempty" db:"borrower_email"`
	RequestedAmount   decimal.Decimal   `json:"requested_amount" db:"requested_amount"`
	Purpose           string            `json:"purpose" db:"purpose"`
	TermMonths        int               `json:"term_months" db:"term_months"`
	AnnualRatePercent decimal.Decimal   `json:"annual_rate_percent" db:"annual_rate_percent"`
	QuotedEmi         decimal.Decimal   `json:"quoted_emi" db:"quoted_emi"`
	TotalPayable      decimal.Decimal   `json:"total_payable" db:"total_payable"`
	Status            ApplicationStatus `json:"status" db:"status"`
	DecisionReason    string            `json:"decision_reason,omitempty" db:"decision_reason"`
	LoanID            uuid.NullUUID     `json:"loan_id" db:"loan_id"`
	CreatedAt         time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at" db:"updated_at"`
}

func (a *LoanApplication) IsPending() bool {
	return a.Status == ApplicationStatusPending
}

// DTOs for requests and responses

type ApplyRequest struct {
	AccountID     string          `json:"account_id" validate:"required,max=64"`
	BorrowerEmail string          `json:"borrower_email" validate:"omitempty,email"`
	Amount        decimal.Decimal `json:"amount" validate:"decimal_gt0"`
	Purpose       string          `json:"purpose" validate:"required,max=255"`
	TermMonths    int             `json:"term_months" validate:"required,gt=0"`
}

type QuoteRequest struct {
	Amount            decimal.Decimal  `json:"amount" validate:"decimal_gt0"`
	TermMonths        int              `json:"term_months" validate:"required,gt=0"`
	AnnualRatePercent *decimal.Decimal `json:"annual_rate_percent,omitempty" validate:"omitempty,decimal_gte0"`
}

type QuoteResponse struct {
	Amount            decimal.Decimal `json:"amount"`
	TermMonths        int             `json:"term_months"`
	AnnualRatePercent decimal.Decimal `json:"annual_rate_percent"`
	Emi               decimal.Decimal `json:"emi"`
	TotalPayable      decimal.Decimal `json:"total_payable"`
	TotalInterest     decimal.Decimal `json:"total_interest"`
}

// ApprovalResponse carries the outcome of an approval decision. Loan and
// Schedule are only set when the application was approved.
type ApprovalResponse struct {
	Application *LoanApplication `json:"application"`
	Loan        *Loan            `json:"loan,omitempty"`
	Schedule    Schedule         `json:"schedule,omitempty"`
}

// PendingApplication is the admin view of a pending application together
// with the outstanding balance currently held by the same account.
type PendingApplication struct {
	Application *LoanApplication `json:"application"`
	Outstanding decimal.Decimal  `json:"outstanding"`
}
