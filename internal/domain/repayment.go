package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	customError "github.com/segyhp/lending-engine/pkg/errors"
)

type RepaymentStatus string

const (
	RepaymentStatusPending  RepaymentStatus = "PENDING"
	RepaymentStatusApplied  RepaymentStatus = "APPLIED"
	RepaymentStatusRejected RepaymentStatus = "REJECTED"
)

func (s RepaymentStatus) Valid() bool {
	switch s {
	case RepaymentStatusPending, RepaymentStatusApplied, RepaymentStatusRejected:
		return true
	}
	return false
}

// Repayment is a single payment event against a loan. Once APPLIED or
// REJECTED it is never changed again.
type Repayment struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	LoanID        uuid.UUID       `json:"loan_id" db:"loan_id"`
	AccountID     string          `json:"account_id" db:"account_id"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	PaymentDate   time.Time       `json:"payment_date" db:"payment_date"`
	Status        RepaymentStatus `json:"status" db:"status"`
	FailureReason string          `json:"failure_reason,omitempty" db:"failure_reason"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// Finalize moves a PENDING repayment to its terminal status.
func (r *Repayment) Finalize(status RepaymentStatus, reason string) error {
	if r.Status != RepaymentStatusPending {
		return customError.WrapInvariantViolation("repayment %s is already %s", r.ID, r.Status)
	}
	if status == RepaymentStatusPending || !status.Valid() {
		return customError.WrapInvariantViolation("repayment %s cannot be finalized as %q", r.ID, status)
	}
	r.Status = status
	r.FailureReason = reason
	return nil
}
