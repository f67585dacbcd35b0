package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segyhp/lending-engine/internal/domain"
	customError "github.com/segyhp/lending-engine/pkg/errors"
)

const repaymentColumns = `id, loan_id, account_id, amount, payment_date, status, failure_reason, created_at, updated_at`

type repaymentRepository struct {
	db *sqlx.DB
}

func NewRepaymentRepository(db *sqlx.DB) RepaymentRepository {
	return &repaymentRepository{db: db}
}

func (r *repaymentRepository) Create(ctx context.Context, repayment *domain.Repayment) error {
	query := `
		INSERT INTO repayments (` + repaymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		repayment.ID,
		repayment.LoanID,
		repayment.AccountID,
		repayment.Amount,
		repayment.PaymentDate,
		repayment.Status,
		repayment.FailureReason,
		repayment.CreatedAt,
		repayment.UpdatedAt,
	)
	if err != nil {
		return customError.WrapDatabaseError(err)
	}
	return nil
}

func (r *repaymentRepository) Finalize(ctx context.Context, repayment *domain.Repayment) error {
	return finalizeRepayment(ctx, r.db, repayment)
}

func (r *repaymentRepository) ListByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.Repayment, error) {
	query := `
		SELECT ` + repaymentColumns + `
		FROM repayments
		WHERE loan_id = $1
		ORDER BY payment_date DESC, created_at DESC
	`

	repayments := []*domain.Repayment{}
	if err := r.db.SelectContext(ctx, &repayments, query, loanID); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return repayments, nil
}

// finalizeRepayment only touches PENDING rows so the ledger stays append-only.
func finalizeRepayment(ctx context.Context, exec sqlx.ExecerContext, repayment *domain.Repayment) error {
	query := `
		UPDATE repayments
		SET status = $2, failure_reason = $3, updated_at = $4
		WHERE id = $1 AND status = $5
	`

	now := time.Now().UTC()
	result, err := exec.ExecContext(ctx, query,
		repayment.ID,
		repayment.Status,
		repayment.FailureReason,
		now,
		domain.RepaymentStatusPending,
	)
	if err != nil {
		return customError.WrapDatabaseError(err)
	}
	if err := expectOneRow(result, func() error {
		return customError.WrapInvariantViolation("repayment %s is not pending", repayment.ID)
	}); err != nil {
		return err
	}

	repayment.UpdatedAt = now
	return nil
}
