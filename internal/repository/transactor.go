package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segyhp/lending-engine/internal/domain"
	customError "github.com/segyhp/lending-engine/pkg/errors"
)

type transactor struct {
	db *sqlx.DB
}

func NewTransactor(db *sqlx.DB) Transactor {
	return &transactor{db: db}
}

func (t *transactor) WithLoanLock(ctx context.Context, loanID uuid.UUID, fn func(ctx context.Context, tx LoanTx) error) (err error) {
	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return customError.WrapDatabaseError(err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1 FOR UPDATE`

	var loan domain.Loan
	if err = tx.GetContext(ctx, &loan, query, loanID); err != nil {
		return wrapQueryError(err, "Loan", loanID.String())
	}

	if err = fn(ctx, &loanTx{tx: tx, loan: &loan}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return customError.WrapDatabaseError(err)
	}
	return nil
}

type loanTx struct {
	tx   *sqlx.Tx
	loan *domain.Loan
}

func (l *loanTx) Loan() *domain.Loan {
	return l.loan
}

func (l *loanTx) Schedule(ctx context.Context) (domain.Schedule, error) {
	return selectSchedule(ctx, l.tx, l.loan.ID)
}

func (l *loanTx) UpdateLoan(ctx context.Context, loan *domain.Loan) error {
	query := `
		UPDATE loans
		SET remaining_principal = $2, status = $3, updated_at = $4
		WHERE id = $1
	`

	now := time.Now().UTC()
	if _, err := l.tx.ExecContext(ctx, query, loan.ID, loan.RemainingPrincipal, loan.Status, now); err != nil {
		return customError.WrapDatabaseError(err)
	}
	loan.UpdatedAt = now
	return nil
}

func (l *loanTx) UpdateScheduleEntries(ctx context.Context, entries domain.Schedule) error {
	query := `
		UPDATE loan_emi_schedule
		SET emi_amount = $3, principal_component = $4, interest_component = $5,
			remaining_principal_after = $6, amount_paid = $7, status = $8, updated_at = $9
		WHERE id = $1 AND loan_id = $2
	`

	now := time.Now().UTC()
	for _, entry := range entries {
		_, err := l.tx.ExecContext(ctx, query,
			entry.ID,
			entry.LoanID,
			entry.EmiAmount,
			entry.PrincipalComponent,
			entry.InterestComponent,
			entry.RemainingPrincipalAfter,
			entry.AmountPaid,
			entry.Status,
			now,
		)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}
		entry.UpdatedAt = now
	}
	return nil
}

func (l *loanTx) FinalizeRepayment(ctx context.Context, repayment *domain.Repayment) error {
	return finalizeRepayment(ctx, l.tx, repayment)
}
