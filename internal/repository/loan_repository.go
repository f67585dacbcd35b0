package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/segyhp/lending-engine/internal/domain"
	customError "github.com/segyhp/lending-engine/pkg/errors"
)

const loanColumns = `id, application_id, account_id, borrower_email, principal, annual_rate_percent, term_months,
	emi_amount, remaining_principal, status, origination_date, created_at, updated_at`

const scheduleColumns = `id, loan_id, installment_number, due_date, emi_amount, principal_component, interest_component,
	remaining_principal_after, amount_paid, status, created_at, updated_at`

type loanRepository struct {
	db *sqlx.DB
}

func NewLoanRepository(db *sqlx.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1`

	var loan domain.Loan
	if err := r.db.GetContext(ctx, &loan, query, id); err != nil {
		return nil, wrapQueryError(err, "Loan", id.String())
	}
	return &loan, nil
}

func (r *loanRepository) GetOutstandingByAccount(ctx context.Context, accountID string) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(remaining_principal), 0)
		FROM loans
		WHERE account_id = $1 AND status = $2
	`

	var outstanding decimal.Decimal
	if err := r.db.GetContext(ctx, &outstanding, query, accountID, domain.LoanStatusActive); err != nil {
		return decimal.Zero, customError.WrapDatabaseError(err)
	}
	return outstanding, nil
}

func (r *loanRepository) GetScheduleByLoanID(ctx context.Context, loanID uuid.UUID) (domain.Schedule, error) {
	return selectSchedule(ctx, r.db, loanID)
}

func (r *loanRepository) ApproveApplication(ctx context.Context, app *domain.LoanApplication, loan *domain.Loan, schedule domain.Schedule) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return customError.WrapDatabaseError(err)
	}
	defer tx.Rollback()

	insertLoan := `
		INSERT INTO loans (` + loanColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = tx.ExecContext(ctx, insertLoan,
		loan.ID,
		loan.ApplicationID,
		loan.AccountID,
		loan.BorrowerEmail,
		loan.Principal,
		loan.AnnualRatePercent,
		loan.TermMonths,
		loan.EmiAmount,
		loan.RemainingPrincipal,
		loan.Status,
		loan.OriginationDate,
		loan.CreatedAt,
		loan.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return customError.WrapOutstandingLoan(loan.AccountID, "an active loan")
		}
		return customError.WrapDatabaseError(err)
	}

	insertEntry := `
		INSERT INTO loan_emi_schedule (` + scheduleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	for _, entry := range schedule {
		_, err = tx.ExecContext(ctx, insertEntry,
			entry.ID,
			entry.LoanID,
			entry.InstallmentNumber,
			entry.DueDate,
			entry.EmiAmount,
			entry.PrincipalComponent,
			entry.InterestComponent,
			entry.RemainingPrincipalAfter,
			entry.AmountPaid,
			entry.Status,
			entry.CreatedAt,
			entry.UpdatedAt,
		)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}
	}

	approve := `
		UPDATE loan_applications
		SET status = $2, loan_id = $3, decision_reason = $4, updated_at = $5
		WHERE id = $1 AND status = $6
	`
	result, err := tx.ExecContext(ctx, approve,
		app.ID,
		domain.ApplicationStatusApproved,
		loan.ID,
		app.DecisionReason,
		loan.CreatedAt,
		domain.ApplicationStatusApproving,
	)
	if err != nil {
		return customError.WrapDatabaseError(err)
	}
	if err := expectOneRow(result, func() error {
		return statusChanged(ctx, tx, app.ID, domain.ApplicationStatusApproving)
	}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return customError.WrapDatabaseError(err)
	}

	app.Status = domain.ApplicationStatusApproved
	app.LoanID = uuid.NullUUID{UUID: loan.ID, Valid: true}
	app.UpdatedAt = loan.CreatedAt
	return nil
}

func (r *loanRepository) ListUpcomingInstallments(ctx context.Context, from, to time.Time) ([]*domain.UpcomingInstallment, error) {
	query := `
		SELECT s.loan_id, l.account_id, l.borrower_email, s.installment_number, s.due_date, s.emi_amount
		FROM loan_emi_schedule s
		JOIN loans l ON l.id = s.loan_id
		WHERE l.status = $1 AND s.status = $2 AND s.due_date BETWEEN $3 AND $4
		ORDER BY s.due_date, s.loan_id, s.installment_number
	`

	installments := []*domain.UpcomingInstallment{}
	err := r.db.SelectContext(ctx, &installments, query,
		domain.LoanStatusActive,
		domain.ScheduleStatusPending,
		from,
		to,
	)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return installments, nil
}

func selectSchedule(ctx context.Context, q sqlx.QueryerContext, loanID uuid.UUID) (domain.Schedule, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM loan_emi_schedule
		WHERE loan_id = $1
		ORDER BY installment_number
	`

	schedule := domain.Schedule{}
	if err := sqlx.SelectContext(ctx, q, &schedule, query, loanID); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return schedule, nil
}

func expectOneRow(result sql.Result, onZero func() error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return customError.WrapDatabaseError(err)
	}
	if affected == 0 {
		return onZero()
	}
	return nil
}
