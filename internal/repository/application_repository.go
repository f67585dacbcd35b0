package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segyhp/lending-engine/internal/domain"
	customError "github.com/segyhp/lending-engine/pkg/errors"
)

const applicationColumns = `id, account_id, borrower_email, requested_amount, purpose, term_months, annual_rate_percent,
	quoted_emi, total_payable, status, decision_reason, loan_id, created_at, updated_at`

type applicationRepository struct {
	db *sqlx.DB
}

func NewApplicationRepository(db *sqlx.DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

func (r *applicationRepository) Create(ctx context.Context, app *domain.LoanApplication) error {
	query := `
		INSERT INTO loan_applications (` + applicationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.db.ExecContext(ctx, query,
		app.ID,
		app.AccountID,
		app.BorrowerEmail,
		app.RequestedAmount,
		app.Purpose,
		app.TermMonths,
		app.AnnualRatePercent,
		app.QuotedEmi,
		app.TotalPayable,
		app.Status,
		app.DecisionReason,
		app.LoanID,
		app.CreatedAt,
		app.UpdatedAt,
	)
	if err != nil {
		return customError.WrapDatabaseError(err)
	}
	return nil
}

func (r *applicationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.LoanApplication, error) {
	query := `SELECT ` + applicationColumns + ` FROM loan_applications WHERE id = $1`

	var app domain.LoanApplication
	if err := r.db.GetContext(ctx, &app, query, id); err != nil {
		return nil, wrapQueryError(err, "Loan application", id.String())
	}
	return &app, nil
}

func (r *applicationRepository) ListByStatus(ctx context.Context, status domain.ApplicationStatus) ([]*domain.LoanApplication, error) {
	query := `SELECT ` + applicationColumns + ` FROM loan_applications WHERE status = $1 ORDER BY created_at`

	apps := []*domain.LoanApplication{}
	if err := r.db.SelectContext(ctx, &apps, query, status); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return apps, nil
}

func (r *applicationRepository) Claim(ctx context.Context, app *domain.LoanApplication) error {
	err := r.transition(ctx, app, domain.ApplicationStatusPending, domain.ApplicationStatusApproving)
	if isUniqueViolation(err) {
		return customError.WrapApprovalInProgress(app.AccountID)
	}
	return err
}

func (r *applicationRepository) Release(ctx context.Context, app *domain.LoanApplication) error {
	return r.transition(ctx, app, domain.ApplicationStatusApproving, domain.ApplicationStatusPending)
}

func (r *applicationRepository) Reject(ctx context.Context, app *domain.LoanApplication) error {
	return r.transition(ctx, app, domain.ApplicationStatusApproving, domain.ApplicationStatusRejected)
}

// transition moves app from one status to another and records its decision
// reason. The raw driver error is returned on failure so callers can inspect
// constraint violations.
func (r *applicationRepository) transition(ctx context.Context, app *domain.LoanApplication, from, to domain.ApplicationStatus) error {
	query := `
		UPDATE loan_applications
		SET status = $2, decision_reason = $3, updated_at = $4
		WHERE id = $1 AND status = $5
	`

	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, query, app.ID, to, app.DecisionReason, now, from)
	if err != nil {
		if isUniqueViolation(err) {
			return err
		}
		return customError.WrapDatabaseError(err)
	}
	if err := expectOneRow(result, func() error {
		return statusChanged(ctx, r.db, app.ID, from)
	}); err != nil {
		return err
	}

	app.Status = to
	app.UpdatedAt = now
	return nil
}

// statusChanged builds the error for a conditional update that matched no
// row, naming the status the application actually has.
func statusChanged(ctx context.Context, q sqlx.QueryerContext, id uuid.UUID, expected domain.ApplicationStatus) error {
	var actual domain.ApplicationStatus
	if err := sqlx.GetContext(ctx, q, &actual, `SELECT status FROM loan_applications WHERE id = $1`, id); err != nil {
		return wrapQueryError(err, "Loan application", id.String())
	}
	return customError.WrapApplicationStatusChanged(id.String(), string(expected), string(actual))
}
