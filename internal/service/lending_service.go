package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/lending-engine/internal/amortization"
	"github.com/segyhp/lending-engine/internal/bank"
	"github.com/segyhp/lending-engine/internal/cache"
	"github.com/segyhp/lending-engine/internal/config"
	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/monitoring"
	"github.com/segyhp/lending-engine/internal/notify"
	"github.com/segyhp/lending-engine/internal/repository"
	customError "github.com/segyhp/lending-engine/pkg/errors"
	"github.com/segyhp/lending-engine/pkg/money"
)

// settlementTimeout bounds the work that runs after money has moved or an
// application has been claimed. That work is detached from the caller's
// context so a disconnect cannot leave a claim or a PENDING repayment behind.
const settlementTimeout = 30 * time.Second

type LendingService struct {
	ApplicationRepo repository.ApplicationRepository
	LoanRepo        repository.LoanRepository
	RepaymentRepo   repository.RepaymentRepository
	transactor      repository.Transactor
	bank            bank.Client
	notifier        notify.Notifier
	cache           cache.LoanSummaryCache
	config          *config.Config
	logger          logrus.FieldLogger
	now             func() time.Time
}

func NewLendingService(
	applicationRepo repository.ApplicationRepository,
	loanRepo repository.LoanRepository,
	repaymentRepo repository.RepaymentRepository,
	transactor repository.Transactor,
	bankClient bank.Client,
	notifier notify.Notifier,
	summaryCache cache.LoanSummaryCache,
	config *config.Config,
	logger logrus.FieldLogger,
) *LendingService {
	return &LendingService{
		ApplicationRepo: applicationRepo,
		LoanRepo:        loanRepo,
		RepaymentRepo:   repaymentRepo,
		transactor:      transactor,
		bank:            bankClient,
		notifier:        notifier,
		cache:           summaryCache,
		config:          config,
		logger:          logger,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// Quote prices a loan without persisting anything. The configured default
// rate is used unless the request carries its own.
func (s *LendingService) Quote(ctx context.Context, request *domain.QuoteRequest) (*domain.QuoteResponse, error) {
	rate := s.config.GetDefaultInterestRate()
	if request.AnnualRatePercent != nil {
		rate = *request.AnnualRatePercent
	}
	return s.quote(request.Amount, request.TermMonths, rate)
}

func (s *LendingService) quote(amount decimal.Decimal, termMonths int, rate decimal.Decimal) (*domain.QuoteResponse, error) {
	if err := s.validateTerms(amount, termMonths); err != nil {
		return nil, err
	}
	if rate.IsNegative() {
		return nil, customError.WrapValidation("annual rate must not be negative, got %s", rate)
	}

	emi, err := amortization.CalculateEMI(amount, amortization.MonthlyRate(rate), termMonths)
	if err != nil {
		return nil, err
	}

	totalPayable := emi.Mul(decimal.NewFromInt(int64(termMonths)))
	return &domain.QuoteResponse{
		Amount:            amount,
		TermMonths:        termMonths,
		AnnualRatePercent: rate,
		Emi:               emi,
		TotalPayable:      totalPayable,
		TotalInterest:     totalPayable.Sub(amount),
	}, nil
}

func (s *LendingService) validateTerms(amount decimal.Decimal, termMonths int) error {
	if !amount.IsPositive() {
		return customError.WrapValidation("amount must be greater than 0, got %s", amount)
	}
	if !money.IsCurrencyAmount(amount) {
		return customError.WrapValidation("amount must have at most 2 decimal places, got %s", amount)
	}
	if termMonths < 1 || termMonths > s.config.Business.MaxTermMonths {
		return customError.WrapValidation("term must be between 1 and %d months, got %d",
			s.config.Business.MaxTermMonths, termMonths)
	}
	return nil
}

// Apply records a PENDING application quoted at the default rate. Accounts
// that still owe on an active loan cannot apply.
func (s *LendingService) Apply(ctx context.Context, request *domain.ApplyRequest) (*domain.LoanApplication, error) {
	accountID := strings.TrimSpace(request.AccountID)
	if accountID == "" {
		return nil, customError.WrapValidation("account_id is required")
	}
	if strings.TrimSpace(request.Purpose) == "" {
		return nil, customError.WrapValidation("purpose is required")
	}

	quote, err := s.quote(request.Amount, request.TermMonths, s.config.GetDefaultInterestRate())
	if err != nil {
		return nil, err
	}

	outstanding, err := s.LoanRepo.GetOutstandingByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if outstanding.IsPositive() {
		return nil, customError.WrapOutstandingLoan(accountID, outstanding.StringFixed(2))
	}

	now := s.now()
	app := &domain.LoanApplication{
		ID:                uuid.New(),
		AccountID:         accountID,
		BorrowerEmail:     strings.TrimSpace(request.BorrowerEmail),
		RequestedAmount:   request.Amount,
		Purpose:           strings.TrimSpace(request.Purpose),
		TermMonths:        request.TermMonths,
		AnnualRatePercent: quote.AnnualRatePercent,
		QuotedEmi:         quote.Emi,
		TotalPayable:      quote.TotalPayable,
		Status:            domain.ApplicationStatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.ApplicationRepo.Create(ctx, app); err != nil {
		return nil, err
	}

	monitoring.RecordApplication(string(app.Status))
	s.logger.WithFields(logrus.Fields{
		"application_id": app.ID,
		"account_id":     app.AccountID,
		"amount":         app.RequestedAmount.StringFixed(2),
		"term_months":    app.TermMonths,
	}).Info("Loan application received")

	return app, nil
}

// Approve decides a PENDING application. An account with an active balance
// gets a REJECTED application and no error; otherwise the loan is disbursed
// and stored together with its schedule.
func (s *LendingService) Approve(ctx context.Context, applicationID uuid.UUID) (*domain.ApprovalResponse, error) {
	logger := s.logger.WithField("application_id", applicationID)

	app, err := s.ApplicationRepo.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if !app.IsPending() {
		return nil, customError.WrapApplicationNotPending(app.ID.String(), string(app.Status))
	}

	// At most one approval per application and per account may reach the bank
	if err := s.ApplicationRepo.Claim(ctx, app); err != nil {
		return nil, err
	}

	ctx, cancel := detach(ctx)
	defer cancel()

	outstanding, err := s.LoanRepo.GetOutstandingByAccount(ctx, app.AccountID)
	if err != nil {
		s.releaseClaim(ctx, logger, app)
		return nil, err
	}
	if outstanding.IsPositive() {
		app.DecisionReason = fmt.Sprintf("outstanding loan balance of %s", outstanding.StringFixed(2))
		if err := s.ApplicationRepo.Reject(ctx, app); err != nil {
			s.releaseClaim(ctx, logger, app)
			return nil, err
		}
		monitoring.RecordApplication(string(domain.ApplicationStatusRejected))
		logger.WithField("outstanding", outstanding.StringFixed(2)).Info("Loan application rejected")
		s.notify(ctx, logger, app.BorrowerEmail, notify.ApplicationRejected(app, outstanding))
		return &domain.ApprovalResponse{Application: app}, nil
	}

	now := s.now()
	emi, schedule, err := amortization.ComputeSchedule(app.RequestedAmount, app.AnnualRatePercent, app.TermMonths, now)
	if err != nil {
		s.releaseClaim(ctx, logger, app)
		return nil, err
	}

	outcome, err := s.bank.Disburse(ctx, app.AccountID, app.RequestedAmount)
	if err != nil {
		logger.WithError(err).Error("Disbursement call failed")
		s.releaseClaim(ctx, logger, app)
		return nil, customError.WrapExternalService("disbursement", err.Error(), err)
	}
	if !outcome.Success {
		logger.WithField("reason", outcome.FailureReason).Warn("Disbursement declined")
		s.releaseClaim(ctx, logger, app)
		return nil, customError.WrapExternalService("disbursement", outcome.FailureReason, nil)
	}

	loan := &domain.Loan{
		ID:                 uuid.New(),
		ApplicationID:      app.ID,
		AccountID:          app.AccountID,
		BorrowerEmail:      app.BorrowerEmail,
		Principal:          app.RequestedAmount,
		AnnualRatePercent:  app.AnnualRatePercent,
		TermMonths:         app.TermMonths,
		EmiAmount:          emi,
		RemainingPrincipal: app.RequestedAmount,
		Status:             domain.LoanStatusActive,
		OriginationDate:    money.DateOnly(now),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	for _, entry := range schedule {
		entry.LoanID = loan.ID
		entry.CreatedAt = now
		entry.UpdatedAt = now
	}

	if err := s.LoanRepo.ApproveApplication(ctx, app, loan, schedule); err != nil {
		// the money has left; the claim stays so nobody disburses again
		logger.WithFields(logrus.Fields{
			"loan_id":   loan.ID,
			"reference": outcome.Reference,
		}).WithError(err).Error("Loan disbursed but not persisted")
		return nil, err
	}

	monitoring.RecordApplication(string(domain.ApplicationStatusApproved))
	monitoring.RecordDisbursement()
	logger.WithFields(logrus.Fields{
		"loan_id": loan.ID,
		"emi":     emi.StringFixed(2),
	}).Info("Loan approved and disbursed")
	s.notify(ctx, logger, loan.BorrowerEmail, notify.LoanApproved(loan))

	return &domain.ApprovalResponse{Application: app, Loan: loan, Schedule: schedule}, nil
}

// Repay collects a payment and applies it to the loan under the loan's row
// lock. The repayment is recorded PENDING before collection and finalized
// as APPLIED or REJECTED afterwards.
func (s *LendingService) Repay(ctx context.Context, request *domain.RepayRequest) (*domain.RepayResponse, error) {
	logger := s.logger.WithFields(logrus.Fields{
		"loan_id":    request.LoanID,
		"account_id": request.AccountID,
	})

	if !request.Amount.IsPositive() {
		return nil, customError.WrapValidation("amount must be greater than 0, got %s", request.Amount)
	}
	if !money.IsCurrencyAmount(request.Amount) {
		return nil, customError.WrapValidation("amount must have at most 2 decimal places, got %s", request.Amount)
	}

	loan, err := s.LoanRepo.GetByID(ctx, request.LoanID)
	if err != nil {
		return nil, err
	}
	if loan.AccountID != request.AccountID {
		return nil, customError.WrapUnauthorized(request.AccountID, loan.ID.String())
	}
	if loan.IsClosed() {
		return nil, customError.WrapLoanAlreadyClosed(loan.ID.String())
	}

	now := s.now()
	repayment := &domain.Repayment{
		ID:          uuid.New(),
		LoanID:      loan.ID,
		AccountID:   request.AccountID,
		Amount:      request.Amount,
		PaymentDate: now,
		Status:      domain.RepaymentStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.RepaymentRepo.Create(ctx, repayment); err != nil {
		return nil, err
	}
	logger = logger.WithField("repayment_id", repayment.ID)

	// The PENDING repayment must reach APPLIED or REJECTED whatever the caller does
	ctx, cancel := detach(ctx)
	defer cancel()

	outcome, err := s.bank.Collect(ctx, request.AccountID, request.Amount)
	if err != nil || !outcome.Success {
		reason := outcome.FailureReason
		if err != nil {
			reason = err.Error()
		}
		logger.WithField("reason", reason).Warn("Repayment collection failed")
		s.rejectRepayment(ctx, logger, repayment, reason)
		return nil, customError.WrapExternalService("collection", reason, err)
	}

	var (
		settlement *amortization.Settlement
		updated    *domain.Loan
		applied    *domain.Repayment
	)
	err = s.transactor.WithLoanLock(ctx, loan.ID, func(ctx context.Context, tx repository.LoanTx) error {
		locked := tx.Loan()
		if locked.IsClosed() {
			return customError.WrapLoanAlreadyClosed(locked.ID.String())
		}

		schedule, err := tx.Schedule(ctx)
		if err != nil {
			return err
		}

		settlement, err = amortization.Settle(request.Amount, schedule, locked.RemainingPrincipal, locked.AnnualRatePercent)
		if err != nil {
			return err
		}

		if err := tx.UpdateScheduleEntries(ctx, pendingBefore(schedule, settlement.Schedule)); err != nil {
			return err
		}

		if err := locked.ReducePrincipal(settlement.NewRemainingPrincipal); err != nil {
			return err
		}
		if err := tx.UpdateLoan(ctx, locked); err != nil {
			return err
		}

		final := *repayment
		if err := final.Finalize(domain.RepaymentStatusApplied, ""); err != nil {
			return err
		}
		if err := tx.FinalizeRepayment(ctx, &final); err != nil {
			return err
		}

		updated = locked
		applied = &final
		return nil
	})
	if err != nil {
		logger.WithError(err).Error("Failed to apply collected repayment")
		s.rejectRepayment(ctx, logger, repayment, err.Error())
		return nil, err
	}

	s.invalidateSummary(ctx, logger, updated.ID)
	monitoring.RecordRepayment(string(applied.Status), applied.Amount)
	monitoring.RecordSettlement(settlement.Reamortized, settlement.FullyPaid)

	logger.WithFields(logrus.Fields{
		"amount":              applied.Amount.StringFixed(2),
		"remaining_principal": updated.RemainingPrincipal.StringFixed(2),
		"unallocated":         settlement.Unallocated.StringFixed(2),
		"loan_status":         updated.Status,
	}).Info("Repayment applied")
	s.notify(ctx, logger, updated.BorrowerEmail, notify.RepaymentReceived(updated, applied.Amount))

	return &domain.RepayResponse{
		Repayment:   applied,
		Loan:        updated,
		Schedule:    settlement.Schedule,
		Unallocated: settlement.Unallocated,
	}, nil
}

// pendingBefore returns the rows of next that were still PENDING in prev.
// Paid rows are history and are never written again.
func pendingBefore(prev, next domain.Schedule) domain.Schedule {
	paid := make(map[uuid.UUID]bool, len(prev))
	for _, entry := range prev {
		if entry.IsPaid() {
			paid[entry.ID] = true
		}
	}

	changed := make(domain.Schedule, 0, len(next))
	for _, entry := range next {
		if !paid[entry.ID] {
			changed = append(changed, entry)
		}
	}
	return changed
}

func detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), settlementTimeout)
}

// releaseClaim returns a claimed application to PENDING after an approval
// that moved no money.
func (s *LendingService) releaseClaim(ctx context.Context, logger logrus.FieldLogger, app *domain.LoanApplication) {
	if err := s.ApplicationRepo.Release(ctx, app); err != nil {
		logger.WithError(err).Error("Failed to release loan application claim")
	}
}

func (s *LendingService) rejectRepayment(ctx context.Context, logger logrus.FieldLogger, repayment *domain.Repayment, reason string) {
	monitoring.RecordRepayment(string(domain.RepaymentStatusRejected), repayment.Amount)

	if err := repayment.Finalize(domain.RepaymentStatusRejected, reason); err != nil {
		logger.WithError(err).Error("Failed to mark repayment rejected")
		return
	}
	if err := s.RepaymentRepo.Finalize(ctx, repayment); err != nil {
		logger.WithError(err).Error("Failed to persist rejected repayment")
	}
}

func (s *LendingService) GetLoan(ctx context.Context, loanID uuid.UUID) (*domain.LoanResponse, error) {
	loan, err := s.LoanRepo.GetByID(ctx, loanID)
	if err != nil {
		return nil, err
	}

	schedule, err := s.LoanRepo.GetScheduleByLoanID(ctx, loanID)
	if err != nil {
		return nil, err
	}

	return &domain.LoanResponse{Loan: loan, Schedule: schedule}, nil
}

func (s *LendingService) GetSchedule(ctx context.Context, loanID uuid.UUID) (*domain.ScheduleResponse, error) {
	if _, err := s.LoanRepo.GetByID(ctx, loanID); err != nil {
		return nil, err
	}

	schedule, err := s.LoanRepo.GetScheduleByLoanID(ctx, loanID)
	if err != nil {
		return nil, err
	}

	return &domain.ScheduleResponse{LoanID: loanID, Schedule: schedule}, nil
}

// GetLoanSummary serves the summary from cache when possible. Cache errors
// only cost a database read.
func (s *LendingService) GetLoanSummary(ctx context.Context, loanID uuid.UUID) (*domain.LoanSummary, error) {
	logger := s.logger.WithField("loan_id", loanID)

	summary, ok, err := s.cache.Get(ctx, loanID)
	if err != nil {
		logger.WithError(err).Warn("Loan summary cache read failed")
	} else if ok {
		return summary, nil
	}

	response, err := s.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	summary = domain.NewLoanSummary(response.Loan, response.Schedule)
	if err := s.cache.Set(ctx, summary); err != nil {
		logger.WithError(err).Warn("Loan summary cache write failed")
	}
	return summary, nil
}

func (s *LendingService) ListRepayments(ctx context.Context, loanID uuid.UUID) ([]*domain.Repayment, error) {
	if _, err := s.LoanRepo.GetByID(ctx, loanID); err != nil {
		return nil, err
	}
	return s.RepaymentRepo.ListByLoanID(ctx, loanID)
}

// ListApplications returns the applications in status together with each
// account's current outstanding balance.
func (s *LendingService) ListApplications(ctx context.Context, status domain.ApplicationStatus) ([]*domain.PendingApplication, error) {
	if !status.Valid() {
		return nil, customError.WrapValidation("unknown application status %q", status)
	}

	apps, err := s.ApplicationRepo.ListByStatus(ctx, status)
	if err != nil {
		return nil, err
	}

	outstanding := make(map[string]decimal.Decimal)
	result := make([]*domain.PendingApplication, 0, len(apps))
	for _, app := range apps {
		balance, seen := outstanding[app.AccountID]
		if !seen {
			balance, err = s.LoanRepo.GetOutstandingByAccount(ctx, app.AccountID)
			if err != nil {
				return nil, err
			}
			outstanding[app.AccountID] = balance
		}
		result = append(result, &domain.PendingApplication{Application: app, Outstanding: balance})
	}
	return result, nil
}

func (s *LendingService) ListPendingApplications(ctx context.Context) ([]*domain.PendingApplication, error) {
	return s.ListApplications(ctx, domain.ApplicationStatusPending)
}

func (s *LendingService) invalidateSummary(ctx context.Context, logger logrus.FieldLogger, loanID uuid.UUID) {
	if err := s.cache.Invalidate(ctx, loanID); err != nil {
		logger.WithError(err).Warn("Loan summary cache invalidation failed")
	}
}

func (s *LendingService) notify(ctx context.Context, logger logrus.FieldLogger, recipient string, msg notify.Message) {
	if err := s.notifier.Notify(ctx, recipient, msg.Subject, msg.Body); err != nil {
		logger.WithError(err).WithField("subject", msg.Subject).Warn("Borrower notification failed")
	}
}
