package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/lending-engine/internal/domain"
	customError "github.com/segyhp/lending-engine/pkg/errors"
	"github.com/segyhp/lending-engine/pkg/response"
)

// LendingService is the part of the service layer the HTTP API drives.
type LendingService interface {
	Quote(ctx context.Context, request *domain.QuoteRequest) (*domain.QuoteResponse, error)
	Apply(ctx context.Context, request *domain.ApplyRequest) (*domain.LoanApplication, error)
	Approve(ctx context.Context, applicationID uuid.UUID) (*domain.ApprovalResponse, error)
	Repay(ctx context.Context, request *domain.RepayRequest) (*domain.RepayResponse, error)
	GetLoan(ctx context.Context, loanID uuid.UUID) (*domain.LoanResponse, error)
	GetSchedule(ctx context.Context, loanID uuid.UUID) (*domain.ScheduleResponse, error)
	GetLoanSummary(ctx context.Context, loanID uuid.UUID) (*domain.LoanSummary, error)
	ListRepayments(ctx context.Context, loanID uuid.UUID) ([]*domain.Repayment, error)
	ListApplications(ctx context.Context, status domain.ApplicationStatus) ([]*domain.PendingApplication, error)
}

type LendingHandler struct {
	service   LendingService
	validator *validator.Validate
	logger    logrus.FieldLogger
}

func NewLendingHandler(service LendingService, logger logrus.FieldLogger) *LendingHandler {
	return &LendingHandler{
		service:   service,
		validator: NewValidator(),
		logger:    logger,
	}
}

// Quote prices a loan without creating anything
func (h *LendingHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var request domain.QuoteRequest
	if !h.decode(w, r, &request) {
		return
	}

	quote, err := h.service.Quote(r.Context(), &request)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.Success(w, quote)
}

// Apply creates a PENDING loan application
func (h *LendingHandler) Apply(w http.ResponseWriter, r *http.Request) {
	var request domain.ApplyRequest
	if !h.decode(w, r, &request) {
		return
	}

	app, err := h.service.Apply(r.Context(), &request)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.Created(w, app)
}

// ListApplications lists applications by status, PENDING unless ?status= says otherwise
func (h *LendingHandler) ListApplications(w http.ResponseWriter, r *http.Request) {
	status := domain.ApplicationStatusPending
	if raw := r.URL.Query().Get("status"); raw != "" {
		status = domain.ApplicationStatus(strings.ToUpper(raw))
	}

	apps, err := h.service.ListApplications(r.Context(), status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.Success(w, apps)
}

// Approve decides a pending application
func (h *LendingHandler) Approve(w http.ResponseWriter, r *http.Request) {
	applicationID, ok := h.pathID(w, r, "applicationId")
	if !ok {
		return
	}

	decision, err := h.service.Approve(r.Context(), applicationID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.Success(w, decision)
}

func (h *LendingHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loanID, ok := h.pathID(w, r, "loanId")
	if !ok {
		return
	}

	loan, err := h.service.GetLoan(r.Context(), loanID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.Success(w, loan)
}

func (h *LendingHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	loanID, ok := h.pathID(w, r, "loanId")
	if !ok {
		return
	}

	schedule, err := h.service.GetSchedule(r.Context(), loanID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.Success(w, schedule)
}

func (h *LendingHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	loanID, ok := h.pathID(w, r, "loanId")
	if !ok {
		return
	}

	summary, err := h.service.GetLoanSummary(r.Context(), loanID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.Success(w, summary)
}

// Repay applies a payment to the loan named in the path
func (h *LendingHandler) Repay(w http.ResponseWriter, r *http.Request) {
	loanID, ok := h.pathID(w, r, "loanId")
	if !ok {
		return
	}

	var request domain.RepayRequest
	if !h.decode(w, r, &request) {
		return
	}
	request.LoanID = loanID

	result, err := h.service.Repay(r.Context(), &request)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.Created(w, result)
}

func (h *LendingHandler) ListRepayments(w http.ResponseWriter, r *http.Request) {
	loanID, ok := h.pathID(w, r, "loanId")
	if !ok {
		return
	}

	repayments, err := h.service.ListRepayments(r.Context(), loanID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.Success(w, repayments)
}

// decode reads and validates a JSON body into dst. On failure the error
// response has already been written.
func (h *LendingHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.fail(w, r, customError.WrapValidation("invalid request body: %v", err))
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		h.fail(w, r, customError.WrapValidation("%s", describeValidation(err)))
		return false
	}
	return true
}

func (h *LendingHandler) pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		h.fail(w, r, customError.WrapValidation("%s must be a valid UUID", name))
		return uuid.Nil, false
	}
	return id, true
}

func (h *LendingHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := response.StatusCode(err)
	entry := h.logger.WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"status": status,
		"code":   customError.Code(err),
	}).WithError(err)

	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Info("Request rejected")
	}
	response.FromError(w, err)
}
