package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrValidation            = errors.New("validation failed")
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("payer does not own the loan")
	ErrExternalService       = errors.New("external service failure")
	ErrInvariantViolation    = errors.New("invariant violation")
	ErrOutstandingLoan       = errors.New("account has an outstanding loan")
	ErrApplicationNotPending = errors.New("loan application is not pending")
	ErrLoanAlreadyClosed     = errors.New("loan is already closed")
	ErrDatabase              = errors.New("database error")
	ErrCache                 = errors.New("cache error")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeValidation            = "VALIDATION_ERROR"
	ErrCodeNotFound              = "NOT_FOUND"
	ErrCodeAuthorization         = "AUTHORIZATION_ERROR"
	ErrCodeExternalService       = "EXTERNAL_SERVICE_FAILURE"
	ErrCodeInvariantViolation    = "INVARIANT_VIOLATION"
	ErrCodeOutstandingLoan       = "OUTSTANDING_LOAN"
	ErrCodeApplicationNotPending = "APPLICATION_NOT_PENDING"
	ErrCodeLoanAlreadyClosed     = "LOAN_ALREADY_CLOSED"
	ErrCodeDatabaseError         = "DATABASE_ERROR"
	ErrCodeCacheError            = "CACHE_ERROR"
)

// Code returns the code of the first BusinessError in err's chain, or "".
func Code(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

// Wrap common errors with business context
func WrapValidation(format string, args ...any) *BusinessError {
	return NewBusinessError(
		ErrCodeValidation,
		fmt.Sprintf(format, args...),
		ErrValidation,
	)
}

func WrapNotFound(resource, id string) *BusinessError {
	return NewBusinessError(
		ErrCodeNotFound,
		fmt.Sprintf("%s with ID %s not found", resource, id),
		ErrNotFound,
	)
}

func WrapUnauthorized(accountID, loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeAuthorization,
		fmt.Sprintf("Account %s is not the owner of loan %s", accountID, loanID),
		ErrUnauthorized,
	)
}

// WrapExternalService reports a declined or unreachable collaborator call.
// cause may be nil when the collaborator answered with a decline.
func WrapExternalService(operation, reason string, cause error) *BusinessError {
	err := ErrExternalService
	if cause != nil {
		err = fmt.Errorf("%w: %w", ErrExternalService, cause)
	}
	return NewBusinessError(
		ErrCodeExternalService,
		fmt.Sprintf("%s failed: %s", operation, reason),
		err,
	)
}

func WrapInvariantViolation(format string, args ...any) *BusinessError {
	return NewBusinessError(
		ErrCodeInvariantViolation,
		fmt.Sprintf(format, args...),
		ErrInvariantViolation,
	)
}

func WrapOutstandingLoan(accountID, outstanding string) *BusinessError {
	return NewBusinessError(
		ErrCodeOutstandingLoan,
		fmt.Sprintf("Account %s has an outstanding loan of %s", accountID, outstanding),
		ErrOutstandingLoan,
	)
}

func WrapApplicationNotPending(applicationID, status string) *BusinessError {
	return NewBusinessError(
		ErrCodeApplicationNotPending,
		fmt.Sprintf("Loan application %s is %s, not PENDING", applicationID, status),
		ErrApplicationNotPending,
	)
}

// WrapApplicationStatusChanged reports a conditional status update that found
// the application in another status than expected.
func WrapApplicationStatusChanged(applicationID, expected, actual string) *BusinessError {
	return NewBusinessError(
		ErrCodeApplicationNotPending,
		fmt.Sprintf("Loan application %s is %s, expected %s", applicationID, actual, expected),
		ErrApplicationNotPending,
	)
}

func WrapApprovalInProgress(accountID string) *BusinessError {
	return NewBusinessError(
		ErrCodeOutstandingLoan,
		fmt.Sprintf("Account %s already has a loan application being approved", accountID),
		ErrOutstandingLoan,
	)
}

func WrapLoanAlreadyClosed(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanAlreadyClosed,
		fmt.Sprintf("Loan with ID %s is already closed", loanID),
		ErrLoanAlreadyClosed,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		fmt.Errorf("%w: %w", ErrDatabase, err),
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"Cache operation failed",
		fmt.Errorf("%w: %w", ErrCache, err),
	)
}
