package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/segyhp/lending-engine/internal/bank"
	"github.com/segyhp/lending-engine/internal/domain"
)

type MockBankClient struct {
	mock.Mock
}

func (m *MockBankClient) Disburse(ctx context.Context, accountID string, amount decimal.Decimal) (bank.Outcome, error) {
	args := m.Called(ctx, accountID, amount)
	return args.Get(0).(bank.Outcome), args.Error(1)
}

func (m *MockBankClient) Collect(ctx context.Context, accountID string, amount decimal.Decimal) (bank.Outcome, error) {
	args := m.Called(ctx, accountID, amount)
	return args.Get(0).(bank.Outcome), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, recipient, subject, body string) error {
	args := m.Called(ctx, recipient, subject, body)
	return args.Error(0)
}

type MockLoanSummaryCache struct {
	mock.Mock
}

func (m *MockLoanSummaryCache) Get(ctx context.Context, loanID uuid.UUID) (*domain.LoanSummary, bool, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*domain.LoanSummary), args.Bool(1), args.Error(2)
}

func (m *MockLoanSummaryCache) Set(ctx context.Context, summary *domain.LoanSummary) error {
	args := m.Called(ctx, summary)
	return args.Error(0)
}

func (m *MockLoanSummaryCache) Invalidate(ctx context.Context, loanID uuid.UUID) error {
	args := m.Called(ctx, loanID)
	return args.Error(0)
}
