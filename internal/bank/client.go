// Package bank talks to the core banking system that moves money in and out
// of borrower accounts.
package bank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Outcome is the bank's answer to a money movement request. A decline is not
// an error: Success is false and FailureReason says why.
type Outcome struct {
	Success       bool   `json:"success"`
	FailureReason string `json:"failure_reason,omitempty"`
	Reference     string `json:"reference,omitempty"`
}

// Client moves money between the lender and a borrower account.
type Client interface {
	// Disburse pays amount out to the borrower's account.
	Disburse(ctx context.Context, accountID string, amount decimal.Decimal) (Outcome, error)

	// Collect pulls amount from the borrower's account.
	Collect(ctx context.Context, accountID string, amount decimal.Decimal) (Outcome, error)
}

type transferRequest struct {
	AccountID string          `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
}

type httpClient struct {
	baseURL string
	http    *http.Client
	logger  logrus.FieldLogger
}

// NewHTTPClient returns a Client backed by the bank's JSON API. Requests that
// exceed timeout fail; nothing is retried.
func NewHTTPClient(baseURL string, timeout time.Duration, logger logrus.FieldLogger) Client {
	return &httpClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger.WithField("component", "bank_client"),
	}
}

func (c *httpClient) Disburse(ctx context.Context, accountID string, amount decimal.Decimal) (Outcome, error) {
	return c.transfer(ctx, "/api/v1/disbursements", accountID, amount)
}

func (c *httpClient) Collect(ctx context.Context, accountID string, amount decimal.Decimal) (Outcome, error) {
	return c.transfer(ctx, "/api/v1/collections", accountID, amount)
}

func (c *httpClient) transfer(ctx context.Context, path, accountID string, amount decimal.Decimal) (Outcome, error) {
	log := c.logger.WithFields(logrus.Fields{"path": path, "account_id": accountID, "amount": amount.StringFixed(2)})

	body, err := json.Marshal(transferRequest{AccountID: accountID, Amount: amount})
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to encode bank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to build bank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		log.WithError(err).Warn("Bank request failed")
		return Outcome{}, fmt.Errorf("bank request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to read bank response: %w", err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		log.WithField("status", resp.StatusCode).Warn("Bank returned server error")
		return Outcome{}, fmt.Errorf("bank returned status %d", resp.StatusCode)
	}

	var outcome Outcome
	if err := json.Unmarshal(raw, &outcome); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return Outcome{FailureReason: fmt.Sprintf("bank rejected request with status %d", resp.StatusCode)}, nil
		}
		return Outcome{}, fmt.Errorf("failed to decode bank response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		outcome.Success = false
		if outcome.FailureReason == "" {
			outcome.FailureReason = fmt.Sprintf("bank rejected request with status %d", resp.StatusCode)
		}
	}
	if !outcome.Success && outcome.FailureReason == "" {
		outcome.FailureReason = "declined by bank"
	}

	log.WithFields(logrus.Fields{"success": outcome.Success, "reference": outcome.Reference}).Info("Bank request completed")
	return outcome, nil
}
