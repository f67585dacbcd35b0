// Package cache keeps read models of loans in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/segyhp/lending-engine/internal/domain"
	customError "github.com/segyhp/lending-engine/pkg/errors"
)

// LoanSummaryCache stores loan summaries keyed by loan ID.
type LoanSummaryCache interface {
	// Get returns the cached summary; ok is false on a miss.
	Get(ctx context.Context, loanID uuid.UUID) (summary *domain.LoanSummary, ok bool, err error)

	Set(ctx context.Context, summary *domain.LoanSummary) error

	Invalidate(ctx context.Context, loanID uuid.UUID) error
}

type redisLoanCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisLoanCache(client redis.Cmdable, ttl time.Duration) LoanSummaryCache {
	return &redisLoanCache{client: client, ttl: ttl}
}

func SummaryKey(loanID uuid.UUID) string {
	return fmt.Sprintf("loan:summary:%s", loanID)
}

func (c *redisLoanCache) Get(ctx context.Context, loanID uuid.UUID) (*domain.LoanSummary, bool, error) {
	raw, err := c.client.Get(ctx, SummaryKey(loanID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, customError.WrapCacheError(err)
	}

	var summary domain.LoanSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil, false, customError.WrapCacheError(err)
	}
	return &summary, true, nil
}

func (c *redisLoanCache) Set(ctx context.Context, summary *domain.LoanSummary) error {
	raw, err := json.Marshal(summary)
	if err != nil {
		return customError.WrapCacheError(err)
	}
	if err := c.client.Set(ctx, SummaryKey(summary.LoanID), raw, c.ttl).Err(); err != nil {
		return customError.WrapCacheError(err)
	}
	return nil
}

func (c *redisLoanCache) Invalidate(ctx context.Context, loanID uuid.UUID) error {
	if err := c.client.Del(ctx, SummaryKey(loanID)).Err(); err != nil {
		return customError.WrapCacheError(err)
	}
	return nil
}
