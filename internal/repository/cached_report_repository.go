package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/subflo/subflo/internal/domain"
	"github.com/subflo/subflo/pkg/logger"
)

// CachedReportRepository is a read-through cache over a ReportRepository.
// Cache failures degrade to the database, never to an error: the cache is an
// optimization, not a dependency.
type CachedReportRepository struct {
	repo  ReportRepository
	cache *RedisCache
	log   *logger.Logger
}

// NewCachedReportRepository wraps a report repository with Redis caching
func NewCachedReportRepository(repo ReportRepository, cache *RedisCache, log *logger.Logger) ReportRepository {
	return &CachedReportRepository{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// cached looks up key, falling back to load() and caching its result
func cached[T any](ctx context.Context, r *CachedReportRepository, key string, load func() (T, error)) (T, error) {
	var zero T

	data, err := r.cache.Get(ctx, key)
	if err != nil {
		r.log.Warn("Report cache read failed, falling back to database: %v", err)
	} else if data != nil {
		var value T
		if err := json.Unmarshal(data, &value); err == nil {
			return value, nil
		}
		r.log.Warn("Discarding undecodable report cache entry %s", key)
	}

	value, err := load()
	if err != nil {
		return zero, err
	}

	if data, err := json.Marshal(value); err == nil {
		if err := r.cache.Set(ctx, key, data); err != nil {
			r.log.Warn("Report cache write failed: %v", err)
		}
	}
	return value, nil
}

func dayKey(name string, today time.Time) string {
	return fmt.Sprintf("report:%s:%s", name, today.Format(domain.DateOnly))
}

func (r *CachedReportRepository) TotalCount(ctx context.Context) (int64, error) {
	return cached(ctx, r, "report:total_count", func() (int64, error) {
		return r.repo.TotalCount(ctx)
	})
}

func (r *CachedReportRepository) TotalActiveCount(ctx context.Context, today time.Time) (int64, error) {
	return cached(ctx, r, dayKey("total_active", today), func() (int64, error) {
		return r.repo.TotalActiveCount(ctx, today)
	})
}

func (r *CachedReportRepository) TotalActiveTrialCount(ctx context.Context, today time.Time) (int64, error) {
	return cached(ctx, r, dayKey("total_active_trial", today), func() (int64, error) {
		return r.repo.TotalActiveTrialCount(ctx, today)
	})
}

func (r *CachedReportRepository) SoonToExpireCount(ctx context.Context, userID uuid.UUID, today time.Time, horizonDays int) (int64, error) {
	key := fmt.Sprintf("report:soon_to_expire:%s:%s:%d", userID, today.Format(domain.DateOnly), horizonDays)
	return cached(ctx, r, key, func() (int64, error) {
		return r.repo.SoonToExpireCount(ctx, userID, today, horizonDays)
	})
}

func (r *CachedReportRepository) CostByPaymentMethod(ctx context.Context) ([]domain.PaymentMethodCost, error) {
	return cached(ctx, r, "report:cost_by_payment_method", func() ([]domain.PaymentMethodCost, error) {
		return r.repo.CostByPaymentMethod(ctx)
	})
}

func (r *CachedReportRepository) MonthlyCostSeries(ctx context.Context, year int) ([]decimal.Decimal, error) {
	key := fmt.Sprintf("report:monthly_cost:%d", year)
	return cached(ctx, r, key, func() ([]decimal.Decimal, error) {
		return r.repo.MonthlyCostSeries(ctx, year)
	})
}

func (r *CachedReportRepository) SubscriptionCountByPlatform(ctx context.Context) ([]domain.PlatformCount, error) {
	return cached(ctx, r, "report:platform_counts", func() ([]domain.PlatformCount, error) {
		return r.repo.SubscriptionCountByPlatform(ctx)
	})
}

func (r *CachedReportRepository) MonthlySubscriptionCounts(ctx context.Context, year int) ([]int64, error) {
	key := fmt.Sprintf("report:monthly_counts:%d", year)
	return cached(ctx, r, key, func() ([]int64, error) {
		return r.repo.MonthlySubscriptionCounts(ctx, year)
	})
}
