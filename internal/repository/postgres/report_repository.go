package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/subflo/subflo/internal/domain"
	"github.com/subflo/subflo/pkg/logger"
)

// ReportRepository runs the aggregation queries behind the dashboard counts
// and the chart endpoints
type ReportRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewReportRepository creates a new PostgreSQL report repository
func NewReportRepository(db *pgxpool.Pool, log *logger.Logger) *ReportRepository {
	return &ReportRepository{
		db:  db,
		log: log,
	}
}

func (r *ReportRepository) countQuery(ctx context.Context, query string, args ...any) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count query failed: %w", err)
	}
	return count, nil
}

// TotalCount returns the number of subscriptions across all accounts
func (r *ReportRepository) TotalCount(ctx context.Context) (int64, error) {
	return r.countQuery(ctx, `SELECT COUNT(*) FROM subscriptions`)
}

// TotalActiveCount returns the number of active subscriptions across all
// accounts
func (r *ReportRepository) TotalActiveCount(ctx context.Context, today time.Time) (int64, error) {
	return r.countQuery(ctx,
		`SELECT COUNT(*) FROM subscriptions
		 WHERE already_canceled = FALSE AND (end_date IS NULL OR end_date >= $1)`,
		today,
	)
}

// TotalActiveTrialCount returns the number of active trial subscriptions
func (r *ReportRepository) TotalActiveTrialCount(ctx context.Context, today time.Time) (int64, error) {
	return r.countQuery(ctx,
		`SELECT COUNT(*) FROM subscriptions
		 WHERE is_trial = TRUE
		   AND already_canceled = FALSE
		   AND (end_date IS NULL OR end_date >= $1)`,
		today,
	)
}

// SoonToExpireCount counts non-canceled subscriptions ending within
// [today, today+horizon], both bounds inclusive. A zero userID counts
// across all accounts.
func (r *ReportRepository) SoonToExpireCount(ctx context.Context, userID uuid.UUID, today time.Time, horizonDays int) (int64, error) {
	horizon := today.AddDate(0, 0, horizonDays)
	if userID == uuid.Nil {
		return r.countQuery(ctx,
			`SELECT COUNT(*) FROM subscriptions
			 WHERE already_canceled = FALSE
			   AND end_date >= $1
			   AND end_date <= $2`,
			today, horizon,
		)
	}
	return r.countQuery(ctx,
		`SELECT COUNT(*) FROM subscriptions
		 WHERE user_id = $1
		   AND already_canceled = FALSE
		   AND end_date >= $2
		   AND end_date <= $3`,
		userID, today, horizon,
	)
}

// CostByPaymentMethod groups all priced subscriptions by payment method and
// sums price per group. Subscriptions without a payment method form their
// own group, sorted last.
func (r *ReportRepository) CostByPaymentMethod(ctx context.Context) ([]domain.PaymentMethodCost, error) {
	query := `
		SELECT payment_method, SUM(price)
		FROM subscriptions
		WHERE price IS NOT NULL
		GROUP BY payment_method
		ORDER BY payment_method NULLS LAST
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query cost by payment method: %w", err)
	}
	defer rows.Close()

	var result []domain.PaymentMethodCost
	for rows.Next() {
		var group domain.PaymentMethodCost
		var total decimal.NullDecimal
		if err := rows.Scan(&group.Method, &total); err != nil {
			return nil, fmt.Errorf("failed to scan payment method group: %w", err)
		}
		if total.Valid {
			group.Total = total.Decimal
		}
		result = append(result, group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payment method groups: %w", err)
	}
	return result, nil
}

// MonthlyCostSeries sums price per calendar month of the subscriptions
// created in the given year, skipping canceled rows, trials and rows without
// a price. Months with no matching rows hold zero.
func (r *ReportRepository) MonthlyCostSeries(ctx context.Context, year int) ([]decimal.Decimal, error) {
	query := `
		SELECT EXTRACT(MONTH FROM created_at)::int, SUM(price)
		FROM subscriptions
		WHERE EXTRACT(YEAR FROM created_at) = $1
		  AND already_canceled = FALSE
		  AND is_trial = FALSE
		  AND price IS NOT NULL
		GROUP BY 1
	`

	rows, err := r.db.Query(ctx, query, year)
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly cost series: %w", err)
	}
	defer rows.Close()

	totals := make([]decimal.Decimal, 12)
	for rows.Next() {
		var month int
		var total decimal.NullDecimal
		if err := rows.Scan(&month, &total); err != nil {
			return nil, fmt.Errorf("failed to scan monthly cost row: %w", err)
		}
		if month >= 1 && month <= 12 && total.Valid {
			totals[month-1] = total.Decimal
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating monthly cost rows: %w", err)
	}
	return totals, nil
}

// SubscriptionCountByPlatform counts non-canceled subscriptions per
// platform, largest first
func (r *ReportRepository) SubscriptionCountByPlatform(ctx context.Context) ([]domain.PlatformCount, error) {
	query := `
		SELECT platform_name, COUNT(*)
		FROM subscriptions
		WHERE already_canceled = FALSE
		GROUP BY platform_name
		ORDER BY COUNT(*) DESC, platform_name
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query platform counts: %w", err)
	}
	defer rows.Close()

	var result []domain.PlatformCount
	for rows.Next() {
		var pc domain.PlatformCount
		if err := rows.Scan(&pc.Platform, &pc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan platform count: %w", err)
		}
		result = append(result, pc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating platform counts: %w", err)
	}
	return result, nil
}

// MonthlySubscriptionCounts counts non-canceled subscriptions created per
// calendar month of the given year
func (r *ReportRepository) MonthlySubscriptionCounts(ctx context.Context, year int) ([]int64, error) {
	query := `
		SELECT EXTRACT(MONTH FROM created_at)::int, COUNT(*)
		FROM subscriptions
		WHERE EXTRACT(YEAR FROM created_at) = $1
		  AND already_canceled = FALSE
		GROUP BY 1
	`

	rows, err := r.db.Query(ctx, query, year)
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly counts: %w", err)
	}
	defer rows.Close()

	counts := make([]int64, 12)
	for rows.Next() {
		var month int
		var count int64
		if err := rows.Scan(&month, &count); err != nil {
			return nil, fmt.Errorf("failed to scan monthly count row: %w", err)
		}
		if month >= 1 && month <= 12 {
			counts[month-1] = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating monthly count rows: %w", err)
	}
	return counts, nil
}
