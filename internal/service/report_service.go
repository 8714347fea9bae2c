package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/subflo/subflo/internal/domain"
	"github.com/subflo/subflo/internal/repository"
	"github.com/subflo/subflo/pkg/logger"
)

// ReportOverview is the aggregate snapshot behind the reports endpoint
type ReportOverview struct {
	Total            int64 `json:"total"`
	TotalActive      int64 `json:"total_active"`
	TotalActiveTrial int64 `json:"total_active_trial"`
	SoonToExpire     int64 `json:"soon_to_expire"`
}

// ReportService answers aggregate queries and prepares the chart series.
// When a series comes back entirely empty and demo data is enabled, a
// deterministic illustrative series is substituted and flagged as a sample.
type ReportService interface {
	Overview(ctx context.Context) (ReportOverview, error)
	CostByPaymentMethod(ctx context.Context) ([]domain.PaymentMethodCost, error)
	PlatformDistribution(ctx context.Context) ([]domain.PlatformCount, bool, error)
	MonthlyCounts(ctx context.Context, year int) (domain.MonthlyCountSeries, bool, error)
	MonthlyCost(ctx context.Context, year int) (domain.MonthlyCostSeries, bool, error)
}

type reportService struct {
	repo     repository.ReportRepository
	demoData bool
	log      *logger.Logger
}

// NewReportService creates a new report service. demoData enables the sample
// series fallback for charts; it is off in production configs.
func NewReportService(repo repository.ReportRepository, demoData bool, log *logger.Logger) ReportService {
	return &reportService{
		repo:     repo,
		demoData: demoData,
		log:      log,
	}
}

func (s *reportService) Overview(ctx context.Context) (ReportOverview, error) {
	s.log.Debug("Building report overview")
	now := time.Now()

	total, err := s.repo.TotalCount(ctx)
	if err != nil {
		return ReportOverview{}, err
	}
	active, err := s.repo.TotalActiveCount(ctx, now)
	if err != nil {
		return ReportOverview{}, err
	}
	trial, err := s.repo.TotalActiveTrialCount(ctx, now)
	if err != nil {
		return ReportOverview{}, err
	}
	soon, err := s.repo.SoonToExpireCount(ctx, uuid.Nil, now, soonToExpireHorizonDays)
	if err != nil {
		return ReportOverview{}, err
	}

	return ReportOverview{
		Total:            total,
		TotalActive:      active,
		TotalActiveTrial: trial,
		SoonToExpire:     soon,
	}, nil
}

func (s *reportService) CostByPaymentMethod(ctx context.Context) ([]domain.PaymentMethodCost, error) {
	s.log.Debug("Building cost by payment method report")
	return s.repo.CostByPaymentMethod(ctx)
}

func (s *reportService) PlatformDistribution(ctx context.Context) ([]domain.PlatformCount, bool, error) {
	s.log.Debug("Building platform distribution")

	counts, err := s.repo.SubscriptionCountByPlatform(ctx)
	if err != nil {
		return nil, false, err
	}

	if len(counts) == 0 && s.demoData {
		return samplePlatformCounts(), true, nil
	}
	return counts, false, nil
}

func (s *reportService) MonthlyCounts(ctx context.Context, year int) (domain.MonthlyCountSeries, bool, error) {
	s.log.Debug("Building monthly subscription counts for %d", year)

	counts, err := s.repo.MonthlySubscriptionCounts(ctx, year)
	if err != nil {
		return domain.MonthlyCountSeries{}, false, err
	}

	if allCountsZero(counts) && s.demoData {
		return domain.MonthlyCountSeries{Year: year, Counts: sampleMonthlyCounts()}, true, nil
	}
	return domain.MonthlyCountSeries{Year: year, Counts: counts}, false, nil
}

func (s *reportService) MonthlyCost(ctx context.Context, year int) (domain.MonthlyCostSeries, bool, error) {
	s.log.Debug("Building monthly cost series for %d", year)

	totals, err := s.repo.MonthlyCostSeries(ctx, year)
	if err != nil {
		return domain.MonthlyCostSeries{}, false, err
	}

	if allTotalsZero(totals) && s.demoData {
		return domain.MonthlyCostSeries{Year: year, Totals: sampleMonthlyCost()}, true, nil
	}
	return domain.MonthlyCostSeries{Year: year, Totals: totals}, false, nil
}

func allCountsZero(counts []int64) bool {
	for _, c := range counts {
		if c != 0 {
			return false
		}
	}
	return true
}

func allTotalsZero(totals []decimal.Decimal) bool {
	for _, t := range totals {
		if !t.IsZero() {
			return false
		}
	}
	return true
}

// The sample series are fixed so demo charts render the same on every run.

func samplePlatformCounts() []domain.PlatformCount {
	return []domain.PlatformCount{
		{Platform: "Netflix", Count: 14},
		{Platform: "Spotify", Count: 11},
		{Platform: "Disney+", Count: 7},
		{Platform: "HBO Max", Count: 5},
		{Platform: "YouTube Premium", Count: 3},
	}
}

func sampleMonthlyCounts() []int64 {
	return []int64{3, 5, 4, 7, 6, 9, 8, 10, 7, 6, 8, 11}
}

func sampleMonthlyCost() []decimal.Decimal {
	cents := []int64{2599, 3148, 2999, 4297, 3850, 5246, 4999, 5748, 4350, 3999, 4847, 6199}
	totals := make([]decimal.Decimal, len(cents))
	for i, c := range cents {
		totals[i] = decimal.New(c, -2)
	}
	return totals
}
