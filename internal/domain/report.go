package domain

import "github.com/shopspring/decimal"

// DashboardCounts are the headline numbers shown on the subscription list
type DashboardCounts struct {
	Total        int64 `json:"total"`
	TotalActive  int64 `json:"total_active"`
	SoonToExpire int64 `json:"soon_to_expire"`
}

// PaymentMethodCost is one group of the cost-by-payment-method report.
// A nil Method is the group of subscriptions with no payment method recorded.
type PaymentMethodCost struct {
	Method *string         `json:"payment_method"`
	Total  decimal.Decimal `json:"total"`
}

// PlatformCount is one bar of the platform distribution chart
type PlatformCount struct {
	Platform string `json:"platform"`
	Count    int64  `json:"count"`
}

// MonthlyCostSeries holds one value per calendar month, January first.
// Months without matching subscriptions hold zero.
type MonthlyCostSeries struct {
	Year   int               `json:"year"`
	Totals []decimal.Decimal `json:"totals"`
}

// MonthlyCountSeries holds one count per calendar month, January first
type MonthlyCountSeries struct {
	Year   int     `json:"year"`
	Counts []int64 `json:"counts"`
}
