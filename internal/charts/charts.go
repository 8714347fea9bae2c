package charts

import (
	"bytes"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/subflo/subflo/internal/domain"
)

// sampleSuffix marks charts rendered from illustrative data
const sampleSuffix = " (sample data)"

var monthLabels = []string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

// RenderPlatformDistribution draws one bar per platform, tallest first
func RenderPlatformDistribution(counts []domain.PlatformCount, sample bool) ([]byte, error) {
	if len(counts) == 0 {
		return nil, fmt.Errorf("charts: no platform data to render")
	}

	bars := make([]chart.Value, 0, len(counts))
	for _, c := range counts {
		bars = append(bars, chart.Value{
			Label: c.Platform,
			Value: float64(c.Count),
		})
	}

	return renderBars(title("Subscriptions by platform", sample), bars)
}

// RenderMonthlyCounts draws one bar per calendar month of the given year
func RenderMonthlyCounts(series domain.MonthlyCountSeries, sample bool) ([]byte, error) {
	bars := make([]chart.Value, 0, len(series.Counts))
	for i, count := range series.Counts {
		bars = append(bars, chart.Value{
			Label: monthLabel(i),
			Value: float64(count),
		})
	}

	return renderBars(title(fmt.Sprintf("Subscriptions per month, %d", series.Year), sample), bars)
}

// RenderMonthlyCost draws the monthly spend series of the given year
func RenderMonthlyCost(series domain.MonthlyCostSeries, sample bool) ([]byte, error) {
	bars := make([]chart.Value, 0, len(series.Totals))
	for i, total := range series.Totals {
		value, _ := total.Round(2).Float64()
		bars = append(bars, chart.Value{
			Label: monthLabel(i),
			Value: value,
		})
	}

	return renderBars(title(fmt.Sprintf("Monthly cost, %d", series.Year), sample), bars)
}

func renderBars(chartTitle string, bars []chart.Value) ([]byte, error) {
	// The renderer rejects bars at exactly zero, so floor them just above it.
	for i := range bars {
		if bars[i].Value <= 0 {
			bars[i].Value = 0.001
		}
	}

	graph := chart.BarChart{
		Title:    chartTitle,
		Width:    900,
		Height:   450,
		BarWidth: 40,
		XAxis: chart.Style{
			TextRotationDegrees: 45,
		},
		YAxis: chart.YAxis{
			ValueFormatter: chart.FloatValueFormatter,
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("charts: render failed: %w", err)
	}
	return buf.Bytes(), nil
}

func title(base string, sample bool) string {
	if sample {
		return base + sampleSuffix
	}
	return base
}

func monthLabel(index int) string {
	if index >= 0 && index < len(monthLabels) {
		return monthLabels[index]
	}
	return fmt.Sprintf("M%d", index+1)
}
