// Package report renders ledger data as charts and plain-text statements.
package report

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/wcharczuk/go-chart/v2"

	"fleetdash/internal/core"
)

var ErrNoRecords = errors.New("no records to render")

const (
	chartMinWidth = 800
	chartHeight   = 400
	barWidth      = 40
	barSpacing    = 20
)

// RenderBalanceChart writes a PNG bar chart of the remaining balance after
// each of the driver's records, oldest first.
func RenderBalanceChart(w io.Writer, sum core.DriverSummary) error {
	if !sum.Found || len(sum.Records) == 0 {
		return ErrNoRecords
	}

	bars := make([]chart.Value, 0, len(sum.Records))
	lo, hi := 0.0, 0.0
	for i, r := range sum.Records {
		v := r.RemainingBalance.Pounds()
		bars = append(bars, chart.Value{
			Label: fmt.Sprintf("#%d %s", i+1, r.Date.Format("02 Jan")),
			Value: v,
		})
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi == lo {
		hi = lo + 1
	}

	barChart := chart.BarChart{
		Title: fmt.Sprintf("Remaining Balance - %s", sum.DriverID),
		Background: chart.Style{
			Padding: chart.Box{
				Top:    40,
				Left:   20,
				Right:  20,
				Bottom: 20,
			},
		},
		Width:      max(chartMinWidth, 200+len(bars)*(barWidth+barSpacing)),
		Height:     chartHeight,
		BarWidth:   barWidth,
		BarSpacing: barSpacing,
		Bars:       bars,
	}

	barChart.YAxis.Range = &chart.ContinuousRange{Min: lo, Max: hi}
	barChart.YAxis.ValueFormatter = func(v interface{}) string {
		if vf, isFloat := v.(float64); isFloat {
			return core.MoneyFromFloat(vf).String()
		}
		return ""
	}

	if err := barChart.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render balance chart: %w", err)
	}
	return nil
}
