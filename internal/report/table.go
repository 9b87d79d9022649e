package report

import (
	"io"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"fleetdash/internal/core"
)

// WriteStatement renders records as a table with a totals footer.
func WriteStatement(w io.Writer, records []core.TransactionRecord) {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Driver ID", "Date", "Usage Category", "Cost", "Amount Paid", "Battery %", "Remaining Balance"})

	var cost, paid core.Money
	for _, r := range records {
		cost = cost.Add(r.Cost)
		paid = paid.Add(r.AmountPaid)
		table.Append([]string{
			r.DriverID,
			r.Date.String(),
			string(r.Category),
			r.Cost.String(),
			r.AmountPaid.String(),
			strconv.Itoa(r.BatteryPercentage) + "%",
			r.RemainingBalance.String(),
		})
	}

	table.SetFooter([]string{"", "", "Total", cost.String(), paid.String(), "", ""})
	table.Render()
}

// Summaries groups records by driver and summarizes each, ordered by id.
func Summaries(records []core.TransactionRecord) []core.DriverSummary {
	byDriver := make(map[string][]core.TransactionRecord)
	for _, r := range records {
		byDriver[r.DriverID] = append(byDriver[r.DriverID], r)
	}

	out := make([]core.DriverSummary, 0, len(byDriver))
	for id, recs := range byDriver {
		out = append(out, core.Summarize(id, recs))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DriverID < out[j].DriverID })
	return out
}

// WriteSummaries renders one row per driver with the dashboard figures.
func WriteSummaries(w io.Writer, sums []core.DriverSummary) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Driver ID", "Records", "Battery Usage", "Remaining Balance", "Total Cost"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)

	for _, s := range sums {
		table.Append([]string{
			s.DriverID,
			strconv.Itoa(len(s.Records)),
			strconv.Itoa(s.BatteryPercentage) + "%",
			s.RemainingBalance.String(),
			s.TotalCost.String(),
		})
	}
	table.Render()
}
