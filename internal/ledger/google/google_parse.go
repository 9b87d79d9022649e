package google

import (
	"fmt"
	"strconv"
	"strings"

	"fleetdash/internal/core"
)

var header = []string{
	"ID", "Driver ID", "Date", "Usage Category",
	"Cost", "Amount Paid", "Battery Percentage", "Remaining Balance",
}

func headerRow() []any {
	out := make([]any, len(header))
	for i, h := range header {
		out[i] = h
	}
	return out
}

func recordToRow(r core.TransactionRecord) []any {
	return []any{
		r.ID,
		r.DriverID,
		r.Date.String(),
		string(r.Category),
		r.Cost.Plain(),
		r.AmountPaid.Plain(),
		r.BatteryPercentage,
		r.RemainingBalance.Plain(),
	}
}

// parseRows converts a values matrix into records, skipping blank rows and
// counting rows that fail to parse.
func parseRows(values [][]any) (recs []core.TransactionRecord, skipped int) {
	for _, raw := range values {
		row := toStrings(raw)
		if isBlank(row) {
			continue
		}
		rec, err := parseRecordRow(row)
		if err != nil {
			skipped++
			continue
		}
		recs = append(recs, rec)
	}
	return recs, skipped
}

func parseRecordRow(row []string) (core.TransactionRecord, error) {
	if len(row) < len(header) {
		return core.TransactionRecord{}, fmt.Errorf("row has %d columns, want %d", len(row), len(header))
	}
	date, err := core.ParseDate(row[2])
	if err != nil {
		return core.TransactionRecord{}, fmt.Errorf("date %q: %w", row[2], err)
	}
	cat, err := core.ParseUsageCategory(row[3])
	if err != nil {
		return core.TransactionRecord{}, fmt.Errorf("category %q: %w", row[3], err)
	}
	cost, err := core.ParseMoney(row[4])
	if err != nil {
		return core.TransactionRecord{}, fmt.Errorf("cost %q: %w", row[4], err)
	}
	paid, err := core.ParseMoney(row[5])
	if err != nil {
		return core.TransactionRecord{}, fmt.Errorf("amount paid %q: %w", row[5], err)
	}
	battery, err := strconv.Atoi(row[6])
	if err != nil {
		return core.TransactionRecord{}, fmt.Errorf("battery %q: %w", row[6], err)
	}
	balance, err := core.ParseMoney(row[7])
	if err != nil {
		return core.TransactionRecord{}, fmt.Errorf("balance %q: %w", row[7], err)
	}
	rec := core.TransactionRecord{
		ID:                row[0],
		DriverID:          core.NormalizeDriverID(row[1]),
		Date:              date,
		Category:          cat,
		Cost:              cost,
		AmountPaid:        paid,
		BatteryPercentage: battery,
		RemainingBalance:  balance,
	}
	if err := rec.Validate(); err != nil {
		return core.TransactionRecord{}, err
	}
	return rec, nil
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func isBlank(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}
