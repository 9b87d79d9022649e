package core

import "strings"

// DriverSummary is the derived view of one driver's records.
type DriverSummary struct {
	DriverID          string
	Found             bool
	BatteryPercentage int   // from the newest record
	RemainingBalance  Money // from the newest record
	TotalCost         Money // sum of Cost across Records
	Records           []TransactionRecord
}

// NormalizeDriverID trims surrounding whitespace; matching is exact otherwise.
func NormalizeDriverID(id string) string {
	return strings.TrimSpace(id)
}

// FilterByDriver returns the records for driverID, preserving store order.
func FilterByDriver(records []TransactionRecord, driverID string) []TransactionRecord {
	driverID = NormalizeDriverID(driverID)
	if driverID == "" {
		return nil
	}
	var out []TransactionRecord
	for _, r := range records {
		if r.DriverID == driverID {
			out = append(out, r)
		}
	}
	return out
}

// Latest returns the newest record, i.e. the last one in store order.
func Latest(records []TransactionRecord) (TransactionRecord, bool) {
	if len(records) == 0 {
		return TransactionRecord{}, false
	}
	return records[len(records)-1], true
}

// Summarize derives the dashboard figures from a driver's records, which must
// already be filtered to that driver and in store order.
func Summarize(driverID string, records []TransactionRecord) DriverSummary {
	s := DriverSummary{DriverID: NormalizeDriverID(driverID)}
	latest, ok := Latest(records)
	if !ok {
		return s
	}
	s.Found = true
	s.BatteryPercentage = latest.BatteryPercentage
	s.RemainingBalance = latest.RemainingBalance
	for _, r := range records {
		s.TotalCost = s.TotalCost.Add(r.Cost)
	}
	s.Records = append([]TransactionRecord(nil), records...)
	return s
}

// NewPayment synthesizes the Payment record that follows prior. The balance
// is not clamped at zero.
func NewPayment(prior TransactionRecord, amount Money, date Date) (TransactionRecord, error) {
	if amount.Cents <= 0 {
		return TransactionRecord{}, ErrInvalidAmount
	}
	if err := date.Validate(); err != nil {
		return TransactionRecord{}, err
	}
	if strings.TrimSpace(prior.DriverID) == "" {
		return TransactionRecord{}, ErrEmptyDriverID
	}
	return TransactionRecord{
		ID:                NewRecordID(),
		DriverID:          prior.DriverID,
		Date:              date,
		Category:          Payment,
		Cost:              Money{},
		AmountPaid:        amount,
		BatteryPercentage: prior.BatteryPercentage,
		RemainingBalance:  prior.RemainingBalance.Sub(amount),
	}, nil
}
