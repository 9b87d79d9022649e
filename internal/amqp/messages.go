package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"fleetdash/internal/core"
)

// PaymentRecordedMessage announces a Payment record appended to the ledger.
// It carries the full record so consumers do not need store access.
type PaymentRecordedMessage struct {
	ID                    string    `json:"id"`
	DriverID              string    `json:"driver_id"`
	Date                  string    `json:"date"`
	AmountCents           int64     `json:"amount_cents"`
	RemainingBalanceCents int64     `json:"remaining_balance_cents"`
	BatteryPercentage     int       `json:"battery_percentage"`
	Timestamp             time.Time `json:"timestamp"`
}

func NewPaymentRecordedMessage(r core.TransactionRecord) *PaymentRecordedMessage {
	return &PaymentRecordedMessage{
		ID:                    r.ID,
		DriverID:              r.DriverID,
		Date:                  r.Date.String(),
		AmountCents:           r.AmountPaid.Cents,
		RemainingBalanceCents: r.RemainingBalance.Cents,
		BatteryPercentage:     r.BatteryPercentage,
		Timestamp:             time.Now(),
	}
}

// Record rebuilds the Payment record the message describes.
func (m *PaymentRecordedMessage) Record() (core.TransactionRecord, error) {
	date, err := core.ParseDate(m.Date)
	if err != nil {
		return core.TransactionRecord{}, fmt.Errorf("message %s: %w", m.ID, err)
	}
	rec := core.TransactionRecord{
		ID:                m.ID,
		DriverID:          m.DriverID,
		Date:              date,
		Category:          core.Payment,
		AmountPaid:        core.Money{Cents: m.AmountCents},
		BatteryPercentage: m.BatteryPercentage,
		RemainingBalance:  core.Money{Cents: m.RemainingBalanceCents},
	}
	if rec.ID == "" {
		return core.TransactionRecord{}, fmt.Errorf("message has no record id")
	}
	if err := rec.Validate(); err != nil {
		return core.TransactionRecord{}, fmt.Errorf("message %s: %w", m.ID, err)
	}
	return rec, nil
}

func (m *PaymentRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func PaymentRecordedMessageFromJSON(data []byte) (*PaymentRecordedMessage, error) {
	var msg PaymentRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
