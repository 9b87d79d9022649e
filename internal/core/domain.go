package core

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	Charging    UsageCategory = "Charging"
	Maintenance UsageCategory = "Maintenance"
	Payment     UsageCategory = "Payment"
)

// DateLayout is the wire and storage format for calendar dates.
const DateLayout = "2006-01-02"

type (
	UsageCategory string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// TransactionRecord is one row of a driver's ledger.
	TransactionRecord struct {
		ID                string
		DriverID          string
		Date              Date
		Category          UsageCategory
		Cost              Money
		AmountPaid        Money
		BatteryPercentage int
		RemainingBalance  Money
	}
)

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyDriverID   = errors.New("empty driver id")
	ErrInvalidCategory = errors.New("invalid usage category")
	ErrInvalidBattery  = errors.New("battery percentage out of range")
	ErrNegativeCost    = errors.New("negative cost")
	ErrNegativePaid    = errors.New("negative amount paid")
)

// NewRecordID returns a fresh opaque record identifier.
func NewRecordID() string {
	return uuid.NewString()
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrInvalidDate
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// String formats the date as YYYY-MM-DD; the zero date renders empty.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (c UsageCategory) IsValid() bool {
	switch c {
	case Charging, Maintenance, Payment:
		return true
	default:
		return false
	}
}

// ParseUsageCategory matches a category name case-insensitively.
func ParseUsageCategory(s string) (UsageCategory, error) {
	s = strings.TrimSpace(s)
	for _, c := range []UsageCategory{Charging, Maintenance, Payment} {
		if strings.EqualFold(s, string(c)) {
			return c, nil
		}
	}
	return "", ErrInvalidCategory
}

func (r TransactionRecord) Validate() error {
	if strings.TrimSpace(r.DriverID) == "" {
		return ErrEmptyDriverID
	}
	if err := r.Date.Validate(); err != nil {
		return err
	}
	if !r.Category.IsValid() {
		return ErrInvalidCategory
	}
	if r.Cost.Cents < 0 {
		return ErrNegativeCost
	}
	if r.AmountPaid.Cents < 0 {
		return ErrNegativePaid
	}
	if r.BatteryPercentage < 0 || r.BatteryPercentage > 100 {
		return ErrInvalidBattery
	}
	return nil
}
