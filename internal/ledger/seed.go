package ledger

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"fleetdash/internal/core"
)

// SeedRecord is the YAML shape of one seeded transaction. Amounts are
// decimal pound strings.
type SeedRecord struct {
	ID                string `yaml:"id"`
	DriverID          string `yaml:"driver_id"`
	Date              string `yaml:"date"`
	UsageCategory     string `yaml:"usage_category"`
	Cost              string `yaml:"cost"`
	AmountPaid        string `yaml:"amount_paid"`
	BatteryPercentage int    `yaml:"battery_percentage"`
	RemainingBalance  string `yaml:"remaining_balance"`
}

// DefaultSeed returns the records a fresh dashboard starts with.
func DefaultSeed() []core.TransactionRecord {
	return []core.TransactionRecord{
		{
			ID:                "seed-d001-1",
			DriverID:          "D001",
			Date:              core.NewDate(2025, 2, 10),
			Category:          core.Charging,
			Cost:              core.Money{Cents: 2000},
			AmountPaid:        core.Money{Cents: 2000},
			BatteryPercentage: 80,
			RemainingBalance:  core.Money{Cents: 20000},
		},
		{
			ID:                "seed-d002-1",
			DriverID:          "D002",
			Date:              core.NewDate(2025, 2, 15),
			Category:          core.Maintenance,
			Cost:              core.Money{Cents: 5000},
			AmountPaid:        core.Money{Cents: 5000},
			BatteryPercentage: 60,
			RemainingBalance:  core.Money{Cents: 15000},
		},
		{
			ID:                "seed-d003-1",
			DriverID:          "D003",
			Date:              core.NewDate(2025, 2, 20),
			Category:          core.Charging,
			Cost:              core.Money{Cents: 3000},
			AmountPaid:        core.Money{Cents: 3000},
			BatteryPercentage: 90,
			RemainingBalance:  core.Money{Cents: 30000},
		},
	}
}

// LoadSeedFile reads seed records from a YAML file. A missing file yields
// DefaultSeed.
func LoadSeedFile(path string) ([]core.TransactionRecord, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultSeed(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return DecodeSeed(f)
}

// DecodeSeed parses a YAML list of SeedRecord.
func DecodeSeed(r io.Reader) ([]core.TransactionRecord, error) {
	var raw []SeedRecord
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	out := make([]core.TransactionRecord, 0, len(raw))
	for i, s := range raw {
		rec, err := s.toRecord()
		if err != nil {
			return nil, fmt.Errorf("seed record %d: %w", i+1, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s SeedRecord) toRecord() (core.TransactionRecord, error) {
	date, err := core.ParseDate(s.Date)
	if err != nil {
		return core.TransactionRecord{}, fmt.Errorf("date %q: %w", s.Date, err)
	}
	cat, err := core.ParseUsageCategory(s.UsageCategory)
	if err != nil {
		return core.TransactionRecord{}, fmt.Errorf("usage category %q: %w", s.UsageCategory, err)
	}
	cost, err := core.ParseMoney(s.Cost)
	if err != nil {
		return core.TransactionRecord{}, fmt.Errorf("cost %q: %w", s.Cost, err)
	}
	paid, err := core.ParseMoney(s.AmountPaid)
	if err != nil {
		return core.TransactionRecord{}, fmt.Errorf("amount paid %q: %w", s.AmountPaid, err)
	}
	balance, err := core.ParseMoney(s.RemainingBalance)
	if err != nil {
		return core.TransactionRecord{}, fmt.Errorf("remaining balance %q: %w", s.RemainingBalance, err)
	}
	id := s.ID
	if id == "" {
		id = core.NewRecordID()
	}
	rec := core.TransactionRecord{
		ID:                id,
		DriverID:          core.NormalizeDriverID(s.DriverID),
		Date:              date,
		Category:          cat,
		Cost:              cost,
		AmountPaid:        paid,
		BatteryPercentage: s.BatteryPercentage,
		RemainingBalance:  balance,
	}
	if err := rec.Validate(); err != nil {
		return core.TransactionRecord{}, err
	}
	return rec, nil
}
