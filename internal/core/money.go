// Package core provides the fleet ledger domain model.
//
// This file contains money parsing and formatting. Amounts are held as
// integer pence and converted through shopspring/decimal at the edges.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencySymbol prefixes every formatted amount.
const CurrencySymbol = "£"

// maxPence bounds parsed values so that cents arithmetic cannot overflow.
var maxPence = decimal.New(1, 15)

// ParseAmount converts a user-entered decimal string to a strictly positive
// Money value.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and an
// optional leading currency symbol. Amounts finer than whole pence are
// rejected.
//
// Examples:
//
//	ParseAmount("12.34")  -> 1234p
//	ParseAmount("£50")    -> 5000p
//	ParseAmount("12.345") -> ErrInvalidAmount
func ParseAmount(s string) (Money, error) {
	d, err := parseDecimal(s)
	if err != nil {
		return Money{}, err
	}
	if !d.Equal(d.Round(2)) {
		return Money{}, ErrInvalidAmount
	}
	m, err := toPence(d)
	if err != nil {
		return Money{}, err
	}
	if m.Cents <= 0 {
		return Money{}, ErrInvalidAmount
	}
	return m, nil
}

// ParseMoney accepts zero and negative values and rounds half away from zero
// to whole pence. It is used when reading stored balances back from
// text-based backends.
func ParseMoney(s string) (Money, error) {
	d, err := parseDecimal(s)
	if err != nil {
		return Money{}, err
	}
	return toPence(d)
}

func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, CurrencySymbol)
	s = strings.ReplaceAll(s, ",", ".")
	if s == "" {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	return d, nil
}

func toPence(d decimal.Decimal) (Money, error) {
	pence := d.Shift(2).Round(0)
	if pence.Abs().GreaterThanOrEqual(maxPence) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: pence.IntPart()}, nil
}

// MoneyFromDecimal converts a decimal pound value to Money.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{Cents: d.Shift(2).Round(0).IntPart()}
}

// Decimal returns the value in pounds.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Pounds returns the value as a float64 for charting only.
func (m Money) Pounds() float64 {
	return m.Decimal().InexactFloat64()
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }

func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }


// String formats the value as e.g. "£12.50" or "-£3.00".
func (m Money) String() string {
	if m.Cents < 0 {
		return "-" + CurrencySymbol + m.Decimal().Abs().StringFixed(2)
	}
	return CurrencySymbol + m.Decimal().StringFixed(2)
}

// Plain formats the value without currency symbol, e.g. "12.50".
func (m Money) Plain() string {
	return m.Decimal().StringFixed(2)
}

// MoneyFromFloat converts a pound value produced by charting back to Money.
func MoneyFromFloat(f float64) Money {
	return MoneyFromDecimal(decimal.NewFromFloat(f))
}
