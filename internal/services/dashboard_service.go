// Package services provides business logic and orchestration services.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"fleetdash/internal/cache"
	"fleetdash/internal/core"
	"fleetdash/internal/ledger"
)

var (
	ErrInvalidPayment = errors.New("invalid payment request")
	ErrDriverNotFound = errors.New("driver not found")
)

// EventPublisher announces appended payments to other processes.
type EventPublisher interface {
	PublishPaymentRecorded(ctx context.Context, rec core.TransactionRecord) error
}

// PaymentRequest carries the raw form values of a payment submission.
type PaymentRequest struct {
	DriverID string
	Amount   string
	Date     string
}

type PaymentResult struct {
	Record  core.TransactionRecord
	Ref     string
	Summary core.DriverSummary
	Message string
}

// DashboardService answers driver searches and records payments against a
// ledger store. The publisher and cache are optional.
type DashboardService struct {
	store     ledger.Store
	publisher EventPublisher
	summaries cache.Cache[core.DriverSummary]

	// serializes read-latest-then-append so concurrent payments for the
	// same driver chain their balances
	mu sync.Mutex
}

func NewDashboardService(store ledger.Store, publisher EventPublisher, summaries cache.Cache[core.DriverSummary]) *DashboardService {
	return &DashboardService{
		store:     store,
		publisher: publisher,
		summaries: summaries,
	}
}

// Search returns the summary for driverID. An empty or unknown id yields a
// summary with Found false and no error.
func (s *DashboardService) Search(ctx context.Context, driverID string) (core.DriverSummary, error) {
	id := core.NormalizeDriverID(driverID)
	if id == "" {
		return core.DriverSummary{}, nil
	}

	if s.summaries != nil {
		if sum, ok := s.summaries.Get(id); ok {
			return sum, nil
		}
	}

	records, err := s.store.ListByDriver(ctx, id)
	if err != nil {
		return core.DriverSummary{}, fmt.Errorf("list records for %s: %w", id, err)
	}

	sum := core.Summarize(id, records)
	if sum.Found && s.summaries != nil {
		s.summaries.Set(id, sum)
	}
	return sum, nil
}

// RecordPayment validates req, appends a Payment record following the
// driver's newest record and returns the refreshed summary. Validation
// failures wrap ErrInvalidPayment and leave the store untouched.
func (s *DashboardService) RecordPayment(ctx context.Context, req PaymentRequest) (PaymentResult, error) {
	id := core.NormalizeDriverID(req.DriverID)
	if id == "" {
		return PaymentResult{}, fmt.Errorf("%w: %w", ErrInvalidPayment, core.ErrEmptyDriverID)
	}
	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		return PaymentResult{}, fmt.Errorf("%w: %w", ErrInvalidPayment, err)
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		return PaymentResult{}, fmt.Errorf("%w: %w", ErrInvalidPayment, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.store.ListByDriver(ctx, id)
	if err != nil {
		return PaymentResult{}, fmt.Errorf("list records for %s: %w", id, err)
	}
	prior, ok := core.Latest(records)
	if !ok {
		return PaymentResult{}, fmt.Errorf("%w: %w: %s", ErrInvalidPayment, ErrDriverNotFound, id)
	}

	rec, err := core.NewPayment(prior, amount, date)
	if err != nil {
		return PaymentResult{}, fmt.Errorf("%w: %w", ErrInvalidPayment, err)
	}

	ref, err := s.store.Append(ctx, rec)
	if err != nil {
		return PaymentResult{}, fmt.Errorf("append payment: %w", err)
	}

	sum := core.Summarize(id, append(records, rec))
	if s.summaries != nil {
		s.summaries.Set(id, sum)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishPaymentRecorded(ctx, rec); err != nil {
			slog.ErrorContext(ctx, "Failed to publish payment recorded message",
				"id", rec.ID, "driver_id", id, "error", err)
		}
	}

	return PaymentResult{
		Record:  rec,
		Ref:     ref,
		Summary: sum,
		Message: ConfirmationMessage(amount, id),
	}, nil
}

// ConfirmationMessage is the text shown after a successful payment.
func ConfirmationMessage(amount core.Money, driverID string) string {
	return fmt.Sprintf("Payment of %s recorded for driver %s.", amount, driverID)
}

// Ready reports whether the store can serve requests.
func (s *DashboardService) Ready(ctx context.Context) error {
	if p, ok := s.store.(ledger.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Statement returns every record in store order, for reporting.
func (s *DashboardService) Statement(ctx context.Context) ([]core.TransactionRecord, error) {
	records, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list all records: %w", err)
	}
	return records, nil
}
