package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fleetdash/internal/cache"
	"fleetdash/internal/core"
	"fleetdash/internal/ledger"
	"fleetdash/internal/ledger/memory"
)

type fakePublisher struct {
	mu        sync.Mutex
	published []core.TransactionRecord
	err       error
}

func (f *fakePublisher) PublishPaymentRecorded(_ context.Context, rec core.TransactionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, rec)
	return f.err
}

// countingStore records how often the driver listing hits the store.
type countingStore struct {
	ledger.Store
	mu    sync.Mutex
	lists int
}

func (s *countingStore) ListByDriver(ctx context.Context, id string) ([]core.TransactionRecord, error) {
	s.mu.Lock()
	s.lists++
	s.mu.Unlock()
	return s.Store.ListByDriver(ctx, id)
}

type failingStore struct{ err error }

func (f failingStore) Append(context.Context, core.TransactionRecord) (string, error) {
	return "", f.err
}
func (f failingStore) ListByDriver(context.Context, string) ([]core.TransactionRecord, error) {
	return nil, f.err
}
func (f failingStore) ListAll(context.Context) ([]core.TransactionRecord, error) { return nil, f.err }
func (f failingStore) Ping(context.Context) error                                { return f.err }

func newService(t *testing.T) (*DashboardService, *memory.Store, *fakePublisher) {
	t.Helper()
	store := memory.New(ledger.DefaultSeed())
	pub := &fakePublisher{}
	return NewDashboardService(store, pub, cache.NewLRUCache[core.DriverSummary](16, time.Minute)), store, pub
}

func TestSearch(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		id        string
		found     bool
		battery   int
		balance   string
		totalCost string
	}{
		{"existing driver", "D001", true, 80, "£200.00", "£20.00"},
		{"trimmed id", "  D002 ", true, 60, "£150.00", "£50.00"},
		{"unknown driver", "D999", false, 0, "£0.00", "£0.00"},
		{"empty id", "", false, 0, "£0.00", "£0.00"},
		{"case sensitive", "d001", false, 0, "£0.00", "£0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sum, err := svc.Search(ctx, tt.id)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if sum.Found != tt.found {
				t.Fatalf("Found = %v, want %v", sum.Found, tt.found)
			}
			if sum.BatteryPercentage != tt.battery {
				t.Errorf("battery = %d, want %d", sum.BatteryPercentage, tt.battery)
			}
			if sum.RemainingBalance.String() != tt.balance {
				t.Errorf("balance = %s, want %s", sum.RemainingBalance, tt.balance)
			}
			if sum.TotalCost.String() != tt.totalCost {
				t.Errorf("total cost = %s, want %s", sum.TotalCost, tt.totalCost)
			}
			if tt.found && len(sum.Records) != 1 {
				t.Errorf("records = %d, want 1", len(sum.Records))
			}
			if !tt.found && len(sum.Records) != 0 {
				t.Errorf("expected no records, got %d", len(sum.Records))
			}
		})
	}
}

func TestSearchUsesCache(t *testing.T) {
	store := &countingStore{Store: memory.New(ledger.DefaultSeed())}
	svc := NewDashboardService(store, nil, cache.NewLRUCache[core.DriverSummary](16, time.Minute))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.Search(ctx, "D001"); err != nil {
			t.Fatal(err)
		}
	}
	if store.lists != 1 {
		t.Errorf("store listed %d times, want 1", store.lists)
	}
}

func TestRecordPayment(t *testing.T) {
	svc, store, pub := newService(t)
	ctx := context.Background()

	// warm the cache so the payment must refresh it
	if _, err := svc.Search(ctx, "D001"); err != nil {
		t.Fatal(err)
	}

	res, err := svc.RecordPayment(ctx, PaymentRequest{DriverID: "D001", Amount: "50", Date: "2025-03-01"})
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}

	if res.Message != "Payment of £50.00 recorded for driver D001." {
		t.Errorf("message = %q", res.Message)
	}
	rec := res.Record
	if rec.Category != core.Payment || rec.Cost.Cents != 0 || rec.AmountPaid.Cents != 5000 {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.RemainingBalance.Cents != 15000 || rec.BatteryPercentage != 80 {
		t.Errorf("balance/battery not derived from prior record: %+v", rec)
	}
	if store.Len() != 4 {
		t.Errorf("store len = %d, want 4", store.Len())
	}
	if len(pub.published) != 1 || pub.published[0].ID != rec.ID {
		t.Errorf("expected one published record, got %+v", pub.published)
	}

	sum, err := svc.Search(ctx, "D001")
	if err != nil {
		t.Fatal(err)
	}
	if len(sum.Records) != 2 || sum.RemainingBalance.Cents != 15000 || sum.TotalCost.Cents != 2000 {
		t.Errorf("summary not refreshed: %+v", sum)
	}
}

func TestRecordPaymentChainsBalances(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	for _, amount := range []string{"100", "75.50", "80"} {
		if _, err := svc.RecordPayment(ctx, PaymentRequest{DriverID: "D003", Amount: amount, Date: "2025-03-02"}); err != nil {
			t.Fatal(err)
		}
	}
	sum, _ := svc.Search(ctx, "D003")
	// 300 - 100 - 75.50 - 80, not clamped at zero
	if sum.RemainingBalance.Cents != 4450 {
		t.Errorf("balance = %s, want £44.50", sum.RemainingBalance)
	}

	res, err := svc.RecordPayment(ctx, PaymentRequest{DriverID: "D003", Amount: "50", Date: "2025-03-03"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Summary.RemainingBalance.String() != "-£5.50" {
		t.Errorf("overpayment balance = %s, want -£5.50", res.Summary.RemainingBalance)
	}
}

func TestRecordPaymentRejects(t *testing.T) {
	tests := []struct {
		name     string
		req      PaymentRequest
		notFound bool
	}{
		{"missing driver", PaymentRequest{Amount: "10", Date: "2025-03-01"}, false},
		{"unknown driver", PaymentRequest{DriverID: "D999", Amount: "10", Date: "2025-03-01"}, true},
		{"missing amount", PaymentRequest{DriverID: "D001", Date: "2025-03-01"}, false},
		{"zero amount", PaymentRequest{DriverID: "D001", Amount: "0", Date: "2025-03-01"}, false},
		{"negative amount", PaymentRequest{DriverID: "D001", Amount: "-5", Date: "2025-03-01"}, false},
		{"non-numeric amount", PaymentRequest{DriverID: "D001", Amount: "ten", Date: "2025-03-01"}, false},
		{"missing date", PaymentRequest{DriverID: "D001", Amount: "10"}, false},
		{"bad date", PaymentRequest{DriverID: "D001", Amount: "10", Date: "01/03/2025"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, pub := newService(t)
			_, err := svc.RecordPayment(context.Background(), tt.req)
			if !errors.Is(err, ErrInvalidPayment) {
				t.Fatalf("expected ErrInvalidPayment, got %v", err)
			}
			if errors.Is(err, ErrDriverNotFound) != tt.notFound {
				t.Errorf("ErrDriverNotFound match = %v, want %v", !tt.notFound, tt.notFound)
			}
			if store.Len() != 3 {
				t.Errorf("store mutated: len = %d", store.Len())
			}
			if len(pub.published) != 0 {
				t.Error("nothing should be published")
			}
		})
	}
}

func TestRecordPaymentPublishFailureDoesNotFail(t *testing.T) {
	store := memory.New(ledger.DefaultSeed())
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := NewDashboardService(store, pub, nil)

	if _, err := svc.RecordPayment(context.Background(), PaymentRequest{DriverID: "D002", Amount: "10", Date: "2025-03-01"}); err != nil {
		t.Fatalf("publish failure leaked: %v", err)
	}
	if store.Len() != 4 {
		t.Errorf("payment not stored")
	}
}

func TestRecordPaymentConcurrent(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.RecordPayment(ctx, PaymentRequest{DriverID: "D001", Amount: "1", Date: "2025-03-01"}); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	sum, _ := svc.Search(ctx, "D001")
	if sum.RemainingBalance.Cents != 19000 || len(sum.Records) != 11 {
		t.Errorf("lost update: balance %s, %d records", sum.RemainingBalance, len(sum.Records))
	}
}

func TestStoreErrorsPropagate(t *testing.T) {
	boom := errors.New("boom")
	svc := NewDashboardService(failingStore{err: boom}, nil, nil)
	ctx := context.Background()

	if _, err := svc.Search(ctx, "D001"); !errors.Is(err, boom) {
		t.Errorf("Search error = %v", err)
	}
	_, err := svc.RecordPayment(ctx, PaymentRequest{DriverID: "D001", Amount: "1", Date: "2025-03-01"})
	if !errors.Is(err, boom) || errors.Is(err, ErrInvalidPayment) {
		t.Errorf("RecordPayment error = %v", err)
	}
	if err := svc.Ready(ctx); !errors.Is(err, boom) {
		t.Errorf("Ready error = %v", err)
	}
	if _, err := svc.Statement(ctx); !errors.Is(err, boom) {
		t.Errorf("Statement error = %v", err)
	}
}
