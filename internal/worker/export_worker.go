package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"fleetdash/internal/amqp"
	"fleetdash/internal/core"
	"fleetdash/internal/ledger"
)

// Exporter is the remote ledger payments are mirrored to.
type Exporter interface {
	ledger.RecordAppender
	HasRecord(ctx context.Context, id string) (bool, error)
	ExportedIDs(ctx context.Context) (map[string]struct{}, error)
}

// ExportWorker mirrors payments recorded in the local store to a remote
// ledger. Exports are idempotent on the record id, so redelivered messages
// never produce duplicate rows.
type ExportWorker struct {
	local  ledger.RecordReader
	remote Exporter

	// mu spans each check-then-append so the consumer and Reconcile never
	// both see a record as missing.
	mu sync.Mutex
}

func NewExportWorker(local ledger.RecordReader, remote Exporter) *ExportWorker {
	return &ExportWorker{local: local, remote: remote}
}

// HandlePaymentRecorded exports the record carried by one AMQP message.
// A returned error makes the consumer requeue the message.
func (w *ExportWorker) HandlePaymentRecorded(ctx context.Context, msg *amqp.PaymentRecordedMessage) error {
	slog.InfoContext(ctx, "Processing payment message",
		"id", msg.ID,
		"driver_id", msg.DriverID)

	rec, err := msg.Record()
	if err != nil {
		// Requeueing cannot fix a malformed message.
		slog.ErrorContext(ctx, "Dropping invalid payment message", "id", msg.ID, "error", err)
		return nil
	}

	if _, err := w.export(ctx, rec); err != nil {
		return fmt.Errorf("export payment %s: %w", rec.ID, err)
	}
	return nil
}

// Reconcile exports every local record the remote ledger does not have yet.
// It recovers from lost messages and worker downtime.
func (w *ExportWorker) Reconcile(ctx context.Context) error {
	if w.local == nil {
		return nil
	}

	records, err := w.local.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list local records: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	ids, err := w.remote.ExportedIDs(ctx)
	if err != nil {
		return fmt.Errorf("list remote records: %w", err)
	}

	exported, failed := 0, 0
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, ok := ids[rec.ID]; ok {
			continue
		}
		if err := w.appendRemote(ctx, rec); err != nil {
			slog.ErrorContext(ctx, "Failed to export record during reconcile", "id", rec.ID, "error", err)
			failed++
			continue
		}
		ids[rec.ID] = struct{}{}
		exported++
	}

	slog.InfoContext(ctx, "Reconcile completed",
		"total", len(records),
		"exported", exported,
		"errors", failed)

	if failed > 0 {
		return fmt.Errorf("reconcile: %d of %d records failed", failed, len(records))
	}
	return nil
}

// export appends rec unless the remote already has it. It reports whether a
// row was written.
func (w *ExportWorker) export(ctx context.Context, rec core.TransactionRecord) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	exists, err := w.remote.HasRecord(ctx, rec.ID)
	if err != nil {
		return false, fmt.Errorf("check remote record: %w", err)
	}
	if exists {
		slog.DebugContext(ctx, "Record already exported, skipping", "id", rec.ID)
		return false, nil
	}
	if err := w.appendRemote(ctx, rec); err != nil {
		return false, err
	}
	return true, nil
}

// appendRemote writes rec to the remote ledger. Callers hold w.mu.
func (w *ExportWorker) appendRemote(ctx context.Context, rec core.TransactionRecord) error {
	ref, err := w.remote.Append(ctx, rec)
	if err != nil {
		return fmt.Errorf("append remote record: %w", err)
	}

	slog.InfoContext(ctx, "Exported record",
		"id", rec.ID,
		"driver_id", rec.DriverID,
		"ref", ref)
	return nil
}
