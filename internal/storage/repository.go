package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"fleetdash/internal/core"
	"fleetdash/internal/ledger"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

var (
	_ ledger.Store  = (*SQLiteRepository)(nil)
	_ ledger.Pinger = (*SQLiteRepository)(nil)
)

const selectColumns = `id, driver_id, date, usage_category, cost_cents, amount_paid_cents, battery_percentage, remaining_balance_cents`

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer keeps append order equal to seq order.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Info("SQLite repository ready", "path", dbPath, "schema_version", version)
	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Append implements ledger.RecordAppender. The returned reference is the
// row sequence number.
func (r *SQLiteRepository) Append(ctx context.Context, rec core.TransactionRecord) (string, error) {
	if err := rec.Validate(); err != nil {
		return "", err
	}
	if rec.ID == "" {
		rec.ID = core.NewRecordID()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions
			(id, driver_id, date, usage_category, cost_cents, amount_paid_cents, battery_percentage, remaining_balance_cents)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.DriverID, rec.Date.String(), string(rec.Category),
		rec.Cost.Cents, rec.AmountPaid.Cents, rec.BatteryPercentage, rec.RemainingBalance.Cents,
	)
	if err != nil {
		return "", fmt.Errorf("insert transaction (driver=%s): %w", rec.DriverID, err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("read inserted seq: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"seq", seq,
		"id", rec.ID,
		"driver_id", rec.DriverID,
		"usage_category", rec.Category,
		"amount_paid_cents", rec.AmountPaid.Cents)

	return strconv.FormatInt(seq, 10), nil
}

// ListByDriver implements ledger.RecordLister.
func (r *SQLiteRepository) ListByDriver(ctx context.Context, driverID string) ([]core.TransactionRecord, error) {
	driverID = core.NormalizeDriverID(driverID)
	if driverID == "" {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM transactions WHERE driver_id = ? ORDER BY seq`, driverID)
	if err != nil {
		return nil, fmt.Errorf("query transactions (driver=%s): %w", driverID, err)
	}
	return scanRecords(rows)
}

// ListAll implements ledger.RecordReader.
func (r *SQLiteRepository) ListAll(ctx context.Context) ([]core.TransactionRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM transactions ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]core.TransactionRecord, error) {
	defer rows.Close()
	var out []core.TransactionRecord
	for rows.Next() {
		var (
			rec      core.TransactionRecord
			date     string
			category string
		)
		if err := rows.Scan(&rec.ID, &rec.DriverID, &date, &category,
			&rec.Cost.Cents, &rec.AmountPaid.Cents, &rec.BatteryPercentage, &rec.RemainingBalance.Cents); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		d, err := core.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("transaction %s has bad date %q: %w", rec.ID, date, err)
		}
		rec.Date = d
		rec.Category = core.UsageCategory(category)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}
