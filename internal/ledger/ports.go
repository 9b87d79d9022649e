package ledger

import (
	"context"

	"fleetdash/internal/core"
)

// Ports for the transaction store. Implementations keep records in append
// order and never delete them.
type (
	RecordAppender interface {
		Append(ctx context.Context, r core.TransactionRecord) (rowRef string, err error)
	}

	// RecordLister returns one driver's records in store order.
	RecordLister interface {
		ListByDriver(ctx context.Context, driverID string) ([]core.TransactionRecord, error)
	}

	// RecordReader returns every record in store order.
	RecordReader interface {
		ListAll(ctx context.Context) ([]core.TransactionRecord, error)
	}

	// Pinger is implemented by stores that can report reachability.
	Pinger interface {
		Ping(ctx context.Context) error
	}

	Store interface {
		RecordAppender
		RecordLister
		RecordReader
	}
)
