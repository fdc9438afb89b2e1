package store

import (
	"context"
	"errors"

	"github.com/cloudx-io/opennegotiation/receipt"
)

// ErrReceiptNotFound is returned when no receipt exists for a session.
var ErrReceiptNotFound = errors.New("receipt not found")

// Store persists signed receipts.
type Store interface {
	SaveReceipt(ctx context.Context, rec receipt.Record) error
	GetReceipt(ctx context.Context, sessionID string) (receipt.Record, error)
	// ListReceipts returns up to limit receipts, newest first.
	ListReceipts(ctx context.Context, limit int) ([]receipt.Record, error)
	Close() error
}
