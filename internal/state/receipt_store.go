// ./internal/state/receipt_store.go
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq" // PostgreSQL driver for array support
	"github.com/rs/zerolog/log"

	"github.com/elys-network/ammcore/internal/types"
)

// recordTimeout bounds a receipt write; the chain lock is held while sinks run.
const recordTimeout = 5 * time.Second

// ReceiptStore persists committed receipts. It is registered with the chain as a sink.
type ReceiptStore struct{}

// NewReceiptStore returns a store writing through the global DB pool.
func NewReceiptStore() *ReceiptStore {
	return &ReceiptStore{}
}

// Record implements chain.Sink.
func (s *ReceiptStore) Record(ctx context.Context, receipt types.Receipt) error {
	ctx, cancel := context.WithTimeout(ctx, recordTimeout)
	defer cancel()
	return SaveReceipt(ctx, receipt)
}

// SaveReceipt stores one receipt and bumps the committed counter in a single database transaction.
func SaveReceipt(ctx context.Context, receipt types.Receipt) (err error) {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	eventsJSON, err := json.Marshal(receipt.Events)
	if err != nil {
		return fmt.Errorf("failed to marshal events: %w", err)
	}

	tx, err := DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p) // Re-panic after rollback
		} else if err != nil {
			tx.Rollback()
		}
	}()

	query := `
		INSERT INTO tx_receipts (
			receipt_id, height, operation, sender, tx_timestamp,
			success, message, accounts, events
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (receipt_id) DO NOTHING;
	`
	_, err = tx.ExecContext(ctx, query,
		receipt.ID, int64(receipt.Height), receipt.Operation, string(receipt.Sender), receipt.Timestamp,
		receipt.Success, receipt.Message, pq.Array(receipt.Accounts()), eventsJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to save receipt %s: %w", receipt.ID, err)
	}

	if receipt.Success {
		if _, err = incrementTxCounter(ctx, tx); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Debug().
		Str("receipt_id", receipt.ID).
		Uint64("height", receipt.Height).
		Str("operation", receipt.Operation).
		Int("events", len(receipt.Events)).
		Msg("Receipt saved to database")
	return nil
}
