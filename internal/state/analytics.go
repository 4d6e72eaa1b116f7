package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/elys-network/ammcore/internal/types"
)

// ErrReceiptNotFound is returned when no receipt has the requested id.
var ErrReceiptNotFound = errors.New("receipt not found")

// JournalSummary represents high-level statistics over the recorded receipts
type JournalSummary struct {
	TotalReceipts   int64            `json:"total_receipts"`
	CommittedTxs    int64            `json:"committed_txs"` // from tx_counter, survives restarts
	DistinctSenders int64            `json:"distinct_senders"`
	LastHeight      int64            `json:"last_height"`
	LastTimestamp   string           `json:"last_timestamp,omitempty"`
	ByOperation     map[string]int64 `json:"by_operation"`
}

const receiptColumns = `
	receipt_id, height, operation, sender, tx_timestamp,
	success, message, events
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReceipt(row rowScanner) (types.Receipt, error) {
	var (
		r          types.Receipt
		height     int64
		sender     string
		message    sql.NullString
		eventsJSON []byte
	)
	if err := row.Scan(&r.ID, &height, &r.Operation, &sender, &r.Timestamp, &r.Success, &message, &eventsJSON); err != nil {
		return types.Receipt{}, err
	}
	r.Height = uint64(height)
	r.Sender = types.Address(sender)
	r.Message = message.String
	r.Timestamp = r.Timestamp.UTC()
	if len(eventsJSON) > 0 {
		if err := json.Unmarshal(eventsJSON, &r.Events); err != nil {
			return types.Receipt{}, fmt.Errorf("failed to unmarshal events: %w", err)
		}
	}
	return r, nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 10 // Default limit
	}
	return limit
}

func queryReceipts(query string, args ...any) ([]types.Receipt, error) {
	rows, err := DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query receipts: %w", err)
	}
	defer rows.Close()

	var receipts []types.Receipt
	for rows.Next() {
		r, err := scanReceipt(rows)
		if err != nil {
			log.Error().Err(err).Msg("Failed to scan receipt row")
			continue // Skip this row and continue with others
		}
		receipts = append(receipts, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return receipts, nil
}

// GetRecentReceipts retrieves the most recent receipts, newest first
func GetRecentReceipts(limit int) ([]types.Receipt, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	limit = clampLimit(limit)

	receipts, err := queryReceipts(`SELECT `+receiptColumns+` FROM tx_receipts ORDER BY recorded_at DESC, height DESC LIMIT $1`, limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to query recent receipts")
		return nil, err
	}
	log.Debug().Int("count", len(receipts)).Int("limit", limit).Msg("Retrieved recent receipts")
	return receipts, nil
}

// GetReceiptsByAccount retrieves receipts that touched account, newest first
func GetReceiptsByAccount(account types.Address, limit int) ([]types.Receipt, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	limit = clampLimit(limit)

	receipts, err := queryReceipts(
		`SELECT `+receiptColumns+` FROM tx_receipts WHERE accounts @> $1 ORDER BY recorded_at DESC, height DESC LIMIT $2`,
		pq.Array([]string{string(account)}), limit,
	)
	if err != nil {
		log.Error().Err(err).Str("account", account.String()).Msg("Failed to query receipts by account")
		return nil, err
	}
	return receipts, nil
}

// GetReceiptByID retrieves a specific receipt by its id
func GetReceiptByID(id string) (*types.Receipt, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	r, err := scanReceipt(DB.QueryRow(`SELECT `+receiptColumns+` FROM tx_receipts WHERE receipt_id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrReceiptNotFound, id)
		}
		log.Error().Err(err).Str("receipt_id", id).Msg("Failed to query receipt by ID")
		return nil, fmt.Errorf("failed to query receipt by ID: %w", err)
	}
	return &r, nil
}

// GetJournalSummary retrieves aggregate statistics over the receipt journal
func GetJournalSummary() (*JournalSummary, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	summary := &JournalSummary{ByOperation: make(map[string]int64)}

	var lastHeight sql.NullInt64
	var lastTimestamp sql.NullString
	err := DB.QueryRow(`
		SELECT
			COUNT(*),
			COUNT(DISTINCT sender),
			MAX(height),
			MAX(tx_timestamp)::TEXT
		FROM tx_receipts
	`).Scan(&summary.TotalReceipts, &summary.DistinctSenders, &lastHeight, &lastTimestamp)
	if err != nil {
		return nil, fmt.Errorf("failed to get journal totals: %w", err)
	}
	summary.LastHeight = lastHeight.Int64
	summary.LastTimestamp = lastTimestamp.String

	summary.CommittedTxs, err = GetCommittedTxCount()
	if err != nil {
		log.Error().Err(err).Msg("Failed to get committed tx count")
	}

	rows, err := DB.Query(`SELECT operation, COUNT(*) FROM tx_receipts GROUP BY operation`)
	if err != nil {
		return nil, fmt.Errorf("failed to get per-operation counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var op string
		var n int64
		if err := rows.Scan(&op, &n); err != nil {
			return nil, fmt.Errorf("failed to scan per-operation count: %w", err)
		}
		summary.ByOperation[op] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}

	log.Info().Int64("totalReceipts", summary.TotalReceipts).Int64("lastHeight", summary.LastHeight).Msg("Retrieved journal summary")
	return summary, nil
}
