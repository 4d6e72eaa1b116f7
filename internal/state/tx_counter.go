/*

This file manages the persistent counter of committed transactions.
The counter is stored in the database so it survives restarts, even though the
in-process chain height starts from zero every boot.

*/

package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// GetCommittedTxCount retrieves the number of committed transactions ever recorded.
func GetCommittedTxCount() (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	var committed int64
	err := DB.QueryRow(`SELECT committed FROM tx_counter WHERE id = 1;`).Scan(&committed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// EnsureSchema inserts the row, so this only happens on a half-initialised schema
			log.Warn().Msg("No tx counter row found, treating as 0")
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get committed tx count: %w", err)
	}
	return committed, nil
}

// incrementTxCounter bumps the counter inside tx and returns the new value.
func incrementTxCounter(ctx context.Context, tx *sql.Tx) (int64, error) {
	updateQuery := `
		UPDATE tx_counter
		SET committed = committed + 1,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
		RETURNING committed;`

	var committed int64
	if err := tx.QueryRowContext(ctx, updateQuery).Scan(&committed); err != nil {
		return 0, fmt.Errorf("failed to increment tx counter: %w", err)
	}
	return committed, nil
}

// ResetTxCounter resets the counter to a specific value (for testing/maintenance)
func ResetTxCounter(value int64) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	if value < 0 {
		return fmt.Errorf("tx counter cannot be negative: %d", value)
	}

	result, err := DB.Exec(`
		UPDATE tx_counter
		SET committed = $1,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = 1;`, value)
	if err != nil {
		return fmt.Errorf("failed to reset tx counter to %d: %w", value, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no rows updated when resetting tx counter")
	}

	log.Warn().Int64("value", value).Msg("Reset tx counter")
	return nil
}
