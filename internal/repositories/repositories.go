package repositories

import (
	"database/sql"
	"fmt"
)

// sequenced lists the tables that own a "<table>_sequence" counter row.
var sequenced = map[string]bool{
	"saved_prompts": true,
	"chat_history":  true,
}

// NextSequence increments and returns the write-order counter of table.
//
// Sequence numbers order prompts and history turns by write order; they are never shown in
// CLI output. Only tables created by the migrations are accepted.
func NextSequence(db *sql.DB, table string) (int, error) {
	if !sequenced[table] {
		return 0, fmt.Errorf("no sequence for table %q", table)
	}

	var sequence int
	query := fmt.Sprintf("UPDATE %s_sequence SET value = value + 1 WHERE id = 1 RETURNING value", table)
	if err := db.QueryRow(query).Scan(&sequence); err != nil {
		if err == sql.ErrNoRows {
			return 0, fmt.Errorf("sequence row missing for %s", table)
		}
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}
	return sequence, nil
}
