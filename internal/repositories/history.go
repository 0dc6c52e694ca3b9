package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/genx/internal/models"
	"github.com/desertthunder/genx/internal/shared"
)

var _ models.Repository[*models.HistoryEntry] = (*HistoryRepository)(nil)

// HistoryRepository implements models.Repository[*models.HistoryEntry] for chat session history.
//
// History is append-only: Update is not supported and Delete removes the row outright.
type HistoryRepository struct {
	db *sql.DB
}

// NewHistoryRepository creates a new HistoryRepository with the given database connection
func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Create appends an entry with generated ID and sequence
func (r *HistoryRepository) Create(entry *models.HistoryEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "chat_history")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	entry.SetID(id)
	entry.SetSequence(sequence)

	_, err = r.db.Exec(`
		INSERT INTO chat_history (id, sequence, namespace, session_id, role, text, item_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id,
		sequence,
		entry.Namespace(),
		entry.SessionID(),
		entry.Role(),
		entry.Text(),
		entry.ItemURL(),
		entry.CreatedAt(),
		entry.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}

	return nil
}

// Get retrieves an entry by ID
func (r *HistoryRepository) Get(id string) (*models.HistoryEntry, error) {
	row := r.db.QueryRow(`
		SELECT id, sequence, namespace, session_id, role, text, item_url, created_at, updated_at
		FROM chat_history
		WHERE id = ?
	`, id)

	entry, err := r.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: history entry %s", shared.ErrItemNotFound, id)
	}
	return entry, err
}

// Update is unsupported; history entries are immutable once written.
func (r *HistoryRepository) Update(entry *models.HistoryEntry) error {
	return fmt.Errorf("%w: history entries are append-only", shared.ErrNotImplemented)
}

// Delete removes an entry by ID
func (r *HistoryRepository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM chat_history WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete history entry: %w", err)
	}

	return expectAffected(result, id)
}

// List retrieves entries in write order, optionally restricted by "namespace" and "session_id".
func (r *HistoryRepository) List(criteria map[string]any) ([]*models.HistoryEntry, error) {
	query := `
		SELECT id, sequence, namespace, session_id, role, text, item_url, created_at, updated_at
		FROM chat_history
		WHERE 1 = 1
	`
	args := []any{}

	if namespace, ok := criteria["namespace"].(string); ok && namespace != "" {
		query += " AND namespace = ?"
		args = append(args, namespace)
	}

	if sessionID, ok := criteria["session_id"].(string); ok && sessionID != "" {
		query += " AND session_id = ?"
		args = append(args, sessionID)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []*models.HistoryEntry
	for rows.Next() {
		entry, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return entries, nil
}

func (r *HistoryRepository) scan(row scanner) (*models.HistoryEntry, error) {
	var (
		id        string
		sequence  int
		namespace string
		sessionID string
		role      string
		text      string
		itemURL   string
		createdAt time.Time
		updatedAt time.Time
	)

	if err := row.Scan(&id, &sequence, &namespace, &sessionID, &role, &text, &itemURL, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	entry := models.NewHistoryEntry(namespace, sessionID, role, text, itemURL)
	entry.SetID(id)
	entry.SetSequence(sequence)
	entry.SetCreatedAt(createdAt)
	entry.SetUpdatedAt(updatedAt)

	return entry, nil
}
