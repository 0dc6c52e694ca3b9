package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/genx/internal/models"
	"github.com/desertthunder/genx/internal/shared"
)

var _ models.Repository[*models.SavedPrompt] = (*PromptRepository)(nil)

// PromptRepository implements models.Repository[*models.SavedPrompt] for saved prompts.
//
// Prompts are unique per namespace by text; soft-deleted rows do not count.
type PromptRepository struct {
	db *sql.DB
}

// NewPromptRepository creates a new PromptRepository with the given database connection
func NewPromptRepository(db *sql.DB) *PromptRepository {
	return &PromptRepository{db: db}
}

// Create inserts a new prompt with generated ID and sequence
func (r *PromptRepository) Create(prompt *models.SavedPrompt) error {
	if err := prompt.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "saved_prompts")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	prompt.SetID(id)
	prompt.SetSequence(sequence)

	query := `
		INSERT INTO saved_prompts (id, sequence, namespace, text, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		prompt.Namespace(),
		prompt.Text(),
		prompt.CreatedAt(),
		prompt.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert prompt: %w", err)
	}

	return nil
}

// Get retrieves a prompt by ID, excluding soft-deleted prompts
func (r *PromptRepository) Get(id string) (*models.SavedPrompt, error) {
	query := `
		SELECT id, sequence, namespace, text, created_at, updated_at, deleted_at
		FROM saved_prompts
		WHERE id = ? AND deleted_at IS NULL
	`

	return r.scan(r.db.QueryRow(query, id))
}

// FindByText retrieves the live prompt in namespace whose text matches exactly.
func (r *PromptRepository) FindByText(namespace, text string) (*models.SavedPrompt, error) {
	query := `
		SELECT id, sequence, namespace, text, created_at, updated_at, deleted_at
		FROM saved_prompts
		WHERE namespace = ? AND text = ? AND deleted_at IS NULL
	`

	return r.scan(r.db.QueryRow(query, namespace, text))
}

// Update modifies the text of an existing prompt
func (r *PromptRepository) Update(prompt *models.SavedPrompt) error {
	if err := prompt.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	prompt.SetUpdatedAt(now)

	result, err := r.db.Exec(`
		UPDATE saved_prompts
		SET text = ?, created_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`, prompt.Text(), prompt.CreatedAt(), now, prompt.ID())
	if err != nil {
		return fmt.Errorf("failed to update prompt: %w", err)
	}

	return expectAffected(result, prompt.ID())
}

// Delete soft-deletes a prompt by ID
func (r *PromptRepository) Delete(id string) error {
	result, err := r.db.Exec(`
		UPDATE saved_prompts
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete prompt: %w", err)
	}

	return expectAffected(result, id)
}

// List retrieves live prompts, optionally restricted by "namespace", oldest first.
func (r *PromptRepository) List(criteria map[string]any) ([]*models.SavedPrompt, error) {
	query := `
		SELECT id, sequence, namespace, text, created_at, updated_at, deleted_at
		FROM saved_prompts
		WHERE deleted_at IS NULL
	`
	args := []any{}

	if namespace, ok := criteria["namespace"].(string); ok && namespace != "" {
		query += " AND namespace = ?"
		args = append(args, namespace)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query prompts: %w", err)
	}
	defer rows.Close()

	var prompts []*models.SavedPrompt
	for rows.Next() {
		prompt, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		prompts = append(prompts, prompt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return prompts, nil
}

func (r *PromptRepository) scan(row scanner) (*models.SavedPrompt, error) {
	var (
		id        string
		sequence  int
		namespace string
		text      string
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
	)

	err := row.Scan(&id, &sequence, &namespace, &text, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrPromptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan prompt: %w", err)
	}

	prompt := models.NewSavedPrompt(sequence, namespace, text)
	prompt.SetID(id)
	prompt.SetCreatedAt(createdAt)
	prompt.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		prompt.SetDeletedAt(&deletedAt.Time)
	}

	return prompt, nil
}

// scanner is satisfied by both [sql.Row] and [sql.Rows].
type scanner interface {
	Scan(dest ...any) error
}

func expectAffected(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("record not found or already deleted: %s", id)
	}
	return nil
}
