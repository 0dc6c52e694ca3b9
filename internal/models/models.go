// package models defines the data model for the generation gallery
package models

import (
	"time"
)

// Model is a locally persisted record owned by one per-user namespace.
// Implementations are [SavedPrompt] and [HistoryEntry].
type Model interface {
	ID() string
	Namespace() string // "prompts:<user>" or "history:<user>"
	CreatedAt() time.Time
	UpdatedAt() time.Time
	Validate() error
}

// Repository is the storage contract the prompt/history sync works against.
//
// List filters by criteria keys the implementation understands ("namespace", "session_id");
// unknown keys are ignored. Append-only stores may return [shared.ErrNotImplemented] from Update.
type Repository[T Model] interface {
	Create(model T) error
	Get(id string) (T, error)
	Update(model T) error
	Delete(id string) error
	List(criteria map[string]any) ([]T, error)
}
