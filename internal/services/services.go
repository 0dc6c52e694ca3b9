// package services defines the remote collaborators of the gallery engine
//
// Remote Item Store (paginated), Generation Producer, prompt/history backend.
package services

import (
	"context"
	"time"

	"github.com/desertthunder/genx/internal/models"
)

// ItemStore is the paginated, eventually consistent store of persisted items.
type ItemStore interface {
	// FetchPage returns the page after cursor; an empty cursor starts from the newest item.
	FetchPage(ctx context.Context, query PageQuery) (*ItemPage, error)
}

// Producer starts generation jobs and reports their progress.
type Producer interface {
	// StartJob dispatches a request. The result may already be terminal.
	StartJob(ctx context.Context, req GenerationRequest) (*JobState, error)

	// JobStatus polls the state of a previously started job.
	JobStatus(ctx context.Context, jobID string) (*JobState, error)
}

// PromptBackend stores the backend copy of saved prompts and chat history.
type PromptBackend interface {
	ListPrompts(ctx context.Context) ([]RemotePrompt, error)
	PushPrompt(ctx context.Context, text string) error
	ListHistory(ctx context.Context, sessionID string) ([]RemoteHistoryEntry, error)
	PushHistory(ctx context.Context, entry RemoteHistoryEntry) error
}

// PageQuery selects a page of persisted items.
type PageQuery struct {
	Cursor   string
	Limit    int
	Category string // optional server-side hint; the merger filters regardless
}

// ItemPage is one batch of persisted items with its continuation.
type ItemPage struct {
	Items      []models.Item `json:"items"`
	NextCursor string        `json:"next_cursor"`
	HasMore    bool          `json:"has_more"`
}

// GenerationRequest describes a job for any provider.
type GenerationRequest struct {
	ClientJobID string           `json:"client_job_id,omitempty"`
	Prompt      string           `json:"prompt"`
	Model       string           `json:"model"`
	Kind        models.MediaKind `json:"kind,omitempty"`
	AspectRatio string           `json:"aspect_ratio,omitempty"`
	References  []string         `json:"references,omitempty"`
	AvatarID    string           `json:"avatar_id,omitempty"`
	ProductID   string           `json:"product_id,omitempty"`
	StyleID     string           `json:"style_id,omitempty"`
}

// JobState is the producer's view of a job.
type JobState struct {
	JobID    string       `json:"job_id"`
	Status   string       `json:"status"`
	Progress *float64     `json:"progress,omitempty"`
	Result   *models.Item `json:"result,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// RemotePrompt is the backend copy of a saved prompt.
type RemotePrompt struct {
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// RemoteHistoryEntry is the backend copy of one chat turn.
type RemoteHistoryEntry struct {
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	ItemURL   string    `json:"item_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
