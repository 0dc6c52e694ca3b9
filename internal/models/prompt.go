package models

import (
	"fmt"
	"strings"
	"time"
)

// Roles for [HistoryEntry].
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// SavedPrompt is a prompt kept for reuse under a per-user namespace.
type SavedPrompt struct {
	id        string
	sequence  int
	namespace string
	text      string
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

var _ Model = (*SavedPrompt)(nil)

// NewSavedPrompt creates an unsaved prompt in namespace.
func NewSavedPrompt(sequence int, namespace, text string) *SavedPrompt {
	now := time.Now()
	return &SavedPrompt{
		sequence:  sequence,
		namespace: namespace,
		text:      text,
		createdAt: now,
		updatedAt: now,
	}
}

func (p *SavedPrompt) ID() string            { return p.id }
func (p *SavedPrompt) Sequence() int         { return p.sequence }
func (p *SavedPrompt) Namespace() string     { return p.namespace }
func (p *SavedPrompt) Text() string          { return p.text }
func (p *SavedPrompt) CreatedAt() time.Time  { return p.createdAt }
func (p *SavedPrompt) UpdatedAt() time.Time  { return p.updatedAt }
func (p *SavedPrompt) DeletedAt() *time.Time { return p.deletedAt }

func (p *SavedPrompt) SetID(id string)           { p.id = id }
func (p *SavedPrompt) SetSequence(seq int)       { p.sequence = seq }
func (p *SavedPrompt) SetText(text string)       { p.text = text }
func (p *SavedPrompt) SetCreatedAt(t time.Time)  { p.createdAt = t }
func (p *SavedPrompt) SetUpdatedAt(t time.Time)  { p.updatedAt = t }
func (p *SavedPrompt) SetDeletedAt(t *time.Time) { p.deletedAt = t }

// Validate checks namespace and text are present.
func (p *SavedPrompt) Validate() error {
	if strings.TrimSpace(p.namespace) == "" {
		return fmt.Errorf("namespace is required")
	}
	if strings.TrimSpace(p.text) == "" {
		return fmt.Errorf("prompt text is required")
	}
	return nil
}

// HistoryEntry is one turn of a chat-style generation session.
type HistoryEntry struct {
	id        string
	sequence  int
	namespace string
	sessionID string
	role      string
	text      string
	itemURL   string
	createdAt time.Time
	updatedAt time.Time
}

var _ Model = (*HistoryEntry)(nil)

// NewHistoryEntry creates an unsaved history entry.
func NewHistoryEntry(namespace, sessionID, role, text, itemURL string) *HistoryEntry {
	now := time.Now()
	return &HistoryEntry{
		namespace: namespace,
		sessionID: sessionID,
		role:      role,
		text:      text,
		itemURL:   itemURL,
		createdAt: now,
		updatedAt: now,
	}
}

func (h *HistoryEntry) ID() string           { return h.id }
func (h *HistoryEntry) Sequence() int        { return h.sequence }
func (h *HistoryEntry) Namespace() string    { return h.namespace }
func (h *HistoryEntry) SessionID() string    { return h.sessionID }
func (h *HistoryEntry) Role() string         { return h.role }
func (h *HistoryEntry) Text() string         { return h.text }
func (h *HistoryEntry) ItemURL() string      { return h.itemURL }
func (h *HistoryEntry) CreatedAt() time.Time { return h.createdAt }
func (h *HistoryEntry) UpdatedAt() time.Time { return h.updatedAt }

func (h *HistoryEntry) SetID(id string)          { h.id = id }
func (h *HistoryEntry) SetSequence(seq int)      { h.sequence = seq }
func (h *HistoryEntry) SetCreatedAt(t time.Time) { h.createdAt = t }
func (h *HistoryEntry) SetUpdatedAt(t time.Time) { h.updatedAt = t }

// Validate checks the entry has a namespace, a session, a known role and some content.
func (h *HistoryEntry) Validate() error {
	if strings.TrimSpace(h.namespace) == "" {
		return fmt.Errorf("namespace is required")
	}
	if strings.TrimSpace(h.sessionID) == "" {
		return fmt.Errorf("session id is required")
	}
	if h.role != RoleUser && h.role != RoleAssistant {
		return fmt.Errorf("invalid role: %q", h.role)
	}
	if strings.TrimSpace(h.text) == "" && strings.TrimSpace(h.itemURL) == "" {
		return fmt.Errorf("entry must carry text or an item url")
	}
	return nil
}
