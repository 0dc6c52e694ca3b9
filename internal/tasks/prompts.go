package tasks

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/genx/internal/models"
	"github.com/desertthunder/genx/internal/services"
	"github.com/desertthunder/genx/internal/shared"
)

// PromptSyncOpts configures a [PromptSync].
type PromptSyncOpts struct {
	Prompts models.Repository[*models.SavedPrompt]
	History models.Repository[*models.HistoryEntry]
	Backend services.PromptBackend // optional; without it only local state is used
	UserID  string
	Logger  *log.Logger
}

// PromptSync keeps saved prompts and chat history in local storage under per-user
// namespaces and merges them with the backend copy.
//
// On load the backend wins: an entry whose text matches a backend entry is taken from the
// backend, backend-only entries are cached locally and local-only entries are pushed. Push
// failures are logged and retried on the next load.
type PromptSync struct {
	prompts          models.Repository[*models.SavedPrompt]
	history          models.Repository[*models.HistoryEntry]
	backend          services.PromptBackend
	promptNamespace  string
	historyNamespace string
	logger           *log.Logger
}

// NewPromptSync creates a PromptSync for opts.UserID.
func NewPromptSync(opts PromptSyncOpts) *PromptSync {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(os.Stderr)
	}
	return &PromptSync{
		prompts:          opts.Prompts,
		history:          opts.History,
		backend:          opts.Backend,
		promptNamespace:  shared.Namespace("prompts", opts.UserID),
		historyNamespace: shared.Namespace("history", opts.UserID),
		logger:           shared.WithLogger(opts.Logger, "component", "prompts"),
	}
}

// LoadPrompts returns the merged saved prompts: backend order first, then local-only ones.
func (s *PromptSync) LoadPrompts(ctx context.Context, progress chan<- ProgressUpdate) ([]*models.SavedPrompt, error) {
	if s.prompts == nil {
		return nil, fmt.Errorf("%w: prompt store not configured", shared.ErrServiceUnavailable)
	}

	local, err := s.prompts.List(map[string]any{"namespace": s.promptNamespace})
	if err != nil {
		return nil, fmt.Errorf("failed to load local prompts: %w", err)
	}
	if s.backend == nil {
		return local, nil
	}

	remote, err := s.backend.ListPrompts(ctx)
	if err != nil {
		s.logger.Warn("failed to load backend prompts, using local copy", "error", err)
		return local, nil
	}

	byText := make(map[string]*models.SavedPrompt, len(local))
	for _, p := range local {
		byText[promptKey(p.Text())] = p
	}

	merged := make([]*models.SavedPrompt, 0, len(remote)+len(local))
	taken := make(map[string]bool, len(remote))
	pulled := 0
	for _, rp := range remote {
		key := promptKey(rp.Text)
		if key == "" || taken[key] {
			continue
		}
		taken[key] = true

		if p, ok := byText[key]; ok {
			merged = append(merged, s.adoptPrompt(p, rp))
			continue
		}

		p := models.NewSavedPrompt(0, s.promptNamespace, strings.TrimSpace(rp.Text))
		if !rp.CreatedAt.IsZero() {
			p.SetCreatedAt(rp.CreatedAt)
		}
		if err := s.prompts.Create(p); err != nil {
			s.logger.Warn("failed to cache backend prompt", "error", err)
		}
		pulled++
		merged = append(merged, p)
	}

	pushed := 0
	for _, p := range local {
		if taken[promptKey(p.Text())] {
			continue
		}
		merged = append(merged, p)
		if err := s.backend.PushPrompt(ctx, p.Text()); err != nil {
			s.logger.Warn("failed to push local prompt", "prompt", shared.Truncate(p.Text(), 40), "error", err)
			continue
		}
		pushed++
	}

	sendProgress(progress, syncUpdate(SyncPrompts, pulled, pushed))
	return merged, nil
}

// SavePrompt stores text locally and pushes it to the backend. Saving a prompt that already
// exists returns the existing one.
func (s *PromptSync) SavePrompt(ctx context.Context, text string) (*models.SavedPrompt, error) {
	if s.prompts == nil {
		return nil, fmt.Errorf("%w: prompt store not configured", shared.ErrServiceUnavailable)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: prompt text is required", shared.ErrInvalidInput)
	}

	local, err := s.prompts.List(map[string]any{"namespace": s.promptNamespace})
	if err != nil {
		return nil, fmt.Errorf("failed to load local prompts: %w", err)
	}
	for _, p := range local {
		if p.Text() == text {
			return p, nil
		}
	}

	p := models.NewSavedPrompt(0, s.promptNamespace, text)
	if err := s.prompts.Create(p); err != nil {
		return nil, fmt.Errorf("failed to save prompt: %w", err)
	}

	if s.backend != nil {
		if err := s.backend.PushPrompt(ctx, text); err != nil {
			s.logger.Warn("failed to push prompt", "error", err)
		}
	}
	return p, nil
}

// LoadHistory returns the merged history of a session. Entries conflict when role and text match.
func (s *PromptSync) LoadHistory(ctx context.Context, sessionID string, progress chan<- ProgressUpdate) ([]*models.HistoryEntry, error) {
	if s.history == nil {
		return nil, fmt.Errorf("%w: history store not configured", shared.ErrServiceUnavailable)
	}

	local, err := s.history.List(map[string]any{"namespace": s.historyNamespace, "session_id": sessionID})
	if err != nil {
		return nil, fmt.Errorf("failed to load local history: %w", err)
	}
	if s.backend == nil {
		return local, nil
	}

	remote, err := s.backend.ListHistory(ctx, sessionID)
	if err != nil {
		s.logger.Warn("failed to load backend history, using local copy", "session", sessionID, "error", err)
		return local, nil
	}

	byKey := make(map[string]*models.HistoryEntry, len(local))
	for _, h := range local {
		byKey[historyKey(h.Role(), h.Text())] = h
	}

	merged := make([]*models.HistoryEntry, 0, len(remote)+len(local))
	taken := make(map[string]bool, len(remote))
	pulled := 0
	for _, re := range remote {
		key := historyKey(re.Role, re.Text)
		if taken[key] {
			continue
		}
		taken[key] = true

		if h, ok := byKey[key]; ok {
			merged = append(merged, s.adoptHistory(h, re))
			continue
		}

		session := re.SessionID
		if session == "" {
			session = sessionID
		}
		h := models.NewHistoryEntry(s.historyNamespace, session, re.Role, re.Text, re.ItemURL)
		if !re.CreatedAt.IsZero() {
			h.SetCreatedAt(re.CreatedAt)
		}
		if err := s.history.Create(h); err != nil {
			s.logger.Warn("failed to cache backend history entry", "error", err)
		}
		pulled++
		merged = append(merged, h)
	}

	pushed := 0
	for _, h := range local {
		if taken[historyKey(h.Role(), h.Text())] {
			continue
		}
		merged = append(merged, h)
		if err := s.backend.PushHistory(ctx, toRemoteHistory(h)); err != nil {
			s.logger.Warn("failed to push local history entry", "session", h.SessionID(), "error", err)
			continue
		}
		pushed++
	}

	sendProgress(progress, syncUpdate(SyncHistory, pulled, pushed))
	return merged, nil
}

// AppendHistory records one chat turn locally and pushes it to the backend.
func (s *PromptSync) AppendHistory(ctx context.Context, sessionID, role, text, itemURL string) (*models.HistoryEntry, error) {
	if s.history == nil {
		return nil, fmt.Errorf("%w: history store not configured", shared.ErrServiceUnavailable)
	}

	h := models.NewHistoryEntry(s.historyNamespace, sessionID, role, strings.TrimSpace(text), itemURL)
	if err := s.history.Create(h); err != nil {
		return nil, fmt.Errorf("failed to save history entry: %w", err)
	}

	if s.backend != nil {
		if err := s.backend.PushHistory(ctx, toRemoteHistory(h)); err != nil {
			s.logger.Warn("failed to push history entry", "session", sessionID, "error", err)
		}
	}
	return h, nil
}

// adoptPrompt overwrites a local prompt with the fields of its backend copy.
func (s *PromptSync) adoptPrompt(p *models.SavedPrompt, rp services.RemotePrompt) *models.SavedPrompt {
	text := strings.TrimSpace(rp.Text)
	if text == p.Text() && (rp.CreatedAt.IsZero() || rp.CreatedAt.Equal(p.CreatedAt())) {
		return p
	}

	p.SetText(text)
	if !rp.CreatedAt.IsZero() {
		p.SetCreatedAt(rp.CreatedAt)
	}
	if err := s.prompts.Update(p); err != nil {
		s.logger.Warn("failed to update local prompt from backend", "id", p.ID(), "error", err)
	}
	return p
}

// adoptHistory replaces a local history entry with its backend copy. History is append-only,
// so the local row is deleted and the backend entry written in its place.
func (s *PromptSync) adoptHistory(h *models.HistoryEntry, re services.RemoteHistoryEntry) *models.HistoryEntry {
	if re.ItemURL == h.ItemURL() && (re.CreatedAt.IsZero() || re.CreatedAt.Equal(h.CreatedAt())) {
		return h
	}

	replacement := models.NewHistoryEntry(s.historyNamespace, h.SessionID(), re.Role, strings.TrimSpace(re.Text), re.ItemURL)
	if !re.CreatedAt.IsZero() {
		replacement.SetCreatedAt(re.CreatedAt)
	}
	if err := s.history.Delete(h.ID()); err != nil {
		s.logger.Warn("failed to replace local history entry", "id", h.ID(), "error", err)
		return replacement
	}
	if err := s.history.Create(replacement); err != nil {
		s.logger.Warn("failed to cache backend history entry", "error", err)
	}
	return replacement
}

func promptKey(text string) string {
	return strings.TrimSpace(text)
}

func historyKey(role, text string) string {
	return role + "\x00" + strings.TrimSpace(text)
}

func toRemoteHistory(h *models.HistoryEntry) services.RemoteHistoryEntry {
	return services.RemoteHistoryEntry{
		SessionID: h.SessionID(),
		Role:      h.Role(),
		Text:      h.Text(),
		ItemURL:   h.ItemURL(),
		CreatedAt: h.CreatedAt(),
	}
}
