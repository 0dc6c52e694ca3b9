package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/genx/internal/shared"
)

var (
	_ ItemStore     = (*GalleryService)(nil)
	_ PromptBackend = (*GalleryService)(nil)
)

// GalleryService is the HTTP client for the persisted item list and the prompt/history backend.
type GalleryService struct {
	api *APIService
}

// NewGalleryService creates a GalleryService backed by api.
func NewGalleryService(api *APIService) *GalleryService {
	return &GalleryService{api: api}
}

// FetchPage implements [ItemStore] against GET /api/items.
func (s *GalleryService) FetchPage(ctx context.Context, query PageQuery) (*ItemPage, error) {
	if s.api == nil {
		return nil, fmt.Errorf("%w: API client not initialized", shared.ErrServiceUnavailable)
	}

	params := url.Values{}
	if query.Cursor != "" {
		params.Set("cursor", query.Cursor)
	}
	if query.Limit > 0 {
		params.Set("limit", strconv.Itoa(query.Limit))
	}
	if query.Category != "" {
		params.Set("category", query.Category)
	}

	path := "/api/items"
	if encoded := params.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var page ItemPage
	if err := s.api.GetJSON(ctx, path, &page); err != nil {
		return nil, err
	}

	// A server that reports more pages without a cursor would loop forever on page one.
	if page.HasMore && strings.TrimSpace(page.NextCursor) == "" {
		page.HasMore = false
	}

	return &page, nil
}

// ListPrompts implements [PromptBackend].
func (s *GalleryService) ListPrompts(ctx context.Context) ([]RemotePrompt, error) {
	var body struct {
		Prompts []RemotePrompt `json:"prompts"`
	}
	if err := s.api.GetJSON(ctx, "/api/prompts", &body); err != nil {
		return nil, err
	}
	return body.Prompts, nil
}

// PushPrompt implements [PromptBackend].
func (s *GalleryService) PushPrompt(ctx context.Context, text string) error {
	return s.api.PostJSON(ctx, "/api/prompts", map[string]string{"text": text}, nil)
}

// ListHistory implements [PromptBackend].
func (s *GalleryService) ListHistory(ctx context.Context, sessionID string) ([]RemoteHistoryEntry, error) {
	path := "/api/history"
	if sessionID != "" {
		path += "?session_id=" + url.QueryEscape(sessionID)
	}

	var body struct {
		Entries []RemoteHistoryEntry `json:"entries"`
	}
	if err := s.api.GetJSON(ctx, path, &body); err != nil {
		return nil, err
	}
	return body.Entries, nil
}

// PushHistory implements [PromptBackend].
func (s *GalleryService) PushHistory(ctx context.Context, entry RemoteHistoryEntry) error {
	return s.api.PostJSON(ctx, "/api/history", entry, nil)
}
