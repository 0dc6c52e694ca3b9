package tasks

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/genx/internal/models"
	"github.com/desertthunder/genx/internal/services"
	"github.com/desertthunder/genx/internal/shared"
)

// FeedOpts configures a [Feed].
type FeedOpts struct {
	Store    services.ItemStore
	PageSize int    // default 30
	Category string // forwarded to the store as a hint
	Logger   *log.Logger
}

// PageRequest is a claimed fetch slot returned by [Feed.TryBegin] or [Feed.BeginRefresh].
type PageRequest struct {
	Generation int
	Cursor     string
	Refresh    bool
}

// Feed is the infinite scroll driver over the remote item store.
//
// At most one fetch is outstanding at a time; the in-flight flag, not debouncing, guards
// against repeated sentinel events. A refresh supersedes any outstanding fetch by bumping
// the generation, and responses from an older generation are discarded.
type Feed struct {
	mu         sync.Mutex
	store      services.ItemStore
	pageSize   int
	category   string
	logger     *log.Logger
	items      []models.Item
	seen       map[string]struct{}
	cursor     string
	hasMore    bool
	inFlight   bool
	generation int
	pages      int
	err        error
}

// NewFeed creates a Feed that has not loaded anything yet.
func NewFeed(opts FeedOpts) *Feed {
	if opts.PageSize <= 0 {
		opts.PageSize = 30
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(os.Stderr)
	}
	return &Feed{
		store:    opts.Store,
		pageSize: opts.PageSize,
		category: opts.Category,
		logger:   shared.WithLogger(opts.Logger, "component", "feed"),
		seen:     make(map[string]struct{}),
		hasMore:  true,
	}
}

// TryBegin claims the fetch slot for the next page. It reports false when no more pages
// exist or a fetch is already in flight.
func (f *Feed) TryBegin() (PageRequest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.hasMore || f.inFlight {
		return PageRequest{}, false
	}
	f.inFlight = true
	return PageRequest{Generation: f.generation, Cursor: f.cursor}, true
}

// BeginRefresh claims the fetch slot for the first page, superseding any outstanding fetch.
func (f *Feed) BeginRefresh() PageRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.generation++
	f.inFlight = true
	return PageRequest{Generation: f.generation, Refresh: true}
}

// Fetch performs the store call for req without touching feed state.
func (f *Feed) Fetch(ctx context.Context, req PageRequest) (*services.ItemPage, error) {
	if f.store == nil {
		return nil, fmt.Errorf("%w: item store not configured", shared.ErrServiceUnavailable)
	}
	f.mu.Lock()
	category := f.category
	f.mu.Unlock()

	return f.store.FetchPage(ctx, services.PageQuery{
		Cursor:   req.Cursor,
		Limit:    f.pageSize,
		Category: category,
	})
}

// Complete applies the outcome of a fetch and releases the slot.
//
// It reports false when req belongs to a superseded generation; the response is dropped and
// the slot stays with the newer fetch. On error the cursor is kept so the next sentinel
// event retries the same page.
func (f *Feed) Complete(req PageRequest, page *services.ItemPage, err error) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if req.Generation != f.generation {
		return false
	}
	f.inFlight = false

	if err != nil {
		f.err = err
		f.logger.Warn("failed to fetch page", "cursor", req.Cursor, "error", err)
		return true
	}
	f.err = nil
	if page == nil {
		page = &services.ItemPage{}
	}

	if req.Refresh {
		f.items = nil
		f.seen = make(map[string]struct{})
		f.pages = 0
	}

	for _, item := range page.Items {
		if id := item.Identity(); id != "" {
			if _, dup := f.seen[id]; dup {
				continue
			}
			f.seen[id] = struct{}{}
		}
		f.items = append(f.items, item)
	}

	f.pages++
	f.cursor = page.NextCursor
	f.hasMore = page.HasMore && page.NextCursor != ""
	return true
}

// LoadMore fetches the next page if the slot is free and more pages exist.
// It reports whether a fetch was performed.
func (f *Feed) LoadMore(ctx context.Context, progress chan<- ProgressUpdate) (bool, error) {
	req, ok := f.TryBegin()
	if !ok {
		return false, nil
	}
	page, err := f.Fetch(ctx, req)
	f.complete(req, page, err, progress)
	return true, err
}

// OnSentinelVisible is the viewport hook: the sentinel entering view loads the next page.
func (f *Feed) OnSentinelVisible(ctx context.Context, progress chan<- ProgressUpdate) {
	_, _ = f.LoadMore(ctx, progress)
}

// Refresh replaces the snapshot with a fresh first page.
func (f *Feed) Refresh(ctx context.Context, progress chan<- ProgressUpdate) error {
	req := f.BeginRefresh()
	page, err := f.Fetch(ctx, req)
	f.complete(req, page, err, progress)
	return err
}

func (f *Feed) complete(req PageRequest, page *services.ItemPage, err error, progress chan<- ProgressUpdate) {
	if !f.Complete(req, page, err) || err != nil || page == nil {
		return
	}
	f.mu.Lock()
	n, more := f.pages, f.hasMore
	f.mu.Unlock()
	sendProgress(progress, fetchPageUpdate(n, len(page.Items), more))
}

// Items returns a copy of the loaded persisted items in fetch order.
func (f *Feed) Items() []models.Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.items)
}

// HasMore reports whether another page may exist.
func (f *Feed) HasMore() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hasMore
}

// InFlight reports whether a fetch is outstanding.
func (f *Feed) InFlight() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inFlight
}

// Err returns the error of the last completed fetch, if any.
func (f *Feed) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// SetCategory changes the server-side hint. The caller is expected to refresh afterwards.
func (f *Feed) SetCategory(category string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.category = category
}
