// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/genx/internal/models"
	"github.com/desertthunder/genx/internal/services"
)

// MockItemStore is a test double for [services.ItemStore] serving pages keyed by cursor.
type MockItemStore struct {
	mu      sync.Mutex
	Pages   map[string]*services.ItemPage
	Err     error
	Queries []services.PageQuery
}

func (m *MockItemStore) FetchPage(ctx context.Context, query services.PageQuery) (*services.ItemPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Queries = append(m.Queries, query)
	if m.Err != nil {
		return nil, m.Err
	}
	if page, ok := m.Pages[query.Cursor]; ok {
		return page, nil
	}
	return &services.ItemPage{}, nil
}

// Calls returns how many pages were requested.
func (m *MockItemStore) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Queries)
}

// MockProducer is a test double for [services.Producer].
type MockProducer struct {
	mu        sync.Mutex
	StartFn   func(req services.GenerationRequest) (*services.JobState, error)
	States    map[string]*services.JobState
	StatusErr error
	OnStatus  func(jobID string) // runs on every status call, before the result is returned
	Started   []services.GenerationRequest
	Polled    []string
}

func (m *MockProducer) StartJob(ctx context.Context, req services.GenerationRequest) (*services.JobState, error) {
	m.mu.Lock()
	m.Started = append(m.Started, req)
	fn := m.StartFn
	m.mu.Unlock()

	if fn != nil {
		return fn(req)
	}
	return &services.JobState{JobID: req.ClientJobID, Status: "queued"}, nil
}

func (m *MockProducer) JobStatus(ctx context.Context, jobID string) (*services.JobState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Polled = append(m.Polled, jobID)
	if m.OnStatus != nil {
		m.OnStatus(jobID)
	}
	if m.StatusErr != nil {
		return nil, m.StatusErr
	}
	if state, ok := m.States[jobID]; ok {
		return state, nil
	}
	return nil, fmt.Errorf("job %s not found", jobID)
}

// MockPromptBackend is an in-memory [services.PromptBackend].
type MockPromptBackend struct {
	mu       sync.Mutex
	Prompts  []services.RemotePrompt
	History  []services.RemoteHistoryEntry
	ListErr  error
	PushErr  error
	Pushed   []string
	Appended []services.RemoteHistoryEntry
}

func (m *MockPromptBackend) ListPrompts(ctx context.Context) ([]services.RemotePrompt, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return m.Prompts, nil
}

func (m *MockPromptBackend) PushPrompt(ctx context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PushErr != nil {
		return m.PushErr
	}
	m.Pushed = append(m.Pushed, text)
	return nil
}

func (m *MockPromptBackend) ListHistory(ctx context.Context, sessionID string) ([]services.RemoteHistoryEntry, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	var out []services.RemoteHistoryEntry
	for _, e := range m.History {
		if sessionID == "" || e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MockPromptBackend) PushHistory(ctx context.Context, entry services.RemoteHistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PushErr != nil {
		return m.PushErr
	}
	m.Appended = append(m.Appended, entry)
	return nil
}

// Items builds n image items with remote file ids f0..f(n-1).
func Items(n int) []models.Item {
	items := make([]models.Item, n)
	for i := range items {
		items[i] = models.Item{
			RemoteFileID: fmt.Sprintf("f%d", i),
			URL:          fmt.Sprintf("https://cdn.example.com/f%d.png?sig=%d", i, i),
			Kind:         models.KindImage,
		}
	}
	return items
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

// FWriter is an [io.Writer] that always fails.
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
