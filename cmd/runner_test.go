package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/desertthunder/genx/internal/models"
	"github.com/desertthunder/genx/internal/services"
	"github.com/desertthunder/genx/internal/shared"
	tu "github.com/desertthunder/genx/internal/testing"
	"github.com/urfave/cli/v3"
)

type testRunner struct {
	*Runner
	out      *bytes.Buffer
	store    *tu.MockItemStore
	producer *tu.MockProducer
	backend  *tu.MockPromptBackend
}

func newTestRunner(t *testing.T) *testRunner {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	items := tu.Items(5)
	tr := &testRunner{
		out: &bytes.Buffer{},
		store: &tu.MockItemStore{Pages: map[string]*services.ItemPage{
			"":   {Items: items[0:3], NextCursor: "c1", HasMore: true},
			"c1": {Items: items[3:5]},
		}},
		producer: &tu.MockProducer{},
		backend:  &tu.MockPromptBackend{},
	}

	config := shared.DefaultConfig()
	config.Feed.PageSize = 3
	config.API.UserID = "tester"

	tr.Runner = NewRunner(RunnerOpts{
		Config:   config,
		Store:    tr.store,
		Producer: tr.producer,
		Backend:  tr.backend,
		DB:       db,
		Logger:   shared.NewLogger(io.Discard),
		Output:   tr.out,
	})
	t.Cleanup(func() { tr.Close() })
	return tr
}

func (tr *testRunner) run(args ...string) error {
	app := &cli.Command{Name: "genx", Writer: io.Discard, ErrWriter: io.Discard, Commands: tr.register()}
	return app.Run(context.Background(), append([]string{"genx"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			store := &tu.MockItemStore{}
			producer := &tu.MockProducer{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				Store:      store,
				Producer:   producer,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.store != store || runner.producer != producer {
				t.Error("expected services to be set")
			}
			if runner.engine == nil {
				t.Error("expected engine to be built")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
		})

		t.Run("engine follows the configured poll interval", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Jobs.PollInterval = "250ms"
			runner := NewRunner(RunnerOpts{Config: config})

			if got := runner.engine.PollInterval().String(); got != "250ms" {
				t.Errorf("expected 250ms, got %s", got)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if result := output.String(); result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})

		if err := runner.writePlain("hello %s", "world"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result := output.String(); result != "hello world" {
			t.Errorf("expected 'hello world', got %q", result)
		}

		failing := NewRunner(RunnerOpts{Output: &tu.FWriter{}})
		if err := failing.writePlain("test"); err == nil {
			t.Error("expected error from failing writer")
		}
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})

		var names []string
		for _, cmd := range runner.register() {
			names = append(names, cmd.Name)
		}

		want := []string{"setup", "items", "jobs", "prompts", "export", "download", "tui"}
		if !slices.Equal(names, want) {
			t.Errorf("expected %v, got %v", want, names)
		}
	})
}

func TestItemsList(t *testing.T) {
	t.Run("pages until the limit", func(t *testing.T) {
		tr := newTestRunner(t)

		if err := tr.run("items", "list", "--limit", "4"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		out := tr.out.String()
		if !strings.Contains(out, "Items (4)") || !strings.Contains(out, "f3") || strings.Contains(out, "f4") {
			t.Errorf("unexpected output:\n%s", out)
		}
		if tr.store.Calls() != 2 {
			t.Errorf("expected 2 page fetches, got %d", tr.store.Calls())
		}
	})

	t.Run("json output with identity filter", func(t *testing.T) {
		tr := newTestRunner(t)

		if err := tr.run("items", "list", "--json", "--id", "f1", "--id", "f4"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var items []models.Item
		if err := json.Unmarshal(tr.out.Bytes(), &items); err != nil {
			t.Fatalf("invalid JSON: %v\n%s", err, tr.out.String())
		}
		if len(items) != 2 || items[0].Identity() != "f1" || items[1].Identity() != "f4" {
			t.Errorf("expected f1 and f4, got %+v", items)
		}
	})

	t.Run("invalid category", func(t *testing.T) {
		tr := newTestRunner(t)

		err := tr.run("items", "list", "--category", "audio")
		if !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})

	t.Run("store failure", func(t *testing.T) {
		tr := newTestRunner(t)
		tr.store.Err = errors.New("503")

		if err := tr.run("items", "list"); err == nil {
			t.Error("expected error")
		}
	})
}

func TestJobs(t *testing.T) {
	t.Run("generate reports a synchronous result", func(t *testing.T) {
		tr := newTestRunner(t)
		tr.producer.StartFn = func(req services.GenerationRequest) (*services.JobState, error) {
			return &services.JobState{
				JobID:  "srv-1",
				Status: "completed",
				Result: &models.Item{URL: "https://cdn.example.com/srv-1.png"},
			}, nil
		}

		if err := tr.run("jobs", "generate", "--model", "flux", "a red fox"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		out := tr.out.String()
		if !strings.Contains(out, "srv-1") || !strings.Contains(out, "completed") || !strings.Contains(out, "srv-1.png") {
			t.Errorf("unexpected output:\n%s", out)
		}
		if req := tr.producer.Started[0]; req.Prompt != "a red fox" || req.Model != "flux" {
			t.Errorf("unexpected request %+v", req)
		}
	})

	t.Run("generate waits for completion", func(t *testing.T) {
		tr := newTestRunner(t)
		tr.producer.StartFn = func(req services.GenerationRequest) (*services.JobState, error) {
			return &services.JobState{JobID: "srv-2", Status: "processing"}, nil
		}
		tr.producer.States = map[string]*services.JobState{"srv-2": {JobID: "srv-2", Status: "succeeded"}}

		if err := tr.run("jobs", "generate", "--wait", "--json", "owl"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var jobs []models.Job
		if err := json.Unmarshal(tr.out.Bytes(), &jobs); err != nil {
			t.Fatalf("invalid JSON: %v\n%s", err, tr.out.String())
		}
		if len(jobs) != 1 || jobs[0].Status != models.JobCompleted {
			t.Errorf("expected completed job, got %+v", jobs)
		}
	})

	t.Run("generate validates input", func(t *testing.T) {
		tr := newTestRunner(t)

		if err := tr.run("jobs", "generate"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
		if err := tr.run("jobs", "generate", "--kind", "audio", "x"); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})

	t.Run("generate surfaces a failed start", func(t *testing.T) {
		tr := newTestRunner(t)
		tr.producer.StartFn = func(services.GenerationRequest) (*services.JobState, error) {
			return nil, errors.New("quota exceeded")
		}

		err := tr.run("jobs", "generate", "owl")
		if !errors.Is(err, shared.ErrAPIRequest) || !strings.Contains(err.Error(), "quota exceeded") {
			t.Errorf("expected failed job error, got %v", err)
		}
	})

	t.Run("derive turns an item into a video", func(t *testing.T) {
		tr := newTestRunner(t)

		if err := tr.run("jobs", "derive", "--op", "video", "f4"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(tr.producer.Started) != 1 {
			t.Fatal("expected derive request")
		}
		req := tr.producer.Started[0]
		if req.Kind != models.KindVideo || req.References[0] != "https://cdn.example.com/f4.png?sig=4" {
			t.Errorf("unexpected derive request %+v", req)
		}
		if !strings.HasPrefix(req.ClientJobID, "video-") {
			t.Errorf("expected synthetic id, got %q", req.ClientJobID)
		}
	})

	t.Run("derive needs a loaded source", func(t *testing.T) {
		tr := newTestRunner(t)

		err := tr.run("jobs", "derive", "--max-pages", "1", "f4")
		if !errors.Is(err, shared.ErrItemNotFound) {
			t.Errorf("expected ErrItemNotFound, got %v", err)
		}
		if err := tr.run("jobs", "derive", "--op", "upscale", "f0"); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})

	t.Run("watch polls until every job finishes", func(t *testing.T) {
		tr := newTestRunner(t)
		tr.producer.States = map[string]*services.JobState{
			"a": {JobID: "a", Status: "completed"},
			"b": {JobID: "b", Status: "failed", Error: "nsfw"},
		}

		err := tr.run("jobs", "watch", "a", "b")
		if err == nil || !strings.Contains(err.Error(), "nsfw") {
			t.Errorf("expected failed job error, got %v", err)
		}

		out := tr.out.String()
		if !strings.Contains(out, "Jobs (2)") || !strings.Contains(out, "✗ nsfw") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("watch requires ids", func(t *testing.T) {
		tr := newTestRunner(t)

		if err := tr.run("jobs", "watch"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestPrompts(t *testing.T) {
	t.Run("add then list", func(t *testing.T) {
		tr := newTestRunner(t)

		if err := tr.run("prompts", "add", "a cat in a hat"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(tr.backend.Pushed) != 1 {
			t.Errorf("expected prompt pushed, got %v", tr.backend.Pushed)
		}

		tr.out.Reset()
		if err := tr.run("prompts", "list", "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var prompts []promptView
		if err := json.Unmarshal(tr.out.Bytes(), &prompts); err != nil {
			t.Fatalf("invalid JSON: %v\n%s", err, tr.out.String())
		}
		if len(prompts) != 1 || prompts[0].Text != "a cat in a hat" {
			t.Errorf("unexpected prompts %+v", prompts)
		}
	})

	t.Run("add requires text", func(t *testing.T) {
		tr := newTestRunner(t)

		if err := tr.run("prompts", "add"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("sync pulls backend prompts and history", func(t *testing.T) {
		tr := newTestRunner(t)
		tr.backend.Prompts = []services.RemotePrompt{{Text: "from backend"}}
		tr.backend.History = []services.RemoteHistoryEntry{
			{SessionID: "s1", Role: models.RoleUser, Text: "hello"},
		}

		if err := tr.run("prompts", "sync", "--session", "s1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		out := tr.out.String()
		if !strings.Contains(out, "Prompts: 1") || !strings.Contains(out, "History (s1): 1") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})
}

func TestExportAndDownload(t *testing.T) {
	t.Run("export writes the selected format", func(t *testing.T) {
		tr := newTestRunner(t)
		path := filepath.Join(t.TempDir(), "out.csv")

		if err := tr.run("export", "--format", "csv", "--limit", "2", "--output", path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		content := tu.MustReadFile(t, path)
		if !strings.Contains(content, "f0") || !strings.Contains(content, "f1") || strings.Contains(content, "f2") {
			t.Errorf("unexpected export:\n%s", content)
		}
		if !strings.Contains(tr.out.String(), "Exported 2 items") {
			t.Errorf("unexpected output: %s", tr.out.String())
		}
	})

	t.Run("export rejects unknown formats", func(t *testing.T) {
		tr := newTestRunner(t)

		if err := tr.run("export", "--format", "xml"); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})

	t.Run("download fetches media and writes a manifest", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("bytes:" + r.URL.Path))
		}))
		defer srv.Close()

		tr := newTestRunner(t)
		tr.store.Pages = map[string]*services.ItemPage{
			"": {Items: []models.Item{
				{RemoteFileID: "d1", URL: srv.URL + "/d1.png"},
				{RemoteFileID: "d2", URL: srv.URL + "/d2.mp4"},
			}},
		}
		dir := t.TempDir()

		if err := tr.run("download", "--output", dir); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		tu.AssertFileExists(t, filepath.Join(dir, "d1.png"))
		tu.AssertFileExists(t, filepath.Join(dir, "download_manifest.json"))
		if !strings.Contains(tr.out.String(), "Downloaded: 2/2") {
			t.Errorf("unexpected output:\n%s", tr.out.String())
		}
	})

	t.Run("download lists failed items", func(t *testing.T) {
		tr := newTestRunner(t)
		tr.httpClient = &http.Client{Transport: tu.NewMockRoundTripper(&http.Response{
			StatusCode: http.StatusOK,
			Body:       &tu.FCloser{},
		}, nil)}
		tr.store.Pages = map[string]*services.ItemPage{
			"": {Items: []models.Item{{RemoteFileID: "d1", URL: "https://cdn.example.com/d1.png"}}},
		}

		if err := tr.run("download", "--output", t.TempDir()); err != nil {
			t.Fatalf("partial failures must not abort, got %v", err)
		}

		out := tr.out.String()
		if !strings.Contains(out, "Downloaded: 0/1") || !strings.Contains(out, "- d1:") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})
}

func TestSetupDatabase(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")
	dbPath := filepath.Join(dir, "genx.db")

	conf := "[api]\nbase_url = \"http://127.0.0.1:9999\"\n\n[database]\npath = \"" + filepath.ToSlash(dbPath) + "\"\n"
	if err := os.WriteFile(configPath, []byte(conf), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	tr := newTestRunner(t)
	if err := tr.run("setup", "--config", configPath); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	tu.AssertFileExists(t, dbPath)
	if tr.config.API.BaseURL != "http://127.0.0.1:9999" {
		t.Errorf("expected loaded config to be adopted, got %s", tr.config.API.BaseURL)
	}
	if !strings.Contains(tr.out.String(), "Database ready") {
		t.Errorf("unexpected output: %s", tr.out.String())
	}
}
