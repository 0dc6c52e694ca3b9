package tasks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/desertthunder/genx/internal/models"
	tu "github.com/desertthunder/genx/internal/testing"
)

func TestBulkDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("content:" + r.URL.Path))
	}))
	defer server.Close()

	items := []models.Item{
		{RemoteFileID: "f1", URL: server.URL + "/a.png?sig=1"},
		{RemoteFileID: "f2", URL: server.URL + "/b.mp4", Kind: models.KindVideo},
		{RemoteFileID: "f3", URL: server.URL + "/missing.png"},
		{RemoteFileID: "f4"},
	}

	t.Run("downloads items and writes a manifest", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "out")
		progress := make(chan ProgressUpdate, 20)

		result, err := BulkDownload(context.Background(), progress, items, BulkDownloadOpts{
			OutputDir:  dir,
			NumWorkers: 2,
			RateLimit:  1000,
			Client:     server.Client(),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result.TotalItems != 4 || result.Downloaded != 2 || result.Failed != 2 {
			t.Errorf("unexpected counts %+v", result)
		}

		tu.AssertFileExists(t, filepath.Join(dir, "f1.png"))
		tu.AssertFileExists(t, filepath.Join(dir, "f2.mp4"))
		if got := tu.MustReadFile(t, filepath.Join(dir, "f1.png")); got != "content:/a.png" {
			t.Errorf("unexpected content %q", got)
		}

		var manifest BulkDownloadResult
		if err := json.Unmarshal([]byte(tu.MustReadFile(t, result.ManifestPath)), &manifest); err != nil {
			t.Fatalf("invalid manifest: %v", err)
		}
		if len(manifest.Results) != 4 || manifest.Downloaded != 2 {
			t.Errorf("unexpected manifest %+v", manifest)
		}

		sawDownload := false
		for len(progress) > 0 {
			if u := <-progress; u.Phase == DownloadItems {
				sawDownload = true
			}
		}
		if !sawDownload {
			t.Error("expected download progress updates")
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result, err := BulkDownload(ctx, nil, items, BulkDownloadOpts{OutputDir: t.TempDir(), Client: server.Client()})
		if err == nil {
			t.Error("expected context error")
		}
		if result == nil || result.Downloaded != 0 {
			t.Errorf("expected nothing downloaded, got %+v", result)
		}
	})
}
