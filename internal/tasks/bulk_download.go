package tasks

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/genx/internal/formatter"
	"github.com/desertthunder/genx/internal/models"
	"golang.org/x/time/rate"
)

// BulkDownloadOpts contains configuration for downloading selected items.
type BulkDownloadOpts struct {
	OutputDir  string       // Base output directory (default: genx_download_{epoch})
	NumWorkers int          // Concurrent workers (default: 4, max 10)
	RateLimit  float64      // Requests per second (default: 5)
	Client     *http.Client // HTTP client for content urls
}

// DownloadResult is the outcome for one item.
type DownloadResult struct {
	Identity string `json:"identity"`
	URL      string `json:"url"`
	Path     string `json:"path,omitempty"`
	Bytes    int    `json:"bytes"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

// BulkDownloadResult summarizes a bulk download.
type BulkDownloadResult struct {
	TotalItems      int              `json:"total_items"`
	Downloaded      int              `json:"downloaded"`
	Failed          int              `json:"failed"`
	OutputDirectory string           `json:"output_directory"`
	ManifestPath    string           `json:"-"`
	Results         []DownloadResult `json:"results"`
}

// BulkDownload downloads the content of items concurrently with rate limiting and progress tracking.
//
// Items without a url are reported as failures. Partial failures do not abort the batch; a
// manifest describing every result is written to the output directory.
func BulkDownload(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	items []models.Item,
	opts BulkDownloadOpts,
) (*BulkDownloadResult, error) {
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("genx_download_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkDownloadResult{
		TotalItems:      len(items),
		OutputDirectory: opts.OutputDir,
		Results:         make([]DownloadResult, 0, len(items)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan models.Item, len(items))
	results := make(chan DownloadResult, len(items))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go downloadWorker(ctx, &wg, limiter, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		for i, item := range items {
			select {
			case <-ctx.Done():
				return
			default:
			}
			sendProgress(prog, downloadingUpdate(i+1, len(items), item))
			jobs <- item
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Success {
			result.Downloaded++
			sendProgress(prog, downloadCompletedUpdate(completed, len(items), res.Path))
		} else {
			result.Failed++
			sendProgress(prog, downloadFailedUpdate(completed, len(items), res.Identity, fmt.Errorf("%s", res.Error)))
		}
	}

	manifestPath := filepath.Join(opts.OutputDir, "download_manifest.json")
	if err := formatter.WriteManifest(result, manifestPath); err != nil {
		return result, fmt.Errorf("download completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

func downloadWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	limiter *rate.Limiter,
	jobs <-chan models.Item,
	results chan<- DownloadResult,
	opts BulkDownloadOpts,
) {
	defer wg.Done()

	for item := range jobs {
		res := DownloadResult{Identity: item.Identity(), URL: item.URL}

		if err := limiter.Wait(ctx); err != nil {
			res.Error = err.Error()
			results <- res
			continue
		}

		data, err := formatter.Download(ctx, opts.Client, item.URL)
		if err != nil {
			res.Error = err.Error()
			results <- res
			continue
		}

		path := filepath.Join(opts.OutputDir, formatter.FileName(item))
		if err := os.WriteFile(path, data, 0644); err != nil {
			res.Error = fmt.Sprintf("write failed: %v", err)
			results <- res
			continue
		}

		res.Path = path
		res.Bytes = len(data)
		res.Success = true
		results <- res
	}
}
