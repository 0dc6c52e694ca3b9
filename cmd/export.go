package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/genx/internal/formatter"
	"github.com/desertthunder/genx/internal/shared"
	"github.com/desertthunder/genx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Export writes the selected items to a CSV, Markdown or JSON file.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	items, err := r.collectItems(ctx, cmd)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return fmt.Errorf("%w: nothing matched the selection", shared.ErrItemNotFound)
	}

	path, err := formatter.WriteExport(items, format, cmd.String("output"))
	if err != nil {
		return err
	}

	r.logger.Info("export written", "path", path, "format", format, "count", len(items))
	r.writePlain("✓ Exported %d items to %s\n", len(items), path)
	return nil
}

// Download fetches the media of the selected items into a directory and writes a manifest.
func (r *Runner) Download(ctx context.Context, cmd *cli.Command) error {
	items, err := r.collectItems(ctx, cmd)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return fmt.Errorf("%w: nothing matched the selection", shared.ErrItemNotFound)
	}

	outputDir := cmd.String("output")
	if outputDir == "" {
		outputDir = r.config.Download.OutputDir
	}

	progress, stop := r.reportProgress("↓", false)
	result, err := tasks.BulkDownload(ctx, progress, items, r.downloadOpts(outputDir))
	stop()
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	r.writePlain("\n")
	r.writePlainHeader("Download Complete")
	r.writePlain("Downloaded: %d/%d\n", result.Downloaded, result.TotalItems)
	r.writePlain("Directory: %s\n", result.OutputDirectory)
	r.writePlain("Manifest: %s\n", result.ManifestPath)

	if result.Failed > 0 {
		r.writePlain("\nFailed %d items:\n", result.Failed)
		for _, res := range result.Results {
			if !res.Success {
				r.writePlain("  - %s: %s\n", res.Identity, res.Error)
			}
		}
	}
	return nil
}

func (r *Runner) downloadOpts(outputDir string) tasks.BulkDownloadOpts {
	return tasks.BulkDownloadOpts{
		OutputDir:  outputDir,
		NumWorkers: r.config.Download.Workers,
		RateLimit:  r.config.Download.RateLimit,
		Client:     r.httpClient,
	}
}
