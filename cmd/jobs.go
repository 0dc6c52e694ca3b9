package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/genx/internal/models"
	"github.com/desertthunder/genx/internal/services"
	"github.com/desertthunder/genx/internal/shared"
	"github.com/desertthunder/genx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// JobsGenerate starts a generation job and optionally waits for it to finish.
func (r *Runner) JobsGenerate(ctx context.Context, cmd *cli.Command) error {
	prompt := strings.TrimSpace(cmd.StringArg("prompt"))
	refs := cmd.StringSlice("ref")
	if prompt == "" && len(refs) == 0 {
		return fmt.Errorf("%w: prompt or --ref is required", shared.ErrMissingArgument)
	}
	if r.producer == nil {
		return fmt.Errorf("%w: generation producer not configured", shared.ErrServiceUnavailable)
	}

	kind := models.MediaKind(strings.ToLower(strings.TrimSpace(cmd.String("kind"))))
	if kind != "" && kind != models.KindImage && kind != models.KindVideo {
		return fmt.Errorf("%w: unknown kind %q", shared.ErrInvalidFlag, kind)
	}

	req := services.GenerationRequest{
		Prompt:      prompt,
		Model:       cmd.String("model"),
		Kind:        kind,
		AspectRatio: cmd.String("aspect-ratio"),
		References:  refs,
	}

	r.logger.Info("starting job", "model", req.Model, "prompt", shared.Truncate(prompt, 40))
	progress, stop := r.reportProgress("•", cmd.Bool("json"))
	job := r.engine.Dispatch(ctx, req, progress)
	job, err := r.await(ctx, cmd, job, progress)
	stop()
	if err != nil {
		return err
	}

	return r.finishJobs(cmd, []models.Job{job})
}

// JobsDerive starts a re-edit or image-to-video job from a persisted item.
func (r *Runner) JobsDerive(ctx context.Context, cmd *cli.Command) error {
	identity := strings.TrimSpace(cmd.StringArg("identity"))
	if identity == "" {
		return fmt.Errorf("%w: item identity is required", shared.ErrMissingArgument)
	}
	if r.producer == nil {
		return fmt.Errorf("%w: generation producer not configured", shared.ErrServiceUnavailable)
	}

	var op tasks.DeriveOp
	switch strings.ToLower(cmd.String("op")) {
	case "", string(tasks.OpEdit):
		op = tasks.OpEdit
	case string(tasks.OpVideo):
		op = tasks.OpVideo
	default:
		return fmt.Errorf("%w: unknown op %q", shared.ErrInvalidFlag, cmd.String("op"))
	}

	source, err := r.findItem(ctx, identity, cmd.Int("max-pages"))
	if err != nil {
		return err
	}

	r.logger.Info("deriving job", "op", op, "source", identity)
	progress, stop := r.reportProgress("•", cmd.Bool("json"))
	job := r.engine.Derive(ctx, source, tasks.DeriveRequest{
		Op:     op,
		Prompt: cmd.String("prompt"),
		Model:  cmd.String("model"),
	}, progress)
	job, err = r.await(ctx, cmd, job, progress)
	stop()
	if err != nil {
		return err
	}

	return r.finishJobs(cmd, []models.Job{job})
}

// JobsWatch polls previously started jobs until each one completes or fails.
func (r *Runner) JobsWatch(ctx context.Context, cmd *cli.Command) error {
	ids := cmd.Args().Slice()
	if len(ids) == 0 {
		return fmt.Errorf("%w: at least one job id is required", shared.ErrMissingArgument)
	}
	if r.producer == nil {
		return fmt.Errorf("%w: generation producer not configured", shared.ErrServiceUnavailable)
	}

	registry := r.engine.Registry()
	for _, id := range ids {
		registry.AddJob(models.Job{ID: id, Status: models.JobProcessing})
	}

	progress, stop := r.reportProgress("•", cmd.Bool("json"))
	err := r.engine.Watch(ctx, progress)
	stop()
	if err != nil {
		return fmt.Errorf("watch interrupted: %w", err)
	}

	jobs := make([]models.Job, 0, len(ids))
	for _, id := range ids {
		if job, ok := registry.Get(strings.TrimSpace(id)); ok {
			jobs = append(jobs, job)
		}
	}
	return r.finishJobs(cmd, jobs)
}

// await watches job until it is terminal when --wait is set.
func (r *Runner) await(ctx context.Context, cmd *cli.Command, job models.Job, progress chan<- tasks.ProgressUpdate) (models.Job, error) {
	if !cmd.Bool("wait") || job.Status.Terminal() {
		return job, nil
	}
	if err := r.engine.Watch(ctx, progress); err != nil {
		return job, fmt.Errorf("watch interrupted: %w", err)
	}
	if latest, ok := r.engine.Registry().Get(job.ID); ok {
		job = latest
	}
	return job, nil
}

// findItem pages through the gallery until the item with identity is loaded.
func (r *Runner) findItem(ctx context.Context, identity string, maxPages int) (models.Item, error) {
	if r.store == nil {
		return models.Item{}, fmt.Errorf("%w: item store not configured", shared.ErrServiceUnavailable)
	}
	if maxPages <= 0 {
		maxPages = 1
	}

	feed := r.newFeed(tasks.CategoryAll)
	for page := 0; page < maxPages; page++ {
		fetched, err := feed.LoadMore(ctx, nil)
		if err != nil {
			return models.Item{}, fmt.Errorf("failed to load items: %w", err)
		}
		for _, item := range feed.Items() {
			if item.Identity() == identity {
				return item, nil
			}
		}
		if !fetched || !feed.HasMore() {
			break
		}
	}
	return models.Item{}, fmt.Errorf("%w: %s", shared.ErrItemNotFound, identity)
}

// finishJobs prints jobs and reports an error when any of them failed.
func (r *Runner) finishJobs(cmd *cli.Command, jobs []models.Job) error {
	if cmd.Bool("json") {
		if err := r.writeJSON(jobs, cmd.Bool("pretty")); err != nil {
			return err
		}
	} else {
		r.printJobs(jobs)
	}

	var failed []string
	for _, job := range jobs {
		if job.Status == models.JobFailed {
			failed = append(failed, fmt.Sprintf("%s (%s)", job.ID, job.Error))
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%w: %s", shared.ErrAPIRequest, strings.Join(failed, ", "))
	}
	return nil
}

func (r *Runner) printJobs(jobs []models.Job) {
	r.writePlainln("Jobs (%d)", len(jobs))
	for _, job := range jobs {
		pct, preparing := job.DisplayProgress()
		progress := fmt.Sprintf("%5.1f%%", pct)
		if preparing {
			progress = "  ...."
		}
		r.writePlain("  %-36s %-10s %s  %s\n", job.ID, job.Status, progress, shared.Truncate(job.Prompt, 40))
		if job.Result != nil && job.Result.URL != "" {
			r.writePlain("    → %s\n", job.Result.URL)
		}
		if job.Error != "" {
			r.writePlain("    ✗ %s\n", job.Error)
		}
	}
}
