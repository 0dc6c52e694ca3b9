package tasks

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/genx/internal/models"
	"github.com/desertthunder/genx/internal/services"
	"github.com/desertthunder/genx/internal/shared"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Expected durations used for the client progress estimate.
const (
	imageEstimate = 45 * time.Second
	videoEstimate = 3 * time.Minute
	estimateCap   = 95.0
)

// EngineOpts configures an [Engine]. Zero values fall back to defaults.
type EngineOpts struct {
	Registry     *Registry
	Producer     services.Producer
	Logger       *log.Logger
	PollInterval time.Duration // default 3s
	StaleAfter   time.Duration // default 10m
	RateLimit    float64       // status polls per second, default 4
}

// Engine drives generation jobs through the [Registry].
//
// Its public operations never return producer or network failures: they are logged and
// turned into job state.
type Engine struct {
	registry     *Registry
	producer     services.Producer
	logger       *log.Logger
	limiter      *rate.Limiter
	pollInterval time.Duration
	staleAfter   time.Duration
}

// NewEngine creates an Engine.
func NewEngine(opts EngineOpts) *Engine {
	if opts.Registry == nil {
		opts.Registry = NewRegistry()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(os.Stderr)
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 3 * time.Second
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = 10 * time.Minute
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 4
	}

	return &Engine{
		registry:     opts.Registry,
		producer:     opts.Producer,
		logger:       shared.WithLogger(opts.Logger, "component", "engine"),
		limiter:      rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
		pollInterval: opts.PollInterval,
		staleAfter:   opts.StaleAfter,
	}
}

// Registry returns the registry the engine mutates.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// PollInterval is the delay between poll rounds.
func (e *Engine) PollInterval() time.Duration {
	return e.pollInterval
}

// Enqueue registers a queued placeholder for req and returns it with the client id filled in.
func (e *Engine) Enqueue(req services.GenerationRequest) (models.Job, services.GenerationRequest) {
	return e.enqueue(req, "")
}

func (e *Engine) enqueue(req services.GenerationRequest, sourceID string) (models.Job, services.GenerationRequest) {
	if strings.TrimSpace(req.ClientJobID) == "" {
		req.ClientJobID = uuid.NewString()
	}

	kind := req.Kind
	if kind == "" {
		kind = models.KindForModel(req.Model)
	}

	e.registry.AddJob(models.Job{
		ID:             req.ClientJobID,
		Prompt:         req.Prompt,
		Model:          req.Model,
		Kind:           kind,
		Status:         models.JobQueued,
		References:     req.References,
		SourceIdentity: sourceID,
	})

	job, _ := e.registry.Get(req.ClientJobID)
	return job, req
}

// Start submits an enqueued request to the producer and records the outcome.
//
// A start failure marks the job failed. If the job was removed while the request was in
// flight the response is ignored.
func (e *Engine) Start(ctx context.Context, req services.GenerationRequest, progress chan<- ProgressUpdate) models.Job {
	id := req.ClientJobID
	if e.producer == nil {
		e.fail(id, fmt.Errorf("%w: producer not configured", shared.ErrServiceUnavailable))
		job, _ := e.registry.Get(id)
		return job
	}

	state, err := e.producer.StartJob(ctx, req)
	if err != nil {
		e.logger.Error("failed to start job", "job", id, "model", req.Model, "error", err)
		e.fail(id, err)
		job, _ := e.registry.Get(id)
		sendProgress(progress, finishedUpdate(job))
		return job
	}

	if newID := strings.TrimSpace(state.JobID); newID != "" && newID != id {
		if e.registry.Rename(id, newID) {
			e.logger.Debug("job renamed", "from", id, "to", newID)
			id = newID
		}
	}

	job, ok := e.apply(id, state)
	if !ok {
		e.logger.Debug("dropping start result for untracked job", "job", id)
		return job
	}

	sendProgress(progress, dispatchUpdate(job))
	if job.Status.Terminal() {
		sendProgress(progress, finishedUpdate(job))
	}
	return job
}

// Dispatch enqueues and starts a job.
func (e *Engine) Dispatch(ctx context.Context, req services.GenerationRequest, progress chan<- ProgressUpdate) models.Job {
	_, req = e.Enqueue(req)
	return e.Start(ctx, req, progress)
}

// DeriveRequest describes a derivative operation on an existing item.
type DeriveRequest struct {
	Op     DeriveOp
	Prompt string
	Model  string // defaults to the source model
}

// PrepareDerive builds the request for a derivative job from source and registers its placeholder.
func (e *Engine) PrepareDerive(source models.Item, d DeriveRequest) (models.Job, services.GenerationRequest) {
	sourceID := source.Identity()
	model := d.Model
	if model == "" {
		model = source.Model
	}

	kind := source.MediaKind()
	if d.Op == OpVideo {
		kind = models.KindVideo
	}

	refs := []string{}
	if strings.TrimSpace(source.URL) != "" {
		refs = append(refs, source.URL)
	}
	for _, ref := range source.References {
		if !models.SameContent(ref, source.URL) {
			refs = append(refs, ref)
		}
	}

	prompt := d.Prompt
	if strings.TrimSpace(prompt) == "" {
		prompt = source.Prompt
	}

	req := services.GenerationRequest{
		ClientJobID: SyntheticJobID(d.Op, sourceID, e.registry.now()),
		Prompt:      prompt,
		Model:       model,
		Kind:        kind,
		AspectRatio: source.AspectRatio,
		References:  refs,
		AvatarID:    source.AvatarID,
		ProductID:   source.ProductID,
		StyleID:     source.StyleID,
	}

	return e.enqueue(req, sourceID)
}

// Derive starts a derivative job (re-edit or image-to-video) from source.
func (e *Engine) Derive(ctx context.Context, source models.Item, d DeriveRequest, progress chan<- ProgressUpdate) models.Job {
	_, req := e.PrepareDerive(source, d)
	return e.Start(ctx, req, progress)
}

// Poll queries the producer once for every active job, throttled by the rate limiter.
//
// Poll failures leave the job as it is so the next round retries. It returns the number of
// jobs still active afterwards, or the context error.
func (e *Engine) Poll(ctx context.Context, progress chan<- ProgressUpdate) (int, error) {
	active := e.registry.Active()
	if e.producer == nil || len(active) == 0 {
		return len(active), nil
	}

	for i, id := range active {
		if err := e.limiter.Wait(ctx); err != nil {
			return len(active) - i, err
		}

		state, err := e.producer.JobStatus(ctx, id)
		if err != nil {
			e.logger.Warn("failed to poll job", "job", id, "error", err)
			e.estimate(id)
			continue
		}

		job, ok := e.apply(id, state)
		if !ok {
			continue
		}
		if !job.Status.Terminal() && state.Progress == nil {
			e.estimate(id)
			job, _ = e.registry.Get(id)
		}

		sendProgress(progress, pollUpdate(i+1, len(active), job))
		if job.Status.Terminal() {
			sendProgress(progress, finishedUpdate(job))
		}
	}

	return len(e.registry.Active()), nil
}

// Watch polls and sweeps every poll interval until no job is active or ctx is done.
func (e *Engine) Watch(ctx context.Context, progress chan<- ProgressUpdate) error {
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		remaining, err := e.Poll(ctx, progress)
		if err != nil {
			return err
		}
		e.Sweep(progress)
		if remaining == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Reconcile prunes completed jobs whose persisted record has arrived.
func (e *Engine) Reconcile(persisted []models.Item) []string {
	removed := e.registry.Prune(persisted)
	if len(removed) > 0 {
		e.logger.Debug("pruned persisted jobs", "count", len(removed), "jobs", removed)
	}
	return removed
}

// Sweep applies the staleness timeout.
func (e *Engine) Sweep(progress chan<- ProgressUpdate) (failed, removed []string) {
	failed, removed = e.registry.ExpireStale(e.staleAfter)
	if len(failed)+len(removed) == 0 {
		return nil, nil
	}
	for _, id := range failed {
		e.logger.Warn("job timed out", "job", id, "after", e.staleAfter)
	}
	sendProgress(progress, sweepUpdate(failed, removed))
	return failed, removed
}

// Discard removes a job, typically a failed one the user dismissed. It is idempotent.
func (e *Engine) Discard(id string) {
	e.registry.RemoveJob(id)
}

// apply maps a producer state onto the registry.
func (e *Engine) apply(id string, state *services.JobState) (models.Job, bool) {
	if state == nil {
		job, ok := e.registry.Get(id)
		return job, ok
	}

	status, ok := models.ParseJobStatus(state.Status)
	if !ok {
		e.logger.Debug("unrecognized job status", "job", id, "status", state.Status)
		status = ""
	}

	patch := models.JobPatch{BackendProgress: state.Progress, Error: state.Error}
	if state.Result != nil {
		result := *state.Result
		if strings.TrimSpace(result.JobID) == "" && strings.TrimSpace(result.RemoteFileID) == "" {
			result.JobID = id
		}
		patch.Result = &result
	}
	if status == models.JobCompleted {
		patch.Progress = models.Float(100)
	}
	if status == models.JobFailed && patch.Error == "" {
		patch.Error = "generation failed"
	}

	if !e.registry.UpdateJobStatus(id, status, patch) {
		job, ok := e.registry.Get(id)
		return job, ok && job.Status.Terminal()
	}
	return e.registry.Get(id)
}

func (e *Engine) fail(id string, err error) {
	e.registry.UpdateJobStatus(id, models.JobFailed, models.JobPatch{Error: err.Error()})
}

// estimate advances the client-side progress for jobs without backend progress.
func (e *Engine) estimate(id string) {
	job, ok := e.registry.Get(id)
	if !ok || job.Status.Terminal() {
		return
	}

	expected := imageEstimate
	if job.MediaKind() == models.KindVideo {
		expected = videoEstimate
	}
	elapsed := e.registry.now().Sub(job.StartedAt)
	e.registry.SetEstimate(id, min(estimateCap, float64(elapsed)/float64(expected)*100))
}
