package tasks

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/genx/internal/models"
	"github.com/desertthunder/genx/internal/services"
	"github.com/desertthunder/genx/internal/shared"
	tu "github.com/desertthunder/genx/internal/testing"
)

func newTestEngine(producer services.Producer) (*Engine, *fakeClock) {
	r, clock := newTestRegistry()
	e := NewEngine(EngineOpts{
		Registry:     r,
		Producer:     producer,
		Logger:       shared.NewLogger(io.Discard),
		PollInterval: time.Millisecond,
		StaleAfter:   10 * time.Minute,
		RateLimit:    1000,
	})
	return e, clock
}

func TestEngineDispatch(t *testing.T) {
	t.Run("async handle leaves job processing", func(t *testing.T) {
		producer := &tu.MockProducer{StartFn: func(req services.GenerationRequest) (*services.JobState, error) {
			return &services.JobState{JobID: req.ClientJobID, Status: "running", Progress: models.Float(5)}, nil
		}}
		e, _ := newTestEngine(producer)
		progress := make(chan ProgressUpdate, 10)

		job := e.Dispatch(context.Background(), services.GenerationRequest{Prompt: "a cat", Model: "flux"}, progress)

		if job.ID == "" || job.Status != models.JobProcessing {
			t.Fatalf("unexpected job %+v", job)
		}
		if job.BackendProgress == nil || *job.BackendProgress != 5 {
			t.Errorf("expected backend progress 5, got %v", job.BackendProgress)
		}
		if len(producer.Started) != 1 || producer.Started[0].ClientJobID != job.ID {
			t.Errorf("expected request to carry generated client id")
		}
		if got := <-progress; got.Phase != DispatchJob {
			t.Errorf("expected dispatch update, got %s", got.Phase)
		}
	})

	t.Run("synchronous terminal result is kept", func(t *testing.T) {
		producer := &tu.MockProducer{StartFn: func(req services.GenerationRequest) (*services.JobState, error) {
			return &services.JobState{Status: "succeeded", Result: &models.Item{URL: "https://cdn/out.png"}}, nil
		}}
		e, _ := newTestEngine(producer)

		job := e.Dispatch(context.Background(), services.GenerationRequest{ClientJobID: "c1", Prompt: "owl"}, nil)
		if job.Status != models.JobCompleted || job.Result == nil {
			t.Fatalf("expected completed job with result, got %+v", job)
		}
		if job.Result.JobID != "c1" {
			t.Errorf("result without ids should inherit the job id, got %q", job.Result.JobID)
		}

		entries := Merge(e.Registry().Snapshot(), nil, Filter{})
		if len(entries) != 1 || entries[0].URL() != "https://cdn/out.png" {
			t.Errorf("expected merged result placeholder, got %+v", entries)
		}
	})

	t.Run("server id renames the job", func(t *testing.T) {
		producer := &tu.MockProducer{StartFn: func(req services.GenerationRequest) (*services.JobState, error) {
			return &services.JobState{JobID: "srv-1", Status: "queued"}, nil
		}}
		e, _ := newTestEngine(producer)

		job := e.Dispatch(context.Background(), services.GenerationRequest{ClientJobID: "c1", Prompt: "owl"}, nil)
		if job.ID != "srv-1" {
			t.Errorf("expected renamed job, got %q", job.ID)
		}
		if _, ok := e.Registry().Get("c1"); ok {
			t.Error("client id should no longer be tracked")
		}
	})

	t.Run("start failure marks job failed without returning an error", func(t *testing.T) {
		producer := &tu.MockProducer{StartFn: func(req services.GenerationRequest) (*services.JobState, error) {
			return nil, errors.New("provider down")
		}}
		e, _ := newTestEngine(producer)

		job := e.Dispatch(context.Background(), services.GenerationRequest{ClientJobID: "c1", Prompt: "owl"}, nil)
		if job.Status != models.JobFailed || !strings.Contains(job.Error, "provider down") {
			t.Errorf("expected failed job, got %+v", job)
		}

		failed := FailedJobs(e.Registry().Snapshot())
		if len(failed) != 1 {
			t.Fatalf("expected failed job surfaced, got %d", len(failed))
		}
		e.Discard("c1")
		e.Discard("c1")
		if e.Registry().Len() != 0 {
			t.Error("expected discard to remove the job")
		}
	})

	t.Run("result for a cancelled job is ignored", func(t *testing.T) {
		var e *Engine
		producer := &tu.MockProducer{StartFn: func(req services.GenerationRequest) (*services.JobState, error) {
			e.Discard(req.ClientJobID)
			return &services.JobState{Status: "succeeded"}, nil
		}}
		e, _ = newTestEngine(producer)

		e.Dispatch(context.Background(), services.GenerationRequest{ClientJobID: "c1", Prompt: "owl"}, nil)
		if e.Registry().Len() != 0 {
			t.Error("cancelled job must not come back")
		}
	})

	t.Run("missing producer fails the job", func(t *testing.T) {
		e, _ := newTestEngine(nil)
		job := e.Dispatch(context.Background(), services.GenerationRequest{ClientJobID: "c1", Prompt: "owl"}, nil)
		if job.Status != models.JobFailed {
			t.Errorf("expected failed job, got %s", job.Status)
		}
	})
}

func TestEngineDerive(t *testing.T) {
	producer := &tu.MockProducer{}
	e, _ := newTestEngine(producer)
	source := models.Item{
		RemoteFileID: "file-123",
		URL:          "https://cdn/src.png?sig=abc",
		Prompt:       "a lighthouse",
		Model:        "flux",
		References:   []string{"https://cdn/src.png?sig=zzz", "https://cdn/other.png"},
		AspectRatio:  "16:9",
	}

	job := e.Derive(context.Background(), source, DeriveRequest{Op: OpVideo, Model: "veo-3"}, nil)

	if !strings.HasPrefix(job.ID, "video-file123-") {
		t.Errorf("unexpected synthetic id %q", job.ID)
	}
	if job.SourceIdentity != "file-123" || job.Kind != models.KindVideo {
		t.Errorf("unexpected job %+v", job)
	}

	req := producer.Started[0]
	if len(req.References) != 2 || req.References[0] != source.URL || req.References[1] != "https://cdn/other.png" {
		t.Errorf("expected raw source url first and duplicate reference dropped, got %v", req.References)
	}
	if req.Prompt != "a lighthouse" || req.AspectRatio != "16:9" {
		t.Errorf("expected prompt and aspect ratio inherited, got %+v", req)
	}
}

func TestEnginePoll(t *testing.T) {
	t.Run("applies producer state", func(t *testing.T) {
		producer := &tu.MockProducer{States: map[string]*services.JobState{
			"a": {Status: "running", Progress: models.Float(60)},
			"b": {Status: "failed"},
			"c": {Status: "done", Result: &models.Item{URL: "https://cdn/c.png", JobID: "c"}},
		}}
		e, _ := newTestEngine(producer)
		for _, id := range []string{"a", "b", "c"} {
			e.Registry().AddJob(models.Job{ID: id, Status: models.JobProcessing})
		}
		e.Registry().AddJob(models.Job{ID: "finished", Status: models.JobCompleted})

		remaining, err := e.Poll(context.Background(), make(chan ProgressUpdate, 20))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if remaining != 1 {
			t.Errorf("expected one active job left, got %d", remaining)
		}
		if len(producer.Polled) != 3 {
			t.Errorf("terminal jobs must not be polled, polled %v", producer.Polled)
		}

		b, _ := e.Registry().Get("b")
		if b.Status != models.JobFailed || b.Error == "" {
			t.Errorf("expected b failed with message, got %+v", b)
		}
		a, _ := e.Registry().Get("a")
		if p, _ := a.DisplayProgress(); p != 60 || a.ProgressUpdatedAt != nil {
			t.Errorf("expected reported progress without a client estimate, got %v %+v", p, a)
		}
		c, _ := e.Registry().Get("c")
		if c.Status != models.JobCompleted || c.Progress != 100 {
			t.Errorf("expected c completed at 100, got %+v", c)
		}
	})

	t.Run("poll errors keep job processing and estimate progress", func(t *testing.T) {
		producer := &tu.MockProducer{StatusErr: errors.New("timeout")}
		e, clock := newTestEngine(producer)
		e.Registry().AddJob(models.Job{ID: "a", Status: models.JobProcessing, Model: "flux"})
		clock.Advance(9 * time.Second)

		if _, err := e.Poll(context.Background(), nil); err != nil {
			t.Fatalf("poll must not surface producer errors: %v", err)
		}

		a, _ := e.Registry().Get("a")
		if a.Status != models.JobProcessing {
			t.Errorf("expected processing, got %s", a.Status)
		}
		if a.Progress <= 0 || a.Progress > estimateCap {
			t.Errorf("expected client estimate in (0, %v], got %v", estimateCap, a.Progress)
		}
	})

	t.Run("Watch returns once nothing is active", func(t *testing.T) {
		producer := &tu.MockProducer{States: map[string]*services.JobState{"a": {Status: "completed"}}}
		e, _ := newTestEngine(producer)
		e.Registry().AddJob(models.Job{ID: "a", Status: models.JobQueued})

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := e.Watch(ctx, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("Watch honours cancellation", func(t *testing.T) {
		producer := &tu.MockProducer{States: map[string]*services.JobState{"a": {Status: "running"}}}
		e, _ := newTestEngine(producer)
		e.Registry().AddJob(models.Job{ID: "a", Status: models.JobQueued})

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if err := e.Watch(ctx, nil); err == nil {
			t.Error("expected an error once the context expires")
		}
	})
}

func TestEngineReconcileAndSweep(t *testing.T) {
	e, clock := newTestEngine(&tu.MockProducer{})
	e.Registry().AddJob(models.Job{ID: "done", Status: models.JobCompleted})
	e.Registry().AddJob(models.Job{ID: "stuck", Status: models.JobProcessing})

	if removed := e.Reconcile([]models.Item{{JobID: "done"}}); len(removed) != 1 {
		t.Errorf("expected done pruned, got %v", removed)
	}

	clock.Advance(11 * time.Minute)
	progress := make(chan ProgressUpdate, 1)
	failed, _ := e.Sweep(progress)
	if len(failed) != 1 || failed[0] != "stuck" {
		t.Errorf("expected stuck timed out, got %v", failed)
	}
	if got := <-progress; got.Phase != SweepJobs {
		t.Errorf("expected sweep update, got %s", got.Phase)
	}
}

func TestEngineReconcileByResult(t *testing.T) {
	producer := &tu.MockProducer{StartFn: func(req services.GenerationRequest) (*services.JobState, error) {
		return &services.JobState{
			JobID:  "j1",
			Status: "succeeded",
			Result: &models.Item{RemoteFileID: "f1", URL: "https://cdn/out.png?sig=1"},
		}, nil
	}}
	e, _ := newTestEngine(producer)
	e.Dispatch(context.Background(), services.GenerationRequest{ClientJobID: "c1", Prompt: "owl"}, nil)

	page := []models.Item{{RemoteFileID: "f1", URL: "https://cdn/out.png"}}
	if entries := Merge(e.Registry().Snapshot(), page, Filter{}); len(entries) != 1 || entries[0].Placeholder() {
		t.Fatalf("expected only the persisted record, got %+v", Identities(entries))
	}

	removed := e.Reconcile(page)
	if len(removed) != 1 || removed[0] != "j1" {
		t.Errorf("expected j1 pruned once its result is persisted, got %v", removed)
	}
	if e.Registry().Len() != 0 {
		t.Errorf("expected empty registry, got %d jobs", e.Registry().Len())
	}
}
