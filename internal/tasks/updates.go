package tasks

import (
	"fmt"

	"github.com/desertthunder/genx/internal/models"
	"github.com/desertthunder/genx/internal/shared"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	DispatchJob Phase = iota
	PollJobs
	JobFinished
	SweepJobs
	FetchPage
	SyncPrompts
	SyncHistory
	DownloadItems
)

func (p Phase) String() string {
	switch p {
	case DispatchJob:
		return "dispatch_job"
	case PollJobs:
		return "poll_jobs"
	case JobFinished:
		return "job_finished"
	case SweepJobs:
		return "sweep_jobs"
	case FetchPage:
		return "fetch_page"
	case SyncPrompts:
		return "sync_prompts"
	case SyncHistory:
		return "sync_history"
	case DownloadItems:
		return "download_items"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func dispatchUpdate(job models.Job) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DispatchJob,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Dispatched %s (%s): %s", job.ID, job.Model, shared.Truncate(job.Prompt, 48)),
		Data:    job,
	}
}

func pollUpdate(step, total int, job models.Job) ProgressUpdate {
	p, indeterminate := job.DisplayProgress()
	msg := fmt.Sprintf("[%d/%d] %s %s %.0f%%", step, total, job.ID, job.Status, p)
	if indeterminate {
		msg = fmt.Sprintf("[%d/%d] %s preparing...", step, total, job.ID)
	}
	return ProgressUpdate{
		Phase:   PollJobs,
		Step:    step,
		Total:   total,
		Message: msg,
		Data:    job,
	}
}

func finishedUpdate(job models.Job) ProgressUpdate {
	msg := fmt.Sprintf("✓ %s completed", job.ID)
	if job.Status == models.JobFailed {
		msg = fmt.Sprintf("✗ %s failed: %s", job.ID, job.Error)
	}
	return ProgressUpdate{
		Phase:   JobFinished,
		Step:    1,
		Total:   1,
		Message: msg,
		Data:    job,
	}
}

func sweepUpdate(failed, removed []string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SweepJobs,
		Step:    len(failed) + len(removed),
		Total:   len(failed) + len(removed),
		Message: fmt.Sprintf("Timed out %d job(s), dropped %d unconfirmed", len(failed), len(removed)),
	}
}

func fetchPageUpdate(page, count int, hasMore bool) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPage,
		Step:    page,
		Total:   page,
		Message: fmt.Sprintf("Fetched page %d (%d items, more: %v)", page, count, hasMore),
	}
}

func syncUpdate(phase Phase, pulled, pushed int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   phase,
		Step:    pulled + pushed,
		Total:   pulled + pushed,
		Message: fmt.Sprintf("Pulled %d, pushed %d", pulled, pushed),
	}
}

func downloadingUpdate(step, total int, item models.Item) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DownloadItems,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Downloading %s...", step, total, item.Identity()),
	}
}

func downloadCompletedUpdate(step, total int, path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DownloadItems,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s", step, total, path),
	}
}

func downloadFailedUpdate(step, total int, identity string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DownloadItems,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, identity, err),
	}
}
