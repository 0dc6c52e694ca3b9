package tasks

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/genx/internal/models"
)

// Registry holds the in-flight generation jobs of one session.
//
// All mutation goes through its methods. Missing ids are never an error: cleanup races
// between completion, polling and user dismissal are expected.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*models.Job
	now  func() time.Time
}

// NewRegistry creates an empty Registry using the wall clock.
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*models.Job), now: time.Now}
}

// AddJob inserts job keyed by its id. An existing job with the same id is overwritten.
// Jobs without an id are ignored.
func (r *Registry) AddJob(job models.Job) {
	id := job.Identity()
	if id == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	job.ID = id
	if !job.Status.Valid() {
		job.Status = models.JobQueued
	}
	if job.StartedAt.IsZero() {
		job.StartedAt = now
	}
	if job.UpdatedAt.IsZero() {
		job.UpdatedAt = job.StartedAt
	}
	c := cloneJob(job)
	r.jobs[id] = &c
}

// UpdateJobStatus transitions the job and merges patch into it.
//
// It reports false when the id is unknown or the job is already terminal; a late poll
// result for a finished or removed job is dropped. An unrecognized status keeps the current
// one and still merges the patch.
func (r *Registry) UpdateJobStatus(id string, status models.JobStatus, patch models.JobPatch) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[strings.TrimSpace(id)]
	if !ok || job.Status.Terminal() {
		return false
	}

	now := r.now()
	before := cloneJob(*job)
	if status.Valid() {
		job.Status = status
	}
	patch.Apply(job, now)
	if changed(before, *job) {
		job.UpdatedAt = now
	}
	return true
}

// SetEstimate raises the client progress estimate of an active job. It never lowers the
// estimate and does not count as activity for [Registry.ExpireStale].
func (r *Registry) SetEstimate(id string, progress float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[strings.TrimSpace(id)]
	if !ok || job.Status.Terminal() || progress <= job.Progress {
		return false
	}
	now := r.now()
	job.Progress = progress
	job.ProgressUpdatedAt = &now
	return true
}

// RemoveJob deletes the job. Removing an unknown id is a no-op.
func (r *Registry) RemoveJob(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, strings.TrimSpace(id))
}

// Rename re-keys a job when the producer assigns an id different from the client's.
// The target id is overwritten if present.
func (r *Registry) Rename(oldID, newID string) bool {
	oldID, newID = strings.TrimSpace(oldID), strings.TrimSpace(newID)
	if oldID == "" || newID == "" || oldID == newID {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[oldID]
	if !ok {
		return false
	}
	delete(r.jobs, oldID)
	job.ID = newID
	r.jobs[newID] = job
	return true
}

// Get returns a copy of the job with id.
func (r *Registry) Get(id string) (models.Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[strings.TrimSpace(id)]
	if !ok {
		return models.Job{}, false
	}
	return cloneJob(*job), true
}

// Len returns the number of tracked jobs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// Snapshot returns copies of all jobs, newest first.
func (r *Registry) Snapshot() []models.Job {
	r.mu.RLock()
	jobs := make([]models.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		jobs = append(jobs, cloneJob(*job))
	}
	r.mu.RUnlock()

	sortNewestFirst(jobs)
	return jobs
}

// Active returns the ids of queued and processing jobs.
func (r *Registry) Active() []string {
	var ids []string
	for _, job := range r.Snapshot() {
		if !job.Status.Terminal() {
			ids = append(ids, job.ID)
		}
	}
	return ids
}

// Prune removes completed jobs confirmed present among persisted items, returning their ids.
// A job is confirmed by its own id or by the identity or query-stripped url of its result.
func (r *Registry) Prune(persisted []models.Item) []string {
	seen, urls := persistedKeys(persisted)

	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []string
	for id, job := range r.jobs {
		if job.Status != models.JobCompleted {
			continue
		}
		_, confirmed := seen[id]
		if !confirmed && job.Result != nil {
			confirmed = resultPersisted(*job.Result, seen, urls)
		}
		if confirmed {
			delete(r.jobs, id)
			removed = append(removed, id)
		}
	}
	slices.Sort(removed)
	return removed
}

// ExpireStale enforces the staleness timeout.
//
// A job is idle while updates change nothing: same status, progress, error and result.
// Queued and processing jobs idle for longer than timeout are failed. Completed jobs whose
// persisted record has not shown up within the same window are removed. Failed jobs stay
// until discarded.
func (r *Registry) ExpireStale(timeout time.Duration) (failed, removed []string) {
	if timeout <= 0 {
		return nil, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for id, job := range r.jobs {
		if now.Sub(job.UpdatedAt) < timeout {
			continue
		}
		switch job.Status {
		case models.JobQueued, models.JobProcessing:
			job.Status = models.JobFailed
			job.Error = "timed out"
			job.UpdatedAt = now
			failed = append(failed, id)
		case models.JobCompleted:
			delete(r.jobs, id)
			removed = append(removed, id)
		}
	}
	slices.Sort(failed)
	slices.Sort(removed)
	return failed, removed
}

func changed(a, b models.Job) bool {
	if a.Status != b.Status || a.Progress != b.Progress || a.Error != b.Error {
		return true
	}
	if (a.BackendProgress == nil) != (b.BackendProgress == nil) {
		return true
	}
	if a.BackendProgress != nil && *a.BackendProgress != *b.BackendProgress {
		return true
	}
	return (a.Result == nil) != (b.Result == nil)
}

func sortNewestFirst(jobs []models.Job) {
	slices.SortStableFunc(jobs, func(a, b models.Job) int {
		if c := b.StartedAt.Compare(a.StartedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

func cloneJob(j models.Job) models.Job {
	j.References = slices.Clone(j.References)
	if j.BackendProgress != nil {
		v := *j.BackendProgress
		j.BackendProgress = &v
	}
	if j.ProgressUpdatedAt != nil {
		t := *j.ProgressUpdatedAt
		j.ProgressUpdatedAt = &t
	}
	if j.BackendProgressUpdatedAt != nil {
		t := *j.BackendProgressUpdatedAt
		j.BackendProgressUpdatedAt = &t
	}
	if j.Result != nil {
		item := *j.Result
		item.References = slices.Clone(item.References)
		j.Result = &item
	}
	return j
}
