package models

import (
	"math"
	"strings"
	"time"
)

// JobStatus enumerates job lifecycle states.
//
// queued → processing → {completed, failed}; processing may repeat indefinitely.
type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Valid reports whether s is a known status.
func (s JobStatus) Valid() bool {
	switch s {
	case JobQueued, JobProcessing, JobCompleted, JobFailed:
		return true
	}
	return false
}

// Terminal reports whether s is completed or failed.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// ParseJobStatus maps provider vocabulary onto [JobStatus].
func ParseJobStatus(raw string) (JobStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "queued", "pending", "submitted", "starting":
		return JobQueued, true
	case "processing", "running", "in_progress", "generating":
		return JobProcessing, true
	case "completed", "succeeded", "success", "done":
		return JobCompleted, true
	case "failed", "error", "canceled", "cancelled":
		return JobFailed, true
	}
	return "", false
}

// Job is an in-flight unit of generation work.
type Job struct {
	ID                       string     `json:"id"`
	Prompt                   string     `json:"prompt"`
	Model                    string     `json:"model,omitempty"`
	Kind                     MediaKind  `json:"kind,omitempty"`
	Status                   JobStatus  `json:"status"`
	Progress                 float64    `json:"progress"`                              // client estimate, 0-100
	ProgressUpdatedAt        *time.Time `json:"progress_updated_at,omitempty"`         // when Progress was last set
	BackendProgress          *float64   `json:"backend_progress,omitempty"`            // server reported, 0-100
	BackendProgressUpdatedAt *time.Time `json:"backend_progress_updated_at,omitempty"` // when BackendProgress was last set
	StartedAt                time.Time  `json:"started_at"`
	UpdatedAt                time.Time  `json:"updated_at"`
	References               []string   `json:"references,omitempty"`
	SourceIdentity           string     `json:"source_identity,omitempty"` // identity of the item a derivative job was made from
	Error                    string     `json:"error,omitempty"`
	Result                   *Item      `json:"result,omitempty"` // terminal result returned by the producer, if any
}

// Identity is the job's own id; a job has no persisted identity yet.
func (j Job) Identity() string {
	return strings.TrimSpace(j.ID)
}

// MediaKind returns the declared kind or the kind implied by the model.
func (j Job) MediaKind() MediaKind {
	if j.Kind != "" {
		return j.Kind
	}
	return KindForModel(j.Model)
}

// DisplayProgress returns the percentage to render and whether the bar should be indeterminate.
//
// Backend progress wins when it is a positive number, unless a positive client estimate was
// stamped strictly after it. When neither is positive the job is "preparing" and no 0% bar
// is drawn.
func (j Job) DisplayProgress() (float64, bool) {
	if j.Status == JobCompleted {
		return 100, false
	}
	if j.BackendProgress != nil && *j.BackendProgress > 0 && !j.estimateFresher() {
		return ClampProgress(*j.BackendProgress), false
	}
	if j.Progress > 0 {
		return ClampProgress(j.Progress), false
	}
	return 0, true
}

func (j Job) estimateFresher() bool {
	if j.Progress <= 0 || j.ProgressUpdatedAt == nil || j.BackendProgressUpdatedAt == nil {
		return false
	}
	return j.ProgressUpdatedAt.After(*j.BackendProgressUpdatedAt)
}

// ClampProgress bounds p to [0,100]; NaN becomes 0.
func ClampProgress(p float64) float64 {
	if math.IsNaN(p) || p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// JobPatch carries the optional fields merged by a status update.
type JobPatch struct {
	Progress        *float64
	BackendProgress *float64
	Error           string
	Result          *Item
}

// Apply merges the patch into j, stamping both progress values with now.
func (p JobPatch) Apply(j *Job, now time.Time) {
	if p.Progress != nil {
		j.Progress = *p.Progress
		j.ProgressUpdatedAt = &now
	}
	if p.BackendProgress != nil {
		v := *p.BackendProgress
		j.BackendProgress = &v
		j.BackendProgressUpdatedAt = &now
	}
	if p.Error != "" {
		j.Error = p.Error
	}
	if p.Result != nil {
		r := *p.Result
		j.Result = &r
	}
}

// Float returns a pointer to v, for building patches.
func Float(v float64) *float64 {
	return &v
}
