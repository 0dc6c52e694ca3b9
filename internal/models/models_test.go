package models

import (
	"math"
	"testing"
	"time"
)

func TestIdentity(t *testing.T) {
	tc := []struct {
		name         string
		jobID        string
		remoteFileID string
		url          string
		want         string
	}{
		{name: "job id wins", jobID: "j1", remoteFileID: "f1", url: "https://cdn/x.png", want: "j1"},
		{name: "remote file id when job id blank", jobID: "   ", remoteFileID: "f1", url: "https://cdn/x.png", want: "f1"},
		{name: "url without query", url: "https://cdn/x.png?sig=abc&exp=1", want: "https://cdn/x.png"},
		{name: "url with fragment", url: "https://cdn/x.png#top", want: "https://cdn/x.png"},
		{name: "trimmed url", url: "  https://cdn/x.png  ", want: "https://cdn/x.png"},
		{name: "nothing", jobID: " ", remoteFileID: "", url: "?only=query", want: ""},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := Identity(tt.jobID, tt.remoteFileID, tt.url)
			if got != tt.want {
				t.Errorf("Identity() = %q, want %q", got, tt.want)
			}
			if again := Identity(tt.jobID, tt.remoteFileID, tt.url); again != got {
				t.Errorf("Identity() not deterministic: %q then %q", got, again)
			}
		})
	}
}

func TestItem(t *testing.T) {
	t.Run("Identity ignores query string", func(t *testing.T) {
		a := Item{URL: "https://cdn/a.png?token=1"}
		b := Item{URL: "https://cdn/a.png?token=2"}
		if a.Identity() != b.Identity() {
			t.Errorf("expected equal identities, got %q and %q", a.Identity(), b.Identity())
		}
		if a.URL != "https://cdn/a.png?token=1" {
			t.Error("raw url must be preserved")
		}
	})

	t.Run("Identity prefers job id", func(t *testing.T) {
		item := Item{JobID: "j1", RemoteFileID: "f1", URL: "https://cdn/a.png"}
		if got := item.Identity(); got != "j1" {
			t.Errorf("expected j1, got %q", got)
		}
	})

	t.Run("MediaKind", func(t *testing.T) {
		tc := []struct {
			item Item
			want MediaKind
		}{
			{Item{Kind: KindVideo, URL: "https://cdn/a.png"}, KindVideo},
			{Item{URL: "https://cdn/a.MP4?sig=1"}, KindVideo},
			{Item{URL: "https://cdn/a", Model: "veo-3"}, KindVideo},
			{Item{URL: "https://cdn/a.webp", Model: "flux-pro"}, KindImage},
		}
		for _, tt := range tc {
			if got := tt.item.MediaKind(); got != tt.want {
				t.Errorf("MediaKind(%+v) = %s, want %s", tt.item, got, tt.want)
			}
		}
	})

	t.Run("HasReference", func(t *testing.T) {
		item := Item{References: []string{"https://cdn/ref.png?x=1"}}
		if !item.HasReference("https://cdn/ref.png?x=2") {
			t.Error("expected reference match ignoring query")
		}
		if item.HasReference("") {
			t.Error("empty url must not match")
		}
	})
}

func TestJobDisplayProgress(t *testing.T) {
	earlier := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	later := earlier.Add(time.Second)

	tc := []struct {
		name          string
		job           Job
		want          float64
		indeterminate bool
	}{
		{name: "clamps high client progress", job: Job{Status: JobProcessing, Progress: 140}, want: 100},
		{name: "backend preferred", job: Job{Status: JobProcessing, Progress: 80, BackendProgress: Float(30)}, want: 30},
		{name: "fresher backend wins", job: Job{Status: JobProcessing, Progress: 80, ProgressUpdatedAt: &earlier, BackendProgress: Float(30), BackendProgressUpdatedAt: &later}, want: 30},
		{name: "fresher client estimate wins", job: Job{Status: JobProcessing, Progress: 80, ProgressUpdatedAt: &later, BackendProgress: Float(30), BackendProgressUpdatedAt: &earlier}, want: 80},
		{name: "same instant prefers backend", job: Job{Status: JobProcessing, Progress: 80, ProgressUpdatedAt: &later, BackendProgress: Float(30), BackendProgressUpdatedAt: &later}, want: 30},
		{name: "zero backend falls back", job: Job{Status: JobProcessing, Progress: 20, BackendProgress: Float(0)}, want: 20},
		{name: "nothing positive", job: Job{Status: JobQueued}, want: 0, indeterminate: true},
		{name: "negative is preparing", job: Job{Status: JobProcessing, Progress: -5}, want: 0, indeterminate: true},
		{name: "completed is full", job: Job{Status: JobCompleted, Progress: 10}, want: 100},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got, indeterminate := tt.job.DisplayProgress()
			if got != tt.want || indeterminate != tt.indeterminate {
				t.Errorf("DisplayProgress() = (%v, %v), want (%v, %v)", got, indeterminate, tt.want, tt.indeterminate)
			}
		})
	}
}

func TestClampProgress(t *testing.T) {
	if got := ClampProgress(math.NaN()); got != 0 {
		t.Errorf("expected NaN to clamp to 0, got %v", got)
	}
	if got := ClampProgress(55.5); got != 55.5 {
		t.Errorf("expected 55.5, got %v", got)
	}
}

func TestParseJobStatus(t *testing.T) {
	tc := map[string]JobStatus{
		"pending":   JobQueued,
		"RUNNING":   JobProcessing,
		"succeeded": JobCompleted,
		"error":     JobFailed,
	}
	for raw, want := range tc {
		got, ok := ParseJobStatus(raw)
		if !ok || got != want {
			t.Errorf("ParseJobStatus(%q) = (%s, %v), want %s", raw, got, ok, want)
		}
	}
	if _, ok := ParseJobStatus("exploded"); ok {
		t.Error("expected unknown status to be rejected")
	}
}

func TestSavedPromptValidate(t *testing.T) {
	if err := NewSavedPrompt(0, "prompts:u1", "a cat").Validate(); err != nil {
		t.Errorf("expected valid prompt, got %v", err)
	}
	if err := NewSavedPrompt(0, "", "a cat").Validate(); err == nil {
		t.Error("expected missing namespace to fail")
	}
	if err := NewHistoryEntry("history:u1", "s1", "robot", "hi", "").Validate(); err == nil {
		t.Error("expected invalid role to fail")
	}
}
