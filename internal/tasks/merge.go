package tasks

import (
	"fmt"
	"slices"
	"strings"

	"github.com/desertthunder/genx/internal/models"
)

// Category restricts the merged sequence to a subset of items.
type Category string

const (
	CategoryAll    Category = "all"
	CategoryImages Category = "images"
	CategoryVideos Category = "videos"
	CategoryLiked  Category = "liked"
	CategoryPublic Category = "public"
)

// ParseCategory validates a category name; "" means [CategoryAll].
func ParseCategory(raw string) (Category, error) {
	switch c := Category(strings.ToLower(strings.TrimSpace(raw))); c {
	case "":
		return CategoryAll, nil
	case CategoryAll, CategoryImages, CategoryVideos, CategoryLiked, CategoryPublic:
		return c, nil
	default:
		return "", fmt.Errorf("unknown category %q", raw)
	}
}

// Filter selects which entries the merger keeps.
//
// Category and Allow apply to persisted items. Jobs only carry a declared kind, so they are
// matched by kind for image/video categories and dropped whenever the filter needs persisted
// attributes (liked, public, allow-list, avatar, product).
type Filter struct {
	Category  Category
	Allow     []string // identities; empty means no restriction
	Reference string   // keep items derived from this source url
	AvatarID  string
	ProductID string
}

func (f Filter) persistedOnly() bool {
	return f.Category == CategoryLiked || f.Category == CategoryPublic ||
		len(f.Allow) > 0 || f.AvatarID != "" || f.ProductID != ""
}

func (f Filter) matchItem(item models.Item, allow map[string]struct{}) bool {
	switch f.Category {
	case CategoryImages:
		if item.MediaKind() != models.KindImage {
			return false
		}
	case CategoryVideos:
		if item.MediaKind() != models.KindVideo {
			return false
		}
	case CategoryLiked:
		if !item.IsLiked {
			return false
		}
	case CategoryPublic:
		if !item.IsPublic {
			return false
		}
	}

	if allow != nil {
		if _, ok := allow[item.Identity()]; !ok {
			return false
		}
	}
	if f.Reference != "" && !item.HasReference(f.Reference) {
		return false
	}
	if f.AvatarID != "" && strings.TrimSpace(item.AvatarID) != f.AvatarID {
		return false
	}
	if f.ProductID != "" && strings.TrimSpace(item.ProductID) != f.ProductID {
		return false
	}
	return true
}

func (f Filter) matchJob(job models.Job) bool {
	if f.persistedOnly() {
		return false
	}
	switch f.Category {
	case CategoryImages:
		if job.MediaKind() != models.KindImage {
			return false
		}
	case CategoryVideos:
		if job.MediaKind() != models.KindVideo {
			return false
		}
	}
	if f.Reference != "" && !slices.ContainsFunc(job.References, func(ref string) bool {
		return models.SameContent(ref, f.Reference)
	}) {
		return false
	}
	return true
}

// Entry is one element of the rendered sequence.
//
// Placeholders carry Job and, when the producer answered synchronously, the result in Item.
// Persisted entries carry only Item.
type Entry struct {
	Identity      string
	Item          *models.Item
	Job           *models.Job
	Progress      float64
	Indeterminate bool
}

// Placeholder reports whether the entry stands in for an active job.
func (e Entry) Placeholder() bool {
	return e.Job != nil
}

// URL returns the raw content url, query included, or "" for a placeholder without a result.
func (e Entry) URL() string {
	if e.Item != nil {
		return e.Item.URL
	}
	return ""
}

// Label is a short human description of the entry.
func (e Entry) Label() string {
	switch {
	case e.Item != nil && e.Item.Prompt != "":
		return e.Item.Prompt
	case e.Job != nil && e.Job.Prompt != "":
		return e.Job.Prompt
	case e.Identity != "":
		return e.Identity
	default:
		return "(untitled)"
	}
}

// Merge combines the job snapshot and the persisted items into one render-ordered sequence.
//
// Active job placeholders come first, newest first, followed by persisted items in fetch
// order. A job is dropped when its id (or the identity or url of its result) is already
// present among persisted items, and failed jobs are never part of the sequence. Duplicate
// persisted identities keep their first occurrence. Unidentifiable items are always kept.
//
// Merge is pure: the same inputs always yield the same sequence.
func Merge(jobs []models.Job, persisted []models.Item, filter Filter) []Entry {
	seen, urls := persistedKeys(persisted)

	active := make([]models.Job, 0, len(jobs))
	for _, job := range jobs {
		id := job.Identity()
		if id == "" || job.Status == models.JobFailed {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		if job.Result != nil && resultPersisted(*job.Result, seen, urls) {
			continue
		}
		if !filter.matchJob(job) {
			continue
		}
		active = append(active, cloneJob(job))
	}
	sortNewestFirst(active)

	var allow map[string]struct{}
	if len(filter.Allow) > 0 {
		allow = make(map[string]struct{}, len(filter.Allow))
		for _, id := range filter.Allow {
			if id = strings.TrimSpace(id); id != "" {
				allow[id] = struct{}{}
			}
		}
	}

	entries := make([]Entry, 0, len(active)+len(persisted))
	emitted := make(map[string]struct{}, len(active)+len(persisted))

	for i := range active {
		job := &active[i]
		p, indeterminate := job.DisplayProgress()
		entries = append(entries, Entry{
			Identity:      job.ID,
			Item:          job.Result,
			Job:           job,
			Progress:      p,
			Indeterminate: indeterminate,
		})
		emitted[job.ID] = struct{}{}
	}

	for _, item := range persisted {
		id := item.Identity()
		if id != "" {
			if _, dup := emitted[id]; dup {
				continue
			}
		}
		if !filter.matchItem(item, allow) {
			continue
		}
		if id != "" {
			emitted[id] = struct{}{}
		}
		it := item
		entries = append(entries, Entry{Identity: id, Item: &it, Progress: 100})
	}

	return entries
}

// FailedJobs returns the failed jobs in snapshot order, for inline dismissible errors.
func FailedJobs(jobs []models.Job) []models.Job {
	var failed []models.Job
	for _, job := range jobs {
		if job.Status == models.JobFailed {
			failed = append(failed, cloneJob(job))
		}
	}
	return failed
}

// Identities returns the identities of entries in order, "" for unidentifiable ones.
func Identities(entries []Entry) []string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.Identity
	}
	return ids
}

// Items returns the items carried by entries, skipping placeholders without a result.
func Items(entries []Entry) []models.Item {
	var items []models.Item
	for _, e := range entries {
		if e.Item != nil {
			items = append(items, *e.Item)
		}
	}
	return items
}

func persistedKeys(items []models.Item) (map[string]struct{}, map[string]struct{}) {
	seen := make(map[string]struct{}, len(items))
	urls := make(map[string]struct{}, len(items))
	for _, item := range items {
		if id := item.Identity(); id != "" {
			seen[id] = struct{}{}
		}
		// A record may carry both ids; the job id alone must still suppress its placeholder.
		if id := strings.TrimSpace(item.JobID); id != "" {
			seen[id] = struct{}{}
		}
		if u := models.StripQuery(item.URL); u != "" {
			urls[u] = struct{}{}
		}
	}
	return seen, urls
}

func resultPersisted(result models.Item, seen, urls map[string]struct{}) bool {
	if id := result.Identity(); id != "" {
		if _, ok := seen[id]; ok {
			return true
		}
	}
	if u := models.StripQuery(result.URL); u != "" {
		if _, ok := urls[u]; ok {
			return true
		}
	}
	return false
}
