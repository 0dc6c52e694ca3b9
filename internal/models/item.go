package models

import (
	"path"
	"strings"
	"time"
)

// MediaKind distinguishes image and video artifacts.
type MediaKind string

const (
	KindImage MediaKind = "image"
	KindVideo MediaKind = "video"
)

var videoExtensions = map[string]bool{
	".mp4":  true,
	".webm": true,
	".mov":  true,
	".m4v":  true,
}

// videoModelHints are substrings of provider model names that only produce video.
var videoModelHints = []string{"video", "veo", "kling", "runway", "seedance", "hailuo", "wan-"}

// Item is a generated artifact, either a persisted record or a job's terminal result.
type Item struct {
	URL          string    `json:"url"`
	JobID        string    `json:"job_id,omitempty"`
	RemoteFileID string    `json:"remote_file_id,omitempty"`
	Prompt       string    `json:"prompt,omitempty"`
	Model        string    `json:"model,omitempty"`
	Kind         MediaKind `json:"kind,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	IsLiked      bool      `json:"is_liked"`
	IsPublic     bool      `json:"is_public"`
	References   []string  `json:"references,omitempty"`
	OwnerID      string    `json:"owner_id,omitempty"`
	AvatarID     string    `json:"avatar_id,omitempty"`
	ProductID    string    `json:"product_id,omitempty"`
	StyleID      string    `json:"style_id,omitempty"`
	AspectRatio  string    `json:"aspect_ratio,omitempty"`
}

// Identity returns the item's canonical identity, or "" when it has none.
func (i Item) Identity() string {
	return Identity(i.JobID, i.RemoteFileID, i.URL)
}

// MediaKind reports the declared kind, falling back to the url extension and then the model name.
func (i Item) MediaKind() MediaKind {
	if i.Kind != "" {
		return i.Kind
	}
	if videoExtensions[strings.ToLower(path.Ext(StripQuery(i.URL)))] {
		return KindVideo
	}
	return KindForModel(i.Model)
}

// HasReference reports whether url is among the item's references, ignoring query strings.
func (i Item) HasReference(url string) bool {
	for _, ref := range i.References {
		if SameContent(ref, url) {
			return true
		}
	}
	return false
}

// KindForModel infers the media kind a model produces. Unknown models produce images.
func KindForModel(model string) MediaKind {
	m := strings.ToLower(model)
	for _, hint := range videoModelHints {
		if strings.Contains(m, hint) {
			return KindVideo
		}
	}
	return KindImage
}
