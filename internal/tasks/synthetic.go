package tasks

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const fragmentLen = 12

// DeriveOp names a client-initiated derivative operation.
type DeriveOp string

const (
	OpEdit  DeriveOp = "edit"
	OpVideo DeriveOp = "video"
)

// SyntheticJobID builds a job id for a derivative operation without server coordination.
//
// The id is "<op>-<fragment>-<millis base36>-<random>", where fragment is the tail of the
// source identity reduced to lowercase alphanumerics.
func SyntheticJobID(op DeriveOp, sourceIdentity string, now time.Time) string {
	prefix := sanitizeFragment(string(op))
	if prefix == "" {
		prefix = "job"
	}

	frag := sanitizeFragment(sourceIdentity)
	if len(frag) > fragmentLen {
		frag = frag[len(frag)-fragmentLen:]
	}
	if frag == "" {
		frag = "src"
	}

	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return prefix + "-" + frag + "-" + strconv.FormatInt(now.UnixMilli(), 36) + "-" + suffix
}

func sanitizeFragment(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
