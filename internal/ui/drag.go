package ui

import (
	"strings"
	"sync"
)

// Preview is the floating element that follows the cursor during a drag.
type Preview struct {
	ID  int // increases with every Begin
	URL string
	X   int
	Y   int
}

// DragChannel carries the payload of the drag in progress so drop targets can read it
// before the drop happens. At most one payload and one preview exist at a time.
//
// A single DragChannel is owned by the gallery model and handed to whoever needs it.
type DragChannel struct {
	mu      sync.Mutex
	payload string
	preview *Preview
	created int
}

// NewDragChannel creates an idle channel.
func NewDragChannel() *DragChannel {
	return &DragChannel{}
}

// Begin stores url as the payload and creates a fresh preview, tearing down any previous
// one left by a missed End. Blank urls are ignored.
func (d *DragChannel) Begin(url string) (Preview, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if strings.TrimSpace(url) == "" {
		return Preview{}, false
	}

	d.created++
	d.payload = url
	d.preview = &Preview{ID: d.created, URL: url}
	return *d.preview, true
}

// Move repositions the preview. It reports false when no drag is active.
func (d *DragChannel) Move(x, y int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.preview == nil {
		return false
	}
	d.preview.X, d.preview.Y = x, y
	return true
}

// End clears payload and preview and returns the payload that was being dragged.
func (d *DragChannel) End() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	payload, ok := d.payload, d.preview != nil
	d.payload = ""
	d.preview = nil
	return payload, ok
}

// Payload returns the url being dragged, if any.
func (d *DragChannel) Payload() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.payload, d.preview != nil
}

// Preview returns a copy of the live preview, if any.
func (d *DragChannel) Preview() (Preview, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.preview == nil {
		return Preview{}, false
	}
	return *d.preview, true
}

// Active reports whether a drag is in progress.
func (d *DragChannel) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.preview != nil
}
