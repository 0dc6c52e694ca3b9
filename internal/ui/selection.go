package ui

import (
	"strings"
	"sync"
)

// Selection is the set of selected identities plus the anchor used for range selection.
//
// Identities that are not (or no longer) part of the rendered sequence are accepted: the
// sequence may change underneath a queued action. Whenever the set drops to zero members
// while bulk mode is on, bulk mode is turned off.
type Selection struct {
	mu     sync.Mutex
	ids    map[string]struct{}
	order  []string
	anchor int
	bulk   bool
}

// NewSelection creates an empty selection outside bulk mode.
func NewSelection() *Selection {
	return &Selection{ids: make(map[string]struct{}), anchor: -1}
}

// Toggle flips membership of identity and reports whether it is now selected.
// Empty identities are ignored.
func (s *Selection) Toggle(identity string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.toggle(identity)
}

// ToggleAt toggles the identity at index of sequence and moves the anchor there.
func (s *Selection) ToggleAt(index int, sequence []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(sequence) {
		return false
	}
	s.anchor = index
	return s.toggle(sequence[index])
}

// SelectRange adds every identity between from and to, inclusive and in either order, of
// the rendered sequence. Out of range indices are clamped. It returns how many identities
// were newly added.
func (s *Selection) SelectRange(from, to int, sequence []string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectRange(from, to, sequence)
}

// ExtendTo selects from the anchor to index, like a shift-click. Without an anchor only
// index is selected. The anchor itself does not move.
func (s *Selection) ExtendTo(index int, sequence []string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.anchor
	if from < 0 {
		from = index
		s.anchor = index
	}
	return s.selectRange(from, index, sequence)
}

// SetBulkMode enters or leaves bulk mode. Entering selects nothing; leaving clears the set.
func (s *Selection) SetBulkMode(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bulk = on
	if !on {
		s.reset()
	}
}

// Clear empties the selection, which also ends bulk mode.
func (s *Selection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.ids) > 0 {
		s.bulk = false
	}
	s.reset()
}

// Contains reports whether identity is selected.
func (s *Selection) Contains(identity string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[identity]
	return ok
}

// Selected returns the selected identities in the order they were added.
func (s *Selection) Selected() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of selected identities.
func (s *Selection) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// BulkMode reports whether bulk mode is on.
func (s *Selection) BulkMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bulk
}

// Anchor returns the index of the last toggled row, or -1.
func (s *Selection) Anchor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.anchor
}

func (s *Selection) toggle(identity string) bool {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return false
	}

	if _, ok := s.ids[identity]; ok {
		s.remove(identity)
		return false
	}
	s.add(identity)
	return true
}

func (s *Selection) selectRange(from, to int, sequence []string) int {
	if len(sequence) == 0 {
		return 0
	}
	if from > to {
		from, to = to, from
	}
	from = max(from, 0)
	to = min(to, len(sequence)-1)

	added := 0
	for i := from; i <= to; i++ {
		id := strings.TrimSpace(sequence[i])
		if id == "" {
			continue
		}
		if _, ok := s.ids[id]; !ok {
			s.add(id)
			added++
		}
	}
	return added
}

func (s *Selection) add(id string) {
	s.ids[id] = struct{}{}
	s.order = append(s.order, id)
}

func (s *Selection) remove(id string) {
	delete(s.ids, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if len(s.ids) == 0 && s.bulk {
		s.bulk = false
		s.anchor = -1
	}
}

func (s *Selection) reset() {
	s.ids = make(map[string]struct{})
	s.order = nil
	s.anchor = -1
}
