package ui

import (
	"slices"
	"testing"
)

func TestSelection(t *testing.T) {
	seq := []string{"a", "b", "", "d", "e"}

	t.Run("Toggle", func(t *testing.T) {
		s := NewSelection()
		if !s.Toggle("a") || !s.Contains("a") {
			t.Fatal("expected a selected")
		}
		if s.Toggle("a") || s.Contains("a") {
			t.Fatal("expected a deselected")
		}
		if s.Toggle("  ") || s.Len() != 0 {
			t.Error("blank identities must be ignored")
		}
		if !s.Toggle("gone") {
			t.Error("identities outside the sequence are accepted")
		}
	})

	t.Run("emptying the set leaves bulk mode", func(t *testing.T) {
		s := NewSelection()
		s.SetBulkMode(true)
		s.Toggle("a")
		s.Toggle("b")

		s.Toggle("a")
		if !s.BulkMode() {
			t.Fatal("bulk mode must stay on while items remain")
		}
		s.Toggle("b")
		if s.BulkMode() {
			t.Error("expected bulk mode off once the set is empty")
		}
	})

	t.Run("entering bulk mode selects nothing", func(t *testing.T) {
		s := NewSelection()
		s.SetBulkMode(true)
		if !s.BulkMode() || s.Len() != 0 {
			t.Errorf("expected empty bulk selection, got %d", s.Len())
		}
	})

	t.Run("leaving bulk mode clears the set", func(t *testing.T) {
		s := NewSelection()
		s.SetBulkMode(true)
		s.Toggle("a")
		s.SetBulkMode(false)
		if s.Len() != 0 || s.Anchor() != -1 {
			t.Error("expected cleared selection")
		}
	})

	t.Run("SelectRange", func(t *testing.T) {
		tests := []struct {
			name     string
			from, to int
			want     []string
		}{
			{"inclusive", 0, 1, []string{"a", "b"}},
			{"order independent", 4, 3, []string{"d", "e"}},
			{"skips unidentifiable", 1, 3, []string{"b", "d"}},
			{"single index", 3, 3, []string{"d"}},
			{"clamped", -5, 99, []string{"a", "b", "d", "e"}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				s := NewSelection()
				added := s.SelectRange(tt.from, tt.to, seq)
				if got := s.Selected(); !slices.Equal(got, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, got)
				}
				if added != len(tt.want) {
					t.Errorf("expected %d added, got %d", len(tt.want), added)
				}
			})
		}

		t.Run("adds to existing selection", func(t *testing.T) {
			s := NewSelection()
			s.Toggle("e")
			if added := s.SelectRange(3, 4, seq); added != 1 {
				t.Errorf("expected only d to be new, got %d", added)
			}
			if s.Len() != 2 {
				t.Errorf("expected 2 selected, got %d", s.Len())
			}
		})

		t.Run("empty sequence", func(t *testing.T) {
			s := NewSelection()
			if s.SelectRange(0, 3, nil) != 0 {
				t.Error("expected no-op")
			}
		})
	})

	t.Run("anchor based extension", func(t *testing.T) {
		s := NewSelection()
		s.ToggleAt(1, seq)
		if s.Anchor() != 1 {
			t.Fatalf("expected anchor 1, got %d", s.Anchor())
		}

		s.ExtendTo(4, seq)
		want := []string{"b", "d", "e"}
		if got := s.Selected(); !slices.Equal(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
		if s.Anchor() != 1 {
			t.Error("extending must not move the anchor")
		}

		if s.ToggleAt(10, seq) {
			t.Error("out of range index must be ignored")
		}
	})

	t.Run("ExtendTo without anchor", func(t *testing.T) {
		s := NewSelection()
		s.ExtendTo(3, seq)
		if got := s.Selected(); !slices.Equal(got, []string{"d"}) || s.Anchor() != 3 {
			t.Errorf("expected d selected with anchor 3, got %v anchor %d", got, s.Anchor())
		}
	})

	t.Run("Clear", func(t *testing.T) {
		s := NewSelection()
		s.SetBulkMode(true)
		s.Toggle("a")
		s.Clear()
		if s.Len() != 0 || s.BulkMode() {
			t.Error("expected empty selection outside bulk mode")
		}
	})
}
