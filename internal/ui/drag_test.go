package ui

import "testing"

func TestDragChannel(t *testing.T) {
	t.Run("single preview follows the cursor", func(t *testing.T) {
		d := NewDragChannel()

		first, ok := d.Begin("img.png")
		if !ok || first.ID != 1 {
			t.Fatalf("expected first preview, got %+v", first)
		}

		d.Move(10, 20)
		d.Move(15, 25)

		p, ok := d.Preview()
		if !ok || p.ID != first.ID || p.X != 15 || p.Y != 25 {
			t.Errorf("expected the same preview at (15,25), got %+v", p)
		}
		if payload, _ := d.Payload(); payload != "img.png" {
			t.Errorf("expected payload readable mid-drag, got %q", payload)
		}

		payload, ok := d.End()
		if !ok || payload != "img.png" {
			t.Errorf("expected payload on end, got %q", payload)
		}
		if _, ok := d.Preview(); ok {
			t.Error("expected preview removed")
		}

		second, _ := d.Begin("img.png")
		if second.ID != 2 || second.X != 0 || second.Y != 0 {
			t.Errorf("expected exactly one new preview, got %+v", second)
		}
	})

	t.Run("begin tears down a missed end", func(t *testing.T) {
		d := NewDragChannel()
		d.Begin("a.png")
		d.Move(5, 5)
		d.Begin("b.png")

		p, _ := d.Preview()
		if p.URL != "b.png" || p.X != 0 {
			t.Errorf("expected fresh preview for b.png, got %+v", p)
		}
		if payload, _ := d.Payload(); payload != "b.png" {
			t.Errorf("expected payload replaced, got %q", payload)
		}
	})

	t.Run("idle channel", func(t *testing.T) {
		d := NewDragChannel()
		if d.Move(1, 1) || d.Active() {
			t.Error("expected no active drag")
		}
		if _, ok := d.End(); ok {
			t.Error("expected nothing to end")
		}
		if _, ok := d.Begin(" "); ok || d.Active() {
			t.Error("blank payloads must not start a drag")
		}
	})
}
