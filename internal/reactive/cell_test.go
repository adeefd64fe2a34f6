package reactive

import "testing"

func TestCellGetUpdate(t *testing.T) {
	c := NewCell(1)
	if got := c.Get(); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}

	c.Update(2)
	if got := c.Get(); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
}

func TestCellSubscribeNotifiesAndCleansUp(t *testing.T) {
	c := NewCell("a")

	var seen []string
	cleanup := c.Subscribe(func(v string) {
		seen = append(seen, v)
	})

	c.Update("b")
	c.Update("c")

	if len(seen) != 2 || seen[0] != "b" || seen[1] != "c" {
		t.Fatalf("unexpected notifications: %v", seen)
	}

	cleanup()
	c.Update("d")

	if len(seen) != 2 {
		t.Fatalf("expected no further notifications after cleanup, got %v", seen)
	}
}
