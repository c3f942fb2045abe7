package poller

import "testing"

func TestCrossfadeSwapOnLoad(t *testing.T) {
	c := NewCrossfader("first.jpg")

	if got := c.Visible(); got != "first.jpg" {
		t.Fatalf("visible = %q", got)
	}

	c.Begin("second.jpg")
	if c.Phase() != PhaseLoadingHidden {
		t.Fatalf("phase = %v, want loading", c.Phase())
	}
	// Old image stays up while the new one loads.
	if got := c.Visible(); got != "first.jpg" {
		t.Fatalf("visible during load = %q", got)
	}

	c.Loaded("second.jpg")
	if c.Phase() != PhaseSwapping {
		t.Fatalf("phase = %v, want swapping", c.Phase())
	}
	if got := c.Visible(); got != "second.jpg" {
		t.Fatalf("visible after load = %q", got)
	}

	snap := c.Snapshot()
	if !snap.Transitioning {
		t.Error("snapshot should show a transition in progress")
	}
	if snap.FrontVisible {
		t.Error("back slot should be visible after the first swap")
	}

	c.Settle()
	if c.Phase() != PhaseSettled {
		t.Fatalf("phase = %v, want settled", c.Phase())
	}
}

func TestCrossfadeFailureKeepsVisible(t *testing.T) {
	c := NewCrossfader("first.jpg")

	c.Begin("broken.jpg")
	c.Failed("broken.jpg")

	if c.Phase() != PhaseSettled {
		t.Fatalf("phase = %v, want settled", c.Phase())
	}
	if got := c.Visible(); got != "first.jpg" {
		t.Errorf("visible = %q, failed load must not blank the display", got)
	}
}

func TestCrossfadeNewestLoadWins(t *testing.T) {
	c := NewCrossfader("first.jpg")

	c.Begin("slow.jpg")
	c.Begin("newer.jpg") // track changed again before slow.jpg loaded

	// The stale completion must be ignored.
	c.Loaded("slow.jpg")
	if got := c.Visible(); got != "first.jpg" {
		t.Fatalf("visible = %q, stale load must not swap", got)
	}

	c.Loaded("newer.jpg")
	if got := c.Visible(); got != "newer.jpg" {
		t.Fatalf("visible = %q, want newer.jpg", got)
	}
}

func TestCrossfadeAlternatesSlots(t *testing.T) {
	c := NewCrossfader("a.jpg")

	c.Begin("b.jpg")
	c.Loaded("b.jpg")
	c.Settle()

	c.Begin("c.jpg")
	c.Loaded("c.jpg")
	c.Settle()

	snap := c.Snapshot()
	if !snap.FrontVisible {
		t.Error("front slot should be visible again after two swaps")
	}
	if snap.Front != "c.jpg" || snap.Back != "b.jpg" {
		t.Errorf("slots = %+v", snap)
	}
}

func TestCrossfadeStaleFailureIgnored(t *testing.T) {
	c := NewCrossfader("a.jpg")

	c.Begin("b.jpg")
	c.Begin("c.jpg")
	c.Failed("b.jpg") // stale

	if c.Phase() != PhaseLoadingHidden {
		t.Fatalf("phase = %v, stale failure must not cancel the newer load", c.Phase())
	}
}
