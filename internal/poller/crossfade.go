package poller

import "sync"

// Phase is where the crossfader is in a transition.
type Phase int

const (
	// PhaseSettled: one slot visible, nothing loading.
	PhaseSettled Phase = iota

	// PhaseLoadingHidden: new art is loading into the hidden slot; the
	// visible slot keeps showing the old image.
	PhaseLoadingHidden

	// PhaseSwapping: the hidden slot finished loading and is fading in.
	PhaseSwapping
)

func (p Phase) String() string {
	switch p {
	case PhaseSettled:
		return "settled"
	case PhaseLoadingHidden:
		return "loading"
	case PhaseSwapping:
		return "swapping"
	default:
		return "unknown"
	}
}

// ArtSlots is the display-facing view of the two art slots.
type ArtSlots struct {
	Front         string `json:"front"`
	Back          string `json:"back"`
	FrontVisible  bool   `json:"frontVisible"`
	Transitioning bool   `json:"transitioning"`
}

// Crossfader drives a two-slot art transition: new art always loads into the
// hidden slot, and the slots swap only once the load succeeds. The visible
// image is never blanked by a failed load.
type Crossfader struct {
	mu      sync.Mutex
	phase   Phase
	slots   [2]string
	visible int
	pending string
}

// NewCrossfader creates a settled crossfader showing the given initial URL.
func NewCrossfader(initial string) *Crossfader {
	c := &Crossfader{}
	c.slots[0] = initial
	return c
}

// Begin starts loading url into the hidden slot. Starting a new load while
// one is pending abandons the old one; the newest track always wins.
func (c *Crossfader) Begin(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pending = url
	c.phase = PhaseLoadingHidden
}

// Loaded reports that url finished loading. Stale completions (a load that
// was superseded by a newer Begin) are ignored. On a current completion the
// hidden slot takes the URL and becomes visible.
func (c *Crossfader) Loaded(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseLoadingHidden || c.pending != url {
		return
	}

	hidden := 1 - c.visible
	c.slots[hidden] = url
	c.visible = hidden
	c.pending = ""
	c.phase = PhaseSwapping
}

// Failed reports that the pending load did not complete. The visible slot is
// untouched; the crossfader simply settles.
func (c *Crossfader) Failed(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseLoadingHidden || c.pending != url {
		return
	}

	c.pending = ""
	c.phase = PhaseSettled
}

// Settle marks the fade animation finished after a swap.
func (c *Crossfader) Settle() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase == PhaseSwapping {
		c.phase = PhaseSettled
	}
}

// Phase returns the current transition phase.
func (c *Crossfader) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Visible returns the URL currently on screen.
func (c *Crossfader) Visible() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slots[c.visible]
}

// Snapshot returns the slot state for display.
func (c *Crossfader) Snapshot() ArtSlots {
	c.mu.Lock()
	defer c.mu.Unlock()

	return ArtSlots{
		Front:         c.slots[0],
		Back:          c.slots[1],
		FrontVisible:  c.visible == 0,
		Transitioning: c.phase == PhaseSwapping,
	}
}
