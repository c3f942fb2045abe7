// Package poller tracks what is on air right now and prepares it for display.
package poller

import "time"

// Poll delay steps. Songs rarely end in their first minute, so polling is
// sparse right after a track change and tightens as the track ages toward a
// likely boundary.
const (
	delayFresh    = 60 * time.Second
	delayWarm     = 30 * time.Second
	delayHot      = 15 * time.Second
	delayBoundary = 5 * time.Second
)

// NextDelay returns how long to wait before the next poll given the time
// elapsed since the last track change.
func NextDelay(sinceChange time.Duration) time.Duration {
	switch {
	case sinceChange < 60*time.Second:
		return delayFresh
	case sinceChange < 120*time.Second:
		return delayWarm
	case sinceChange < 150*time.Second:
		return delayHot
	default:
		return delayBoundary
	}
}
