// Package playlist provides the play-history domain model, fuzzy matching,
// and correction detection for captured radio plays.
package playlist

import (
	"encoding/json"
	"time"
)

// CaptureSource indicates how an entry entered the archive.
type CaptureSource string

const (
	// CaptureScheduled marks entries captured by the periodic capture job.
	CaptureScheduled CaptureSource = "scheduled"

	// CaptureManual marks entries captured by an operator-triggered run.
	CaptureManual CaptureSource = "manual"
)

// PlayEntry is one observed play of a track as captured from the station feed.
// Entries are immutable once persisted except IsSuperseded (set once by a
// later correction) and are never physically deleted.
type PlayEntry struct {
	ID       int64  `json:"id"`
	SourceID string `json:"sourceId"` // feed-assigned ID, unique per play

	Artist        string `json:"artist"`
	Track         string `json:"track"`
	Release       string `json:"release,omitempty"`
	Label         string `json:"label,omitempty"`
	DJName        string `json:"djName,omitempty"`
	Notes         string `json:"notes,omitempty"`
	IsLocalArtist bool   `json:"isLocalArtist"`

	PlayedAtUTC        time.Time `json:"playedAtUtc"`
	PlayedAtUTCEpoch   int64     `json:"playedAtUtcEpoch"`
	PlayedAtLocal      time.Time `json:"playedAtLocal"`
	PlayedAtLocalEpoch int64     `json:"playedAtLocalEpoch"`

	// Art URLs as received from the feed's primary source.
	ArtSmall  string `json:"artSmall,omitempty"`
	ArtMedium string `json:"artMedium,omitempty"`
	ArtLarge  string `json:"artLarge,omitempty"`

	// ArtResolved is the resolution chain's final pick, set once at insert.
	ArtResolved string `json:"artResolved,omitempty"`

	// CorrectionOf references the internal ID of the entry this one corrects.
	CorrectionOf *int64 `json:"correctionOf,omitempty"`
	IsSuperseded bool   `json:"isSuperseded"`

	RawPayload    json.RawMessage `json:"-"`
	CaptureSource CaptureSource   `json:"captureSource"`
	CapturedAt    time.Time       `json:"capturedAt"`
}

// Signature returns the normalized track identity used by the now-playing
// poller to detect track boundaries.
func (e *PlayEntry) Signature() string {
	return TrackSignature(e.Artist, e.Track)
}
