// Package feed fetches and decodes the station's now-playing JSON feed.
package feed

import "encoding/json"

// ArtHints carries the feed's own artwork URLs, when present.
type ArtHints struct {
	Small  string `json:"small"`
	Medium string `json:"medium"`
	Large  string `json:"large"`
}

// Entry is one played track as published by the station feed. Raw preserves
// the original JSON object so captures can store the payload untouched.
type Entry struct {
	SourceID         string   `json:"sourceId"`
	Artist           string   `json:"artist"`
	Track            string   `json:"track"`
	Release          string   `json:"release"`
	Label            string   `json:"label"`
	DJName           string   `json:"djName"`
	ShowName         string   `json:"showName"`
	Notes            string   `json:"notes"`
	PlayedAtUTC      string   `json:"playedAtUtc"`
	PlayedAtUTCEpoch int64    `json:"playedAtUtcEpoch"`
	PlayedAtLocal    string   `json:"playedAtLocal"`
	PlayedAtLocalEpoch int64  `json:"playedAtLocalEpoch"`
	IsLocalArtist    bool     `json:"isLocalArtist"`
	ArtHints         ArtHints `json:"artHints"`

	Raw json.RawMessage `json:"-"`
}

// Playlist is the top-level feed document: the track on air now plus the
// most recent plays before it.
type Playlist struct {
	Current *Entry  `json:"nowPlaying"`
	Recent  []Entry `json:"recentlyPlayed"`
}

// Entries flattens the playlist into a single slice, current track first.
// Nil current and empty recent are both fine; the result may be empty.
func (p *Playlist) Entries() []Entry {
	out := make([]Entry, 0, 1+len(p.Recent))
	if p.Current != nil {
		out = append(out, *p.Current)
	}
	out = append(out, p.Recent...)
	return out
}
