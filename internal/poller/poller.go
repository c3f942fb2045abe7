package poller

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lakefm/airlog/internal/bus"
	"github.com/lakefm/airlog/internal/domain/artwork"
	"github.com/lakefm/airlog/internal/domain/playlist"
	"github.com/lakefm/airlog/internal/infra/feed"
)

// maxArtRetries caps re-resolution attempts while the same track stays on
// air. Once exhausted the fallback art stands until the next track change.
const maxArtRetries = 5

// maxRecent is how many recent plays a snapshot carries.
const maxRecent = 10

// Feed supplies the station playlist.
type Feed interface {
	Fetch(ctx context.Context) (*feed.Playlist, error)
}

// ArtResolver runs the album art fallback chain for the on-air track.
type ArtResolver interface {
	Resolve(ctx context.Context, hints artwork.Hints, artist, release string) artwork.ResolutionResult
}

// TrackInfo is a display-ready view of one play.
type TrackInfo struct {
	SourceID      string    `json:"sourceId"`
	Artist        string    `json:"artist"`
	Track         string    `json:"track"`
	Release       string    `json:"release,omitempty"`
	Label         string    `json:"label,omitempty"`
	DJName        string    `json:"djName,omitempty"`
	ShowName      string    `json:"showName,omitempty"`
	IsLocalArtist bool      `json:"isLocalArtist"`
	PlayedAt      time.Time `json:"playedAt"`
}

// Snapshot is the full now-playing state pushed to displays.
type Snapshot struct {
	Current   *TrackInfo     `json:"current"`
	Recent    []TrackInfo    `json:"recent"`
	Art       ArtSlots       `json:"art"`
	ArtSource artwork.Source `json:"artSource,omitempty"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Poller polls the feed on the variable-delay schedule, detects track
// boundaries by signature, drives the art crossfader, and publishes
// snapshots on the event bus.
type Poller struct {
	feed     Feed
	resolver ArtResolver
	checker  artwork.URLChecker
	pool     func() []string
	events   *bus.Bus[Snapshot]

	cross    *Crossfader
	refresh  chan struct{}
	fetching atomic.Bool

	mu         sync.RWMutex
	snap       Snapshot
	lastSig    string
	lastChange time.Time
	artSource  artwork.Source
	artRetries int
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithChecker sets the image load checker used before swapping art in.
func WithChecker(c artwork.URLChecker) PollerOption {
	return func(p *Poller) {
		p.checker = c
	}
}

// WithPool sets the fallback pool consulted when a hidden-slot load fails.
func WithPool(fn func() []string) PollerOption {
	return func(p *Poller) {
		p.pool = fn
	}
}

// NewPoller creates a poller. Snapshots start with the bundled default art.
func NewPoller(f Feed, r ArtResolver, events *bus.Bus[Snapshot], opts ...PollerOption) *Poller {
	p := &Poller{
		feed:     f,
		resolver: r,
		events:   events,
		cross:    NewCrossfader(artwork.DefaultBundledArt),
		refresh:  make(chan struct{}, 1),
	}

	for _, opt := range opts {
		opt(p)
	}

	p.snap = Snapshot{Art: p.cross.Snapshot(), UpdatedAt: time.Now().UTC()}
	return p
}

// Run polls until ctx is cancelled. The wait between polls follows the
// variable-delay schedule and is cut short by RefreshNow.
func (p *Poller) Run(ctx context.Context) {
	log.Info().Msg("Now-playing poller started")

	p.poll(ctx)

	for {
		p.mu.RLock()
		delay := NextDelay(time.Since(p.lastChange))
		p.mu.RUnlock()

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Info().Msg("Now-playing poller stopped")
			return
		case <-p.refresh:
			timer.Stop()
			p.poll(ctx)
		case <-timer.C:
			p.poll(ctx)
		}
	}
}

// RefreshNow asks for an immediate poll, cancelling the pending wait. Safe
// from any goroutine; extra calls while one request is queued are no-ops.
func (p *Poller) RefreshNow() {
	select {
	case p.refresh <- struct{}{}:
	default:
	}
}

// Snapshot returns the latest now-playing state.
func (p *Poller) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap
}

// poll is single-flight: a poll that arrives while another is running is
// dropped, not queued.
func (p *Poller) poll(ctx context.Context) {
	if !p.fetching.CompareAndSwap(false, true) {
		return
	}
	defer p.fetching.Store(false)

	pl, err := p.feed.Fetch(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Now-playing fetch failed")
		return
	}

	p.apply(ctx, pl)
}

func (p *Poller) apply(ctx context.Context, pl *feed.Playlist) {
	recent := make([]TrackInfo, 0, maxRecent)
	for i := range pl.Recent {
		if len(recent) == maxRecent {
			break
		}
		recent = append(recent, toTrackInfo(&pl.Recent[i]))
	}

	if pl.Current == nil {
		p.mu.Lock()
		p.snap.Recent = recent
		p.snap.UpdatedAt = time.Now().UTC()
		snap := p.snap
		p.mu.Unlock()
		p.events.Publish(snap)
		return
	}

	cur := toTrackInfo(pl.Current)
	sig := playlist.TrackSignature(cur.Artist, cur.Track)

	p.mu.Lock()
	changed := sig != p.lastSig
	if changed {
		p.lastSig = sig
		p.lastChange = time.Now()
		p.artRetries = 0
	}
	retryArt := !changed && p.artNeedsRetry()
	if retryArt {
		p.artRetries++
	}
	p.mu.Unlock()

	if changed || retryArt {
		res := p.resolver.Resolve(ctx, artwork.Hints{
			Small:  pl.Current.ArtHints.Small,
			Medium: pl.Current.ArtHints.Medium,
			Large:  pl.Current.ArtHints.Large,
		}, cur.Artist, cur.Release)

		effective := p.loadArt(ctx, res, cur.Artist, cur.Release)

		p.mu.Lock()
		p.artSource = effective
		p.mu.Unlock()

		if changed {
			log.Info().
				Str("artist", cur.Artist).
				Str("track", cur.Track).
				Str("artSource", string(effective)).
				Msg("Track changed")
		}
	}

	p.mu.Lock()
	p.snap = Snapshot{
		Current:   &cur,
		Recent:    recent,
		Art:       p.cross.Snapshot(),
		ArtSource: p.artSource,
		UpdatedAt: time.Now().UTC(),
	}
	snap := p.snap
	p.mu.Unlock()

	p.events.Publish(snap)
}

// artNeedsRetry reports whether the current art is a fallback worth retrying.
// Callers hold p.mu.
func (p *Poller) artNeedsRetry() bool {
	if p.artRetries >= maxArtRetries {
		return false
	}
	return p.artSource == artwork.SourcePool || p.artSource == artwork.SourceBundled
}

// loadArt drives the crossfader for one resolved URL. Remote URLs must pass
// the load check before the swap; local asset paths swap immediately. A
// failed remote load keeps the visible image and surfaces a pool pick so the
// hidden slot is not left dangling.
func (p *Poller) loadArt(ctx context.Context, res artwork.ResolutionResult, artist, release string) artwork.Source {
	p.cross.Begin(res.URL)

	if !isRemote(res.URL) {
		p.cross.Loaded(res.URL)
		p.cross.Settle()
		return res.Source
	}

	if p.checker == nil || p.checker.IsLoadable(ctx, res.URL) {
		p.cross.Loaded(res.URL)
		p.cross.Settle()
		return res.Source
	}

	log.Debug().Str("url", res.URL).Msg("Art failed to load, falling back")
	p.cross.Failed(res.URL)

	fallback := artwork.DefaultBundledArt
	source := artwork.SourceBundled
	if p.pool != nil {
		if url, _ := artwork.SelectFallback(p.pool(), artist, release); url != "" {
			fallback = url
			source = artwork.SourcePool
		}
	}

	p.cross.Begin(fallback)
	p.cross.Loaded(fallback)
	p.cross.Settle()
	return source
}

func isRemote(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

func toTrackInfo(e *feed.Entry) TrackInfo {
	dj, show := playlist.ParseDJShow(e.DJName, e.ShowName)

	info := TrackInfo{
		SourceID:      e.SourceID,
		Artist:        e.Artist,
		Track:         e.Track,
		Release:       e.Release,
		Label:         e.Label,
		DJName:        dj,
		ShowName:      show,
		IsLocalArtist: e.IsLocalArtist,
	}

	if e.PlayedAtUTC != "" {
		if t, err := time.Parse(time.RFC3339, e.PlayedAtUTC); err == nil {
			info.PlayedAt = t.UTC()
		}
	}
	if info.PlayedAt.IsZero() && e.PlayedAtUTCEpoch > 0 {
		info.PlayedAt = time.Unix(e.PlayedAtUTCEpoch, 0).UTC()
	}

	return info
}
