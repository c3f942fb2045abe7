// Package capture runs the feed-to-archive capture pipeline.
package capture

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lakefm/airlog/internal/domain/artwork"
	"github.com/lakefm/airlog/internal/domain/playlist"
	"github.com/lakefm/airlog/internal/infra/feed"
)

// Store is the slice of the archive the pipeline writes to.
type Store interface {
	Exists(ctx context.Context, sourceID string) (bool, error)
	Insert(ctx context.Context, e *playlist.PlayEntry) (id int64, inserted bool, err error)
	MarkSuperseded(ctx context.Context, id int64) error
}

// Feed supplies the station playlist.
type Feed interface {
	Fetch(ctx context.Context) (*feed.Playlist, error)
}

// ArtResolver runs the album art fallback chain for one play.
type ArtResolver interface {
	Resolve(ctx context.Context, hints artwork.Hints, artist, release string) artwork.ResolutionResult
}

// CorrectionFinder locates the earlier entry a new play corrects, if any.
type CorrectionFinder interface {
	Find(ctx context.Context, artist, track string, playedAt time.Time, excludeSourceID string) *playlist.PlayEntry
}

// Stats counts entry outcomes for one capture run.
type Stats struct {
	Total       int `json:"total"`
	New         int `json:"new"`
	Skipped     int `json:"skipped"`
	Corrections int `json:"corrections"`
	Errors      int `json:"errors"`
}

// Result summarizes one capture run.
type Result struct {
	RunID      string    `json:"runId"`
	Success    bool      `json:"success"`
	Timestamp  time.Time `json:"timestamp"`
	DurationMS int64     `json:"durationMs"`
	Stats      Stats     `json:"stats"`
	Error      string    `json:"error,omitempty"`
}

// Pipeline captures feed entries into the archive: dedup by source ID,
// correction detection, art resolution, persistence.
type Pipeline struct {
	feed     Feed
	store    Store
	resolver ArtResolver
	detector CorrectionFinder
}

// NewPipeline wires a capture pipeline.
func NewPipeline(f Feed, s Store, r ArtResolver, d CorrectionFinder) *Pipeline {
	return &Pipeline{
		feed:     f,
		store:    s,
		resolver: r,
		detector: d,
	}
}

// Run performs one full capture: fetch the feed, process every entry,
// report counts. A feed failure fails the run; a single bad entry does not.
func (p *Pipeline) Run(ctx context.Context, source playlist.CaptureSource) Result {
	start := time.Now()
	result := Result{
		RunID:     uuid.NewString(),
		Timestamp: start.UTC(),
	}

	log.Info().Str("runId", result.RunID).Str("source", string(source)).Msg("Capture run started")

	pl, err := p.feed.Fetch(ctx)
	if err != nil {
		result.Error = err.Error()
		result.DurationMS = time.Since(start).Milliseconds()
		recordRun(result)
		log.Error().Err(err).Str("runId", result.RunID).Msg("Capture run failed: feed fetch")
		return result
	}

	result.Stats = p.ProcessBatch(ctx, pl.Entries(), source)
	result.Success = true
	result.DurationMS = time.Since(start).Milliseconds()
	recordRun(result)

	log.Info().
		Str("runId", result.RunID).
		Int("total", result.Stats.Total).
		Int("new", result.Stats.New).
		Int("skipped", result.Stats.Skipped).
		Int("corrections", result.Stats.Corrections).
		Int("errors", result.Stats.Errors).
		Int64("durationMs", result.DurationMS).
		Msg("Capture run finished")

	return result
}

// ProcessBatch archives a batch of feed entries. Malformed entries are
// counted and skipped; everything else proceeds independently.
func (p *Pipeline) ProcessBatch(ctx context.Context, entries []feed.Entry, source playlist.CaptureSource) Stats {
	stats := Stats{Total: len(entries)}

	for i := range entries {
		switch p.processEntry(ctx, &entries[i], source) {
		case outcomeNew:
			stats.New++
		case outcomeCorrection:
			stats.New++
			stats.Corrections++
		case outcomeSkipped:
			stats.Skipped++
		case outcomeError:
			stats.Errors++
		}
	}

	return stats
}

type outcome int

const (
	outcomeNew outcome = iota
	outcomeCorrection
	outcomeSkipped
	outcomeError
)

func (p *Pipeline) processEntry(ctx context.Context, e *feed.Entry, source playlist.CaptureSource) outcome {
	if e.SourceID == "" || e.Artist == "" || e.Track == "" {
		log.Warn().
			Str("sourceId", e.SourceID).
			Str("artist", e.Artist).
			Str("track", e.Track).
			Msg("Skipping malformed feed entry")
		recordEntry("error")
		return outcomeError
	}

	playedAt, ok := entryPlayedAt(e)
	if !ok {
		log.Warn().Str("sourceId", e.SourceID).Msg("Skipping entry with unusable timestamp")
		recordEntry("error")
		return outcomeError
	}

	exists, err := p.store.Exists(ctx, e.SourceID)
	if err != nil {
		log.Error().Err(err).Str("sourceId", e.SourceID).Msg("Archive existence check failed")
		recordEntry("error")
		return outcomeError
	}
	if exists {
		recordEntry("skipped")
		return outcomeSkipped
	}

	corrected := p.detector.Find(ctx, e.Artist, e.Track, playedAt, e.SourceID)

	art := p.resolver.Resolve(ctx, artwork.Hints{
		Small:  e.ArtHints.Small,
		Medium: e.ArtHints.Medium,
		Large:  e.ArtHints.Large,
	}, e.Artist, e.Release)

	// The bundled default means "nothing real was found". Store that as
	// unresolved so the art cache never serves the placeholder and a later
	// play of the same release retries the chain.
	artResolved := art.URL
	if art.Source == artwork.SourceBundled {
		artResolved = ""
	}

	djName, _ := playlist.ParseDJShow(e.DJName, e.ShowName)

	entry := &playlist.PlayEntry{
		SourceID:           e.SourceID,
		Artist:             e.Artist,
		Track:              e.Track,
		Release:            e.Release,
		Label:              e.Label,
		DJName:             djName,
		Notes:              e.Notes,
		IsLocalArtist:      e.IsLocalArtist,
		PlayedAtUTC:        playedAt,
		PlayedAtUTCEpoch:   playedAt.Unix(),
		PlayedAtLocalEpoch: e.PlayedAtLocalEpoch,
		ArtSmall:           e.ArtHints.Small,
		ArtMedium:          e.ArtHints.Medium,
		ArtLarge:           e.ArtHints.Large,
		ArtResolved:        artResolved,
		RawPayload:         e.Raw,
		CaptureSource:      source,
		CapturedAt:         time.Now().UTC(),
	}
	if e.PlayedAtLocal != "" {
		if t, err := time.Parse(time.RFC3339, e.PlayedAtLocal); err == nil {
			entry.PlayedAtLocal = t
		}
	}
	if corrected != nil {
		entry.CorrectionOf = &corrected.ID
	}

	_, inserted, err := p.store.Insert(ctx, entry)
	if err != nil {
		log.Error().Err(err).Str("sourceId", e.SourceID).Msg("Archive insert failed")
		recordEntry("error")
		return outcomeError
	}
	if !inserted {
		// Lost a race with a concurrent run; the other writer won.
		recordEntry("skipped")
		return outcomeSkipped
	}

	if corrected != nil {
		if err := p.store.MarkSuperseded(ctx, corrected.ID); err != nil {
			log.Error().
				Err(err).
				Int64("originalId", corrected.ID).
				Str("sourceId", e.SourceID).
				Msg("Failed to mark corrected entry superseded")
		}
		recordEntry("correction")
		return outcomeCorrection
	}

	recordEntry("new")
	return outcomeNew
}

// entryPlayedAt extracts the play time, preferring the RFC 3339 field and
// falling back to the epoch field.
func entryPlayedAt(e *feed.Entry) (time.Time, bool) {
	if e.PlayedAtUTC != "" {
		if t, err := time.Parse(time.RFC3339, e.PlayedAtUTC); err == nil {
			return t.UTC(), true
		}
	}
	if e.PlayedAtUTCEpoch > 0 {
		return time.Unix(e.PlayedAtUTCEpoch, 0).UTC(), true
	}
	return time.Time{}, false
}
