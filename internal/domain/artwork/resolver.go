package artwork

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/lakefm/airlog/internal/domain/playlist"
)

// DefaultBundledArt is the always-available local asset path used when every
// other source comes up empty.
const DefaultBundledArt = "/images/album-art-fallback.png"

// Resolver orchestrates the album art fallback chain.
// Resolution order:
// 1. Art cache — a previously resolved URL for the same (artist, release)
// 2. Primary hint from the feed, trusted without a validation round-trip
// 3. iTunes search, fuzzy-matched and load-checked
// 4. MusicBrainz/Cover Art Archive, fuzzy-matched and load-checked
// 5. Curated fallback pool, deterministic pick
// 6. Bundled default asset
// Resolve never fails: it always returns a usable URL.
type Resolver struct {
	cache       Cache
	providers   []LookupProvider
	checker     URLChecker
	pool        func() []string
	bundled     string
	highDensity bool
}

// Option is a functional option for configuring the resolver.
type Option func(*Resolver)

// WithCache sets the art cache consulted first in the chain.
func WithCache(c Cache) Option {
	return func(r *Resolver) {
		r.cache = c
	}
}

// WithProviders sets the ordered lookup providers tried after the primary hint.
func WithProviders(ps ...LookupProvider) Option {
	return func(r *Resolver) {
		r.providers = ps
	}
}

// WithChecker sets the URL load checker applied to lookup candidates.
func WithChecker(c URLChecker) Option {
	return func(r *Resolver) {
		r.checker = c
	}
}

// WithPool sets the curated fallback pool source. The function is called on
// each resolution so the pool can be loaded lazily.
func WithPool(fn func() []string) Option {
	return func(r *Resolver) {
		r.pool = fn
	}
}

// WithBundled sets the last-resort local asset path.
func WithBundled(path string) Option {
	return func(r *Resolver) {
		r.bundled = path
	}
}

// WithHighDensity enables quality upgrades of primary hint URLs for
// high-density displays.
func WithHighDensity(enabled bool) Option {
	return func(r *Resolver) {
		r.highDensity = enabled
	}
}

// NewResolver creates a resolver. With no options the chain degenerates to
// primary hint → bundled default.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		bundled: DefaultBundledArt,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Resolve runs the fallback chain for one track and returns the first usable
// URL. Each step is bounded by its own timeout; the chain as a whole never
// blocks longer than the sum of the per-step timeouts.
func (r *Resolver) Resolve(ctx context.Context, hints Hints, artist, release string) ResolutionResult {
	if url := r.checkCache(ctx, artist, release); url != "" {
		return ResolutionResult{URL: url, Source: SourceCache, PoolIndex: -1}
	}

	// The primary hint is trusted without a load check in both the capture
	// job and the interactive poller. Validating it would add a network
	// round-trip to the common case; a dead primary URL surfaces through the
	// display's own load-failure path instead. Deliberate asymmetry with the
	// lookup candidates below.
	if primary := hints.Best(); primary != "" {
		url := UpgradeQuality(primary, r.highDensity)
		log.Debug().Str("artist", artist).Str("url", url).Msg("Using primary art hint")
		return ResolutionResult{URL: url, Source: SourcePrimary, PoolIndex: -1}
	}

	if artist != "" && release != "" {
		for _, p := range r.providers {
			if url := r.tryProvider(ctx, p, artist, release); url != "" {
				return ResolutionResult{URL: url, Source: providerSource(p), PoolIndex: -1}
			}
		}
	}

	if r.pool != nil {
		if url, idx := SelectFallback(r.pool(), artist, release); url != "" {
			log.Debug().
				Str("artist", artist).
				Str("release", release).
				Int("index", idx).
				Msg("Using fallback pool art")
			return ResolutionResult{URL: url, Source: SourcePool, PoolIndex: idx}
		}
	}

	return ResolutionResult{URL: r.bundled, Source: SourceBundled, PoolIndex: -1}
}

// checkCache returns a previously resolved URL for (artist, release), or ""
// on a miss. Skipped entirely when the release is unknown: artist alone is
// too coarse a key.
func (r *Resolver) checkCache(ctx context.Context, artist, release string) string {
	if r.cache == nil || release == "" {
		return ""
	}

	url, err := r.cache.CachedArt(ctx, artist, release)
	if err != nil {
		log.Warn().Err(err).Str("artist", artist).Str("release", release).Msg("Art cache lookup failed")
		return ""
	}
	if url != "" {
		log.Debug().Str("artist", artist).Str("release", release).Msg("Art cache hit")
	}
	return url
}

// tryProvider queries one lookup service and returns the first candidate
// that passes both the fuzzy name gates and the URL load check.
func (r *Resolver) tryProvider(ctx context.Context, p LookupProvider, artist, release string) string {
	candidates, err := p.SearchAlbumArt(ctx, artist, release)
	if err != nil {
		log.Debug().
			Err(err).
			Str("provider", p.Name()).
			Str("artist", artist).
			Str("release", release).
			Msg("Art lookup failed")
		return ""
	}

	for _, c := range candidates {
		if c.ImageURL == "" {
			continue
		}
		if !similarNames(artist, release, c) {
			log.Debug().
				Str("provider", p.Name()).
				Str("gotArtist", c.ArtistName).
				Str("gotAlbum", c.AlbumName).
				Msg("Art candidate rejected: names do not match")
			continue
		}
		if r.checker != nil && !r.checker.IsLoadable(ctx, c.ImageURL) {
			log.Debug().
				Str("provider", p.Name()).
				Str("url", c.ImageURL).
				Msg("Art candidate rejected: URL failed to load")
			continue
		}

		log.Debug().
			Str("provider", p.Name()).
			Str("url", c.ImageURL).
			Msg("Art candidate accepted")
		return c.ImageURL
	}

	return ""
}

func similarNames(artist, release string, c Candidate) bool {
	return playlist.Similar(artist, c.ArtistName) && playlist.Similar(release, c.AlbumName)
}

func providerSource(p LookupProvider) Source {
	switch p.Name() {
	case "itunes":
		return SourceITunes
	case "musicbrainz":
		return SourceMusicBrainz
	default:
		return Source(p.Name())
	}
}
