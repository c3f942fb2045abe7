// Package assets manages the curated fallback art pool on local disk.
package assets

import (
	"context"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/lakefm/airlog/internal/boot"
)

// imageExtensions are the file types accepted into the pool.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// PoolLoader scans a directory of curated images once, on first use, and
// serves their URLs. The scan is deferred because the asset directory may be
// on storage that is not mounted at process start.
type PoolLoader struct {
	dir     string
	baseURL string

	mu   sync.RWMutex
	urls []string
	gate *boot.Gate
}

// NewPoolLoader creates a loader for the given directory. baseURL is the
// public path prefix the files are served under.
func NewPoolLoader(dir, baseURL string) *PoolLoader {
	p := &PoolLoader{
		dir:     dir,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
	p.gate = boot.NewGate(p.scan)
	return p
}

// scan reads the directory and builds the URL list. Sorted by filename so
// pool indexes are stable across restarts, which keeps the deterministic
// per-track pick stable too.
func (p *PoolLoader) scan(_ context.Context) error {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return err
	}

	var urls []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(path.Ext(e.Name()))
		if !imageExtensions[ext] {
			continue
		}
		urls = append(urls, p.baseURL+"/"+e.Name())
	}
	sort.Strings(urls)

	p.mu.Lock()
	p.urls = urls
	p.mu.Unlock()

	log.Info().Str("dir", p.dir).Int("count", len(urls)).Msg("Fallback art pool loaded")
	return nil
}

// URLs returns the pool, scanning the directory on first call. An unreadable
// directory yields an empty pool and a warning; the next call retries.
func (p *PoolLoader) URLs() []string {
	if err := p.gate.Ensure(context.Background()); err != nil {
		log.Warn().Err(err).Str("dir", p.dir).Msg("Fallback art pool unavailable")
		return nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.urls
}

// Ready reports whether the pool has been loaded.
func (p *PoolLoader) Ready() bool {
	return p.gate.State() == boot.StateReady
}
