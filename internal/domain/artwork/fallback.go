package artwork

import (
	"math/rand"
	"strings"
)

// hashString computes a DJB2 hash over the UTF-8 bytes of s.
func hashString(s string) uint32 {
	var h uint32 = 5381
	for i := 0; i < len(s); i++ {
		h = (h * 33) ^ uint32(s[i])
	}
	return h
}

// SelectFallback picks an image from the curated fallback pool. Selection is
// deterministic in (artist, release) so that every consumer of the chain —
// the capture job, an album-art element, a background-art element — lands on
// the same image for the same track without any shared state. With no seed
// material or a single-image pool the pick is uniform random instead.
// Returns ("", -1) for an empty pool.
func SelectFallback(pool []string, artist, release string) (string, int) {
	if len(pool) == 0 {
		return "", -1
	}

	if (artist == "" && release == "") || len(pool) == 1 {
		idx := rand.Intn(len(pool))
		return pool[idx], idx
	}

	idx := int(hashString(artist+"|"+release) % uint32(len(pool)))
	return pool[idx], idx
}

// UpgradeQuality rewrites a primary-source art URL to a higher-resolution
// variant for high-density displays. Only URLs on the known image CDN are
// rewritten; anything else passes through untouched.
func UpgradeQuality(url string, highDensity bool) string {
	if !highDensity || !strings.Contains(url, "lastfm.freetls.fastly.net") {
		return url
	}

	const marker = "/i/u/"
	start := strings.Index(url, marker)
	if start < 0 {
		return url
	}
	rest := url[start+len(marker):]
	end := strings.Index(rest, "/")
	if end < 0 {
		return url
	}

	return url[:start+len(marker)] + "480x480" + rest[end:]
}
