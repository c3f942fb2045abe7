package store

import "time"

// HistoryFilter narrows a history query. Zero values mean "no filter".
// Superseded entries are never returned regardless of filter.
type HistoryFilter struct {
	DJName    string
	Artist    string
	LocalOnly bool

	// Start and End bound the play time (inclusive). A zero value leaves
	// that side of the range open.
	Start time.Time
	End   time.Time

	// Limit caps the number of rows returned. Zero means DefaultHistoryLimit;
	// values above MaxHistoryLimit are clamped.
	Limit int
}

const (
	// DefaultHistoryLimit is applied when a query specifies no limit.
	DefaultHistoryLimit = 100

	// MaxHistoryLimit is the hard cap on rows returned per query.
	MaxHistoryLimit = 1000
)

// DJCount is one row of the top-DJ breakdown.
type DJCount struct {
	DJName string `json:"djName"`
	Plays  int    `json:"plays"`
}

// Stats summarizes the archive over a period.
type Stats struct {
	Since            time.Time `json:"since"`
	TotalPlays       int       `json:"totalPlays"`
	UniqueArtists    int       `json:"uniqueArtists"`
	LocalArtistPlays int       `json:"localArtistPlays"`
	Corrections      int       `json:"corrections"`
	TopDJs           []DJCount `json:"topDjs"`
}
