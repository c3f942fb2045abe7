package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lakefm/airlog/internal/domain/playlist"
)

// DAO provides data access operations for the play history archive.
type DAO struct {
	db *DB
}

// NewDAO creates a new DAO instance.
func NewDAO(db *DB) *DAO {
	return &DAO{db: db}
}

const entryColumns = `id, source_id, artist, track, release_name, label, dj_name, notes,
	is_local_artist, played_at_utc, played_at_utc_epoch, played_at_local, played_at_local_epoch,
	art_small, art_medium, art_large, art_resolved, correction_of, is_superseded,
	raw_payload, capture_source, captured_at`

// Exists reports whether a play with the given source ID is already archived.
func (dao *DAO) Exists(ctx context.Context, sourceID string) (bool, error) {
	db := dao.db.DB()
	if db == nil {
		return false, fmt.Errorf("database not open")
	}

	var one int
	err := db.QueryRowContext(ctx, "SELECT 1 FROM play_history WHERE source_id = ?", sourceID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Insert archives a play. A source ID collision is not an error: the insert
// becomes a no-op and inserted is false, which makes capture runs idempotent
// even when two runs race on the same feed window.
func (dao *DAO) Insert(ctx context.Context, e *playlist.PlayEntry) (id int64, inserted bool, err error) {
	db := dao.db.DB()
	if db == nil {
		return 0, false, fmt.Errorf("database not open")
	}

	raw := ""
	if len(e.RawPayload) > 0 {
		raw = string(e.RawPayload)
	}

	res, err := db.ExecContext(ctx, `
		INSERT INTO play_history (source_id, artist, track, release_name, label, dj_name, notes,
			is_local_artist, played_at_utc, played_at_utc_epoch, played_at_local, played_at_local_epoch,
			art_small, art_medium, art_large, art_resolved, correction_of, is_superseded,
			raw_payload, capture_source, captured_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?)
		ON CONFLICT(source_id) DO NOTHING
	`,
		e.SourceID, e.Artist, e.Track, e.Release, e.Label, e.DJName, e.Notes,
		boolToInt(e.IsLocalArtist),
		e.PlayedAtUTC.UTC().Format(time.RFC3339), e.PlayedAtUTCEpoch,
		formatMaybe(e.PlayedAtLocal), e.PlayedAtLocalEpoch,
		e.ArtSmall, e.ArtMedium, e.ArtLarge, e.ArtResolved,
		e.CorrectionOf, raw, string(e.CaptureSource),
		e.CapturedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, false, err
	}
	if affected == 0 {
		return 0, false, nil
	}

	id, err = res.LastInsertId()
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// FindCorrectionCandidates returns non-superseded entries whose play time
// falls within ±window of playedAt, excluding the entry being inserted,
// ordered earliest first so the caller's "earliest wins" rule holds.
func (dao *DAO) FindCorrectionCandidates(ctx context.Context, playedAt time.Time, window time.Duration, excludeSourceID string) ([]playlist.PlayEntry, error) {
	db := dao.db.DB()
	if db == nil {
		return nil, fmt.Errorf("database not open")
	}

	epoch := playedAt.Unix()
	delta := int64(window.Seconds())

	rows, err := db.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM play_history
		WHERE played_at_utc_epoch BETWEEN ? AND ?
			AND source_id != ?
			AND is_superseded = 0
		ORDER BY played_at_utc_epoch ASC, id ASC
	`, epoch-delta, epoch+delta, excludeSourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// MarkSuperseded flags an archived entry as replaced by a correction.
func (dao *DAO) MarkSuperseded(ctx context.Context, id int64) error {
	db := dao.db.DB()
	if db == nil {
		return fmt.Errorf("database not open")
	}

	_, err := db.ExecContext(ctx, "UPDATE play_history SET is_superseded = 1 WHERE id = ?", id)
	return err
}

// CachedArt returns the most recently resolved art URL for (artist, release),
// or "" when the archive has never resolved art for that pair. Matching is
// case-insensitive; superseded entries are ignored.
func (dao *DAO) CachedArt(ctx context.Context, artist, release string) (string, error) {
	db := dao.db.DB()
	if db == nil {
		return "", fmt.Errorf("database not open")
	}

	var url string
	err := db.QueryRowContext(ctx, `
		SELECT art_resolved FROM play_history
		WHERE artist = ? COLLATE NOCASE
			AND release_name = ? COLLATE NOCASE
			AND art_resolved != ''
			AND is_superseded = 0
		ORDER BY played_at_utc_epoch DESC, id DESC
		LIMIT 1
	`, artist, release).Scan(&url)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return url, nil
}

// History returns archived plays matching the filter, newest first.
// Superseded entries never appear: their corrections do.
func (dao *DAO) History(ctx context.Context, filter HistoryFilter) ([]playlist.PlayEntry, error) {
	db := dao.db.DB()
	if db == nil {
		return nil, fmt.Errorf("database not open")
	}

	conditions := []string{"is_superseded = 0"}
	var args []interface{}

	if !filter.Start.IsZero() {
		conditions = append(conditions, "played_at_utc_epoch >= ?")
		args = append(args, filter.Start.Unix())
	}
	if !filter.End.IsZero() {
		conditions = append(conditions, "played_at_utc_epoch <= ?")
		args = append(args, filter.End.Unix())
	}
	if filter.DJName != "" {
		conditions = append(conditions, "dj_name LIKE ? COLLATE NOCASE")
		args = append(args, "%"+filter.DJName+"%")
	}
	if filter.Artist != "" {
		conditions = append(conditions, "artist LIKE ? COLLATE NOCASE")
		args = append(args, "%"+filter.Artist+"%")
	}
	if filter.LocalOnly {
		conditions = append(conditions, "is_local_artist = 1")
	}

	whereClause := "WHERE " + strings.Join(conditions, " AND ")

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	query := fmt.Sprintf(`
		SELECT `+entryColumns+`
		FROM play_history %s
		ORDER BY played_at_utc_epoch DESC, id DESC
		LIMIT ?
	`, whereClause)
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// GetStats computes archive statistics since the given time. Superseded
// entries are excluded from the play counts but included in the corrections
// count, which counts the corrected (superseding) entries.
func (dao *DAO) GetStats(ctx context.Context, since time.Time) (*Stats, error) {
	db := dao.db.DB()
	if db == nil {
		return nil, fmt.Errorf("database not open")
	}

	epoch := since.Unix()
	stats := &Stats{Since: since.UTC()}

	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COUNT(DISTINCT artist COLLATE NOCASE),
			COALESCE(SUM(is_local_artist), 0)
		FROM play_history
		WHERE played_at_utc_epoch >= ? AND is_superseded = 0
	`, epoch).Scan(&stats.TotalPlays, &stats.UniqueArtists, &stats.LocalArtistPlays)
	if err != nil {
		return nil, err
	}

	err = db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM play_history
		WHERE played_at_utc_epoch >= ? AND correction_of IS NOT NULL
	`, epoch).Scan(&stats.Corrections)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT dj_name, COUNT(*) AS plays
		FROM play_history
		WHERE played_at_utc_epoch >= ? AND is_superseded = 0 AND dj_name != ''
		GROUP BY dj_name COLLATE NOCASE
		ORDER BY plays DESC, dj_name COLLATE NOCASE
		LIMIT 10
	`, epoch)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var dc DJCount
		if err := rows.Scan(&dc.DJName, &dc.Plays); err != nil {
			return nil, err
		}
		stats.TopDJs = append(stats.TopDJs, dc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}

// scanEntries reads play entries from a result set using the entryColumns
// order.
func scanEntries(rows *sql.Rows) ([]playlist.PlayEntry, error) {
	var entries []playlist.PlayEntry
	for rows.Next() {
		var e playlist.PlayEntry
		var isLocal, isSuperseded int
		var playedUTC, playedLocal, capturedAt string
		var correctionOf sql.NullInt64
		var raw sql.NullString
		var captureSource string

		err := rows.Scan(
			&e.ID, &e.SourceID, &e.Artist, &e.Track, &e.Release, &e.Label, &e.DJName, &e.Notes,
			&isLocal, &playedUTC, &e.PlayedAtUTCEpoch, &playedLocal, &e.PlayedAtLocalEpoch,
			&e.ArtSmall, &e.ArtMedium, &e.ArtLarge, &e.ArtResolved, &correctionOf, &isSuperseded,
			&raw, &captureSource, &capturedAt,
		)
		if err != nil {
			return nil, err
		}

		e.IsLocalArtist = isLocal != 0
		e.IsSuperseded = isSuperseded != 0
		e.CaptureSource = playlist.CaptureSource(captureSource)
		if correctionOf.Valid {
			v := correctionOf.Int64
			e.CorrectionOf = &v
		}
		if raw.Valid && raw.String != "" {
			e.RawPayload = json.RawMessage(raw.String)
		}
		e.PlayedAtUTC, _ = time.Parse(time.RFC3339, playedUTC)
		if playedLocal != "" {
			e.PlayedAtLocal, _ = time.Parse(time.RFC3339, playedLocal)
		}
		e.CapturedAt, _ = time.Parse(time.RFC3339, capturedAt)

		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatMaybe(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
