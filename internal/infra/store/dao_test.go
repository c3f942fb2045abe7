package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/lakefm/airlog/internal/domain/playlist"
)

func openTestDB(t *testing.T) (*DB, *DAO) {
	t.Helper()

	db := NewDB(filepath.Join(t.TempDir(), "history.db"))
	if err := db.Open(); err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db, NewDAO(db)
}

func testEntry(sourceID string, playedAt time.Time) *playlist.PlayEntry {
	return &playlist.PlayEntry{
		SourceID:         sourceID,
		Artist:           "Ratboys",
		Track:            "Black Earth, WI",
		Release:          "The Window",
		Label:            "Topshelf",
		DJName:           "Nina",
		PlayedAtUTC:      playedAt,
		PlayedAtUTCEpoch: playedAt.Unix(),
		CaptureSource:    playlist.CaptureScheduled,
		CapturedAt:       time.Now().UTC(),
	}
}

func TestInsertAndExists(t *testing.T) {
	_, dao := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	exists, err := dao.Exists(ctx, "p-1")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if exists {
		t.Fatal("entry should not exist yet")
	}

	id, inserted, err := dao.Insert(ctx, testEntry("p-1", now))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if !inserted || id == 0 {
		t.Fatalf("inserted = %v, id = %d", inserted, id)
	}

	exists, err = dao.Exists(ctx, "p-1")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !exists {
		t.Fatal("entry should exist after insert")
	}
}

func TestInsertIsIdempotentOnSourceID(t *testing.T) {
	_, dao := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if _, inserted, err := dao.Insert(ctx, testEntry("p-1", now)); err != nil || !inserted {
		t.Fatalf("first insert: inserted=%v err=%v", inserted, err)
	}

	// Same source ID, different content: must be a silent no-op.
	dup := testEntry("p-1", now)
	dup.Artist = "Someone Else"
	_, inserted, err := dao.Insert(ctx, dup)
	if err != nil {
		t.Fatalf("duplicate insert: %v", err)
	}
	if inserted {
		t.Fatal("duplicate source ID should not insert")
	}

	entries, err := dao.History(ctx, HistoryFilter{})
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Artist != "Ratboys" {
		t.Errorf("first write should win, got artist %q", entries[0].Artist)
	}
}

func TestFindCorrectionCandidates(t *testing.T) {
	_, dao := openTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 31, 14, 0, 0, 0, time.UTC)

	inWindow := testEntry("p-1", base.Add(-2*time.Minute))
	outsideWindow := testEntry("p-2", base.Add(-20*time.Minute))
	self := testEntry("p-3", base)

	for _, e := range []*playlist.PlayEntry{inWindow, outsideWindow, self} {
		if _, _, err := dao.Insert(ctx, e); err != nil {
			t.Fatalf("Insert %s: %v", e.SourceID, err)
		}
	}

	got, err := dao.FindCorrectionCandidates(ctx, base, 5*time.Minute, "p-3")
	if err != nil {
		t.Fatalf("FindCorrectionCandidates: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1", len(got))
	}
	if got[0].SourceID != "p-1" {
		t.Errorf("candidate = %q, want p-1", got[0].SourceID)
	}
}

func TestFindCorrectionCandidatesSkipsSuperseded(t *testing.T) {
	_, dao := openTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 31, 14, 0, 0, 0, time.UTC)

	id, _, err := dao.Insert(ctx, testEntry("p-1", base))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := dao.MarkSuperseded(ctx, id); err != nil {
		t.Fatalf("MarkSuperseded: %v", err)
	}

	got, err := dao.FindCorrectionCandidates(ctx, base, 5*time.Minute, "p-x")
	if err != nil {
		t.Fatalf("FindCorrectionCandidates: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("superseded entry should be excluded, got %d", len(got))
	}
}

func TestCachedArt(t *testing.T) {
	_, dao := openTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	older := testEntry("p-1", base)
	older.ArtResolved = "https://img.example/old.jpg"
	newer := testEntry("p-2", base.Add(2*time.Hour))
	newer.ArtResolved = "https://img.example/new.jpg"
	unresolved := testEntry("p-3", base.Add(3*time.Hour))

	for _, e := range []*playlist.PlayEntry{older, newer, unresolved} {
		if _, _, err := dao.Insert(ctx, e); err != nil {
			t.Fatalf("Insert %s: %v", e.SourceID, err)
		}
	}

	url, err := dao.CachedArt(ctx, "ratboys", "the window")
	if err != nil {
		t.Fatalf("CachedArt: %v", err)
	}
	if url != "https://img.example/new.jpg" {
		t.Errorf("url = %q, want most recent resolved", url)
	}

	url, err = dao.CachedArt(ctx, "Nobody", "Nothing")
	if err != nil {
		t.Fatalf("CachedArt miss: %v", err)
	}
	if url != "" {
		t.Errorf("miss should return empty, got %q", url)
	}
}

func TestHistoryFilters(t *testing.T) {
	_, dao := openTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)

	a := testEntry("p-1", base)
	b := testEntry("p-2", base.Add(time.Hour))
	b.DJName = "Marty"
	b.Artist = "Dehd"
	b.IsLocalArtist = true
	c := testEntry("p-3", base.Add(2*time.Hour))
	c.DJName = "Marty"
	c.Artist = "Finom"

	for _, e := range []*playlist.PlayEntry{a, b, c} {
		if _, _, err := dao.Insert(ctx, e); err != nil {
			t.Fatalf("Insert %s: %v", e.SourceID, err)
		}
	}

	tests := []struct {
		name   string
		filter HistoryFilter
		want   []string
	}{
		{"no filter newest first", HistoryFilter{}, []string{"p-3", "p-2", "p-1"}},
		{"by dj", HistoryFilter{DJName: "marty"}, []string{"p-3", "p-2"}},
		{"by artist", HistoryFilter{Artist: "dehd"}, []string{"p-2"}},
		{"local only", HistoryFilter{LocalOnly: true}, []string{"p-2"}},
		{"limit", HistoryFilter{Limit: 2}, []string{"p-3", "p-2"}},
		{"start bound", HistoryFilter{Start: base.Add(30 * time.Minute)}, []string{"p-3", "p-2"}},
		{"end bound", HistoryFilter{End: base.Add(30 * time.Minute)}, []string{"p-1"}},
		{"start and end", HistoryFilter{Start: base.Add(30 * time.Minute), End: base.Add(90 * time.Minute)}, []string{"p-2"}},
		{"start inclusive", HistoryFilter{Start: base.Add(time.Hour), End: base.Add(time.Hour)}, []string{"p-2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := dao.History(ctx, tt.filter)
			if err != nil {
				t.Fatalf("History: %v", err)
			}
			if len(entries) != len(tt.want) {
				t.Fatalf("got %d entries, want %d", len(entries), len(tt.want))
			}
			for i, want := range tt.want {
				if entries[i].SourceID != want {
					t.Errorf("entry[%d] = %q, want %q", i, entries[i].SourceID, want)
				}
			}
		})
	}
}

func TestHistoryExcludesSuperseded(t *testing.T) {
	_, dao := openTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 31, 14, 0, 0, 0, time.UTC)

	origID, _, err := dao.Insert(ctx, testEntry("p-orig", base))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	corr := testEntry("p-corr", base.Add(time.Minute))
	corr.CorrectionOf = &origID
	if _, _, err := dao.Insert(ctx, corr); err != nil {
		t.Fatalf("Insert correction: %v", err)
	}
	if err := dao.MarkSuperseded(ctx, origID); err != nil {
		t.Fatalf("MarkSuperseded: %v", err)
	}

	entries, err := dao.History(ctx, HistoryFilter{})
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	for _, e := range entries {
		if e.SourceID == "p-orig" {
			t.Fatalf("superseded entry %q returned by History", e.SourceID)
		}
	}
	if len(entries) != 1 || entries[0].SourceID != "p-corr" {
		t.Fatalf("got %+v, want only the correction", entries)
	}
}

func TestGetStats(t *testing.T) {
	_, dao := openTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)

	a := testEntry("p-1", base)
	b := testEntry("p-2", base.Add(time.Hour))
	b.Artist = "Dehd"
	b.IsLocalArtist = true
	b.DJName = "Marty"

	origID, _, err := dao.Insert(ctx, a)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if _, _, err := dao.Insert(ctx, b); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	// A correction of p-1: supersedes it and links back.
	corr := testEntry("p-3", base.Add(time.Minute))
	corr.CorrectionOf = &origID
	if _, _, err := dao.Insert(ctx, corr); err != nil {
		t.Fatalf("Insert correction: %v", err)
	}
	if err := dao.MarkSuperseded(ctx, origID); err != nil {
		t.Fatalf("MarkSuperseded: %v", err)
	}

	stats, err := dao.GetStats(ctx, base.Add(-time.Hour))
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}

	if stats.TotalPlays != 2 {
		t.Errorf("TotalPlays = %d, want 2 (superseded excluded)", stats.TotalPlays)
	}
	if stats.UniqueArtists != 2 {
		t.Errorf("UniqueArtists = %d, want 2", stats.UniqueArtists)
	}
	if stats.LocalArtistPlays != 1 {
		t.Errorf("LocalArtistPlays = %d, want 1", stats.LocalArtistPlays)
	}
	if stats.Corrections != 1 {
		t.Errorf("Corrections = %d, want 1", stats.Corrections)
	}
	if len(stats.TopDJs) != 2 {
		t.Errorf("TopDJs = %+v, want two DJs", stats.TopDJs)
	}
}
