package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const sampleFeed = `{
	"nowPlaying": {
		"sourceId": "play-100",
		"artist": "Mdou Moctar",
		"track": "Funeral for Justice",
		"release": "Funeral for Justice",
		"label": "Matador",
		"djName": "Marty: Early Risers",
		"playedAtUtc": "2026-08-31T14:03:00Z",
		"playedAtUtcEpoch": 1788271380,
		"playedAtLocal": "2026-08-31T09:03:00-05:00",
		"playedAtLocalEpoch": 1788253380,
		"isLocalArtist": false,
		"artHints": {"small": "https://img.example/s.jpg", "medium": "", "large": "https://img.example/l.jpg"}
	},
	"recentlyPlayed": [
		{"sourceId": "play-99", "artist": "Dehd", "track": "Bad Love", "release": "Blue Skies", "isLocalArtist": true},
		{"sourceId": "play-98", "artist": "Finom", "track": "Haircut", "release": "Not God"}
	]
}`

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("Accept = %q", got)
		}
		w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	pl, err := NewClient(srv.URL).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if pl.Current == nil {
		t.Fatal("expected a current entry")
	}
	if pl.Current.SourceID != "play-100" {
		t.Errorf("current sourceId = %q", pl.Current.SourceID)
	}
	if pl.Current.ArtHints.Large != "https://img.example/l.jpg" {
		t.Errorf("large hint = %q", pl.Current.ArtHints.Large)
	}
	if len(pl.Current.Raw) == 0 {
		t.Error("expected raw payload to be preserved")
	}
	if len(pl.Recent) != 2 {
		t.Fatalf("got %d recent entries, want 2", len(pl.Recent))
	}
	if !pl.Recent[0].IsLocalArtist {
		t.Error("recent[0] should be a local artist")
	}

	entries := pl.Entries()
	if len(entries) != 3 {
		t.Fatalf("Entries() = %d, want 3", len(entries))
	}
	if entries[0].SourceID != "play-100" {
		t.Errorf("current should come first, got %q", entries[0].SourceID)
	}
}

func TestFetchNullCurrent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"nowPlaying": null, "recentlyPlayed": []}`))
	}))
	defer srv.Close()

	pl, err := NewClient(srv.URL).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if pl.Current != nil {
		t.Error("expected nil current entry")
	}
	if len(pl.Entries()) != 0 {
		t.Error("expected no entries")
	}
}

func TestFetchErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
		},
		{
			name: "malformed document",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("<html>offline</html>"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			if _, err := NewClient(srv.URL).Fetch(context.Background()); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestFetchDropsMalformedEntries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// recentlyPlayed[1] has a wrongly typed field.
		w.Write([]byte(`{
			"nowPlaying": null,
			"recentlyPlayed": [
				{"sourceId": "ok-1", "artist": "A", "track": "T"},
				{"sourceId": "bad-1", "artist": 42},
				{"sourceId": "ok-2", "artist": "B", "track": "U"}
			]
		}`))
	}))
	defer srv.Close()

	pl, err := NewClient(srv.URL).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(pl.Recent) != 2 {
		t.Fatalf("got %d entries, want 2 (malformed one dropped)", len(pl.Recent))
	}
	if pl.Recent[0].SourceID != "ok-1" || pl.Recent[1].SourceID != "ok-2" {
		t.Errorf("unexpected surviving entries: %q, %q", pl.Recent[0].SourceID, pl.Recent[1].SourceID)
	}
}
