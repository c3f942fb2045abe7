package imagecheck

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// Minimal valid PNG header bytes.
var pngMagic = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

func TestIsLoadable(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    bool
	}{
		{
			name: "image content type",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "image/jpeg")
				w.Write([]byte("fake jpeg data"))
			},
			want: true,
		},
		{
			name: "missing content type but png magic bytes",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/octet-stream")
				w.Write(pngMagic)
			},
			want: true,
		},
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.NotFound(w, r)
			},
			want: false,
		},
		{
			name: "html error page with 200",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				w.Write([]byte("<html><body>no cover</body></html>"))
			},
			want: false,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := NewChecker()
			if got := c.IsLoadable(context.Background(), srv.URL); got != tt.want {
				t.Errorf("IsLoadable = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsLoadableRejectsBadURLs(t *testing.T) {
	c := NewChecker()
	ctx := context.Background()

	for _, u := range []string{"", "not a url", "ftp://example.com/a.png", "/images/local.png"} {
		if c.IsLoadable(ctx, u) {
			t.Errorf("IsLoadable(%q) = true, want false", u)
		}
	}
}

func TestIsLoadableTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngMagic)
	}))
	defer srv.Close()

	c := NewChecker(WithTimeout(20 * time.Millisecond))

	start := time.Now()
	if c.IsLoadable(context.Background(), srv.URL) {
		t.Error("expected timeout to fail the check")
	}
	if elapsed := time.Since(start); elapsed > 150*time.Millisecond {
		t.Errorf("check took %v, should have been cut off by the timeout", elapsed)
	}
}

func TestDetectMimeType(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0}, "image/jpeg"},
		{"png", pngMagic, "image/png"},
		{"gif", []byte("GIF89a"), "image/gif"},
		{"webp", append([]byte("RIFF\x00\x00\x00\x00"), []byte("WEBP")...), "image/webp"},
		{"text", []byte("hello world"), "application/octet-stream"},
		{"short", []byte{0x01}, "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectMimeType(tt.data); got != tt.want {
				t.Errorf("detectMimeType = %q, want %q", got, tt.want)
			}
		})
	}
}
