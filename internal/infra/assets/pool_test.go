package assets

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestURLsScansImagesOnly(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.jpg")
	writeFile(t, dir, "a.png")
	writeFile(t, dir, "notes.txt")
	writeFile(t, dir, "c.webp")
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatal(err)
	}

	p := NewPoolLoader(dir, "/images/fallback/")

	urls := p.URLs()
	want := []string{
		"/images/fallback/a.png",
		"/images/fallback/b.jpg",
		"/images/fallback/c.webp",
	}
	if len(urls) != len(want) {
		t.Fatalf("got %d urls: %v", len(urls), urls)
	}
	for i := range want {
		if urls[i] != want[i] {
			t.Errorf("urls[%d] = %q, want %q", i, urls[i], want[i])
		}
	}
	if !p.Ready() {
		t.Error("pool should be ready after a successful scan")
	}
}

func TestURLsScansOnce(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.jpg")

	p := NewPoolLoader(dir, "/pool")
	if n := len(p.URLs()); n != 1 {
		t.Fatalf("got %d urls", n)
	}

	// New files after the first scan are not picked up.
	writeFile(t, dir, "b.jpg")
	if n := len(p.URLs()); n != 1 {
		t.Errorf("got %d urls after second call, want 1 (single scan)", n)
	}
}

func TestURLsMissingDirRetries(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "later")
	p := NewPoolLoader(dir, "/pool")

	if urls := p.URLs(); urls != nil {
		t.Fatalf("expected nil for missing dir, got %v", urls)
	}
	if p.Ready() {
		t.Fatal("pool should not be ready")
	}

	// Directory appears later; the gate retries.
	if err := os.Mkdir(dir, 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, dir, "a.jpg")

	if n := len(p.URLs()); n != 1 {
		t.Errorf("got %d urls after dir appeared, want 1", n)
	}
}
