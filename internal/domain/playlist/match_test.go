package playlist

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"Mavis Staples", "mavis staples"},
		{"  spaced   out  ", "spaced out"},
		{"R.E.M.", "rem"},
		{"AC/DC!", "acdc"},
		{"Sigur Rós", "sigur rós"},
		{"What's Going On?", "whats going on"},
	}

	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSimilar(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"Mavis Staples", "mavis staples", true},
		{"The Beatles", "Beatles", true}, // substring
		{"We Get By", "We Get By (Deluxe Edition)", true},
		{"Dehd", "Finom", false},
		{"", "Dehd", false},
		{"", "", true},
	}

	for _, tt := range tests {
		if got := Similar(tt.a, tt.b); got != tt.want {
			t.Errorf("Similar(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name    string
		a, b    string
		wantMin float64
		wantMax float64
	}{
		{"identical", "Mavis Staples", "Mavis Staples", 1, 1},
		{"identical after normalize", "R.E.M.", "REM", 1, 1},
		{"both empty", "", "", 0, 0},
		{"one empty", "Dehd", "", 0, 0},
		{"unrelated", "Dehd", "Finom", 0, 0.2},
		{"close variants", "The Jesus and Mary Chain", "Jesus and Mary Chain", 0.7, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Similarity(tt.a, tt.b)
			if got < tt.wantMin || got > tt.wantMax {
				t.Errorf("Similarity(%q, %q) = %f, want in [%f, %f]", tt.a, tt.b, got, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestTrackSignature(t *testing.T) {
	if got := TrackSignature("  Dehd ", "Bad Love"); got != "dehd - bad love" {
		t.Errorf("TrackSignature = %q", got)
	}

	a := TrackSignature("Dehd", "Bad Love")
	b := TrackSignature("DEHD", "BAD LOVE")
	if a != b {
		t.Errorf("signatures differ on case: %q vs %q", a, b)
	}
}
