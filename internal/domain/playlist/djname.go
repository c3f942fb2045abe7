package playlist

import "strings"

// ParseDJShow splits the feed's DJ field into DJ and show names.
// If the feed supplies a show name it wins as-is; otherwise a DJ field of
// the form "DJ Name: Show Name" is split on the first colon.
func ParseDJShow(djField, showField string) (djName, showName string) {
	dj := strings.TrimSpace(djField)
	show := strings.TrimSpace(showField)

	if show != "" {
		return dj, show
	}

	if idx := strings.Index(dj, ":"); idx >= 0 {
		return strings.TrimSpace(dj[:idx]), strings.TrimSpace(dj[idx+1:])
	}

	return dj, ""
}
