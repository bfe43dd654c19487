package models

import "time"

// ReleaseArtist is a credited artist on a candidate release.
type ReleaseArtist struct {
	ID   string
	Name string
	URL  string
}

// Release is a candidate release fetched from the upstream catalog.
//
// Transient: produced by the resolver during one synchronization run and never
// persisted. ReleaseDate keeps the upstream string form since its precision
// varies (year, month, or day).
type Release struct {
	ID          string
	URI         string
	Name        string
	ReleaseDate string
	ImageURL    string
	Artists     []ReleaseArtist
}

// releaseDateLayouts covers the precisions the upstream catalog reports.
var releaseDateLayouts = []string{"2006-01-02", "2006-01", "2006"}

// ReleasedAt parses the release date at whatever precision upstream provided.
// Returns the zero time when the date is absent or unparseable.
func (r Release) ReleasedAt() time.Time {
	for _, layout := range releaseDateLayouts {
		if t, err := time.Parse(layout, r.ReleaseDate); err == nil {
			return t
		}
	}
	return time.Time{}
}
