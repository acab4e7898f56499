package activity

import (
	"strings"
	"unicode"
)

// Activity is the subset of a Strava activity the annotator reads.
type Activity struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Manual      bool      `json:"manual"`
	Trainer     bool      `json:"trainer"`
	Type        string    `json:"type"`
	Description *string   `json:"description"`
	StartDate   string    `json:"start_date"`
	ElapsedTime int       `json:"elapsed_time"`
	StartLatLng []float64 `json:"start_latlng"`
}

// Coordinates returns the start position. ok is false when it is absent or
// when either coordinate is zero.
func (a Activity) Coordinates() (lat, lon float64, ok bool) {
	if len(a.StartLatLng) < 2 {
		return 0, 0, false
	}
	lat, lon = a.StartLatLng[0], a.StartLatLng[1]
	if lat == 0 || lon == 0 {
		return 0, 0, false
	}
	return lat, lon, true
}

// TrimmedDescription returns the description without trailing whitespace,
// or "" when the activity has none.
func (a Activity) TrimmedDescription() string {
	if a.Description == nil {
		return ""
	}
	return strings.TrimRightFunc(*a.Description, unicode.IsSpace)
}

// Patch is the set of fields written back to the activity. An empty Name
// leaves the title untouched.
type Patch struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description"`
}
