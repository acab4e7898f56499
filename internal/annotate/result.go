package annotate

import "github.com/i474232898/strava-weather/internal/activity"

// SkipWeatherUnavailable is reported when the primary weather request fails.
// A description without temperature is not worth writing.
const SkipWeatherUnavailable = "weather_unavailable"

// Result is the outcome of one enrichment: either a skip with a reason or a
// patch to apply to the activity.
type Result struct {
	Skipped bool           `json:"skipped"`
	Reason  string         `json:"reason,omitempty"`
	Patch   activity.Patch `json:"patch"`
}

// Skip builds a skipped result.
func Skip(reason string) Result {
	return Result{Skipped: true, Reason: reason}
}

// Patched builds a result carrying a patch.
func Patched(p activity.Patch) Result {
	return Result{Patch: p}
}
