package activity

import "time"

// StartDateLayout is the format Strava uses for start_date.
const StartDateLayout = "2006-01-02T15:04:05Z"

// fallbackLag is how far before "now" a run with an unreadable start date
// samples the weather.
const fallbackLag = time.Hour

// TimeResolution is the outcome of ResolveTime.
type TimeResolution struct {
	// Start is the parsed start instant, or now-1h on fallback.
	Start time.Time
	// Sample is the instant weather is requested for.
	Sample       time.Time
	UsedFallback bool
}

// ResolveTime picks the instant whose weather represents the activity: the
// midpoint between start and start+elapsed. A missing or malformed start date
// falls back to one hour before now.
func ResolveTime(startDate string, elapsedSeconds int, now time.Time) TimeResolution {
	// time.Parse tolerates fractional seconds the layout does not name.
	start, err := time.Parse(StartDateLayout, startDate)
	if err != nil || len(startDate) != len(StartDateLayout) {
		fallback := now.Add(-fallbackLag).UTC()
		return TimeResolution{Start: fallback, Sample: fallback, UsedFallback: true}
	}

	start = start.UTC()
	return TimeResolution{
		Start:  start,
		Sample: start.Add(time.Duration(floorHalf(elapsedSeconds)) * time.Second),
	}
}

func floorHalf(n int) int {
	half := n / 2
	if n < 0 && n%2 != 0 {
		half--
	}
	return half
}
