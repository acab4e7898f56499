package activity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ptr(s string) *string { return &s }

func outdoorRun() Activity {
	return Activity{
		ID:          42,
		Name:        "Morning Run",
		Type:        "Run",
		StartDate:   "2023-06-01T10:00:00Z",
		ElapsedTime: 3600,
		StartLatLng: []float64{55.75, 37.61},
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(a *Activity)
		reason string
		ok     bool
	}{
		{name: "eligible", modify: func(a *Activity) {}, ok: true},
		{name: "manual", modify: func(a *Activity) { a.Manual = true }, reason: SkipManual},
		{name: "trainer", modify: func(a *Activity) { a.Trainer = true }, reason: SkipIndoorOrVirtual},
		{name: "virtual ride", modify: func(a *Activity) { a.Type = "VirtualRide" }, reason: SkipIndoorOrVirtual},
		{
			name:   "already annotated",
			modify: func(a *Activity) { a.Description = ptr("Nice run\nClear sky, 🌡 20°C (feels like 19°C).") },
			reason: SkipAlreadyAnnotated,
		},
		{name: "no coordinates", modify: func(a *Activity) { a.StartLatLng = nil }, reason: SkipMissingLocation},
		{name: "zero latitude", modify: func(a *Activity) { a.StartLatLng = []float64{0, 37.61} }, reason: SkipMissingLocation},
		{name: "zero longitude", modify: func(a *Activity) { a.StartLatLng = []float64{55.75, 0} }, reason: SkipMissingLocation},
		{
			name: "manual wins over other rules",
			modify: func(a *Activity) {
				a.Manual = true
				a.Trainer = true
				a.StartLatLng = nil
			},
			reason: SkipManual,
		},
		{
			name:   "plain description is fine",
			modify: func(a *Activity) { a.Description = ptr("Legs felt heavy") },
			ok:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := outdoorRun()
			tt.modify(&a)

			reason, ok := Evaluate(a)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestTrimmedDescription(t *testing.T) {
	a := outdoorRun()
	assert.Equal(t, "", a.TrimmedDescription())

	a.Description = ptr("  Tempo\t \n")
	assert.Equal(t, "  Tempo", a.TrimmedDescription())
}

func TestResolveTime(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("midpoint of the activity", func(t *testing.T) {
		res := ResolveTime("2023-06-01T10:00:00Z", 3600, now)
		assert.False(t, res.UsedFallback)
		assert.Equal(t, time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC), res.Start)
		assert.Equal(t, time.Date(2023, 6, 1, 10, 30, 0, 0, time.UTC), res.Sample)
	})

	t.Run("odd elapsed time truncates", func(t *testing.T) {
		res := ResolveTime("2023-06-01T10:00:00Z", 61, now)
		assert.Equal(t, time.Date(2023, 6, 1, 10, 0, 30, 0, time.UTC), res.Sample)
	})

	t.Run("negative elapsed time floors", func(t *testing.T) {
		res := ResolveTime("2023-06-01T10:00:00Z", -3, now)
		assert.Equal(t, time.Date(2023, 6, 1, 9, 59, 58, 0, time.UTC), res.Sample)
	})

	bad := []string{
		"",
		"yesterday",
		"2023-06-01 10:00:00",
		"2023-06-01T10:00:00+02:00",
		"2023-06-01T10:00:00.500Z",
		"2023-06-01T10:00:00,5Z",
	}
	for _, bad := range bad {
		t.Run("fallback for "+bad, func(t *testing.T) {
			res := ResolveTime(bad, 3600, now)
			assert.True(t, res.UsedFallback)
			assert.Equal(t, now.Add(-time.Hour), res.Sample)
			assert.Equal(t, res.Sample, res.Start)
		})
	}
}
