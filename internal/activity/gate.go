package activity

import "strings"

// Skip reasons reported by Evaluate.
const (
	SkipManual           = "manual_activity"
	SkipIndoorOrVirtual  = "indoor_or_virtual"
	SkipAlreadyAnnotated = "already_annotated"
	SkipMissingLocation  = "missing_location"
)

// annotationMarker is present in every description this service writes.
const annotationMarker = "°C"

// Evaluate decides whether an activity can be annotated. When ok is false,
// reason names the first rule that rejected it.
func Evaluate(a Activity) (reason string, ok bool) {
	switch {
	case a.Manual:
		return SkipManual, false
	case a.Trainer || a.Type == "VirtualRide":
		return SkipIndoorOrVirtual, false
	case strings.Contains(a.TrimmedDescription(), annotationMarker):
		return SkipAlreadyAnnotated, false
	}
	if _, _, hasLocation := a.Coordinates(); !hasLocation {
		return SkipMissingLocation, false
	}
	return "", true
}
