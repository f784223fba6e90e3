package tracker

import (
	"github.com/shreyahuja108/sentryfeed/internal/geometry"
	"github.com/shreyahuja108/sentryfeed/internal/models"
)

const (
	// TripwireAlertDebounceMs is the minimum gap between two tripwire
	// alerts fired for the same track.
	TripwireAlertDebounceMs = 2000
	// LineEpsilon guards against firing a crossing when the centroid sits
	// numerically on the line itself.
	LineEpsilon = 1e-4
)

// applyTripwireCrossing runs the per-track line-crossing state machine and
// returns the tripwire event to emit, if any.
func applyTripwireCrossing(track *models.TrackState, tripwire [2]models.Point, nowMs int64) (Event, bool) {
	if track.Centroid == track.PrevCentroid {
		return Event{}, false // birth frame, or no movement since last update
	}
	// LastTripwireAlertMs == 0: no tripwire alert has fired for this track yet.
	if track.LastTripwireAlertMs != 0 && nowMs-track.LastTripwireAlertMs < TripwireAlertDebounceMs {
		return Event{}, false
	}

	x1, y1 := tripwire[0].X, tripwire[0].Y
	x2, y2 := tripwire[1].X, tripwire[1].Y

	prevSide := geometry.LineSide(track.PrevCentroid.X, track.PrevCentroid.Y, x1, y1, x2, y2)
	curSide := geometry.LineSide(track.Centroid.X, track.Centroid.Y, x1, y1, x2, y2)

	if abs(prevSide) <= LineEpsilon || abs(curSide) <= LineEpsilon {
		return Event{}, false
	}
	if prevSide*curSide >= 0 {
		return Event{}, false
	}

	direction := "unknown"
	switch {
	case prevSide < 0 && curSide > 0:
		direction = "left to right"
	case prevSide > 0 && curSide < 0:
		direction = "right to left"
	}

	track.LastTripwireAlertMs = nowMs
	return Event{
		Kind:      models.AlertTripwire,
		TrackID:   track.ID,
		Label:     track.Label,
		Direction: direction,
	}, true
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
