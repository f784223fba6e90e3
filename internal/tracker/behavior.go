package tracker

import (
	"github.com/shreyahuja108/sentryfeed/internal/geometry"
	"github.com/shreyahuja108/sentryfeed/internal/models"
)

// LoiteringThresholdMs is the minimum continuous ROI occupancy before a
// loitering alert fires.
const LoiteringThresholdMs = 8000

// applyROIAndLoitering runs the ROI occupancy + loitering state machine for
// one track and returns the loitering event to emit, if any.
func applyROIAndLoitering(track *models.TrackState, roi []models.Point, hasROI bool, nowMs int64) (Event, bool) {
	if !hasROI {
		track.InsideROI = false
		return Event{}, false
	}

	nowInside := geometry.PointInPolygon(track.Centroid, roi)

	switch {
	case !track.InsideROI && nowInside: // enter
		track.EnteredROIMs = nowMs
		track.LoiterAlertSent = false
	case track.InsideROI && !nowInside: // exit
		track.EnteredROIMs = 0
		track.LoiterAlertSent = false
	}

	var ev Event
	fired := false
	if nowInside && !track.LoiterAlertSent && nowMs-track.EnteredROIMs >= LoiteringThresholdMs {
		ev = Event{
			Kind:       models.AlertLoitering,
			TrackID:    track.ID,
			Label:      track.Label,
			DurationMs: nowMs - track.EnteredROIMs,
		}
		track.LoiterAlertSent = true
		fired = true
	}

	track.InsideROI = nowInside
	return ev, fired
}
