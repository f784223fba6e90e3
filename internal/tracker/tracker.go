// Package tracker implements the centroid object tracker: nearest-neighbour
// assignment of detections to persistent tracks in normalized coordinates,
// followed by the ROI/loitering and per-track tripwire behavior state
// machines. The tracker, like the motion detector, is owned exclusively by
// one pipeline's worker goroutine; its track map is unlocked, and only the
// ROI/tripwire policy fields sit behind a mutex.
package tracker

import (
	"math"
	"sync"

	"github.com/samber/lo"

	"github.com/shreyahuja108/sentryfeed/internal/models"
)

const (
	// MaxTrackDistance is the normalized-space cutoff beyond which a
	// detection may not be assigned to an existing track.
	MaxTrackDistance = 0.1
	// TrackTimeoutMs evicts a track once it has gone this long unseen.
	TrackTimeoutMs = 2000
)

// Event is one behavior alert produced by a single Update call, emitted by
// either the ROI/loitering state machine or the per-track tripwire state
// machine.
type Event struct {
	Kind       models.AlertKind // AlertLoitering or AlertTripwire
	TrackID    int
	Label      string
	DurationMs int64  // loitering only
	Direction  string // tripwire only: "left to right" | "right to left" | "unknown"
}

// Tracker owns the live track map and the ROI/tripwire policy it evaluates
// every track against. Not safe for concurrent Update calls.
type Tracker struct {
	mu          sync.Mutex // guards only the policy fields, set from the control side
	roi         []models.Point
	hasROI      bool
	tripwire    [2]models.Point
	hasTripwire bool

	tracks map[int]*models.TrackState
	nextID int
}

// New returns an empty tracker with no ROI or tripwire configured.
func New() *Tracker {
	return &Tracker{tracks: make(map[int]*models.TrackState)}
}

// SetROI installs the normalized ROI polygon the loitering state machine
// tests track centroids against.
func (t *Tracker) SetROI(points []models.Point) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.roi = points
	t.hasROI = len(points) >= 3
}

// ClearROI removes the ROI polygon.
func (t *Tracker) ClearROI() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.roi = nil
	t.hasROI = false
}

// SetTripwire installs the normalized tripwire line the per-track crossing
// state machine tests track movement against.
func (t *Tracker) SetTripwire(start, end models.Point) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tripwire = [2]models.Point{start, end}
	t.hasTripwire = true
}

// ClearTripwire removes the tripwire.
func (t *Tracker) ClearTripwire() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hasTripwire = false
}

func (t *Tracker) policy() ([]models.Point, bool, [2]models.Point, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.roi, t.hasROI, t.tripwire, t.hasTripwire
}

// Tracks returns a snapshot copy of the live track list, in no particular
// order.
func (t *Tracker) Tracks() []models.TrackState {
	out := make([]models.TrackState, 0, len(t.tracks))
	for _, ts := range t.tracks {
		out = append(out, *ts)
	}
	return out
}

// Update filters detections to the allowed class set, converts each to a
// normalized centroid, assigns them to existing or newly created tracks,
// runs the ROI/loitering and per-track tripwire state machines on every
// updated track in that order, evicts stale tracks, and returns the
// behavior events to emit. nowMs is the caller's clock reading so tests can
// drive debouncing deterministically.
func (t *Tracker) Update(detections []models.Detection, frameW, frameH int, nowMs int64) []Event {
	kept := lo.Filter(detections, func(d models.Detection, _ int) bool {
		return models.AllowedTrackClasses[d.Class]
	})

	roi, hasROI, tripwire, hasTripwire := t.policy()

	matched := make(map[int]bool, len(t.tracks))
	var events []Event

	for _, d := range kept {
		centroid := centroidOf(d, frameW, frameH)

		bestID := -1
		bestDist := MaxTrackDistance
		for id, ts := range t.tracks {
			if matched[id] {
				continue
			}
			dist := distance(ts.Centroid, centroid)
			if dist < bestDist || (dist == bestDist && bestID != -1 && id < bestID) {
				bestDist = dist
				bestID = id
			}
		}

		var track *models.TrackState
		if bestID != -1 {
			track = t.tracks[bestID]
			track.PrevCentroid = track.Centroid
			track.Centroid = centroid
			track.LastSeenMs = nowMs
			matched[bestID] = true
		} else {
			t.nextID++
			track = &models.TrackState{
				ID:           t.nextID,
				Label:        d.Class,
				Centroid:     centroid,
				PrevCentroid: centroid, // no crossing can fire on the birth frame
				FirstSeenMs:  nowMs,
				LastSeenMs:   nowMs,
			}
			t.tracks[track.ID] = track
			matched[track.ID] = true
		}

		if ev, ok := applyROIAndLoitering(track, roi, hasROI, nowMs); ok {
			events = append(events, ev)
		}
		if hasTripwire {
			if ev, ok := applyTripwireCrossing(track, tripwire, nowMs); ok {
				events = append(events, ev)
			}
		}
	}

	for id, ts := range t.tracks {
		if nowMs-ts.LastSeenMs > TrackTimeoutMs {
			delete(t.tracks, id)
		}
	}

	return events
}

func centroidOf(d models.Detection, frameW, frameH int) models.Point {
	cx := (d.X + d.W/2) / float64(frameW)
	cy := (d.Y + d.H/2) / float64(frameH)
	return models.Point{X: cx, Y: cy}
}

func distance(a, b models.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
