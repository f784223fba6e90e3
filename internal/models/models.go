// Package models holds the core data types shared across the analytics
// pipeline: camera configuration, captured frames, detections, track
// state, and alerts. None of these types know about QML, HTTP, or any
// other outer surface — they are plain Go values, per the "deep
// inheritance of model classes" design note.
package models

import "time"

// Point is a normalized coordinate in [0,1], independent of frame
// resolution. Used for ROI vertices, tripwire endpoints, and track
// centroids.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// SourceKind distinguishes a local capture device from a network stream.
type SourceKind string

const (
	SourceUSB  SourceKind = "usb"
	SourceRTSP SourceKind = "rtsp"
	SourceIP   SourceKind = "ip"
)

// MaxCameras is the number of fixed slots the external surfaces report,
// Disabled entries still consume a slot.
const MaxCameras = 4

// CameraConfig is one entry of cameras.json.
type CameraConfig struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Type      SourceKind `json:"type"`
	Source    string     `json:"source"`
	Enabled   bool       `json:"enabled"`
	ROI       []Point    `json:"-"`
	HasROI    bool       `json:"-"`
	Tripwire  [2]Point   `json:"-"`
	HasTripwire bool     `json:"-"`
}

// Frame is one captured image plus its capture time. Width/Height are the
// pixel dimensions of Pixels, which is always a tightly packed RGB buffer.
type Frame struct {
	Width     int
	Height    int
	Pixels    []byte
	CapturedAt time.Time
}

// Clone returns a deep copy of f so the receiver may mutate or retain it
// independently of the producer's buffer reuse.
func (f Frame) Clone() Frame {
	buf := make([]byte, len(f.Pixels))
	copy(buf, f.Pixels)
	return Frame{Width: f.Width, Height: f.Height, Pixels: buf, CapturedAt: f.CapturedAt}
}

// Detection is one object found by the external detector, in pixel
// coordinates relative to the frame it was produced from.
type Detection struct {
	ClassID    int
	Class      string
	Confidence float64
	X, Y, W, H float64 // bounding box, pixel coords
}

// AllowedTrackClasses is the fixed class set the tracker keeps. Anything
// else is dropped before assignment.
var AllowedTrackClasses = map[string]bool{
	"person":  true,
	"car":     true,
	"bicycle": true,
	"dog":     true,
	"cat":     true,
}

// TrackState is the tracker's per-object bookkeeping. Centroids are
// normalized; timestamps are Unix milliseconds.
type TrackState struct {
	ID              int
	Label           string
	Centroid        Point
	PrevCentroid    Point
	FirstSeenMs     int64
	LastSeenMs      int64
	InsideROI       bool
	EnteredROIMs    int64
	LoiterAlertSent bool
	LastTripwireAlertMs int64
}

// AlertKind enumerates the fixed set of alert types this engine emits.
type AlertKind string

const (
	AlertSnapshot  AlertKind = "snapshot"
	AlertMotion    AlertKind = "motion"
	AlertMotionROI AlertKind = "motion_roi"
	AlertTripwire  AlertKind = "tripwire"
	AlertLoitering AlertKind = "loitering"
)

// Alert is one entry in the aggregator's ordered list.
type Alert struct {
	ID           string
	Timestamp    time.Time
	CameraName   string
	Kind         AlertKind
	Message      string
	SnapshotPath string
	// Image is only ever non-nil in memory; it is never serialized, and is
	// released (set nil) once ExportSnapshotAsPNG has written it through a
	// snapshot store.
	Image *Frame
}

// HasImage reports whether the alert still carries an in-memory snapshot
// (used by JSON export's hasImage field and by ExportSnapshotAsPNG).
func (a Alert) HasImage() bool { return a.Image != nil }

// RunState is a pipeline's current lifecycle state.
type RunState string

const (
	StateStopped  RunState = "stopped"
	StateStarting RunState = "starting"
	StateRunning  RunState = "running"
	StateError    RunState = "error"
)
