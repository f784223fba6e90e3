// Package motion implements background-subtraction motion detection over a
// per-pipeline MOG2 model, ROI-masked motion, and the centroid tripwire
// heuristic. The background-subtraction backend is
// gocv's BackgroundSubtractorMOG2 (OpenCV's MOG2), the same CV library used
// throughout the pack's camera/motion example files.
package motion

import (
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/shreyahuja108/sentryfeed/internal/appctx"
	"github.com/shreyahuja108/sentryfeed/internal/capture"
	"github.com/shreyahuja108/sentryfeed/internal/geometry"
	"github.com/shreyahuja108/sentryfeed/internal/models"
)

const (
	motionEmitGapMs    = 2000
	roiEmitGapMs       = 3000
	tripwireEmitGapMs  = 2000
	minMomentM00       = 100
	maxTripwireDistPx  = 50.0
	baseThreshold      = 10.0
	sensitivitySlope   = 9.5
)

// Threshold returns the motion-score threshold for a given sensitivity in
// [0,100]: 10 - (sensitivity/100)*9.5.
func Threshold(sensitivity float64) float64 {
	return baseThreshold - (sensitivity/100.0)*sensitivitySlope
}

// Event is one motion-family alert produced by a single Process call.
type Event struct {
	Kind      models.AlertKind
	Score     float64   // percentage, for motion/motion_roi
	Direction int       // +1 or -1, for tripwire
	Frame     models.Frame
}

// Detector owns one pipeline's background model and debounce clocks. Not
// safe for concurrent Process calls; a pipeline's worker goroutine is the
// only caller; the background model is worker-private.
type Detector struct {
	appCtx *appctx.Context

	mu          sync.Mutex // guards only the capability fields below
	enabled     bool
	sensitivity float64
	roi         []models.Point
	tripwire    [2]models.Point
	hasTripwire bool

	bg     gocv.BackgroundSubtractorMOG2
	kernel gocv.Mat

	lastMotionEmitMs   int64
	lastROIEmitMs      int64
	lastTripwireEmitMs int64
	prevSide           float64
	hasPrevSide        bool
}

// New constructs a Detector with sensitivity defaulted to 50 (threshold
// 5.25), matching a reasonable out-of-the-box setting.
func New(appCtx *appctx.Context) *Detector {
	return &Detector{
		appCtx:      appCtx,
		sensitivity: 50,
		bg:          gocv.NewBackgroundSubtractorMOG2(),
		kernel:      gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(5, 5)),
	}
}

// Close releases the native OpenCV resources. Safe to call once the
// detector's pipeline is stopped.
func (d *Detector) Close() error {
	d.kernel.Close()
	return d.bg.Close()
}

// SetEnabled toggles motion processing; while disabled, Process is a no-op
// and returns no events.
func (d *Detector) SetEnabled(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enabled = enabled
}

// SetSensitivity sets the sensitivity in [0,100] driving Threshold.
func (d *Detector) SetSensitivity(s float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s < 0 {
		s = 0
	}
	if s > 100 {
		s = 100
	}
	d.sensitivity = s
}

// SetROI installs a normalized ROI polygon (≥3 points) for ROI-masked
// motion.
func (d *Detector) SetROI(points []models.Point) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.roi = points
}

// ClearROI removes the ROI polygon.
func (d *Detector) ClearROI() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.roi = nil
}

// SetTripwire installs a normalized tripwire line.
func (d *Detector) SetTripwire(start, end models.Point) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tripwire = [2]models.Point{start, end}
	d.hasTripwire = true
	d.hasPrevSide = false
}

// ClearTripwire removes the tripwire.
func (d *Detector) ClearTripwire() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hasTripwire = false
	d.hasPrevSide = false
}

func (d *Detector) snapshot() (enabled bool, sensitivity float64, roi []models.Point, tripwire [2]models.Point, hasTripwire bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.enabled, d.sensitivity, d.roi, d.tripwire, d.hasTripwire
}

// Process runs one frame through the full motion pipeline and returns the
// (possibly empty) set of events to emit. nowMs is the caller's clock
// reading in Unix milliseconds, so tests can drive debouncing
// deterministically.
func (d *Detector) Process(frame models.Frame, nowMs int64) ([]Event, error) {
	enabled, sensitivity, roi, tripwire, hasTripwire := d.snapshot()
	if !enabled {
		return nil, nil
	}

	mat, err := capture.FrameToMat(frame)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	fg := gocv.NewMat()
	defer fg.Close()
	if err := d.bg.Apply(mat, &fg); err != nil {
		return nil, err
	}

	opened := gocv.NewMat()
	if err := gocv.MorphologyEx(fg, &opened, gocv.MorphOpen, d.kernel); err != nil {
		opened.Close()
		return nil, err
	}
	closed := gocv.NewMat()
	if err := gocv.MorphologyEx(opened, &closed, gocv.MorphClose, d.kernel); err != nil {
		opened.Close()
		closed.Close()
		return nil, err
	}
	opened.Close()
	defer closed.Close()

	var events []Event

	threshold := Threshold(sensitivity)
	totalPixels := closed.Rows() * closed.Cols()
	nonzero := gocv.CountNonZero(closed)
	score := 100 * float64(nonzero) / float64(totalPixels)

	if score > threshold && nowMs-d.lastMotionEmitMs > motionEmitGapMs {
		events = append(events, Event{Kind: models.AlertMotion, Score: score, Frame: frame})
		d.lastMotionEmitMs = nowMs
	}

	if len(roi) >= 3 {
		if ev, ok := d.processROI(closed, roi, frame, threshold, nowMs); ok {
			events = append(events, ev)
		}
	}

	if hasTripwire {
		if ev, ok := d.processTripwire(closed, tripwire, frame, nowMs); ok {
			events = append(events, ev)
		}
	}

	return events, nil
}

func (d *Detector) processROI(fgMask gocv.Mat, roi []models.Point, frame models.Frame, threshold float64, nowMs int64) (Event, bool) {
	roiMaskImg := geometry.RasterizePolygon(roi, fgMask.Cols(), fgMask.Rows())
	roiMat, err := gocv.NewMatFromBytes(fgMask.Rows(), fgMask.Cols(), gocv.MatTypeCV8UC1, roiMaskImg.Pix)
	if err != nil {
		d.appCtx.Logger.Printf("roi rasterization error: %v", err)
		return Event{}, false
	}
	defer roiMat.Close()

	roiNonzero := gocv.CountNonZero(roiMat)
	if roiNonzero == 0 {
		return Event{}, false
	}

	andMat := gocv.NewMat()
	defer andMat.Close()
	gocv.BitwiseAnd(fgMask, roiMat, &andMat)

	roiScore := 100 * float64(gocv.CountNonZero(andMat)) / float64(roiNonzero)
	if roiScore > threshold && nowMs-d.lastROIEmitMs > roiEmitGapMs {
		d.lastROIEmitMs = nowMs
		return Event{Kind: models.AlertMotionROI, Score: roiScore, Frame: frame}, true
	}
	return Event{}, false
}

func (d *Detector) processTripwire(fgMask gocv.Mat, tripwire [2]models.Point, frame models.Frame, nowMs int64) (Event, bool) {
	moments := gocv.Moments(fgMask, true)
	if moments.M00 < minMomentM00 {
		d.hasPrevSide = false
		return Event{}, false
	}

	cx := moments.M10 / moments.M00
	cy := moments.M01 / moments.M00

	w, h := float64(fgMask.Cols()), float64(fgMask.Rows())
	x1, y1 := tripwire[0].X*w, tripwire[0].Y*h
	x2, y2 := tripwire[1].X*w, tripwire[1].Y*h

	curSide := geometry.LineSide(cx, cy, x1, y1, x2, y2)

	defer func() {
		d.prevSide = curSide
		d.hasPrevSide = true
	}()

	if !d.hasPrevSide {
		return Event{}, false
	}
	if d.prevSide*curSide >= 0 {
		return Event{}, false
	}

	lineLen := geometry.LineLength(x1, y1, x2, y2)
	if geometry.PerpendicularDistance(curSide, lineLen) >= maxTripwireDistPx {
		return Event{}, false
	}
	if nowMs-d.lastTripwireEmitMs <= tripwireEmitGapMs {
		return Event{}, false
	}

	d.lastTripwireEmitMs = nowMs
	direction := -1
	if curSide > 0 {
		direction = 1
	}
	return Event{Kind: models.AlertTripwire, Direction: direction, Frame: frame}, true
}
