// Package pipeline owns the per-camera worker: the sequential
// capture → motion → (every Nth frame) detect → track → behavior loop,
// plus the capability toggles and read-only live state the control side
// observes. Capability changes that touch shared, non-atomic state (ROI
// polygon, tripwire, detector swap) are queued and applied between
// frames only, so all mutation of detector/tracker state happens on one
// goroutine.
package pipeline

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/shreyahuja108/sentryfeed/internal/alerts"
	"github.com/shreyahuja108/sentryfeed/internal/appctx"
	"github.com/shreyahuja108/sentryfeed/internal/capture"
	"github.com/shreyahuja108/sentryfeed/internal/detector"
	"github.com/shreyahuja108/sentryfeed/internal/models"
	"github.com/shreyahuja108/sentryfeed/internal/motion"
	"github.com/shreyahuja108/sentryfeed/internal/snapshot"
	"github.com/shreyahuja108/sentryfeed/internal/tracker"
)

// AIProcessInterval mirrors detector.AIProcessInterval: Infer is called at
// most every Nth captured frame.
const AIProcessInterval = detector.AIProcessInterval

// activeFlagHoldMs is how long a transient alert-active flag stays true
// after its last emission before auto-resetting.
const activeFlagHoldMs = 2000

// TripwireMode resolves the duplication between the motion detector's
// mask-centroid tripwire heuristic and the tracker's per-track crossing:
// both can fire for the same physical crossing. Kept as observed,
// independently-debounced behavior by default; an operator can configure
// either side off.
type TripwireMode int

const (
	TripwireBoth TripwireMode = iota
	TripwireMaskOnly
	TripwireTrackOnly
)

// detectorBox wraps an ObjectDetector so atomic.Value's "same concrete
// type across Store calls" requirement is satisfied even when the
// underlying detector implementation is swapped at runtime.
type detectorBox struct{ d detector.ObjectDetector }

// snapStoreBox wraps a snapshot.Store for the same atomic.Value reason as
// detectorBox: the dynamic type varies (nil vs LocalStore vs MinioStore).
type snapStoreBox struct{ s snapshot.Store }

type capCmd struct {
	correlationID string
	apply         func()
}

// Snapshot is a copied-out view of a pipeline's read-only live state, safe
// to retain after the call returns.
type Snapshot struct {
	ID          string
	Name        string
	Source      string
	SourceType  models.SourceKind
	State       models.RunState
	Status      string
	FPS         float64
	Frame       models.Frame
	HasFrame    bool
	Detections  []models.Detection
	MotionActive, ROIActive, TripwireActive bool
}

// Pipeline owns exactly one camera's worker goroutine, capture handle,
// motion-detector state, tracker map, and alert-emission debounce clocks.
type Pipeline struct {
	appCtx      *appctx.Context
	cfg         models.CameraConfig
	aggregator  *alerts.Aggregator
	source      capture.Source
	motionDet   *motion.Detector
	tracker     *tracker.Tracker
	objDetector atomic.Value // detectorBox, so the interface's dynamic type may vary across Store calls

	aiEnabled    atomic.Bool
	aiThreshold  atomic.Uint64 // float64 bits
	tripwireMode atomic.Int32

	autoSnapMotion, autoSnapROI, autoSnapTripwire atomic.Bool
	snapStore                                     atomic.Value // snapshot.Store, boxed in snapStoreBox

	capCh chan capCmd

	stateMu sync.RWMutex
	state   models.RunState
	status  string
	fps     float64
	cancel  context.CancelFunc
	done    chan struct{}

	frameMu  sync.RWMutex
	lastFrame models.Frame
	hasFrame bool

	detMu         sync.RWMutex
	lastDetections []models.Detection

	motionActiveUntilMs   atomic.Int64
	roiActiveUntilMs      atomic.Int64
	tripwireActiveUntilMs atomic.Int64

	frameCount int
}

// New builds a stopped pipeline for cfg. source is the frame producer
// (GoCVSource in production, MockSource in tests).
func New(appCtx *appctx.Context, cfg models.CameraConfig, source capture.Source, aggregator *alerts.Aggregator) *Pipeline {
	p := &Pipeline{
		appCtx:     appCtx,
		cfg:        cfg,
		aggregator: aggregator,
		source:     source,
		motionDet:  motion.New(appCtx),
		tracker:    tracker.New(),
		state:      models.StateStopped,
		status:     "stopped",
		capCh:      make(chan capCmd, 16),
	}
	p.objDetector.Store(detectorBox{d: detector.NullDetector{}})
	p.snapStore.Store(snapStoreBox{})
	p.aiThreshold.Store(math.Float64bits(0.5))
	if cfg.HasROI {
		p.motionDet.SetROI(cfg.ROI)
		p.tracker.SetROI(cfg.ROI)
	}
	if cfg.HasTripwire {
		p.motionDet.SetTripwire(cfg.Tripwire[0], cfg.Tripwire[1])
		p.tracker.SetTripwire(cfg.Tripwire[0], cfg.Tripwire[1])
	}
	return p
}

// ID returns the camera's stable id.
func (p *Pipeline) ID() string { return p.cfg.ID }

// Start opens the capture source and spawns the worker goroutine.
// Idempotent: calling Start on an already-running pipeline is a no-op.
func (p *Pipeline) Start(ctx context.Context) error {
	p.stateMu.Lock()
	if p.state == models.StateRunning || p.state == models.StateStarting {
		p.stateMu.Unlock()
		return nil
	}
	p.state = models.StateStarting
	p.status = "starting"
	p.stateMu.Unlock()

	if err := p.source.Open(ctx); err != nil {
		p.setError(fmt.Errorf("open source: %w", err))
		return err
	}

	workerCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	p.stateMu.Lock()
	p.cancel = cancel
	p.done = done
	p.state = models.StateRunning
	p.status = "running"
	p.stateMu.Unlock()

	go func() {
		defer close(done)
		p.runLoop(workerCtx)
	}()
	return nil
}

// Stop requests worker termination and joins it before releasing the
// capture handle. Idempotent.
func (p *Pipeline) Stop() error {
	p.stateMu.Lock()
	if p.state == models.StateStopped {
		p.stateMu.Unlock()
		return nil
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	err := p.source.Close()

	p.stateMu.Lock()
	p.state = models.StateStopped
	p.status = "stopped"
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
	return err
}

func (p *Pipeline) setError(err error) {
	p.stateMu.Lock()
	p.state = models.StateError
	p.status = "Error: " + err.Error()
	p.stateMu.Unlock()
	p.appCtx.Logger.Printf("pipeline %s: %v", p.cfg.ID, err)
}

func (p *Pipeline) setFPS(fps float64) {
	p.stateMu.Lock()
	p.fps = fps
	p.stateMu.Unlock()
}

func (p *Pipeline) runLoop(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			p.appCtx.Logger.Printf("pipeline %s: recovered from panic: %v", p.cfg.ID, r)
			p.setError(fmt.Errorf("worker panic: %v", r))
		}
	}()

	p.source.Run(ctx, capture.Callbacks{
		OnFrame: func(f models.Frame) {
			defer func() {
				if r := recover(); r != nil {
					p.appCtx.Logger.Printf("pipeline %s: recovered from panic on frame, continuing: %v", p.cfg.ID, r)
				}
			}()
			p.handleFrame(f)
		},
		OnFPS:   p.setFPS,
		OnError: p.handleSourceError,
	})
}

func (p *Pipeline) handleSourceError(err error) {
	p.setError(err)
	p.stateMu.Lock()
	cancel := p.cancel
	p.stateMu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (p *Pipeline) drainCapCommands() {
	for {
		select {
		case cmd := <-p.capCh:
			cmd.apply()
			p.appCtx.Logger.Printf("pipeline %s: applied capability change %s", p.cfg.ID, cmd.correlationID)
		default:
			return
		}
	}
}

// handleFrame is the worker's single-frame step: apply queued capability
// changes, publish the frame, then run motion and (every Nth frame)
// detect → track → behavior, strictly sequentially.
func (p *Pipeline) handleFrame(frame models.Frame) {
	p.drainCapCommands()

	p.frameMu.Lock()
	p.lastFrame = frame.Clone()
	p.hasFrame = true
	p.frameMu.Unlock()

	nowMs := p.appCtx.NowMs()
	p.frameCount++

	p.runMotion(frame, nowMs)

	if p.aiEnabled.Load() && p.frameCount%AIProcessInterval == 0 {
		p.runDetectAndTrack(frame, nowMs)
	}
}

func (p *Pipeline) runMotion(frame models.Frame, nowMs int64) {
	events, err := p.motionDet.Process(frame, nowMs)
	if err != nil {
		p.appCtx.Logger.Printf("pipeline %s: motion processing error: %v", p.cfg.ID, err)
		return
	}
	mode := TripwireMode(p.tripwireMode.Load())
	for _, ev := range events {
		if ev.Kind == models.AlertTripwire && mode == TripwireTrackOnly {
			continue
		}
		p.emitMotionEvent(ev, nowMs)
	}
}

func (p *Pipeline) emitMotionEvent(ev motion.Event, nowMs int64) {
	var message string
	var autoSnap *atomic.Bool
	switch ev.Kind {
	case models.AlertMotion:
		message = fmt.Sprintf("Motion detected (%.1f%%)", ev.Score)
		p.motionActiveUntilMs.Store(nowMs + activeFlagHoldMs)
		autoSnap = &p.autoSnapMotion
	case models.AlertMotionROI:
		message = fmt.Sprintf("Motion detected in region of interest (%.1f%%)", ev.Score)
		p.roiActiveUntilMs.Store(nowMs + activeFlagHoldMs)
		autoSnap = &p.autoSnapROI
	case models.AlertTripwire:
		message = fmt.Sprintf("Tripwire crossed (direction %+d)", ev.Direction)
		p.tripwireActiveUntilMs.Store(nowMs + activeFlagHoldMs)
		autoSnap = &p.autoSnapTripwire
	}

	frameCopy := ev.Frame.Clone()
	alert := models.Alert{
		CameraName: p.cfg.Name,
		Kind:       ev.Kind,
		Message:    message,
		Image:      &frameCopy,
	}
	p.aggregator.Append(alert)

	if autoSnap != nil && autoSnap.Load() {
		snapCopy := ev.Frame.Clone()
		snapAlert := models.Alert{
			CameraName: p.cfg.Name,
			Kind:       models.AlertSnapshot,
			Message:    fmt.Sprintf("Auto snapshot on %s", ev.Kind),
			Image:      &snapCopy,
		}
		if box := p.snapStore.Load().(snapStoreBox); box.s != nil {
			if path, err := p.persistSnapshot(box.s, snapCopy); err != nil {
				p.appCtx.Logger.Printf("pipeline %s: auto snapshot save failed: %v", p.cfg.ID, err)
			} else {
				snapAlert.SnapshotPath = path
			}
		}
		p.aggregator.Append(snapAlert)
	}
}

// persistSnapshot encodes frame as PNG and writes it through store under
// the standard <camera>_<timestamp>.png filename.
func (p *Pipeline) persistSnapshot(store snapshot.Store, frame models.Frame) (string, error) {
	png, err := snapshot.EncodePNG(frame.Width, frame.Height, frame.Pixels)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	filename := alerts.SuggestedSnapshotName(p.cfg.Name, p.appCtx.Clock.Now())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return store.Save(ctx, filename, png)
}

func (p *Pipeline) runDetectAndTrack(frame models.Frame, nowMs int64) {
	det := p.objDetector.Load().(detectorBox).d
	if !det.IsLoaded() {
		return
	}

	detections, err := det.Infer(frame)
	if err != nil {
		p.appCtx.Logger.Printf("pipeline %s: inference error: %v", p.cfg.ID, err)
		return
	}

	p.detMu.Lock()
	p.lastDetections = detections
	p.detMu.Unlock()

	events := p.tracker.Update(detections, frame.Width, frame.Height, nowMs)
	mode := TripwireMode(p.tripwireMode.Load())
	for _, ev := range events {
		if ev.Kind == models.AlertTripwire && mode == TripwireMaskOnly {
			continue
		}
		p.emitBehaviorEvent(ev, frame, nowMs)
	}
}

func (p *Pipeline) emitBehaviorEvent(ev tracker.Event, frame models.Frame, nowMs int64) {
	var message string
	switch ev.Kind {
	case models.AlertLoitering:
		message = fmt.Sprintf("Track #%d (%s) loitering for %dms", ev.TrackID, ev.Label, ev.DurationMs)
		p.roiActiveUntilMs.Store(nowMs + activeFlagHoldMs)
	case models.AlertTripwire:
		message = fmt.Sprintf("Track #%d (%s) crossed tripwire: %s", ev.TrackID, ev.Label, ev.Direction)
		p.tripwireActiveUntilMs.Store(nowMs + activeFlagHoldMs)
	}

	frameCopy := frame.Clone()
	p.aggregator.Append(models.Alert{
		CameraName: p.cfg.Name,
		Kind:       ev.Kind,
		Message:    message,
		Image:      &frameCopy,
	})
}

// --- Capability setters. ROI/tripwire/detector swaps are queued and
// applied between frames on the worker goroutine; scalar toggles are
// single-word atomics read directly by the worker. ---

func (p *Pipeline) queue(apply func()) {
	cmd := capCmd{correlationID: uuid.NewString(), apply: apply}
	select {
	case p.capCh <- cmd:
	default:
		p.appCtx.Logger.Printf("pipeline %s: capability queue full, dropping change %s", p.cfg.ID, cmd.correlationID)
	}
}

func (p *Pipeline) SetMotionEnabled(enabled bool) { p.motionDet.SetEnabled(enabled) }

func (p *Pipeline) SetMotionSensitivity(sensitivity float64) { p.motionDet.SetSensitivity(sensitivity) }

func (p *Pipeline) SetAIEnabled(enabled bool) { p.aiEnabled.Store(enabled) }

func (p *Pipeline) SetAIConfidenceThreshold(threshold float64) {
	if threshold < 0 {
		threshold = 0
	}
	if threshold > 1 {
		threshold = 1
	}
	p.aiThreshold.Store(math.Float64bits(threshold))
	if box, ok := p.objDetector.Load().(detectorBox); ok {
		box.d.SetConfidenceThreshold(threshold)
	}
}

func (p *Pipeline) SetDetector(det detector.ObjectDetector) {
	p.queue(func() { p.objDetector.Store(detectorBox{d: det}) })
}

func (p *Pipeline) SetTripwireMode(mode TripwireMode) { p.tripwireMode.Store(int32(mode)) }

func (p *Pipeline) SetROI(points []models.Point) {
	p.queue(func() {
		p.motionDet.SetROI(points)
		p.tracker.SetROI(points)
	})
}

func (p *Pipeline) ClearROI() {
	p.queue(func() {
		p.motionDet.ClearROI()
		p.tracker.ClearROI()
	})
}

func (p *Pipeline) SetTripwire(start, end models.Point) {
	p.queue(func() {
		p.motionDet.SetTripwire(start, end)
		p.tracker.SetTripwire(start, end)
	})
}

func (p *Pipeline) ClearTripwire() {
	p.queue(func() {
		p.motionDet.ClearTripwire()
		p.tracker.ClearTripwire()
	})
}

func (p *Pipeline) SetAutoSnapshotMotion(enabled bool) { p.autoSnapMotion.Store(enabled) }
func (p *Pipeline) SetAutoSnapshotROI(enabled bool)    { p.autoSnapROI.Store(enabled) }
func (p *Pipeline) SetAutoSnapshotTripwire(enabled bool) { p.autoSnapTripwire.Store(enabled) }

// SetSnapshotStore attaches the store auto-snapshot-on-event writes
// through. A nil store (the default) leaves auto-snapshots in-memory only,
// still visible via the aggregator but never persisted to disk/object
// storage.
func (p *Pipeline) SetSnapshotStore(store snapshot.Store) {
	p.snapStore.Store(snapStoreBox{s: store})
}

// TakeSnapshot emits the current frame as a snapshot alert without disk
// I/O — a control-thread-only read of the shared last frame.
func (p *Pipeline) TakeSnapshot() (models.Alert, error) {
	p.frameMu.RLock()
	frame, ok := p.lastFrame, p.hasFrame
	p.frameMu.RUnlock()
	if !ok {
		return models.Alert{}, fmt.Errorf("pipeline %s: no frame captured yet", p.cfg.ID)
	}
	frameCopy := frame.Clone()
	return p.aggregator.Append(models.Alert{
		CameraName: p.cfg.Name,
		Kind:       models.AlertSnapshot,
		Message:    "Snapshot taken",
		Image:      &frameCopy,
	}), nil
}

// SaveSnapshot writes the current frame as <name>_<yyyymmdd_HHmmss>.png
// through store and emits an alert carrying the saved path.
func (p *Pipeline) SaveSnapshot(ctx context.Context, store snapshot.Store) (models.Alert, error) {
	p.frameMu.RLock()
	frame, ok := p.lastFrame, p.hasFrame
	p.frameMu.RUnlock()
	if !ok {
		return models.Alert{}, fmt.Errorf("pipeline %s: no frame captured yet", p.cfg.ID)
	}

	now := p.appCtx.Clock.Now()
	png, err := snapshot.EncodePNG(frame.Width, frame.Height, frame.Pixels)
	if err != nil {
		return models.Alert{}, fmt.Errorf("encode snapshot: %w", err)
	}
	filename := alerts.SuggestedSnapshotName(p.cfg.Name, now)
	path, err := store.Save(ctx, filename, png)
	if err != nil {
		return models.Alert{}, fmt.Errorf("save snapshot: %w", err)
	}

	return p.aggregator.Append(models.Alert{
		CameraName:   p.cfg.Name,
		Kind:         models.AlertSnapshot,
		Message:      "Snapshot saved",
		SnapshotPath: path,
		Timestamp:    now,
	}), nil
}

// Snapshot copies out the pipeline's current read-only state.
func (p *Pipeline) Snapshot() Snapshot {
	p.stateMu.RLock()
	state, status, fps := p.state, p.status, p.fps
	p.stateMu.RUnlock()

	p.frameMu.RLock()
	frame, hasFrame := p.lastFrame, p.hasFrame
	p.frameMu.RUnlock()

	p.detMu.RLock()
	detections := append([]models.Detection(nil), p.lastDetections...)
	p.detMu.RUnlock()

	nowMs := p.appCtx.NowMs()
	return Snapshot{
		ID:            p.cfg.ID,
		Name:          p.cfg.Name,
		Source:        p.cfg.Source,
		SourceType:    p.cfg.Type,
		State:         state,
		Status:        status,
		FPS:           fps,
		Frame:         frame,
		HasFrame:      hasFrame,
		Detections:    detections,
		MotionActive:   nowMs < p.motionActiveUntilMs.Load(),
		ROIActive:      nowMs < p.roiActiveUntilMs.Load(),
		TripwireActive: nowMs < p.tripwireActiveUntilMs.Load(),
	}
}
