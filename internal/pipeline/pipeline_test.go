package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shreyahuja108/sentryfeed/internal/alerts"
	"github.com/shreyahuja108/sentryfeed/internal/appctx"
	"github.com/shreyahuja108/sentryfeed/internal/capture"
	"github.com/shreyahuja108/sentryfeed/internal/models"
)

func testFrame() models.Frame {
	w, h := 8, 8
	return models.Frame{Width: w, Height: h, Pixels: make([]byte, w*h*3), CapturedAt: time.Now()}
}

func newTestPipeline(t *testing.T, source capture.Source) (*Pipeline, *alerts.Aggregator) {
	t.Helper()
	appCtx := appctx.New("test")
	agg := alerts.New(appCtx)
	cfg := models.CameraConfig{ID: "cam1", Name: "Test Camera", Type: models.SourceUSB, Source: "0", Enabled: true}
	return New(appCtx, cfg, source, agg), agg
}

func TestStartStopIdempotent(t *testing.T) {
	source := capture.NewMockSource(appctx.New("cam1"), []models.Frame{testFrame()})
	p, _ := newTestPipeline(t, source)

	ctx := context.Background()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := p.Start(ctx); err != nil {
		t.Fatalf("second Start should be a no-op, got: %v", err)
	}

	if err := p.Stop(); err != nil {
		t.Fatalf("first Stop: %v", err)
	}
	if err := p.Stop(); err != nil {
		t.Fatalf("second Stop should be a no-op, got: %v", err)
	}
}

func TestStartSurfacesOpenFailure(t *testing.T) {
	wantErr := errors.New("device busy")
	source := capture.NewFailingMockSource(appctx.New("cam1"), wantErr)
	p, _ := newTestPipeline(t, source)

	if err := p.Start(context.Background()); err == nil {
		t.Fatalf("expected Start to surface the open failure")
	}

	snap := p.Snapshot()
	if snap.State != models.StateError {
		t.Fatalf("expected state %v after open failure, got %v", models.StateError, snap.State)
	}
}

func TestHandleFramePublishesLatestFrame(t *testing.T) {
	frame := testFrame()
	source := capture.NewMockSource(appctx.New("cam1"), []models.Frame{frame})
	p, _ := newTestPipeline(t, source)

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if p.Snapshot().HasFrame {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected a frame to be published within the deadline")
}

type stubDetector struct{ detections []models.Detection }

func (s *stubDetector) IsLoaded() bool                 { return true }
func (s *stubDetector) SetConfidenceThreshold(float64) {}
func (s *stubDetector) ClassNames() []string           { return []string{"person"} }
func (s *stubDetector) Infer(models.Frame) ([]models.Detection, error) {
	return s.detections, nil
}

func TestAIDetectionDrivesTracker(t *testing.T) {
	frame := testFrame()
	frames := make([]models.Frame, AIProcessInterval)
	for i := range frames {
		frames[i] = frame
	}
	source := capture.NewMockSource(appctx.New("cam1"), frames)
	p, _ := newTestPipeline(t, source)

	det := &stubDetector{detections: []models.Detection{
		{Class: "person", X: 1, Y: 1, W: 2, H: 2},
	}}
	p.SetDetector(det)
	p.SetAIEnabled(true)

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(p.Snapshot().Detections) > 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected detections to be recorded after %d frames", AIProcessInterval)
}
