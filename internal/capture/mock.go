package capture

import (
	"context"

	"github.com/shreyahuja108/sentryfeed/internal/appctx"
	"github.com/shreyahuja108/sentryfeed/internal/models"
)

// MockSource replays a fixed slice of frames, one per Run loop iteration,
// with no dependency on gocv or real hardware. Grounded on the fake stream
// sources in e7canasta-orion-care-sensor's stream package, used here purely
// for deterministic tests of the pipeline worker and motion detector.
type MockSource struct {
	appCtx *appctx.Context
	frames []models.Frame
	opened bool
	failOpen error
}

// NewMockSource builds a MockSource that will emit frames in order, then
// stop calling OnFrame (without erroring) once exhausted.
func NewMockSource(appCtx *appctx.Context, frames []models.Frame) *MockSource {
	return &MockSource{appCtx: appCtx, frames: frames}
}

// NewFailingMockSource builds a MockSource whose Open always fails with err,
// for exercising the open-failure path.
func NewFailingMockSource(appCtx *appctx.Context, err error) *MockSource {
	return &MockSource{appCtx: appCtx, failOpen: err}
}

func (m *MockSource) Open(ctx context.Context) error {
	if m.failOpen != nil {
		return m.failOpen
	}
	m.opened = true
	return nil
}

func (m *MockSource) Run(ctx context.Context, cb Callbacks) {
	if !m.opened {
		cb.OnError(errNotOpen)
		return
	}
	count := 0
	for _, f := range m.frames {
		select {
		case <-ctx.Done():
			return
		default:
		}
		cb.OnFrame(f)
		count++
		if count%fpsReportEvery == 0 {
			cb.OnFPS(float64(requestFPS))
		}
	}
}

func (m *MockSource) Close() error {
	m.opened = false
	return nil
}

var errNotOpen = mockErr("mock source not open")

type mockErr string

func (e mockErr) Error() string { return string(e) }
