// Package capture implements the frame source contract: it opens a local
// device or a URL stream, pulls frames at roughly 30Hz, and reports
// achieved FPS every 10 frames. The gocv-backed implementation is
// grounded on the VideoCapture usage in the retrieval pack's webcam and
// security-camera examples (OpenVideoCapture + Read-into-Mat + recovery
// loop on read failure).
package capture

import (
	"context"
	"fmt"
	"time"

	"gocv.io/x/gocv"

	"github.com/shreyahuja108/sentryfeed/internal/appctx"
	"github.com/shreyahuja108/sentryfeed/internal/models"
)

const (
	targetInterval    = 33 * time.Millisecond // nominal 30Hz
	fpsReportEvery    = 10
	requestWidth      = 640
	requestHeight     = 480
	requestFPS        = 30
	maxConsecutiveErr = 5 // sustained empty reads before promoting to a terminal error
)

// Callbacks bundles the implementer-supplied handlers a running source calls.
type Callbacks struct {
	OnFrame func(models.Frame)
	OnFPS   func(float64)
	OnError func(error)
}

// Source is the frame-pull contract. A running Source calls OnFrame at the
// target rate until Run's ctx is cancelled or a terminal error is reported
// via OnError.
type Source interface {
	Open(ctx context.Context) error
	Run(ctx context.Context, cb Callbacks)
	Close() error
}

// GoCVSource opens either an integer device index or an RTSP/HTTP URL
// through gocv's VideoCapture (OpenCV's backend selection).
type GoCVSource struct {
	appCtx *appctx.Context
	device interface{} // int device index, or string URL
	cap    *gocv.VideoCapture
}

// NewGoCVSource builds a source from a camera's configured source kind and
// value: an integer device index or a URL.
func NewGoCVSource(appCtx *appctx.Context, kind models.SourceKind, source string) (*GoCVSource, error) {
	var device interface{}
	if kind == models.SourceUSB {
		idx, err := parseDeviceIndex(source)
		if err != nil {
			return nil, fmt.Errorf("invalid usb device index %q: %w", source, err)
		}
		device = idx
	} else {
		device = source
	}
	return &GoCVSource{appCtx: appCtx, device: device}, nil
}

func parseDeviceIndex(s string) (int, error) {
	var idx int
	_, err := fmt.Sscanf(s, "%d", &idx)
	return idx, err
}

// Open opens the underlying capture device or stream. On failure the
// source stays closed and the caller surfaces one descriptive error, per
// the source's open-failure contract: surface one error, stay closed.
func (s *GoCVSource) Open(ctx context.Context) error {
	cap, err := gocv.OpenVideoCapture(s.device)
	if err != nil {
		return fmt.Errorf("open capture source %v: %w", s.device, err)
	}
	cap.Set(gocv.VideoCaptureFrameWidth, float64(requestWidth))
	cap.Set(gocv.VideoCaptureFrameHeight, float64(requestHeight))
	cap.Set(gocv.VideoCaptureFPS, float64(requestFPS))
	s.cap = cap
	return nil
}

// Run pulls frames until ctx is cancelled or a sustained read failure
// promotes to a terminal error reported via OnError.
func (s *GoCVSource) Run(ctx context.Context, cb Callbacks) {
	if s.cap == nil {
		cb.OnError(fmt.Errorf("capture source not open"))
		return
	}

	mat := gocv.NewMat()
	defer mat.Close()

	ticker := time.NewTicker(targetInterval)
	defer ticker.Stop()

	consecutiveEmpty := 0
	windowFrames := 0
	windowStart := s.appCtx.Clock.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if ok := s.cap.Read(&mat); !ok || mat.Empty() {
			consecutiveEmpty++
			s.appCtx.Logger.Printf("empty frame read (%d/%d)", consecutiveEmpty, maxConsecutiveErr)
			if consecutiveEmpty >= maxConsecutiveErr {
				cb.OnError(fmt.Errorf("sustained empty reads from capture source"))
				return
			}
			continue
		}
		consecutiveEmpty = 0

		frame, err := matToFrame(mat, s.appCtx.Clock.Now())
		if err != nil {
			s.appCtx.Logger.Printf("frame conversion error: %v", err)
			continue
		}
		cb.OnFrame(frame)

		windowFrames++
		if windowFrames >= fpsReportEvery {
			elapsed := s.appCtx.Clock.Now().Sub(windowStart)
			elapsedMs := elapsed.Milliseconds()
			if elapsedMs > 0 {
				fps := float64(windowFrames) * 1000 / float64(elapsedMs)
				cb.OnFPS(fps)
			}
			windowFrames = 0
			windowStart = s.appCtx.Clock.Now()
		}
	}
}

// Close releases the underlying capture handle. Idempotent: calling Close
// on an already-closed source is a no-op.
func (s *GoCVSource) Close() error {
	if s.cap == nil {
		return nil
	}
	err := s.cap.Close()
	s.cap = nil
	return err
}

func matToFrame(mat gocv.Mat, capturedAt time.Time) (models.Frame, error) {
	rgb := gocv.NewMat()
	defer rgb.Close()
	if err := gocv.CvtColor(mat, &rgb, gocv.ColorBGRToRGB); err != nil {
		return models.Frame{}, err
	}
	return models.Frame{
		Width:      rgb.Cols(),
		Height:     rgb.Rows(),
		Pixels:     rgb.ToBytes(),
		CapturedAt: capturedAt,
	}, nil
}

// FrameToMat rebuilds a gocv.Mat from a captured Frame's RGB buffer, for
// consumers (motion, detector adapters) that need to hand frames back into
// OpenCV operations.
func FrameToMat(f models.Frame) (gocv.Mat, error) {
	rgb, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC3, f.Pixels)
	if err != nil {
		return gocv.Mat{}, err
	}
	bgr := gocv.NewMat()
	if err := gocv.CvtColor(rgb, &bgr, gocv.ColorRGBToBGR); err != nil {
		rgb.Close()
		bgr.Close()
		return gocv.Mat{}, err
	}
	rgb.Close()
	return bgr, nil
}
