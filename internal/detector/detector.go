// Package detector implements the opaque ObjectDetector contract: a
// black-box inferencer the pipeline calls at a fixed cadence. The concrete
// HTTP adapter generalizes the upstream runner's detection client
// (internal/services/detection in the upstream runner), which posts a
// JPEG frame as multipart form data to an inference microservice — this
// version additionally parses the JSON detection list back out of the
// response, since here the tracker consumes the result instead of the
// call being fire-and-forget.
package detector

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"sync/atomic"
	"time"

	"github.com/shreyahuja108/sentryfeed/internal/models"
)

// ObjectDetector is the adapter contract: a black-box inferencer invoked at
// most every AI_PROCESS_INTERVAL frames, called only from the owning
// pipeline's worker goroutine.
type ObjectDetector interface {
	IsLoaded() bool
	SetConfidenceThreshold(threshold float64)
	ClassNames() []string
	Infer(frame models.Frame) ([]models.Detection, error)
}

// AIProcessInterval is the fixed cadence at which the pipeline worker may
// call Infer.
const AIProcessInterval = 5

// wireDetection is the JSON shape returned by the inference endpoint.
type wireDetection struct {
	ClassID    int       `json:"class_id"`
	Class      string    `json:"class"`
	Confidence float64   `json:"confidence"`
	Box        []float64 `json:"box"` // [x1, y1, x2, y2] pixel coords
}

// HTTPDetector posts frames to an external inference HTTP endpoint.
type HTTPDetector struct {
	baseURL    string
	classNames []string
	threshold  atomic.Uint64 // float64 bits, for lock-free reads from the worker
	httpClient *http.Client
	loaded     atomic.Bool
}

// NewHTTPDetector builds an adapter targeting baseURL (expected to expose
// POST <baseURL>/predict). classNames is the ordered class-id → name table
// ClassNames() must return.
func NewHTTPDetector(baseURL string, classNames []string) *HTTPDetector {
	d := &HTTPDetector{
		baseURL:    baseURL,
		classNames: classNames,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
	d.threshold.Store(math.Float64bits(0.5))
	d.loaded.Store(true)
	return d
}

func (d *HTTPDetector) IsLoaded() bool { return d.loaded.Load() }

func (d *HTTPDetector) SetConfidenceThreshold(threshold float64) {
	if threshold < 0 {
		threshold = 0
	}
	if threshold > 1 {
		threshold = 1
	}
	d.threshold.Store(math.Float64bits(threshold))
}

func (d *HTTPDetector) ClassNames() []string { return d.classNames }

// Infer encodes the frame as JPEG, posts it to <baseURL>/predict as
// multipart form data exactly the way the upstream runner's detection client does,
// and decodes the JSON detection list from the response body.
func (d *HTTPDetector) Infer(frame models.Frame) ([]models.Detection, error) {
	jpegBytes, err := encodeJPEG(frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="frame.jpg"`)
	h.Set("Content-Type", "image/jpeg")

	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("create form part: %w", err)
	}
	if _, err := part.Write(jpegBytes); err != nil {
		return nil, fmt.Errorf("write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close writer: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, d.baseURL+"/predict", &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("bad status: %s, body: %s", resp.Status, body)
	}

	var wire []wireDetection
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decode detections: %w", err)
	}

	threshold := floatFromBits(d.threshold.Load())
	out := make([]models.Detection, 0, len(wire))
	for _, wd := range wire {
		if wd.Confidence < threshold || len(wd.Box) != 4 {
			continue
		}
		x1, y1, x2, y2 := wd.Box[0], wd.Box[1], wd.Box[2], wd.Box[3]
		out = append(out, models.Detection{
			ClassID:    wd.ClassID,
			Class:      wd.Class,
			Confidence: wd.Confidence,
			X:          x1,
			Y:          y1,
			W:          x2 - x1,
			H:          y2 - y1,
		})
	}
	return out, nil
}

// NullDetector is the zero-value fallback used when model loading fails or
// no detector is configured: motion paths keep working, the
// tracker/behavior branches simply never receive detections.
type NullDetector struct{}

func (NullDetector) IsLoaded() bool                     { return false }
func (NullDetector) SetConfidenceThreshold(float64)     {}
func (NullDetector) ClassNames() []string               { return nil }
func (NullDetector) Infer(models.Frame) ([]models.Detection, error) { return nil, nil }

func encodeJPEG(frame models.Frame) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, frame.Width, frame.Height))
	for y := 0; y < frame.Height; y++ {
		for x := 0; x < frame.Width; x++ {
			i := (y*frame.Width + x) * 3
			if i+2 >= len(frame.Pixels) {
				continue
			}
			img.Set(x, y, rgbColor{frame.Pixels[i], frame.Pixels[i+1], frame.Pixels[i+2]})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type rgbColor struct{ r, g, b byte }

func (c rgbColor) RGBA() (r, g, b, a uint32) {
	return uint32(c.r) * 0x101, uint32(c.g) * 0x101, uint32(c.b) * 0x101, 0xffff
}

func floatFromBits(b uint64) float64 { return math.Float64frombits(b) }
