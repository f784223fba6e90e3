// Package httpapi is the read-only HTTP status surface: a thin gorilla/mux
// router over the alert aggregator and pipeline manager, grounded on the
// sibling orchestrator service's own gorilla/mux handlers
// (GetScenarioStatusHandler's {scenario_id} path-variable pattern is the
// direct precedent for this package's {id} routes). It has no write
// endpoints — no authenticated remote control exists here, by design.
package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/shreyahuja108/sentryfeed/internal/alerts"
	"github.com/shreyahuja108/sentryfeed/internal/appctx"
	"github.com/shreyahuja108/sentryfeed/internal/pipeline"
	"github.com/shreyahuja108/sentryfeed/internal/snapshot"
)

const (
	snapshotJPEGQuality = 85
	// cameraIDPrefix is the prefix every camera id this surface emits and
	// accepts carries: cam<slot>, matching the original handleGetCameras
	// convention.
	cameraIDPrefix = "cam"
)

// parseCameraSlot extracts the slot index from a cam<slot> id, as returned
// by ListCamerasHandler.
func parseCameraSlot(id string) (int, bool) {
	if !strings.HasPrefix(id, cameraIDPrefix) {
		return 0, false
	}
	slot, err := strconv.Atoi(strings.TrimPrefix(id, cameraIDPrefix))
	if err != nil {
		return 0, false
	}
	return slot, true
}

// Handlers bundles the read-only collaborators this surface is allowed to
// query: the alert aggregator and the pipeline manager. Mirrors the
// sibling orchestrator's own api.Handlers{db, s3} shape.
type Handlers struct {
	appCtx     *appctx.Context
	aggregator *alerts.Aggregator
	manager    *pipeline.Manager
}

// NewHandlers builds a Handlers over aggregator and manager.
func NewHandlers(appCtx *appctx.Context, aggregator *alerts.Aggregator, manager *pipeline.Manager) *Handlers {
	return &Handlers{appCtx: appCtx, aggregator: aggregator, manager: manager}
}

// NewRouter registers every route on a fresh mux.Router, wrapped so every
// response carries Access-Control-Allow-Origin: * and Connection: close.
func NewRouter(h *Handlers) *mux.Router {
	r := mux.NewRouter()
	r.Use(corsAndCloseMiddleware)
	r.HandleFunc("/ping", h.PingHandler).Methods("GET")
	r.HandleFunc("/alerts", h.ListAlertsHandler).Methods("GET")
	r.HandleFunc("/alerts/{id}/snapshot", h.AlertSnapshotHandler).Methods("GET")
	r.HandleFunc("/cameras", h.ListCamerasHandler).Methods("GET")
	r.HandleFunc("/cameras/{id}/snapshot", h.CameraSnapshotHandler).Methods("GET")
	return r
}

func corsAndCloseMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Connection", "close")
		next.ServeHTTP(w, r)
	})
}

// PingHandler reports liveness.
func (h *Handlers) PingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("ok"))
}

type alertView struct {
	ID           string `json:"id"`
	Timestamp    string `json:"timestamp"`
	CameraName   string `json:"cameraName"`
	Kind         string `json:"kind"`
	Message      string `json:"message"`
	SnapshotPath string `json:"snapshotPath"`
	HasImage     bool   `json:"hasImage"`
}

// ListAlertsHandler returns every aggregated alert, newest first.
func (h *Handlers) ListAlertsHandler(w http.ResponseWriter, r *http.Request) {
	snap := h.aggregator.Snapshot()
	views := make([]alertView, len(snap))
	for i, a := range snap {
		views[len(snap)-1-i] = alertView{
			ID:           a.ID,
			Timestamp:    a.Timestamp.Format(time.RFC3339),
			CameraName:   a.CameraName,
			Kind:         string(a.Kind),
			Message:      a.Message,
			SnapshotPath: a.SnapshotPath,
			HasImage:     a.HasImage(),
		}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(views)
}

// AlertSnapshotHandler returns the in-memory image bytes for the alert
// with the given id, or 404 if the alert is unknown or carries no image.
func (h *Handlers) AlertSnapshotHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	snap := h.aggregator.Snapshot()
	for _, a := range snap {
		if a.ID != id {
			continue
		}
		if !a.HasImage() {
			http.NotFound(w, r)
			return
		}
		png, err := snapshot.EncodePNG(a.Image.Width, a.Image.Height, a.Image.Pixels)
		if err != nil {
			http.Error(w, "encode snapshot", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(png)
		return
	}
	http.NotFound(w, r)
}

type cameraView struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Source string `json:"source"`
}

// ListCamerasHandler returns every enabled camera known to the manager, id
// assigned as cam<slot> in slot order.
func (h *Handlers) ListCamerasHandler(w http.ResponseWriter, r *http.Request) {
	var views []cameraView
	for _, sp := range h.manager.ListSlots() {
		snap := sp.Pipeline.Snapshot()
		views = append(views, cameraView{
			ID:     fmt.Sprintf("%s%d", cameraIDPrefix, sp.Slot),
			Name:   snap.Name,
			Type:   string(snap.SourceType),
			Source: snap.Source,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(views)
}

// CameraSnapshotHandler returns the latest captured frame for a camera as
// JPEG (quality 85), or 503 if no frame has been captured yet. id must be
// one of the cam<slot> ids ListCamerasHandler returns.
func (h *Handlers) CameraSnapshotHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	slot, ok := parseCameraSlot(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	p, ok := h.manager.GetBySlot(slot)
	if !ok {
		http.NotFound(w, r)
		return
	}
	snap := p.Snapshot()
	if !snap.HasFrame {
		http.Error(w, "no frame captured yet", http.StatusServiceUnavailable)
		return
	}
	jpg, err := snapshot.EncodeJPEG(snap.Frame.Width, snap.Frame.Height, snap.Frame.Pixels, snapshotJPEGQuality)
	if err != nil {
		http.Error(w, "encode snapshot", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Write(jpg)
}
