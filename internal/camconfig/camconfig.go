// Package camconfig reads and writes the cameras.json document described
// in the external interfaces: a single object with a "cameras" array, up
// to MaxCameras entries honored in slot order, disabled entries still
// consuming their slot. A missing or malformed file is never fatal — it
// falls back to one default camera, mirroring the upstream
// config loader's own tolerance for a missing YAML file.
package camconfig

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/shreyahuja108/sentryfeed/internal/appctx"
	"github.com/shreyahuja108/sentryfeed/internal/models"
)

type wireDoc struct {
	Cameras []wireCamera `json:"cameras"`
}

type wireCamera struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Type     string        `json:"type"`
	Source   string        `json:"source"`
	Enabled  bool          `json:"enabled"`
	ROI      *wireROI      `json:"roi,omitempty"`
	Tripwire *wireTripwire `json:"tripwire,omitempty"`
}

type wireROI struct {
	Points []models.Point `json:"points"`
}

type wireTripwire struct {
	Start models.Point `json:"start"`
	End   models.Point `json:"end"`
}

// DefaultCamera is the single fallback camera used whenever the config
// file is missing or malformed, or when it has zero entries.
func DefaultCamera() models.CameraConfig {
	return models.CameraConfig{
		ID:      "cam1",
		Name:    "Default Camera",
		Type:    models.SourceUSB,
		Source:  "0",
		Enabled: true,
	}
}

// Load reads path and returns up to MaxCameras camera configs in slot
// order. On any read or parse failure, or an empty camera list, it logs
// through appCtx and returns the single default camera — config errors
// never abort startup.
func Load(appCtx *appctx.Context, path string) []models.CameraConfig {
	data, err := os.ReadFile(path)
	if err != nil {
		appCtx.Logger.Printf("camconfig: %s unreadable (%v), falling back to default camera", path, err)
		return []models.CameraConfig{DefaultCamera()}
	}

	var doc wireDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		appCtx.Logger.Printf("camconfig: %s malformed (%v), falling back to default camera", path, err)
		return []models.CameraConfig{DefaultCamera()}
	}

	if len(doc.Cameras) == 0 {
		appCtx.Logger.Printf("camconfig: %s has no cameras, falling back to default camera", path)
		return []models.CameraConfig{DefaultCamera()}
	}

	n := len(doc.Cameras)
	if n > models.MaxCameras {
		appCtx.Logger.Printf("camconfig: %d cameras configured, only the first %d slots are honored", n, models.MaxCameras)
		n = models.MaxCameras
	}

	cams := make([]models.CameraConfig, 0, n)
	for _, wc := range doc.Cameras[:n] {
		cams = append(cams, fromWire(wc))
	}
	return cams
}

func fromWire(wc wireCamera) models.CameraConfig {
	cam := models.CameraConfig{
		ID:      wc.ID,
		Name:    wc.Name,
		Type:    models.SourceKind(wc.Type),
		Source:  wc.Source,
		Enabled: wc.Enabled,
	}
	if wc.ROI != nil && len(wc.ROI.Points) >= 3 {
		cam.ROI = wc.ROI.Points
		cam.HasROI = true
	}
	if wc.Tripwire != nil {
		origin := models.Point{}
		if wc.Tripwire.Start != origin || wc.Tripwire.End != origin {
			cam.Tripwire = [2]models.Point{wc.Tripwire.Start, wc.Tripwire.End}
			cam.HasTripwire = true
		}
	}
	return cam
}

func toWire(cam models.CameraConfig) wireCamera {
	wc := wireCamera{
		ID:      cam.ID,
		Name:    cam.Name,
		Type:    string(cam.Type),
		Source:  cam.Source,
		Enabled: cam.Enabled,
	}
	if cam.HasROI && len(cam.ROI) >= 3 {
		wc.ROI = &wireROI{Points: cam.ROI}
	}
	if cam.HasTripwire {
		wc.Tripwire = &wireTripwire{Start: cam.Tripwire[0], End: cam.Tripwire[1]}
	}
	return wc
}

// Save writes cams back to path as the cameras.json document, so runtime
// mutations (add/update/delete camera, ROI, tripwire) persist across
// restarts instead of reverting on the next launch.
func Save(path string, cams []models.CameraConfig) error {
	doc := wireDoc{Cameras: make([]wireCamera, 0, len(cams))}
	for _, c := range cams {
		doc.Cameras = append(doc.Cameras, toWire(c))
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cameras: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
