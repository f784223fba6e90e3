package alerts

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shreyahuja108/sentryfeed/internal/models"
	"github.com/shreyahuja108/sentryfeed/internal/snapshot"
)

var csvHeader = []string{"ID", "Timestamp", "Camera Name", "Type", "Message", "Snapshot Path"}

// selected returns the alerts at indices (in that order), or the full
// snapshot when indices is empty.
func (a *Aggregator) selected(indices []int) ([]models.Alert, error) {
	all := a.Snapshot()
	if len(indices) == 0 {
		return all, nil
	}
	out := make([]models.Alert, 0, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(all) {
			return nil, fmt.Errorf("alert index %d out of range (len=%d)", idx, len(all))
		}
		out = append(out, all[idx])
	}
	return out, nil
}

// ExportToCSV writes the selected alerts (or all, if indices is empty) to
// path with the fixed header row. RFC4180 quoting happens to match the
// required escaping rule exactly: a comma, quote, or newline in a field
// forces quoting, with an embedded quote doubled.
func (a *Aggregator) ExportToCSV(path string, indices []int) error {
	rows, err := a.selected(indices)
	if err != nil {
		return fmt.Errorf("export csv: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export csv: create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("export csv: write header: %w", err)
	}
	for _, al := range rows {
		record := []string{
			al.ID,
			al.Timestamp.Format(time.RFC3339),
			al.CameraName,
			string(al.Kind),
			al.Message,
			al.SnapshotPath,
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("export csv: write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

type jsonAlert struct {
	ID           string `json:"id"`
	Timestamp    string `json:"timestamp"`
	CameraName   string `json:"cameraName"`
	Type         string `json:"type"`
	Message      string `json:"message"`
	SnapshotPath string `json:"snapshotPath"`
	HasImage     bool   `json:"hasImage"`
}

type jsonExport struct {
	Alerts     []jsonAlert `json:"alerts"`
	ExportTime string      `json:"exportTime"`
	TotalCount int         `json:"totalCount"`
}

// ExportToJSON writes the selected alerts (or all) to path as an
// {alerts, exportTime, totalCount} document.
func (a *Aggregator) ExportToJSON(path string, indices []int) error {
	rows, err := a.selected(indices)
	if err != nil {
		return fmt.Errorf("export json: %w", err)
	}

	doc := jsonExport{
		Alerts:     make([]jsonAlert, 0, len(rows)),
		ExportTime: a.appCtx.Clock.Now().Format(time.RFC3339),
		TotalCount: len(rows),
	}
	for _, al := range rows {
		doc.Alerts = append(doc.Alerts, jsonAlert{
			ID:           al.ID,
			Timestamp:    al.Timestamp.Format(time.RFC3339),
			CameraName:   al.CameraName,
			Type:         string(al.Kind),
			Message:      al.Message,
			SnapshotPath: al.SnapshotPath,
			HasImage:     al.HasImage(),
		})
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("export json: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("export json: write %s: %w", path, err)
	}
	return nil
}

// ExportSnapshotAsPNG writes the in-memory image carried by the alert at
// index to path through store, then updates that alert's snapshot path
// and message in place and notifies observers that one row changed.
func (a *Aggregator) ExportSnapshotAsPNG(ctx context.Context, index int, store snapshot.Store, path string) error {
	alert, err := a.At(index)
	if err != nil {
		return err
	}
	if alert.Image == nil {
		return fmt.Errorf("alert %s has no in-memory image to export", alert.ID)
	}

	png, err := snapshot.EncodePNG(alert.Image.Width, alert.Image.Height, alert.Image.Pixels)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	savedPath, err := store.Save(ctx, path, png)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	a.mu.Lock()
	if index < 0 || index >= len(a.alerts) {
		a.mu.Unlock()
		return fmt.Errorf("alert index %d out of range", index)
	}
	a.alerts[index].SnapshotPath = savedPath
	a.alerts[index].Message = "Snapshot saved"
	a.alerts[index].Image = nil
	updated := a.alerts[index]
	observers := append([]Observer(nil), a.observers...)
	a.mu.Unlock()

	for _, o := range observers {
		o.OnAlertChanged(updated, index)
	}
	return nil
}

// SuggestedSnapshotName previews the filename a save-snapshot call would
// use, independent of the actual save call, so a caller can display it
// before committing to a write.
func SuggestedSnapshotName(cameraName string, ts time.Time) string {
	sanitized := strings.ReplaceAll(cameraName, " ", "_")
	return fmt.Sprintf("%s_%s.png", sanitized, ts.Format("20060102_150405"))
}
