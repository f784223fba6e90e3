package database

import (
	"context"
	"time"

	"github.com/shreyahuja108/sentryfeed/internal/models"
)

// UpsertAlert inserts alert, or updates message/snapshot_path in place on
// a duplicate id — mirroring the upstream runner's ON CONFLICT DO UPDATE
// pattern for scenarios, now keyed by alert id instead of scenario id.
func (d *Database) UpsertAlert(ctx context.Context, a models.Alert) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO alerts (id, timestamp, camera_name, kind, message, snapshot_path)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET message = $5, snapshot_path = $6
	`,
		a.ID, a.Timestamp, a.CameraName, string(a.Kind), a.Message, a.SnapshotPath,
	)
	return err
}

// RecentAlerts retrieves up to limit of the most recently archived alerts,
// newest first.
func (d *Database) RecentAlerts(ctx context.Context, limit int) ([]models.Alert, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT id, timestamp, camera_name, kind, message, snapshot_path
		FROM alerts
		ORDER BY timestamp DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Alert
	for rows.Next() {
		var a models.Alert
		var ts time.Time
		var kind string
		if err := rows.Scan(&a.ID, &ts, &a.CameraName, &kind, &a.Message, &a.SnapshotPath); err != nil {
			return nil, err
		}
		a.Timestamp = ts
		a.Kind = models.AlertKind(kind)
		out = append(out, a)
	}
	return out, rows.Err()
}
