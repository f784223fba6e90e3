// Package pgstore archives appended alerts to Postgres: a durable
// insert-only mirror of the in-memory alert list, upserted the way the
// teacher upserts scenarios. Optional Observer: wiring it is opt-in via
// system configuration, and an archival failure is logged, never
// propagated back into the aggregator's Append.
package pgstore

import (
	"context"
	"time"

	"github.com/shreyahuja108/sentryfeed/internal/appctx"
	"github.com/shreyahuja108/sentryfeed/internal/database"
	"github.com/shreyahuja108/sentryfeed/internal/models"
)

// Archive is an alerts.Observer that mirrors every insertion and
// snapshot-path update into Postgres.
type Archive struct {
	appCtx *appctx.Context
	db     *database.Database
}

// New wraps db as an alerts.Observer. Init must have been called on db
// already so the alerts table exists.
func New(appCtx *appctx.Context, db *database.Database) *Archive {
	return &Archive{appCtx: appCtx, db: db}
}

func (a *Archive) OnAlertAdded(alert models.Alert, _ int) {
	a.upsert(alert)
}

func (a *Archive) OnAlertChanged(alert models.Alert, _ int) {
	a.upsert(alert)
}

func (a *Archive) OnCountChanged(int) {}

func (a *Archive) upsert(alert models.Alert) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.db.UpsertAlert(ctx, alert); err != nil {
		a.appCtx.Logger.Printf("pgstore: archive alert %s: %v", alert.ID, err)
	}
}
