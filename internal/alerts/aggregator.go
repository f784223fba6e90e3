// Package alerts implements the cross-camera Alert aggregator: a
// single-writer ordered list of alerts drawn from every pipeline, with
// observer notifications on insertion and export operations. It has no
// UI vocabulary in its own types, per the "deep inheritance of model
// classes" design note — observers are plain Go callbacks.
package alerts

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shreyahuja108/sentryfeed/internal/appctx"
	"github.com/shreyahuja108/sentryfeed/internal/models"
)

// idFor assigns a "yyyyMMddHHmmsszzz" style id derived from the alert's
// timestamp. Millisecond-granularity collisions under bursty input are
// expected and tolerated — exports never assume ids are unique.
func idFor(ts time.Time) string {
	return ts.Format("20060102150405") + fmt.Sprintf("%03d", ts.Nanosecond()/int(time.Millisecond))
}

// Observer is notified of aggregator mutations. Implementations must not
// block for long: OnCountChanged from Remove, RemoveMany and Clear runs
// under the aggregator's lock; OnAlertAdded, OnAlertChanged and Append's
// OnCountChanged run after it is released.
type Observer interface {
	OnCountChanged(count int)
	OnAlertAdded(a models.Alert, index int)
	OnAlertChanged(a models.Alert, index int)
}

// Aggregator owns the alert list exclusively; every mutation happens under
// its mutex, per the concurrency model's "alert list is only mutated under
// the aggregator's exclusive lock."
type Aggregator struct {
	appCtx    *appctx.Context
	mu        sync.Mutex
	alerts    []models.Alert
	observers []Observer
}

// New builds an empty Aggregator.
func New(appCtx *appctx.Context) *Aggregator {
	return &Aggregator{appCtx: appCtx}
}

// AddObserver registers o for future notifications. It takes the
// aggregator's lock, so it may be called concurrently with Append/Remove/
// Clear; a notification already in flight does not reach o.
func (a *Aggregator) AddObserver(o Observer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.observers = append(a.observers, o)
}

// Append assigns alert an id (if unset) and a timestamp (if zero), appends
// it to the tail, and notifies observers of the count change and the
// insertion. Returns the stored alert (with id/timestamp filled in).
func (a *Aggregator) Append(alert models.Alert) models.Alert {
	a.mu.Lock()
	if alert.Timestamp.IsZero() {
		alert.Timestamp = a.appCtx.Clock.Now()
	}
	if alert.ID == "" {
		alert.ID = idFor(alert.Timestamp)
	}
	a.alerts = append(a.alerts, alert)
	index := len(a.alerts) - 1
	observers := append([]Observer(nil), a.observers...)
	count := len(a.alerts)
	a.mu.Unlock()

	for _, o := range observers {
		o.OnAlertAdded(alert, index)
		o.OnCountChanged(count)
	}
	return alert
}

// Remove deletes the alert at index. Reports whether index was valid.
func (a *Aggregator) Remove(index int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if index < 0 || index >= len(a.alerts) {
		return false
	}
	a.alerts = append(a.alerts[:index], a.alerts[index+1:]...)
	a.notifyCountLocked()
	return true
}

// RemoveMany deletes the alerts at the given positions, processing indices
// in descending order so earlier removals don't invalidate later ones.
// Returns the number of positions actually removed.
func (a *Aggregator) RemoveMany(indices []int) int {
	sorted := append([]int(nil), indices...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))

	a.mu.Lock()
	defer a.mu.Unlock()
	removed := 0
	for _, idx := range sorted {
		if idx < 0 || idx >= len(a.alerts) {
			continue
		}
		a.alerts = append(a.alerts[:idx], a.alerts[idx+1:]...)
		removed++
	}
	if removed > 0 {
		a.notifyCountLocked()
	}
	return removed
}

// Clear removes every alert.
func (a *Aggregator) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = nil
	a.notifyCountLocked()
}

func (a *Aggregator) notifyCountLocked() {
	count := len(a.alerts)
	observers := append([]Observer(nil), a.observers...)
	for _, o := range observers {
		o.OnCountChanged(count)
	}
}

// Snapshot returns a copy of the full alert list, in append order.
func (a *Aggregator) Snapshot() []models.Alert {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]models.Alert, len(a.alerts))
	copy(out, a.alerts)
	return out
}

// At returns a copy of the alert at index, or an error if out of range.
func (a *Aggregator) At(index int) (models.Alert, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if index < 0 || index >= len(a.alerts) {
		return models.Alert{}, fmt.Errorf("alert index %d out of range (len=%d)", index, len(a.alerts))
	}
	return a.alerts[index], nil
}

// Count returns the current number of alerts.
func (a *Aggregator) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.alerts)
}
