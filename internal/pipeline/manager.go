package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shreyahuja108/sentryfeed/internal/alerts"
	"github.com/shreyahuja108/sentryfeed/internal/appctx"
	"github.com/shreyahuja108/sentryfeed/internal/capture"
	"github.com/shreyahuja108/sentryfeed/internal/models"
)

// Manager is the direct analogue of the upstream runner's Runner: a map of camera
// id to pipeline guarded by one mutex, with idempotent Start/Stop. Slots
// are sparse (per-slot fixed array design note) — only the external HTTP
// surface reports fixed slot numbers.
type Manager struct {
	appCtx     *appctx.Context
	aggregator *alerts.Aggregator

	mu        sync.Mutex
	pipelines map[string]*Pipeline
	slots     map[string]int // camera id -> slot index, for the external surface
}

// NewManager builds an empty Manager.
func NewManager(appCtx *appctx.Context, aggregator *alerts.Aggregator) *Manager {
	return &Manager{
		appCtx:     appCtx,
		aggregator: aggregator,
		pipelines:  make(map[string]*Pipeline),
		slots:      make(map[string]int),
	}
}

// SourceFactory builds the capture.Source for a camera config — a seam so
// tests can inject capture.MockSource instead of the real GoCVSource.
type SourceFactory func(appCtx *appctx.Context, cfg models.CameraConfig) (capture.Source, error)

// Load builds one pipeline per camera config in slot order, skipping
// disabled entries (they still consume their slot index). Enabled
// pipelines are not started automatically; call Start per id, or StartAll.
func (m *Manager) Load(cfgs []models.CameraConfig, newSource SourceFactory) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for slot, cfg := range cfgs {
		m.slots[cfg.ID] = slot
		if !cfg.Enabled {
			continue
		}
		source, err := newSource(m.appCtx.With("pipeline "+cfg.ID), cfg)
		if err != nil {
			m.appCtx.Logger.Printf("manager: camera %s: build source: %v", cfg.ID, err)
			continue
		}
		m.pipelines[cfg.ID] = New(m.appCtx.With("pipeline "+cfg.ID), cfg, source, m.aggregator)
	}
	return nil
}

// Get returns the pipeline for id, or (nil, false) if the slot is absent
// or disabled. Disabled slots report as unavailable rather than erroring.
func (m *Manager) Get(id string) (*Pipeline, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pipelines[id]
	return p, ok
}

// List returns every known pipeline, in no particular order.
func (m *Manager) List() []*Pipeline {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Pipeline, 0, len(m.pipelines))
	for _, p := range m.pipelines {
		out = append(out, p)
	}
	return out
}

// SlotPipeline pairs a loaded pipeline with the slot index its camera
// config occupied in cameras.json.
type SlotPipeline struct {
	Slot     int
	Pipeline *Pipeline
}

// ListSlots returns every loaded pipeline together with its slot index,
// ordered by slot ascending — the order the external HTTP surface reports
// cameras in (id assigned as cam<slot>).
func (m *Manager) ListSlots() []SlotPipeline {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SlotPipeline, 0, len(m.pipelines))
	for id, p := range m.pipelines {
		out = append(out, SlotPipeline{Slot: m.slots[id], Pipeline: p})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
	return out
}

// GetBySlot returns the pipeline loaded at slot, or (nil, false) if that
// slot is empty or disabled. This is the lookup the HTTP surface's
// cam<slot> ids resolve through.
func (m *Manager) GetBySlot(slot int) (*Pipeline, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.slots {
		if s == slot {
			p, ok := m.pipelines[id]
			return p, ok
		}
	}
	return nil, false
}

// Start starts the pipeline for id. Idempotent; returns an error if id is
// unknown (absent or disabled slot).
func (m *Manager) Start(ctx context.Context, id string) error {
	p, ok := m.Get(id)
	if !ok {
		return fmt.Errorf("manager: unknown or disabled camera %q", id)
	}
	return p.Start(ctx)
}

// Stop stops the pipeline for id. Idempotent; returns an error if id is
// unknown.
func (m *Manager) Stop(id string) error {
	p, ok := m.Get(id)
	if !ok {
		return fmt.Errorf("manager: unknown or disabled camera %q", id)
	}
	return p.Stop()
}

// StartAll starts every loaded pipeline, logging (not failing) on
// individual errors.
func (m *Manager) StartAll(ctx context.Context) {
	for _, p := range m.List() {
		if err := p.Start(ctx); err != nil {
			m.appCtx.Logger.Printf("manager: camera %s failed to start: %v", p.ID(), err)
		}
	}
}

// StopAll stops every loaded pipeline, releasing all worker goroutines and
// capture handles.
func (m *Manager) StopAll() {
	for _, p := range m.List() {
		if err := p.Stop(); err != nil {
			m.appCtx.Logger.Printf("manager: camera %s failed to stop cleanly: %v", p.ID(), err)
		}
	}
}
