package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/jacarma/SmartPopup/internal/mapkit"
	"github.com/jacarma/SmartPopup/internal/smartpopup"
)

// ErrNotFound is returned for unknown layers and features.
var ErrNotFound = errors.New("not found")

// ViewerConfig holds the viewer's collaborators.
type ViewerConfig struct {
	Control smartpopup.Config
	Bus     *EventBus
	History *HistoryStore
	Logger  *zap.Logger
}

// ViewerService owns the live map and its popup control. Every call is
// serialised so the map and control only ever see one event at a time.
type ViewerService struct {
	mu      sync.Mutex
	m       *mapkit.Map
	control *smartpopup.Control
	configs map[string]LayerConfig

	bus     *EventBus
	history *HistoryStore
	log     *zap.Logger

	open *PopupView
}

// NewViewerService creates a map with an attached popup control.
func NewViewerService(cfg ViewerConfig) *ViewerService {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Control.Logger == nil {
		cfg.Control.Logger = cfg.Logger
	}
	if cfg.Bus == nil {
		cfg.Bus = NewEventBus()
	}

	v := &ViewerService{
		m:       mapkit.NewMap(),
		control: smartpopup.New(cfg.Control),
		configs: make(map[string]LayerConfig),
		bus:     cfg.Bus,
		history: cfg.History,
		log:     cfg.Logger,
	}
	v.m.AddControl(v.control)
	return v
}

// Bus returns the bus popup events are published on.
func (v *ViewerService) Bus() *EventBus {
	return v.bus
}

// AddLayer puts a layer on the map. Vector layers are registered with the
// popup control, which fetches their template before AddLayer returns.
func (v *ViewerService) AddLayer(cfg LayerConfig, features []*mapkit.Feature) (LayerStatus, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	var layer mapkit.Layer
	switch cfg.Kind {
	case KindRaster:
		layer = mapkit.NewRasterLayer(cfg.ID, cfg.Name)
	case KindVector, "":
		vl := mapkit.NewVectorLayer(cfg.ID, cfg.Name)
		vl.SelectTemplateURI = cfg.SelectTemplateURI
		vl.AddFeatures(features...)
		layer = vl
	default:
		return LayerStatus{}, fmt.Errorf("unknown layer kind %q", cfg.Kind)
	}

	if !v.m.AddLayer(layer) {
		return LayerStatus{}, fmt.Errorf("layer %q is already on the map", cfg.ID)
	}
	v.configs[cfg.ID] = cfg
	return v.statusLocked(cfg.ID), nil
}

// RemoveLayer takes a layer off the map, closing its popup if one is open.
func (v *ViewerService) RemoveLayer(ctx context.Context, id string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	layer, ok := v.m.Layer(id)
	if !ok {
		return fmt.Errorf("layer %q: %w", id, ErrNotFound)
	}
	if sel := v.control.SelectControl().Selected(); sel != nil && sel.Layer != nil && sel.Layer.ID() == id {
		v.control.SelectControl().Unselect(sel)
	}
	v.m.RemoveLayer(layer)
	delete(v.configs, id)
	v.syncLocked(ctx)
	return nil
}

// Layers reports every layer on the map.
func (v *ViewerService) Layers() []LayerStatus {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([]LayerStatus, 0, len(v.configs))
	for _, l := range v.m.Layers() {
		out = append(out, v.statusLocked(l.ID()))
	}
	return out
}

// Layer reports one layer.
func (v *ViewerService) Layer(id string) (LayerStatus, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.m.Layer(id); !ok {
		return LayerStatus{}, false
	}
	return v.statusLocked(id), true
}

func (v *ViewerService) statusLocked(id string) LayerStatus {
	st := LayerStatus{LayerConfig: v.configs[id]}
	if l, ok := v.m.Layer(id); ok {
		st.OnMap = true
		if vl, ok := l.(*mapkit.VectorLayer); ok {
			st.Features = len(vl.Features())
		}
	}
	_, st.Registered = v.control.Template(id)
	return st
}

// Template returns the cached popup template of a layer.
func (v *ViewerService) Template(layerID string) (string, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.control.Template(layerID)
}

// Select selects a feature and returns the popup it opened.
func (v *ViewerService) Select(ctx context.Context, layerID, featureID string) (*PopupView, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	f, ok := v.m.Feature(layerID, featureID)
	if !ok {
		return nil, fmt.Errorf("feature %s/%s: %w", layerID, featureID, ErrNotFound)
	}
	if _, registered := v.control.Template(layerID); !registered {
		return nil, fmt.Errorf("layer %q has no popup template: %w", layerID, ErrNotFound)
	}
	if !v.control.Active() {
		return nil, fmt.Errorf("popup control is not active")
	}

	v.control.SelectControl().Select(f)
	v.syncLocked(ctx)
	return v.open, nil
}

// Unselect clears the selection. It reports whether a feature was selected.
func (v *ViewerService) Unselect(ctx context.Context) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	had := v.control.SelectControl().Selected() != nil
	v.control.SelectControl().UnselectAll()
	v.syncLocked(ctx)
	return had
}

// Zoom changes the map zoom level, which closes any popup.
func (v *ViewerService) Zoom(ctx context.Context, zoom int) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.m.ZoomTo(zoom)
	v.syncLocked(ctx)
}

// ZoomLevel returns the current zoom level.
func (v *ViewerService) ZoomLevel() int {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.m.Zoom()
}

// Popup returns the open popup, or nil.
func (v *ViewerService) Popup() *PopupView {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.open
}

// Activate activates the popup control.
func (v *ViewerService) Activate(ctx context.Context) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	ok := v.control.Activate()
	v.syncLocked(ctx)
	return ok
}

// Deactivate deactivates the popup control, closing any popup.
func (v *ViewerService) Deactivate(ctx context.Context) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	ok := v.control.Deactivate()
	v.syncLocked(ctx)
	return ok
}

// Active reports whether the popup control is active.
func (v *ViewerService) Active() bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.control.Active()
}

// Close destroys the popup control.
func (v *ViewerService) Close(ctx context.Context) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.control.Destroy()
	v.syncLocked(ctx)
}

// syncLocked compares the control's popup with the last published one and
// publishes the difference.
func (v *ViewerService) syncLocked(ctx context.Context) {
	p := v.control.Popup()
	prev := v.open

	if prev != nil && (p == nil || p.ID != prev.ID) {
		v.open = nil
		v.emit(ctx, Event{Kind: PopupClosed, PopupID: prev.ID, LayerID: prev.LayerID, FeatureID: prev.FeatureID})
	}
	if p != nil && (prev == nil || p.ID != prev.ID) {
		view := &PopupView{
			ID:        p.ID,
			Lon:       p.LonLat.Lon(),
			Lat:       p.LonLat.Lat(),
			MaxWidth:  p.MaxSize.W,
			MaxHeight: p.MaxSize.H,
			HTML:      p.HTML,
		}
		if f := v.control.SelectControl().Selected(); f != nil {
			view.FeatureID = f.ID
			if f.Layer != nil {
				view.LayerID = f.Layer.ID()
			}
		}
		v.open = view
		v.emit(ctx, Event{Kind: PopupOpened, PopupID: view.ID, LayerID: view.LayerID, FeatureID: view.FeatureID, Popup: view})
	}
}

func (v *ViewerService) emit(ctx context.Context, ev Event) {
	v.bus.Publish(ev)
	if err := v.history.Record(ctx, ev); err != nil {
		v.log.Warn("popup history", zap.Error(err))
	}
	v.log.Debug("popup "+ev.Kind,
		zap.String("popup", ev.PopupID),
		zap.String("layer", ev.LayerID),
		zap.String("feature", ev.FeatureID),
	)
}
