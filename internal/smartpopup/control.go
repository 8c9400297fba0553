// Package smartpopup binds per-layer HTML templates to feature selection
// and shows the rendered template in a popup at the selected feature.
//
// A Control is driven by map events and is not safe for concurrent use.
package smartpopup

import (
	"go.uber.org/zap"

	"github.com/jacarma/SmartPopup/internal/fetch"
	"github.com/jacarma/SmartPopup/internal/mapkit"
	"github.com/jacarma/SmartPopup/internal/templates"
)

// DefaultMaxSize bounds every popup the control opens.
var DefaultMaxSize = mapkit.Size{W: 300, H: 500}

// Config holds the control's collaborators. Zero values get defaults.
type Config struct {
	// Getter fetches templates. Defaults to an HTTP getter without base URL.
	Getter fetch.Getter
	// Translate resolves %i18n("key")% tokens. Defaults to returning the key.
	Translate func(key string) string
	// MaxSize bounds popups. Defaults to DefaultMaxSize.
	MaxSize mapkit.Size
	// Sanitize strips unsafe markup from rendered popups. It is off by
	// default: attribute values are spliced into the template as raw HTML,
	// so feature data must be trusted unless Sanitize is set.
	Sanitize bool
	// ManualActivate keeps the control inactive when it is added to a map.
	ManualActivate bool
	Logger         *zap.Logger
}

// Control opens a popup for the selected feature of any registered layer.
type Control struct {
	mapkit.ControlBase

	cfg Config
	log *zap.Logger

	templates     map[string]string
	layers        []*mapkit.VectorLayer
	selectControl *mapkit.SelectFeature
	popup         *mapkit.Popup
}

// New creates an inactive control.
func New(cfg Config) *Control {
	if cfg.Getter == nil {
		g, _ := fetch.NewHTTPGetter(nil, "")
		cfg.Getter = g
	}
	if cfg.Translate == nil {
		cfg.Translate = func(key string) string { return key }
	}
	if cfg.MaxSize == (mapkit.Size{}) {
		cfg.MaxSize = DefaultMaxSize
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	c := &Control{
		cfg:       cfg,
		log:       cfg.Logger.Named("smartpopup"),
		templates: make(map[string]string),
	}
	c.selectControl = mapkit.NewSelectFeature(nil, c.selectFeature, c.unselectFeature)
	return c
}

// AutoActivate reports whether the map should activate the control when it
// is added.
func (c *Control) AutoActivate() bool {
	return !c.cfg.ManualActivate
}

// SelectControl returns the delegated selection control.
func (c *Control) SelectControl() *mapkit.SelectFeature {
	return c.selectControl
}

// Activate hooks the control into its map: the selection control is added
// and activated, map events are subscribed and every layer already on the
// map is registered. It returns false when the control was already active
// or has no map.
func (c *Control) Activate() bool {
	m := c.Map()
	if m == nil || !c.ControlBase.Activate() {
		return false
	}

	m.AddControl(c.selectControl)
	c.selectControl.Activate()
	m.Events().On(c, map[mapkit.EventType]mapkit.Listener{
		mapkit.EventZoomEnd:     c.onZoomEnd,
		mapkit.EventAddLayer:    c.onAddLayer,
		mapkit.EventRemoveLayer: c.onRemoveLayer,
	})
	for _, layer := range m.Layers() {
		c.AddLayer(layer)
	}
	return true
}

// Deactivate unsubscribes from map events, stops selecting and closes any
// open popup. It returns false when the control was already inactive.
func (c *Control) Deactivate() bool {
	if !c.ControlBase.Deactivate() {
		return false
	}
	if m := c.Map(); m != nil {
		m.Events().Un(c, mapkit.EventZoomEnd, mapkit.EventAddLayer, mapkit.EventRemoveLayer)
	}
	c.selectControl.UnselectAll()
	c.selectControl.Deactivate()
	c.DestroyPopup()
	return true
}

// Destroy deactivates the control, drops its templates and layers and
// detaches it from the map.
func (c *Control) Destroy() {
	c.Deactivate()
	c.templates = nil
	c.layers = nil
	c.ControlBase.Destroy()
}

// AddLayer registers layer with the control. The template location is
// templateURI when given, otherwise the layer's SelectTemplateURI.
//
// The template is fetched synchronously the first time a layer is
// registered. A failed fetch caches "<status>-<statusText>" so selections on
// the layer still open a popup. AddLayer returns false when the layer is not
// a vector layer, no template location is available, or a template is
// already cached for the layer id. A new layer object that reuses a cached
// id takes over the registration without a second fetch.
func (c *Control) AddLayer(layer mapkit.Layer, templateURI ...string) bool {
	if c.templates == nil {
		return false
	}
	vl, ok := layer.(*mapkit.VectorLayer)
	if !ok {
		return false
	}

	uri := vl.SelectTemplateURI
	if len(templateURI) > 0 && templateURI[0] != "" {
		uri = templateURI[0]
	}
	if uri == "" {
		return false
	}
	if _, cached := c.templates[vl.ID()]; cached {
		c.rebind(vl)
		return false
	}

	resp := c.cfg.Getter.Get(uri)
	var html string
	if resp.OK() {
		html = templates.ExpandI18n(resp.Body, c.cfg.Translate)
	} else {
		html = resp.Fallback()
		c.log.Warn("template fetch failed",
			zap.String("layer", vl.ID()),
			zap.String("uri", uri),
			zap.Int("status", resp.Status),
			zap.String("status_text", resp.StatusText),
		)
	}

	c.templates[vl.ID()] = html
	c.layers = append(c.layers, vl)
	c.selectControl.SetLayer(c.layers)
	c.log.Debug("layer registered", zap.String("layer", vl.ID()), zap.String("uri", uri))
	return true
}

// rebind points the registration for vl's id at vl when the map now holds a
// different layer object under that id. The cached template is kept.
func (c *Control) rebind(vl *mapkit.VectorLayer) {
	for i, l := range c.layers {
		if l.ID() != vl.ID() || l == vl {
			continue
		}
		c.layers[i] = vl
		c.selectControl.SetLayer(c.layers)
		c.log.Debug("layer rebound", zap.String("layer", vl.ID()))
		return
	}
}

// RemoveLayer is a no-op: registered templates and layers stay cached for
// the lifetime of the control.
func (c *Control) RemoveLayer(layer mapkit.Layer) {
	if layer != nil {
		c.log.Debug("remove layer ignored", zap.String("layer", layer.ID()))
	}
}

// Template returns the cached template for a layer.
func (c *Control) Template(layerID string) (string, bool) {
	html, ok := c.templates[layerID]
	return html, ok
}

// Layers returns the registered layers in registration order.
func (c *Control) Layers() []*mapkit.VectorLayer {
	return append([]*mapkit.VectorLayer(nil), c.layers...)
}

// Popup returns the open popup, or nil.
func (c *Control) Popup() *mapkit.Popup {
	return c.popup
}

// Render fills the layer's template with the feature's attributes.
func (c *Control) Render(f *mapkit.Feature) (string, bool) {
	if f == nil || f.Layer == nil {
		return "", false
	}
	tmpl, ok := c.templates[f.Layer.ID()]
	if !ok {
		return "", false
	}
	html := templates.Substitute(tmpl, f.Attributes)
	if c.cfg.Sanitize {
		html = templates.Sanitize(html)
	}
	return html, true
}

func (c *Control) selectFeature(f *mapkit.Feature) {
	html, ok := c.Render(f)
	if !ok {
		c.log.Warn("no template for selected feature", zap.String("feature", f.ID))
		return
	}
	m := c.Map()
	if m == nil {
		return
	}

	c.DestroyPopup()
	c.popup = mapkit.NewPopup("", f.Anchor(), html)
	c.popup.MaxSize = c.cfg.MaxSize
	m.AddPopup(c.popup)
}

func (c *Control) unselectFeature(*mapkit.Feature) {
	c.DestroyPopup()
}

func (c *Control) onZoomEnd(mapkit.Event) {
	c.DestroyPopup()
}

func (c *Control) onAddLayer(ev mapkit.Event) {
	c.AddLayer(ev.Layer)
}

func (c *Control) onRemoveLayer(ev mapkit.Event) {
	c.RemoveLayer(ev.Layer)
}

// DestroyPopup closes the open popup, if any. It is safe to call without a
// popup and after the control has been detached from its map.
func (c *Control) DestroyPopup() {
	if c.popup == nil {
		return
	}
	if m := c.Map(); m != nil {
		m.RemovePopup(c.popup)
	}
	c.popup.Destroy()
	c.popup = nil
}
