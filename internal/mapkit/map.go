package mapkit

// Map owns layers, popups and controls, and dispatches map events.
type Map struct {
	layers   []Layer
	popups   []*Popup
	controls []Control
	events   *Events
	zoom     int
}

// NewMap creates an empty map at zoom level 0.
func NewMap() *Map {
	return &Map{events: NewEvents()}
}

// Events returns the map's event registry.
func (m *Map) Events() *Events {
	return m.events
}

// Layers returns the map's layers in insertion order.
func (m *Map) Layers() []Layer {
	return append([]Layer(nil), m.layers...)
}

// Layer returns the layer with the given ID.
func (m *Map) Layer(id string) (Layer, bool) {
	for _, l := range m.layers {
		if l.ID() == id {
			return l, true
		}
	}
	return nil, false
}

// AddLayer appends layer and fires addlayer. Layers with an ID already on
// the map are rejected.
func (m *Map) AddLayer(layer Layer) bool {
	if layer == nil {
		return false
	}
	if _, exists := m.Layer(layer.ID()); exists {
		return false
	}
	m.layers = append(m.layers, layer)
	m.events.Trigger(Event{Type: EventAddLayer, Layer: layer})
	return true
}

// RemoveLayer removes layer and fires removelayer.
func (m *Map) RemoveLayer(layer Layer) bool {
	for i, l := range m.layers {
		if l == layer {
			m.layers = append(m.layers[:i], m.layers[i+1:]...)
			m.events.Trigger(Event{Type: EventRemoveLayer, Layer: layer})
			return true
		}
	}
	return false
}

// Feature finds a feature by layer and feature ID.
func (m *Map) Feature(layerID, featureID string) (*Feature, bool) {
	l, ok := m.Layer(layerID)
	if !ok {
		return nil, false
	}
	vl, ok := l.(*VectorLayer)
	if !ok {
		return nil, false
	}
	return vl.Feature(featureID)
}

// Zoom returns the current zoom level.
func (m *Map) Zoom() int {
	return m.zoom
}

// ZoomTo sets the zoom level and fires zoomend.
func (m *Map) ZoomTo(zoom int) {
	m.zoom = zoom
	m.events.Trigger(Event{Type: EventZoomEnd, Zoom: zoom})
}

// AddPopup shows p on the map.
func (m *Map) AddPopup(p *Popup) {
	for _, existing := range m.popups {
		if existing == p {
			return
		}
	}
	m.popups = append(m.popups, p)
}

// RemovePopup takes p off the map.
func (m *Map) RemovePopup(p *Popup) {
	for i, existing := range m.popups {
		if existing == p {
			m.popups = append(m.popups[:i], m.popups[i+1:]...)
			return
		}
	}
}

// Popups returns the popups currently on the map.
func (m *Map) Popups() []*Popup {
	return append([]*Popup(nil), m.popups...)
}

// AddControl attaches c to the map. Adding a control twice is a no-op.
// Controls implementing AutoActivator are activated when they ask for it.
func (m *Map) AddControl(c Control) {
	for _, existing := range m.controls {
		if existing == c {
			return
		}
	}
	m.controls = append(m.controls, c)
	c.SetMap(m)
	if a, ok := c.(AutoActivator); ok && a.AutoActivate() {
		c.Activate()
	}
}

// Controls returns the attached controls.
func (m *Map) Controls() []Control {
	return append([]Control(nil), m.controls...)
}
