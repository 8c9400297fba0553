package mapkit

// Control is a pluggable behaviour attached to a map.
type Control interface {
	SetMap(m *Map)
	Activate() bool
	Deactivate() bool
	Active() bool
}

// AutoActivator is implemented by controls that want to be activated as
// soon as they are added to a map.
type AutoActivator interface {
	AutoActivate() bool
}

// ControlBase carries the active/inactive state and the map attachment.
// Embed it and call its Activate/Deactivate first; they return false when
// the state does not change.
type ControlBase struct {
	m      *Map
	active bool
}

// SetMap attaches the control to m.
func (c *ControlBase) SetMap(m *Map) {
	c.m = m
}

// Map returns the attached map, or nil.
func (c *ControlBase) Map() *Map {
	return c.m
}

// Activate moves the control to the active state.
func (c *ControlBase) Activate() bool {
	if c.active {
		return false
	}
	c.active = true
	return true
}

// Deactivate moves the control to the inactive state.
func (c *ControlBase) Deactivate() bool {
	if !c.active {
		return false
	}
	c.active = false
	return true
}

// Active reports whether the control is active.
func (c *ControlBase) Active() bool {
	return c.active
}

// Destroy detaches the control from its map.
func (c *ControlBase) Destroy() {
	c.m = nil
}
