package mapkit

// SelectFeature tracks a single selected feature across a set of vector
// layers and reports selection changes through its callbacks.
type SelectFeature struct {
	ControlBase

	OnSelect   func(*Feature)
	OnUnselect func(*Feature)

	layers   []*VectorLayer
	selected *Feature
}

// NewSelectFeature creates a selection control over layers.
func NewSelectFeature(layers []*VectorLayer, onSelect, onUnselect func(*Feature)) *SelectFeature {
	s := &SelectFeature{OnSelect: onSelect, OnUnselect: onUnselect}
	s.SetLayer(layers)
	return s
}

// SetLayer replaces the layers this control selects on. A selection on a
// layer that is no longer part of the set is dropped.
func (s *SelectFeature) SetLayer(layers []*VectorLayer) {
	s.layers = append([]*VectorLayer(nil), layers...)
	if s.selected != nil && !s.handles(s.selected.Layer) {
		s.Unselect(s.selected)
	}
}

// Layers returns the layers this control selects on.
func (s *SelectFeature) Layers() []*VectorLayer {
	return append([]*VectorLayer(nil), s.layers...)
}

// Selected returns the current selection, or nil.
func (s *SelectFeature) Selected() *Feature {
	return s.selected
}

// Select makes f the current selection. The previous selection, if any, is
// unselected first. It returns false when the control is inactive, f is
// already selected, or f does not belong to one of the control's layers.
func (s *SelectFeature) Select(f *Feature) bool {
	if !s.Active() || f == nil || f == s.selected || !s.handles(f.Layer) {
		return false
	}
	if s.selected != nil {
		s.Unselect(s.selected)
	}
	s.selected = f
	if s.OnSelect != nil {
		s.OnSelect(f)
	}
	return true
}

// Unselect clears the selection if f is the selected feature.
func (s *SelectFeature) Unselect(f *Feature) bool {
	if f == nil || f != s.selected {
		return false
	}
	s.selected = nil
	if s.OnUnselect != nil {
		s.OnUnselect(f)
	}
	return true
}

// UnselectAll clears any selection.
func (s *SelectFeature) UnselectAll() {
	if s.selected != nil {
		s.Unselect(s.selected)
	}
}

func (s *SelectFeature) handles(layer *VectorLayer) bool {
	for _, l := range s.layers {
		if l == layer {
			return true
		}
	}
	return false
}
