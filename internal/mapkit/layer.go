// Package mapkit is a small in-process map model: layers, features,
// popups, controls and the event registry that ties them together.
//
// It mirrors the contracts a map control relies on, not a renderer. Nothing
// here is safe for concurrent use; callers serialise access the way a UI
// event loop would.
package mapkit

import (
	"github.com/paulmach/orb"
)

// Layer is anything that can be added to a map.
type Layer interface {
	ID() string
	Name() string
}

// VectorLayer holds discrete features with attributes.
type VectorLayer struct {
	id   string
	name string

	// SelectTemplateURI is the default popup template location used when a
	// control registers this layer without an explicit URI.
	SelectTemplateURI string

	features []*Feature
	byID     map[string]*Feature
}

// NewVectorLayer creates an empty vector layer.
func NewVectorLayer(id, name string) *VectorLayer {
	return &VectorLayer{id: id, name: name, byID: make(map[string]*Feature)}
}

func (l *VectorLayer) ID() string   { return l.id }
func (l *VectorLayer) Name() string { return l.name }

// AddFeatures appends features and makes l their owning layer. A feature
// whose ID is already present replaces the previous one.
func (l *VectorLayer) AddFeatures(features ...*Feature) {
	for _, f := range features {
		if f == nil {
			continue
		}
		f.Layer = l
		if prev, ok := l.byID[f.ID]; ok {
			for i, existing := range l.features {
				if existing == prev {
					l.features[i] = f
					break
				}
			}
		} else {
			l.features = append(l.features, f)
		}
		l.byID[f.ID] = f
	}
}

// Feature returns the feature with the given ID.
func (l *VectorLayer) Feature(id string) (*Feature, bool) {
	f, ok := l.byID[id]
	return f, ok
}

// Features returns the layer's features in insertion order.
func (l *VectorLayer) Features() []*Feature {
	return append([]*Feature(nil), l.features...)
}

// RasterLayer is a featureless layer such as a base map.
type RasterLayer struct {
	id   string
	name string
}

// NewRasterLayer creates a raster layer.
func NewRasterLayer(id, name string) *RasterLayer {
	return &RasterLayer{id: id, name: name}
}

func (l *RasterLayer) ID() string   { return l.id }
func (l *RasterLayer) Name() string { return l.name }

// Feature is a single geometry with an attribute mapping.
type Feature struct {
	ID         string
	Layer      *VectorLayer
	Geometry   orb.Geometry
	Attributes map[string]any
}

// Anchor returns the centre of the geometry's bounding box, or the origin
// when the feature has no geometry.
func (f *Feature) Anchor() orb.Point {
	if f.Geometry == nil {
		return orb.Point{}
	}
	return f.Geometry.Bound().Center()
}
