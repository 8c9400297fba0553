// Package service contains the viewer's business logic: layer
// configuration, GeoJSON sources, the live map with its popup control, and
// the popup event log.
package service

// Layer kinds.
const (
	KindVector = "vector"
	KindRaster = "raster"
)

// LayerConfig represents a map layer configuration.
// Huma reads the tags for OpenAPI docs and validation.
type LayerConfig struct {
	ID                string `json:"id,omitempty" doc:"Unique layer identifier" example:"cities"`
	Name              string `json:"name" required:"true" minLength:"1" maxLength:"100" doc:"Display name" example:"Cities"`
	Kind              string `json:"kind" enum:"vector,raster" default:"vector" doc:"Layer kind; only vector layers get popups" example:"vector"`
	Source            string `json:"source,omitempty" doc:"GeoJSON file under the sources directory" example:"cities.geojson"`
	SelectTemplateURI string `json:"selectTemplateURI,omitempty" doc:"Popup template location, absolute or relative to the server" example:"/popups/city.html"`
}

// PopupView is the state of the open popup.
type PopupView struct {
	ID        string  `json:"id" doc:"Popup identifier" example:"popup_1"`
	LayerID   string  `json:"layerId" doc:"Layer of the selected feature" example:"cities"`
	FeatureID string  `json:"featureId" doc:"Selected feature" example:"paris"`
	Lon       float64 `json:"lon" doc:"Anchor longitude" example:"2.35"`
	Lat       float64 `json:"lat" doc:"Anchor latitude" example:"48.85"`
	MaxWidth  int     `json:"maxWidth" doc:"Maximum popup width in pixels" example:"300"`
	MaxHeight int     `json:"maxHeight" doc:"Maximum popup height in pixels" example:"500"`
	HTML      string  `json:"html" doc:"Rendered popup body" example:"<b>Paris</b>"`
}

// LayerStatus describes a layer on the live map.
type LayerStatus struct {
	LayerConfig
	OnMap      bool `json:"onMap" doc:"Whether the layer is on the map"`
	Registered bool `json:"registered" doc:"Whether the popup control holds a template for the layer"`
	Features   int  `json:"features" doc:"Number of features"`
}

// SourceFile represents a GeoJSON source file.
type SourceFile struct {
	Name string `json:"name" doc:"File name" example:"cities.geojson"`
	Size string `json:"size" doc:"Human-readable file size" example:"1.2 MB"`
}
