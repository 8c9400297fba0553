package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/jacarma/SmartPopup/internal/i18n"
	"github.com/jacarma/SmartPopup/internal/mapkit"
	"github.com/jacarma/SmartPopup/internal/server"
	"github.com/jacarma/SmartPopup/internal/service"
	"github.com/jacarma/SmartPopup/internal/smartpopup"
)

// renderedPopup is one line of render output.
type renderedPopup struct {
	FeatureID string  `yaml:"feature"`
	Lon       float64 `yaml:"lon"`
	Lat       float64 `yaml:"lat"`
	HTML      string  `yaml:"html"`
}

// renderFile selects every feature of a GeoJSON file in turn on an offline
// map and collects the popup each selection opens.
func renderFile(path, templateURI string, opts *Options, logger *zap.Logger) ([]renderedPopup, error) {
	features, err := service.LoadFeatures(path)
	if err != nil {
		return nil, err
	}

	var translate i18n.Func
	if catalog, err := server.LoadCatalog(opts.LocalesDir); err != nil {
		logger.Warn("locale catalogs unavailable, i18n tokens resolve to keys", zap.Error(err))
	} else {
		translate = catalog.Translator(opts.Locale)
	}

	control := smartpopup.New(smartpopup.Config{
		Getter:    server.TemplateGetter(opts.WebDir, templateClient(opts), templateHosts(opts)),
		Translate: translate,
		Sanitize:  opts.Sanitize,
		Logger:    logger,
	})
	defer control.Destroy()

	m := mapkit.NewMap()
	m.AddControl(control)

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	layer := mapkit.NewVectorLayer(name, name)
	layer.SelectTemplateURI = templateURI
	layer.AddFeatures(features...)
	m.AddLayer(layer)

	selector := control.SelectControl()
	popups := make([]renderedPopup, 0, len(features))
	for _, f := range layer.Features() {
		if !selector.Select(f) {
			continue
		}
		if p := control.Popup(); p != nil {
			popups = append(popups, renderedPopup{
				FeatureID: f.ID,
				Lon:       p.LonLat.Lon(),
				Lat:       p.LonLat.Lat(),
				HTML:      p.HTML,
			})
		}
	}
	selector.UnselectAll()
	return popups, nil
}

func writePopups(w io.Writer, popups []renderedPopup, useYAML bool) error {
	if useYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(popups); err != nil {
			return err
		}
		return enc.Close()
	}
	for _, p := range popups {
		if _, err := fmt.Fprintf(w, "# %s (%.6f, %.6f)\n%s\n\n", p.FeatureID, p.Lon, p.Lat, p.HTML); err != nil {
			return err
		}
	}
	return nil
}
