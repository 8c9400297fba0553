package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb/geojson"

	"github.com/jacarma/SmartPopup/internal/mapkit"
)

// SourceService reads GeoJSON feature sources.
type SourceService struct {
	sourcesDir string
}

// NewSourceService creates a new source service.
func NewSourceService(dataDir string) *SourceService {
	return &SourceService{
		sourcesDir: filepath.Join(dataDir, "sources"),
	}
}

// List returns all available source files.
func (s *SourceService) List() ([]SourceFile, error) {
	entries, err := os.ReadDir(s.sourcesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []SourceFile{}, nil
		}
		return nil, err
	}

	files := []SourceFile{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".geojson" && ext != ".json" {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		files = append(files, SourceFile{
			Name: entry.Name(),
			Size: formatSize(info.Size()),
		})
	}

	return files, nil
}

// Load decodes a source file into map features.
func (s *SourceService) Load(name string) ([]*mapkit.Feature, error) {
	if strings.Contains(name, "/") || strings.Contains(name, "\\") || strings.Contains(name, "..") {
		return nil, fmt.Errorf("invalid source name %q", name)
	}
	return LoadFeatures(filepath.Join(s.sourcesDir, name))
}

// SourcesDir returns the path to the sources directory.
func (s *SourceService) SourcesDir() string {
	return s.sourcesDir
}

// LoadFeatures reads a GeoJSON FeatureCollection from path.
func LoadFeatures(path string) ([]*mapkit.Feature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	return DecodeFeatures(data)
}

// DecodeFeatures converts a GeoJSON FeatureCollection into map features.
// Features without an id are numbered by position.
func DecodeFeatures(data []byte) ([]*mapkit.Feature, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse geojson: %w", err)
	}

	features := make([]*mapkit.Feature, 0, len(fc.Features))
	for i, gf := range fc.Features {
		id := fmt.Sprint(i)
		if gf.ID != nil {
			id = fmt.Sprint(gf.ID)
		} else if v, ok := gf.Properties["id"]; ok && v != nil {
			id = fmt.Sprint(v)
		}
		features = append(features, &mapkit.Feature{
			ID:         id,
			Geometry:   gf.Geometry,
			Attributes: map[string]any(gf.Properties),
		})
	}
	return features, nil
}

// formatSize returns a human-readable file size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
