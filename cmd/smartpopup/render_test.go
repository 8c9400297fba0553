package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestRenderFile(t *testing.T) {
	dir := t.TempDir()
	geojsonPath := filepath.Join(dir, "peaks.geojson")
	require.NoError(t, os.WriteFile(geojsonPath, []byte(`{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "id": "aneto", "geometry": {"type": "Point", "coordinates": [0.65, 42.63]}, "properties": {"name": "Aneto", "ele": 3404}},
    {"type": "Feature", "id": "mulhacen", "geometry": {"type": "Point", "coordinates": [-3.31, 37.05]}, "properties": {"name": "Mulhacén"}}
  ]
}`), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "popups"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "popups", "peak.html"),
		[]byte(`%name% %i18n('popup.elevation')%: %ele%`), 0644))

	opts := &Options{WebDir: dir, Locale: "es"}
	popups, err := renderFile(geojsonPath, "/popups/peak.html", opts, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.Len(t, popups, 2)

	assert.Equal(t, "aneto", popups[0].FeatureID)
	assert.Equal(t, "Aneto Altitud: 3404", popups[0].HTML)
	assert.InDelta(t, 0.65, popups[0].Lon, 1e-9)
	assert.Equal(t, "Mulhacén Altitud: ", popups[1].HTML)

	var buf bytes.Buffer
	require.NoError(t, writePopups(&buf, popups[:1], false))
	assert.Equal(t, "# aneto (0.650000, 42.630000)\nAneto Altitud: 3404\n\n", buf.String())
}

func TestRenderFileMissingTemplate(t *testing.T) {
	dir := t.TempDir()
	geojsonPath := filepath.Join(dir, "one.geojson")
	require.NoError(t, os.WriteFile(geojsonPath, []byte(`{"type":"FeatureCollection","features":[
  {"type":"Feature","id":"a","geometry":{"type":"Point","coordinates":[1,2]},"properties":{}}]}`), 0644))

	popups, err := renderFile(geojsonPath, "/popups/none.html", &Options{WebDir: dir}, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.Len(t, popups, 1)
	assert.Equal(t, "404-Not Found", popups[0].HTML)
}
