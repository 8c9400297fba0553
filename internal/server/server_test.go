package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const citiesGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "id": "paris", "geometry": {"type": "Point", "coordinates": [2.35, 48.85]}, "properties": {"name": "Paris", "country": "France"}}
  ]
}`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dataDir, webDir := t.TempDir(), t.TempDir()
	writeFile(t, filepath.Join(dataDir, "sources", "cities.geojson"), citiesGeoJSON)
	writeFile(t, filepath.Join(webDir, "popups", "city.html"),
		`<h3>%name%</h3><p>%i18n("popup.country")%: %country%</p>`)

	s := New(Config{
		Host:    "localhost",
		Port:    "0",
		DataDir: dataDir,
		WebDir:  webDir,
		Locale:  "fr",
		NoDB:    true,
		Logger:  zaptest.NewLogger(t),
	})
	t.Cleanup(func() { s.Close() })
	return s
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]any](t, rec)["status"])
}

func TestSelectFlow(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/v1/layers",
		`{"name":"Cities","source":"cities.geojson","selectTemplateURI":"/popups/city.html"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	created := decode[map[string]any](t, rec)
	assert.Equal(t, "cities", created["id"])

	rec = do(t, s, http.MethodGet, "/api/v1/layers/cities/template", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tmpl := decode[map[string]any](t, rec)
	assert.Equal(t, "<h3>%name%</h3><p>Pays: %country%</p>", tmpl["template"])

	rec = do(t, s, http.MethodPost, "/api/v1/select", `{"layerId":"cities","featureId":"paris"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	popup := decode[map[string]any](t, rec)
	assert.Equal(t, "<h3>Paris</h3><p>Pays: France</p>", popup["html"])
	assert.EqualValues(t, 300, popup["maxWidth"])

	rec = do(t, s, http.MethodGet, "/api/v1/popup", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/v1/zoom", `{"zoom":9}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	control := decode[map[string]any](t, rec)
	assert.Nil(t, control["popup"])
	assert.EqualValues(t, 9, control["zoom"])

	rec = do(t, s, http.MethodGet, "/api/v1/popup", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSelectUnknownFeature(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/api/v1/select", `{"layerId":"nope","featureId":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMissingTemplateFallsBackToStatus(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/api/v1/layers",
		`{"name":"Cities","source":"cities.geojson","selectTemplateURI":"/popups/missing.html"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, s, http.MethodPost, "/api/v1/select", `{"layerId":"cities","featureId":"paris"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "404-Not Found", decode[map[string]any](t, rec)["html"])
}

func TestControlLifecycle(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/v1/control/deactivate", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, false, body["active"])
	assert.Equal(t, true, body["changed"])

	rec = do(t, s, http.MethodPost, "/api/v1/control/deactivate", "")
	assert.Equal(t, false, decode[map[string]any](t, rec)["changed"])

	rec = do(t, s, http.MethodPost, "/api/v1/control/activate", "")
	assert.Equal(t, true, decode[map[string]any](t, rec)["active"])
}

func TestLayersRestoredOnStartup(t *testing.T) {
	dataDir, webDir := t.TempDir(), t.TempDir()
	writeFile(t, filepath.Join(dataDir, "sources", "cities.geojson"), citiesGeoJSON)
	writeFile(t, filepath.Join(webDir, "popups", "city.html"), `<b>%name%</b>`)
	writeFile(t, filepath.Join(dataDir, "layers.json"),
		`{"cities":{"name":"Cities","kind":"vector","source":"cities.geojson","selectTemplateURI":"/popups/city.html"}}`)

	s := New(Config{DataDir: dataDir, WebDir: webDir, NoDB: true})
	defer s.Close()

	tmpl, ok := s.Viewer().Template("cities")
	require.True(t, ok)
	assert.Equal(t, "<b>%name%</b>", tmpl)
}

func TestQueryWithoutDB(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/api/v1/query", `{"query":"SELECT 1"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/v1/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]any](t, rec))
}
