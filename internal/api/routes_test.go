package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacarma/SmartPopup/internal/fetch"
	"github.com/jacarma/SmartPopup/internal/service"
	"github.com/jacarma/SmartPopup/internal/smartpopup"
)

func newTestAPI(t *testing.T, getter fetch.GetterFunc) humatest.TestAPI {
	t.Helper()
	history, err := service.NewHistoryStore(context.Background(), nil)
	require.NoError(t, err)

	dir := t.TempDir()
	svc := &Services{
		Layer:   service.NewLayerService(dir),
		Source:  service.NewSourceService(dir),
		History: history,
		Viewer: service.NewViewerService(service.ViewerConfig{
			Control: smartpopup.Config{Getter: getter},
			History: history,
		}),
	}

	_, api := humatest.New(t)
	huma.AutoRegister(api, NewAPIHandler(svc))
	NewDBHandler(nil).RegisterRoutes(api)
	return api
}

func okGetter(body string) fetch.GetterFunc {
	return func(uri string) fetch.Response {
		return fetch.Response{Status: http.StatusOK, StatusText: "OK", Body: body}
	}
}

func TestCreateLayerRegistersTemplate(t *testing.T) {
	api := newTestAPI(t, okGetter(`<b>%name%</b> %i18n("popup.country")%`))

	resp := api.Post("/api/v1/layers", map[string]any{
		"name":              "Rivers",
		"selectTemplateURI": "/popups/river.html",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var created CreatedLayerBody
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	assert.Equal(t, "rivers", created.ID)
	assert.True(t, created.Layer.Registered)
	assert.True(t, created.Layer.OnMap)

	resp = api.Get("/api/v1/layers/rivers/template")
	require.Equal(t, http.StatusOK, resp.Code)
	var tmpl TemplateBody
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &tmpl))
	assert.Equal(t, "<b>%name%</b> popup.country", tmpl.Template)
	assert.Equal(t, []string{"name"}, tmpl.Tokens)
}

func TestCreateLayerWithoutTemplateIsNotRegistered(t *testing.T) {
	api := newTestAPI(t, okGetter("unused"))

	resp := api.Post("/api/v1/layers", map[string]any{"name": "Plain"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var created CreatedLayerBody
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	assert.False(t, created.Layer.Registered)

	resp = api.Get("/api/v1/layers/plain/template")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestCreateRasterLayerWithSourceRejected(t *testing.T) {
	api := newTestAPI(t, okGetter(""))
	resp := api.Post("/api/v1/layers", map[string]any{
		"name": "Relief", "kind": "raster", "source": "relief.geojson",
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestDeleteLayer(t *testing.T) {
	api := newTestAPI(t, okGetter("x"))
	require.Equal(t, http.StatusOK, api.Post("/api/v1/layers", map[string]any{"name": "Gone"}).Code)

	assert.Equal(t, http.StatusOK, api.Delete("/api/v1/layers/gone").Code)
	assert.Equal(t, http.StatusNotFound, api.Get("/api/v1/layers/gone").Code)
	assert.Equal(t, http.StatusNotFound, api.Delete("/api/v1/layers/gone").Code)
}

func TestPopupWithoutSelection(t *testing.T) {
	api := newTestAPI(t, okGetter(""))

	assert.Equal(t, http.StatusNotFound, api.Get("/api/v1/popup").Code)

	resp := api.Post("/api/v1/unselect")
	require.Equal(t, http.StatusOK, resp.Code)
	var body ControlBody
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.False(t, body.Changed)
	assert.True(t, body.Active)
	assert.Nil(t, body.Popup)
}

func TestQueryRequiresDatabase(t *testing.T) {
	api := newTestAPI(t, okGetter(""))
	assert.Equal(t, http.StatusServiceUnavailable, api.Get("/api/v1/tables").Code)
	assert.Equal(t, http.StatusServiceUnavailable,
		api.Post("/api/v1/query", map[string]any{"query": "SELECT 1"}).Code)
}

func TestIsReadOnly(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"SELECT * FROM popup_events", true},
		{"  with x as (select 1) select * from x;", true},
		{"SHOW TABLES", true},
		{"DELETE FROM popup_events", false},
		{"SELECT 1; DROP TABLE popup_events", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isReadOnly(tt.query), tt.query)
	}
}
