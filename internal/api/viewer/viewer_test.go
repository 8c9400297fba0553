package viewer

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacarma/SmartPopup/internal/fetch"
	"github.com/jacarma/SmartPopup/internal/humastar"
	"github.com/jacarma/SmartPopup/internal/service"
	"github.com/jacarma/SmartPopup/internal/smartpopup"
	"github.com/jacarma/SmartPopup/internal/templates"
)

const citiesGeoJSON = `{"type":"FeatureCollection","features":[
  {"type":"Feature","id":"paris","geometry":{"type":"Point","coordinates":[2.35,48.85]},"properties":{"name":"Paris"}}
]}`

// newTestViewer returns a viewer with a "cities" layer, the mux serving the
// viewer routes, and a test API over the same routes.
func newTestViewer(t *testing.T) (*service.ViewerService, *http.ServeMux, humatest.TestAPI) {
	t.Helper()
	v := service.NewViewerService(service.ViewerConfig{
		Control: smartpopup.Config{
			Getter: fetch.GetterFunc(func(uri string) fetch.Response {
				return fetch.Response{Status: http.StatusOK, StatusText: "OK", Body: "<b>%name%</b>"}
			}),
		},
	})
	t.Cleanup(func() { v.Close(context.Background()) })

	features, err := service.DecodeFeatures([]byte(citiesGeoJSON))
	require.NoError(t, err)
	_, err = v.AddLayer(service.LayerConfig{
		ID: "cities", Name: "Cities", Kind: service.KindVector, SelectTemplateURI: "/popups/city.html",
	}, features)
	require.NoError(t, err)

	r, err := templates.New("")
	require.NoError(t, err)

	mux := http.NewServeMux()
	api := humago.New(mux, huma.DefaultConfig("Viewer", "1.0.0"))
	NewHandler(v, humastar.Handler{Renderer: r}).RegisterRoutes(api)
	return v, mux, humatest.Wrap(t, api)
}

// streamRecorder is a ResponseWriter that can be read while a stream is
// still being written.
type streamRecorder struct {
	mu     sync.Mutex
	header http.Header
	buf    bytes.Buffer
	code   int
}

func newStreamRecorder() *streamRecorder {
	return &streamRecorder{header: http.Header{}}
}

func (r *streamRecorder) Header() http.Header { return r.header }

func (r *streamRecorder) WriteHeader(code int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.code = code
}

func (r *streamRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.Write(p)
}

func (r *streamRecorder) Flush() {}

func (r *streamRecorder) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.String()
}

func TestEventsStreamsPopupChanges(t *testing.T) {
	v, mux, _ := newTestViewer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/viewer/events", nil).WithContext(ctx)
	rec := newStreamRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		mux.ServeHTTP(rec, req)
	}()

	countEmpty := func() int { return strings.Count(rec.String(), "smartpopup-empty") }

	// Initial state: no popup.
	require.Eventually(t, func() bool { return countEmpty() == 1 }, 2*time.Second, 10*time.Millisecond)

	_, err := v.Select(context.Background(), "cities", "paris")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return strings.Contains(rec.String(), "<b>Paris</b>")
	}, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, rec.String(), `"layerid":"cities"`)

	assert.True(t, v.Unselect(context.Background()))
	require.Eventually(t, func() bool { return countEmpty() == 2 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("event stream did not end after the client went away")
	}
	assert.Contains(t, rec.String(), "#popup")
}

func TestSelectPatchesPopup(t *testing.T) {
	v, _, api := newTestViewer(t)

	resp := api.Post("/api/v1/viewer/select", map[string]any{"layerid": "cities", "featureid": "paris"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	body := resp.Body.String()
	assert.Contains(t, body, "#popup")
	assert.Contains(t, body, "<b>Paris</b>")
	assert.Contains(t, body, `"featureid":"paris"`)

	popup := v.Popup()
	require.NotNil(t, popup)
	assert.Equal(t, "paris", popup.FeatureID)
}

func TestSelectRequiresSignals(t *testing.T) {
	v, _, api := newTestViewer(t)

	resp := api.Post("/api/v1/viewer/select", map[string]any{"layerid": "cities"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Nil(t, v.Popup())
}

func TestSelectUnknownFeatureSendsError(t *testing.T) {
	v, _, api := newTestViewer(t)

	resp := api.Post("/api/v1/viewer/select", map[string]any{"layerid": "cities", "featureid": "atlantis"})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "Feature not found")
	assert.Nil(t, v.Popup())
}

func TestUnselectClearsPopup(t *testing.T) {
	v, _, api := newTestViewer(t)
	_, err := v.Select(context.Background(), "cities", "paris")
	require.NoError(t, err)

	resp := api.Post("/api/v1/viewer/unselect")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "smartpopup-empty")
	assert.Contains(t, resp.Body.String(), `"popupid":""`)
	assert.Nil(t, v.Popup())
}
