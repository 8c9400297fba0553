// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jacarma/SmartPopup/internal/mapkit"
	"github.com/jacarma/SmartPopup/internal/service"
	"github.com/jacarma/SmartPopup/internal/templates"
)

// Services holds the service dependencies for API handlers.
type Services struct {
	Layer   *service.LayerService
	Source  *service.SourceService
	Viewer  *service.ViewerService
	History *service.HistoryStore
}

// Types

type IDInput struct {
	ID string `path:"id" doc:"Layer ID" example:"cities"`
}

type LayerOutput struct {
	Body service.LayerStatus
}

type LayersOutput struct {
	Body []service.LayerStatus
}

type MessageBody struct {
	Message string `json:"message" doc:"Result message"`
}

type CreatedLayerBody struct {
	ID      string              `json:"id" doc:"Generated layer ID"`
	Layer   service.LayerStatus `json:"layer" doc:"Created layer and its popup registration"`
	Message string              `json:"message" doc:"Result message"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
}

type TemplateBody struct {
	LayerID  string   `json:"layerId" doc:"Layer ID" example:"cities"`
	Template string   `json:"template" doc:"Cached template with i18n tokens resolved" example:"<b>%name%</b>"`
	Tokens   []string `json:"tokens" doc:"Attribute tokens referenced by the template"`
}

type SelectInput struct {
	Body struct {
		LayerID   string `json:"layerId" required:"true" minLength:"1" doc:"Layer of the feature" example:"cities"`
		FeatureID string `json:"featureId" required:"true" minLength:"1" doc:"Feature to select" example:"paris"`
	}
}

type PopupOutput struct {
	Body *service.PopupView
}

type ZoomInput struct {
	Body struct {
		Zoom int `json:"zoom" minimum:"0" maximum:"24" doc:"New zoom level" example:"8"`
	}
}

type ControlBody struct {
	Active  bool               `json:"active" doc:"Whether the popup control is active"`
	Changed bool               `json:"changed" doc:"Whether the request changed the control state"`
	Zoom    int                `json:"zoom" doc:"Current zoom level"`
	Popup   *service.PopupView `json:"popup,omitempty" doc:"Open popup, if any"`
}

type ControlOutput struct {
	Body ControlBody
}

type HistoryInput struct {
	Limit int `query:"limit" minimum:"1" maximum:"1000" default:"50" doc:"Maximum number of events"`
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterLayers registers layer routes.
func (h *APIHandler) RegisterLayers(api huma.API) {
	huma.Get(api, "/api/v1/layers", h.GetLayers, huma.OperationTags("layers"))
	huma.Post(api, "/api/v1/layers", h.CreateLayer, huma.OperationTags("layers"))
	huma.Get(api, "/api/v1/layers/{id}", h.GetLayer, huma.OperationTags("layers"))
	huma.Delete(api, "/api/v1/layers/{id}", h.DeleteLayer, huma.OperationTags("layers"))
	huma.Get(api, "/api/v1/layers/{id}/template", h.GetTemplate, huma.OperationTags("layers"))
}

// RegisterSources registers source listing routes.
func (h *APIHandler) RegisterSources(api huma.API) {
	huma.Get(api, "/api/v1/sources", h.GetSources, huma.OperationTags("sources"))
}

// RegisterPopup registers selection and popup routes.
func (h *APIHandler) RegisterPopup(api huma.API) {
	huma.Get(api, "/api/v1/popup", h.GetPopup, huma.OperationTags("popup"))
	huma.Post(api, "/api/v1/select", h.Select, huma.OperationTags("popup"))
	huma.Post(api, "/api/v1/unselect", h.Unselect, huma.OperationTags("popup"))
	huma.Post(api, "/api/v1/zoom", h.Zoom, huma.OperationTags("popup"))
	huma.Get(api, "/api/v1/history", h.GetHistory, huma.OperationTags("popup"))
}

// RegisterControl registers control lifecycle routes.
func (h *APIHandler) RegisterControl(api huma.API) {
	huma.Get(api, "/api/v1/control", h.GetControl, huma.OperationTags("control"))
	huma.Post(api, "/api/v1/control/activate", h.ActivateControl, huma.OperationTags("control"))
	huma.Post(api, "/api/v1/control/deactivate", h.DeactivateControl, huma.OperationTags("control"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: "1.0.0"}}, nil
}

func (h *APIHandler) GetLayers(ctx context.Context, input *struct{}) (*LayersOutput, error) {
	return &LayersOutput{Body: h.svc.Viewer.Layers()}, nil
}

func (h *APIHandler) CreateLayer(ctx context.Context, input *struct{ Body service.LayerConfig }) (*struct{ Body CreatedLayerBody }, error) {
	cfg := input.Body
	if cfg.Kind == service.KindRaster && cfg.Source != "" {
		return nil, huma.Error400BadRequest("raster layers have no feature source")
	}

	created, err := h.svc.Layer.Create(cfg)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}

	status, err := AddToViewer(h.svc, created)
	if err != nil {
		h.svc.Layer.Delete(created.ID)
		return nil, huma.Error400BadRequest(err.Error())
	}

	return &struct{ Body CreatedLayerBody }{Body: CreatedLayerBody{
		ID: created.ID, Layer: status, Message: "Layer created",
	}}, nil
}

// AddToViewer loads a layer's features and puts it on the live map.
func AddToViewer(svc *Services, cfg service.LayerConfig) (service.LayerStatus, error) {
	features, err := loadFeatures(svc, cfg)
	if err != nil {
		return service.LayerStatus{}, err
	}
	return svc.Viewer.AddLayer(cfg, features)
}

func loadFeatures(svc *Services, cfg service.LayerConfig) ([]*mapkit.Feature, error) {
	if cfg.Source == "" || svc.Source == nil {
		return nil, nil
	}
	return svc.Source.Load(cfg.Source)
}

func (h *APIHandler) GetLayer(ctx context.Context, input *IDInput) (*LayerOutput, error) {
	status, ok := h.svc.Viewer.Layer(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("layer not found")
	}
	return &LayerOutput{Body: status}, nil
}

func (h *APIHandler) DeleteLayer(ctx context.Context, input *IDInput) (*struct{ Body MessageBody }, error) {
	if err := h.svc.Layer.Delete(input.ID); err != nil {
		return nil, huma.Error404NotFound(err.Error())
	}
	if err := h.svc.Viewer.RemoveLayer(ctx, input.ID); err != nil && !errors.Is(err, service.ErrNotFound) {
		return nil, huma.Error500InternalServerError("remove layer from map", err)
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Layer deleted"}}, nil
}

func (h *APIHandler) GetTemplate(ctx context.Context, input *IDInput) (*struct{ Body TemplateBody }, error) {
	tmpl, ok := h.svc.Viewer.Template(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("no template registered for layer")
	}
	return &struct{ Body TemplateBody }{Body: TemplateBody{
		LayerID: input.ID, Template: tmpl, Tokens: templates.Tokens(tmpl),
	}}, nil
}

func (h *APIHandler) GetSources(ctx context.Context, input *struct{}) (*struct{ Body []service.SourceFile }, error) {
	if h.svc.Source == nil {
		return &struct{ Body []service.SourceFile }{Body: []service.SourceFile{}}, nil
	}
	sources, err := h.svc.Source.List()
	if err != nil {
		return &struct{ Body []service.SourceFile }{Body: []service.SourceFile{}}, nil
	}
	return &struct{ Body []service.SourceFile }{Body: sources}, nil
}

func (h *APIHandler) GetPopup(ctx context.Context, input *struct{}) (*PopupOutput, error) {
	popup := h.svc.Viewer.Popup()
	if popup == nil {
		return nil, huma.Error404NotFound("no popup open")
	}
	return &PopupOutput{Body: popup}, nil
}

func (h *APIHandler) Select(ctx context.Context, input *SelectInput) (*PopupOutput, error) {
	popup, err := h.svc.Viewer.Select(ctx, input.Body.LayerID, input.Body.FeatureID)
	switch {
	case errors.Is(err, service.ErrNotFound):
		return nil, huma.Error404NotFound(err.Error())
	case err != nil:
		return nil, huma.Error409Conflict(err.Error())
	case popup == nil:
		return nil, huma.Error409Conflict("selection did not open a popup")
	}
	return &PopupOutput{Body: popup}, nil
}

func (h *APIHandler) Unselect(ctx context.Context, input *struct{}) (*ControlOutput, error) {
	changed := h.svc.Viewer.Unselect(ctx)
	return h.controlOutput(changed), nil
}

func (h *APIHandler) Zoom(ctx context.Context, input *ZoomInput) (*ControlOutput, error) {
	h.svc.Viewer.Zoom(ctx, input.Body.Zoom)
	return h.controlOutput(true), nil
}

func (h *APIHandler) GetHistory(ctx context.Context, input *HistoryInput) (*struct{ Body []service.HistoryEntry }, error) {
	entries, err := h.svc.History.Recent(ctx, input.Limit)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to read history", err)
	}
	return &struct{ Body []service.HistoryEntry }{Body: entries}, nil
}

func (h *APIHandler) GetControl(ctx context.Context, input *struct{}) (*ControlOutput, error) {
	return h.controlOutput(false), nil
}

func (h *APIHandler) ActivateControl(ctx context.Context, input *struct{}) (*ControlOutput, error) {
	return h.controlOutput(h.svc.Viewer.Activate(ctx)), nil
}

func (h *APIHandler) DeactivateControl(ctx context.Context, input *struct{}) (*ControlOutput, error) {
	return h.controlOutput(h.svc.Viewer.Deactivate(ctx)), nil
}

func (h *APIHandler) controlOutput(changed bool) *ControlOutput {
	v := h.svc.Viewer
	return &ControlOutput{Body: ControlBody{
		Active:  v.Active(),
		Changed: changed,
		Zoom:    v.ZoomLevel(),
		Popup:   v.Popup(),
	}}
}
