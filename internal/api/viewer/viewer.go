// Package viewer contains the Datastar SSE handlers that keep the map
// viewer's popup in sync with the server-side popup control.
package viewer

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jacarma/SmartPopup/internal/humastar"
	"github.com/jacarma/SmartPopup/internal/service"
)

// popupSelector is the element the popup fragment is patched into.
const popupSelector = "#popup"

// Handler streams popup changes to the viewer page.
type Handler struct {
	humastar.Handler
	viewer *service.ViewerService
}

// NewHandler creates a viewer handler.
func NewHandler(viewer *service.ViewerService, h humastar.Handler) *Handler {
	return &Handler{Handler: h, viewer: viewer}
}

func (h *Handler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/viewer/events", h.Events, huma.OperationTags("viewer"))
	huma.Post(api, "/api/v1/viewer/select", h.Select, huma.OperationTags("viewer"))
	huma.Post(api, "/api/v1/viewer/unselect", h.Unselect, huma.OperationTags("viewer"))
}

// Events sends the current popup, then every popup change until the client
// disconnects.
func (h *Handler) Events(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		ch := h.viewer.Bus().Subscribe()
		defer h.viewer.Bus().Unsubscribe(ch)

		h.patchPopup(sse, h.viewer.Popup())
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-ch:
				switch ev.Kind {
				case service.PopupOpened:
					h.patchPopup(sse, ev.Popup)
				case service.PopupClosed:
					if h.viewer.Popup() == nil {
						h.patchPopup(sse, nil)
					}
				}
			}
		}
	}), nil
}

// Select selects the feature named by the layerid and featureid signals.
func (h *Handler) Select(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	layerID, featureID := signals.String("layerid"), signals.String("featureid")
	if layerID == "" || featureID == "" {
		return nil, huma.Error400BadRequest("layerid and featureid are required")
	}

	return h.Stream(func(sse humastar.SSE) {
		popup, err := h.viewer.Select(ctx, layerID, featureID)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				sse.Error("Feature not found")
			} else {
				sse.Error(err.Error())
			}
			return
		}
		h.patchPopup(sse, popup)
	}), nil
}

// Unselect closes the popup.
func (h *Handler) Unselect(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		h.viewer.Unselect(ctx)
		h.patchPopup(sse, nil)
	}), nil
}

func (h *Handler) patchPopup(sse humastar.SSE, popup *service.PopupView) {
	if popup == nil {
		sse.Patch(h.Render("empty-popup", nil), popupSelector)
		sse.Signals(map[string]any{"popupid": "", "layerid": "", "featureid": ""})
		return
	}
	sse.Patch(h.Render("popup-frame", popup), popupSelector)
	sse.Signals(map[string]any{
		"popupid":   popup.ID,
		"layerid":   popup.LayerID,
		"featureid": popup.FeatureID,
	})
}
