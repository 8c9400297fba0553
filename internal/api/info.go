package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
)

type InfoHandler struct {
	dataDir string
	locale  string
	dbOK    bool
}

func NewInfoHandler(dataDir, locale string, dbOK bool) *InfoHandler {
	return &InfoHandler{dataDir: dataDir, locale: locale, dbOK: dbOK}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name     string   `json:"name" doc:"Service name"`
	Version  string   `json:"version" doc:"Service version"`
	DataDir  string   `json:"data_dir" doc:"Data directory path"`
	Locale   string   `json:"locale" doc:"Locale used for template i18n tokens"`
	DB       bool     `json:"db" doc:"Whether the popup history database is available"`
	Features []string `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:     "smartpopup",
		Version:  "0.1.0",
		DataDir:  h.dataDir,
		Locale:   h.locale,
		DB:       h.dbOK,
		Features: []string{"geojson", "popup-templates", "i18n", "duckdb"},
	}}, nil
}
