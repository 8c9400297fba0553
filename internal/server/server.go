package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"go.uber.org/zap"

	"github.com/jacarma/SmartPopup/internal/api"
	"github.com/jacarma/SmartPopup/internal/api/viewer"
	"github.com/jacarma/SmartPopup/internal/db"
	"github.com/jacarma/SmartPopup/internal/fetch"
	"github.com/jacarma/SmartPopup/internal/humastar"
	"github.com/jacarma/SmartPopup/internal/i18n"
	"github.com/jacarma/SmartPopup/internal/service"
	"github.com/jacarma/SmartPopup/internal/smartpopup"
	"github.com/jacarma/SmartPopup/internal/templates"
)

// Config holds the server configuration.
type Config struct {
	Host    string
	Port    string
	DataDir string // layers.json, sources/ and duckdb/
	WebDir  string // popups/, static/ and templates/; relative template URIs resolve here
	Locale  string // locale for %i18n("key")% tokens
	// LocalesDir overrides the embedded locale catalogs with *.yaml files.
	LocalesDir string
	// Sanitize strips unsafe markup from rendered popups. When false,
	// feature attribute values reach the viewer as raw HTML.
	Sanitize bool
	// TemplateClient fetches absolute template URIs. It defaults to
	// http.DefaultClient, which has no timeout. Fetches run while the viewer
	// lock is held, so a slow host stalls every viewer operation.
	TemplateClient *http.Client
	// TemplateHosts lists the hosts absolute template URIs may point at.
	// Empty allows any host: layer configs are then trusted input, since any
	// API client can make the server GET an arbitrary URL.
	TemplateHosts []string
	// NoDB skips opening DuckDB; popup history is then not recorded.
	NoDB   bool
	Logger *zap.Logger
}

// Server is the SmartPopup HTTP server.
type Server struct {
	config   Config
	log      *zap.Logger
	mux      *http.ServeMux
	humaAPI  huma.API
	db       *sql.DB
	services *api.Services
	renderer *templates.Renderer
}

// New creates a new server and restores persisted layers onto the map.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Locale == "" {
		cfg.Locale = i18n.BaseLocale
	}
	log := cfg.Logger
	ctx := context.Background()
	mux := http.NewServeMux()

	humaConfig := huma.DefaultConfig("SmartPopup API", "1.0.0")
	humaConfig.Info.Description = "Feature popups rendered from per-layer HTML templates."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, api.LinkTransformer())

	humaAPI := humago.New(mux, humaConfig)

	s := &Server{
		config:  cfg,
		log:     log,
		mux:     mux,
		humaAPI: humaAPI,
	}

	if !cfg.NoDB {
		conn, err := db.Open(db.Config{DataDir: cfg.DataDir, DBName: "smartpopup"})
		if err != nil {
			log.Warn("duckdb unavailable, popup history disabled", zap.Error(err))
		} else {
			s.db = conn
		}
	}
	history, err := service.NewHistoryStore(ctx, s.db)
	if err != nil {
		log.Warn("popup history disabled", zap.Error(err))
		history, _ = service.NewHistoryStore(ctx, nil)
	}

	catalog, err := LoadCatalog(cfg.LocalesDir)
	if err != nil {
		log.Warn("locale catalogs unavailable, i18n tokens resolve to keys", zap.Error(err))
	}
	var translate i18n.Func
	if catalog != nil {
		translate = catalog.Translator(cfg.Locale)
	}

	s.services = &api.Services{
		Layer:   service.NewLayerService(cfg.DataDir),
		Source:  service.NewSourceService(cfg.DataDir),
		History: history,
		Viewer: service.NewViewerService(service.ViewerConfig{
			Control: smartpopup.Config{
				Getter:    TemplateGetter(cfg.WebDir, cfg.TemplateClient, cfg.TemplateHosts),
				Translate: translate,
				Sanitize:  cfg.Sanitize,
			},
			History: history,
			Logger:  log,
		}),
	}

	fragmentsDir := ""
	if cfg.WebDir != "" {
		if dir := filepath.Join(cfg.WebDir, "templates", "fragments"); isDir(dir) {
			fragmentsDir = dir
		}
	}
	renderer, err := templates.New(fragmentsDir)
	if err != nil {
		log.Warn("fragment templates from disk failed, using embedded", zap.String("dir", fragmentsDir), zap.Error(err))
		renderer, _ = templates.New("")
	}
	s.renderer = renderer

	s.restoreLayers()
	s.routes()
	return s
}

// LoadCatalog reads locale catalogs from dir, or the embedded ones when dir
// is empty.
func LoadCatalog(dir string) (*i18n.Catalog, error) {
	if dir == "" {
		return i18n.LoadEmbedded()
	}
	return i18n.LoadFS(os.DirFS(dir), "*.yaml")
}

// TemplateGetter serves relative template URIs from the web directory and
// fetches absolute ones over HTTP with client, limited to hosts when any
// are given.
func TemplateGetter(webDir string, client *http.Client, hosts []string) fetch.Getter {
	remote, _ := fetch.NewHTTPGetter(client, "")
	g := fetch.AllowHosts(remote, hosts...)
	if webDir == "" {
		return g
	}
	return fetch.Split(fetch.NewFSGetter(os.DirFS(webDir)), g)
}

func (s *Server) restoreLayers() {
	for _, cfg := range s.services.Layer.List() {
		status, err := api.AddToViewer(s.services, cfg)
		if err != nil {
			s.log.Warn("restore layer", zap.String("layer", cfg.ID), zap.Error(err))
			continue
		}
		s.log.Info("layer restored",
			zap.String("layer", cfg.ID),
			zap.Bool("registered", status.Registered),
			zap.Int("features", status.Features),
		)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// OpenAPI returns the API description.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Viewer returns the live map service.
func (s *Server) Viewer() *service.ViewerService {
	return s.services.Viewer
}

// Close destroys the popup control and closes the database.
func (s *Server) Close() error {
	s.services.Viewer.Close(context.Background())
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Server) routes() {
	// Huma REST API routes (OpenAPI-documented JSON endpoints)
	huma.AutoRegister(s.humaAPI, api.NewAPIHandler(s.services))
	api.NewInfoHandler(s.config.DataDir, s.config.Locale, s.db != nil).RegisterRoutes(s.humaAPI)
	api.NewDBHandler(s.db).RegisterRoutes(s.humaAPI)

	// Viewer SSE routes using Huma + Datastar SDK
	viewer.NewHandler(s.services.Viewer, humastar.Handler{Renderer: s.renderer}).RegisterRoutes(s.humaAPI)

	if s.config.WebDir != "" {
		popupsDir := filepath.Join(s.config.WebDir, "popups")
		s.mux.Handle("/popups/", http.StripPrefix("/popups/", http.FileServer(http.Dir(popupsDir))))

		staticDir := filepath.Join(s.config.WebDir, "static")
		s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))

		s.mux.HandleFunc("/viewer", s.handleViewer)
	}

	s.mux.HandleFunc("/", s.handleRoot)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"service": "smartpopup",
		"status":  "running",
	})
}

func (s *Server) handleViewer(w http.ResponseWriter, r *http.Request) {
	templatePath := filepath.Join(s.config.WebDir, "templates", "viewer.html")
	http.ServeFile(w, r, templatePath)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
