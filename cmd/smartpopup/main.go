package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/jacarma/SmartPopup/internal/server"
)

// Options defines all CLI flags and env vars for the popup server.
// Flags: --host, --port, --data-dir, --web-dir, --locale, ...
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, SERVICE_WEB_DIR, ...
type Options struct {
	Host            string `doc:"Host to bind to" default:"0.0.0.0"`
	Port            int    `doc:"Port to listen on" short:"p" default:"8086"`
	DataDir         string `doc:"Directory for layers.json, sources/ and duckdb/" default:".data"`
	WebDir          string `doc:"Path to web/ directory; relative template URIs resolve here" default:"web"`
	Locale          string `doc:"Locale for i18n tokens in popup templates" short:"l" default:"en"`
	LocalesDir      string `doc:"Directory of *.yaml locale catalogs (embedded catalogs when empty)"`
	Sanitize        bool   `doc:"Strip unsafe markup from rendered popups (attribute values are raw HTML otherwise)"`
	TemplateHosts   string `doc:"Comma-separated hosts absolute template URIs may use (any host when empty)"`
	TemplateTimeout int    `doc:"Timeout in seconds for fetching absolute template URIs (none when 0)" default:"0"`
	NoDB            bool   `doc:"Run without DuckDB; popup history is not recorded"`
	Debug           bool   `doc:"Enable debug logging"`
}

func newLogger(opts *Options) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if opts.Debug {
		cfg = zap.NewDevelopmentConfig()
	}
	logger, err := cfg.Build()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	return logger
}

func newServer(opts *Options, logger *zap.Logger) *server.Server {
	return server.New(server.Config{
		Host:       opts.Host,
		Port:       strconv.Itoa(opts.Port),
		DataDir:    opts.DataDir,
		WebDir:     opts.WebDir,
		Locale:     opts.Locale,
		LocalesDir: opts.LocalesDir,
		Sanitize:   opts.Sanitize,
		NoDB:       opts.NoDB,
		Logger:     logger,

		TemplateClient: templateClient(opts),
		TemplateHosts:  templateHosts(opts),
	})
}

func templateClient(opts *Options) *http.Client {
	if opts.TemplateTimeout <= 0 {
		return nil
	}
	return &http.Client{Timeout: time.Duration(opts.TemplateTimeout) * time.Second}
}

func templateHosts(opts *Options) []string {
	var hosts []string
	for _, h := range strings.Split(opts.TemplateHosts, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		logger := newLogger(opts)
		srv := newServer(opts, logger)

		hooks.OnStart(func() {
			defer logger.Sync()
			defer srv.Close()

			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("SmartPopup server starting...\n")
			fmt.Printf("  Server:  %s\n", baseURL)
			fmt.Printf("  Data:    %s\n", opts.DataDir)
			fmt.Printf("  Locale:  %s\n", opts.Locale)
			fmt.Println()
			fmt.Printf("  Viewer:  %s/viewer\n", baseURL)
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Println()

			if err := http.ListenAndServe(addr, srv); err != nil {
				logger.Fatal("server error", zap.Error(err))
			}
		})
	})

	cli.Root().Use = "smartpopup"
	cli.Root().Short = "Feature popups rendered from per-layer HTML templates"
	cli.Root().Version = "0.1.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			opts.NoDB = true
			srv := newServer(opts, zap.NewNop())
			defer srv.Close()
			doc := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			var err error
			if useYAML {
				output, err = yaml.Marshal(doc)
			} else {
				output, err = json.MarshalIndent(doc, "", "  ")
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error marshaling OpenAPI document: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// render subcommand: render popups for a GeoJSON file without a server
	renderCmd := &cobra.Command{
		Use:   "render <file.geojson>",
		Short: "Render the popup of every feature in a GeoJSON file",
		Args:  cobra.ExactArgs(1),
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			templateURI, _ := cmd.Flags().GetString("template")
			useYAML, _ := cmd.Flags().GetBool("yaml")

			logger := newLogger(opts)
			defer logger.Sync()

			popups, err := renderFile(args[0], templateURI, opts, logger)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error rendering popups: %v\n", err)
				os.Exit(1)
			}
			if err := writePopups(os.Stdout, popups, useYAML); err != nil {
				fmt.Fprintf(os.Stderr, "Error writing popups: %v\n", err)
				os.Exit(1)
			}
		}),
	}
	renderCmd.Flags().StringP("template", "t", "", "Template URI, absolute or relative to --web-dir")
	renderCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of text")
	renderCmd.MarkFlagRequired("template")
	cli.Root().AddCommand(renderCmd)

	cli.Run()
}
