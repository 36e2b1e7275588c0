package bootstrap

import (
	"os"
	"strings"

	"triage_server/adapter/in/http"
	"triage_server/config"
	"triage_server/infra/middleware"
	"triage_server/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewAPI(cfg *config.Config) (*fiber.App, func(), error) {
	deps, cleanup, err := NewDependencies(cfg)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize dependencies")
		return nil, nil, err
	}

	app := NewApp(deps)
	logger.Info("API server initialized successfully")
	return app, cleanup, nil
}

// NewApp builds the fiber app around already wired dependencies.
func NewApp(deps *Dependencies) *fiber.App {
	cfg := deps.Config

	app := fiber.New(fiber.Config{
		ErrorHandler:          middleware.ErrorHandler(),
		DisableStartupMessage: cfg.IsProduction(),
		AppName:               "triage",

		// go-json: 표준 encoding/json 대비 빠른 직렬화
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,

		// 업로드 크기 제한 (PDF, mbox)
		BodyLimit: cfg.BodyLimitMB * 1024 * 1024,

		ServerHeader:       "",
		DisableDefaultDate: true,
	})

	// Global middleware stack (order matters)
	app.Use(middleware.Recover())         // 1. Panic recovery
	app.Use(middleware.RequestID())       // 2. Request ID
	app.Use(middleware.SecurityHeaders()) // 3. Security headers
	app.Use(middleware.RequestLogger())   // 4. Request logging

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	allowOrigins := strings.Join(cfg.AllowedOrigins, ",")
	if allowOrigins == "" {
		if cfg.IsProduction() {
			allowOrigins = "null"
		} else {
			allowOrigins = "*"
		}
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:  allowOrigins,
		AllowMethods:  "GET,POST,OPTIONS",
		AllowHeaders:  "Origin,Content-Type,Accept,X-Request-ID",
		ExposeHeaders: "X-Request-ID",
		MaxAge:        86400,
	}))

	var circuit http.CircuitReporter
	if deps.Breaker != nil {
		circuit = deps.Breaker
	}
	http.NewHealthHandler(deps.Completer.Provider(), circuit, deps.PoolStats).Register(app)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	http.NewClassifyHandler(deps.Extractor, deps.Classifier, deps.Replier).Register(app)
	http.NewAnalysisHandler(deps.Extractor, deps.Analyzer).Register(app)

	// Frontend (index.html + assets)
	if info, err := os.Stat(cfg.StaticDir); err == nil && info.IsDir() {
		app.Static("/static", cfg.StaticDir)
		app.Static("/", cfg.StaticDir, fiber.Static{Index: "index.html"})
		logger.Info("Serving static files from %s", cfg.StaticDir)
	}

	return app
}
