package route

import (
	"net/http"
	"os"
	"path/filepath"

	"detectboard/internal/config"
	"detectboard/internal/handler"
	"detectboard/internal/logger"
	"detectboard/internal/middleware"
	"detectboard/internal/repository"
	"detectboard/internal/service"
	"detectboard/internal/service/websocket"
)

// dynamicHTMLHandler serves /path as /static/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(staticDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if path == "/" {
			path = "/index"
		}

		filePath := filepath.Join(staticDir, filepath.Clean("/"+path)+".html")

		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}

		http.ServeFile(w, r, filePath)
	}
}

// SetupRoutes registers HTTP routes, static file serving, API endpoints,
// and wraps the mux with the authentication middleware.
func SetupRoutes(manager *service.Manager, hub *websocket.HubService, pending handler.PendingRuns,
	cfg *config.Config, logger *logger.Logger,
	runRepo repository.RunRepository, detectionRepo repository.DetectionRepository) http.Handler {
	mux := http.NewServeMux()

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDirectory))))

	// Detection and analysis
	mux.HandleFunc("/api/detect", handler.DetectHandler(manager, logger))
	mux.HandleFunc("/api/config", handler.ConfigHandler(manager, logger))
	mux.HandleFunc("/api/analyze", handler.AnalyzeWebsocketHandler(manager, logger))
	mux.HandleFunc("/api/view", handler.ViewWebsocketHandler(hub, logger))

	// Run history
	mux.HandleFunc("/api/runs", handler.GetRunsHandler(cfg, logger, runRepo, detectionRepo))
	mux.HandleFunc("/api/runs/view", handler.ViewRunHandler(pending, runRepo, logger))
	mux.HandleFunc("/api/runs/summary", handler.RunSummaryHandler(pending, runRepo, detectionRepo, logger))
	mux.HandleFunc("/api/runs/chart", handler.RunChartHandler(pending, runRepo, detectionRepo, logger))
	mux.HandleFunc("/api/runs/delete", handler.DeleteRunHandler(pending, runRepo, logger))
	mux.HandleFunc("/api/runs/clear", handler.ClearRunsHandler(cfg, pending, runRepo, logger))

	// Log endpoints
	for _, name := range []string{"info", "warning", "error"} {
		file := name + ".log"
		mux.HandleFunc("/logs/"+name, handler.ShowLogsHandler(logger, file))
		mux.HandleFunc("/logs/"+name+"/clear", handler.ClearLogsHandler(logger, file))
	}

	// Auth endpoints
	mux.HandleFunc("/auth/login", handler.LoginHandler(cfg, logger))
	mux.HandleFunc("/auth/logout", handler.LogoutHandler)

	// Automatic HTML handler mapping for example: /analyze -> /static/analyze.html
	mux.HandleFunc("/", dynamicHTMLHandler(cfg.StaticDirectory))

	// Apply middleware
	return middleware.AuthMiddleware(cfg.Password, mux)
}
