package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"petwatch/internal/config"
	"petwatch/internal/handler"
	"petwatch/internal/logger"
	"petwatch/internal/middleware"
	"petwatch/internal/service"
	"petwatch/internal/service/storage"
)

// SetupRoutes registers the device API, signed blob access, the event
// stream and the log endpoints.
func SetupRoutes(manager *service.Manager, blobs *storage.LocalBlobStore, cfg *config.Config, logger *logger.Logger) http.Handler {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/events", handler.EventsWebsocketHandler(manager, logger)).Methods(http.MethodGet)

	device := api.PathPrefix("/devices/{device}").Subrouter()
	device.HandleFunc("/state", handler.GetStateHandler(manager, logger)).Methods(http.MethodGet)
	device.HandleFunc("/hiding-log", handler.GetHidingLogHandler(manager, logger)).Methods(http.MethodGet)
	device.HandleFunc("/activity", handler.GetActivityHandler(manager, cfg, logger)).Methods(http.MethodGet)
	device.HandleFunc("/activity/recompute", handler.RecomputeActivityHandler(manager, cfg, logger)).Methods(http.MethodPost)
	device.HandleFunc("/heatmaps", handler.GenerateHeatmapHandler(manager, cfg, logger)).Methods(http.MethodPost)
	device.HandleFunc("/heatmaps/{date}", handler.GetHeatmapHandler(manager, logger)).Methods(http.MethodGet)

	// Signed object access
	r.HandleFunc("/blobs/{key:.+}", handler.ServeBlobHandler(blobs, logger)).Methods(http.MethodGet, http.MethodHead)

	// Log endpoints
	r.HandleFunc("/logs/{level}", handler.ShowLogsHandler(logger)).Methods(http.MethodGet)
	r.HandleFunc("/logs/{level}/clear", handler.ClearLogsHandler(logger)).Methods(http.MethodPost, http.MethodDelete)

	r.Use(middleware.RecoverMiddleware(logger), middleware.LoggingMiddleware(logger))
	return r
}
