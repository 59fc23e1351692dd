package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"petwatch/internal/config"
	"petwatch/internal/logger"
	"petwatch/internal/service"
	"petwatch/internal/service/heatmap"
)

// GenerateHeatmapHandler renders ?date= (default yesterday) with ?mode=cron|test.
func GenerateHeatmapHandler(manager *service.Manager, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	loc := cfg.Location()

	return func(w http.ResponseWriter, r *http.Request) {
		device := deviceParam(r)
		q := r.URL.Query()

		mode := heatmap.Mode(q.Get("mode"))
		if mode == "" {
			mode = heatmap.ModeCron
		}
		if mode != heatmap.ModeCron && mode != heatmap.ModeTest {
			writeError(w, http.StatusBadRequest, "mode must be cron or test", logger)
			return
		}

		result, err := manager.GetHeatmapService().GenerateAndUpload(r.Context(), device, dateOrDefault(q.Get("date"), manager.Clock().Now(), loc, -1), mode)
		if err != nil {
			logger.Error("Error generating heatmap for %s: %v", device, err)
			writeError(w, http.StatusBadGateway, "detection source unavailable", logger)
			return
		}

		status := http.StatusOK
		if !result.Success && !heatmap.ValidDate(result.Date) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, result, logger)
	}
}

// GetHeatmapHandler returns a signed URL to the stored heatmap of {date}.
func GetHeatmapHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		device := deviceParam(r)
		date := mux.Vars(r)["date"]
		if !heatmap.ValidDate(date) {
			writeError(w, http.StatusBadRequest, "date must be in YYYYMMDD format", logger)
			return
		}

		url, err := manager.GetHeatmapService().URL(r.Context(), device, date)
		if err != nil {
			logger.Error("Error resolving heatmap for %s on %s: %v", device, date, err)
			writeError(w, http.StatusInternalServerError, "could not resolve heatmap", logger)
			return
		}
		if url == "" {
			writeError(w, http.StatusNotFound, "no heatmap for "+date, logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"url": url, "date": date, "device_serial": device}, logger)
	}
}
