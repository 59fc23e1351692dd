package handler

import (
	"errors"
	"net/http"

	"petwatch/internal/config"
	"petwatch/internal/logger"
	"petwatch/internal/model"
	"petwatch/internal/service"
	"petwatch/internal/service/activity"
	"petwatch/internal/service/heatmap"
)

// GetActivityHandler returns the activity summary of ?date= (default today).
func GetActivityHandler(manager *service.Manager, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	loc := cfg.Location()

	return func(w http.ResponseWriter, r *http.Request) {
		device := deviceParam(r)
		date := dateOrDefault(r.URL.Query().Get("date"), manager.Clock().Now(), loc, 0)
		if !heatmap.ValidDate(date) {
			writeError(w, http.StatusBadRequest, "date must be in YYYYMMDD format", logger)
			return
		}

		summary, err := manager.GetActivityService().Summary(r.Context(), device, date)
		if err != nil {
			logger.Error("Error building activity summary for %s: %v", device, err)
			writeError(w, http.StatusInternalServerError, "could not load activity", logger)
			return
		}

		url, err := manager.GetHeatmapService().URL(r.Context(), device, date)
		if err != nil {
			logger.Error("Error resolving heatmap URL for %s: %v", device, err)
		}
		if url != "" {
			summary.HeatmapURL = &url
		}

		writeJSON(w, http.StatusOK, summary, logger)
	}
}

// RecomputeActivityHandler re-aggregates ?start=&end= (YYYYMMDD_HHMMSS), or
// the whole history when neither is given.
func RecomputeActivityHandler(manager *service.Manager, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	loc := cfg.Location()

	return func(w http.ResponseWriter, r *http.Request) {
		device := deviceParam(r)
		q := r.URL.Query()

		var buckets []model.ActivityBucket
		var err error

		if q.Get("start") == "" && q.Get("end") == "" {
			buckets, err = manager.GetActivityService().ProcessAll(r.Context(), device)
		} else {
			start, okStart := parseInstant(q.Get("start"), loc)
			end, okEnd := parseInstant(q.Get("end"), loc)
			if !okStart || !okEnd {
				writeError(w, http.StatusBadRequest, "start and end must both be YYYYMMDD_HHMMSS", logger)
				return
			}
			buckets, err = manager.GetActivityService().ProcessInterval(r.Context(), device, start, end)
		}

		if errors.Is(err, activity.ErrInvalidRange) {
			writeError(w, http.StatusBadRequest, err.Error(), logger)
			return
		}
		if err != nil {
			logger.Error("Error recomputing activity for %s: %v", device, err)
			writeError(w, http.StatusBadGateway, "activity recompute failed", logger)
			return
		}

		writeJSON(w, http.StatusOK, buckets, logger)
	}
}
