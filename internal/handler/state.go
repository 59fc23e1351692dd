package handler

import (
	"net/http"

	"petwatch/internal/dto"
	"petwatch/internal/logger"
	"petwatch/internal/service"
	"petwatch/internal/service/heatmap"
)

// GetStateHandler returns the live hiding verdict of a device.
func GetStateHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		device := deviceParam(r)

		verdict, err := manager.State(r.Context(), device)
		if err != nil {
			logger.Error("Error loading state for %s: %v", device, err)
			writeError(w, http.StatusBadGateway, "detection source unavailable", logger)
			return
		}

		writeJSON(w, http.StatusOK, dto.PetState{
			DeviceSerial: device,
			IsHiding:     verdict.IsHiding,
			Verdict:      verdict,
		}, logger)
	}
}

// GetHidingLogHandler returns offline hiding events, optionally for ?date=YYYYMMDD.
func GetHidingLogHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		device := deviceParam(r)
		date := r.URL.Query().Get("date")
		if date != "" && !heatmap.ValidDate(date) {
			writeError(w, http.StatusBadRequest, "date must be in YYYYMMDD format", logger)
			return
		}

		events, err := manager.GetOcclusionService().Log(r.Context(), device, date)
		if err != nil {
			logger.Error("Error building hiding log for %s: %v", device, err)
			writeError(w, http.StatusBadGateway, "detection source unavailable", logger)
			return
		}

		writeJSON(w, http.StatusOK, dto.HidingLog{DeviceSerial: device, Events: events}, logger)
	}
}
