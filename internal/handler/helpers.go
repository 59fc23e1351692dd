package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"petwatch/internal/logger"
	"petwatch/internal/model"
)

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}, logger *logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

// writeError responds with {"error": message}.
func writeError(w http.ResponseWriter, status int, message string, logger *logger.Logger) {
	writeJSON(w, status, map[string]string{"error": message}, logger)
}

func deviceParam(r *http.Request) string {
	return mux.Vars(r)["device"]
}

// dateOrDefault returns the YYYYMMDD query value, or the local date
// offset days from now when it is empty.
func dateOrDefault(v string, now time.Time, loc *time.Location, offset int) string {
	if v != "" {
		return v
	}
	return now.In(loc).AddDate(0, 0, offset).Format(model.DateLayout)
}

// parseInstant accepts YYYYMMDD_HHMMSS in loc or RFC 3339.
func parseInstant(v string, loc *time.Location) (time.Time, bool) {
	if v == "" {
		return time.Time{}, false
	}
	if t := model.ParseTimestamp(v, loc); !t.IsZero() {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, true
	}
	return time.Time{}, false
}
