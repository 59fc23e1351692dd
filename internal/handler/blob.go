package handler

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"petwatch/internal/logger"
	"petwatch/internal/service/storage"
)

// ServeBlobHandler serves an object from the local store when the request
// carries a valid signature.
func ServeBlobHandler(store *storage.LocalBlobStore, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := mux.Vars(r)["key"]
		q := r.URL.Query()

		if err := store.Verify(key, q.Get("expires"), q.Get("signature")); err != nil {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		if _, err := store.Stat(key); err != nil {
			if errors.Is(err, storage.ErrObjectNotFound) || errors.Is(err, storage.ErrInvalidKey) {
				http.NotFound(w, r)
				return
			}
			logger.Error("Error reading object %s: %v", key, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		path, _ := store.Path(key)
		w.Header().Set("Cache-Control", "private, max-age=300")
		http.ServeFile(w, r, path)
	}
}
