package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

func HandleHello(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Hello World!"})
}

// RegisterRoutes wires the API surface. uploadsDir, when non-empty,
// serves accepted image files back under the public upload prefix.
func RegisterRoutes(r *mux.Router, h *LogsHandler, metricsHandler http.Handler, uploadsDir string) {
	r.HandleFunc("/", HandleHello).Methods("GET")
	r.HandleFunc("/api/logs", h.List).Methods("GET")
	r.HandleFunc("/api/logs", h.Create).Methods("POST")
	r.Handle("/metrics", metricsHandler).Methods("GET")

	if uploadsDir != "" {
		r.PathPrefix("/uploads/").Handler(
			http.StripPrefix("/uploads/", http.FileServer(http.Dir(uploadsDir))))
	}
}
