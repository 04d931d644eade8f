package handlers

import "net/http"

// Health is the liveness endpoint.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "Check Vero API",
	})
}
