package handlers

import "net/http"

type modelHealth struct {
	Status string `json:"status"`
	Device string `json:"device"`
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	models := map[string]modelHealth{}
	for _, info := range h.Registry.ListModels() {
		models[info.Alias] = modelHealth{Status: info.Status, Device: info.Device}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"models": models,
	})
}

// Ready reports 503 once shutdown has begun so load balancers stop routing
// new work here while in-flight requests drain.
func (h *Handlers) Ready(w http.ResponseWriter, r *http.Request) {
	if h.Life.IsDraining() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "draining"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
