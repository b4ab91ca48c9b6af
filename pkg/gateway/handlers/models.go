package handlers

import (
	"net/http"
	"time"
)

type modelObject struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

type listResponse[T any] struct {
	Object string `json:"object"`
	Data   []T    `json:"data"`
}

func (h *Handlers) Models(w http.ResponseWriter, r *http.Request) {
	now := time.Now().Unix()
	out := listResponse[modelObject]{Object: "list", Data: []modelObject{}}
	for _, info := range h.Registry.ListModels() {
		out.Data = append(out.Data, modelObject{
			ID:      info.Alias,
			Object:  "model",
			Created: now,
			OwnedBy: "bragi",
		})
	}
	writeJSON(w, http.StatusOK, out)
}
