package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/bragi-audio/bragi/pkg/core"
	"github.com/bragi-audio/bragi/pkg/gateway/store"
)

type keyObject struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Prefix     string     `json:"prefix"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at"`
	IsActive   bool       `json:"is_active"`
}

func keyObjectFrom(k *store.APIKey) keyObject {
	return keyObject{
		ID:         k.ID,
		Name:       k.Name,
		Prefix:     k.Prefix,
		CreatedAt:  k.CreatedAt,
		LastUsedAt: k.LastUsedAt,
		IsActive:   k.IsActive,
	}
}

type keyCreateRequest struct {
	Name string `json:"name"`
}

type keyCreateResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Key       string    `json:"key"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *Handlers) CreateKey(w http.ResponseWriter, r *http.Request) {
	var body keyCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, r, core.NewInvalidRequestError("request body must be valid JSON"))
		return
	}
	if body.Name == "" {
		h.writeError(w, r, core.NewInvalidRequestErrorWithParam("name is required", "name"))
		return
	}

	k, raw, err := h.Keys.CreateKey(r.Context(), body.Name)
	if err != nil {
		h.writeError(w, r, fmt.Errorf("create key: %w", err))
		return
	}

	writeJSON(w, http.StatusOK, keyCreateResponse{
		ID:        k.ID,
		Name:      k.Name,
		Key:       raw,
		CreatedAt: k.CreatedAt,
	})
}

func (h *Handlers) ListKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.Keys.ListKeys(r.Context())
	if err != nil {
		h.writeError(w, r, fmt.Errorf("list keys: %w", err))
		return
	}

	out := listResponse[keyObject]{Object: "list", Data: []keyObject{}}
	for _, k := range keys {
		out.Data = append(out.Data, keyObjectFrom(k))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) DeleteKey(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	deleted, err := h.Keys.DeleteKey(r.Context(), id)
	if err != nil {
		h.writeError(w, r, fmt.Errorf("delete key: %w", err))
		return
	}
	if !deleted {
		h.writeError(w, r, core.NewKeyNotFoundError(id))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"deleted": true, "id": id})
}
