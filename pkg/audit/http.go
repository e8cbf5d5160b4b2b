package audit

import (
	"encoding/json"
	"net/http"

	"github.com/clearintake-ai/platform/pkg/common/logger"
	"github.com/gorilla/mux"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/audit/{entityType}/{entityId}", h.handleListEvents).Methods(http.MethodGet)
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	events, err := h.service.Events(r.Context(), vars["entityType"], vars["entityId"])
	if err != nil {
		logger.Log.WithError(err).Error("failed to list audit events")
		http.Error(w, "failed to list audit events", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
