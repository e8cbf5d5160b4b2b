package ivr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clearintake-ai/platform/pkg/common/logger"
	"github.com/clearintake-ai/platform/pkg/common/models"
	"github.com/gorilla/mux"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/ivr/start", h.handleStart).Methods(http.MethodPost)
	r.HandleFunc("/ivr/{sessionId}/dtmf", h.handleDtmf).Methods(http.MethodPost)
	r.HandleFunc("/ivr/{sessionId}/result", h.handleResult).Methods(http.MethodGet)
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.Start(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("failed to start IVR session")
		writeError(w, http.StatusInternalServerError, "failed to start session")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *Handler) handleDtmf(w http.ResponseWriter, r *http.Request) {
	var req models.DTMFRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if len([]rune(req.Digit)) != 1 {
		writeError(w, http.StatusBadRequest, "digit must be a single character")
		return
	}

	state, err := h.service.Dtmf(r.Context(), mux.Vars(r)["sessionId"], req.Digit)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		logger.Log.WithError(err).Error("failed to apply keypress")
		writeError(w, http.StatusInternalServerError, "failed to apply keypress")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *Handler) handleResult(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Result(r.Context(), mux.Vars(r)["sessionId"])
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		logger.Log.WithError(err).Error("failed to read session result")
		writeError(w, http.StatusInternalServerError, "failed to read session result")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
