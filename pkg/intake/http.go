package intake

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/clearintake-ai/platform/pkg/common/logger"
	"github.com/clearintake-ai/platform/pkg/common/models"
	"github.com/clearintake-ai/platform/pkg/gateway/middleware"
	"github.com/gorilla/mux"
)

const maxUploadMemory = 32 << 20 // 32MB buffered before spilling to disk

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/intakes", h.handleCreateIntake).Methods(http.MethodPost)
	r.HandleFunc("/intakes", h.handleListIntakes).Methods(http.MethodGet)
	r.HandleFunc("/intakes/{id}", h.handleGetIntake).Methods(http.MethodGet)
	r.HandleFunc("/intakes/{id}/run", h.handleTriggerRun).Methods(http.MethodPost)
}

// handleCreateIntake accepts either a multipart upload carrying the
// referral document or a JSON body referencing one already stored.
func (h *Handler) handleCreateIntake(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "file is required")
			return
		}
		defer file.Close()

		record, err := h.service.CreateFromUpload(r.Context(), header.Filename, file)
		if err != nil {
			logger.Log.WithError(err).Error("failed to create intake from upload")
			writeError(w, http.StatusInternalServerError, "failed to create intake")
			return
		}
		writeJSON(w, http.StatusCreated, models.CreateIntakeResponse{IntakeID: record.ID})
		return
	}

	var req models.CreateIntakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.SourceRef == "" {
		writeError(w, http.StatusBadRequest, "sourceRef is required")
		return
	}

	record, err := h.service.CreateFromRef(r.Context(), req.SourceRef)
	if err != nil {
		logger.Log.WithError(err).Error("failed to create intake")
		writeError(w, http.StatusInternalServerError, "failed to create intake")
		return
	}
	writeJSON(w, http.StatusCreated, models.CreateIntakeResponse{IntakeID: record.ID})
}

func (h *Handler) handleListIntakes(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 50)
	intakes, err := h.service.List(r.Context(), limit)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list intakes")
		writeError(w, http.StatusInternalServerError, "failed to list intakes")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": intakes})
}

func (h *Handler) handleGetIntake(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, ErrIntakeNotFound) {
			writeError(w, http.StatusNotFound, "intake not found")
			return
		}
		logger.Log.WithError(err).Error("failed to get intake")
		writeError(w, http.StatusInternalServerError, "failed to get intake")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) handleTriggerRun(w http.ResponseWriter, r *http.Request) {
	runID, err := h.service.TriggerRun(r.Context(), mux.Vars(r)["id"], resolveActor(r))
	if err != nil {
		if errors.Is(err, ErrIntakeNotFound) {
			writeError(w, http.StatusNotFound, "intake not found")
			return
		}
		logger.Log.WithError(err).Error("failed to queue pipeline run")
		writeError(w, http.StatusInternalServerError, "failed to queue run")
		return
	}
	writeJSON(w, http.StatusAccepted, models.TriggerRunResponse{RunID: runID})
}

func resolveActor(r *http.Request) string {
	return middleware.ActorFrom(r.Context())
}

func parseLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	if v, err := strconv.Atoi(raw); err == nil && v > 0 {
		return v
	}
	return fallback
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
