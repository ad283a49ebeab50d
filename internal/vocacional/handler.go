package vocacional

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/escolanoar/vocacional/internal/engine"
	"github.com/escolanoar/vocacional/internal/middleware"
	"github.com/escolanoar/vocacional/internal/models"
)

type Handler struct {
	service  *Service
	validate *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service, validate: validator.New()}
}

// Register mounts the assessment routes on an authenticated subrouter.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/vocacional/context-items", h.ContextItems).Methods("GET")
	r.HandleFunc("/vocacional/assessments", h.Start).Methods("POST")
	r.HandleFunc("/vocacional/assessments/{id}", h.Progress).Methods("GET")
	r.HandleFunc("/vocacional/assessments/{id}/passes/{stage}", h.NextPass).Methods("GET")
	r.HandleFunc("/vocacional/assessments/{id}/passes/{stage}/complete", h.CompletePass).Methods("POST")
	r.HandleFunc("/vocacional/assessments/{id}/answers", h.SubmitAnswers).Methods("POST")
	r.HandleFunc("/vocacional/assessments/{id}/context", h.SubmitContext).Methods("POST")
	r.HandleFunc("/vocacional/assessments/{id}/finalize", h.Finalize).Methods("POST")
	r.HandleFunc("/vocacional/assessments/{id}/cancel", h.Cancel).Methods("POST")
	r.HandleFunc("/vocacional/assessments/{id}/results", h.Results).Methods("GET")
	r.HandleFunc("/vocacional/assessments/{id}/summary", h.Summary).Methods("GET")
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	a, created, err := h.service.Start(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, a)
}

func (h *Handler) Progress(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := ids(w, r)
	if !ok {
		return
	}
	resp, err := h.service.Progress(r.Context(), userID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) NextPass(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := ids(w, r)
	if !ok {
		return
	}
	stage, err := strconv.Atoi(mux.Vars(r)["stage"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid stage"})
		return
	}

	resp, err := h.service.NextPass(r.Context(), userID, id, stage)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) SubmitAnswers(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := ids(w, r)
	if !ok {
		return
	}

	var req models.SubmitAnswersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid answers: " + err.Error()})
		return
	}

	resp, err := h.service.SubmitAnswers(r.Context(), userID, id, req.Answers)
	if errors.Is(err, ErrNoValidAnswer) {
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) CompletePass(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := ids(w, r)
	if !ok {
		return
	}
	stage, err := strconv.Atoi(mux.Vars(r)["stage"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid stage"})
		return
	}

	resp, err := h.service.CompletePass(r.Context(), userID, id, stage)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) SubmitContext(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := ids(w, r)
	if !ok {
		return
	}

	var req models.ContextAnswersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	resp, err := h.service.SubmitContext(r.Context(), userID, id, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Finalize(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := ids(w, r)
	if !ok {
		return
	}
	resp, err := h.service.Finalize(r.Context(), userID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := ids(w, r)
	if !ok {
		return
	}
	if err := h.service.Cancel(r.Context(), userID, id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(models.StatusCancelled)})
}

func (h *Handler) Results(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := ids(w, r)
	if !ok {
		return
	}
	resp, err := h.service.Results(r.Context(), userID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := ids(w, r)
	if !ok {
		return
	}
	resp, err := h.service.Summary(r.Context(), userID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ── Stage 3 catalog ────────────────────────────────────

type contextItemView struct {
	ID      string              `json:"id"`
	Title   string              `json:"title"`
	Text    string              `json:"text"`
	Options []contextOptionView `json:"options"`
}

type contextOptionView struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

func toViews(items []engine.ContextItem) []contextItemView {
	out := make([]contextItemView, 0, len(items))
	for _, it := range items {
		v := contextItemView{ID: it.ID, Title: it.Title, Text: it.Text}
		for _, o := range it.Options {
			v.Options = append(v.Options, contextOptionView{Key: o.Key, Label: o.Label})
		}
		out = append(out, v)
	}
	return out
}

// ContextItems lists the stage-3 items without their trait tags.
func (h *Handler) ContextItems(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]contextItemView{
		"sjt":     toViews(engine.SJTItems),
		"context": toViews(engine.ContextItems),
	})
}

// ── Helpers ────────────────────────────────────────────

func ids(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return 0, 0, false
	}
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid assessment ID"})
		return 0, 0, false
	}
	return userID, id, true
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, ErrAttemptLimit):
		writeJSON(w, http.StatusForbidden, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, ErrNotDraft), errors.Is(err, ErrInvalidStage), errors.Is(err, ErrNotCompleted):
		writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: err.Error()})
	default:
		log.Printf("[vocacional] request failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
