package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"techkwiz-quiz-service/internal/app"
	"techkwiz-quiz-service/internal/domain"
)

// APIHandler serves the read-only REST endpoints.
type APIHandler struct {
	service *app.QuizService
}

func NewAPIHandler(service *app.QuizService) *APIHandler {
	return &APIHandler{service: service}
}

func (h *APIHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/categories", h.categories)
	r.Get("/users/{id}", h.user)
	r.Get("/users/{id}/entry/{category}", h.entry)
	return r
}

func (h *APIHandler) categories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Categories(r.Context()))
}

type userResponse struct {
	domain.UserRecord
	Achievements []domain.Achievement `json:"achievements"`
}

func (h *APIHandler) user(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.User(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, domain.ErrUnknownUser) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}
	achievements := app.Achievements(user)
	if achievements == nil {
		achievements = []domain.Achievement{}
	}
	writeJSON(w, http.StatusOK, userResponse{UserRecord: user, Achievements: achievements})
}

// entry previews whether the user can afford a category without charging.
func (h *APIHandler) entry(w http.ResponseWriter, r *http.Request) {
	decision, err := h.service.Authorize(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "category"))
	if errors.Is(err, domain.ErrUnknownUser) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check entry")
		return
	}
	writeJSON(w, http.StatusOK, decision)
}
