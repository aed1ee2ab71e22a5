// Package http exposes the services over REST (gorilla/mux) and WebSocket
// (gorilla/websocket).
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"worksafe/internal/app"
	"worksafe/internal/domain"
	"worksafe/internal/proof"
)

// Services bundles the use cases the transport exposes.
type Services struct {
	Accounts    *app.AccountService
	Quizzes     *app.QuizService
	Missions    *app.MissionService
	Proofs      *app.ProofService
	Leaderboard *app.LeaderboardService
	Incidents   *app.IncidentService
	Checklists  *app.ChecklistService
	Preferences *app.PreferenceService
}

// NewRouter wires every REST route and websocket endpoint.
func NewRouter(svc Services, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	api := &restHandler{svc: svc, log: logger}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	a := r.PathPrefix("/api").Subrouter()
	a.HandleFunc("/auth/signup", api.signup).Methods(http.MethodPost)
	a.HandleFunc("/auth/login", api.login).Methods(http.MethodPost)
	a.HandleFunc("/auth/logout", api.logout).Methods(http.MethodPost)
	a.HandleFunc("/auth/me", api.me).Methods(http.MethodGet)
	a.HandleFunc("/users/{id}", api.user).Methods(http.MethodGet)
	a.HandleFunc("/users/{id}/missions", api.missionBoard).Methods(http.MethodGet)
	a.HandleFunc("/users/{id}/missions/{missionID}/complete", api.completeMission).Methods(http.MethodPost)
	a.HandleFunc("/quizzes", api.quizzes).Methods(http.MethodGet)
	a.HandleFunc("/leaderboard", api.leaderboard).Methods(http.MethodGet)
	a.HandleFunc("/leaderboard/sectors", api.sectors).Methods(http.MethodGet)
	a.HandleFunc("/incidents", api.reportIncident).Methods(http.MethodPost)
	a.HandleFunc("/incidents", api.incidents).Methods(http.MethodGet)
	a.HandleFunc("/incidents/{id}", api.updateIncident).Methods(http.MethodPatch)
	a.HandleFunc("/checklists", api.checklist).Methods(http.MethodPost)
	a.HandleFunc("/preferences/theme", api.theme).Methods(http.MethodGet)
	a.HandleFunc("/preferences/theme", api.setTheme).Methods(http.MethodPut)
	a.HandleFunc("/preferences/remembered-email", api.rememberedEmail).Methods(http.MethodGet)
	a.HandleFunc("/norms/clicks", api.normClicks).Methods(http.MethodGet)
	a.HandleFunc("/norms/{id}/clicks", api.recordNormClick).Methods(http.MethodPost)

	r.Handle("/ws/quiz", NewQuizWSHandler(svc.Quizzes, logger))
	r.Handle("/ws/proof", NewProofWSHandler(svc.Proofs, logger))
	r.Handle("/ws/leaderboard", NewLeaderboardWSHandler(svc.Leaderboard, logger))
	return r
}

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrMissionNotFound),
		errors.Is(err, domain.ErrIncidentNotFound),
		errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrWorkflowBusy),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrProofRequired),
		errors.Is(err, domain.ErrQuizNotFinished),
		errors.Is(err, proof.ErrCancelled):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (h *restHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error()}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		body = errorBody{Error: verr.Message, Field: verr.Field}
	}
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
		body.Error = "internal error"
	}
	writeJSON(w, status, body)
}
