package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"worksafe/internal/app"
	"worksafe/internal/domain"
	"worksafe/internal/ranking"
)

type restHandler struct {
	svc Services
	log *zap.Logger
}

func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.Invalid("", "invalid JSON body")
	}
	return nil
}

func (h *restHandler) signup(w http.ResponseWriter, r *http.Request) {
	var req app.SignupRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	user, err := h.svc.Accounts.Signup(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

func (h *restHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	user, err := h.svc.Accounts.Login(r.Context(), req.Email, req.Password, req.Remember)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *restHandler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Accounts.Logout(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *restHandler) me(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.Accounts.Current(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *restHandler) user(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.Accounts.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *restHandler) missionBoard(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	if _, err := h.svc.Accounts.Get(r.Context(), userID); err != nil {
		h.writeError(w, r, err)
		return
	}
	board, err := h.svc.Missions.Board(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (h *restHandler) completeMission(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	mission, err := h.svc.Missions.Complete(r.Context(), vars["id"], vars["missionID"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mission)
}

func (h *restHandler) quizzes(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Quizzes.ListQuizzes(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *restHandler) leaderboard(w http.ResponseWriter, r *http.Request) {
	filter, err := ranking.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	board, err := h.svc.Leaderboard.Individual(r.Context(), r.URL.Query().Get("viewer"), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (h *restHandler) sectors(w http.ResponseWriter, r *http.Request) {
	filter, err := ranking.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	entries, err := h.svc.Leaderboard.Sectors(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *restHandler) reportIncident(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.Accounts.Current(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var in app.IncidentInput
	if err := decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	incident, err := h.svc.Incidents.Report(r.Context(), user.ID, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, incident)
}

func (h *restHandler) incidents(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Incidents.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type statusRequest struct {
	Status domain.IncidentStatus `json:"status"`
}

func (h *restHandler) updateIncident(w http.ResponseWriter, r *http.Request) {
	actor, err := h.svc.Accounts.Current(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req statusRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	incident, err := h.svc.Incidents.UpdateStatus(r.Context(), actor.ID, mux.Vars(r)["id"], req.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, incident)
}

type checklistRequest struct {
	Task string `json:"task"`
}

func (h *restHandler) checklist(w http.ResponseWriter, r *http.Request) {
	var req checklistRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	list, err := h.svc.Checklists.Generate(r.Context(), req.Task)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type themeBody struct {
	Theme app.Theme `json:"theme"`
}

func (h *restHandler) theme(w http.ResponseWriter, r *http.Request) {
	theme, err := h.svc.Preferences.Theme(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, themeBody{Theme: theme})
}

func (h *restHandler) setTheme(w http.ResponseWriter, r *http.Request) {
	var body themeBody
	if err := decode(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.svc.Preferences.SetTheme(r.Context(), body.Theme); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *restHandler) rememberedEmail(w http.ResponseWriter, r *http.Request) {
	email, err := h.svc.Preferences.RememberedEmail(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"email": email})
}

func (h *restHandler) recordNormClick(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	count, err := h.svc.Preferences.RecordNormClick(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"norm": id, "clicks": count})
}

func (h *restHandler) normClicks(w http.ResponseWriter, r *http.Request) {
	clicks, err := h.svc.Preferences.NormClicks(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, clicks)
}
