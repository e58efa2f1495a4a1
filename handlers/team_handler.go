package handlers

import (
	"fmt"
	"net/http"

	"github.com/Dosada05/matchdesk/services"
	"github.com/google/uuid"
)

type TeamHandler struct {
	teamService services.TeamService
}

func NewTeamHandler(ts services.TeamService) *TeamHandler {
	return &TeamHandler{teamService: ts}
}

// CreateTeam godoc
// @Summary Создать команду
// @Tags teams
// @Description Создаёт команду и её учётную запись. Пароль возвращается только в этом ответе.
// @Accept json
// @Produce json
// @Param body body services.CreateTeamInput true "Данные команды"
// @Success 201 {object} models.TeamCredentials
// @Failure 400 {object} map[string]string "Ошибка валидации"
// @Failure 409 {object} map[string]string "Username занят"
// @Security BearerAuth
// @Router /teams [post]
func (h *TeamHandler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	adminID, ok := currentAdmin(w, r)
	if !ok {
		return
	}

	var input services.CreateTeamInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	input.ActorID = adminID

	creds, err := h.teamService.CreateTeam(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, creds)
}

// ListTeams godoc
// @Summary Команды администратора
// @Tags teams
// @Produce json
// @Param tournament_id query string false "Фильтр по турниру"
// @Success 200 {array} models.Team
// @Security BearerAuth
// @Router /teams [get]
func (h *TeamHandler) ListTeams(w http.ResponseWriter, r *http.Request) {
	adminID, ok := currentAdmin(w, r)
	if !ok {
		return
	}

	var tournamentID *uuid.UUID
	if raw := r.URL.Query().Get("tournament_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			badRequestResponse(w, r, fmt.Errorf("invalid tournament_id query parameter: %q", raw))
			return
		}
		tournamentID = &id
	}

	teams, err := h.teamService.ListTeams(r.Context(), adminID, tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, teams)
}

// GetTeam godoc
// @Summary Получить команду
// @Tags teams
// @Produce json
// @Param teamID path string true "Team ID"
// @Success 200 {object} models.Team
// @Failure 403 {object} map[string]string "Чужая команда"
// @Failure 404 {object} map[string]string "Команда не найдена"
// @Security BearerAuth
// @Router /teams/{teamID} [get]
func (h *TeamHandler) GetTeam(w http.ResponseWriter, r *http.Request) {
	adminID, ok := currentAdmin(w, r)
	if !ok {
		return
	}
	teamID, err := getUUIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	team, err := h.teamService.GetTeam(r.Context(), adminID, teamID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, team)
}

// UpdateTeam godoc
// @Summary Обновить команду
// @Tags teams
// @Accept json
// @Produce json
// @Param teamID path string true "Team ID"
// @Param body body services.UpdateTeamInput true "Изменяемые поля"
// @Success 200 {object} models.Team
// @Failure 400 {object} map[string]string "Ошибка валидации"
// @Failure 403 {object} map[string]string "Чужая команда"
// @Failure 404 {object} map[string]string "Команда не найдена"
// @Security BearerAuth
// @Router /teams/{teamID} [put]
func (h *TeamHandler) UpdateTeam(w http.ResponseWriter, r *http.Request) {
	adminID, ok := currentAdmin(w, r)
	if !ok {
		return
	}
	teamID, err := getUUIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.UpdateTeamInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	team, err := h.teamService.UpdateTeam(r.Context(), adminID, teamID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, team)
}

// DeleteTeam godoc
// @Summary Удалить команду
// @Tags teams
// @Description Команду, у которой есть матчи, удалить нельзя.
// @Param teamID path string true "Team ID"
// @Success 204 "Команда удалена"
// @Failure 403 {object} map[string]string "Чужая команда"
// @Failure 404 {object} map[string]string "Команда не найдена"
// @Failure 409 {object} map[string]string "У команды есть матчи"
// @Security BearerAuth
// @Router /teams/{teamID} [delete]
func (h *TeamHandler) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	adminID, ok := currentAdmin(w, r)
	if !ok {
		return
	}
	teamID, err := getUUIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.teamService.DeleteTeam(r.Context(), adminID, teamID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResetPassword godoc
// @Summary Сбросить пароль команды
// @Tags teams
// @Produce json
// @Param teamID path string true "Team ID"
// @Success 200 {object} models.TeamCredentials
// @Failure 403 {object} map[string]string "Чужая команда"
// @Failure 404 {object} map[string]string "Команда не найдена"
// @Security BearerAuth
// @Router /teams/{teamID}/reset-password [post]
func (h *TeamHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	adminID, ok := currentAdmin(w, r)
	if !ok {
		return
	}
	teamID, err := getUUIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	creds, err := h.teamService.ResetPassword(r.Context(), adminID, teamID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, creds)
}
