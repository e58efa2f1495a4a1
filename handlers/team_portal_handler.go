package handlers

import (
	"net/http"

	"github.com/Dosada05/matchdesk/services"
)

// TeamPortalHandler обслуживает запросы от имени команды (роль team).
type TeamPortalHandler struct {
	teamService        services.TeamService
	matchService       services.MatchService
	resultService      services.ResultService
	participantService *services.ParticipantService
}

func NewTeamPortalHandler(
	ts services.TeamService,
	ms services.MatchService,
	rs services.ResultService,
	ps *services.ParticipantService,
) *TeamPortalHandler {
	return &TeamPortalHandler{
		teamService:        ts,
		matchService:       ms,
		resultService:      rs,
		participantService: ps,
	}
}

// Me godoc
// @Summary Текущая команда
// @Tags team
// @Produce json
// @Success 200 {object} models.Team
// @Failure 401 {object} map[string]string "Неавторизован"
// @Security BearerAuth
// @Router /team/me [get]
func (h *TeamPortalHandler) Me(w http.ResponseWriter, r *http.Request) {
	teamID, ok := currentTeam(w, r)
	if !ok {
		return
	}

	team, err := h.teamService.GetOwnTeam(r.Context(), teamID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, team)
}

// ListMatches godoc
// @Summary Матчи команды
// @Tags team
// @Description Матчи, в которых команда играет на любой стороне.
// @Produce json
// @Success 200 {array} models.Match
// @Security BearerAuth
// @Router /team/matches [get]
func (h *TeamPortalHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	teamID, ok := currentTeam(w, r)
	if !ok {
		return
	}

	matches, err := h.matchService.ListTeamMatches(r.Context(), teamID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, matches)
}

// GetMatch godoc
// @Summary Матч команды
// @Tags team
// @Produce json
// @Param matchID path string true "Match ID"
// @Success 200 {object} models.Match
// @Failure 403 {object} map[string]string "Команда не участвует в матче"
// @Failure 404 {object} map[string]string "Матч не найден"
// @Security BearerAuth
// @Router /team/matches/{matchID} [get]
func (h *TeamPortalHandler) GetMatch(w http.ResponseWriter, r *http.Request) {
	teamID, ok := currentTeam(w, r)
	if !ok {
		return
	}
	matchID, err := getUUIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.GetTeamMatch(r.Context(), teamID, matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, match)
}

// UpdateMatch godoc
// @Summary Изменить детали матча (команда)
// @Tags team
// @Description Финализированный матч или матч под чужой блокировкой изменить нельзя.
// @Accept json
// @Produce json
// @Param matchID path string true "Match ID"
// @Param body body services.ResultPayload true "Детали матча"
// @Success 200 {object} models.Match
// @Failure 400 {object} map[string]string "Ошибка валидации"
// @Failure 403 {object} map[string]string "Команда не участвует в матче"
// @Failure 404 {object} map[string]string "Матч не найден"
// @Failure 409 {object} map[string]string "Матч финализирован или заблокирован другой командой"
// @Security BearerAuth
// @Router /team/matches/{matchID} [put]
func (h *TeamPortalHandler) UpdateMatch(w http.ResponseWriter, r *http.Request) {
	teamID, ok := currentTeam(w, r)
	if !ok {
		return
	}
	matchID, err := getUUIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var payload services.ResultPayload
	if err := readJSON(w, r, &payload); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.UpdateTeamMatch(r.Context(), teamID, matchID, payload)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, match)
}

// DeleteMatch godoc
// @Summary Удалить матч (команда)
// @Tags team
// @Description Удалить может только домашняя команда и только до финализации.
// @Param matchID path string true "Match ID"
// @Success 204 "Матч удалён"
// @Failure 403 {object} map[string]string "Команда не владеет матчем"
// @Failure 404 {object} map[string]string "Матч не найден"
// @Failure 409 {object} map[string]string "Матч финализирован"
// @Security BearerAuth
// @Router /team/matches/{matchID} [delete]
func (h *TeamPortalHandler) DeleteMatch(w http.ResponseWriter, r *http.Request) {
	teamID, ok := currentTeam(w, r)
	if !ok {
		return
	}
	matchID, err := getUUIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.matchService.DeleteTeamMatch(r.Context(), teamID, matchID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubmitResult godoc
// @Summary Сохранить, финализировать или отменить ввод результата
// @Tags team
// @Description save берёт блокировку, finalize фиксирует результат, cancel снимает блокировку.
// @Accept json
// @Produce json
// @Param matchID path string true "Match ID"
// @Param body body services.SubmitResultInput true "action и payload"
// @Success 200 {object} models.Match
// @Failure 400 {object} map[string]string "Неверное действие или данные"
// @Failure 403 {object} map[string]string "Ввод результата закрыт для команды"
// @Failure 404 {object} map[string]string "Матч не найден"
// @Failure 409 {object} map[string]string "Матч финализирован или заблокирован другой командой"
// @Security BearerAuth
// @Router /team/matches/{matchID}/result [post]
func (h *TeamPortalHandler) SubmitResult(w http.ResponseWriter, r *http.Request) {
	teamID, ok := currentTeam(w, r)
	if !ok {
		return
	}
	matchID, err := getUUIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.SubmitResultInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.resultService.SubmitResult(r.Context(), teamID, matchID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, match)
}

// ListParticipants godoc
// @Summary Игроки своей команды
// @Tags team
// @Produce json
// @Success 200 {array} models.Participant
// @Security BearerAuth
// @Router /team/participants [get]
func (h *TeamPortalHandler) ListParticipants(w http.ResponseWriter, r *http.Request) {
	teamID, ok := currentTeam(w, r)
	if !ok {
		return
	}

	participants, err := h.participantService.ListTeamParticipants(r.Context(), teamID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, participants)
}
