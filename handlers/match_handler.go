package handlers

import (
	"fmt"
	"net/http"

	"github.com/Dosada05/matchdesk/services"
	"github.com/google/uuid"
)

// MatchHandler обслуживает административные операции над матчами.
type MatchHandler struct {
	matchService services.MatchService
}

func NewMatchHandler(ms services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: ms}
}

// CreateMatch godoc
// @Summary Создать матч
// @Tags matches
// @Description Раунд должен быть открыт, обе команды принадлежат администратору.
// @Accept json
// @Produce json
// @Param body body services.CreateMatchInput true "Данные матча"
// @Success 201 {object} models.Match
// @Failure 400 {object} map[string]string "Ошибка валидации или раунд закрыт"
// @Failure 403 {object} map[string]string "Чужой турнир или команда"
// @Failure 404 {object} map[string]string "Турнир, раунд или команда не найдены"
// @Security BearerAuth
// @Router /matches [post]
func (h *MatchHandler) CreateMatch(w http.ResponseWriter, r *http.Request) {
	adminID, ok := currentAdmin(w, r)
	if !ok {
		return
	}

	var input services.CreateMatchInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	input.ActorID = adminID

	match, err := h.matchService.CreateMatch(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, match)
}

// ListMatches godoc
// @Summary Матчи турнира
// @Tags matches
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Param round_id query string false "Фильтр по раунду"
// @Success 200 {array} models.Match
// @Failure 400 {object} map[string]string "Неверный round_id"
// @Failure 404 {object} map[string]string "Турнир не найден"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/matches [get]
func (h *MatchHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	adminID, ok := currentAdmin(w, r)
	if !ok {
		return
	}
	tournamentID, err := getUUIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var roundID *uuid.UUID
	if raw := r.URL.Query().Get("round_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			badRequestResponse(w, r, fmt.Errorf("invalid round_id query parameter: %q", raw))
			return
		}
		roundID = &id
	}

	matches, err := h.matchService.ListMatches(r.Context(), adminID, tournamentID, roundID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, matches)
}

// GetMatch godoc
// @Summary Получить матч
// @Tags matches
// @Produce json
// @Param matchID path string true "Match ID"
// @Success 200 {object} models.Match
// @Failure 403 {object} map[string]string "Чужой турнир"
// @Failure 404 {object} map[string]string "Матч не найден"
// @Security BearerAuth
// @Router /matches/{matchID} [get]
func (h *MatchHandler) GetMatch(w http.ResponseWriter, r *http.Request) {
	adminID, ok := currentAdmin(w, r)
	if !ok {
		return
	}
	matchID, err := getUUIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.GetMatch(r.Context(), adminID, matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, match)
}

// UpdateMatch godoc
// @Summary Обновить матч (администратор)
// @Tags matches
// @Description Любое поле, включая input_allowed_team_id, locked_by и result_status. Пропущенные поля не меняются, null очищает.
// @Accept json
// @Produce json
// @Param matchID path string true "Match ID"
// @Param body body services.UpdateMatchInput true "Изменяемые поля"
// @Success 200 {object} models.Match
// @Failure 400 {object} map[string]string "Ошибка валидации"
// @Failure 403 {object} map[string]string "Чужой турнир"
// @Failure 404 {object} map[string]string "Матч не найден"
// @Security BearerAuth
// @Router /matches/{matchID} [put]
func (h *MatchHandler) UpdateMatch(w http.ResponseWriter, r *http.Request) {
	adminID, ok := currentAdmin(w, r)
	if !ok {
		return
	}
	matchID, err := getUUIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.UpdateMatchInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.UpdateMatch(r.Context(), adminID, matchID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, match)
}

// DeleteMatch godoc
// @Summary Удалить матч (администратор)
// @Tags matches
// @Param matchID path string true "Match ID"
// @Success 204 "Матч удалён"
// @Failure 403 {object} map[string]string "Чужой турнир"
// @Failure 404 {object} map[string]string "Матч не найден"
// @Security BearerAuth
// @Router /matches/{matchID} [delete]
func (h *MatchHandler) DeleteMatch(w http.ResponseWriter, r *http.Request) {
	adminID, ok := currentAdmin(w, r)
	if !ok {
		return
	}
	matchID, err := getUUIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.matchService.DeleteMatch(r.Context(), adminID, matchID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
