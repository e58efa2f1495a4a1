package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/Dosada05/matchdesk/models"
	"github.com/Dosada05/matchdesk/services"
	"github.com/google/uuid"
)

type RoundHandler struct {
	roundService services.RoundService
}

func NewRoundHandler(rs services.RoundService) *RoundHandler {
	return &RoundHandler{roundService: rs}
}

// CreateRound godoc
// @Summary Открыть новый раунд
// @Tags rounds
// @Description Номер назначается автоматически; предыдущий раунд должен быть закрыт. Тело запроса необязательно.
// @Accept json
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Param body body services.CreateRoundInput false "Заголовок раунда"
// @Success 201 {object} models.Round
// @Failure 400 {object} map[string]string "Последний раунд ещё открыт"
// @Failure 404 {object} map[string]string "Турнир не найден"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/rounds [post]
func (h *RoundHandler) CreateRound(w http.ResponseWriter, r *http.Request) {
	adminID, ok := currentAdmin(w, r)
	if !ok {
		return
	}
	tournamentID, err := getUUIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.CreateRoundInput
	if err := readJSON(w, r, &input); err != nil && !errors.Is(err, errEmptyBody) {
		badRequestResponse(w, r, err)
		return
	}
	input.TournamentID = tournamentID
	input.ActorID = adminID

	round, err := h.roundService.CreateRound(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, round)
}

// ListRounds godoc
// @Summary Раунды турнира
// @Tags rounds
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Success 200 {array} models.Round
// @Failure 404 {object} map[string]string "Турнир не найден"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/rounds [get]
func (h *RoundHandler) ListRounds(w http.ResponseWriter, r *http.Request) {
	adminID, ok := currentAdmin(w, r)
	if !ok {
		return
	}
	tournamentID, err := getUUIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	rounds, err := h.roundService.ListRounds(r.Context(), adminID, tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, rounds)
}

// CloseRound godoc
// @Summary Закрыть раунд
// @Tags rounds
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Param roundID path string true "Round ID"
// @Success 200 {object} models.Round
// @Failure 400 {object} map[string]string "Раунд уже закрыт"
// @Failure 404 {object} map[string]string "Раунд не найден"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/rounds/{roundID}/close [post]
func (h *RoundHandler) CloseRound(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.roundService.CloseRound)
}

// ReopenRound godoc
// @Summary Переоткрыть раунд
// @Tags rounds
// @Description Переоткрыть можно только последний закрытый раунд.
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Param roundID path string true "Round ID"
// @Success 200 {object} models.Round
// @Failure 400 {object} map[string]string "Раунд не закрыт или не последний"
// @Failure 404 {object} map[string]string "Раунд не найден"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/rounds/{roundID}/reopen [post]
func (h *RoundHandler) ReopenRound(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.roundService.ReopenRound)
}

func (h *RoundHandler) transition(w http.ResponseWriter, r *http.Request,
	apply func(ctx context.Context, actorID, tournamentID, roundID uuid.UUID) (*models.Round, error),
) {
	adminID, ok := currentAdmin(w, r)
	if !ok {
		return
	}
	tournamentID, err := getUUIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	roundID, err := getUUIDFromURL(r, "roundID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	round, err := apply(r.Context(), adminID, tournamentID, roundID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, round)
}
