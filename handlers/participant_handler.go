package handlers

import (
	"net/http"

	"github.com/Dosada05/matchdesk/services"
)

type ParticipantHandler struct {
	participantService *services.ParticipantService
}

func NewParticipantHandler(ps *services.ParticipantService) *ParticipantHandler {
	return &ParticipantHandler{
		participantService: ps,
	}
}

// AddParticipant godoc
// @Summary Добавить игрока в команду
// @Tags participants
// @Accept json
// @Produce json
// @Param teamID path string true "Team ID"
// @Param body body services.ParticipantInput true "Имя игрока и флаг can_edit"
// @Success 201 {object} models.Participant
// @Failure 400 {object} map[string]string "Ошибка валидации"
// @Failure 403 {object} map[string]string "Чужая команда"
// @Failure 404 {object} map[string]string "Команда не найдена"
// @Security BearerAuth
// @Router /teams/{teamID}/participants [post]
func (h *ParticipantHandler) AddParticipant(w http.ResponseWriter, r *http.Request) {
	adminID, ok := currentAdmin(w, r)
	if !ok {
		return
	}
	teamID, err := getUUIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.ParticipantInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	participant, err := h.participantService.AddParticipant(r.Context(), adminID, teamID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, participant)
}

// ListParticipants godoc
// @Summary Игроки команды
// @Tags participants
// @Produce json
// @Param teamID path string true "Team ID"
// @Success 200 {array} models.Participant
// @Failure 403 {object} map[string]string "Чужая команда"
// @Failure 404 {object} map[string]string "Команда не найдена"
// @Security BearerAuth
// @Router /teams/{teamID}/participants [get]
func (h *ParticipantHandler) ListParticipants(w http.ResponseWriter, r *http.Request) {
	adminID, ok := currentAdmin(w, r)
	if !ok {
		return
	}
	teamID, err := getUUIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	participants, err := h.participantService.ListParticipants(r.Context(), adminID, teamID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, participants)
}

// UpdateParticipant godoc
// @Summary Изменить игрока
// @Tags participants
// @Accept json
// @Produce json
// @Param participantID path string true "Participant ID"
// @Param body body services.ParticipantInput true "Имя игрока и флаг can_edit"
// @Success 200 {object} models.Participant
// @Failure 400 {object} map[string]string "Ошибка валидации"
// @Failure 403 {object} map[string]string "Чужая команда"
// @Failure 404 {object} map[string]string "Игрок не найден"
// @Security BearerAuth
// @Router /participants/{participantID} [put]
func (h *ParticipantHandler) UpdateParticipant(w http.ResponseWriter, r *http.Request) {
	adminID, ok := currentAdmin(w, r)
	if !ok {
		return
	}
	participantID, err := getUUIDFromURL(r, "participantID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.ParticipantInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	participant, err := h.participantService.UpdateParticipant(r.Context(), adminID, participantID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, participant)
}

// RemoveParticipant godoc
// @Summary Удалить игрока
// @Tags participants
// @Param participantID path string true "Participant ID"
// @Success 204 "Игрок удалён"
// @Failure 403 {object} map[string]string "Чужая команда"
// @Failure 404 {object} map[string]string "Игрок не найден"
// @Security BearerAuth
// @Router /participants/{participantID} [delete]
func (h *ParticipantHandler) RemoveParticipant(w http.ResponseWriter, r *http.Request) {
	adminID, ok := currentAdmin(w, r)
	if !ok {
		return
	}
	participantID, err := getUUIDFromURL(r, "participantID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.participantService.RemoveParticipant(r.Context(), adminID, participantID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
