package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"slices"

	"github.com/Dosada05/matchdesk/middleware"
	"github.com/Dosada05/matchdesk/models"
	"github.com/Dosada05/matchdesk/realtime"
	"github.com/Dosada05/matchdesk/services"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	hub               *realtime.Hub
	tournamentService services.TournamentService
	teamService       services.TeamService
	matchService      services.MatchService
	upgrader          websocket.Upgrader
}

// NewWebSocketHandler принимает тот же список origin, что и CORS; "*" разрешает всех.
func NewWebSocketHandler(
	hub *realtime.Hub,
	allowedOrigins []string,
	tournamentService services.TournamentService,
	teamService services.TeamService,
	matchService services.MatchService,
) *WebSocketHandler {
	allowAll := len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*")
	return &WebSocketHandler{
		hub:               hub,
		tournamentService: tournamentService,
		teamService:       teamService,
		matchService:      matchService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowAll || origin == "" || slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

// ServeWs godoc
// @Summary Подписка на события турнира
// @Tags realtime
// @Description WebSocket. Сообщения: MATCH_CREATED, MATCH_UPDATED, MATCH_DELETED, ROUND_UPDATED.
// @Description Доступ: администратор-владелец турнира или команда, которая в нём участвует.
// @Param tournamentID path string true "Tournament ID"
// @Param access_token query string false "JWT, если нельзя передать заголовок Authorization"
// @Success 101 "Switching Protocols"
// @Failure 400 {object} map[string]string "Неверный ID турнира"
// @Failure 401 {object} map[string]string "Нет токена"
// @Failure 403 {object} map[string]string "Нет доступа к турниру"
// @Failure 404 {object} map[string]string "Турнир не найден"
// @Security BearerAuth
// @Router /ws/tournaments/{tournamentID} [get]
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getUUIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if err := h.authorize(r.Context(), tournamentID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade сам отвечает клиенту ошибкой.
		slog.WarnContext(r.Context(), "websocket upgrade failed",
			slog.String("tournament_id", tournamentID.String()), slog.Any("error", err))
		return
	}

	if !h.hub.Attach(conn, realtime.RoomForTournament(tournamentID)) {
		slog.InfoContext(r.Context(), "websocket rejected, hub is stopped",
			slog.String("tournament_id", tournamentID.String()))
	}
}

// authorize пускает администратора-владельца и команды турнира: приписанные к нему
// или играющие хотя бы один его матч.
func (h *WebSocketHandler) authorize(ctx context.Context, tournamentID uuid.UUID) error {
	role, err := middleware.GetUserRoleFromContext(ctx)
	if err != nil {
		return services.ErrForbiddenOperation
	}

	if role == models.RoleAdmin {
		adminID, err := middleware.GetUserIDFromContext(ctx)
		if err != nil {
			return services.ErrForbiddenOperation
		}
		_, err = h.tournamentService.GetTournament(ctx, adminID, tournamentID)
		return err
	}

	teamID, err := middleware.GetTeamIDFromContext(ctx)
	if err != nil {
		return services.ErrForbiddenOperation
	}
	team, err := h.teamService.GetOwnTeam(ctx, teamID)
	if err != nil {
		return err
	}
	if team.TournamentID != nil && *team.TournamentID == tournamentID {
		return nil
	}
	matches, err := h.matchService.ListTeamMatches(ctx, teamID)
	if err != nil {
		return err
	}
	for _, m := range matches {
		if m.TournamentID == tournamentID {
			return nil
		}
	}
	return services.ErrForbiddenOperation
}
