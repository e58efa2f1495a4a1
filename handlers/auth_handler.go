package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Dosada05/matchdesk/clock"
	"github.com/Dosada05/matchdesk/middleware"
	"github.com/Dosada05/matchdesk/models"
	"github.com/Dosada05/matchdesk/services"
)

type AuthHandler struct {
	authService services.AuthService
	jwtSecret   string
	tokenTTL    time.Duration
	clock       clock.Clock
}

func NewAuthHandler(authService services.AuthService, jwtSecret string, tokenTTL time.Duration, clk clock.Clock) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		jwtSecret:   jwtSecret,
		tokenTTL:    tokenTTL,
		clock:       clk,
	}
}

// RegisterAdmin godoc
// @Summary Регистрация администратора
// @Tags auth
// @Description Доступна только при ALLOW_ADMIN_SIGNUP=true.
// @Accept json
// @Produce json
// @Param body body models.Credentials true "Email и пароль"
// @Success 201 {object} models.Identity
// @Failure 400 {object} map[string]string "Ошибка валидации"
// @Failure 403 {object} map[string]string "Регистрация отключена"
// @Failure 409 {object} map[string]string "Email занят"
// @Router /auth/admin/register [post]
func (h *AuthHandler) RegisterAdmin(w http.ResponseWriter, r *http.Request) {
	var input models.Credentials
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if strings.TrimSpace(input.Email) == "" || input.Password == "" {
		badRequestResponse(w, r, errors.New("email and password are required"))
		return
	}

	identity, err := h.authService.RegisterAdmin(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, identity)
}

// LoginAdmin godoc
// @Summary Вход администратора
// @Tags auth
// @Accept json
// @Produce json
// @Param body body models.Credentials true "Email и пароль"
// @Success 200 {object} map[string]interface{} "token и identity"
// @Failure 400 {object} map[string]string "Ошибка валидации"
// @Failure 401 {object} map[string]string "Неверные учётные данные"
// @Router /auth/admin/login [post]
func (h *AuthHandler) LoginAdmin(w http.ResponseWriter, r *http.Request) {
	var input models.Credentials
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if strings.TrimSpace(input.Email) == "" || input.Password == "" {
		badRequestResponse(w, r, errors.New("email and password are required"))
		return
	}

	identity, err := h.authService.LoginAdmin(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	token, err := middleware.IssueToken(h.jwtSecret, identity, h.tokenTTL, h.clock.Now())
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, jsonResponse{"token": token, "identity": identity})
}

// LoginTeam godoc
// @Summary Вход команды
// @Tags auth
// @Description Команда входит по username и паролю, выданному администратором.
// @Accept json
// @Produce json
// @Param body body services.TeamLoginInput true "Username и пароль"
// @Success 200 {object} map[string]interface{} "token и team"
// @Failure 400 {object} map[string]string "Ошибка валидации"
// @Failure 401 {object} map[string]string "Неверные учётные данные"
// @Router /auth/team/login [post]
func (h *AuthHandler) LoginTeam(w http.ResponseWriter, r *http.Request) {
	var input services.TeamLoginInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if strings.TrimSpace(input.Username) == "" || input.Password == "" {
		badRequestResponse(w, r, errors.New("username and password are required"))
		return
	}

	identity, team, err := h.authService.LoginTeam(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	token, err := middleware.IssueToken(h.jwtSecret, identity, h.tokenTTL, h.clock.Now())
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, jsonResponse{"token": token, "team": team})
}
