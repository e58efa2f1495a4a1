package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	ErrValidationFailed = errors.New("validation failed")

	// Ошибки аутентификации и авторизации
	ErrAuthInvalidCredentials = errors.New("invalid credentials")
	ErrAuthEmailTaken         = errors.New("email is already taken")
	ErrAdminSignupDisabled    = errors.New("admin sign-up is disabled")
	ErrPasswordTooShort       = errors.New("password is too short")
	ErrForbiddenOperation     = errors.New("operation not allowed for the current user")

	// Не найдено
	ErrTournamentNotFound  = errors.New("tournament not found")
	ErrRoundNotFound       = errors.New("round not found")
	ErrMatchNotFound       = errors.New("match not found")
	ErrTeamNotFound        = errors.New("team not found")
	ErrParticipantNotFound = errors.New("participant not found")

	// Турниры
	ErrTournamentNameRequired = errors.New("tournament name is required")
	ErrTournamentSlugInvalid  = errors.New("slug must be lowercase letters, digits and single hyphens")
	ErrTournamentSlugConflict = errors.New("tournament slug is already in use")

	// Раунды
	ErrRoundCreationBlocked = errors.New("cannot create a new round while the latest round is open")
	ErrRoundAlreadyClosed   = errors.New("round is already closed")
	ErrRoundNotClosed       = errors.New("round is not closed")
	ErrRoundNotLatest       = errors.New("only the most recent round can be reopened")
	ErrRoundClosed          = errors.New("round is closed for new matches")

	// Матчи
	ErrTournamentIDRequired   = errors.New("tournament_id is required")
	ErrRoundIDRequired        = errors.New("round_id is required")
	ErrTeamsRequired          = errors.New("team_id and opponent_team_id are required")
	ErrSameTeams              = errors.New("a team cannot play against itself")
	ErrTeamNotInTournament    = errors.New("team belongs to another tournament")
	ErrInvalidInputPermission = errors.New("input_allowed_team_id must be null, \"admin\" or one of the two participating teams")
	ErrInvalidLockHolder      = errors.New("locked_by must be null or one of the two participating teams")
	ErrInvalidResultStatus    = errors.New("result_status must be draft or finalized")
	ErrInvalidScore           = errors.New("scores must be numeric")
	ErrInvalidGames           = errors.New("game numbers must be positive and unique")
	ErrInvalidAction          = errors.New("action must be one of save, finalize or cancel")

	// Результаты: конфликты состояния
	ErrAlreadyFinalized = errors.New("match result is already finalized")
	ErrLockedByOther    = errors.New("match result is being edited by another team")
	ErrMatchFinalized   = errors.New("finalized matches cannot be changed by a team")

	// Отказ шлюза разрешений на ввод результата
	ErrInputNotOpen   = errors.New("result input is not open for this match")
	ErrInputAdminOnly = errors.New("result input for this match is reserved for administrators")
	ErrInputWrongTeam = errors.New("another team is assigned to input the result of this match")

	// Команды и участники
	ErrTeamNameRequired      = errors.New("team name is required")
	ErrTeamUsernameInvalid   = errors.New("username must be lowercase letters, digits and single hyphens")
	ErrTeamUsernameConflict  = errors.New("team username is already in use")
	ErrTeamInUse             = errors.New("team still has matches")
	ErrParticipantNameNeeded = errors.New("participant name is required")
)
