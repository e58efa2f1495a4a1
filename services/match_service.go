package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/matchdesk/clock"
	"github.com/Dosada05/matchdesk/models"
	"github.com/Dosada05/matchdesk/repositories"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type MatchService interface {
	// Операции администратора
	CreateMatch(ctx context.Context, input CreateMatchInput) (*models.Match, error)
	GetMatch(ctx context.Context, actorID, matchID uuid.UUID) (*models.Match, error)
	ListMatches(ctx context.Context, actorID, tournamentID uuid.UUID, roundID *uuid.UUID) ([]models.Match, error)
	UpdateMatch(ctx context.Context, actorID, matchID uuid.UUID, input UpdateMatchInput) (*models.Match, error)
	DeleteMatch(ctx context.Context, actorID, matchID uuid.UUID) error

	// Операции команды
	ListTeamMatches(ctx context.Context, teamID uuid.UUID) ([]models.Match, error)
	GetTeamMatch(ctx context.Context, teamID, matchID uuid.UUID) (*models.Match, error)
	UpdateTeamMatch(ctx context.Context, teamID, matchID uuid.UUID, payload ResultPayload) (*models.Match, error)
	DeleteTeamMatch(ctx context.Context, teamID, matchID uuid.UUID) error
}

type CreateMatchInput struct {
	TournamentID       uuid.UUID              `json:"tournament_id"`
	RoundID            uuid.UUID              `json:"round_id"`
	TeamID             uuid.UUID              `json:"team_id"`
	OpponentTeamID     uuid.UUID              `json:"opponent_team_id"`
	Player             *string                `json:"player"`
	OpponentPlayer     *string                `json:"opponent_player"`
	Deck               *string                `json:"deck"`
	OpponentDeck       *string                `json:"opponent_deck"`
	SelfScore          *string                `json:"self_score"`
	OpponentScore      *string                `json:"opponent_score"`
	Date               *time.Time             `json:"date"`
	InputAllowedTeamID models.InputPermission `json:"input_allowed_team_id"`
	Games              []GameInput            `json:"games"`
	ActorID            uuid.UUID              `json:"-"`
}

// UpdateMatchInput is the administrator's unrestricted patch. Omitted fields are kept,
// explicit nulls clear the field.
type UpdateMatchInput struct {
	TeamID             *uuid.UUID                              `json:"team_id"`
	OpponentTeamID     *uuid.UUID                              `json:"opponent_team_id"`
	Player             models.Optional[string]                 `json:"player"`
	OpponentPlayer     models.Optional[string]                 `json:"opponent_player"`
	Deck               models.Optional[string]                 `json:"deck"`
	OpponentDeck       models.Optional[string]                 `json:"opponent_deck"`
	SelfScore          models.Optional[string]                 `json:"self_score"`
	OpponentScore      models.Optional[string]                 `json:"opponent_score"`
	Date               models.Optional[time.Time]              `json:"date"`
	InputAllowedTeamID models.Optional[models.InputPermission] `json:"input_allowed_team_id"`
	LockedBy           models.Optional[uuid.UUID]              `json:"locked_by"`
	ResultStatus       *models.ResultStatus                    `json:"result_status"`
	Games              *[]GameInput                            `json:"games"`
}

type matchService struct {
	db             *sqlx.DB
	matchRepo      repositories.MatchRepository
	roundRepo      repositories.RoundRepository
	teamRepo       repositories.TeamRepository
	tournamentRepo repositories.TournamentRepository
	publisher      EventPublisher
	archiver       ResultArchiver
	clock          clock.Clock
	logger         *slog.Logger
}

func NewMatchService(
	db *sqlx.DB,
	matchRepo repositories.MatchRepository,
	roundRepo repositories.RoundRepository,
	teamRepo repositories.TeamRepository,
	tournamentRepo repositories.TournamentRepository,
	publisher EventPublisher,
	archiver ResultArchiver,
	clk clock.Clock,
	logger *slog.Logger,
) MatchService {
	if archiver == nil {
		archiver = noopArchiver{}
	}
	return &matchService{
		db:             db,
		matchRepo:      matchRepo,
		roundRepo:      roundRepo,
		teamRepo:       teamRepo,
		tournamentRepo: tournamentRepo,
		publisher:      publisherOrNoop(publisher),
		archiver:       archiver,
		clock:          clk,
		logger:         logger,
	}
}

func (s *matchService) CreateMatch(ctx context.Context, input CreateMatchInput) (*models.Match, error) {
	if input.TournamentID == uuid.Nil {
		return nil, ErrTournamentIDRequired
	}
	if input.RoundID == uuid.Nil {
		return nil, ErrRoundIDRequired
	}
	if input.TeamID == uuid.Nil || input.OpponentTeamID == uuid.Nil {
		return nil, ErrTeamsRequired
	}
	if input.TeamID == input.OpponentTeamID {
		return nil, ErrSameTeams
	}

	selfScore, err := normalizeScore(input.SelfScore)
	if err != nil {
		return nil, err
	}
	opponentScore, err := normalizeScore(input.OpponentScore)
	if err != nil {
		return nil, err
	}
	games, err := buildGames(input.Games)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	match := &models.Match{
		ID:                 uuid.New(),
		TournamentID:       input.TournamentID,
		RoundID:            input.RoundID,
		TeamID:             input.TeamID,
		OpponentTeamID:     input.OpponentTeamID,
		Player:             emptyToNil(normalizeText(input.Player)),
		OpponentPlayer:     emptyToNil(normalizeText(input.OpponentPlayer)),
		Deck:               emptyToNil(normalizeText(input.Deck)),
		OpponentDeck:       emptyToNil(normalizeText(input.OpponentDeck)),
		SelfScore:          selfScore,
		OpponentScore:      opponentScore,
		Date:               utcPtr(input.Date),
		InputAllowedTeamID: input.InputAllowedTeamID,
		ResultStatus:       models.ResultDraft,
		CreatedAt:          now,
		UpdatedAt:          now,
		Games:              games,
	}
	if err := validateInputPermission(match.InputAllowedTeamID, match); err != nil {
		return nil, err
	}

	err = withTx(ctx, s.db, s.logger, func(tx *sqlx.Tx) error {
		if _, err := loadOwnedTournament(ctx, s.tournamentRepo, tx, input.ActorID, input.TournamentID); err != nil {
			return err
		}

		round, err := s.roundRepo.GetByID(ctx, tx, input.TournamentID, input.RoundID)
		if err != nil {
			if errors.Is(err, repositories.ErrRoundNotFound) {
				return ErrRoundNotFound
			}
			return fmt.Errorf("failed to load round: %w", err)
		}
		if round.IsClosed() {
			return ErrRoundClosed
		}

		if err := s.checkTeams(ctx, tx, input.ActorID, input.TournamentID, match.TeamID, match.OpponentTeamID); err != nil {
			return err
		}

		if err := s.matchRepo.Create(ctx, tx, match); err != nil {
			return mapMatchRepoError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "match created", matchLogAttrs(match))
	s.publisher.Publish(ctx, match.TournamentID, EventMatchCreated, match)
	return match, nil
}

func (s *matchService) GetMatch(ctx context.Context, actorID, matchID uuid.UUID) (*models.Match, error) {
	return s.loadAdminMatch(ctx, nil, actorID, matchID)
}

func (s *matchService) ListMatches(ctx context.Context, actorID, tournamentID uuid.UUID, roundID *uuid.UUID) ([]models.Match, error) {
	if _, err := loadOwnedTournament(ctx, s.tournamentRepo, nil, actorID, tournamentID); err != nil {
		return nil, err
	}
	matches, err := s.matchRepo.List(ctx, nil, repositories.MatchFilter{TournamentID: tournamentID, RoundID: roundID})
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	return matches, nil
}

// UpdateMatch is the administrator's escape hatch: no lock or status guard applies.
func (s *matchService) UpdateMatch(ctx context.Context, actorID, matchID uuid.UUID, input UpdateMatchInput) (*models.Match, error) {
	if input.ResultStatus != nil && !input.ResultStatus.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidResultStatus, *input.ResultStatus)
	}
	var games []models.GameResult
	if input.Games != nil {
		var err error
		if games, err = buildGames(*input.Games); err != nil {
			return nil, err
		}
	}

	var (
		match        *models.Match
		wasFinalized bool
		teamsChanged bool
	)
	err := withTx(ctx, s.db, s.logger, func(tx *sqlx.Tx) error {
		var err error
		match, err = s.loadAdminMatch(ctx, tx, actorID, matchID)
		if err != nil {
			return err
		}
		wasFinalized = match.IsFinalized()

		if input.TeamID != nil && *input.TeamID != match.TeamID {
			match.TeamID = *input.TeamID
			teamsChanged = true
		}
		if input.OpponentTeamID != nil && *input.OpponentTeamID != match.OpponentTeamID {
			match.OpponentTeamID = *input.OpponentTeamID
			teamsChanged = true
		}
		if match.TeamID == match.OpponentTeamID {
			return ErrSameTeams
		}
		if teamsChanged {
			if err := s.checkTeams(ctx, tx, actorID, match.TournamentID, match.TeamID, match.OpponentTeamID); err != nil {
				return err
			}
		}

		if err := applyAdminPatch(match, input, s.clock.Now()); err != nil {
			return err
		}
		if input.Games != nil {
			match.Games = games
		}

		if err := s.matchRepo.Update(ctx, tx, match); err != nil {
			return mapMatchRepoError(err)
		}
		if input.Games != nil {
			if err := s.matchRepo.ReplaceGames(ctx, tx, match.ID, games); err != nil {
				return mapMatchRepoError(err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "match updated by admin", matchLogAttrs(match), slog.String("admin_id", actorID.String()))
	s.publisher.Publish(ctx, match.TournamentID, EventMatchUpdated, match)
	switch {
	case match.IsFinalized():
		// Any admin edit of a finalized match rewrites its archived copy.
		s.archiver.Archive(ctx, match)
	case wasFinalized:
		s.archiver.Withdraw(ctx, match)
	}
	return match, nil
}

// applyAdminPatch copies the present fields of input onto m and keeps
// locked_at and finalized_at consistent with the new state.
func applyAdminPatch(m *models.Match, input UpdateMatchInput, now time.Time) error {
	setText := func(dst **string, o models.Optional[string]) {
		if o.Set {
			*dst = emptyToNil(normalizeText(o.Ptr()))
		}
	}
	setText(&m.Player, input.Player)
	setText(&m.OpponentPlayer, input.OpponentPlayer)
	setText(&m.Deck, input.Deck)
	setText(&m.OpponentDeck, input.OpponentDeck)

	for _, pair := range []struct {
		dst **string
		o   models.Optional[string]
	}{{&m.SelfScore, input.SelfScore}, {&m.OpponentScore, input.OpponentScore}} {
		if !pair.o.Set {
			continue
		}
		score, err := normalizeScore(pair.o.Ptr())
		if err != nil {
			return err
		}
		*pair.dst = score
	}

	if input.Date.Set {
		m.Date = utcPtr(input.Date.Ptr())
	}

	if input.InputAllowedTeamID.Set {
		perm := models.NoInput()
		if !input.InputAllowedTeamID.Null {
			perm = input.InputAllowedTeamID.Value
		}
		m.InputAllowedTeamID = perm
	}
	// Re-checked on every update: a team swap may invalidate the stored permission.
	if err := validateInputPermission(m.InputAllowedTeamID, m); err != nil {
		return err
	}

	if input.LockedBy.Set {
		if input.LockedBy.Null {
			m.LockedBy = nil
			m.LockedAt = nil
		} else {
			holder := input.LockedBy.Value
			if m.LockedBy == nil || *m.LockedBy != holder {
				m.LockedAt = &now
			}
			m.LockedBy = &holder
		}
	}
	if m.LockedBy != nil && !m.HasTeam(*m.LockedBy) {
		return ErrInvalidLockHolder
	}

	if input.ResultStatus != nil && *input.ResultStatus != m.ResultStatus {
		m.ResultStatus = *input.ResultStatus
		if m.IsFinalized() {
			m.FinalizedAt = &now
		} else {
			m.FinalizedAt = nil
		}
	}

	m.UpdatedAt = now
	return nil
}

// DeleteMatch removes a match whatever its result status.
func (s *matchService) DeleteMatch(ctx context.Context, actorID, matchID uuid.UUID) error {
	var match *models.Match
	err := withTx(ctx, s.db, s.logger, func(tx *sqlx.Tx) error {
		var err error
		match, err = s.loadAdminMatch(ctx, tx, actorID, matchID)
		if err != nil {
			return err
		}
		if err := s.matchRepo.Delete(ctx, tx, matchID); err != nil {
			return mapMatchRepoError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "match deleted", matchLogAttrs(match))
	s.publisher.Publish(ctx, match.TournamentID, EventMatchDeleted, map[string]string{"id": match.ID.String()})
	if match.IsFinalized() {
		s.archiver.Withdraw(ctx, match)
	}
	return nil
}

func (s *matchService) ListTeamMatches(ctx context.Context, teamID uuid.UUID) ([]models.Match, error) {
	matches, err := s.matchRepo.ListByTeam(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list team matches: %w", err)
	}
	return matches, nil
}

func (s *matchService) GetTeamMatch(ctx context.Context, teamID, matchID uuid.UUID) (*models.Match, error) {
	return s.loadTeamMatch(ctx, nil, teamID, matchID)
}

// UpdateTeamMatch edits score and detail fields without going through the
// save/finalize workflow. Finalized matches and matches locked by the other team are refused.
func (s *matchService) UpdateTeamMatch(ctx context.Context, teamID, matchID uuid.UUID, payload ResultPayload) (*models.Match, error) {
	normalized, err := payload.normalize()
	if err != nil {
		return nil, err
	}

	var match *models.Match
	err = withTx(ctx, s.db, s.logger, func(tx *sqlx.Tx) error {
		current, err := s.loadTeamMatch(ctx, tx, teamID, matchID)
		if err != nil {
			return err
		}
		if err := checkTeamEdit(current, teamID); err != nil {
			return err
		}

		replaceGames := normalized.applyTo(current)
		current.UpdatedAt = s.clock.Now()

		if err := s.matchRepo.UpdateGuarded(ctx, tx, current, repositories.MatchGuard{ActingTeamID: teamID}); err != nil {
			if !errors.Is(err, repositories.ErrMatchConditionFailed) {
				return fmt.Errorf("failed to update match: %w", err)
			}
			latest, err := s.loadTeamMatch(ctx, tx, teamID, matchID)
			if err != nil {
				return err
			}
			if err := checkTeamEdit(latest, teamID); err != nil {
				return err
			}
			return fmt.Errorf("%w: match changed during the update", ErrLockedByOther)
		}

		if replaceGames {
			if err := s.matchRepo.ReplaceGames(ctx, tx, current.ID, current.Games); err != nil {
				return mapMatchRepoError(err)
			}
		}
		match = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, match.TournamentID, EventMatchUpdated, match)
	return match, nil
}

func checkTeamEdit(m *models.Match, teamID uuid.UUID) error {
	if m.IsFinalized() {
		return ErrMatchFinalized
	}
	if m.LockedByOther(teamID) {
		return ErrLockedByOther
	}
	return nil
}

// DeleteTeamMatch lets the home team delete its own match while it is still a draft.
func (s *matchService) DeleteTeamMatch(ctx context.Context, teamID, matchID uuid.UUID) error {
	var match *models.Match
	err := withTx(ctx, s.db, s.logger, func(tx *sqlx.Tx) error {
		var err error
		match, err = s.loadTeamMatch(ctx, tx, teamID, matchID)
		if err != nil {
			return err
		}
		if match.TeamID != teamID {
			return ErrForbiddenOperation
		}
		if match.IsFinalized() {
			return ErrMatchFinalized
		}
		if err := s.matchRepo.DeleteDraft(ctx, tx, matchID); err != nil {
			if errors.Is(err, repositories.ErrMatchConditionFailed) {
				return ErrMatchFinalized
			}
			return mapMatchRepoError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "match deleted by team", matchLogAttrs(match), slog.String("team_id", teamID.String()))
	s.publisher.Publish(ctx, match.TournamentID, EventMatchDeleted, map[string]string{"id": match.ID.String()})
	return nil
}

func (s *matchService) loadAdminMatch(ctx context.Context, exec repositories.SQLExecutor, actorID, matchID uuid.UUID) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, exec, matchID)
	if err != nil {
		return nil, mapMatchRepoError(err)
	}
	if _, err := loadOwnedTournament(ctx, s.tournamentRepo, exec, actorID, match.TournamentID); err != nil {
		return nil, err
	}
	return match, nil
}

func (s *matchService) loadTeamMatch(ctx context.Context, exec repositories.SQLExecutor, teamID, matchID uuid.UUID) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, exec, matchID)
	if err != nil {
		return nil, mapMatchRepoError(err)
	}
	if !match.HasTeam(teamID) {
		return nil, ErrForbiddenOperation
	}
	return match, nil
}

// checkTeams verifies both teams exist, belong to the actor and are not scoped to another tournament.
func (s *matchService) checkTeams(ctx context.Context, exec repositories.SQLExecutor, actorID, tournamentID uuid.UUID, teamIDs ...uuid.UUID) error {
	for _, id := range teamIDs {
		team, err := s.teamRepo.GetByID(ctx, exec, id)
		if err != nil {
			if errors.Is(err, repositories.ErrTeamNotFound) {
				return fmt.Errorf("%w: %s", ErrTeamNotFound, id)
			}
			return fmt.Errorf("failed to load team: %w", err)
		}
		if team.CreatedBy != actorID {
			return ErrForbiddenOperation
		}
		if team.TournamentID != nil && *team.TournamentID != tournamentID {
			return fmt.Errorf("%w: %s", ErrTeamNotInTournament, team.Username)
		}
	}
	return nil
}

func mapMatchRepoError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrMatchNotFound):
		return ErrMatchNotFound
	case errors.Is(err, repositories.ErrGameNumberInvalid):
		return ErrInvalidGames
	case errors.Is(err, repositories.ErrMatchTeamInvalid):
		return ErrTeamNotFound
	default:
		return fmt.Errorf("match storage error: %w", err)
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
