package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/matchdesk/clock"
	"github.com/Dosada05/matchdesk/models"
	"github.com/Dosada05/matchdesk/repositories"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type ResultAction string

const (
	ActionSave     ResultAction = "save"
	ActionFinalize ResultAction = "finalize"
	ActionCancel   ResultAction = "cancel"
)

func (a ResultAction) Valid() bool {
	switch a {
	case ActionSave, ActionFinalize, ActionCancel:
		return true
	}
	return false
}

type SubmitResultInput struct {
	Action  ResultAction   `json:"action"`
	Payload *ResultPayload `json:"payload"`
}

// ResultService drives the team-facing result workflow of a match:
// save takes the edit lock, finalize freezes the result, cancel releases the lock.
type ResultService interface {
	SubmitResult(ctx context.Context, actingTeamID, matchID uuid.UUID, input SubmitResultInput) (*models.Match, error)
}

type resultService struct {
	db        *sqlx.DB
	matchRepo repositories.MatchRepository
	publisher EventPublisher
	archiver  ResultArchiver
	clock     clock.Clock
	logger    *slog.Logger
}

func NewResultService(
	db *sqlx.DB,
	matchRepo repositories.MatchRepository,
	publisher EventPublisher,
	archiver ResultArchiver,
	clk clock.Clock,
	logger *slog.Logger,
) ResultService {
	if archiver == nil {
		archiver = noopArchiver{}
	}
	return &resultService{
		db:        db,
		matchRepo: matchRepo,
		publisher: publisherOrNoop(publisher),
		archiver:  archiver,
		clock:     clk,
		logger:    logger,
	}
}

func (s *resultService) SubmitResult(ctx context.Context, actingTeamID, matchID uuid.UUID, input SubmitResultInput) (*models.Match, error) {
	if !input.Action.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAction, input.Action)
	}

	var (
		match *models.Match
		err   error
	)
	if input.Action == ActionCancel {
		match, err = s.cancel(ctx, actingTeamID, matchID)
	} else {
		payload := ResultPayload{}
		if input.Payload != nil {
			payload = *input.Payload
		}
		match, err = s.write(ctx, actingTeamID, matchID, input.Action, payload)
	}
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "match result submitted",
		matchLogAttrs(match),
		slog.String("action", string(input.Action)),
		slog.String("team_id", actingTeamID.String()))
	s.publisher.Publish(ctx, match.TournamentID, EventMatchUpdated, match)
	if input.Action == ActionFinalize {
		s.archiver.Archive(ctx, match)
	}
	return match, nil
}

// write applies save or finalize. The row is re-read inside the transaction and written
// with a guarded update, so a team that lost a race gets the same error it would have
// got had it arrived second.
func (s *resultService) write(ctx context.Context, actingTeamID, matchID uuid.UUID, action ResultAction, payload ResultPayload) (*models.Match, error) {
	normalized, err := payload.normalize()
	if err != nil {
		return nil, err
	}

	var match *models.Match
	err = withTx(ctx, s.db, s.logger, func(tx *sqlx.Tx) error {
		current, err := s.loadMatch(ctx, tx, matchID)
		if err != nil {
			return err
		}
		if err := checkResultWrite(current, actingTeamID); err != nil {
			return err
		}

		replaceGames := normalized.applyTo(current)
		now := s.clock.Now()
		current.UpdatedAt = now
		if action == ActionFinalize {
			current.ResultStatus = models.ResultFinalized
			current.LockedBy = nil
			current.LockedAt = nil
			current.FinalizedAt = &now
		} else {
			team := actingTeamID
			current.ResultStatus = models.ResultDraft
			current.LockedBy = &team
			current.LockedAt = &now
		}

		guard := repositories.MatchGuard{ActingTeamID: actingTeamID, RequireInputPermission: true}
		if err := s.matchRepo.UpdateGuarded(ctx, tx, current, guard); err != nil {
			if errors.Is(err, repositories.ErrMatchConditionFailed) {
				return s.classifyLostWrite(ctx, tx, matchID, actingTeamID)
			}
			return fmt.Errorf("failed to write match result: %w", err)
		}

		if replaceGames {
			if err := s.matchRepo.ReplaceGames(ctx, tx, current.ID, current.Games); err != nil {
				if errors.Is(err, repositories.ErrGameNumberInvalid) {
					return ErrInvalidGames
				}
				return fmt.Errorf("failed to write match games: %w", err)
			}
		}
		match = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return match, nil
}

// cancel releases the edit lock. It never touches the status or the saved fields.
func (s *resultService) cancel(ctx context.Context, actingTeamID, matchID uuid.UUID) (*models.Match, error) {
	var match *models.Match
	err := withTx(ctx, s.db, s.logger, func(tx *sqlx.Tx) error {
		current, err := s.loadMatch(ctx, tx, matchID)
		if err != nil {
			return err
		}
		if err := ResolvePermission(current, actingTeamID).Err(); err != nil {
			return err
		}

		now := s.clock.Now()
		if err := s.matchRepo.ClearLock(ctx, tx, current.ID, now); err != nil {
			if errors.Is(err, repositories.ErrMatchNotFound) {
				return ErrMatchNotFound
			}
			return fmt.Errorf("failed to release match lock: %w", err)
		}
		current.LockedBy = nil
		current.LockedAt = nil
		current.UpdatedAt = now
		match = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return match, nil
}

// checkResultWrite applies the save/finalize guards to the current row.
// State conflicts are reported before the input gate.
func checkResultWrite(m *models.Match, actingTeamID uuid.UUID) error {
	if m.IsFinalized() {
		return ErrAlreadyFinalized
	}
	if m.LockedByOther(actingTeamID) {
		return ErrLockedByOther
	}
	return ResolvePermission(m, actingTeamID).Err()
}

// classifyLostWrite explains why a guarded update matched no row.
func (s *resultService) classifyLostWrite(ctx context.Context, exec repositories.SQLExecutor, matchID, actingTeamID uuid.UUID) error {
	current, err := s.loadMatch(ctx, exec, matchID)
	if err != nil {
		return err
	}
	if err := checkResultWrite(current, actingTeamID); err != nil {
		s.logger.InfoContext(ctx, "guarded result write lost a race",
			matchLogAttrs(current), slog.String("team_id", actingTeamID.String()), slog.Any("reason", err))
		return err
	}
	return fmt.Errorf("%w: match changed during the update", ErrLockedByOther)
}

func (s *resultService) loadMatch(ctx context.Context, exec repositories.SQLExecutor, matchID uuid.UUID) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, exec, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to load match: %w", err)
	}
	return match, nil
}
