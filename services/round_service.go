package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Dosada05/matchdesk/clock"
	"github.com/Dosada05/matchdesk/models"
	"github.com/Dosada05/matchdesk/repositories"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// RoundService keeps rounds of a tournament in a single line: a new round can only be
// created after the latest one is closed, and only the latest round can be reopened.
type RoundService interface {
	CreateRound(ctx context.Context, input CreateRoundInput) (*models.Round, error)
	CloseRound(ctx context.Context, actorID, tournamentID, roundID uuid.UUID) (*models.Round, error)
	ReopenRound(ctx context.Context, actorID, tournamentID, roundID uuid.UUID) (*models.Round, error)
	ListRounds(ctx context.Context, actorID, tournamentID uuid.UUID) ([]models.Round, error)
}

type CreateRoundInput struct {
	TournamentID uuid.UUID `json:"-"`
	Title        *string   `json:"title"`
	ActorID      uuid.UUID `json:"-"`
}

type roundService struct {
	db             *sqlx.DB
	roundRepo      repositories.RoundRepository
	tournamentRepo repositories.TournamentRepository
	publisher      EventPublisher
	clock          clock.Clock
	logger         *slog.Logger
}

func NewRoundService(
	db *sqlx.DB,
	roundRepo repositories.RoundRepository,
	tournamentRepo repositories.TournamentRepository,
	publisher EventPublisher,
	clk clock.Clock,
	logger *slog.Logger,
) RoundService {
	return &roundService{
		db:             db,
		roundRepo:      roundRepo,
		tournamentRepo: tournamentRepo,
		publisher:      publisherOrNoop(publisher),
		clock:          clk,
		logger:         logger,
	}
}

func (s *roundService) CreateRound(ctx context.Context, input CreateRoundInput) (*models.Round, error) {
	var title *string
	if input.Title != nil {
		if trimmed := strings.TrimSpace(*input.Title); trimmed != "" {
			title = &trimmed
		}
	}

	var round *models.Round
	err := withTx(ctx, s.db, s.logger, func(tx *sqlx.Tx) error {
		if _, err := loadOwnedTournament(ctx, s.tournamentRepo, tx, input.ActorID, input.TournamentID); err != nil {
			return err
		}

		number := 1
		latest, err := s.roundRepo.GetLatest(ctx, tx, input.TournamentID)
		switch {
		case errors.Is(err, repositories.ErrRoundNotFound):
		case err != nil:
			return fmt.Errorf("failed to load latest round: %w", err)
		case !latest.IsClosed():
			return fmt.Errorf("%w: round %d is %s", ErrRoundCreationBlocked, latest.Number, latest.Status)
		default:
			number = latest.Number + 1
		}

		round = &models.Round{
			ID:           uuid.New(),
			TournamentID: input.TournamentID,
			Number:       number,
			Title:        title,
			Status:       models.RoundOpen,
			CreatedAt:    s.clock.Now(),
		}
		if err := s.roundRepo.Create(ctx, tx, round); err != nil {
			// Another request created this number first.
			if errors.Is(err, repositories.ErrRoundNumberConflict) {
				return ErrRoundCreationBlocked
			}
			return fmt.Errorf("failed to create round: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "round created",
		slog.String("tournament_id", round.TournamentID.String()), slog.Int("number", round.Number))
	s.publisher.Publish(ctx, round.TournamentID, EventRoundUpdated, round)
	return round, nil
}

func (s *roundService) CloseRound(ctx context.Context, actorID, tournamentID, roundID uuid.UUID) (*models.Round, error) {
	var round *models.Round
	err := withTx(ctx, s.db, s.logger, func(tx *sqlx.Tx) error {
		var err error
		round, err = s.loadRound(ctx, tx, actorID, tournamentID, roundID)
		if err != nil {
			return err
		}
		if round.IsClosed() {
			return ErrRoundAlreadyClosed
		}

		closedAt := s.clock.Now()
		if err := s.roundRepo.SetStatus(ctx, tx, round.ID, models.RoundOpen, models.RoundClosed, &closedAt); err != nil {
			if errors.Is(err, repositories.ErrRoundStatusChanged) {
				return ErrRoundAlreadyClosed
			}
			return fmt.Errorf("failed to close round: %w", err)
		}
		round.Status = models.RoundClosed
		round.ClosedAt = &closedAt
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, round.TournamentID, EventRoundUpdated, round)
	return round, nil
}

func (s *roundService) ReopenRound(ctx context.Context, actorID, tournamentID, roundID uuid.UUID) (*models.Round, error) {
	var round *models.Round
	err := withTx(ctx, s.db, s.logger, func(tx *sqlx.Tx) error {
		var err error
		round, err = s.loadRound(ctx, tx, actorID, tournamentID, roundID)
		if err != nil {
			return err
		}
		if !round.IsClosed() {
			return ErrRoundNotClosed
		}

		latest, err := s.roundRepo.GetLatest(ctx, tx, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to load latest round: %w", err)
		}
		if latest.ID != round.ID {
			return fmt.Errorf("%w: round %d already follows round %d", ErrRoundNotLatest, latest.Number, round.Number)
		}

		if err := s.roundRepo.SetStatus(ctx, tx, round.ID, models.RoundClosed, models.RoundOpen, nil); err != nil {
			if errors.Is(err, repositories.ErrRoundStatusChanged) {
				return ErrRoundNotClosed
			}
			return fmt.Errorf("failed to reopen round: %w", err)
		}
		round.Status = models.RoundOpen
		round.ClosedAt = nil
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, round.TournamentID, EventRoundUpdated, round)
	return round, nil
}

func (s *roundService) ListRounds(ctx context.Context, actorID, tournamentID uuid.UUID) ([]models.Round, error) {
	if _, err := loadOwnedTournament(ctx, s.tournamentRepo, nil, actorID, tournamentID); err != nil {
		return nil, err
	}
	rounds, err := s.roundRepo.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rounds: %w", err)
	}
	return rounds, nil
}

func (s *roundService) loadRound(ctx context.Context, exec repositories.SQLExecutor, actorID, tournamentID, roundID uuid.UUID) (*models.Round, error) {
	if _, err := loadOwnedTournament(ctx, s.tournamentRepo, exec, actorID, tournamentID); err != nil {
		return nil, err
	}
	round, err := s.roundRepo.GetByID(ctx, exec, tournamentID, roundID)
	if err != nil {
		if errors.Is(err, repositories.ErrRoundNotFound) {
			return nil, ErrRoundNotFound
		}
		return nil, fmt.Errorf("failed to load round: %w", err)
	}
	return round, nil
}
