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
	"golang.org/x/sync/errgroup"
)

type TournamentService interface {
	CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error)
	GetTournament(ctx context.Context, actorID, tournamentID uuid.UUID) (*models.Tournament, error)
	ListTournaments(ctx context.Context, actorID uuid.UUID) ([]models.Tournament, error)
	UpdateTournament(ctx context.Context, actorID, tournamentID uuid.UUID, input UpdateTournamentInput) (*models.Tournament, error)
	DeleteTournament(ctx context.Context, actorID, tournamentID uuid.UUID) error
	GetOverview(ctx context.Context, actorID, tournamentID uuid.UUID) (*models.TournamentOverview, error)
}

type CreateTournamentInput struct {
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description *string   `json:"description"`
	CreatorID   uuid.UUID `json:"-"`
}

type UpdateTournamentInput struct {
	Name        *string                 `json:"name"`
	Description models.Optional[string] `json:"description"`
}

type tournamentService struct {
	tournamentRepo repositories.TournamentRepository
	roundRepo      repositories.RoundRepository
	matchRepo      repositories.MatchRepository
	teamRepo       repositories.TeamRepository
	clock          clock.Clock
	logger         *slog.Logger
}

func NewTournamentService(
	tournamentRepo repositories.TournamentRepository,
	roundRepo repositories.RoundRepository,
	matchRepo repositories.MatchRepository,
	teamRepo repositories.TeamRepository,
	clk clock.Clock,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		tournamentRepo: tournamentRepo,
		roundRepo:      roundRepo,
		matchRepo:      matchRepo,
		teamRepo:       teamRepo,
		clock:          clk,
		logger:         logger,
	}
}

func (s *tournamentService) CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrTournamentNameRequired
	}
	slug := strings.TrimSpace(input.Slug)
	if slug == "" {
		slug = slugify(name)
	}
	if !isValidSlug(slug) {
		return nil, fmt.Errorf("%w: %q", ErrTournamentSlugInvalid, slug)
	}

	tournament := &models.Tournament{
		ID:          uuid.New(),
		Name:        name,
		Slug:        slug,
		Description: input.Description,
		CreatedBy:   input.CreatorID,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.tournamentRepo.Create(ctx, nil, tournament); err != nil {
		if errors.Is(err, repositories.ErrTournamentSlugConflict) {
			return nil, ErrTournamentSlugConflict
		}
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}

	s.logger.InfoContext(ctx, "tournament created",
		slog.String("tournament_id", tournament.ID.String()), slog.String("slug", tournament.Slug))
	return tournament, nil
}

func (s *tournamentService) GetTournament(ctx context.Context, actorID, tournamentID uuid.UUID) (*models.Tournament, error) {
	return loadOwnedTournament(ctx, s.tournamentRepo, nil, actorID, tournamentID)
}

func (s *tournamentService) ListTournaments(ctx context.Context, actorID uuid.UUID) ([]models.Tournament, error) {
	tournaments, err := s.tournamentRepo.ListByOwner(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	return tournaments, nil
}

func (s *tournamentService) UpdateTournament(ctx context.Context, actorID, tournamentID uuid.UUID, input UpdateTournamentInput) (*models.Tournament, error) {
	tournament, err := loadOwnedTournament(ctx, s.tournamentRepo, nil, actorID, tournamentID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrTournamentNameRequired
		}
		tournament.Name = name
	}
	if input.Description.Set {
		tournament.Description = input.Description.Ptr()
	}

	if err := s.tournamentRepo.Update(ctx, nil, tournament); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to update tournament: %w", err)
	}
	return tournament, nil
}

func (s *tournamentService) DeleteTournament(ctx context.Context, actorID, tournamentID uuid.UUID) error {
	if _, err := loadOwnedTournament(ctx, s.tournamentRepo, nil, actorID, tournamentID); err != nil {
		return err
	}
	if err := s.tournamentRepo.Delete(ctx, nil, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return fmt.Errorf("failed to delete tournament: %w", err)
	}
	s.logger.InfoContext(ctx, "tournament deleted", slog.String("tournament_id", tournamentID.String()))
	return nil
}

// GetOverview loads rounds, matches and teams of a tournament in parallel.
func (s *tournamentService) GetOverview(ctx context.Context, actorID, tournamentID uuid.UUID) (*models.TournamentOverview, error) {
	tournament, err := loadOwnedTournament(ctx, s.tournamentRepo, nil, actorID, tournamentID)
	if err != nil {
		return nil, err
	}

	overview := &models.TournamentOverview{Tournament: tournament}
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rounds, err := s.roundRepo.ListByTournament(gCtx, nil, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to load rounds: %w", err)
		}
		overview.Rounds = rounds
		return nil
	})
	g.Go(func() error {
		matches, err := s.matchRepo.List(gCtx, nil, repositories.MatchFilter{TournamentID: tournamentID})
		if err != nil {
			return fmt.Errorf("failed to load matches: %w", err)
		}
		overview.Matches = matches
		return nil
	})
	g.Go(func() error {
		teams, err := s.teamRepo.ListByTournament(gCtx, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to load teams: %w", err)
		}
		overview.Teams = teams
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return overview, nil
}

// loadOwnedTournament fetches a tournament and checks that actorID created it.
func loadOwnedTournament(ctx context.Context, repo repositories.TournamentRepository, exec repositories.SQLExecutor, actorID, tournamentID uuid.UUID) (*models.Tournament, error) {
	tournament, err := repo.GetByID(ctx, exec, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament: %w", err)
	}
	if tournament.CreatedBy != actorID {
		return nil, ErrForbiddenOperation
	}
	return tournament, nil
}
