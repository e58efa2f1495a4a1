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
	"golang.org/x/crypto/bcrypt"
)

const (
	teamPasswordLength = 16
	teamEmailDomain    = "teams.matchdesk.local"
)

type TeamService interface {
	CreateTeam(ctx context.Context, input CreateTeamInput) (*models.TeamCredentials, error)
	GetTeam(ctx context.Context, actorID, teamID uuid.UUID) (*models.Team, error)
	ListTeams(ctx context.Context, actorID uuid.UUID, tournamentID *uuid.UUID) ([]models.Team, error)
	UpdateTeam(ctx context.Context, actorID, teamID uuid.UUID, input UpdateTeamInput) (*models.Team, error)
	DeleteTeam(ctx context.Context, actorID, teamID uuid.UUID) error
	ResetPassword(ctx context.Context, actorID, teamID uuid.UUID) (*models.TeamCredentials, error)
	// GetOwnTeam is used by a logged-in team.
	GetOwnTeam(ctx context.Context, teamID uuid.UUID) (*models.Team, error)
}

type CreateTeamInput struct {
	Name         string     `json:"name"`
	Username     string     `json:"username"`
	TournamentID *uuid.UUID `json:"tournament_id"`
	ActorID      uuid.UUID  `json:"-"`
}

type UpdateTeamInput struct {
	Name         *string                    `json:"name"`
	TournamentID models.Optional[uuid.UUID] `json:"tournament_id"`
}

type teamService struct {
	teamRepo       repositories.TeamRepository
	identityRepo   repositories.IdentityRepository
	tournamentRepo repositories.TournamentRepository
	clock          clock.Clock
	logger         *slog.Logger
}

func NewTeamService(
	teamRepo repositories.TeamRepository,
	identityRepo repositories.IdentityRepository,
	tournamentRepo repositories.TournamentRepository,
	clk clock.Clock,
	logger *slog.Logger,
) TeamService {
	return &teamService{
		teamRepo:       teamRepo,
		identityRepo:   identityRepo,
		tournamentRepo: tournamentRepo,
		clock:          clk,
		logger:         logger,
	}
}

func teamEmail(username string, ownerID uuid.UUID) string {
	return fmt.Sprintf("%s.%s@%s", username, ownerID.String()[:8], teamEmailDomain)
}

// newTeamPassword returns a fresh one-time password and its bcrypt hash.
func newTeamPassword() (string, string, error) {
	password, err := generateRandomToken(teamPasswordLength)
	if err != nil {
		return "", "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", "", fmt.Errorf("ошибка хеширования пароля: %w", err)
	}
	return password, string(hash), nil
}

// CreateTeam writes the team row and then its login identity. The identity lives in
// a separate write, so a failure there deletes the team again.
func (s *teamService) CreateTeam(ctx context.Context, input CreateTeamInput) (*models.TeamCredentials, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrTeamNameRequired
	}
	username := strings.ToLower(strings.TrimSpace(input.Username))
	if username == "" {
		username = slugify(name)
	}
	if !isValidSlug(username) {
		return nil, fmt.Errorf("%w: %q", ErrTeamUsernameInvalid, username)
	}
	if input.TournamentID != nil {
		if _, err := loadOwnedTournament(ctx, s.tournamentRepo, nil, input.ActorID, *input.TournamentID); err != nil {
			return nil, err
		}
	}

	password, hash, err := newTeamPassword()
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	team := &models.Team{
		ID:           uuid.New(),
		Name:         name,
		Username:     username,
		TournamentID: input.TournamentID,
		CreatedBy:    input.ActorID,
		CreatedAt:    now,
	}
	if err := s.teamRepo.Create(ctx, nil, team); err != nil {
		if errors.Is(err, repositories.ErrTeamUsernameConflict) {
			return nil, ErrTeamUsernameConflict
		}
		return nil, fmt.Errorf("failed to create team: %w", err)
	}

	teamID := team.ID
	identity := &models.Identity{
		ID:           uuid.New(),
		Email:        teamEmail(username, input.ActorID),
		PasswordHash: hash,
		Role:         models.RoleTeam,
		TeamID:       &teamID,
		CreatedAt:    now,
	}
	if err := s.identityRepo.Create(ctx, identity); err != nil {
		if delErr := s.teamRepo.Delete(ctx, nil, team.ID); delErr != nil {
			s.logger.ErrorContext(ctx, "failed to roll back team after identity error",
				slog.String("team_id", team.ID.String()), slog.Any("error", delErr))
		}
		if errors.Is(err, repositories.ErrIdentityEmailConflict) {
			return nil, ErrTeamUsernameConflict
		}
		return nil, fmt.Errorf("failed to create team identity: %w", err)
	}

	s.logger.InfoContext(ctx, "team created",
		slog.String("team_id", team.ID.String()), slog.String("username", team.Username))
	return &models.TeamCredentials{Team: team, Email: identity.Email, Password: password}, nil
}

func (s *teamService) GetTeam(ctx context.Context, actorID, teamID uuid.UUID) (*models.Team, error) {
	return s.loadOwnedTeam(ctx, actorID, teamID)
}

func (s *teamService) ListTeams(ctx context.Context, actorID uuid.UUID, tournamentID *uuid.UUID) ([]models.Team, error) {
	teams, err := s.teamRepo.ListByOwner(ctx, actorID, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	return teams, nil
}

func (s *teamService) UpdateTeam(ctx context.Context, actorID, teamID uuid.UUID, input UpdateTeamInput) (*models.Team, error) {
	team, err := s.loadOwnedTeam(ctx, actorID, teamID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrTeamNameRequired
		}
		team.Name = name
	}
	if input.TournamentID.Set {
		if !input.TournamentID.Null {
			if _, err := loadOwnedTournament(ctx, s.tournamentRepo, nil, actorID, input.TournamentID.Value); err != nil {
				return nil, err
			}
		}
		team.TournamentID = input.TournamentID.Ptr()
	}

	if err := s.teamRepo.Update(ctx, nil, team); err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to update team: %w", err)
	}
	return team, nil
}

// DeleteTeam removes a team that plays no match, together with its login.
func (s *teamService) DeleteTeam(ctx context.Context, actorID, teamID uuid.UUID) error {
	if _, err := s.loadOwnedTeam(ctx, actorID, teamID); err != nil {
		return err
	}
	if err := s.teamRepo.Delete(ctx, nil, teamID); err != nil {
		switch {
		case errors.Is(err, repositories.ErrTeamInUse):
			return ErrTeamInUse
		case errors.Is(err, repositories.ErrTeamNotFound):
			return ErrTeamNotFound
		}
		return fmt.Errorf("failed to delete team: %w", err)
	}
	if err := s.identityRepo.DeleteByTeamID(ctx, teamID); err != nil {
		return fmt.Errorf("failed to delete team identity: %w", err)
	}

	s.logger.InfoContext(ctx, "team deleted", slog.String("team_id", teamID.String()))
	return nil
}

func (s *teamService) ResetPassword(ctx context.Context, actorID, teamID uuid.UUID) (*models.TeamCredentials, error) {
	team, err := s.loadOwnedTeam(ctx, actorID, teamID)
	if err != nil {
		return nil, err
	}
	identity, err := s.identityRepo.GetByTeamID(ctx, team.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load team identity: %w", err)
	}

	password, hash, err := newTeamPassword()
	if err != nil {
		return nil, err
	}
	if err := s.identityRepo.UpdatePassword(ctx, identity.ID, hash); err != nil {
		return nil, fmt.Errorf("failed to update team password: %w", err)
	}

	s.logger.InfoContext(ctx, "team password reset", slog.String("team_id", team.ID.String()))
	return &models.TeamCredentials{Team: team, Email: identity.Email, Password: password}, nil
}

func (s *teamService) GetOwnTeam(ctx context.Context, teamID uuid.UUID) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, nil, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to load team: %w", err)
	}
	return team, nil
}

func (s *teamService) loadOwnedTeam(ctx context.Context, actorID, teamID uuid.UUID) (*models.Team, error) {
	team, err := s.GetOwnTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if team.CreatedBy != actorID {
		return nil, ErrForbiddenOperation
	}
	return team, nil
}
