package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/Dosada05/matchdesk/clock"
	"github.com/Dosada05/matchdesk/models"
	"github.com/Dosada05/matchdesk/repositories"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

type AuthService interface {
	// RegisterAdmin is the public sign-up; it is refused unless enabled in the config.
	RegisterAdmin(ctx context.Context, input models.Credentials) (*models.Identity, error)
	// CreateAdmin creates an administrator unconditionally (operator CLI).
	CreateAdmin(ctx context.Context, input models.Credentials) (*models.Identity, error)
	LoginAdmin(ctx context.Context, input models.Credentials) (*models.Identity, error)
	LoginTeam(ctx context.Context, input TeamLoginInput) (*models.Identity, *models.Team, error)
}

type TeamLoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authService struct {
	identityRepo     repositories.IdentityRepository
	teamRepo         repositories.TeamRepository
	allowAdminSignup bool
	clock            clock.Clock
	logger           *slog.Logger
}

func NewAuthService(
	identityRepo repositories.IdentityRepository,
	teamRepo repositories.TeamRepository,
	allowAdminSignup bool,
	clk clock.Clock,
	logger *slog.Logger,
) AuthService {
	return &authService{
		identityRepo:     identityRepo,
		teamRepo:         teamRepo,
		allowAdminSignup: allowAdminSignup,
		clock:            clk,
		logger:           logger,
	}
}

func (s *authService) RegisterAdmin(ctx context.Context, input models.Credentials) (*models.Identity, error) {
	if !s.allowAdminSignup {
		return nil, ErrAdminSignupDisabled
	}
	return s.CreateAdmin(ctx, input)
}

func (s *authService) CreateAdmin(ctx context.Context, input models.Credentials) (*models.Identity, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email", ErrValidationFailed)
	}
	if len(input.Password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("ошибка хеширования пароля: %w", err)
	}

	identity := &models.Identity{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hashedPassword),
		Role:         models.RoleAdmin,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.identityRepo.Create(ctx, identity); err != nil {
		if errors.Is(err, repositories.ErrIdentityEmailConflict) {
			return nil, ErrAuthEmailTaken
		}
		return nil, fmt.Errorf("failed to create admin: %w", err)
	}

	s.logger.InfoContext(ctx, "admin created", slog.String("admin_id", identity.ID.String()))
	return identity, nil
}

func (s *authService) LoginAdmin(ctx context.Context, input models.Credentials) (*models.Identity, error) {
	identity, err := s.identityRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(input.Email)))
	if err != nil {
		if errors.Is(err, repositories.ErrIdentityNotFound) {
			return nil, ErrAuthInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load identity: %w", err)
	}
	if identity.Role != models.RoleAdmin {
		return nil, ErrAuthInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrAuthInvalidCredentials
	}
	return identity, nil
}

func (s *authService) LoginTeam(ctx context.Context, input TeamLoginInput) (*models.Identity, *models.Team, error) {
	team, err := s.teamRepo.GetByUsername(ctx, strings.TrimSpace(input.Username))
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, nil, ErrAuthInvalidCredentials
		}
		return nil, nil, fmt.Errorf("failed to load team: %w", err)
	}

	identity, err := s.identityRepo.GetByTeamID(ctx, team.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrIdentityNotFound) {
			s.logger.WarnContext(ctx, "team has no login identity", slog.String("team_id", team.ID.String()))
			return nil, nil, ErrAuthInvalidCredentials
		}
		return nil, nil, fmt.Errorf("failed to load team identity: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(input.Password)); err != nil {
		return nil, nil, ErrAuthInvalidCredentials
	}
	return identity, team, nil
}
