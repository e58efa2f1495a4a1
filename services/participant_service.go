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
)

// ParticipantService инкапсулирует бизнес-логику для игроков команды.
type ParticipantService struct {
	repo     repositories.ParticipantRepository
	teamRepo repositories.TeamRepository
	clock    clock.Clock
	logger   *slog.Logger
}

type ParticipantInput struct {
	Name    string `json:"name"`
	CanEdit bool   `json:"can_edit"`
}

// NewParticipantService создаёт ParticipantService с внедрением зависимостей.
func NewParticipantService(
	repo repositories.ParticipantRepository,
	teamRepo repositories.TeamRepository,
	clk clock.Clock,
	logger *slog.Logger,
) *ParticipantService {
	return &ParticipantService{
		repo:     repo,
		teamRepo: teamRepo,
		clock:    clk,
		logger:   logger,
	}
}

// AddParticipant добавляет игрока в команду администратора.
func (s *ParticipantService) AddParticipant(ctx context.Context, actorID, teamID uuid.UUID, input ParticipantInput) (*models.Participant, error) {
	if err := s.checkTeamOwner(ctx, actorID, teamID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrParticipantNameNeeded
	}

	participant := &models.Participant{
		ID:        uuid.New(),
		TeamID:    teamID,
		Name:      name,
		CanEdit:   input.CanEdit,
		CreatedBy: actorID,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.Create(ctx, participant); err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("ошибка при добавлении участника: %w", err)
	}
	return participant, nil
}

// ListParticipants возвращает игроков команды, принадлежащей администратору.
func (s *ParticipantService) ListParticipants(ctx context.Context, actorID, teamID uuid.UUID) ([]models.Participant, error) {
	if err := s.checkTeamOwner(ctx, actorID, teamID); err != nil {
		return nil, err
	}
	return s.ListTeamParticipants(ctx, teamID)
}

// ListTeamParticipants отдаёт состав самой команде.
func (s *ParticipantService) ListTeamParticipants(ctx context.Context, teamID uuid.UUID) ([]models.Participant, error) {
	participants, err := s.repo.ListByTeam(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении участников: %w", err)
	}
	return participants, nil
}

func (s *ParticipantService) UpdateParticipant(ctx context.Context, actorID, participantID uuid.UUID, input ParticipantInput) (*models.Participant, error) {
	participant, err := s.loadOwnedParticipant(ctx, actorID, participantID)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrParticipantNameNeeded
	}
	participant.Name = name
	participant.CanEdit = input.CanEdit

	if err := s.repo.Update(ctx, participant); err != nil {
		if errors.Is(err, repositories.ErrParticipantNotFound) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("ошибка при обновлении участника: %w", err)
	}
	return participant, nil
}

func (s *ParticipantService) RemoveParticipant(ctx context.Context, actorID, participantID uuid.UUID) error {
	if _, err := s.loadOwnedParticipant(ctx, actorID, participantID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, participantID); err != nil {
		if errors.Is(err, repositories.ErrParticipantNotFound) {
			return ErrParticipantNotFound
		}
		return fmt.Errorf("ошибка при удалении участника: %w", err)
	}
	s.logger.InfoContext(ctx, "participant removed", slog.String("participant_id", participantID.String()))
	return nil
}

func (s *ParticipantService) loadOwnedParticipant(ctx context.Context, actorID, participantID uuid.UUID) (*models.Participant, error) {
	participant, err := s.repo.GetByID(ctx, participantID)
	if err != nil {
		if errors.Is(err, repositories.ErrParticipantNotFound) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("ошибка при получении участника: %w", err)
	}
	if err := s.checkTeamOwner(ctx, actorID, participant.TeamID); err != nil {
		return nil, err
	}
	return participant, nil
}

func (s *ParticipantService) checkTeamOwner(ctx context.Context, actorID, teamID uuid.UUID) error {
	team, err := s.teamRepo.GetByID(ctx, nil, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return ErrTeamNotFound
		}
		return fmt.Errorf("ошибка при проверке команды: %w", err)
	}
	if team.CreatedBy != actorID {
		return ErrForbiddenOperation
	}
	return nil
}
