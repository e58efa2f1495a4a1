package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/matchdesk/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrParticipantNotFound = errors.New("participant not found")

type ParticipantRepository interface {
	Create(ctx context.Context, participant *models.Participant) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Participant, error)
	ListByTeam(ctx context.Context, teamID uuid.UUID) ([]models.Participant, error)
	Update(ctx context.Context, participant *models.Participant) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type sqlParticipantRepository struct {
	db *sqlx.DB
}

func NewParticipantRepository(db *sqlx.DB) ParticipantRepository {
	return &sqlParticipantRepository{db: db}
}

const participantColumns = `id, team_id, name, can_edit, created_by, created_at`

func (r *sqlParticipantRepository) Create(ctx context.Context, p *models.Participant) error {
	query := r.db.Rebind(`
		INSERT INTO participants (id, team_id, name, can_edit, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query, p.ID, p.TeamID, p.Name, p.CanEdit, p.CreatedBy, p.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrTeamNotFound
		}
		return fmt.Errorf("failed to create participant: %w", err)
	}
	return nil
}

func (r *sqlParticipantRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Participant, error) {
	var p models.Participant
	query := r.db.Rebind(`SELECT ` + participantColumns + ` FROM participants WHERE id = ?`)
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to get participant %s: %w", id, err)
	}
	return &p, nil
}

func (r *sqlParticipantRepository) ListByTeam(ctx context.Context, teamID uuid.UUID) ([]models.Participant, error) {
	participants := make([]models.Participant, 0)
	query := r.db.Rebind(`SELECT ` + participantColumns + ` FROM participants WHERE team_id = ? ORDER BY created_at ASC, name ASC`)
	if err := r.db.SelectContext(ctx, &participants, query, teamID); err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	return participants, nil
}

func (r *sqlParticipantRepository) Update(ctx context.Context, p *models.Participant) error {
	query := r.db.Rebind(`UPDATE participants SET name = ?, can_edit = ? WHERE id = ?`)
	result, err := r.db.ExecContext(ctx, query, p.Name, p.CanEdit, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update participant %s: %w", p.ID, err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *sqlParticipantRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM participants WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete participant %s: %w", id, err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}
