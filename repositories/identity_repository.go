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

var (
	ErrIdentityNotFound      = errors.New("identity not found")
	ErrIdentityEmailConflict = errors.New("identity email conflict")
)

// IdentityRepository stores login credentials separately from the domain tables.
type IdentityRepository interface {
	Create(ctx context.Context, identity *models.Identity) error
	GetByEmail(ctx context.Context, email string) (*models.Identity, error)
	GetByTeamID(ctx context.Context, teamID uuid.UUID) (*models.Identity, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	DeleteByTeamID(ctx context.Context, teamID uuid.UUID) error
}

type sqlIdentityRepository struct {
	db *sqlx.DB
}

func NewIdentityRepository(db *sqlx.DB) IdentityRepository {
	return &sqlIdentityRepository{db: db}
}

const identityColumns = `id, email, password_hash, role, team_id, created_at`

func (r *sqlIdentityRepository) Create(ctx context.Context, identity *models.Identity) error {
	query := r.db.Rebind(`
		INSERT INTO identities (id, email, password_hash, role, team_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query,
		identity.ID, identity.Email, identity.PasswordHash, identity.Role, identity.TeamID, identity.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "email") {
			return ErrIdentityEmailConflict
		}
		return fmt.Errorf("failed to create identity: %w", err)
	}
	return nil
}

func (r *sqlIdentityRepository) GetByEmail(ctx context.Context, email string) (*models.Identity, error) {
	return r.getOne(ctx, `email = ?`, email)
}

func (r *sqlIdentityRepository) GetByTeamID(ctx context.Context, teamID uuid.UUID) (*models.Identity, error) {
	return r.getOne(ctx, `team_id = ?`, teamID)
}

func (r *sqlIdentityRepository) getOne(ctx context.Context, where string, arg interface{}) (*models.Identity, error) {
	var identity models.Identity
	query := r.db.Rebind(`SELECT ` + identityColumns + ` FROM identities WHERE ` + where)
	if err := r.db.GetContext(ctx, &identity, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrIdentityNotFound
		}
		return nil, fmt.Errorf("failed to get identity: %w", err)
	}
	return &identity, nil
}

func (r *sqlIdentityRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	query := r.db.Rebind(`UPDATE identities SET password_hash = ? WHERE id = ?`)
	result, err := r.db.ExecContext(ctx, query, passwordHash, id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return checkAffectedRows(result, ErrIdentityNotFound)
}

func (r *sqlIdentityRepository) DeleteByTeamID(ctx context.Context, teamID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM identities WHERE team_id = ?`), teamID)
	if err != nil {
		return fmt.Errorf("failed to delete team identity: %w", err)
	}
	return nil
}
