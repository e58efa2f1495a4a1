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
	ErrTournamentNotFound     = errors.New("tournament not found")
	ErrTournamentSlugConflict = errors.New("tournament slug conflict")
	ErrTournamentOwnerInvalid = errors.New("tournament owner invalid")
)

type TournamentRepository interface {
	Create(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Tournament, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Tournament, error)
	Update(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error
	Delete(ctx context.Context, exec SQLExecutor, id uuid.UUID) error
}

type sqlTournamentRepository struct {
	db *sqlx.DB
}

func NewTournamentRepository(db *sqlx.DB) TournamentRepository {
	return &sqlTournamentRepository{db: db}
}

const tournamentColumns = `id, name, slug, description, created_by, created_at`

func (r *sqlTournamentRepository) Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	e := getExecutor(exec, r.db)
	query := e.Rebind(`
		INSERT INTO tournaments (id, name, slug, description, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`)

	_, err := e.ExecContext(ctx, query, t.ID, t.Name, t.Slug, t.Description, t.CreatedBy, t.CreatedAt)
	if err != nil {
		return handleTournamentError(err)
	}
	return nil
}

func (r *sqlTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Tournament, error) {
	e := getExecutor(exec, r.db)
	var t models.Tournament
	query := e.Rebind(`SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = ?`)
	if err := sqlx.GetContext(ctx, e, &t, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %s: %w", id, err)
	}
	return &t, nil
}

func (r *sqlTournamentRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Tournament, error) {
	tournaments := make([]models.Tournament, 0)
	query := r.db.Rebind(`SELECT ` + tournamentColumns + ` FROM tournaments WHERE created_by = ? ORDER BY created_at DESC, name ASC`)
	if err := r.db.SelectContext(ctx, &tournaments, query, ownerID); err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	return tournaments, nil
}

func (r *sqlTournamentRepository) Update(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	e := getExecutor(exec, r.db)
	query := e.Rebind(`UPDATE tournaments SET name = ?, description = ? WHERE id = ?`)
	result, err := e.ExecContext(ctx, query, t.Name, t.Description, t.ID)
	if err != nil {
		return handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *sqlTournamentRepository) Delete(ctx context.Context, exec SQLExecutor, id uuid.UUID) error {
	e := getExecutor(exec, r.db)
	result, err := e.ExecContext(ctx, e.Rebind(`DELETE FROM tournaments WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete tournament %s: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func handleTournamentError(err error) error {
	if isUniqueViolation(err, "slug") {
		return ErrTournamentSlugConflict
	}
	if isForeignKeyViolation(err) {
		return ErrTournamentOwnerInvalid
	}
	return err
}
