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
	ErrTeamNotFound         = errors.New("team not found")
	ErrTeamUsernameConflict = errors.New("team username conflict")
	ErrTeamReferenceInvalid = errors.New("team owner or tournament invalid")
	ErrTeamInUse            = errors.New("team is referenced by matches")
)

type TeamRepository interface {
	Create(ctx context.Context, exec SQLExecutor, team *models.Team) error
	GetByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Team, error)
	GetByUsername(ctx context.Context, username string) (*models.Team, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, tournamentID *uuid.UUID) ([]models.Team, error)
	ListByTournament(ctx context.Context, tournamentID uuid.UUID) ([]models.Team, error)
	Update(ctx context.Context, exec SQLExecutor, team *models.Team) error
	Delete(ctx context.Context, exec SQLExecutor, id uuid.UUID) error
}

type sqlTeamRepository struct {
	db *sqlx.DB
}

func NewTeamRepository(db *sqlx.DB) TeamRepository {
	return &sqlTeamRepository{db: db}
}

const teamColumns = `id, name, username, tournament_id, created_by, created_at`

func (r *sqlTeamRepository) Create(ctx context.Context, exec SQLExecutor, team *models.Team) error {
	e := getExecutor(exec, r.db)
	query := e.Rebind(`
		INSERT INTO teams (id, name, username, tournament_id, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	_, err := e.ExecContext(ctx, query,
		team.ID, team.Name, team.Username, team.TournamentID, team.CreatedBy, team.CreatedAt)
	if err != nil {
		return handleTeamError(err)
	}
	return nil
}

func (r *sqlTeamRepository) GetByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Team, error) {
	e := getExecutor(exec, r.db)
	var team models.Team
	query := e.Rebind(`SELECT ` + teamColumns + ` FROM teams WHERE id = ?`)
	if err := sqlx.GetContext(ctx, e, &team, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team %s: %w", id, err)
	}
	return &team, nil
}

func (r *sqlTeamRepository) GetByUsername(ctx context.Context, username string) (*models.Team, error) {
	var team models.Team
	query := r.db.Rebind(`SELECT ` + teamColumns + ` FROM teams WHERE username = ?`)
	if err := r.db.GetContext(ctx, &team, query, username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team by username: %w", err)
	}
	return &team, nil
}

func (r *sqlTeamRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, tournamentID *uuid.UUID) ([]models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE created_by = ?`
	args := []interface{}{ownerID}
	if tournamentID != nil {
		query += ` AND tournament_id = ?`
		args = append(args, *tournamentID)
	}
	query += ` ORDER BY name ASC`

	teams := make([]models.Team, 0)
	if err := r.db.SelectContext(ctx, &teams, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	return teams, nil
}

func (r *sqlTeamRepository) ListByTournament(ctx context.Context, tournamentID uuid.UUID) ([]models.Team, error) {
	teams := make([]models.Team, 0)
	query := r.db.Rebind(`SELECT ` + teamColumns + ` FROM teams WHERE tournament_id = ? ORDER BY name ASC`)
	if err := r.db.SelectContext(ctx, &teams, query, tournamentID); err != nil {
		return nil, fmt.Errorf("failed to list tournament teams: %w", err)
	}
	return teams, nil
}

func (r *sqlTeamRepository) Update(ctx context.Context, exec SQLExecutor, team *models.Team) error {
	e := getExecutor(exec, r.db)
	query := e.Rebind(`UPDATE teams SET name = ?, tournament_id = ? WHERE id = ?`)
	result, err := e.ExecContext(ctx, query, team.Name, team.TournamentID, team.ID)
	if err != nil {
		return handleTeamError(err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *sqlTeamRepository) Delete(ctx context.Context, exec SQLExecutor, id uuid.UUID) error {
	e := getExecutor(exec, r.db)
	result, err := e.ExecContext(ctx, e.Rebind(`DELETE FROM teams WHERE id = ?`), id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrTeamInUse
		}
		return fmt.Errorf("failed to delete team %s: %w", id, err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func handleTeamError(err error) error {
	if isUniqueViolation(err, "username") {
		return ErrTeamUsernameConflict
	}
	if isForeignKeyViolation(err) {
		return ErrTeamReferenceInvalid
	}
	return fmt.Errorf("team write failed: %w", err)
}
