package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/matchdesk/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrRoundNotFound       = errors.New("round not found")
	ErrRoundNumberConflict = errors.New("round number already exists in tournament")
	ErrRoundStatusChanged  = errors.New("round status changed concurrently")
)

type RoundRepository interface {
	Create(ctx context.Context, exec SQLExecutor, round *models.Round) error
	// GetByID returns the round only if it belongs to the tournament.
	GetByID(ctx context.Context, exec SQLExecutor, tournamentID, roundID uuid.UUID) (*models.Round, error)
	// GetLatest returns the round with the highest number, or ErrRoundNotFound.
	GetLatest(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID) (*models.Round, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID) ([]models.Round, error)
	// SetStatus moves a round from one status to another; it fails with
	// ErrRoundStatusChanged when the round is no longer in the expected status.
	SetStatus(ctx context.Context, exec SQLExecutor, roundID uuid.UUID, from, to models.RoundStatus, closedAt *time.Time) error
}

type sqlRoundRepository struct {
	db *sqlx.DB
}

func NewRoundRepository(db *sqlx.DB) RoundRepository {
	return &sqlRoundRepository{db: db}
}

const roundColumns = `id, tournament_id, number, title, status, created_at, closed_at`

func (r *sqlRoundRepository) Create(ctx context.Context, exec SQLExecutor, round *models.Round) error {
	e := getExecutor(exec, r.db)
	query := e.Rebind(`
		INSERT INTO rounds (id, tournament_id, number, title, status, created_at, closed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)

	_, err := e.ExecContext(ctx, query,
		round.ID, round.TournamentID, round.Number, round.Title, round.Status, round.CreatedAt, round.ClosedAt)
	if err != nil {
		if isUniqueViolation(err, "number") {
			return ErrRoundNumberConflict
		}
		if isForeignKeyViolation(err) {
			return ErrTournamentNotFound
		}
		return fmt.Errorf("failed to create round: %w", err)
	}
	return nil
}

func (r *sqlRoundRepository) GetByID(ctx context.Context, exec SQLExecutor, tournamentID, roundID uuid.UUID) (*models.Round, error) {
	e := getExecutor(exec, r.db)
	var round models.Round
	query := e.Rebind(`SELECT ` + roundColumns + ` FROM rounds WHERE id = ? AND tournament_id = ?`)
	if err := sqlx.GetContext(ctx, e, &round, query, roundID, tournamentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoundNotFound
		}
		return nil, fmt.Errorf("failed to get round %s: %w", roundID, err)
	}
	return &round, nil
}

func (r *sqlRoundRepository) GetLatest(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID) (*models.Round, error) {
	e := getExecutor(exec, r.db)
	var round models.Round
	query := e.Rebind(`SELECT ` + roundColumns + ` FROM rounds WHERE tournament_id = ? ORDER BY number DESC LIMIT 1`)
	if err := sqlx.GetContext(ctx, e, &round, query, tournamentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoundNotFound
		}
		return nil, fmt.Errorf("failed to get latest round: %w", err)
	}
	return &round, nil
}

func (r *sqlRoundRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID) ([]models.Round, error) {
	e := getExecutor(exec, r.db)
	rounds := make([]models.Round, 0)
	query := e.Rebind(`SELECT ` + roundColumns + ` FROM rounds WHERE tournament_id = ? ORDER BY number ASC`)
	if err := sqlx.SelectContext(ctx, e, &rounds, query, tournamentID); err != nil {
		return nil, fmt.Errorf("failed to list rounds: %w", err)
	}
	return rounds, nil
}

func (r *sqlRoundRepository) SetStatus(ctx context.Context, exec SQLExecutor, roundID uuid.UUID, from, to models.RoundStatus, closedAt *time.Time) error {
	e := getExecutor(exec, r.db)
	query := e.Rebind(`UPDATE rounds SET status = ?, closed_at = ? WHERE id = ? AND status = ?`)
	result, err := e.ExecContext(ctx, query, to, closedAt, roundID, from)
	if err != nil {
		return fmt.Errorf("failed to update round %s status: %w", roundID, err)
	}
	return checkAffectedRows(result, ErrRoundStatusChanged)
}
