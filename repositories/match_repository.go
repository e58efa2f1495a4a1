package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dosada05/matchdesk/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrMatchNotFound     = errors.New("match not found")
	ErrMatchTeamInvalid  = errors.New("match references an unknown tournament, round or team")
	ErrGameNumberInvalid = errors.New("duplicate game number in match")
	// ErrMatchConditionFailed means a guarded write matched no row: the match is gone,
	// or its status, lock or permission no longer satisfy the guard.
	ErrMatchConditionFailed = errors.New("match changed concurrently")
)

// MatchGuard restricts a write to matches that are still draft and not locked by
// another team. With RequireInputPermission the acting team must also be the one
// allowed to input the result.
type MatchGuard struct {
	ActingTeamID           uuid.UUID
	RequireInputPermission bool
}

type MatchFilter struct {
	TournamentID uuid.UUID
	RoundID      *uuid.UUID
}

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Match, error)
	List(ctx context.Context, exec SQLExecutor, filter MatchFilter) ([]models.Match, error)
	ListByTeam(ctx context.Context, teamID uuid.UUID) ([]models.Match, error)
	// Update writes every mutable column without any guard.
	Update(ctx context.Context, exec SQLExecutor, match *models.Match) error
	// UpdateGuarded writes the same columns as Update, but only if guard still holds
	// against the current row. It returns ErrMatchConditionFailed otherwise.
	UpdateGuarded(ctx context.Context, exec SQLExecutor, match *models.Match, guard MatchGuard) error
	ClearLock(ctx context.Context, exec SQLExecutor, id uuid.UUID, updatedAt time.Time) error
	Delete(ctx context.Context, exec SQLExecutor, id uuid.UUID) error
	// DeleteDraft removes the match only while it is not finalized.
	DeleteDraft(ctx context.Context, exec SQLExecutor, id uuid.UUID) error
	ReplaceGames(ctx context.Context, exec SQLExecutor, matchID uuid.UUID, games []models.GameResult) error
}

type sqlMatchRepository struct {
	db *sqlx.DB
}

func NewMatchRepository(db *sqlx.DB) MatchRepository {
	return &sqlMatchRepository{db: db}
}

const matchColumns = `id, tournament_id, round_id, team_id, opponent_team_id,
	player, opponent_player, deck, opponent_deck, self_score, opponent_score, match_date,
	input_allowed_team_id, locked_by, locked_at, result_status, finalized_at, created_at, updated_at`

const gameColumns = `match_id, game_number, player, opponent_player, deck, opponent_deck, self_score, opponent_score`

func (r *sqlMatchRepository) Create(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	e := getExecutor(exec, r.db)
	query := e.Rebind(`
		INSERT INTO matches (` + matchColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err := e.ExecContext(ctx, query,
		m.ID, m.TournamentID, m.RoundID, m.TeamID, m.OpponentTeamID,
		m.Player, m.OpponentPlayer, m.Deck, m.OpponentDeck, m.SelfScore, m.OpponentScore, m.Date,
		m.InputAllowedTeamID, m.LockedBy, m.LockedAt, m.ResultStatus, m.FinalizedAt, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrMatchTeamInvalid
		}
		return fmt.Errorf("failed to create match: %w", err)
	}

	if len(m.Games) > 0 {
		return r.ReplaceGames(ctx, e, m.ID, m.Games)
	}
	return nil
}

func (r *sqlMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Match, error) {
	e := getExecutor(exec, r.db)
	var m models.Match
	query := e.Rebind(`SELECT ` + matchColumns + ` FROM matches WHERE id = ?`)
	if err := sqlx.GetContext(ctx, e, &m, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match %s: %w", id, err)
	}

	games, err := r.gamesFor(ctx, e, []uuid.UUID{m.ID})
	if err != nil {
		return nil, err
	}
	m.Games = games[m.ID]
	if m.Games == nil {
		m.Games = []models.GameResult{}
	}
	return &m, nil
}

func (r *sqlMatchRepository) List(ctx context.Context, exec SQLExecutor, filter MatchFilter) ([]models.Match, error) {
	e := getExecutor(exec, r.db)

	var qb strings.Builder
	args := []interface{}{filter.TournamentID}
	qb.WriteString(`SELECT ` + matchColumns + ` FROM matches WHERE tournament_id = ?`)
	if filter.RoundID != nil {
		qb.WriteString(` AND round_id = ?`)
		args = append(args, *filter.RoundID)
	}
	qb.WriteString(` ORDER BY created_at ASC, id ASC`)

	matches := make([]models.Match, 0)
	if err := sqlx.SelectContext(ctx, e, &matches, e.Rebind(qb.String()), args...); err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	return r.attachGames(ctx, e, matches)
}

func (r *sqlMatchRepository) ListByTeam(ctx context.Context, teamID uuid.UUID) ([]models.Match, error) {
	matches := make([]models.Match, 0)
	query := r.db.Rebind(`SELECT ` + matchColumns + ` FROM matches
		WHERE team_id = ? OR opponent_team_id = ?
		ORDER BY created_at ASC, id ASC`)
	if err := r.db.SelectContext(ctx, &matches, query, teamID, teamID); err != nil {
		return nil, fmt.Errorf("failed to list matches for team %s: %w", teamID, err)
	}
	return r.attachGames(ctx, r.db, matches)
}

const matchUpdateSet = `
	team_id = ?, opponent_team_id = ?,
	player = ?, opponent_player = ?, deck = ?, opponent_deck = ?,
	self_score = ?, opponent_score = ?, match_date = ?,
	input_allowed_team_id = ?, locked_by = ?, locked_at = ?,
	result_status = ?, finalized_at = ?, updated_at = ?`

func matchUpdateArgs(m *models.Match) []interface{} {
	return []interface{}{
		m.TeamID, m.OpponentTeamID,
		m.Player, m.OpponentPlayer, m.Deck, m.OpponentDeck,
		m.SelfScore, m.OpponentScore, m.Date,
		m.InputAllowedTeamID, m.LockedBy, m.LockedAt,
		m.ResultStatus, m.FinalizedAt, m.UpdatedAt,
	}
}

func (r *sqlMatchRepository) Update(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	e := getExecutor(exec, r.db)
	query := e.Rebind(`UPDATE matches SET ` + matchUpdateSet + ` WHERE id = ?`)
	args := append(matchUpdateArgs(m), m.ID)

	result, err := e.ExecContext(ctx, query, args...)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrMatchTeamInvalid
		}
		return fmt.Errorf("failed to update match %s: %w", m.ID, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *sqlMatchRepository) UpdateGuarded(ctx context.Context, exec SQLExecutor, m *models.Match, guard MatchGuard) error {
	e := getExecutor(exec, r.db)

	var qb strings.Builder
	qb.WriteString(`UPDATE matches SET ` + matchUpdateSet + `
		WHERE id = ? AND result_status = ? AND (locked_by IS NULL OR locked_by = ?)`)
	args := append(matchUpdateArgs(m), m.ID, models.ResultDraft, guard.ActingTeamID)
	if guard.RequireInputPermission {
		qb.WriteString(` AND input_allowed_team_id = ?`)
		args = append(args, models.TeamInput(guard.ActingTeamID))
	}

	result, err := e.ExecContext(ctx, e.Rebind(qb.String()), args...)
	if err != nil {
		return fmt.Errorf("failed to update match %s: %w", m.ID, err)
	}
	return checkAffectedRows(result, ErrMatchConditionFailed)
}

func (r *sqlMatchRepository) ClearLock(ctx context.Context, exec SQLExecutor, id uuid.UUID, updatedAt time.Time) error {
	e := getExecutor(exec, r.db)
	query := e.Rebind(`UPDATE matches SET locked_by = NULL, locked_at = NULL, updated_at = ? WHERE id = ?`)
	result, err := e.ExecContext(ctx, query, updatedAt, id)
	if err != nil {
		return fmt.Errorf("failed to clear lock on match %s: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *sqlMatchRepository) Delete(ctx context.Context, exec SQLExecutor, id uuid.UUID) error {
	e := getExecutor(exec, r.db)
	result, err := e.ExecContext(ctx, e.Rebind(`DELETE FROM matches WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete match %s: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *sqlMatchRepository) DeleteDraft(ctx context.Context, exec SQLExecutor, id uuid.UUID) error {
	e := getExecutor(exec, r.db)
	query := e.Rebind(`DELETE FROM matches WHERE id = ? AND result_status = ?`)
	result, err := e.ExecContext(ctx, query, id, models.ResultDraft)
	if err != nil {
		return fmt.Errorf("failed to delete match %s: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchConditionFailed)
}

func (r *sqlMatchRepository) ReplaceGames(ctx context.Context, exec SQLExecutor, matchID uuid.UUID, games []models.GameResult) error {
	e := getExecutor(exec, r.db)
	if _, err := e.ExecContext(ctx, e.Rebind(`DELETE FROM match_games WHERE match_id = ?`), matchID); err != nil {
		return fmt.Errorf("failed to clear games of match %s: %w", matchID, err)
	}

	insert := e.Rebind(`INSERT INTO match_games (` + gameColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	for _, g := range games {
		_, err := e.ExecContext(ctx, insert,
			matchID, g.GameNumber, g.Player, g.OpponentPlayer, g.Deck, g.OpponentDeck, g.SelfScore, g.OpponentScore)
		if err != nil {
			if isUniqueViolation(err, "game_number") {
				return ErrGameNumberInvalid
			}
			return fmt.Errorf("failed to insert game %d of match %s: %w", g.GameNumber, matchID, err)
		}
	}
	return nil
}

func (r *sqlMatchRepository) attachGames(ctx context.Context, e SQLExecutor, matches []models.Match) ([]models.Match, error) {
	if len(matches) == 0 {
		return matches, nil
	}
	ids := make([]uuid.UUID, len(matches))
	for i := range matches {
		ids[i] = matches[i].ID
	}
	games, err := r.gamesFor(ctx, e, ids)
	if err != nil {
		return nil, err
	}
	for i := range matches {
		matches[i].Games = games[matches[i].ID]
		if matches[i].Games == nil {
			matches[i].Games = []models.GameResult{}
		}
	}
	return matches, nil
}

func (r *sqlMatchRepository) gamesFor(ctx context.Context, e SQLExecutor, matchIDs []uuid.UUID) (map[uuid.UUID][]models.GameResult, error) {
	query, args, err := sqlx.In(`SELECT `+gameColumns+` FROM match_games WHERE match_id IN (?) ORDER BY game_number ASC`, matchIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build games query: %w", err)
	}

	var games []models.GameResult
	if err := sqlx.SelectContext(ctx, e, &games, e.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to load match games: %w", err)
	}

	byMatch := make(map[uuid.UUID][]models.GameResult, len(matchIDs))
	for _, g := range games {
		byMatch[g.MatchID] = append(byMatch[g.MatchID], g)
	}
	return byMatch, nil
}
