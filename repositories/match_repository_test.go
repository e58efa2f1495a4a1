package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/Dosada05/matchdesk/db"
	"github.com/Dosada05/matchdesk/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates an in-memory SQLite database and applies migrations
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := db.Connect(db.DriverSQLite, "file::memory:", time.Second)
	require.NoError(t, err, "Failed to connect to in-memory DB")
	t.Cleanup(func() { _ = database.Close() })

	require.NoError(t, db.RunMigrations(database), "Failed to apply migrations")
	return database
}

type matchFixture struct {
	tournament *models.Tournament
	round      *models.Round
	home       *models.Team
	away       *models.Team
}

func seedMatchFixture(t *testing.T, database *sqlx.DB) matchFixture {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	admin := &models.Identity{ID: uuid.New(), Email: "admin@example.com", PasswordHash: "x", Role: models.RoleAdmin, CreatedAt: now}
	require.NoError(t, NewIdentityRepository(database).Create(ctx, admin))

	tournament := &models.Tournament{ID: uuid.New(), Name: "Spring Cup", Slug: "spring-cup", CreatedBy: admin.ID, CreatedAt: now}
	require.NoError(t, NewTournamentRepository(database).Create(ctx, nil, tournament))

	round := &models.Round{ID: uuid.New(), TournamentID: tournament.ID, Number: 1, Status: models.RoundOpen, CreatedAt: now}
	require.NoError(t, NewRoundRepository(database).Create(ctx, nil, round))

	teams := NewTeamRepository(database)
	home := &models.Team{ID: uuid.New(), Name: "Home", Username: "home", TournamentID: &tournament.ID, CreatedBy: admin.ID, CreatedAt: now}
	away := &models.Team{ID: uuid.New(), Name: "Away", Username: "away", TournamentID: &tournament.ID, CreatedBy: admin.ID, CreatedAt: now}
	require.NoError(t, teams.Create(ctx, nil, home))
	require.NoError(t, teams.Create(ctx, nil, away))

	return matchFixture{tournament: tournament, round: round, home: home, away: away}
}

func newDraftMatch(f matchFixture, perm models.InputPermission) *models.Match {
	now := time.Now().UTC()
	return &models.Match{
		ID:                 uuid.New(),
		TournamentID:       f.tournament.ID,
		RoundID:            f.round.ID,
		TeamID:             f.home.ID,
		OpponentTeamID:     f.away.ID,
		InputAllowedTeamID: perm,
		ResultStatus:       models.ResultDraft,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func TestMatchRepository_CreateAndGetWithGames(t *testing.T) {
	database := setupTestDB(t)
	f := seedMatchFixture(t, database)
	repo := NewMatchRepository(database)
	ctx := context.Background()

	two := "2"
	m := newDraftMatch(f, models.TeamInput(f.home.ID))
	m.Games = []models.GameResult{
		{GameNumber: 2, SelfScore: &two},
		{GameNumber: 1},
	}
	require.NoError(t, repo.Create(ctx, nil, m))

	got, err := repo.GetByID(ctx, nil, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TeamInput(f.home.ID), got.InputAllowedTeamID)
	assert.Equal(t, models.ResultDraft, got.ResultStatus)
	assert.Nil(t, got.LockedBy)
	require.Len(t, got.Games, 2)
	assert.Equal(t, 1, got.Games[0].GameNumber)
	assert.Equal(t, "2", *got.Games[1].SelfScore)

	_, err = repo.GetByID(ctx, nil, uuid.New())
	assert.ErrorIs(t, err, ErrMatchNotFound)
}

func TestMatchRepository_ReplaceGamesRejectsDuplicates(t *testing.T) {
	database := setupTestDB(t)
	f := seedMatchFixture(t, database)
	repo := NewMatchRepository(database)
	ctx := context.Background()

	m := newDraftMatch(f, models.NoInput())
	require.NoError(t, repo.Create(ctx, nil, m))

	err := repo.ReplaceGames(ctx, nil, m.ID, []models.GameResult{{GameNumber: 1}, {GameNumber: 1}})
	assert.ErrorIs(t, err, ErrGameNumberInvalid)
}

func TestMatchRepository_UpdateGuarded(t *testing.T) {
	database := setupTestDB(t)
	f := seedMatchFixture(t, database)
	repo := NewMatchRepository(database)
	ctx := context.Background()

	m := newDraftMatch(f, models.TeamInput(f.home.ID))
	require.NoError(t, repo.Create(ctx, nil, m))

	homeGuard := MatchGuard{ActingTeamID: f.home.ID, RequireInputPermission: true}
	awayGuard := MatchGuard{ActingTeamID: f.away.ID, RequireInputPermission: true}

	t.Run("wrong team fails the permission condition", func(t *testing.T) {
		assert.ErrorIs(t, repo.UpdateGuarded(ctx, nil, m, awayGuard), ErrMatchConditionFailed)
	})

	t.Run("allowed team acquires the lock", func(t *testing.T) {
		now := time.Now().UTC()
		m.LockedBy = &f.home.ID
		m.LockedAt = &now
		require.NoError(t, repo.UpdateGuarded(ctx, nil, m, homeGuard))
	})

	t.Run("lock held by another team blocks the write", func(t *testing.T) {
		assert.ErrorIs(t, repo.UpdateGuarded(ctx, nil, m, MatchGuard{ActingTeamID: f.away.ID}), ErrMatchConditionFailed)
	})

	t.Run("finalized match blocks every guarded write", func(t *testing.T) {
		m.ResultStatus = models.ResultFinalized
		m.LockedBy = nil
		m.LockedAt = nil
		require.NoError(t, repo.UpdateGuarded(ctx, nil, m, homeGuard))
		assert.ErrorIs(t, repo.UpdateGuarded(ctx, nil, m, homeGuard), ErrMatchConditionFailed)
		assert.ErrorIs(t, repo.DeleteDraft(ctx, nil, m.ID), ErrMatchConditionFailed)
	})

	t.Run("unguarded update always applies", func(t *testing.T) {
		m.ResultStatus = models.ResultDraft
		require.NoError(t, repo.Update(ctx, nil, m))
		got, err := repo.GetByID(ctx, nil, m.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ResultDraft, got.ResultStatus)
	})
}

func TestMatchRepository_ListFiltersByRound(t *testing.T) {
	database := setupTestDB(t)
	f := seedMatchFixture(t, database)
	repo := NewMatchRepository(database)
	rounds := NewRoundRepository(database)
	ctx := context.Background()

	closedAt := time.Now().UTC()
	require.NoError(t, rounds.SetStatus(ctx, nil, f.round.ID, models.RoundOpen, models.RoundClosed, &closedAt))
	second := &models.Round{ID: uuid.New(), TournamentID: f.tournament.ID, Number: 2, Status: models.RoundOpen, CreatedAt: time.Now().UTC()}
	require.NoError(t, rounds.Create(ctx, nil, second))

	first := newDraftMatch(f, models.NoInput())
	require.NoError(t, repo.Create(ctx, nil, first))
	later := newDraftMatch(f, models.NoInput())
	later.RoundID = second.ID
	require.NoError(t, repo.Create(ctx, nil, later))

	all, err := repo.List(ctx, nil, MatchFilter{TournamentID: f.tournament.ID})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlySecond, err := repo.List(ctx, nil, MatchFilter{TournamentID: f.tournament.ID, RoundID: &second.ID})
	require.NoError(t, err)
	require.Len(t, onlySecond, 1)
	assert.Equal(t, later.ID, onlySecond[0].ID)

	byTeam, err := repo.ListByTeam(ctx, f.away.ID)
	require.NoError(t, err)
	assert.Len(t, byTeam, 2)
}

func TestRoundRepository_UniqueNumberAndStatusGuard(t *testing.T) {
	database := setupTestDB(t)
	f := seedMatchFixture(t, database)
	rounds := NewRoundRepository(database)
	ctx := context.Background()

	dup := &models.Round{ID: uuid.New(), TournamentID: f.tournament.ID, Number: 1, Status: models.RoundOpen, CreatedAt: time.Now().UTC()}
	assert.ErrorIs(t, rounds.Create(ctx, nil, dup), ErrRoundNumberConflict)

	err := rounds.SetStatus(ctx, nil, f.round.ID, models.RoundClosed, models.RoundOpen, nil)
	assert.ErrorIs(t, err, ErrRoundStatusChanged)

	_, err = rounds.GetByID(ctx, nil, uuid.New(), f.round.ID)
	assert.ErrorIs(t, err, ErrRoundNotFound)
}

func TestTeamRepository_UsernameConflict(t *testing.T) {
	database := setupTestDB(t)
	f := seedMatchFixture(t, database)
	teams := NewTeamRepository(database)

	clash := &models.Team{ID: uuid.New(), Name: "Other", Username: f.home.Username, CreatedBy: f.tournament.CreatedBy, CreatedAt: time.Now().UTC()}
	assert.ErrorIs(t, teams.Create(context.Background(), nil, clash), ErrTeamUsernameConflict)
}
