package services

import (
	"context"
	"testing"
	"time"

	"github.com/Dosada05/matchdesk/models"
	"github.com/Dosada05/matchdesk/repositories"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func save(payload *ResultPayload) SubmitResultInput {
	return SubmitResultInput{Action: ActionSave, Payload: payload}
}

func TestResultService_ClosedInputIsRejected(t *testing.T) {
	env := newTestEnv(t)
	s := env.setupMatch(t, models.NoInput())

	_, err := env.results.SubmitResult(context.Background(), s.teamA.ID, s.match.ID, save(nil))
	assert.ErrorIs(t, err, ErrInputNotOpen)

	env2 := newTestEnv(t)
	s2 := env2.setupMatch(t, models.AdminOnlyInput())
	_, err = env2.results.SubmitResult(context.Background(), s2.teamA.ID, s2.match.ID, save(nil))
	assert.ErrorIs(t, err, ErrInputAdminOnly)
}

func TestResultService_SaveLockFinalize(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	s := env.setupMatch(t, models.NoInput())

	// Open input for team A only.
	_, err := env.matches.UpdateMatch(ctx, env.admin.ID, s.match.ID, UpdateMatchInput{
		InputAllowedTeamID: models.Optional[models.InputPermission]{Set: true, Value: models.TeamInput(s.teamA.ID)},
	})
	require.NoError(t, err)

	saved, err := env.results.SubmitResult(ctx, s.teamA.ID, s.match.ID, save(&ResultPayload{
		SelfScore:     strPtr("2"),
		OpponentScore: strPtr("1"),
	}))
	require.NoError(t, err)
	assert.Equal(t, models.ResultDraft, saved.ResultStatus)
	require.NotNil(t, saved.LockedBy)
	assert.Equal(t, s.teamA.ID, *saved.LockedBy)
	assert.Equal(t, "2", *saved.SelfScore)

	t.Run("other team is locked out", func(t *testing.T) {
		_, err := env.results.SubmitResult(ctx, s.teamB.ID, s.match.ID, save(&ResultPayload{SelfScore: strPtr("0")}))
		assert.ErrorIs(t, err, ErrLockedByOther)
		_, err = env.results.SubmitResult(ctx, s.teamB.ID, s.match.ID, SubmitResultInput{Action: ActionFinalize})
		assert.ErrorIs(t, err, ErrLockedByOther)
	})

	t.Run("owner saves again while holding the lock", func(t *testing.T) {
		env.clock.Advance(time.Minute)
		again, err := env.results.SubmitResult(ctx, s.teamA.ID, s.match.ID, save(&ResultPayload{OpponentScore: strPtr("2")}))
		require.NoError(t, err)
		assert.Equal(t, "2", *again.SelfScore)
		assert.Equal(t, "2", *again.OpponentScore)
	})

	t.Run("finalize clears the lock", func(t *testing.T) {
		env.clock.Advance(time.Minute)
		final, err := env.results.SubmitResult(ctx, s.teamA.ID, s.match.ID, SubmitResultInput{
			Action:  ActionFinalize,
			Payload: &ResultPayload{OpponentScore: strPtr("1")},
		})
		require.NoError(t, err)
		assert.Equal(t, models.ResultFinalized, final.ResultStatus)
		assert.Nil(t, final.LockedBy)
		assert.Nil(t, final.LockedAt)
		require.NotNil(t, final.FinalizedAt)
		assert.Equal(t, env.clock.Now(), *final.FinalizedAt)

		stored, err := env.matchRepo.GetByID(ctx, nil, s.match.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ResultFinalized, stored.ResultStatus)
		assert.Nil(t, stored.LockedBy)
	})

	t.Run("finalized result is immutable to the team", func(t *testing.T) {
		_, err := env.results.SubmitResult(ctx, s.teamA.ID, s.match.ID, save(nil))
		assert.ErrorIs(t, err, ErrAlreadyFinalized)
		_, err = env.results.SubmitResult(ctx, s.teamA.ID, s.match.ID, SubmitResultInput{Action: ActionFinalize})
		assert.ErrorIs(t, err, ErrAlreadyFinalized)
		_, err = env.matches.UpdateTeamMatch(ctx, s.teamA.ID, s.match.ID, ResultPayload{SelfScore: strPtr("3")})
		assert.ErrorIs(t, err, ErrMatchFinalized)
	})

	t.Run("cancel only releases the lock", func(t *testing.T) {
		cancelled, err := env.results.SubmitResult(ctx, s.teamA.ID, s.match.ID, SubmitResultInput{Action: ActionCancel})
		require.NoError(t, err)
		assert.Equal(t, models.ResultFinalized, cancelled.ResultStatus)
		assert.Equal(t, "2", *cancelled.SelfScore)
	})

	t.Run("admin can unfinalize", func(t *testing.T) {
		draft := models.ResultDraft
		updated, err := env.matches.UpdateMatch(ctx, env.admin.ID, s.match.ID, UpdateMatchInput{ResultStatus: &draft})
		require.NoError(t, err)
		assert.Equal(t, models.ResultDraft, updated.ResultStatus)
		assert.Nil(t, updated.FinalizedAt)

		_, err = env.results.SubmitResult(ctx, s.teamA.ID, s.match.ID, save(nil))
		assert.NoError(t, err)
	})
}

func TestResultService_LockIsExclusiveUntilReleased(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	s := env.setupMatch(t, models.NoInput())

	openFor := func(teamID uuid.UUID) {
		_, err := env.matches.UpdateMatch(ctx, env.admin.ID, s.match.ID, UpdateMatchInput{
			InputAllowedTeamID: models.Optional[models.InputPermission]{Set: true, Value: models.TeamInput(teamID)},
		})
		require.NoError(t, err)
	}

	openFor(s.teamA.ID)
	_, err := env.results.SubmitResult(ctx, s.teamA.ID, s.match.ID, save(nil))
	require.NoError(t, err)

	// Handing input to team B does not break team A's lock.
	openFor(s.teamB.ID)
	_, err = env.results.SubmitResult(ctx, s.teamB.ID, s.match.ID, save(nil))
	assert.ErrorIs(t, err, ErrLockedByOther)

	// The administrator clears the lock.
	_, err = env.matches.UpdateMatch(ctx, env.admin.ID, s.match.ID, UpdateMatchInput{
		LockedBy: models.Optional[uuid.UUID]{Set: true, Null: true},
	})
	require.NoError(t, err)

	locked, err := env.results.SubmitResult(ctx, s.teamB.ID, s.match.ID, save(nil))
	require.NoError(t, err)
	assert.Equal(t, s.teamB.ID, *locked.LockedBy)

	// Cancel by the lock holder releases it.
	released, err := env.results.SubmitResult(ctx, s.teamB.ID, s.match.ID, SubmitResultInput{Action: ActionCancel})
	require.NoError(t, err)
	assert.Nil(t, released.LockedBy)
}

func TestResultService_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	s := env.setupMatch(t, models.NoInput())

	_, err := env.results.SubmitResult(ctx, s.teamA.ID, s.match.ID, SubmitResultInput{Action: "publish"})
	assert.ErrorIs(t, err, ErrInvalidAction)

	_, err = env.results.SubmitResult(ctx, s.teamA.ID, s.match.ID, save(&ResultPayload{SelfScore: strPtr("two")}))
	assert.ErrorIs(t, err, ErrInvalidScore)

	_, err = env.results.SubmitResult(ctx, s.teamA.ID, s.match.ID, save(&ResultPayload{SelfScore: strPtr("NaN"), OpponentScore: strPtr("Inf")}))
	assert.ErrorIs(t, err, ErrInvalidScore)

	games := []GameInput{{GameNumber: 1}, {GameNumber: 1}}
	_, err = env.results.SubmitResult(ctx, s.teamA.ID, s.match.ID, save(&ResultPayload{Games: &games}))
	assert.ErrorIs(t, err, ErrInvalidGames)

	_, err = env.results.SubmitResult(ctx, s.teamA.ID, uuid.New(), save(nil))
	assert.ErrorIs(t, err, ErrMatchNotFound)
}

func TestResultService_SaveReplacesGames(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	s := env.setupMatch(t, models.NoInput())
	_, err := env.matches.UpdateMatch(ctx, env.admin.ID, s.match.ID, UpdateMatchInput{
		InputAllowedTeamID: models.Optional[models.InputPermission]{Set: true, Value: models.TeamInput(s.teamB.ID)},
	})
	require.NoError(t, err)

	games := []GameInput{
		{GameNumber: 2, SelfScore: strPtr("0"), OpponentScore: strPtr("1")},
		{GameNumber: 1, SelfScore: strPtr("1"), OpponentScore: strPtr("0"), Deck: strPtr("  Aggro ")},
	}
	_, err = env.results.SubmitResult(ctx, s.teamB.ID, s.match.ID, save(&ResultPayload{Games: &games}))
	require.NoError(t, err)

	stored, err := env.matchRepo.GetByID(ctx, nil, s.match.ID)
	require.NoError(t, err)
	require.Len(t, stored.Games, 2)
	assert.Equal(t, 1, stored.Games[0].GameNumber)
	assert.Equal(t, "Aggro", *stored.Games[0].Deck)
	assert.Equal(t, "1", *stored.Games[1].OpponentScore)
}

// racingMatchRepository lets another writer take the lock between the read and the guarded write.
type racingMatchRepository struct {
	repositories.MatchRepository
	race func(ctx context.Context, exec repositories.SQLExecutor)
}

func (r *racingMatchRepository) UpdateGuarded(ctx context.Context, exec repositories.SQLExecutor, m *models.Match, guard repositories.MatchGuard) error {
	if r.race != nil {
		r.race(ctx, exec)
		r.race = nil
	}
	return r.MatchRepository.UpdateGuarded(ctx, exec, m, guard)
}

func TestResultService_LostRaceIsClassified(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	s := env.setupMatch(t, models.NoInput())
	_, err := env.matches.UpdateMatch(ctx, env.admin.ID, s.match.ID, UpdateMatchInput{
		InputAllowedTeamID: models.Optional[models.InputPermission]{Set: true, Value: models.TeamInput(s.teamA.ID)},
	})
	require.NoError(t, err)

	t.Run("lock taken concurrently", func(t *testing.T) {
		repo := &racingMatchRepository{MatchRepository: env.matchRepo}
		repo.race = func(ctx context.Context, exec repositories.SQLExecutor) {
			rival, err := env.matchRepo.GetByID(ctx, exec, s.match.ID)
			require.NoError(t, err)
			rival.LockedBy = &s.teamB.ID
			require.NoError(t, env.matchRepo.Update(ctx, exec, rival))
		}
		results := NewResultService(env.db, repo, env.publisher, nil, env.clock, env.logger)

		_, err := results.SubmitResult(ctx, s.teamA.ID, s.match.ID, save(&ResultPayload{SelfScore: strPtr("5")}))
		assert.ErrorIs(t, err, ErrLockedByOther)

		stored, err := env.matchRepo.GetByID(ctx, nil, s.match.ID)
		require.NoError(t, err)
		assert.Nil(t, stored.SelfScore, "rolled back")
		assert.Nil(t, stored.LockedBy, "rolled back")
	})

	t.Run("finalized concurrently", func(t *testing.T) {
		repo := &racingMatchRepository{MatchRepository: env.matchRepo}
		repo.race = func(ctx context.Context, exec repositories.SQLExecutor) {
			rival, err := env.matchRepo.GetByID(ctx, exec, s.match.ID)
			require.NoError(t, err)
			rival.ResultStatus = models.ResultFinalized
			require.NoError(t, env.matchRepo.Update(ctx, exec, rival))
		}
		results := NewResultService(env.db, repo, env.publisher, nil, env.clock, env.logger)

		_, err := results.SubmitResult(ctx, s.teamA.ID, s.match.ID, SubmitResultInput{Action: ActionFinalize})
		assert.ErrorIs(t, err, ErrAlreadyFinalized)
	})
}

func TestResultService_FinalizeArchives(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	s := env.setupMatch(t, models.NoInput())
	_, err := env.matches.UpdateMatch(ctx, env.admin.ID, s.match.ID, UpdateMatchInput{
		InputAllowedTeamID: models.Optional[models.InputPermission]{Set: true, Value: models.TeamInput(s.teamA.ID)},
	})
	require.NoError(t, err)

	store := newMemoryStore()
	results := NewResultService(env.db, env.matchRepo, env.publisher, NewResultArchiver(store, env.logger), env.clock, env.logger)

	_, err = results.SubmitResult(ctx, s.teamA.ID, s.match.ID, save(&ResultPayload{SelfScore: strPtr("1")}))
	require.NoError(t, err)
	assert.Empty(t, store.keys())

	final, err := results.SubmitResult(ctx, s.teamA.ID, s.match.ID, SubmitResultInput{Action: ActionFinalize})
	require.NoError(t, err)
	assert.Equal(t, []string{archiveKey(final)}, store.keys())
	assert.Contains(t, env.publisher.types(), EventMatchUpdated)
}
