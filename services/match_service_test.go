package services

import (
	"context"
	"testing"

	"github.com/Dosada05/matchdesk/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchService_CreateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	s := env.setupMatch(t, models.NoInput())
	outsider := env.createTeam(t, "Outsider", nil).Team
	otherTournament := env.createTournament(t, "Autumn Cup")
	foreign := env.createTeam(t, "Foreign", &otherTournament.ID).Team

	base := func() CreateMatchInput {
		return CreateMatchInput{
			TournamentID:   s.tournament.ID,
			RoundID:        s.round.ID,
			TeamID:         s.teamA.ID,
			OpponentTeamID: s.teamB.ID,
			ActorID:        env.admin.ID,
		}
	}

	tests := []struct {
		name   string
		mutate func(in *CreateMatchInput)
		want   error
	}{
		{"missing tournament", func(in *CreateMatchInput) { in.TournamentID = uuid.Nil }, ErrTournamentIDRequired},
		{"missing round", func(in *CreateMatchInput) { in.RoundID = uuid.Nil }, ErrRoundIDRequired},
		{"missing opponent", func(in *CreateMatchInput) { in.OpponentTeamID = uuid.Nil }, ErrTeamsRequired},
		{"same teams", func(in *CreateMatchInput) { in.OpponentTeamID = in.TeamID }, ErrSameTeams},
		{"round of another tournament", func(in *CreateMatchInput) { in.TournamentID = otherTournament.ID }, ErrRoundNotFound},
		{"unknown team", func(in *CreateMatchInput) { in.OpponentTeamID = uuid.New() }, ErrTeamNotFound},
		{"team scoped to another tournament", func(in *CreateMatchInput) { in.OpponentTeamID = foreign.ID }, ErrTeamNotInTournament},
		{"permission for a third team", func(in *CreateMatchInput) { in.InputAllowedTeamID = models.TeamInput(outsider.ID) }, ErrInvalidInputPermission},
		{"non numeric score", func(in *CreateMatchInput) { in.SelfScore = strPtr("x") }, ErrInvalidScore},
		{"non positive game number", func(in *CreateMatchInput) { in.Games = []GameInput{{GameNumber: 0}} }, ErrInvalidGames},
		{"other admin", func(in *CreateMatchInput) { in.ActorID = uuid.New() }, ErrForbiddenOperation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base()
			tt.mutate(&in)
			_, err := env.matches.CreateMatch(ctx, in)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("unscoped team may play", func(t *testing.T) {
		in := base()
		in.OpponentTeamID = outsider.ID
		in.InputAllowedTeamID = models.AdminOnlyInput()
		m, err := env.matches.CreateMatch(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, models.AdminOnlyInput(), m.InputAllowedTeamID)
		assert.Equal(t, []models.GameResult{}, m.Games)
	})

	t.Run("closed round", func(t *testing.T) {
		_, err := env.rounds.CloseRound(ctx, env.admin.ID, s.tournament.ID, s.round.ID)
		require.NoError(t, err)
		_, err = env.matches.CreateMatch(ctx, base())
		assert.ErrorIs(t, err, ErrRoundClosed)
	})
}

func TestMatchService_AdminUpdate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	s := env.setupMatch(t, models.NoInput())

	t.Run("lock holder must play the match", func(t *testing.T) {
		_, err := env.matches.UpdateMatch(ctx, env.admin.ID, s.match.ID, UpdateMatchInput{
			LockedBy: models.Optional[uuid.UUID]{Set: true, Value: uuid.New()},
		})
		assert.ErrorIs(t, err, ErrInvalidLockHolder)
	})

	t.Run("invalid result status", func(t *testing.T) {
		status := models.ResultStatus("done")
		_, err := env.matches.UpdateMatch(ctx, env.admin.ID, s.match.ID, UpdateMatchInput{ResultStatus: &status})
		assert.ErrorIs(t, err, ErrInvalidResultStatus)
	})

	t.Run("sets lock, status and fields in one go", func(t *testing.T) {
		finalized := models.ResultFinalized
		games := []GameInput{{GameNumber: 1, SelfScore: strPtr("1")}}
		updated, err := env.matches.UpdateMatch(ctx, env.admin.ID, s.match.ID, UpdateMatchInput{
			LockedBy:     models.Optional[uuid.UUID]{Set: true, Value: s.teamB.ID},
			ResultStatus: &finalized,
			SelfScore:    models.Optional[string]{Set: true, Value: "1.5"},
			Player:       models.Optional[string]{Set: true, Value: "Alice"},
			Games:        &games,
		})
		require.NoError(t, err)
		assert.Equal(t, s.teamB.ID, *updated.LockedBy)
		require.NotNil(t, updated.LockedAt)
		require.NotNil(t, updated.FinalizedAt)
		assert.Equal(t, "1.5", *updated.SelfScore)

		stored, err := env.matchRepo.GetByID(ctx, nil, s.match.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ResultFinalized, stored.ResultStatus)
		assert.Equal(t, "Alice", *stored.Player)
		require.Len(t, stored.Games, 1)
	})

	t.Run("explicit null clears a field", func(t *testing.T) {
		updated, err := env.matches.UpdateMatch(ctx, env.admin.ID, s.match.ID, UpdateMatchInput{
			Player: models.Optional[string]{Set: true, Null: true},
		})
		require.NoError(t, err)
		assert.Nil(t, updated.Player)
		assert.Equal(t, "1.5", *updated.SelfScore)
	})

	t.Run("team swap revalidates the permission", func(t *testing.T) {
		_, err := env.matches.UpdateMatch(ctx, env.admin.ID, s.match.ID, UpdateMatchInput{
			InputAllowedTeamID: models.Optional[models.InputPermission]{Set: true, Value: models.TeamInput(s.teamB.ID)},
			LockedBy:           models.Optional[uuid.UUID]{Set: true, Null: true},
		})
		require.NoError(t, err)

		third := env.createTeam(t, "Team C", &s.tournament.ID).Team
		_, err = env.matches.UpdateMatch(ctx, env.admin.ID, s.match.ID, UpdateMatchInput{OpponentTeamID: &third.ID})
		assert.ErrorIs(t, err, ErrInvalidInputPermission)
	})

	t.Run("admin deletes a finalized match", func(t *testing.T) {
		require.NoError(t, env.matches.DeleteMatch(ctx, env.admin.ID, s.match.ID))
		_, err := env.matches.GetMatch(ctx, env.admin.ID, s.match.ID)
		assert.ErrorIs(t, err, ErrMatchNotFound)
		assert.Contains(t, env.publisher.types(), EventMatchDeleted)
	})
}

func TestMatchService_TeamUpdate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	s := env.setupMatch(t, models.NoInput())
	outsider := env.createTeam(t, "Outsider", nil).Team

	_, err := env.matches.UpdateTeamMatch(ctx, outsider.ID, s.match.ID, ResultPayload{SelfScore: strPtr("1")})
	assert.ErrorIs(t, err, ErrForbiddenOperation)

	updated, err := env.matches.UpdateTeamMatch(ctx, s.teamB.ID, s.match.ID, ResultPayload{Deck: strPtr("Control")})
	require.NoError(t, err)
	assert.Equal(t, "Control", *updated.Deck)
	assert.Nil(t, updated.LockedBy, "direct edits do not take the lock")

	_, err = env.matches.UpdateMatch(ctx, env.admin.ID, s.match.ID, UpdateMatchInput{
		LockedBy: models.Optional[uuid.UUID]{Set: true, Value: s.teamA.ID},
	})
	require.NoError(t, err)
	_, err = env.matches.UpdateTeamMatch(ctx, s.teamB.ID, s.match.ID, ResultPayload{Deck: strPtr("Combo")})
	assert.ErrorIs(t, err, ErrLockedByOther)

	_, err = env.matches.UpdateTeamMatch(ctx, s.teamA.ID, s.match.ID, ResultPayload{Deck: strPtr("Combo")})
	assert.NoError(t, err)

	matches, err := env.matches.ListTeamMatches(ctx, s.teamB.ID)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Combo", *matches[0].Deck)
}

func TestMatchService_TeamDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	s := env.setupMatch(t, models.NoInput())

	assert.ErrorIs(t, env.matches.DeleteTeamMatch(ctx, s.teamB.ID, s.match.ID), ErrForbiddenOperation)

	finalized := models.ResultFinalized
	_, err := env.matches.UpdateMatch(ctx, env.admin.ID, s.match.ID, UpdateMatchInput{ResultStatus: &finalized})
	require.NoError(t, err)
	assert.ErrorIs(t, env.matches.DeleteTeamMatch(ctx, s.teamA.ID, s.match.ID), ErrMatchFinalized)

	draft := models.ResultDraft
	_, err = env.matches.UpdateMatch(ctx, env.admin.ID, s.match.ID, UpdateMatchInput{ResultStatus: &draft})
	require.NoError(t, err)
	require.NoError(t, env.matches.DeleteTeamMatch(ctx, s.teamA.ID, s.match.ID))

	_, err = env.matches.GetTeamMatch(ctx, s.teamA.ID, s.match.ID)
	assert.ErrorIs(t, err, ErrMatchNotFound)
}

func TestTournamentService_Overview(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	s := env.setupMatch(t, models.NoInput())

	overview, err := env.tournaments.GetOverview(ctx, env.admin.ID, s.tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, s.tournament.ID, overview.Tournament.ID)
	assert.Len(t, overview.Rounds, 1)
	assert.Len(t, overview.Matches, 1)
	assert.Len(t, overview.Teams, 2)

	_, err = env.tournaments.GetOverview(ctx, uuid.New(), s.tournament.ID)
	assert.ErrorIs(t, err, ErrForbiddenOperation)

	_, err = env.tournaments.CreateTournament(ctx, CreateTournamentInput{Name: "Spring Cup", CreatorID: env.admin.ID})
	assert.ErrorIs(t, err, ErrTournamentSlugConflict)

	_, err = env.tournaments.CreateTournament(ctx, CreateTournamentInput{Name: "X", Slug: "Not A Slug", CreatorID: env.admin.ID})
	assert.ErrorIs(t, err, ErrTournamentSlugInvalid)
}
