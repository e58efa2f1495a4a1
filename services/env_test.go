package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/matchdesk/clock"
	"github.com/Dosada05/matchdesk/db"
	"github.com/Dosada05/matchdesk/models"
	"github.com/Dosada05/matchdesk/repositories"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

type publishedEvent struct {
	TournamentID uuid.UUID
	Type         string
	Payload      interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, tournamentID uuid.UUID, eventType string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{TournamentID: tournamentID, Type: eventType, Payload: payload})
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type testEnv struct {
	db        *sqlx.DB
	clock     *clock.MockClock
	logger    *slog.Logger
	publisher *recordingPublisher

	tournamentRepo  repositories.TournamentRepository
	roundRepo       repositories.RoundRepository
	matchRepo       repositories.MatchRepository
	teamRepo        repositories.TeamRepository
	identityRepo    repositories.IdentityRepository
	participantRepo repositories.ParticipantRepository

	tournaments TournamentService
	rounds      RoundService
	matches     MatchService
	results     ResultService
	teams       TeamService
	auth        AuthService

	admin *models.Identity
}

// newTestEnv wires every service against a fresh in-memory SQLite database.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	database, err := db.Connect(db.DriverSQLite, "file::memory:", time.Second)
	require.NoError(t, err, "Failed to connect to in-memory DB")
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, db.RunMigrations(database), "Failed to apply migrations")

	env := &testEnv{
		db:              database,
		clock:           clock.NewMock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		logger:          slog.New(slog.NewJSONHandler(io.Discard, nil)),
		publisher:       &recordingPublisher{},
		tournamentRepo:  repositories.NewTournamentRepository(database),
		roundRepo:       repositories.NewRoundRepository(database),
		matchRepo:       repositories.NewMatchRepository(database),
		teamRepo:        repositories.NewTeamRepository(database),
		identityRepo:    repositories.NewIdentityRepository(database),
		participantRepo: repositories.NewParticipantRepository(database),
	}
	env.tournaments = NewTournamentService(env.tournamentRepo, env.roundRepo, env.matchRepo, env.teamRepo, env.clock, env.logger)
	env.rounds = NewRoundService(database, env.roundRepo, env.tournamentRepo, env.publisher, env.clock, env.logger)
	env.matches = NewMatchService(database, env.matchRepo, env.roundRepo, env.teamRepo, env.tournamentRepo, env.publisher, nil, env.clock, env.logger)
	env.results = NewResultService(database, env.matchRepo, env.publisher, nil, env.clock, env.logger)
	env.teams = NewTeamService(env.teamRepo, env.identityRepo, env.tournamentRepo, env.clock, env.logger)
	env.auth = NewAuthService(env.identityRepo, env.teamRepo, true, env.clock, env.logger)

	env.admin, err = env.auth.CreateAdmin(context.Background(), models.Credentials{Email: "admin@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	return env
}

func (env *testEnv) createTournament(t *testing.T, name string) *models.Tournament {
	t.Helper()
	tournament, err := env.tournaments.CreateTournament(context.Background(), CreateTournamentInput{Name: name, CreatorID: env.admin.ID})
	require.NoError(t, err)
	return tournament
}

func (env *testEnv) createTeam(t *testing.T, name string, tournamentID *uuid.UUID) *models.TeamCredentials {
	t.Helper()
	creds, err := env.teams.CreateTeam(context.Background(), CreateTeamInput{Name: name, TournamentID: tournamentID, ActorID: env.admin.ID})
	require.NoError(t, err)
	return creds
}

// matchSetup is a tournament with one open round and a scheduled match between two teams.
type matchSetup struct {
	tournament *models.Tournament
	round      *models.Round
	teamA      *models.Team
	teamB      *models.Team
	match      *models.Match
}

func (env *testEnv) setupMatch(t *testing.T, perm models.InputPermission) matchSetup {
	t.Helper()
	ctx := context.Background()

	tournament := env.createTournament(t, "Spring Cup")
	round, err := env.rounds.CreateRound(ctx, CreateRoundInput{TournamentID: tournament.ID, ActorID: env.admin.ID})
	require.NoError(t, err)

	teamA := env.createTeam(t, "Team A", &tournament.ID).Team
	teamB := env.createTeam(t, "Team B", &tournament.ID).Team

	match, err := env.matches.CreateMatch(ctx, CreateMatchInput{
		TournamentID:       tournament.ID,
		RoundID:            round.ID,
		TeamID:             teamA.ID,
		OpponentTeamID:     teamB.ID,
		InputAllowedTeamID: perm,
		ActorID:            env.admin.ID,
	})
	require.NoError(t, err)

	return matchSetup{tournament: tournament, round: round, teamA: teamA, teamB: teamB, match: match}
}

func strPtr(s string) *string {
	return &s
}
