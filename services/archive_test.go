package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sort"
	"sync"
	"testing"

	"github.com/Dosada05/matchdesk/models"
	"github.com/Dosada05/matchdesk/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu      sync.Mutex
	objects   map[string][]byte
	putErr    error
	deleteErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: make(map[string][]byte)}
}

func (m *memoryStore) Put(_ context.Context, key string, _ string, body io.Reader) (*storage.Object, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return &storage.Object{Key: key, Location: m.PublicURL(key)}, nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memoryStore) PublicURL(key string) string {
	return "memory://" + key
}

func (m *memoryStore) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func TestResultArchiver(t *testing.T) {
	env := newTestEnv(t)
	match := &models.Match{
		ID:           uuid.New(),
		TournamentID: uuid.New(),
		RoundID:      uuid.New(),
		ResultStatus: models.ResultFinalized,
		SelfScore:    strPtr("3"),
	}

	t.Run("writes the match as JSON", func(t *testing.T) {
		store := newMemoryStore()
		NewResultArchiver(store, env.logger).Archive(context.Background(), match)

		key := "results/" + match.TournamentID.String() + "/" + match.RoundID.String() + "/" + match.ID.String() + ".json"
		require.Contains(t, store.objects, key)

		var decoded models.Match
		require.NoError(t, json.Unmarshal(store.objects[key], &decoded))
		assert.Equal(t, match.ID, decoded.ID)
		assert.Equal(t, "3", *decoded.SelfScore)
	})

	t.Run("store failure is swallowed", func(t *testing.T) {
		store := newMemoryStore()
		store.putErr = errors.New("bucket unavailable")
		assert.NotPanics(t, func() {
			NewResultArchiver(store, env.logger).Archive(context.Background(), match)
		})
		assert.Empty(t, store.keys())
	})

	t.Run("withdraw removes the archived copy", func(t *testing.T) {
		store := newMemoryStore()
		archiver := NewResultArchiver(store, env.logger)
		archiver.Archive(context.Background(), match)
		require.Len(t, store.keys(), 1)

		archiver.Withdraw(context.Background(), match)
		assert.Empty(t, store.keys())
	})

	t.Run("withdraw failure is swallowed", func(t *testing.T) {
		store := newMemoryStore()
		archiver := NewResultArchiver(store, env.logger)
		archiver.Archive(context.Background(), match)
		store.deleteErr = errors.New("bucket unavailable")
		assert.NotPanics(t, func() {
			archiver.Withdraw(context.Background(), match)
		})
		assert.Len(t, store.keys(), 1)
	})

	t.Run("nil store archives nothing", func(t *testing.T) {
		assert.IsType(t, noopArchiver{}, NewResultArchiver(nil, env.logger))
	})
}

func TestResultArchiver_FollowsAdminChanges(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	s := env.setupMatch(t, models.NoInput())

	store := newMemoryStore()
	archiver := NewResultArchiver(store, env.logger)
	matches := NewMatchService(env.db, env.matchRepo, env.roundRepo, env.teamRepo, env.tournamentRepo, env.publisher, archiver, env.clock, env.logger)
	results := NewResultService(env.db, env.matchRepo, env.publisher, archiver, env.clock, env.logger)

	_, err := matches.UpdateMatch(ctx, env.admin.ID, s.match.ID, UpdateMatchInput{
		InputAllowedTeamID: models.Optional[models.InputPermission]{Set: true, Value: models.TeamInput(s.teamA.ID)},
	})
	require.NoError(t, err)

	final, err := results.SubmitResult(ctx, s.teamA.ID, s.match.ID, SubmitResultInput{
		Action:  ActionFinalize,
		Payload: &ResultPayload{SelfScore: strPtr("2"), OpponentScore: strPtr("1")},
	})
	require.NoError(t, err)
	key := archiveKey(final)
	require.Equal(t, []string{key}, store.keys())

	draft := models.ResultDraft
	_, err = matches.UpdateMatch(ctx, env.admin.ID, s.match.ID, UpdateMatchInput{ResultStatus: &draft})
	require.NoError(t, err)
	assert.Empty(t, store.keys(), "unfinalized result must leave the archive")

	finalized := models.ResultFinalized
	_, err = matches.UpdateMatch(ctx, env.admin.ID, s.match.ID, UpdateMatchInput{ResultStatus: &finalized})
	require.NoError(t, err)
	require.Equal(t, []string{key}, store.keys())

	_, err = matches.UpdateMatch(ctx, env.admin.ID, s.match.ID, UpdateMatchInput{
		SelfScore: models.Optional[string]{Set: true, Value: "3"},
	})
	require.NoError(t, err)
	var archived models.Match
	require.NoError(t, json.Unmarshal(store.objects[key], &archived))
	require.NotNil(t, archived.SelfScore)
	assert.Equal(t, "3", *archived.SelfScore, "corrections reach the archived copy")

	require.NoError(t, matches.DeleteMatch(ctx, env.admin.ID, s.match.ID))
	assert.Empty(t, store.keys(), "deleted result must leave the archive")
}
