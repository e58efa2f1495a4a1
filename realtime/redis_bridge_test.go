package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
)

type RedisBridgeSuite struct {
	suite.Suite
	mini   *miniredis.Miniredis
	ctx    context.Context
	cancel context.CancelFunc
	hubA   *Hub
	hubB   *Hub
	a      *RedisBridge
	b      *RedisBridge
}

func TestRedisBridgeSuite(t *testing.T) {
	suite.Run(t, new(RedisBridgeSuite))
}

func (s *RedisBridgeSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.hubA = NewHub(discardLogger())
	s.hubB = NewHub(discardLogger())
	s.a = NewWithClient(redis.NewClient(&redis.Options{Addr: s.mini.Addr()}), s.hubA, discardLogger())
	s.b = NewWithClient(redis.NewClient(&redis.Options{Addr: s.mini.Addr()}), s.hubB, discardLogger())

	s.Require().NoError(s.a.Start(s.ctx))
	s.Require().NoError(s.b.Start(s.ctx))
}

func (s *RedisBridgeSuite) TearDownTest() {
	s.cancel()
	_ = s.a.Close()
	_ = s.b.Close()
}

func (s *RedisBridgeSuite) TestEventReachesBothInstancesOnce() {
	tournament := uuid.New()
	room := RoomForTournament(tournament)
	local := addTestClient(s.hubA, room)
	remote := addTestClient(s.hubB, room)

	s.a.Publish(s.ctx, tournament, "MATCH_CREATED", map[string]string{"id": "m1"})

	s.Equal("MATCH_CREATED", receive(s.T(), local).Type)
	s.Equal("MATCH_CREATED", receive(s.T(), remote).Type)

	// The origin ignores its own envelope.
	select {
	case <-local.send:
		s.Fail("local subscriber received the event twice")
	case <-time.After(200 * time.Millisecond):
	}
}

func (s *RedisBridgeSuite) TestMalformedEnvelopeIsDropped() {
	room := RoomForTournament(uuid.New())
	remote := addTestClient(s.hubB, room)

	s.mini.Publish(DefaultChannel, "not json")

	select {
	case <-remote.send:
		s.Fail("malformed envelope was forwarded")
	case <-time.After(200 * time.Millisecond):
	}
}

func (s *RedisBridgeSuite) TestPublishSurvivesRedisOutage() {
	tournament := uuid.New()
	local := addTestClient(s.hubA, RoomForTournament(tournament))
	s.mini.Close()

	s.a.Publish(s.ctx, tournament, "MATCH_DELETED", map[string]string{"id": "m1"})
	s.Equal("MATCH_DELETED", receive(s.T(), local).Type)
}
