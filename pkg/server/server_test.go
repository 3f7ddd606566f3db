package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/vctt94/pokertourney/pkg/agent"
	"github.com/vctt94/pokertourney/pkg/logging"
	"github.com/vctt94/pokertourney/pkg/poker"
	"github.com/vctt94/pokertourney/pkg/server/internal/db"
	"github.com/vctt94/pokertourney/pkg/tournament"
)

// InMemoryDB implements Database for tests.
type InMemoryDB struct {
	mu          sync.Mutex
	tournaments map[string]*db.TournamentRecord
}

func NewInMemoryDB() *InMemoryDB {
	return &InMemoryDB{tournaments: make(map[string]*db.TournamentRecord)}
}

func (m *InMemoryDB) SaveTournament(rec *db.TournamentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tournaments[rec.ID]; ok {
		return fmt.Errorf("tournament %s exists", rec.ID)
	}
	cp := *rec
	cp.Eliminations = append([]db.Elimination(nil), rec.Eliminations...)
	m.tournaments[rec.ID] = &cp
	return nil
}

func (m *InMemoryDB) LoadTournament(id string) (*db.TournamentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.tournaments[id]
	if !ok {
		return nil, fmt.Errorf("tournament not found")
	}
	cp := *rec
	sort.Slice(cp.Eliminations, func(i, j int) bool { return cp.Eliminations[i].Place < cp.Eliminations[j].Place })
	return &cp, nil
}

func (m *InMemoryDB) ListTournaments(limit int) ([]*db.TournamentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*db.TournamentRecord
	for _, rec := range m.tournaments {
		cp := *rec
		cp.Eliminations = nil
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FinishedAt.After(out[j].FinishedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *InMemoryDB) Close() error { return nil }

func (m *InMemoryDB) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tournaments)
}

func createTestLogBackend(t *testing.T) *logging.LogBackend {
	t.Helper()
	lb, err := logging.NewLogBackend(logging.LogConfig{DebugLevel: "off", Quiet: true})
	require.NoError(t, err)
	return lb
}

func smallConfig(players int) tournament.Config {
	cfg := tournament.DefaultConfig()
	cfg.TotalPlayers = players
	cfg.MaxPlayersPerTable = 3
	cfg.StartingStack = 200
	cfg.HandsPerBlindLevel = 3
	cfg.TableBalancingThreshold = 2
	cfg.BlindsSchedule = tournament.BlindLevels{
		{SmallBlind: 5, BigBlind: 10},
		{SmallBlind: 10, BigBlind: 20},
		{SmallBlind: 25, BigBlind: 50},
		{SmallBlind: 50, BigBlind: 100},
	}
	cfg.Seed = 7
	return cfg
}

func newTestServer(t *testing.T) (*Server, *InMemoryDB) {
	t.Helper()
	database := NewInMemoryDB()
	srv := NewServer(database, createTestLogBackend(t))
	t.Cleanup(srv.Stop)
	return srv, database
}

// playOut steps a session to the end with a random agent.
func playOut(t *testing.T, srv *Server, id string, obs tournament.Observation, mask poker.ActionMask) tournament.StepResult {
	t.Helper()
	a := agent.NewRandom(3)
	for i := 0; i < 200000; i++ {
		res, err := srv.Step(id, a.Act(obs, mask))
		require.NoError(t, err)
		if res.Terminated || res.Truncated {
			return res
		}
		obs, mask = res.Observation, res.Info.ActionMask
	}
	t.Fatal("tournament did not end")
	return tournament.StepResult{}
}

func TestResetCreatesSession(t *testing.T) {
	srv, _ := newTestServer(t)

	id, obs, info, err := srv.Reset("", smallConfig(6))
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.Equal(t, []string{id}, srv.SessionIDs())
	assert.Equal(t, "AWAITING_ACTION", info.State)

	pid, mask, err := srv.LegalActions(id)
	require.NoError(t, err)
	assert.Equal(t, obs.PlayerID, pid)
	assert.Equal(t, info.ActionMask, mask)

	tables, err := srv.Tables(id)
	require.NoError(t, err)
	assert.Len(t, tables, 2)

	stats, err := srv.Stats(id)
	require.NoError(t, err)
	assert.Equal(t, 6, stats.RemainingPlayers)
	assert.Equal(t, int64(1200), stats.TotalChips)
}

func TestResetRejectsBadConfig(t *testing.T) {
	srv, _ := newTestServer(t)

	cfg := smallConfig(6)
	cfg.TotalPlayers = 1
	_, _, _, err := srv.Reset("", cfg)
	var cfgErr *tournament.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "total_players", cfgErr.Field)
	assert.Empty(t, srv.SessionIDs(), "failed reset registers nothing")
	assert.Equal(t, codes.InvalidArgument, status.Code(toStatus(err)))
}

func TestUnknownSession(t *testing.T) {
	srv, _ := newTestServer(t)

	_, err := srv.Step("missing", poker.ActionCall)
	assert.True(t, errors.Is(err, ErrSessionNotFound))
	_, err = srv.Stats("missing")
	assert.True(t, errors.Is(err, ErrSessionNotFound))
	assert.Error(t, srv.CloseSession("missing"))
	_, _, err = srv.Watch("missing")
	assert.Equal(t, codes.NotFound, status.Code(toStatus(err)))
}

func TestFinishedTournamentIsSaved(t *testing.T) {
	database := NewInMemoryDB()
	srv := NewServer(database, createTestLogBackend(t))

	id, obs, info, err := srv.Reset("", smallConfig(6))
	require.NoError(t, err)
	res := playOut(t, srv, id, obs, info.ActionMask)
	require.True(t, res.Terminated)

	_, err = srv.Step(id, poker.ActionCall)
	var term *tournament.EpisodeTerminatedError
	require.ErrorAs(t, err, &term)
	assert.Equal(t, codes.FailedPrecondition, status.Code(toStatus(err)))

	standings, err := srv.Standings(id)
	require.NoError(t, err)

	// Stop flushes the event queue.
	srv.Stop()
	rec, err := database.LoadTournament(id)
	require.NoError(t, err)
	assert.Equal(t, res.Info.Winner, rec.Winner)
	assert.Equal(t, standings[0].PlayerID, rec.Winner)
	assert.False(t, rec.Truncated)
	assert.Contains(t, rec.Config, "total_players: 6")
	require.Len(t, rec.Eliminations, 5)
	for i, e := range rec.Eliminations {
		assert.Equal(t, i+2, e.Place)
	}
}

func TestTruncatedRestartStoresBothRuns(t *testing.T) {
	srv, database := newTestServer(t)

	cfg := smallConfig(6)
	cfg.MaxHands = 2
	id, obs, info, err := srv.Reset("", cfg)
	require.NoError(t, err)
	res := playOut(t, srv, id, obs, info.ActionMask)
	require.True(t, res.Truncated)

	again, obs, info, err := srv.Reset(id, cfg)
	require.NoError(t, err)
	assert.Equal(t, id, again)
	playOut(t, srv, id, obs, info.ActionMask)

	require.Eventually(t, func() bool { return database.count() == 2 }, 5*time.Second, 10*time.Millisecond)
	rec, err := database.LoadTournament(id)
	require.NoError(t, err)
	assert.True(t, rec.Truncated)
	assert.Equal(t, -1, rec.Winner)
	_, err = database.LoadTournament(id + "-2")
	assert.NoError(t, err)
}

func TestWatchDeliversEventsInOrder(t *testing.T) {
	srv, _ := newTestServer(t)

	id, obs, info, err := srv.Reset("", smallConfig(4))
	require.NoError(t, err)
	events, cancel, err := srv.Watch(id)
	require.NoError(t, err)
	defer cancel()

	a := agent.NewRandom(11)
	mask := info.ActionMask
	for {
		res, err := srv.Step(id, a.Act(obs, mask))
		require.NoError(t, err)
		if res.Info.HandComplete {
			break
		}
		obs, mask = res.Observation, res.Info.ActionMask
	}

	timeout := time.After(5 * time.Second)
	for done := false; !done; {
		select {
		case ev := <-events:
			assert.Equal(t, id, ev.SessionID)
			if ev.Type == EventTypeSessionReset {
				continue
			}
			assert.Equal(t, EventTypeHandComplete, ev.Type)
			assert.Equal(t, 1, ev.Info.HandsPlayed)
			done = true
		case <-timeout:
			t.Fatal("no event")
		}
	}

	require.NoError(t, srv.CloseSession(id))
	require.Eventually(t, func() bool {
		for {
			select {
			case _, ok := <-events:
				if !ok {
					return true
				}
			default:
				return false
			}
		}
	}, 5*time.Second, 10*time.Millisecond, "closing the session ends the watch")
}

type testEnv struct {
	srv    *Server
	db     *InMemoryDB
	grpc   *grpc.Server
	conn   *grpc.ClientConn
	client *Client
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	database := NewInMemoryDB()
	srv := NewServer(database, createTestLogBackend(t))

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	gs := grpc.NewServer()
	RegisterTournamentService(gs, srv)
	go func() { _ = gs.Serve(lis) }()

	conn, err := grpc.Dial(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)

	env := &testEnv{srv: srv, db: database, grpc: gs, conn: conn, client: NewClient(conn)}
	t.Cleanup(func() {
		env.conn.Close()
		env.srv.Stop()
		env.grpc.Stop()
	})
	return env
}

func TestGRPCTournament(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	bad := smallConfig(6)
	bad.MinPlayersPerTable = 1
	_, err := env.client.Reset(ctx, "", bad)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = env.client.Stats(ctx, "missing")
	assert.Equal(t, codes.NotFound, status.Code(err))

	reset, err := env.client.Reset(ctx, "", smallConfig(6))
	require.NoError(t, err)
	id := reset.SessionID
	require.NotEmpty(t, id)

	stream, err := env.client.Watch(ctx, id)
	require.NoError(t, err)

	legal, err := env.client.LegalActions(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, reset.Observation.PlayerID, legal.PlayerID)
	assert.Equal(t, reset.Info.ActionMask, legal.Mask)
	assert.Contains(t, legal.Legal, "call")

	// Call until a check spot, where folding is illegal.
	for i := 0; ; i++ {
		require.Less(t, i, 1000)
		legal, err = env.client.LegalActions(ctx, id)
		require.NoError(t, err)
		if !legal.Mask.Allows(poker.ActionFold) {
			before, err := env.client.Stats(ctx, id)
			require.NoError(t, err)
			_, err = env.client.Step(ctx, id, poker.ActionFold)
			assert.Equal(t, codes.FailedPrecondition, status.Code(err))
			after, err := env.client.Stats(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, before, after, "illegal action changes nothing")
			break
		}
		_, err = env.client.Step(ctx, id, poker.ActionCall)
		require.NoError(t, err)
	}

	ev, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, id, ev.SessionID)

	a := agent.NewRandom(5)
	var res tournament.StepResult
	for i := 0; !res.Terminated; i++ {
		require.Less(t, i, 200000)
		legal, err = env.client.LegalActions(ctx, id)
		require.NoError(t, err)
		obs := tournament.Observation{PlayerID: legal.PlayerID}
		res, err = env.client.Step(ctx, id, a.Act(obs, legal.Mask))
		require.NoError(t, err)
	}

	standings, err := env.client.Standings(ctx, id)
	require.NoError(t, err)
	require.Len(t, standings, 6)
	assert.Equal(t, res.Info.Winner, standings[0].PlayerID)

	stats, err := env.client.Stats(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.RemainingPlayers)
	assert.Equal(t, "FINISHED", stats.State)

	require.Eventually(t, func() bool {
		list, err := env.client.Results(ctx, 10)
		return err == nil && len(list) == 1
	}, 5*time.Second, 20*time.Millisecond)
	stored, err := env.client.Result(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, res.Info.Winner, stored.Winner)
	assert.Len(t, stored.Eliminations, 5)

	require.NoError(t, env.client.Close(ctx, id))
	_, err = env.client.Stats(ctx, id)
	assert.Equal(t, codes.NotFound, status.Code(err))
}
