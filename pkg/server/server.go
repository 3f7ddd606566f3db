package server

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/decred/slog"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/vctt94/pokertourney/pkg/logging"
	"github.com/vctt94/pokertourney/pkg/poker"
	"github.com/vctt94/pokertourney/pkg/reward"
	"github.com/vctt94/pokertourney/pkg/server/internal/db"
	"github.com/vctt94/pokertourney/pkg/tournament"
)

// ErrSessionNotFound is returned for an unknown session id.
var ErrSessionNotFound = errors.New("session not found")

const watchBuffer = 64

// Result is a finished (or truncated) tournament as stored.
type Result struct {
	ID           string                         `json:"id"`
	TotalPlayers int                            `json:"total_players"`
	HandsPlayed  int                            `json:"hands_played"`
	Winner       int                            `json:"winner"`
	Truncated    bool                           `json:"truncated"`
	Config       string                         `json:"config,omitempty"`
	FinishedAt   time.Time                      `json:"finished_at"`
	Eliminations []tournament.EliminationRecord `json:"eliminations,omitempty"`
}

// session is one tournament controller. The controller itself is not
// safe for concurrent use; mu serializes every call into it.
type session struct {
	id      string
	mu      sync.Mutex
	ctrl    *tournament.Controller
	created time.Time
}

// Server hosts tournament sessions.
type Server struct {
	log        slog.Logger
	logBackend *logging.LogBackend
	db         Database
	sessions   map[string]*session
	mu         sync.RWMutex

	watchers  map[string]map[int]chan *Event // sessionID -> watch id -> channel
	nextWatch int
	watchMu   sync.RWMutex

	eventProcessor *EventProcessor
}

// NewServer creates a server. db may be nil, in which case finished
// tournaments are not persisted.
func NewServer(db Database, logBackend *logging.LogBackend) *Server {
	s := &Server{
		log:        logBackend.Logger("SRVR"),
		logBackend: logBackend,
		db:         db,
		sessions:   make(map[string]*session),
		watchers:   make(map[string]map[int]chan *Event),
	}

	// A single worker keeps events of a session in order.
	s.eventProcessor = NewEventProcessor(s, 1000, 1)
	s.eventProcessor.Start()
	return s
}

// Stop flushes pending events and closes every watcher.
func (s *Server) Stop() {
	s.eventProcessor.Stop()

	s.watchMu.Lock()
	for id, ws := range s.watchers {
		for _, ch := range ws {
			close(ch)
		}
		delete(s.watchers, id)
	}
	s.watchMu.Unlock()
}

func (s *Server) newController() *tournament.Controller {
	return tournament.NewController(tournament.Options{
		Log:         s.logBackend.Logger("TRNY"),
		TableLog:    s.logBackend.Logger("TBLE"),
		BalancerLog: s.logBackend.Logger("BLNC"),
		Reward:      reward.NewShaped(),
	})
}

func (s *Server) session(id string) (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

// Reset starts a tournament. An empty sessionID creates a new session;
// otherwise the named session is restarted. A session is only registered
// once its first Reset succeeds.
func (s *Server) Reset(sessionID string, cfg tournament.Config) (string, tournament.Observation, tournament.Info, error) {
	var sess *session
	if sessionID == "" {
		sess = &session{id: uuid.New().String(), ctrl: s.newController(), created: time.Now()}
	} else {
		var err error
		if sess, err = s.session(sessionID); err != nil {
			return "", tournament.Observation{}, tournament.Info{}, err
		}
	}

	sess.mu.Lock()
	obs, info, err := sess.ctrl.Reset(cfg)
	if err != nil {
		sess.mu.Unlock()
		return "", obs, info, err
	}
	ev := s.event(sess, EventTypeSessionReset, info)
	sess.mu.Unlock()

	if sessionID == "" {
		s.mu.Lock()
		s.sessions[sess.id] = sess
		s.mu.Unlock()
		s.log.Infof("Created session %s: %d players", sess.id, cfg.TotalPlayers)
	} else {
		s.log.Infof("Reset session %s: %d players", sess.id, cfg.TotalPlayers)
	}
	s.eventProcessor.PublishEvent(ev)
	return sess.id, obs, info, nil
}

// Step applies the awaited player's action in a session.
func (s *Server) Step(sessionID string, a poker.Action) (tournament.StepResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return tournament.StepResult{}, err
	}

	sess.mu.Lock()
	res, err := sess.ctrl.Step(a)
	if err != nil {
		sess.mu.Unlock()
		return res, err
	}
	var events []*Event
	if res.Info.HandComplete {
		events = append(events, s.event(sess, EventTypeHandComplete, res.Info))
	}
	if len(res.Info.Moves) > 0 || len(res.Info.Broken) > 0 {
		events = append(events, s.event(sess, EventTypeTablesMoved, res.Info))
	}
	switch {
	case res.Terminated:
		ev := s.event(sess, EventTypeFinished, res.Info)
		ev.record = s.result(sess)
		events = append(events, ev)
	case res.Truncated:
		ev := s.event(sess, EventTypeTruncated, res.Info)
		ev.record = s.result(sess)
		events = append(events, ev)
	}
	sess.mu.Unlock()

	for _, ev := range events {
		s.eventProcessor.PublishEvent(ev)
	}
	return res, nil
}

// LegalActions returns the awaited player and its action mask.
func (s *Server) LegalActions(sessionID string) (int, poker.ActionMask, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return -1, poker.ActionMask{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if !sess.ctrl.Started() {
		return -1, poker.ActionMask{}, tournament.ErrNotStarted
	}
	pid, ok := sess.ctrl.ActingPlayer()
	if !ok {
		return -1, poker.ActionMask{}, nil
	}
	return pid, sess.ctrl.LegalActionMask(), nil
}

// Stats returns a snapshot of a session.
func (s *Server) Stats(sessionID string) (tournament.Stats, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return tournament.Stats{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.ctrl.Stats(), nil
}

// Standings returns the results table of a session.
func (s *Server) Standings(sessionID string) ([]tournament.Standing, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.ctrl.Standings(), nil
}

// Tables returns the seating of a session.
func (s *Server) Tables(sessionID string) ([]tournament.TableView, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.ctrl.Tables(), nil
}

// CloseSession forgets a session and ends its watchers.
func (s *Server) CloseSession(sessionID string) error {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	sess.mu.Lock()
	ev := s.event(sess, EventTypeClosed, tournament.Info{PlayerID: -1, Winner: -1, State: sess.ctrl.State()})
	sess.mu.Unlock()
	s.eventProcessor.PublishEvent(ev)
	s.log.Infof("Closed session %s", sessionID)
	return nil
}

// SessionIDs lists open sessions in creation order.
func (s *Server) SessionIDs() []string {
	s.mu.RLock()
	all := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		all = append(all, sess)
	}
	s.mu.RUnlock()
	sort.Slice(all, func(i, j int) bool {
		if !all[i].created.Equal(all[j].created) {
			return all[i].created.Before(all[j].created)
		}
		return all[i].id < all[j].id
	})
	ids := make([]string, len(all))
	for i, sess := range all {
		ids[i] = sess.id
	}
	return ids
}

// Results returns up to limit stored tournaments, newest first.
func (s *Server) Results(limit int) ([]Result, error) {
	if s.db == nil {
		return nil, nil
	}
	recs, err := s.db.ListTournaments(limit)
	if err != nil {
		return nil, err
	}
	out := make([]Result, len(recs))
	for i, rec := range recs {
		out[i] = fromRecord(rec)
	}
	return out, nil
}

// Result loads one stored tournament with its eliminations.
func (s *Server) Result(id string) (Result, error) {
	if s.db == nil {
		return Result{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	rec, err := s.db.LoadTournament(id)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s: %v", ErrSessionNotFound, id, err)
	}
	return fromRecord(rec), nil
}

// Watch subscribes to the events of a session. The returned channel is
// closed by cancel, by CloseSession or by Stop. Slow watchers miss events.
func (s *Server) Watch(sessionID string) (<-chan *Event, func(), error) {
	if _, err := s.session(sessionID); err != nil {
		return nil, nil, err
	}
	ch := make(chan *Event, watchBuffer)

	s.watchMu.Lock()
	id := s.nextWatch
	s.nextWatch++
	if s.watchers[sessionID] == nil {
		s.watchers[sessionID] = make(map[int]chan *Event)
	}
	s.watchers[sessionID][id] = ch
	s.watchMu.Unlock()

	cancel := func() {
		s.watchMu.Lock()
		defer s.watchMu.Unlock()
		if c, ok := s.watchers[sessionID][id]; ok {
			close(c)
			delete(s.watchers[sessionID], id)
		}
	}
	return ch, cancel, nil
}

func (s *Server) notifyWatchers(ev *Event) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	for id, ch := range s.watchers[ev.SessionID] {
		select {
		case ch <- ev:
		default:
			s.log.Warnf("Watcher %d of session %s is slow, dropping %s", id, ev.SessionID, ev.Type)
		}
		if ev.Type == EventTypeClosed {
			close(ch)
			delete(s.watchers[ev.SessionID], id)
		}
	}
	if ev.Type == EventTypeClosed {
		delete(s.watchers, ev.SessionID)
	}
}

// event snapshots a session. Callers hold sess.mu.
func (s *Server) event(sess *session, typ EventType, info tournament.Info) *Event {
	ev := &Event{
		Type:      typ,
		SessionID: sess.id,
		Info:      info,
		Stats:     sess.ctrl.Stats(),
		Timestamp: time.Now(),
	}
	if typ == EventTypeFinished || typ == EventTypeTruncated {
		ev.Standings = sess.ctrl.Standings()
	}
	return ev
}

// result builds the stored form of an ended session. Callers hold sess.mu.
func (s *Server) result(sess *session) *Result {
	cfg := sess.ctrl.Config()
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		s.log.Warnf("Failed to encode config of session %s: %v", sess.id, err)
	}
	winner := -1
	if sess.ctrl.TournamentFinished() {
		for _, p := range sess.ctrl.Players() {
			if p.Alive {
				winner = p.ID
			}
		}
	}
	return &Result{
		ID:           sess.id,
		TotalPlayers: cfg.TotalPlayers,
		HandsPlayed:  sess.ctrl.HandsPlayed(),
		Winner:       winner,
		Truncated:    !sess.ctrl.TournamentFinished(),
		Config:       string(raw),
		FinishedAt:   time.Now(),
		Eliminations: sess.ctrl.Eliminations(),
	}
}

// saveResult persists a result. Restarting a session reuses its id, so
// later runs are stored under a numbered suffix.
func (s *Server) saveResult(res *Result) error {
	if s.db == nil {
		return nil
	}
	rec := toRecord(res)
	err := s.db.SaveTournament(rec)
	for n := 2; err != nil && n <= 100; n++ {
		if _, lerr := s.db.LoadTournament(rec.ID); lerr != nil {
			break
		}
		rec.ID = fmt.Sprintf("%s-%d", res.ID, n)
		err = s.db.SaveTournament(rec)
	}
	if err != nil {
		return err
	}
	s.log.Infof("Saved tournament %s: winner %d after %d hands", rec.ID, rec.Winner, rec.HandsPlayed)
	return nil
}

func toRecord(res *Result) *db.TournamentRecord {
	rec := &db.TournamentRecord{
		ID:           res.ID,
		TotalPlayers: res.TotalPlayers,
		HandsPlayed:  res.HandsPlayed,
		Winner:       res.Winner,
		Truncated:    res.Truncated,
		Config:       res.Config,
		FinishedAt:   res.FinishedAt,
	}
	for _, e := range res.Eliminations {
		rec.Eliminations = append(rec.Eliminations, db.Elimination{
			PlayerID: e.PlayerID,
			Place:    e.Place,
			Hand:     e.Hand,
			TableID:  e.TableID,
		})
	}
	return rec
}

func fromRecord(rec *db.TournamentRecord) Result {
	res := Result{
		ID:           rec.ID,
		TotalPlayers: rec.TotalPlayers,
		HandsPlayed:  rec.HandsPlayed,
		Winner:       rec.Winner,
		Truncated:    rec.Truncated,
		Config:       rec.Config,
		FinishedAt:   rec.FinishedAt,
	}
	for _, e := range rec.Eliminations {
		res.Eliminations = append(res.Eliminations, tournament.EliminationRecord{
			PlayerID: e.PlayerID,
			Place:    e.Place,
			Hand:     e.Hand,
			TableID:  e.TableID,
		})
	}
	return res
}
