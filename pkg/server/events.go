package server

import (
	"sync"
	"time"

	"github.com/decred/slog"

	"github.com/vctt94/pokertourney/pkg/tournament"
)

// EventType names what happened in a session.
type EventType string

const (
	EventTypeSessionReset EventType = "session_reset"
	EventTypeHandComplete EventType = "hand_complete"
	EventTypeTablesMoved  EventType = "tables_moved"
	EventTypeFinished     EventType = "tournament_finished"
	EventTypeTruncated    EventType = "tournament_truncated"
	EventTypeClosed       EventType = "session_closed"
)

// Event is an immutable snapshot published after a session changes.
type Event struct {
	Type      EventType             `json:"type"`
	SessionID string                `json:"session_id"`
	Info      tournament.Info       `json:"info"`
	Stats     tournament.Stats      `json:"stats"`
	Standings []tournament.Standing `json:"standings,omitempty"`
	Timestamp time.Time             `json:"timestamp"`

	record *Result // set when the session ended
}

// EventProcessor fans session events out to persistence and watchers on
// a fixed pool of workers.
type EventProcessor struct {
	server  *Server
	log     slog.Logger
	queue   chan *Event
	workers int
	wg      sync.WaitGroup
	started bool
	mu      sync.Mutex
}

// NewEventProcessor creates a new event processor
func NewEventProcessor(server *Server, queueSize, workerCount int) *EventProcessor {
	if workerCount < 1 {
		workerCount = 1
	}
	return &EventProcessor{
		server:  server,
		log:     server.log,
		queue:   make(chan *Event, queueSize),
		workers: workerCount,
	}
}

// Start begins processing events
func (ep *EventProcessor) Start() {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	if ep.started {
		return
	}

	ep.started = true
	ep.log.Infof("Starting event processor with %d workers", ep.workers)

	for i := 0; i < ep.workers; i++ {
		ep.wg.Add(1)
		go ep.run(i)
	}
}

// Stop drains the queue and waits for the workers to exit. Events
// published afterwards are dropped.
func (ep *EventProcessor) Stop() {
	ep.mu.Lock()
	if !ep.started {
		ep.mu.Unlock()
		return
	}
	ep.started = false
	close(ep.queue)
	ep.mu.Unlock()

	ep.log.Infof("Stopping event processor...")
	ep.wg.Wait()
	ep.log.Infof("Event processor stopped")
}

// PublishEvent queues an event. Persistence events block until there is
// room; watcher-only events are dropped when the queue is full.
func (ep *EventProcessor) PublishEvent(event *Event) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	if !ep.started {
		ep.log.Warnf("Event processor not started, dropping event: %v", event.Type)
		return
	}

	if event.record != nil {
		ep.queue <- event
		return
	}
	select {
	case ep.queue <- event:
		ep.log.Debugf("Published event: %s for session %s", event.Type, event.SessionID)
	default:
		ep.log.Errorf("Event queue full, dropping event: %s for session %s", event.Type, event.SessionID)
	}
}

func (ep *EventProcessor) run(id int) {
	defer ep.wg.Done()
	ep.log.Debugf("Event worker %d started", id)
	for event := range ep.queue {
		ep.processPersistence(event)
		ep.server.notifyWatchers(event)
	}
	ep.log.Debugf("Event worker %d stopped", id)
}

func (ep *EventProcessor) processPersistence(event *Event) {
	if event.record == nil {
		return
	}
	if err := ep.server.saveResult(event.record); err != nil {
		ep.log.Errorf("Failed to save tournament %s: %v", event.SessionID, err)
	}
}
