package database

import (
	"sync"
	"time"

	"jordanella.com/auto-shake-go/internal/events"
	"jordanella.com/auto-shake-go/internal/logging"
)

// Journal writes loop sessions and emitted actions to the database as they
// are published on the event bus
type Journal struct {
	db     *DB
	bus    events.EventBus
	logger *logging.Logger

	mu        sync.Mutex
	subID     events.SubscriptionID
	sessionID int64
}

// NewJournal subscribes to bus. Sessions left open by a previous run are
// closed first.
func NewJournal(db *DB, bus events.EventBus) *Journal {
	j := &Journal{
		db:     db,
		bus:    bus,
		logger: logging.NewLogger("journal"),
	}

	if n, err := db.CloseOpenSessions(time.Now()); err != nil {
		j.logger.Error("Failed to close stale sessions", err)
	} else if n > 0 {
		j.logger.WarnWithContext("Closed stale sessions", map[string]interface{}{"count": n})
	}

	j.subID = bus.SubscribeAll(j.handle)
	return j
}

// SessionID returns the open session, or 0 when the loop is idle
func (j *Journal) SessionID() int64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.sessionID
}

func (j *Journal) handle(event events.Event) {
	j.mu.Lock()
	defer j.mu.Unlock()

	switch event.Type {
	case events.EventTypeLoopActivated:
		j.endLocked(0, 0, event.Timestamp)
		id, err := j.db.StartSession(event.StringValue("region"), event.Timestamp)
		if err != nil {
			j.logger.Error("Failed to start session", err)
			return
		}
		j.sessionID = id

	case events.EventTypeLoopDeactivated:
		j.endLocked(event.IntValue("ticks"), event.IntValue("actions"), event.Timestamp)

	case events.EventTypeActionEmitted:
		if j.sessionID == 0 {
			return
		}
		_, err := j.db.RecordAction(j.sessionID,
			event.StringValue("kind"),
			event.StringValue("button"),
			event.StringValue("phase"),
			event.StringValue("error"),
			event.Timestamp)
		if err != nil {
			j.logger.Error("Failed to record action", err)
		}
	}
}

func (j *Journal) endLocked(ticks, actions int64, at time.Time) {
	if j.sessionID == 0 {
		return
	}
	if err := j.db.EndSession(j.sessionID, ticks, actions, at); err != nil {
		j.logger.Error("Failed to end session", err)
	}
	j.sessionID = 0
}

// Close unsubscribes and ends any open session
func (j *Journal) Close() {
	j.bus.Unsubscribe(j.subID)

	j.mu.Lock()
	defer j.mu.Unlock()
	j.endLocked(0, 0, time.Now())
}
