package ledger

import (
	"sync"

	"github.com/mukundsahu017-ux/AuroraBridge/pkg/common"
)

// EventSink receives the events emitted by ledger transitions. Emit is called with the ledger lock held and must not
// call back into the ledger.
type EventSink interface {
	Emit(ev common.BridgeEvent)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(ev common.BridgeEvent)

func (f EventSinkFunc) Emit(ev common.BridgeEvent) { f(ev) }

type discardSink struct{}

func (discardSink) Emit(common.BridgeEvent) {}

// EventLog is an in-memory EventSink that records every event in emission order.
type EventLog struct {
	mu     sync.Mutex
	events []common.BridgeEvent
}

func (l *EventLog) Emit(ev common.BridgeEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

// Events returns a copy of the recorded events.
func (l *EventLog) Events() []common.BridgeEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]common.BridgeEvent, len(l.events))
	copy(out, l.events)
	return out
}

// Since returns the events recorded after the first cursor events, and the new cursor.
func (l *EventLog) Since(cursor int) ([]common.BridgeEvent, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cursor < 0 || cursor > len(l.events) {
		cursor = len(l.events)
	}
	out := make([]common.BridgeEvent, len(l.events)-cursor)
	copy(out, l.events[cursor:])
	return out, len(l.events)
}
