package inputmethod

import (
	"fmt"
	"log/slog"
)

// Dispatcher routes input method events to a Connector. It neither buffers
// nor reorders: each Dispatch call runs the matching callback before
// returning.
type Dispatcher struct {
	connector Connector
	log       *slog.Logger
}

// NewDispatcher returns a Dispatcher for connector. A nil connector is
// replaced by NopConnector so there is always a valid target.
func NewDispatcher(connector Connector, log *slog.Logger) *Dispatcher {
	if connector == nil {
		connector = NopConnector{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{connector: connector, log: log}
}

// Dispatch delivers ev. Unknown events are skipped.
func (d *Dispatcher) Dispatch(ev Event) {
	switch ev := ev.(type) {
	case ActivateEvent:
		d.connector.Activated()
	case DeactivateEvent:
		d.connector.Deactivated()
	case SurroundingTextEvent:
		d.connector.SurroundingText(ev.Text, ev.Cursor, ev.Anchor)
	case TextChangeCauseEvent:
		d.connector.TextChangeCause(ev.Cause)
	case ContentTypeEvent:
		d.connector.ContentType(ev.Hint, ev.Purpose)
	case DoneEvent:
		d.connector.Done()
	case UnavailableEvent:
		d.connector.Unavailable()
	case UnknownEvent:
		d.log.Debug("ignoring unknown input method event", "opcode", ev.Opcode)
	default:
		d.log.Debug("ignoring unsupported input method event", "type", fmt.Sprintf("%T", ev))
	}
}
