package dbusapi

import (
	"log/slog"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/pentamassiv/wayland-input/pkg/inputmethod"
)

var signals = []introspect.Signal{
	{Name: "Activated"},
	{Name: "Deactivated"},
	{Name: "SurroundingText", Args: []introspect.Arg{
		{Name: "text", Type: "s"}, {Name: "cursor", Type: "u"}, {Name: "anchor", Type: "u"},
	}},
	{Name: "TextChangeCause", Args: []introspect.Arg{{Name: "cause", Type: "u"}}},
	{Name: "ContentType", Args: []introspect.Arg{
		{Name: "hint", Type: "u"}, {Name: "purpose", Type: "u"},
	}},
	{Name: "Done"},
	{Name: "Unavailable"},
}

// Emitter is the part of *dbus.Conn SignalConnector uses.
type Emitter interface {
	Emit(path dbus.ObjectPath, name string, values ...interface{}) error
}

// SignalConnector is an inputmethod.Connector that re-emits every event as
// a signal on path.
type SignalConnector struct {
	emitter Emitter
	path    dbus.ObjectPath
	log     *slog.Logger
}

var _ inputmethod.Connector = (*SignalConnector)(nil)

// NewSignalConnector creates a connector emitting through e.
func NewSignalConnector(e Emitter, path dbus.ObjectPath, log *slog.Logger) *SignalConnector {
	if log == nil {
		log = slog.Default()
	}
	return &SignalConnector{emitter: e, path: path, log: log}
}

func (s *SignalConnector) emit(member string, values ...interface{}) {
	if err := s.emitter.Emit(s.path, Interface+"."+member, values...); err != nil {
		s.log.Warn("emit signal failed", "signal", member, "error", err)
	}
}

func (s *SignalConnector) Activated()   { s.emit("Activated") }
func (s *SignalConnector) Deactivated() { s.emit("Deactivated") }

func (s *SignalConnector) SurroundingText(text string, cursor, anchor uint32) {
	s.emit("SurroundingText", text, cursor, anchor)
}

func (s *SignalConnector) TextChangeCause(cause inputmethod.ChangeCause) {
	s.emit("TextChangeCause", uint32(cause))
}

func (s *SignalConnector) ContentType(hint inputmethod.ContentHint, purpose inputmethod.ContentPurpose) {
	s.emit("ContentType", uint32(hint), uint32(purpose))
}

func (s *SignalConnector) Done()        { s.emit("Done") }
func (s *SignalConnector) Unavailable() { s.emit("Unavailable") }
