package inputmethod

// Connector receives input method events. The application implements it to
// learn when a text field wants input and what it contains.
//
// Methods are called synchronously from whichever goroutine runs the round
// trip, in the order the compositor sent the events.
type Connector interface {
	Activated()
	Deactivated()
	SurroundingText(text string, cursor, anchor uint32)
	TextChangeCause(cause ChangeCause)
	ContentType(hint ContentHint, purpose ContentPurpose)
	Done()
	Unavailable()
}

// NopConnector ignores every event.
type NopConnector struct{}

func (NopConnector) Activated()                              {}
func (NopConnector) Deactivated()                            {}
func (NopConnector) SurroundingText(string, uint32, uint32)  {}
func (NopConnector) TextChangeCause(ChangeCause)             {}
func (NopConnector) ContentType(ContentHint, ContentPurpose) {}
func (NopConnector) Done()                                   {}
func (NopConnector) Unavailable()                            {}

var _ Connector = NopConnector{}
