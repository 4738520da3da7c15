package dialog

// Event is one inbound user action, decided once by the transport.
type Event interface {
	event()
}

type (
	// SessionStarted forces a fresh session from any state.
	SessionStarted struct{}
	// RestartRequested clears the session and shows the main menu.
	RestartRequested struct{}

	CategorySelected    struct{ Key string }
	SubcategorySelected struct{ Key string }
	StyleSelected       struct{ Key string }
	DecorationChosen    struct{ Enabled bool }

	RecipientEntered    struct{ Text string }
	RecipientSkipped    struct{}
	RegenerateRequested struct{}
	BackRequested       struct{}
	FeedbackEntered     struct{ Text string }

	// TextEntered is free text whose meaning depends on the current state.
	TextEntered struct{ Text string }
	// InvalidInput is callback data the transport could not decode.
	InvalidInput struct{ Raw string }
)

func (SessionStarted) event()      {}
func (RestartRequested) event()    {}
func (CategorySelected) event()    {}
func (SubcategorySelected) event() {}
func (StyleSelected) event()       {}
func (DecorationChosen) event()    {}
func (RecipientEntered) event()    {}
func (RecipientSkipped) event()    {}
func (RegenerateRequested) event() {}
func (BackRequested) event()       {}
func (FeedbackEntered) event()     {}
func (TextEntered) event()         {}
func (InvalidInput) event()        {}
