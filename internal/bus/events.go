package bus

import (
	"time"

	"github.com/stellarlinkco/greetbot/internal/dialog"
)

type InboundMessage struct {
	Channel  string
	SenderID string
	ChatID   string
	Event    dialog.Event
	// MessageID is the message whose button was pressed, zero for typed input.
	MessageID int
	Timestamp time.Time
	Metadata  map[string]any
}

// UserKey identifies the wizard session of the sender.
func (m *InboundMessage) UserKey() string {
	return m.Channel + ":" + m.SenderID
}

// FromButton reports whether the event came from an inline button press.
func (m *InboundMessage) FromButton() bool {
	return m.MessageID != 0
}

type OutboundMessage struct {
	Channel string
	ChatID  string
	Screen  dialog.Screen
	// EditMessageID asks the channel to replace that message instead of
	// sending a new one, when it can.
	EditMessageID int
}
