package bus

import (
	"context"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/stellarlinkco/greetbot/internal/dialog"
)

func TestInboundMessage_UserKey(t *testing.T) {
	m := InboundMessage{Channel: "telegram", SenderID: "42", ChatID: "-100"}
	if got := m.UserKey(); got != "telegram:42" {
		t.Errorf("UserKey() = %q, want telegram:42", got)
	}
	if m.FromButton() {
		t.Error("typed message reported as button press")
	}
	m.MessageID = 7
	if !m.FromButton() {
		t.Error("button press not detected")
	}
}

func TestDispatchOutbound(t *testing.T) {
	defer goleak.VerifyNone(t)

	b := NewMessageBus(4)
	got := make(chan OutboundMessage, 1)
	b.SubscribeOutbound("telegram", func(msg OutboundMessage) { got <- msg })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.DispatchOutbound(ctx)
		close(done)
	}()

	// unknown channel is dropped without blocking the loop
	if err := b.Publish(ctx, OutboundMessage{Channel: "nowhere"}); err != nil {
		t.Fatal(err)
	}
	want := OutboundMessage{Channel: "telegram", ChatID: "1", Screen: dialog.Screen{Kind: dialog.KindText, Text: "hi"}}
	if err := b.Publish(ctx, want); err != nil {
		t.Fatal(err)
	}

	select {
	case msg := <-got:
		if msg.ChatID != "1" || msg.Screen.Text != "hi" {
			t.Errorf("delivered %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}

	cancel()
	<-done
}

func TestPublish_ContextDone(t *testing.T) {
	b := NewMessageBus(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := b.Publish(ctx, OutboundMessage{}); err == nil {
		t.Error("expected error on cancelled context")
	}
}
