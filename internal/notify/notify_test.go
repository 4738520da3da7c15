package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type recordPoster struct {
	channel, chatID, text string
	err                   error
}

func (r *recordPoster) Post(_ context.Context, channel, chatID, text string) error {
	r.channel, r.chatID, r.text = channel, chatID, text
	return r.err
}

func TestNew_Unconfigured(t *testing.T) {
	n := New(&recordPoster{}, "telegram", "", nil)
	if _, ok := n.(Nop); !ok {
		t.Fatalf("New with empty chat = %T, want Nop", n)
	}
	if err := n.NotifyOperator(context.Background(), "u", "hi"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Nop error = %v, want ErrNotConfigured", err)
	}
}

func TestOperator_NotifyOperator(t *testing.T) {
	p := &recordPoster{}
	n := New(p, "telegram", "42", nil)

	if err := n.NotifyOperator(context.Background(), "telegram:7", "спасибо за бота"); err != nil {
		t.Fatalf("NotifyOperator: %v", err)
	}
	if p.channel != "telegram" || p.chatID != "42" {
		t.Errorf("posted to %s/%s, want telegram/42", p.channel, p.chatID)
	}
	if !strings.Contains(p.text, "telegram:7") || !strings.Contains(p.text, "спасибо за бота") {
		t.Errorf("text = %q", p.text)
	}
}

func TestOperator_PostError(t *testing.T) {
	p := &recordPoster{err: errors.New("down")}
	n := New(p, "telegram", "42", nil)
	if err := n.NotifyOperator(context.Background(), "u", "x"); err == nil {
		t.Error("expected error")
	}
}

func TestOperator_Post(t *testing.T) {
	p := &recordPoster{}
	op := New(p, "telegram", "42", nil).(*Operator)
	if err := op.Post(context.Background(), "digest"); err != nil {
		t.Fatal(err)
	}
	if p.text != "digest" {
		t.Errorf("text = %q, want digest", p.text)
	}
}
