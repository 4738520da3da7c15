// Package notify forwards messages to the operator chat.
package notify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrNotConfigured is returned by Nop so callers can tell a disabled sink
// apart from a failed delivery.
var ErrNotConfigured = errors.New("operator chat not configured")

// Notifier delivers user text to the operator.
type Notifier interface {
	NotifyOperator(ctx context.Context, userID, text string) error
}

// Poster sends plain text to a chat on a channel.
type Poster interface {
	Post(ctx context.Context, channel, chatID, text string) error
}

// Nop drops everything.
type Nop struct{}

func (Nop) NotifyOperator(context.Context, string, string) error { return ErrNotConfigured }

// Operator posts to a fixed operator chat.
type Operator struct {
	poster  Poster
	channel string
	chatID  string
	log     *zap.Logger
}

// New returns an Operator for chatID on channel, or Nop when chatID is empty.
func New(poster Poster, channel, chatID string, log *zap.Logger) Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	if chatID == "" || poster == nil {
		log.Warn("operator chat not configured, feedback will be dropped")
		return Nop{}
	}
	return &Operator{poster: poster, channel: channel, chatID: chatID, log: log}
}

func (o *Operator) NotifyOperator(ctx context.Context, userID, text string) error {
	msg := fmt.Sprintf("✉️ Сообщение от %s:\n%s", userID, text)
	if err := o.poster.Post(ctx, o.channel, o.chatID, msg); err != nil {
		o.log.Error("notify operator failed", zap.String("user", userID), zap.Error(err))
		return fmt.Errorf("notify operator: %w", err)
	}
	return nil
}

// Post sends text to the operator chat as is.
func (o *Operator) Post(ctx context.Context, text string) error {
	return o.poster.Post(ctx, o.channel, o.chatID, text)
}
