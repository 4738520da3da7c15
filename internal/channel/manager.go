package channel

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/stellarlinkco/greetbot/internal/bus"
	"github.com/stellarlinkco/greetbot/internal/config"
)

type ChannelManager struct {
	channels map[string]Channel
	bus      *bus.MessageBus
	log      *zap.Logger
}

func NewChannelManager(cfg config.ChannelsConfig, b *bus.MessageBus, log *zap.Logger) (*ChannelManager, error) {
	if log == nil {
		log = zap.NewNop()
	}
	m := &ChannelManager{
		channels: make(map[string]Channel),
		bus:      b,
		log:      log.Named("channel-mgr"),
	}

	if cfg.Telegram.Enabled {
		ch, err := NewTelegramChannel(cfg.Telegram, b, log)
		if err != nil {
			return nil, fmt.Errorf("init telegram channel: %w", err)
		}
		m.Register(ch)
	}

	return m, nil
}

// Register adds ch and subscribes it to outbound messages addressed to it.
func (m *ChannelManager) Register(ch Channel) {
	m.channels[ch.Name()] = ch
	m.bus.SubscribeOutbound(ch.Name(), func(msg bus.OutboundMessage) {
		if err := ch.Send(msg); err != nil {
			m.log.Error("send failed", zap.String("channel", ch.Name()), zap.Error(err))
		}
	})
}

func (m *ChannelManager) StartAll(ctx context.Context) error {
	// Not errgroup.WithContext: its context ends when Wait returns, and
	// channels keep running on ctx after Start.
	var g errgroup.Group
	for name, ch := range m.channels {
		g.Go(func() error {
			m.log.Info("starting", zap.String("channel", name))
			if err := ch.Start(ctx); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (m *ChannelManager) StopAll() error {
	for name, ch := range m.channels {
		m.log.Info("stopping", zap.String("channel", name))
		if err := ch.Stop(); err != nil {
			m.log.Error("stop failed", zap.String("channel", name), zap.Error(err))
		}
	}
	return nil
}

func (m *ChannelManager) EnabledChannels() []string {
	names := make([]string, 0, len(m.channels))
	for name := range m.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
