// Package gateway wires the wizard to its transports and runs it.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/stellarlinkco/greetbot/internal/bus"
	"github.com/stellarlinkco/greetbot/internal/channel"
	"github.com/stellarlinkco/greetbot/internal/config"
	"github.com/stellarlinkco/greetbot/internal/cron"
	"github.com/stellarlinkco/greetbot/internal/dialog"
	"github.com/stellarlinkco/greetbot/internal/generator"
	"github.com/stellarlinkco/greetbot/internal/notify"
	"github.com/stellarlinkco/greetbot/internal/prompt"
	"github.com/stellarlinkco/greetbot/internal/ratelimit"
	"github.com/stellarlinkco/greetbot/internal/session"
	"github.com/stellarlinkco/greetbot/internal/stats"
	"github.com/stellarlinkco/greetbot/internal/taxonomy"
)

// BackendFactory creates the generation backend (allows mocking in tests)
type BackendFactory func(cfg *config.Config, log *zap.Logger) (generator.Backend, error)

// Options for creating a Gateway
type Options struct {
	BackendFactory BackendFactory
	Logger         *zap.Logger
	Clock          func() time.Time
	SignalChan     chan os.Signal // for testing signal handling
}

// BackendOptions maps the generation settings of cfg to generator options.
func BackendOptions(cfg *config.Config) generator.Options {
	return generator.Options{
		Provider:    cfg.Provider.Type,
		APIKey:      cfg.Provider.APIKey,
		BaseURL:     cfg.Provider.BaseURL,
		Model:       cfg.Generation.Model,
		MaxTokens:   cfg.Generation.MaxTokens,
		Temperature: cfg.Generation.Temperature,
		Timeout:     cfg.Generation.TimeoutDuration(),
	}
}

// DefaultBackendFactory creates the agentsdk-go model backend.
func DefaultBackendFactory(cfg *config.Config, log *zap.Logger) (generator.Backend, error) {
	if cfg.Provider.APIKey == "" {
		return nil, errors.New("API key not set: set provider.apiKey in config or GREETBOT_API_KEY")
	}
	opts := BackendOptions(cfg)
	return generator.NewModelBackend(generator.NewProvider(opts), opts, log.Named("generator")), nil
}

// LoadCatalog returns the taxonomy at cfg.Path, or the built-in one.
func LoadCatalog(cfg config.TaxonomyConfig) (*taxonomy.Store, error) {
	if cfg.Path == "" {
		return taxonomy.Default(), nil
	}
	return taxonomy.LoadFile(cfg.Path)
}

// Core is the transport-independent part of the bot.
type Core struct {
	Catalog  *taxonomy.Store
	Sessions *session.Store
	Limiter  *ratelimit.Limiter
	Stats    *stats.Counters
	Machine  *dialog.Machine
}

// NewCore builds the state machine and its stores from cfg.
func NewCore(cfg *config.Config, backend generator.Backend, notifier notify.Notifier, clock func() time.Time, log *zap.Logger) (*Core, error) {
	catalog, err := LoadCatalog(cfg.Taxonomy)
	if err != nil {
		return nil, fmt.Errorf("load taxonomy: %w", err)
	}

	c := &Core{
		Catalog:  catalog,
		Sessions: session.NewStore(cfg.Session.IdleTTLDuration(), log.Named("session")),
		Limiter:  ratelimit.New(cfg.RateLimit.WindowDuration(), cfg.RateLimit.Burst),
		Stats:    stats.New(),
	}
	c.Machine, err = dialog.New(dialog.Deps{
		Catalog:   catalog,
		Sessions:  c.Sessions,
		Limiter:   c.Limiter,
		Assembler: prompt.NewAssembler(catalog, prompt.Bounds{Min: cfg.Decoration.Min, Max: cfg.Decoration.Max}),
		Backend:   backend,
		Notifier:  notifier,
		Stats:     c.Stats,
		Clock:     clock,
		Logger:    log.Named("dialog"),
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

type Gateway struct {
	cfg        *config.Config
	bus        *bus.MessageBus
	core       *Core
	notifier   notify.Notifier
	channels   *channel.ChannelManager
	cron       *cron.Service
	lanes      *lanes
	laneCtx    context.Context
	stopLanes  context.CancelFunc
	now        func() time.Time
	log        *zap.Logger
	signalChan chan os.Signal // for testing
}

// New creates a Gateway with default options
func New(cfg *config.Config) (*Gateway, error) {
	return NewWithOptions(cfg, Options{})
}

// NewWithOptions creates a Gateway with custom options for testing
func NewWithOptions(cfg *config.Config, opts Options) (*Gateway, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}

	g := &Gateway{
		cfg:        cfg,
		now:        now,
		log:        log.Named("gateway"),
		signalChan: opts.SignalChan,
	}

	bufSize := cfg.Gateway.BufSize
	if bufSize <= 0 {
		bufSize = config.DefaultBufSize
	}
	g.bus = bus.NewMessageBus(bufSize)
	g.bus.SetLogger(log.Named("bus"))

	g.notifier = notify.New(busPoster{g.bus}, cfg.Operator.Channel, cfg.Operator.ChatID, log.Named("notify"))

	factory := opts.BackendFactory
	if factory == nil {
		factory = DefaultBackendFactory
	}
	backend, err := factory(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}

	g.core, err = NewCore(cfg, backend, g.notifier, now, log)
	if err != nil {
		return nil, err
	}

	queue := cfg.Gateway.UserQueue
	if queue <= 0 {
		queue = config.DefaultUserQueue
	}
	// Lanes run on their own context, cancelled by Shutdown.
	g.laneCtx, g.stopLanes = context.WithCancel(context.Background())
	g.lanes = newLanes(queue, func(msg bus.InboundMessage) {
		g.handleInbound(g.laneCtx, msg)
	}, g.log)

	g.cron = cron.NewService(log)
	if err := g.registerJobs(); err != nil {
		return nil, fmt.Errorf("register jobs: %w", err)
	}

	chMgr, err := channel.NewChannelManager(cfg.Channels, g.bus, log)
	if err != nil {
		return nil, fmt.Errorf("create channel manager: %w", err)
	}
	g.channels = chMgr

	return g, nil
}

// busPoster delivers operator notifications through the outbound bus.
type busPoster struct {
	bus *bus.MessageBus
}

func (p busPoster) Post(ctx context.Context, channel, chatID, text string) error {
	return p.bus.Publish(ctx, bus.OutboundMessage{
		Channel: channel,
		ChatID:  chatID,
		Screen:  dialog.Screen{Kind: dialog.KindText, Text: text},
	})
}

func (g *Gateway) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go g.bus.DispatchOutbound(ctx)

	if err := g.channels.StartAll(ctx); err != nil {
		return fmt.Errorf("start channels: %w", err)
	}
	g.log.Info("channels started", zap.Strings("channels", g.channels.EnabledChannels()))

	if err := g.cron.Start(ctx); err != nil {
		g.log.Warn("cron start failed", zap.Error(err))
	}

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		g.processLoop(ctx)
	}()

	g.log.Info("running")

	// Use injected signal channel for testing, or create default
	sigCh := g.signalChan
	if sigCh == nil {
		sigCh = make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)
	}
	select {
	case <-sigCh:
	case <-ctx.Done():
	}

	g.log.Info("shutting down")
	cancel()
	<-loopDone
	return g.Shutdown()
}

func (g *Gateway) processLoop(ctx context.Context) {
	for {
		select {
		case msg := <-g.bus.Inbound:
			g.lanes.dispatch(msg)
		case <-ctx.Done():
			return
		}
	}
}

// handleInbound runs one event through the machine and publishes the
// resulting screens. For a button press the first menu or progress screen
// replaces the pressed message.
func (g *Gateway) handleInbound(ctx context.Context, msg bus.InboundMessage) {
	user := msg.UserKey()
	g.log.Debug("inbound", zap.String("user", user), zap.String("event", fmt.Sprintf("%T", msg.Event)))

	editID := 0
	if msg.FromButton() {
		editID = msg.MessageID
	}
	g.core.Machine.HandleFunc(ctx, user, msg.Event, func(s dialog.Screen) {
		out := bus.OutboundMessage{Channel: msg.Channel, ChatID: msg.ChatID, Screen: s}
		if editID != 0 && (s.Kind == dialog.KindMenu || s.Kind == dialog.KindProgress) {
			out.EditMessageID = editID
		}
		editID = 0
		if err := g.bus.Publish(ctx, out); err != nil {
			g.log.Warn("outbound dropped", zap.String("user", user), zap.Error(err))
		}
	})
}

func (g *Gateway) Shutdown() error {
	g.cron.Stop()
	_ = g.channels.StopAll()
	g.stopLanes()
	g.lanes.wait()
	g.log.Info("shutdown complete")
	return nil
}
