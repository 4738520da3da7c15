package channel

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/stellarlinkco/greetbot/internal/bus"
	"github.com/stellarlinkco/greetbot/internal/config"
	"github.com/stellarlinkco/greetbot/internal/dialog"
)

const (
	telegramChannelName = "telegram"
	// Telegram rejects messages over 4096 characters.
	telegramMaxLen  = 4000
	pollTimeoutSecs = 30
	minBackoff      = time.Second
	maxBackoff      = time.Minute
	stopWait        = 5 * time.Second
)

// TelegramBot interface for mocking telegram bot API
type TelegramBot interface {
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetSelf() tgbotapi.User
}

// tgBotWrapper wraps tgbotapi.BotAPI to implement TelegramBot interface
type tgBotWrapper struct {
	bot *tgbotapi.BotAPI
}

func (w *tgBotWrapper) GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error) {
	return w.bot.GetUpdates(config)
}

func (w *tgBotWrapper) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	return w.bot.Send(c)
}

func (w *tgBotWrapper) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return w.bot.Request(c)
}

func (w *tgBotWrapper) GetSelf() tgbotapi.User {
	return w.bot.Self
}

// BotFactory creates TelegramBot instances (allows mocking)
type BotFactory func(token, apiEndpoint string, client *http.Client) (TelegramBot, error)

var defaultBotFactory BotFactory = func(token, apiEndpoint string, client *http.Client) (TelegramBot, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, apiEndpoint, client)
	if err != nil {
		return nil, err
	}
	return &tgBotWrapper{bot: bot}, nil
}

type TelegramChannel struct {
	BaseChannel
	token      string
	bot        TelegramBot
	proxy      string
	botFactory BotFactory
	log        *zap.Logger

	cancel context.CancelFunc
	done   chan struct{}
	mu     sync.Mutex
}

func NewTelegramChannel(cfg config.TelegramConfig, b *bus.MessageBus, log *zap.Logger) (*TelegramChannel, error) {
	return NewTelegramChannelWithFactory(cfg, b, log, defaultBotFactory)
}

// NewTelegramChannelWithFactory creates a TelegramChannel with custom bot factory (for testing)
func NewTelegramChannelWithFactory(cfg config.TelegramConfig, b *bus.MessageBus, log *zap.Logger, factory BotFactory) (*TelegramChannel, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram token is required")
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &TelegramChannel{
		BaseChannel: NewBaseChannel(telegramChannelName, b, cfg.AllowFrom),
		token:       cfg.Token,
		proxy:       cfg.Proxy,
		botFactory:  factory,
		log:         log.Named(telegramChannelName),
	}, nil
}

func (t *TelegramChannel) initBot() error {
	client := http.DefaultClient
	if t.proxy != "" {
		proxyURL, err := url.Parse(t.proxy)
		if err != nil {
			return fmt.Errorf("parse proxy url: %w", err)
		}
		client = &http.Client{
			Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
		}
	}

	bot, err := t.botFactory(t.token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return fmt.Errorf("create telegram bot: %w", err)
	}
	t.bot = bot
	t.log.Info("authorized", zap.String("bot", "@"+bot.GetSelf().UserName))
	return nil
}

func (t *TelegramChannel) Start(ctx context.Context) error {
	if err := t.initBot(); err != nil {
		return err
	}

	t.mu.Lock()
	ctx, t.cancel = context.WithCancel(ctx)
	t.done = make(chan struct{})
	done := t.done
	t.mu.Unlock()

	go func() {
		defer close(done)
		t.poll(ctx)
	}()

	t.log.Info("polling started")
	return nil
}

// poll long-polls getUpdates until ctx is done, backing off on errors.
func (t *TelegramChannel) poll(ctx context.Context) {
	offset := 0
	backoff := minBackoff
	for ctx.Err() == nil {
		u := tgbotapi.NewUpdate(offset)
		u.Timeout = pollTimeoutSecs
		u.AllowedUpdates = []string{"message", "callback_query"}

		updates, err := t.bot.GetUpdates(u)
		if err != nil {
			if isConflict(err) {
				// Another process is polling with the same token.
				t.log.Error("getUpdates conflict: another bot instance is running with this token",
					zap.Duration("retry_in", backoff), zap.Error(err))
			} else {
				t.log.Warn("getUpdates failed", zap.Duration("retry_in", backoff), zap.Error(err))
			}
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		backoff = minBackoff

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			t.handleUpdate(ctx, upd)
		}
	}
}

func isConflict(err error) bool {
	var tgErr *tgbotapi.Error
	return errors.As(err, &tgErr) && tgErr.Code == http.StatusConflict
}

func (t *TelegramChannel) handleUpdate(ctx context.Context, upd tgbotapi.Update) {
	switch {
	case upd.CallbackQuery != nil:
		t.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil:
		t.handleMessage(ctx, upd.Message)
	}
}

func (t *TelegramChannel) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.From == nil || cq.Message == nil || cq.Message.Chat == nil {
		return
	}
	senderID := strconv.FormatInt(cq.From.ID, 10)

	// Stop the client-side spinner whatever happens next.
	if _, err := t.bot.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		t.log.Debug("answer callback failed", zap.Error(err))
	}

	if !t.IsAllowed(senderID) {
		t.log.Info("rejected callback", zap.String("sender", senderID), zap.String("username", cq.From.UserName))
		return
	}

	ev, err := dialog.DecodeAction(cq.Data)
	if err != nil {
		ev = dialog.InvalidInput{Raw: cq.Data}
	}

	t.publish(ctx, bus.InboundMessage{
		Channel:   telegramChannelName,
		SenderID:  senderID,
		ChatID:    strconv.FormatInt(cq.Message.Chat.ID, 10),
		Event:     ev,
		MessageID: cq.Message.MessageID,
		Timestamp: time.Now(),
		Metadata: map[string]any{
			"username": cq.From.UserName,
		},
	})
}

func (t *TelegramChannel) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil {
		return
	}
	senderID := strconv.FormatInt(msg.From.ID, 10)

	if !t.IsAllowed(senderID) {
		t.log.Info("rejected message", zap.String("sender", senderID), zap.String("username", msg.From.UserName))
		return
	}

	var ev dialog.Event
	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			ev = dialog.SessionStarted{}
		case "menu", "restart":
			ev = dialog.RestartRequested{}
		default:
			t.log.Debug("unknown command", zap.String("command", msg.Command()))
			return
		}
	} else {
		if strings.TrimSpace(msg.Text) == "" {
			return
		}
		ev = dialog.TextEntered{Text: msg.Text}
	}

	t.publish(ctx, bus.InboundMessage{
		Channel:   telegramChannelName,
		SenderID:  senderID,
		ChatID:    strconv.FormatInt(msg.Chat.ID, 10),
		Event:     ev,
		Timestamp: time.Unix(int64(msg.Date), 0),
		Metadata: map[string]any{
			"username":   msg.From.UserName,
			"first_name": msg.From.FirstName,
			"message_id": msg.MessageID,
		},
	})
}

func (t *TelegramChannel) Stop() error {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		// A getUpdates call in flight can hold the loop for up to its timeout.
		select {
		case <-done:
		case <-time.After(stopWait):
			t.log.Warn("poll loop still running after stop")
		}
	}
	t.log.Info("stopped")
	return nil
}

// SetBot sets the bot (for testing)
func (t *TelegramChannel) SetBot(bot TelegramBot) {
	t.bot = bot
}

func (t *TelegramChannel) Send(msg bus.OutboundMessage) error {
	if t.bot == nil {
		return fmt.Errorf("telegram bot not initialized")
	}

	chatID, err := strconv.ParseInt(msg.ChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", msg.ChatID, err)
	}

	text := screenText(msg.Screen)
	markup := keyboard(msg.Screen.Options)

	if msg.EditMessageID != 0 && utf8.RuneCountInString(text) <= telegramMaxLen {
		err := t.edit(chatID, msg.EditMessageID, text, markup)
		if err == nil {
			return nil
		}
		if strings.Contains(err.Error(), "message is not modified") {
			return nil
		}
		t.log.Debug("edit failed, sending new message", zap.Error(err))
	}

	chunks := splitMessage(text, telegramMaxLen)
	for i, chunk := range chunks {
		tgMsg := tgbotapi.NewMessage(chatID, chunk)
		if i == len(chunks)-1 && markup != nil {
			tgMsg.ReplyMarkup = *markup
		}
		if _, err := t.bot.Send(tgMsg); err != nil {
			return fmt.Errorf("send telegram message: %w", err)
		}
	}
	return nil
}

func (t *TelegramChannel) edit(chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	var edit tgbotapi.EditMessageTextConfig
	if markup != nil {
		edit = tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, *markup)
	} else {
		edit = tgbotapi.NewEditMessageText(chatID, messageID, text)
	}
	_, err := t.bot.Send(edit)
	return err
}

func screenText(s dialog.Screen) string {
	if s.Kind == dialog.KindError {
		return "⚠️ " + s.Text
	}
	return s.Text
}

// keyboard renders options one per row; nil when there are none.
func keyboard(opts []dialog.Option) *tgbotapi.InlineKeyboardMarkup {
	if len(opts) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(opts))
	for _, o := range opts {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(o.Label, o.Key)))
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}

// splitMessage cuts s into pieces of at most maxLen runes, preferring to
// break at a newline.
func splitMessage(s string, maxLen int) []string {
	if s == "" {
		return []string{""}
	}
	var chunks []string
	for utf8.RuneCountInString(s) > maxLen {
		cut := runeOffset(s, maxLen)
		if idx := strings.LastIndex(s[:cut], "\n"); idx > 0 {
			cut = idx
		}
		chunks = append(chunks, s[:cut])
		s = strings.TrimPrefix(s[cut:], "\n")
	}
	return append(chunks, s)
}

// runeOffset returns the byte offset of the n-th rune of s.
func runeOffset(s string, n int) int {
	i := 0
	for off := range s {
		if i == n {
			return off
		}
		i++
	}
	return len(s)
}
