package channel

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/stellarlinkco/greetbot/internal/bus"
	"github.com/stellarlinkco/greetbot/internal/config"
	"github.com/stellarlinkco/greetbot/internal/dialog"
)

func TestBaseChannel_Name(t *testing.T) {
	b := bus.NewMessageBus(10)
	ch := NewBaseChannel("test", b, nil)
	if ch.Name() != "test" {
		t.Errorf("Name = %q, want test", ch.Name())
	}
}

func TestBaseChannel_IsAllowed_NoFilter(t *testing.T) {
	b := bus.NewMessageBus(10)
	ch := NewBaseChannel("test", b, nil)
	if !ch.IsAllowed("anyone") {
		t.Error("should allow anyone when allowFrom is empty")
	}
}

func TestBaseChannel_IsAllowed_WithFilter(t *testing.T) {
	b := bus.NewMessageBus(10)
	ch := NewBaseChannel("test", b, []string{"user1", "user2"})

	if !ch.IsAllowed("user1") {
		t.Error("should allow user1")
	}
	if !ch.IsAllowed("user2") {
		t.Error("should allow user2")
	}
	if ch.IsAllowed("user3") {
		t.Error("should reject user3")
	}
}

// mockTelegramBot implements TelegramBot interface for testing
type mockTelegramBot struct {
	mu       sync.Mutex
	batches  [][]tgbotapi.Update
	offsets  []int
	pollErr  error
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	sendFn   func(c tgbotapi.Chattable) error
	self     tgbotapi.User
}

func newMockBot() *mockTelegramBot {
	return &mockTelegramBot{self: tgbotapi.User{UserName: "testbot"}}
}

func (m *mockTelegramBot) GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error) {
	m.mu.Lock()
	m.offsets = append(m.offsets, config.Offset)
	if m.pollErr != nil {
		err := m.pollErr
		m.mu.Unlock()
		return nil, err
	}
	if len(m.batches) > 0 {
		batch := m.batches[0]
		m.batches = m.batches[1:]
		m.mu.Unlock()
		return batch, nil
	}
	m.mu.Unlock()
	time.Sleep(5 * time.Millisecond)
	return nil, nil
}

func (m *mockTelegramBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, c)
	if m.sendFn != nil {
		if err := m.sendFn(c); err != nil {
			return tgbotapi.Message{}, err
		}
	}
	return tgbotapi.Message{MessageID: len(m.sent)}, nil
}

func (m *mockTelegramBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (m *mockTelegramBot) GetSelf() tgbotapi.User {
	return m.self
}

func (m *mockTelegramBot) sentSnapshot() []tgbotapi.Chattable {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]tgbotapi.Chattable(nil), m.sent...)
}

func newTestChannel(t *testing.T, cfg config.TelegramConfig, bot *mockTelegramBot) (*TelegramChannel, *bus.MessageBus) {
	t.Helper()
	if cfg.Token == "" {
		cfg.Token = "fake-token"
	}
	b := bus.NewMessageBus(10)
	factory := func(token, apiEndpoint string, client *http.Client) (TelegramBot, error) {
		return bot, nil
	}
	ch, err := NewTelegramChannelWithFactory(cfg, b, zaptest.NewLogger(t), factory)
	if err != nil {
		t.Fatalf("NewTelegramChannelWithFactory: %v", err)
	}
	ch.SetBot(bot)
	return ch, b
}

func commandMessage(text string) *tgbotapi.Message {
	cmd := strings.Fields(text)[0]
	return &tgbotapi.Message{
		MessageID: 5,
		From:      &tgbotapi.User{ID: 123, UserName: "testuser"},
		Chat:      &tgbotapi.Chat{ID: 456},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	}
}

func receive(t *testing.T, b *bus.MessageBus) bus.InboundMessage {
	t.Helper()
	select {
	case msg := <-b.Inbound:
		return msg
	case <-time.After(time.Second):
		t.Fatal("expected inbound message")
		return bus.InboundMessage{}
	}
}

func expectNone(t *testing.T, b *bus.MessageBus) {
	t.Helper()
	select {
	case msg := <-b.Inbound:
		t.Fatalf("unexpected inbound message %+v", msg)
	default:
	}
}

func TestNewTelegramChannel_NoToken(t *testing.T) {
	b := bus.NewMessageBus(10)
	_, err := NewTelegramChannel(config.TelegramConfig{}, b, nil)
	if err == nil {
		t.Error("expected error for empty token")
	}
}

func TestNewTelegramChannel_Valid(t *testing.T) {
	b := bus.NewMessageBus(10)
	ch, err := NewTelegramChannel(config.TelegramConfig{Token: "fake-token"}, b, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ch.Name() != "telegram" {
		t.Errorf("Name = %q, want telegram", ch.Name())
	}
}

func TestTelegramChannel_InitBot_Error(t *testing.T) {
	b := bus.NewMessageBus(10)
	factory := func(token, apiEndpoint string, client *http.Client) (TelegramBot, error) {
		return nil, fmt.Errorf("init failed")
	}
	ch, _ := NewTelegramChannelWithFactory(config.TelegramConfig{Token: "fake-token"}, b, nil, factory)

	if err := ch.Start(context.Background()); err == nil {
		t.Error("expected error from Start")
	}
}

func TestTelegramChannel_InitBot_InvalidProxy(t *testing.T) {
	b := bus.NewMessageBus(10)
	ch, _ := NewTelegramChannel(config.TelegramConfig{Token: "fake-token", Proxy: "://bad"}, b, nil)

	if err := ch.initBot(); err == nil {
		t.Error("expected error for invalid proxy")
	}
}

func TestTelegramChannel_InitBot_ProxyClient(t *testing.T) {
	b := bus.NewMessageBus(10)
	var got *http.Client
	factory := func(token, apiEndpoint string, client *http.Client) (TelegramBot, error) {
		got = client
		return newMockBot(), nil
	}
	ch, _ := NewTelegramChannelWithFactory(config.TelegramConfig{Token: "fake-token", Proxy: "http://127.0.0.1:8080"}, b, nil, factory)

	if err := ch.initBot(); err != nil {
		t.Fatalf("initBot: %v", err)
	}
	if got == nil || got == http.DefaultClient {
		t.Error("proxy config should produce a dedicated client")
	}
}

func TestTelegramChannel_StartStop_Polls(t *testing.T) {
	defer goleak.VerifyNone(t)

	bot := newMockBot()
	bot.batches = [][]tgbotapi.Update{
		{{UpdateID: 10, Message: commandMessage("/start")}},
		{{UpdateID: 11, Message: &tgbotapi.Message{
			From: &tgbotapi.User{ID: 123},
			Chat: &tgbotapi.Chat{ID: 456},
			Text: "Анна",
		}}},
	}
	ch, b := newTestChannel(t, config.TelegramConfig{}, bot)

	if err := ch.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	first := receive(t, b)
	if _, ok := first.Event.(dialog.SessionStarted); !ok {
		t.Errorf("first event = %#v, want SessionStarted", first.Event)
	}
	second := receive(t, b)
	if ev, ok := second.Event.(dialog.TextEntered); !ok || ev.Text != "Анна" {
		t.Errorf("second event = %#v, want TextEntered{Анна}", second.Event)
	}
	if second.UserKey() != "telegram:123" || second.ChatID != "456" {
		t.Errorf("routing = %s/%s", second.UserKey(), second.ChatID)
	}

	// let the loop acknowledge the second batch
	time.Sleep(30 * time.Millisecond)
	if err := ch.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	bot.mu.Lock()
	defer bot.mu.Unlock()
	if len(bot.offsets) < 3 || bot.offsets[1] != 11 || bot.offsets[2] != 12 {
		t.Errorf("offsets = %v, want acknowledgement after each batch", bot.offsets)
	}
}

func TestTelegramChannel_PollError_BacksOff(t *testing.T) {
	defer goleak.VerifyNone(t)

	bot := newMockBot()
	bot.pollErr = &tgbotapi.Error{Code: http.StatusConflict, Message: "Conflict: terminated by other getUpdates request"}
	ch, _ := newTestChannel(t, config.TelegramConfig{}, bot)

	if err := ch.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if err := ch.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	bot.mu.Lock()
	defer bot.mu.Unlock()
	if len(bot.offsets) != 1 {
		t.Errorf("polled %d times within first backoff, want 1", len(bot.offsets))
	}
}

func TestIsConflict(t *testing.T) {
	conflict := fmt.Errorf("poll: %w", &tgbotapi.Error{Code: http.StatusConflict})
	if !isConflict(conflict) {
		t.Error("wrapped 409 not detected")
	}
	if isConflict(&tgbotapi.Error{Code: http.StatusBadGateway}) {
		t.Error("502 reported as conflict")
	}
	if isConflict(errors.New("timeout")) {
		t.Error("plain error reported as conflict")
	}
}

func TestTelegramChannel_HandleMessage_Commands(t *testing.T) {
	ch, b := newTestChannel(t, config.TelegramConfig{}, newMockBot())
	ctx := context.Background()

	ch.handleMessage(ctx, commandMessage("/start"))
	if _, ok := receive(t, b).Event.(dialog.SessionStarted); !ok {
		t.Error("/start should start the session")
	}

	for _, cmd := range []string{"/menu", "/restart"} {
		ch.handleMessage(ctx, commandMessage(cmd))
		if _, ok := receive(t, b).Event.(dialog.RestartRequested); !ok {
			t.Errorf("%s should request restart", cmd)
		}
	}

	ch.handleMessage(ctx, commandMessage("/unknown"))
	expectNone(t, b)
}

func TestTelegramChannel_HandleMessage_Rejected(t *testing.T) {
	ch, b := newTestChannel(t, config.TelegramConfig{AllowFrom: []string{"999"}}, newMockBot())

	ch.handleMessage(context.Background(), &tgbotapi.Message{
		From: &tgbotapi.User{ID: 123},
		Chat: &tgbotapi.Chat{ID: 456},
		Text: "hello",
	})
	expectNone(t, b)
}

func TestTelegramChannel_HandleMessage_EmptyText(t *testing.T) {
	ch, b := newTestChannel(t, config.TelegramConfig{}, newMockBot())

	ch.handleMessage(context.Background(), &tgbotapi.Message{
		From: &tgbotapi.User{ID: 123},
		Chat: &tgbotapi.Chat{ID: 456},
		Text: "   ",
	})
	expectNone(t, b)
}

func TestTelegramChannel_HandleCallback(t *testing.T) {
	bot := newMockBot()
	ch, b := newTestChannel(t, config.TelegramConfig{}, bot)
	ctx := context.Background()

	cq := &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		From:    &tgbotapi.User{ID: 123},
		Message: &tgbotapi.Message{MessageID: 77, Chat: &tgbotapi.Chat{ID: 456}},
		Data:    "cat:birthday",
	}
	ch.handleCallback(ctx, cq)

	msg := receive(t, b)
	if ev, ok := msg.Event.(dialog.CategorySelected); !ok || ev.Key != "birthday" {
		t.Errorf("event = %#v, want CategorySelected{birthday}", msg.Event)
	}
	if msg.MessageID != 77 || !msg.FromButton() {
		t.Errorf("MessageID = %d, want 77", msg.MessageID)
	}

	bot.mu.Lock()
	answered := len(bot.requests)
	bot.mu.Unlock()
	if answered != 1 {
		t.Errorf("callback answers = %d, want 1", answered)
	}

	cq.Data = "garbage"
	ch.handleCallback(ctx, cq)
	if ev, ok := receive(t, b).Event.(dialog.InvalidInput); !ok || ev.Raw != "garbage" {
		t.Errorf("event = %#v, want InvalidInput", ev)
	}
}

func TestTelegramChannel_HandleCallback_Rejected(t *testing.T) {
	bot := newMockBot()
	ch, b := newTestChannel(t, config.TelegramConfig{AllowFrom: []string{"999"}}, bot)

	ch.handleCallback(context.Background(), &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		From:    &tgbotapi.User{ID: 123},
		Message: &tgbotapi.Message{MessageID: 77, Chat: &tgbotapi.Chat{ID: 456}},
		Data:    "back",
	})
	expectNone(t, b)

	bot.mu.Lock()
	defer bot.mu.Unlock()
	if len(bot.requests) != 1 {
		t.Error("rejected callbacks are still answered")
	}
}

func TestTelegramChannel_Send_NilBot(t *testing.T) {
	b := bus.NewMessageBus(10)
	ch, _ := NewTelegramChannel(config.TelegramConfig{Token: "fake-token"}, b, nil)

	if err := ch.Send(bus.OutboundMessage{ChatID: "1"}); err == nil {
		t.Error("expected error when bot is not initialized")
	}
}

func TestTelegramChannel_Send_InvalidChatID(t *testing.T) {
	ch, _ := newTestChannel(t, config.TelegramConfig{}, newMockBot())

	err := ch.Send(bus.OutboundMessage{ChatID: "not-a-number", Screen: dialog.Screen{Text: "test"}})
	if err == nil {
		t.Error("expected error for invalid chat ID")
	}
}

func menuScreen() dialog.Screen {
	return dialog.Screen{
		Kind: dialog.KindMenu,
		Text: "Выберите категорию поздравления:",
		Options: []dialog.Option{
			{Key: "cat:birthday", Label: "День рождения"},
			{Key: "cat:new_year", Label: "Новый год"},
		},
	}
}

func TestTelegramChannel_Send_Menu(t *testing.T) {
	bot := newMockBot()
	ch, _ := newTestChannel(t, config.TelegramConfig{}, bot)

	if err := ch.Send(bus.OutboundMessage{ChatID: "456", Screen: menuScreen()}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	sent := bot.sentSnapshot()
	if len(sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sent))
	}
	msg, ok := sent[0].(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("sent %T, want MessageConfig", sent[0])
	}
	if msg.ChatID != 456 || msg.Text != "Выберите категорию поздравления:" {
		t.Errorf("message = %d %q", msg.ChatID, msg.Text)
	}
	kb, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok {
		t.Fatalf("ReplyMarkup = %T, want inline keyboard", msg.ReplyMarkup)
	}
	if len(kb.InlineKeyboard) != 2 || len(kb.InlineKeyboard[0]) != 1 {
		t.Fatalf("keyboard layout = %v, want one button per row", kb.InlineKeyboard)
	}
	btn := kb.InlineKeyboard[1][0]
	if btn.Text != "Новый год" || btn.CallbackData == nil || *btn.CallbackData != "cat:new_year" {
		t.Errorf("second button = %+v", btn)
	}
}

func TestTelegramChannel_Send_ErrorPrefix(t *testing.T) {
	bot := newMockBot()
	ch, _ := newTestChannel(t, config.TelegramConfig{}, bot)

	err := ch.Send(bus.OutboundMessage{ChatID: "456", Screen: dialog.Screen{Kind: dialog.KindError, Text: "Не удалось"}})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	msg := bot.sentSnapshot()[0].(tgbotapi.MessageConfig)
	if msg.Text != "⚠️ Не удалось" {
		t.Errorf("Text = %q", msg.Text)
	}
	if msg.ReplyMarkup != nil {
		t.Errorf("error screen without options got markup %v", msg.ReplyMarkup)
	}
}

func TestTelegramChannel_Send_EditsInPlace(t *testing.T) {
	bot := newMockBot()
	ch, _ := newTestChannel(t, config.TelegramConfig{}, bot)

	if err := ch.Send(bus.OutboundMessage{ChatID: "456", Screen: menuScreen(), EditMessageID: 77}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	sent := bot.sentSnapshot()
	if len(sent) != 1 {
		t.Fatalf("sent %d, want 1", len(sent))
	}
	edit, ok := sent[0].(tgbotapi.EditMessageTextConfig)
	if !ok {
		t.Fatalf("sent %T, want EditMessageTextConfig", sent[0])
	}
	if edit.MessageID != 77 || edit.ReplyMarkup == nil {
		t.Errorf("edit = %+v", edit)
	}
}

func TestTelegramChannel_Send_EditNotModified(t *testing.T) {
	bot := newMockBot()
	bot.sendFn = func(c tgbotapi.Chattable) error {
		return &tgbotapi.Error{Code: 400, Message: "Bad Request: message is not modified"}
	}
	ch, _ := newTestChannel(t, config.TelegramConfig{}, bot)

	if err := ch.Send(bus.OutboundMessage{ChatID: "456", Screen: menuScreen(), EditMessageID: 77}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if n := len(bot.sentSnapshot()); n != 1 {
		t.Errorf("sent %d, want only the edit attempt", n)
	}
}

func TestTelegramChannel_Send_EditFallsBack(t *testing.T) {
	bot := newMockBot()
	bot.sendFn = func(c tgbotapi.Chattable) error {
		if _, ok := c.(tgbotapi.EditMessageTextConfig); ok {
			return &tgbotapi.Error{Code: 400, Message: "Bad Request: message to edit not found"}
		}
		return nil
	}
	ch, _ := newTestChannel(t, config.TelegramConfig{}, bot)

	if err := ch.Send(bus.OutboundMessage{ChatID: "456", Screen: menuScreen(), EditMessageID: 77}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	sent := bot.sentSnapshot()
	if len(sent) != 2 {
		t.Fatalf("sent %d, want edit then new message", len(sent))
	}
	if _, ok := sent[1].(tgbotapi.MessageConfig); !ok {
		t.Errorf("fallback sent %T", sent[1])
	}
}

func TestTelegramChannel_Send_LongMessage(t *testing.T) {
	bot := newMockBot()
	ch, _ := newTestChannel(t, config.TelegramConfig{}, bot)

	screen := menuScreen()
	screen.Text = strings.Repeat("Поздравляю с праздником!\n", 400)
	if err := ch.Send(bus.OutboundMessage{ChatID: "456", Screen: screen}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	sent := bot.sentSnapshot()
	if len(sent) < 2 {
		t.Fatalf("sent %d, want multiple chunks", len(sent))
	}
	for i, c := range sent {
		msg := c.(tgbotapi.MessageConfig)
		if n := utf8.RuneCountInString(msg.Text); n > telegramMaxLen {
			t.Errorf("chunk %d has %d runes", i, n)
		}
		last := i == len(sent)-1
		if (msg.ReplyMarkup != nil) != last {
			t.Errorf("chunk %d markup = %v, want keyboard only on last", i, msg.ReplyMarkup)
		}
	}
}

func TestSplitMessage(t *testing.T) {
	if got := splitMessage("короткий", 10); len(got) != 1 || got[0] != "короткий" {
		t.Errorf("short = %q", got)
	}

	s := strings.Repeat("я", 25)
	got := splitMessage(s, 10)
	if len(got) != 3 {
		t.Fatalf("chunks = %d, want 3", len(got))
	}
	for _, c := range got {
		if !utf8.ValidString(c) {
			t.Errorf("chunk %q split inside a rune", c)
		}
	}
	if strings.Join(got, "") != s {
		t.Error("chunks do not reassemble")
	}

	got = splitMessage("аааа\nбббб\nвввв", 10)
	if got[0] != "аааа\nбббб" || got[1] != "вввв" {
		t.Errorf("newline split = %q", got)
	}
}

// mockChannel implements Channel interface for testing
type mockChannel struct {
	mu       sync.Mutex
	name     string
	started  bool
	stopped  bool
	startErr error
	stopErr  error
	sentMsgs []bus.OutboundMessage
}

func (m *mockChannel) Name() string { return m.name }

func (m *mockChannel) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = true
	return m.startErr
}

func (m *mockChannel) Stop() error {
	m.stopped = true
	return m.stopErr
}

func (m *mockChannel) Send(msg bus.OutboundMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sentMsgs = append(m.sentMsgs, msg)
	return nil
}

func TestChannelManager_Empty(t *testing.T) {
	b := bus.NewMessageBus(10)
	m, err := NewChannelManager(config.ChannelsConfig{}, b, nil)
	if err != nil {
		t.Fatalf("NewChannelManager: %v", err)
	}
	if len(m.EnabledChannels()) != 0 {
		t.Errorf("EnabledChannels = %v, want none", m.EnabledChannels())
	}
	if err := m.StartAll(context.Background()); err != nil {
		t.Errorf("StartAll error: %v", err)
	}
	if err := m.StopAll(); err != nil {
		t.Errorf("StopAll error: %v", err)
	}
}

func TestChannelManager_TelegramWithoutToken(t *testing.T) {
	b := bus.NewMessageBus(10)
	_, err := NewChannelManager(config.ChannelsConfig{Telegram: config.TelegramConfig{Enabled: true}}, b, nil)
	if err == nil {
		t.Error("expected error for enabled telegram without token")
	}
}

func TestChannelManager_WithMockChannel(t *testing.T) {
	defer goleak.VerifyNone(t)

	b := bus.NewMessageBus(10)
	m, _ := NewChannelManager(config.ChannelsConfig{}, b, zaptest.NewLogger(t))
	mock := &mockChannel{name: "mock"}
	m.Register(mock)

	if err := m.StartAll(context.Background()); err != nil {
		t.Errorf("StartAll error: %v", err)
	}
	if !mock.started {
		t.Error("mock channel should be started")
	}
	if got := m.EnabledChannels(); len(got) != 1 || got[0] != "mock" {
		t.Errorf("EnabledChannels = %v, want [mock]", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.DispatchOutbound(ctx)
		close(done)
	}()
	if err := b.Publish(ctx, bus.OutboundMessage{Channel: "mock", ChatID: "1"}); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(time.Second)
	for {
		mock.mu.Lock()
		n := len(mock.sentMsgs)
		mock.mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("outbound message not routed to registered channel")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if err := m.StopAll(); err != nil {
		t.Errorf("StopAll error: %v", err)
	}
	if !mock.stopped {
		t.Error("mock channel should be stopped")
	}
}

func TestChannelManager_StartAll_Error(t *testing.T) {
	b := bus.NewMessageBus(10)
	m, _ := NewChannelManager(config.ChannelsConfig{}, b, nil)
	m.Register(&mockChannel{name: "mock", startErr: fmt.Errorf("start failed")})

	if err := m.StartAll(context.Background()); err == nil {
		t.Error("expected error from StartAll")
	}
}

func TestChannelManager_StopAll_Error(t *testing.T) {
	b := bus.NewMessageBus(10)
	m, _ := NewChannelManager(config.ChannelsConfig{}, b, nil)
	m.Register(&mockChannel{name: "mock", stopErr: fmt.Errorf("stop failed")})

	// errors are logged, not returned
	if err := m.StopAll(); err != nil {
		t.Errorf("StopAll should not return error: %v", err)
	}
}
