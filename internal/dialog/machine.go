// Package dialog is the greeting wizard: a state machine that moves a user
// from category to recipient, runs generation and handles back navigation.
package dialog

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/stellarlinkco/greetbot/internal/generator"
	"github.com/stellarlinkco/greetbot/internal/notify"
	"github.com/stellarlinkco/greetbot/internal/prompt"
	"github.com/stellarlinkco/greetbot/internal/ratelimit"
	"github.com/stellarlinkco/greetbot/internal/session"
	"github.com/stellarlinkco/greetbot/internal/stats"
	"github.com/stellarlinkco/greetbot/internal/taxonomy"
)

// MaxRecipientRunes caps the stored recipient qualifier.
const MaxRecipientRunes = 64

// Deps are the collaborators of a Machine. Catalog, Sessions, Limiter and
// Backend are required.
type Deps struct {
	Catalog   *taxonomy.Store
	Sessions  *session.Store
	Limiter   *ratelimit.Limiter
	Assembler *prompt.Assembler
	Backend   generator.Backend
	Notifier  notify.Notifier
	Stats     *stats.Counters
	Clock     func() time.Time
	Logger    *zap.Logger
}

type Machine struct {
	catalog   *taxonomy.Store
	sessions  *session.Store
	limiter   *ratelimit.Limiter
	assembler *prompt.Assembler
	backend   generator.Backend
	notifier  notify.Notifier
	stats     *stats.Counters
	now       func() time.Time
	log       *zap.Logger
}

func New(d Deps) (*Machine, error) {
	switch {
	case d.Catalog == nil:
		return nil, errors.New("dialog: catalog is required")
	case d.Sessions == nil:
		return nil, errors.New("dialog: session store is required")
	case d.Limiter == nil:
		return nil, errors.New("dialog: limiter is required")
	case d.Backend == nil:
		return nil, errors.New("dialog: backend is required")
	}

	m := &Machine{
		catalog:   d.Catalog,
		sessions:  d.Sessions,
		limiter:   d.Limiter,
		assembler: d.Assembler,
		backend:   d.Backend,
		notifier:  d.Notifier,
		stats:     d.Stats,
		now:       d.Clock,
		log:       d.Logger,
	}
	if m.assembler == nil {
		m.assembler = prompt.NewAssembler(d.Catalog, prompt.DefaultBounds)
	}
	if m.notifier == nil {
		m.notifier = notify.Nop{}
	}
	if m.stats == nil {
		m.stats = stats.New()
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.log == nil {
		m.log = zap.NewNop()
	}
	return m, nil
}

// Handle applies ev for userID and returns the screens to show, in order.
func (m *Machine) Handle(ctx context.Context, userID string, ev Event) []Screen {
	var out []Screen
	m.HandleFunc(ctx, userID, ev, func(s Screen) { out = append(out, s) })
	return out
}

// HandleFunc is Handle with screens delivered as they are produced, so the
// progress screen reaches the user before the generation call returns.
// Events of one user are serialized; other users are not blocked.
func (m *Machine) HandleFunc(ctx context.Context, userID string, ev Event, emit func(Screen)) {
	m.sessions.With(userID, func(c *session.Context) {
		t := &turn{m: m, ctx: ctx, user: userID, c: c, emit: emit}
		t.dispatch(ev)
	})
}

// State reports the current state of a user, AwaitingCategory if unknown.
func (m *Machine) State(userID string) session.State {
	snap, _ := m.sessions.Peek(userID)
	return snap.State
}

// turn is the handling of one event with the user's session locked.
type turn struct {
	m    *Machine
	ctx  context.Context
	user string
	c    *session.Context
	emit func(Screen)
}

func (t *turn) dispatch(ev Event) {
	switch e := ev.(type) {
	case SessionStarted:
		t.c.Clear()
		t.m.stats.SessionStarted()
		t.redraw()
		return
	case RestartRequested:
		t.c.Clear()
		t.redraw()
		return
	case InvalidInput:
		t.reset(&NavigationError{Key: e.Raw, Reason: "unrecognized action"})
		return
	case TextEntered:
		switch t.c.State() {
		case session.AwaitingRecipient:
			ev = RecipientEntered{Text: e.Text}
		case session.AwaitingFeedbackText:
			ev = FeedbackEntered{Text: e.Text}
		}
	}

	if _, ok := ev.(BackRequested); ok {
		t.back()
		return
	}

	switch t.c.State() {
	case session.AwaitingCategory:
		if e, ok := ev.(CategorySelected); ok {
			t.selectCategory(e.Key)
			return
		}
	case session.AwaitingSubcategory:
		if e, ok := ev.(SubcategorySelected); ok {
			t.selectSubcategory(e.Key)
			return
		}
	case session.AwaitingStyle:
		if e, ok := ev.(StyleSelected); ok {
			t.selectStyle(e.Key)
			return
		}
	case session.AwaitingDecorationChoice:
		if e, ok := ev.(DecorationChosen); ok {
			t.c.SetDecoration(e.Enabled)
			t.c.SetState(session.AwaitingRecipient)
			t.redraw()
			return
		}
	case session.AwaitingRecipient:
		switch e := ev.(type) {
		case RecipientEntered:
			t.enterRecipient(e.Text)
			return
		case RecipientSkipped:
			t.c.SetRecipient("")
			t.generate()
			return
		}
	case session.Ready:
		if _, ok := ev.(RegenerateRequested); ok {
			t.generate()
			return
		}
	case session.AwaitingFeedbackText:
		if e, ok := ev.(FeedbackEntered); ok {
			t.sendFeedback(e.Text)
			return
		}
	}

	t.m.log.Debug("event ignored",
		zap.String("user", t.user),
		zap.Stringer("state", t.c.State()),
		zap.String("event", fmt.Sprintf("%T", ev)),
	)
	t.redraw()
}

func (t *turn) selectCategory(key string) {
	cat, ok := t.m.catalog.Category(key)
	if !ok {
		t.reset(&NavigationError{Key: key, Reason: "unknown category"})
		return
	}

	switch cat.Kind {
	case taxonomy.KindInfo:
		t.emit(textScreen(cat.Info))
		t.redraw()
		return
	case taxonomy.KindFeedback:
		t.c.SetCategory(cat.ID)
		t.c.SetState(session.AwaitingFeedbackText)
		t.redraw()
		return
	}

	t.c.SetCategory(cat.ID)
	if t.m.catalog.HasSubcategories(cat.ID) {
		t.c.SetState(session.AwaitingSubcategory)
		t.redraw()
		return
	}
	t.c.SetSubcategory(cat.ID)
	t.afterSubcategory()
}

func (t *turn) selectSubcategory(key string) {
	sub, ok := t.m.catalog.Subcategory(key)
	if !ok || sub.Implicit || sub.Category != t.c.Category() {
		t.reset(&NavigationError{Key: key, Reason: "unknown subcategory"})
		return
	}
	t.c.SetSubcategory(sub.ID)
	t.afterSubcategory()
}

func (t *turn) afterSubcategory() {
	if t.m.catalog.HasStyles() {
		t.c.SetState(session.AwaitingStyle)
	} else {
		t.c.SetState(session.AwaitingDecorationChoice)
	}
	t.redraw()
}

func (t *turn) selectStyle(key string) {
	if _, ok := t.m.catalog.Style(key); !ok {
		t.reset(&NavigationError{Key: key, Reason: "unknown style"})
		return
	}
	t.c.SetStyle(key)
	t.c.SetState(session.AwaitingDecorationChoice)
	t.redraw()
}

func (t *turn) enterRecipient(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		t.redraw()
		return
	}
	if utf8.RuneCountInString(text) > MaxRecipientRunes {
		text = strings.TrimSpace(string([]rune(text)[:MaxRecipientRunes]))
	}
	t.c.SetRecipient(text)
	t.generate()
}

// generate runs one generation attempt and leaves the session in Ready
// whatever the outcome.
func (t *turn) generate() {
	t.c.SetState(session.Ready)
	log := t.m.log.With(zap.String("user", t.user))

	if !t.c.ReadyForGeneration(t.m.catalog.HasStyles()) {
		t.reset(&NavigationError{Reason: "session incomplete for generation"})
		return
	}

	d := t.m.limiter.Admit(t.user, t.m.now())
	if !d.Admitted {
		t.m.stats.Throttle()
		log.Info("generation throttled", zap.Duration("retry_after", d.RetryAfter))
		secs := int(math.Ceil(d.RetryAfter.Seconds()))
		t.emit(errorScreen(fmt.Sprintf(textThrottled, secs)))
		t.redraw()
		return
	}

	req := t.m.assembler.Build(t.c.Snapshot())
	t.emit(Screen{Kind: KindProgress, Text: textGenerating})

	raw, err := t.m.backend.Generate(t.ctx, req)
	var segments []string
	if err == nil {
		segments = prompt.Segments(raw)
		if len(segments) == 0 {
			err = &generator.BackendError{Op: "parse", Err: generator.ErrEmptyOutput}
		}
	}
	if err != nil {
		t.m.stats.BackendFailed()
		log.Warn("generation failed", zap.Error(err))
		t.emit(errorScreen(textGenerationFailed))
		t.redraw()
		return
	}

	t.m.stats.Generated()
	log.Info("generation delivered",
		zap.String("subcategory", t.c.Subcategory()),
		zap.Int("segments", len(segments)),
	)
	for _, seg := range segments {
		t.emit(textScreen(seg))
	}
	t.redraw()
}

func (t *turn) sendFeedback(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		t.redraw()
		return
	}

	err := t.m.notifier.NotifyOperator(t.ctx, t.user, text)
	t.c.Clear()
	switch {
	case err == nil:
		t.m.stats.FeedbackSent()
		t.emit(menu(textFeedbackThanks, optToMenu))
	case errors.Is(err, notify.ErrNotConfigured):
		t.m.log.Debug("feedback dropped, no operator chat", zap.String("user", t.user))
		t.emit(menu(textFeedbackThanks, optToMenu))
	default:
		t.m.log.Error("feedback not delivered", zap.String("user", t.user), zap.Error(err))
		t.emit(errorScreen(textFeedbackFailed))
		t.redraw()
	}
}

// reset recovers from a NavigationError by starting over.
func (t *turn) reset(err *NavigationError) {
	t.m.stats.NavigationReset()
	t.m.log.Warn("navigation reset",
		zap.String("user", t.user),
		zap.Stringer("state", t.c.State()),
		zap.Error(err),
	)
	t.c.Clear()
	t.emit(errorScreen(textStaleMenu))
	t.redraw()
}
