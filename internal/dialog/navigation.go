package dialog

import (
	"fmt"

	"github.com/stellarlinkco/greetbot/internal/session"
)

// backTargets lists, per state, where "back" leads in order of preference.
// A target is skipped when it does not apply to the session (a category
// without subcategories, a taxonomy without styles).
var backTargets = map[session.State][]session.State{
	session.AwaitingSubcategory:      {session.AwaitingCategory},
	session.AwaitingStyle:            {session.AwaitingSubcategory, session.AwaitingCategory},
	session.AwaitingDecorationChoice: {session.AwaitingStyle, session.AwaitingSubcategory, session.AwaitingCategory},
	session.AwaitingRecipient:        {session.AwaitingDecorationChoice},
	session.Ready:                    {session.AwaitingRecipient},
	session.AwaitingFeedbackText:     {session.AwaitingCategory},
}

// clearedOnReturn lists the fields chosen at a state and every later one;
// returning to that state forgets them.
var clearedOnReturn = map[session.State][]session.Field{
	session.AwaitingCategory: {
		session.FieldCategory, session.FieldSubcategory, session.FieldStyle,
		session.FieldDecoration, session.FieldRecipient,
	},
	session.AwaitingSubcategory: {
		session.FieldSubcategory, session.FieldStyle, session.FieldDecoration, session.FieldRecipient,
	},
	session.AwaitingStyle:            {session.FieldStyle, session.FieldDecoration, session.FieldRecipient},
	session.AwaitingDecorationChoice: {session.FieldDecoration, session.FieldRecipient},
	session.AwaitingRecipient:        {session.FieldRecipient},
}

func (t *turn) back() {
	state := t.c.State()
	if state == session.AwaitingCategory {
		t.redraw()
		return
	}

	for _, target := range backTargets[state] {
		if !t.applies(target) {
			continue
		}
		t.c.Forget(clearedOnReturn[target]...)
		t.c.SetState(target)
		t.redraw()
		return
	}
	t.reset(&NavigationError{Reason: fmt.Sprintf("no way back from %s", state)})
}

func (t *turn) applies(target session.State) bool {
	switch target {
	case session.AwaitingSubcategory:
		return t.m.catalog.HasSubcategories(t.c.Category())
	case session.AwaitingStyle:
		return t.m.catalog.HasStyles()
	}
	return true
}

// redraw emits the screen of the current state.
func (t *turn) redraw() {
	t.emit(t.m.screenFor(t.c))
}

func (m *Machine) screenFor(c *session.Context) Screen {
	switch c.State() {
	case session.AwaitingSubcategory:
		label := c.Category()
		if cat, ok := m.catalog.Category(c.Category()); ok {
			label = cat.Label
		}
		subs := m.catalog.Subcategories(c.Category())
		opts := make([]Option, 0, len(subs)+1)
		for _, sub := range subs {
			opts = append(opts, Option{Key: mustEncode(SubcategorySelected{Key: sub.ID}), Label: sub.Label})
		}
		return menu(fmt.Sprintf(textSubcategoryPrompt, label), append(opts, optBack)...)

	case session.AwaitingStyle:
		styles := m.catalog.Styles()
		opts := make([]Option, 0, len(styles)+1)
		for _, st := range styles {
			opts = append(opts, Option{Key: mustEncode(StyleSelected{Key: st.ID}), Label: st.Label})
		}
		return menu(textStylePrompt, append(opts, optBack)...)

	case session.AwaitingDecorationChoice:
		return menu(textDecorationPrompt, optYes, optNo, optBack)

	case session.AwaitingRecipient:
		return menu(textRecipientPrompt, optSkip, optBack)

	case session.Ready:
		return menu(textReadyPrompt, optRegenerate, optBack, optRestart)

	case session.AwaitingFeedbackText:
		return menu(textFeedbackPrompt, optBack)
	}

	cats := m.catalog.Categories()
	opts := make([]Option, 0, len(cats))
	for _, cat := range cats {
		opts = append(opts, Option{Key: mustEncode(CategorySelected{Key: cat.ID}), Label: cat.Label})
	}
	return menu(textCategoryPrompt, opts...)
}
