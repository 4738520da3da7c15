// Package session keeps the per-user wizard scratchpad.
package session

// State is the wizard position of one user.
type State int

const (
	AwaitingCategory State = iota
	AwaitingSubcategory
	AwaitingStyle
	AwaitingDecorationChoice
	AwaitingRecipient
	Ready
	AwaitingFeedbackText
)

var stateNames = [...]string{
	AwaitingCategory:         "AwaitingCategory",
	AwaitingSubcategory:      "AwaitingSubcategory",
	AwaitingStyle:            "AwaitingStyle",
	AwaitingDecorationChoice: "AwaitingDecorationChoice",
	AwaitingRecipient:        "AwaitingRecipient",
	Ready:                    "Ready",
	AwaitingFeedbackText:     "AwaitingFeedbackText",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "State(?)"
	}
	return stateNames[s]
}

// Field names one selection slot of the Context.
type Field int

const (
	FieldCategory Field = iota
	FieldSubcategory
	FieldStyle
	FieldDecoration
	FieldRecipient
)

// Context is one user's in-progress selections. The zero value is a fresh
// session at AwaitingCategory. It is not safe for concurrent use; Store
// serializes access per user.
type Context struct {
	state       State
	category    string
	subcategory string
	style       string
	decoration  *bool
	recipient   string
}

func (c *Context) State() State             { return c.state }
func (c *Context) SetState(s State)         { c.state = s }
func (c *Context) Category() string         { return c.category }
func (c *Context) Subcategory() string      { return c.subcategory }
func (c *Context) Style() string            { return c.style }
func (c *Context) Recipient() string        { return c.recipient }
func (c *Context) SetCategory(id string)    { c.category = id }
func (c *Context) SetSubcategory(id string) { c.subcategory = id }
func (c *Context) SetStyle(id string)       { c.style = id }

// SetRecipient stores the recipient qualifier; an empty string means
// unspecified.
func (c *Context) SetRecipient(text string) { c.recipient = text }

func (c *Context) SetDecoration(enabled bool) {
	c.decoration = &enabled
}

// Decoration returns the preference and whether it has been answered.
func (c *Context) Decoration() (enabled, answered bool) {
	if c.decoration == nil {
		return false, false
	}
	return *c.decoration, true
}

// Forget unsets the given fields, leaving the state untouched.
func (c *Context) Forget(fields ...Field) {
	for _, f := range fields {
		switch f {
		case FieldCategory:
			c.category = ""
		case FieldSubcategory:
			c.subcategory = ""
		case FieldStyle:
			c.style = ""
		case FieldDecoration:
			c.decoration = nil
		case FieldRecipient:
			c.recipient = ""
		}
	}
}

// Clear drops every selection and returns to AwaitingCategory.
func (c *Context) Clear() {
	*c = Context{}
}

// ReadyForGeneration reports whether subcategory, decoration and, when the
// taxonomy has a style step, style are all set.
func (c *Context) ReadyForGeneration(requireStyle bool) bool {
	if c.subcategory == "" || c.decoration == nil {
		return false
	}
	return !requireStyle || c.style != ""
}

// Snapshot is an immutable copy of a Context.
type Snapshot struct {
	State       State
	Category    string
	Subcategory string
	Style       string
	// Decorate is meaningful only when DecorationAnswered is true.
	Decorate           bool
	DecorationAnswered bool
	Recipient          string
}

func (c *Context) Snapshot() Snapshot {
	enabled, answered := c.Decoration()
	return Snapshot{
		State:              c.state,
		Category:           c.category,
		Subcategory:        c.subcategory,
		Style:              c.style,
		Decorate:           enabled,
		DecorationAnswered: answered,
		Recipient:          c.recipient,
	}
}
