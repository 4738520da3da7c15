// Package taxonomy holds the read-only catalogue of occasions, styles and
// decoration sets the wizard offers.
package taxonomy

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// DefaultDecorationSet is the decoration set used when neither the
// subcategory nor its main category names one.
const DefaultDecorationSet = "default"

// Kind distinguishes generative categories from plain menu items.
type Kind string

const (
	KindOccasion Kind = ""
	KindInfo     Kind = "info"
	KindFeedback Kind = "feedback"
)

type MainCategory struct {
	ID         string
	Label      string
	Kind       Kind
	Info       string
	Decoration string
}

// Generative reports whether choosing the category leads to text generation.
func (c MainCategory) Generative() bool {
	return c.Kind == KindOccasion
}

type Subcategory struct {
	ID         string
	Label      string
	Category   string
	Generation string
	Decoration string
	// Implicit is set for the stand-in subcategory of a category that has
	// none of its own; its ID equals the category ID.
	Implicit bool
}

type StyleOption struct {
	ID    string
	Label string
	Tone  string
}

// document is the on-disk YAML shape.
type document struct {
	Decorations map[string][]string `yaml:"decorations"`
	Styles      []struct {
		ID    string `yaml:"id"`
		Label string `yaml:"label"`
		Tone  string `yaml:"tone"`
	} `yaml:"styles"`
	Categories []struct {
		ID            string `yaml:"id"`
		Label         string `yaml:"label"`
		Kind          string `yaml:"kind"`
		Info          string `yaml:"info"`
		Generation    string `yaml:"generation"`
		Decoration    string `yaml:"decoration"`
		Subcategories []struct {
			ID         string `yaml:"id"`
			Label      string `yaml:"label"`
			Generation string `yaml:"generation"`
			Decoration string `yaml:"decoration"`
		} `yaml:"subcategories"`
	} `yaml:"categories"`
}

// Store is immutable once built. Lookups of unknown ids report ok=false
// instead of failing.
type Store struct {
	categories  []MainCategory
	categoryIdx map[string]int
	children    map[string][]Subcategory
	subs        map[string]Subcategory
	styles      []StyleOption
	styleIdx    map[string]int
	decorations map[string][]string
}

// Default returns the built-in taxonomy.
func Default() *Store {
	s, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("taxonomy: built-in document is invalid: %v", err))
	}
	return s
}

// LoadFile reads a taxonomy document from path.
func LoadFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("taxonomy %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes and validates a YAML taxonomy document.
func Parse(data []byte) (*Store, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse taxonomy: %w", err)
	}

	s := &Store{
		categoryIdx: make(map[string]int),
		children:    make(map[string][]Subcategory),
		subs:        make(map[string]Subcategory),
		styleIdx:    make(map[string]int),
		decorations: make(map[string][]string, len(doc.Decorations)),
	}

	for id, symbols := range doc.Decorations {
		clean := make([]string, 0, len(symbols))
		for _, sym := range symbols {
			if sym = strings.TrimSpace(sym); sym != "" {
				clean = append(clean, sym)
			}
		}
		if len(clean) == 0 {
			return nil, fmt.Errorf("decoration set %q is empty", id)
		}
		s.decorations[id] = clean
	}
	if _, ok := s.decorations[DefaultDecorationSet]; !ok {
		return nil, fmt.Errorf("decoration set %q is required", DefaultDecorationSet)
	}

	for _, st := range doc.Styles {
		if st.ID == "" || st.Label == "" || st.Tone == "" {
			return nil, fmt.Errorf("style %q: id, label and tone are required", st.ID)
		}
		if _, dup := s.styleIdx[st.ID]; dup {
			return nil, fmt.Errorf("duplicate style id %q", st.ID)
		}
		s.styleIdx[st.ID] = len(s.styles)
		s.styles = append(s.styles, StyleOption{ID: st.ID, Label: st.Label, Tone: st.Tone})
	}

	if len(doc.Categories) == 0 {
		return nil, fmt.Errorf("no categories defined")
	}

	for _, c := range doc.Categories {
		if c.ID == "" || c.Label == "" {
			return nil, fmt.Errorf("category %q: id and label are required", c.ID)
		}
		if _, dup := s.categoryIdx[c.ID]; dup {
			return nil, fmt.Errorf("duplicate category id %q", c.ID)
		}
		if err := s.checkDecoration(c.Decoration); err != nil {
			return nil, fmt.Errorf("category %q: %w", c.ID, err)
		}

		cat := MainCategory{
			ID:         c.ID,
			Label:      c.Label,
			Kind:       Kind(c.Kind),
			Info:       c.Info,
			Decoration: c.Decoration,
		}
		switch cat.Kind {
		case KindOccasion, KindFeedback:
		case KindInfo:
			if strings.TrimSpace(cat.Info) == "" {
				return nil, fmt.Errorf("category %q: info text is required", c.ID)
			}
		default:
			return nil, fmt.Errorf("category %q: unknown kind %q", c.ID, c.Kind)
		}
		s.categoryIdx[cat.ID] = len(s.categories)
		s.categories = append(s.categories, cat)

		if !cat.Generative() {
			if len(c.Subcategories) > 0 {
				return nil, fmt.Errorf("category %q: %s items cannot have subcategories", c.ID, cat.Kind)
			}
			continue
		}

		if len(c.Subcategories) == 0 {
			if c.Generation == "" {
				return nil, fmt.Errorf("category %q: generation label is required without subcategories", c.ID)
			}
			if err := s.addSub(Subcategory{
				ID:         cat.ID,
				Label:      cat.Label,
				Category:   cat.ID,
				Generation: c.Generation,
				Decoration: cat.Decoration,
				Implicit:   true,
			}); err != nil {
				return nil, err
			}
			continue
		}

		for _, sc := range c.Subcategories {
			if sc.ID == "" || sc.Label == "" || sc.Generation == "" {
				return nil, fmt.Errorf("subcategory %q of %q: id, label and generation are required", sc.ID, c.ID)
			}
			if err := s.checkDecoration(sc.Decoration); err != nil {
				return nil, fmt.Errorf("subcategory %q: %w", sc.ID, err)
			}
			sub := Subcategory{
				ID:         sc.ID,
				Label:      sc.Label,
				Category:   cat.ID,
				Generation: sc.Generation,
				Decoration: sc.Decoration,
			}
			if err := s.addSub(sub); err != nil {
				return nil, err
			}
			s.children[cat.ID] = append(s.children[cat.ID], sub)
		}
	}

	// A subcategory id must not shadow a different category's id, otherwise
	// the implicit-subcategory rule becomes ambiguous.
	for id, sub := range s.subs {
		if _, isCat := s.categoryIdx[id]; isCat && sub.Category != id {
			return nil, fmt.Errorf("subcategory %q collides with a category id", id)
		}
	}

	return s, nil
}

func (s *Store) checkDecoration(id string) error {
	if id == "" {
		return nil
	}
	if _, ok := s.decorations[id]; !ok {
		return fmt.Errorf("unknown decoration set %q", id)
	}
	return nil
}

func (s *Store) addSub(sub Subcategory) error {
	if _, dup := s.subs[sub.ID]; dup {
		return fmt.Errorf("duplicate subcategory id %q", sub.ID)
	}
	s.subs[sub.ID] = sub
	return nil
}

// Categories returns the main menu in display order.
func (s *Store) Categories() []MainCategory {
	out := make([]MainCategory, len(s.categories))
	copy(out, s.categories)
	return out
}

func (s *Store) Category(id string) (MainCategory, bool) {
	i, ok := s.categoryIdx[id]
	if !ok {
		return MainCategory{}, false
	}
	return s.categories[i], true
}

// Subcategories returns the explicit subcategories of a main category; it is
// empty for categories whose own id doubles as the subcategory id.
func (s *Store) Subcategories(categoryID string) []Subcategory {
	children := s.children[categoryID]
	out := make([]Subcategory, len(children))
	copy(out, children)
	return out
}

func (s *Store) HasSubcategories(categoryID string) bool {
	return len(s.children[categoryID]) > 0
}

// Subcategory resolves explicit and implicit subcategories alike.
func (s *Store) Subcategory(id string) (Subcategory, bool) {
	sub, ok := s.subs[id]
	return sub, ok
}

func (s *Store) Styles() []StyleOption {
	out := make([]StyleOption, len(s.styles))
	copy(out, s.styles)
	return out
}

func (s *Store) Style(id string) (StyleOption, bool) {
	i, ok := s.styleIdx[id]
	if !ok {
		return StyleOption{}, false
	}
	return s.styles[i], true
}

// HasStyles reports whether this revision has a style step at all.
func (s *Store) HasStyles() bool {
	return len(s.styles) > 0
}

// GenerationLabel returns the prompt label for a subcategory id.
func (s *Store) GenerationLabel(subcategoryID string) (string, bool) {
	sub, ok := s.subs[subcategoryID]
	if !ok {
		return "", false
	}
	return sub.Generation, true
}

// Decorations resolves the symbol set for a subcategory: its own set, then
// its main category's, then the default.
func (s *Store) Decorations(subcategoryID string) []string {
	id := DefaultDecorationSet
	if sub, ok := s.subs[subcategoryID]; ok {
		if sub.Decoration != "" {
			id = sub.Decoration
		} else if cat, ok := s.Category(sub.Category); ok && cat.Decoration != "" {
			id = cat.Decoration
		}
	}
	set := s.decorations[id]
	out := make([]string, len(set))
	copy(out, set)
	return out
}

// Counts reports sizes for status output.
func (s *Store) Counts() (categories, subcategories, styles, decorationSets int) {
	return len(s.categories), len(s.subs), len(s.styles), len(s.decorations)
}
