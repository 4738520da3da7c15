// Package prompt turns a finished wizard session into a generation request
// and splits the generated text back into separate greetings.
package prompt

import (
	"fmt"
	"strings"

	"github.com/stellarlinkco/greetbot/internal/session"
	"github.com/stellarlinkco/greetbot/internal/taxonomy"
)

// Variants is the number of greetings requested per generation.
const Variants = 3

const (
	fallbackOccasion = "праздник"
	fallbackTone     = "нейтральный, без излишней торжественности"
)

// Bounds limits how many decorative symbols go into one variant.
type Bounds struct {
	Min int
	Max int
}

// DefaultBounds is used when no bounds are configured.
var DefaultBounds = Bounds{Min: 2, Max: 4}

func (b Bounds) normalize() Bounds {
	if b.Min < 0 {
		b.Min = 0
	}
	if b.Max < b.Min {
		b.Max = b.Min
	}
	if b.Max == 0 {
		return DefaultBounds
	}
	return b
}

// Request is the pair of instructions sent to the generation backend.
type Request struct {
	System string
	User   string
}

// Catalog is the subset of the taxonomy the assembler reads.
type Catalog interface {
	GenerationLabel(subcategoryID string) (string, bool)
	Style(id string) (taxonomy.StyleOption, bool)
	Decorations(subcategoryID string) []string
}

// Assembler builds requests. It holds no mutable state.
type Assembler struct {
	catalog Catalog
	bounds  Bounds
}

func NewAssembler(catalog Catalog, bounds Bounds) *Assembler {
	return &Assembler{catalog: catalog, bounds: bounds.normalize()}
}

func (a *Assembler) Bounds() Bounds { return a.bounds }

// Build composes the request for snap. The result depends only on snap and
// the catalog contents.
func (a *Assembler) Build(snap session.Snapshot) Request {
	return Request{
		System: systemInstruction,
		User:   a.userInstruction(snap),
	}
}

const systemInstruction = "Ты профессиональный автор поздравлений. " +
	"Пишешь на русском языке живо и искренне, от первого лица. " +
	"Не повторяешь шаблонные фразы и избегаешь клише вроде «желаю счастья, здоровья». " +
	"Не ставишь больше одного восклицательного знака подряд. " +
	"Не используешь длинное тире. " +
	"Никогда не упоминаешь, что текст написан нейросетью или ботом."

func (a *Assembler) userInstruction(snap session.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Напиши %d разных варианта поздравления.\n", Variants)
	fmt.Fprintf(&b, "Повод: %s.\n", a.Occasion(snap.Subcategory))
	fmt.Fprintf(&b, "Стиль: %s.\n", a.Tone(snap.Style))
	fmt.Fprintf(&b, "Адресат: %s.\n", AddressPhrase(snap.Recipient))
	fmt.Fprintf(&b, "Оформление: %s.\n", a.DecorationInstruction(snap))
	b.WriteString("Требования:\n")
	b.WriteString("- варианты не похожи друг на друга и не повторяют одни и те же фразы;\n")
	b.WriteString("- избегай клише и дежурных пожеланий;\n")
	b.WriteString("- пиши от первого лица;\n")
	b.WriteString("- не используй длинное тире;\n")
	b.WriteString("- не упоминай, что текст создан нейросетью;\n")
	fmt.Fprintf(&b, "- раздели варианты пустой строкой и пронумеруй их от 1 до %d.", Variants)
	return b.String()
}

// Occasion resolves the internal generation label of a subcategory.
func (a *Assembler) Occasion(subcategoryID string) string {
	if label, ok := a.catalog.GenerationLabel(subcategoryID); ok && label != "" {
		return label
	}
	return fallbackOccasion
}

// Tone resolves a style id to its tone description.
func (a *Assembler) Tone(styleID string) string {
	if st, ok := a.catalog.Style(styleID); ok && st.Tone != "" {
		return st.Tone
	}
	return fallbackTone
}

// DecorationInstruction describes which symbols to use, if any.
func (a *Assembler) DecorationInstruction(snap session.Snapshot) string {
	if !snap.Decorate {
		return "не используй эмодзи и декоративные символы"
	}
	symbols := a.catalog.Decorations(snap.Subcategory)
	return fmt.Sprintf(
		"добавь в каждый вариант от %d до %d символов из набора %s, распредели их по тексту, а не собирай в одном месте",
		a.bounds.Min, a.bounds.Max, strings.Join(symbols, " "),
	)
}

// AddressPhrase names the recipient, or a friend when none was given.
func AddressPhrase(recipient string) string {
	if r := strings.TrimSpace(recipient); r != "" {
		return "поздравь " + r
	}
	return "поздравь друга, не называя имени"
}
