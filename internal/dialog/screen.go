package dialog

// ScreenKind tells the transport how to render a Screen.
type ScreenKind int

const (
	KindMenu ScreenKind = iota
	KindText
	KindError
	// KindProgress is shown while generation is running.
	KindProgress
)

func (k ScreenKind) String() string {
	switch k {
	case KindMenu:
		return "menu"
	case KindText:
		return "text"
	case KindError:
		return "error"
	case KindProgress:
		return "progress"
	}
	return "unknown"
}

// Option is one button; Key is an action token understood by DecodeAction.
type Option struct {
	Key   string
	Label string
}

// Screen is a declarative instruction for the transport.
type Screen struct {
	Kind    ScreenKind
	Text    string
	Options []Option
}

func menu(text string, opts ...Option) Screen {
	return Screen{Kind: KindMenu, Text: text, Options: opts}
}

func textScreen(text string) Screen {
	return Screen{Kind: KindText, Text: text}
}

func errorScreen(text string) Screen {
	return Screen{Kind: KindError, Text: text}
}

const (
	textCategoryPrompt    = "Выберите категорию поздравления:"
	textSubcategoryPrompt = "Вы выбрали: %s\nУточните повод:"
	textStylePrompt       = "Теперь выберите стиль:"
	textDecorationPrompt  = "Добавить эмодзи и декоративные символы?"
	textRecipientPrompt   = "Введите имя или уточнение (например, «для коллеги», «для мамы») или нажмите «Пропустить»:"
	textReadyPrompt       = "Что дальше?"
	textFeedbackPrompt    = "Напишите сообщение, и мы передадим его разработчикам:"
	textFeedbackThanks    = "Спасибо! Сообщение передано."
	textFeedbackFailed    = "Не удалось отправить сообщение. Попробуйте позже."
	textGenerating        = "Генерирую поздравления..."
	textGenerationFailed  = "Ошибка при генерации поздравления. Попробуйте ещё раз."
	textThrottled         = "Слишком много запросов. Попробуйте снова через %d сек."
	textStaleMenu         = "Этот пункт меню устарел. Начнём сначала."

	labelYes        = "Да"
	labelNo         = "Нет"
	labelSkip       = "Пропустить"
	labelBack       = "Назад"
	labelRegenerate = "Ещё варианты"
	labelRestart    = "В начало"
	labelToMenu     = "В меню"
)

var (
	optBack       = Option{Key: mustEncode(BackRequested{}), Label: labelBack}
	optSkip       = Option{Key: mustEncode(RecipientSkipped{}), Label: labelSkip}
	optRegenerate = Option{Key: mustEncode(RegenerateRequested{}), Label: labelRegenerate}
	optRestart    = Option{Key: mustEncode(RestartRequested{}), Label: labelRestart}
	optToMenu     = Option{Key: mustEncode(RestartRequested{}), Label: labelToMenu}
	optYes        = Option{Key: mustEncode(DecorationChosen{Enabled: true}), Label: labelYes}
	optNo         = Option{Key: mustEncode(DecorationChosen{Enabled: false}), Label: labelNo}
)
