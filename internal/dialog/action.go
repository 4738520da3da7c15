package dialog

import (
	"fmt"
	"strings"
)

// Action tokens carried by menu options (and Telegram callback data).
const (
	tokenCategory    = "cat:"
	tokenSubcategory = "sub:"
	tokenStyle       = "sty:"
	tokenDecorateYes = "dec:yes"
	tokenDecorateNo  = "dec:no"
	tokenSkip        = "skip"
	tokenBack        = "back"
	tokenRegenerate  = "regen"
	tokenMenu        = "menu"
)

// EncodeAction returns the option key for a button event. Only events that
// can sit behind a button are encodable.
func EncodeAction(ev Event) (string, error) {
	switch e := ev.(type) {
	case CategorySelected:
		return tokenCategory + e.Key, nil
	case SubcategorySelected:
		return tokenSubcategory + e.Key, nil
	case StyleSelected:
		return tokenStyle + e.Key, nil
	case DecorationChosen:
		if e.Enabled {
			return tokenDecorateYes, nil
		}
		return tokenDecorateNo, nil
	case RecipientSkipped:
		return tokenSkip, nil
	case BackRequested:
		return tokenBack, nil
	case RegenerateRequested:
		return tokenRegenerate, nil
	case RestartRequested:
		return tokenMenu, nil
	default:
		return "", fmt.Errorf("event %T has no action token", ev)
	}
}

func mustEncode(ev Event) string {
	token, err := EncodeAction(ev)
	if err != nil {
		panic(err)
	}
	return token
}

// DecodeAction parses an option key back into its event.
func DecodeAction(token string) (Event, error) {
	switch token {
	case tokenDecorateYes:
		return DecorationChosen{Enabled: true}, nil
	case tokenDecorateNo:
		return DecorationChosen{Enabled: false}, nil
	case tokenSkip:
		return RecipientSkipped{}, nil
	case tokenBack:
		return BackRequested{}, nil
	case tokenRegenerate:
		return RegenerateRequested{}, nil
	case tokenMenu:
		return RestartRequested{}, nil
	}

	for prefix, build := range keyed {
		if key, ok := strings.CutPrefix(token, prefix); ok {
			if key == "" {
				return nil, fmt.Errorf("action %q: empty key", token)
			}
			return build(key), nil
		}
	}
	return nil, fmt.Errorf("unknown action %q", token)
}

var keyed = map[string]func(string) Event{
	tokenCategory:    func(k string) Event { return CategorySelected{Key: k} },
	tokenSubcategory: func(k string) Event { return SubcategorySelected{Key: k} },
	tokenStyle:       func(k string) Event { return StyleSelected{Key: k} },
}
