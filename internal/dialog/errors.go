package dialog

import "fmt"

// NavigationError describes a selection the machine could not honor, such
// as a key that no longer exists in the taxonomy. The machine recovers by
// resetting the session; the error is only logged.
type NavigationError struct {
	Key    string
	Reason string
}

func (e *NavigationError) Error() string {
	if e.Key == "" {
		return "navigation: " + e.Reason
	}
	return fmt.Sprintf("navigation %q: %s", e.Key, e.Reason)
}
