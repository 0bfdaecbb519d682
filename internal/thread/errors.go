package thread

import (
	"errors"
	"fmt"
)

var (
	// ErrStructureNotFound means the page does not expose a thread container
	ErrStructureNotFound = errors.New("thread structure not found")
	// ErrEmptyThread means every page was scanned but no message could be parsed
	ErrEmptyThread = errors.New("no messages extracted")
	// ErrUnparseableMessage marks a message element missing author or timestamp
	ErrUnparseableMessage = errors.New("unparseable message")
)

// noThreadMessage is shown to users instead of a graph
const noThreadMessage = "No messages detected, are you in a forum?"

// OptionError reports an unknown analysis option value
type OptionError struct {
	Option string
	Value  string
}

func (e *OptionError) Error() string {
	return fmt.Sprintf("unknown %s %q", e.Option, e.Value)
}

// Diagnostic returns the user-facing message for errors that mean "nothing to
// graph here", and false for any other error.
func Diagnostic(err error) (string, bool) {
	if errors.Is(err, ErrStructureNotFound) || errors.Is(err, ErrEmptyThread) {
		return noThreadMessage, true
	}
	return "", false
}
