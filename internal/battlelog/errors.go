package battlelog

import (
	stderrors "errors"
	"fmt"
	"strings"
)

var (
	ErrParse        = stderrors.New("malformed battle log")
	ErrSchema       = stderrors.New("unexpected battle log shape")
	ErrLeakDetected = stderrors.New("player identity survived anonymization")
)

// LeakError is returned in strict mode when the anonymized output still contains
// a player's display name or identifier. Identifiers lists which of them leaked
// ("p1", "p1 id", "p2", "p2 id"), never the leaked text itself.
type LeakError struct {
	RoomID      string
	Identifiers []string
}

func (e *LeakError) Error() string {
	return fmt.Sprintf("room %q: %s: %s", e.RoomID, ErrLeakDetected, strings.Join(e.Identifiers, ", "))
}

func (e *LeakError) Is(target error) bool {
	return target == ErrLeakDetected
}
