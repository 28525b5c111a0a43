package game

import (
	"errors"
	"fmt"
)

// Deck exhaustion is fatal to further rounds; the driver stops issuing
// rounds when it sees either of these.
var (
	ErrTopicDeckExhausted    = errors.New("no topic cards remain")
	ErrResponseDeckExhausted = errors.New("no response cards remain")
)

// InvalidMoveError reports a rule violation: wrong turn, duplicate move,
// card not held, judging an incomplete round, or an unknown winning card.
// These are integration errors from the caller's side and are never retried.
type InvalidMoveError struct {
	Reason string

	// MissingPlayers is set when a round is judged before every non-judge
	// player has moved.
	MissingPlayers []int
}

func (e *InvalidMoveError) Error() string {
	if len(e.MissingPlayers) > 0 {
		return fmt.Sprintf("invalid move: %s (waiting on players %v)", e.Reason, e.MissingPlayers)
	}
	return "invalid move: " + e.Reason
}

func invalidMove(format string, args ...any) *InvalidMoveError {
	return &InvalidMoveError{Reason: fmt.Sprintf(format, args...)}
}
