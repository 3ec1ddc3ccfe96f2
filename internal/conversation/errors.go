package conversation

import (
	"errors"
	"strings"
)

var (
	// ErrNoUsableMessages is returned when normalization yields zero messages.
	ErrNoUsableMessages = errors.New("no usable messages in transcript")

	// ErrUnknownFormat is returned for an unrecognised platform hint.
	ErrUnknownFormat = errors.New("unknown transcript format")

	// ErrInvalidMessage is returned when structured input carries an unknown role.
	ErrInvalidMessage = errors.New("invalid message")
)

// AmbiguityError reports that a dated log names several senders and the
// caller did not say which one is self. It is recoverable: re-run with one
// of Candidates as the role identifier.
type AmbiguityError struct {
	Candidates []string
}

func (e *AmbiguityError) Error() string {
	return "role identifier required, senders: " + strings.Join(e.Candidates, ", ")
}

// AsAmbiguity unwraps err into an AmbiguityError.
func AsAmbiguity(err error) (*AmbiguityError, bool) {
	var amb *AmbiguityError
	if errors.As(err, &amb) {
		return amb, true
	}
	return nil, false
}
