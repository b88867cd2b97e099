package lens

import (
	"errors"
	"fmt"
)

// IndexError reports a selected token index outside the tokenized prompt of
// a conversation.
type IndexError struct {
	Conversation   int
	ConversationID string
	Index          int
	Length         int
}

func (e *IndexError) Error() string {
	who := fmt.Sprintf("conversations[%d]", e.Conversation)
	if e.ConversationID != "" {
		who += fmt.Sprintf(" (id %s)", e.ConversationID)
	}
	return fmt.Sprintf("%s: selected token index %d out of range for prompt of %d tokens", who, e.Index, e.Length)
}

// IsIndexError reports whether err is an *IndexError.
func IsIndexError(err error) bool {
	var e *IndexError
	return errors.As(err, &e)
}
