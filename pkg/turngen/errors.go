package turngen

import (
	"fmt"

	"github.com/go-go-golems/convogen/pkg/conversation"
)

// GenerationError wraps a failed turn generation. The transient/fatal
// distinction of the underlying completion error stays visible through
// Unwrap.
type GenerationError struct {
	TurnIndex int
	Role      conversation.Role
	Err       error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate %s turn %d: %v", e.Role, e.TurnIndex, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
