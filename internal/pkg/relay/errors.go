package relay

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrUnsupportedCommand is returned when a command type is not in the
	// relay kind's supported set
	ErrUnsupportedCommand = errors.New("unsupported command")

	// ErrHardwareFault matches every *HardwareFault
	ErrHardwareFault = errors.New("hardware fault")
)

// HardwareFault reports a backend operation that failed or timed out.  Op is
// the command name (TURN_ON, TOGGLE, ...) or the lifecycle step (CREATE,
// DELETE), so a caller can decide whether to retry.
type HardwareFault struct {
	RelayID string
	Op      string
	Cause   error
}

func (e *HardwareFault) Error() string {
	return fmt.Sprintf("hardware fault on relay %s during %s: %v", e.RelayID, e.Op, e.Cause)
}

func (e *HardwareFault) Unwrap() error {
	return e.Cause
}

func (e *HardwareFault) Is(target error) bool {
	return target == ErrHardwareFault
}
