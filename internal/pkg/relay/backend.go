package relay

import "context"

// Backend drives the device behind a relay.  Write is only called with the
// relay's apply lock held, so implementations see one write at a time.
type Backend interface {
	Write(ctx context.Context, s State) error
	Close() error
}
