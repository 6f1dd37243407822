package relay

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/jake-scott/raki/internal/pkg/logging"
)

const DefaultWriteTimeout = time.Second * 2

// PinResolver finds the output line for a GPIO pin number
type PinResolver func(pin int) (gpio.PinOut, error)

var hostInit struct {
	once sync.Once
	err  error
}

// HostPinResolver looks pins up in the periph.io registry, initialising the
// host drivers on first use
func HostPinResolver(pin int) (gpio.PinOut, error) {
	hostInit.once.Do(func() {
		_, hostInit.err = host.Init()
	})
	if hostInit.err != nil {
		return nil, errors.Wrap(hostInit.err, "initialising periph host drivers")
	}

	p := gpioreg.ByName(strconv.Itoa(pin))
	if p == nil {
		return nil, errors.Errorf("no GPIO pin %d on this host", pin)
	}

	return p, nil
}

type GPIO struct {
	pin       gpio.PinOut
	activeLow bool
	timeout   time.Duration

	// shared with copies made by the With* builders
	last *lastWrite
}

// lastWrite tracks the most recent Out call, which may outlive its Write
type lastWrite struct {
	mu   sync.Mutex
	done chan struct{}
}

func (w *lastWrite) wait(ctx context.Context) error {
	w.mu.Lock()
	done := w.done
	w.mu.Unlock()

	if done == nil {
		return nil
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *lastWrite) start() chan struct{} {
	done := make(chan struct{})

	w.mu.Lock()
	w.done = done
	w.mu.Unlock()

	return done
}

func NewGPIO(pin gpio.PinOut) *GPIO {
	return &GPIO{
		pin:     pin,
		timeout: DefaultWriteTimeout,
		last:    &lastWrite{},
	}
}

func (g *GPIO) WithActiveLow(activeLow bool) *GPIO {
	ng := *g
	ng.activeLow = activeLow
	return &ng
}

func (g *GPIO) WithTimeout(d time.Duration) *GPIO {
	ng := *g
	ng.timeout = d
	return &ng
}

func (g *GPIO) MakeContext(parent context.Context) (context.Context, context.CancelFunc) {
	if g.timeout > 0 {
		return context.WithTimeout(parent, g.timeout)
	}

	return context.WithCancel(parent)
}

func (g *GPIO) level(s State) gpio.Level {
	return gpio.Level((s == On) != g.activeLow)
}

// Write drives the line to the level for s.  A write that outlives the
// timeout is reported as failed and left to finish on its own; the next Write
// or Close waits for it before touching the line.
func (g *GPIO) Write(ctx context.Context, s State) error {
	if s == Unknown {
		return errors.New("cannot drive a GPIO line to an unknown state")
	}

	ctx, cancel := g.MakeContext(ctx)
	defer cancel()

	l := g.level(s)
	if err := g.last.wait(ctx); err != nil {
		return errors.Wrapf(err, "waiting for earlier write to %s", g.pin)
	}

	finished := g.last.start()
	done := make(chan error, 1)
	go func() {
		done <- g.pin.Out(l)
		close(finished)
	}()

	select {
	case err := <-done:
		if err != nil {
			return errors.Wrapf(err, "setting %s to %s", g.pin, l)
		}
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "setting %s to %s", g.pin, l)
	}

	logging.Logger(ctx).Debugf("gpio: %s set to %s", g.pin, l)
	return nil
}

// Close leaves the line at its OFF level and releases the pin.  It waits for
// any write still pending on the line.
func (g *GPIO) Close() error {
	_ = g.last.wait(context.Background())

	if err := g.Write(context.Background(), Off); err != nil {
		logging.Logger(nil).WithError(err).Warnf("gpio: driving %s off before release", g.pin)
	}

	_ = g.last.wait(context.Background())

	if err := g.pin.Halt(); err != nil {
		return errors.Wrapf(err, "halting %s", g.pin)
	}

	return nil
}
