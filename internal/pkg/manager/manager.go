// Package manager owns the live set of relays.
//
// The Manager is the only place relays are created and released, so id
// uniqueness and hardware release are enforced in one spot.  The registry map
// is guarded by a single mutex that Command holds only for the lookup; the
// command itself runs under a per-relay lock so a slow hardware write never
// blocks other relays.  Create resolves and writes the pin outside the
// registry lock, holding only a reservation on the id and pin.  Delete removes
// the entry first and then waits for in-flight commands on it before
// releasing the backend; the pin stays reserved until that release returns.
package manager

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/jake-scott/raki/internal/pkg/command"
	"github.com/jake-scott/raki/internal/pkg/logging"
	"github.com/jake-scott/raki/internal/pkg/relay"
)

// Snapshot is a point in time view of one relay
type Snapshot struct {
	ID    string
	State relay.State
	Kind  relay.Kind
}

type entry struct {
	relay *relay.Relay
	pin   *int

	// orders commands and their events on this relay
	cmdMu    sync.Mutex
	inflight sync.WaitGroup
}

func (e *entry) snapshot() Snapshot {
	return Snapshot{
		ID:    e.relay.ID(),
		State: e.relay.State(),
		Kind:  e.relay.Kind(),
	}
}

type Manager struct {
	mu     sync.Mutex
	relays map[string]*entry
	// ids of creates still writing their initial state
	creating map[string]struct{}
	// pin number to owning relay id, held from create until release
	pins map[int]string

	resolver     relay.PinResolver
	writeTimeout time.Duration

	obsMu     sync.RWMutex
	observers []Observer
}

func New() *Manager {
	return &Manager{
		relays:       make(map[string]*entry),
		creating:     make(map[string]struct{}),
		pins:         make(map[int]string),
		resolver:     relay.HostPinResolver,
		writeTimeout: relay.DefaultWriteTimeout,
	}
}

// SetPinResolver replaces the periph.io pin lookup, mostly for tests
func (m *Manager) SetPinResolver(r relay.PinResolver) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.resolver = r
}

// SetWriteTimeout bounds each GPIO write of relays created afterwards
func (m *Manager) SetWriteTimeout(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.writeTimeout = d
}

func (m *Manager) AddObserver(o Observer) {
	m.obsMu.Lock()
	defer m.obsMu.Unlock()

	m.observers = append(m.observers, o)
}

func (m *Manager) notify(ctx context.Context, ev Event) {
	m.obsMu.RLock()
	defer m.obsMu.RUnlock()

	for _, o := range m.observers {
		if err := o.Observe(ctx, ev); err != nil {
			logging.Relay(ctx, ev.RelayID).WithError(err).Warnf("observer failed for %s event", ev.Type)
		}
	}
}

// Create builds a relay of the given kind and registers it under id
func (m *Manager) Create(ctx context.Context, id string, kind relay.Kind, cfg Config) (Snapshot, error) {
	if id == "" {
		return Snapshot{}, errors.Wrap(ErrInvalidConfig, "empty relay id")
	}
	if err := cfg.validate(kind); err != nil {
		return Snapshot{}, err
	}
	initial, err := cfg.initialState(kind)
	if err != nil {
		return Snapshot{}, err
	}

	m.mu.Lock()
	if err := m.reserve(id, kind, cfg); err != nil {
		m.mu.Unlock()
		return Snapshot{}, err
	}
	resolver, timeout := m.resolver, m.writeTimeout
	m.mu.Unlock()

	e := &entry{}

	switch kind {
	case relay.KindGPIO:
		e.pin = cfg.Pin
		backend, err := newGPIOBackend(ctx, id, cfg, initial, resolver, timeout)
		if err != nil {
			m.mu.Lock()
			delete(m.creating, id)
			delete(m.pins, *cfg.Pin)
			m.mu.Unlock()
			return Snapshot{}, err
		}
		e.relay = relay.New(id, kind, initial, backend)

	case relay.KindTest:
		e.relay = relay.New(id, kind, initial, relay.NewSimulated().WithFault(cfg.Fault))
	}

	// commands on the new relay wait until its created event is out
	e.cmdMu.Lock()
	defer e.cmdMu.Unlock()

	m.mu.Lock()
	delete(m.creating, id)
	m.relays[id] = e
	m.mu.Unlock()

	logging.Logger(ctx).WithFields(logrus.Fields{
		"relay": id,
		"kind":  kind.Name(),
		"state": initial.Name(),
	}).Info("relay created")

	m.notify(ctx, Event{
		Type:     EventCreated,
		RelayID:  id,
		Kind:     kind,
		Previous: initial,
		Current:  initial,
		Time:     time.Now(),
	})

	return e.snapshot(), nil
}

// reserve claims id, and the pin for GPIO relays, for a create in progress.
// Must be called with m.mu held.
func (m *Manager) reserve(id string, kind relay.Kind, cfg Config) error {
	if _, ok := m.relays[id]; ok {
		return errors.Wrapf(ErrDuplicateID, "relay %s", id)
	}
	if _, ok := m.creating[id]; ok {
		return errors.Wrapf(ErrDuplicateID, "relay %s", id)
	}

	if kind == relay.KindGPIO {
		if owner, ok := m.pins[*cfg.Pin]; ok {
			return errors.Wrapf(ErrInvalidConfig, "pin %d already used by relay %s", *cfg.Pin, owner)
		}
		m.pins[*cfg.Pin] = id
	}
	m.creating[id] = struct{}{}

	return nil
}

func newGPIOBackend(ctx context.Context, id string, cfg Config, initial relay.State,
	resolver relay.PinResolver, timeout time.Duration) (*relay.GPIO, error) {
	pin, err := resolver(*cfg.Pin)
	if err != nil {
		return nil, &relay.HardwareFault{RelayID: id, Op: "CREATE", Cause: err}
	}

	backend := relay.NewGPIO(pin).WithActiveLow(cfg.ActiveLow).WithTimeout(timeout)

	// Put the line into a known state before anyone can command it
	if err := backend.Write(ctx, initial); err != nil {
		if cerr := backend.Close(); cerr != nil {
			logging.Relay(ctx, id).WithError(cerr).Warn("releasing pin after failed create")
		}
		return nil, &relay.HardwareFault{RelayID: id, Op: "CREATE", Cause: err}
	}

	return backend, nil
}

// Delete unregisters the relay and releases its backend once in-flight
// commands on it have finished
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	e, ok := m.relays[id]
	if !ok {
		m.mu.Unlock()
		return errors.Wrapf(ErrNotFound, "relay %s", id)
	}
	delete(m.relays, id)
	m.mu.Unlock()

	e.inflight.Wait()

	e.cmdMu.Lock()
	defer e.cmdMu.Unlock()

	last := e.relay.State()
	err := e.relay.Close()

	if e.pin != nil {
		m.mu.Lock()
		delete(m.pins, *e.pin)
		m.mu.Unlock()
	}
	if err != nil {
		return &relay.HardwareFault{RelayID: id, Op: "DELETE", Cause: err}
	}

	logging.Relay(ctx, id).Info("relay deleted")

	m.notify(ctx, Event{
		Type:     EventDeleted,
		RelayID:  id,
		Kind:     e.relay.Kind(),
		Previous: last,
		Current:  last,
		Time:     time.Now(),
	})

	return nil
}

// Command routes cmd to the relay registered under id and returns the
// resulting state.  On failure the returned state is the relay's unchanged
// state (or OFF when the relay does not exist).
func (m *Manager) Command(ctx context.Context, id string, cmd command.Command) (relay.State, error) {
	m.mu.Lock()
	e, ok := m.relays[id]
	if !ok {
		m.mu.Unlock()
		return relay.Off, errors.Wrapf(ErrNotFound, "relay %s", id)
	}
	e.inflight.Add(1)
	m.mu.Unlock()

	defer e.inflight.Done()

	e.cmdMu.Lock()
	defer e.cmdMu.Unlock()

	t, err := e.relay.Transition(ctx, cmd)

	ctxLogger := logging.Logger(ctx).WithFields(logrus.Fields{
		"relay":   id,
		"command": cmd.String(),
	})
	if err != nil {
		ctxLogger.WithError(err).Warn("relay command failed")
	} else if t.Changed() {
		ctxLogger.Infof("relay %s -> %s", t.Previous, t.Current)
	} else {
		ctxLogger.Debugf("relay stays %s", t.Current)
	}

	c := cmd
	m.notify(ctx, Event{
		Type:     EventCommand,
		RelayID:  id,
		Kind:     e.relay.Kind(),
		Command:  &c,
		Previous: t.Previous,
		Current:  t.Current,
		Err:      err,
		Time:     time.Now(),
	})

	return t.Current, err
}

// Get returns the relay's current state without executing a command
func (m *Manager) Get(id string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.relays[id]
	if !ok {
		return Snapshot{}, errors.Wrapf(ErrNotFound, "relay %s", id)
	}

	return e.snapshot(), nil
}

// List returns every registered relay, sorted by id
func (m *Manager) List() []Snapshot {
	m.mu.Lock()
	items := make([]Snapshot, 0, len(m.relays))
	for _, e := range m.relays {
		items = append(items, e.snapshot())
	}
	m.mu.Unlock()

	sort.Slice(items, func(i, j int) bool {
		return items[i].ID < items[j].ID
	})

	return items
}

// Close deletes every relay, releasing their hardware
func (m *Manager) Close(ctx context.Context) error {
	var firstErr error
	for _, s := range m.List() {
		if err := m.Delete(ctx, s.ID); err != nil && !errors.Is(err, ErrNotFound) {
			logging.Relay(ctx, s.ID).WithError(err).Error("releasing relay")
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}
