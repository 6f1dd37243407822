// Package mqttbridge mirrors relay state to an MQTT broker and accepts
// commands from it.
//
// State is published retained on {prefix}/relay/{id}/state whenever a relay
// is created or changes, and cleared when it is deleted.  Commands published
// to {prefix}/relay/{id}/set are parsed and run through the Manager exactly
// like REST commands.
package mqttbridge

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/jake-scott/raki/internal/pkg/command"
	"github.com/jake-scott/raki/internal/pkg/logging"
	"github.com/jake-scott/raki/internal/pkg/manager"
)

const queueSize = 256

var (
	errQueueFull = errors.New("mqtt publish queue full")
	errStopped   = errors.New("mqtt bridge stopped")
)

// StateMessage is the retained payload of a state topic
type StateMessage struct {
	ID    string `json:"id"`
	State string `json:"state"`
	Kind  string `json:"kind"`
}

// SetMessage is the payload accepted on a set topic
type SetMessage struct {
	Type string   `json:"type"`
	Args []string `json:"args"`
}

type Options struct {
	TopicPrefix string
	QoS         byte
}

// queued is a manager event, or a request to publish a relay's current state
type queued struct {
	ev       manager.Event
	snapshot bool
}

// Bridge is a manager.Observer that forwards events to MQTT
type Bridge struct {
	client Client
	mgr    *manager.Manager
	topics Topics
	qos    byte

	events   chan queued
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func New(client Client, mgr *manager.Manager, opts Options) *Bridge {
	return &Bridge{
		client: client,
		mgr:    mgr,
		topics: Topics{Prefix: opts.TopicPrefix},
		qos:    opts.QoS,
		events: make(chan queued, queueSize),
		done:   make(chan struct{}),
	}
}

// Start subscribes to the set topics, publishes the state of every live
// relay and starts forwarding manager events
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.client.Subscribe(b.topics.SetFilter(), b.qos, b.handleSet); err != nil {
		return err
	}

	if err := b.client.Publish(b.topics.Status(), b.qos, true, []byte("online")); err != nil {
		logging.Logger(ctx).WithError(err).Warn("publishing bridge status")
	}

	b.wg.Add(1)
	go b.loop()

	b.mgr.AddObserver(b)

	// queued behind any event observed so far; the state is read when the
	// snapshot is published
	for _, s := range b.mgr.List() {
		select {
		case b.events <- queued{ev: manager.Event{RelayID: s.ID, Kind: s.Kind}, snapshot: true}:
		case <-b.done:
			return errStopped
		}
	}

	return nil
}

// Stop publishes whatever is still queued and disconnects
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)
		b.wg.Wait()

		if err := b.client.Publish(b.topics.Status(), b.qos, true, []byte("offline")); err != nil {
			logging.Logger(nil).WithError(err).Warn("publishing bridge status")
		}
		b.client.Disconnect()
	})
}

// Observe queues the event for publishing.  Events for one relay arrive in
// order and the queue keeps that order.
func (b *Bridge) Observe(ctx context.Context, ev manager.Event) error {
	select {
	case <-b.done:
		return errStopped
	default:
	}

	select {
	case b.events <- queued{ev: ev}:
		return nil
	default:
		return errQueueFull
	}
}

func (b *Bridge) loop() {
	defer b.wg.Done()

	for {
		select {
		case q := <-b.events:
			b.publish(q)
		case <-b.done:
			for {
				select {
				case q := <-b.events:
					b.publish(q)
				default:
					return
				}
			}
		}
	}
}

func (b *Bridge) publish(q queued) {
	if !q.snapshot {
		b.publishEvent(q.ev)
		return
	}

	s, err := b.mgr.Get(q.ev.RelayID)
	if err != nil {
		// deleted since; its delete event clears the topic
		return
	}
	b.publishState(context.Background(), StateMessage{ID: s.ID, State: s.State.Name(), Kind: s.Kind.Name()})
}

func (b *Bridge) publishEvent(ev manager.Event) {
	ctx := context.Background()

	switch ev.Type {
	case manager.EventCreated:
	case manager.EventCommand:
		if ev.Err != nil || !ev.Changed() {
			return
		}
	case manager.EventDeleted:
		// an empty retained message clears the topic
		if err := b.client.Publish(b.topics.State(ev.RelayID), b.qos, true, []byte{}); err != nil {
			logging.Relay(ctx, ev.RelayID).WithError(err).Warn("clearing mqtt state")
		}
		return
	default:
		return
	}

	b.publishState(ctx, StateMessage{ID: ev.RelayID, State: ev.Current.Name(), Kind: ev.Kind.Name()})
}

func (b *Bridge) publishState(ctx context.Context, msg StateMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		logging.Relay(ctx, msg.ID).WithError(err).Error("encoding mqtt state")
		return
	}

	if err := b.client.Publish(b.topics.State(msg.ID), b.qos, true, payload); err != nil {
		logging.Relay(ctx, msg.ID).WithError(err).Warn("publishing mqtt state")
		return
	}

	logging.Relay(ctx, msg.ID).Debugf("published state %s", msg.State)
}

func (b *Bridge) handleSet(topic string, payload []byte) {
	ctx := logging.WithSource(logging.WithTxnID(context.Background(), uuid.New().String()), "mqtt")
	ctxLogger := logging.Logger(ctx).WithField("topic", topic)

	id, ok := b.topics.ParseSet(topic)
	if !ok {
		ctxLogger.Warn("ignoring message on unexpected topic")
		return
	}

	var msg SetMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		ctxLogger.WithError(err).Warn("ignoring undecodable command")
		return
	}

	cmd, err := command.Parse(msg.Type, msg.Args)
	if err != nil {
		ctxLogger.WithError(err).Warn("ignoring malformed command")
		return
	}

	state, err := b.mgr.Command(ctx, id, cmd)
	if err != nil {
		ctxLogger.WithError(err).Warn("mqtt command failed")
		return
	}

	ctxLogger.WithFields(logrus.Fields{
		"relay":   id,
		"command": cmd.String(),
	}).Debugf("relay now %s", state)
}
