package mqttbridge

import (
	"context"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"

	"github.com/jake-scott/raki/internal/pkg/logging"
)

// MessageHandler receives the payload of a message on a subscribed topic
type MessageHandler func(topic string, payload []byte)

// Client is the part of an MQTT client the bridge needs
type Client interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
	Subscribe(topic string, qos byte, handler MessageHandler) error
	Disconnect()
}

type subscription struct {
	qos     byte
	handler MessageHandler
}

// Live is a Client backed by a paho connection
type Live struct {
	broker   string
	clientID string
	username string
	password string
	timeout  time.Duration
	will     *willMessage

	client mqtt.Client

	subMu         sync.Mutex
	subscriptions map[string]subscription
}

type willMessage struct {
	topic   string
	payload string
	qos     byte
}

func NewLiveClient(broker string, clientID string) *Live {
	return &Live{
		broker:        broker,
		clientID:      clientID,
		timeout:       time.Second * 5,
		subscriptions: make(map[string]subscription),
	}
}

func (c *Live) WithTimeout(d time.Duration) *Live {
	nc := c.clone()
	nc.timeout = d
	return nc
}

func (c *Live) WithCredentials(username string, password string) *Live {
	nc := c.clone()
	nc.username = username
	nc.password = password
	return nc
}

// WithWill registers a retained last will published by the broker if we
// drop off without disconnecting
func (c *Live) WithWill(topic string, payload string, qos byte) *Live {
	nc := c.clone()
	nc.will = &willMessage{topic: topic, payload: payload, qos: qos}
	return nc
}

func (c *Live) clone() *Live {
	return &Live{
		broker:        c.broker,
		clientID:      c.clientID,
		username:      c.username,
		password:      c.password,
		timeout:       c.timeout,
		will:          c.will,
		subscriptions: make(map[string]subscription),
	}
}

// Connect dials the broker and waits for the first connection
func (c *Live) Connect(ctx context.Context) error {
	c.client = mqtt.NewClient(c.options())
	token := c.client.Connect()

	// With ConnectRetry the token only completes once a connection is made
	const poll = time.Millisecond * 200
	for {
		if token.WaitTimeout(poll) {
			return errors.Wrapf(token.Error(), "connecting to %s", c.broker)
		}

		select {
		case <-ctx.Done():
			c.client.Disconnect(0)
			return errors.Wrapf(ctx.Err(), "connecting to %s", c.broker)
		default:
		}
	}
}

func (c *Live) options() *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(c.broker)
	opts.SetClientID(c.clientID)
	if c.username != "" {
		opts.SetUsername(c.username)
		opts.SetPassword(c.password)
	}
	if c.will != nil {
		opts.SetWill(c.will.topic, c.will.payload, c.will.qos, true)
	}

	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(time.Second * 5)
	opts.SetMaxReconnectInterval(time.Minute)
	opts.SetKeepAlive(time.Second * 30)
	opts.SetConnectTimeout(c.timeout)

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		logging.Logger(nil).WithField("broker", c.broker).Info("mqtt connected")
		c.restoreSubscriptions()
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logging.Logger(nil).WithError(err).Warn("mqtt connection lost")
	})

	return opts
}

func (c *Live) wait(token mqtt.Token, what string) error {
	if !token.WaitTimeout(c.timeout) {
		return errors.Errorf("%s: timed out after %v", what, c.timeout)
	}

	return errors.Wrap(token.Error(), what)
}

func (c *Live) Publish(topic string, qos byte, retained bool, payload []byte) error {
	if c.client == nil {
		return errors.New("mqtt client not connected")
	}

	return c.wait(c.client.Publish(topic, qos, retained, payload), "publishing to "+topic)
}

func (c *Live) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if c.client == nil {
		return errors.New("mqtt client not connected")
	}

	c.subMu.Lock()
	c.subscriptions[topic] = subscription{qos: qos, handler: handler}
	c.subMu.Unlock()

	return c.wait(c.client.Subscribe(topic, qos, wrapHandler(handler)), "subscribing to "+topic)
}

// clean sessions lose subscriptions on reconnect
func (c *Live) restoreSubscriptions() {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	for topic, sub := range c.subscriptions {
		c.client.Subscribe(topic, sub.qos, wrapHandler(sub.handler))
	}
}

func (c *Live) Disconnect() {
	if c.client != nil {
		c.client.Disconnect(250)
	}
}

func wrapHandler(h MessageHandler) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		h(msg.Topic(), msg.Payload())
	}
}
