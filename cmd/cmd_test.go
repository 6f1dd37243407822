package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-openapi/swag"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jake-scott/raki/internal/pkg/command"
	"github.com/jake-scott/raki/internal/pkg/manager"
	"github.com/jake-scott/raki/internal/pkg/models"
	"github.com/jake-scott/raki/internal/pkg/relay"
)

type fakeSender struct {
	mu       sync.Mutex
	inflight int32
	peak     int32
	sent     []string
}

func (s *fakeSender) Send(ctx context.Context, id string, cmd models.Command) (models.Relay, error) {
	n := atomic.AddInt32(&s.inflight, 1)
	defer atomic.AddInt32(&s.inflight, -1)

	s.mu.Lock()
	if n > s.peak {
		s.peak = n
	}
	s.sent = append(s.sent, id)
	s.mu.Unlock()

	time.Sleep(time.Millisecond * 10)

	if id == "bad" {
		return models.Relay{}, errors.New("relay not found")
	}
	return models.Relay{ID: swag.String(id), State: swag.String("ON")}, nil
}

func TestDoSendFansOut(t *testing.T) {
	viper.Set("client.output", "json")
	defer viper.Set("client.output", "table")

	s := &fakeSender{}
	ids := []string{"a", "b", "c", "d", "e", "f"}

	if err := doSend(s, models.Command{Type: swag.String("TURN_ON")}, ids, 2); err != nil {
		t.Fatalf("doSend() error: %v", err)
	}

	if len(s.sent) != len(ids) {
		t.Errorf("sent to %v", s.sent)
	}
	if s.peak > 2 {
		t.Errorf("%d requests in flight, limit was 2", s.peak)
	}
}

func TestDoSendReportsFailures(t *testing.T) {
	viper.Set("client.output", "json")
	defer viper.Set("client.output", "table")

	err := doSend(&fakeSender{}, models.Command{Type: swag.String("TOGGLE")}, []string{"a", "bad"}, 4)
	if err == nil || !strings.Contains(err.Error(), "1 of 2") {
		t.Errorf("doSend() error = %v", err)
	}
}

func TestWriteRelays(t *testing.T) {
	defer viper.Set("client.output", "table")

	items := []models.Relay{
		{ID: swag.String("porch"), Kind: "gpio", State: swag.String("ON")},
		{ID: swag.String("r1"), Kind: "test", State: swag.String("UNKNOWN")},
	}

	viper.Set("client.output", "table")
	var buf bytes.Buffer
	if err := writeRelays(&buf, items); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[0], "ID") || !strings.Contains(lines[1], "porch") {
		t.Errorf("table output:\n%s", buf.String())
	}

	viper.Set("client.output", "json")
	buf.Reset()
	if err := writeRelays(&buf, items); err != nil {
		t.Fatal(err)
	}
	var fromJSON []models.Relay
	if err := json.Unmarshal(buf.Bytes(), &fromJSON); err != nil || *fromJSON[1].State != "UNKNOWN" {
		t.Errorf("json output: %s", buf.String())
	}

	viper.Set("client.output", "yaml")
	buf.Reset()
	if err := writeRelays(&buf, items); err != nil {
		t.Fatal(err)
	}
	var fromYAML []map[string]string
	if err := yaml.Unmarshal(buf.Bytes(), &fromYAML); err != nil || fromYAML[0]["id"] != "porch" || fromYAML[0]["kind"] != "gpio" {
		t.Errorf("yaml output: %s", buf.String())
	}

	viper.Set("client.output", "xml")
	if err := writeRelays(&buf, items); err == nil {
		t.Error("xml output accepted")
	}
}

func TestCreateConfiguredRelays(t *testing.T) {
	defer viper.Set("relays", nil)

	viper.Set("relays", []map[string]interface{}{
		{"id": "r1", "kind": "test", "initial-state": "on"},
		{"id": "r2", "kind": "test", "fault": true},
	})

	mgr := manager.New()
	if err := createConfiguredRelays(context.Background(), mgr); err != nil {
		t.Fatalf("createConfiguredRelays() error: %v", err)
	}

	items := mgr.List()
	if len(items) != 2 || items[0].State != relay.On || items[1].State != relay.Off {
		t.Errorf("relays = %+v", items)
	}

	// faults are configured, so r2 cannot switch
	if _, err := mgr.Command(context.Background(), "r2", commandOf(t, "TURN_ON")); !errors.Is(err, relay.ErrHardwareFault) {
		t.Errorf("command on faulty relay error = %v", err)
	}
}

func TestCreateConfiguredRelaysRejectsBadKind(t *testing.T) {
	defer viper.Set("relays", nil)

	viper.Set("relays", []map[string]interface{}{
		{"id": "r1", "kind": "zigbee"},
	})

	err := createConfiguredRelays(context.Background(), manager.New())
	if !errors.Is(err, manager.ErrInvalidConfig) {
		t.Errorf("error = %v, want ErrInvalidConfig", err)
	}
}

func TestCreateConfiguredRelaysRejectsBadID(t *testing.T) {
	defer viper.Set("relays", nil)

	for _, id := range []string{"a/b", "+", ""} {
		viper.Set("relays", []map[string]interface{}{
			{"id": "ok", "kind": "TEST"},
			{"id": id, "kind": "test"},
		})

		mgr := manager.New()
		err := createConfiguredRelays(context.Background(), mgr)
		if !errors.Is(err, manager.ErrInvalidConfig) {
			t.Errorf("id %q: error = %v, want ErrInvalidConfig", id, err)
		}
		if _, err := mgr.Get(id); err == nil {
			t.Errorf("id %q was created", id)
		}
	}
}

func commandOf(t *testing.T, name string) command.Command {
	t.Helper()

	c, err := command.Parse(name, nil)
	if err != nil {
		t.Fatal(err)
	}
	return c
}
