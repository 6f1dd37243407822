package mqttbridge

import (
	"testing"
	"time"
)

func TestClientOptions(t *testing.T) {
	c := NewLiveClient("tcp://broker:1883", "raki-test").
		WithTimeout(time.Second*2).
		WithCredentials("relay", "secret").
		WithWill("raki/status", "offline", 1)

	opts := c.options()
	if opts.ClientID != "raki-test" {
		t.Errorf("ClientID = %s", opts.ClientID)
	}
	if len(opts.Servers) != 1 || opts.Servers[0].Host != "broker:1883" {
		t.Errorf("Servers = %v", opts.Servers)
	}
	if opts.Username != "relay" || opts.Password != "secret" {
		t.Errorf("credentials = %s/%s, want relay/secret", opts.Username, opts.Password)
	}
	if !opts.WillEnabled || opts.WillTopic != "raki/status" || string(opts.WillPayload) != "offline" || !opts.WillRetained {
		t.Errorf("will = %v %s %s %v", opts.WillEnabled, opts.WillTopic, opts.WillPayload, opts.WillRetained)
	}
	if opts.ConnectTimeout != time.Second*2 {
		t.Errorf("ConnectTimeout = %s", opts.ConnectTimeout)
	}
}

func TestClientWithoutCredentials(t *testing.T) {
	opts := NewLiveClient("tcp://broker:1883", "raki-test").options()
	if opts.Username != "" || opts.Password != "" {
		t.Errorf("credentials = %s/%s, want none", opts.Username, opts.Password)
	}
}
