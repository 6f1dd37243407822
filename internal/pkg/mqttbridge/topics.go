package mqttbridge

import (
	"fmt"
	"strings"
)

// DefaultTopicPrefix is the root of every topic the bridge uses
const DefaultTopicPrefix = "raki"

// Topics builds the bridge's topic names under a prefix
//
//	{prefix}/status             online / offline (retained)
//	{prefix}/relay/{id}/state   {"id","state","kind"} (retained)
//	{prefix}/relay/{id}/set     {"type","args"}
type Topics struct {
	Prefix string
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return DefaultTopicPrefix
	}
	return strings.TrimSuffix(t.Prefix, "/")
}

func (t Topics) Status() string {
	return t.prefix() + "/status"
}

func (t Topics) State(id string) string {
	return fmt.Sprintf("%s/relay/%s/state", t.prefix(), id)
}

func (t Topics) Set(id string) string {
	return fmt.Sprintf("%s/relay/%s/set", t.prefix(), id)
}

// SetFilter matches the set topic of every relay
func (t Topics) SetFilter() string {
	return t.Set("+")
}

// ParseSet returns the relay id of a set topic
func (t Topics) ParseSet(topic string) (string, bool) {
	rest := strings.TrimPrefix(topic, t.prefix()+"/relay/")
	if rest == topic {
		return "", false
	}

	id := strings.TrimSuffix(rest, "/set")
	if id == rest || id == "" || strings.Contains(id, "/") {
		return "", false
	}

	return id, true
}
