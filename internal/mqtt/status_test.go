package mqtt

import (
	"testing"
	"time"
)

func TestStatusTopic(t *testing.T) {
	c := testBridge()
	if got := c.statusTopic(); got != "homeassistant/status" {
		t.Errorf("status topic = %q, want %q", got, "homeassistant/status")
	}
}

func TestHandleStatus(t *testing.T) {
	cases := []struct {
		payload string
		want    bool
	}{
		{"online", true},
		{"offline", false},
		{"  online\n", true},
	}

	for _, tc := range cases {
		c := testBridge()
		got := make(chan bool, 1)
		c.OnPlatformStatus(func(online bool) { got <- online })

		c.handleStatus("homeassistant/status", []byte(tc.payload))

		select {
		case online := <-got:
			if online != tc.want {
				t.Errorf("payload %q: online = %v, want %v", tc.payload, online, tc.want)
			}
		case <-time.After(time.Second):
			t.Errorf("payload %q: handler not invoked", tc.payload)
		}
	}
}

func TestHandleStatusIgnoresUnknownPayload(t *testing.T) {
	c := testBridge()
	got := make(chan bool, 1)
	c.OnPlatformStatus(func(online bool) { got <- online })

	c.handleStatus("homeassistant/status", []byte("rebooting"))

	select {
	case online := <-got:
		t.Errorf("handler invoked with %v for unknown payload", online)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHandleStatusNoHandler(t *testing.T) {
	c := testBridge()
	// Must not panic without a registered handler.
	c.handleStatus("homeassistant/status", []byte("online"))
}
