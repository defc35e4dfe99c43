package mqtt

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// StatusHandler is notified when the platform announces a lifecycle change
// on its status topic: true for a birth message, false for a will.
type StatusHandler func(online bool)

// OnPlatformStatus registers handler for Home Assistant's birth and will
// messages. Must be called before Connect; the subscription is established
// from the connect callback.
func (c *Client) OnPlatformStatus(handler StatusHandler) {
	c.statusHandler = handler
}

func (c *Client) statusTopic() string {
	return fmt.Sprintf("%s/status", c.cfg.DiscoveryPrefix)
}

func (c *Client) subscribeStatus() error {
	if c.statusHandler == nil {
		return nil
	}

	topic := c.statusTopic()
	token := c.client.Subscribe(topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		c.handleStatus(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe timeout for topic %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe to topic %s: %w", topic, err)
	}

	slog.Info("subscribed to platform status", "topic", topic)
	return nil
}

// handleStatus runs on paho's inbound dispatch goroutine. The registered
// handler publishes, and a blocking publish on the dispatch goroutine would
// stall every other inbound message, so it runs on its own goroutine.
func (c *Client) handleStatus(topic string, payload []byte) {
	status := strings.TrimSpace(string(payload))
	switch status {
	case payloadOnline, payloadOffline:
	default:
		slog.Warn("unexpected platform status", "topic", topic, "payload", status)
		return
	}

	slog.Info("platform status changed", "status", status)
	if c.statusHandler != nil {
		go c.statusHandler(status == payloadOnline)
	}
}
