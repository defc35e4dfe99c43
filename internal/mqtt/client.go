// Package mqtt publishes the bridge's sensor entities to Home Assistant:
// discovery configs, per-stop state, JSON attributes and availability.
package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/SeitzDaniel/auckland-transport/internal/config"
)

const (
	payloadOnline  = "online"
	payloadOffline = "offline"
)

type Client struct {
	client    mqtt.Client
	cfg       config.Config
	version   string
	mu        sync.RWMutex
	connected bool

	// statusHandler, when set before Connect, is notified of the platform's
	// birth and will messages.
	statusHandler StatusHandler

	stopCh   chan struct{}
	stopOnce sync.Once
}

func New(cfg config.Config, version string) *Client {
	c := &Client{
		cfg:     cfg,
		version: version,
		stopCh:  make(chan struct{}),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort))
	opts.SetClientID(cfg.MQTTClientID)
	if cfg.MQTTUsername != "" {
		opts.SetUsername(cfg.MQTTUsername)
		opts.SetPassword(cfg.MQTTPassword)
	}

	// Session settings
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	// Keepalive / timeouts
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	// The broker marks the whole bridge offline if the process dies.
	opts.SetWill(c.BridgeAvailabilityTopic(), payloadOffline, 1, true)

	// Callbacks keep internal state accurate
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		c.setConnected(true)
		slog.Info("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort)
		if err := c.PublishBridgeAvailability(true); err != nil {
			slog.Warn("publish bridge availability", "error", err)
		}
		// Sessions are clean, so the status subscription has to be
		// re-established on every reconnect.
		if err := c.subscribeStatus(); err != nil {
			slog.Warn("subscribe platform status", "error", err)
		}
	})

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.setConnected(false)
		slog.Warn("mqtt connection lost", "error", err)
	})

	c.client = mqtt.NewClient(opts)
	return c
}

// Connect establishes the broker connection. It waits for the initial
// connection and respects both ctx and Disconnect().
func (c *Client) Connect(ctx context.Context) error {
	// Fail fast if already stopped.
	select {
	case <-c.stopCh:
		return fmt.Errorf("client stopped")
	default:
	}

	// Fast path.
	if c.IsConnected() {
		return nil
	}

	// With ConnectRetry(true) the attempt may keep retrying internally.
	token := c.client.Connect()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			// OnConnectHandler sets connected=true.
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			return fmt.Errorf("client stopped")
		default:
		}
	}
}

// IsConnected returns whether the client is connected.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	connected := c.connected
	c.mu.RUnlock()
	return connected && c.client.IsConnected()
}

// Disconnect stops the client and closes the broker connection. Idempotent;
// after Disconnect, Connect() returns "client stopped".
func (c *Client) Disconnect() {
	c.stopOnce.Do(func() { close(c.stopCh) })

	if c.client != nil {
		if c.statusHandler != nil && c.client.IsConnected() {
			token := c.client.Unsubscribe(c.statusTopic())
			token.WaitTimeout(2 * time.Second)
		}
		c.client.Disconnect(250)
	}

	c.setConnected(false)
	slog.Info("mqtt disconnected")
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

func (c *Client) publish(topic string, retained bool, payload []byte) error {
	if !c.IsConnected() {
		return fmt.Errorf("mqtt client not connected")
	}

	token := c.client.Publish(topic, 1, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	if token.Error() != nil {
		return fmt.Errorf("publish %s: %w", topic, token.Error())
	}

	slog.Debug("published", "topic", topic, "bytes", len(payload))
	return nil
}
