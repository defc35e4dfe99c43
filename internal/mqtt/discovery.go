package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// StopSensor describes one stop entity announced through MQTT discovery.
type StopSensor struct {
	StopID string
	Code   string
	Name   string
	Type   string // bus, train, ferry or empty for generic
}

// Attributes is the JSON document published to the attributes topic. It is
// what Home Assistant shows alongside the sensor state.
type Attributes struct {
	StopID        string              `json:"stop_id"`
	StopCode      string              `json:"stop_code"`
	StopName      string              `json:"stop_name"`
	TransportType string              `json:"transport_type"`
	NextDeparture *time.Time          `json:"next_departure"`
	Realtime      bool                `json:"realtime"`
	Count         int                 `json:"next_departures_count"`
	Upcoming      []UpcomingDeparture `json:"upcoming"`
}

// UpcomingDeparture is one entry of the bounded upcoming list. Time and
// Scheduled are local HH:MM:SS clock values; Realtime marks entries whose
// time came from the trip updates feed.
type UpcomingDeparture struct {
	Time        string `json:"time"`
	Scheduled   string `json:"scheduled"`
	Route       string `json:"route"`
	Destination string `json:"destination"`
	Realtime    bool   `json:"realtime"`
}

type discoveryPayload struct {
	Name                string            `json:"name"`
	UniqueID            string            `json:"unique_id"`
	StateTopic          string            `json:"state_topic"`
	JSONAttributesTopic string            `json:"json_attributes_topic"`
	Availability        []availabilityRef `json:"availability"`
	AvailabilityMode    string            `json:"availability_mode"`
	Icon                string            `json:"icon"`
	Device              deviceInfo        `json:"device"`
}

type availabilityRef struct {
	Topic string `json:"topic"`
}

type deviceInfo struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
	SWVersion    string   `json:"sw_version"`
}

func (c *Client) StateTopic(stopID string) string {
	return fmt.Sprintf("%s/%s/state", c.cfg.TopicPrefix, sanitizeID(stopID))
}

func (c *Client) AttributesTopic(stopID string) string {
	return fmt.Sprintf("%s/%s/attributes", c.cfg.TopicPrefix, sanitizeID(stopID))
}

func (c *Client) AvailabilityTopic(stopID string) string {
	return fmt.Sprintf("%s/%s/availability", c.cfg.TopicPrefix, sanitizeID(stopID))
}

func (c *Client) BridgeAvailabilityTopic() string {
	return fmt.Sprintf("%s/bridge/availability", c.cfg.TopicPrefix)
}

func (c *Client) discoveryTopic(stopID string) string {
	node := fmt.Sprintf("%s_%s", c.cfg.TopicPrefix, sanitizeID(stopID))
	return fmt.Sprintf("%s/sensor/%s/next_departure/config", c.cfg.DiscoveryPrefix, node)
}

// PublishDiscovery announces the stop's sensor entity. The config message is
// retained so Home Assistant restores the entity across its own restarts.
func (c *Client) PublishDiscovery(s StopSensor) error {
	data, err := json.Marshal(c.discoveryConfig(s))
	if err != nil {
		return fmt.Errorf("marshal discovery config: %w", err)
	}
	return c.publish(c.discoveryTopic(s.StopID), true, data)
}

func (c *Client) discoveryConfig(s StopSensor) discoveryPayload {
	id := sanitizeID(s.StopID)
	name := s.Name
	if name == "" {
		name = s.StopID
	}

	return discoveryPayload{
		Name:                name,
		UniqueID:            fmt.Sprintf("%s_%s_next_departure", c.cfg.TopicPrefix, id),
		StateTopic:          c.StateTopic(s.StopID),
		JSONAttributesTopic: c.AttributesTopic(s.StopID),
		Availability: []availabilityRef{
			{Topic: c.AvailabilityTopic(s.StopID)},
			{Topic: c.BridgeAvailabilityTopic()},
		},
		AvailabilityMode: "all",
		Icon:             iconForType(s.Type),
		Device: deviceInfo{
			Identifiers:  []string{fmt.Sprintf("%s_%s", c.cfg.TopicPrefix, id)},
			Name:         fmt.Sprintf("Auckland Transport %s", name),
			Manufacturer: "Auckland Transport",
			Model:        modelForType(s.Type),
			SWVersion:    c.version,
		},
	}
}

// PublishState publishes the sensor state, the next departure time or the
// no-departures sentinel. Retained so a bridge restart does not blank the
// entity.
func (c *Client) PublishState(stopID, state string) error {
	return c.publish(c.StateTopic(stopID), true, []byte(state))
}

func (c *Client) PublishAttributes(stopID string, attrs Attributes) error {
	data, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("marshal attributes: %w", err)
	}
	return c.publish(c.AttributesTopic(stopID), true, data)
}

func (c *Client) PublishAvailability(stopID string, online bool) error {
	payload := payloadOffline
	if online {
		payload = payloadOnline
	}
	return c.publish(c.AvailabilityTopic(stopID), true, []byte(payload))
}

func (c *Client) PublishBridgeAvailability(online bool) error {
	payload := payloadOffline
	if online {
		payload = payloadOnline
	}
	return c.publish(c.BridgeAvailabilityTopic(), true, []byte(payload))
}

func iconForType(transportType string) string {
	switch transportType {
	case "train":
		return "mdi:train"
	case "bus":
		return "mdi:bus"
	case "ferry":
		return "mdi:ferry"
	default:
		return "mdi:transit-connection"
	}
}

func modelForType(transportType string) string {
	switch transportType {
	case "train":
		return "Train station"
	case "bus":
		return "Bus stop"
	case "ferry":
		return "Ferry terminal"
	default:
		return "Stop"
	}
}

// sanitizeID maps a stop id onto the character set allowed in topics and
// discovery object ids.
func sanitizeID(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, id)
}
