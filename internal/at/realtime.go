package at

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

// feedTTL bounds how often the trip updates feed is fetched. The feed is
// agency-wide, so one fetch serves every stop polled within the window.
const feedTTL = 25 * time.Second

// TripUpdate is the realtime adjustment for one trip at one stop. When Time
// is non-zero it is the absolute expected departure; otherwise Delay holds
// the offset in seconds to apply to the scheduled time.
type TripUpdate struct {
	Time  time.Time
	Delay int32
}

type realtimeCache struct {
	mu      sync.Mutex
	feed    *gtfs.FeedMessage
	fetched time.Time
}

// RealtimeEnabled reports whether a trip updates feed URL is configured.
func (c *Client) RealtimeEnabled() bool {
	return c.realtimeURL != ""
}

// TripUpdates returns the realtime adjustments for calls at stopID, keyed by
// trip id. The underlying feed fetch is shared across stops and cached
// briefly; trips without an update for this stop are absent from the map.
func (c *Client) TripUpdates(ctx context.Context, stopID string) (map[string]TripUpdate, error) {
	if !c.RealtimeEnabled() {
		return nil, nil
	}

	feed, err := c.realtimeFeed(ctx)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]TripUpdate)
	for _, entity := range feed.GetEntity() {
		tu := entity.GetTripUpdate()
		if tu == nil {
			continue
		}
		tripID := tu.GetTrip().GetTripId()
		if tripID == "" {
			continue
		}
		for _, stu := range tu.GetStopTimeUpdate() {
			if stu.GetStopId() != stopID {
				continue
			}
			event := stu.GetDeparture()
			if event == nil {
				event = stu.GetArrival()
			}
			if event == nil {
				continue
			}
			upd := TripUpdate{Delay: event.GetDelay()}
			if ts := event.GetTime(); ts > 0 {
				upd.Time = time.Unix(ts, 0)
			}
			updates[tripID] = upd
			break
		}
	}
	return updates, nil
}

func (c *Client) realtimeFeed(ctx context.Context) (*gtfs.FeedMessage, error) {
	c.realtime.mu.Lock()
	defer c.realtime.mu.Unlock()

	if c.realtime.feed != nil && time.Since(c.realtime.fetched) < feedTTL {
		return c.realtime.feed, nil
	}

	body, err := c.get(ctx, c.realtimeURL)
	if err != nil {
		return nil, err
	}

	feed := &gtfs.FeedMessage{}
	if err := proto.Unmarshal(body, feed); err != nil {
		return nil, fmt.Errorf("decode trip updates feed: %v: %w", err, ErrMalformed)
	}

	c.realtime.feed = feed
	c.realtime.fetched = time.Now()
	return feed, nil
}
