// Package poller drives the per-stop poll loop: fetch the schedule, apply
// realtime adjustments, select the next departures and publish them.
package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SeitzDaniel/auckland-transport/internal/at"
	"github.com/SeitzDaniel/auckland-transport/internal/config"
	"github.com/SeitzDaniel/auckland-transport/internal/departures"
	"github.com/SeitzDaniel/auckland-transport/internal/mqtt"
	"github.com/SeitzDaniel/auckland-transport/internal/store"
)

// StateNoDepartures is the sensor state when nothing departs after now.
const StateNoDepartures = "No upcoming departures"

const clockFormat = "15:04:05"

// TripSource provides schedule and realtime data for a stop.
type TripSource interface {
	StopTrips(ctx context.Context, stopID, date string, startHour int) ([]at.StopTrip, error)
	TripUpdates(ctx context.Context, stopID string) (map[string]at.TripUpdate, error)
	RealtimeEnabled() bool
}

// Publisher pushes sensor updates out to the broker.
type Publisher interface {
	PublishState(stopID, state string) error
	PublishAttributes(stopID string, attrs mqtt.Attributes) error
	PublishAvailability(stopID string, online bool) error
}

// ResultStore persists the latest poll result per stop.
type ResultStore interface {
	UpsertResult(rec store.ResultRecord) error
}

// Poller polls a single stop on its configured interval.
type Poller struct {
	sensor   mqtt.StopSensor
	settings config.Settings
	source   TripSource
	pub      Publisher
	results  ResultStore
	loc      *time.Location
	log      *slog.Logger

	now func() time.Time
}

func New(sensor mqtt.StopSensor, settings config.Settings, source TripSource, pub Publisher, results ResultStore, loc *time.Location) *Poller {
	return &Poller{
		sensor:   sensor,
		settings: settings,
		source:   source,
		pub:      pub,
		results:  results,
		loc:      loc,
		log:      slog.With("stop_id", sensor.StopID),
		now:      time.Now,
	}
}

// Run polls until ctx is cancelled. The first cycle runs immediately so the
// entity has data as soon as the bridge is up. The last good result is
// threaded through pollOnce rather than held in shared state.
func (p *Poller) Run(ctx context.Context) {
	prev := p.pollOnce(ctx, nil)

	ticker := time.NewTicker(p.settings.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prev = p.pollOnce(ctx, prev)
		}
	}
}

// pollOnce runs one cycle end to end and returns the result to carry into
// the next cycle. A failed cycle marks the entity unavailable, leaves the
// retained state untouched and returns prev; the next tick is the retry.
func (p *Poller) pollOnce(ctx context.Context, prev *departures.Result) *departures.Result {
	now := p.now().In(p.loc)

	if p.settings.Quiet.Contains(now) {
		p.log.Debug("within quiet hours, skipping poll")
		return prev
	}

	res, err := p.fetch(ctx, now)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return prev
		}
		attrs := []any{"error", err}
		if prev != nil {
			attrs = append(attrs, "last_success", prev.PolledAt)
		}
		p.log.Error("poll failed", attrs...)
		if err := p.pub.PublishAvailability(p.sensor.StopID, false); err != nil {
			p.log.Warn("publish availability", "error", err)
		}
		return prev
	}

	p.publish(res)
	return &res
}

func (p *Poller) fetch(ctx context.Context, now time.Time) (departures.Result, error) {
	serviceDate := departures.ServiceDate(now)

	trips, err := p.source.StopTrips(ctx, p.sensor.StopID, serviceDate.Format("2006-01-02"), now.Hour())
	if err != nil {
		return departures.Result{}, fmt.Errorf("stop trips: %w", err)
	}

	var updates map[string]at.TripUpdate
	if p.source.RealtimeEnabled() {
		updates, err = p.source.TripUpdates(ctx, p.sensor.StopID)
		if err != nil {
			p.log.Warn("trip updates unavailable, using schedule only", "error", err)
			updates = nil
		}
	}

	raw := make([]departures.Departure, 0, len(trips))
	for _, trip := range trips {
		clock := trip.DepartureTime
		if clock == "" {
			clock = trip.ArrivalTime
		}
		sched, err := departures.ParseServiceTime(clock, serviceDate)
		if err != nil {
			p.log.Warn("skipping trip with bad departure time", "trip", trip.TripID, "error", err)
			continue
		}

		d := departures.Departure{
			TripID:      trip.TripID,
			Route:       trip.RouteID,
			Destination: trip.Headsign,
			Scheduled:   sched,
		}
		if upd, ok := updates[trip.TripID]; ok {
			rt := upd.Time
			if rt.IsZero() {
				rt = sched.Add(time.Duration(upd.Delay) * time.Second)
			}
			d.Realtime = &rt
		}
		raw = append(raw, d)
	}

	return departures.Select(raw, now, p.settings.MaxUpcoming), nil
}

func (p *Poller) publish(res departures.Result) {
	state := StateNoDepartures
	if res.Next != nil {
		state = res.Next.Effective().In(p.loc).Format(clockFormat)
	}
	attrs := p.attributes(res)

	if err := p.pub.PublishAvailability(p.sensor.StopID, true); err != nil {
		p.log.Warn("publish availability", "error", err)
	}
	if err := p.pub.PublishState(p.sensor.StopID, state); err != nil {
		p.log.Warn("publish state", "error", err)
	}
	if err := p.pub.PublishAttributes(p.sensor.StopID, attrs); err != nil {
		p.log.Warn("publish attributes", "error", err)
	}

	if p.results != nil {
		data, err := json.Marshal(attrs)
		if err != nil {
			p.log.Warn("marshal poll result", "error", err)
			return
		}
		if err := p.results.UpsertResult(store.ResultRecord{
			StopID:     p.sensor.StopID,
			PolledAt:   res.PolledAt,
			State:      state,
			Attributes: string(data),
		}); err != nil {
			p.log.Warn("persist poll result", "error", err)
		}
	}

	p.log.Debug("poll complete", "state", state, "upcoming", len(res.Upcoming))
}

func (p *Poller) attributes(res departures.Result) mqtt.Attributes {
	attrs := mqtt.Attributes{
		StopID:        p.sensor.StopID,
		StopCode:      p.sensor.Code,
		StopName:      p.sensor.Name,
		TransportType: p.sensor.Type,
		Count:         len(res.Upcoming),
		Upcoming:      make([]mqtt.UpcomingDeparture, 0, len(res.Upcoming)),
	}
	if res.Next != nil {
		eff := res.Next.Effective().In(p.loc)
		attrs.NextDeparture = &eff
		attrs.Realtime = res.Next.Realtime != nil
	}
	for _, d := range res.Upcoming {
		attrs.Upcoming = append(attrs.Upcoming, mqtt.UpcomingDeparture{
			Time:        d.Effective().In(p.loc).Format(clockFormat),
			Scheduled:   d.Scheduled.In(p.loc).Format(clockFormat),
			Route:       d.Route,
			Destination: d.Destination,
			Realtime:    d.Realtime != nil,
		})
	}
	return attrs
}
