package app

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/SeitzDaniel/auckland-transport/internal/at"
	"github.com/SeitzDaniel/auckland-transport/internal/config"
	"github.com/SeitzDaniel/auckland-transport/internal/httpapi"
	"github.com/SeitzDaniel/auckland-transport/internal/httpapi/views"
	"github.com/SeitzDaniel/auckland-transport/internal/mqtt"
	"github.com/SeitzDaniel/auckland-transport/internal/poller"
	"github.com/SeitzDaniel/auckland-transport/internal/setup"
	"github.com/SeitzDaniel/auckland-transport/internal/store"
	"github.com/SeitzDaniel/auckland-transport/internal/store/migrate"
)

func Run(ctx context.Context, cfg config.Config, stopsCfg config.Stops, version string) error {
	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"sqlitePath", cfg.SQLitePath,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"topicPrefix", cfg.TopicPrefix,
		"timezone", cfg.Location.String(),
		"stops", len(stopsCfg.Stops),
	)

	dbConn, err := store.Open(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Close(dbConn); closeErr != nil {
			slog.Error("db close", "error", closeErr)
		}
	}()

	if err := migrate.Run(dbConn); err != nil {
		return err
	}

	repo := store.NewRepository(dbConn)
	client := at.NewClient(cfg, stopsCfg.APIKey)

	sensors, directory, err := setup.Validate(ctx, client, stopsCfg.Stops)
	if err != nil {
		return err
	}
	slog.Info("stops validated", "configured", len(sensors), "directory", len(directory))

	if err := repo.ReplaceStops(stopRecords(directory)); err != nil {
		return err
	}

	if err := views.LoadTemplates(); err != nil {
		return err
	}

	bridge := mqtt.New(cfg, version)

	// A restarted Home Assistant drops its non-retained state, so its birth
	// message triggers a re-announce of every sensor.
	bridge.OnPlatformStatus(func(online bool) {
		if !online {
			return
		}
		slog.Info("platform back online, republishing sensors")
		announceSensors(bridge, repo, sensors)
	})

	// Short timeout for the initial connect so a down broker does not block
	// startup; auto-reconnect picks the session up later.
	connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
	err = bridge.Connect(connectCtx)
	connectCancel()
	if err != nil {
		slog.Warn("mqtt connection failed (continuing, auto-reconnect active)", "error", err)
	}

	announceSensors(bridge, repo, sensors)

	pollCtx, stopPollers := context.WithCancel(ctx)
	defer stopPollers()
	var pollers sync.WaitGroup
	for _, s := range sensors {
		p := poller.New(stopSensor(s), s.Stop.Settings, client, bridge, repo, cfg.Location)
		pollers.Add(1)
		go func() {
			defer pollers.Done()
			p.Run(pollCtx)
		}()
	}

	go refreshDirectory(pollCtx, cfg, client, repo)

	mux := httpapi.NewMux(dbConn, repo, bridge)
	srv := httpapi.NewServer(cfg, mux)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	// Pollers must drain before the offline publishes, or an in-flight cycle
	// could mark an entity online again.
	stopPollers()
	pollers.Wait()

	for _, s := range sensors {
		if err := bridge.PublishAvailability(s.Stop.ID, false); err != nil {
			slog.Warn("publish availability", "stop_id", s.Stop.ID, "error", err)
		}
	}
	if err := bridge.PublishBridgeAvailability(false); err != nil {
		slog.Warn("publish bridge availability", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	slog.Info("mqtt disconnecting")
	bridge.Disconnect()

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}

func stopSensor(s setup.Sensor) mqtt.StopSensor {
	return mqtt.StopSensor{
		StopID: s.Stop.ID,
		Code:   s.Code,
		Name:   s.Name,
		Type:   s.Type,
	}
}

func stopRecords(directory []at.Stop) []store.StopRecord {
	now := time.Now().UTC()
	records := make([]store.StopRecord, 0, len(directory))
	for _, s := range directory {
		records = append(records, store.StopRecord{
			ID:           s.ID,
			Code:         s.Code,
			Name:         s.Name,
			Lat:          s.Lat,
			Lon:          s.Lon,
			LocationType: s.LocationType,
			Wheelchair:   s.WheelchairBoarding,
			FetchedAt:    now,
		})
	}
	return records
}

// announceSensors publishes every sensor's discovery config and replays the
// stored results so entities show data before the next poll lands.
func announceSensors(bridge *mqtt.Client, repo store.Repository, sensors []setup.Sensor) {
	for _, s := range sensors {
		if err := bridge.PublishDiscovery(stopSensor(s)); err != nil {
			slog.Warn("publish discovery", "stop_id", s.Stop.ID, "error", err)
		}
		restoreLastResult(bridge, repo, s.Stop.ID)
	}
}

// restoreLastResult republishes the stored result so a restart does not
// blank the entity while the first poll is still in flight.
func restoreLastResult(bridge *mqtt.Client, repo store.Repository, stopID string) {
	rec, err := repo.GetResult(stopID)
	if err != nil {
		slog.Warn("restore result", "stop_id", stopID, "error", err)
		return
	}
	if rec == nil {
		return
	}

	if err := bridge.PublishState(stopID, rec.State); err != nil {
		slog.Warn("restore state", "stop_id", stopID, "error", err)
		return
	}
	var attrs mqtt.Attributes
	if err := json.Unmarshal([]byte(rec.Attributes), &attrs); err != nil {
		slog.Warn("restore attributes", "stop_id", stopID, "error", err)
		return
	}
	if err := bridge.PublishAttributes(stopID, attrs); err != nil {
		slog.Warn("restore attributes", "stop_id", stopID, "error", err)
	}
}

// refreshDirectory re-fetches the AT stops directory on the configured
// interval so stored stop metadata stays current across agency edits.
func refreshDirectory(ctx context.Context, cfg config.Config, client *at.Client, repo store.Repository) {
	ticker := time.NewTicker(cfg.StopsRefresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			directory, err := client.ListStops(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				slog.Warn("refresh stops directory", "error", err)
				continue
			}
			if err := repo.ReplaceStops(stopRecords(directory)); err != nil {
				slog.Warn("store stops directory", "error", err)
				continue
			}
			slog.Debug("stops directory refreshed", "count", len(directory))
		}
	}
}
