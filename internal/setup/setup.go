// Package setup resolves the configured stops against the AT stops directory
// at startup. One directory fetch both validates the API key and supplies
// the display metadata for every sensor.
package setup

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/SeitzDaniel/auckland-transport/internal/at"
	"github.com/SeitzDaniel/auckland-transport/internal/config"
)

// StopLister fetches the full stops directory.
type StopLister interface {
	ListStops(ctx context.Context) ([]at.Stop, error)
}

// Sensor is a configured stop joined with its directory record.
type Sensor struct {
	Stop config.Stop
	Code string
	Name string
	Type string
}

// Validate fetches the stops directory and resolves every configured stop
// against it. An unauthorized response or a configured stop missing from the
// directory is fatal; the bridge refuses to start on a broken configuration.
// The directory is returned alongside the sensors so callers can persist it.
func Validate(ctx context.Context, lister StopLister, stops []config.Stop) ([]Sensor, []at.Stop, error) {
	directory, err := lister.ListStops(ctx)
	if err != nil {
		if errors.Is(err, at.ErrUnauthorized) {
			return nil, nil, fmt.Errorf("validate api key: %w", err)
		}
		return nil, nil, fmt.Errorf("fetch stops directory: %w", err)
	}

	byID := make(map[string]at.Stop, len(directory))
	for _, s := range directory {
		byID[s.ID] = s
	}

	sensors := make([]Sensor, 0, len(stops))
	var missing []string
	for _, stop := range stops {
		record, ok := byID[stop.ID]
		if !ok {
			missing = append(missing, stop.ID)
			continue
		}
		sensors = append(sensors, resolve(stop, record))
	}
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("configured stops not in AT directory: %s", strings.Join(missing, ", "))
	}

	return sensors, directory, nil
}

func resolve(stop config.Stop, record at.Stop) Sensor {
	name := stop.Name
	if name == "" {
		name = record.Name
	}
	if name == "" {
		name = stop.ID
	}

	typ := stop.Type
	if typ == "" {
		typ = inferType(record.Code)
	}

	return Sensor{Stop: stop, Code: record.Code, Name: name, Type: typ}
}

// inferType guesses the transport mode from the stop code length, the same
// heuristic AT uses for its own stop numbering: train stations carry 3-digit
// codes, bus stops 4, ferry terminals 5.
func inferType(code string) string {
	switch len(code) {
	case 3:
		return "train"
	case 4:
		return "bus"
	case 5:
		return "ferry"
	default:
		return ""
	}
}
