package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/SeitzDaniel/auckland-transport/internal/departures"
)

const (
	// Poll interval bounds and default, in line with what the AT API
	// tolerates for per-stop polling.
	MinInterval     = 30 * time.Second
	MaxInterval     = time.Hour
	DefaultInterval = 60 * time.Second

	MinUpcoming     = 1
	MaxUpcoming     = 10
	DefaultUpcoming = 4
)

// stopsFile is the on-disk YAML shape. Per-stop fields override defaults.
type stopsFile struct {
	APIKey   string       `yaml:"api_key"`
	Defaults settingsYAML `yaml:"defaults"`
	Stops    []stopEntry  `yaml:"stops" validate:"required,min=1,dive"`
}

type settingsYAML struct {
	Interval    string `yaml:"interval"`
	MaxUpcoming *int   `yaml:"max_upcoming" validate:"omitempty,min=1,max=10"`
	QuietStart  string `yaml:"quiet_start"`
	QuietEnd    string `yaml:"quiet_end"`
}

type stopEntry struct {
	ID           string `yaml:"id" validate:"required"`
	Name         string `yaml:"name"`
	Type         string `yaml:"type" validate:"omitempty,oneof=bus train ferry"`
	settingsYAML `yaml:",inline"`
}

// Settings are the per-stop polling options, resolved and validated once at
// load. Values are never mutated afterwards.
type Settings struct {
	Interval    time.Duration
	MaxUpcoming int
	Quiet       departures.Window
}

// Stop is one configured stop with its resolved settings.
type Stop struct {
	ID       string
	Name     string
	Type     string
	Settings Settings
}

// Stops is the resolved stops file.
type Stops struct {
	APIKey string
	Stops  []Stop
}

// LoadStops reads and validates the YAML stops file. apiKeyOverride, when
// non-empty, takes precedence over the key in the file.
func LoadStops(path string, apiKeyOverride string) (Stops, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Stops{}, fmt.Errorf("read stops config: %w", err)
	}

	var file stopsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Stops{}, fmt.Errorf("parse stops config %s: %w", path, err)
	}

	v := validator.New()
	if err := v.Struct(file); err != nil {
		return Stops{}, fmt.Errorf("validate stops config %s: %w", path, err)
	}

	apiKey := file.APIKey
	if apiKeyOverride != "" {
		apiKey = apiKeyOverride
	}
	if apiKey == "" {
		return Stops{}, fmt.Errorf("stops config %s: api_key missing (set it in the file or via AT_API_KEY)", path)
	}

	defaults, err := resolveSettings(file.Defaults, Settings{
		Interval:    DefaultInterval,
		MaxUpcoming: DefaultUpcoming,
	})
	if err != nil {
		return Stops{}, fmt.Errorf("stops config defaults: %w", err)
	}

	seen := make(map[string]bool, len(file.Stops))
	out := Stops{APIKey: apiKey, Stops: make([]Stop, 0, len(file.Stops))}
	for _, entry := range file.Stops {
		if seen[entry.ID] {
			return Stops{}, fmt.Errorf("stops config: duplicate stop id %q", entry.ID)
		}
		seen[entry.ID] = true

		settings, err := resolveSettings(entry.settingsYAML, defaults)
		if err != nil {
			return Stops{}, fmt.Errorf("stop %q: %w", entry.ID, err)
		}
		out.Stops = append(out.Stops, Stop{
			ID:       entry.ID,
			Name:     entry.Name,
			Type:     entry.Type,
			Settings: settings,
		})
	}
	return out, nil
}

// resolveSettings layers explicit YAML values over base and range-checks the
// outcome. Out-of-range values are errors, never silently clamped.
func resolveSettings(y settingsYAML, base Settings) (Settings, error) {
	s := base

	if y.Interval != "" {
		d, err := time.ParseDuration(y.Interval)
		if err != nil {
			return Settings{}, fmt.Errorf("invalid interval %q: %w", y.Interval, err)
		}
		s.Interval = d
	}
	if s.Interval < MinInterval || s.Interval > MaxInterval {
		return Settings{}, fmt.Errorf("interval %v out of range [%v, %v]", s.Interval, MinInterval, MaxInterval)
	}

	if y.MaxUpcoming != nil {
		s.MaxUpcoming = *y.MaxUpcoming
	}
	if s.MaxUpcoming < MinUpcoming || s.MaxUpcoming > MaxUpcoming {
		return Settings{}, fmt.Errorf("max_upcoming %d out of range [%d, %d]", s.MaxUpcoming, MinUpcoming, MaxUpcoming)
	}

	if y.QuietStart != "" {
		start, err := departures.ParseTimeOfDay(y.QuietStart)
		if err != nil {
			return Settings{}, fmt.Errorf("quiet_start: %w", err)
		}
		s.Quiet.Start = start
	}
	if y.QuietEnd != "" {
		end, err := departures.ParseTimeOfDay(y.QuietEnd)
		if err != nil {
			return Settings{}, fmt.Errorf("quiet_end: %w", err)
		}
		s.Quiet.End = end
	}

	return s, nil
}
