package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	// StopsPath is the path of the YAML file listing stops and settings.
	StopsPath string

	SQLitePath      string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	LogSQL          bool

	MQTTBroker      string
	MQTTPort        int
	MQTTClientID    string
	MQTTUsername    string
	MQTTPassword    string
	TopicPrefix     string
	DiscoveryPrefix string

	APIBaseURL   string
	APIKey       string
	RealtimeURL  string
	HTTPTimeout  time.Duration
	StopsRefresh time.Duration

	// Location is the agency timezone. Service dates, quiet-hours checks
	// and displayed departure times are all evaluated in it.
	Location *time.Location
}

func LoadFromEnv() (Config, error) {
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	logLevelStr := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if logLevelStr == "" {
		logLevelStr = "info"
	}
	level, err := parseLogLevel(logLevelStr)
	if err != nil {
		return Config{}, err
	}

	httpAddr := strings.TrimSpace(os.Getenv("HTTP_ADDR"))
	if httpAddr == "" {
		httpAddr = ":8080"
	}

	stopsPath := strings.TrimSpace(os.Getenv("STOPS_CONFIG"))
	if stopsPath == "" {
		stopsPath = "config.yml"
	}

	sqlitePath := strings.TrimSpace(os.Getenv("SQLITE_PATH"))
	if sqlitePath == "" {
		sqlitePath = "data/atbridge.db"
	}
	dsn := strings.TrimSpace(os.Getenv("DB_DSN"))

	maxOpenConnsStr := strings.TrimSpace(os.Getenv("DB_MAX_OPEN_CONNS"))
	if maxOpenConnsStr == "" {
		maxOpenConnsStr = "1"
	}
	maxOpenConns, err := strconv.Atoi(maxOpenConnsStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_MAX_OPEN_CONNS %q: %w", maxOpenConnsStr, err)
	}

	maxIdleConnsStr := strings.TrimSpace(os.Getenv("DB_MAX_IDLE_CONNS"))
	if maxIdleConnsStr == "" {
		maxIdleConnsStr = "1"
	}
	maxIdleConns, err := strconv.Atoi(maxIdleConnsStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_MAX_IDLE_CONNS %q: %w", maxIdleConnsStr, err)
	}

	connMaxLifetimeStr := strings.TrimSpace(os.Getenv("DB_CONN_MAX_LIFETIME"))
	if connMaxLifetimeStr == "" {
		connMaxLifetimeStr = "0s"
	}
	connMaxLifetime, err := time.ParseDuration(connMaxLifetimeStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_CONN_MAX_LIFETIME %q: %w", connMaxLifetimeStr, err)
	}

	logSQLStr := strings.TrimSpace(os.Getenv("DB_LOG_SQL"))
	if logSQLStr == "" {
		logSQLStr = "false"
	}
	logSQL, err := strconv.ParseBool(logSQLStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_LOG_SQL %q: %w", logSQLStr, err)
	}

	mqttBroker := strings.TrimSpace(os.Getenv("MQTT_BROKER"))
	if mqttBroker == "" {
		mqttBroker = "localhost"
	}

	mqttPortStr := strings.TrimSpace(os.Getenv("MQTT_PORT"))
	if mqttPortStr == "" {
		mqttPortStr = "1883"
	}
	mqttPort, err := strconv.Atoi(mqttPortStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid MQTT_PORT %q: %w", mqttPortStr, err)
	}

	mqttClientID := strings.TrimSpace(os.Getenv("MQTT_CLIENT_ID"))
	if mqttClientID == "" {
		mqttClientID = "atbridge"
	}

	mqttUsername := strings.TrimSpace(os.Getenv("MQTT_USERNAME"))
	mqttPassword := os.Getenv("MQTT_PASSWORD")

	topicPrefix := strings.TrimSpace(os.Getenv("MQTT_TOPIC_PREFIX"))
	if topicPrefix == "" {
		topicPrefix = "atbridge"
	}
	if strings.ContainsAny(topicPrefix, "+#/") {
		return Config{}, fmt.Errorf("invalid MQTT_TOPIC_PREFIX %q (must be a single topic level)", topicPrefix)
	}

	discoveryPrefix := strings.TrimSpace(os.Getenv("MQTT_DISCOVERY_PREFIX"))
	if discoveryPrefix == "" {
		discoveryPrefix = "homeassistant"
	}

	apiBaseURL := strings.TrimSpace(os.Getenv("AT_BASE_URL"))
	if apiBaseURL == "" {
		apiBaseURL = "https://api.at.govt.nz/gtfs/v3"
	}
	apiBaseURL = strings.TrimRight(apiBaseURL, "/")

	apiKey := strings.TrimSpace(os.Getenv("AT_API_KEY"))

	realtimeURL := strings.TrimSpace(os.Getenv("AT_REALTIME_URL"))

	httpTimeoutStr := strings.TrimSpace(os.Getenv("AT_HTTP_TIMEOUT"))
	if httpTimeoutStr == "" {
		httpTimeoutStr = "10s"
	}
	httpTimeout, err := time.ParseDuration(httpTimeoutStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid AT_HTTP_TIMEOUT %q: %w", httpTimeoutStr, err)
	}
	if httpTimeout <= 0 {
		return Config{}, fmt.Errorf("AT_HTTP_TIMEOUT must be positive, got %v", httpTimeout)
	}

	stopsRefreshStr := strings.TrimSpace(os.Getenv("STOPS_REFRESH_INTERVAL"))
	if stopsRefreshStr == "" {
		stopsRefreshStr = "5m"
	}
	stopsRefresh, err := time.ParseDuration(stopsRefreshStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid STOPS_REFRESH_INTERVAL %q: %w", stopsRefreshStr, err)
	}
	if stopsRefresh <= 0 {
		return Config{}, fmt.Errorf("STOPS_REFRESH_INTERVAL must be positive, got %v", stopsRefresh)
	}

	tzName := strings.TrimSpace(os.Getenv("TIMEZONE"))
	if tzName == "" {
		tzName = "Pacific/Auckland"
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return Config{}, fmt.Errorf("invalid TIMEZONE %q: %w", tzName, err)
	}

	return Config{
		AppEnv:          appEnv,
		LogLevel:        level,
		HTTPAddr:        httpAddr,
		StopsPath:       stopsPath,
		SQLitePath:      sqlitePath,
		DSN:             dsn,
		MaxOpenConns:    maxOpenConns,
		MaxIdleConns:    maxIdleConns,
		ConnMaxLifetime: connMaxLifetime,
		LogSQL:          logSQL,
		MQTTBroker:      mqttBroker,
		MQTTPort:        mqttPort,
		MQTTClientID:    mqttClientID,
		MQTTUsername:    mqttUsername,
		MQTTPassword:    mqttPassword,
		TopicPrefix:     topicPrefix,
		DiscoveryPrefix: discoveryPrefix,
		APIBaseURL:      apiBaseURL,
		APIKey:          apiKey,
		RealtimeURL:     realtimeURL,
		HTTPTimeout:     httpTimeout,
		StopsRefresh:    stopsRefresh,
		Location:        loc,
	}, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
