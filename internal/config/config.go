// Package config loads runtime settings from the environment, with an
// optional .env file in the working directory.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/luki/smartfarm/internal/reading"
	"github.com/luki/smartfarm/internal/threshold"
)

type Config struct {
	// Backend
	APIURL      string
	HTTPTimeout time.Duration

	// Local state: token, logs, exports
	Home  string
	Debug bool

	// Dashboard
	PollInterval  time.Duration
	Thresholds    threshold.Table
	DefaultFilter string

	// MQTT device control. Empty broker means devices go through the HTTP API.
	MQTTBroker       string
	MQTTClientID     string
	MQTTUsername     string
	MQTTPassword     string
	MQTTCommandTopic string
	DeviceID         string

	// Simulator
	SimAddr   string
	SimSecret string

	// Warnings lists variables that failed to parse and fell back to their
	// defaults. Load runs before logging is set up, so callers log these.
	Warnings []string
}

// thresholdEnv maps each parameter to the variable overriding its
// default threshold.
var thresholdEnv = map[reading.Parameter]string{
	reading.Temperature:    "THRESHOLD_TEMPERATURE",
	reading.Humidity:       "THRESHOLD_HUMIDITY",
	reading.CO2:            "THRESHOLD_CO2",
	reading.LightIntensity: "THRESHOLD_LIGHT",
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	var env envReader
	thresholds := threshold.Defaults()
	for _, p := range reading.Parameters() {
		thresholds[p] = env.getFloat(thresholdEnv[p], thresholds[p])
	}

	return &Config{
		APIURL:      getEnv("SMARTFARM_API", "http://127.0.0.1:5000"),
		HTTPTimeout: env.getDuration("HTTP_TIMEOUT", 0),

		Home:  getEnv("SMARTFARM_HOME", defaultHome()),
		Debug: env.getBool("SMARTFARM_DEBUG", false),

		PollInterval:  env.getDuration("POLL_INTERVAL", 10*time.Second),
		Thresholds:    thresholds,
		DefaultFilter: getEnv("DEFAULT_FILTER", string(reading.Temperature)),

		MQTTBroker:       getEnv("MQTT_BROKER", ""),
		MQTTClientID:     getEnv("MQTT_CLIENT_ID", "smartfarm-"+uuid.NewString()),
		MQTTUsername:     getEnv("MQTT_USERNAME", ""),
		MQTTPassword:     getEnv("MQTT_PASSWORD", ""),
		MQTTCommandTopic: getEnv("MQTT_COMMAND_TOPIC", "smartfarm/{device_id}/command"),
		DeviceID:         getEnv("DEVICE_ID", "farm-1"),

		SimAddr:   getEnv("SIM_ADDR", ":5000"),
		SimSecret: getEnv("SIM_SECRET", ""),

		Warnings: env.warnings,
	}
}

// TokenPath is where the bearer token is kept between runs.
func (c *Config) TokenPath() string { return filepath.Join(c.Home, "token") }

// LogDir holds smartfarm.log.
func (c *Config) LogDir() string { return filepath.Join(c.Home, "logs") }

// ExportDir holds the daily CSV exports.
func (c *Config) ExportDir() string { return filepath.Join(c.Home, "exports") }

func defaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".smartfarm"
	}
	return filepath.Join(home, ".smartfarm")
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// envReader parses typed variables and records the ones it had to ignore.
type envReader struct {
	warnings []string
}

func (r *envReader) warn(key, kind string, err error) {
	r.warnings = append(r.warnings, fmt.Sprintf("failed to parse %s as %s, using default: %v", key, kind, err))
}

func (r *envReader) getFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		r.warn(key, "float", err)
		return defaultValue
	}
	return floatValue
}

// getDuration accepts Go durations ("15s") or a bare number of seconds.
func (r *envReader) getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	secs, err := strconv.ParseFloat(value, 64)
	if err != nil {
		r.warn(key, "duration", err)
		return defaultValue
	}
	return time.Duration(secs * float64(time.Second))
}

func (r *envReader) getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		r.warn(key, "bool", err)
		return defaultValue
	}
	return boolValue
}
