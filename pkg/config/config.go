package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

const (
	// MaxRetriesLimit keeps the 2^n-1 second backoff delays bounded
	MaxRetriesLimit = 10

	// persistAllowance covers the final save and lock release
	persistAllowance = 10 * time.Second

	// upstreamCalls counts the non-actuation calls of a cycle: list, predict, feedback and weather
	upstreamCalls = 4
)

// ErrInvalidConfig is wrapped by every validation failure. The process must not run a cycle with it.
var ErrInvalidConfig = errors.New("invalid configuration")

// ValidationError names the configuration field that failed validation
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration error: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfig
}

// Config holds the configuration for the Lux lighting agent
type Config struct {
	// Config file (YAML), applied after defaults and before env/flags
	ConfigFile string `yaml:"-"`

	// Controller record
	LIFXToken       string  `yaml:"lifx_token"`
	DeltaEThreshold float64 `yaml:"delta_e_threshold"`
	DecayRate       float64 `yaml:"decay_rate"`

	// LIFX API
	LIFXBaseURL     string        `yaml:"lifx_base_url"`
	LIFXSelector    string        `yaml:"lifx_selector"`
	LIFXDuration    float64       `yaml:"lifx_duration"`
	MaxRetries      int           `yaml:"max_retries"`
	CallTimeout     time.Duration `yaml:"call_timeout"`
	CycleInterval   time.Duration `yaml:"cycle_interval"`
	Location        string        `yaml:"location"`
	ToleranceHue    float64       `yaml:"tolerance_hue"`
	ToleranceSat    float64       `yaml:"tolerance_saturation"`
	ToleranceBri    float64       `yaml:"tolerance_brightness"`
	ToleranceKelvin float64       `yaml:"tolerance_kelvin"`

	// Weather
	WeatherURL string  `yaml:"weather_url"`
	Latitude   float64 `yaml:"latitude"`
	Longitude  float64 `yaml:"longitude"`

	// State backend: "redis" or "sqlite"
	StateBackend string        `yaml:"state_backend"`
	SQLitePath   string        `yaml:"sqlite_path"`
	LockTTL      time.Duration `yaml:"lock_ttl"`

	// Redis configuration
	RedisHost     string `yaml:"redis_host"`
	RedisPort     int    `yaml:"redis_port"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix"`

	// Postgres configuration (predictor observations)
	PostgresHost               string        `yaml:"postgres_host"`
	PostgresPort               int           `yaml:"postgres_port"`
	PostgresUser               string        `yaml:"postgres_user"`
	PostgresPassword           string        `yaml:"postgres_password"`
	PostgresDB                 string        `yaml:"postgres_db"`
	PostgresSSLMode            string        `yaml:"postgres_sslmode"`
	PostgresMaxConnections     int           `yaml:"postgres_max_connections"`
	PostgresMaxIdleConnections int           `yaml:"postgres_max_idle_connections"`
	PostgresConnMaxLifetime    time.Duration `yaml:"postgres_conn_max_lifetime"`
	PredictorNeighbours        int           `yaml:"predictor_neighbours"`

	// MQTT configuration (lighting context)
	MQTTEnabled  bool   `yaml:"mqtt_enabled"`
	MQTTBroker   string `yaml:"mqtt_broker"`
	MQTTPort     int    `yaml:"mqtt_port"`
	MQTTUser     string `yaml:"mqtt_user"`
	MQTTPassword string `yaml:"mqtt_password"`
	MQTTClientID string `yaml:"mqtt_client_id"`

	// InfluxDB configuration (cycle telemetry)
	InfluxEnabled bool   `yaml:"influx_enabled"`
	InfluxURL     string `yaml:"influx_url"`
	InfluxToken   string `yaml:"influx_token"`
	InfluxOrg     string `yaml:"influx_org"`
	InfluxBucket  string `yaml:"influx_bucket"`

	// Service configuration
	ServiceName string `yaml:"service_name"`
	HealthPort  int    `yaml:"health_port"`
	LogLevel    string `yaml:"log_level"`
	Once        bool   `yaml:"once"`
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		DeltaEThreshold: 20.0,
		DecayRate:       0.1,
		LIFXBaseURL:     "https://api.lifx.com/v1",
		LIFXSelector:    "all",
		LIFXDuration:    1.0,
		MaxRetries:      3,
		CallTimeout:     10 * time.Second,
		CycleInterval:   5 * time.Minute,
		Location:        "home",
		ToleranceHue:    1,
		ToleranceSat:    1,
		ToleranceBri:    1,
		ToleranceKelvin: 1,
		WeatherURL:      "https://api.open-meteo.com/v1/forecast",
		// Austin, TX
		Latitude:                   30.2672,
		Longitude:                  -97.7431,
		StateBackend:               "redis",
		SQLitePath:                 "resources/lux.sqlite",
		LockTTL:                    2 * time.Minute,
		RedisHost:                  "localhost",
		RedisPort:                  6379,
		RedisPrefix:                "lux",
		PostgresHost:               "localhost",
		PostgresPort:               5432,
		PostgresUser:               "lux",
		PostgresDB:                 "lux",
		PostgresSSLMode:            "disable",
		PostgresMaxConnections:     4,
		PostgresMaxIdleConnections: 2,
		PostgresConnMaxLifetime:    30 * time.Minute,
		PredictorNeighbours:        5,
		MQTTBroker:                 "localhost",
		MQTTPort:                   1883,
		InfluxURL:                  "http://localhost:8086",
		InfluxOrg:                  "lux",
		InfluxBucket:               "lighting",
		ServiceName:                "lux-agent",
		HealthPort:                 8080,
		LogLevel:                   "info",
	}
}

// Load resolves configuration with hierarchy: defaults → file → env → explicit flags
func Load(fs *pflag.FlagSet, args []string) (*Config, error) {
	c := NewConfig()
	if v := os.Getenv("LUX_CONFIG"); v != "" {
		c.ConfigFile = v
	}
	c.BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Remember flags given on the command line so they can win over the file and env
	explicit := make(map[string]string)
	fs.Visit(func(f *pflag.Flag) {
		explicit[f.Name] = f.Value.String()
	})

	if c.ConfigFile != "" {
		if err := c.LoadFromFile(c.ConfigFile); err != nil {
			return nil, err
		}
	}
	if err := c.LoadFromEnv(); err != nil {
		return nil, err
	}

	for name, value := range explicit {
		if err := fs.Set(name, value); err != nil {
			return nil, fmt.Errorf("failed to re-apply flag --%s: %w", name, err)
		}
	}

	return c, nil
}

// LoadFromFile overlays values from a YAML file. A missing file is an error.
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables with LUX_ prefix.
// A set but unparsable value is a *ValidationError.
func (c *Config) LoadFromEnv() error {
	env := &envLoader{}

	env.stringVar("LUX_LIFX_TOKEN", &c.LIFXToken)
	env.floatVar("LUX_DELTA_E_THRESHOLD", &c.DeltaEThreshold)
	env.floatVar("LUX_DECAY_RATE", &c.DecayRate)

	env.stringVar("LUX_LIFX_BASE_URL", &c.LIFXBaseURL)
	env.stringVar("LUX_LIFX_SELECTOR", &c.LIFXSelector)
	env.floatVar("LUX_LIFX_DURATION", &c.LIFXDuration)
	env.intVar("LUX_MAX_RETRIES", &c.MaxRetries)
	env.durationVar("LUX_CALL_TIMEOUT", &c.CallTimeout)
	env.durationVar("LUX_CYCLE_INTERVAL", &c.CycleInterval)
	env.stringVar("LUX_LOCATION", &c.Location)
	env.floatVar("LUX_TOLERANCE_HUE", &c.ToleranceHue)
	env.floatVar("LUX_TOLERANCE_SATURATION", &c.ToleranceSat)
	env.floatVar("LUX_TOLERANCE_BRIGHTNESS", &c.ToleranceBri)
	env.floatVar("LUX_TOLERANCE_KELVIN", &c.ToleranceKelvin)

	env.stringVar("LUX_WEATHER_URL", &c.WeatherURL)
	env.floatVar("LUX_LATITUDE", &c.Latitude)
	env.floatVar("LUX_LONGITUDE", &c.Longitude)

	env.stringVar("LUX_STATE_BACKEND", &c.StateBackend)
	env.stringVar("LUX_SQLITE_PATH", &c.SQLitePath)
	env.durationVar("LUX_LOCK_TTL", &c.LockTTL)

	env.stringVar("LUX_REDIS_HOST", &c.RedisHost)
	env.intVar("LUX_REDIS_PORT", &c.RedisPort)
	env.stringVar("LUX_REDIS_PASSWORD", &c.RedisPassword)
	env.intVar("LUX_REDIS_DB", &c.RedisDB)
	env.stringVar("LUX_REDIS_PREFIX", &c.RedisPrefix)

	env.stringVar("LUX_POSTGRES_HOST", &c.PostgresHost)
	env.intVar("LUX_POSTGRES_PORT", &c.PostgresPort)
	env.stringVar("LUX_POSTGRES_USER", &c.PostgresUser)
	env.stringVar("LUX_POSTGRES_PASSWORD", &c.PostgresPassword)
	env.stringVar("LUX_POSTGRES_DB", &c.PostgresDB)
	env.stringVar("LUX_POSTGRES_SSLMODE", &c.PostgresSSLMode)
	env.intVar("LUX_PREDICTOR_NEIGHBOURS", &c.PredictorNeighbours)

	env.boolVar("LUX_MQTT_ENABLED", &c.MQTTEnabled)
	env.stringVar("LUX_MQTT_BROKER", &c.MQTTBroker)
	env.intVar("LUX_MQTT_PORT", &c.MQTTPort)
	env.stringVar("LUX_MQTT_USER", &c.MQTTUser)
	env.stringVar("LUX_MQTT_PASSWORD", &c.MQTTPassword)
	env.stringVar("LUX_MQTT_CLIENT_ID", &c.MQTTClientID)

	env.boolVar("LUX_INFLUX_ENABLED", &c.InfluxEnabled)
	env.stringVar("LUX_INFLUX_URL", &c.InfluxURL)
	env.stringVar("LUX_INFLUX_TOKEN", &c.InfluxToken)
	env.stringVar("LUX_INFLUX_ORG", &c.InfluxOrg)
	env.stringVar("LUX_INFLUX_BUCKET", &c.InfluxBucket)

	env.stringVar("LUX_SERVICE_NAME", &c.ServiceName)
	env.intVar("LUX_HEALTH_PORT", &c.HealthPort)
	env.stringVar("LUX_LOG_LEVEL", &c.LogLevel)

	return env.err
}

// BindFlags registers command-line flags bound to the config fields
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.ConfigFile, "config", "c", c.ConfigFile, "Path to YAML configuration file")

	// Controller flags
	fs.StringVar(&c.LIFXToken, "lifx-token", c.LIFXToken, "LIFX API token")
	fs.Float64Var(&c.DeltaEThreshold, "delta-e-threshold", c.DeltaEThreshold, "CIEDE2000 distance below which the live state counts as expected")
	fs.Float64Var(&c.DecayRate, "decay-rate", c.DecayRate, "Override weight lost per cycle (0-1]")
	fs.StringVar(&c.LIFXBaseURL, "lifx-base-url", c.LIFXBaseURL, "LIFX HTTP API base URL")
	fs.StringVar(&c.LIFXSelector, "lifx-selector", c.LIFXSelector, "LIFX light selector")
	fs.Float64Var(&c.LIFXDuration, "lifx-duration", c.LIFXDuration, "Transition duration in seconds")
	fs.IntVar(&c.MaxRetries, "max-retries", c.MaxRetries, "Actuation retries after the first attempt")
	fs.DurationVar(&c.CallTimeout, "call-timeout", c.CallTimeout, "Timeout for each upstream call")
	fs.DurationVar(&c.CycleInterval, "cycle-interval", c.CycleInterval, "Interval between cycles in loop mode")
	fs.StringVar(&c.Location, "location", c.Location, "Location name used in published context")
	fs.Float64Var(&c.ToleranceHue, "tolerance-hue", c.ToleranceHue, "Hue epsilon for state equality")
	fs.Float64Var(&c.ToleranceSat, "tolerance-saturation", c.ToleranceSat, "Saturation epsilon for state equality")
	fs.Float64Var(&c.ToleranceBri, "tolerance-brightness", c.ToleranceBri, "Brightness epsilon for state equality")
	fs.Float64Var(&c.ToleranceKelvin, "tolerance-kelvin", c.ToleranceKelvin, "Kelvin epsilon for state equality")

	// Weather flags
	fs.StringVar(&c.WeatherURL, "weather-url", c.WeatherURL, "Open-Meteo forecast endpoint")
	fs.Float64Var(&c.Latitude, "latitude", c.Latitude, "Latitude for weather and daylight")
	fs.Float64Var(&c.Longitude, "longitude", c.Longitude, "Longitude for weather and daylight")

	// State flags
	fs.StringVar(&c.StateBackend, "state-backend", c.StateBackend, "Persisted state backend (redis, sqlite)")
	fs.StringVar(&c.SQLitePath, "sqlite-path", c.SQLitePath, "SQLite database path")
	fs.DurationVar(&c.LockTTL, "lock-ttl", c.LockTTL, "Expiry of the cycle lock")

	// Redis flags
	fs.StringVar(&c.RedisHost, "redis-host", c.RedisHost, "Redis hostname")
	fs.IntVar(&c.RedisPort, "redis-port", c.RedisPort, "Redis port")
	fs.StringVar(&c.RedisPassword, "redis-password", c.RedisPassword, "Redis password")
	fs.IntVar(&c.RedisDB, "redis-db", c.RedisDB, "Redis database number")
	fs.StringVar(&c.RedisPrefix, "redis-prefix", c.RedisPrefix, "Redis key prefix")

	// Postgres flags
	fs.StringVar(&c.PostgresHost, "postgres-host", c.PostgresHost, "Postgres hostname")
	fs.IntVar(&c.PostgresPort, "postgres-port", c.PostgresPort, "Postgres port")
	fs.StringVar(&c.PostgresUser, "postgres-user", c.PostgresUser, "Postgres user")
	fs.StringVar(&c.PostgresPassword, "postgres-password", c.PostgresPassword, "Postgres password")
	fs.StringVar(&c.PostgresDB, "postgres-db", c.PostgresDB, "Postgres database")
	fs.StringVar(&c.PostgresSSLMode, "postgres-sslmode", c.PostgresSSLMode, "Postgres sslmode")
	fs.IntVar(&c.PredictorNeighbours, "predictor-neighbours", c.PredictorNeighbours, "Observations averaged per prediction")

	// MQTT flags
	fs.BoolVar(&c.MQTTEnabled, "mqtt-enabled", c.MQTTEnabled, "Publish lighting context over MQTT")
	fs.StringVar(&c.MQTTBroker, "mqtt-broker", c.MQTTBroker, "MQTT broker hostname")
	fs.IntVar(&c.MQTTPort, "mqtt-port", c.MQTTPort, "MQTT broker port")
	fs.StringVar(&c.MQTTUser, "mqtt-user", c.MQTTUser, "MQTT username")
	fs.StringVar(&c.MQTTPassword, "mqtt-password", c.MQTTPassword, "MQTT password")
	fs.StringVar(&c.MQTTClientID, "mqtt-client-id", c.MQTTClientID, "MQTT client ID")

	// InfluxDB flags
	fs.BoolVar(&c.InfluxEnabled, "influx-enabled", c.InfluxEnabled, "Write cycle telemetry to InfluxDB")
	fs.StringVar(&c.InfluxURL, "influx-url", c.InfluxURL, "InfluxDB URL")
	fs.StringVar(&c.InfluxToken, "influx-token", c.InfluxToken, "InfluxDB token")
	fs.StringVar(&c.InfluxOrg, "influx-org", c.InfluxOrg, "InfluxDB organisation")
	fs.StringVar(&c.InfluxBucket, "influx-bucket", c.InfluxBucket, "InfluxDB bucket")

	// Service flags
	fs.StringVar(&c.ServiceName, "service-name", c.ServiceName, "Service name")
	fs.IntVar(&c.HealthPort, "health-port", c.HealthPort, "Health check HTTP port (loop mode)")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level (debug, info, warn, error)")
	fs.BoolVar(&c.Once, "once", c.Once, "Run a single cycle and exit")
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	if c.LIFXToken == "" {
		return &ValidationError{Field: "lifx_token", Reason: "is required"}
	}
	if !(c.DeltaEThreshold > 0) {
		return &ValidationError{Field: "delta_e_threshold", Reason: "must be greater than 0"}
	}
	if !(c.DecayRate > 0 && c.DecayRate <= 1) {
		return &ValidationError{Field: "decay_rate", Reason: "must be in (0, 1]"}
	}
	if c.MaxRetries < 0 || c.MaxRetries > MaxRetriesLimit {
		return &ValidationError{Field: "max_retries", Reason: fmt.Sprintf("must be between 0 and %d", MaxRetriesLimit)}
	}
	if c.CallTimeout <= 0 {
		return &ValidationError{Field: "call_timeout", Reason: "must be positive"}
	}
	if !c.Once && c.CycleInterval <= 0 {
		return &ValidationError{Field: "cycle_interval", Reason: "must be positive"}
	}
	for field, eps := range map[string]float64{
		"tolerance_hue":        c.ToleranceHue,
		"tolerance_saturation": c.ToleranceSat,
		"tolerance_brightness": c.ToleranceBri,
		"tolerance_kelvin":     c.ToleranceKelvin,
	} {
		if eps < 0 {
			return &ValidationError{Field: field, Reason: "must not be negative"}
		}
	}

	if c.LockTTL <= 0 {
		return &ValidationError{Field: "lock_ttl", Reason: "must be positive"}
	}
	if worst := c.WorstCaseCycle(); c.LockTTL <= worst {
		return &ValidationError{Field: "lock_ttl", Reason: fmt.Sprintf("%s must exceed the worst-case cycle duration %s", c.LockTTL, worst)}
	}

	switch c.StateBackend {
	case "redis":
		if c.RedisHost == "" {
			return &ValidationError{Field: "redis_host", Reason: "is required for the redis backend"}
		}
		if c.RedisPort <= 0 || c.RedisPort > 65535 {
			return &ValidationError{Field: "redis_port", Reason: "must be between 1 and 65535"}
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return &ValidationError{Field: "sqlite_path", Reason: "is required for the sqlite backend"}
		}
	default:
		return &ValidationError{Field: "state_backend", Reason: fmt.Sprintf("unknown backend %q (must be redis or sqlite)", c.StateBackend)}
	}

	if c.PostgresHost == "" {
		return &ValidationError{Field: "postgres_host", Reason: "is required"}
	}
	if c.PredictorNeighbours <= 0 {
		return &ValidationError{Field: "predictor_neighbours", Reason: "must be positive"}
	}
	if c.MQTTEnabled && (c.MQTTPort <= 0 || c.MQTTPort > 65535) {
		return &ValidationError{Field: "mqtt_port", Reason: "must be between 1 and 65535"}
	}
	if c.InfluxEnabled && c.InfluxURL == "" {
		return &ValidationError{Field: "influx_url", Reason: "is required when influx is enabled"}
	}
	if c.HealthPort <= 0 || c.HealthPort > 65535 {
		return &ValidationError{Field: "health_port", Reason: "must be between 1 and 65535"}
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return &ValidationError{Field: "log_level", Reason: fmt.Sprintf("%q must be debug, info, warn, or error", c.LogLevel)}
	}

	return nil
}

// WorstCaseCycle bounds how long one cycle can hold the lock: every upstream
// call and actuation attempt timing out, every backoff delay, and the final save.
func (c *Config) WorstCaseCycle() time.Duration {
	attempts := c.MaxRetries + 1
	d := time.Duration(upstreamCalls+attempts) * c.CallTimeout
	for n := 1; n <= c.MaxRetries; n++ {
		d += time.Duration((1<<n)-1) * time.Second
	}
	return d + persistAllowance
}

// MQTTAddress returns the full MQTT broker address
func (c *Config) MQTTAddress() string {
	return fmt.Sprintf("tcp://%s:%d", c.MQTTBroker, c.MQTTPort)
}

// RedisAddress returns the full Redis address
func (c *Config) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// PostgresConnectionString returns the lib/pq connection string
func (c *Config) PostgresConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode)
}

// envLoader overlays LUX_* variables and keeps the first parse failure
type envLoader struct {
	err error
}

func (e *envLoader) fail(key, value, want string) {
	if e.err != nil {
		return
	}
	e.err = &ValidationError{
		Field:  strings.ToLower(strings.TrimPrefix(key, "LUX_")),
		Reason: fmt.Sprintf("has invalid value %q in %s (want %s)", value, key, want),
	}
}

func (e *envLoader) stringVar(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (e *envLoader) intVar(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.fail(key, v, "an integer")
			return
		}
		*dst = n
	}
}

func (e *envLoader) floatVar(key string, dst *float64) {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			e.fail(key, v, "a number")
			return
		}
		*dst = f
	}
}

func (e *envLoader) boolVar(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.fail(key, v, "true or false")
			return
		}
		*dst = b
	}
}

func (e *envLoader) durationVar(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			e.fail(key, v, "a duration such as 90s")
			return
		}
		*dst = d
	}
}
