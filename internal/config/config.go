package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/peter-kozarec/botplatform/pkg/utility/fixed"
)

type Mode string

const (
	ModeSandbox Mode = "sandbox"
	ModeLive    Mode = "live"
	ModeReplay  Mode = "replay"
)

const (
	StateMemory   = "memory"
	StateSQLite   = "sqlite"
	StatePostgres = "postgres"
)

// ModeEnv selects the run mode and with it the environments/{mode}.json file.
const ModeEnv = "PLATFORM_MODE"

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Mode      Mode
	LogLevel  string
	LogFormat string

	Symbols     []string
	BaseSize    fixed.Point
	RunDuration time.Duration

	// SignalsWindow is the number of ticks behind the z-score signal, zero disables signals.
	SignalsWindow int

	Feed   FeedConfig
	BingX  BingXConfig
	State  StateConfig
	Replay ReplayConfig

	OpsAddr string
}

type FeedConfig struct {
	Interval time.Duration
	Mode     string
}

type BingXConfig struct {
	APIKey    string
	APISecret string
	RestURL   string
	WSURL     string
}

type StateConfig struct {
	Backend     string
	SQLitePath  string
	PostgresDSN string
	RedisAddr   string
	RedisTTL    time.Duration
}

type ReplayConfig struct {
	DSN   string
	Table string
	Speed float64
}

// fileConfig mirrors environments/{mode}.json. Every field is optional.
type fileConfig struct {
	LogLevel      string       `json:"log_level"`
	LogFormat     string       `json:"log_format"`
	Symbols       []string     `json:"symbols"`
	BaseSize      *fixed.Point `json:"base_size"`
	RunDuration   string       `json:"run_duration"`
	SignalsWindow *int         `json:"signals_window"`
	OpsAddr       string       `json:"ops_addr"`

	Feed struct {
		Interval string `json:"interval"`
		Mode     string `json:"mode"`
	} `json:"feed"`

	BingX struct {
		RestURL     string   `json:"rest_url"`
		WSMarketURL string   `json:"ws_market_url"`
		Symbols     []string `json:"symbols"`
	} `json:"bingx"`

	State struct {
		Backend     string `json:"backend"`
		SQLitePath  string `json:"sqlite_path"`
		PostgresDSN string `json:"postgres_dsn"`
		RedisAddr   string `json:"redis_addr"`
		RedisTTL    string `json:"redis_ttl"`
	} `json:"state"`

	Replay struct {
		DSN   string   `json:"dsn"`
		Table string   `json:"table"`
		Speed *float64 `json:"speed"`
	} `json:"replay"`
}

func Default() *Config {
	return &Config{
		Mode:          ModeSandbox,
		LogLevel:      "info",
		LogFormat:     "console",
		Symbols:       []string{"BTC-USDT"},
		BaseSize:      fixed.MustParse("0.001"),
		RunDuration:   0,
		SignalsWindow: 20,
		Feed: FeedConfig{
			Interval: 500 * time.Millisecond,
			Mode:     "sine",
		},
		BingX: BingXConfig{
			RestURL: "https://open-api-vst.bingx.com",
			WSURL:   "wss://open-api-swap.bingx.com/swap-market",
		},
		State: StateConfig{
			Backend:    StateMemory,
			SQLitePath: "data/state.db",
			RedisTTL:   10 * time.Minute,
		},
		Replay: ReplayConfig{
			Table: "snapshots",
		},
		OpsAddr: "",
	}
}

// Load layers defaults, the secrets file, the per-mode json file and the environment, in that
// order. Both files live under dir and are optional. Variables from the secrets file never
// override variables already set in the environment.
func Load(dir string) (*Config, error) {
	if err := loadSecrets(filepath.Join(dir, "secrets.env")); err != nil {
		return nil, err
	}

	cfg := Default()
	cfg.Mode = Mode(strings.ToLower(getEnvAsString(ModeEnv, string(cfg.Mode))))

	if err := cfg.applyFile(filepath.Join(dir, "environments", string(cfg.Mode)+".json")); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("unable to read %s: %w", path, err)
	}

	var f fileConfig
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("unable to decode %s: %w", path, err)
	}

	setString(&c.LogLevel, f.LogLevel)
	setString(&c.LogFormat, f.LogFormat)
	setString(&c.OpsAddr, f.OpsAddr)
	if len(f.Symbols) > 0 {
		c.Symbols = f.Symbols
	}
	if len(f.BingX.Symbols) > 0 {
		c.Symbols = f.BingX.Symbols
	}
	if f.BaseSize != nil {
		c.BaseSize = *f.BaseSize
	}
	if f.SignalsWindow != nil {
		c.SignalsWindow = *f.SignalsWindow
	}

	setString(&c.Feed.Mode, f.Feed.Mode)
	setString(&c.BingX.RestURL, f.BingX.RestURL)
	setString(&c.BingX.WSURL, f.BingX.WSMarketURL)
	setString(&c.State.Backend, f.State.Backend)
	setString(&c.State.SQLitePath, f.State.SQLitePath)
	setString(&c.State.PostgresDSN, f.State.PostgresDSN)
	setString(&c.State.RedisAddr, f.State.RedisAddr)
	setString(&c.Replay.DSN, f.Replay.DSN)
	setString(&c.Replay.Table, f.Replay.Table)
	if f.Replay.Speed != nil {
		c.Replay.Speed = *f.Replay.Speed
	}

	for _, d := range []struct {
		dst *time.Duration
		val string
		key string
	}{
		{&c.RunDuration, f.RunDuration, "run_duration"},
		{&c.Feed.Interval, f.Feed.Interval, "feed.interval"},
		{&c.State.RedisTTL, f.State.RedisTTL, "state.redis_ttl"},
	} {
		if d.val == "" {
			continue
		}
		v, err := time.ParseDuration(d.val)
		if err != nil {
			return fmt.Errorf("%w: %s in %s: %v", ErrInvalidConfig, d.key, path, err)
		}
		*d.dst = v
	}

	return nil
}

func (c *Config) applyEnv() error {
	c.LogLevel = getEnvAsString("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnvAsString("LOG_FORMAT", c.LogFormat)
	c.Symbols = getEnvAsList("SYMBOLS", c.Symbols)
	c.RunDuration = getEnvAsDuration("RUN_DURATION", c.RunDuration)
	c.OpsAddr = getEnvAsString("OPS_ADDR", c.OpsAddr)
	c.SignalsWindow = getEnvAsInt("SIGNALS_WINDOW", c.SignalsWindow)

	if v := os.Getenv("BASE_SIZE"); v != "" {
		size, err := fixed.Parse(v)
		if err != nil {
			return fmt.Errorf("%w: BASE_SIZE: %v", ErrInvalidConfig, err)
		}
		c.BaseSize = size
	}

	c.Feed.Interval = getEnvAsDuration("FEED_INTERVAL", c.Feed.Interval)
	c.Feed.Mode = getEnvAsString("FEED_MODE", c.Feed.Mode)

	c.BingX.APIKey = getEnvAsString("BINGX_API_KEY", c.BingX.APIKey)
	c.BingX.APISecret = getEnvAsString("BINGX_API_SECRET", c.BingX.APISecret)
	c.BingX.RestURL = getEnvAsString("BINGX_REST_URL", c.BingX.RestURL)
	c.BingX.WSURL = getEnvAsString("BINGX_WS_URL", c.BingX.WSURL)

	c.State.Backend = getEnvAsString("STATE_BACKEND", c.State.Backend)
	c.State.SQLitePath = getEnvAsString("STATE_SQLITE_PATH", c.State.SQLitePath)
	c.State.PostgresDSN = getEnvAsString("STATE_POSTGRES_DSN", c.State.PostgresDSN)
	c.State.RedisAddr = getEnvAsString("STATE_REDIS_ADDR", c.State.RedisAddr)
	c.State.RedisTTL = getEnvAsDuration("STATE_REDIS_TTL", c.State.RedisTTL)

	c.Replay.DSN = getEnvAsString("REPLAY_DSN", c.Replay.DSN)
	c.Replay.Table = getEnvAsString("REPLAY_TABLE", c.Replay.Table)
	c.Replay.Speed = getEnvAsFloat("REPLAY_SPEED", c.Replay.Speed)

	return nil
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Mode {
	case ModeSandbox, ModeLive, ModeReplay:
	default:
		errs = append(errs, fmt.Errorf("unknown mode %q", c.Mode))
	}

	if len(c.Symbols) == 0 {
		errs = append(errs, errors.New("no symbols"))
	}
	if !c.BaseSize.IsPos() {
		errs = append(errs, fmt.Errorf("base size must be positive, got %s", c.BaseSize))
	}
	if c.Feed.Interval <= 0 {
		errs = append(errs, fmt.Errorf("feed interval must be positive, got %s", c.Feed.Interval))
	}
	if c.SignalsWindow < 0 {
		errs = append(errs, fmt.Errorf("signals window must not be negative, got %d", c.SignalsWindow))
	}
	if c.RunDuration < 0 {
		errs = append(errs, fmt.Errorf("run duration must not be negative, got %s", c.RunDuration))
	}

	if c.Mode == ModeLive && (c.BingX.APIKey == "" || c.BingX.APISecret == "") {
		errs = append(errs, errors.New("live mode needs BINGX_API_KEY and BINGX_API_SECRET"))
	}
	if c.Mode == ModeReplay && (c.Replay.DSN == "" || c.Replay.Table == "") {
		errs = append(errs, errors.New("replay mode needs REPLAY_DSN and REPLAY_TABLE"))
	}

	switch c.State.Backend {
	case StateMemory:
	case StateSQLite:
		if c.State.SQLitePath == "" {
			errs = append(errs, errors.New("sqlite state backend needs STATE_SQLITE_PATH"))
		}
	case StatePostgres:
		if c.State.PostgresDSN == "" {
			errs = append(errs, errors.New("postgres state backend needs STATE_POSTGRES_DSN"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown state backend %q", c.State.Backend))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

func (c *Config) Production() bool {
	return c.LogFormat == "json"
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func getEnvAsString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations and plain integers, read as milliseconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms := getEnvAsInt(key, -1); ms >= 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
