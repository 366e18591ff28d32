package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"

	"github.com/jrsteele09/go-tab-session/internal/errors"
)

type Config interface {
	StorageConfig
	LockoutConfig
	AuthorityConfig
	LoggingConfig
}

type LoggingConfig interface {
	GetLogLevel() string
	GetAppName() string
}

type mainConfig struct {
	Storage   Storage   `yaml:"storage"`
	Lockout   Lockout   `yaml:"lockout"`
	Authority Authority `yaml:"authority"`
	Logging   Logging   `yaml:"logging"`
}

// Logging holds log output settings.
type Logging struct {
	Level   string `yaml:"level" env:"LOG_LEVEL"`
	AppName string `yaml:"app_name" env:"APP_NAME"`
}

var _ Config = (*mainConfig)(nil)

// New returns a configuration read from the environment only.
func New() (Config, error) {
	return Load("")
}

// Load reads an optional YAML file and then applies environment overrides.
// Unset values fall back to defaults.
func Load(path string) (Config, error) {
	c := &mainConfig{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "[config.Load] read %s", path)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, errors.Wrapf(err, "[config.Load] parse %s", path)
		}
	}

	if err := envdecode.Decode(c); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, errors.Wrapf(err, "[config.Load] environment")
	}

	c.applyDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *mainConfig) applyDefaults() {
	c.Storage.applyDefaults()
	c.Lockout.applyDefaults()
	c.Authority.applyDefaults()
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.AppName == "" {
		c.Logging.AppName = "Session Ctl"
	}
}

func (c *mainConfig) validate() error {
	switch c.Storage.Backend {
	case BackendMemory, BackendSQLite, BackendRedis:
	default:
		return fmt.Errorf("%w: unknown storage backend %q", errors.ErrInvalidConfig, c.Storage.Backend)
	}
	if c.Lockout.Threshold < 1 {
		return fmt.Errorf("%w: lockout threshold must be at least 1", errors.ErrInvalidConfig)
	}
	if c.Lockout.Cooldown <= 0 {
		return fmt.Errorf("%w: lockout cooldown must be positive", errors.ErrInvalidConfig)
	}
	return nil
}

func (c *mainConfig) GetStorageBackend() string { return c.Storage.Backend }
func (c *mainConfig) GetSQLitePath() string     { return c.Storage.SQLitePath }
func (c *mainConfig) GetRedisAddr() string      { return c.Storage.RedisAddr }
func (c *mainConfig) GetKeyPrefix() string      { return c.Storage.KeyPrefix }

func (c *mainConfig) GetLockoutThreshold() int { return c.Lockout.Threshold }

func (c *mainConfig) GetLockoutCooldown() time.Duration { return c.Lockout.Cooldown }

func (c *mainConfig) GetAuthorityURL() string                { return c.Authority.URL }
func (c *mainConfig) GetAuthorityTimeout() time.Duration     { return c.Authority.Timeout }
func (c *mainConfig) GetAuthorityRequestsPerSecond() float64 { return c.Authority.RequestsPerSecond }
func (c *mainConfig) GetLocationURL() string                 { return c.Authority.LocationURL }
func (c *mainConfig) GetReverseGeocodeURL() string           { return c.Authority.ReverseGeocodeURL }

func (c *mainConfig) GetLogLevel() string { return c.Logging.Level }
func (c *mainConfig) GetAppName() string  { return c.Logging.AppName }
