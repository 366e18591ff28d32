package config

// Storage backends for the origin-shared scope.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

type StorageConfig interface {
	GetStorageBackend() string
	GetSQLitePath() string
	GetRedisAddr() string
	GetKeyPrefix() string
}

type Storage struct {
	Backend    string `yaml:"backend" env:"TABSESSION_STORAGE"`
	SQLitePath string `yaml:"sqlite_path" env:"TABSESSION_SQLITE_PATH"`
	RedisAddr  string `yaml:"redis_addr" env:"REDIS_ADDR"`
	KeyPrefix  string `yaml:"key_prefix" env:"TABSESSION_KEY_PREFIX"`
}

func (s *Storage) applyDefaults() {
	if s.Backend == "" {
		s.Backend = BackendSQLite
	}
	if s.SQLitePath == "" {
		s.SQLitePath = "./data/origin.db"
	}
	if s.RedisAddr == "" {
		s.RedisAddr = "localhost:6379"
	}
	if s.KeyPrefix == "" {
		s.KeyPrefix = "tabsession:"
	}
}
