package config

import (
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	pkgconfig "github.com/rescuedash/shelter-dashboard/pkg/config"
	"github.com/rescuedash/shelter-dashboard/pkg/database"
	pkglog "github.com/rescuedash/shelter-dashboard/pkg/log"
	"github.com/rescuedash/shelter-dashboard/pkg/pubsub"
	"github.com/rescuedash/shelter-dashboard/pkg/storage"
)

// Search drivers.
const (
	SearchDriverElasticsearch = "elasticsearch"
	SearchDriverDatabase      = "database"
)

type Config struct {
	Server        ServerConfig
	Database      database.Config
	Search        SearchConfig
	Elasticsearch ElasticsearchConfig
	Events        pubsub.Config
	Storage       storage.Config
	Export        ExportConfig
	Indexer       IndexerConfig
	Log           LogConfig

	v *viper.Viper
}

type ServerConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type SearchConfig struct {
	Driver        string `mapstructure:"driver"` // "elasticsearch", "database"
	Limit         int    `mapstructure:"limit"`
	CacheCapacity int    `mapstructure:"cache_capacity"`
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Index     string   `mapstructure:"index"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
}

type ExportConfig struct {
	URLExpiry time.Duration `mapstructure:"url_expiry"`
}

type IndexerConfig struct {
	Backfill  bool `mapstructure:"backfill"`
	BatchSize int  `mapstructure:"batch_size"`
	Workers   int  `mapstructure:"workers"`
}

type LogConfig struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	Compress   bool `mapstructure:"compress"`
}

var envBindings = map[string]string{
	"server.port":                  "PORT",
	"database.driver":              "DB_DRIVER",
	"database.host":                "DB_HOST",
	"database.port":                "DB_PORT",
	"database.user":                "DB_USER",
	"database.password":            "DB_PASSWORD",
	"database.dbname":              "DB_NAME",
	"database.sslmode":             "DB_SSLMODE",
	"database.file_path":           "DB_FILE_PATH",
	"database.log_level":           "DB_LOG_LEVEL",
	"search.driver":                "SEARCH_DRIVER",
	"search.limit":                 "SEARCH_LIMIT",
	"search.cache_capacity":        "SEARCH_CACHE_CAPACITY",
	"elasticsearch.addresses":      "ES_ADDRESSES",
	"elasticsearch.index":          "ES_INDEX",
	"elasticsearch.username":       "ES_USERNAME",
	"elasticsearch.password":       "ES_PASSWORD",
	"events.driver":                "EVENTS_DRIVER",
	"events.redis.address":         "REDIS_ADDRESS",
	"events.redis.password":        "REDIS_PASSWORD",
	"events.kafka.brokers":         "KAFKA_BROKERS",
	"storage.driver":               "STORAGE_DRIVER",
	"storage.local.base_path":      "STORAGE_LOCAL_PATH",
	"storage.s3.endpoint":          "S3_ENDPOINT",
	"storage.s3.region":            "S3_REGION",
	"storage.s3.bucket":            "S3_BUCKET",
	"storage.s3.access_key_id":     "S3_ACCESS_KEY_ID",
	"storage.s3.secret_access_key": "S3_SECRET_ACCESS_KEY",
	"indexer.backfill":             "INDEXER_BACKFILL",
	"log.level":                    "LOG_LEVEL",
	"log.file":                     "LOG_FILE",
}

// Load reads the configuration from <configPath>/config.yaml, .env and the
// environment.
func Load(configPath string) (*Config, error) {
	v, err := pkgconfig.Load(configPath, "config")
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.shutdown_timeout", "5s")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "shelter")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.file_path", "./data/shelter.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60)
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("search.driver", SearchDriverDatabase)
	v.SetDefault("search.limit", 100)
	v.SetDefault("search.cache_capacity", 50)
	v.SetDefault("elasticsearch.addresses", []string{"http://localhost:9200"})
	v.SetDefault("elasticsearch.index", "shelter-outcomes")
	v.SetDefault("events.driver", "none")
	v.SetDefault("events.redis.address", "localhost:6379")
	v.SetDefault("events.redis.pool_size", 10)
	v.SetDefault("events.redis.read_timeout", "3s")
	v.SetDefault("events.redis.write_timeout", "3s")
	v.SetDefault("events.kafka.brokers", "localhost:9092")
	v.SetDefault("events.kafka.group_id", "shelter-indexer")
	v.SetDefault("events.kafka.partitions", 4)
	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.local.base_path", "./data/archive")
	v.SetDefault("storage.local.url_prefix", "/files")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("export.url_expiry", "15m")
	v.SetDefault("indexer.backfill", false)
	v.SetDefault("indexer.batch_size", 500)
	v.SetDefault("indexer.workers", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)

	// Bind environment variables
	if err := pkgconfig.BindEnvs(v, envBindings); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.v = v

	return &cfg, nil
}

// Watch calls onChange with the re-read configuration whenever the config
// file changes. It reports false when no config file was loaded.
func (c *Config) Watch(onChange func(*Config, error)) bool {
	if c.v == nil || c.v.ConfigFileUsed() == "" {
		return false
	}

	c.v.OnConfigChange(func(e fsnotify.Event) {
		if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			return
		}
		var next Config
		if err := c.v.Unmarshal(&next); err != nil {
			onChange(nil, err)
			return
		}
		next.v = c.v
		onChange(&next, nil)
	})
	c.v.WatchConfig()
	return true
}

// LoggerConfig converts the log section into the logger configuration.
func (c *Config) LoggerConfig(serviceName string) pkglog.Config {
	return pkglog.Config{
		Level:       c.Log.Level,
		Pretty:      c.Log.Pretty || c.Log.Level == "debug",
		ServiceName: serviceName,
		File: pkglog.FileConfig{
			Path:       c.Log.File,
			MaxSizeMB:  c.Log.MaxSizeMB,
			MaxBackups: c.Log.MaxBackups,
			MaxAgeDays: c.Log.MaxAgeDays,
			Compress:   c.Log.Compress,
		},
	}
}
