package log

import (
	"io"
	stdlog "log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds logger configuration.
type Config struct {
	Level       string     `mapstructure:"level"`
	Pretty      bool       `mapstructure:"pretty"`
	ServiceName string     `mapstructure:"service_name"`
	File        FileConfig `mapstructure:"file"`
}

// FileConfig enables a rotating log file next to stdout. An empty Path disables it.
type FileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

var (
	global  zerolog.Logger
	once    sync.Once
	closers []io.Closer
)

func init() {
	// Safe default before Init() is called.
	global = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// New creates a configured zerolog.Logger. The returned closer releases the
// log file, if any; it is nil when only stdout is used.
func New(cfg Config) (zerolog.Logger, io.Closer) {
	var w io.Writer = os.Stdout
	if cfg.Pretty {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	}

	var closer io.Closer
	if fw := newFileWriter(cfg.File); fw != nil {
		w = zerolog.MultiLevelWriter(w, fw)
		closer = fw
	}

	logger := zerolog.New(w).Level(parseLevel(cfg.Level)).With().Timestamp().Logger()

	if cfg.ServiceName != "" {
		logger = logger.With().Str(FieldService, cfg.ServiceName).Logger()
	}

	return logger, closer
}

// Init initialises the global logger. Call once at service startup.
// It also bridges stdlib log to zerolog so library log.Printf calls
// end up as structured JSON.
func Init(cfg Config) {
	once.Do(func() {
		var closer io.Closer
		global, closer = New(cfg)
		// The threshold lives in the global level so SetLevel can lower it.
		global = global.Level(zerolog.TraceLevel)
		zerolog.SetGlobalLevel(parseLevel(cfg.Level))
		if closer != nil {
			closers = append(closers, closer)
		}

		stdlog.SetFlags(0)
		stdlog.SetOutput(global.With().Str("source", "stdlog").Logger())
	})
}

// Close flushes and closes file outputs opened by Init.
func Close() error {
	var firstErr error
	for _, c := range closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	closers = nil
	return firstErr
}

// SetLevel changes the minimum level of every logger at runtime.
func SetLevel(level string) {
	zerolog.SetGlobalLevel(parseLevel(level))
}

// L returns the global logger.
func L() zerolog.Logger {
	return global
}

func newFileWriter(cfg FileConfig) *lumberjack.Logger {
	if cfg.Path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		stdlog.Printf("log file disabled: %v", err)
		return nil
	}

	maxSize := cfg.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 100
	}

	return &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    maxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
		LocalTime:  true,
	}
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}
