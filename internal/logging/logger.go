// Package logging holds the process-wide creaper logger. Sessions derive
// child loggers from Log; the CLI replaces it once the config is loaded.
package logging

import (
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Encodings accepted in Config.Format.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Config is the log block of creaper.yaml.
type Config struct {
	Level  string            `mapstructure:"level"`  // debug, info, warn or error
	Format string            `mapstructure:"format"` // console (default) or json
	Fields map[string]string `mapstructure:"fields"` // attached to every entry

	ToStdout bool `mapstructure:"to_stdout"`
	ToStderr bool `mapstructure:"to_stderr"`

	// rotated file output
	ToFile     bool   `mapstructure:"to_file"`
	FilePath   string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"` // days
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// DefaultConfig logs warnings and above to stderr, which keeps command
// output on stdout clean.
func DefaultConfig() Config {
	return Config{Level: "warn", Format: FormatConsole, ToStderr: true}
}

// Log is the shared logger. It is never nil.
var Log *zap.SugaredLogger

func encoder(format string) (zapcore.Encoder, error) {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "timestamp"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	switch format {
	case "", FormatConsole:
		return zapcore.NewConsoleEncoder(ec), nil
	case FormatJSON:
		return zapcore.NewJSONEncoder(ec), nil
	}
	return nil, fmt.Errorf("unknown log format %q", format)
}

// New builds a logger from cfg. The global Log is left alone. With no
// output enabled, entries go to stderr.
func New(cfg Config) (*zap.SugaredLogger, error) {
	enc, err := encoder(cfg.Format)
	if err != nil {
		return nil, err
	}
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.Set(cfg.Level); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
	}

	var sinks []zapcore.WriteSyncer
	if cfg.ToStdout {
		sinks = append(sinks, zapcore.Lock(os.Stdout))
	}
	if cfg.ToStderr {
		sinks = append(sinks, zapcore.Lock(os.Stderr))
	}
	if cfg.ToFile && cfg.FilePath != "" {
		sinks = append(sinks, zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}))
	}
	if len(sinks) == 0 {
		sinks = append(sinks, zapcore.Lock(os.Stderr))
	}

	cores := make([]zapcore.Core, 0, len(sinks))
	for _, w := range sinks {
		cores = append(cores, zapcore.NewCore(enc, w, level))
	}

	opts := []zap.Option{zap.AddCaller()}
	if len(cfg.Fields) > 0 {
		keys := make([]string, 0, len(cfg.Fields))
		for k := range cfg.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fields := make([]zap.Field, 0, len(keys))
		for _, k := range keys {
			fields = append(fields, zap.String(k, cfg.Fields[k]))
		}
		opts = append(opts, zap.Fields(fields...))
	}
	return zap.New(zapcore.NewTee(cores...), opts...).Sugar(), nil
}

// Init replaces Log. On error Log keeps its previous value.
func Init(cfg Config) error {
	l, err := New(cfg)
	if err != nil {
		return err
	}
	Log = l
	return nil
}

// Sync flushes Log.
func Sync() {
	if Log != nil {
		_ = Log.Sync()
	}
}

func init() {
	Log, _ = New(DefaultConfig())
}
