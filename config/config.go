// This package defines a common config struct which can be used by any subsystem within go-stanza.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	Debug           bool
	RootDir         string
	LoggingPrefix   string
	WorkerCount     int
	QueueSize       int
	MaxSkip         uint
	PreKeyBatchSize int
	writer          io.Writer
}

func (c Config) Logger(source string) *zap.SugaredLogger {
	var p string
	if source == "" {
		p = c.LoggingPrefix
	} else {
		p = fmt.Sprintf("%s:%s", c.LoggingPrefix, source)
	}

	level := zapcore.InfoLevel
	if c.Debug {
		level = zapcore.DebugLevel
	}
	opts := []zap.Option{
		zap.Fields(zap.String("source", p)),
	}

	de := zap.NewDevelopmentEncoderConfig()
	consoleCore := zapcore.NewCore(zapcore.NewConsoleEncoder(de), zapcore.AddSync(os.Stdout), level)
	if c.writer == nil {
		return zap.New(consoleCore, opts...).Sugar()
	}
	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(de), zapcore.AddSync(c.writer), level),
		consoleCore,
	)
	return zap.New(core, opts...).Sugar()
}

type Option func(*Config)

func WithDebug(d bool) Option {
	return func(c *Config) {
		c.Debug = d
	}
}

func WithRootDir(d string) Option {
	return func(c *Config) {
		c.RootDir = d
	}
}

func WithLoggingPrefix(p string) Option {
	return func(c *Config) {
		c.LoggingPrefix = p
	}
}

// Number of goroutines decrypting stanzas. Stanzas from the same chat always land on the same worker.
func WithWorkerCount(n int) Option {
	return func(c *Config) {
		c.WorkerCount = n
	}
}

func WithQueueSize(n int) Option {
	return func(c *Config) {
		c.QueueSize = n
	}
}

// Upper bound on message keys skipped ahead in a ratchet or sender-key chain.
func WithMaxSkip(n uint) Option {
	return func(c *Config) {
		c.MaxSkip = n
	}
}

func WithPreKeyBatchSize(n int) Option {
	return func(c *Config) {
		c.PreKeyBatchSize = n
	}
}

func NewConfig(opts ...Option) *Config {
	c := &Config{
		Debug:           os.Getenv("DEBUG") == "1",
		LoggingPrefix:   "",
		RootDir:         ".",
		WorkerCount:     4,
		QueueSize:       100,
		MaxSkip:         2000,
		PreKeyBatchSize: 30,

		writer: nil,
	}
	for _, o := range opts {
		o(c)
	}
	if c.WorkerCount < 1 {
		c.WorkerCount = 1
	}

	c.writer = &lumberjack.Logger{
		Filename:   filepath.Join(c.RootDir, "out.log"),
		MaxSize:    500, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
	return c
}
