package redwing

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// Config holds the configuration for the client.
// All fields are optional and have sensible defaults.
//
// Configuration can be built using the fluent builder pattern:
//
//	config := redwing.DefaultConfig().
//	    WithAddr("cache.example.com:6379").
//	    WithDB(2).
//	    WithDialTimeout(3 * time.Second).
//	    WithWriteQueueSize(8192)
//
//	client, err := redwing.NewClient(config)
type Config struct {
	// Addr is the host:port of the server.
	// Default: "localhost:6379"
	Addr string

	// DB is the database index selected right after connecting.
	// The SELECT command is pipelined ahead of any user command.
	// Default: 0
	DB int

	// DialTimeout bounds how long Connect waits for the TCP dial.
	// The context passed to Connect can cut it shorter.
	// Default: 5s
	DialTimeout time.Duration

	// WriteQueueSize is the capacity of the outgoing command queue.
	// Commands issued while the queue is full fail with ErrWriteQueueFull
	// instead of blocking the caller.
	// Default: 4096
	WriteQueueSize int

	// ReadBufferSize is the size of the socket read buffer in bytes.
	// Larger buffers cut syscalls when replies arrive in bursts.
	// Default: 64 KiB
	ReadBufferSize int

	// Logger receives connection lifecycle and protocol diagnostics.
	// Commands themselves are never logged.
	// If nil, logging is discarded.
	Logger logrus.FieldLogger

	// Observer for monitoring operations.
	// Allows tracking of queued commands, completions, and push traffic.
	// If nil, NoopObserver is used.
	Observer Observer
}

// DefaultConfig returns a Config with sensible defaults suitable for most
// use cases. The default configuration includes:
//   - Address: localhost:6379, database 0
//   - Dial timeout: 5 seconds
//   - Write queue: 4096 commands
//   - Read buffer: 64 KiB
//
// Example:
//
//	config := redwing.DefaultConfig()
//	client, err := redwing.NewClient(config)
func DefaultConfig() *Config {
	return &Config{
		Addr:           "localhost:6379",
		DialTimeout:    5 * time.Second,
		WriteQueueSize: 4096,
		ReadBufferSize: 64 * 1024,
		Observer:       &NoopObserver{},
	}
}

// WithAddr sets the host:port of the server.
//
// Example:
//
//	config := redwing.DefaultConfig().
//	    WithAddr("cache.example.com:6379")
func (c *Config) WithAddr(addr string) *Config {
	c.Addr = addr
	return c
}

// WithDB sets the database index selected on connect.
//
// Example:
//
//	config := redwing.DefaultConfig().
//	    WithDB(2)
func (c *Config) WithDB(db int) *Config {
	c.DB = db
	return c
}

// WithDialTimeout sets the TCP dial timeout for Connect.
//
// Example:
//
//	config := redwing.DefaultConfig().
//	    WithDialTimeout(3 * time.Second)
func (c *Config) WithDialTimeout(timeout time.Duration) *Config {
	c.DialTimeout = timeout
	return c
}

// WithWriteQueueSize sets the capacity of the outgoing command queue.
// A full queue rejects commands with ErrWriteQueueFull rather than block.
//
// Example:
//
//	config := redwing.DefaultConfig().
//	    WithWriteQueueSize(8192)
func (c *Config) WithWriteQueueSize(size int) *Config {
	c.WriteQueueSize = size
	return c
}

// WithReadBufferSize sets the socket read buffer size in bytes.
//
// Example:
//
//	config := redwing.DefaultConfig().
//	    WithReadBufferSize(128 * 1024)
func (c *Config) WithReadBufferSize(size int) *Config {
	c.ReadBufferSize = size
	return c
}

// WithLogger sets the logger for connection lifecycle diagnostics.
//
// Example:
//
//	log := logrus.New()
//	log.SetLevel(logrus.DebugLevel)
//	config := redwing.DefaultConfig().
//	    WithLogger(log)
func (c *Config) WithLogger(logger logrus.FieldLogger) *Config {
	c.Logger = logger
	return c
}

// WithObserver sets a custom observer for monitoring client operations.
// Observers can track queue depth, command latency, and push traffic.
//
// Example:
//
//	type LogObserver struct{ redwing.NoopObserver }
//
//	func (o *LogObserver) OnCommandComplete(cmd string, d time.Duration, err error) {
//	    log.Printf("[%s] %v err=%v", cmd, d, err)
//	}
//
//	config := redwing.DefaultConfig().
//	    WithObserver(&LogObserver{})
func (c *Config) WithObserver(observer Observer) *Config {
	c.Observer = observer
	return c
}

// Validate validates the configuration and sets defaults for missing values.
// This is called automatically by NewClient.
//
// Returns an error if the configuration is invalid (e.g., missing address).
func (c *Config) Validate() error {
	if c.Addr == "" {
		return ErrInvalidConfig
	}
	if c.DB < 0 {
		return ErrInvalidConfig
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.WriteQueueSize <= 0 {
		c.WriteQueueSize = 4096
	}
	if c.ReadBufferSize <= 0 {
		c.ReadBufferSize = 64 * 1024
	}
	if c.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		c.Logger = l
	}
	if c.Observer == nil {
		c.Observer = &NoopObserver{}
	}
	return nil
}
