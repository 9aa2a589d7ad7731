package main

import (
	"context"
	"net/http"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"

	"github.com/birbparty/redwing"
	"github.com/birbparty/redwing/telemetry"
)

var (
	// Connection target
	addr string
	db   int

	// Timeouts
	dialTimeout time.Duration
	waitTimeout time.Duration

	// Telemetry
	logLevel    string
	metricsAddr string
	otelExport  bool
)

// envDefaults supplies flag defaults from the environment so scripted
// callers can skip the flags entirely
type envDefaults struct {
	Addr        string        `env:"REDWING_ADDR, default=localhost:6379"`
	DB          int           `env:"REDWING_DB, default=0"`
	DialTimeout time.Duration `env:"REDWING_DIAL_TIMEOUT, default=5s"`
	WaitTimeout time.Duration `env:"REDWING_WAIT_TIMEOUT, default=10s"`
	LogLevel    string        `env:"REDWING_LOG_LEVEL, default=warn"`
}

var rootCmd = &cobra.Command{
	Use:   "redwing-cli",
	Short: "Command line client for RESP key-value servers",
	Long: `redwing-cli issues commands against a RESP key-value server through
the redwing client library. Every invocation opens one pipelined
connection, runs its command, and closes.

The connection target can be set with --addr or the REDWING_ADDR
environment variable.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		tcfg, err := telemetry.NewConfigFromEnv(cmd.Context())
		if err != nil {
			return err
		}
		tcfg.LogLevel = logLevel
		if !otelExport {
			tcfg.EnableTracing = false
			tcfg.EnableMetrics = false
		}
		if err := telemetry.Init(tcfg); err != nil {
			return err
		}

		if metricsAddr != "" {
			go serveMetrics(metricsAddr)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(ctx); err != nil {
			telemetry.L().WithError(err).Warn("telemetry shutdown failed")
		}
	},
}

func init() {
	defaults := envDefaults{}
	if err := envconfig.Process(context.Background(), &defaults); err != nil {
		cobra.CheckErr(err)
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&addr, "addr", "a", defaults.Addr, "server address (host:port)")
	flags.IntVarP(&db, "db", "n", defaults.DB, "database selected after connect")
	flags.DurationVar(&dialTimeout, "dial-timeout", defaults.DialTimeout, "TCP connect timeout")
	flags.DurationVar(&waitTimeout, "timeout", defaults.WaitTimeout, "how long to wait for a reply")
	flags.StringVar(&logLevel, "log-level", defaults.LogLevel, "log level (debug, info, warn, error)")
	flags.StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")
	flags.BoolVar(&otelExport, "otel", false, "export traces and metrics over OTLP")

	rootCmd.AddCommand(pingCmd, getCmd, setCmd, delCmd, incrCmd,
		publishCmd, subscribeCmd, blpopCmd, infoCmd, benchCmd)
}

// clientConfig builds the client configuration from the shared flags
func clientConfig(extra ...redwing.Observer) *redwing.Config {
	observers := []redwing.Observer{telemetry.NewObserver()}
	if otelExport {
		observers = append(observers, telemetry.NewTracingObserver())
	}
	observers = append(observers, extra...)

	return redwing.DefaultConfig().
		WithAddr(addr).
		WithDB(db).
		WithDialTimeout(dialTimeout).
		WithLogger(telemetry.L()).
		WithObserver(redwing.NewCompositeObserver(observers...))
}

// newClient connects a client with the shared flags applied
func newClient(ctx context.Context, extra ...redwing.Observer) (*redwing.Client, error) {
	return connect(ctx, clientConfig(extra...))
}

func connect(ctx context.Context, cfg *redwing.Config) (*redwing.Client, error) {
	client, err := redwing.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", telemetry.PrometheusHandler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		telemetry.L().WithError(err).Warn("metrics server stopped")
	}
}

// opCtx bounds one command round trip
func opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), waitTimeout)
}
