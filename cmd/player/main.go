package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GeoffClements/slimproto/internal/config"
	"github.com/GeoffClements/slimproto/internal/metrics"
	"github.com/GeoffClements/slimproto/internal/session"
	"github.com/GeoffClements/slimproto/internal/slimproto"
	"github.com/GeoffClements/slimproto/internal/transport"
)

const (
	defaultConfigPath = "configs/player.yaml"
	serviceName       = "slimproto-player"
	serviceVersion    = "1.0.0"

	reconnectDelay = 5 * time.Second
)

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Logging)

	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)
	logger.Info("Configuration loaded",
		slog.String("server_host", cfg.Server.Host),
		slog.Int("server_port", cfg.Server.Port),
		slog.String("device_name", cfg.Device.Name),
		slog.Int("heartbeat_interval", cfg.Session.HeartbeatInterval),
		slog.Int("handshake_timeout", cfg.Session.HandshakeTimeout),
		slog.String("log_level", cfg.Logging.Level),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var appMetrics *metrics.Metrics
	if cfg.Metrics.Enabled {
		appMetrics = metrics.New()
		go serveMetrics(cfg.Metrics, logger)
		logger.Info("Prometheus metrics initialized",
			slog.String("address", fmt.Sprintf("%s:%d", cfg.Metrics.Address, cfg.Metrics.Port)),
		)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	}()

	runPlayer(ctx, cfg, logger, appMetrics)

	logger.Info("Service stopped")
}

// runPlayer dials the server and drives one session at a time, reconnecting
// after failures. A serv message from the server moves the player to another
// host; reconnection always starts a fresh engine.
func runPlayer(ctx context.Context, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) {
	host := cfg.Server.Host
	port := cfg.Server.Port
	name := cfg.Device.Name

	for ctx.Err() == nil {
		stream, err := transport.Dial(ctx, host, port)
		if err != nil {
			logger.Error("Failed to connect",
				slog.String("host", host),
				slog.String("error", err.Error()),
			)
			if !sleepCtx(ctx, reconnectDelay) {
				return
			}
			continue
		}
		logger.Info("Connected to server", slog.String("host", host))

		engine := session.New(stream, session.Config{
			DeviceID:          uint8(cfg.Device.DeviceID),
			Revision:          uint8(cfg.Device.Revision),
			MAC:               cfg.Device.GetMAC(),
			Capabilities:      buildCapabilities(cfg.Device),
			HeartbeatInterval: cfg.Session.GetHeartbeatInterval(),
			HandshakeTimeout:  cfg.Session.GetHandshakeTimeout(),
			ReadBufferSize:    cfg.Session.ReadBufferSize,
			AudioWindow:       cfg.Session.AudioWindow,
			Logger:            logger,
			Metrics:           m,
			Sink:              &loggingSink{logger: logger},
		})

		msgsDone := make(chan struct{})
		go func() {
			defer close(msgsDone)
			for msg := range engine.Messages() {
				switch sm := msg.(type) {
				case slimproto.QueryName:
					if err := engine.Send(&slimproto.DeviceName{Name: name}); err != nil {
						return
					}
				case slimproto.SetName:
					logger.Info("Server renamed device", slog.String("name", sm.Name))
					name = sm.Name
				case slimproto.ChangeServer:
					logger.Info("Server handover requested",
						slog.String("new_server", sm.IP.String()),
					)
					host = sm.IP.String()
					port = slimproto.DefaultPort
				case slimproto.Gain:
					logger.Debug("Gain changed",
						slog.Float64("left", sm.Left),
						slog.Float64("right", sm.Right),
					)
				}
			}
		}()

		if err := engine.Run(ctx); err != nil {
			logger.Error("Session ended", slog.String("error", err.Error()))
		}
		<-msgsDone

		if !sleepCtx(ctx, reconnectDelay) {
			return
		}
	}
}

func buildCapabilities(dev config.DeviceConfig) slimproto.Capabilities {
	caps := slimproto.DefaultCapabilities()
	caps.AddName(dev.Name)
	for _, f := range dev.Formats {
		caps.Add(slimproto.Capability(f))
	}
	if dev.MaxSampleRate > 0 {
		caps.Add(slimproto.MaxSampleRate(uint32(dev.MaxSampleRate)))
	}
	return caps
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// serveMetrics exposes the Prometheus endpoint and a liveness check.
func serveMetrics(cfg config.MetricsConfig, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	addr := net.JoinHostPort(cfg.Address, fmt.Sprintf("%d", cfg.Port))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("Metrics server failed", slog.String("error", err.Error()))
	}
}

// loggingSink stands in for a real audio pipeline: it counts forwarded
// bytes per stream. Decoding and output are outside this program.
type loggingSink struct {
	logger *slog.Logger
	bytes  uint64
}

func (s *loggingSink) StreamStart(cmd *slimproto.Stream) {
	s.bytes = 0
	s.logger.Info("Audio stream started",
		slog.String("format", cmd.Format.String()),
		slog.Uint64("sample_rate", uint64(cmd.SampleRate)),
		slog.Int("channels", int(cmd.Channels)),
	)
}

func (s *loggingSink) Write(p []byte) (int, error) {
	s.bytes += uint64(len(p))
	return len(p), nil
}

func (s *loggingSink) StreamStop() {
	s.logger.Info("Audio stream stopped", slog.Uint64("bytes", s.bytes))
}

// initLogger creates and configures the structured logger based on configuration.
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
