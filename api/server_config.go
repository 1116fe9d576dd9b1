package api

import (
	"log/slog"
	"time"
)

// HTTPServerConfig contains all configuration parameters for the HTTP server.
type HTTPServerConfig struct {
	// ListenAddr is the address and port the HTTP server will listen on.
	ListenAddr string

	// MetricsAddr is the address and port for the metrics server.
	// If empty, metrics server will not be started.
	MetricsAddr string

	// EnablePprof mounts the pprof API under /debug.
	EnablePprof bool

	// AdminToken is the bearer token required on admin routes. Admin routes
	// are not served when it is empty.
	AdminToken string

	Log *slog.Logger

	// DrainDuration is how long the server keeps serving after /drain or a
	// shutdown signal, so load balancers can notice it is not ready.
	DrainDuration time.Duration

	// GracefulShutdownDuration bounds the wait for in-flight requests.
	GracefulShutdownDuration time.Duration

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}
