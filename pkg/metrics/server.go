package metrics

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	fx "github.com/robotalks/us1.go/pkg/framework"
)

// Config defines the metrics endpoint.
type Config struct {
	// Addr is the listening address, empty disables the endpoint.
	Addr string
}

var defaultConfig = Config{
	Addr: ":9110",
}

func init() {
	if val, ok := os.LookupEnv("US1_METRICS_ADDR"); ok {
		defaultConfig.Addr = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Addr, "metrics-addr", defaultConfig.Addr, "Listening address of /metrics, empty to disable.")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Server serves /metrics.
type Server struct {
	Addr     string
	Gatherer prometheus.Gatherer
}

// NewServer creates a Server, or nil if it's disabled.
func (c *Config) NewServer(g prometheus.Gatherer) *Server {
	if c.Addr == "" {
		return nil
	}
	return &Server{Addr: c.Addr, Gatherer: g}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	return mux
}

// Name implements Named.
func (s *Server) Name() string {
	return "metrics"
}

// Run implements Runnable.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	glog.Infof("metrics on %s", ln.Addr())
	srv := &http.Server{Handler: s.Handler()}
	return fx.RunWithContextCloser(ctx, srv, func() error {
		if err := srv.Serve(ln); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
}
