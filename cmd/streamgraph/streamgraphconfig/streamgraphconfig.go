// Package streamgraphconfig handles command-line flags and config file
// loading for the streamgraph process, returning a validated config.Config.
package streamgraphconfig

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/xiaonanln/streamgraph/config"
)

// ConfigEnvVar supplies the default of --config.
const ConfigEnvVar = "STREAMGRAPH_CONFIG"

// Loader handles parsing of command-line flags and config file loading.
// It can be instantiated with a custom FlagSet for testing.
type Loader struct {
	fs           *flag.FlagSet
	configPath   *string
	httpAddr     *string
	grpcAddr     *string
	tickInterval *time.Duration
	maxHistory   *int
	msPerSlot    *int64
	logLevel     *string
	graph        *string
}

// NewLoader creates a new Loader with flags registered on the provided FlagSet.
// If fs is nil, the default flag.CommandLine is used.
func NewLoader(fs *flag.FlagSet) *Loader {
	if fs == nil {
		fs = flag.CommandLine
	}
	l := &Loader{fs: fs}
	l.configPath = fs.String("config", os.Getenv(ConfigEnvVar), "Path to YAML config file (default $"+ConfigEnvVar+")")
	l.httpAddr = fs.String("http-addr", config.DefaultHTTPAddr, "HTTP address for the web UI, SSE, WebSocket and metrics (cannot be used with --config)")
	l.grpcAddr = fs.String("grpc-addr", config.DefaultGRPCAddr, "gRPC control plane address, empty to disable (cannot be used with --config)")
	l.tickInterval = fs.Duration("tick-interval", config.DefaultTickInterval, "Interval of the ticks stream while connections are open (cannot be used with --config)")
	l.maxHistory = fs.Int("max-history", 0, "Entries kept per timeline, 0 keeps every entry (cannot be used with --config)")
	l.msPerSlot = fs.Int64("ms-per-slot", config.DefaultMsPerSlot, "Milliseconds covered by one marker slot (cannot be used with --config)")
	l.logLevel = fs.String("log-level", config.DefaultLogLevel, "Log level: DEBUG, INFO, WARN or ERROR (cannot be used with --config)")
	l.graph = fs.String("graph", "", "YAML file replacing the default graph layout (cannot be used with --config)")
	return l
}

// Load parses the flags (if not already parsed) and returns a Config.
// When --config is provided, other flags are forbidden.
// When --config is not provided, CLI flags are used.
// Returns an error if configuration is invalid.
func (l *Loader) Load(args []string) (*config.Config, error) {
	if !l.fs.Parsed() {
		if err := l.fs.Parse(args); err != nil {
			return nil, fmt.Errorf("failed to parse flags: %w", err)
		}
	}

	if *l.configPath != "" {
		// Config file mode: only --config is allowed
		var conflict string
		l.fs.Visit(func(f *flag.Flag) {
			if f.Name != "config" && conflict == "" {
				conflict = f.Name
			}
		})
		if conflict != "" {
			return nil, fmt.Errorf("--%s cannot be used with --config; configure in config file instead", conflict)
		}

		cfg, err := config.LoadConfig(*l.configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		return cfg, nil
	}

	// CLI-only mode: use flag values
	cfg := config.Default()
	cfg.LogLevel = *l.logLevel
	cfg.Server.HTTPAddr = *l.httpAddr
	cfg.Server.GRPCAddr = *l.grpcAddr
	cfg.Explorer.MaxHistory = *l.maxHistory
	cfg.Explorer.MsPerSlot = *l.msPerSlot
	cfg.Explorer.Graph = *l.graph
	cfg.Explorer.TickInterval = *l.tickInterval

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Get is a convenience function that creates a Loader with default flags,
// parses os.Args[1:], and returns the Config.
// It panics on error.
func Get() *config.Config {
	loader := NewLoader(nil)
	cfg, err := loader.Load(os.Args[1:])
	if err != nil {
		panic(fmt.Sprintf("Failed to load streamgraph config: %v", err))
	}
	return cfg
}
