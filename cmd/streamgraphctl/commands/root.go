// Package commands implements the streamgraphctl command tree. Every
// command talks to a running streamgraph process over its gRPC control plane.
package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/xiaonanln/streamgraph/config"
	"github.com/xiaonanln/streamgraph/streamapi"
)

// ServerEnvVar supplies the default of --server.
const ServerEnvVar = "STREAMGRAPH_SERVER"

const defaultTimeout = 10 * time.Second

var (
	okColor    = color.New(color.FgGreen)
	warnColor  = color.New(color.FgYellow)
	errColor   = color.New(color.FgRed, color.Bold)
	labelColor = color.New(color.FgCyan)
)

// options are the persistent flags shared by every command.
type options struct {
	server  string
	timeout time.Duration
	noColor bool
}

func defaultServer() string {
	if addr := os.Getenv(ServerEnvVar); addr != "" {
		return addr
	}
	return "localhost" + config.DefaultGRPCAddr
}

// NewRootCmd builds the streamgraphctl command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:   "streamgraphctl",
		Short: "streamgraphctl drives a running streamgraph explorer",
		Long: `streamgraphctl emits connection and close events, moves the time cursor
and inspects the recorded timelines of a streamgraph process over gRPC.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor {
				color.NoColor = true
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.server, "server", defaultServer(), "streamgraph gRPC address (default $"+ServerEnvVar+")")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", defaultTimeout, "Timeout of each request")
	rootCmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		newConnectCmd(opts),
		newDisconnectCmd(opts),
		newRangeCmd(opts),
		newStateCmd(opts),
		newTimelineCmd(opts),
		newWatchCmd(opts),
	)
	return rootCmd
}

// Execute runs the command tree on os.Args. It is called by main.main().
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		errColor.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withClient handles the common pattern of creating a client and a request
// context, and cleaning both up.
func withClient(ctx context.Context, opts *options, fn func(ctx context.Context, client *streamapi.Client) error) error {
	client, err := streamapi.Dial(opts.server)
	if err != nil {
		return fmt.Errorf("cannot connect to streamgraph at %s: %w", opts.server, err)
	}
	defer client.Close()

	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}
	return fn(ctx, client)
}

