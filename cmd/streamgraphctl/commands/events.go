package commands

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/xiaonanln/streamgraph/streamapi"
	sgerrors "github.com/xiaonanln/streamgraph/util/errors"
	"github.com/xiaonanln/streamgraph/util/workerpool"
)

// burstOptions repeat an event.
type burstOptions struct {
	count    int
	parallel int
}

func (b *burstOptions) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&b.count, "count", "n", 1, "Number of events to emit")
	cmd.Flags().IntVarP(&b.parallel, "parallel", "p", 1, "Number of events in flight at once")
}

func newConnectCmd(opts *options) *cobra.Command {
	burst := &burstOptions{}
	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Open connections",
		Long:  `Emit one connection event per --count, like clicking "connect" in the web UI.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBurst(cmd, opts, burst, "connect", (*streamapi.Client).Connect)
		},
	}
	burst.register(cmd)
	return cmd
}

func newDisconnectCmd(opts *options) *cobra.Command {
	burst := &burstOptions{}
	cmd := &cobra.Command{
		Use:   "disconnect",
		Short: "Close connections",
		Long: `Emit one close event per --count, like clicking "disconnect" in the web UI.
Closing more connections than are open is allowed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBurst(cmd, opts, burst, "disconnect", (*streamapi.Client).Disconnect)
		},
	}
	burst.register(cmd)
	return cmd
}

// runBurst emits burst.count events through a worker pool and reports the
// highest state version any of them produced.
func runBurst(cmd *cobra.Command, opts *options, burst *burstOptions, op string, call func(*streamapi.Client, context.Context) (uint64, error)) error {
	if burst.count < 1 {
		return fmt.Errorf("--count must be at least 1, got %d", burst.count)
	}
	return withClient(cmd.Context(), opts, func(ctx context.Context, client *streamapi.Client) error {
		var latest atomic.Uint64
		tasks := make([]workerpool.Task, burst.count)
		for i := range tasks {
			tasks[i] = func(ctx context.Context) error {
				v, err := call(client, ctx)
				if err != nil {
					return err
				}
				for {
					cur := latest.Load()
					if v <= cur || latest.CompareAndSwap(cur, v) {
						return nil
					}
				}
			}
		}

		pool := workerpool.New(ctx, burst.parallel)
		start := time.Now()
		results := pool.Run(tasks)
		elapsed := time.Since(start)

		failed := workerpool.Failed(results)
		out := cmd.OutOrStdout()
		if failed == 0 {
			okColor.Fprintf(out, "%s x%s", op, humanize.Comma(int64(burst.count)))
			fmt.Fprintf(out, " in %v, state version %d\n", elapsed.Round(time.Millisecond), latest.Load())
			return nil
		}

		for _, r := range results {
			if r.Err != nil {
				return sgerrors.Wrap(op, opts.server, fmt.Errorf("%d of %d events failed, first: %w", failed, burst.count, r.Err))
			}
		}
		return nil
	})
}

func newRangeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "range PERCENT",
		Short: "Move the time cursor",
		Long: `Move the time cursor to PERCENT (0 to 100) of the recorded time range, like dragging the web UI slider.

Arguments starting with "-" are read as flags; put them after "--".`,
		Example: `  streamgraphctl range 50
  streamgraphctl range -- -3`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			percent, err := strconv.ParseFloat(args[0], 64)
			if err != nil || math.IsNaN(percent) || percent < 0 || percent > 100 {
				return fmt.Errorf("invalid percent %q: want a number in [0, 100]", args[0])
			}
			return withClient(cmd.Context(), opts, func(ctx context.Context, client *streamapi.Client) error {
				version, err := client.SetRange(ctx, percent)
				if err != nil {
					return sgerrors.Wrap("range", opts.server, err)
				}
				okColor.Fprintf(cmd.OutOrStdout(), "range %s%%", strconv.FormatFloat(percent, 'f', -1, 64))
				fmt.Fprintf(cmd.OutOrStdout(), ", state version %d\n", version)
				return nil
			})
		},
	}
}
