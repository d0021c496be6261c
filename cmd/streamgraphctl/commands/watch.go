package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/spf13/cobra"

	"github.com/xiaonanln/streamgraph/streamapi"
	"github.com/xiaonanln/streamgraph/util/backoff"
	sgerrors "github.com/xiaonanln/streamgraph/util/errors"
)

const (
	watchSlots     = 60
	watchMsPerSlot = 1000
	watchRangeStep = 10.0
)

func newWatchCmd(opts *options) *cobra.Command {
	var plain bool
	var maxRetryDelay time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the render state live",
		Long: `Follow the render state in a terminal view. Keys: c connect, d disconnect,
left/right move the cursor, q quit. With --plain one line is printed per state.
The stream is re-established with exponential backoff when it breaks.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := streamapi.Dial(opts.server)
			if err != nil {
				return fmt.Errorf("cannot connect to streamgraph at %s: %w", opts.server, err)
			}
			defer client.Close()

			b := backoff.New(250*time.Millisecond, maxRetryDelay, 2)
			if plain {
				out := cmd.OutOrStdout()
				return watchLoop(cmd.Context(), client, b, func(st *streamapi.State) {
					fmt.Fprintln(out, summaryLine(st))
				}, func(err error, delay time.Duration) {
					warnColor.Fprintf(cmd.ErrOrStderr(), "watch stream broken: %v, retrying in %v\n", err, delay)
				})
			}
			return runWatchUI(cmd.Context(), opts, client, b)
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "Print one line per state instead of the terminal view")
	cmd.Flags().DurationVar(&maxRetryDelay, "max-retry-delay", 10*time.Second, "Upper bound of the reconnect backoff")
	return cmd
}

// watchLoop calls onState with every state streamed by client until ctx is
// done. A broken stream is retried after waiting on b; b is reset once a new
// stream delivers a state.
func watchLoop(ctx context.Context, client *streamapi.Client, b *backoff.Backoff, onState func(*streamapi.State), onRetry func(err error, delay time.Duration)) error {
	for {
		err := client.WatchState(ctx, func(st *streamapi.State) error {
			b.Reset()
			onState(st)
			return nil
		})
		if ctx.Err() != nil {
			return nil
		}
		if sgerrors.Permanent(err) {
			return sgerrors.Wrap("watch", client.Addr(), err)
		}
		if onRetry != nil {
			onRetry(err, b.CurrentDelay())
		}
		if err := b.Wait(ctx); err != nil {
			return nil
		}
	}
}

// summaryLine condenses st into one line.
func summaryLine(st *streamapi.State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "v%d", st.Version)
	for _, name := range st.StreamNames() {
		entries := st.Timelines[name]
		if len(entries) == 0 {
			continue
		}
		fmt.Fprintf(&b, " %s=%s", name, displayValue(entries[len(entries)-1].Value))
	}
	if st.Current.Valid {
		fmt.Fprintf(&b, " cursor=%.1f%%", st.Current.CurrentPercent*100)
	}
	return b.String()
}

// timelineStrip draws one character per slot of the window ending at end:
// a dot for slots holding at least one entry.
func timelineStrip(entries []streamapi.Entry, end int64, slots int, msPerSlot int64) string {
	marks := make([]rune, slots)
	for i := range marks {
		marks[i] = '·'
	}
	start := end - int64(slots)*msPerSlot
	for _, e := range entries {
		if e.Timestamp <= start || e.Timestamp > end {
			continue
		}
		slot := int((e.Timestamp - start - 1) / msPerSlot)
		if slot >= 0 && slot < slots {
			marks[slot] = '●'
		}
	}
	return string(marks)
}

// writeWatchView renders st with tview color tags.
func writeWatchView(w io.Writer, st *streamapi.State, now time.Time) {
	end := st.PublishedAt
	if st.Current.Valid {
		end = st.Current.Current
	}

	fmt.Fprintf(w, "[::b]version %d[-:-:-]  published %s\n", st.Version, humanize.RelTime(time.UnixMilli(st.PublishedAt), now, "ago", "from now"))
	if st.Current.Valid {
		fmt.Fprintf(w, "cursor [yellow]%5.1f%%[-]  window %s\n", st.Current.CurrentPercent*100,
			time.Duration(watchSlots*watchMsPerSlot)*time.Millisecond)
	} else {
		fmt.Fprintln(w, "cursor [gray]none[-]")
	}
	if st.DisconnectDisabled {
		fmt.Fprintln(w, "disconnect [gray]disabled[-]")
	} else {
		fmt.Fprintln(w, "disconnect [green]enabled[-]")
	}
	fmt.Fprintln(w)

	width := 0
	for _, name := range st.StreamNames() {
		if len(name) > width {
			width = len(name)
		}
	}
	for _, name := range st.StreamNames() {
		entries := st.Timelines[name]
		last := "-"
		if len(entries) > 0 {
			last = displayValue(entries[len(entries)-1].Value)
		}
		fmt.Fprintf(w, "[aqua]%-*s[-] [green]%s[-] %s\n", width, name,
			timelineStrip(entries, end, watchSlots, watchMsPerSlot), tview.Escape(last))
	}
}

// runWatchUI runs the terminal view until the user quits or ctx is done.
func runWatchUI(ctx context.Context, opts *options, client *streamapi.Client, b *backoff.Backoff) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	app := tview.NewApplication()
	body := tview.NewTextView().SetDynamicColors(true).SetWrap(false)
	body.SetBorder(true).SetTitle(" streamgraph " + opts.server + " ").SetTitleAlign(tview.AlignLeft)
	footer := tview.NewTextView().SetDynamicColors(true).
		SetText("[yellow]c[-] connect  [yellow]d[-] disconnect  [yellow]←/→[-] cursor  [yellow]q[-] quit")
	statusLine := tview.NewTextView().SetDynamicColors(true)

	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(body, 0, 1, false).
		AddItem(statusLine, 1, 0, false).
		AddItem(footer, 1, 0, false)

	var mu sync.Mutex
	var percent float64 = 100
	setStatus := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		app.QueueUpdateDraw(func() { statusLine.SetText(msg) })
	}
	act := func(op string, call func(ctx context.Context) (uint64, error)) {
		go func() {
			reqCtx, reqCancel := context.WithTimeout(ctx, opts.timeout)
			defer reqCancel()
			if _, err := call(reqCtx); err != nil {
				setStatus("[red]%v[-]", sgerrors.Wrap(op, opts.server, err))
				return
			}
			setStatus("")
		}()
	}
	moveCursor := func(delta float64) {
		mu.Lock()
		percent = min(100, max(0, percent+delta))
		p := percent
		mu.Unlock()
		act("range", func(ctx context.Context) (uint64, error) { return client.SetRange(ctx, p) })
	}

	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyCtrlC, tcell.KeyEsc:
			app.Stop()
			return nil
		case tcell.KeyLeft:
			moveCursor(-watchRangeStep)
			return nil
		case tcell.KeyRight:
			moveCursor(watchRangeStep)
			return nil
		}
		switch event.Rune() {
		case 'q':
			app.Stop()
			return nil
		case 'c':
			act("connect", client.Connect)
			return nil
		case 'd':
			act("disconnect", client.Disconnect)
			return nil
		}
		return event
	})

	go func() {
		_ = watchLoop(ctx, client, b, func(st *streamapi.State) {
			var sb strings.Builder
			writeWatchView(&sb, st, time.Now())
			text := sb.String()
			if st.Current.Valid {
				mu.Lock()
				percent = st.Current.CurrentPercent * 100
				mu.Unlock()
			}
			app.QueueUpdateDraw(func() { body.SetText(text) })
		}, func(err error, delay time.Duration) {
			setStatus("[red]stream broken: %v[-], retrying in %v", err, delay)
		})
		app.Stop()
	}()

	return app.SetRoot(root, true).Run()
}
