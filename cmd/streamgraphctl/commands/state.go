package commands

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/dustin/go-humanize"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/xiaonanln/streamgraph/streamapi"
	sgerrors "github.com/xiaonanln/streamgraph/util/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func newStateCmd(opts *options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Show the latest render state",
		Long:  `Show the version, time range, cursor and the last value of every stream.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), opts, func(ctx context.Context, client *streamapi.Client) error {
				st, err := client.GetState(ctx)
				if err != nil {
					return sgerrors.Wrap("state", opts.server, err)
				}
				if asJSON {
					data, err := json.MarshalIndent(st, "", "  ")
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), string(data))
					return nil
				}
				writeState(cmd.OutOrStdout(), st, time.Now())
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the state as JSON")
	return cmd
}

// displayValue renders a raw JSON value: strings without quotes, everything
// else compact.
func displayValue(raw jsoniter.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := compactJSON(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

func compactJSON(w io.Writer, raw []byte) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func formatMillis(ms int64, now time.Time) string {
	t := time.UnixMilli(ms)
	return fmt.Sprintf("%s (%s)", t.Format("15:04:05.000"), humanize.RelTime(t, now, "ago", "from now"))
}

// writeState prints a summary of st.
func writeState(w io.Writer, st *streamapi.State, now time.Time) {
	labelColor.Fprint(w, "version:    ")
	fmt.Fprintf(w, "%d, published %s\n", st.Version, formatMillis(st.PublishedAt, now))

	labelColor.Fprint(w, "range:      ")
	if st.Range.Valid {
		fmt.Fprintf(w, "%s, %s..%s\n",
			time.Duration(st.Range.End-st.Range.Start)*time.Millisecond,
			time.UnixMilli(st.Range.Start).Format("15:04:05.000"),
			time.UnixMilli(st.Range.End).Format("15:04:05.000"))
	} else {
		warnColor.Fprintln(w, "empty")
	}

	labelColor.Fprint(w, "cursor:     ")
	if st.Current.Valid {
		fmt.Fprintf(w, "%.1f%% at %s\n", st.Current.CurrentPercent*100, time.UnixMilli(st.Current.Current).Format("15:04:05.000"))
	} else {
		warnColor.Fprintln(w, "none")
	}

	labelColor.Fprint(w, "disconnect: ")
	if st.DisconnectDisabled {
		warnColor.Fprintln(w, "disabled")
	} else {
		okColor.Fprintln(w, "enabled")
	}

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STREAM\tENTRIES\tLAST VALUE\tLAST AT")
	for _, name := range st.StreamNames() {
		entries := st.Timelines[name]
		if len(entries) == 0 {
			fmt.Fprintf(tw, "%s\t0\t-\t-\n", name)
			continue
		}
		last := entries[len(entries)-1]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", name, humanize.Comma(int64(len(entries))), displayValue(last.Value), formatMillis(last.Timestamp, now))
	}
	tw.Flush()
}

func newTimelineCmd(opts *options) *cobra.Command {
	var last int
	cmd := &cobra.Command{
		Use:   "timeline STREAM",
		Short: "List the recorded values of one stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), opts, func(ctx context.Context, client *streamapi.Client) error {
				st, err := client.GetState(ctx)
				if err != nil {
					return sgerrors.Wrap("timeline", opts.server, err)
				}
				return writeTimeline(cmd.OutOrStdout(), st, args[0], last, time.Now())
			})
		},
	}
	cmd.Flags().IntVar(&last, "last", 0, "Only show the newest N entries (0 shows all)")
	return cmd
}

// writeTimeline prints the entries of one stream, newest last.
func writeTimeline(w io.Writer, st *streamapi.State, name string, last int, now time.Time) error {
	entries, ok := st.Timelines[name]
	if !ok {
		if suggestion := suggestStream(name, st.StreamNames()); suggestion != "" {
			return fmt.Errorf("unknown stream %q, did you mean %q?", name, suggestion)
		}
		return fmt.Errorf("unknown stream %q", name)
	}
	if last > 0 && len(entries) > last {
		entries = entries[len(entries)-last:]
	}
	if len(entries) == 0 {
		warnColor.Fprintf(w, "%s has no entries\n", name)
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIMESTAMP\tAT\tVALUE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", e.Timestamp, formatMillis(e.Timestamp, now), displayValue(e.Value))
	}
	return tw.Flush()
}

// suggestStream returns the known stream closest to name, or "" when
// nothing is reasonably close.
func suggestStream(name string, known []string) string {
	type candidate struct {
		name string
		dist int
	}
	var candidates []candidate
	lower := strings.ToLower(name)
	for _, k := range known {
		d := levenshtein.ComputeDistance(lower, strings.ToLower(k))
		if d <= len(k)/2 {
			candidates = append(candidates, candidate{k, d})
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].dist < candidates[j].dist })
	return candidates[0].name
}
