package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/railkit/stationcode/internal/utils"
	"github.com/railkit/stationcode/pkg/code"
	"github.com/railkit/stationcode/pkg/lookup"
	"github.com/spf13/cobra"
)

type lookupOptions struct {
	snapshot  string
	threshold float64
	limit     int
}

func (o *lookupOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.snapshot, "snapshot", "s", "", "station snapshot (default from config)")
}

func newEncodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "encode <code>...",
		Short: "Print the integer value of station codes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				c, err := code.Parse(strings.ToUpper(arg))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", c, c.Encode())
			}
			return nil
		},
	}
}

func newDecodeCmd(a *app) *cobra.Command {
	var opts lookupOptions

	cmd := &cobra.Command{
		Use:   "decode <value>...",
		Short: "Print the station code of integer values",
		Long: `Print the code encoded by each value. When a snapshot is available the
station holding the code is printed too.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var idx *lookup.Index
			if path := a.snapshotPath(opts.snapshot); utils.FileExists(path) {
				var err error
				if idx, err = a.loadIndex(path, 0); err != nil {
					return err
				}
			} else if opts.snapshot != "" {
				return fmt.Errorf("snapshot %s not found", opts.snapshot)
			}

			out := cmd.OutOrStdout()
			for _, arg := range args {
				v, err := strconv.ParseUint(arg, 10, 16)
				if err != nil {
					return fmt.Errorf("%w: %s", code.ErrInvalidValue, arg)
				}
				c, err := code.Decode(uint16(v))
				if err != nil {
					return err
				}
				if idx != nil {
					if st, ok := idx.ByCode(c); ok {
						printStation(out, st, "")
						continue
					}
				}
				fmt.Fprintf(out, "%s\t%d\n", c, v)
			}
			return nil
		},
	}
	opts.register(cmd)
	return cmd
}

func newFindCmd(a *app) *cobra.Command {
	var opts lookupOptions

	cmd := &cobra.Command{
		Use:   "find <name>",
		Short: "Find a station by name, tolerating typos",
		Long: `Find the station whose name or alias best matches the query. An exact,
case-insensitive match wins; otherwise the closest name is returned when its
similarity reaches the threshold.`,
		Example: `  stationcode find roma tiburtna
  stationcode find --threshold 0.9 "BOLOGNA C.LE"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := a.loadIndex(a.snapshotPath(opts.snapshot), opts.threshold)
			if err != nil {
				return err
			}
			name := strings.Join(args, " ")
			st, score, ok := idx.Find(name)
			if !ok {
				return fmt.Errorf("no station matches %q (best score %.2f)", name, score)
			}
			printStation(cmd.OutOrStdout(), st, fmt.Sprintf("%.2f", score))
			return nil
		},
	}
	opts.register(cmd)
	cmd.Flags().Float64VarP(&opts.threshold, "threshold", "t", 0, "minimum similarity in (0, 1] (default from config)")
	return cmd
}

func newCompleteCmd(a *app) *cobra.Command {
	var opts lookupOptions

	cmd := &cobra.Command{
		Use:   "complete <prefix>",
		Short: "List stations whose name starts with prefix",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := a.loadIndex(a.snapshotPath(opts.snapshot), 0)
			if err != nil {
				return err
			}
			limit := opts.limit
			if limit < 1 {
				limit = a.cfg.Lookup.CompleteLimit
			}
			prefix := strings.Join(args, " ")
			found := idx.Complete(prefix, limit)
			if len(found) == 0 {
				return fmt.Errorf("no station starts with %q", prefix)
			}
			for _, st := range found {
				printStation(cmd.OutOrStdout(), st, "")
			}
			return nil
		},
	}
	opts.register(cmd)
	cmd.Flags().IntVarP(&opts.limit, "limit", "l", 0, "number of stations to return (default from config)")
	return cmd
}

func newNearestCmd(a *app) *cobra.Command {
	var opts lookupOptions

	cmd := &cobra.Command{
		Use:   "nearest <lat> <lon>",
		Short: "Find the station closest to a position",
		Example: `  stationcode nearest 41.9 12.5
  stationcode nearest -- -33.87 151.21`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lat, errLat := strconv.ParseFloat(args[0], 64)
			lon, errLon := strconv.ParseFloat(args[1], 64)
			if err := errors.Join(errLat, errLon); err != nil {
				return fmt.Errorf("invalid coordinates: %w", err)
			}
			idx, err := a.loadIndex(a.snapshotPath(opts.snapshot), 0)
			if err != nil {
				return err
			}
			st, ok := idx.Nearest(lat, lon)
			if !ok {
				return errors.New("no station has coordinates")
			}
			log.Debug("nearest", "lat", lat, "lon", lon, "station", st.Code)
			printStation(cmd.OutOrStdout(), st, "")
			return nil
		},
	}
	opts.register(cmd)
	return cmd
}

// printStation writes "code<TAB>value<TAB>name<TAB>source_id", plus note
// when set.
func printStation(w io.Writer, st lookup.Station, note string) {
	line := fmt.Sprintf("%s\t%d\t%s\t%s", st.Code, st.Code.Encode(), st.Name, st.SourceID)
	if note != "" {
		line += "\t" + note
	}
	fmt.Fprintln(w, line)
}
