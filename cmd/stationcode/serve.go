package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/railkit/stationcode/internal/cli"
	"github.com/railkit/stationcode/internal/server"
	"github.com/railkit/stationcode/internal/utils"
	"github.com/railkit/stationcode/pkg/lookup"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		opts  lookupOptions
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Answer msgpack lookup requests on stdin/stdout",
		Long: `Start the msgpack IPC server. Requests are read from stdin and one
response per request is written to stdout; logs go to stderr.

Without a snapshot only encode, decode and health are served. With --watch
the snapshot is reloaded whenever generate rewrites it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var idx *lookup.Index
			path := a.snapshotPath(opts.snapshot)
			switch {
			case utils.FileExists(path):
				var err error
				if idx, err = a.loadIndex(path, opts.threshold); err != nil {
					return err
				}
			case opts.snapshot != "":
				return fmt.Errorf("snapshot %s not found", opts.snapshot)
			default:
				log.Warnf("No snapshot at %s, serving codes only", path)
			}

			showStartupInfo(path, idx)
			srv := server.New(idx, cmd.InOrStdin(), cmd.OutOrStdout())

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			if watch {
				threshold := opts.threshold
				if threshold <= 0 {
					threshold = a.cfg.Lookup.Threshold
				}
				go func() {
					if err := server.WatchSnapshot(ctx, srv, path, lookup.WithThreshold(threshold)); err != nil {
						log.Errorf("Snapshot watcher stopped: %v", err)
					}
				}()
			}

			if err := srv.Start(ctx); err != nil {
				return fmt.Errorf("server stopped: %w", err)
			}
			log.Debugf("Served %d requests", srv.Served())
			return nil
		},
	}
	opts.register(cmd)
	cmd.Flags().Float64VarP(&opts.threshold, "threshold", "t", 0, "minimum similarity for find (default from config)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "reload the snapshot when it changes")
	return cmd
}

func newPromptCmd(a *app) *cobra.Command {
	var opts lookupOptions

	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Run an interactive lookup prompt -- useful for debugging",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			idx, err := a.loadIndex(a.snapshotPath(opts.snapshot), opts.threshold)
			if err != nil {
				return err
			}
			limit := opts.limit
			if limit < 1 {
				limit = a.cfg.Lookup.CompleteLimit
			}
			log.SetReportTimestamp(false)
			log.Debug("Prompt info:", "stations", idx.Len(), "limit", limit, "threshold", idx.Threshold())

			h := cli.NewInputHandler(idx, limit, cmd.OutOrStdout())
			return h.Start(cmd.InOrStdin())
		},
	}
	opts.register(cmd)
	cmd.Flags().Float64VarP(&opts.threshold, "threshold", "t", 0, "minimum similarity for name lookups (default from config)")
	cmd.Flags().IntVarP(&opts.limit, "limit", "l", 0, "number of completions to show (default from config)")
	return cmd
}

// showStartupInfo displays some basic info about the server on stderr.
func showStartupInfo(snapshot string, idx *lookup.Index) {
	stations := 0
	if idx != nil {
		stations = idx.Len()
	}
	log.Debug("===========")
	log.Debugf("Version: %s", Version)
	log.Debugf("Process ID: [ %d ]", os.Getpid())
	log.Debugf("snapshot: ( %s ), %d stations", snapshot, stations)
	log.Debug("status: ready")
	log.Debug("===========")
}
