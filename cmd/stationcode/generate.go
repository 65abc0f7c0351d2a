package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/railkit/stationcode/internal/utils"
	"github.com/railkit/stationcode/pkg/allocate"
	"github.com/railkit/stationcode/pkg/dataset"
	"github.com/railkit/stationcode/pkg/export"
	"github.com/railkit/stationcode/pkg/lookup"
	"github.com/railkit/stationcode/pkg/normalize"
	"github.com/railkit/stationcode/pkg/pipeline"
	"github.com/railkit/stationcode/pkg/registry"
	"github.com/spf13/cobra"
)

type generateOptions struct {
	registry string
	seed     string
	out      string
	sweep    string
	report   bool
}

func newGenerateCmd(a *app) *cobra.Command {
	var opts generateOptions

	cmd := &cobra.Command{
		Use:   "generate <listing>",
		Short: "Allocate codes for a station listing and write the artifacts",
		Long: `Read a delimited station listing, allocate a code for every distinct
source id in listing order, and write codes, recoded listing, mapping and
lookup snapshot into the output directory.

With --registry the codes are kept in a SQLite database and reused by the
next run, so published codes never move.`,
		Example: `  stationcode generate stations.tsv
  stationcode generate --out build/ --registry codes.db --report stations.tsv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.generate(cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.registry, "registry", "", "SQLite registry path (default from config, empty: in memory)")
	cmd.Flags().StringVar(&opts.seed, "seed", "", "mapping file (code<TAB>source_id) to reserve before allocating")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "output directory (default from config)")
	cmd.Flags().StringVar(&opts.sweep, "sweep", "", "sweep policy: last or first (default from config)")
	cmd.Flags().BoolVar(&opts.report, "report", false, "print a table of every assignment")

	_ = cmd.RegisterFlagCompletionFunc("sweep", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"last", "first"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func (a *app) generate(w io.Writer, input string, opts generateOptions) error {
	cfg := *a.cfg
	if opts.out != "" {
		cfg.Output.Dir = opts.out
	}
	if opts.registry != "" {
		cfg.Allocate.Registry = opts.registry
	}
	if opts.sweep != "" {
		cfg.Allocate.Sweep = opts.sweep
	}

	policy, err := cfg.SweepPolicy()
	if err != nil {
		return err
	}
	normOpts, err := cfg.NormalizerOptions()
	if err != nil {
		return err
	}
	dsOpts, err := cfg.DatasetOptions()
	if err != nil {
		return err
	}

	ds, err := dataset.ReadFile(input, dsOpts)
	if err != nil {
		return err
	}
	if len(ds.Skipped) > 0 {
		log.Warnf("Skipped %d invalid rows of %s", len(ds.Skipped), input)
	}

	store, closeStore, err := openRegistry(cfg.Allocate.Registry)
	if err != nil {
		return err
	}
	defer closeStore()

	if opts.seed != "" {
		if err := seedRegistry(store, opts.seed); err != nil {
			return err
		}
	}

	runner := pipeline.New(normalize.New(normOpts), store, allocate.New(store, allocate.WithSweepPolicy(policy)))
	res, err := runner.Run(ds.Entities())
	if err != nil {
		return err
	}

	artifacts := []struct {
		name  string
		write func(io.Writer) error
	}{
		{cfg.Output.CodesFile, func(w io.Writer) error { return export.WriteCodes(w, res) }},
		{cfg.Output.RecodedFile, func(w io.Writer) error { return export.WriteRecoded(w, ds, res, cfg.Output.WriteHeader) }},
		{cfg.Output.MappingFile, func(w io.Writer) error { return export.WriteMapping(w, res) }},
		{cfg.Output.SnapshotFile, func(w io.Writer) error { return lookup.New(lookup.FromResult(res)).Save(w) }},
	}
	for _, art := range artifacts {
		if art.name == "" {
			continue
		}
		if err := writeArtifact(cfg.OutputPath(art.name), art.write); err != nil {
			return err
		}
	}

	if opts.report {
		export.WriteReport(w, res)
	}

	log.Info("codes generated",
		"stations", res.Stats.Entities,
		"rows", len(ds.Rows),
		"existing", res.Stats.ByStage[allocate.StageExisting],
		"registered", len(res.Registry),
		"out", cfg.Output.Dir)
	return nil
}

// openRegistry returns an in-memory registry for an empty path, a SQLite
// one otherwise.
func openRegistry(path string) (registry.Registry, func(), error) {
	if path == "" {
		return registry.NewMemory(), func() {}, nil
	}
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return nil, nil, err
	}
	store := registry.NewSQLite()
	if err := store.Open(path); err != nil {
		return nil, nil, err
	}
	if runs, err := store.RunCount(); err == nil {
		log.Debugf("Registry %s at run %d (%s)", path, runs, store.RunID())
	}
	return store, func() {
		if err := store.Close(); err != nil {
			log.Errorf("Closing registry: %v", err)
		}
	}, nil
}

func seedRegistry(store registry.Registry, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open seed mapping: %w", err)
	}
	defer f.Close()

	n, err := registry.LoadMapping(f, store)
	if err != nil {
		return fmt.Errorf("failed to seed registry from %s: %w", path, err)
	}
	log.Infof("Reserved %d codes from %s", n, path)
	return nil
}

func writeArtifact(path string, write func(io.Writer) error) error {
	f, err := utils.CreateFile(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	log.Debugf("Wrote %s", path)
	return f.Close()
}
