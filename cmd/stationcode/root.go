package main

import (
	"github.com/charmbracelet/log"
	"github.com/railkit/stationcode/internal/logger"
	"github.com/railkit/stationcode/pkg/config"
	"github.com/railkit/stationcode/pkg/lookup"
	"github.com/spf13/cobra"
)

// app carries what the persistent flags resolve to. Each command tree gets
// its own, so tests can build as many as they like.
type app struct {
	cfgFile string
	debug   bool

	cfg     *config.Config
	cfgPath string
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   AppName,
		Short: "Allocate and look up three-letter station codes",
		Long: `stationcode assigns a unique three-letter code and a compact integer to
every station of a listing, writes the recoded listing, and answers lookups
by code, value, name, prefix or position.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger.Setup(a.debug)
			cfg, path, err := config.LoadConfigWithPriority(a.cfgFile)
			if err != nil {
				return err
			}
			a.cfg, a.cfgPath = cfg, path
			log.Debugf("Using config file: (%s)", config.GetActiveConfigPath(path))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: [UserConfigDir]/stationcode/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&a.debug, "debug", "d", false, "Toggle debug mode")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newGenerateCmd(a))
	rootCmd.AddCommand(newEncodeCmd())
	rootCmd.AddCommand(newDecodeCmd(a))
	rootCmd.AddCommand(newFindCmd(a))
	rootCmd.AddCommand(newCompleteCmd(a))
	rootCmd.AddCommand(newNearestCmd(a))
	rootCmd.AddCommand(newServeCmd(a))
	rootCmd.AddCommand(newPromptCmd(a))
	rootCmd.AddCommand(newConfigCmd(a))

	return rootCmd
}

// snapshotPath returns flagValue, or the configured snapshot file.
func (a *app) snapshotPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return a.cfg.OutputPath(a.cfg.Output.SnapshotFile)
}

// loadIndex reads the station snapshot with the configured threshold.
func (a *app) loadIndex(path string, threshold float64) (*lookup.Index, error) {
	if threshold <= 0 {
		threshold = a.cfg.Lookup.Threshold
	}
	idx, err := lookup.LoadFile(path, lookup.WithThreshold(threshold))
	if err != nil {
		return nil, err
	}
	log.Debug("snapshot loaded", "path", path, "stations", idx.Len(), "threshold", threshold)
	return idx, nil
}
