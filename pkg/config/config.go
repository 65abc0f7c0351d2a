/*
Package config manages the TOML config of stationcode.

The file lives in the user config directory (see GetConfigDir) and is created
with defaults the first time it is needed. A file that does not fully decode
is salvaged section by section, keeping the defaults for whatever is broken:

	[normalize]
	preset = "default"
	fold_accents = true
	letters_only = true

	[allocate]
	sweep = "last"
	registry = ""

	[input]
	delimiter = "\t"
	header = true
	name_column = 0
	id_column = 1
	lat_column = 3
	lon_column = 4
	strict_columns = false
	on_invalid = "fail"

	[output]
	dir = "."
	codes_file = "codes.tsv"
	recoded_file = "recoded.tsv"
	mapping_file = "mapping.tsv"
	snapshot_file = "stations.msgpack"
	write_header = false

	[lookup]
	threshold = 0.7
	complete_limit = 10

Explicit [[normalize.rules]] tables replace the preset:

	[[normalize.rules]]
	old = "-"
	new = " "
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/railkit/stationcode/internal/utils"
	"github.com/railkit/stationcode/pkg/allocate"
	"github.com/railkit/stationcode/pkg/dataset"
	"github.com/railkit/stationcode/pkg/normalize"
)

// FileName is the config file name inside the config directory.
const FileName = "config.toml"

// Config holds the entire config structure
type Config struct {
	Normalize NormalizeConfig `toml:"normalize"`
	Allocate  AllocateConfig  `toml:"allocate"`
	Input     InputConfig     `toml:"input"`
	Output    OutputConfig    `toml:"output"`
	Lookup    LookupConfig    `toml:"lookup"`
}

// NormalizeConfig selects the name normalization rules.
type NormalizeConfig struct {
	Preset      string           `toml:"preset"`
	Rules       []normalize.Rule `toml:"rules,omitempty"`
	FoldAccents bool             `toml:"fold_accents"`
	LettersOnly bool             `toml:"letters_only"`
}

// AllocateConfig holds allocator options. An empty Registry keeps codes in
// memory for the run; a path persists them in SQLite.
type AllocateConfig struct {
	Sweep    string `toml:"sweep"`
	Registry string `toml:"registry"`
}

// InputConfig describes the layout of the station listing.
type InputConfig struct {
	Delimiter     string `toml:"delimiter"`
	Header        bool   `toml:"header"`
	NameColumn    int    `toml:"name_column"`
	IDColumn      int    `toml:"id_column"`
	LatColumn     int    `toml:"lat_column"`
	LonColumn     int    `toml:"lon_column"`
	StrictColumns bool   `toml:"strict_columns"`
	OnInvalid     string `toml:"on_invalid"`
}

// OutputConfig names the generated artifacts. Relative file names are
// resolved against Dir.
type OutputConfig struct {
	Dir          string `toml:"dir"`
	CodesFile    string `toml:"codes_file"`
	RecodedFile  string `toml:"recoded_file"`
	MappingFile  string `toml:"mapping_file"`
	SnapshotFile string `toml:"snapshot_file"`
	WriteHeader  bool   `toml:"write_header"`
}

// LookupConfig holds lookup options.
type LookupConfig struct {
	Threshold     float64 `toml:"threshold"`
	CompleteLimit int     `toml:"complete_limit"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	in := dataset.DefaultOptions()
	return &Config{
		Normalize: NormalizeConfig{
			Preset:      normalize.PresetDefault,
			FoldAccents: true,
			LettersOnly: true,
		},
		Allocate: AllocateConfig{
			Sweep: allocate.SweepLastWins.String(),
		},
		Input: InputConfig{
			Delimiter:  in.Delimiter,
			Header:     in.Header,
			NameColumn: in.NameColumn,
			IDColumn:   in.IDColumn,
			LatColumn:  in.LatColumn,
			LonColumn:  in.LonColumn,
			OnInvalid:  in.OnInvalid.String(),
		},
		Output: OutputConfig{
			Dir:          ".",
			CodesFile:    "codes.tsv",
			RecodedFile:  "recoded.tsv",
			MappingFile:  "mapping.tsv",
			SnapshotFile: "stations.msgpack",
		},
		Lookup: LookupConfig{
			Threshold:     0.70,
			CompleteLimit: 10,
		},
	}
}

// Validate checks every value that is interpreted later.
func (c *Config) Validate() error {
	if _, err := c.NormalizerOptions(); err != nil {
		return err
	}
	if _, err := allocate.ParseSweepPolicy(c.Allocate.Sweep); err != nil {
		return err
	}
	if _, err := c.DatasetOptions(); err != nil {
		return err
	}
	if c.Lookup.Threshold < 0 || c.Lookup.Threshold > 1 {
		return fmt.Errorf("lookup threshold %v is outside [0, 1]", c.Lookup.Threshold)
	}
	return nil
}

// NormalizerOptions converts the [normalize] section.
func (c *Config) NormalizerOptions() (normalize.Options, error) {
	rules := c.Normalize.Rules
	if len(rules) == 0 {
		var err error
		if rules, err = normalize.RulesForPreset(c.Normalize.Preset); err != nil {
			return normalize.Options{}, err
		}
	}
	return normalize.Options{
		Rules:       rules,
		FoldAccents: c.Normalize.FoldAccents,
		LettersOnly: c.Normalize.LettersOnly,
	}, nil
}

// SweepPolicy converts [allocate] sweep.
func (c *Config) SweepPolicy() (allocate.SweepPolicy, error) {
	return allocate.ParseSweepPolicy(c.Allocate.Sweep)
}

// DatasetOptions converts the [input] section.
func (c *Config) DatasetOptions() (dataset.Options, error) {
	policy, err := dataset.ParseInvalidPolicy(c.Input.OnInvalid)
	if err != nil {
		return dataset.Options{}, err
	}
	if c.Input.NameColumn < 0 || c.Input.IDColumn < 0 {
		return dataset.Options{}, fmt.Errorf("name_column and id_column must not be negative")
	}
	if c.Input.NameColumn == c.Input.IDColumn {
		return dataset.Options{}, fmt.Errorf("name_column and id_column are both %d", c.Input.NameColumn)
	}
	return dataset.Options{
		Delimiter:     c.Input.Delimiter,
		Header:        c.Input.Header,
		NameColumn:    c.Input.NameColumn,
		IDColumn:      c.Input.IDColumn,
		LatColumn:     c.Input.LatColumn,
		LonColumn:     c.Input.LonColumn,
		StrictColumns: c.Input.StrictColumns,
		OnInvalid:     policy,
	}, nil
}

// OutputPath resolves an artifact file name against the output directory.
func (c *Config) OutputPath(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Output.Dir, name)
}

// GetConfigDir returns the config directory with fallback priority:
// 1. $XDG_CONFIG_HOME/stationcode or ~/.config/stationcode
// 2. ~/Library/Application Support/stationcode (macOS)
// 3. Current executable dir
func GetConfigDir() (string, error) {
	primaryPath, err := utils.UserConfigDir()
	if err != nil {
		log.Errorf("Failed to get home directory: %v", err)
		return utils.GetExecutableDir()
	}

	var macOSPath string
	if homeDir, err := os.UserHomeDir(); err == nil {
		macOSPath = filepath.Join(homeDir, "Library", "Application Support", utils.AppName)
	}
	if dir := utils.ResolveDir(primaryPath, macOSPath); dir != "" {
		return dir, nil
	}

	execDir, err := utils.GetExecutableDir()
	if err != nil {
		log.Errorf("Failed to get executable directory: %v", err)
		return "", err
	}
	return execDir, nil
}

// GetDefaultConfigPath returns the default path for config.toml
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, FileName), nil
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from --config flag
// 2. Default path: [UserConfigDir]/stationcode/config.toml
// 3. Builtin defaults
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			config, err := LoadConfig(customConfigPath)
			if err != nil {
				log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
			} else {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return config, customConfigPath, nil
			}
		} else {
			log.Warnf("Custom config file not found at %s: %v. Trying default path...", customConfigPath, statErr)
		}
	}

	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
		return DefaultConfig(), "", nil
	}

	config, err := InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at default path %s: %v. Using builtin defaults...", defaultPath, err)
		return DefaultConfig(), "", nil
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return config, defaultPath, nil
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}

	return LoadConfig(configPath)
}

// LoadConfig loads from a TOML file and validates the result.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		config = tryPartialParse(configPath)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}
	return config, nil
}

// tryPartialParse salvages what it can from a file the typed decode rejected.
func tryPartialParse(configPath string) *Config {
	config := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config
	}

	if section, ok := utils.ExtractSection(tempConfig, "normalize"); ok {
		extractNormalizeConfig(section, &config.Normalize)
	}
	if section, ok := utils.ExtractSection(tempConfig, "allocate"); ok {
		extractAllocateConfig(section, &config.Allocate)
	}
	if section, ok := utils.ExtractSection(tempConfig, "input"); ok {
		extractInputConfig(section, &config.Input)
	}
	if section, ok := utils.ExtractSection(tempConfig, "output"); ok {
		extractOutputConfig(section, &config.Output)
	}
	if section, ok := utils.ExtractSection(tempConfig, "lookup"); ok {
		extractLookupConfig(section, &config.Lookup)
	}
	return config
}

func extractNormalizeConfig(data map[string]any, n *NormalizeConfig) {
	if val, ok := utils.ExtractString(data, "preset"); ok {
		n.Preset = val
	}
	if val, ok := utils.ExtractBool(data, "fold_accents"); ok {
		n.FoldAccents = val
	}
	if val, ok := utils.ExtractBool(data, "letters_only"); ok {
		n.LettersOnly = val
	}
	tables, ok := utils.ExtractTables(data, "rules")
	if !ok {
		return
	}
	rules := make([]normalize.Rule, 0, len(tables))
	for _, t := range tables {
		oldVal, okOld := utils.ExtractString(t, "old")
		newVal, okNew := utils.ExtractString(t, "new")
		if !okOld || !okNew {
			log.Warnf("Ignoring malformed normalize rule %v", t)
			continue
		}
		rules = append(rules, normalize.Rule{Old: oldVal, New: newVal})
	}
	n.Rules = rules
}

func extractAllocateConfig(data map[string]any, a *AllocateConfig) {
	if val, ok := utils.ExtractString(data, "sweep"); ok {
		a.Sweep = val
	}
	if val, ok := utils.ExtractString(data, "registry"); ok {
		a.Registry = val
	}
}

func extractInputConfig(data map[string]any, in *InputConfig) {
	if val, ok := utils.ExtractString(data, "delimiter"); ok {
		in.Delimiter = val
	}
	if val, ok := utils.ExtractBool(data, "header"); ok {
		in.Header = val
	}
	if val, ok := utils.ExtractInt64(data, "name_column"); ok {
		in.NameColumn = val
	}
	if val, ok := utils.ExtractInt64(data, "id_column"); ok {
		in.IDColumn = val
	}
	if val, ok := utils.ExtractInt64(data, "lat_column"); ok {
		in.LatColumn = val
	}
	if val, ok := utils.ExtractInt64(data, "lon_column"); ok {
		in.LonColumn = val
	}
	if val, ok := utils.ExtractBool(data, "strict_columns"); ok {
		in.StrictColumns = val
	}
	if val, ok := utils.ExtractString(data, "on_invalid"); ok {
		in.OnInvalid = val
	}
}

func extractOutputConfig(data map[string]any, out *OutputConfig) {
	if val, ok := utils.ExtractString(data, "dir"); ok {
		out.Dir = val
	}
	if val, ok := utils.ExtractString(data, "codes_file"); ok {
		out.CodesFile = val
	}
	if val, ok := utils.ExtractString(data, "recoded_file"); ok {
		out.RecodedFile = val
	}
	if val, ok := utils.ExtractString(data, "mapping_file"); ok {
		out.MappingFile = val
	}
	if val, ok := utils.ExtractString(data, "snapshot_file"); ok {
		out.SnapshotFile = val
	}
	if val, ok := utils.ExtractBool(data, "write_header"); ok {
		out.WriteHeader = val
	}
}

func extractLookupConfig(data map[string]any, l *LookupConfig) {
	if val, ok := utils.ExtractFloat(data, "threshold"); ok {
		l.Threshold = val
	}
	if val, ok := utils.ExtractInt64(data, "complete_limit"); ok {
		l.CompleteLimit = val
	}
}

// RebuildConfigFile force creates a new config.toml at path, or at the
// default location when path is empty.
func RebuildConfigFile(path string) (string, error) {
	if path == "" {
		var err error
		if path, err = GetDefaultConfigPath(); err != nil {
			return "", err
		}
	}
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return "", err
	}
	return path, SaveConfig(DefaultConfig(), path)
}

// GetActiveConfigPath returns the absolute path of loaded config file
func GetActiveConfigPath(configPath string) string {
	if configPath == "" {
		if defaultPath, err := GetDefaultConfigPath(); err == nil {
			return defaultPath
		}
		return "unknown"
	}
	return utils.GetAbsolutePath(configPath)
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}
