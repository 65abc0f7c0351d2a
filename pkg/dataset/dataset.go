// Package dataset reads delimited station listings and groups their rows
// into entities, one per source id.
package dataset

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/railkit/stationcode/pkg/normalize"
)

// InvalidPolicy decides what happens to rows that fail validation.
type InvalidPolicy int

const (
	// FailOnInvalid aborts the read, reporting every bad row.
	FailOnInvalid InvalidPolicy = iota
	// SkipInvalid logs bad rows and leaves them out.
	SkipInvalid
)

// ParseInvalidPolicy maps "fail" and "skip" to a policy.
func ParseInvalidPolicy(s string) (InvalidPolicy, error) {
	switch s {
	case "", "fail":
		return FailOnInvalid, nil
	case "skip":
		return SkipInvalid, nil
	default:
		return FailOnInvalid, fmt.Errorf("unknown on_invalid policy %q", s)
	}
}

func (p InvalidPolicy) String() string {
	if p == SkipInvalid {
		return "skip"
	}
	return "fail"
}

// Options controls how input is split and validated.
type Options struct {
	Delimiter  string
	Header     bool
	NameColumn int
	IDColumn   int
	// LatColumn and LonColumn are -1 when the input has no coordinates.
	LatColumn     int
	LonColumn     int
	StrictColumns bool
	OnInvalid     InvalidPolicy
}

// DefaultOptions matches the station listing layout: tab separated, a
// header line, name then id, coordinates in columns 3 and 4.
func DefaultOptions() Options {
	return Options{
		Delimiter:  "\t",
		Header:     true,
		NameColumn: 0,
		IDColumn:   1,
		LatColumn:  3,
		LonColumn:  4,
		OnInvalid:  FailOnInvalid,
	}
}

// RowError reports a rejected input line.
type RowError struct {
	Line   int
	Reason string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// Row is one accepted input line.
type Row struct {
	Line   int
	Raw    string
	Fields []string
}

// Entity is a source id with its canonical name.
type Entity struct {
	SourceID string
	Name     string
	// Aliases holds the other spellings seen for SourceID.
	Aliases   []string
	Lat, Lon  float64
	HasCoords bool
}

// Dataset holds the accepted rows of one input in file order.
type Dataset struct {
	Header    string
	HasHeader bool
	Rows      []Row
	Skipped   []*RowError
	opts      Options
}

// ReadFile reads the dataset at path.
func ReadFile(path string, opts Options) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()
	return Read(f, opts)
}

// Read parses r line by line. Trailing carriage returns are stripped.
// Under FailOnInvalid every rejected row is reported in a joined error.
func Read(r io.Reader, opts Options) (*Dataset, error) {
	if opts.Delimiter == "" {
		opts.Delimiter = "\t"
	}
	if opts.NameColumn < 0 || opts.IDColumn < 0 {
		return nil, fmt.Errorf("name and id columns must be set (got %d, %d)", opts.NameColumn, opts.IDColumn)
	}
	required := max(opts.NameColumn, opts.IDColumn) + 1

	ds := &Dataset{opts: opts}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var rejected []error
	line, width := 0, 0
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r")

		if line == 1 && opts.Header {
			ds.Header, ds.HasHeader = text, true
			continue
		}
		if text == "" {
			continue
		}

		fields := strings.Split(text, opts.Delimiter)
		if reason := validate(fields, required, width, opts); reason != "" {
			rowErr := &RowError{Line: line, Reason: reason}
			if opts.OnInvalid == SkipInvalid {
				log.Warn("skipping row", "line", line, "reason", reason)
				ds.Skipped = append(ds.Skipped, rowErr)
				continue
			}
			rejected = append(rejected, rowErr)
			continue
		}

		// the first accepted row fixes the width
		if width == 0 {
			width = len(fields)
		}
		ds.Rows = append(ds.Rows, Row{Line: line, Raw: text, Fields: fields})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	if len(rejected) > 0 {
		return nil, errors.Join(rejected...)
	}

	log.Debug("dataset read", "rows", len(ds.Rows), "skipped", len(ds.Skipped), "header", ds.HasHeader)
	return ds, nil
}

func validate(fields []string, required, width int, opts Options) string {
	if len(fields) < required {
		return fmt.Sprintf("expected at least %d columns, got %d", required, len(fields))
	}
	if opts.StrictColumns && width > 0 && len(fields) != width {
		return fmt.Sprintf("expected %d columns, got %d", width, len(fields))
	}
	name := fields[opts.NameColumn]
	if strings.TrimSpace(name) == "" {
		return "empty name"
	}
	if len(normalize.Tokens(name)) == 0 {
		return "name has no letters A-Z"
	}
	if strings.TrimSpace(fields[opts.IDColumn]) == "" {
		return "empty id"
	}
	return ""
}

// Options returns the options the dataset was read with.
func (d *Dataset) Options() Options {
	return d.opts
}

// Name returns the name column of row.
func (d *Dataset) Name(row Row) string {
	return row.Fields[d.opts.NameColumn]
}

// SourceID returns the id column of row.
func (d *Dataset) SourceID(row Row) string {
	return row.Fields[d.opts.IDColumn]
}

// Entities groups rows by source id in order of first appearance. The
// longest name wins; on a tie the earlier spelling stays. Coordinates come
// from the first row of the group that carries them.
func (d *Dataset) Entities() []Entity {
	index := make(map[string]int)
	var out []Entity

	for _, row := range d.Rows {
		id, name := d.SourceID(row), d.Name(row)
		i, seen := index[id]
		if !seen {
			index[id] = len(out)
			out = append(out, Entity{SourceID: id, Name: name})
			i = len(out) - 1
		} else if name != out[i].Name {
			if utf8.RuneCountInString(name) > utf8.RuneCountInString(out[i].Name) {
				out[i].Name, name = name, out[i].Name
			}
			if !slices.Contains(out[i].Aliases, name) {
				out[i].Aliases = append(out[i].Aliases, name)
			}
		}

		if !out[i].HasCoords {
			if lat, lon, ok := d.coords(row); ok {
				out[i].Lat, out[i].Lon, out[i].HasCoords = lat, lon, true
			}
		}
	}
	return out
}

func (d *Dataset) coords(row Row) (float64, float64, bool) {
	latCol, lonCol := d.opts.LatColumn, d.opts.LonColumn
	if latCol < 0 || lonCol < 0 || latCol >= len(row.Fields) || lonCol >= len(row.Fields) {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(row.Fields[latCol]), 64)
	if err != nil {
		return 0, 0, false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(row.Fields[lonCol]), 64)
	if err != nil {
		return 0, 0, false
	}
	return lat, lon, true
}
