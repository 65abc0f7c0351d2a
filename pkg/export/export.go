// Package export writes the artifacts of an allocation run.
package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/railkit/stationcode/pkg/dataset"
	"github.com/railkit/stationcode/pkg/pipeline"
)

// WriteCodes writes "name<TAB>code<TAB>encoded" per assignment.
func WriteCodes(w io.Writer, res *pipeline.Result) error {
	bw := bufio.NewWriter(w)
	for _, a := range res.Assignments {
		if _, err := fmt.Fprintf(bw, "%s\t%s\t%d\n", a.Entity.Name, a.Code, a.Encoded); err != nil {
			return fmt.Errorf("failed to write codes: %w", err)
		}
	}
	return bw.Flush()
}

// WriteMapping writes "code<TAB>source_id" per assignment. The output can
// seed a registry through registry.LoadMapping.
func WriteMapping(w io.Writer, res *pipeline.Result) error {
	bw := bufio.NewWriter(w)
	for _, a := range res.Assignments {
		if _, err := fmt.Fprintf(bw, "%s\t%s\n", a.Code, a.Entity.SourceID); err != nil {
			return fmt.Errorf("failed to write mapping: %w", err)
		}
	}
	return bw.Flush()
}

// WriteRecoded re-emits the accepted rows of ds in their original order with
// the id column replaced by the assigned code. Every other column is written
// back unchanged.
func WriteRecoded(w io.Writer, ds *dataset.Dataset, res *pipeline.Result, header bool) error {
	mapping := res.Mapping()
	opts := ds.Options()
	bw := bufio.NewWriter(w)

	if header && ds.HasHeader {
		if _, err := fmt.Fprintln(bw, ds.Header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	fields := make([]string, 0, 8)
	for _, row := range ds.Rows {
		c, ok := mapping[ds.SourceID(row)]
		if !ok {
			return fmt.Errorf("line %d: no code for source %q", row.Line, ds.SourceID(row))
		}
		fields = append(fields[:0], row.Fields...)
		fields[opts.IDColumn] = string(c)
		if _, err := fmt.Fprintln(bw, strings.Join(fields, opts.Delimiter)); err != nil {
			return fmt.Errorf("failed to write row %d: %w", row.Line, err)
		}
	}
	return bw.Flush()
}

// WriteReport renders the run as a table for humans.
func WriteReport(w io.Writer, res *pipeline.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Name", "Tokens", "Code", "Encoded", "Stage"})

	for _, a := range res.Assignments {
		t.AppendRow(table.Row{a.Entity.Name, strings.Join(a.Tokens, " "), a.Code, a.Encoded, a.Stage})
	}
	t.AppendFooter(table.Row{"", "", "", "Total", len(res.Assignments)})
	t.Render()
}
