// Package cli provides a line based prompt over a station index for
// debugging lookups in real time.
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/railkit/stationcode/pkg/code"
	"github.com/railkit/stationcode/pkg/lookup"
)

var (
	codeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("75")).Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// InputHandler reads queries line by line and prints the matching stations.
//
// A line is read as, in order:
//
//	?PREFIX      name completion
//	LAT,LON      nearest station
//	123          encoded value
//	RAT          station code
//	anything     name lookup, exact or fuzzy
type InputHandler struct {
	index        *lookup.Index
	limit        int
	out          io.Writer
	requestCount int
}

// NewInputHandler creates a prompt printing to out. limit caps completions.
func NewInputHandler(index *lookup.Index, limit int, out io.Writer) *InputHandler {
	if limit < 1 {
		limit = 10
	}
	return &InputHandler{index: index, limit: limit, out: out}
}

// Start runs the prompt until in is exhausted.
func (h *InputHandler) Start(in io.Reader) error {
	fmt.Fprintln(h.out, "stationcode prompt")
	fmt.Fprintln(h.out, mutedStyle.Render("type a name, code, value, ?prefix or lat,lon (Ctrl+C to exit):"))

	reader := bufio.NewReader(in)
	for {
		fmt.Fprint(h.out, "> ")
		line, err := reader.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			h.handleInput(line)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(h.out)
				return nil
			}
			return err
		}
	}
}

// Requests returns how many queries were handled.
func (h *InputHandler) Requests() int {
	return h.requestCount
}

func (h *InputHandler) handleInput(line string) {
	h.requestCount++
	start := time.Now()
	defer func() {
		log.Debugf("Took %v for query '%s'", time.Since(start), line)
	}()

	switch {
	case strings.HasPrefix(line, "?"):
		h.complete(strings.TrimSpace(line[1:]))
	case strings.Contains(line, ","):
		h.nearest(line)
	case isNumber(line):
		v, err := strconv.ParseUint(line, 10, 16)
		if err != nil {
			fmt.Fprintf(h.out, "value out of range: %s\n", line)
			return
		}
		st, ok := h.index.ByValue(uint16(v))
		if !ok {
			fmt.Fprintf(h.out, "no station with value %d\n", v)
			return
		}
		h.print(st, "")
	default:
		if c, err := code.Parse(line); err == nil {
			if st, ok := h.index.ByCode(c); ok {
				h.print(st, "")
				return
			}
		}
		st, score, ok := h.index.Find(line)
		if !ok {
			fmt.Fprintf(h.out, "no station matches '%s'\n", line)
			return
		}
		h.print(st, fmt.Sprintf("score %.2f", score))
	}
}

func (h *InputHandler) complete(prefix string) {
	if prefix == "" {
		fmt.Fprintln(h.out, "empty prefix")
		return
	}
	found := h.index.Complete(prefix, h.limit)
	if len(found) == 0 {
		fmt.Fprintf(h.out, "no station starts with '%s'\n", prefix)
		return
	}
	fmt.Fprintf(h.out, "Found %d stations for prefix '%s':\n", len(found), prefix)
	for i, st := range found {
		fmt.Fprintf(h.out, "%2d. ", i+1)
		h.print(st, "")
	}
}

func (h *InputHandler) nearest(line string) {
	parts := strings.SplitN(line, ",", 2)
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lon, errLon := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errLat != nil || errLon != nil {
		fmt.Fprintf(h.out, "not a coordinate pair: %s\n", line)
		return
	}
	st, ok := h.index.Nearest(lat, lon)
	if !ok {
		fmt.Fprintln(h.out, "no station has coordinates")
		return
	}
	h.print(st, "")
}

func (h *InputHandler) print(st lookup.Station, note string) {
	line := fmt.Sprintf("%s %5d  %-40s %s", codeStyle.Render(string(st.Code)), st.Code.Encode(), st.Name, mutedStyle.Render(st.SourceID))
	if note != "" {
		line += "  " + mutedStyle.Render(note)
	}
	fmt.Fprintln(h.out, line)
}

func isNumber(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
