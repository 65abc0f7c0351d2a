// Package registry stores the codes handed out by the allocator, in memory
// or in a SQLite database that survives between runs.
package registry

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/railkit/stationcode/pkg/code"
)

var (
	// ErrCodeTaken is returned when inserting a code that is already assigned.
	ErrCodeTaken = errors.New("code already assigned")
	// ErrSourceAssigned is returned when a source id already holds a code.
	ErrSourceAssigned = errors.New("source already has a code")
	// ErrNotOpen is returned by a SQLite registry used before Open.
	ErrNotOpen = errors.New("registry not opened")
)

// Entry is one code assignment.
type Entry struct {
	Code     code.Code
	SourceID string
}

// Registry is a two-way code <-> source id mapping that only grows.
type Registry interface {
	Contains(c code.Code) (bool, error)
	Insert(c code.Code, sourceID string) error
	// SourceOf returns the source id holding c.
	SourceOf(c code.Code) (string, bool, error)
	// CodeOf returns the code held by sourceID.
	CodeOf(sourceID string) (code.Code, bool, error)
	// Entries lists assignments in insertion order.
	Entries() ([]Entry, error)
	Len() (int, error)
}

// Memory is an in-memory Registry.
type Memory struct {
	bySource map[string]code.Code
	byCode   map[code.Code]string
	order    []code.Code
}

var _ Registry = (*Memory)(nil)

// NewMemory creates an empty in-memory registry.
func NewMemory() *Memory {
	return &Memory{
		bySource: make(map[string]code.Code),
		byCode:   make(map[code.Code]string),
	}
}

func (m *Memory) Contains(c code.Code) (bool, error) {
	_, ok := m.byCode[c]
	return ok, nil
}

func (m *Memory) Insert(c code.Code, sourceID string) error {
	if !c.Valid() {
		return fmt.Errorf("%w: %q", code.ErrInvalidCode, string(c))
	}
	if owner, ok := m.byCode[c]; ok {
		return fmt.Errorf("%w: %s belongs to %s", ErrCodeTaken, c, owner)
	}
	if held, ok := m.bySource[sourceID]; ok {
		return fmt.Errorf("%w: %s holds %s", ErrSourceAssigned, sourceID, held)
	}
	m.byCode[c] = sourceID
	m.bySource[sourceID] = c
	m.order = append(m.order, c)
	return nil
}

func (m *Memory) SourceOf(c code.Code) (string, bool, error) {
	s, ok := m.byCode[c]
	return s, ok, nil
}

func (m *Memory) CodeOf(sourceID string) (code.Code, bool, error) {
	c, ok := m.bySource[sourceID]
	return c, ok, nil
}

func (m *Memory) Entries() ([]Entry, error) {
	out := make([]Entry, len(m.order))
	for i, c := range m.order {
		out[i] = Entry{Code: c, SourceID: m.byCode[c]}
	}
	return out, nil
}

func (m *Memory) Len() (int, error) {
	return len(m.order), nil
}

// LoadMapping seeds r from a "code<TAB>source_id" mapping, the format
// written by export.WriteMapping. Blank lines and pairs reg already holds
// are skipped; it returns the number of codes inserted.
func LoadMapping(r io.Reader, reg Registry) (int, error) {
	scanner := bufio.NewScanner(r)
	n, line := 0, 0
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		fields := strings.Split(text, "\t")
		if len(fields) < 2 {
			return n, fmt.Errorf("mapping line %d: expected code and source id, got %q", line, text)
		}
		c, err := code.Parse(fields[0])
		if err != nil {
			return n, fmt.Errorf("mapping line %d: %w", line, err)
		}
		if held, ok, err := reg.SourceOf(c); err != nil {
			return n, err
		} else if ok && held == fields[1] {
			continue
		}
		if err := reg.Insert(c, fields[1]); err != nil {
			return n, fmt.Errorf("mapping line %d: %w", line, err)
		}
		n++
	}
	if err := scanner.Err(); err != nil {
		return n, fmt.Errorf("reading mapping: %w", err)
	}
	return n, nil
}
