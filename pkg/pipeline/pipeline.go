// Package pipeline runs one code allocation over a dataset.
package pipeline

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/railkit/stationcode/pkg/allocate"
	"github.com/railkit/stationcode/pkg/code"
	"github.com/railkit/stationcode/pkg/dataset"
	"github.com/railkit/stationcode/pkg/normalize"
	"github.com/railkit/stationcode/pkg/registry"
)

// Assignment is the code given to one entity.
type Assignment struct {
	Entity  dataset.Entity
	Tokens  []string
	Code    code.Code
	Encoded uint16
	Stage   allocate.Stage
}

// Stats counts how each code of a run was produced.
type Stats struct {
	Entities int
	ByStage  map[allocate.Stage]int
}

// Result is the outcome of a run.
type Result struct {
	Assignments []Assignment
	Stats       Stats
	// Registry is every code the store holds once the run is over, in
	// insertion order. It includes codes seeded before the run.
	Registry []registry.Entry
}

// CodeFor returns the code assigned to sourceID in this run.
func (r *Result) CodeFor(sourceID string) (code.Code, bool) {
	for _, a := range r.Assignments {
		if a.Entity.SourceID == sourceID {
			return a.Code, true
		}
	}
	return "", false
}

// Mapping returns source id -> code for every assignment.
func (r *Result) Mapping() map[string]code.Code {
	out := make(map[string]code.Code, len(r.Assignments))
	for _, a := range r.Assignments {
		out[a.Entity.SourceID] = a.Code
	}
	return out
}

// Runner allocates codes for entities in order.
type Runner struct {
	normalizer *normalize.Normalizer
	store      registry.Registry
	allocator  *allocate.Allocator
}

// New creates a Runner. The allocator must write into store.
func New(n *normalize.Normalizer, store registry.Registry, a *allocate.Allocator) *Runner {
	return &Runner{normalizer: n, store: store, allocator: a}
}

// Run allocates a code for each entity. A source id already present in the
// store keeps its code.
func (r *Runner) Run(entities []dataset.Entity) (*Result, error) {
	res := &Result{
		Assignments: make([]Assignment, 0, len(entities)),
		Stats:       Stats{Entities: len(entities), ByStage: make(map[allocate.Stage]int)},
	}

	for _, ent := range entities {
		tokens := r.normalizer.Tokens(ent.Name)
		if len(tokens) == 0 {
			return nil, fmt.Errorf("entity %s: name %q has no letters: %w", ent.SourceID, ent.Name, allocate.ErrNoTokens)
		}

		a := Assignment{Entity: ent, Tokens: tokens}
		existing, ok, err := r.store.CodeOf(ent.SourceID)
		if err != nil {
			return nil, fmt.Errorf("entity %s: %w", ent.SourceID, err)
		}
		if ok {
			a.Code, a.Stage = existing, allocate.StageExisting
		} else {
			out, err := r.allocator.Allocate(tokens, ent.SourceID)
			if err != nil {
				return nil, fmt.Errorf("entity %s (%s): %w", ent.SourceID, ent.Name, err)
			}
			a.Code, a.Stage = out.Code, out.Stage
		}
		a.Encoded = a.Code.Encode()

		res.Assignments = append(res.Assignments, a)
		res.Stats.ByStage[a.Stage]++
	}

	entries, err := r.store.Entries()
	if err != nil {
		return nil, fmt.Errorf("listing registry: %w", err)
	}
	res.Registry = entries

	log.Debug("allocation finished",
		"entities", res.Stats.Entities,
		"seed", res.Stats.ByStage[allocate.StageSeed],
		"existing", res.Stats.ByStage[allocate.StageExisting],
		"registry", len(res.Registry),
	)
	return res, nil
}
