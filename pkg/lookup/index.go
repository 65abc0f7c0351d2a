/*
Package lookup answers questions about the stations of a finished run.

An Index is built once and then read; all methods are safe for concurrent
use. Names are matched case-insensitively against the canonical name and
every alias of a station:

	idx := lookup.New(lookup.FromResult(res))
	st, score, ok := idx.Find("roma tiburtna")

Find tries an exact match first and falls back to the best normalized
Damerau-Levenshtein similarity, accepting it only at or above the index
threshold (DefaultThreshold unless WithThreshold says otherwise).
*/
package lookup

import (
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/railkit/stationcode/pkg/code"
	"github.com/railkit/stationcode/pkg/pipeline"
	"github.com/tchap/go-patricia/v2/patricia"
)

// DefaultThreshold is the minimum similarity Find accepts.
const DefaultThreshold = 0.70

// Station is one entry of the index.
type Station struct {
	Code      code.Code `msgpack:"c"`
	SourceID  string    `msgpack:"s"`
	Name      string    `msgpack:"n"`
	Aliases   []string  `msgpack:"a,omitempty"`
	Lat       float64   `msgpack:"la,omitempty"`
	Lon       float64   `msgpack:"lo,omitempty"`
	HasCoords bool      `msgpack:"g,omitempty"`
}

// Names returns the canonical name followed by the aliases.
func (s Station) Names() []string {
	return append([]string{s.Name}, s.Aliases...)
}

// FromResult lists the stations of an allocation run.
func FromResult(res *pipeline.Result) []Station {
	out := make([]Station, 0, len(res.Assignments))
	for _, a := range res.Assignments {
		out = append(out, Station{
			Code:      a.Code,
			SourceID:  a.Entity.SourceID,
			Name:      a.Entity.Name,
			Aliases:   a.Entity.Aliases,
			Lat:       a.Entity.Lat,
			Lon:       a.Entity.Lon,
			HasCoords: a.Entity.HasCoords,
		})
	}
	return out
}

// Index looks stations up by code, id, name and position.
type Index struct {
	stations  []Station
	byCode    map[code.Code]int
	bySource  map[string]int
	byName    map[string]int
	names     *patricia.Trie
	threshold float64
}

// Option configures an Index.
type Option func(*Index)

// WithThreshold sets the minimum similarity for fuzzy Find matches.
func WithThreshold(t float64) Option {
	return func(idx *Index) {
		idx.threshold = t
	}
}

// New builds an index. When two stations share a name the first one owns
// the exact match.
func New(stations []Station, opts ...Option) *Index {
	idx := &Index{
		stations:  stations,
		byCode:    make(map[code.Code]int, len(stations)),
		bySource:  make(map[string]int, len(stations)),
		byName:    make(map[string]int, len(stations)),
		names:     patricia.NewTrie(),
		threshold: DefaultThreshold,
	}
	for _, opt := range opts {
		opt(idx)
	}

	for i, st := range stations {
		idx.byCode[st.Code] = i
		idx.bySource[st.SourceID] = i
		for _, name := range st.Names() {
			key := strings.ToUpper(name)
			if _, ok := idx.byName[key]; ok {
				continue
			}
			idx.byName[key] = i
			idx.names.Insert(patricia.Prefix(key), i)
		}
	}

	log.Debug("lookup index built", "stations", len(stations), "names", len(idx.byName))
	return idx
}

// Len returns the number of stations.
func (idx *Index) Len() int {
	return len(idx.stations)
}

// Stations returns the indexed stations in build order.
func (idx *Index) Stations() []Station {
	return idx.stations
}

// Threshold returns the minimum fuzzy similarity.
func (idx *Index) Threshold() float64 {
	return idx.threshold
}

func (idx *Index) ByCode(c code.Code) (Station, bool) {
	i, ok := idx.byCode[c]
	if !ok {
		return Station{}, false
	}
	return idx.stations[i], true
}

// ByValue decodes v and looks the code up.
func (idx *Index) ByValue(v uint16) (Station, bool) {
	c, err := code.Decode(v)
	if err != nil {
		return Station{}, false
	}
	return idx.ByCode(c)
}

func (idx *Index) BySourceID(id string) (Station, bool) {
	i, ok := idx.bySource[id]
	if !ok {
		return Station{}, false
	}
	return idx.stations[i], true
}

// Find returns the station best matching name with its similarity score.
func (idx *Index) Find(name string) (Station, float64, bool) {
	key := strings.ToUpper(strings.TrimSpace(name))
	if key == "" {
		return Station{}, 0, false
	}
	if i, ok := idx.byName[key]; ok {
		return idx.stations[i], 1, true
	}

	best, bestScore := -1, 0.0
	for i, st := range idx.stations {
		for _, alias := range st.Names() {
			score := Similarity(alias, key)
			if score > bestScore {
				best, bestScore = i, score
			}
		}
	}
	if best < 0 || bestScore < idx.threshold {
		return Station{}, bestScore, false
	}
	return idx.stations[best], bestScore, true
}

// Complete returns up to limit stations with a name starting with prefix,
// sorted by name. A limit of zero or less means no limit.
func (idx *Index) Complete(prefix string, limit int) []Station {
	key := strings.ToUpper(prefix)

	type hit struct {
		name string
		i    int
	}
	var hits []hit
	err := idx.names.VisitSubtree(patricia.Prefix(key), func(p patricia.Prefix, item patricia.Item) error {
		hits = append(hits, hit{name: string(p), i: item.(int)})
		return nil
	})
	if err != nil {
		log.Errorf("Error visiting name trie: %v", err)
	}

	sort.Slice(hits, func(a, b int) bool {
		return hits[a].name < hits[b].name
	})

	seen := make(map[int]bool, len(hits))
	out := make([]Station, 0, len(hits))
	for _, h := range hits {
		if seen[h.i] {
			continue
		}
		seen[h.i] = true
		out = append(out, idx.stations[h.i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Nearest returns the station closest to (lat, lon) by squared euclidean
// distance over raw degrees. Stations without coordinates are ignored.
func (idx *Index) Nearest(lat, lon float64) (Station, bool) {
	best, bestDist := -1, 0.0
	for i, st := range idx.stations {
		if !st.HasCoords {
			continue
		}
		dLat, dLon := st.Lat-lat, st.Lon-lon
		dist := dLat*dLat + dLon*dLon
		if best < 0 || dist < bestDist {
			best, bestDist = i, dist
		}
	}
	if best < 0 {
		return Station{}, false
	}
	return idx.stations[best], true
}
