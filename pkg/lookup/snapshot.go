package lookup

import (
	"fmt"
	"io"
	"os"

	"github.com/vmihailenco/msgpack/v5"
)

// snapshotVersion is bumped when Station changes incompatibly.
const snapshotVersion = 1

type snapshot struct {
	Version  int       `msgpack:"v"`
	Stations []Station `msgpack:"stations"`
}

// Save writes the indexed stations to w as msgpack.
func (idx *Index) Save(w io.Writer) error {
	enc := msgpack.NewEncoder(w)
	if err := enc.Encode(snapshot{Version: snapshotVersion, Stations: idx.stations}); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return nil
}

// Load reads a snapshot written by Save and builds an index from it.
func Load(r io.Reader, opts ...Option) (*Index, error) {
	var snap snapshot
	if err := msgpack.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}
	for _, st := range snap.Stations {
		if !st.Code.Valid() {
			return nil, fmt.Errorf("snapshot holds invalid code %q for %s", st.Code, st.SourceID)
		}
	}
	return New(snap.Stations, opts...), nil
}

// SaveFile writes the snapshot to path.
func (idx *Index) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	if err := idx.Save(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadFile reads the snapshot at path.
func LoadFile(path string, opts ...Option) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()
	return Load(f, opts...)
}
