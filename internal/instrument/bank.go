package instrument

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/cbegin/patternmix-go/internal/pcm"
)

// Bank resolves an instrument id to its sample. Returned buffers are shared
// and must be treated as read-only.
type Bank interface {
	Sample(id string) (*pcm.Buffer, error)
}

// Table maps instrument ids to WAV asset paths.
type Table map[string]string

// DefaultTable is the built-in instrument set, relative to the asset directory.
func DefaultTable() Table {
	return Table{
		"drum":        "mixkit-metal-hit-drum-sound-550.wav",
		"bass":        "mixkit-bass-guitar-single-note-2331.wav",
		"tribal drum": "mixkit-tribal-dry-drum-558.wav",
		"violin":      "mixkit-orchestral-violin-jingle-2280.wav",
	}
}

func (t Table) IDs() []string {
	ids := make([]string, 0, len(t))
	for id := range t {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type UnknownInstrumentError struct {
	Instrument string
}

func (e *UnknownInstrumentError) Error() string {
	return fmt.Sprintf("unknown instrument %q", e.Instrument)
}

// AssetDecodeError means an instrument's asset is missing or unreadable.
type AssetDecodeError struct {
	Instrument string
	Path       string
	Err        error
}

func (e *AssetDecodeError) Error() string {
	return fmt.Sprintf("instrument %q: decode %s: %v", e.Instrument, e.Path, e.Err)
}

func (e *AssetDecodeError) Unwrap() error { return e.Err }

// FileBank loads WAV assets from disk on first use and converts them to the
// render format. Decoded samples are cached for the life of the bank.
type FileBank struct {
	dir    string
	table  Table
	format pcm.Format

	mu    sync.Mutex
	cache map[string]*pcm.Buffer
}

func NewFileBank(dir string, table Table, format pcm.Format) *FileBank {
	return &FileBank{
		dir:    dir,
		table:  table,
		format: format,
		cache:  make(map[string]*pcm.Buffer),
	}
}

func (b *FileBank) Sample(id string) (*pcm.Buffer, error) {
	name, ok := b.table[id]
	if !ok {
		return nil, &UnknownInstrumentError{Instrument: id}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.cache[id]; ok {
		return s, nil
	}
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(b.dir, name)
	}
	s, err := b.load(path)
	if err != nil {
		return nil, &AssetDecodeError{Instrument: id, Path: path, Err: err}
	}
	b.cache[id] = s
	return s, nil
}

func (b *FileBank) load(path string) (*pcm.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f, b.format)
}

// MapBank serves samples already held in memory.
type MapBank map[string]*pcm.Buffer

func (m MapBank) Sample(id string) (*pcm.Buffer, error) {
	s, ok := m[id]
	if !ok {
		return nil, &UnknownInstrumentError{Instrument: id}
	}
	return s, nil
}
