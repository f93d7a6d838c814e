// Package patternmix renders looping multi-instrument rhythm tracks from a
// table of note patterns.
package patternmix

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	intaudio "github.com/cbegin/patternmix-go/internal/audio"
	intcfg "github.com/cbegin/patternmix-go/internal/config"
	intinst "github.com/cbegin/patternmix-go/internal/instrument"
	intpat "github.com/cbegin/patternmix-go/internal/pattern"
	intpcm "github.com/cbegin/patternmix-go/internal/pcm"
	intrender "github.com/cbegin/patternmix-go/internal/render"
)

type MakerOption func(*makerConfig)

type makerConfig struct {
	bank   intinst.Bank
	parser intpat.ParserConfig
}

// WithBank replaces the file-backed instrument bank, e.g. with in-memory samples.
func WithBank(bank intinst.Bank) MakerOption {
	return func(cfg *makerConfig) {
		cfg.bank = bank
	}
}

func WithParserConfig(pc intpat.ParserConfig) MakerOption {
	return func(cfg *makerConfig) {
		cfg.parser = pc
	}
}

// Maker parses pattern tables and renders them with one configuration.
type Maker struct {
	cfg      intcfg.Config
	parser   *intpat.Parser
	renderer *intrender.Renderer
}

// Result is a finished soundtrack. Rejected lists every input row that was
// left out, ordered by row index.
type Result struct {
	Buffer        *intpcm.Buffer
	Rejected      []error
	BarDurationMs float64
}

func (r *Result) DurationMs() float64 { return r.Buffer.DurationMs() }

func NewMaker(cfg intcfg.Config, opts ...MakerOption) (*Maker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mc := makerConfig{parser: intpat.DefaultParserConfig()}
	for _, opt := range opts {
		opt(&mc)
	}
	if mc.bank == nil {
		mc.bank = cfg.Bank()
	}
	renderer, err := intrender.New(mc.bank, cfg.RenderOptions())
	if err != nil {
		return nil, err
	}
	return &Maker{
		cfg:      cfg,
		parser:   intpat.NewParser(mc.parser),
		renderer: renderer,
	}, nil
}

func (m *Maker) Config() intcfg.Config { return m.cfg }

// Render parses a pattern table from r and renders it.
func (m *Maker) Render(r io.Reader) (*Result, error) {
	rows, rejected, err := m.parser.Parse(r)
	if err != nil {
		return nil, err
	}
	return m.RenderRows(rows, rejected...)
}

func (m *Maker) RenderFile(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pattern: %w", err)
	}
	defer f.Close()
	return m.Render(f)
}

// RenderRows renders already parsed rows. rejected carries rows dropped
// before rendering so they are reported alongside render-time rejects.
func (m *Maker) RenderRows(rows []intpat.Row, rejected ...error) (*Result, error) {
	res, err := m.renderer.Render(rows)
	if err != nil {
		return nil, err
	}
	all := append(append([]error(nil), rejected...), res.Skipped...)
	sort.SliceStable(all, func(i, j int) bool {
		return RejectedRow(all[i]) < RejectedRow(all[j])
	})
	return &Result{
		Buffer:        res.Buffer,
		Rejected:      all,
		BarDurationMs: res.BarDurationMs,
	}, nil
}

// RejectedRow returns the input row index a rejection refers to, or -1.
func RejectedRow(err error) int {
	var (
		malformed *intpat.MalformedPatternError
		tier      *intpat.UnresolvableVolumeTierError
		rowErr    *intrender.RowError
	)
	switch {
	case errors.As(err, &rowErr):
		return rowErr.Row
	case errors.As(err, &malformed):
		return malformed.Row
	case errors.As(err, &tier):
		return tier.Row
	}
	return -1
}

// Play sends the soundtrack to the default audio device and blocks until it ends.
func Play(buf *intpcm.Buffer) error {
	return intaudio.PlayBuffer(buf)
}
