package render

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"golang.org/x/sync/errgroup"

	"github.com/cbegin/patternmix-go/internal/instrument"
	"github.com/cbegin/patternmix-go/internal/pattern"
	"github.com/cbegin/patternmix-go/internal/pcm"
)

// RowError attaches the row index to a failure raised while rendering it.
type RowError struct {
	Row int
	Err error
}

func (e *RowError) Error() string { return fmt.Sprintf("row %d: %v", e.Row, e.Err) }

func (e *RowError) Unwrap() error { return e.Err }

// Result is a finished render. Skipped holds one error per row that could
// not be rendered; those rows are absent from Buffer.
type Result struct {
	Buffer        *pcm.Buffer
	Skipped       []error
	Rendered      int
	BarDurationMs float64
}

// Renderer turns pattern rows into a looped mix. It holds no per-render
// state, so one Renderer may serve concurrent Render calls.
type Renderer struct {
	opts       Options
	bank       instrument.Bank
	trimmer    pcm.Trimmer
	normalizer pcm.Normalizer
	barMs      float64
}

func New(bank instrument.Bank, opts Options) (*Renderer, error) {
	if bank == nil {
		return nil, errors.New("render: nil instrument bank")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Renderer{
		opts:       opts,
		bank:       bank,
		trimmer:    pcm.Trimmer{ThresholdDB: opts.SilenceThresholdDB, WindowMs: opts.SilenceWindowMs},
		normalizer: pcm.Normalizer{TargetDBFS: opts.ReferenceDBFS},
		barMs:      BarDurationMs(opts.BPM, opts.TimeSignatureBeats),
	}, nil
}

func (r *Renderer) BarDurationMs() float64 { return r.barMs }

func (r *Renderer) barFrames() int { return r.opts.Format.Frames(r.barMs) }

// onsetFrame places a bar fraction on the frame grid.
func (r *Renderer) onsetFrame(at *big.Rat) int {
	f, _ := at.Float64()
	exact := r.barMs * f * float64(r.opts.Format.SampleRate) / 1000
	return int(math.Round(exact))
}

// Render runs every row through sample preparation and track placement,
// mixes the tracks in row order and loops the mix. Row-level failures are
// collected in Result.Skipped; an asset that cannot be decoded fails the
// whole render.
func (r *Renderer) Render(rows []pattern.Row) (*Result, error) {
	tracks := make([]*pcm.Buffer, len(rows))
	skipped := make([]error, len(rows))

	var g errgroup.Group
	g.SetLimit(max(r.opts.Workers, 1))
	for i, row := range rows {
		g.Go(func() error {
			track, err := r.renderRow(row)
			var decodeErr *instrument.AssetDecodeError
			switch {
			case errors.As(err, &decodeErr):
				return err
			case err != nil:
				skipped[i] = err
			default:
				tracks[i] = track
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{BarDurationMs: r.barMs}
	ordered := make([]*pcm.Buffer, 0, len(tracks))
	for i := range rows {
		if skipped[i] != nil {
			res.Skipped = append(res.Skipped, skipped[i])
			continue
		}
		ordered = append(ordered, tracks[i])
	}
	res.Rendered = len(ordered)

	looped, err := r.Repeat(r.Mix(ordered), r.opts.RepeatCount)
	if err != nil {
		return nil, err
	}
	res.Buffer = looped
	return res, nil
}

func (r *Renderer) renderRow(row pattern.Row) (*pcm.Buffer, error) {
	if err := pattern.ValidateRow(row); err != nil {
		return nil, err
	}
	sample, err := r.PrepareSample(row.Instrument, row.Volume)
	if err != nil {
		return nil, &RowError{Row: row.Index, Err: err}
	}
	return r.RenderTrack(sample, row.Notes), nil
}

// PrepareSample resolves an instrument and returns its silence-trimmed sample
// normalized to the reference loudness plus the tier gain. The bank's buffer
// is never modified.
func (r *Renderer) PrepareSample(id string, tier pattern.VolumeTier) (*pcm.Buffer, error) {
	raw, err := r.bank.Sample(id)
	if err != nil {
		return nil, err
	}
	if raw.Format != r.opts.Format {
		return nil, &instrument.AssetDecodeError{
			Instrument: id,
			Err:        fmt.Errorf("sample format %v does not match render format %v", raw.Format, r.opts.Format),
		}
	}
	trimmed, err := r.trimmer.Trim(raw)
	if err != nil {
		return nil, err
	}
	return r.normalizer.Apply(trimmed, int(tier))
}

// RenderTrack strikes sample at the start of every note and once more at
// the end of the last one. The track is one bar long and grows whenever a
// strike would ring past its end.
func (r *Renderer) RenderTrack(sample *pcm.Buffer, notes []pattern.NoteDuration) *pcm.Buffer {
	track := pcm.New(r.opts.Format, r.barFrames())
	for _, at := range pattern.Onsets(notes) {
		offset := r.onsetFrame(at)
		track.ExtendTo(offset + sample.Frames())
		track.Overlay(sample, offset)
	}
	return track
}

// Mix overlays tracks in order onto one bar of silence, growing the mix to
// the longest track.
func (r *Renderer) Mix(tracks []*pcm.Buffer) *pcm.Buffer {
	mix := pcm.New(r.opts.Format, r.barFrames())
	for _, t := range tracks {
		mix.ExtendTo(t.Frames())
		mix.Overlay(t, 0)
	}
	return mix
}

// Repeat loops mix count times. Each pass appends one bar of silence and
// adds the buffer as it stood before the pass, shifted by one bar, so every
// pass echoes everything so far rather than appending a single copy. The
// result is trimmed of silence at both ends.
func (r *Renderer) Repeat(mix *pcm.Buffer, count int) (*pcm.Buffer, error) {
	out := mix.Clone()
	bar := r.barFrames()
	for i := 0; i < count; i++ {
		prev := out.Clone()
		out.Extend(bar)
		out.Overlay(prev, bar)
	}
	return r.trimmer.Trim(out)
}
