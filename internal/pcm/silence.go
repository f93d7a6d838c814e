package pcm

import "fmt"

const (
	DefaultSilenceThresholdDB = -50.0
	DefaultSilenceWindowMs    = 10.0
)

// Trimmer strips leading and trailing silence. A window is silent when its
// RMS level is below ThresholdDB.
type Trimmer struct {
	ThresholdDB float64
	WindowMs    float64
}

func DefaultTrimmer() Trimmer {
	return Trimmer{ThresholdDB: DefaultSilenceThresholdDB, WindowMs: DefaultSilenceWindowMs}
}

func (t Trimmer) validate() error {
	if t.WindowMs <= 0 {
		return fmt.Errorf("silence window must be > 0 ms, got %v", t.WindowMs)
	}
	return nil
}

func (t Trimmer) windowFrames(f Format) int {
	return max(f.Frames(t.WindowMs), 1)
}

// LeadingSilence returns the first frame offset whose window is audible, or
// the buffer length when the whole buffer is silent. Offsets advance in whole
// windows.
func (t Trimmer) LeadingSilence(b *Buffer) (int, error) {
	if err := t.validate(); err != nil {
		return 0, err
	}
	window := t.windowFrames(b.Format)
	n := b.Frames()
	pos := 0
	for pos < n && b.Slice(pos, pos+window).DBFS() < t.ThresholdDB {
		pos += window
	}
	if pos > n {
		pos = n
	}
	return pos, nil
}

// Trim returns a copy of b without leading and trailing silence. A fully
// silent buffer yields an empty buffer. The trailing scan only looks at what
// follows the leading trim, and the result always keeps the whole audible
// window found by the leading scan, so trimming a trimmed buffer is a no-op.
func (t Trimmer) Trim(b *Buffer) (*Buffer, error) {
	start, err := t.LeadingSilence(b)
	if err != nil {
		return nil, err
	}
	n := b.Frames()
	if start >= n {
		return New(b.Format, 0), nil
	}
	endTrim, err := t.LeadingSilence(b.Slice(start, n).Reverse())
	if err != nil {
		return nil, err
	}
	end := max(n-endTrim, min(start+t.windowFrames(b.Format), n))
	return b.Slice(start, end), nil
}
