package pcm

import (
	"fmt"
	"math"

	"github.com/viterin/vek/vek32"
)

// Format describes interleaved float32 PCM.
type Format struct {
	SampleRate int
	Channels   int
}

// Frames converts a duration in milliseconds to a whole number of frames.
func (f Format) Frames(ms float64) int {
	if ms <= 0 {
		return 0
	}
	return int(math.Round(ms * float64(f.SampleRate) / 1000))
}

// Millis converts a frame count to milliseconds.
func (f Format) Millis(frames int) float64 {
	if f.SampleRate <= 0 {
		return 0
	}
	return float64(frames) * 1000 / float64(f.SampleRate)
}

func (f Format) String() string {
	return fmt.Sprintf("%d Hz/%d ch", f.SampleRate, f.Channels)
}

// Buffer is an owned block of interleaved samples in full-scale [-1, 1].
// Every operation either mutates the receiver or returns a fresh buffer;
// samples are never shared between two buffers.
type Buffer struct {
	Format  Format
	Samples []float32
}

func New(format Format, frames int) *Buffer {
	if frames < 0 {
		frames = 0
	}
	return &Buffer{Format: format, Samples: make([]float32, frames*format.Channels)}
}

// Silence returns a zeroed buffer lasting ms milliseconds.
func Silence(format Format, ms float64) *Buffer {
	return New(format, format.Frames(ms))
}

func (b *Buffer) Frames() int {
	if b.Format.Channels <= 0 {
		return 0
	}
	return len(b.Samples) / b.Format.Channels
}

func (b *Buffer) DurationMs() float64 { return b.Format.Millis(b.Frames()) }

func (b *Buffer) Clone() *Buffer {
	out := &Buffer{Format: b.Format, Samples: make([]float32, len(b.Samples))}
	copy(out.Samples, b.Samples)
	return out
}

// Slice copies frames [start, end), clamped to the buffer.
func (b *Buffer) Slice(start, end int) *Buffer {
	n := b.Frames()
	start = clamp(start, 0, n)
	end = clamp(end, start, n)
	ch := b.Format.Channels
	out := New(b.Format, end-start)
	copy(out.Samples, b.Samples[start*ch:end*ch])
	return out
}

// Reverse returns a copy with the frame order reversed.
func (b *Buffer) Reverse() *Buffer {
	ch := b.Format.Channels
	n := b.Frames()
	out := New(b.Format, n)
	for i := 0; i < n; i++ {
		copy(out.Samples[(n-1-i)*ch:(n-i)*ch], b.Samples[i*ch:(i+1)*ch])
	}
	return out
}

// Extend appends frames of silence.
func (b *Buffer) Extend(frames int) {
	if frames <= 0 {
		return
	}
	b.Samples = append(b.Samples, make([]float32, frames*b.Format.Channels)...)
}

// ExtendTo pads with silence until the buffer holds at least frames frames.
func (b *Buffer) ExtendTo(frames int) {
	b.Extend(frames - b.Frames())
}

// Append copies src onto the end of b.
func (b *Buffer) Append(src *Buffer) {
	b.mustMatch(src)
	b.Samples = append(b.Samples, src.Samples...)
}

// Overlay adds src into b starting at frame offset. The receiver is grown
// with silence first when src would run past its end, so nothing is dropped.
func (b *Buffer) Overlay(src *Buffer, offset int) {
	b.mustMatch(src)
	if offset < 0 {
		offset = 0
	}
	n := src.Frames()
	if n == 0 {
		return
	}
	b.ExtendTo(offset + n)
	ch := b.Format.Channels
	vek32.Add_Inplace(b.Samples[offset*ch:(offset+n)*ch], src.Samples)
}

// MeanSquare is the mean of the squared samples over all channels.
func (b *Buffer) MeanSquare() float64 {
	if len(b.Samples) == 0 {
		return 0
	}
	return float64(vek32.Dot(b.Samples, b.Samples)) / float64(len(b.Samples))
}

// DBFS is the RMS level relative to full scale; silence is -Inf.
func (b *Buffer) DBFS() float64 {
	ms := b.MeanSquare()
	if ms == 0 {
		return math.Inf(-1)
	}
	return 10 * math.Log10(ms)
}

// ApplyGainDB scales every sample by db decibels in place.
func (b *Buffer) ApplyGainDB(db float64) {
	if db == 0 || len(b.Samples) == 0 {
		return
	}
	vek32.MulNumber_Inplace(b.Samples, float32(DBToGain(db)))
}

func DBToGain(db float64) float64 { return math.Pow(10, db/20) }

func (b *Buffer) mustMatch(src *Buffer) {
	if b.Format != src.Format {
		panic(fmt.Sprintf("pcm: format mismatch %v vs %v", b.Format, src.Format))
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
