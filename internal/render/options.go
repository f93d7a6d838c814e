package render

import (
	"fmt"

	"github.com/cbegin/patternmix-go/internal/pcm"
)

type Options struct {
	Format             pcm.Format
	BPM                float64
	TimeSignatureBeats int
	ReferenceDBFS      float64
	SilenceThresholdDB float64
	SilenceWindowMs    float64
	RepeatCount        int
	// Workers bounds how many rows render at once; values below 1 mean 1.
	Workers int
}

func DefaultOptions() Options {
	return Options{
		Format:             pcm.Format{SampleRate: 44100, Channels: 2},
		BPM:                120,
		TimeSignatureBeats: 4,
		ReferenceDBFS:      pcm.DefaultReferenceDBFS,
		SilenceThresholdDB: pcm.DefaultSilenceThresholdDB,
		SilenceWindowMs:    pcm.DefaultSilenceWindowMs,
		RepeatCount:        2,
		Workers:            4,
	}
}

func (o Options) Validate() error {
	switch {
	case o.BPM <= 0:
		return fmt.Errorf("bpm must be positive, got %v", o.BPM)
	case o.TimeSignatureBeats <= 0:
		return fmt.Errorf("time signature beats must be positive, got %d", o.TimeSignatureBeats)
	case o.Format.SampleRate <= 0 || o.Format.Channels <= 0:
		return fmt.Errorf("invalid render format %v", o.Format)
	case o.SilenceWindowMs <= 0:
		return fmt.Errorf("silence window must be > 0 ms, got %v", o.SilenceWindowMs)
	case o.RepeatCount < 0:
		return fmt.Errorf("repeat count must not be negative, got %d", o.RepeatCount)
	}
	return nil
}

// BarDurationMs is the length of one bar: 60000 * beats / bpm.
func BarDurationMs(bpm float64, beats int) float64 {
	return 60000 * float64(beats) / bpm
}
