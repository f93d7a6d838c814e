package patternmix

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	intpcm "github.com/cbegin/patternmix-go/internal/pcm"
)

const DefaultBitDepth = 16

// EncodeWAV writes buf as integer PCM. Samples beyond full scale are clipped.
func EncodeWAV(w io.WriteSeeker, buf *intpcm.Buffer, bitDepth int) error {
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		return fmt.Errorf("unsupported bit depth %d", bitDepth)
	}
	enc := wav.NewEncoder(w, buf.Format.SampleRate, bitDepth, buf.Format.Channels, 1)
	full := math.Pow(2, float64(bitDepth-1)) - 1
	data := make([]int, len(buf.Samples))
	for i, s := range buf.Samples {
		v := math.Round(math.Max(-1, math.Min(1, float64(s))) * full)
		if bitDepth == 8 {
			v += 128 // 8-bit WAV is unsigned
		}
		data[i] = int(v)
	}
	ib := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: buf.Format.Channels,
			SampleRate:  buf.Format.SampleRate,
		},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(ib); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	return enc.Close()
}

// WriteWAVFile exports buf to path as 16-bit PCM.
func WriteWAVFile(path string, buf *intpcm.Buffer) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := EncodeWAV(f, buf, DefaultBitDepth); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
