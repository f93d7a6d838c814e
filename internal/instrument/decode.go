package instrument

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/wav"
	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"

	"github.com/cbegin/patternmix-go/internal/pcm"
)

const wavFormatPCM = 1

// Decode reads an integer PCM WAV stream and converts it to format.
func Decode(r io.ReadSeeker, format pcm.Format) (*pcm.Buffer, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, errors.New("not a valid WAV file")
	}
	if d.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("unsupported WAV encoding %d (want integer PCM)", d.WavAudioFormat)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	bitDepth := int(d.BitDepth)
	channels := buf.Format.NumChannels
	if bitDepth == 0 || channels == 0 {
		return nil, fmt.Errorf("missing format (bit depth %d, channels %d)", bitDepth, channels)
	}

	src := &pcm.Buffer{
		Format:  pcm.Format{SampleRate: buf.Format.SampleRate, Channels: channels},
		Samples: make([]float32, len(buf.Data)-len(buf.Data)%channels),
	}
	factor := math.Pow(2, float64(bitDepth-1))
	for i := range src.Samples {
		v := buf.Data[i]
		if bitDepth == 8 {
			v -= 128 // 8-bit WAV is unsigned
		}
		src.Samples[i] = float32(float64(v) / factor)
	}

	out := remix(src, format.Channels)
	if out.Format.SampleRate != format.SampleRate {
		out, err = resample(out, format.SampleRate)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// remix maps src onto channels: mono is copied to every output channel,
// extra source channels are dropped, and a mono target averages the source.
func remix(src *pcm.Buffer, channels int) *pcm.Buffer {
	in := src.Format.Channels
	if in == channels {
		return src
	}
	frames := src.Frames()
	out := pcm.New(pcm.Format{SampleRate: src.Format.SampleRate, Channels: channels}, frames)
	for f := 0; f < frames; f++ {
		frame := src.Samples[f*in : (f+1)*in]
		if channels == 1 {
			var sum float32
			for _, s := range frame {
				sum += s
			}
			out.Samples[f] = sum / float32(in)
			continue
		}
		for c := 0; c < channels; c++ {
			out.Samples[f*channels+c] = frame[min(c, in-1)]
		}
	}
	return out
}

// resample converts stereo audio to the given rate with ebiten's resampler,
// which works on 16-bit little-endian stereo.
func resample(src *pcm.Buffer, to int) (*pcm.Buffer, error) {
	if src.Format.Channels != 2 {
		return nil, fmt.Errorf("resampling needs stereo, got %d channels", src.Format.Channels)
	}
	raw := make([]byte, len(src.Samples)*2)
	for i, s := range src.Samples {
		binary.LittleEndian.PutUint16(raw[i*2:], uint16(toInt16(s)))
	}
	rs := ebitaudio.Resample(bytes.NewReader(raw), int64(len(raw)), src.Format.SampleRate, to)
	conv, err := io.ReadAll(rs)
	if err != nil {
		return nil, fmt.Errorf("resample %d -> %d Hz: %w", src.Format.SampleRate, to, err)
	}
	conv = conv[:len(conv)-len(conv)%4]
	out := pcm.New(pcm.Format{SampleRate: to, Channels: 2}, len(conv)/4)
	for i := range out.Samples {
		out.Samples[i] = float32(int16(binary.LittleEndian.Uint16(conv[i*2:]))) / 32768
	}
	return out, nil
}

func toInt16(s float32) int16 {
	v := math.Round(float64(s) * 32767)
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
