package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"

	"github.com/cbegin/patternmix-go/internal/pcm"
)

type SampleSource interface {
	Process(dst []float32)
}

// FinishingSource is a SampleSource that can signal when playback has ended.
// When Finished returns true, the stream will return io.EOF on the next Read.
type FinishingSource interface {
	SampleSource
	Finished() bool
}

// BufferSource plays a stereo buffer once, then emits silence.
type BufferSource struct {
	mu  sync.Mutex
	buf *pcm.Buffer
	pos int
}

func NewBufferSource(buf *pcm.Buffer) (*BufferSource, error) {
	if buf.Format.Channels != 2 {
		return nil, fmt.Errorf("playback needs stereo, got %d channels", buf.Format.Channels)
	}
	return &BufferSource{buf: buf}, nil
}

func (s *BufferSource) Process(dst []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := copy(dst, s.buf.Samples[s.pos:])
	s.pos += n
	clear(dst[n:])
}

func (s *BufferSource) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos >= len(s.buf.Samples)
}

type StreamReader struct {
	mu     sync.Mutex
	source SampleSource
	buf    []float32
}

func NewStreamReader(source SampleSource) *StreamReader {
	return &StreamReader{source: source}
}

func (r *StreamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}
	need := frames * 2
	if cap(r.buf) < need {
		r.buf = make([]float32, need)
	}
	r.buf = r.buf[:need]
	r.source.Process(r.buf)
	for i := 0; i < need; i++ {
		// ebiten expects samples in [-1, 1]; the mix is unbounded.
		v := max(-1, min(1, r.buf[i]))
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(v))
	}
	n := frames * 8
	if fs, ok := r.source.(FinishingSource); ok && fs.Finished() {
		return n, io.EOF
	}
	return n, nil
}

func (r *StreamReader) Close() error { return nil }

type Player struct {
	player *ebitaudio.Player
	reader io.ReadCloser
}

var (
	audioContextOnce sync.Once
	audioContext     *ebitaudio.Context
	audioSampleRate  int
)

func sharedAudioContext(sampleRate int) (*ebitaudio.Context, error) {
	audioContextOnce.Do(func() {
		audioSampleRate = sampleRate
		audioContext = ebitaudio.NewContext(sampleRate)
	})
	if audioSampleRate != sampleRate {
		return nil, fmt.Errorf("audio context already initialized at %d Hz (requested %d Hz)", audioSampleRate, sampleRate)
	}
	return audioContext, nil
}

func NewPlayer(sampleRate int, source SampleSource) (*Player, error) {
	ctx, err := sharedAudioContext(sampleRate)
	if err != nil {
		return nil, err
	}
	reader := NewStreamReader(source)
	pl, err := ctx.NewPlayerF32(reader)
	if err != nil {
		return nil, err
	}
	return &Player{
		player: pl,
		reader: reader,
	}, nil
}

func (p *Player) Play()  { p.player.Play() }
func (p *Player) Pause() { p.player.Pause() }
func (p *Player) IsPlaying() bool {
	return p.player.IsPlaying()
}

// Wait blocks until the player stops producing sound.
func (p *Player) Wait() {
	for p.IsPlaying() {
		time.Sleep(20 * time.Millisecond)
	}
}

func (p *Player) Stop() error {
	p.Pause()
	p.player.Close()
	return p.reader.Close()
}

// PlayBuffer plays buf to the end and returns when it has finished.
func PlayBuffer(buf *pcm.Buffer) error {
	src, err := NewBufferSource(buf)
	if err != nil {
		return err
	}
	pl, err := NewPlayer(buf.Format.SampleRate, src)
	if err != nil {
		return err
	}
	pl.Play()
	pl.Wait()
	return pl.Stop()
}
