package pcm

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/cbegin/patternmix-go/internal/pattern"
)

// One frame per millisecond keeps offsets readable.
var testFormat = Format{SampleRate: 1000, Channels: 2}

func constant(frames int, v float32) *Buffer {
	b := New(testFormat, frames)
	for i := range b.Samples {
		b.Samples[i] = v
	}
	return b
}

func padded(lead, body, tail int, v float32) *Buffer {
	b := New(testFormat, lead)
	b.Append(constant(body, v))
	b.Extend(tail)
	return b
}

func TestFormatConversions(t *testing.T) {
	f := Format{SampleRate: 44100, Channels: 2}
	if got := f.Frames(1000); got != 44100 {
		t.Fatalf("Frames(1000) = %d, want 44100", got)
	}
	if got := f.Frames(10); got != 441 {
		t.Fatalf("Frames(10) = %d, want 441", got)
	}
	if got := f.Millis(22050); got != 500 {
		t.Fatalf("Millis(22050) = %v, want 500", got)
	}
}

func TestOverlayGrowsInsteadOfTruncating(t *testing.T) {
	base := New(testFormat, 100)
	hit := constant(30, 0.25)
	base.Overlay(hit, 90)
	if base.Frames() != 120 {
		t.Fatalf("frames = %d, want 120", base.Frames())
	}
	if base.Samples[119*2] != 0.25 {
		t.Fatalf("tail of overlay was lost: %v", base.Samples[119*2])
	}
	base.Overlay(hit, 90)
	if base.Samples[95*2+1] != 0.5 {
		t.Fatalf("overlay should sum, got %v", base.Samples[95*2+1])
	}
	if base.Frames() != 120 {
		t.Fatalf("second overlay should not grow, frames = %d", base.Frames())
	}
}

func TestOverlayDoesNotAliasSource(t *testing.T) {
	base := New(testFormat, 10)
	src := constant(5, 0.1)
	base.Overlay(src, 0)
	base.Samples[0] = 1
	if src.Samples[0] != 0.1 {
		t.Fatalf("source mutated through overlay")
	}
}

func TestSliceAndReverse(t *testing.T) {
	b := New(testFormat, 4)
	for i := 0; i < 4; i++ {
		b.Samples[i*2] = float32(i)
		b.Samples[i*2+1] = float32(-i)
	}
	r := b.Reverse()
	if r.Samples[0] != 3 || r.Samples[1] != -3 || r.Samples[6] != 0 {
		t.Fatalf("unexpected reverse: %v", r.Samples)
	}
	s := b.Slice(1, 10)
	if s.Frames() != 3 || s.Samples[0] != 1 {
		t.Fatalf("unexpected slice: %v", s.Samples)
	}
	if e := b.Slice(3, 1); e.Frames() != 0 {
		t.Fatalf("inverted slice should be empty, got %d frames", e.Frames())
	}
}

func TestDBFS(t *testing.T) {
	if got := constant(10, 1).DBFS(); math.Abs(got) > 1e-9 {
		t.Fatalf("full scale DBFS = %v, want 0", got)
	}
	if got := constant(10, 0.1).DBFS(); math.Abs(got+20) > 1e-4 {
		t.Fatalf("0.1 DBFS = %v, want -20", got)
	}
	if got := New(testFormat, 10).DBFS(); !math.IsInf(got, -1) {
		t.Fatalf("silence DBFS = %v, want -Inf", got)
	}
}

func TestTrimRemovesBothEnds(t *testing.T) {
	b := padded(50, 200, 70, 0.5)
	trimmed, err := DefaultTrimmer().Trim(b)
	if err != nil {
		t.Fatalf("trim failed: %v", err)
	}
	if trimmed.Frames() != 200 {
		t.Fatalf("frames = %d, want 200", trimmed.Frames())
	}
	if trimmed.Samples[0] != 0.5 {
		t.Fatalf("leading silence kept")
	}
}

func assertTrimStable(t *testing.T, tr Trimmer, b *Buffer) {
	t.Helper()
	once, err := tr.Trim(b)
	if err != nil {
		t.Fatalf("trim failed: %v", err)
	}
	twice, err := tr.Trim(once)
	if err != nil {
		t.Fatalf("trim failed: %v", err)
	}
	if once.Frames() != twice.Frames() {
		t.Fatalf("second trim changed length: %d -> %d", once.Frames(), twice.Frames())
	}
	for i := range once.Samples {
		if once.Samples[i] != twice.Samples[i] {
			t.Fatalf("second trim changed sample %d", i)
		}
	}
}

func TestTrimIsIdempotent(t *testing.T) {
	tr := DefaultTrimmer()
	assertTrimStable(t, tr, padded(43, 157, 61, 0.3))

	// A burst shorter than one window with a quiet tail that lines up
	// differently when scanned from the end.
	burst := padded(0, 3, 0, 0.02)
	burst.Extend(9)
	assertTrimStable(t, tr, burst)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 500; i++ {
		b := New(testFormat, 1+rng.Intn(60))
		for j := range b.Samples {
			if rng.Intn(8) == 0 {
				b.Samples[j] = float32(rng.Float64()*0.04 - 0.02)
			}
		}
		assertTrimStable(t, tr, b)
	}
}

func TestTrimSilentBufferIsEmpty(t *testing.T) {
	trimmed, err := DefaultTrimmer().Trim(New(testFormat, 123))
	if err != nil {
		t.Fatalf("trim failed: %v", err)
	}
	if trimmed.Frames() != 0 {
		t.Fatalf("frames = %d, want 0", trimmed.Frames())
	}
	again, err := DefaultTrimmer().Trim(trimmed)
	if err != nil || again.Frames() != 0 {
		t.Fatalf("empty buffer should trim to empty, got %v frames err=%v", again.Frames(), err)
	}
}

func TestTrimQuietBelowThreshold(t *testing.T) {
	// -60 dBFS hum counts as silence at the default -50 dB threshold.
	b := padded(0, 100, 0, 0.001)
	b.Append(constant(40, 0.5))
	b.Append(constant(100, 0.001))
	trimmed, err := DefaultTrimmer().Trim(b)
	if err != nil {
		t.Fatalf("trim failed: %v", err)
	}
	if trimmed.Frames() != 40 {
		t.Fatalf("frames = %d, want 40", trimmed.Frames())
	}
}

func TestTrimRejectsZeroWindow(t *testing.T) {
	if _, err := (Trimmer{ThresholdDB: -50}).Trim(constant(10, 1)); err == nil {
		t.Fatalf("expected error for zero window")
	}
}

func TestNormalizerTierGains(t *testing.T) {
	src := constant(100, 0.5)
	n := DefaultNormalizer()
	cases := []struct {
		tier int
		want float64
	}{
		{1, -20},
		{2, -18},
		{3, -16},
	}
	for _, tc := range cases {
		out, err := n.Apply(src, tc.tier)
		if err != nil {
			t.Fatalf("tier %d: %v", tc.tier, err)
		}
		if got := out.DBFS(); math.Abs(got-tc.want) > 1e-3 {
			t.Fatalf("tier %d: level = %v, want %v", tc.tier, got, tc.want)
		}
	}
	if src.Samples[0] != 0.5 {
		t.Fatalf("normalizer mutated its input")
	}
}

func TestNormalizerIsIdempotent(t *testing.T) {
	src := padded(0, 30, 0, 0.7)
	src.Append(constant(30, -0.2))
	n := Normalizer{TargetDBFS: -12}
	once, err := n.Apply(src, 3)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	twice, err := n.Apply(once, 3)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	for i := range once.Samples {
		if math.Abs(float64(once.Samples[i]-twice.Samples[i])) > 1e-5 {
			t.Fatalf("sample %d: %v then %v", i, once.Samples[i], twice.Samples[i])
		}
	}
}

func TestNormalizerRejectsUnknownTier(t *testing.T) {
	for _, tier := range []int{0, 4, -1} {
		if _, err := DefaultNormalizer().Apply(constant(10, 0.5), tier); err == nil {
			t.Fatalf("tier %d accepted", tier)
		}
	}
}

func TestTierGainReportsTypedError(t *testing.T) {
	for _, tier := range []int{0, 4} {
		_, err := TierGainDB(tier)
		var te *pattern.UnresolvableVolumeTierError
		if !errors.As(err, &te) {
			t.Fatalf("tier %d: expected UnresolvableVolumeTierError, got %v", tier, err)
		}
		if want := fmt.Sprint(tier); te.Tier != want {
			t.Fatalf("tier %d: error names %q", tier, te.Tier)
		}
	}
}

func TestNormalizerPassesSilenceThrough(t *testing.T) {
	out, err := DefaultNormalizer().Apply(New(testFormat, 10), 2)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	for i, v := range out.Samples {
		if v != 0 {
			t.Fatalf("sample %d = %v, silence should stay silent", i, v)
		}
	}
}
