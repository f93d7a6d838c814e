package pcm

import (
	"math"
	"strconv"

	"github.com/cbegin/patternmix-go/internal/pattern"
)

const DefaultReferenceDBFS = -20.0

// TierGainDB maps a volume tier (1..3) to its extra gain after normalization.
// The returned error carries no row; callers that know it wrap the error.
func TierGainDB(tier int) (float64, error) {
	switch tier {
	case 1:
		return 0, nil
	case 2:
		return 2, nil
	case 3:
		return 4, nil
	default:
		return 0, &pattern.UnresolvableVolumeTierError{Row: -1, Tier: strconv.Itoa(tier)}
	}
}

// Normalizer brings a buffer to TargetDBFS, then adds the tier gain.
type Normalizer struct {
	TargetDBFS float64
}

func DefaultNormalizer() Normalizer {
	return Normalizer{TargetDBFS: DefaultReferenceDBFS}
}

// Apply returns a normalized copy of b. Silent buffers have no measurable
// level and are returned unchanged.
func (n Normalizer) Apply(b *Buffer, tier int) (*Buffer, error) {
	tierDB, err := TierGainDB(tier)
	if err != nil {
		return nil, err
	}
	out := b.Clone()
	level := out.DBFS()
	if math.IsInf(level, -1) {
		return out, nil
	}
	out.ApplyGainDB(n.TargetDBFS - level + tierDB)
	return out, nil
}
