package pattern

import "fmt"

// NoteDuration is the denominator of a note's share of one bar: 4 is a quarter
// note, 8 an eighth, 3 a triplet third.
type NoteDuration int

// VolumeTier selects the secondary gain applied after loudness normalization.
type VolumeTier int

const (
	TierSoft VolumeTier = iota + 1
	TierMedium
	TierLoud
)

func (t VolumeTier) Valid() bool { return t >= TierSoft && t <= TierLoud }

// Row is one validated instrument part. Index is the record position in the
// input and identifies the row in warnings.
type Row struct {
	Index      int
	Instrument string
	Volume     VolumeTier
	Notes      []NoteDuration
}

type ParserConfig struct {
	// Comma is the field separator of the input table.
	Comma rune
	// Comment, when non-zero, marks lines to skip.
	Comment rune
}

func DefaultParserConfig() ParserConfig {
	return ParserConfig{Comma: ','}
}

// MalformedPatternError reports a row whose notes do not add up to one bar,
// or whose cells could not be read as note codes.
type MalformedPatternError struct {
	Row    int
	Reason string
}

func (e *MalformedPatternError) Error() string {
	return fmt.Sprintf("row %d: malformed pattern: %s", e.Row, e.Reason)
}

// UnresolvableVolumeTierError reports a volume cell outside 1..3. Row is -1
// when the tier was checked outside of a pattern row.
type UnresolvableVolumeTierError struct {
	Row  int
	Tier string
}

func (e *UnresolvableVolumeTierError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("volume tier %q is not one of 1, 2, 3", e.Tier)
	}
	return fmt.Sprintf("row %d: volume tier %q is not one of 1, 2, 3", e.Row, e.Tier)
}
