package pattern

import (
	"fmt"
	"math/big"
)

var oneBar = big.NewRat(1, 1)

// Sum returns the exact share of a bar covered by notes.
func Sum(notes []NoteDuration) (*big.Rat, error) {
	sum := new(big.Rat)
	for i, n := range notes {
		if n <= 0 {
			return nil, fmt.Errorf("note %d has non-positive code %d", i+1, n)
		}
		sum.Add(sum, big.NewRat(1, int64(n)))
	}
	return sum, nil
}

// Validate accepts notes iff they fill exactly one bar.
func Validate(notes []NoteDuration) error {
	if len(notes) == 0 {
		return fmt.Errorf("no notes")
	}
	sum, err := Sum(notes)
	if err != nil {
		return err
	}
	if sum.Cmp(oneBar) != 0 {
		return fmt.Errorf("notes sum to %s of a bar, want 1", sum.RatString())
	}
	return nil
}

// ValidateRow is Validate with the row index attached to the failure.
func ValidateRow(row Row) error {
	if err := Validate(row.Notes); err != nil {
		return &MalformedPatternError{Row: row.Index, Reason: err.Error()}
	}
	if !row.Volume.Valid() {
		return &UnresolvableVolumeTierError{Row: row.Index, Tier: fmt.Sprint(int(row.Volume))}
	}
	return nil
}

// Onsets returns the bar fraction at which each note starts, followed by the
// fraction reached after the last note. Each entry is an exact prefix sum, so
// placement never accumulates rounding error.
func Onsets(notes []NoteDuration) []*big.Rat {
	out := make([]*big.Rat, 0, len(notes)+1)
	acc := new(big.Rat)
	out = append(out, new(big.Rat).Set(acc))
	for _, n := range notes {
		if n > 0 {
			acc.Add(acc, big.NewRat(1, int64(n)))
		}
		out = append(out, new(big.Rat).Set(acc))
	}
	return out
}
