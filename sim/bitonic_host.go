package sim

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// SortPass is one (k, j) stride pair of the bitonic sort network: the host
// writes it to the SortParams buffer and dispatches one pass of
// sim/shaders/bitonic_sort.wgsl per entry in a schedule.
type SortPass struct {
	K, J uint32
}

// BuildSortSchedule assembles the full pass list for a bitonic sort over n
// elements (n must be a power of two). The donor pack has no bit-shift-based
// exponent sequence generator, so the log2-space k and j exponents are laid
// out with gonum/floats.Span, then exponentiated back into strides — the
// same span-then-transform idiom the pack's own parameter sweeps use.
func BuildSortSchedule(n uint32) []SortPass {
	if n < 2 {
		return nil
	}
	log2n := int(math.Log2(float64(n)))

	kExponents := spanRange(log2n, 1, float64(log2n))

	var schedule []SortPass
	for _, kExp := range kExponents {
		k := uint32(math.Round(math.Pow(2, kExp)))

		jExponents := spanRange(int(kExp), kExp-1, 0)

		for _, jExp := range jExponents {
			j := uint32(math.Round(math.Pow(2, jExp)))
			schedule = append(schedule, SortPass{K: k, J: j})
		}
	}
	return schedule
}

// spanRange lays out n evenly spaced values from l to u inclusive.
// floats.Span panics below two elements, which the bitonic schedule's
// innermost exponent sequences (k=2, or any pass with only one j left) hit
// routinely, so the degenerate single-element case is handled directly.
func spanRange(n int, l, u float64) []float64 {
	out := make([]float64, n)
	if n <= 1 {
		if n == 1 {
			out[0] = l
		}
		return out
	}
	floats.Span(out, l, u)
	return out
}
