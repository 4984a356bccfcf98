package volume

import (
	"encoding/binary"
	"math"

	"github.com/chewxy/math32"
)

// SampleRange returns the smallest and largest finite sample. ok is false
// when the cube holds no finite value.
func SampleRange(samples []byte) (lo, hi float32, ok bool) {
	lo, hi = math32.Inf(1), math32.Inf(-1)
	for i := 0; i+4 <= len(samples); i += 4 {
		v := math.Float32frombits(binary.LittleEndian.Uint32(samples[i:]))
		if math32.IsNaN(v) || math32.IsInf(v, 0) {
			continue
		}
		lo = math32.Min(lo, v)
		hi = math32.Max(hi, v)
		ok = true
	}
	if !ok {
		return 0, 0, false
	}
	return lo, hi, true
}

// DisplayRange is SampleRange widened so that lo < hi always holds; empty
// or constant cubes get a unit-wide window.
func DisplayRange(samples []byte) (lo, hi float32) {
	lo, hi, ok := SampleRange(samples)
	if !ok {
		return 0, 1
	}
	if hi <= lo {
		hi = lo + 1
	}
	return lo, hi
}
