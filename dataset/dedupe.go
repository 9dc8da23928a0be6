package dataset

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash"
)

// Fingerprint hashes a sample's state, distribution and outcome.
func Fingerprint(s Sample) uint64 {
	buf := make([]byte, 0, 8*(len(s.State.Data)+len(s.Probs)+1))
	for _, v := range s.State.Data {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
	}
	for _, v := range s.Probs {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
	}
	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(s.Z))
	return xxhash.Sum64(buf)
}

// Dedupe drops samples identical to an earlier one, such as the symmetries
// of an empty or symmetric position. Order is preserved.
func Dedupe(samples []Sample) []Sample {
	seen := make(map[uint64]struct{}, len(samples))
	out := samples[:0:0]
	for _, s := range samples {
		key := Fingerprint(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}
