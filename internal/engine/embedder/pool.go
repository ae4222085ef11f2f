package embedder

import "math"

// meanPool averages transformer hidden states over the non-padding tokens
// of each sequence.
//
// hidden: flat [size * seqLen * dim]
// mask:   flat [size * seqLen], 1 for real tokens
//
// Returns flat [size * dim].
func meanPool(hidden []float32, mask []int64, size, seqLen, dim int64) []float32 {
	out := make([]float32, size*dim)

	for b := int64(0); b < size; b++ {
		var count float32
		for s := int64(0); s < seqLen; s++ {
			if mask[b*seqLen+s] != 1 {
				continue
			}
			count++
			tok := hidden[(b*seqLen+s)*dim : (b*seqLen+s+1)*dim]
			row := out[b*dim : (b+1)*dim]
			for d := range row {
				row[d] += tok[d]
			}
		}
		if count == 0 {
			continue
		}
		row := out[b*dim : (b+1)*dim]
		for d := range row {
			row[d] /= count
		}
	}
	return out
}

// l2Normalize scales vec to unit length in place. The zero vector is left
// as is.
func l2Normalize(vec []float32) {
	var sum float64
	for _, x := range vec {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range vec {
		vec[i] *= inv
	}
}
