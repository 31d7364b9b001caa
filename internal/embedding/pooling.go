package embedding

import "fmt"

// Pooling selects how token-level model output becomes one sentence vector.
type Pooling string

const (
	// PoolingMean averages token vectors weighted by the attention mask.
	PoolingMean Pooling = "mean"
	// PoolingCLS takes the first ([CLS]) token vector.
	PoolingCLS Pooling = "cls"
	// PoolingNone expects the model to emit one vector per input already.
	PoolingNone Pooling = "none"
)

// ParsePooling validates a pooling name from config.
func ParsePooling(s string) (Pooling, error) {
	switch p := Pooling(s); p {
	case PoolingMean, PoolingCLS, PoolingNone:
		return p, nil
	case "":
		return PoolingMean, nil
	default:
		return "", fmt.Errorf("unknown pooling %q (want mean, cls or none)", s)
	}
}

// MeanPool averages the rows of hidden (seqLen x dims, row-major) whose mask is non-zero.
// Returns a zero vector when the mask is all zero.
func MeanPool(hidden []float32, mask []int64, seqLen, dims int) []float32 {
	out := make([]float32, dims)
	var count float32
	for t := 0; t < seqLen && t < len(mask); t++ {
		if mask[t] == 0 {
			continue
		}
		row := hidden[t*dims : (t+1)*dims]
		for i, v := range row {
			out[i] += v
		}
		count++
	}
	if count == 0 {
		return out
	}
	for i := range out {
		out[i] /= count
	}
	return out
}

// CLSPool returns a copy of the first row of hidden.
func CLSPool(hidden []float32, dims int) []float32 {
	out := make([]float32, dims)
	copy(out, hidden[:dims])
	return out
}
