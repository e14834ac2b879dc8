package pe

import (
	"math"
)

// CalculateEntropy returns the Shannon entropy of data in bits per byte,
// from 0 (one repeated value) to 8 (uniformly random). Packed or encrypted
// sections usually score above 7.
func CalculateEntropy(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}

	var freq [256]int
	for _, b := range data {
		freq[b]++
	}

	// H = -Σ p(x) * log2(p(x))
	var entropy float64
	n := float64(len(data))
	for _, count := range freq {
		if count == 0 {
			continue
		}
		p := float64(count) / n
		entropy -= p * math.Log2(p)
	}
	return entropy
}
