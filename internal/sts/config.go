package sts

import "fmt"

// TestConfig describes how a block-structured test partitions its input:
// block size M, block count N (M*N <= sequence length, remainder bits
// discarded), the merge thresholds used to fold rare outcome categories,
// and the table of theoretical probabilities aligned with the merged
// categories. A config is selected once per invocation and never mutated.
type TestConfig struct {
	BlockSize    int // M, bits per block
	Blocks       int // N, number of whole blocks in the sequence
	MinThreshold int // outcome categories <= MinThreshold fold into it
	MaxThreshold int // outcome categories >= MaxThreshold fold into it
	Pi           []float64
}

// lengthBucket binds a sequence length range [floor, next bucket's floor)
// to the structural parameters fixed by SP 800-22 for that range.
type lengthBucket struct {
	floor        int
	blockSize    int
	minThreshold int
	maxThreshold int
	pi           []float64
}

// minLongestRunBits is the absolute floor for the longest-run test.
const minLongestRunBits = 128

// longestRunBuckets maps sequence length to the longest-run test parameters
// of SP 800-22 Section 3.4. The pi tables are empirical constants from the
// standard and are reproduced verbatim, never derived.
var longestRunBuckets = []lengthBucket{
	{
		floor:        128,
		blockSize:    8,
		minThreshold: 1,
		maxThreshold: 4,
		pi:           []float64{0.2148, 0.3672, 0.2305, 0.1875},
	},
	{
		floor:        6272,
		blockSize:    128,
		minThreshold: 4,
		maxThreshold: 9,
		pi:           []float64{0.1174, 0.2430, 0.2493, 0.1752, 0.1027, 0.1124},
	},
	{
		floor:        750000,
		blockSize:    10000,
		minThreshold: 10,
		maxThreshold: 16,
		pi:           []float64{0.0882, 0.2092, 0.2483, 0.1933, 0.1208, 0.0675, 0.0727},
	},
}

// SelectLongestRunConfig picks the length bucket covering the validated
// sequence length and returns the test configuration bound to it. Selection
// is a pure lookup over the ordered bucket table. Lengths below the
// absolute floor fail with ErrUnsupportedLength.
func SelectLongestRunConfig(length int) (TestConfig, error) {
	if length < minLongestRunBits {
		return TestConfig{}, fmt.Errorf("%w: %s needs at least %d bits, got %d",
			ErrUnsupportedLength, TestLongestRun, minLongestRunBits, length)
	}

	chosen := longestRunBuckets[0]
	for _, bucket := range longestRunBuckets[1:] {
		if length >= bucket.floor {
			chosen = bucket
		}
	}

	return TestConfig{
		BlockSize:    chosen.blockSize,
		Blocks:       length / chosen.blockSize,
		MinThreshold: chosen.minThreshold,
		MaxThreshold: chosen.maxThreshold,
		Pi:           chosen.pi,
	}, nil
}
