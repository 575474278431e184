package sts

import (
	"fmt"
	"log"

	"gonum.org/v1/gonum/mathext"
)

// FrequencyWithinBlock performs the frequency test within a block from
// SP 800-22 Section 2.2. The sequence is partitioned into N = floor(n/M)
// blocks of M bits, the proportion of ones is computed per block, and the
// deviations from one half are reduced to the chi-square statistic
// 4M * sum((pi_i - 1/2)^2). The p-value is the upper regularized incomplete
// gamma function at (N/2, chi_square/2).
//
// blockSize must lie in [1, n]; values outside fail with
// ErrInvalidParameter. SP 800-22 recommends M >= 20, M > n/100, and fewer
// than 100 blocks; departures are advisory only.
func FrequencyWithinBlock(bitString string, blockSize int) (float64, error) {
	seq, length, err := evaluateSequence(TestFrequencyBlock, bitString, recommendedBlockFreqBits)
	if err != nil {
		return 0, err
	}

	if blockSize <= 0 || blockSize > length {
		return 0, fmt.Errorf("%w: %s: block size %d must be between 1 and the sequence length %d",
			ErrInvalidParameter, TestFrequencyBlock, blockSize, length)
	}

	blocks := length / blockSize
	if blockSize < 20 || blockSize <= length/100 || blocks >= 100 {
		log.Printf("sts: %s: M=%d N=%d departs from the recommended M>=20, M>n/100, N<100; p-value confidence is reduced",
			TestFrequencyBlock, blockSize, blocks)
	}

	chiSquare := 0.0
	for block := 0; block < blocks; block++ {
		ones := 0
		bits := seq.Block(block, blockSize)
		for i := 0; i < len(bits); i++ {
			if bits[i] == '1' {
				ones++
			}
		}
		deviation := float64(ones)/float64(blockSize) - 0.5
		chiSquare += deviation * deviation
	}
	chiSquare *= 4 * float64(blockSize)

	pValue := mathext.GammaIncRegComp(float64(blocks)/2, chiSquare/2)
	return pValue, nil
}
