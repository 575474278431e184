package sts

import (
	"fmt"
	"log"
	"math"
)

// Template parameter bounds shared by the template matching tests.
const (
	minTemplateLength = 2
	maxTemplateLength = 10
	maxTemplateBlocks = 100
)

// evaluateTemplateParams validates the caller-supplied template length and
// block count and returns the derived block size M = length / blocks.
// The template length must lie in [minTemplateLength, maxTemplateLength]
// (9 or 10 recommended), the block count must not exceed
// maxTemplateBlocks, and the resulting block size must be meaningfully
// larger than length/100 so each block carries enough bits for the
// per-template statistic.
func evaluateTemplateParams(test Test, length, templateLength, blocks int) (int, error) {
	if templateLength < minTemplateLength || templateLength > maxTemplateLength {
		return 0, fmt.Errorf("%w: %s: template length %d must be between %d and %d",
			ErrInvalidParameter, test, templateLength, minTemplateLength, maxTemplateLength)
	}
	if templateLength < maxTemplateLength-1 {
		log.Printf("sts: %s: recommended template lengths are %d and %d, got %d",
			test, maxTemplateLength-1, maxTemplateLength, templateLength)
	}

	if blocks <= 0 {
		return 0, fmt.Errorf("%w: %s: block count %d must be positive", ErrInvalidParameter, test, blocks)
	}
	if blocks > maxTemplateBlocks {
		return 0, fmt.Errorf("%w: %s: block count %d exceeds maximum %d",
			ErrInvalidParameter, test, blocks, maxTemplateBlocks)
	}

	blockSize := length / blocks
	if blockSize <= length/100 {
		return 0, fmt.Errorf("%w: %s: block size %d is not larger than %d bits; choose fewer blocks",
			ErrInvalidParameter, test, blockSize, length/100)
	}
	if blockSize < templateLength {
		return 0, fmt.Errorf("%w: %s: block size %d is smaller than template length %d",
			ErrInvalidParameter, test, blockSize, templateLength)
	}

	log.Printf("sts: %s: template length=%d, block size M=%d, block count N=%d",
		test, templateLength, blockSize, blocks)
	return blockSize, nil
}

// templateMoments returns the theoretical per-block occurrence mean
// (M - m + 1) / 2^m and variance M * (2^-m - (2m-1) * 2^-2m) shared across
// all m-bit templates.
func templateMoments(blockSize, templateLength int) (mean, variance float64) {
	templates := float64(int(1) << templateLength)
	m := float64(templateLength)

	mean = float64(blockSize-templateLength+1) / templates
	variance = float64(blockSize) * (1/templates - (2*m-1)/math.Pow(2, 2*m))
	return mean, variance
}
