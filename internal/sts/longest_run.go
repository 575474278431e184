package sts

import (
	"fmt"
	"log"

	"gonum.org/v1/gonum/mathext"
)

// LongestRun performs the longest-run-of-ones-in-a-block test from
// SP 800-22 Section 2.4. The sequence is partitioned into N contiguous
// non-overlapping blocks of M bits (trailing remainder discarded), the
// longest run of consecutive ones in each block is tallied into merged
// outcome categories, and the counts are compared against the theoretical
// distribution with a chi-square statistic. The p-value is the upper
// regularized incomplete gamma function at (K/2, chi_square/2) where K+1
// is the number of merged categories.
//
// Sequences shorter than 128 bits fail with ErrUnsupportedLength.
func LongestRun(bitString string) (float64, error) {
	seq, length, err := evaluateSequence(TestLongestRun, bitString, minLongestRunBits)
	if err != nil {
		return 0, err
	}

	config, err := SelectLongestRunConfig(length)
	if err != nil {
		return 0, err
	}
	if got, want := len(config.Pi), config.MaxThreshold-config.MinThreshold+1; got != want {
		// Guarded here because a mismatched table would silently corrupt the
		// chi-square sum below.
		return 0, fmt.Errorf("%s: pi table has %d entries for %d merged categories", TestLongestRun, got, want)
	}

	distribution := NewOutcomeDistribution(config.MinThreshold, config.MaxThreshold)
	for block := 0; block < config.Blocks; block++ {
		distribution.Add(longestRunOfOnes(seq.Block(block, config.BlockSize)))
	}
	log.Printf("sts: %s: M=%d N=%d merged counts %v", TestLongestRun, config.BlockSize, config.Blocks, distribution.Counts())

	chiSquare := 0.0
	for i, count := range distribution.Counts() {
		expected := float64(config.Blocks) * config.Pi[i]
		diff := float64(count) - expected
		chiSquare += diff * diff / expected
	}

	k := float64(len(config.Pi) - 1)
	pValue := mathext.GammaIncRegComp(k/2, chiSquare/2)
	return pValue, nil
}

// longestRunOfOnes scans a block left to right and returns the maximum
// number of consecutive '1' symbols, resetting the running count on '0'.
func longestRunOfOnes(block string) int {
	maxRun := 0
	current := 0
	for i := 0; i < len(block); i++ {
		if block[i] == '1' {
			current++
			if current > maxRun {
				maxRun = current
			}
		} else {
			current = 0
		}
	}
	return maxRun
}
