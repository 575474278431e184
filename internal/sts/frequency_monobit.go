package sts

import (
	"log"
	"math"
)

// FrequencyMonobit performs the frequency (monobit) test from SP 800-22
// Section 2.1. It measures how close the proportion of ones is to one half,
// as would be expected for a truly random sequence. The partial sum
// S_n = |#ones - #zeros| is normalized by sqrt(n) and the p-value is
// erfc(S_obs / sqrt(2)).
//
// Every other test in the battery assumes gross bit balance already holds,
// so an orchestrator should run this test first and skip the remaining
// battery when its p-value fails the acceptance threshold.
func FrequencyMonobit(bitString string) (float64, error) {
	seq, length, err := evaluateSequence(TestFrequencyMonobit, bitString, recommendedMonobitBits)
	if err != nil {
		return 0, err
	}

	ones := seq.Ones()
	zeros := length - ones
	log.Printf("sts: %s: sequence contains %d zeros and %d ones", TestFrequencyMonobit, zeros, ones)

	partialSum := float64(ones - zeros)
	observed := math.Abs(partialSum) / math.Sqrt(float64(length))

	pValue := math.Erfc(observed / math.Sqrt2)
	return pValue, nil
}
