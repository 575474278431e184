package sts

import (
	"log"
	"math"
)

// Runs performs the runs test from SP 800-22 Section 2.3. It counts the
// uninterrupted sequences of identical bits and compares the total against
// the count expected for a random sequence with the observed proportion of
// ones. When the proportion itself deviates from one half by at least
// tau = 2/sqrt(n), the test is not applicable and the p-value is 0.0 by
// definition, since the monobit precondition has already failed.
func Runs(bitString string) (float64, error) {
	seq, length, err := evaluateSequence(TestRuns, bitString, recommendedRunsBits)
	if err != nil {
		return 0, err
	}

	n := float64(length)
	proportion := float64(seq.Ones()) / n
	tau := 2 / math.Sqrt(n)
	if math.Abs(proportion-0.5) >= tau {
		log.Printf("sts: %s: proportion of ones %.4f deviates from 1/2 by at least tau=%.4f; p-value is 0 by definition",
			TestRuns, proportion, tau)
		return 0, nil
	}

	runs := 1
	for i := 1; i < length; i++ {
		if seq.Bit(i) != seq.Bit(i-1) {
			runs++
		}
	}

	expected := 2 * n * proportion * (1 - proportion)
	pValue := math.Erfc(math.Abs(float64(runs)-expected) / (2 * math.Sqrt(2*n) * proportion * (1 - proportion)))
	return pValue, nil
}
