package sts

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// CumulativeSums performs the cumulative sums test from SP 800-22
// Section 2.13. The sequence is interpreted as a random walk of +1/-1
// steps and z, the largest absolute partial sum, is compared against the
// excursion distribution of an unbiased walk via the standard normal CDF.
// With reverse set, the walk starts from the end of the sequence
// (backward mode); both modes are part of the battery.
func CumulativeSums(bitString string, reverse bool) (float64, error) {
	test := TestCumulativeSumsForward
	if reverse {
		test = TestCumulativeSumsBackward
	}

	seq, length, err := evaluateSequence(test, bitString, recommendedCusumBits)
	if err != nil {
		return 0, err
	}

	z := maxExcursion(seq, reverse)

	n := float64(length)
	zf := float64(z)
	sqrtN := math.Sqrt(n)
	normal := distuv.UnitNormal

	// The summation indices run over the integers inside a closed real
	// interval, so the lower bounds take a ceiling and the upper bounds a
	// floor.
	sum1 := 0.0
	for k := int(math.Ceil((-n/zf + 1) / 4)); k <= int(math.Floor((n/zf - 1) / 4)); k++ {
		kf := float64(k)
		sum1 += normal.CDF((4*kf+1)*zf/sqrtN) - normal.CDF((4*kf-1)*zf/sqrtN)
	}

	sum2 := 0.0
	for k := int(math.Ceil((-n/zf - 3) / 4)); k <= int(math.Floor((n/zf - 1) / 4)); k++ {
		kf := float64(k)
		sum2 += normal.CDF((4*kf+3)*zf/sqrtN) - normal.CDF((4*kf+1)*zf/sqrtN)
	}

	pValue := 1 - sum1 + sum2
	if pValue < 0 {
		pValue = 0
	}
	if pValue > 1 {
		pValue = 1
	}
	return pValue, nil
}

// maxExcursion walks the sequence (optionally from the end) adding +1 for
// each one and -1 for each zero, and returns the largest absolute partial
// sum reached. A non-empty sequence always yields at least 1.
func maxExcursion(seq Sequence, reverse bool) int {
	length := seq.Len()
	sum := 0
	max := 0
	for i := 0; i < length; i++ {
		pos := i
		if reverse {
			pos = length - 1 - i
		}
		if seq.Bit(pos) == 1 {
			sum++
		} else {
			sum--
		}
		if sum > max {
			max = sum
		} else if -sum > max {
			max = -sum
		}
	}
	return max
}
