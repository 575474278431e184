// Package sts implements statistical randomness tests from NIST SP 800-22
// for scoring candidate bit strings produced by random and pseudorandom
// number generators. Each test validates its input up front, computes a
// single test statistic, and derives a p-value from the complementary error
// function or the upper regularized incomplete gamma function. A p-value
// below the acceptance threshold (conventionally 0.01) indicates that the
// sequence is non-random with respect to the property the test measures.
//
// Tests are pure functions of (sequence, parameters); they hold no state
// between calls and are safe to run concurrently over the same sequence.
package sts

// Test identifies a statistical test. The value doubles as the label used
// in logs, error messages, and metrics.
type Test string

const (
	TestFrequencyMonobit        Test = "frequency_monobit"
	TestFrequencyBlock          Test = "frequency_block"
	TestRuns                    Test = "runs"
	TestLongestRun              Test = "longest_run"
	TestOverlappingTemplate     Test = "overlapping_template"
	TestNonOverlappingTemplate  Test = "non_overlapping_template"
	TestCumulativeSumsForward   Test = "cumulative_sums_forward"
	TestCumulativeSumsBackward  Test = "cumulative_sums_backward"
)

// Recommended minimum sequence lengths in bits. Shorter sequences still run,
// with a warning that the p-value carries reduced statistical confidence.
const (
	recommendedMonobitBits   = 100
	recommendedBlockFreqBits = 100
	recommendedRunsBits      = 100
	recommendedCusumBits     = 100
	recommendedTemplateBits  = 1000000
)
