package sts

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestFrequencyWithinBlockReferenceSequence(t *testing.T) {
	t.Parallel()

	// SP 800-22 Section 2.2.4 worked example: epsilon = 0110011010 with
	// M = 3 gives chi_square = 1 and p-value = 0.801252.
	p, err := FrequencyWithinBlock("0110011010", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(p-0.801252) > 1e-6 {
		t.Fatalf("expected p-value 0.801252, got %.6f", p)
	}
}

func TestFrequencyWithinBlockBalancedBlocks(t *testing.T) {
	t.Parallel()

	// Every block holds exactly half ones, so chi_square is zero and the
	// p-value is exactly 1.
	p, err := FrequencyWithinBlock(strings.Repeat("01", 50), 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != 1 {
		t.Fatalf("expected p-value 1, got %v", p)
	}
}

func TestFrequencyWithinBlockConstantSequence(t *testing.T) {
	t.Parallel()

	p, err := FrequencyWithinBlock(strings.Repeat("1", 200), 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p < 0 || p > 1e-10 {
		t.Fatalf("expected a p-value near zero, got %v", p)
	}
}

func TestFrequencyWithinBlockRejectsBadBlockSize(t *testing.T) {
	cases := []struct {
		name      string
		blockSize int
	}{
		{name: "zero", blockSize: 0},
		{name: "negative", blockSize: -4},
		{name: "exceeds length", blockSize: 11},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			p, err := FrequencyWithinBlock("0110011010", tc.blockSize)
			if !errors.Is(err, ErrInvalidParameter) {
				t.Fatalf("expected ErrInvalidParameter, got p=%v err=%v", p, err)
			}
		})
	}
}
