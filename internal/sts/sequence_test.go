package sts

import (
	"errors"
	"strings"
	"testing"
)

func TestParseSequenceRejectsMalformedInput(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{name: "empty", in: ""},
		{name: "digit out of range", in: "0102"},
		{name: "letter", in: "0101a101"},
		{name: "whitespace", in: "0101 101"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := ParseSequence(tc.in)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestParseSequenceAcceptsBinary(t *testing.T) {
	t.Parallel()

	seq, err := ParseSequence("1100101")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seq.Len() != 7 {
		t.Fatalf("expected length 7, got %d", seq.Len())
	}
	if seq.Ones() != 4 {
		t.Fatalf("expected 4 ones, got %d", seq.Ones())
	}
	if seq.Bit(0) != 1 || seq.Bit(2) != 0 {
		t.Fatalf("unexpected bit values: %d %d", seq.Bit(0), seq.Bit(2))
	}
}

func TestSequenceBlockPartitioning(t *testing.T) {
	t.Parallel()

	seq, err := ParseSequence("110010011")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Block size 4 leaves a single trailing bit outside every block.
	if got := seq.Block(0, 4); got != "1100" {
		t.Fatalf("block 0: expected 1100, got %s", got)
	}
	if got := seq.Block(1, 4); got != "1001" {
		t.Fatalf("block 1: expected 1001, got %s", got)
	}
}

func TestEvaluateSequenceRejectsInvalidBeforeComputing(t *testing.T) {
	t.Parallel()

	// Every test in the battery shares this validation path; a malformed
	// symbol must abort before any statistic is touched.
	for _, run := range []func() (float64, error){
		func() (float64, error) { return FrequencyMonobit("01201") },
		func() (float64, error) { return Runs("01201") },
		func() (float64, error) { return LongestRun(strings.Repeat("01", 63) + "2x") },
		func() (float64, error) { return FrequencyWithinBlock("01201", 2) },
		func() (float64, error) { return CumulativeSums("01201", false) },
		func() (float64, error) { return OverlappingTemplate("01201", 9, 2) },
		func() (float64, error) { return NonOverlappingTemplate("01201", 9, 2) },
	} {
		p, err := run()
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got p=%v err=%v", p, err)
		}
		if p != 0 {
			t.Fatalf("expected zero p-value alongside validation error, got %v", p)
		}
	}
}
