package sts

import (
	"fmt"
	"log"
)

// Sequence is a candidate bit string that has passed symbol validation.
// It is logically immutable; the length is derived from the underlying
// string and used as the primary sizing input throughout the battery.
type Sequence struct {
	raw string
}

// ParseSequence validates a candidate bit string. It fails with
// ErrInvalidInput when the string is empty or contains any symbol other
// than '0' or '1'.
func ParseSequence(raw string) (Sequence, error) {
	if len(raw) == 0 {
		return Sequence{}, fmt.Errorf("%w: sequence is empty", ErrInvalidInput)
	}
	for i := 0; i < len(raw); i++ {
		if c := raw[i]; c != '0' && c != '1' {
			return Sequence{}, fmt.Errorf("%w: symbol %q at position %d", ErrInvalidInput, rune(c), i)
		}
	}
	return Sequence{raw: raw}, nil
}

// Len returns the number of bits in the sequence.
func (s Sequence) Len() int {
	return len(s.raw)
}

// Bit returns the bit at position i as 0 or 1.
func (s Sequence) Bit(i int) byte {
	if s.raw[i] == '1' {
		return 1
	}
	return 0
}

// Ones counts the set bits in the sequence.
func (s Sequence) Ones() int {
	ones := 0
	for i := 0; i < len(s.raw); i++ {
		if s.raw[i] == '1' {
			ones++
		}
	}
	return ones
}

// Block returns the idx-th contiguous non-overlapping block of size bits.
// Trailing bits that do not fill a whole block are never part of any block.
func (s Sequence) Block(idx, size int) string {
	return s.raw[idx*size : (idx+1)*size]
}

// String returns the raw bit string.
func (s Sequence) String() string {
	return s.raw
}

// evaluateSequence is the shared pre-test validation step. It parses the
// candidate string and returns the validated sequence and its length. When
// the length is below the test's recommended minimum the test still runs,
// but a warning notes the reduced statistical confidence of the result.
func evaluateSequence(test Test, raw string, recommendedBits int) (Sequence, int, error) {
	seq, err := ParseSequence(raw)
	if err != nil {
		return Sequence{}, 0, fmt.Errorf("%s: %w", test, err)
	}

	length := seq.Len()
	if length < recommendedBits {
		log.Printf("sts: %s: sequence has %d bits, recommended minimum is %d; p-value confidence is reduced",
			test, length, recommendedBits)
	}

	return seq, length, nil
}
