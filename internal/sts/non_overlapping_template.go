package sts

import (
	"fmt"
	"strings"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/mathext"
)

// NonOverlappingTemplate performs the non-overlapping template matching
// test from SP 800-22 Section 2.7. It uses the same parameter validation
// and theoretical moments as the overlapping variant, but counts disjoint
// occurrences only: on a hit the search window restarts one past the end
// of the match, so matches never share bits (the template "11" occurs once
// in "111").
func NonOverlappingTemplate(bitString string, templateLength, blocks int) (float64, error) {
	seq, length, err := evaluateSequence(TestNonOverlappingTemplate, bitString, recommendedTemplateBits)
	if err != nil {
		return 0, err
	}

	blockSize, err := evaluateTemplateParams(TestNonOverlappingTemplate, length, templateLength, blocks)
	if err != nil {
		return 0, err
	}

	mean, variance := templateMoments(blockSize, templateLength)
	templates := 1 << templateLength

	pValues := make([]float64, templates)
	for template := 0; template < templates; template++ {
		pattern := fmt.Sprintf("%0*b", templateLength, template)

		chiSquare := 0.0
		for block := 0; block < blocks; block++ {
			count := disjointMatches(seq.Block(block, blockSize), pattern)
			diff := float64(count) - mean
			chiSquare += diff * diff / variance
		}

		if chiSquare == 0 {
			pValues[template] = 1.0
			continue
		}
		pValues[template] = mathext.GammaIncRegComp(float64(blocks)/2, chiSquare/2)
	}

	meanPValue, err := stats.Mean(pValues)
	if err != nil {
		return 0, fmt.Errorf("%s: averaging per-template p-values: %w", TestNonOverlappingTemplate, err)
	}
	return meanPValue, nil
}

// disjointMatches counts non-overlapping occurrences of pattern in block,
// resuming each search one past the end of the previous match.
func disjointMatches(block, pattern string) int {
	count := 0
	index := 0
	for {
		offset := strings.Index(block[index:], pattern)
		if offset < 0 {
			return count
		}
		count++
		index += offset + len(pattern)
	}
}
