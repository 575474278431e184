package sts

import (
	"fmt"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/mathext"
)

// OverlappingTemplate performs the overlapping template matching test from
// SP 800-22 Section 2.8. For every possible m-bit template, occurrences are
// counted in each of N blocks with an overlapping search: every window
// position that matches counts, so successive matches may share bits (the
// template "11" occurs twice in "111"). Each template's occurrence counts
// are reduced to a chi-square statistic against the shared theoretical mean
// and variance, and the reported p-value is the arithmetic mean of the
// per-template p-values across all 2^m templates.
//
// templateLength must lie in [2, 10] (9 or 10 recommended) and blocks must
// not exceed 100; the derived block size M = length/blocks must be larger
// than length/100. Violations fail with ErrInvalidParameter.
func OverlappingTemplate(bitString string, templateLength, blocks int) (float64, error) {
	seq, length, err := evaluateSequence(TestOverlappingTemplate, bitString, recommendedTemplateBits)
	if err != nil {
		return 0, err
	}

	blockSize, err := evaluateTemplateParams(TestOverlappingTemplate, length, templateLength, blocks)
	if err != nil {
		return 0, err
	}

	mean, variance := templateMoments(blockSize, templateLength)
	templates := 1 << templateLength

	// One pass per block over the m-bit sliding window yields the
	// overlapping occurrence count of every template at once.
	histograms := make([][]int, blocks)
	for block := 0; block < blocks; block++ {
		histograms[block] = windowHistogram(seq.Block(block, blockSize), templateLength)
	}

	pValues := make([]float64, templates)
	for template := 0; template < templates; template++ {
		chiSquare := 0.0
		for block := 0; block < blocks; block++ {
			diff := float64(histograms[block][template]) - mean
			chiSquare += diff * diff / variance
		}

		if chiSquare == 0 {
			// Exact agreement with expectation; the gamma evaluation would
			// degenerate here.
			pValues[template] = 1.0
			continue
		}
		pValues[template] = mathext.GammaIncRegComp(float64(blocks)/2, chiSquare/2)
	}

	meanPValue, err := stats.Mean(pValues)
	if err != nil {
		return 0, fmt.Errorf("%s: averaging per-template p-values: %w", TestOverlappingTemplate, err)
	}
	return meanPValue, nil
}

// windowHistogram counts, for every m-bit value, how many of the block's
// overlapping m-bit windows equal it. Index t corresponds to the template
// whose most significant bit is the leftmost sequence bit, matching the
// zero-padded binary enumeration of templates.
func windowHistogram(block string, m int) []int {
	histogram := make([]int, 1<<m)
	if len(block) < m {
		return histogram
	}

	mask := 1<<m - 1
	window := 0
	for i := 0; i < len(block); i++ {
		bit := 0
		if block[i] == '1' {
			bit = 1
		}
		window = (window<<1 | bit) & mask
		if i >= m-1 {
			histogram[window]++
		}
	}
	return histogram
}
