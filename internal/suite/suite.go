// Package suite orchestrates the statistical test battery over a single
// bit sequence. The frequency monobit test runs first as a gate: a
// sequence whose global bias is already significant is rejected without
// spending time on the remaining tests. Surviving sequences have the rest
// of the battery dispatched concurrently with a bounded worker limit.
package suite

import (
	"context"
	"errors"
	"log"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"randomness-scorer/internal/clock"
	"randomness-scorer/internal/metrics"
	"randomness-scorer/internal/sts"
)

// Defaults applied by NewRunner when no option overrides them.
const (
	DefaultAlpha          = 0.01
	DefaultTemplateLength = 9
	DefaultTemplateBlocks = 8

	minBlockFrequencySize = 20
	blockFrequencyDivisor = 64
)

// Result captures the outcome of a single statistical test. When Err is
// set the test did not produce a usable statistic and PValue is zero;
// Passed is only meaningful for error-free results.
type Result struct {
	Test    sts.Test      `json:"test"`
	PValue  float64       `json:"p_value"`
	Passed  bool          `json:"passed"`
	Elapsed time.Duration `json:"elapsed"`
	Err     error         `json:"-"`
	Error   string        `json:"error,omitempty"`
}

// Report aggregates the results of one battery evaluation.
type Report struct {
	Results    []Result      `json:"results"`
	GatePassed bool          `json:"gate_passed"`
	Alpha      float64       `json:"alpha"`
	Elapsed    time.Duration `json:"elapsed"`
}

// AllPassed reports whether the gate held and every test that produced a
// statistic met the significance level. Tests that errored (for example an
// unsupported sequence length) do not count against the verdict; they are
// visible in Results for the caller to inspect.
func (r Report) AllPassed() bool {
	if !r.GatePassed {
		return false
	}
	for _, result := range r.Results {
		if result.Err == nil && !result.Passed {
			return false
		}
	}
	return true
}

// Params is a snapshot of a Runner's effective configuration.
type Params struct {
	Alpha          float64
	TemplateLength int
	TemplateBlocks int
	Parallelism    int
}

// Runner executes the battery with a fixed configuration. A Runner is
// immutable after construction and safe for concurrent use.
type Runner struct {
	alpha          float64
	templateLength int
	templateBlocks int
	parallelism    int
	clk            clock.Clock
}

// Option customizes a Runner at construction time.
type Option func(*Runner)

// WithAlpha overrides the significance level. Values outside (0, 1) are
// ignored.
func WithAlpha(alpha float64) Option {
	return func(r *Runner) {
		if alpha > 0 && alpha < 1 {
			r.alpha = alpha
		}
	}
}

// WithTemplateParams overrides the template length and block count used by
// the template matching tests. Non-positive values are ignored.
func WithTemplateParams(templateLength, blocks int) Option {
	return func(r *Runner) {
		if templateLength > 0 {
			r.templateLength = templateLength
		}
		if blocks > 0 {
			r.templateBlocks = blocks
		}
	}
}

// WithParallelism bounds the number of tests running concurrently after
// the gate. Non-positive values are ignored.
func WithParallelism(parallelism int) Option {
	return func(r *Runner) {
		if parallelism > 0 {
			r.parallelism = parallelism
		}
	}
}

// WithClock substitutes the time source, for deterministic tests.
func WithClock(clk clock.Clock) Option {
	return func(r *Runner) {
		if clk != nil {
			r.clk = clk
		}
	}
}

// NewRunner constructs a Runner with the default significance level of
// 0.01, the recommended 9-bit templates over 8 blocks, and one worker per
// CPU.
func NewRunner(opts ...Option) *Runner {
	runner := &Runner{
		alpha:          DefaultAlpha,
		templateLength: DefaultTemplateLength,
		templateBlocks: DefaultTemplateBlocks,
		parallelism:    runtime.NumCPU(),
		clk:            clock.RealClock{},
	}
	for _, opt := range opts {
		opt(runner)
	}
	return runner
}

// Params returns the Runner's effective configuration.
func (r *Runner) Params() Params {
	return Params{
		Alpha:          r.alpha,
		TemplateLength: r.templateLength,
		TemplateBlocks: r.templateBlocks,
		Parallelism:    r.parallelism,
	}
}

// Run evaluates the full battery over bitString. The frequency monobit
// test executes first; when its p-value falls below the significance
// level the report carries that single result with GatePassed false and
// no further tests run. Otherwise the remaining tests execute
// concurrently and the report lists every result in a fixed order.
//
// A malformed sequence aborts the whole run with an error wrapping
// sts.ErrInvalidInput. Errors from individual tests after the gate (for
// example a sequence too short for the longest-run test) are recorded in
// their result slot and do not abort the run.
func (r *Runner) Run(ctx context.Context, bitString string) (Report, error) {
	start := r.clk.Now()

	gate := r.execute(sts.TestFrequencyMonobit, func() (float64, error) {
		return sts.FrequencyMonobit(bitString)
	})
	if gate.Err != nil {
		return Report{}, gate.Err
	}

	report := Report{
		Alpha:      r.alpha,
		GatePassed: gate.Passed,
	}

	if !gate.Passed {
		log.Printf("suite: frequency gate rejected sequence (p=%.6f < alpha=%.3f), skipping remaining tests",
			gate.PValue, r.alpha)
		metrics.RecordSuiteGateRejection()
		report.Results = []Result{gate}
		report.Elapsed = r.clk.Now().Sub(start)
		metrics.RecordSuiteRun(report.Elapsed)
		return report, nil
	}

	blockSize := blockFrequencySize(len(bitString))
	tasks := []struct {
		test sts.Test
		run  func() (float64, error)
	}{
		{sts.TestFrequencyBlock, func() (float64, error) {
			return sts.FrequencyWithinBlock(bitString, blockSize)
		}},
		{sts.TestRuns, func() (float64, error) {
			return sts.Runs(bitString)
		}},
		{sts.TestLongestRun, func() (float64, error) {
			return sts.LongestRun(bitString)
		}},
		{sts.TestOverlappingTemplate, func() (float64, error) {
			return sts.OverlappingTemplate(bitString, r.templateLength, r.templateBlocks)
		}},
		{sts.TestNonOverlappingTemplate, func() (float64, error) {
			return sts.NonOverlappingTemplate(bitString, r.templateLength, r.templateBlocks)
		}},
		{sts.TestCumulativeSumsForward, func() (float64, error) {
			return sts.CumulativeSums(bitString, false)
		}},
		{sts.TestCumulativeSumsBackward, func() (float64, error) {
			return sts.CumulativeSums(bitString, true)
		}},
	}

	results := make([]Result, len(tasks)+1)
	results[0] = gate

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(r.parallelism)
	for i, task := range tasks {
		i, task := i, task
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i+1] = Result{Test: task.test, Err: err, Error: err.Error()}
				return nil
			}
			results[i+1] = r.execute(task.test, task.run)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return Report{}, err
	}

	report.Results = results
	report.Elapsed = r.clk.Now().Sub(start)
	metrics.RecordSuiteRun(report.Elapsed)
	return report, nil
}

// execute runs a single test, classifies the outcome against the
// significance level and records it.
func (r *Runner) execute(test sts.Test, run func() (float64, error)) Result {
	start := r.clk.Now()
	pValue, err := run()
	elapsed := r.clk.Now().Sub(start)

	if err != nil {
		log.Printf("suite: %s failed: %v", test, err)
		metrics.RecordTestError(string(test), failureReason(err))
		return Result{Test: test, Elapsed: elapsed, Err: err, Error: err.Error()}
	}

	passed := pValue >= r.alpha
	metrics.RecordTestResult(string(test), pValue, passed, elapsed)
	return Result{Test: test, PValue: pValue, Passed: passed, Elapsed: elapsed}
}

// blockFrequencySize derives the block size for the frequency-within-block
// test: one 64th of the sequence, floored at the recommended minimum of 20
// bits, and never larger than the sequence itself.
func blockFrequencySize(length int) int {
	size := length / blockFrequencyDivisor
	if size < minBlockFrequencySize {
		size = minBlockFrequencySize
	}
	if size > length {
		size = length
	}
	return size
}

// failureReason maps test errors onto stable metric labels.
func failureReason(err error) string {
	switch {
	case errors.Is(err, sts.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, sts.ErrUnsupportedLength):
		return "unsupported_length"
	case errors.Is(err, sts.ErrInvalidParameter):
		return "invalid_parameter"
	default:
		return "internal"
	}
}
