package suite

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"randomness-scorer/internal/clock"
	"randomness-scorer/internal/metrics"
	"randomness-scorer/internal/sts"
	"randomness-scorer/testutil"
)

// balancedBlock has exactly eight ones per sixteen bits, so repeating it
// keeps the monobit statistic at zero and the gate open.
const balancedBlock = "0110100110010110"

func TestRunnerGateRejectsBiasedSequence(t *testing.T) {
	testutil.ResetRegistryForTest(t)

	runner := NewRunner()
	report, err := runner.Run(context.Background(), strings.Repeat("1", 200))
	require.NoError(t, err)

	require.False(t, report.GatePassed)
	require.False(t, report.AllPassed())
	require.Len(t, report.Results, 1)
	require.Equal(t, sts.TestFrequencyMonobit, report.Results[0].Test)
	require.False(t, report.Results[0].Passed)

	require.Equal(t, 1.0, promtestutil.ToFloat64(metrics.SuiteGateRejections))
	require.Equal(t, 1.0, promtestutil.ToFloat64(metrics.SuiteRuns))
}

func TestRunnerExecutesFullBattery(t *testing.T) {
	testutil.ResetRegistryForTest(t)

	runner := NewRunner()
	report, err := runner.Run(context.Background(), strings.Repeat(balancedBlock, 64))
	require.NoError(t, err)

	require.True(t, report.GatePassed)
	require.Len(t, report.Results, 8)

	expectedOrder := []sts.Test{
		sts.TestFrequencyMonobit,
		sts.TestFrequencyBlock,
		sts.TestRuns,
		sts.TestLongestRun,
		sts.TestOverlappingTemplate,
		sts.TestNonOverlappingTemplate,
		sts.TestCumulativeSumsForward,
		sts.TestCumulativeSumsBackward,
	}
	for i, result := range report.Results {
		require.Equal(t, expectedOrder[i], result.Test, "result slot %d", i)
		require.NoError(t, result.Err)
		require.GreaterOrEqual(t, result.PValue, 0.0)
		require.LessOrEqual(t, result.PValue, 1.0)
	}

	require.Equal(t, 1.0, promtestutil.ToFloat64(metrics.SuiteRuns))
}

func TestRunnerAbortsOnMalformedSequence(t *testing.T) {
	testutil.ResetRegistryForTest(t)

	runner := NewRunner()
	_, err := runner.Run(context.Background(), "0110a011")
	require.ErrorIs(t, err, sts.ErrInvalidInput)
}

func TestRunnerRecordsPerTestErrorsWithoutAborting(t *testing.T) {
	testutil.ResetRegistryForTest(t)

	// 80 balanced bits pass the gate but are too short for the
	// longest-run test, which requires 128 bits. The failure stays in its
	// result slot.
	runner := NewRunner()
	report, err := runner.Run(context.Background(), strings.Repeat(balancedBlock, 5))
	require.NoError(t, err)

	require.True(t, report.GatePassed)
	require.Len(t, report.Results, 8)

	for _, result := range report.Results {
		if result.Test == sts.TestLongestRun {
			require.ErrorIs(t, result.Err, sts.ErrUnsupportedLength)
			require.NotEmpty(t, result.Error)
			continue
		}
		require.NoError(t, result.Err, "test %s", result.Test)
	}
}

func TestRunnerHonorsCancelledContext(t *testing.T) {
	testutil.ResetRegistryForTest(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := NewRunner(WithParallelism(1))
	report, err := runner.Run(ctx, strings.Repeat(balancedBlock, 64))
	require.NoError(t, err)

	// The gate runs before dispatch; the parallel slots observe the
	// cancelled context.
	require.True(t, report.GatePassed)
	for _, result := range report.Results[1:] {
		require.ErrorIs(t, result.Err, context.Canceled)
	}
}

func TestNewRunnerOptions(t *testing.T) {
	fake := clock.NewFakeClock()
	runner := NewRunner(
		WithAlpha(0.05),
		WithTemplateParams(10, 4),
		WithParallelism(2),
		WithClock(fake),
	)

	params := runner.Params()
	require.Equal(t, 0.05, params.Alpha)
	require.Equal(t, 10, params.TemplateLength)
	require.Equal(t, 4, params.TemplateBlocks)
	require.Equal(t, 2, params.Parallelism)
}

func TestNewRunnerIgnoresInvalidOptions(t *testing.T) {
	runner := NewRunner(
		WithAlpha(0),
		WithAlpha(1.5),
		WithTemplateParams(-1, 0),
		WithParallelism(-3),
		WithClock(nil),
	)

	params := runner.Params()
	require.Equal(t, DefaultAlpha, params.Alpha)
	require.Equal(t, DefaultTemplateLength, params.TemplateLength)
	require.Equal(t, DefaultTemplateBlocks, params.TemplateBlocks)
	require.Positive(t, params.Parallelism)
}

func TestRunnerElapsedUsesClock(t *testing.T) {
	testutil.ResetRegistryForTest(t)

	fake := clock.NewFakeClock()
	runner := NewRunner(WithClock(fake), WithParallelism(1))

	report, err := runner.Run(context.Background(), strings.Repeat("1", 100))
	require.NoError(t, err)
	require.Equal(t, time.Duration(0), report.Elapsed)

	fake.Advance(3 * time.Second)
	report, err = runner.Run(context.Background(), strings.Repeat("1", 100))
	require.NoError(t, err)
	require.Equal(t, time.Duration(0), report.Elapsed)
}

func TestReportAllPassed(t *testing.T) {
	passing := Report{
		GatePassed: true,
		Results: []Result{
			{Test: sts.TestFrequencyMonobit, PValue: 0.5, Passed: true},
			{Test: sts.TestRuns, PValue: 0.3, Passed: true},
			{Test: sts.TestLongestRun, Err: errors.New("too short")},
		},
	}
	require.True(t, passing.AllPassed())

	failing := passing
	failing.Results = append([]Result(nil), passing.Results...)
	failing.Results[1] = Result{Test: sts.TestRuns, PValue: 0.001, Passed: false}
	require.False(t, failing.AllPassed())
}

func TestBlockFrequencySize(t *testing.T) {
	cases := []struct {
		length int
		want   int
	}{
		{length: 10, want: 10},
		{length: 100, want: 20},
		{length: 1280, want: 20},
		{length: 6400, want: 100},
		{length: 1000000, want: 15625},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, blockFrequencySize(tc.length), "length %d", tc.length)
	}
}
