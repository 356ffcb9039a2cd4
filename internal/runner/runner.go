// Package runner orchestrates test execution: per-test setup, command
// execution, reference matching, and reporting, plus a worker pool for
// batch runs across many test directories.
package runner

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/openpixel/pxtest/internal/cleanup"
	"github.com/openpixel/pxtest/internal/compare"
	pxerrors "github.com/openpixel/pxtest/internal/errors"
	"github.com/openpixel/pxtest/internal/executor"
	"github.com/openpixel/pxtest/internal/output"
	"github.com/openpixel/pxtest/internal/refmatch"
	"github.com/openpixel/pxtest/internal/report"
	"github.com/openpixel/pxtest/internal/suite"
	"github.com/openpixel/pxtest/internal/testcase"
	"github.com/openpixel/pxtest/internal/tools"
)

// EnvParallel sets the batch worker count.
const EnvParallel = "PXTEST_PARALLEL"

const (
	// defaultWorkers keeps batch runs sequential unless the environment
	// asks for a pool; test commands are free with the shared image dir
	// and the transcript layout assumes one test per directory at a time.
	defaultWorkers = 1

	minParallelWorkers = 1

	// maxParallelWorkers caps the pool. The work is subprocess-bound, so
	// far more workers than cores only thrashes the scheduler.
	maxParallelWorkers = 256
)

// Options configures a Runner.
type Options struct {
	BuildRoot string        // From --path; overrides the environment
	Wrapper   string        // Wrapper command prefixed to every toolkit invocation
	Relaxed   bool          // Force relaxed tolerances
	AnyMatch  bool          // Force anymatch reference search for every test
	Cleanup   bool          // Force cleanup-on-success
	Continue  bool          // Keep scheduling tests after a failure
	Locator   tools.Locator // Overrides the build-area locator; for tests
}

// Runner executes tests.
type Runner struct {
	opts Options
	out  *output.Writer
}

// New creates a Runner.
func New(out *output.Writer, opts Options) *Runner {
	return &Runner{opts: opts, out: out}
}

// TestResult is the outcome of one test directory.
type TestResult struct {
	Name          string
	Dir           string
	Passed        bool
	Skipped       bool     // Never scheduled after an earlier failure
	CommandFailed bool     // A sub-command exited non-zero (and was not failure_ok)
	Unmatched     []string // Outputs with no matching reference
	Duration      time.Duration
	Err           error // Setup or configuration failure; the test never ran
}

// Summary aggregates a batch run.
type Summary struct {
	Results  []TestResult
	Passed   int
	Failed   int
	Skipped  int
	Duration time.Duration
}

// RunTest executes the test in dir: resolve the environment, load the
// configuration, link the source tree, run the command, and match every
// declared output against its references.
func (r *Runner) RunTest(ctx context.Context, dir string) TestResult {
	start := time.Now()
	res := r.runTest(ctx, dir, true)
	res.Duration = time.Since(start)
	return res
}

// CheckTest re-verifies the outputs already sitting in dir against their
// references without running the test command. Useful after tweaking
// reference files or tolerances.
func (r *Runner) CheckTest(ctx context.Context, dir string) TestResult {
	start := time.Now()
	res := r.runTest(ctx, dir, false)
	res.Duration = time.Since(start)
	return res
}

func (r *Runner) runTest(ctx context.Context, dir string, execute bool) TestResult {
	result := TestResult{Dir: dir}

	sctx, err := suite.NewContext(suite.Options{
		WorkDir:   dir,
		BuildRoot: r.opts.BuildRoot,
		Relaxed:   r.opts.Relaxed,
	})
	if err != nil {
		result.Err = err
		return result
	}
	result.Name = sctx.TestName

	loc := r.opts.Locator
	if loc == nil {
		loc = tools.BinLocator{BuildRoot: sctx.BuildRoot, Wrapper: r.opts.Wrapper}
	}
	if sctx.ColorVer == "" {
		// Best effort. Tests that never reference ${colorver} run the
		// same with or without it.
		if ver, err := tools.ColorVersion(ctx, loc); err == nil {
			sctx.ColorVer = ver
		}
	}

	// The configuration lives in the test source dir; in-source runs have
	// it in the working dir itself.
	configDir := sctx.SrcDir
	if _, statErr := os.Stat(filepath.Join(configDir, testcase.ConfigName)); statErr != nil {
		configDir = sctx.WorkDir
	}
	tc, warnings, err := testcase.Load(configDir, sctx.Vars())
	if err != nil {
		result.Err = err
		return result
	}
	for _, w := range warnings {
		r.out.Warning("%s: %s", sctx.TestName, w)
	}

	tol := tc.Tolerance
	if sctx.Relaxed {
		tol = tol.Relaxed()
	}

	if err := sctx.Setup(); err != nil {
		result.Err = pxerrors.Wrap(err, "workspace setup failed")
		return result
	}

	r.out.TestStart(sctx.TestName)

	// Structured steps expand into shell sub-commands appended to the raw
	// command, so a test can mix both forms.
	command := tc.Command
	if len(tc.Steps) > 0 {
		expanded, err := tools.ExpandSteps(loc, tol, tc.Steps)
		if err != nil {
			result.Err = pxerrors.Wrap(err, "step expansion failed")
			return result
		}
		if command != "" {
			command += " ; "
		}
		command += expanded
	}

	if execute {
		exec := &executor.Executor{WorkDir: sctx.WorkDir, Loc: loc, Out: r.out}
		run, err := exec.Run(ctx, command, tc.FailureOK)
		if err != nil {
			result.Err = err
			return result
		}
		result.CommandFailed = run.Failed
	}

	comparators := compare.Set{
		Image:  &compare.ImageComparator{Loc: loc, Tol: tol, WorkDir: sctx.WorkDir},
		Text:   &compare.TextComparator{WorkDir: sctx.WorkDir},
		Binary: &compare.BinaryComparator{WorkDir: sctx.WorkDir},
	}
	finder := &refmatch.Finder{
		WorkDir:     sctx.WorkDir,
		RefDirs:     tc.RefDirs,
		Comparators: comparators,
		AnyMatch:    tc.AnyMatch || r.opts.AnyMatch,
	}
	rep := &report.Reporter{WorkDir: sctx.WorkDir, Loc: loc, Tol: tol, Out: r.out}

	// Every output is checked even after the first mismatch, so one run
	// reports everything that is wrong.
	for _, out := range tc.Outputs {
		m := finder.Find(out)
		if m.Matched {
			rep.Pass(ctx, out, m.Reference)
		} else {
			rep.Fail(ctx, out, m.Reference)
			result.Unmatched = append(result.Unmatched, out)
		}
	}

	result.Passed = !result.CommandFailed && len(result.Unmatched) == 0
	if !result.Passed {
		rep.DebugLog()
	} else if execute && (sctx.Cleanup || r.opts.Cleanup) {
		if _, err := cleanup.Clean(sctx.WorkDir); err != nil {
			r.out.Warning("%s: cleanup: %v", sctx.TestName, err)
		}
	}
	return result
}

// RunSuite executes every test directory through a bounded worker pool and
// prints the suite summary. By default the first failure stops scheduling
// further tests; Continue runs everything regardless.
func (r *Runner) RunSuite(ctx context.Context, dirs []string) Summary {
	start := time.Now()
	workers := r.parallelWorkers()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]TestResult, len(dirs))
	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)

	// The semaphore is acquired here rather than inside the goroutine so
	// tests are scheduled in input order and fail-fast skips everything
	// that was not yet dispatched.
	for i, dir := range dirs {
		select {
		case <-ctx.Done():
			results[i] = TestResult{Dir: dir, Skipped: true}
			continue
		case sem <- struct{}{}:
		}
		if ctx.Err() != nil {
			<-sem
			results[i] = TestResult{Dir: dir, Skipped: true}
			continue
		}

		wg.Add(1)
		go func(i int, dir string) {
			defer wg.Done()

			results[i] = r.RunTest(ctx, dir)
			if !results[i].Passed && !r.opts.Continue {
				cancel()
			}
			<-sem
		}(i, dir)
	}
	wg.Wait()

	summary := Summary{Results: results, Duration: time.Since(start)}
	for _, res := range results {
		switch {
		case res.Skipped:
			summary.Skipped++
		case res.Passed:
			summary.Passed++
		default:
			summary.Failed++
		}
	}
	r.printSummary(summary)
	return summary
}

func (r *Runner) printSummary(s Summary) {
	r.out.SummaryHeader("Test Summary")
	for _, res := range s.Results {
		name := res.Name
		if name == "" {
			name = res.Dir
		}
		switch {
		case res.Skipped:
			r.out.SummaryItem(name, "skipped (earlier failure)")
		case res.Err != nil:
			r.out.SummaryFailed(name, "ERROR: "+res.Err.Error())
		case res.Passed:
			r.out.SummaryPassed(name, "passed")
		case res.CommandFailed:
			r.out.SummaryFailed(name, "command failed")
		default:
			r.out.SummaryFailed(name, "unmatched: "+strconv.Itoa(len(res.Unmatched)))
		}
	}
	r.out.SummaryItem("Total", strconv.Itoa(len(s.Results)))
	r.out.SummaryItem("Passed", strconv.Itoa(s.Passed))
	r.out.SummaryItem("Failed", strconv.Itoa(s.Failed))
	if s.Skipped > 0 {
		r.out.SummaryItem("Skipped", strconv.Itoa(s.Skipped))
	}
	if s.Failed == 0 && s.Skipped == 0 {
		r.out.FinalSuccess("all %d tests passed", len(s.Results))
	} else {
		r.out.FinalFailure("%d of %d tests failed", s.Failed, len(s.Results))
	}
}

// parallelWorkers returns the pool size. Invalid values warn and fall back
// to sequential execution.
func (r *Runner) parallelWorkers() int {
	env := os.Getenv(EnvParallel)
	if env == "" {
		return defaultWorkers
	}

	n, err := strconv.Atoi(env)
	if err != nil {
		r.out.Warning("invalid %s value %q (not a number), using default", EnvParallel, env)
		return defaultWorkers
	}
	if n < minParallelWorkers || n > maxParallelWorkers {
		r.out.Warning("%s=%d out of range [%d-%d], using default", EnvParallel, n, minParallelWorkers, maxParallelWorkers)
		return defaultWorkers
	}
	return n
}
