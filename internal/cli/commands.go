package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/openpixel/pxtest/internal/cleanup"
	pxerrors "github.com/openpixel/pxtest/internal/errors"
	"github.com/openpixel/pxtest/internal/history"
	"github.com/openpixel/pxtest/internal/refdata"
	"github.com/openpixel/pxtest/internal/runner"
	"github.com/openpixel/pxtest/internal/suite"
	"github.com/openpixel/pxtest/pkg/pxtest"
)

// EnvWrapper prefixes every toolkit invocation, e.g. a valgrind command.
const EnvWrapper = "PXTEST_WRAPPER"

// historyListLimit caps the default history listing.
const historyListLimit = 20

func cmdRun(dirs []string, opts *GlobalOptions) int {
	return runOrCheck(dirs, opts, true)
}

func cmdCheck(dirs []string, opts *GlobalOptions) int {
	return runOrCheck(dirs, opts, false)
}

func runOrCheck(dirs []string, opts *GlobalOptions, execute bool) int {
	if len(dirs) == 0 {
		dirs = []string{"."}
	}

	ropts := runnerOptions(opts)
	ropts.Wrapper = os.Getenv(EnvWrapper)
	r := runner.New(out, ropts)
	ctx := context.Background()

	var results []runner.TestResult
	if len(dirs) == 1 {
		var res runner.TestResult
		if execute {
			res = r.RunTest(ctx, dirs[0])
		} else {
			res = r.CheckTest(ctx, dirs[0])
		}
		if res.Err != nil {
			out.ErrorPrefix("%v", res.Err)
		}
		results = []runner.TestResult{res}
	} else {
		// Check mode re-verifies in place; the worker pool is only for
		// full runs.
		if !execute {
			for _, dir := range dirs {
				results = append(results, r.CheckTest(ctx, dir))
			}
		} else {
			summary := r.RunSuite(ctx, dirs)
			results = summary.Results
		}
	}

	if execute {
		recordHistory(dirs[0], results, opts)
	}
	return exitCodeFor(results)
}

// exitCodeFor maps results to the process exit code. Configuration and
// environment problems outrank plain test failures.
func exitCodeFor(results []runner.TestResult) int {
	code := pxtest.ExitSuccess
	for _, res := range results {
		switch {
		case res.Err != nil:
			if c := pxerrors.GetExitCode(res.Err); c > code {
				code = c
			}
		case !res.Passed && !res.Skipped:
			if code < pxtest.ExitFailure {
				code = pxtest.ExitFailure
			}
		}
	}
	return code
}

// recordHistory stores run outcomes in the history database. Strictly best
// effort; any problem is reported only in verbose mode.
func recordHistory(firstDir string, results []runner.TestResult, opts *GlobalOptions) {
	sctx, err := suite.NewContext(suite.Options{WorkDir: firstDir, BuildRoot: opts.Path})
	if err != nil {
		return
	}
	path := sctx.HistoryDBPath()
	if path == "" {
		return
	}

	db, err := history.Open(path)
	if err != nil {
		out.Verbose("history disabled: %v", err)
		return
	}
	defer db.Close()

	for _, res := range results {
		if res.Skipped || res.Name == "" {
			continue
		}
		run := history.Run{
			Test:          res.Name,
			Passed:        res.Passed,
			CommandFailed: res.CommandFailed,
			Unmatched:     len(res.Unmatched),
			Relaxed:       opts.Relaxed,
			Duration:      res.Duration,
		}
		if err := db.RecordRun(run); err != nil {
			out.Verbose("history: %v", err)
			return
		}
	}
}

// fetchOptions holds the parsed fetch arguments. Bucket and Prefix default
// to the environment, then to the public image pack.
type fetchOptions struct {
	Dest   string
	Bucket string
	Prefix string
}

// parseFetchArgs parses `fetch [--bucket B] [--prefix P] [dest]`, in the
// same manual style as the global flags.
func parseFetchArgs(args []string) (fetchOptions, error) {
	var opts fetchOptions

	i := 0
	for i < len(args) {
		arg := args[i]
		switch {
		case arg == "--bucket":
			if i+1 >= len(args) {
				return opts, fmt.Errorf("--bucket requires a value")
			}
			opts.Bucket = args[i+1]
			i += 2
		case len(arg) > len("--bucket=") && arg[:len("--bucket=")] == "--bucket=":
			opts.Bucket = arg[len("--bucket="):]
			i++
		case arg == "--prefix":
			if i+1 >= len(args) {
				return opts, fmt.Errorf("--prefix requires a value")
			}
			opts.Prefix = args[i+1]
			i += 2
		case len(arg) > len("--prefix=") && arg[:len("--prefix=")] == "--prefix=":
			opts.Prefix = arg[len("--prefix="):]
			i++
		default:
			if len(arg) > 1 && arg[0] == '-' {
				return opts, fmt.Errorf("unknown fetch flag %q", arg)
			}
			if opts.Dest != "" {
				return opts, fmt.Errorf("fetch takes at most one destination, got %q and %q", opts.Dest, arg)
			}
			opts.Dest = arg
			i++
		}
	}

	if opts.Dest == "" {
		opts.Dest = os.Getenv(suite.EnvImageDir)
	}
	if opts.Dest == "" {
		opts.Dest = "openpixel-images"
	}
	return opts, nil
}

func cmdFetch(args []string) int {
	fopts, err := parseFetchArgs(args)
	if err != nil {
		out.ErrorPrefix("%v", err)
		return pxtest.ExitConfigError
	}
	dest := fopts.Dest

	ctx := context.Background()
	f, err := refdata.New(ctx, dest, out)
	if err != nil {
		out.ErrorPrefix("%v", err)
		return pxtest.ExitEnvError
	}
	if fopts.Bucket != "" {
		f.Bucket = fopts.Bucket
	}
	if fopts.Prefix != "" {
		f.Prefix = fopts.Prefix
	}

	n, err := f.Fetch(ctx)
	if err != nil {
		out.ErrorPrefix("%v", err)
		return pxtest.ExitEnvError
	}
	out.Info("image pack up to date in %s (%d files fetched)", dest, n)
	return pxtest.ExitSuccess
}

func cmdHistory(args []string) int {
	sctx, err := suite.NewContext(suite.Options{WorkDir: "."})
	if err != nil {
		out.ErrorPrefix("%v", err)
		return pxtest.ExitEnvError
	}
	path := sctx.HistoryDBPath()
	if path == "" {
		out.ErrorPrefix("run history is disabled (%s=0 or no suite root)", suite.EnvHistoryOff)
		return pxtest.ExitEnvError
	}
	if _, statErr := os.Stat(path); statErr != nil {
		out.Info("no recorded runs yet")
		return pxtest.ExitSuccess
	}

	db, err := history.Open(path)
	if err != nil {
		out.ErrorPrefix("%v", err)
		return pxtest.ExitEnvError
	}
	defer db.Close()

	listOpts := history.ListOptions{Limit: historyListLimit}
	if len(args) > 0 {
		listOpts.Test = args[0]
	}
	runs, err := db.ListRuns(listOpts)
	if err != nil {
		out.ErrorPrefix("%v", err)
		return pxtest.ExitEnvError
	}
	if len(runs) == 0 {
		out.Info("no recorded runs")
		return pxtest.ExitSuccess
	}

	for _, r := range runs {
		status := "PASS"
		if !r.Passed {
			status = "FAIL"
			if r.CommandFailed {
				status = "FAIL (command)"
			}
		}
		var notes []string
		if r.Unmatched > 0 {
			notes = append(notes, fmt.Sprintf("%d unmatched", r.Unmatched))
		}
		if r.Relaxed {
			notes = append(notes, "relaxed")
		}
		line := fmt.Sprintf("%s  %-14s %-20s %s",
			r.RanAt.Local().Format(time.DateTime), status, r.Test, r.Duration.Round(time.Millisecond))
		if len(notes) > 0 {
			line += "  [" + strings.Join(notes, ", ") + "]"
		}
		out.Println("%s", line)
	}
	return pxtest.ExitSuccess
}

func cmdClean(dirs []string) int {
	if len(dirs) == 0 {
		dirs = []string{"."}
	}
	code := pxtest.ExitSuccess
	for _, dir := range dirs {
		n, err := cleanup.Clean(dir)
		if err != nil {
			out.ErrorPrefix("clean %s: %v", dir, err)
			code = pxtest.ExitEnvError
			continue
		}
		out.Info("cleaned %s (%d files removed)", dir, n)
	}
	return code
}
