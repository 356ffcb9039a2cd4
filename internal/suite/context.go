// Package suite resolves the testsuite environment into an immutable Context.
//
// The driver historically leaned on module-level globals populated from
// environment variables. Here everything the executor, comparator, and
// reporter need is gathered once at startup and passed explicitly.
package suite

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	pxerrors "github.com/openpixel/pxtest/internal/errors"
)

// Environment variables consumed by the driver.
const (
	EnvSuiteRoot  = "PXTEST_SUITE_ROOT"             // Testsuite root directory
	EnvImageDir   = "PXTEST_IMAGEDIR"               // Shared reference-image pack
	EnvSrcDir     = "PXTEST_SRC"                    // Per-test source dir override
	EnvBuildRoot  = "PXTEST_BUILD_ROOT"             // Toolkit build area (bin/ lives here)
	EnvRelaxed    = "PXTEST_RELAXED"                // Force relaxed tolerances
	EnvCleanup    = "PXTEST_CLEANUP_ON_SUCCESS"     // Delete generated outputs on pass
	EnvColorVer   = "PXTEST_COLOR_VERSION_OVERRIDE" // Override the color-config version string
	EnvHistoryDB  = "PXTEST_HISTORY_DB"             // Run-history database path override
	EnvHistoryOff = "PXTEST_HISTORY"                // Set to 0 to disable run history
)

// Context carries the resolved testsuite environment for one test run.
// ColorVer may be filled in after construction, once the toolkit binaries
// have been located; everything else is fixed at construction.
type Context struct {
	TestName  string // Test name (working dir basename, ".batch" suffix stripped)
	WorkDir   string // Absolute working directory of the test
	SrcDir    string // Test source directory (test.yaml, ref/, src/)
	SuiteRoot string // Testsuite root
	ImageDir  string // Shared reference-image pack
	BuildRoot string // Toolkit build area
	Relaxed   bool   // Double comparison tolerances before any comparison
	Cleanup   bool   // Delete generated outputs after a passing run
	ColorVer  string // Color-config version substituted into commands
}

// Options configures Context resolution. Zero values defer to environment
// variables and layout conventions.
type Options struct {
	WorkDir   string
	BuildRoot string // From --path; overrides EnvBuildRoot
	Relaxed   bool   // From --relaxed; OR-ed with environment detection
	ColorVer  string // Pre-queried toolkit color-config version
}

// NewContext resolves a Context for the given working directory.
func NewContext(opts Options) (*Context, error) {
	workDir, err := filepath.Abs(opts.WorkDir)
	if err != nil {
		return nil, pxerrors.Environmentf("cannot resolve working directory: %v", err)
	}

	name := filepath.Base(workDir)
	// Batch variants share the source dir of the plain test.
	name = strings.TrimSuffix(name, ".batch")

	buildRoot := opts.BuildRoot
	if buildRoot == "" {
		buildRoot = os.Getenv(EnvBuildRoot)
	}
	if buildRoot == "" {
		buildRoot = filepath.Join(workDir, "..", "..")
	}
	buildRoot = filepath.Clean(buildRoot)

	suiteRoot := os.Getenv(EnvSuiteRoot)
	if suiteRoot == "" {
		// Assume the standard build-tree layout when run by hand from
		// build/testsuite/TEST.
		for _, probe := range []string{"../../../testsuite", "../../../../testsuite"} {
			candidate := filepath.Join(workDir, probe)
			if info, err := os.Stat(candidate); err == nil && info.IsDir() {
				suiteRoot = candidate
				break
			}
		}
	}
	suiteRoot = filepath.Clean(suiteRoot)

	imageDir := os.Getenv(EnvImageDir)
	if imageDir == "" {
		candidate := filepath.Join(workDir, "..", "openpixel-images")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			imageDir = candidate
		}
	}
	// Export the resolved dir so tool invocations can reference it.
	if imageDir != "" {
		os.Setenv(EnvImageDir, imageDir)
	}

	srcDir := os.Getenv(EnvSrcDir)
	if srcDir == "" {
		srcDir = filepath.Join(suiteRoot, name)
	}

	return &Context{
		TestName:  name,
		WorkDir:   workDir,
		SrcDir:    srcDir,
		SuiteRoot: suiteRoot,
		ImageDir:  imageDir,
		BuildRoot: buildRoot,
		Relaxed:   opts.Relaxed || relaxedFromEnv(),
		Cleanup:   cleanupFromEnv(),
		ColorVer:  colorVersion(opts.ColorVer),
	}, nil
}

// Vars returns the variable map substituted into test commands.
func (c *Context) Vars() map[string]string {
	return map[string]string{
		"bin":      filepath.Join(c.BuildRoot, "bin"),
		"root":     c.SuiteRoot,
		"imagedir": c.ImageDir,
		"src":      c.SrcDir,
		"colorver": c.ColorVer,
	}
}

// HistoryDBPath returns the run-history database path, or "" when history
// recording is disabled.
func (c *Context) HistoryDBPath() string {
	if v := os.Getenv(EnvHistoryOff); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n == 0 {
			return ""
		}
	}
	if path := os.Getenv(EnvHistoryDB); path != "" {
		return path
	}
	if c.SuiteRoot == "" || c.SuiteRoot == "." {
		return ""
	}
	return filepath.Join(c.SuiteRoot, ".pxtest", "history.db")
}

// relaxedFromEnv reports whether relaxed tolerances apply. Slight pixel
// differences are expected on remote CI machines and in debug builds.
func relaxedFromEnv() bool {
	return os.Getenv("CI") != "" || os.Getenv("DEBUG") != "" || os.Getenv(EnvRelaxed) != ""
}

func cleanupFromEnv() bool {
	n, err := strconv.Atoi(os.Getenv(EnvCleanup))
	return err == nil && n != 0
}

func colorVersion(queried string) string {
	if override := os.Getenv(EnvColorVer); override != "" {
		return override
	}
	return queried
}
