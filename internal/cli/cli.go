// Package cli provides command-line interface functionality for pxtest.
package cli

import (
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/openpixel/pxtest/internal/output"
	"github.com/openpixel/pxtest/internal/runner"
	"github.com/openpixel/pxtest/internal/suite"
	"github.com/openpixel/pxtest/pkg/pxtest"
)

// Version is set at build time.
var Version = "dev"

var out = output.New()

// Run executes the CLI with the given arguments and returns an exit code.
func Run(args []string) int {
	switch {
	case len(args) > 0 && (args[0] == "-h" || args[0] == "--help" || args[0] == "help"):
		printUsage()
		return pxtest.ExitSuccess
	case len(args) > 0 && (args[0] == "--version" || args[0] == "version"):
		fmt.Printf("pxtest %s\n", Version)
		return pxtest.ExitSuccess
	}

	opts, remaining, err := parseGlobalFlags(args)
	if err != nil {
		out.ErrorPrefix("%v", err)
		return pxtest.ExitConfigError
	}

	// Bare invocation runs the test in the current directory, the way the
	// driver is launched from a build-tree test dir.
	if len(remaining) == 0 {
		return cmdRun(nil, opts)
	}

	cmd := remaining[0]
	cmdArgs := remaining[1:]

	switch cmd {
	case "run":
		return cmdRun(cmdArgs, opts)
	case "check":
		return cmdCheck(cmdArgs, opts)
	case "fetch":
		return cmdFetch(cmdArgs)
	case "history":
		return cmdHistory(cmdArgs)
	case "clean":
		return cmdClean(cmdArgs)
	default:
		// Anything else is a list of test directories.
		return cmdRun(remaining, opts)
	}
}

// GlobalOptions holds parsed global flags.
type GlobalOptions struct {
	Path     string // Build root override
	Quiet    bool
	Verbose  bool
	NoColor  bool
	AnyMatch bool
	Relaxed  bool
	Continue bool
}

// parseGlobalFlags manually parses global flags from arguments.
//
// Manual parsing is used instead of the stdlib flag package because flags
// can appear anywhere in the argument list, mixed with test directories.
func parseGlobalFlags(args []string) (*GlobalOptions, []string, error) {
	opts := &GlobalOptions{}
	var remaining []string

	i := 0
	for i < len(args) {
		arg := args[i]

		switch {
		case arg == "--path":
			if i+1 >= len(args) {
				return nil, nil, fmt.Errorf("--path requires a value")
			}
			opts.Path = args[i+1]
			i += 2
		case len(arg) > len("--path=") && arg[:len("--path=")] == "--path=":
			opts.Path = arg[len("--path="):]
			i++
		case arg == "-q" || arg == "--quiet":
			opts.Quiet = true
			i++
		case arg == "-v" || arg == "--verbose":
			opts.Verbose = true
			i++
		case arg == "--no-color":
			opts.NoColor = true
			i++
		case arg == "--anymatch":
			opts.AnyMatch = true
			i++
		case arg == "--relaxed":
			opts.Relaxed = true
			i++
		case arg == "--continue":
			opts.Continue = true
			i++
		default:
			if len(arg) > 1 && arg[0] == '-' {
				return nil, nil, fmt.Errorf("unknown flag %q", arg)
			}
			remaining = append(remaining, arg)
			i++
		}
	}

	if opts.Quiet && opts.Verbose {
		return nil, nil, fmt.Errorf("--quiet and --verbose are mutually exclusive")
	}

	applyToOutput(opts)
	return opts, remaining, nil
}

func applyToOutput(opts *GlobalOptions) {
	out.SetQuiet(opts.Quiet)
	out.SetVerbose(opts.Verbose)
	if opts.NoColor {
		out.SetColor(false)
	}
}

func runnerOptions(opts *GlobalOptions) runner.Options {
	return runner.Options{
		BuildRoot: opts.Path,
		Relaxed:   opts.Relaxed,
		AnyMatch:  opts.AnyMatch,
		Continue:  opts.Continue,
	}
}

func printUsage() {
	w := out

	w.HelpTitle("pxtest - image toolkit regression test driver")

	w.HelpSection("Usage:")
	w.HelpUsage("pxtest [testdir...]          Run tests (current directory by default)")
	w.HelpUsage("pxtest <command> [args]")

	w.HelpSection("Commands:")
	w.HelpCommand("run [testdir...]", "Run one or more tests", 18)
	w.HelpCommand("check [testdir...]", "Re-verify existing outputs against references", 18)
	w.HelpCommand("fetch [dir]", "Download the shared reference-image pack (--bucket, --prefix)", 18)
	w.HelpCommand("history [test]", "Show recorded results from past runs", 18)
	w.HelpCommand("clean [testdir...]", "Delete generated outputs", 18)
	w.HelpCommand("version", "Show version information", 18)

	w.HelpSection("Global Flags:")
	w.HelpFlag("--path <dir>", "Toolkit build root (bin/ lives under it)", 14)
	w.HelpFlag("-q, --quiet", "Minimal output (errors only)", 14)
	w.HelpFlag("-v, --verbose", "Maximum detail", 14)
	w.HelpFlag("--no-color", "Disable colored output", 14)
	w.HelpFlag("--anymatch", "Accept any reference file as a match", 14)
	w.HelpFlag("--relaxed", "Double comparison tolerances", 14)
	w.HelpFlag("--continue", "Keep running tests after a failure", 14)
	w.HelpFlag("-h, --help", "Show this help", 14)

	w.HelpSection("Environment:")
	w.HelpEnvVar(suite.EnvBuildRoot, "Toolkit build root", 28)
	w.HelpEnvVar(suite.EnvSuiteRoot, "Testsuite source root", 28)
	w.HelpEnvVar(suite.EnvImageDir, "Shared reference-image directory", 28)
	w.HelpEnvVar(runner.EnvParallel, "Batch worker count", 28)

	w.HelpSection("Examples:")
	titleCase := cases.Title(language.English)
	w.HelpExample("pxtest run pxtool-copy", titleCase.String("run")+" a single test")
	w.HelpExample("pxtest --relaxed texture-*", titleCase.String("run")+" tests with doubled tolerances")
	w.HelpExample("pxtest check", titleCase.String("check")+" outputs without re-running commands")
	w.Println("")
}
