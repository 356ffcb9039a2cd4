package testcase

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	pxerrors "github.com/openpixel/pxtest/internal/errors"
	"github.com/openpixel/pxtest/internal/schema"
)

// ConfigName is the per-test configuration file name.
const ConfigName = "test.yaml"

// rawConfig mirrors test.yaml. Tolerance fields are pointers so absent keys
// fall back to suite defaults rather than zero.
type rawConfig struct {
	Command   string        `yaml:"command"`
	Steps     []Step        `yaml:"steps"`
	Outputs   []string      `yaml:"outputs"`
	FailureOK bool          `yaml:"failure_ok"`
	AnyMatch  bool          `yaml:"anymatch"`
	RefDirs   []string      `yaml:"ref_dirs"`
	Tolerance *rawTolerance `yaml:"tolerance"`
}

type rawTolerance struct {
	FailThreshold *float64 `yaml:"fail_threshold"`
	FailPercent   *float64 `yaml:"fail_percent"`
	HardFail      *float64 `yaml:"hard_fail"`
	AllowFailures *int     `yaml:"allow_failures"`
}

// knownKeys are the recognized top-level test.yaml keys, used for
// unknown-field warnings.
var knownKeys = map[string]bool{
	"command":    true,
	"steps":      true,
	"outputs":    true,
	"failure_ok": true,
	"anymatch":   true,
	"ref_dirs":   true,
	"tolerance":  true,
}

// Load reads, validates, and resolves the test configuration found in
// testDir. vars are substituted into the command string (see Interpolate).
// A malformed configuration is fatal: it indicates a broken test definition,
// not a runtime condition to recover from.
func Load(testDir string, vars map[string]string) (*TestCase, []string, error) {
	path := filepath.Join(testDir, ConfigName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, pxerrors.Configf("failed to read %s: %v", path, err)
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, pxerrors.Configf("failed to parse %s: %v", path, err)
	}

	if err := schema.ValidateTest(doc); err != nil {
		return nil, nil, pxerrors.Configf("%s: %v", path, err)
	}

	warnings := detectUnknownKeys(doc)

	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, nil, pxerrors.Configf("failed to parse %s: %v", path, err)
	}

	for i, step := range raw.Steps {
		if err := step.validate(i); err != nil {
			return nil, warnings, pxerrors.Configf("%s: %v", path, err)
		}
		raw.Steps[i] = step.interpolated(vars)
	}

	tc := &TestCase{
		Name:      filepath.Base(absDir(testDir)),
		Command:   Interpolate(raw.Command, vars),
		Steps:     raw.Steps,
		Outputs:   raw.Outputs,
		FailureOK: raw.FailureOK,
		AnyMatch:  raw.AnyMatch,
		RefDirs:   raw.RefDirs,
		Tolerance: resolveTolerance(raw.Tolerance),
	}
	applyDefaults(tc)

	if err := tc.Tolerance.Validate(); err != nil {
		return nil, warnings, pxerrors.Configf("%s: %v", path, err)
	}

	return tc, warnings, nil
}

// applyDefaults fills in the historical defaults: a test that declares no
// outputs still has its transcript verified, and references live in ref/.
func applyDefaults(tc *TestCase) {
	if len(tc.Outputs) == 0 {
		tc.Outputs = []string{"out.txt"}
	}
	if len(tc.RefDirs) == 0 {
		tc.RefDirs = []string{"ref"}
	}
}

// resolveTolerance overlays per-test overrides on the suite defaults.
func resolveTolerance(raw *rawTolerance) Tolerance {
	tol := DefaultTolerance()
	if raw == nil {
		return tol
	}
	if raw.FailThreshold != nil {
		tol.FailThreshold = *raw.FailThreshold
	}
	if raw.FailPercent != nil {
		tol.FailPercent = *raw.FailPercent
	}
	if raw.HardFail != nil {
		tol.HardFail = *raw.HardFail
	}
	if raw.AllowFailures != nil {
		tol.AllowFailures = *raw.AllowFailures
	}
	return tol
}

// detectUnknownKeys warns about unrecognized top-level keys. The schema
// accepts them (forward compatibility with newer drivers); the warning makes
// typos visible.
func detectUnknownKeys(doc any) []string {
	m, ok := doc.(map[string]any)
	if !ok {
		return nil
	}
	var warnings []string
	for key := range m {
		if !knownKeys[key] {
			warnings = append(warnings, fmt.Sprintf("unknown field %q in %s (ignored)", key, ConfigName))
		}
	}
	return warnings
}

func absDir(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return dir
	}
	return abs
}
