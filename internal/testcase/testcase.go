// Package testcase provides loading and validation of per-test configuration.
//
// Each test directory in the suite carries a test.yaml describing the
// composite command to run, the outputs to verify, and optional tolerance
// overrides. The loader replaces the historical practice of evaluating a
// per-test script: configuration is data, validated against an embedded
// schema before use.
package testcase

import (
	"fmt"
)

// Default comparison thresholds. The key: a test fails if more than
// FailPercent of pixel values differ by more than FailThreshold, or if even
// one pixel differs by more than HardFail.
const (
	DefaultFailThreshold = 0.004
	DefaultFailPercent   = 0.02
	DefaultHardFail      = 0.012
)

// Tolerance configures tolerant image comparison.
type Tolerance struct {
	FailThreshold float64 // Per-channel difference above which a pixel "fails"
	FailPercent   float64 // Percentage of pixels allowed to fail [0,100]
	HardFail      float64 // Any single pixel this wrong fails the comparison
	AllowFailures int     // Freebie failing pixels exempted from the count
}

// DefaultTolerance returns the suite-wide default thresholds.
func DefaultTolerance() Tolerance {
	return Tolerance{
		FailThreshold: DefaultFailThreshold,
		FailPercent:   DefaultFailPercent,
		HardFail:      DefaultHardFail,
		AllowFailures: 0,
	}
}

// Relaxed returns the tolerance with thresholds doubled. Used on CI and in
// debug builds where slight pixel differences are expected.
func (t Tolerance) Relaxed() Tolerance {
	t.FailThreshold *= 2
	t.HardFail *= 2
	t.FailPercent *= 2
	return t
}

// Validate checks the tolerance invariants.
func (t Tolerance) Validate() error {
	if t.HardFail < t.FailThreshold {
		return fmt.Errorf("hard_fail %v must be >= fail_threshold %v", t.HardFail, t.FailThreshold)
	}
	if t.FailPercent < 0 || t.FailPercent > 100 {
		return fmt.Errorf("fail_percent %v must be within [0,100]", t.FailPercent)
	}
	if t.AllowFailures < 0 {
		return fmt.Errorf("allow_failures %d must be >= 0", t.AllowFailures)
	}
	return nil
}

// TestCase is the immutable configuration of a single test, produced by Load.
type TestCase struct {
	Name      string    // Test name (directory basename)
	Command   string    // Composite command; sub-commands separated by ';'
	Steps     []Step    // Structured commands, expanded after the raw command
	Outputs   []string  // Ordered output files to verify
	FailureOK bool      // Non-zero tool exits are expected
	AnyMatch  bool      // Compare outputs against every file in each ref dir
	RefDirs   []string  // Reference directories, highest priority first
	Tolerance Tolerance // Image comparison thresholds
}
