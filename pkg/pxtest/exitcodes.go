// Package pxtest provides public constants for external tools and CI scripts
// integrating with the pxtest driver.
package pxtest

// Exit codes returned by the pxtest CLI.
// These constants allow wrapper scripts and CI jobs to check exit codes
// symbolically rather than using magic numbers.
const (
	// ExitSuccess indicates every sub-command succeeded (or was exempted)
	// and every output matched a reference.
	ExitSuccess = 0

	// ExitFailure indicates a test failure (command failed or an output did
	// not match any reference).
	ExitFailure = 1

	// ExitConfigError indicates a configuration error (malformed test.yaml,
	// schema validation failure, bad flags).
	ExitConfigError = 2

	// ExitEnvError indicates an environment error (build root missing, tool
	// binary not found, unreadable suite layout).
	ExitEnvError = 3
)
