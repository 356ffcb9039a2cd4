package testcase

import (
	"regexp"
	"strings"
)

// varPattern matches driver variable references in the format ${varname}.
// Examples: ${bin}, ${imagedir}, ${colorver}
var varPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// escapePlaceholder temporarily replaces escaped variable syntax ($${var})
// during interpolation so a test can pass a literal ${var} through to the
// shell. NUL bytes cannot appear in shell command strings or in YAML scalars
// decoded from test.yaml, so there is no collision with user data.
const escapePlaceholder = "\x00ESCAPED\x00"

// Interpolate substitutes ${name} references with values from vars.
// References with no entry in vars are left untouched: the command string is
// later handed to the shell, which owns any remaining ${VAR} expansions.
// $${name} always produces a literal ${name}.
func Interpolate(s string, vars map[string]string) string {
	if s == "" {
		return s
	}

	s = strings.ReplaceAll(s, "$${", escapePlaceholder+"{")

	s = varPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := varPattern.FindStringSubmatch(match)[1]
		if val, ok := vars[name]; ok {
			return val
		}
		return match
	})

	return strings.ReplaceAll(s, escapePlaceholder+"{", "${")
}
