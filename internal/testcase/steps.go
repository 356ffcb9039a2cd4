package testcase

import "fmt"

// Step is one structured entry of the `steps` list: instead of spelling out
// a full shell command, a test names a toolkit operation and the driver
// expands it through the command builders, with the transcript redirect and
// standard flags filled in. A plain `run` step carries a raw command
// unchanged.
type Step struct {
	Run     string `yaml:"run"`     // Raw shell sub-command
	Info    string `yaml:"info"`    // Print metadata and hash for the file
	Tool    string `yaml:"tool"`    // pxtool argument line
	Convert string `yaml:"convert"` // pxconvert argument line
	MakeTex string `yaml:"maketx"`  // Build a texture from the file; requires out
	TexTest string `yaml:"textest"` // Sample the texture file
	RW      string `yaml:"rw"`      // Read/write round-trip exercise for the file

	Args      string `yaml:"args"` // Extra tool arguments
	Out       string `yaml:"out"`  // Output file (maketx target, rw copy name)
	SafeMatch bool   `yaml:"safematch"`
	Silent    bool   `yaml:"silent"`
	FailureOK bool   `yaml:"failure_ok"`
}

// stepActions lists which of the mutually exclusive action fields are set.
func (s Step) stepActions() []string {
	var actions []string
	for _, a := range []struct {
		name  string
		value string
	}{
		{"run", s.Run},
		{"info", s.Info},
		{"tool", s.Tool},
		{"convert", s.Convert},
		{"maketx", s.MakeTex},
		{"textest", s.TexTest},
		{"rw", s.RW},
	} {
		if a.value != "" {
			actions = append(actions, a.name)
		}
	}
	return actions
}

// validate checks the step is well formed. index is reported back to the
// test author, who wrote the list.
func (s Step) validate(index int) error {
	actions := s.stepActions()
	if len(actions) != 1 {
		return fmt.Errorf("steps[%d]: exactly one of run/info/tool/convert/maketx/textest/rw must be set, got %d", index, len(actions))
	}
	if s.MakeTex != "" && s.Out == "" {
		return fmt.Errorf("steps[%d]: maketx requires out", index)
	}
	return nil
}

// interpolated returns the step with driver variables substituted into every
// string field.
func (s Step) interpolated(vars map[string]string) Step {
	s.Run = Interpolate(s.Run, vars)
	s.Info = Interpolate(s.Info, vars)
	s.Tool = Interpolate(s.Tool, vars)
	s.Convert = Interpolate(s.Convert, vars)
	s.MakeTex = Interpolate(s.MakeTex, vars)
	s.TexTest = Interpolate(s.TexTest, vars)
	s.RW = Interpolate(s.RW, vars)
	s.Args = Interpolate(s.Args, vars)
	s.Out = Interpolate(s.Out, vars)
	return s
}
