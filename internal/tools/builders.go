package tools

import "strings"

// failureOKSuffix lets an expected failure keep the shell exit status clean.
const failureOKSuffix = " || true"

// safeMatchExclusions are metadata fields that change from run to run or
// release to release and must not participate in reference matching.
const safeMatchExclusions = `"DateTime|Software|OriginatingProgram|ImageHistory"`

// InfoOptions configures InfoCommand.
type InfoOptions struct {
	Program   string // Info, or Tool for "pxtool --info"; defaults to Tool
	ExtraArgs string
	SafeMatch bool // Exclude volatile metadata fields
	Hash      bool
	Verbose   bool
	Silent    bool
	FailureOK bool
}

// DefaultInfoOptions returns the usual info invocation: verbose, with a
// content hash. The hash is very unlikely to match unless the file was read
// correctly.
func DefaultInfoOptions() InfoOptions {
	return InfoOptions{Hash: true, Verbose: true}
}

// InfoCommand builds a command printing image metadata for file.
func InfoCommand(loc Locator, file string, opts InfoOptions) (string, error) {
	program := opts.Program
	if program == "" {
		program = Tool
	}
	bin, err := loc.Resolve(program)
	if err != nil {
		return "", err
	}

	var args []string
	if program == Tool {
		args = append(args, "--info")
	}
	if opts.Verbose {
		args = append(args, "-v", "-a")
	}
	if opts.SafeMatch {
		args = append(args, "--no-metamatch", safeMatchExclusions)
	}
	if opts.Hash {
		args = append(args, "--hash")
	}
	if opts.ExtraArgs != "" {
		args = append(args, opts.ExtraArgs)
	}
	args = append(args, file)

	cmd := bin + " " + strings.Join(args, " ")
	if !opts.Silent {
		cmd += redirect
	}
	if opts.FailureOK {
		cmd += failureOKSuffix
	}
	return cmd, nil
}

// ToolCommand builds a raw pxtool invocation.
func ToolCommand(loc Locator, argline string, silent, failureOK bool) (string, error) {
	return rawCommand(loc, Tool, argline, silent, failureOK)
}

// ConvertCommand builds a raw pxconvert invocation.
func ConvertCommand(loc Locator, argline string, silent, failureOK bool) (string, error) {
	return rawCommand(loc, Convert, argline, silent, failureOK)
}

func rawCommand(loc Locator, tool, argline string, silent, failureOK bool) (string, error) {
	bin, err := loc.Resolve(tool)
	if err != nil {
		return "", err
	}
	cmd := bin + " " + argline
	if !silent {
		cmd += redirect
	}
	if failureOK {
		cmd += failureOKSuffix
	}
	return cmd, nil
}

// MakeTexCommand builds a pxmktx invocation converting infile into the
// texture outfile.
func MakeTexCommand(loc Locator, infile, outfile, extraArgs string, silent bool) (string, error) {
	bin, err := loc.Resolve(MakeTex)
	if err != nil {
		return "", err
	}
	cmd := bin + " " + infile
	if extraArgs != "" {
		cmd += " " + extraArgs
	}
	cmd += " -o " + outfile
	if !silent {
		cmd += redirect
	}
	return cmd, nil
}

// TexTestCommand builds a pxtextest invocation sampling file.
func TexTestCommand(loc Locator, file, extraArgs string, silent bool) (string, error) {
	bin, err := loc.Resolve(TexTest)
	if err != nil {
		return "", err
	}
	cmd := bin + " " + file
	if extraArgs != "" {
		cmd += " " + extraArgs
	}
	if !silent {
		cmd += redirect
	}
	return cmd, nil
}
