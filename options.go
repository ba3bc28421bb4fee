package imgcli

import (
	"fmt"

	"github.com/dyollb/imgcli/internal/history"
)

// Defaults used by MakeCommand and MakeBatchCommand.
const (
	defaultOutputArgName  = "output"
	defaultOutputTemplate = "{stem}{suffix}"
	defaultImageGlob      = "*.png"
	defaultTransformGlob  = "*.tfm"
)

// OverwritePolicy controls what happens when an output file already exists.
type OverwritePolicy int

const (
	// OverwriteAlways silently overwrites existing output files.
	OverwriteAlways OverwritePolicy = iota
	// OverwriteNever fails on existing output files unless --force is set.
	OverwriteNever
	// OverwritePrompt asks interactively; --force skips the prompt.
	OverwritePrompt
)

func (p OverwritePolicy) String() string {
	switch p {
	case OverwriteNever:
		return "never"
	case OverwritePrompt:
		return "prompt"
	default:
		return "always"
	}
}

// ParseOverwritePolicy converts a configuration string to a policy.
func ParseOverwritePolicy(s string) (OverwritePolicy, error) {
	switch s {
	case "", "always":
		return OverwriteAlways, nil
	case "never":
		return OverwriteNever, nil
	case "prompt":
		return OverwritePrompt, nil
	}
	return OverwriteAlways, fmt.Errorf("unknown overwrite policy: %q", s)
}

type commandOptions struct {
	short          string
	outputArgName  string
	overwrite      OverwritePolicy
	createDirs     bool
	outputTemplate string
	outputStem     string
	imageGlob      string
	transformGlob  string
	defaults       map[string]any
	hist           *history.Store
}

func defaultCommandOptions() commandOptions {
	return commandOptions{
		outputArgName:  defaultOutputArgName,
		overwrite:      OverwriteAlways,
		createDirs:     true,
		outputTemplate: defaultOutputTemplate,
		imageGlob:      defaultImageGlob,
		transformGlob:  defaultTransformGlob,
	}
}

// CommandOption customizes a generated command.
type CommandOption func(*commandOptions)

// WithShort sets the one-line description shown in help output.
func WithShort(short string) CommandOption {
	return func(o *commandOptions) { o.short = short }
}

// WithOutputArgName renames the synthesized output parameter.
func WithOutputArgName(name string) CommandOption {
	return func(o *commandOptions) { o.outputArgName = name }
}

// WithOverwrite sets the overwrite policy for output files. Policies other
// than OverwriteAlways add a --force/-f flag to the command.
func WithOverwrite(policy OverwritePolicy) CommandOption {
	return func(o *commandOptions) { o.overwrite = policy }
}

// WithCreateDirs controls automatic creation of output parent directories.
// Enabled by default.
func WithCreateDirs(enabled bool) CommandOption {
	return func(o *commandOptions) { o.createDirs = enabled }
}

// WithOutputTemplate sets the batch output filename template. Supported
// variables are {stem}, {suffix} and {name}.
func WithOutputTemplate(template string) CommandOption {
	return func(o *commandOptions) { o.outputTemplate = template }
}

// WithOutputStem selects which image/transform parameter drives batch output
// naming. Defaults to the first image/transform parameter.
func WithOutputStem(param string) CommandOption {
	return func(o *commandOptions) { o.outputStem = param }
}

// WithImageGlob sets the glob used for image directory parameters in batch
// mode.
func WithImageGlob(glob string) CommandOption {
	return func(o *commandOptions) { o.imageGlob = glob }
}

// WithTransformGlob sets the glob used for transform directory parameters in
// batch mode.
func WithTransformGlob(glob string) CommandOption {
	return func(o *commandOptions) { o.transformGlob = glob }
}

// WithDefaults overrides declared flag defaults with configuration values.
// Keys are CLI parameter names, values are coerced to the parameter type.
func WithDefaults(defaults map[string]any) CommandOption {
	return func(o *commandOptions) { o.defaults = defaults }
}

func withHistory(store *history.Store) CommandOption {
	return func(o *commandOptions) { o.hist = store }
}
