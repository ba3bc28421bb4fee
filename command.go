package imgcli

import (
	"fmt"
	"log/slog"
	"reflect"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dyollb/imgcli/raster"
	"github.com/dyollb/imgcli/transform"
)

// MakeCommand generates a CLI command from a function with image/transform
// parameters. Image and transform parameters are replaced with file-path
// arguments; at invocation time each path is loaded into the in-memory
// object, the function is called, and a returned object is written to the
// output path.
func MakeCommand(name string, fn any, opts ...CommandOption) (*cobra.Command, error) {
	o := defaultCommandOptions()
	for _, opt := range opts {
		opt(&o)
	}

	spec, err := parseFunc(fn, o.outputArgName)
	if err != nil {
		return nil, fmt.Errorf("command %s: %w", name, err)
	}

	cmd := &cobra.Command{
		Use:          buildUse(name, spec),
		Short:        o.short,
		Args:         cobra.ExactArgs(positionalCount(spec)),
		SilenceUsage: true,
		RunE:         runSingle(spec, &o),
	}

	for _, p := range spec.params {
		if p.Positional {
			continue
		}
		if err := addParamFlag(cmd, p, &o); err != nil {
			return nil, fmt.Errorf("command %s: %w", name, err)
		}
	}
	if spec.output != nil && !spec.output.Positional {
		cmd.Flags().String(o.outputArgName, "", "Output file path")
	}
	addForceFlag(cmd, &o)

	return cmd, nil
}

// buildUse renders the cobra Use line with uppercase positional argument
// placeholders, e.g. "threshold INPUT OUTPUT".
func buildUse(name string, spec *funcSpec) string {
	parts := []string{name}
	for _, p := range spec.positional {
		parts = append(parts, strings.ToUpper(strings.ReplaceAll(p.Name, "-", "_")))
	}
	if spec.output != nil && spec.output.Positional {
		parts = append(parts, strings.ToUpper(spec.output.Name))
	}
	return strings.Join(parts, " ")
}

func positionalCount(spec *funcSpec) int {
	n := len(spec.positional)
	if spec.output != nil && spec.output.Positional {
		n++
	}
	return n
}

// addParamFlag registers a named parameter as a cobra flag. Declared
// defaults can be overridden by configuration values.
func addParamFlag(cmd *cobra.Command, p *paramSpec, o *commandOptions) error {
	flags := cmd.Flags()
	usage := p.Usage

	switch p.Kind {
	case kindImage, kindTransform:
		if usage == "" {
			usage = fmt.Sprintf("Path to %s file", p.Kind)
		}
		flags.StringP(p.Name, p.Short, "", usage)
	case kindFlag:
		def, _ := strconv.ParseBool(p.Default)
		if o.defaults != nil {
			def = getBoolParam(o.defaults, p.Name, def)
		}
		flags.BoolP(p.Name, p.Short, def, usage)
	case kindScalar:
		if err := addScalarFlag(flags, p, o); err != nil {
			return err
		}
	}

	required := p.Required
	if _, ok := o.defaults[p.Name]; ok && p.Kind != kindImage && p.Kind != kindTransform {
		// A configured default satisfies a required scalar.
		required = false
	}
	if required {
		if err := cmd.MarkFlagRequired(p.Name); err != nil {
			return fmt.Errorf("failed to mark flag %s required: %w", p.Name, err)
		}
	}
	return nil
}

func addScalarFlag(flags *pflag.FlagSet, p *paramSpec, o *commandOptions) error {
	switch p.Type.Kind() {
	case reflect.String:
		def := p.Default
		if o.defaults != nil {
			def = getStringParam(o.defaults, p.Name, def)
		}
		flags.StringP(p.Name, p.Short, def, p.Usage)
	case reflect.Int:
		def := 0
		if p.HasDefault {
			def, _ = strconv.Atoi(p.Default)
		}
		if o.defaults != nil {
			def = getIntParam(o.defaults, p.Name, def)
		}
		flags.IntP(p.Name, p.Short, def, p.Usage)
	case reflect.Int64:
		var def int64
		if p.HasDefault {
			def, _ = strconv.ParseInt(p.Default, 10, 64)
		}
		if o.defaults != nil {
			def = int64(getIntParam(o.defaults, p.Name, int(def)))
		}
		flags.Int64P(p.Name, p.Short, def, p.Usage)
	case reflect.Float64:
		var def float64
		if p.HasDefault {
			def, _ = strconv.ParseFloat(p.Default, 64)
		}
		if o.defaults != nil {
			def = getFloatParam(o.defaults, p.Name, def)
		}
		flags.Float64P(p.Name, p.Short, def, p.Usage)
	default:
		return fmt.Errorf("flag %s: %s: %w", p.Name, p.Type, errUnsupportedField)
	}
	return nil
}

func addForceFlag(cmd *cobra.Command, o *commandOptions) {
	if o.overwrite != OverwriteAlways {
		cmd.Flags().BoolP("force", "f", false, "Force overwrite of existing output files")
	}
}

// runSingle implements the load, call, write cycle of one CLI invocation.
func runSingle(spec *funcSpec, o *commandOptions) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		var pv reflect.Value
		if spec.paramsType != nil {
			pv = reflect.New(spec.paramsType)
		}

		// Positional arguments: object paths in declaration order, then output.
		argIdx := 0
		for _, p := range spec.positional {
			path := args[argIdx]
			argIdx++
			if err := loadObjectField(pv, p, path); err != nil {
				return err
			}
		}
		outputPath := ""
		if spec.output != nil {
			if spec.output.Positional {
				outputPath = args[argIdx]
			} else {
				outputPath, _ = cmd.Flags().GetString(o.outputArgName)
			}
		}

		// Named parameters from flags.
		for _, p := range spec.params {
			if p.Positional {
				continue
			}
			if err := bindFlagField(cmd, pv, p); err != nil {
				return err
			}
		}

		if pv.IsValid() {
			if err := validateParams(pv.Interface()); err != nil {
				return err
			}
		}

		var in []reflect.Value
		if spec.wantsCtx {
			in = append(in, reflect.ValueOf(cmd.Context()))
		}
		if pv.IsValid() {
			in = append(in, pv)
		}

		out := spec.fn.Call(in)
		if errVal := out[len(out)-1]; !errVal.IsNil() {
			return errVal.Interface().(error)
		}

		switch spec.returns {
		case retImage, retTransform:
			res := out[0]
			if res.IsNil() {
				slog.Warn("function returned no result, nothing written")
				return nil
			}
			if outputPath == "" {
				slog.Warn("no output path provided, result discarded")
				return nil
			}
			return writeOutput(cmd, res.Interface(), outputPath, o)
		case retScalar:
			fmt.Fprintln(cmd.OutOrStdout(), out[0].Interface())
		}
		return nil
	}
}

// loadObjectField loads the file at path into an image/transform field.
func loadObjectField(pv reflect.Value, p *paramSpec, path string) error {
	field := pv.Elem().Field(p.Field)
	switch p.Kind {
	case kindImage:
		img, err := raster.Read(path)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(img))
	case kindTransform:
		t, err := transform.Read(path)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(t))
	default:
		return fmt.Errorf("parameter %s is not an object parameter", p.Name)
	}
	return nil
}

// bindFlagField copies a parsed flag value into its params struct field.
// Optional image/transform flags left empty stay nil.
func bindFlagField(cmd *cobra.Command, pv reflect.Value, p *paramSpec) error {
	flags := cmd.Flags()

	if p.Kind == kindImage || p.Kind == kindTransform {
		path, _ := flags.GetString(p.Name)
		if path == "" {
			return nil
		}
		return loadObjectField(pv, p, path)
	}

	field := pv.Elem().Field(p.Field)
	switch p.Type.Kind() {
	case reflect.String:
		v, _ := flags.GetString(p.Name)
		field.SetString(v)
	case reflect.Int:
		v, _ := flags.GetInt(p.Name)
		field.SetInt(int64(v))
	case reflect.Int64:
		v, _ := flags.GetInt64(p.Name)
		field.SetInt(v)
	case reflect.Float64:
		v, _ := flags.GetFloat64(p.Name)
		field.SetFloat(v)
	case reflect.Bool:
		v, _ := flags.GetBool(p.Name)
		field.SetBool(v)
	}
	return nil
}
