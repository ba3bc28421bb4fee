package imgcli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyollb/imgcli/internal/history"
)

// MakeBatchCommand generates a directory-mode CLI command from a function
// with image/transform parameters. Each object parameter accepts either a
// single file (reused for every iteration) or a directory that is globbed;
// files from directory parameters are paired by filename stem and the
// load, call, write cycle runs once per matched set.
func MakeBatchCommand(name string, fn any, opts ...CommandOption) (*cobra.Command, error) {
	o := defaultCommandOptions()
	for _, opt := range opts {
		opt(&o)
	}

	spec, err := parseFunc(fn, o.outputArgName)
	if err != nil {
		return nil, fmt.Errorf("batch command %s: %w", name, err)
	}
	objects := spec.objects()
	if len(objects) == 0 {
		return nil, fmt.Errorf("batch command %s: function must have at least one image or transform parameter", name)
	}

	// The output-stem parameter drives output naming.
	outputStem := o.outputStem
	if outputStem == "" {
		outputStem = objects[0].Name
	}
	stemOK := false
	for _, p := range objects {
		if p.Name == outputStem {
			stemOK = true
			break
		}
	}
	if !stemOK {
		return nil, fmt.Errorf("batch command %s: output stem %q is not an image or transform parameter", name, outputStem)
	}

	needsOutput := spec.returns == retImage || spec.returns == retTransform

	cmd := &cobra.Command{
		Use:          buildBatchUse(name, spec, needsOutput),
		Short:        o.short,
		Args:         cobra.ExactArgs(batchPositionalCount(spec, needsOutput)),
		SilenceUsage: true,
		RunE:         runBatch(name, spec, &o, outputStem, needsOutput),
	}

	for _, p := range spec.params {
		switch p.Kind {
		case kindImage, kindTransform:
			if !p.Required {
				usage := fmt.Sprintf("Directory (glob: %s) or file. Optional, matched by stem if directory.", batchGlob(p, &o))
				cmd.Flags().StringP(p.Name, p.Short, "", usage)
			}
		default:
			if err := addParamFlag(cmd, p, &o); err != nil {
				return nil, fmt.Errorf("batch command %s: %w", name, err)
			}
		}
	}
	if needsOutput {
		cmd.Flags().String("output-template",
			o.outputTemplate,
			"Output filename template. Variables: {stem}, {suffix}, {name}")
	}
	addForceFlag(cmd, &o)

	return cmd, nil
}

func buildBatchUse(name string, spec *funcSpec, needsOutput bool) string {
	parts := []string{name}
	for _, p := range spec.objects() {
		if p.Required {
			parts = append(parts, strings.ToUpper(strings.ReplaceAll(p.Name, "-", "_")))
		}
	}
	if needsOutput {
		parts = append(parts, "OUTPUT_DIR")
	}
	return strings.Join(parts, " ")
}

func batchPositionalCount(spec *funcSpec, needsOutput bool) int {
	n := 0
	for _, p := range spec.objects() {
		if p.Required {
			n++
		}
	}
	if needsOutput {
		n++
	}
	return n
}

// batchGlob returns the glob used for a directory parameter: per-field tag
// first, then the per-kind default.
func batchGlob(p *paramSpec, o *commandOptions) string {
	if p.Glob != "" {
		return p.Glob
	}
	if p.Kind == kindTransform {
		return o.transformGlob
	}
	return o.imageGlob
}

func runBatch(cmdName string, spec *funcSpec, o *commandOptions, outputStem string, needsOutput bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()

		// Gather the path argument for each object parameter.
		paths := make(map[string]string)
		argIdx := 0
		for _, p := range spec.objects() {
			if p.Required {
				paths[p.Name] = args[argIdx]
				argIdx++
			} else if v, _ := flags.GetString(p.Name); v != "" {
				paths[p.Name] = v
			}
		}
		outputDir := ""
		template := o.outputTemplate
		if needsOutput {
			outputDir = args[argIdx]
			template, _ = flags.GetString("output-template")
		}

		// Separate single files (reused every iteration) from globbed
		// directory parameters.
		singleFiles := make(map[string]string)
		dirFiles := make(map[string][]string)
		required := make(map[string]bool)
		for _, p := range spec.objects() {
			path, ok := paths[p.Name]
			if !ok {
				continue
			}
			info, err := os.Stat(path)
			if err != nil {
				return fmt.Errorf("path does not exist: %s", path)
			}
			if !info.IsDir() {
				singleFiles[p.Name] = path
				continue
			}
			glob := batchGlob(p, o)
			files, err := filepath.Glob(filepath.Join(path, glob))
			if err != nil {
				return fmt.Errorf("invalid glob %q: %w", glob, err)
			}
			if len(files) == 0 {
				return fmt.Errorf("no files found matching %s", filepath.Join(path, glob))
			}
			sort.Strings(files)
			dirFiles[p.Name] = files
			if p.Required {
				required[p.Name] = true
			}
		}

		// Match files by stem across directory parameters.
		var stems []string
		var matches map[string]map[string]string
		if len(dirFiles) > 0 {
			stems, matches = matchByStem(dirFiles, required)
			if len(stems) == 0 {
				return fmt.Errorf("no matching files found across directory inputs: %s", strings.Join(dirParams(dirFiles), ", "))
			}
		} else {
			// No directory inputs: process the single files once.
			if len(singleFiles) == 0 {
				return fmt.Errorf("no input files provided")
			}
			stem, _ := SplitStem(singleFiles[outputStem])
			stems = []string{stem}
			matches = map[string]map[string]string{stem: {}}
		}

		if needsOutput {
			if err := os.MkdirAll(outputDir, 0o755); err != nil {
				return fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
			}
		}

		// Run history is best effort; a broken sink never fails the batch.
		hist := o.hist
		var runID int64
		if hist != nil {
			id, err := hist.StartRun(cmdName)
			if err != nil {
				slog.Warn("failed to record batch run", "error", err)
				hist = nil
			} else {
				runID = id
			}
		}

		start := time.Now()
		total := len(stems)
		slog.Info("starting batch processing",
			"command", cmdName,
			"total", total,
			"directory_params", len(dirFiles),
			"single_file_params", len(singleFiles))

		for idx, stem := range stems {
			files := make(map[string]string, len(singleFiles)+len(matches[stem]))
			for k, v := range singleFiles {
				files[k] = v
			}
			for k, v := range matches[stem] {
				files[k] = v
			}

			outputPath := ""
			if needsOutput {
				ref, ok := files[outputStem]
				if !ok {
					return fmt.Errorf("stem %s has no file for output-stem parameter %q", stem, outputStem)
				}
				outputPath = filepath.Join(outputDir, ExpandTemplate(template, ref))
			}

			fmt.Fprintf(cmd.OutOrStdout(), "[%d/%d] Processing %s...\n", idx+1, total, stem)
			itemStart := time.Now()

			if err := runBatchItem(cmd, spec, o, files, outputPath); err != nil {
				if hist != nil {
					// Record how many items were attempted, not the full match count.
					_ = hist.RecordItem(runID, history.Item{Stem: stem, Output: outputPath, Status: history.StatusFailed, Error: err.Error()})
					_ = hist.FinishRun(runID, idx+1, 1)
				}
				return fmt.Errorf("failed processing %s: %w", stem, err)
			}

			slog.Debug("batch item complete",
				"stem", stem,
				"output", outputPath,
				"duration_ms", time.Since(itemStart).Milliseconds())
			if hist != nil {
				_ = hist.RecordItem(runID, history.Item{Stem: stem, Output: outputPath, Status: history.StatusOK})
			}
			if outputPath != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "  saved to %s\n", filepath.Base(outputPath))
			}
		}

		if hist != nil {
			_ = hist.FinishRun(runID, total, 0)
		}
		slog.Info("batch processing complete",
			"command", cmdName,
			"total", total,
			"duration_ms", time.Since(start).Milliseconds())
		fmt.Fprintf(cmd.OutOrStdout(), "\nCompleted %d files\n", total)
		return nil
	}
}

func dirParams(dirFiles map[string][]string) []string {
	names := make([]string, 0, len(dirFiles))
	for name := range dirFiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// runBatchItem executes one matched set: load objects, bind scalar flags,
// call the function and write its result.
func runBatchItem(cmd *cobra.Command, spec *funcSpec, o *commandOptions, files map[string]string, outputPath string) error {
	var pv reflect.Value
	if spec.paramsType != nil {
		pv = reflect.New(spec.paramsType)
	}

	for _, p := range spec.params {
		switch p.Kind {
		case kindImage, kindTransform:
			path, ok := files[p.Name]
			if !ok {
				continue
			}
			if err := loadObjectField(pv, p, path); err != nil {
				return err
			}
		default:
			if err := bindFlagField(cmd, pv, p); err != nil {
				return err
			}
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
		if res.IsNil() || outputPath == "" {
			return nil
		}
		return writeOutput(cmd, res.Interface(), outputPath, o)
	case retScalar:
		fmt.Fprintln(cmd.OutOrStdout(), out[0].Interface())
	}
	return nil
}
