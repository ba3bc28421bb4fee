package imgcli

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dyollb/imgcli/raster"
	"github.com/dyollb/imgcli/transform"
)

// writeOutput writes a returned image/transform object to path, honoring
// the overwrite policy and directory auto-creation.
func writeOutput(cmd *cobra.Command, obj any, path string, o *commandOptions) error {
	force := false
	if o.overwrite != OverwriteAlways {
		force, _ = cmd.Flags().GetBool("force")
	}
	if err := checkOverwrite(cmd, path, o.overwrite, force); err != nil {
		return err
	}

	if o.createDirs {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create output directory %s: %w", dir, err)
			}
		}
	}

	switch v := obj.(type) {
	case *raster.Image:
		return v.Write(path)
	case *transform.Transform:
		return v.Write(path)
	}
	return fmt.Errorf("unsupported output object type %T", obj)
}

// checkOverwrite enforces the overwrite policy for an existing output file.
func checkOverwrite(cmd *cobra.Command, path string, policy OverwritePolicy, force bool) error {
	if policy == OverwriteAlways || force {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	} else if err != nil {
		return fmt.Errorf("failed to stat output file %s: %w", path, err)
	}

	switch policy {
	case OverwriteNever:
		return fmt.Errorf("output file already exists: %s (use --force to overwrite)", path)
	case OverwritePrompt:
		fmt.Fprintf(cmd.OutOrStdout(), "Output file %s exists. Overwrite? [y/N]: ", path)
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("not overwriting existing file: %s", path)
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		if answer == "y" || answer == "yes" {
			slog.Debug("user confirmed overwrite", "path", path)
			return nil
		}
		return fmt.Errorf("not overwriting existing file: %s", path)
	}
	return nil
}
