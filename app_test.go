package imgcli

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dyollb/imgcli/raster"
)

func TestAppRegisterAndExecute(t *testing.T) {
	dir := t.TempDir()
	input := writeTestImage(t, dir, "input.png")
	output := filepath.Join(dir, "output.png")

	app := NewApp("imgcli")
	if err := app.Register("threshold", thresholdFn); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	app.Root().SetOut(&bytes.Buffer{})
	app.Root().SetErr(&bytes.Buffer{})
	app.Root().SetArgs([]string{"threshold", input, output})
	if err := app.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if _, err := raster.Read(output); err != nil {
		t.Errorf("Expected readable output image, got %v", err)
	}
}

func TestAppDuplicateRegistration(t *testing.T) {
	app := NewApp("imgcli")
	if err := app.Register("threshold", thresholdFn); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	err := app.Register("threshold", thresholdFn)
	if !errors.Is(err, errDuplicateCommand) {
		t.Errorf("Expected duplicate command error, got %v", err)
	}
	err = app.RegisterBatch("threshold", thresholdFn)
	if !errors.Is(err, errDuplicateCommand) {
		t.Errorf("Expected duplicate command error for batch, got %v", err)
	}
}

func TestAppConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	input := writeTestImage(t, dir, "input.png")
	output := filepath.Join(dir, "output.png")

	cfg := DefaultConfig()
	cfg.Commands = []CommandDefaults{
		{Name: "threshold", Params: map[string]any{"level": 200}},
	}

	app := NewApp("imgcli", WithConfig(cfg))
	app.MustRegister("threshold", thresholdFn)

	app.Root().SetOut(&bytes.Buffer{})
	app.Root().SetArgs([]string{"threshold", input, output})
	if err := app.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
}

func TestAppHistorySubcommand(t *testing.T) {
	dir := t.TempDir()
	images := makeBatchDir(t, filepath.Join(dir, "images"), "a.png", "b.png")
	outDir := filepath.Join(dir, "out")

	cfg := DefaultConfig()
	cfg.History = HistoryConfig{Enabled: true, Path: filepath.Join(dir, "history.db")}

	app := NewApp("imgcli", WithConfig(cfg))
	defer app.Close()
	app.MustRegisterBatch("batch-threshold", thresholdFn)

	app.Root().SetOut(&bytes.Buffer{})
	app.Root().SetArgs([]string{"batch-threshold", images, outDir})
	if err := app.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	var out bytes.Buffer
	app.Root().SetOut(&out)
	app.Root().SetArgs([]string{"history"})
	if err := app.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.Contains(out.String(), "batch-threshold") {
		t.Errorf("Expected history listing to include the run, got %q", out.String())
	}
	if !strings.Contains(out.String(), "2 items") {
		t.Errorf("Expected 2 recorded items, got %q", out.String())
	}
}

func TestAppHistoryRecordsAbortedRun(t *testing.T) {
	dir := t.TempDir()
	images := makeBatchDir(t, filepath.Join(dir, "images"), "a.png", "b.png")
	outDir := filepath.Join(dir, "out")

	cfg := DefaultConfig()
	cfg.History = HistoryConfig{Enabled: true, Path: filepath.Join(dir, "history.db")}

	fn := func(p *struct {
		Input *raster.Image `cli:"input"`
	}) (*raster.Image, error) {
		return nil, errors.New("boom")
	}

	app := NewApp("imgcli", WithConfig(cfg))
	defer app.Close()
	app.MustRegisterBatch("always-fails", fn)

	app.Root().SetOut(&bytes.Buffer{})
	app.Root().SetErr(&bytes.Buffer{})
	app.Root().SetArgs([]string{"always-fails", images, outDir})
	if err := app.Execute(context.Background()); err == nil {
		t.Fatal("Expected batch run to fail")
	}

	// Aborted on the first of two matched items, so one attempted item.
	var out bytes.Buffer
	app.Root().SetOut(&out)
	app.Root().SetArgs([]string{"history"})
	if err := app.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.Contains(out.String(), "1 items") {
		t.Errorf("Expected 1 attempted item recorded, got %q", out.String())
	}
	if !strings.Contains(out.String(), "1 failed") {
		t.Errorf("Expected failure count recorded, got %q", out.String())
	}
}

func TestVerbosityLevel(t *testing.T) {
	cases := []struct {
		verbosity int
		want      slog.Level
	}{
		{0, slog.LevelWarn},
		{1, slog.LevelInfo},
		{2, slog.LevelDebug},
		{5, slog.LevelDebug},
	}
	for _, tc := range cases {
		if got := verbosityLevel(tc.verbosity); got != tc.want {
			t.Errorf("verbosityLevel(%d): Expected %v, got %v", tc.verbosity, tc.want, got)
		}
	}
}

func TestAppRootHelp(t *testing.T) {
	app := NewApp("imgcli")
	var out bytes.Buffer
	app.Root().SetOut(&out)
	app.Root().SetArgs([]string{})
	if err := app.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error on bare invocation, got %v", err)
	}
	if !strings.Contains(out.String(), "Usage:") {
		t.Errorf("Expected help output, got %q", out.String())
	}
}
