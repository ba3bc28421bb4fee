package transform

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Read loads a transform from a file. Supported extensions are .tfm
// (plain-text key/value) and .yaml/.yml.
func Read(path string) (*Transform, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read transform file %s: %w", path, err)
	}

	var t *Transform
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tfm":
		t, err = decodeTFM(data)
	case ".yaml", ".yml":
		t = &Transform{}
		err = yaml.Unmarshal(data, t)
	default:
		return nil, fmt.Errorf("unsupported transform format: %s", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode transform file %s: %w", path, err)
	}
	if t.Name == "" {
		t.Name = "AffineTransform"
	}
	slog.Debug("read transform file", "path", path, "name", t.Name)
	return t, nil
}

// Write encodes the transform into the format implied by the file extension
// and writes it to path.
func (t *Transform) Write(path string) error {
	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tfm":
		data = encodeTFM(t)
	case ".yaml", ".yml":
		data, err = yaml.Marshal(t)
	default:
		return fmt.Errorf("unsupported transform format: %s", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("failed to encode transform: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write transform file %s: %w", path, err)
	}
	slog.Debug("wrote transform file", "path", path, "name", t.Name)
	return nil
}

// encodeTFM renders the plain-text transform format:
//
//	Transform: AffineTransform
//	Matrix: 1 0 0 1
//	Translation: 0 0
func encodeTFM(t *Transform) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Transform: %s\n", t.Name)
	fmt.Fprintf(&sb, "Matrix: %g %g %g %g\n", t.Matrix[0], t.Matrix[1], t.Matrix[2], t.Matrix[3])
	fmt.Fprintf(&sb, "Translation: %g %g\n", t.Translation[0], t.Translation[1])
	return []byte(sb.String())
}

func decodeTFM(data []byte) (*Transform, error) {
	t := Identity()
	sawMatrix := false

	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, ":")
		if !found {
			return nil, fmt.Errorf("malformed transform line: %q", line)
		}
		value = strings.TrimSpace(value)

		switch strings.TrimSpace(key) {
		case "Transform":
			t.Name = value
		case "Matrix":
			vals, err := parseFloats(value, 4)
			if err != nil {
				return nil, fmt.Errorf("invalid matrix: %w", err)
			}
			copy(t.Matrix[:], vals)
			sawMatrix = true
		case "Translation":
			vals, err := parseFloats(value, 2)
			if err != nil {
				return nil, fmt.Errorf("invalid translation: %w", err)
			}
			copy(t.Translation[:], vals)
		default:
			return nil, fmt.Errorf("unknown transform field: %q", key)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if !sawMatrix {
		return nil, fmt.Errorf("transform file has no Matrix line")
	}
	return t, nil
}

func parseFloats(s string, n int) ([]float64, error) {
	fields := strings.Fields(s)
	if len(fields) != n {
		return nil, fmt.Errorf("expected %d values, got %d", n, len(fields))
	}
	vals := make([]float64, n)
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("value %q: %w", f, err)
		}
		vals[i] = v
	}
	return vals, nil
}
