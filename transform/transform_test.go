package transform

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const epsilon = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestIdentity(t *testing.T) {
	id := Identity()
	if !id.IsIdentity() {
		t.Error("Expected identity transform")
	}
	x, y := id.Apply(3, -7)
	if x != 3 || y != -7 {
		t.Errorf("Expected identity mapping, got (%g, %g)", x, y)
	}
}

func TestTranslationApply(t *testing.T) {
	tr := Translation(2, -5)
	x, y := tr.Apply(1, 1)
	if x != 3 || y != -4 {
		t.Errorf("Expected (3, -4), got (%g, %g)", x, y)
	}
}

func TestRotationApply(t *testing.T) {
	rot := Rotation(90)
	x, y := rot.Apply(1, 0)
	if !almostEqual(x, 0) || !almostEqual(y, 1) {
		t.Errorf("Expected (0, 1), got (%g, %g)", x, y)
	}
}

func TestScalingApply(t *testing.T) {
	sc := Scaling(2, 3)
	x, y := sc.Apply(4, 5)
	if x != 8 || y != 15 {
		t.Errorf("Expected (8, 15), got (%g, %g)", x, y)
	}
}

func TestCompose(t *testing.T) {
	// Scale first, then translate.
	composed := Scaling(2, 2).Compose(Translation(1, 1))
	x, y := composed.Apply(3, 4)
	wantX, wantY := 7.0, 9.0
	if !almostEqual(x, wantX) || !almostEqual(y, wantY) {
		t.Errorf("Expected (%g, %g), got (%g, %g)", wantX, wantY, x, y)
	}
}

func TestComposeOrderMatters(t *testing.T) {
	a := Rotation(90).Compose(Translation(1, 0))
	b := Translation(1, 0).Compose(Rotation(90))

	ax, ay := a.Apply(1, 0)
	bx, by := b.Apply(1, 0)
	if almostEqual(ax, bx) && almostEqual(ay, by) {
		t.Errorf("Expected different results for swapped composition order, got (%g, %g)", ax, ay)
	}
}

func TestInvertRoundTrip(t *testing.T) {
	tr := Rotation(30).Compose(Translation(5, -2)).Compose(Scaling(2, 0.5))
	inv, err := tr.Invert()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	x, y := tr.Apply(3, 4)
	gx, gy := inv.Apply(x, y)
	if !almostEqual(gx, 3) || !almostEqual(gy, 4) {
		t.Errorf("Expected round trip to (3, 4), got (%g, %g)", gx, gy)
	}
}

func TestInvertSingular(t *testing.T) {
	singular := Scaling(0, 1)
	if _, err := singular.Invert(); err == nil {
		t.Error("Expected error for singular transform")
	}
}

func TestReadWriteTFM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rigid.tfm")
	orig := Rotation(45).Compose(Translation(1.5, -2.25))
	if err := orig.Write(path); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	for i := range orig.Matrix {
		if !almostEqual(got.Matrix[i], orig.Matrix[i]) {
			t.Errorf("Matrix[%d]: Expected %g, got %g", i, orig.Matrix[i], got.Matrix[i])
		}
	}
	for i := range orig.Translation {
		if !almostEqual(got.Translation[i], orig.Translation[i]) {
			t.Errorf("Translation[%d]: Expected %g, got %g", i, orig.Translation[i], got.Translation[i])
		}
	}
}

func TestReadWriteYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rigid.yaml")
	orig := Translation(3, 4)
	orig.Name = "rigid"
	if err := orig.Write(path); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got.Name != "rigid" {
		t.Errorf("Expected name rigid, got %q", got.Name)
	}
	if got.Translation != [2]float64{3, 4} {
		t.Errorf("Expected translation (3, 4), got %v", got.Translation)
	}
}

func TestReadTFMCommentsAndBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sparse.tfm")
	content := `# generated transform

Transform: AffineTransform
Matrix: 1 0 0 1

# translation below
Translation: 2 3
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got.Translation != [2]float64{2, 3} {
		t.Errorf("Expected translation (2, 3), got %v", got.Translation)
	}
}

func TestReadTFMErrors(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{"malformed line", "Matrix 1 0 0 1\n", "malformed transform line"},
		{"unknown field", "Matrix: 1 0 0 1\nRadius: 5\n", "unknown transform field"},
		{"short matrix", "Matrix: 1 0 0\n", "invalid matrix"},
		{"bad number", "Matrix: 1 0 0 x\n", "invalid matrix"},
		{"missing matrix", "Transform: AffineTransform\n", "no Matrix line"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.tfm")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := Read(path)
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestReadUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transform.json")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Read(path)
	if err == nil || !strings.Contains(err.Error(), "unsupported transform format") {
		t.Errorf("Expected unsupported format error, got %v", err)
	}
}

func TestWriteUnsupportedExtension(t *testing.T) {
	err := Identity().Write(filepath.Join(t.TempDir(), "transform.json"))
	if err == nil || !strings.Contains(err.Error(), "unsupported transform format") {
		t.Errorf("Expected unsupported format error, got %v", err)
	}
}
