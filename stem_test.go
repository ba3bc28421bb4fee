package imgcli

import (
	"reflect"
	"testing"
)

func TestSplitStem(t *testing.T) {
	cases := []struct {
		path   string
		stem   string
		suffix string
	}{
		{"image.png", "image", ".png"},
		{"dir/sub/image.png", "image", ".png"},
		{"volume.tar.gz", "volume", ".tar.gz"},
		{"noext", "noext", ""},
		{".hidden", ".hidden", ""},
		{".hidden.png", ".hidden", ".png"},
	}

	for _, tc := range cases {
		stem, suffix := SplitStem(tc.path)
		if stem != tc.stem || suffix != tc.suffix {
			t.Errorf("SplitStem(%q): Expected (%q, %q), got (%q, %q)",
				tc.path, tc.stem, tc.suffix, stem, suffix)
		}
	}
}

func TestExpandTemplate(t *testing.T) {
	cases := []struct {
		template string
		ref      string
		want     string
	}{
		{"{stem}{suffix}", "in/case1.png", "case1.png"},
		{"{stem}_seg{suffix}", "case1.tar.gz", "case1_seg.tar.gz"},
		{"copy-{name}", "a/b/case1.png", "copy-case1.png"},
	}

	for _, tc := range cases {
		if got := ExpandTemplate(tc.template, tc.ref); got != tc.want {
			t.Errorf("ExpandTemplate(%q, %q): Expected %q, got %q",
				tc.template, tc.ref, tc.want, got)
		}
	}
}

func TestMatchByStem(t *testing.T) {
	dirFiles := map[string][]string{
		"input": {"in/a.png", "in/b.png", "in/c.png"},
		"mask":  {"masks/a.png", "masks/c.png"},
	}
	required := map[string]bool{"input": true, "mask": true}

	stems, matches := matchByStem(dirFiles, required)

	want := []string{"a", "c"}
	if !reflect.DeepEqual(stems, want) {
		t.Fatalf("Expected stems %v, got %v", want, stems)
	}
	if matches["a"]["mask"] != "masks/a.png" {
		t.Errorf("Expected mask for stem a, got %q", matches["a"]["mask"])
	}
	if _, ok := matches["b"]; ok {
		t.Errorf("Expected stem b to be excluded, mask is missing")
	}
}

func TestMatchByStemOptionalParam(t *testing.T) {
	dirFiles := map[string][]string{
		"input": {"in/a.png", "in/b.png"},
		"mask":  {"masks/a.png"},
	}
	required := map[string]bool{"input": true}

	stems, matches := matchByStem(dirFiles, required)

	if len(stems) != 2 {
		t.Fatalf("Expected 2 stems with optional mask, got %v", stems)
	}
	if _, ok := matches["b"]["mask"]; ok {
		t.Errorf("Expected no mask entry for stem b")
	}
}

func TestMatchByStemNoOverlap(t *testing.T) {
	dirFiles := map[string][]string{
		"input": {"in/a.png"},
		"mask":  {"masks/b.png"},
	}
	required := map[string]bool{"input": true, "mask": true}

	stems, _ := matchByStem(dirFiles, required)
	if len(stems) != 0 {
		t.Errorf("Expected no complete matches, got %v", stems)
	}
}
