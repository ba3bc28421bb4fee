package imgcli

import (
	"path/filepath"
	"sort"
	"strings"
)

// SplitStem splits a file path into the stem of its base name and the full
// extension-chain suffix, so compound suffixes survive: "a/b.tar.gz" yields
// ("b", ".tar.gz"). Dotfiles keep their leading dot in the stem.
func SplitStem(path string) (stem, suffix string) {
	base := filepath.Base(path)
	if base == "" || base == "." {
		return base, ""
	}
	// Skip a leading dot so dotfiles are not treated as pure extension.
	idx := strings.Index(base[1:], ".")
	if idx < 0 {
		return base, ""
	}
	idx++
	return base[:idx], base[idx:]
}

// ExpandTemplate substitutes the {stem}, {suffix} and {name} variables of an
// output filename template with values taken from the reference file path.
func ExpandTemplate(template, refPath string) string {
	stem, suffix := SplitStem(refPath)
	return strings.NewReplacer(
		"{stem}", stem,
		"{suffix}", suffix,
		"{name}", filepath.Base(refPath),
	).Replace(template)
}

// matchByStem pairs files across directory parameters by identical stem.
// Only stems covered by every required parameter form a match; optional
// parameters may be missing for some stems. Stems are returned sorted for
// deterministic processing order.
func matchByStem(dirFiles map[string][]string, required map[string]bool) (stems []string, matches map[string]map[string]string) {
	stemToFiles := make(map[string]map[string]string)
	for param, files := range dirFiles {
		for _, file := range files {
			stem, _ := SplitStem(file)
			if stemToFiles[stem] == nil {
				stemToFiles[stem] = make(map[string]string)
			}
			stemToFiles[stem][param] = file
		}
	}

	matches = make(map[string]map[string]string)
	for stem, files := range stemToFiles {
		complete := true
		for param := range dirFiles {
			if !required[param] {
				continue
			}
			if _, ok := files[param]; !ok {
				complete = false
				break
			}
		}
		if complete {
			matches[stem] = files
			stems = append(stems, stem)
		}
	}
	sort.Strings(stems)
	return stems, matches
}
