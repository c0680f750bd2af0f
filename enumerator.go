package main

import (
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Enumerator discovers source fragments below a base directory and derives
// the name of the consolidated output file.
type Enumerator struct {
	baseDir string
	marker  string
}

// NewEnumerator creates an enumerator rooted at baseDir. Files whose name
// contains marker are never reported as sources, which keeps prior combined
// outputs from being re-consumed on repeated runs.
func NewEnumerator(baseDir, marker string) *Enumerator {
	return &Enumerator{baseDir: baseDir, marker: marker}
}

// ListSources returns every regular file below the base directory whose base
// name matches mask, excluding combined outputs. Paths are sorted
// lexicographically so discovery order is stable across platforms.
func (e *Enumerator) ListSources(mask string) ([]string, error) {
	var sources []string
	err := filepath.WalkDir(e.baseDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ok, merr := matchesMask(mask, d.Name())
		if merr != nil {
			return merr
		}
		if ok && !strings.Contains(strings.ToLower(d.Name()), strings.ToLower(e.marker)) {
			sources = append(sources, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing sources for mask %q: %w", mask, err)
	}

	sort.Strings(sources)
	return sources, nil
}

// OutputName computes the consolidated output filename for mask: the mask's
// literal prefix, a "-combined_" marker with a timestamp, and the extension
// of the first matching source.
func (e *Enumerator) OutputName(mask string, now time.Time, format string) (string, error) {
	sources, err := e.ListSources(mask)
	if err != nil {
		return "", err
	}
	if len(sources) == 0 {
		return "", fmt.Errorf("no files match mask %q", mask)
	}

	name := fmt.Sprintf("%s-%s_%s%s", maskPrefix(mask), e.marker, now.Format(format), filepath.Ext(sources[0]))
	return filepath.Join(e.baseDir, name), nil
}

// matchesMask reports whether a base filename matches the glob mask. Plain
// masks match case-insensitively; masks containing a character class keep
// the class's exact meaning and match case-sensitively.
func matchesMask(mask, name string) (bool, error) {
	if !strings.ContainsRune(mask, '[') {
		mask = strings.ToLower(mask)
		name = strings.ToLower(name)
	}
	ok, err := path.Match(mask, name)
	if err != nil {
		return false, fmt.Errorf("invalid mask %q: %w", mask, err)
	}
	return ok, nil
}

// maskPrefix returns the literal text before the first wildcard in mask.
func maskPrefix(mask string) string {
	if i := strings.IndexAny(mask, "*?["); i >= 0 {
		return mask[:i]
	}
	return strings.TrimSuffix(mask, filepath.Ext(mask))
}
