package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// RecordSplitter breaks one XML source file into numbered sibling files, one
// record per file, named <stem>-NN.<ext>. Suffix 00 is the header fragment
// holding the structural wrapper; it is never part of the returned list.
type RecordSplitter interface {
	Split(ctx context.Context, sourcePath string) ([]string, error)
}

// NewRecordSplitter returns the splitter selected by settings: the built-in
// line-oriented splitter, or an external command when one is configured.
func NewRecordSplitter(settings *Settings) RecordSplitter {
	if cmd := strings.TrimSpace(settings.Splitter.Command); cmd != "" {
		return &execSplitter{command: cmd, maxDigits: settings.Splitter.MaxDigits}
	}
	return &recordSplitter{}
}

// recordSplitter is the built-in splitter.
type recordSplitter struct{}

func (s *recordSplitter) Split(ctx context.Context, sourcePath string) ([]string, error) {
	content, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("reading source %s: %w", sourcePath, err)
	}

	frag, err := parseFragment(string(content))
	if err != nil {
		return nil, fmt.Errorf("splitting %s: %w", sourcePath, err)
	}

	child := firstChildName(frag.body)
	if child == "" {
		return nil, fmt.Errorf("splitting %s: no record elements found", sourcePath)
	}

	records := splitRecords(frag.body, child)
	if len(records) == 0 {
		return nil, fmt.Errorf("splitting %s: no record elements found", sourcePath)
	}

	prefix := ""
	if frag.decl != "" {
		prefix = frag.decl + "\n"
	}

	// Header fragment 00: the structural wrapper without records.
	header := prefix + frag.rootOpen + "\n" + "</" + frag.rootName + ">\n"
	if err := os.WriteFile(splitFilePath(sourcePath, 0), []byte(header), 0644); err != nil {
		return nil, fmt.Errorf("writing header fragment for %s: %w", sourcePath, err)
	}

	var pieces []string
	for i, record := range records {
		piece := splitFilePath(sourcePath, i+1)
		if err := os.WriteFile(piece, []byte(prefix+record+"\n"), 0644); err != nil {
			return nil, fmt.Errorf("writing record fragment %s: %w", piece, err)
		}
		pieces = append(pieces, piece)
	}

	return pieces, nil
}

// splitRecords cuts the body into per-record strings. Records are the
// occurrences of the child element; same-shaped fragments never nest a
// record inside another, so matching runs to the next closing tag.
func splitRecords(body, child string) []string {
	var records []string
	closing := "</" + child + ">"

	rest := body
	for {
		start := indexTagStart(rest, child)
		if start < 0 {
			break
		}
		seg := rest[start:]

		gt := strings.Index(seg, ">")
		if gt < 0 {
			break
		}
		if strings.HasSuffix(seg[:gt+1], "/>") {
			records = append(records, seg[:gt+1])
			rest = seg[gt+1:]
			continue
		}

		end := strings.Index(seg, closing)
		if end < 0 {
			break
		}
		records = append(records, strings.TrimSpace(seg[:end+len(closing)]))
		rest = seg[end+len(closing):]
	}

	return records
}

// indexTagStart finds the next opening tag of the named element, rejecting
// longer names that merely share the prefix.
func indexTagStart(s, name string) int {
	open := "<" + name
	from := 0
	for {
		i := strings.Index(s[from:], open)
		if i < 0 {
			return -1
		}
		pos := from + i
		next := pos + len(open)
		if next >= len(s) {
			return -1
		}
		switch s[next] {
		case ' ', '\t', '\n', '\r', '>', '/':
			return pos
		}
		from = next
	}
}

// execSplitter invokes an external record-splitting utility, then collects
// the numbered files it produced for this source.
type execSplitter struct {
	command   string
	maxDigits int
}

func (s *execSplitter) Split(ctx context.Context, sourcePath string) ([]string, error) {
	argv := strings.Fields(s.command)
	// The utility runs in the source's directory and receives the bare
	// filename, so relative and absolute source paths behave the same.
	cmd := exec.CommandContext(ctx, argv[0], append(argv[1:], filepath.Base(sourcePath))...)
	cmd.Dir = filepath.Dir(sourcePath)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("running splitter %q on %s: %w", s.command, sourcePath, err)
	}

	return collectSplitFiles(sourcePath, s.maxDigits)
}

// collectSplitFiles enumerates <stem>-NN.<ext> siblings of the source and
// keeps only those matching the splitter's exact suffix pattern. The filter
// keeps numbered leftovers of other sources processed earlier in the same
// run from being picked up. The all-zero header fragment is excluded.
func collectSplitFiles(sourcePath string, maxDigits int) ([]string, error) {
	dir := filepath.Dir(sourcePath)
	pattern := splitFilePattern(sourcePath, maxDigits)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing split files for %s: %w", sourcePath, err)
	}

	type piece struct {
		path string
		n    int
	}
	var pieces []piece
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := pattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n == 0 {
			continue
		}
		pieces = append(pieces, piece{path: filepath.Join(dir, entry.Name()), n: n})
	}

	sort.Slice(pieces, func(i, j int) bool { return pieces[i].n < pieces[j].n })

	paths := make([]string, 0, len(pieces))
	for _, p := range pieces {
		paths = append(paths, p.path)
	}
	return paths, nil
}

// splitFilePattern matches the numbered files a splitter produces for this
// source: <stem>-NN.<ext> with 1 to maxDigits digits.
func splitFilePattern(sourcePath string, maxDigits int) *regexp.Regexp {
	ext := filepath.Ext(sourcePath)
	stem := strings.TrimSuffix(filepath.Base(sourcePath), ext)
	expr := fmt.Sprintf(`^%s-([0-9]{1,%d})%s$`, regexp.QuoteMeta(stem), maxDigits, regexp.QuoteMeta(ext))
	return regexp.MustCompile(expr)
}

// splitFilePath names the n-th split file of a source; 0 is the header
// fragment.
func splitFilePath(sourcePath string, n int) string {
	ext := filepath.Ext(sourcePath)
	stem := strings.TrimSuffix(sourcePath, ext)
	return fmt.Sprintf("%s-%02d%s", stem, n, ext)
}

// headerFragmentPath names the splitter's header fragment for a source.
func headerFragmentPath(sourcePath string) string {
	return splitFilePath(sourcePath, 0)
}
