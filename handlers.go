package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

var debugEnabled bool

// SetDebugMode enables or disables debug logging
func SetDebugMode(enabled bool) {
	debugEnabled = enabled
}

func debugLog(format string, args ...interface{}) {
	if debugEnabled {
		log.Printf("[DEBUG] "+format, args...)
	}
}

// SourceHandler consumes one discovered source fragment, appending its
// content to the combined output file.
type SourceHandler interface {
	CanHandle(path string) bool
	Append(ctx context.Context, path string, out io.Writer) (int, error)
}

// RecordHandler appends a source by splitting it into per-record fragments,
// stripping each fragment's own XML declaration, and appending the cleaned
// bodies in split order. Fragments are deleted as they are consumed; the
// splitter's header fragment is deleted without being appended.
type RecordHandler struct {
	splitter RecordSplitter
}

func (h *RecordHandler) CanHandle(path string) bool {
	return true
}

func (h *RecordHandler) Append(ctx context.Context, path string, out io.Writer) (int, error) {
	pieces, err := h.splitter.Split(ctx, path)
	if err != nil {
		return 0, err
	}
	debugLog("Split %s into %d record fragments", path, len(pieces))

	for _, piece := range pieces {
		if err := appendWithoutDeclaration(piece, out); err != nil {
			return 0, fmt.Errorf("adding fragment %s: %w", piece, err)
		}
		if err := os.Remove(piece); err != nil {
			return 0, fmt.Errorf("removing fragment %s: %w", piece, err)
		}
	}

	// The header fragment duplicates the wrapper the rewritten header
	// already carries.
	header := headerFragmentPath(path)
	if err := os.Remove(header); err != nil && !os.IsNotExist(err) {
		return 0, fmt.Errorf("removing header fragment %s: %w", header, err)
	}

	return len(pieces), nil
}

// VerbatimHandler appends a source byte-for-byte, for CSV and headerless
// merges where no new root was requested.
type VerbatimHandler struct{}

func (h *VerbatimHandler) CanHandle(path string) bool {
	return true
}

func (h *VerbatimHandler) Append(ctx context.Context, path string, out io.Writer) (int, error) {
	src, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening source %s: %w", path, err)
	}
	defer src.Close()

	if _, err := io.Copy(out, src); err != nil {
		return 0, fmt.Errorf("adding source %s: %w", path, err)
	}
	return 1, nil
}

// appendWithoutDeclaration copies a fragment line by line, dropping XML
// declaration lines.
func appendWithoutDeclaration(path string, out io.Writer) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "<?xml") {
			continue
		}
		if _, err := io.WriteString(out, line+"\n"); err != nil {
			return err
		}
	}
	return scanner.Err()
}
