package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mholt/archives"
)

// ArchiveStager unpacks fragment archives in place before merging.
type ArchiveStager struct {
	baseDir string
}

// NewArchiveStager creates a stager rooted at baseDir.
func NewArchiveStager(baseDir string) *ArchiveStager {
	return &ArchiveStager{baseDir: baseDir}
}

// Stage finds every <mask>.zip below the base directory, extracts each into
// a directory named after the archive, and deletes the archive. It returns
// the directories it created, for removal once their fragments are consumed.
func (s *ArchiveStager) Stage(ctx context.Context, mask string) ([]string, error) {
	archivePaths, err := s.findArchives(mask)
	if err != nil {
		return nil, err
	}

	var dirs []string
	for _, archive := range archivePaths {
		destDir := archive[:len(archive)-len(".zip")]
		if err := extractArchive(ctx, archive, destDir); err != nil {
			return nil, fmt.Errorf("extracting zip file %s: %w", archive, err)
		}
		if err := os.Remove(archive); err != nil {
			return nil, fmt.Errorf("removing zip file %s: %w", archive, err)
		}
		dirs = append(dirs, destDir)
	}

	return dirs, nil
}

// findArchives lists every regular file below the base directory named
// <mask>.zip, case-insensitively.
func (s *ArchiveStager) findArchives(mask string) ([]string, error) {
	var found []string
	err := filepath.WalkDir(s.baseDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ok, merr := matchesMask(mask+".zip", d.Name())
		if merr != nil {
			return merr
		}
		if ok {
			found = append(found, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("finding archives for mask %q: %w", mask, err)
	}
	return found, nil
}

// extractArchive unpacks one archive into destDir, overwriting silently.
func extractArchive(ctx context.Context, archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	format, input, err := archives.Identify(ctx, archivePath, f)
	if err != nil {
		return fmt.Errorf("identifying archive format: %w", err)
	}

	extractor, ok := format.(archives.Extractor)
	if !ok {
		return fmt.Errorf("format %s is not extractable", format.Extension())
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("creating extraction directory: %w", err)
	}

	handler := func(ctx context.Context, fi archives.FileInfo) error {
		return extractEntry(destDir, fi)
	}
	if err := extractor.Extract(ctx, input, handler); err != nil {
		return fmt.Errorf("extracting entries: %w", err)
	}

	return nil
}

// extractEntry writes a single archive entry below destDir, refusing paths
// that would escape it.
func extractEntry(destDir string, fi archives.FileInfo) error {
	target := filepath.Clean(filepath.Join(destDir, fi.NameInArchive))
	root := filepath.Clean(destDir) + string(os.PathSeparator)
	if !strings.HasPrefix(target+string(os.PathSeparator), root) {
		return fmt.Errorf("entry %s escapes extraction directory", fi.NameInArchive)
	}

	if fi.IsDir() {
		return os.MkdirAll(target, 0755)
	}
	if fi.Mode()&os.ModeSymlink != 0 {
		debugLog("Skipping symlink entry %s", fi.NameInArchive)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("creating parent directories: %w", err)
	}

	reader, err := fi.Open()
	if err != nil {
		return fmt.Errorf("opening entry %s: %w", fi.NameInArchive, err)
	}
	defer reader.Close()

	writer, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", target, err)
	}
	defer writer.Close()

	if _, err := io.Copy(writer, reader); err != nil {
		return fmt.Errorf("writing %s: %w", target, err)
	}
	return nil
}
