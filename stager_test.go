package main

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"
)

// writeTestZip builds a zip archive holding the given name→content entries.
func writeTestZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	for name, content := range entries {
		entry, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := entry.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestStage(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "databatch.xml.zip")
	writeTestZip(t, archive, map[string]string{
		"data1.xml": "<Items><Item/></Items>",
		"data2.xml": "<Items><Item/></Items>",
	})

	s := NewArchiveStager(dir)
	dirs, err := s.Stage(context.Background(), "data*.xml")
	if err != nil {
		t.Fatalf("Stage() error = %v", err)
	}

	wantDir := filepath.Join(dir, "databatch.xml")
	if len(dirs) != 1 || dirs[0] != wantDir {
		t.Fatalf("Stage() dirs = %v, want [%s]", dirs, wantDir)
	}

	if _, err := os.Stat(archive); !os.IsNotExist(err) {
		t.Error("archive should be deleted after extraction")
	}
	for _, name := range []string{"data1.xml", "data2.xml"} {
		if _, err := os.Stat(filepath.Join(wantDir, name)); err != nil {
			t.Errorf("extracted file %s missing: %v", name, err)
		}
	}
}

func TestStageCaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "DATA7.XML.ZIP")
	writeTestZip(t, archive, map[string]string{"data7.xml": "<Items/>"})

	s := NewArchiveStager(dir)
	dirs, err := s.Stage(context.Background(), "data*.xml")
	if err != nil {
		t.Fatalf("Stage() error = %v", err)
	}
	if len(dirs) != 1 {
		t.Fatalf("Stage() dirs = %v, want one directory", dirs)
	}
	if _, err := os.Stat(archive); !os.IsNotExist(err) {
		t.Error("archive should be deleted after extraction")
	}
}

func TestStageNoArchives(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "data1.xml"), "<Items/>")

	s := NewArchiveStager(dir)
	dirs, err := s.Stage(context.Background(), "data*.xml")
	if err != nil {
		t.Fatalf("Stage() error = %v", err)
	}
	if len(dirs) != 0 {
		t.Errorf("Stage() dirs = %v, want none", dirs)
	}
}

func TestStageCorruptArchive(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "data1.xml.zip")
	writeTestFile(t, archive, "this is not a zip file")

	s := NewArchiveStager(dir)
	if _, err := s.Stage(context.Background(), "data*.xml"); err == nil {
		t.Fatal("Stage() expected error for corrupt archive")
	}
	if _, err := os.Stat(archive); err != nil {
		t.Error("corrupt archive should not be deleted")
	}
}

func TestStageSubdirectoryEntries(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "databatch.xml.zip")
	writeTestZip(t, archive, map[string]string{
		"nested/data1.xml": "<Items><Item/></Items>",
	})

	s := NewArchiveStager(dir)
	if _, err := s.Stage(context.Background(), "data*.xml"); err != nil {
		t.Fatalf("Stage() error = %v", err)
	}
	nested := filepath.Join(dir, "databatch.xml", "nested", "data1.xml")
	if _, err := os.Stat(nested); err != nil {
		t.Errorf("nested entry missing: %v", err)
	}
}
