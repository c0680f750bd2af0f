package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func testSettings(t *testing.T) *Settings {
	t.Helper()
	settings, err := parseSettings(nil)
	if err != nil {
		t.Fatal(err)
	}
	return settings
}

func TestRecordSplitterSplit(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "items.xml")
	content := "<?xml version=\"1.0\"?>\n<Items>\n<Item id=\"1\">first</Item>\n<Item id=\"2\">second</Item>\n<Item id=\"3\"/>\n</Items>\n"
	writeTestFile(t, source, content)

	s := NewRecordSplitter(testSettings(t))
	pieces, err := s.Split(context.Background(), source)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	want := []string{
		filepath.Join(dir, "items-01.xml"),
		filepath.Join(dir, "items-02.xml"),
		filepath.Join(dir, "items-03.xml"),
	}
	if len(pieces) != len(want) {
		t.Fatalf("Split() = %v, want %v", pieces, want)
	}
	for i := range want {
		if pieces[i] != want[i] {
			t.Errorf("pieces[%d] = %q, want %q", i, pieces[i], want[i])
		}
	}

	first, err := os.ReadFile(pieces[0])
	if err != nil {
		t.Fatal(err)
	}
	wantFirst := "<?xml version=\"1.0\"?>\n<Item id=\"1\">first</Item>\n"
	if string(first) != wantFirst {
		t.Errorf("first piece = %q, want %q", first, wantFirst)
	}

	header, err := os.ReadFile(filepath.Join(dir, "items-00.xml"))
	if err != nil {
		t.Fatalf("header fragment missing: %v", err)
	}
	wantHeader := "<?xml version=\"1.0\"?>\n<Items>\n</Items>\n"
	if string(header) != wantHeader {
		t.Errorf("header fragment = %q, want %q", header, wantHeader)
	}
}

func TestRecordSplitterSingleLine(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "rows.xml")
	writeTestFile(t, source, "<Rows><Row a=\"1\"/><Row a=\"2\"/></Rows>")

	s := NewRecordSplitter(testSettings(t))
	pieces, err := s.Split(context.Background(), source)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(pieces) != 2 {
		t.Fatalf("Split() produced %d pieces, want 2", len(pieces))
	}

	second, err := os.ReadFile(pieces[1])
	if err != nil {
		t.Fatal(err)
	}
	if string(second) != "<Row a=\"2\"/>\n" {
		t.Errorf("second piece = %q, want %q", second, "<Row a=\"2\"/>\n")
	}
}

func TestRecordSplitterErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no root element", "plain text\n"},
		{"no records", "<Items>\n</Items>\n"},
	}

	s := NewRecordSplitter(testSettings(t))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := filepath.Join(t.TempDir(), "bad.xml")
			writeTestFile(t, source, tt.content)
			if _, err := s.Split(context.Background(), source); err == nil {
				t.Fatal("Split() expected error")
			}
		})
	}
}

func TestSplitRecords(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		child    string
		expected []string
	}{
		{
			"multiline records",
			"\n<Item>a</Item>\n<Item>b</Item>\n",
			"Item",
			[]string{"<Item>a</Item>", "<Item>b</Item>"},
		},
		{
			"self-closing",
			"<Row/><Row x=\"1\"/>",
			"Row",
			[]string{"<Row/>", "<Row x=\"1\"/>"},
		},
		{
			"nested other elements",
			"<Item><Name>n</Name></Item>",
			"Item",
			[]string{"<Item><Name>n</Name></Item>"},
		},
		{
			"prefix name not confused",
			"<Item>a</Item><Items2>b</Items2>",
			"Item",
			[]string{"<Item>a</Item>"},
		},
		{"empty body", "", "Item", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitRecords(tt.body, tt.child)
			if len(got) != len(tt.expected) {
				t.Fatalf("splitRecords() = %v, want %v", got, tt.expected)
			}
			for i := range tt.expected {
				if got[i] != tt.expected[i] {
					t.Errorf("records[%d] = %q, want %q", i, got[i], tt.expected[i])
				}
			}
		})
	}
}

func TestCollectSplitFiles(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "items.xml")
	writeTestFile(t, source, "<Items/>")
	writeTestFile(t, filepath.Join(dir, "items-00.xml"), "header")
	writeTestFile(t, filepath.Join(dir, "items-2.xml"), "b")
	writeTestFile(t, filepath.Join(dir, "items-01.xml"), "a")
	writeTestFile(t, filepath.Join(dir, "items-0000.xml"), "zeros")
	writeTestFile(t, filepath.Join(dir, "items-12345.xml"), "too many digits")
	writeTestFile(t, filepath.Join(dir, "other-01.xml"), "different stem")
	writeTestFile(t, filepath.Join(dir, "items-01.csv"), "different extension")

	got, err := collectSplitFiles(source, 4)
	if err != nil {
		t.Fatalf("collectSplitFiles() error = %v", err)
	}

	want := []string{
		filepath.Join(dir, "items-01.xml"),
		filepath.Join(dir, "items-2.xml"),
	}
	if len(got) != len(want) {
		t.Fatalf("collectSplitFiles() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("files[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestExecSplitterRelativeSource(t *testing.T) {
	dir := t.TempDir()

	// Stand-in record-splitting utility: copies its input into two
	// numbered sibling files the way the real tool does.
	script := filepath.Join(dir, "fakesplit.sh")
	writeTestFile(t, script, "#!/bin/sh\nstem=\"${1%.*}\"\ncp \"$1\" \"$stem-01.xml\"\ncp \"$1\" \"$stem-02.xml\"\n")

	source := filepath.Join("sub", "items.xml")
	writeTestFile(t, filepath.Join(dir, source), "<Items><Item/></Items>")

	// Staged-archive fragments always sit in subdirectories and reach the
	// splitter as relative paths, so drive it exactly that way.
	t.Chdir(dir)

	s := &execSplitter{command: "sh " + script, maxDigits: 4}
	pieces, err := s.Split(context.Background(), source)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	want := []string{
		filepath.Join("sub", "items-01.xml"),
		filepath.Join("sub", "items-02.xml"),
	}
	if len(pieces) != len(want) {
		t.Fatalf("Split() = %v, want %v", pieces, want)
	}
	for i := range want {
		if pieces[i] != want[i] {
			t.Errorf("pieces[%d] = %q, want %q", i, pieces[i], want[i])
		}
	}
}

func TestExecSplitterFailure(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "items.xml")
	writeTestFile(t, source, "<Items><Item/></Items>")

	s := &execSplitter{command: "false", maxDigits: 4}
	if _, err := s.Split(context.Background(), source); err == nil {
		t.Fatal("Split() expected error for failing splitter command")
	}
	if _, err := os.Stat(source); err != nil {
		t.Errorf("source should remain after splitter failure: %v", err)
	}
}

func TestSplitFilePattern(t *testing.T) {
	pattern := splitFilePattern("/tmp/data.items.xml", 4)

	tests := []struct {
		name    string
		file    string
		matches bool
	}{
		{"two digits", "data.items-01.xml", true},
		{"one digit", "data.items-1.xml", true},
		{"four digits", "data.items-1234.xml", true},
		{"five digits", "data.items-12345.xml", false},
		{"no suffix", "data.items.xml", false},
		{"dot not wildcard", "dataXitems-01.xml", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pattern.MatchString(tt.file); got != tt.matches {
				t.Errorf("pattern.MatchString(%q) = %v, want %v", tt.file, got, tt.matches)
			}
		})
	}
}

func TestHeaderFragmentPath(t *testing.T) {
	got := headerFragmentPath(filepath.Join("a", "items.xml"))
	want := filepath.Join("a", "items-00.xml")
	if got != want {
		t.Errorf("headerFragmentPath() = %q, want %q", got, want)
	}
}

func TestNewRecordSplitter(t *testing.T) {
	settings := testSettings(t)
	if _, ok := NewRecordSplitter(settings).(*recordSplitter); !ok {
		t.Error("NewRecordSplitter() without command should return the built-in splitter")
	}

	settings.Splitter.Command = "xmlsplit"
	if _, ok := NewRecordSplitter(settings).(*execSplitter); !ok {
		t.Error("NewRecordSplitter() with command should return the exec splitter")
	}
}
