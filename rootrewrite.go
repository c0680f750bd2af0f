package main

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// The fragment introspection here is deliberately text-based: fragments are
// appended as-is, never parsed into a tree, so tag names are recovered with
// anchored line patterns. Keep this behind parseFragment/WriteHeader so a
// streaming tokenizer could replace it without touching the merge driver.

var (
	// Opening root tag at line start: <Name> or <Name attr="v">.
	rootTagPattern = regexp.MustCompile(`^<([A-Za-z_][A-Za-z0-9._-]*)(\s[^<>]*?)?>`)
	// First element start anywhere in record content.
	childTagPattern = regexp.MustCompile(`<([A-Za-z_][A-Za-z0-9._-]*)[\s/>]`)
)

// fragment is the decomposed view of one source file's text.
type fragment struct {
	decl     string // XML declaration, "" when absent
	rootOpen string // complete opening root tag, attributes included
	rootName string
	body     string // everything between the opening and closing root tags
}

// splitDeclaration separates a leading XML declaration from the rest of the
// content. The declaration and the root tag frequently share the first line.
func splitDeclaration(content string) (decl, rest string) {
	if !strings.HasPrefix(content, "<?xml") {
		return "", content
	}
	end := strings.Index(content, "?>")
	if end < 0 {
		return "", content
	}
	return content[:end+2], strings.TrimLeft(content[end+2:], " \t\r\n")
}

// parseFragment decomposes a fragment's text into declaration, opening root
// tag and body. It fails when no recognizable root tag is present rather
// than degrading silently.
func parseFragment(content string) (*fragment, error) {
	decl, rest := splitDeclaration(content)

	m := rootTagPattern.FindStringSubmatch(rest)
	if m == nil {
		return nil, fmt.Errorf("no root element found")
	}

	rootName := m[1]
	body := rest[len(m[0]):]
	closing := "</" + rootName + ">"
	if i := strings.LastIndex(body, closing); i >= 0 {
		body = body[:i]
	}

	return &fragment{
		decl:     decl,
		rootOpen: m[0],
		rootName: rootName,
		body:     body,
	}, nil
}

// firstChildName returns the name of the first element inside the root, or
// "" when the body holds none.
func firstChildName(body string) string {
	if m := childTagPattern.FindStringSubmatch(body); m != nil {
		return m[1]
	}
	return ""
}

// RootRewriter synthesizes the re-rooted header of the combined output.
type RootRewriter struct{}

// WriteHeader inspects the sample fragment, writes the output file's header
// (the sample's declaration verbatim when present, then the opening root tag
// renamed to newRoot on its own line, attributes preserved) and reports the
// original root and first child element names.
func (r *RootRewriter) WriteHeader(outPath, newRoot, samplePath string) (*HeaderInfo, error) {
	content, err := os.ReadFile(samplePath)
	if err != nil {
		return nil, fmt.Errorf("reading sample fragment %s: %w", samplePath, err)
	}

	frag, err := parseFragment(string(content))
	if err != nil {
		return nil, fmt.Errorf("inspecting sample fragment %s: %w", samplePath, err)
	}

	var header strings.Builder
	if frag.decl != "" {
		header.WriteString(frag.decl)
		header.WriteString("\n")
	}
	header.WriteString(rewriteOpenTag(frag.rootOpen, frag.rootName, newRoot))
	header.WriteString("\n")

	if err := os.WriteFile(outPath, []byte(header.String()), 0644); err != nil {
		return nil, fmt.Errorf("writing output header %s: %w", outPath, err)
	}

	return &HeaderInfo{
		OriginalRoot: frag.rootName,
		Child:        firstChildName(frag.body),
		Declaration:  frag.decl != "",
	}, nil
}

// rewriteOpenTag renames the tag while keeping any attributes in place.
func rewriteOpenTag(openTag, oldName, newName string) string {
	rest := strings.TrimPrefix(openTag, "<"+oldName)
	return "<" + sanitizeRootName(newName) + rest
}

// sanitizeRootName strips characters that would break the synthesized tags.
func sanitizeRootName(name string) string {
	name = strings.ReplaceAll(name, "<", "")
	name = strings.ReplaceAll(name, ">", "")
	return strings.TrimSpace(name)
}

// closingTag builds the tag that finalizes the combined output.
func closingTag(newRoot string) string {
	return "</" + sanitizeRootName(newRoot) + ">"
}
