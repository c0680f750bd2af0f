// xmlsplit breaks one XML file into numbered per-record sibling files:
// <stem>-00.<ext> holds the structural wrapper, <stem>-01.<ext> and up hold
// one record each. It is the record-splitting utility fragmerge can be
// pointed at via --splitter.
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var rootTagPattern = regexp.MustCompile(`^<([A-Za-z_][A-Za-z0-9._-]*)(\s[^<>]*?)?>`)
var childTagPattern = regexp.MustCompile(`<([A-Za-z_][A-Za-z0-9._-]*)[\s/>]`)

func main() {
	if len(os.Args) != 2 {
		log.Fatal("Usage: xmlsplit <file.xml>")
	}

	if err := splitFile(os.Args[1]); err != nil {
		log.Fatal(err)
	}
}

func splitFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	decl, rest := splitDeclaration(string(content))
	m := rootTagPattern.FindStringSubmatch(rest)
	if m == nil {
		return fmt.Errorf("%s: no root element found", path)
	}
	rootName := m[1]
	body := rest[len(m[0]):]
	if i := strings.LastIndex(body, "</"+rootName+">"); i >= 0 {
		body = body[:i]
	}

	cm := childTagPattern.FindStringSubmatch(body)
	if cm == nil {
		return fmt.Errorf("%s: no record elements found", path)
	}

	records := splitRecords(body, cm[1])
	if len(records) == 0 {
		return fmt.Errorf("%s: no record elements found", path)
	}

	prefix := ""
	if decl != "" {
		prefix = decl + "\n"
	}

	header := prefix + m[0] + "\n</" + rootName + ">\n"
	if err := os.WriteFile(splitName(path, 0), []byte(header), 0644); err != nil {
		return fmt.Errorf("writing header fragment: %w", err)
	}

	for i, record := range records {
		name := splitName(path, i+1)
		if err := os.WriteFile(name, []byte(prefix+record+"\n"), 0644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}

	log.Printf("Split %s into %d record file(s)", path, len(records))
	return nil
}

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

func splitRecords(body, child string) []string {
	var records []string
	closing := "</" + child + ">"
	open := "<" + child

	rest := body
	for {
		i := strings.Index(rest, open)
		if i < 0 {
			break
		}
		seg := rest[i:]

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

func splitName(path string, n int) string {
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s-%02d%s", strings.TrimSuffix(path, ext), n, ext)
}
