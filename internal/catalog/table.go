package catalog

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ParseTable reads a text opcode table. Lines starting with '@' are tag
// markers ("@filter"), '#' starts a comment and blank lines are skipped. Every
// other line is a signature. Items keep their line number for error reports.
func ParseTable(r io.Reader) ([]Item, error) {
	var items []Item
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "@") {
			tag, err := ParseTag(line[1:])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedCatalog, lineNo, err)
			}
			if tag == TagOutput {
				return nil, fmt.Errorf("%w: line %d: tag %s cannot categorize opcodes", ErrMalformedCatalog, lineNo, tag)
			}
			items = append(items, Item{marker: true, tag: tag, line: lineNo})
			continue
		}
		items = append(items, Item{signature: line, line: lineNo})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// LoadTable parses and builds a catalog from a text table.
func LoadTable(r io.Reader) (*Catalog, error) {
	items, err := ParseTable(r)
	if err != nil {
		return nil, err
	}
	return Build(items)
}

// WriteTable renders items in the format read by ParseTable.
func WriteTable(w io.Writer, items []Item) error {
	for _, item := range items {
		var err error
		if item.marker {
			_, err = fmt.Fprintf(w, "@%s\n", item.tag)
		} else {
			_, err = fmt.Fprintln(w, item.signature)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
