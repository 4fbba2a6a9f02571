// Package company resolves security codes to company names from a CSV table
// loaded once at startup. A Table is read-only after construction and safe
// for concurrent use.
package company

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gocarina/gocsv"
)

const codeWidth = 4

// Lookup resolves a security code to a company name
type Lookup interface {
	Name(code string) (string, bool)
}

type row struct {
	Code string `csv:"コード"`
	Name string `csv:"銘柄名"`
}

// Table is an in-memory code -> name table
type Table struct {
	names map[string]string
}

// NewTable builds a table from an explicit mapping. Codes are normalized.
func NewTable(names map[string]string) *Table {
	t := &Table{names: make(map[string]string, len(names))}
	for code, name := range names {
		t.names[NormalizeCode(code)] = strings.TrimSpace(name)
	}
	return t
}

// Load reads a CSV with "コード" and "銘柄名" columns
func Load(r io.Reader) (*Table, error) {
	var rows []*row
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse company csv: %w", err)
	}

	t := &Table{names: make(map[string]string, len(rows))}
	for _, r := range rows {
		code := NormalizeCode(r.Code)
		if code == "" {
			continue
		}
		t.names[code] = strings.TrimSpace(r.Name)
	}
	return t, nil
}

// LoadFile reads the table from path
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Load(f)
}

// Name returns the company name for code
func (t *Table) Name(code string) (string, bool) {
	if t == nil {
		return "", false
	}
	name, ok := t.names[NormalizeCode(code)]
	return name, ok && name != ""
}

// Len returns the number of codes in the table
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.names)
}

// NormalizeCode trims the code and left-pads it with zeros to four characters
func NormalizeCode(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	if n := len(code); n < codeWidth {
		code = strings.Repeat("0", codeWidth-n) + code
	}
	return strings.ToUpper(code)
}
