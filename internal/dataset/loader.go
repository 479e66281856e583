package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadOptions controls how an upload becomes a Table.
type LoadOptions struct {
	// MaxRows limits data rows read; 0 means unlimited.
	MaxRows int
	// Delimiter for delimited text. If 0, sniffed from the name and header line.
	Delimiter rune
	// Numeric parsing locale; zero value parses plain numbers only.
	Number NumberFormat
	// XLSX sheet selection. SheetName wins; SheetIndex is 1-based, 0 means first.
	SheetName  string
	SheetIndex int
}

// Loader turns uploaded bytes into a Table.
type Loader interface {
	CanLoad(filename string) bool
	Load(name string, data []byte, opt LoadOptions) (*Table, error)
}

var registry []Loader

// Register adds a loader implementation to the registry. Later registrations
// are consulted first.
func Register(l Loader) {
	registry = append([]Loader{l}, registry...)
}

func init() {
	Register(xlsxLoader{})
	Register(csvLoader{})
}

// ErrEmpty indicates an upload with no header row.
var ErrEmpty = errors.New("no columns to parse from file")

// Load dispatches on the file extension. Names no loader claims are read as a
// spreadsheet.
func Load(name string, data []byte, opt LoadOptions) (*Table, error) {
	for _, l := range registry {
		if l.CanLoad(name) {
			return l.Load(name, data, opt)
		}
	}
	return xlsxLoader{}.Load(name, data, opt)
}

// LoadFile reads a file from disk and loads it under its base name.
func LoadFile(path string, opt LoadOptions) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return Load(filepath.Base(path), data, opt)
}

// Supported lists the extensions the registered loaders accept.
func Supported() []string { return []string{".csv", ".tsv", ".txt", ".xlsx"} }

func hasExt(name string, exts ...string) bool {
	lower := strings.ToLower(name)
	for _, e := range exts {
		if strings.HasSuffix(lower, e) {
			return true
		}
	}
	return false
}
