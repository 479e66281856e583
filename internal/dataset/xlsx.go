package dataset

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
)

// MaxXLSXColumns is the spreadsheet column limit (XFD).
const MaxXLSXColumns = 16384

type xlsxLoader struct{}

func (xlsxLoader) CanLoad(filename string) bool {
	return hasExt(filename, ".xlsx", ".xlsm")
}

// Load reads the selected worksheet: the first row is the header, every
// following row is a record.
func (xlsxLoader) Load(name string, data []byte, opt LoadOptions) (*Table, error) {
	fail := func(line int, err error) error {
		return &ParseError{Name: name, Format: "xlsx", Line: line, Err: err}
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fail(0, fmt.Errorf("open workbook: %w", err))
	}
	pkg := newXLSXPackage(zr)
	book, err := pkg.workbook()
	if err != nil {
		return nil, fail(0, err)
	}
	target, err := book.sheetPath(opt.SheetName, opt.SheetIndex)
	if err != nil {
		return nil, fail(0, err)
	}
	shared, err := pkg.sharedStrings()
	if err != nil {
		return nil, fail(0, err)
	}
	rc, err := pkg.open(target)
	if errors.Is(err, errNoEntry) {
		return nil, fail(0, fmt.Errorf("worksheet %s missing", target))
	}
	if err != nil {
		return nil, fail(0, err)
	}
	defer rc.Close()

	rows := &rowScanner{dec: xml.NewDecoder(rc), shared: shared, width: MaxXLSXColumns}
	header, err := rows.next()
	if errors.Is(err, io.EOF) || (err == nil && len(header) == 0) {
		return nil, fail(0, ErrEmpty)
	}
	if err != nil {
		return nil, fail(1, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	// cells right of the header have no column to land in
	rows.width = len(header)

	var records [][]string
	for opt.MaxRows <= 0 || len(records) < opt.MaxRows {
		rec, err := rows.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fail(len(records)+2, err)
		}
		records = append(records, rec)
	}
	return fromRecords(name, header, records, opt.Number)
}

var errNoEntry = errors.New("zip entry not found")

// xlsxPackage indexes the zip entries of a workbook by name.
type xlsxPackage map[string]*zip.File

func newXLSXPackage(zr *zip.Reader) xlsxPackage {
	p := make(xlsxPackage, len(zr.File))
	for _, f := range zr.File {
		p[f.Name] = f
	}
	return p
}

func (p xlsxPackage) open(name string) (io.ReadCloser, error) {
	f, ok := p[name]
	if !ok {
		return nil, errNoEntry
	}
	return f.Open()
}

// decode unmarshals an optional part; a missing entry leaves v untouched.
func (p xlsxPackage) decode(name string, v any) error {
	rc, err := p.open(name)
	if errors.Is(err, errNoEntry) {
		return nil
	}
	if err != nil {
		return err
	}
	defer rc.Close()
	if err := xml.NewDecoder(rc).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

type workbookXML struct {
	Sheets []struct {
		Name string `xml:"name,attr"`
		RID  string `xml:"id,attr"`
	} `xml:"sheets>sheet"`
}

type relsXML struct {
	Rels []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

// richText is a shared or inline string: plain <t> or a run of <r><t>.
type richText struct {
	T    string `xml:"t"`
	Runs []struct {
		T string `xml:"t"`
	} `xml:"r"`
}

func (rt richText) String() string {
	if len(rt.Runs) == 0 {
		return rt.T
	}
	var b strings.Builder
	b.WriteString(rt.T)
	for _, r := range rt.Runs {
		b.WriteString(r.T)
	}
	return b.String()
}

type sstXML struct {
	Items []richText `xml:"si"`
}

// workbook lists sheets in tab order with their resolved zip paths.
type workbook struct {
	names []string
	paths []string
}

func (p xlsxPackage) workbook() (*workbook, error) {
	var wb workbookXML
	if err := p.decode("xl/workbook.xml", &wb); err != nil {
		return nil, err
	}
	var rels relsXML
	if err := p.decode("xl/_rels/workbook.xml.rels", &rels); err != nil {
		return nil, err
	}
	targets := make(map[string]string, len(rels.Rels))
	for _, r := range rels.Rels {
		targets[r.ID] = r.Target
	}
	b := &workbook{}
	for _, s := range wb.Sheets {
		t, ok := targets[s.RID]
		if !ok {
			continue
		}
		b.names = append(b.names, s.Name)
		b.paths = append(b.paths, partPath(t))
	}
	return b, nil
}

func (p xlsxPackage) sharedStrings() ([]string, error) {
	var sst sstXML
	if err := p.decode("xl/sharedStrings.xml", &sst); err != nil {
		return nil, err
	}
	out := make([]string, len(sst.Items))
	for i, it := range sst.Items {
		out[i] = it.String()
	}
	return out, nil
}

// sheetPath picks a sheet by case-insensitive name, else by 1-based index
// (0 means the first sheet).
func (b *workbook) sheetPath(name string, index int) (string, error) {
	if name != "" {
		for i, n := range b.names {
			if strings.EqualFold(n, name) {
				return b.paths[i], nil
			}
		}
		return "", fmt.Errorf("sheet %q not found (available: %s)", name, strings.Join(b.names, ", "))
	}
	if index <= 0 {
		index = 1
	}
	switch {
	case index <= len(b.paths):
		return b.paths[index-1], nil
	case len(b.paths) == 0:
		// workbooks without a manifest still use the conventional part names
		return fmt.Sprintf("xl/worksheets/sheet%d.xml", index), nil
	}
	return "", fmt.Errorf("sheet index %d out of range (workbook has %d sheets)", index, len(b.paths))
}

// partPath turns a relationship target into a zip entry name.
func partPath(target string) string {
	switch {
	case strings.HasPrefix(target, "/"):
		return strings.TrimPrefix(target, "/")
	case strings.HasPrefix(target, "xl/"):
		return target
	}
	return path.Join("xl", target)
}

type cellXML struct {
	Ref    string    `xml:"r,attr"`
	Type   string    `xml:"t,attr"`
	V      string    `xml:"v"`
	Inline *richText `xml:"is"`
}

type rowXML struct {
	Cells []cellXML `xml:"c"`
}

// rowScanner decodes <row> elements one at a time. Cells at or beyond width
// are dropped; sparse references leave empty strings behind.
type rowScanner struct {
	dec    *xml.Decoder
	shared []string
	width  int
}

func (s *rowScanner) next() ([]string, error) {
	for {
		tok, err := s.dec.Token()
		if err != nil {
			return nil, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "row" {
			continue
		}
		var row rowXML
		if err := s.dec.DecodeElement(&row, &se); err != nil {
			return nil, err
		}
		return s.values(row)
	}
}

func (s *rowScanner) values(row rowXML) ([]string, error) {
	var out []string
	for _, c := range row.Cells {
		col := len(out)
		if c.Ref != "" {
			var err error
			if col, err = cellColumn(c.Ref); err != nil {
				return nil, err
			}
			if col < 0 {
				col = len(out)
			}
		}
		if col >= s.width {
			continue
		}
		for len(out) <= col {
			out = append(out, "")
		}
		out[col] = s.text(c)
	}
	return out, nil
}

func (s *rowScanner) text(c cellXML) string {
	switch c.Type {
	case "s":
		i, err := strconv.Atoi(strings.TrimSpace(c.V))
		if err != nil || i < 0 || i >= len(s.shared) {
			return ""
		}
		return s.shared[i]
	case "inlineStr":
		if c.Inline != nil {
			return c.Inline.String()
		}
		return ""
	case "b":
		if strings.TrimSpace(c.V) == "1" {
			return "TRUE"
		}
		return "FALSE"
	}
	return c.V
}

// cellColumn returns the 0-based column of a reference like "C12", or -1
// when the reference carries no column letters.
func cellColumn(ref string) (int, error) {
	col := 0
	for i := 0; i < len(ref); i++ {
		ch := ref[i] | 0x20 // lower-case ASCII letters
		if ch < 'a' || ch > 'z' {
			break
		}
		col = col*26 + int(ch-'a') + 1
		if col > MaxXLSXColumns {
			return 0, fmt.Errorf("cell %q is beyond column XFD", ref)
		}
	}
	return col - 1, nil
}
