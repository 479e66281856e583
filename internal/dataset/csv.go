package dataset

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

type csvLoader struct{}

func (csvLoader) CanLoad(filename string) bool {
	return hasExt(filename, ".csv", ".tsv", ".txt")
}

func (csvLoader) Load(name string, data []byte, opt LoadOptions) (*Table, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(name, data)
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.Comma = delim

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ParseError{Name: name, Format: "csv", Err: ErrEmpty}
		}
		return nil, &ParseError{Name: name, Format: "csv", Line: 1, Err: err}
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	ncol := len(header)

	maxRows := opt.MaxRows
	var records [][]string
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, &ParseError{Name: name, Format: "csv", Line: line, Err: err}
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" && ncol > 1 {
			// blank line
			continue
		}
		if len(rec) > ncol {
			return nil, &ParseError{Name: name, Format: "csv", Line: line,
				Err: fmt.Errorf("expected %d fields, saw %d", ncol, len(rec))}
		}
		records = append(records, rec)
		if maxRows > 0 && len(records) >= maxRows {
			break
		}
	}
	return fromRecords(name, header, records, opt.Number)
}

// sniffDelimiter picks tab for .tsv names, otherwise the most frequent of
// ',', ';' and '\t' in the header line (comma on ties).
func sniffDelimiter(name string, data []byte) rune {
	if hasExt(name, ".tsv") {
		return '\t'
	}
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	if !sc.Scan() {
		return ','
	}
	line := sc.Text()
	best, bestN := ',', strings.Count(line, ",")
	for _, d := range []rune{';', '\t'} {
		if n := strings.Count(line, string(d)); n > bestN {
			best, bestN = d, n
		}
	}
	return best
}
