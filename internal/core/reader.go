package core

// reader.go loads a source table whatever encoding it was saved in.
//
// Spreadsheet exports in the field come out of Excel on Windows machines,
// Google Sheets and hand-edited text files, so the same import can see UTF-8,
// Latin-1 and CP1252 side by side. ReadTable tries each configured encoding
// in order and keeps the first one that yields a clean CSV parse. If none
// does, it makes one last lossy pass before giving up with a *ReadError.

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultEncodings is the fallback order used when ReadOptions names none.
var DefaultEncodings = []string{"utf-8", "latin-1", "iso-8859-1", "cp1252", "windows-1252"}

// LossyEncoding is reported as Table.Encoding when only the lossy pass worked.
const LossyEncoding = "utf-8 (lossy)"

var (
	errEmptyFile   = errors.New("empty file")
	errInvalidUTF8 = errors.New("invalid utf-8")
)

// ReadOptions controls how ReadTable decodes a file.
type ReadOptions struct {
	// Encodings is the ordered list of encodings to attempt.
	Encodings []string
}

// ReadError reports a source that could not be decoded in any supported way.
type ReadError struct {
	Path  string
	Tried []string
	Err   error
}

func (e *ReadError) Error() string {
	if len(e.Tried) == 0 {
		return fmt.Sprintf("read %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("read %s: encoding error after trying %s: %v",
		e.Path, strings.Join(e.Tried, ", "), e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// Table is a decoded source file. Headers are exactly as written in the
// source apart from duplicate disambiguation.
type Table struct {
	Path     string
	Encoding string
	Headers  []string
	Rows     []Row

	index *HeaderIndex
}

// Name returns the base name of the source file.
func (t *Table) Name() string {
	return filepath.Base(t.Path)
}

// ReadTable decodes the CSV (or .xlsx) file at path.
func ReadTable(path string, opts ReadOptions) (*Table, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return readWorkbook(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}

	encodings := opts.Encodings
	if len(encodings) == 0 {
		encodings = DefaultEncodings
	}

	var lastErr error
	tried := make([]string, 0, len(encodings)+1)
	for _, name := range encodings {
		tried = append(tried, name)

		r, err := decode(data, name)
		if err != nil {
			lastErr = err
			continue
		}
		records, err := parseCSV(r, false)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", name, err)
			continue
		}
		return newTable(path, name, records), nil
	}

	tried = append(tried, LossyEncoding)
	lossy := NewUTF8Sanitizer(NewBOMSkippingReader(bytes.NewReader(data)))
	records, err := parseCSV(lossy, true)
	if err != nil {
		if lastErr != nil {
			err = fmt.Errorf("%w (last strict attempt: %v)", err, lastErr)
		}
		return nil, &ReadError{Path: path, Tried: tried, Err: err}
	}
	return newTable(path, LossyEncoding, records), nil
}

// decode returns a reader producing UTF-8 text from data in the named encoding.
func decode(data []byte, name string) (io.Reader, error) {
	switch encodingKey(name) {
	case "utf8":
		if !utf8.Valid(data) {
			return nil, fmt.Errorf("%s: %w", name, errInvalidUTF8)
		}
		return transform.NewReader(bytes.NewReader(data), unicode.UTF8BOM.NewDecoder()), nil
	}

	enc, ok := charmapFor(name)
	if !ok {
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
	return transform.NewReader(NewBOMSkippingReader(bytes.NewReader(data)), enc.NewDecoder()), nil
}

func charmapFor(name string) (encoding.Encoding, bool) {
	switch encodingKey(name) {
	case "latin1", "iso88591", "l1":
		return charmap.ISO8859_1, true
	case "cp1252", "windows1252":
		return charmap.Windows1252, true
	case "iso885915", "latin9":
		return charmap.ISO8859_15, true
	}
	return nil, false
}

// SupportedEncoding reports whether ReadOptions.Encodings may name enc.
func SupportedEncoding(enc string) bool {
	if encodingKey(enc) == "utf8" {
		return true
	}
	_, ok := charmapFor(enc)
	return ok
}

func encodingKey(name string) string {
	return strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToLower(name))
}

// parseCSV reads every record. Rows may be shorter or longer than the header
// in both modes; newTable evens them out. Only lossy mode accepts bare quotes.
func parseCSV(r io.Reader, lossy bool) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = lossy

	var records [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid csv: %w", err)
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, errEmptyFile
	}
	return records, nil
}

// readWorkbook reads the first sheet of an Excel workbook.
func readWorkbook(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &ReadError{Path: path, Err: errEmptyFile}
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}
	if len(records) == 0 {
		return nil, &ReadError{Path: path, Err: errEmptyFile}
	}
	return newTable(path, "xlsx", records), nil
}

// newTable turns raw records into a Table. The first record is the header;
// data rows are numbered by source line and blank rows are dropped. Short rows
// are padded with empty cells. Cells past the header land in "Unnamed: N"
// columns so no source value is lost.
func newTable(path, enc string, records [][]string) *Table {
	width := 0
	for _, rec := range records {
		width = max(width, len(rec))
	}
	raw := make([]string, width)
	copy(raw, records[0])
	headers := uniqueHeaders(raw)
	t := &Table{
		Path:     path,
		Encoding: enc,
		Headers:  headers,
		index:    MakeHeaderIndex(headers),
	}

	for i, rec := range records[1:] {
		if isBlankRecord(rec) {
			continue
		}
		values := make([]string, len(headers))
		copy(values, rec)
		t.Rows = append(t.Rows, Row{
			Line:    i + 2,
			Values:  values,
			headers: headers,
			index:   t.index,
		})
	}
	return t
}

// uniqueHeaders names blank headers by position and suffixes repeats with
// ".1", ".2", ... so every column stays addressable.
func uniqueHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	used := make(map[string]bool, len(raw))
	for i, h := range raw {
		if strings.TrimSpace(h) == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		name := h
		for n := 1; used[name]; n++ {
			name = fmt.Sprintf("%s.%d", h, n)
		}
		used[name] = true
		headers[i] = name
	}
	return headers
}

func isBlankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
