// Package rows parses labelled text rows out of delimited and spreadsheet files.
package rows

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/crimson-sun/corpora/internal/metrics"
)

// Options selects which columns hold the label and the text. The zero value
// reads {label, title, text} rows and joins title and text with a space.
type Options struct {
	LabelColumn int
	TextColumns []int // joined with a single space; default {1, 2}
	Comma       rune  // field separator; default by extension (tab for .tsv, comma otherwise)
	SkipHeader  bool
}

func (o Options) textColumns() []int {
	if len(o.TextColumns) == 0 {
		return []int{1, 2}
	}
	return o.TextColumns
}

// ParseError reports a row that cannot be turned into a (label, text) pair.
type ParseError struct {
	Path   string
	Line   int // 1-based record number
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rows: %s:%d: %s: %v", e.Path, e.Line, e.Reason, e.Err)
	}
	return fmt.Sprintf("rows: %s:%d: %s", e.Path, e.Line, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse reads path and returns parallel label and text sequences in file
// order. Files ending in .xlsx are read from their first data sheet; every
// other file is treated as delimited text.
func Parse(path string, opts Options) ([]int, []string, error) {
	var (
		labels []int
		texts  []string
		err    error
	)
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		labels, texts, err = parseXLSX(path, opts)
	} else {
		labels, texts, err = parseDelimited(path, opts)
	}
	if err != nil {
		return nil, nil, err
	}
	metrics.RowsParsedTotal.Add(float64(len(labels)))
	return labels, texts, nil
}

func parseDelimited(path string, opts Options) ([]int, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("rows: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = opts.Comma
	if r.Comma == 0 {
		r.Comma = ','
		if strings.EqualFold(filepath.Ext(path), ".tsv") {
			r.Comma = '\t'
		}
	}
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.ReuseRecord = true

	var (
		labels []int
		texts  []string
	)
	for line := 1; ; line++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, &ParseError{Path: path, Line: line, Reason: "malformed record", Err: err}
		}
		if line == 1 && opts.SkipHeader {
			continue
		}
		label, text, err := convert(path, line, record, opts)
		if err != nil {
			return nil, nil, err
		}
		labels = append(labels, label)
		texts = append(texts, text)
	}
	return labels, texts, nil
}

// skipSheets are sheet names that hold documentation rather than rows.
var skipSheets = map[string]bool{
	"info":     true,
	"metadata": true,
	"about":    true,
	"readme":   true,
	"notes":    true,
}

func parseXLSX(path string, opts Options) ([]int, []string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("rows: open %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("rows: %s has no sheets", path)
	}
	sheet := sheets[len(sheets)-1]
	for _, s := range sheets {
		if !skipSheets[strings.ToLower(s)] {
			sheet = s
			break
		}
	}

	all, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("rows: read %s sheet %q: %w", path, sheet, err)
	}

	var (
		labels []int
		texts  []string
	)
	for i, record := range all {
		line := i + 1
		if line == 1 && opts.SkipHeader {
			continue
		}
		// GetRows drops trailing empty rows but keeps blank ones in between.
		if len(record) == 0 {
			continue
		}
		label, text, err := convert(path, line, record, opts)
		if err != nil {
			return nil, nil, err
		}
		labels = append(labels, label)
		texts = append(texts, text)
	}
	return labels, texts, nil
}

func convert(path string, line int, record []string, opts Options) (int, string, error) {
	cols := opts.textColumns()
	need := opts.LabelColumn
	for _, c := range cols {
		need = max(need, c)
	}
	if len(record) <= need {
		return 0, "", &ParseError{
			Path:   path,
			Line:   line,
			Reason: fmt.Sprintf("expected at least %d fields, got %d", need+1, len(record)),
		}
	}

	label, err := strconv.Atoi(strings.TrimSpace(record[opts.LabelColumn]))
	if err != nil {
		return 0, "", &ParseError{Path: path, Line: line, Reason: "label is not an integer", Err: err}
	}

	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = record[c]
	}
	return label, strings.Join(parts, " "), nil
}
