package cran

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kshedden/datareader"
)

// Table is a column-oriented string table read from an input file.
type Table struct {
	names   []string
	values  [][]string
	missing [][]bool
	rows    int
}

// Rows returns the number of data rows.
func (t *Table) Rows() int { return t.rows }

// Columns returns the column names in file order.
func (t *Table) Columns() []string { return t.names }

// Column returns the first column whose name matches one of the given
// names, compared case-insensitively.
func (t *Table) Column(names ...string) ([]string, []bool, bool) {
	for _, want := range names {
		for j, name := range t.names {
			if strings.EqualFold(strings.TrimSpace(name), want) {
				return t.values[j], t.missing[j], true
			}
		}
	}
	return nil, nil, false
}

// cell returns the value at row i, or "" when missing.
func cell(values []string, missing []bool, i int) string {
	if values == nil || i >= len(values) {
		return ""
	}
	if missing != nil && i < len(missing) && missing[i] {
		return ""
	}
	return values[i]
}

// ReadTable reads a CSV or Stata dta file, chosen by extension.
func ReadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".dta":
		return ReadStata(f)
	case ".csv", ".txt", "":
		return ReadCSV(f)
	default:
		return nil, fmt.Errorf("unsupported input format %q (want .csv or .dta)", filepath.Ext(path))
	}
}

// ReadCSV reads a CSV table with a header row. Every column is read as a
// string so that version numbers such as "1.10" are not coerced to floats.
func ReadCSV(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}

	header, err := csv.NewReader(bytes.NewReader(data)).Read()
	if err == io.EOF {
		return nil, fmt.Errorf("csv input is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	hints := make([]string, len(header))
	for j := range hints {
		hints[j] = "string"
	}

	rdr := datareader.NewCSVReader(bytes.NewReader(data))
	rdr.TypeHintsPos = hints
	series, err := rdr.Read(-1)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return fromSeries(series)
}

// ReadStata reads a Stata dta file. Numeric and date columns are rendered
// as strings.
func ReadStata(r io.ReadSeeker) (*Table, error) {
	rdr, err := datareader.NewStataReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open stata file: %w", err)
	}
	series, err := rdr.Read(-1)
	if err != nil {
		return nil, fmt.Errorf("failed to read stata file: %w", err)
	}
	for j := range series {
		series[j] = series[j].UpcastNumeric().ToString()
	}
	return fromSeries(series)
}

func fromSeries(series []*datareader.Series) (*Table, error) {
	t := &Table{}
	for _, s := range series {
		values, missing, err := s.AsStringSlice()
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", s.Name, err)
		}
		t.names = append(t.names, s.Name)
		t.values = append(t.values, values)
		t.missing = append(t.missing, missing)
		if s.Length() > t.rows {
			t.rows = s.Length()
		}
	}
	return t, nil
}

// DecodeLifecycle maps a table with pkg, cran_date, first and latest
// columns to lifecycle records. Unparseable dates are treated as absent.
func DecodeLifecycle(t *Table) ([]LifecycleRecord, error) {
	pkgs, pkgMiss, ok := t.Column("pkg", "package")
	if !ok {
		return nil, fmt.Errorf("lifecycle table has no pkg column")
	}
	type column struct {
		values  []string
		missing []bool
	}
	cols := make(map[string]column, 3)
	for _, name := range []string{"cran_date", "first", "latest"} {
		v, m, ok := t.Column(name)
		if !ok {
			return nil, fmt.Errorf("lifecycle table has no %s column", name)
		}
		cols[name] = column{values: v, missing: m}
	}

	date := func(name string, i int) Date {
		c := cols[name]
		raw := cell(c.values, c.missing, i)
		d, err := ParseDate(raw)
		if err != nil {
			slog.Debug("treating unparseable date as absent", "column", name, "row", i+1, "value", raw)
			return Absent()
		}
		return d
	}

	records := make([]LifecycleRecord, 0, t.Rows())
	for i := 0; i < t.Rows(); i++ {
		pkg := strings.TrimSpace(cell(pkgs, pkgMiss, i))
		if pkg == "" {
			continue
		}
		records = append(records, LifecycleRecord{
			Pkg:      pkg,
			CRANDate: date("cran_date", i),
			First:    date("first", i),
			Latest:   date("latest", i),
		})
	}
	return records, nil
}

// DecodeListing maps a table with Package, Version, Depends and License
// columns to a listing. Depends and License may be absent from the file.
func DecodeListing(t *Table, label string, date time.Time) (Listing, error) {
	pkgs, pkgMiss, ok := t.Column("Package", "pkg")
	if !ok {
		return Listing{}, fmt.Errorf("listing %s has no Package column", label)
	}
	versions, verMiss, ok := t.Column("Version")
	if !ok {
		return Listing{}, fmt.Errorf("listing %s has no Version column", label)
	}
	depends, depMiss, _ := t.Column("Depends")
	licenses, licMiss, _ := t.Column("License")

	l := Listing{Label: label, Date: date, Entries: make([]ListingEntry, 0, t.Rows())}
	for i := 0; i < t.Rows(); i++ {
		pkg := strings.TrimSpace(cell(pkgs, pkgMiss, i))
		if pkg == "" {
			continue
		}
		l.Entries = append(l.Entries, ListingEntry{
			Package: pkg,
			Version: strings.TrimSpace(cell(versions, verMiss, i)),
			Depends: naToEmpty(cell(depends, depMiss, i)),
			License: naToEmpty(cell(licenses, licMiss, i)),
		})
	}
	return l, nil
}

func naToEmpty(s string) string {
	s = strings.TrimSpace(s)
	if s == "NA" {
		return ""
	}
	return s
}

// LoadLifecycle reads lifecycle records from a file.
func LoadLifecycle(path string) ([]LifecycleRecord, error) {
	t, err := ReadTable(path)
	if err != nil {
		return nil, err
	}
	return DecodeLifecycle(t)
}

// LoadListing reads a listing from a file.
func LoadListing(path, label string, date time.Time) (Listing, error) {
	t, err := ReadTable(path)
	if err != nil {
		return Listing{}, err
	}
	return DecodeListing(t, label, date)
}
