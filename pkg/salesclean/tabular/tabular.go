// Package tabular reads and writes tables as CSV, XLSX or HTML files.
package tabular

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/cognicore/salesclean/pkg/salesclean/internalerr"
	"github.com/cognicore/salesclean/pkg/salesclean/table"
)

// Reader decodes a table. The first row is the header.
type Reader interface {
	Read(r io.Reader) (*table.Table, error)
}

// Writer encodes a table, header first. Nulls are written as empty cells.
type Writer interface {
	Write(w io.Writer, t *table.Table) error
}

// Format is a supported file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatHTML Format = "html"
)

// Extensions lists the file extensions Open and Save accept.
var Extensions = []string{".csv", ".xlsx", ".html", ".htm"}

// FormatOf picks the format from the file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	case ".html", ".htm":
		return FormatHTML, nil
	}
	return "", fmt.Errorf("%w: %q", internalerr.ErrUnsupportedFormat, filepath.Ext(path))
}

// Codec returns the reader and writer for f.
func Codec(f Format) (Reader, Writer, error) {
	switch f {
	case FormatCSV:
		return CSV{}, CSV{}, nil
	case FormatXLSX:
		return XLSX{}, XLSX{}, nil
	case FormatHTML:
		return HTML{}, HTML{}, nil
	}
	return nil, nil, fmt.Errorf("%w: %q", internalerr.ErrUnsupportedFormat, f)
}

// Supported reports whether path has an extension Open can read.
func Supported(path string) bool {
	_, err := FormatOf(path)
	return err == nil
}

// Open reads the table stored at path.
func Open(path string) (*table.Table, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	r, _, err := Codec(format)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	t, err := r.Read(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return t, nil
}

// Save writes t to path, replacing any existing file. On failure the
// partially written file is removed.
func Save(path string, t *table.Table) (err error) {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	_, w, err := Codec(format)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	if err := w.Write(f, t); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

var errNoHeader = errors.New("missing header row")

func fromRows(rows [][]string) (*table.Table, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %w", internalerr.ErrInvalidInput, errNoHeader)
	}
	header := slices.Clone(rows[0])
	width := len(header)
	for _, r := range rows[1:] {
		width = max(width, len(r))
	}
	// blank header cells and rows longer than the header get positional names
	for i := range header {
		if strings.TrimSpace(header[i]) == "" {
			header[i] = unnamed(i)
		}
	}
	for i := len(header); i < width; i++ {
		header = append(header, unnamed(i))
	}
	return table.FromStrings(header, rows[1:]), nil
}

func unnamed(i int) string { return fmt.Sprintf("Unnamed: %d", i) }
