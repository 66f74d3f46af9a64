package tabular

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/cognicore/salesclean/pkg/salesclean/table"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSV reads and writes comma-separated files. Ragged rows are accepted and
// padded with nulls; a leading UTF-8 BOM is skipped.
type CSV struct{}

// Read implements Reader.
func (CSV) Read(r io.Reader) (*table.Table, error) {
	reader := csv.NewReader(stripBOM(r))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: %w", err)
		}
		rows = append(rows, rec)
	}
	return fromRows(rows)
}

// Write implements Writer.
func (CSV) Write(w io.Writer, t *table.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Records()); err != nil {
		return err
	}
	return cw.Error()
}

func stripBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}
