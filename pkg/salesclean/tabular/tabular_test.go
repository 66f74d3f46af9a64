package tabular

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/cognicore/salesclean/pkg/salesclean/internalerr"
	"github.com/cognicore/salesclean/pkg/salesclean/table"
)

func sampleTable() *table.Table {
	t := table.New([]string{"fecha", "producto", "cantidad", "total_ventas"})
	t.Rows = [][]table.Value{
		{table.Text("2024-01-05"), table.Text("Café, Latte"), table.Number(10), table.Number(45.5)},
		{table.Text("2024-01-06"), table.Null(), table.Null(), table.Number(3)},
	}
	return t
}

func TestCSVReadStripsBOMAndPads(t *testing.T) {
	in := "\xEF\xBB\xBFFecha,Producto,Qty\n2024-01-01,\"Café, Latte\",2\n2024-01-02,Té\n"

	tbl, err := CSV{}.Read(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if !reflect.DeepEqual(tbl.Columns, []string{"Fecha", "Producto", "Qty"}) {
		t.Errorf("columns = %q", tbl.Columns)
	}
	if got := tbl.Rows[0][1].String(); got != "Café, Latte" {
		t.Errorf("quoted cell = %q", got)
	}
	if !tbl.Rows[1][2].IsNull() {
		t.Error("missing trailing cell should be null")
	}
}

func TestCSVReadWideRows(t *testing.T) {
	tbl, err := CSV{}.Read(strings.NewReader("a,b\n1,2,3\n"))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if tbl.Width() != 3 || tbl.Columns[2] != "Unnamed: 2" {
		t.Errorf("columns = %q", tbl.Columns)
	}
	if got := tbl.Rows[0][2].String(); got != "3" {
		t.Errorf("extra cell = %q", got)
	}
}

func TestCSVReadBlankHeaders(t *testing.T) {
	tbl, err := CSV{}.Read(strings.NewReader("producto,,\nLaptop,A1,B2\n"))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := []string{"producto", "Unnamed: 1", "Unnamed: 2"}
	if !reflect.DeepEqual(tbl.Columns, want) {
		t.Errorf("columns = %q, want %q", tbl.Columns, want)
	}
	if !reflect.DeepEqual(tbl.Records(), [][]string{{"Laptop", "A1", "B2"}}) {
		t.Errorf("records = %q", tbl.Records())
	}
}

func TestCSVReadEmpty(t *testing.T) {
	_, err := CSV{}.Read(strings.NewReader(""))
	if !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestCSVWrite(t *testing.T) {
	var buf bytes.Buffer
	if err := (CSV{}).Write(&buf, sampleTable()); err != nil {
		t.Fatalf("Write: %v", err)
	}

	want := "fecha,producto,cantidad,total_ventas\n" +
		"2024-01-05,\"Café, Latte\",10,45.5\n" +
		"2024-01-06,,,3\n"
	if buf.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestHTMLRead(t *testing.T) {
	doc := `<html><body><p>Ventas</p>
<table>
  <tr><th>Fecha</th><th>Producto</th></tr>
  <tr><td>2024-01-01</td><td> Café
      <b>Latte</b></td></tr>
  <tr><td>2024-01-02</td><td></td></tr>
</table></body></html>`

	tbl, err := HTML{}.Read(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !reflect.DeepEqual(tbl.Columns, []string{"Fecha", "Producto"}) {
		t.Errorf("columns = %q", tbl.Columns)
	}
	if got := tbl.Rows[0][1].String(); got != "Café Latte" {
		t.Errorf("cell = %q", got)
	}
	if !tbl.Rows[1][1].IsNull() {
		t.Error("empty cell should be null")
	}
}

func TestHTMLReadWithoutTable(t *testing.T) {
	if _, err := (HTML{}).Read(strings.NewReader("<p>nada</p>")); err == nil {
		t.Error("expected error for document without a table")
	}
}

func TestSaveOpenRoundTrip(t *testing.T) {
	dir := t.TempDir()
	want := sampleTable().Records()

	for _, ext := range []string{".csv", ".xlsx", ".html"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(dir, "ventas"+ext)
			if err := Save(path, sampleTable()); err != nil {
				t.Fatalf("Save: %v", err)
			}

			got, err := Open(path)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			if !reflect.DeepEqual(got.Columns, sampleTable().Columns) {
				t.Errorf("columns = %q", got.Columns)
			}
			if !reflect.DeepEqual(got.Records(), want) {
				t.Errorf("records = %q, want %q", got.Records(), want)
			}
		})
	}
}

func TestUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ventas.parquet")

	if _, err := Open(path); !errors.Is(err, internalerr.ErrUnsupportedFormat) {
		t.Errorf("Open err = %v, want ErrUnsupportedFormat", err)
	}
	if err := Save(path, sampleTable()); !errors.Is(err, internalerr.ErrUnsupportedFormat) {
		t.Errorf("Save err = %v, want ErrUnsupportedFormat", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("unsupported save should not create a file")
	}
	if Supported(path) || !Supported("X.CSV") {
		t.Error("Supported should follow the extension, case-insensitively")
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.csv"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want os.ErrNotExist", err)
	}
}
