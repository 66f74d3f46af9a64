package tabular

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/cognicore/salesclean/pkg/salesclean/table"
)

// HTML reads the first <table> of a document, as produced by spreadsheet
// "save as web page" exports. The first row is the header whether it uses
// <th> or <td> cells.
type HTML struct{}

// Read implements Reader.
func (HTML) Read(r io.Reader) (*table.Table, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	tbl := find(doc, atom.Table)
	if tbl == nil {
		return nil, fmt.Errorf("no <table> element")
	}

	var rows [][]string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Tr {
			rows = append(rows, cells(n))
			return
		}
		// nested tables belong to a cell, not to this table
		if n != tbl && n.Type == html.ElementNode && n.DataAtom == atom.Table {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(tbl)
	return fromRows(rows)
}

func find(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := find(c, a); found != nil {
			return found
		}
	}
	return nil
}

func cells(tr *html.Node) []string {
	var out []string
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
			out = append(out, strings.Join(strings.Fields(text(c)), " "))
		}
	}
	return out
}

func text(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return buf.String()
}

// Write implements Writer. It emits a bare <table> fragment with a <thead>
// header row.
func (HTML) Write(w io.Writer, t *table.Table) error {
	root := element(atom.Table)

	head := element(atom.Thead)
	head.AppendChild(row(atom.Th, t.Columns))
	root.AppendChild(head)

	body := element(atom.Tbody)
	for _, rec := range t.Records() {
		body.AppendChild(row(atom.Td, rec))
	}
	root.AppendChild(body)

	if err := html.Render(w, root); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func element(a atom.Atom) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
}

func row(cell atom.Atom, values []string) *html.Node {
	tr := element(atom.Tr)
	for _, v := range values {
		td := element(cell)
		if v != "" {
			td.AppendChild(&html.Node{Type: html.TextNode, Data: v})
		}
		tr.AppendChild(td)
	}
	return tr
}
