package render

import (
	"bufio"
	"io"
	"strconv"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const baseStyle = `body { font-family: sans-serif; font-size: 11pt; }
p { white-space: pre-wrap; margin: 0 0 0.6em 0; }
table { border-collapse: collapse; font-size: 9pt; }
th, td { border: 1px solid #999; padding: 2px 6px; text-align: left; vertical-align: top; }
th { background: #eee; }`

// ParagraphDocument builds an HTML page with one <p> per paragraph.
func ParagraphDocument(title string, paragraphs []string) *html.Node {
	doc, body := skeleton(title)
	for _, p := range paragraphs {
		body.AppendChild(element(atom.P, text(p)))
	}
	return doc
}

// TableDocument builds an HTML page holding one table. Each row gets a
// leading index cell numbered from 0.
func TableDocument(title string, header []string, rows [][]string) *html.Node {
	doc, body := skeleton(title)
	table := element(atom.Table)
	table.Attr = append(table.Attr, html.Attribute{Key: "border", Val: "1"})

	thead := element(atom.Thead)
	tr := element(atom.Tr, element(atom.Th))
	for _, h := range header {
		tr.AppendChild(element(atom.Th, text(h)))
	}
	thead.AppendChild(tr)
	table.AppendChild(thead)

	tbody := element(atom.Tbody)
	for i, row := range rows {
		tr := element(atom.Tr, element(atom.Th, text(strconv.Itoa(i))))
		for j := range max(len(header), len(row)) {
			var cell string
			if j < len(row) {
				cell = row[j]
			}
			tr.AppendChild(element(atom.Td, text(cell)))
		}
		tbody.AppendChild(tr)
	}
	table.AppendChild(tbody)
	body.AppendChild(table)
	return doc
}

// WriteDocument serializes doc as HTML.
func WriteDocument(w io.Writer, doc *html.Node) error {
	bw := bufio.NewWriter(w)
	if err := html.Render(bw, doc); err != nil {
		return err
	}
	return bw.Flush()
}

func skeleton(title string) (doc, body *html.Node) {
	doc = &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	meta := element(atom.Meta)
	meta.Attr = []html.Attribute{{Key: "charset", Val: "utf-8"}}
	head := element(atom.Head,
		meta,
		element(atom.Title, text(title)),
		element(atom.Style, text(baseStyle)),
	)
	body = element(atom.Body)
	doc.AppendChild(element(atom.Html, head, body))
	return doc, body
}

func element(a atom.Atom, children ...*html.Node) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	for _, c := range children {
		n.AppendChild(c)
	}
	return n
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}
