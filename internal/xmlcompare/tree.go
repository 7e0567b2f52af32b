// Package xmlcompare implements the XML Comparator (spec.md §3.5,
// §4.8): a parallel-walk structural equivalence check between two XML
// documents that is tolerant of attribute order, namespace prefixes,
// whitespace, default-equivalent attributes, and float-formatting
// differences, while remaining intolerant of added/missing elements or
// differing non-default attribute values. Parse and Node are also the
// generic XML tree that the MEI and MusicXML importers decode from.
package xmlcompare

import (
	"encoding/xml"
	"io"
)

// Node is the generic tree the comparator walks, independent of
// internal/schema's Node (a tooling detail, not a shared dependency —
// duplicating this small decoder keeps the comparator usable without
// pulling in the Schema Loader).
type Node struct {
	Local    string
	Attrs    []xml.Attr
	Children []*Node
	Text     string
}

// Parse reads a complete XML document into a single root Node.
func Parse(r io.Reader) (*Node, error) {
	dec := xml.NewDecoder(r)
	var stack []*Node
	var root *Node
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Local: t.Name.Local, Attrs: append([]xml.Attr(nil), t.Attr...)}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			} else {
				root = n
			}
			stack = append(stack, n)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].Text += string(t)
			}
		}
	}
	return root, nil
}

// Attr returns the value of the named attribute, ignoring any
// namespace prefix, or ("", false) if absent.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}
