package dom

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Tree is a queryable HTML tree. It is either a full document produced by
// Parse or a standalone copy of one element produced by Fragment.
type Tree struct {
	doc  *goquery.Document
	root *html.Node
}

// Node is one node of a Tree. A nil *Node is valid and behaves as an absent
// node: every accessor returns nil or an empty string.
type Node struct {
	n *html.Node
}

// Parse parses markup into a Tree.
func Parse(markup string) (*Tree, error) {
	return ParseReader(strings.NewReader(markup))
}

// ParseReader parses markup read from r into a Tree.
func ParseReader(r io.Reader) (*Tree, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	return &Tree{doc: doc, root: doc.Get(0)}, nil
}

// Fragment returns a standalone tree holding a deep copy of n under a fresh
// document node, the same shape Parse would give for n's markup on its own.
// Lookups on it never reach into the surrounding page. A nil node yields a
// nil tree.
func Fragment(n *Node) *Tree {
	if n == nil || n.n == nil {
		return nil
	}
	root := &html.Node{Type: html.DocumentNode}
	root.AppendChild(cloneNode(n.n))
	return &Tree{doc: goquery.NewDocumentFromNode(root), root: root}
}

// QueryAll returns every element matching selector, in document order.
func (t *Tree) QueryAll(selector string) []*Node {
	if t == nil {
		return nil
	}
	sel := t.doc.Find(selector)
	nodes := make([]*Node, 0, sel.Length())
	for _, n := range sel.Nodes {
		nodes = append(nodes, &Node{n: n})
	}
	return nodes
}

// QueryFirst returns the first element matching selector, or nil.
func (t *Tree) QueryFirst(selector string) *Node {
	if t == nil {
		return nil
	}
	sel := t.doc.Find(selector)
	if sel.Length() == 0 {
		return nil
	}
	return &Node{n: sel.Get(0)}
}

// Root returns the document node at the top of the tree.
func (t *Tree) Root() *Node {
	if t == nil {
		return nil
	}
	return &Node{n: t.root}
}

// FirstChild returns the first top-level node. For a fragment that is the
// copied element itself.
func (t *Tree) FirstChild() *Node {
	return t.Root().FirstChild()
}

// LastChild returns the last top-level node. For a fragment that is the copied
// element itself.
func (t *Tree) LastChild() *Node {
	return t.Root().LastChild()
}

// FirstChild returns the first significant child node. Comments and
// whitespace-only text nodes are skipped.
func (n *Node) FirstChild() *Node {
	if n == nil || n.n == nil {
		return nil
	}
	for c := n.n.FirstChild; c != nil; c = c.NextSibling {
		if significant(c) {
			return &Node{n: c}
		}
	}
	return nil
}

// LastChild returns the last significant child node. Comments and
// whitespace-only text nodes are skipped.
func (n *Node) LastChild() *Node {
	if n == nil || n.n == nil {
		return nil
	}
	for c := n.n.LastChild; c != nil; c = c.PrevSibling {
		if significant(c) {
			return &Node{n: c}
		}
	}
	return nil
}

// Parent returns the enclosing element, or nil at the top of the tree.
func (n *Node) Parent() *Node {
	if n == nil || n.n == nil || n.n.Parent == nil {
		return nil
	}
	if n.n.Parent.Type == html.DocumentNode {
		return nil
	}
	return &Node{n: n.n.Parent}
}

// Text returns the concatenated text of the node and its descendants.
func (n *Node) Text() string {
	if n == nil || n.n == nil {
		return ""
	}
	return goquery.NewDocumentFromNode(n.n).Text()
}

// Attr returns the value of the named attribute, or "" when it is missing.
func (n *Node) Attr(name string) string {
	if n == nil || n.n == nil {
		return ""
	}
	for _, a := range n.n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val
		}
	}
	return ""
}

// Same reports whether n and o are the same node of the same tree.
func (n *Node) Same(o *Node) bool {
	if n == nil || o == nil {
		return false
	}
	return n.n == o.n
}

func significant(n *html.Node) bool {
	switch n.Type {
	case html.ElementNode:
		return true
	case html.TextNode:
		return strings.TrimSpace(n.Data) != ""
	default:
		return false
	}
}

// cloneNode deep-copies n and its descendants. The copy is detached.
func cloneNode(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
	}
	if len(n.Attr) > 0 {
		c.Attr = make([]html.Attribute, len(n.Attr))
		copy(c.Attr, n.Attr)
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.AppendChild(cloneNode(child))
	}
	return c
}
