// Package site renders stored records into a static HTML site: one page per
// record plus a themed index page.
package site

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ImagesDir is the site directory attachments are copied into.
const ImagesDir = "images"

const dateLayout = "January 2, 2006"

// Decorate turns a note body into a standalone page: it adds charset and
// viewport meta tags, the stylesheet link, a title taken from the first h1, a
// link back to the index and a publication date footer, and points file://
// image references at the images directory.
func Decorate(markup string, published time.Time) (string, error) {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return "", fmt.Errorf("site: parse markup: %w", err)
	}
	head := findFirst(doc, atom.Head)
	body := findFirst(doc, atom.Body)
	if head == nil || body == nil {
		return "", fmt.Errorf("site: document has no head or body")
	}

	prepend(head,
		element(atom.Meta, "charset", "UTF-8"),
		element(atom.Meta, "http-equiv", "Content-Type", "content", "text/html; charset=UTF-8"),
		element(atom.Meta, "name", "viewport", "content", "width=device-width, initial-scale=1.0"),
		element(atom.Link, "rel", "stylesheet", "href", "style.css"),
	)
	title := ""
	if h1 := findFirst(body, atom.H1); h1 != nil {
		title = strings.TrimSpace(textOf(h1))
	}
	head.AppendChild(withText(element(atom.Title), title))

	back := element(atom.Div, "class", "site-link")
	back.AppendChild(withText(element(atom.A, "href", "/"), "Back to site"))
	prepend(body, back)

	if !published.IsZero() {
		body.AppendChild(withText(element(atom.Div, "class", "published-date"),
			"Published on "+published.Format(dateLayout)))
	}

	rewriteImageSources(doc)

	var b strings.Builder
	if err := html.Render(&b, doc); err != nil {
		return "", fmt.Errorf("site: render: %w", err)
	}
	return b.String(), nil
}

// rewriteImageSources maps file://<path> to images/<path>.
func rewriteImageSources(n *html.Node) {
	if n.Type == html.ElementNode && n.DataAtom == atom.Img {
		for i, a := range n.Attr {
			if a.Key == "src" && strings.HasPrefix(a.Val, "file://") {
				n.Attr[i].Val = ImagesDir + "/" + strings.TrimPrefix(a.Val, "file://")
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		rewriteImageSources(c)
	}
}

func findFirst(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, a); found != nil {
			return found
		}
	}
	return nil
}

func textOf(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textOf(c))
	}
	return b.String()
}

// element builds an element node from alternating attribute keys and values.
func element(a atom.Atom, kv ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	for i := 0; i+1 < len(kv); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: kv[i], Val: kv[i+1]})
	}
	return n
}

func withText(n *html.Node, text string) *html.Node {
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return n
}

// prepend inserts nodes, in order, before the first child of parent.
func prepend(parent *html.Node, nodes ...*html.Node) {
	first := parent.FirstChild
	for _, n := range nodes {
		if first == nil {
			parent.AppendChild(n)
		} else {
			parent.InsertBefore(n, first)
		}
	}
}
