package upstream

import (
	"bytes"
	"strings"

	sonic "github.com/bytedance/sonic"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func ParseHTML(raw []byte) (*html.Node, error) {
	return html.Parse(bytes.NewReader(raw))
}

// FindAll walks the tree depth-first and collects matching nodes.
func FindAll(root *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if match(n) {
			out = append(out, n)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	if root != nil {
		walk(root)
	}
	return out
}

func FindFirst(root *html.Node, match func(*html.Node) bool) *html.Node {
	if nodes := FindAll(root, match); len(nodes) > 0 {
		return nodes[0]
	}
	return nil
}

func IsElement(a atom.Atom) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == a
	}
}

func Attr(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, attr := range n.Attr {
		if strings.EqualFold(attr.Key, key) {
			return strings.TrimSpace(attr.Val)
		}
	}
	return ""
}

// Text returns the node's text content with whitespace collapsed.
func Text(n *html.Node) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
			sb.WriteByte(' ')
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

// ChildElements lists direct element children with the given atom.
func ChildElements(n *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	if n == nil {
		return out
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.ElementNode && child.DataAtom == a {
			out = append(out, child)
		}
	}
	return out
}

// ScriptsByType returns the bodies of <script type="..."> tags.
func ScriptsByType(root *html.Node, scriptType string) []string {
	nodes := FindAll(root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == atom.Script && strings.EqualFold(Attr(n, "type"), scriptType)
	})
	out := make([]string, 0, len(nodes))
	for _, node := range nodes {
		if body := scriptBody(node); body != "" {
			out = append(out, body)
		}
	}
	return out
}

// ScriptByID returns the body of <script id="...">, e.g. __NEXT_DATA__.
func ScriptByID(root *html.Node, id string) string {
	node := FindFirst(root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == atom.Script && Attr(n, "id") == id
	})
	return scriptBody(node)
}

func scriptBody(n *html.Node) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.TextNode {
			sb.WriteString(child.Data)
		}
	}
	return strings.TrimSpace(sb.String())
}

// DecodeLoose decodes arbitrary JSON into maps and slices.
func DecodeLoose(raw string) (any, error) {
	var out any
	if err := sonic.UnmarshalString(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// WalkObjects visits every JSON object nested anywhere under root.
func WalkObjects(root any, visit func(map[string]any)) {
	switch typed := root.(type) {
	case map[string]any:
		visit(typed)
		for _, value := range typed {
			WalkObjects(value, visit)
		}
	case []any:
		for _, value := range typed {
			WalkObjects(value, visit)
		}
	}
}
