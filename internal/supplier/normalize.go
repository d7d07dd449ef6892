package supplier

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// node is a loosely typed XML element. Supplier responses differ in tag casing
// and in whether a repeated group holds one element or many; every lookup here
// is case-insensitive and returns sequences, so callers never see the shape.
type node struct {
	name     string
	attrs    map[string]string
	text     string
	children []*node
}

// parseXML decodes body into a node tree. Documents that are not UTF-8 are
// transcoded using their declared encoding, or fallbackCharset when none is declared.
func parseXML(body []byte, fallbackCharset string) (*node, error) {
	if !utf8.Valid(body) && !declaresEncoding(body) && fallbackCharset != "" {
		decoded, err := transcode(fallbackCharset, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		if body, err = io.ReadAll(decoded); err != nil {
			return nil, fmt.Errorf("transcode %s: %w", fallbackCharset, err)
		}
	}

	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.Strict = false
	dec.CharsetReader = transcode

	var root *node
	var stack []*node
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &node{name: t.Name.Local}
			if len(t.Attr) > 0 {
				n.attrs = make(map[string]string, len(t.Attr))
				for _, a := range t.Attr {
					n.attrs[strings.ToLower(a.Name.Local)] = a.Value
				}
			}
			if len(stack) == 0 {
				if root == nil {
					root = n
				}
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text += string(t)
			}
		}
	}
	if root == nil {
		return nil, fmt.Errorf("decode xml: empty document")
	}
	return root, nil
}

func declaresEncoding(body []byte) bool {
	head := body
	if len(head) > 200 {
		head = head[:200]
	}
	return bytes.Contains(bytes.ToLower(head), []byte("encoding="))
}

func transcode(label string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", label, err)
	}
	return transform.NewReader(input, enc.NewDecoder()), nil
}

func matches(n *node, names []string) bool {
	for _, name := range names {
		if strings.EqualFold(n.name, name) {
			return true
		}
	}
	return false
}

// all returns direct children matching any of names, in document order.
func (n *node) all(names ...string) []*node {
	if n == nil {
		return nil
	}
	var out []*node
	for _, c := range n.children {
		if matches(c, names) {
			out = append(out, c)
		}
	}
	return out
}

// first returns the first direct child matching the earliest listed name.
// Names are tried in priority order.
func (n *node) first(names ...string) *node {
	if n == nil {
		return nil
	}
	for _, name := range names {
		for _, c := range n.children {
			if strings.EqualFold(c.name, name) {
				return c
			}
		}
	}
	return nil
}

// group resolves a one-or-many collection: the wrapper element (any of
// wrappers) holding item elements, or item elements placed directly under n.
func (n *node) group(wrappers []string, items ...string) []*node {
	if n == nil {
		return nil
	}
	if wrapper := n.first(wrappers...); wrapper != nil {
		if found := wrapper.all(items...); len(found) > 0 {
			return found
		}
	}
	return n.all(items...)
}

// find returns every descendant (depth-first, document order) matching names.
func (n *node) find(names ...string) []*node {
	if n == nil {
		return nil
	}
	var out []*node
	for _, c := range n.children {
		if matches(c, names) {
			out = append(out, c)
		}
		out = append(out, c.find(names...)...)
	}
	return out
}

// str returns the trimmed text of the first child found among names, falling
// back to an attribute of the same name on n.
func (n *node) str(names ...string) string {
	if n == nil {
		return ""
	}
	if c := n.first(names...); c != nil {
		return strings.TrimSpace(c.text)
	}
	for _, name := range names {
		if v, ok := n.attrs[strings.ToLower(name)]; ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func (n *node) value() string {
	if n == nil {
		return ""
	}
	return strings.TrimSpace(n.text)
}

func (n *node) attr(name string) string {
	if n == nil {
		return ""
	}
	return strings.TrimSpace(n.attrs[strings.ToLower(name)])
}

func (n *node) integer(names ...string) int {
	raw := n.str(names...)
	if raw == "" {
		return 0
	}
	if v, err := strconv.Atoi(raw); err == nil {
		return v
	}
	if f, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64); err == nil {
		return int(f)
	}
	return 0
}

func (n *node) amount(names ...string) decimal.Decimal {
	raw := n.str(names...)
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(normalizeAmount(raw))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (n *node) boolean(names ...string) (bool, bool) {
	raw := strings.ToLower(n.str(names...))
	switch raw {
	case "true", "1", "yes", "y", "ja":
		return true, true
	case "false", "0", "no", "n", "nein":
		return false, true
	}
	return false, false
}

// normalizeAmount accepts "1.234,56" and "1,234.56" as well as plain numbers.
func normalizeAmount(raw string) string {
	raw = strings.TrimSpace(raw)
	lastComma := strings.LastIndex(raw, ",")
	lastDot := strings.LastIndex(raw, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0 && lastComma > lastDot:
		raw = strings.ReplaceAll(raw, ".", "")
		raw = strings.Replace(raw, ",", ".", 1)
	case lastComma >= 0 && lastDot >= 0:
		raw = strings.ReplaceAll(raw, ",", "")
	case lastComma >= 0:
		raw = strings.Replace(raw, ",", ".", 1)
	}
	return raw
}
