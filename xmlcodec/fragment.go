package xmlcodec

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// wrapperTag holds fragments that have several top-level elements or bare
// text, so they parse as a single document.
const wrapperTag = "xmlcodec-fragment"

// Fragment is a parsed piece of a response body.
// The zero value is an empty fragment.
type Fragment struct {
	el *etree.Element
}

// ParseFragment parses an XML fragment: zero or more elements, optionally
// surrounded by text, with or without a leading XML declaration.
func ParseFragment(s string) (Fragment, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "<?xml") {
		if end := strings.Index(s, "?>"); end >= 0 {
			s = s[end+2:]
		}
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromString("<" + wrapperTag + ">" + s + "</" + wrapperTag + ">"); err != nil {
		return Fragment{}, fmt.Errorf("xmlcodec: parse fragment: %w", err)
	}
	return Fragment{el: doc.Root()}, nil
}

// Tag returns the local name of the fragment's element.
func (f Fragment) Tag() string {
	if f.el == nil || f.el.Tag == wrapperTag {
		return ""
	}
	return f.el.Tag
}

// Text returns the trimmed character data directly inside the fragment.
func (f Fragment) Text() string {
	if f.el == nil {
		return ""
	}
	return strings.TrimSpace(f.el.Text())
}

// Value returns the trimmed text of the first element named tag, in
// document order. A missing element yields "".
func (f Fragment) Value(tag string) string {
	el := f.find(tag)
	if el == nil {
		return ""
	}
	return strings.TrimSpace(el.Text())
}

// Child returns the first element named tag directly inside the fragment.
// Unlike Find it does not descend.
func (f Fragment) Child(tag string) (Fragment, bool) {
	if f.el == nil {
		return Fragment{}, false
	}
	if el := f.el.SelectElement(tag); el != nil {
		return Fragment{el: el}, true
	}
	return Fragment{}, false
}

// Find returns the first element named tag as a fragment.
func (f Fragment) Find(tag string) (Fragment, bool) {
	el := f.find(tag)
	if el == nil {
		return Fragment{}, false
	}
	return Fragment{el: el}, true
}

// Blocks returns every outermost element named tag in document order.
// A block never includes a later sibling block, and lookups on a block only
// see that block's own descendants.
func (f Fragment) Blocks(tag string) []Fragment {
	if f.el == nil {
		return nil
	}
	var out []Fragment
	collectBlocks(f.el, tag, &out)
	return out
}

// String serializes the fragment. A fragment returned by Find or Blocks
// includes its own element tags.
func (f Fragment) String() string {
	if f.el == nil {
		return ""
	}
	doc := etree.NewDocument()
	doc.SetRoot(f.el.Copy())
	s, err := doc.WriteToString()
	if err != nil {
		return ""
	}
	if f.el.Tag == wrapperTag {
		if s == "<"+wrapperTag+"/>" {
			return ""
		}
		s = strings.TrimPrefix(s, "<"+wrapperTag+">")
		s = strings.TrimSuffix(s, "</"+wrapperTag+">")
	}
	return s
}

func (f Fragment) find(tag string) *etree.Element {
	if f.el == nil {
		return nil
	}
	return firstElement(f.el, tag)
}

func firstElement(e *etree.Element, tag string) *etree.Element {
	for _, child := range e.ChildElements() {
		if child.Tag == tag {
			return child
		}
		if found := firstElement(child, tag); found != nil {
			return found
		}
	}
	return nil
}

func collectBlocks(e *etree.Element, tag string, out *[]Fragment) {
	for _, child := range e.ChildElements() {
		if child.Tag == tag {
			*out = append(*out, Fragment{el: child})
			continue
		}
		collectBlocks(child, tag, out)
	}
}

// ExtractValue returns the trimmed text of the first <tag> element in xml.
// It returns "" when the element is absent or the input does not parse.
func ExtractValue(xml, tag string) string {
	f, err := ParseFragment(xml)
	if err != nil {
		return ""
	}
	return f.Value(tag)
}

// ExtractBlocks returns every outermost <tag>…</tag> element in xml as a
// serialized fragment, in document order.
func ExtractBlocks(xml, tag string) []string {
	f, err := ParseFragment(xml)
	if err != nil {
		return nil
	}
	blocks := f.Blocks(tag)
	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, b.String())
	}
	return out
}
