package page

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

// Static is a read-mostly Page backed by a parsed HTML tree. It backs the CLI
// (fetched pages) and tests; value writes mutate the in-memory tree so the
// form filler and the attribute-based probes are exercisable offline.
type Static struct {
	url    string
	doc    *goquery.Document
	frames []Frame
}

// NewStatic parses raw HTML into a Static page.
func NewStatic(rawURL string, html []byte) (*Static, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, eris.Wrap(err, "page: parse html")
	}
	s := &Static{url: rawURL, doc: doc}

	// Inline sub-documents are reachable without a network fetch.
	doc.Find("iframe[srcdoc]").Each(func(_ int, sel *goquery.Selection) {
		srcdoc, _ := sel.Attr("srcdoc")
		src := sel.AttrOr("src", rawURL)
		frame, err := NewStatic(src, []byte(srcdoc))
		if err != nil {
			return
		}
		s.frames = append(s.frames, frame)
	})
	return s, nil
}

// AddFrame attaches an already-built sub-document, e.g. one fetched separately
// from an iframe src URL.
func (s *Static) AddFrame(f Frame) {
	s.frames = append(s.frames, f)
}

func (s *Static) URL() string { return s.url }

func (s *Static) Text() string {
	body := s.doc.Find("body")
	if body.Length() == 0 {
		return strings.TrimSpace(s.doc.Text())
	}
	return strings.TrimSpace(body.Text())
}

func (s *Static) HTML() string {
	html, err := s.doc.Html()
	if err != nil {
		return ""
	}
	return html
}

func (s *Static) Find(selector string) []ElementInfo {
	var out []ElementInfo
	s.doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		out = append(out, s.elementInfo(sel))
	})
	return out
}

func (s *Static) Exists(selector string) bool {
	return s.doc.Find(selector).Length() > 0
}

func (s *Static) Frames() []Frame { return s.frames }

func (s *Static) SetValue(selector, value string) error {
	sel := s.doc.Find(selector).First()
	if sel.Length() == 0 {
		return eris.Errorf("page: no element matches %q", selector)
	}
	if goquery.NodeName(sel) == "textarea" {
		sel.SetText(value)
	} else {
		sel.SetAttr("value", value)
	}
	return nil
}

func (s *Static) Value(selector string) (string, error) {
	sel := s.doc.Find(selector).First()
	if sel.Length() == 0 {
		return "", eris.Errorf("page: no element matches %q", selector)
	}
	if goquery.NodeName(sel) == "textarea" {
		return sel.Text(), nil
	}
	return sel.AttrOr("value", ""), nil
}

// Click is a no-op on a static tree beyond checking the target exists.
func (s *Static) Click(selector string) error {
	if !s.Exists(selector) {
		return eris.Errorf("page: no element matches %q", selector)
	}
	return nil
}

func (s *Static) IsVisible(selector string) bool {
	sel := s.doc.Find(selector).First()
	if sel.Length() == 0 {
		return false
	}
	return isVisible(sel)
}

func (s *Static) IsEnabled(selector string) bool {
	sel := s.doc.Find(selector).First()
	if sel.Length() == 0 {
		return false
	}
	_, disabled := sel.Attr("disabled")
	return !disabled
}

func (s *Static) elementInfo(sel *goquery.Selection) ElementInfo {
	attrs := map[string]string{}
	for _, a := range sel.Nodes[0].Attr {
		attrs[a.Key] = a.Val
	}

	info := ElementInfo{
		Selector:    cssPath(sel),
		Tag:         goquery.NodeName(sel),
		Type:        attrs["type"],
		Name:        attrs["name"],
		ID:          attrs["id"],
		Placeholder: attrs["placeholder"],
		Value:       attrs["value"],
		Text:        strings.TrimSpace(sel.Text()),
		Attrs:       attrs,
		Visible:     isVisible(sel),
	}
	if cls, ok := attrs["class"]; ok {
		info.Classes = strings.Fields(cls)
	}
	info.Label = s.labelFor(sel, info.ID)
	return info
}

// labelFor resolves the text of a label[for=id] or an enclosing label element.
func (s *Static) labelFor(sel *goquery.Selection, id string) string {
	if id != "" {
		if l := s.doc.Find(fmt.Sprintf("label[for=%q]", id)); l.Length() > 0 {
			return strings.TrimSpace(l.First().Text())
		}
	}
	if l := sel.Closest("label"); l.Length() > 0 {
		return strings.TrimSpace(l.Text())
	}
	return ""
}

func isVisible(sel *goquery.Selection) bool {
	if _, hidden := sel.Attr("hidden"); hidden {
		return false
	}
	if sel.AttrOr("type", "") == "hidden" {
		return false
	}
	style := strings.ReplaceAll(sel.AttrOr("style", ""), " ", "")
	if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
		return false
	}
	return true
}

// cssPath builds a selector that resolves back to the same node through Find.
// Prefers stable attributes, falling back to a positional path.
func cssPath(sel *goquery.Selection) string {
	tag := goquery.NodeName(sel)
	if id, ok := sel.Attr("id"); ok && id != "" {
		return "#" + id
	}
	if name, ok := sel.Attr("name"); ok && name != "" {
		return fmt.Sprintf("%s[name=%q]", tag, name)
	}

	var segments []string
	for cur := sel; cur.Length() > 0; cur = cur.Parent() {
		t := goquery.NodeName(cur)
		if t == "html" || t == "#document" || t == "body" {
			break
		}
		nth := cur.PrevAllFiltered(t).Length() + 1
		segments = append([]string{fmt.Sprintf("%s:nth-of-type(%d)", t, nth)}, segments...)
	}
	return strings.Join(segments, " > ")
}
