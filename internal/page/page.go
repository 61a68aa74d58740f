// Package page defines the boundary between the extraction core and whatever
// drives the actual browser tab. Everything the core sees through these
// interfaces is plain data; no live DOM handles cross the boundary.
package page

// ElementInfo is a snapshot of a single element at query time.
type ElementInfo struct {
	Selector    string            `json:"selector"`
	Tag         string            `json:"tag"`
	Type        string            `json:"type,omitempty"`
	Name        string            `json:"name,omitempty"`
	ID          string            `json:"id,omitempty"`
	Placeholder string            `json:"placeholder,omitempty"`
	Label       string            `json:"label,omitempty"`
	Value       string            `json:"value,omitempty"`
	Text        string            `json:"text,omitempty"`
	Classes     []string          `json:"classes,omitempty"`
	Attrs       map[string]string `json:"attrs,omitempty"`
	Visible     bool              `json:"visible"`
}

// Attr returns the named attribute, or "" when absent.
func (e ElementInfo) Attr(name string) string {
	if e.Attrs == nil {
		return ""
	}
	return e.Attrs[name]
}

// Document gives read access to a loaded page's structure.
type Document interface {
	URL() string
	Text() string
	HTML() string
	Find(selector string) []ElementInfo
	Exists(selector string) bool
}

// Frame is an embedded sub-document, excluding the main one.
type Frame interface {
	Document
}

// Page combines document access with element interaction. SetValue must emit
// the platform's change and commit notifications so dependent UI logic reacts.
type Page interface {
	Document
	Frames() []Frame
	SetValue(selector, value string) error
	Value(selector string) (string, error)
	Click(selector string) error
	IsVisible(selector string) bool
	IsEnabled(selector string) bool
}

// Response is one completed network exchange.
type Response struct {
	URL         string
	StatusCode  int
	Headers     map[string]string
	ContentType string
	Body        string
}

// ResponseStream delivers completed responses to subscribers. Callbacks are
// invoked on the driver's event loop and interleave arbitrarily with the
// subscriber's own awaited steps; handlers must be reentrant-safe.
type ResponseStream interface {
	// Subscribe registers fn for every completed response and returns a
	// cancel function that detaches it. Cancel is idempotent.
	Subscribe(fn func(Response)) (cancel func())
}
