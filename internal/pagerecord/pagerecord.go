// Package pagerecord holds the normalized page representation (§3) that
// both the lite and browser renderers produce, plus the pure helpers
// (absolutizing links, selecting main content) shared by both.
package pagerecord

// Heading is one {level, text} pair, level in [1,6], text capped at 200 chars.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// Link is one {text, href} pair; href is always an absolute URL string.
type Link struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// FieldKind discriminates a form field's concrete shape.
type FieldKind string

const (
	FieldInput    FieldKind = "input"
	FieldTextarea FieldKind = "textarea"
	FieldSelect   FieldKind = "select"
)

// FormField is a tagged-union form control: Kind selects which of the
// remaining fields are meaningful (Type for input, Placeholder/Required for
// input and textarea, Options for select).
type FormField struct {
	Kind        FieldKind `json:"kind"`
	Name        string    `json:"name"`
	Type        string    `json:"type,omitempty"`        // input only
	Placeholder string    `json:"placeholder,omitempty"` // input/textarea
	Required    bool      `json:"required,omitempty"`     // input/textarea
	Options     []string  `json:"options,omitempty"`      // select only, <=20
}

// Form is one {action, method, fields} record; Method is always uppercased.
type Form struct {
	Action string      `json:"action"`
	Method string      `json:"method"`
	Fields []FormField `json:"fields"`
}

// Image is one {src, alt, width, height} record, src absolutized.
type Image struct {
	Src    string `json:"src"`
	Alt    string `json:"alt"`
	Width  string `json:"width,omitempty"`
	Height string `json:"height,omitempty"`
}

// TableRow is one row of a table: a slice of cell strings.
type TableRow []string

// Stats mirrors the lengths of PageRecord's array fields (invariant: every
// count here equals len() of the corresponding slice).
type Stats struct {
	HeadingCount int `json:"headingCount"`
	LinkCount    int `json:"linkCount"`
	FormCount    int `json:"formCount"`
	ImageCount   int `json:"imageCount"`
	TableCount   int `json:"tableCount"`
	TextLength   int `json:"textLength"`
}

// Backend labels which renderer produced a PageRecord.
type Backend string

const (
	BackendLite         Backend = "lite"
	BackendPlaywright    Backend = "playwright"
	BackendLiteFallback Backend = "lite-fallback"
	BackendError        Backend = "error"
)

// PageRecord is the normalized representation of one rendered page (§3).
type PageRecord struct {
	URL         string            `json:"url"`
	Title       string            `json:"title"`
	Meta        map[string]string `json:"meta"`
	Headings    []Heading         `json:"headings"`
	Links       []Link            `json:"links"`
	Forms       []Form            `json:"forms"`
	Images      []Image           `json:"images"`
	Tables      []TableRow        `json:"tables"`
	TextContent string            `json:"textContent"`
	Stats       Stats             `json:"stats"`
	HTTPStatus  int               `json:"httpStatus"`
	ContentType string            `json:"contentType"`
	BackendTag  Backend           `json:"backendTag"`
}

// ComputeStats recomputes Stats from the current slice lengths — call this
// after populating a PageRecord's fields to uphold the §3 invariant.
func (p *PageRecord) ComputeStats() {
	p.Stats = Stats{
		HeadingCount: len(p.Headings),
		LinkCount:    len(p.Links),
		FormCount:    len(p.Forms),
		ImageCount:   len(p.Images),
		TableCount:   len(p.Tables),
		TextLength:   len(p.TextContent),
	}
}
