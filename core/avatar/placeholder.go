package avatar

import (
	"bytes"
	"text/template"
)

// PlaceholderContentType is the media type of Placeholder output.
const PlaceholderContentType = "image/svg+xml"

const maxPlaceholderSize = 1024

var placeholderTmpl = template.Must(template.New("placeholder").Parse(
	`<svg xmlns="http://www.w3.org/2000/svg" width="{{.Size}}" height="{{.Size}}" viewBox="0 0 150 150" role="img" aria-label="image unavailable">` +
		`<rect width="150" height="150" fill="#f3f4f6" stroke="#d1d5db" stroke-width="4" stroke-dasharray="8 6"/>` +
		`<text x="75" y="78" font-family="sans-serif" font-size="48" fill="#9ca3af" text-anchor="middle">{{.Initial}}</text>` +
		`<text x="75" y="118" font-family="sans-serif" font-size="13" fill="#6b7280" text-anchor="middle">image unavailable</text>` +
		`</svg>`,
))

// Placeholder renders the explicit "image unavailable" badge shown once every candidate failed.
func Placeholder(name string, size int) []byte {
	switch {
	case size <= 0:
		size = 150
	case size > maxPlaceholderSize:
		size = maxPlaceholderSize
	}
	var buf bytes.Buffer
	_ = placeholderTmpl.Execute(&buf, struct {
		Size    int
		Initial string
	}{size, Initial(name)})
	return buf.Bytes()
}
