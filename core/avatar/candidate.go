package avatar

import (
	"encoding/base64"
	"net/url"
	"regexp"
	"strings"
)

// MinPayloadLen rejects obviously truncated base64 payloads.
const MinPayloadLen = 100

var (
	dataURIRegex      = regexp.MustCompile(`(?i)^data:image/([a-z0-9.+-]+);base64,`)
	allowedImageTypes = map[string]bool{
		"png":     true,
		"jpeg":    true,
		"jpg":     true,
		"gif":     true,
		"webp":    true,
		"bmp":     true,
		"svg+xml": true,
	}
)

// IsDataURI reports whether candidate looks like an inline `data:` reference.
func IsDataURI(candidate string) bool {
	return len(candidate) >= 5 && strings.EqualFold(candidate[:5], "data:")
}

// checkDataURI validates a base64 image data URI without touching the network.
func checkDataURI(candidate string) Result {
	m := dataURIRegex.FindStringSubmatch(candidate)
	if m == nil {
		return invalid(KindInvalidFormat, "invalid format")
	}
	if !allowedImageTypes[strings.ToLower(m[1])] {
		return invalid(KindInvalidFormat, "unsupported image format")
	}

	payload := candidate[len(m[0]):]
	if len(payload) < MinPayloadLen {
		return invalid(KindInvalidFormat, "too short")
	}
	if !decodes(payload) {
		return invalid(KindInvalidFormat, "invalid base64")
	}
	return valid("")
}

func decodes(payload string) bool {
	if _, err := base64.StdEncoding.DecodeString(payload); err == nil {
		return true
	}
	_, err := base64.RawStdEncoding.DecodeString(payload)
	return err == nil
}

// parseURL resolves candidate into an absolute http(s) URL. Relative references need a base.
func parseURL(candidate string, base *url.URL) (*url.URL, bool) {
	u, err := url.Parse(candidate)
	if err != nil {
		return nil, false
	}
	if !u.IsAbs() {
		if base == nil || (u.Host == "" && u.Path == "") {
			return nil, false
		}
		u = base.ResolveReference(u)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, false
	}
	return u, true
}

// CheckFormat checks that candidate is a well formed image reference: a base64 image data URI
// or an http(s) URL (relative paths are accepted when base is set). It never probes the network.
func CheckFormat(candidate string, base *url.URL) Result {
	candidate = strings.TrimSpace(candidate)
	switch {
	case candidate == "":
		return invalid(KindMissingSource, "missing")
	case IsDataURI(candidate):
		return checkDataURI(candidate)
	}
	if _, ok := parseURL(candidate, base); !ok {
		return invalid(KindInvalidFormat, "invalid url")
	}
	return valid("")
}

// DecodeDataURI returns the media type and content of a valid base64 image data URI.
func DecodeDataURI(candidate string) (string, []byte, bool) {
	candidate = strings.TrimSpace(candidate)
	if !checkDataURI(candidate).Valid {
		return "", nil, false
	}
	m := dataURIRegex.FindStringSubmatch(candidate)
	payload := candidate[len(m[0]):]
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		if data, err = base64.RawStdEncoding.DecodeString(payload); err != nil {
			return "", nil, false
		}
	}

	format := strings.ToLower(m[1])
	if format == "jpg" {
		format = "jpeg"
	}
	return "image/" + format, data, true
}
