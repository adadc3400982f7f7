package avatar

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

const DefaultColor = "9333ea"

var (
	// DefaultFallbacks are generic images known to load, tried after the personalized ones.
	DefaultFallbacks = []string{
		"https://via.placeholder.com/150/9333ea/FFFFFF?text=USER",
		"https://via.placeholder.com/150/0066cc/FFFFFF?text=AVATAR",
		"https://dummyimage.com/150x150/28a745/ffffff&text=OK",
		"https://ui-avatars.com/api/?name=User&size=150&background=9333ea&color=fff",
	}

	// EmergencyFallbacks close every chain.
	EmergencyFallbacks = []string{
		"https://via.placeholder.com/150/6c757d/FFFFFF?text=DEFAULT",
		"https://dummyimage.com/150x150/6c757d/ffffff&text=User",
	}

	hexColorRegex = regexp.MustCompile(`^[0-9a-fA-F]{6}$`)
)

// Personalized builds the fallbacks derived from a display name and a preferred color:
// an initial letter placeholder, a generated avatar and a two letters badge.
// There are none without a name.
func Personalized(name, color string) []string {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	color = strings.TrimPrefix(strings.TrimSpace(color), "#")
	if !hexColorRegex.MatchString(color) {
		color = DefaultColor
	}
	color = strings.ToLower(color)

	return []string{
		"https://via.placeholder.com/150/" + color + "/FFFFFF?text=" + escape(initials(name, 1)),
		"https://ui-avatars.com/api/?name=" + escape(name) + "&size=150&background=" + color + "&color=fff",
		"https://dummyimage.com/150x150/" + color + "/ffffff&text=" + escape(initials(name, 2)),
	}
}

// Sequence orders the candidates of one resolution: primary first (when present), then the
// personalized and generic fallbacks. Blank entries and duplicates are dropped, first occurrence wins.
func Sequence(primary string, groups ...[]string) []string {
	seen := make(map[string]bool)
	seq := make([]string, 0, 8)
	add := func(c string) {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			return
		}
		seen[c] = true
		seq = append(seq, c)
	}

	add(primary)
	for _, group := range groups {
		for _, c := range group {
			add(c)
		}
	}
	return seq
}

func initials(name string, n int) string {
	runes := []rune(name)
	if len(runes) > n {
		runes = runes[:n]
	}
	return strings.ToUpper(string(runes))
}

// escape mirrors encodeURIComponent: spaces become %20, not `+`.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// Initial returns the first letter of name, upper cased, or `?` if there is none.
func Initial(name string) string {
	for _, r := range strings.TrimSpace(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return strings.ToUpper(string(r))
		}
	}
	return "?"
}
