// Package escape holds the HTML escaping applied to text nodes, attribute
// values and the escape pipe.
package escape

import "strings"

var htmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

// HTML escapes the five characters significant in markup and attribute
// values.
func HTML(s string) string {
	if !strings.ContainsAny(s, `&<>"'`) {
		return s
	}

	return htmlReplacer.Replace(s)
}
