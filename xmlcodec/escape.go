// Package xmlcodec renders SOAP parameter blocks and extracts values from
// rs.ge response fragments.
//
// Responses are parsed with a real XML parser, but lookups are by bare
// local tag name: the remote service never nests an element inside one of
// the same name and never carries required data in attributes. The
// transport layer relies on both assumptions.
package xmlcodec

import "strings"

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// Escape replaces the five XML special characters with their entities.
// It must be applied exactly once to a value.
func Escape(s string) string {
	return escaper.Replace(s)
}
