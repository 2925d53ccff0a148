package lineproto

import "strings"

// tagEscaper rewrites the characters that are significant in a tag value.
// Replacer scans once, so the backslash added for a space is never escaped again.
var tagEscaper = strings.NewReplacer(
	`\`, `\\`,
	` `, `\ `,
	`,`, `\,`,
	`=`, `\=`,
)

// EscapeTag escapes backslash, space, comma and equals in a tag value.
func EscapeTag(s string) string {
	if !strings.ContainsAny(s, "\\ ,=") {
		return s
	}
	return tagEscaper.Replace(s)
}
