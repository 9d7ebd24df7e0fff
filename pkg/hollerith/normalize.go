// ABOUTME: Text normalization before encoding: NFC composition and table-aware upper-casing
// ABOUTME: Tables without lowercase codes get Unicode upper-case text via x/text/cases

package hollerith

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Normalize composes text to NFC and, when t has no lowercase codes,
// upper-cases it. Characters the table still lacks are left for the
// encoder to report.
func Normalize(text string, t *Table) string {
	text = norm.NFC.String(text)
	if t.HasLowercase() {
		return text
	}
	return cases.Upper(language.Und).String(text)
}
