// ABOUTME: Built-in code table data: zone/digit composition for letters plus per-table specials
// ABOUTME: Specials use keypunch chart notation ("12-3-8") and are parsed once at init

package hollerith

import (
	"fmt"

	"github.com/mauromedda/punchcard-go/pkg/card"
)

func init() {
	register(build("ibm029", "IBM 029 keypunch (EBCDIC era)", specials029))
	register(build("fortran", "IBM 026 FORTRAN character set", specials026Fortran))
	register(build("commercial", "IBM 026 commercial character set", specials026Commercial))
	register(build("ebcdic", "IBM 029 with EBCDIC lowercase and extras", merge(specials029, ebcdicExtras, ebcdicLowercase())))
	register(build("ascii", "EBCDIC table with ASCII bracket and caret substitutions", asciiSpecials()))
}

// letterRanges lists the zone punch and first digit for each letter range.
// Zone 0 starts at digit 2: 0-1 is never a letter.
var letterRanges = []struct {
	first, last rune
	zone        card.RowLabel
	digit       card.RowLabel
}{
	{'A', 'I', 12, 1},
	{'J', 'R', 11, 1},
	{'S', 'Z', 0, 2},
}

// alphanumerics returns the letter and digit codes shared by every table.
func alphanumerics() map[rune]card.RowSet {
	codes := make(map[rune]card.RowSet, 36)
	for _, lr := range letterRanges {
		digit := lr.digit
		for r := lr.first; r <= lr.last; r++ {
			codes[r] = card.NewRowSet(lr.zone, digit)
			digit++
		}
	}
	for d := '0'; d <= '9'; d++ {
		codes[d] = card.NewRowSet(card.RowLabel(d - '0'))
	}
	return codes
}

var specials029 = map[rune]string{
	'&': "12", '-': "11", '/': "0-1",
	'¢': "12-2-8", '.': "12-3-8", '<': "12-4-8", '(': "12-5-8", '+': "12-6-8", '|': "12-7-8",
	'!': "11-2-8", '$': "11-3-8", '*': "11-4-8", ')': "11-5-8", ';': "11-6-8", '¬': "11-7-8",
	',': "0-3-8", '%': "0-4-8", '_': "0-5-8", '>': "0-6-8", '?': "0-7-8",
	':': "2-8", '#': "3-8", '@': "4-8", '\'': "5-8", '=': "6-8", '"': "7-8",
}

var specials026Fortran = map[rune]string{
	'+': "12", '-': "11", '/': "0-1",
	'.': "12-3-8", ')': "12-4-8",
	'$': "11-3-8", '*': "11-4-8",
	',': "0-3-8", '(': "0-4-8",
	'=': "3-8", '\'': "4-8",
}

var specials026Commercial = map[rune]string{
	'&': "12", '-': "11", '/': "0-1",
	'.': "12-3-8", '¤': "12-4-8",
	'$': "11-3-8", '*': "11-4-8",
	',': "0-3-8", '%': "0-4-8",
	'#': "3-8", '@': "4-8",
}

var ebcdicExtras = map[rune]string{
	'\\': "0-2-8", '{': "12-0", '}': "11-0", '~': "11-0-1",
}

// ebcdicLowercase returns the EBCDIC card codes for a-z: the uppercase
// digit punch under a doubled zone (12-0, 12-11, 11-0).
func ebcdicLowercase() map[rune]string {
	out := make(map[rune]string, 26)
	zones := []string{"12-0", "12-11", "11-0"}
	for i, lr := range letterRanges {
		digit := int(lr.digit)
		for r := lr.first; r <= lr.last; r++ {
			out[r-'A'+'a'] = fmt.Sprintf("%s-%d", zones[i], digit)
			digit++
		}
	}
	return out
}

// asciiSpecials derives the ASCII extension from the EBCDIC table.
func asciiSpecials() map[rune]string {
	out := merge(specials029, ebcdicExtras, ebcdicLowercase())
	delete(out, '¢')
	delete(out, '¬')
	out['['] = "12-2-8"
	out[']'] = "11-2-8"
	out['!'] = "12-7-8"
	out['|'] = "12-11"
	out['^'] = "11-7-8"
	out['`'] = "1-8"
	return out
}

func merge(sets ...map[rune]string) map[rune]string {
	out := make(map[rune]string)
	for _, s := range sets {
		for r, v := range s {
			out[r] = v
		}
	}
	return out
}

func build(name, description string, specials map[rune]string) (*Table, error) {
	codes := alphanumerics()
	for r, notation := range specials {
		rows, err := card.ParseRowSet(notation)
		if err != nil {
			return nil, fmt.Errorf("table %s, %q: %w", name, r, err)
		}
		codes[r] = rows
	}
	return NewTable(name, description, codes)
}
