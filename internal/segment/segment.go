// Package segment splits a mixed-script input buffer into the half that is
// carried through edits unchanged and the half that feeds the
// transliteration query.
package segment

// CJK Unified Ideographs block.
const (
	ideographFirst rune = 0x4E00
	ideographLast  rune = 0x9FFF
)

// Result holds the two halves of a split buffer.
type Result struct {
	// Retained is the sequence of ideographs already committed to the
	// buffer, in input order.
	Retained string

	// Query is everything else except ASCII digits, in input order. This
	// is the text sent to the transliteration provider.
	Query string
}

// Split scans text rune by rune. Ideographs are retained, ASCII digits are
// dropped (digits are control keys upstream and never persist in the
// buffer), and every other rune joins the query.
func Split(text string) Result {
	var retained, query []rune
	for _, r := range text {
		switch {
		case IsIdeograph(r):
			retained = append(retained, r)
		case r >= '0' && r <= '9':
			// control signal, consumed upstream
		default:
			query = append(query, r)
		}
	}
	return Result{Retained: string(retained), Query: string(query)}
}

// IsIdeograph reports whether r falls in the CJK Unified Ideographs block.
func IsIdeograph(r rune) bool {
	return r >= ideographFirst && r <= ideographLast
}
