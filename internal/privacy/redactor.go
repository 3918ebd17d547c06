// Package privacy scrubs personal data from complaint text before it leaves
// the process.
package privacy

import (
	"regexp"
)

// Kind names a class of personal data the redactor recognizes.
type Kind string

const (
	KindCard  Kind = "card"
	KindCPF   Kind = "cpf"
	KindEmail Kind = "email"
	KindPhone Kind = "phone"
)

// pattern pairs a compiled regex with the marker that replaces each match.
type pattern struct {
	kind   Kind
	re     *regexp.Regexp
	marker string
}

// Order matters. Card numbers go first so a 16-digit run is not consumed
// piecemeal by the CPF or phone patterns, and each pattern sees the output of
// the one before it.
var defaultPatterns = []pattern{
	{KindCard, regexp.MustCompile(`\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}`), "[CARTÃO REMOVIDO]"},
	{KindCPF, regexp.MustCompile(`\d{3}\.?\d{3}\.?\d{3}-?\d{2}`), "[CPF REMOVIDO]"},
	{KindEmail, regexp.MustCompile(`[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+`), "[EMAIL REMOVIDO]"},
	{KindPhone, regexp.MustCompile(`\(?\d{2}\)?[\s-]?\d{4,5}-?\d{4}`), "[TELEFONE REMOVIDO]"},
}

// Redactor replaces personal data with fixed markers. It holds no mutable
// state and is safe for concurrent use.
type Redactor struct {
	patterns []pattern
}

// NewRedactor returns a Redactor with the built-in card, CPF, email, and
// phone patterns.
func NewRedactor() *Redactor {
	return &Redactor{patterns: defaultPatterns}
}

// Mask replaces every recognized span in text with its marker and returns the
// masked text together with the total number of replacements.
func (r *Redactor) Mask(text string) (string, int) {
	masked, counts := r.MaskDetailed(text)
	total := 0
	for _, n := range counts {
		total += n
	}
	return masked, total
}

// MaskDetailed is Mask with per-kind replacement counts. Kinds with no
// matches are omitted from the map.
func (r *Redactor) MaskDetailed(text string) (string, map[Kind]int) {
	counts := make(map[Kind]int)
	if text == "" {
		return text, counts
	}
	for _, p := range r.patterns {
		n := len(p.re.FindAllStringIndex(text, -1))
		if n == 0 {
			continue
		}
		text = p.re.ReplaceAllLiteralString(text, p.marker)
		counts[p.kind] += n
	}
	return text, counts
}
