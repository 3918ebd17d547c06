package privacy

import (
	"github.com/Vini334/ReclamaAI/internal/model"
)

// Anonymize returns a copy of rec with the description, title, and consumer
// contact masked. rec itself is never modified. The int is the total number
// of replacements across all three fields.
func (r *Redactor) Anonymize(rec model.ComplaintRecord) (model.ComplaintRecord, int) {
	out := rec
	total := 0

	var n int
	out.Description, n = r.Mask(rec.Description)
	total += n

	if rec.Title != "" {
		out.Title, n = r.Mask(rec.Title)
		total += n
	}
	if rec.ConsumerContact != "" {
		out.ConsumerContact, n = r.Mask(rec.ConsumerContact)
		total += n
	}

	return out, total
}
