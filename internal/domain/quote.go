// Package domain contains core business entities and rules.
package domain

// Quote is a quotation with its author attribution.
// It is an opaque value produced by the remote quote service: no validation,
// normalization or derived fields.
type Quote struct {
	// Text is the quotation itself.
	Text string

	// Author is who said or wrote the quote.
	Author string
}

// IsEmpty reports whether q is the "not yet loaded" sentinel.
// Only the quote text is considered, an attribution alone renders nothing.
func (q Quote) IsEmpty() bool {
	return q.Text == ""
}
