// Package delivery implements the newsletter batch-delivery pipeline:
// recipient validation and classification, chunk planning, rate-limited
// dispatch with bounded retries, and progress tracking.
package delivery

import (
	"regexp"
	"strings"
)

// addressPattern is the syntax rule applied to every recipient literal:
// local@domain.tld with no embedded whitespace. Validation and
// classification share this single rule so they cannot diverge.
var addressPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Recipient is a single classified target address for a campaign.
type Recipient struct {
	Address string `json:"address"`
	IsNew   bool   `json:"isNew"`
}

// ParseResult is the outcome of parsing a raw recipient list.
type ParseResult struct {
	// Valid holds syntactically valid addresses, lowercased and trimmed,
	// deduplicated in first-occurrence order.
	Valid []string
	// Invalid holds the rejected literals as they were typed (trimmed).
	Invalid []string
	// Duplicates counts valid literals dropped as repeats, so that
	// len(Valid) + len(Invalid) + Duplicates equals the number of
	// literals parsed.
	Duplicates int
}

// TotalParsed returns the number of non-empty literals seen in the input.
func (r ParseResult) TotalParsed() int {
	return len(r.Valid) + len(r.Invalid) + r.Duplicates
}

// ParseRecipients splits raw newline- or comma-separated text into valid
// addresses and rejected literals. It never fails; malformed input simply
// yields zero valid addresses.
func ParseRecipients(raw string) ParseResult {
	var result ParseResult
	seen := make(map[string]struct{})

	literals := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '\n' || r == '\r' || r == ','
	})

	for _, literal := range literals {
		literal = strings.TrimSpace(literal)
		if literal == "" {
			continue
		}

		address := strings.ToLower(literal)
		if !addressPattern.MatchString(address) {
			result.Invalid = append(result.Invalid, literal)
			continue
		}

		if _, ok := seen[address]; ok {
			result.Duplicates++
			continue
		}
		seen[address] = struct{}{}
		result.Valid = append(result.Valid, address)
	}

	return result
}

// IsValidAddress reports whether a single address passes the recipient
// syntax rule.
func IsValidAddress(address string) bool {
	return addressPattern.MatchString(strings.ToLower(strings.TrimSpace(address)))
}
