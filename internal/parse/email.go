// Package parse splits an email address into its local and domain parts.
package parse

import (
	"strings"

	"golang.org/x/net/idna"
)

// Email is the internal representation of a split email address. The
// address is treated opaquely except for one split on the final '@'.
type Email struct {
	Raw           string // the original, trimmed input
	Local         string // the part before the final @
	Domain        string // the part after the final @, ASCII/Punycode form (for DNS/SMTP)
	DomainRaw     string // the part after the final @, exactly as submitted
	DomainUnicode string // the part after the final @, Unicode form (for display/typo detection)
	Valid         bool   // false if Raw has no usable @ split
}

// NewEmail splits the address on its final '@'. Internationalized domains
// are converted to Punycode (IDNA2008) so DNS and SMTP always see the
// ASCII form. If the split fails, Valid=false but Raw is always populated.
func NewEmail(raw string) Email {
	raw = strings.TrimSpace(raw)

	atIdx := strings.LastIndex(raw, "@")
	if atIdx < 1 || atIdx >= len(raw)-1 {
		return Email{Raw: raw, Valid: false}
	}
	local := raw[:atIdx]
	domainRaw := raw[atIdx+1:]

	ascii, unicode, ok := convertDomain(strings.ToLower(domainRaw))
	if !ok {
		return Email{Raw: raw, Valid: false}
	}

	return Email{
		Raw:           raw,
		Local:         local,
		Domain:        ascii,
		DomainRaw:     domainRaw,
		DomainUnicode: unicode,
		Valid:         true,
	}
}

// convertDomain converts a domain to both ASCII/Punycode and Unicode forms.
// Returns (ascii, unicode, ok). ok is false if the domain contains
// non-ASCII characters that fail IDNA2008 validation.
func convertDomain(domain string) (ascii, unicode string, ok bool) {
	hasNonASCII := false
	for _, r := range domain {
		if r > 127 {
			hasNonASCII = true
			break
		}
	}

	if hasNonASCII {
		a, err := idna.Lookup.ToASCII(domain)
		if err != nil {
			return "", "", false
		}
		return a, domain, true
	}

	// Pure ASCII domain: try to get the Unicode display form
	// (handles existing Punycode like xn--mnchen-3ya.de → münchen.de)
	u, err := idna.Display.ToUnicode(domain)
	if err != nil {
		u = domain
	}
	return domain, u, true
}
