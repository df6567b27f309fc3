package check

import "regexp"

// addressPattern is the single anchored acceptance rule for addresses.
// Local part: one alphanumeric, then up to 63 of [A-Za-z0-9._%+-].
// Domain: one alphanumeric, then up to 253 of [A-Za-z0-9.-], a dot, and an
// alphabetic TLD of at least two characters.
//
// The rule is deliberately stricter than RFC 5321. Addresses that real mail
// systems would accept (quoted local parts, IP literals, one-letter TLDs)
// are rejected here on purpose: they are rare in bulk lists and almost
// always typos. The exact acceptance set is part of the library's contract;
// do not loosen it.
var addressPattern = regexp.MustCompile(
	`^[A-Za-z0-9][A-Za-z0-9._%+-]{0,63}@[A-Za-z0-9][A-Za-z0-9.-]{0,253}\.[A-Za-z]{2,}$`)

// SyntaxChecker is the format screen, the first pipeline stage.
type SyntaxChecker struct{}

func NewSyntaxChecker() *SyntaxChecker {
	return &SyntaxChecker{}
}

// Check reports whether the address matches the acceptance rule.
func (c *SyntaxChecker) Check(address string) bool {
	return addressPattern.MatchString(address)
}
