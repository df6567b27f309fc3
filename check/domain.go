package check

import (
	"strings"

	"github.com/optimode/verifykit/internal/disposable"
	"github.com/optimode/verifykit/internal/levenshtein"
)

// DomainConfig is the domain annotator configuration.
type DomainConfig struct {
	CheckDisposable bool
	CheckTypos      bool
	TypoThreshold   int
}

// DomainChecker annotates verdicts with domain-level intelligence:
// disposable-provider detection and typo suggestions. Annotations never
// change a verdict's category; the deliverability taxonomy is closed.
type DomainChecker struct {
	cfg            DomainConfig
	knownProviders []string
}

// defaultKnownProviders is the list of known major email providers.
// If a domain is within TypoThreshold distance from one of these,
// the closest one is suggested.
var defaultKnownProviders = []string{
	"gmail.com", "googlemail.com",
	"yahoo.com", "yahoo.co.uk", "yahoo.fr", "yahoo.de",
	"outlook.com", "hotmail.com", "hotmail.co.uk", "live.com",
	"icloud.com", "me.com", "mac.com",
	"protonmail.com", "proton.me",
	"aol.com",
	"zoho.com",
	"yandex.com", "yandex.ru",
	"mail.com",
	"gmx.com", "gmx.net", "gmx.de",
	"fastmail.com",
	"tutanota.com",
}

func NewDomainChecker(cfg DomainConfig) *DomainChecker {
	return &DomainChecker{
		cfg:            cfg,
		knownProviders: defaultKnownProviders,
	}
}

// Annotate inspects the domain (ASCII and Unicode forms) and returns
// whether it is a known disposable provider, and a suggested correction
// when it looks like a typo of a major provider.
func (c *DomainChecker) Annotate(asciiDomain, unicodeDomain string) (isDisposable bool, suggestion string) {
	ascii := strings.ToLower(asciiDomain)
	uni := strings.ToLower(unicodeDomain)

	if c.cfg.CheckDisposable {
		isDisposable = disposable.IsDisposable(ascii)
	}
	if c.cfg.CheckTypos {
		suggestion = c.findTypoSuggestion(uni)
	}
	return isDisposable, suggestion
}

// findTypoSuggestion finds the closest known provider. If the distance is
// <= TypoThreshold and the domain is not an exact match, it returns the
// suggested domain. Otherwise returns an empty string.
func (c *DomainChecker) findTypoSuggestion(domain string) string {
	bestDist := c.cfg.TypoThreshold + 1
	bestMatch := ""

	for _, provider := range c.knownProviders {
		if domain == provider {
			return "" // exact match, no typo
		}
		dist := levenshtein.Distance(domain, provider)
		if dist <= c.cfg.TypoThreshold && dist < bestDist {
			bestDist = dist
			bestMatch = provider
		}
	}

	return bestMatch
}
