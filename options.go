package verifykit

import "time"

// Options configures a Verifier. The zero value of every field means
// "use the default".
type Options struct {
	// ConcurrentLimit is the number of addresses probed concurrently
	// within one scheduling group. Default: 5
	ConcurrentLimit int
	// RateLimitDelay is the pause between scheduling groups. Default: 200ms
	RateLimitDelay time.Duration
	// SMTPTimeout is the wall-clock budget for one whole SMTP conversation,
	// from TCP connect to resolution. Default: 15s
	SMTPTimeout time.Duration
	// DNSTimeout is the maximum time for one MX lookup. Default: 5s
	DNSTimeout time.Duration
	// HeloDomain is the domain sent in the HELO command.
	// Default: "email-validator.com". Receivers may SPF-check this name;
	// callers that own a domain should set their own.
	HeloDomain string
	// MailFrom is the envelope sender for the MAIL FROM command.
	// Default: "check@email-validator.com"
	MailFrom string
	// Port is the SMTP port probed on each MX host. Default: "25"
	Port string
	// StopOnNoUser stops the MX fallback as soon as one host answers
	// 550/551. By default the verifier keeps trying lower-priority hosts,
	// because front MXes are known to over-reject.
	StopOnNoUser bool
	// SkipDisposableCheck disables the disposable-domain annotation on
	// verdict details.
	SkipDisposableCheck bool
	// SkipTypoCheck disables the domain typo suggestion on verdict details.
	SkipTypoCheck bool
	// TypoThreshold is the Levenshtein distance threshold for typo
	// suggestions. Default: 2
	TypoThreshold int
	// MXLookup overrides the MX resolver. Injectable for testing.
	MXLookup MXLookupFunc
	// Dial overrides the dialer used for SMTP probes. Injectable for
	// testing.
	Dial DialFunc
}

func defaultOptions() Options {
	return Options{
		ConcurrentLimit: 5,
		RateLimitDelay:  200 * time.Millisecond,
		SMTPTimeout:     15 * time.Second,
		DNSTimeout:      5 * time.Second,
		HeloDomain:      "email-validator.com",
		MailFrom:        "check@email-validator.com",
		Port:            "25",
		TypoThreshold:   2,
	}
}

func (o Options) withDefaults() Options {
	def := defaultOptions()
	if o.ConcurrentLimit <= 0 {
		o.ConcurrentLimit = def.ConcurrentLimit
	}
	if o.RateLimitDelay <= 0 {
		o.RateLimitDelay = def.RateLimitDelay
	}
	if o.SMTPTimeout <= 0 {
		o.SMTPTimeout = def.SMTPTimeout
	}
	if o.DNSTimeout <= 0 {
		o.DNSTimeout = def.DNSTimeout
	}
	if o.HeloDomain == "" {
		o.HeloDomain = def.HeloDomain
	}
	if o.MailFrom == "" {
		o.MailFrom = def.MailFrom
	}
	if o.Port == "" {
		o.Port = def.Port
	}
	if o.TypoThreshold <= 0 {
		o.TypoThreshold = def.TypoThreshold
	}
	return o
}
