package verifykit

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/optimode/verifykit/check"
	"github.com/optimode/verifykit/internal/dnscache"
	"github.com/optimode/verifykit/internal/parse"
	"github.com/optimode/verifykit/stats"
	"github.com/optimode/verifykit/types"
)

// MaxBatchSize is the hard ceiling on addresses per batch. Larger batches
// are refused before any address is scheduled.
const MaxBatchSize = 50000

// statsInterval is how many verdicts pass between periodic stats callbacks.
const statsInterval = 100

// ProgressFunc is called once per address as its verdict is produced.
// completed is monotonically increasing and takes every value in 1..total
// exactly once; calls may interleave in any order within a scheduling group.
type ProgressFunc func(completed, total int, verdict types.Verdict)

// StatsFunc receives a snapshot of the aggregate over the verdicts
// produced so far. It fires at every 100-verdict boundary and once more
// with the final aggregate at batch end.
type StatsFunc func(statistics types.Statistics)

// MXLookupFunc resolves MX records; injectable via Options for tests.
type MXLookupFunc = check.LookupFunc

// DialFunc opens the TCP connection for an SMTP probe; injectable via
// Options for tests.
type DialFunc = func(ctx context.Context, network, address string) (net.Conn, error)

// Verifier composes the validation pipeline: format screen, MX resolution,
// SMTP probes with MX fallback, and the batched, rate-limited scheduler.
// A Verifier is safe for concurrent use and holds no state between jobs.
type Verifier struct {
	opts   Options
	syntax *check.SyntaxChecker
	dns    *check.DNSChecker
	domain *check.DomainChecker
	prober *check.Prober

	// test seams, taken from Options
	mxLookup MXLookupFunc
	dial     DialFunc
}

// New creates a Verifier. With no Options all defaults apply; with an
// explicit Options, zero fields fall back to their defaults.
func New(opts ...Options) *Verifier {
	o := defaultOptions()
	if len(opts) > 0 {
		o = opts[0].withDefaults()
	}

	v := &Verifier{
		opts:   o,
		syntax: check.NewSyntaxChecker(),
		domain: check.NewDomainChecker(check.DomainConfig{
			CheckDisposable: !o.SkipDisposableCheck,
			CheckTypos:      !o.SkipTypoCheck,
			TypoThreshold:   o.TypoThreshold,
		}),
		mxLookup: o.MXLookup,
		dial:     o.Dial,
	}

	dnsCfg := check.DNSConfig{Timeout: o.DNSTimeout}
	if v.mxLookup != nil {
		v.dns = check.NewDNSCheckerWithLookup(dnsCfg, v.mxLookup)
	} else {
		v.dns = check.NewDNSChecker(dnsCfg)
	}

	v.prober = check.NewProber(check.SMTPConfig{
		HeloDomain: o.HeloDomain,
		MailFrom:   o.MailFrom,
		Port:       o.Port,
		Timeout:    o.SMTPTimeout,
		Dial:       v.dial,
	})
	return v
}

// VerifyOne classifies a single address. It never returns an error: every
// failure mode is a verdict category.
func (v *Verifier) VerifyOne(ctx context.Context, address string) types.Verdict {
	return v.safeVerify(ctx, address, v.dns)
}

// VerifyBatch classifies every address and returns the verdicts in input
// order together with the aggregate statistics.
//
// Addresses are processed in contiguous groups of Options.ConcurrentLimit;
// every group after the first is preceded by Options.RateLimitDelay, and no
// address of group k+1 starts before every address of group k has produced
// a verdict. This group barrier is the rate-limit contract towards external
// mail servers, not an implementation detail.
//
// onProgress and onStatsUpdate may be nil. A panic while verifying one
// address yields a processing_error verdict for that address; it never
// aborts the batch. Cancelling ctx stops the batch at the next group
// boundary with ctx.Err().
func (v *Verifier) VerifyBatch(ctx context.Context, addresses []string, onProgress ProgressFunc, onStatsUpdate StatsFunc) (*BatchResult, error) {
	if len(addresses) == 0 {
		return nil, ErrNoAddresses
	}
	if len(addresses) > MaxBatchSize {
		return nil, fmt.Errorf("%w: %d addresses, limit is %d", ErrBatchTooLarge, len(addresses), MaxBatchSize)
	}

	// MX lookups are deduplicated for the lifetime of this batch only;
	// nothing is cached across jobs.
	var cache *dnscache.Cache
	if v.mxLookup != nil {
		cache = dnscache.NewWithResolver(v.opts.DNSTimeout, resolverFunc(v.mxLookup))
	} else {
		cache = dnscache.New(v.opts.DNSTimeout)
	}
	dns := check.NewDNSCheckerWithLookup(check.DNSConfig{Timeout: v.opts.DNSTimeout}, cache.LookupMX)

	total := len(addresses)
	results := make([]types.Verdict, total)
	agg := stats.NewAggregator()
	completed := 0
	var mu sync.Mutex

	limit := v.opts.ConcurrentLimit
	for start := 0; start < total; start += limit {
		if start > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(v.opts.RateLimitDelay):
			}
		}

		end := start + limit
		if end > total {
			end = total
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				verdict := v.safeVerify(ctx, addresses[idx], dns)

				// The lock covers the result slot, the counter, the
				// aggregate and the callbacks: progress observers see
				// strictly increasing counts and consistent snapshots.
				mu.Lock()
				defer mu.Unlock()
				results[idx] = verdict
				agg.Add(verdict)
				completed++
				if onProgress != nil {
					onProgress(completed, total, verdict)
				}
				if onStatsUpdate != nil && completed%statsInterval == 0 {
					onStatsUpdate(agg.Snapshot())
				}
			}(i)
		}
		wg.Wait()
	}

	final := agg.Snapshot()
	if onStatsUpdate != nil {
		onStatsUpdate(final)
	}
	return &BatchResult{Results: results, Statistics: final}, nil
}

// safeVerify shields the scheduler from a panicking pipeline: one failed
// address becomes a processing_error verdict instead of taking down the job.
func (v *Verifier) safeVerify(ctx context.Context, address string, dns *check.DNSChecker) (verdict types.Verdict) {
	defer func() {
		if r := recover(); r != nil {
			verdict = newVerdict(address, types.CategoryProcessingError,
				fmt.Sprintf("Verification failed: %v", r), types.Details{})
		}
	}()
	return v.verifyAddress(ctx, address, dns)
}

// verifyAddress runs the pipeline for one address: format screen, MX
// resolution, then SMTP probes against the exchangers in priority order.
func (v *Verifier) verifyAddress(ctx context.Context, address string, dns *check.DNSChecker) types.Verdict {
	email := parse.NewEmail(address)

	var details types.Details
	if email.Valid {
		details.Disposable, details.Suggestion = v.domain.Annotate(email.Domain, email.DomainUnicode)
	}

	if !v.syntax.Check(address) || !email.Valid {
		return newVerdict(address, types.CategoryInvalidFormat,
			"Invalid email address format", details)
	}

	hosts, err := dns.Resolve(ctx, email.Domain)
	if err != nil {
		return newVerdict(address, types.CategoryDNSError,
			"DNS lookup failed", details)
	}
	if len(hosts) == 0 {
		return newVerdict(address, types.CategoryNoMXRecords,
			"Domain has no MX records", details)
	}
	details.MXRecords = hosts

	// The wire always sees the ASCII (Punycode) domain form.
	recipient := email.Local + "@" + email.Domain

	var last *check.ProbeResult
	var lastHost string
	for _, host := range hosts {
		res, err := v.prober.Probe(ctx, host, recipient)
		if err != nil {
			// The probe never started; skip this host.
			continue
		}
		if res.Category == types.CategoryValid {
			details.SMTPServer = host
			return newVerdict(address, res.Category, res.Message, details)
		}

		// Keep the latest non-valid verdict and fall through to the next
		// exchanger: front MXes are known to over-reject.
		last, lastHost = &res, host
		if v.opts.StopOnNoUser && res.Category == types.CategoryNotExisting {
			break
		}
	}

	if last != nil {
		details.SMTPServer = lastHost
		return newVerdict(address, last.Category, last.Message, details)
	}
	return newVerdict(address, types.CategorySMTPTimeout,
		"All SMTP servers unreachable", details)
}

// newVerdict keeps the IsValid/Category coupling in one place.
func newVerdict(address string, category types.Category, message string, details types.Details) types.Verdict {
	return types.Verdict{
		Address:  address,
		IsValid:  category == types.CategoryValid,
		Category: category,
		Message:  message,
		Details:  details,
	}
}

// resolverFunc adapts a lookup function to the dnscache resolver interface.
type resolverFunc check.LookupFunc

func (f resolverFunc) LookupMX(ctx context.Context, name string) ([]*net.MX, error) {
	return f(ctx, name)
}
