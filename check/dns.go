package check

import (
	"context"
	"errors"
	"net"
	"sort"
	"strings"
	"time"
)

// DNSConfig is the MX resolver configuration.
type DNSConfig struct {
	Timeout time.Duration
}

// LookupFunc resolves the MX records of a domain. Injectable so tests and
// the batch scheduler can supply their own (mocked or deduplicated) lookup.
type LookupFunc func(ctx context.Context, domain string) ([]*net.MX, error)

// DNSChecker resolves a domain to its mail exchangers.
type DNSChecker struct {
	cfg    DNSConfig
	lookup LookupFunc
}

func NewDNSChecker(cfg DNSConfig) *DNSChecker {
	r := &net.Resolver{}
	return &DNSChecker{cfg: cfg, lookup: r.LookupMX}
}

// NewDNSCheckerWithLookup overrides the MX lookup function.
func NewDNSCheckerWithLookup(cfg DNSConfig, fn LookupFunc) *DNSChecker {
	c := NewDNSChecker(cfg)
	c.lookup = fn
	return c
}

// Resolve returns the exchanger hostnames for the domain, sorted by
// priority ascending with resolver-order ties. A domain with no MX records
// (including NXDOMAIN) yields an empty list and a nil error; the caller
// maps that to no_mx_records. A non-nil error means the resolver itself
// failed and maps to dns_error.
func (c *DNSChecker) Resolve(ctx context.Context, domain string) ([]string, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	records, err := c.lookup(ctx, domain)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return nil, nil
		}
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Pref < records[j].Pref
	})

	hosts := make([]string, 0, len(records))
	for _, r := range records {
		host := strings.TrimSuffix(r.Host, ".")
		if host == "" {
			// RFC 7505 null MX ("."): the domain refuses mail.
			continue
		}
		hosts = append(hosts, host)
	}
	return hosts, nil
}
