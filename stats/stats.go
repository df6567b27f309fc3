// Package stats folds verdicts into aggregate deliverability statistics:
// totals, a category histogram, per-domain tallies and the top domains by
// volume with their validity rate.
package stats

import (
	"sort"
	"strconv"
	"strings"

	"github.com/optimode/verifykit/types"
)

// TopDomainCount is how many domains the TopDomains ranking carries.
const TopDomainCount = 10

// Aggregator accumulates verdicts. It is not safe for concurrent use; the
// batch scheduler serializes Add calls under its own lock.
type Aggregator struct {
	total      int
	valid      int
	invalid    int
	categories map[types.Category]int
	domains    map[string]*types.DomainStat
	// domainOrder preserves first-seen order so that ranking ties break
	// by insertion.
	domainOrder []string
}

// NewAggregator returns an empty aggregator. Every category of the closed
// set is present from the start with a zero count.
func NewAggregator() *Aggregator {
	categories := make(map[types.Category]int, len(types.Categories))
	for _, c := range types.Categories {
		categories[c] = 0
	}
	return &Aggregator{
		categories: categories,
		domains:    make(map[string]*types.DomainStat),
	}
}

// Add folds one verdict into the aggregate.
func (a *Aggregator) Add(v types.Verdict) {
	a.total++
	if v.IsValid {
		a.valid++
	} else {
		a.invalid++
	}
	// Unexpected categories are counted too, not silently dropped.
	a.categories[v.Category]++

	// Domain is the raw text after the final @; addresses without one
	// (rejected by the format screen) are skipped.
	atIdx := strings.LastIndex(v.Address, "@")
	if atIdx < 0 {
		return
	}
	domain := v.Address[atIdx+1:]

	d, ok := a.domains[domain]
	if !ok {
		d = &types.DomainStat{}
		a.domains[domain] = d
		a.domainOrder = append(a.domainOrder, domain)
	}
	d.Total++
	if v.IsValid {
		d.Valid++
	} else {
		d.Invalid++
	}
}

// Count returns the number of verdicts folded in so far.
func (a *Aggregator) Count() int {
	return a.total
}

// Snapshot materializes the current aggregate. The returned Statistics is
// a deep copy: callbacks receive a consistent snapshot, never a live view.
func (a *Aggregator) Snapshot() types.Statistics {
	s := types.Statistics{
		Total:      a.total,
		Valid:      a.valid,
		Invalid:    a.invalid,
		Categories: make(map[types.Category]int, len(a.categories)),
		Domains:    make(map[string]types.DomainStat, len(a.domains)),
	}
	for c, n := range a.categories {
		s.Categories[c] = n
	}
	for domain, d := range a.domains {
		s.Domains[domain] = *d
	}
	s.TopDomains = a.topDomains()
	return s
}

// topDomains ranks domains by total descending; ties keep first-seen order.
func (a *Aggregator) topDomains() []types.TopDomain {
	ranked := make([]string, len(a.domainOrder))
	copy(ranked, a.domainOrder)
	sort.SliceStable(ranked, func(i, j int) bool {
		return a.domains[ranked[i]].Total > a.domains[ranked[j]].Total
	})

	n := TopDomainCount
	if len(ranked) < n {
		n = len(ranked)
	}

	top := make([]types.TopDomain, 0, n)
	for _, domain := range ranked[:n] {
		d := a.domains[domain]
		top = append(top, types.TopDomain{
			Domain:       domain,
			Total:        d.Total,
			Valid:        d.Valid,
			Invalid:      d.Invalid,
			ValidityRate: formatRate(d.Valid, d.Total),
		})
	}
	return top
}

// Aggregate folds a finished verdict slice in one call.
func Aggregate(verdicts []types.Verdict) types.Statistics {
	a := NewAggregator()
	for _, v := range verdicts {
		a.Add(v)
	}
	return a.Snapshot()
}

// formatRate renders valid/total as a percentage with one decimal place.
func formatRate(valid, total int) string {
	if total == 0 {
		return "0.0"
	}
	rate := float64(valid) / float64(total) * 100
	return strconv.FormatFloat(rate, 'f', 1, 64)
}
