// Package verifykit validates the deliverability of email addresses by
// combining a format screen, DNS MX resolution and a live SMTP dialog
// against the recipient's mail exchangers.
//
// Single address:
//
//	verdict := verifykit.New().VerifyOne(ctx, "user@example.com")
//
// Batch with progress reporting (pass a StatsFunc instead of the final nil
// to also receive periodic statistics):
//
//	res, err := verifykit.New().VerifyBatch(ctx, addresses,
//	    func(completed, total int, v verifykit.Verdict) {
//	        log.Printf("%d/%d %s -> %s", completed, total, v.Address, v.Category)
//	    },
//	    nil)
//
// A batch is processed in groups of Options.ConcurrentLimit addresses with
// Options.RateLimitDelay between groups, which keeps the load on external
// mail servers low enough to avoid greylisting.
package verifykit

import "github.com/optimode/verifykit/types"

// Verdict is a re-export from the types package so that consumers
// don't need to import the types package directly.
type Verdict = types.Verdict

// Details is a re-export.
type Details = types.Details

// Statistics is a re-export.
type Statistics = types.Statistics

// Category is a re-export.
type Category = types.Category

// Category constants re-exported.
const (
	CategoryValid           = types.CategoryValid
	CategoryInvalidFormat   = types.CategoryInvalidFormat
	CategoryNoMXRecords     = types.CategoryNoMXRecords
	CategoryDNSError        = types.CategoryDNSError
	CategoryNotExisting     = types.CategoryNotExisting
	CategoryMailboxError    = types.CategoryMailboxError
	CategoryTemporaryError  = types.CategoryTemporaryError
	CategorySMTPError       = types.CategorySMTPError
	CategorySMTPTimeout     = types.CategorySMTPTimeout
	CategoryConnectionError = types.CategoryConnectionError
	CategoryProcessingError = types.CategoryProcessingError
)
