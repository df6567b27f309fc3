// Command verifykit is the operator CLI: it reads an address list from a
// file (or stdin), runs a batch verification and prints the aggregate.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/optimode/verifykit"
	"github.com/optimode/verifykit/internal/input"
	"github.com/optimode/verifykit/types"
)

func main() {
	var (
		file        = flag.String("file", "-", "address list file (TXT or CSV), - for stdin")
		concurrency = flag.Int("concurrency", 5, "concurrent probes per group")
		delay       = flag.Duration("delay", 200*time.Millisecond, "pause between groups")
		timeout     = flag.Duration("timeout", 15*time.Second, "per-probe SMTP timeout")
		helo        = flag.String("helo", "", "HELO domain (default email-validator.com)")
		from        = flag.String("from", "", "envelope sender (default check@email-validator.com)")
		jsonOut     = flag.Bool("json", false, "emit full results as JSON instead of a summary")
		quiet       = flag.Bool("quiet", false, "suppress progress output")
	)
	flag.Parse()

	var r io.Reader = os.Stdin
	if *file != "-" {
		f, err := os.Open(*file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "verifykit: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		r = f
	}

	addresses, err := input.ParseAddressList(r)
	if err != nil {
		fmt.Fprintf(os.Stderr, "verifykit: reading address list: %v\n", err)
		os.Exit(1)
	}
	if len(addresses) == 0 {
		fmt.Fprintln(os.Stderr, "verifykit: no addresses found in input")
		os.Exit(1)
	}

	v := verifykit.New(verifykit.Options{
		ConcurrentLimit: *concurrency,
		RateLimitDelay:  *delay,
		SMTPTimeout:     *timeout,
		HeloDomain:      *helo,
		MailFrom:        *from,
	})

	var onProgress verifykit.ProgressFunc
	if !*quiet {
		onProgress = func(completed, total int, verdict types.Verdict) {
			fmt.Fprintf(os.Stderr, "[%d/%d] %-16s %s\n",
				completed, total, verdict.Category, verdict.Address)
		}
	}

	res, err := v.VerifyBatch(context.Background(), addresses, onProgress, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "verifykit: %v\n", err)
		os.Exit(1)
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			fmt.Fprintf(os.Stderr, "verifykit: %v\n", err)
			os.Exit(1)
		}
		return
	}

	printSummary(res.Statistics)
}

func printSummary(s types.Statistics) {
	fmt.Printf("total    %d\n", s.Total)
	fmt.Printf("valid    %d\n", s.Valid)
	fmt.Printf("invalid  %d\n", s.Invalid)

	fmt.Println("\ncategories:")
	for _, c := range types.Categories {
		if n := s.Categories[c]; n > 0 {
			fmt.Printf("  %-18s %d\n", c, n)
		}
	}

	if len(s.TopDomains) > 0 {
		fmt.Println("\ntop domains:")
		for _, d := range s.TopDomains {
			fmt.Printf("  %-30s total=%-6d valid=%-6d rate=%s%%\n",
				d.Domain, d.Total, d.Valid, d.ValidityRate)
		}
	}
}
