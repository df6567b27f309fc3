package verifykit_test

import (
	"context"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optimode/verifykit"
	"github.com/optimode/verifykit/types"
)

// okDialog is the canonical accepting conversation.
var okDialog = map[string]string{
	"HELO":      "250 HELO ok",
	"MAIL FROM": "250 MAIL ok",
	"RCPT TO":   "250 RCPT ok",
}

// mxServer describes one mocked mail exchanger.
type mxServer struct {
	refuse    bool
	banner    string
	responses map[string]string
}

// runScript plays the server side of a net.Pipe.
func runScript(conn net.Conn, s mxServer) {
	defer func() { _ = conn.Close() }()

	banner := s.banner
	if banner == "" {
		banner = "220 mx ESMTP"
	}
	_, _ = fmt.Fprintf(conn, "%s\r\n", banner)

	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			return
		}
		cmd := string(buf[:n])

		if strings.HasPrefix(cmd, "QUIT") {
			_, _ = fmt.Fprintf(conn, "221 Bye\r\n")
			return
		}
		for prefix, resp := range s.responses {
			if strings.HasPrefix(cmd, prefix) {
				_, _ = fmt.Fprintf(conn, "%s\r\n", resp)
				break
			}
		}
	}
}

// testWorld wires a Verifier against mocked DNS and mocked MX hosts.
type testWorld struct {
	mx      map[string][]*net.MX // domain -> MX records
	dnsFail map[string]bool      // domain -> resolver transport failure
	servers map[string]mxServer  // "host:port" -> behavior
}

func (w *testWorld) lookup(_ context.Context, domain string) ([]*net.MX, error) {
	if w.dnsFail[domain] {
		return nil, &net.DNSError{Err: "read udp: i/o timeout", IsTimeout: true}
	}
	records, ok := w.mx[domain]
	if !ok {
		return nil, &net.DNSError{Err: "no such host", IsNotFound: true}
	}
	return records, nil
}

func (w *testWorld) dial(_ context.Context, _, address string) (net.Conn, error) {
	s, ok := w.servers[address]
	if !ok || s.refuse {
		return nil, fmt.Errorf("dial tcp %s: connection refused", address)
	}
	client, server := net.Pipe()
	go runScript(server, s)
	return client, nil
}

func (w *testWorld) verifier(opts verifykit.Options) *verifykit.Verifier {
	opts.MXLookup = w.lookup
	opts.Dial = w.dial
	if opts.SMTPTimeout == 0 {
		opts.SMTPTimeout = 2 * time.Second
	}
	return verifykit.New(opts)
}

func TestVerifyOne_InvalidFormat(t *testing.T) {
	w := &testWorld{}
	v := w.verifier(verifykit.Options{})

	verdict := v.VerifyOne(context.Background(), "bad@@example.com")
	assert.Equal(t, types.CategoryInvalidFormat, verdict.Category)
	assert.False(t, verdict.IsValid)
	assert.Empty(t, verdict.Details.MXRecords)
}

func TestVerifyOne_NoMXRecords(t *testing.T) {
	w := &testWorld{}
	v := w.verifier(verifykit.Options{})

	verdict := v.VerifyOne(context.Background(), "user@no-such-domain-xyz.invalid")
	assert.Equal(t, types.CategoryNoMXRecords, verdict.Category)
	assert.False(t, verdict.IsValid)
}

func TestVerifyOne_DNSError(t *testing.T) {
	w := &testWorld{dnsFail: map[string]bool{"flaky.com": true}}
	v := w.verifier(verifykit.Options{})

	verdict := v.VerifyOne(context.Background(), "user@flaky.com")
	assert.Equal(t, types.CategoryDNSError, verdict.Category)
}

func TestVerifyOne_Valid(t *testing.T) {
	w := &testWorld{
		mx: map[string][]*net.MX{
			"ex.com": {{Host: "mx.ex.com.", Pref: 10}},
		},
		servers: map[string]mxServer{
			"mx.ex.com:25": {responses: okDialog},
		},
	}
	v := w.verifier(verifykit.Options{})

	verdict := v.VerifyOne(context.Background(), "a@ex.com")
	assert.True(t, verdict.IsValid)
	assert.Equal(t, types.CategoryValid, verdict.Category)
	assert.Equal(t, "mx.ex.com", verdict.Details.SMTPServer)
	assert.Equal(t, []string{"mx.ex.com"}, verdict.Details.MXRecords)
}

func TestVerifyOne_UserUnknown(t *testing.T) {
	w := &testWorld{
		mx: map[string][]*net.MX{
			"ex.com": {{Host: "mx.ex.com.", Pref: 10}},
		},
		servers: map[string]mxServer{
			"mx.ex.com:25": {responses: map[string]string{
				"HELO":      "250 HELO ok",
				"MAIL FROM": "250 MAIL ok",
				"RCPT TO":   "550 5.1.1 User unknown",
			}},
		},
	}
	v := w.verifier(verifykit.Options{})

	verdict := v.VerifyOne(context.Background(), "a@ex.com")
	assert.Equal(t, types.CategoryNotExisting, verdict.Category)
	assert.Equal(t, "mx.ex.com", verdict.Details.SMTPServer)
}

func TestVerifyOne_FallbackToSecondMX(t *testing.T) {
	w := &testWorld{
		mx: map[string][]*net.MX{
			"ex.com": {
				{Host: "mx1.ex.com.", Pref: 10},
				{Host: "mx2.ex.com.", Pref: 20},
			},
		},
		servers: map[string]mxServer{
			"mx1.ex.com:25": {refuse: true},
			"mx2.ex.com:25": {responses: okDialog},
		},
	}
	v := w.verifier(verifykit.Options{})

	verdict := v.VerifyOne(context.Background(), "a@ex.com")
	assert.True(t, verdict.IsValid)
	assert.Equal(t, "mx2.ex.com", verdict.Details.SMTPServer)
}

func TestVerifyOne_FallbackContinuesPast550(t *testing.T) {
	reject := mxServer{responses: map[string]string{
		"HELO":      "250 HELO ok",
		"MAIL FROM": "250 MAIL ok",
		"RCPT TO":   "550 no such user",
	}}
	w := &testWorld{
		mx: map[string][]*net.MX{
			"ex.com": {
				{Host: "mx1.ex.com.", Pref: 10},
				{Host: "mx2.ex.com.", Pref: 20},
			},
		},
		servers: map[string]mxServer{
			"mx1.ex.com:25": reject,
			"mx2.ex.com:25": {responses: okDialog},
		},
	}

	// Default: an over-rejecting front MX does not end the search.
	v := w.verifier(verifykit.Options{})
	verdict := v.VerifyOne(context.Background(), "a@ex.com")
	assert.True(t, verdict.IsValid)
	assert.Equal(t, "mx2.ex.com", verdict.Details.SMTPServer)

	// StopOnNoUser short-circuits on the first 550/551.
	v = w.verifier(verifykit.Options{StopOnNoUser: true})
	verdict = v.VerifyOne(context.Background(), "a@ex.com")
	assert.Equal(t, types.CategoryNotExisting, verdict.Category)
	assert.Equal(t, "mx1.ex.com", verdict.Details.SMTPServer)
}

func TestVerifyOne_LastNonValidVerdictWins(t *testing.T) {
	w := &testWorld{
		mx: map[string][]*net.MX{
			"ex.com": {
				{Host: "mx1.ex.com.", Pref: 10},
				{Host: "mx2.ex.com.", Pref: 20},
			},
		},
		servers: map[string]mxServer{
			"mx1.ex.com:25": {refuse: true},
			"mx2.ex.com:25": {responses: map[string]string{
				"HELO":      "250 HELO ok",
				"MAIL FROM": "250 MAIL ok",
				"RCPT TO":   "450 greylisted",
			}},
		},
	}
	v := w.verifier(verifykit.Options{})

	verdict := v.VerifyOne(context.Background(), "a@ex.com")
	assert.Equal(t, types.CategoryTemporaryError, verdict.Category)
	assert.Equal(t, "mx2.ex.com", verdict.Details.SMTPServer)
}

func TestVerifyOne_DisposableAndTypoAnnotations(t *testing.T) {
	w := &testWorld{
		mx: map[string][]*net.MX{
			"mailinator.com": {{Host: "mx.mailinator.com.", Pref: 10}},
		},
		servers: map[string]mxServer{
			"mx.mailinator.com:25": {responses: okDialog},
		},
	}
	v := w.verifier(verifykit.Options{})

	verdict := v.VerifyOne(context.Background(), "user@mailinator.com")
	assert.True(t, verdict.Details.Disposable)

	verdict = v.VerifyOne(context.Background(), "user@gmial.com")
	assert.Equal(t, "gmail.com", verdict.Details.Suggestion)
}

func TestVerifyBatch_RefusesOversizeAndEmpty(t *testing.T) {
	w := &testWorld{}
	v := w.verifier(verifykit.Options{})
	ctx := context.Background()

	_, err := v.VerifyBatch(ctx, nil, nil, nil)
	assert.ErrorIs(t, err, verifykit.ErrNoAddresses)

	tooMany := make([]string, verifykit.MaxBatchSize+1)
	for i := range tooMany {
		tooMany[i] = "user@example.com"
	}
	_, err = v.VerifyBatch(ctx, tooMany, nil, nil)
	assert.ErrorIs(t, err, verifykit.ErrBatchTooLarge)
}

func TestVerifyBatch_OrderAndInvariants(t *testing.T) {
	w := &testWorld{
		mx: map[string][]*net.MX{
			"ok.com":   {{Host: "mx.ok.com.", Pref: 10}},
			"gone.com": {{Host: "mx.gone.com.", Pref: 10}},
		},
		servers: map[string]mxServer{
			"mx.ok.com:25": {responses: okDialog},
			"mx.gone.com:25": {responses: map[string]string{
				"HELO":      "250 HELO ok",
				"MAIL FROM": "250 MAIL ok",
				"RCPT TO":   "550 gone",
			}},
		},
	}
	v := w.verifier(verifykit.Options{RateLimitDelay: time.Millisecond})

	addresses := []string{
		"a@ok.com", "bad@@input", "b@gone.com", "c@ok.com",
		"user@absent.com", "d@ok.com", "e@gone.com", "f@ok.com",
	}
	res, err := v.VerifyBatch(context.Background(), addresses, nil, nil)
	require.NoError(t, err)
	require.Len(t, res.Results, len(addresses))

	for i, verdict := range res.Results {
		assert.Equal(t, addresses[i], verdict.Address, "results must keep input order")
		assert.Equal(t, verdict.Category == types.CategoryValid, verdict.IsValid)
	}

	s := res.Statistics
	assert.Equal(t, len(addresses), s.Total)
	assert.Equal(t, s.Total, s.Valid+s.Invalid)
	assert.Equal(t, 4, s.Categories[types.CategoryValid])
	assert.Equal(t, 2, s.Categories[types.CategoryNotExisting])
	assert.Equal(t, 1, s.Categories[types.CategoryInvalidFormat])
	assert.Equal(t, 1, s.Categories[types.CategoryNoMXRecords])
}

func TestVerifyBatch_ProgressCountsEveryValueOnce(t *testing.T) {
	w := &testWorld{
		mx: map[string][]*net.MX{
			"ok.com": {{Host: "mx.ok.com.", Pref: 10}},
		},
		servers: map[string]mxServer{
			"mx.ok.com:25": {responses: okDialog},
		},
	}
	v := w.verifier(verifykit.Options{ConcurrentLimit: 4, RateLimitDelay: time.Millisecond})

	addresses := make([]string, 17)
	for i := range addresses {
		addresses[i] = fmt.Sprintf("user%d@ok.com", i)
	}

	var seen []int
	res, err := v.VerifyBatch(context.Background(), addresses,
		func(completed, total int, _ types.Verdict) {
			assert.Equal(t, len(addresses), total)
			seen = append(seen, completed)
		}, nil)
	require.NoError(t, err)
	require.Len(t, res.Results, len(addresses))

	require.Len(t, seen, len(addresses))
	for i, c := range seen {
		assert.Equal(t, i+1, c, "completed must be monotonically increasing without gaps")
	}
}

func TestVerifyBatch_StatsCadence(t *testing.T) {
	w := &testWorld{} // every address resolves no_mx_records, no sockets needed
	v := w.verifier(verifykit.Options{ConcurrentLimit: 25, RateLimitDelay: time.Millisecond})

	addresses := make([]string, 250)
	for i := range addresses {
		addresses[i] = fmt.Sprintf("user%d@absent.com", i)
	}

	var totals []int
	res, err := v.VerifyBatch(context.Background(), addresses, nil,
		func(s types.Statistics) {
			totals = append(totals, s.Total)
		})
	require.NoError(t, err)

	// Snapshots at the 100 and 200 boundaries, plus the final aggregate.
	assert.Equal(t, []int{100, 200, 250}, totals)
	assert.Equal(t, 250, res.Statistics.Total)
}

func TestVerifyBatch_GroupPacing(t *testing.T) {
	w := &testWorld{}
	v := w.verifier(verifykit.Options{ConcurrentLimit: 5, RateLimitDelay: 50 * time.Millisecond})

	// 20 invalid-format addresses: 4 groups, 3 inter-group delays.
	addresses := make([]string, 20)
	for i := range addresses {
		addresses[i] = "bad-input"
	}

	start := time.Now()
	_, err := v.VerifyBatch(context.Background(), addresses, nil, nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestVerifyBatch_PanicBecomesProcessingError(t *testing.T) {
	w := &testWorld{
		mx: map[string][]*net.MX{
			"ok.com": {{Host: "mx.ok.com.", Pref: 10}},
		},
		servers: map[string]mxServer{
			"mx.ok.com:25": {responses: okDialog},
		},
	}
	opts := verifykit.Options{RateLimitDelay: time.Millisecond}
	opts.Dial = w.dial
	opts.SMTPTimeout = 2 * time.Second
	opts.MXLookup = func(ctx context.Context, domain string) ([]*net.MX, error) {
		if domain == "boom.com" {
			panic("resolver exploded")
		}
		return w.lookup(ctx, domain)
	}
	v := verifykit.New(opts)

	res, err := v.VerifyBatch(context.Background(),
		[]string{"a@ok.com", "b@boom.com", "c@ok.com"}, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, types.CategoryValid, res.Results[0].Category)
	assert.Equal(t, types.CategoryProcessingError, res.Results[1].Category)
	assert.Equal(t, types.CategoryValid, res.Results[2].Category)
}

func TestVerifyOne_AllServersUnreachable(t *testing.T) {
	w := &testWorld{
		mx: map[string][]*net.MX{
			"ex.com": {{Host: "mx.ex.com.", Pref: 10}},
		},
	}
	v := w.verifier(verifykit.Options{})

	// A cancelled context means no probe ever starts; with no per-host
	// verdict to report, the verifier falls back to smtp_timeout.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	verdict := v.VerifyOne(ctx, "a@ex.com")
	assert.Equal(t, types.CategorySMTPTimeout, verdict.Category)
	assert.Equal(t, "All SMTP servers unreachable", verdict.Message)
}
