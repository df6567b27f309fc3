package check

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/optimode/verifykit/types"
)

// SMTPConfig is the prober configuration.
type SMTPConfig struct {
	HeloDomain string
	MailFrom   string
	Port       string
	// Timeout is the wall-clock budget for the whole conversation, from
	// TCP connect to resolution.
	Timeout time.Duration
	// Dial is injectable for testing. Defaults to net.Dialer.DialContext.
	Dial func(ctx context.Context, network, address string) (net.Conn, error)
}

// ProbeResult is the classified outcome of one probe against one MX host.
type ProbeResult struct {
	Category types.Category
	Message  string
}

// conversation states, strictly forward
const (
	stateAwaitBanner = iota // waiting for the 220 greeting
	stateAwaitHelo          // HELO sent, waiting for its 250
	stateAwaitMail          // MAIL FROM sent, waiting for its 250
	stateAwaitRcpt          // RCPT TO sent, waiting for the decisive reply
)

// Prober carries out one SMTP dialog against one MX host to learn whether
// the recipient mailbox exists: banner, HELO, MAIL FROM, RCPT TO, QUIT.
// No mail is ever sent.
//
// The dialog advances on 250 replies that echo the verb just issued
// (e.g. "250 2.1.0 Sender OK"). Servers that answer a bare "250 OK"
// without the echo stall the state machine until the deadline and
// classify as smtp_timeout; this is a known limitation kept for
// compatibility with the classification contract.
type Prober struct {
	cfg SMTPConfig
}

func NewProber(cfg SMTPConfig) *Prober {
	if cfg.Dial == nil {
		d := &net.Dialer{}
		cfg.Dial = d.DialContext
	}
	if cfg.Port == "" {
		cfg.Port = "25"
	}
	return &Prober{cfg: cfg}
}

// Probe runs the conversation and always classifies: every transport or
// protocol failure maps to a category, never to an error. The only error
// return is a context already cancelled before the probe starts, which the
// caller treats as "this host was never tried".
//
// Every exit path sends a best-effort QUIT and closes the socket.
func (p *Prober) Probe(ctx context.Context, mxHost, recipient string) (ProbeResult, error) {
	select {
	case <-ctx.Done():
		return ProbeResult{}, ctx.Err()
	default:
	}

	deadline := time.Now().Add(p.cfg.Timeout)
	dialCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	conn, err := p.cfg.Dial(dialCtx, "tcp", net.JoinHostPort(mxHost, p.cfg.Port))
	if err != nil {
		return classifyTransport(err), nil
	}
	defer func() {
		// Errors during cleanup are suppressed; the peer may already
		// have closed the connection.
		_ = conn.SetDeadline(time.Now().Add(2 * time.Second))
		_, _ = conn.Write([]byte("QUIT\r\n"))
		_ = conn.Close()
	}()

	if err := conn.SetDeadline(deadline); err != nil {
		return classifyTransport(err), nil
	}

	reader := bufio.NewReader(conn)
	state := stateAwaitBanner

	for {
		line, err := readLine(reader)
		if err != nil {
			return classifyTransport(err), nil
		}
		code := statusCode(line)

		switch {
		case state == stateAwaitBanner && code == 220:
			if err := send(conn, "HELO "+p.cfg.HeloDomain); err != nil {
				return classifyTransport(err), nil
			}
			state = stateAwaitHelo

		case state == stateAwaitHelo && code == 250 && strings.Contains(line, "HELO"):
			if err := send(conn, "MAIL FROM: <"+p.cfg.MailFrom+">"); err != nil {
				return classifyTransport(err), nil
			}
			state = stateAwaitMail

		case state == stateAwaitMail && code == 250 && strings.Contains(line, "MAIL"):
			if err := send(conn, "RCPT TO: <"+recipient+">"); err != nil {
				return classifyTransport(err), nil
			}
			state = stateAwaitRcpt

		case state == stateAwaitRcpt && code == 250 && strings.Contains(line, "RCPT"):
			return ProbeResult{
				Category: types.CategoryValid,
				Message:  "Mailbox exists and accepts mail",
			}, nil

		case code == 550 || code == 551:
			return ProbeResult{
				Category: types.CategoryNotExisting,
				Message:  "Mailbox does not exist",
			}, nil

		case code == 552 || code == 553:
			return ProbeResult{
				Category: types.CategoryMailboxError,
				Message:  "Mailbox unavailable or over quota",
			}, nil

		case code == 421 || code == 450:
			return ProbeResult{
				Category: types.CategoryTemporaryError,
				Message:  "Temporarily deferred by server",
			}, nil

		case code >= 500 && code <= 599:
			return ProbeResult{
				Category: types.CategorySMTPError,
				Message:  "SMTP error: " + line,
			}, nil
		}
		// Anything else (a 250 without the expected verb echo, multiline
		// continuations, stray codes) is ignored; the conversation either
		// advances on a later line or the deadline fires.
	}
}

// readLine reads one CRLF-terminated line. A trailing fragment without its
// terminator is never processed: the buffered reader blocks on it until
// more bytes arrive or the deadline expires.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// statusCode parses the integer from the first three characters of a reply
// line. Lines too short or non-numeric yield 0, which matches no transition.
func statusCode(line string) int {
	if len(line) < 3 {
		return 0
	}
	code, err := strconv.Atoi(line[:3])
	if err != nil {
		return 0
	}
	return code
}

func send(conn net.Conn, cmd string) error {
	_, err := conn.Write([]byte(cmd + "\r\n"))
	return err
}

// classifyTransport maps a socket-level failure to its category: deadline
// expiry is smtp_timeout, everything else is connection_error.
func classifyTransport(err error) ProbeResult {
	var ne net.Error
	if (errors.As(err, &ne) && ne.Timeout()) || errors.Is(err, context.DeadlineExceeded) {
		return ProbeResult{
			Category: types.CategorySMTPTimeout,
			Message:  "SMTP conversation timed out",
		}
	}
	return ProbeResult{
		Category: types.CategoryConnectionError,
		Message:  "Connection to mail server failed",
	}
}
