package livetiming

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/f1grid/livetiming-ingest-go/log"
)

// The provider fronts the feed with a browser-only load balancer; both
// negotiate calls must look like they originate from the official site.
const (
	originHeader   = "https://www.formula1.com"
	refererHeader  = "https://www.formula1.com/"
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	sessionCookie  = "AWSALBCORS"
	protocolMajor  = 1
	negotiateQuery = "negotiateVersion=1"
)

var cookiePattern = regexp.MustCompile(sessionCookie + `=([^;]+)`)

// NegotiationError is fatal at startup: without a token there is no
// stream. Retry policy belongs to the supervisor, not this layer.
type NegotiationError struct {
	Op  string
	Err error
}

func (e *NegotiationError) Error() string {
	return fmt.Sprintf("negotiate %s: %v", e.Op, e.Err)
}

func (e *NegotiationError) Unwrap() error { return e.Err }

// NegotiationResult carries everything the feed connection needs.
type NegotiationResult struct {
	ConnectionToken string
	Cookie          string // raw cookie value, may be empty
}

type negotiateResponse struct {
	ConnectionToken     string `json:"connectionToken"`
	ConnectionID        string `json:"connectionId"`
	NegotiateVersion    int    `json:"negotiateVersion"`
	AvailableTransports []struct {
		Transport       string   `json:"transport"`
		TransferFormats []string `json:"transferFormats"`
	} `json:"availableTransports"`
}

type (
	Negotiator struct {
		url    string
		client *http.Client
		l      *log.Logger
	}
	NegotiatorOption func(*Negotiator)
)

func WithNegotiateHTTPClient(c *http.Client) NegotiatorOption {
	return func(n *Negotiator) { n.client = c }
}

func WithNegotiateLogger(l *log.Logger) NegotiatorOption {
	return func(n *Negotiator) { n.l = l }
}

func NewNegotiator(url string, opts ...NegotiatorOption) *Negotiator {
	ret := &Negotiator{
		url:    url,
		client: http.DefaultClient,
		l:      log.Default().Named("livetiming.negotiate"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Negotiate performs the two step handshake: an OPTIONS preflight that
// yields the session scoping cookie, then the POST that yields the
// connection token. The calls are strictly sequential; the second needs
// the first's cookie.
func (n *Negotiator) Negotiate(ctx context.Context) (*NegotiationResult, error) {
	cookie, err := n.preflight(ctx)
	if err != nil {
		return nil, err
	}
	if cookie == "" {
		// some deployments run without the ALB cookie
		n.l.Warn("no session cookie in preflight response")
	}
	return n.requestToken(ctx, cookie)
}

func (n *Negotiator) preflight(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodOptions, n.url, http.NoBody)
	if err != nil {
		return "", &NegotiationError{Op: "preflight", Err: err}
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "content-type,x-requested-with")
	req.Header.Set("Origin", originHeader)
	req.Header.Set("Referer", refererHeader)

	resp, err := n.client.Do(req)
	if err != nil {
		return "", &NegotiationError{Op: "preflight", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return "", &NegotiationError{
			Op:  "preflight",
			Err: fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	for _, setCookie := range resp.Header.Values("Set-Cookie") {
		if m := cookiePattern.FindStringSubmatch(setCookie); m != nil {
			return m[1], nil
		}
	}
	return "", nil
}

//nolint:whitespace // can't make both editor and linter happy
func (n *Negotiator) requestToken(ctx context.Context, cookie string) (
	*NegotiationResult, error,
) {
	url := fmt.Sprintf("%s?%s", n.url, negotiateQuery)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url,
		strings.NewReader("{}"))
	if err != nil {
		return nil, &NegotiationError{Op: "request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Origin", originHeader)
	req.Header.Set("Referer", refererHeader)
	if cookie != "" {
		req.Header.Set("Cookie", fmt.Sprintf("%s=%s", sessionCookie, cookie))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, &NegotiationError{Op: "request", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &NegotiationError{
			Op:  "request",
			Err: fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NegotiationError{Op: "request", Err: err}
	}
	var parsed negotiateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &NegotiationError{Op: "parse", Err: err}
	}

	// connectionId serves as fallback token on older deployments
	token := parsed.ConnectionToken
	if token == "" {
		token = parsed.ConnectionID
	}
	if token == "" {
		return nil, &NegotiationError{
			Op:  "parse",
			Err: fmt.Errorf("response carries neither token nor connection id"),
		}
	}

	transports := make([]string, 0, len(parsed.AvailableTransports))
	for i := range parsed.AvailableTransports {
		transports = append(transports, parsed.AvailableTransports[i].Transport)
	}
	n.l.Debug("negotiated connection",
		log.Int("tokenLen", len(token)),
		log.Any("transports", transports))

	return &NegotiationResult{ConnectionToken: token, Cookie: cookie}, nil
}
