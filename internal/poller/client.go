package poller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jpalmerr/pulsecheck/internal/model"
)

// drained before close so keep-alive connections can be reused
const maxDrainSize = 64 << 10

// idle pool sizes; open connections per host are not capped so every
// probe can be in flight at once
const (
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultIdleConnTimeout     = 60 * time.Second
)

// ReasonTimeout is the Outcome reason recorded when a probe hits its deadline.
const ReasonTimeout = "timeout"

// Outcome is the raw result of one probe attempt.
type Outcome struct {
	// StatusCode is the HTTP status received. Zero when Error is set.
	StatusCode int

	// Error is true when no response arrived.
	Error bool

	// Reason is "timeout" or the transport error text.
	Reason string

	// Latency is the time until the outcome was recorded.
	Latency time.Duration
}

// Client probes check targets.
//
// Timeouts come from each check via context rather than a global client
// timeout, so different checks can have different deadlines.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a probe [Client] with pooled connections.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
			},
			// a redirect is a response; report it instead of following it
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Probe sends one request to the check target and returns exactly one
// [Outcome]: the first of response received, deadline elapsed or transport
// error. Later signals for the same probe are discarded.
func (c *Client) Probe(ctx context.Context, check model.Check) Outcome {
	ctx, cancel := context.WithTimeout(ctx, check.Timeout())
	defer cancel()

	start := time.Now()
	recorded := make(chan Outcome, 1)
	var once sync.Once
	record := func(o Outcome) {
		once.Do(func() {
			o.Latency = time.Since(start)
			recorded <- o
		})
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(string(check.Method)), check.Target(), nil)
	if err != nil {
		return Outcome{Error: true, Reason: fmt.Sprintf("failed to create request: %v", err)}
	}

	go func() {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				record(Outcome{Error: true, Reason: ReasonTimeout})
				return
			}
			record(Outcome{Error: true, Reason: err.Error()})
			return
		}
		record(Outcome{StatusCode: resp.StatusCode})
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainSize))
		_ = resp.Body.Close()
	}()

	select {
	case o := <-recorded:
		return o
	case <-ctx.Done():
		record(Outcome{Error: true, Reason: ReasonTimeout})
		return <-recorded
	}
}

// Close closes idle connections in the client's pool. The client stays usable.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	if transport, ok := c.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}
