package ingest

import (
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// domainLimitedTransport enforces one token-bucket rate limiter per
// destination host, so a single burst of job-board URLs from one domain
// can't hammer that domain's servers while URLs from other domains fetch
// unthrottled.
type domainLimitedTransport struct {
	base  http.RoundTripper
	rps   rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewDomainLimitedClient wraps base (or http.DefaultTransport if base.Transport
// is nil) with a per-hostname rate.Limiter, so the orchestrator hands
// jdresolver.Resolve one shared client that self-throttles per source domain
// instead of a bare client with no backpressure.
func NewDomainLimitedClient(base *http.Client, ratePerSec float64, burst int) *http.Client {
	if base == nil {
		base = &http.Client{}
	}
	transport := base.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	client := *base
	client.Transport = &domainLimitedTransport{
		base:     transport,
		rps:      rate.Limit(ratePerSec),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
	return &client
}

func (t *domainLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	limiter := t.limiterFor(req.URL.Hostname())
	if err := limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.base.RoundTrip(req)
}

func (t *domainLimitedTransport) limiterFor(host string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()
	limiter, ok := t.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(t.rps, t.burst)
		t.limiters[host] = limiter
	}
	return limiter
}
