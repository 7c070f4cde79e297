package httpclient

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"scholar/internal/shared/logging"
)

const maxRedirects = 10

// Options tunes an outbound client.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	// Transport overrides the network transport, mostly for tests.
	Transport http.RoundTripper
}

// New returns an http.Client configured for outbound requests.
//
// It respects HTTP(S)_PROXY/ALL_PROXY/NO_PROXY by default, but may bypass
// unreachable loopback proxies to keep local development environments working.
// Redirects are followed up to a fixed depth.
func New(opts Options, logger logging.Logger) *http.Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var base http.RoundTripper = opts.Transport
	if base == nil {
		base = Transport(logger)
	}
	if opts.UserAgent != "" {
		base = &userAgentTransport{base: base, userAgent: opts.UserAgent}
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: base,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}
}

// Transport returns an http.Transport clone with a proxy policy suitable for
// outbound calls.
func Transport(logger logging.Logger) *http.Transport {
	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return &http.Transport{Proxy: proxyFunc(logger)}
	}

	transport := base.Clone()
	transport.Proxy = proxyFunc(logger)
	return transport
}

// userAgentTransport sets a User-Agent on requests that do not carry one.
// Several academic hosts reject the default Go client string.
type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if req.Header.Get("User-Agent") != "" {
		return t.base.RoundTrip(req)
	}
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(clone)
}
