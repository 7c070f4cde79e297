package httpclient

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"scholar/internal/shared/logging"
)

const proxyModeEnv = "SCHOLAR_PROXY_MODE"

const proxyDialTimeout = 300 * time.Millisecond

type proxyMode uint8

const (
	proxyModeAuto proxyMode = iota
	proxyModeStrict
	proxyModeDirect
)

var (
	localProxyBypassCache sync.Map // proxy URL -> bool, true means bypass
	localProxyWarned      sync.Map
)

func proxyFunc(logger logging.Logger) func(*http.Request) (*url.URL, error) {
	log := logging.OrNop(logger)
	mode := parseProxyMode(os.Getenv(proxyModeEnv))

	return func(req *http.Request) (*url.URL, error) {
		switch mode {
		case proxyModeDirect:
			return nil, nil
		case proxyModeStrict:
			return http.ProxyFromEnvironment(req)
		}
		if req == nil || req.URL == nil {
			return http.ProxyFromEnvironment(req)
		}
		if isLoopbackHost(req.URL.Hostname()) {
			return nil, nil
		}

		proxyURL, err := http.ProxyFromEnvironment(req)
		if proxyURL == nil || err != nil || !isLoopbackHost(proxyURL.Hostname()) {
			return proxyURL, err
		}

		cacheKey := proxyURL.String()
		if bypass, ok := localProxyBypassCache.Load(cacheKey); ok {
			if bypass.(bool) {
				return nil, nil
			}
			return proxyURL, nil
		}
		if isProxyReachable(req.Context(), proxyHostPort(proxyURL)) {
			localProxyBypassCache.Store(cacheKey, false)
			return proxyURL, nil
		}

		localProxyBypassCache.Store(cacheKey, true)
		if _, loaded := localProxyWarned.LoadOrStore(cacheKey, struct{}{}); !loaded {
			log.Warn("Local proxy %s is unreachable; downloading directly (set %s=strict to disable).", proxyURL.Redacted(), proxyModeEnv)
		}
		return nil, nil
	}
}

func parseProxyMode(raw string) proxyMode {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "strict":
		return proxyModeStrict
	case "direct", "none", "off":
		return proxyModeDirect
	default:
		return proxyModeAuto
	}
}

func isLoopbackHost(host string) bool {
	host = strings.TrimSpace(host)
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && (ip.IsLoopback() || ip.IsUnspecified())
}

func proxyHostPort(proxyURL *url.URL) string {
	port := proxyURL.Port()
	if port == "" {
		switch strings.ToLower(proxyURL.Scheme) {
		case "https":
			port = "443"
		case "socks5", "socks5h":
			port = "1080"
		default:
			port = "80"
		}
	}
	return net.JoinHostPort(proxyURL.Hostname(), port)
}

func isProxyReachable(ctx context.Context, hostPort string) bool {
	if ctx == nil {
		ctx = context.Background()
	}
	dialer := net.Dialer{Timeout: proxyDialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", hostPort)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
