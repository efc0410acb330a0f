// Package security guards outbound HTTP performed on behalf of the
// model. Tool arguments are model-controlled, so every URL a tool
// fetches is treated as untrusted input.
package security

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"
)

// Fetcher validates and performs outbound HTTP requests for tools,
// blocking server-side request forgery: internal hostnames, private and
// link-local address ranges, and cloud metadata endpoints are all
// rejected, both on the initial URL and on every redirect hop.
type Fetcher struct {
	client          *http.Client
	maxResponseSize int64
	logger          *slog.Logger
}

// NewFetcher creates a Fetcher with a 10s request timeout, a 3-redirect
// cap and a 5MB response size limit.
func NewFetcher(logger *slog.Logger) *Fetcher {
	f := &Fetcher{
		maxResponseSize: 5 * 1024 * 1024,
		logger:          logger,
	}
	f.client = &http.Client{
		Timeout: 10 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 3 {
				return fmt.Errorf("stopped after 3 redirects")
			}
			if err := f.ValidateURL(req.URL.String()); err != nil {
				f.logger.Warn("unsafe redirect blocked",
					"redirect_url", req.URL.String(),
					"original_url", via[0].URL.String(),
					"security_event", "ssrf_unsafe_redirect")
				return fmt.Errorf("redirect to unsafe URL: %w", err)
			}
			return nil
		},
	}
	return f
}

// ValidateURL reports whether urlStr is safe to fetch. It checks the
// scheme, the hostname against known internal names, and every resolved
// IP against private and reserved ranges.
func (f *Fetcher) ValidateURL(urlStr string) error {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("disallowed scheme %q (only http/https)", parsed.Scheme)
	}

	hostname := parsed.Hostname()
	if hostname == "" {
		return fmt.Errorf("missing hostname")
	}

	if isInternalHostname(hostname) {
		f.logger.Warn("internal hostname blocked",
			"url", urlStr,
			"hostname", hostname,
			"security_event", "ssrf_internal_hostname")
		return fmt.Errorf("access to internal hosts is not allowed")
	}

	ips, err := net.LookupIP(hostname)
	if err != nil {
		return fmt.Errorf("resolving %q: %w", hostname, err)
	}
	for _, ip := range ips {
		if isBlockedIP(ip) {
			f.logger.Warn("private address blocked",
				"url", urlStr,
				"hostname", hostname,
				"resolved_ip", ip.String(),
				"security_event", "ssrf_private_ip")
			return fmt.Errorf("access to internal addresses is not allowed (%s)", ip)
		}
	}

	return nil
}

// Get validates urlStr, fetches it and returns at most the configured
// response size of the body.
func (f *Fetcher) Get(urlStr string) ([]byte, error) {
	if err := f.ValidateURL(urlStr); err != nil {
		return nil, err
	}
	resp, err := f.client.Get(urlStr)
	if err != nil {
		return nil, fmt.Errorf("fetching %q: %w", urlStr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetching %q: status %d", urlStr, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", urlStr, err)
	}
	return body, nil
}

// Client exposes the redirect-validating HTTP client for libraries that
// manage their own requests.
func (f *Fetcher) Client() *http.Client {
	return f.client
}

// MaxResponseSize returns the body size limit in bytes.
func (f *Fetcher) MaxResponseSize() int64 {
	return f.maxResponseSize
}

func isInternalHostname(hostname string) bool {
	hostname = strings.ToLower(hostname)

	local := []string{"localhost", "127.0.0.1", "::1", "0.0.0.0"}
	if slices.Contains(local, hostname) {
		return true
	}

	// Cloud metadata endpoints.
	metadata := []string{"169.254.169.254", "metadata.google.internal", "metadata"}
	for _, m := range metadata {
		if hostname == m || strings.Contains(hostname, m) {
			return true
		}
	}
	return false
}

func isBlockedIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsMulticast() {
		return true
	}
	// Reserved 240.0.0.0/4.
	if v4 := ip.To4(); v4 != nil && v4[0] >= 240 {
		return true
	}
	return false
}
