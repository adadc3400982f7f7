// Package probesvc loads candidate images over HTTP the way a browser would before displaying them.
package probesvc

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"

	"github.com/ukmiverse/ukmiverse/core/avatar"
)

const (
	DefaultUserAgent = "ukmiverse-avatar-probe/1.0"
	maxRedirects     = 5
	sniffLen         = 3072
)

var (
	errTooManyRedirects = errors.New("too many redirects")
	errForbiddenAddress = errors.New("forbidden address")

	// carrier-grade NAT, not covered by net.IP.IsPrivate
	sharedAddressSpace = mustParseCIDR("100.64.0.0/10")
)

// HTTPProber fetches a URL and checks that it answers 2xx with an image body.
// Unless WithAllowPrivate is set, connections to loopback, private, link-local and unspecified
// addresses are refused once the host is resolved, redirects included.
type HTTPProber struct {
	client       *http.Client
	userAgent    string
	allowPrivate bool
}

var _ avatar.Prober = (*HTTPProber)(nil)

type Option func(*HTTPProber)

// WithClient replaces the default client along with its address checks.
func WithClient(client *http.Client) Option {
	return func(p *HTTPProber) {
		if client != nil {
			p.client = client
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(p *HTTPProber) {
		if ua != "" {
			p.userAgent = ua
		}
	}
}

// WithAllowPrivate lets the prober reach internal addresses, for local development and tests.
func WithAllowPrivate(allow bool) Option {
	return func(p *HTTPProber) {
		p.allowPrivate = allow
	}
}

func NewHTTPProber(opts ...Option) *HTTPProber {
	p := &HTTPProber{userAgent: DefaultUserAgent}
	for _, opt := range opts {
		opt(p)
	}
	if p.client == nil {
		p.client = newClient(p.allowPrivate)
	}
	return p
}

func newClient(allowPrivate bool) *http.Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	if !allowPrivate {
		dialer.Control = refusePrivate
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil // a proxy would dial on our behalf, unchecked
	transport.DialContext = dialer.DialContext

	return &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return errTooManyRedirects
			}
			return nil
		},
	}
}

// refusePrivate runs after name resolution, on the address actually dialed.
func refusePrivate(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return errors.Wrap(errForbiddenAddress, address)
	}
	ip := net.ParseIP(host)
	if ip == nil || !isPublic(ip) {
		return errors.Wrap(errForbiddenAddress, host)
	}
	return nil
}

func isPublic(ip net.IP) bool {
	switch {
	case ip.IsLoopback(), ip.IsPrivate(), ip.IsUnspecified(),
		ip.IsLinkLocalUnicast(), ip.IsLinkLocalMulticast(),
		ip.IsInterfaceLocalMulticast(), ip.IsMulticast():
		return false
	case sharedAddressSpace.Contains(ip):
		return false
	}
	return true
}

func mustParseCIDR(s string) *net.IPNet {
	_, n, err := net.ParseCIDR(s)
	if err != nil {
		panic(err)
	}
	return n
}

// Probe honours the deadline of ctx, the caller is expected to set one.
func (p *HTTPProber) Probe(ctx context.Context, url string) error {
	start := time.Now()
	err := p.probe(ctx, url)

	outcome := outcomeOf(err)
	ProbesTotal.WithLabelValues(outcome).Inc()
	ProbeLatency.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	return err
}

func (p *HTTPProber) probe(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return avatar.NewProbeError(avatar.KindInvalidFormat, "invalid url", err)
	}
	req.Header.Set("Accept", "image/*")
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return avatar.NewProbeError(avatar.KindTimeout, "timeout", err)
		}
		if errors.Is(err, errForbiddenAddress) {
			return avatar.NewProbeError(avatar.KindNetworkFailure, errForbiddenAddress.Error(), nil)
		}
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, sniffLen))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return avatar.NewProbeError(avatar.KindNetworkFailure, fmt.Sprintf("status %d", resp.StatusCode), nil)
	}

	mtype, err := mimetype.DetectReader(io.LimitReader(resp.Body, sniffLen))
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return avatar.NewProbeError(avatar.KindTimeout, "timeout", err)
		}
		return errors.Wrap(err, "reading body")
	}
	if !strings.HasPrefix(mtype.String(), "image/") {
		return avatar.NewProbeError(avatar.KindInvalidFormat, "not an image: "+mtype.String(), nil)
	}
	return nil
}

func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	var probeErr *avatar.ProbeError
	if errors.As(err, &probeErr) {
		switch probeErr.Kind {
		case avatar.KindTimeout:
			return "timeout"
		case avatar.KindInvalidFormat:
			return "invalid"
		}
		return "failed"
	}
	return "error"
}
