package avatar

import (
	"context"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// DefaultProbeTimeout bounds a single network probe.
const DefaultProbeTimeout = 5 * time.Second

type (
	// Prober loads an absolute http(s) URL and reports whether it is a displayable image.
	// It must honour ctx cancellation.
	Prober interface {
		Probe(ctx context.Context, url string) error
	}

	ProberFunc func(ctx context.Context, url string) error

	// Policy decides which candidates may be displayed at all.
	Policy struct {
		PageSecure    bool // the page embedding the image is served over https
		AllowInsecure bool // accept plain http candidates on a secure page
	}

	// Validator checks candidates, probing the network for URLs and caching every outcome.
	Validator struct {
		prober  Prober
		cache   Cache
		timeout time.Duration
		base    *url.URL
		policy  Policy
	}

	ValidatorOption func(*Validator)
)

func (f ProberFunc) Probe(ctx context.Context, url string) error { return f(ctx, url) }

func WithCache(cache Cache) ValidatorOption {
	return func(v *Validator) {
		if cache != nil {
			v.cache = cache
		}
	}
}

func WithTimeout(timeout time.Duration) ValidatorOption {
	return func(v *Validator) {
		if timeout > 0 {
			v.timeout = timeout
		}
	}
}

// WithBaseURL resolves relative candidates (eg. `/static/uploads/avatars/x.jpg`) against base.
func WithBaseURL(base string) ValidatorOption {
	return func(v *Validator) {
		if u, err := url.Parse(base); err == nil && u.IsAbs() {
			v.base = u
		}
	}
}

func WithPolicy(policy Policy) ValidatorOption {
	return func(v *Validator) { v.policy = policy }
}

// NewValidator returns a Validator with its own MemoryCache unless WithCache says otherwise.
// A nil prober skips network checks: well formed URLs are reported valid without being cached.
func NewValidator(prober Prober, opts ...ValidatorOption) *Validator {
	v := &Validator{
		prober:  prober,
		cache:   NewMemoryCache(),
		timeout: DefaultProbeTimeout,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ForPolicy returns a copy of v applying policy, sharing the prober and the cache.
func (v *Validator) ForPolicy(policy Policy) *Validator {
	cp := *v
	cp.policy = policy
	return &cp
}

func (v *Validator) Policy() Policy { return v.policy }

func (v *Validator) BaseURL() *url.URL { return v.base }

// Validate checks one candidate. It never fails: every problem is reported in the Result.
// Mixed content rejections and caller cancellations are not cached since they do not describe the candidate.
func (v *Validator) Validate(ctx context.Context, candidate string) Result {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return invalid(KindMissingSource, "missing")
	}

	var u *url.URL
	isData := IsDataURI(candidate)
	if !isData {
		var ok bool
		if u, ok = parseURL(candidate, v.base); ok && v.mixedContent(u) {
			return invalid(KindNetworkFailure, "mixed content")
		}
	}

	if res, ok := v.cache.Get(ctx, candidate); ok {
		return res
	}

	var res Result
	switch {
	case isData:
		res = checkDataURI(candidate)
	case u == nil:
		res = invalid(KindInvalidFormat, "invalid url")
	case v.prober == nil:
		return valid("not probed")
	default:
		pctx, cancel := context.WithTimeout(ctx, v.timeout)
		err := v.prober.Probe(pctx, u.String())
		cancel()
		if err != nil && ctx.Err() != nil {
			return invalid(KindNetworkFailure, "canceled")
		}
		res = classify(err)
	}

	v.cache.Put(ctx, candidate, res)
	return res
}

// Forget drops cached outcomes so the candidates get probed again.
func (v *Validator) Forget(ctx context.Context, candidates ...string) {
	v.cache.Delete(ctx, candidates...)
}

func (v *Validator) mixedContent(u *url.URL) bool {
	return u.Scheme == "http" && v.policy.PageSecure && !v.policy.AllowInsecure
}

func classify(err error) Result {
	if err == nil {
		return valid("")
	}

	var probeErr *ProbeError
	if errors.As(err, &probeErr) {
		if probeErr.Kind == KindTimeout {
			return invalid(KindTimeout, "timeout")
		}
		return invalid(probeErr.Kind, probeErr.Reason)
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return invalid(KindTimeout, "timeout")
	}
	return invalid(KindNetworkFailure, "network failure: "+err.Error())
}
