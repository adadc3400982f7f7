package avatar

import (
	"context"
	"fmt"

	"github.com/ukmiverse/ukmiverse/core"
)

type (
	Config struct {
		Fallbacks    []string // generic chain after the personalized fallbacks
		DefaultColor string
		Recommend    RecommendOptions
	}

	// Subject is the avatar of one user (or the logo of one club) to be displayed.
	Subject struct {
		Primary       string
		Name          string
		Color         string
		AllowInsecure bool
	}

	Outcome struct {
		Candidate string `json:"candidate"`
		Result
	}

	Resolution struct {
		Snapshot
		Src      string    `json:"src,omitempty"`
		Attempts []Outcome `json:"attempts"`
	}

	// Service resolves avatars server side: the validator's probe stands in for the image load event.
	Service struct {
		validator *Validator
		conf      Config
		logger    core.Logger
	}
)

func NewService(validator *Validator, conf Config, logger core.Logger) *Service {
	if conf.DefaultColor == "" {
		conf.DefaultColor = DefaultColor
	}
	return &Service{validator: validator, conf: conf, logger: logger}
}

func (svc *Service) source(sub Subject) Source {
	color := sub.Color
	if color == "" {
		color = svc.conf.DefaultColor
	}
	return Source{
		Primary:     sub.Primary,
		DisplayName: sub.Name,
		Color:       color,
		Fallbacks:   svc.conf.Fallbacks,
	}
}

func (svc *Service) validatorFor(allowInsecure bool) *Validator {
	policy := svc.validator.Policy()
	policy.AllowInsecure = policy.AllowInsecure || allowInsecure
	return svc.validator.ForPolicy(policy)
}

// Resolve walks a fresh Resolver for sub until an image loads or every candidate failed.
func (svc *Service) Resolve(ctx context.Context, sub Subject) Resolution {
	resolver := NewResolver(svc.source(sub))
	defer resolver.Close()

	validator := svc.validatorFor(sub.AllowInsecure)
	resolution := Resolution{Attempts: make([]Outcome, 0, 2)}
	load := func(ctx context.Context, candidate string) Result {
		res := validator.Validate(ctx, candidate)
		resolution.Attempts = append(resolution.Attempts, Outcome{Candidate: candidate, Result: res})
		return res
	}

	resolution.Snapshot = Drive(ctx, resolver, load)
	switch resolution.State {
	case StateLoaded:
		resolution.Src = resolution.Candidate
	case StateFailed:
		svc.logger.Warn(fmt.Sprintf("avatar: all %d candidates failed for %q", resolution.Length, sub.Name))
	}
	return resolution
}

// Forget clears the shared validation outcomes of every candidate of sub, so the next Resolve
// probes them again. It backs the manual retry offered by the placeholder.
func (svc *Service) Forget(ctx context.Context, sub Subject) {
	svc.validator.Forget(ctx, svc.source(sub).sequence()...)
}

func (svc *Service) Fallbacks(name, color string) []string {
	return svc.source(Subject{Name: name, Color: color}).sequence()
}

func (svc *Service) Validate(ctx context.Context, candidate string, allowInsecure bool) Result {
	return svc.validatorFor(allowInsecure).Validate(ctx, candidate)
}

// CheckFormat validates candidate offline, relative references resolved against the asset base URL.
func (svc *Service) CheckFormat(candidate string) Result {
	return CheckFormat(candidate, svc.validator.BaseURL())
}

func (svc *Service) Recommend(ctx context.Context, urls []string) Report {
	return svc.validator.Recommend(ctx, urls, svc.conf.Recommend)
}

// Href turns a loaded candidate into a link a browser can follow, relative references being
// resolved against the asset base URL. Data URIs are returned as is.
func (svc *Service) Href(candidate string) string {
	if IsDataURI(candidate) {
		return candidate
	}
	if u, ok := parseURL(candidate, svc.validator.BaseURL()); ok {
		return u.String()
	}
	return candidate
}
