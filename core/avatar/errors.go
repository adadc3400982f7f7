package avatar

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind classifies why a candidate could not be displayed.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindMissingSource
	KindInvalidFormat
	KindNetworkFailure
	KindTimeout
	KindExhaustedFallbacks
)

var kindNames = map[ErrorKind]string{
	KindNone:               "",
	KindMissingSource:      "missing_source",
	KindInvalidFormat:      "invalid_format",
	KindNetworkFailure:     "network_failure",
	KindTimeout:            "timeout",
	KindExhaustedFallbacks: "exhausted_fallbacks",
}

func (k ErrorKind) String() string {
	return kindNames[k]
}

func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *ErrorKind) UnmarshalText(text []byte) error {
	for kind, name := range kindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown error kind %q", text)
}

// Result is the outcome of checking one candidate.
type Result struct {
	Valid  bool      `json:"valid"`
	Reason string    `json:"reason,omitempty"`
	Kind   ErrorKind `json:"kind,omitempty"`
}

func valid(reason string) Result {
	return Result{Valid: true, Reason: reason}
}

func invalid(kind ErrorKind, reason string) Result {
	return Result{Reason: reason, Kind: kind}
}

// ProbeError is returned by Probers that know why an image failed to load.
type ProbeError struct {
	Kind   ErrorKind
	Reason string
	Err    error
}

func NewProbeError(kind ErrorKind, reason string, err error) *ProbeError {
	return &ProbeError{Kind: kind, Reason: reason, Err: err}
}

func (e *ProbeError) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return e.Reason + ": " + e.Err.Error()
}

func (e *ProbeError) Unwrap() error { return e.Err }

// ErrClosed is returned when events reach a torn down Resolver.
var ErrClosed = errors.New("resolver closed")
