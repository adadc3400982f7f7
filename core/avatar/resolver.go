package avatar

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
)

// State of a Resolver. INIT, LOADED and FAILED are stable, TRYING lasts for one candidate.
type State int

const (
	StateInit State = iota
	StateTrying
	StateLoaded
	StateFailed
)

var stateNames = [...]string{"init", "trying", "loaded", "failed"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for i, name := range stateNames {
		if name == string(text) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", text)
}

// ErrNotFailed is returned by Retry outside of the FAILED state.
var ErrNotFailed = errors.New("resolver has not failed")

type (
	// Source is what a resolver is asked to display.
	Source struct {
		Primary     string   // stored avatar (URL or base64), may be empty
		DisplayName string   // used for personalized fallbacks
		Color       string   // preferred background color of personalized fallbacks
		Fallbacks   []string // generic chain; DefaultFallbacks + EmergencyFallbacks when empty
	}

	// Attempt is the ticket of one candidate being displayed. Load events must hand it back so
	// that events from a superseded source or pass are recognized and ignored.
	Attempt struct {
		Generation uint64 `json:"generation"`
		Index      int    `json:"index"`
		Candidate  string `json:"candidate"`
	}

	Snapshot struct {
		State       State     `json:"state"`
		Index       int       `json:"index"`
		Candidate   string    `json:"candidate,omitempty"`
		Length      int       `json:"length"`
		Failures    int       `json:"failures"`
		LastError   ErrorKind `json:"last_error,omitempty"`
		Generation  uint64    `json:"generation"`
		Placeholder bool      `json:"placeholder"`
	}

	// Resolver walks the candidates of one avatar until one loads or all of them failed.
	// Its success and failure sets belong to the instance and die with it.
	Resolver struct {
		mu        sync.Mutex
		seq       []string
		index     int
		gen       uint64
		state     State
		lastErr   ErrorKind
		failures  int
		failed    map[string]bool
		succeeded map[string]bool
		closed    bool
	}
)

func (src Source) sequence() []string {
	fallbacks := src.Fallbacks
	if len(fallbacks) == 0 {
		fallbacks = append(append([]string{}, DefaultFallbacks...), EmergencyFallbacks...)
	}
	return Sequence(src.Primary, Personalized(src.DisplayName, src.Color), fallbacks)
}

func NewResolver(src Source) *Resolver {
	r := &Resolver{}
	r.reset(src)
	return r
}

func (r *Resolver) reset(src Source) {
	r.seq = src.sequence()
	r.index = 0
	r.gen++
	r.state = StateInit
	r.lastErr = KindNone
	r.failures = 0
	r.failed = make(map[string]bool)
	r.succeeded = make(map[string]bool)
}

// Start leaves INIT and returns the first candidate to display.
// Outside of INIT it returns the pending attempt, if any.
func (r *Resolver) Start() (Attempt, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return Attempt{}, false
	}
	if r.state == StateInit {
		r.state = StateTrying
		r.seek()
	}
	return r.pending()
}

// Pending returns the attempt waiting for a load event.
func (r *Resolver) Pending() (Attempt, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return Attempt{}, false
	}
	return r.pending()
}

func (r *Resolver) pending() (Attempt, bool) {
	if r.state != StateTrying {
		return Attempt{}, false
	}
	return Attempt{Generation: r.gen, Index: r.index, Candidate: r.seq[r.index]}, true
}

// seek moves forward past candidates already known to fail, entering FAILED at the end.
func (r *Resolver) seek() {
	for r.index < len(r.seq) && r.failed[r.seq[r.index]] {
		r.index++
	}
	if r.index >= len(r.seq) {
		r.index = len(r.seq)
		r.state = StateFailed
		r.lastErr = KindExhaustedFallbacks
	}
}

func (r *Resolver) stale(a Attempt) bool {
	return r.closed || r.state != StateTrying || a.Generation != r.gen ||
		a.Index != r.index || r.seq[a.Index] != a.Candidate
}

// Loaded reports a successful load. Stale attempts are ignored and return false.
func (r *Resolver) Loaded(a Attempt) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stale(a) {
		return false
	}
	r.succeeded[a.Candidate] = true
	r.state = StateLoaded
	r.lastErr = KindNone
	return true
}

// Failed reports a failed load and returns the next attempt, if any is left.
// The failed candidate is recorded before moving so that it is never displayed again in this pass.
// Stale attempts are ignored.
func (r *Resolver) Failed(a Attempt, kind ErrorKind) (Attempt, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stale(a) {
		return Attempt{}, false
	}
	r.failed[a.Candidate] = true
	r.failures++
	r.lastErr = kind
	r.index++
	r.seek()
	return r.pending()
}

// Retry is the manual way out of FAILED: the failure set of this instance is cleared and the
// walk starts over from the first candidate. Events of the previous pass become stale.
func (r *Resolver) Retry() (Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return Attempt{}, ErrClosed
	}
	if r.state != StateFailed {
		return Attempt{}, ErrNotFailed
	}
	r.failed = make(map[string]bool)
	r.index = 0
	r.gen++
	r.failures = 0
	r.lastErr = KindNone
	r.state = StateTrying
	r.seek()
	a, _ := r.pending()
	return a, nil
}

// SetSource replaces what is displayed: new chain, fresh sets, new generation.
func (r *Resolver) SetSource(src Source) (Attempt, bool) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return Attempt{}, false
	}
	r.reset(src)
	r.mu.Unlock()
	return r.Start()
}

// Close tears the resolver down, any later event is a no-op.
func (r *Resolver) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}

// Candidates returns the full ordered sequence of this resolution.
func (r *Resolver) Candidates() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.seq...)
}

// Known reports whether candidate already loaded or failed in this instance.
func (r *Resolver) Known(candidate string) (loaded, failed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.succeeded[candidate], r.failed[candidate]
}

func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Resolver) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := Snapshot{
		State:       r.state,
		Index:       r.index,
		Length:      len(r.seq),
		Failures:    r.failures,
		LastError:   r.lastErr,
		Generation:  r.gen,
		Placeholder: r.state == StateFailed,
	}
	if r.index < len(r.seq) && r.state != StateInit {
		snap.Candidate = r.seq[r.index]
	}
	return snap
}

// LoadFunc loads one candidate the way the host displays images.
type LoadFunc func(ctx context.Context, candidate string) Result

// Drive runs r to a stable state, using load as the image loading primitive.
// When ctx is done the walk is abandoned and the pending attempt keeps waiting.
func Drive(ctx context.Context, r *Resolver, load LoadFunc) Snapshot {
	a, ok := r.Start()
	for ok && ctx.Err() == nil {
		res := load(ctx, a.Candidate)
		if ctx.Err() != nil {
			break
		}
		if res.Valid {
			r.Loaded(a)
			break
		}
		a, ok = r.Failed(a, res.Kind)
	}
	return r.Snapshot()
}
