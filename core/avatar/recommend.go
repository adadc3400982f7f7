package avatar

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultBatchSize  = 5
	DefaultBatchPause = 500 * time.Millisecond
	DefaultBulkProbe  = 3 * time.Second
	recommendedCount  = 5
)

var (
	reliableServices = []string{"placeholder.com", "dummyimage.com", "gravatar.com"}
	plainURLRegex    = regexp.MustCompile(`^[a-zA-Z0-9:/._\-?&=]*$`)
)

type (
	RecommendOptions struct {
		BatchSize int           // concurrent probes per batch
		Pause     time.Duration // pause between batches
		Timeout   time.Duration // per candidate
	}

	Scored struct {
		URL    string    `json:"url"`
		Valid  bool      `json:"valid"`
		Reason string    `json:"reason,omitempty"`
		Kind   ErrorKind `json:"kind,omitempty"`
		Score  int       `json:"score"`
	}

	Report struct {
		Valid       []Scored `json:"valid"`
		Invalid     []Scored `json:"invalid"`
		Recommended []Scored `json:"recommended"`
		All         []Scored `json:"all"`
	}
)

func (opts RecommendOptions) withDefaults() RecommendOptions {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Pause < 0 {
		opts.Pause = 0
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultBulkProbe
	}
	return opts
}

// Recommend tests urls in batches of opts.BatchSize, each batch completing before the next one
// starts, and ranks them by reliability. It is a diagnostic tool, not part of displaying an avatar.
// A done ctx stops before the next batch; the urls not tested yet are left out of the report.
func (v *Validator) Recommend(ctx context.Context, urls []string, opts RecommendOptions) Report {
	opts = opts.withDefaults()
	bulk := *v
	bulk.timeout = opts.Timeout

	results := make([]Scored, 0, len(urls))
	for start := 0; start < len(urls); start += opts.BatchSize {
		if ctx.Err() != nil {
			break
		}
		end := start + opts.BatchSize
		if end > len(urls) {
			end = len(urls)
		}

		// a probe returns the caller's cancellation so no further batch starts
		batch := make([]Scored, end-start)
		var g errgroup.Group
		g.SetLimit(opts.BatchSize)
		for i, u := range urls[start:end] {
			g.Go(func() error {
				res := bulk.Validate(ctx, u)
				batch[i] = Scored{URL: u, Valid: res.Valid, Reason: res.Reason, Kind: res.Kind, Score: Score(u, res)}
				return ctx.Err()
			})
		}
		err := g.Wait()
		results = append(results, batch...)
		if err != nil {
			break
		}

		if end < len(urls) && opts.Pause > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(opts.Pause):
			}
		}
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	report := Report{Valid: []Scored{}, Invalid: []Scored{}, All: results}
	for _, r := range results {
		if r.Valid {
			report.Valid = append(report.Valid, r)
		} else {
			report.Invalid = append(report.Invalid, r)
		}
	}
	report.Recommended = report.Valid
	if len(report.Recommended) > recommendedCount {
		report.Recommended = report.Recommended[:recommendedCount]
	}
	return report
}

// Score rates how reliable a candidate is likely to stay; higher is better.
func Score(u string, res Result) int {
	var score int
	if res.Valid {
		score += 100
	}
	if strings.HasPrefix(u, "https://") {
		score += 20
	}
	for _, svc := range reliableServices {
		if strings.Contains(u, svc) {
			score += 15
			break
		}
	}
	if len(u) < 100 {
		score += 10
	}
	if plainURLRegex.MatchString(u) {
		score += 5
	}
	return score
}
