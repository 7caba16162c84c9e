// Package title formats film titles in title case while keeping connective
// words lower-case.
package title

import (
	"context"
	"strings"
	"time"

	"github.com/compozy/tally/engine/core"
	"github.com/compozy/tally/engine/infra/monitoring"
	"github.com/compozy/tally/engine/normalize"
	"github.com/compozy/tally/engine/schema"
	"github.com/compozy/tally/pkg/logger"
)

const Operation = "fix_title"

// DefaultMinorWords stay lower-case unless they open the title.
var DefaultMinorWords = []string{"ka", "ki", "ke", "se", "aur", "ya", "the", "of", "in", "a", "an"}

// Caser title-cases raw input. It is immutable and safe for concurrent use.
type Caser struct {
	minor    map[string]struct{}
	recorder monitoring.Recorder
}

type Option func(*Caser)

// WithMinorWords replaces the minor word set. Matching is case-insensitive.
func WithMinorWords(words ...string) Option {
	return func(c *Caser) {
		c.minor = make(map[string]struct{}, len(words))
		for _, w := range words {
			if w = normalize.Apply(w, normalize.Trim, normalize.Lower); w != "" {
				c.minor[w] = struct{}{}
			}
		}
	}
}

func WithRecorder(r monitoring.Recorder) Option {
	return func(c *Caser) {
		if r != nil {
			c.recorder = r
		}
	}
}

func New(opts ...Option) *Caser {
	c := &Caser{recorder: monitoring.Default()}
	WithMinorWords(DefaultMinorWords...)(c)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute validates input and returns its title-cased form.
func (c *Caser) Execute(ctx context.Context, input any) (string, error) {
	start := time.Now()
	out, err := c.execute(input)
	c.recorder.RecordOperation(ctx, Operation, time.Since(start), err)
	if err != nil {
		logger.FromContext(ctx).Debug("title rejected", "operation", Operation, "reason", core.ReasonOf(err), "error", err)
		return "", err
	}
	return out, nil
}

func (c *Caser) execute(input any) (string, error) {
	if err := schema.NonEmptyString(input); err != nil {
		return "", core.InField("title", err)
	}
	raw, _ := core.String(input)
	return c.Format(normalize.Words(raw)), nil
}

// Format title-cases already split words and joins them with single spaces.
func (c *Caser) Format(words []string) string {
	out := make([]string, len(words))
	for i, w := range words {
		lower := normalize.Lower(w)
		if _, minor := c.minor[lower]; minor && i > 0 {
			out[i] = lower
			continue
		}
		out[i] = normalize.Capitalize(w)
	}
	return strings.Join(out, " ")
}

// IsMinor reports whether word is treated as a connective.
func (c *Caser) IsMinor(word string) bool {
	_, ok := c.minor[normalize.Lower(word)]
	return ok
}

var _ core.Usecase[any, string] = (*Caser)(nil)

var defaultCaser = New()

// FixTitle returns the title-cased form of input, or "" when input is not a
// string or holds only white space.
func FixTitle(input any) string {
	out, err := defaultCaser.Execute(context.Background(), input)
	if err != nil {
		return ""
	}
	return out
}
