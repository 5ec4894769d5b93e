package scoring

import (
	"context"
	"errors"

	"github.com/cl0udz1/cyber-guard-platfrom/internal/normalizer"
)

// Partial is one source's opinion about a fingerprint.
type Partial struct {
	Score   int
	Reasons []string
}

// Source is a pluggable scoring strategy.
type Source interface {
	Name() string
	Score(ctx context.Context, fp normalizer.Fingerprint) (Partial, error)
}

// ErrNotApplicable is returned by sources that cannot judge a fingerprint kind.
var ErrNotApplicable = errors.New("source not applicable")

type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient marks err as worth one retry.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err was marked transient or is a per-attempt timeout.
func IsTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te) || errors.Is(err, context.DeadlineExceeded)
}
