package codec

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/sentiment-gate/go-controller/internal/graph"
)

// #region constants

const (
	defaultMaxRetries = 2 // 3 total attempts
	defaultBackoff    = 200 * time.Millisecond
)

// #endregion

// #region retrying

// Retrying retries a classifier while the backend reports itself
// unavailable. Other failures are returned on the first attempt.
type Retrying struct {
	next       graph.Classifier
	maxRetries int
	backoff    time.Duration
	logger     *zap.Logger
}

// RetryOption configures a Retrying classifier.
type RetryOption func(*Retrying)

// WithMaxRetries sets the number of retries after the first attempt.
func WithMaxRetries(n int) RetryOption {
	return func(r *Retrying) { r.maxRetries = n }
}

// WithBackoff sets the base delay; attempt k waits k times this.
func WithBackoff(d time.Duration) RetryOption {
	return func(r *Retrying) { r.backoff = d }
}

// WithRetryLogger sets the logger. A nil logger keeps the no-op default.
func WithRetryLogger(l *zap.Logger) RetryOption {
	return func(r *Retrying) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRetrying wraps next.
func NewRetrying(next graph.Classifier, opts ...RetryOption) *Retrying {
	r := &Retrying{
		next:       next,
		maxRetries: defaultMaxRetries,
		backoff:    defaultBackoff,
		logger:     zap.NewNop(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// #endregion

// #region classify

// Classify implements graph.Classifier.
func (r *Retrying) Classify(ctx context.Context, text string) ([]graph.Score, error) {
	var err error
	for attempt := 0; ; attempt++ {
		var scores []graph.Score
		scores, err = r.next.Classify(ctx, text)
		if err == nil || !errors.Is(err, ErrUnavailable) || attempt >= r.maxRetries {
			return scores, err
		}

		wait := time.Duration(attempt+1) * r.backoff
		r.logger.Debug("classifier unavailable, retrying",
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", wait),
			zap.Error(err))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, errors.Join(err, ctx.Err())
		case <-timer.C:
		}
	}
}

// #endregion
