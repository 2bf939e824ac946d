package throttle

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/kalviumcommunity/GenAi-KlinikAI/internal/config"
)

// Throttle paces requests to the completion endpoint: at most MaxConcurrency in flight and at
// least MinDelay between two request starts.
type Throttle struct {
	sem     *semaphore.Weighted
	limiter *rate.Limiter
	logger  *logrus.Entry

	statsMu sync.Mutex
	stats   Statistics
}

// Statistics holds throttle counters
type Statistics struct {
	TotalRequests     int64 `json:"total_requests"`
	CompletedRequests int64 `json:"completed_requests"`
	RejectedRequests  int64 `json:"rejected_requests"`
	ActiveRequests    int64 `json:"active_requests"`
}

func New(cfg config.ThrottleConfig, logger *logrus.Entry) *Throttle {
	n := cfg.MaxConcurrency
	if n <= 0 {
		n = 1
	}
	limit := rate.Inf
	if cfg.MinDelay > 0 {
		limit = rate.Every(cfg.MinDelay)
	}
	return &Throttle{
		sem:     semaphore.NewWeighted(int64(n)),
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// Acquire blocks until a request may start. The returned release func must be called when the
// request finishes. On context cancellation the error is returned and nothing is held, including
// the start slot.
func (t *Throttle) Acquire(ctx context.Context) (func(), error) {
	t.update(func(s *Statistics) { s.TotalRequests++ })

	if err := t.sem.Acquire(ctx, 1); err != nil {
		t.update(func(s *Statistics) { s.RejectedRequests++ })
		return nil, err
	}

	start := time.Now()
	if err := t.limiter.Wait(ctx); err != nil {
		t.sem.Release(1)
		t.update(func(s *Statistics) { s.RejectedRequests++ })
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	if waited := time.Since(start); waited > time.Millisecond && t.logger != nil {
		t.logger.WithField("wait", waited.String()).Debug("Dispatch delayed")
	}

	t.update(func(s *Statistics) { s.ActiveRequests++ })

	var once sync.Once
	return func() {
		once.Do(func() {
			t.update(func(s *Statistics) {
				s.ActiveRequests--
				s.CompletedRequests++
			})
			t.sem.Release(1)
		})
	}, nil
}

// GetStats returns a copy of the counters
func (t *Throttle) GetStats() Statistics {
	t.statsMu.Lock()
	defer t.statsMu.Unlock()
	return t.stats
}

func (t *Throttle) update(fn func(*Statistics)) {
	t.statsMu.Lock()
	defer t.statsMu.Unlock()
	fn(&t.stats)
}
