// Package audit appends activity entries on a best-effort basis: a failed
// write is logged and counted, never returned to the caller.
package audit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/geocoder89/accounthub/internal/actorctx"
	"github.com/geocoder89/accounthub/internal/domain/activity"
	"github.com/geocoder89/accounthub/internal/observability"
)

var ErrCircuitOpen = errors.New("audit circuit breaker open")

type Appender interface {
	Append(ctx context.Context, e activity.Entry) error
}

type Config struct {
	Timeout          time.Duration // hard timeout per write
	FailureThreshold int           // consecutive failures to open circuit
	Cooldown         time.Duration // how long to stay open before half-open
	HalfOpenMaxCalls int           // allow N trial calls in half-open
}

const (
	stateClosed   = "closed"
	stateOpen     = "open"
	stateHalfOpen = "half_open"
)

type Recorder struct {
	inner Appender
	cfg   Config
	log   *slog.Logger
	prom  *observability.Prom

	mu                  sync.Mutex
	state               string
	consecutiveFailures int
	openedAt            time.Time
	halfOpenInFlight    int
	now                 func() time.Time
}

func NewRecorder(inner Appender, cfg Config, log *slog.Logger, prom *observability.Prom) *Recorder {
	//defaults
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 15 * time.Second
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = 1
	}
	if log == nil {
		log = slog.Default()
	}

	return &Recorder{
		inner: inner,
		cfg:   cfg,
		log:   log,
		prom:  prom,
		state: stateClosed,
		now:   time.Now,
	}
}

// Record writes one entry. It survives cancellation of the request context so
// an entry for a finished mutation is not lost to a client disconnect.
func (r *Recorder) Record(ctx context.Context, userID, action, details string) {
	entry := activity.New(userID, action, details)

	err := r.write(ctx, entry)
	if err == nil {
		r.prom.ObserveAudit(action, "ok")
		return
	}

	result := "error"
	if errors.Is(err, ErrCircuitOpen) {
		result = "skipped"
	}
	r.prom.ObserveAudit(action, result)

	reqID, _ := actorctx.RequestIDFrom(ctx)
	r.log.ErrorContext(ctx, "activity log write failed",
		"err", err,
		"action", action,
		"user_id", userID,
		"request_id", reqID,
	)
}

func (r *Recorder) write(ctx context.Context, entry activity.Entry) error {
	// fail-fast gate
	if !r.allowRequest() {
		return ErrCircuitOpen
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.Timeout)
	defer cancel()

	err := r.inner.Append(writeCtx, entry)

	r.afterRequest(err)

	return err
}

func (r *Recorder) State() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Recorder) allowRequest() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case stateClosed:
		return true
	case stateOpen:
		// cooldown has passed? move to half open
		if r.now().Sub(r.openedAt) >= r.cfg.Cooldown {
			r.state = stateHalfOpen
			r.halfOpenInFlight = 1
			return true
		}
		return false
	case stateHalfOpen:
		if r.halfOpenInFlight >= r.cfg.HalfOpenMaxCalls {
			return false
		}
		r.halfOpenInFlight++
		return true
	default:
		return true
	}
}

func (r *Recorder) afterRequest(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// half-open call just finished
	if r.state == stateHalfOpen && r.halfOpenInFlight > 0 {
		r.halfOpenInFlight--
	}

	if err == nil {
		r.consecutiveFailures = 0
		r.state = stateClosed
		return
	}

	r.consecutiveFailures++

	// if half-open failed, reopen immediately
	if r.state == stateHalfOpen {
		r.state = stateOpen
		r.openedAt = r.now()
		return
	}

	if r.consecutiveFailures >= r.cfg.FailureThreshold {
		r.state = stateOpen
		r.openedAt = r.now()
	}
}
