// Package scheduler runs the reminder batch on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ErrAlreadyRunning is returned when a run is requested while one is in flight.
var ErrAlreadyRunning = errors.New("reminder run already in progress")

const defaultRunTimeout = 10 * time.Minute

// State of the trigger. There is no queue: a tick that arrives while Running
// is dropped.
type State int32

const (
	Idle State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "idle"
}

// Job is one execution of the batch.
type Job func(ctx context.Context) error

// Guard claims a calendar day so that replicas and restarts run at most once
// per day. Acquire reports false when the day was already claimed.
type Guard interface {
	Acquire(ctx context.Context, day time.Time) (bool, error)
}

// Trigger fires Job on a cron schedule and on demand, never concurrently.
type Trigger struct {
	cron    *cron.Cron
	entry   cron.EntryID
	spec    string
	loc     *time.Location
	job     Job
	guard   Guard
	timeout time.Duration
	log     *zap.Logger
	now     func() time.Time

	state  atomic.Int32
	ctx    context.Context
	cancel context.CancelFunc
}

type Option func(*Trigger)

func WithRunTimeout(d time.Duration) Option {
	return func(t *Trigger) {
		if d > 0 {
			t.timeout = d
		}
	}
}

func WithGuard(g Guard) Option {
	return func(t *Trigger) { t.guard = g }
}

func WithLogger(log *zap.Logger) Option {
	return func(t *Trigger) { t.log = log }
}

func WithClock(now func() time.Time) Option {
	return func(t *Trigger) { t.now = now }
}

// New parses spec (standard five-field cron or a descriptor such as
// "@every 1h") in loc and registers job. Nothing fires until Start.
func New(spec string, loc *time.Location, job Job, opts ...Option) (*Trigger, error) {
	if loc == nil {
		loc = time.Local
	}
	t := &Trigger{
		spec:    spec,
		loc:     loc,
		job:     job,
		timeout: defaultRunTimeout,
		log:     zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.ctx, t.cancel = context.WithCancel(context.Background())

	logger := cronLogger{log: t.log.Sugar()}
	t.cron = cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger)),
	)

	id, err := t.cron.AddFunc(spec, t.tick)
	if err != nil {
		t.cancel()
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	t.entry = id
	return t, nil
}

// Start begins firing on schedule.
func (t *Trigger) Start() {
	t.cron.Start()
	t.log.Info("reminder scheduler started",
		zap.String("schedule", t.spec),
		zap.String("timezone", t.loc.String()),
		zap.Time("next_run", t.Next()),
	)
}

// Stop halts the schedule and waits for an in-flight run. If ctx ends first
// the run's context is cancelled and Stop still waits for it to return.
func (t *Trigger) Stop(ctx context.Context) error {
	done := t.cron.Stop()
	defer t.cancel()

	select {
	case <-done.Done():
		t.log.Info("reminder scheduler stopped")
		return nil
	case <-ctx.Done():
		t.cancel()
		<-done.Done()
		t.log.Warn("reminder scheduler stopped after cancelling an in-flight run")
		return ctx.Err()
	}
}

// Next is the next scheduled fire time, zero when not started.
func (t *Trigger) Next() time.Time {
	return t.cron.Entry(t.entry).Next
}

func (t *Trigger) State() State {
	return State(t.state.Load())
}

// RunNow executes one run synchronously, bypassing the day guard.
func (t *Trigger) RunNow(ctx context.Context) error {
	return t.run(ctx, false)
}

func (t *Trigger) tick() {
	err := t.run(t.ctx, true)
	switch {
	case errors.Is(err, ErrAlreadyRunning):
		t.log.Warn("skipping reminder tick, previous run still in progress")
	case err != nil:
		t.log.Error("scheduled reminder run failed", zap.Error(err))
	}
}

func (t *Trigger) run(ctx context.Context, guarded bool) error {
	if !t.state.CompareAndSwap(int32(Idle), int32(Running)) {
		return ErrAlreadyRunning
	}
	defer t.state.Store(int32(Idle))

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	if guarded && t.guard != nil {
		day := t.now().In(t.loc)
		acquired, err := t.guard.Acquire(ctx, day)
		if err != nil {
			// Guard store unreachable: run unguarded.
			t.log.Warn("reminder guard unavailable, running anyway", zap.Error(err))
		} else if !acquired {
			t.log.Info("reminder run already claimed for today", zap.String("day", day.Format("2006-01-02")))
			return nil
		}
	}

	started := t.now()
	t.log.Info("reminder run started")
	err := t.job(ctx)
	t.log.Info("reminder run finished",
		zap.Duration("elapsed", t.now().Sub(started)),
		zap.Bool("ok", err == nil),
	)
	return err
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
