// Package cron runs the bot's named maintenance jobs on a seconds-resolution
// cron schedule.
package cron

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	rcron "github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const stopTimeout = 5 * time.Second

// JobFunc is the work of one job run. ctx ends when the service stops.
type JobFunc func(ctx context.Context) error

// JobStatus is the run history of one job.
type JobStatus struct {
	Name      string
	Schedule  string
	Runs      int
	LastRun   time.Time
	LastError string
	Next      time.Time
}

type job struct {
	name     string
	schedule string
	fn       JobFunc
	entry    rcron.EntryID
	status   JobStatus
}

type Service struct {
	mu     sync.Mutex
	cron   *rcron.Cron
	jobs   map[string]*job
	log    *zap.Logger
	runCtx context.Context
	cancel context.CancelFunc
	stopCh chan struct{}
}

var ErrUnknownJob = errors.New("unknown job")

func NewService(log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("cron")
	cl := cronLogger{log.Sugar()}
	return &Service{
		cron: rcron.New(
			rcron.WithSeconds(),
			rcron.WithLogger(cl),
			rcron.WithChain(rcron.Recover(cl), rcron.SkipIfStillRunning(cl)),
		),
		jobs:   make(map[string]*job),
		log:    log,
		runCtx: context.Background(),
	}
}

// AddJob registers fn under name with a six-field (seconds-first) spec.
func (s *Service) AddJob(name, spec string, fn JobFunc) error {
	if fn == nil {
		return fmt.Errorf("job %s: nil func", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("job %s already registered", name)
	}
	j := &job{name: name, schedule: spec, fn: fn, status: JobStatus{Name: name, Schedule: spec}}
	id, err := s.cron.AddFunc(spec, func() { s.execute(j) })
	if err != nil {
		return fmt.Errorf("job %s (%s): %w", name, spec, err)
	}
	j.entry = id
	s.jobs[name] = j
	return nil
}

func (s *Service) RemoveJob(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[name]
	if !ok {
		return false
	}
	s.cron.Remove(j.entry)
	delete(s.jobs, name)
	return true
}

// RunNow executes the named job synchronously, outside its schedule.
func (s *Service) RunNow(name string) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.execute(j)
}

func (s *Service) execute(j *job) error {
	s.mu.Lock()
	ctx := s.runCtx
	s.mu.Unlock()

	start := time.Now()
	err := j.fn(ctx)

	s.mu.Lock()
	j.status.Runs++
	j.status.LastRun = start
	if err != nil {
		j.status.LastError = err.Error()
	} else {
		j.status.LastError = ""
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Error("job failed", zap.String("job", j.name), zap.Error(err))
	} else {
		s.log.Debug("job done", zap.String("job", j.name), zap.Duration("took", time.Since(start)))
	}
	return err
}

// Jobs returns the status of every job, sorted by name.
func (s *Service) Jobs() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobStatus, 0, len(s.jobs))
	for _, j := range s.jobs {
		st := j.status
		st.Next = s.cron.Entry(j.entry).Next
		out = append(out, st)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out
}

func (s *Service) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	stopCh := make(chan struct{})

	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		cancel()
		return errors.New("cron service already started")
	}
	s.runCtx = runCtx
	s.cancel = cancel
	s.stopCh = stopCh
	n := len(s.jobs)
	s.mu.Unlock()

	s.cron.Start()
	s.log.Info("started", zap.Int("jobs", n))

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-stopCh:
		}
	}()
	return nil
}

// Stop halts scheduling and waits briefly for running jobs.
func (s *Service) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	stopCh := s.stopCh
	s.cancel = nil
	s.stopCh = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	close(stopCh)

	select {
	case <-s.cron.Stop().Done():
	case <-time.After(stopTimeout):
		s.log.Warn("stop timeout waiting for running jobs")
	}
	s.log.Info("stopped")
}

// cronLogger adapts zap to the robfig/cron logger interface.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
