// Package session owns the run state a front end needs around the chain
// executor: one run in flight at a time, the current transcript, and the
// history of runs made during this process.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gi4nks/promptchain/internal/analytics"
	"github.com/gi4nks/promptchain/internal/chain"
	"github.com/gi4nks/promptchain/internal/errors"
	"github.com/gi4nks/promptchain/internal/models"
	"github.com/gi4nks/promptchain/internal/repos"
	"github.com/gi4nks/promptchain/internal/transcript"
)

// Option configures a Session.
type Option func(*Session)

// WithClock replaces time.Now for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator replaces the uuid based run ID generator.
func WithIDGenerator(newID func() string) Option {
	return func(s *Session) {
		if newID != nil {
			s.newID = newID
		}
	}
}

type Session struct {
	logger     *zap.Logger
	executor   *chain.Executor
	repository repos.RepositoryInterface
	analytics  *analytics.Analytics
	now        func() time.Time
	newID      func() string

	mu      sync.Mutex
	state   models.RunState
	current models.Run
	done    chan struct{}
}

// New creates an idle session.
func New(logger *zap.Logger, executor *chain.Executor, repo repos.RepositoryInterface, opts ...Option) *Session {
	s := &Session{
		logger:     logger,
		executor:   executor,
		repository: repo,
		analytics:  analytics.NewAnalytics(logger),
		now:        time.Now,
		newID:      uuid.NewString,
		state:      models.StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the state of the current run, StateIdle before the first one.
func (s *Session) State() models.RunState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Current returns a copy of the current run. Its steps are empty unless the
// run completed.
func (s *Session) Current() models.Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// Start begins a run and returns immediately with the run in StateRunning.
// The run executes detached from ctx's cancellation: once started it goes to
// completion or failure.
func (s *Session) Start(ctx context.Context, req models.ChainRequest, observers ...chain.StepObserver) (models.Run, error) {
	run, done, err := s.begin(req)
	if err != nil {
		return models.Run{}, err
	}

	go func() {
		_, _ = s.execute(context.WithoutCancel(ctx), req, run, done, observers)
	}()

	return run.Clone(), nil
}

// Execute runs a chain and blocks until it completes or fails. The returned
// error is the one raised by the first failing step, unchanged.
func (s *Session) Execute(ctx context.Context, req models.ChainRequest, observers ...chain.StepObserver) (models.Run, error) {
	run, done, err := s.begin(req)
	if err != nil {
		return models.Run{}, err
	}
	return s.execute(context.WithoutCancel(ctx), req, run, done, observers)
}

// Wait blocks until no run is in flight.
func (s *Session) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	if done != nil {
		<-done
	}
}

// Export renders the current run. Only a completed run has something to export.
func (s *Session) Export() (transcript.Export, error) {
	return transcript.FromRun(s.Current())
}

// History returns up to limit runs of this session, newest first.
func (s *Session) History(limit int) ([]models.Run, error) {
	return s.repository.GetLimitRuns(limit)
}

// Get returns a run of this session by ID.
func (s *Session) Get(id string) (*models.Run, error) {
	return s.repository.Get(id)
}

// Stats summarizes every run of this session.
func (s *Session) Stats() (*analytics.AnalyticsReport, error) {
	runs, err := s.repository.GetAllRuns()
	if err != nil {
		return nil, err
	}
	return s.analytics.AnalyzeRuns(runs), nil
}

func (s *Session) begin(req models.ChainRequest) (models.Run, chan struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == models.StateRunning {
		return models.Run{}, nil, errors.NewError(errors.ErrRunInProgress, "a run is already in progress", nil)
	}
	if err := req.Validate(); err != nil {
		return models.Run{}, nil, err
	}

	// The previous transcript is cleared before the new run starts.
	run := models.Run{
		ID:        s.newID(),
		Request:   req.WithoutCredential(),
		State:     models.StateRunning,
		Steps:     []models.ChainStep{},
		StartedAt: s.now(),
	}
	s.current = run
	s.state = models.StateRunning
	s.done = make(chan struct{})

	s.logger.Info("Run started",
		zap.String("runId", run.ID),
		zap.Int("repeatCount", req.RepeatCount))

	return run, s.done, nil
}

func (s *Session) execute(ctx context.Context, req models.ChainRequest, run models.Run, done chan struct{}, observers []chain.StepObserver) (models.Run, error) {
	defer close(done)
	s.store(ctx, run)

	steps, err := s.executor.Execute(ctx, req, observers...)

	run.FinishedAt = s.now()
	if err != nil {
		run.State = models.StateFailed
		run.Error = err.Error()
		run.ErrorKind = errors.Code(err)
		s.logger.Info("Run failed",
			zap.String("runId", run.ID),
			zap.String("errorKind", run.ErrorKind),
			zap.Error(err))
	} else {
		run.State = models.StateCompleted
		run.Steps = steps
		s.logger.Info("Run completed",
			zap.String("runId", run.ID),
			zap.Int("steps", len(steps)),
			zap.Duration("duration", run.Duration()))
	}

	s.mu.Lock()
	s.current = run
	s.state = run.State
	s.mu.Unlock()

	s.store(ctx, run)
	return run.Clone(), err
}

// store keeps the run in the session history. History is best effort: a
// failing store never changes the outcome of a run.
func (s *Session) store(ctx context.Context, run models.Run) {
	if s.repository == nil {
		return
	}
	if err := s.repository.Put(ctx, run); err != nil {
		s.logger.Warn("Failed to store run", zap.String("runId", run.ID), zap.Error(err))
	}
}
