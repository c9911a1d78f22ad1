// Package project runs one build worker per discovered project and keeps the
// set of projects in step with the workspace.
package project

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fulmenhq/twproj/internal/locator"
	"github.com/fulmenhq/twproj/internal/reactor"
	"github.com/fulmenhq/twproj/pkg/logger"
	"github.com/fulmenhq/twproj/pkg/pathutil"
	"github.com/fulmenhq/twproj/pkg/toolchain"
)

// ErrStopped is returned for work submitted to a stopped service.
var ErrStopped = errors.New("project service stopped")

// Builder loads and rebuilds a project. The generation layer plugs in here.
type Builder interface {
	// Init loads the project from its config.
	Init(ctx context.Context, p *locator.ProjectConfig) (*toolchain.Handle, error)
	// Build regenerates the project with an already loaded handle.
	Build(ctx context.Context, p *locator.ProjectConfig, h *toolchain.Handle) error
}

// SelectorRefresher re-derives a project's document selectors.
type SelectorRefresher interface {
	RefreshSelectors(ctx context.Context, p *locator.ProjectConfig) error
}

// Report is the result of one unit of work on a project.
type Report struct {
	Project  string
	Outcome  reactor.Outcome
	State    reactor.State
	Duration time.Duration
	Err      error
}

// ServiceOptions configures a Service.
type ServiceOptions struct {
	Builder   Builder
	Refresher SelectorRefresher
	// QueueSize bounds pending work; Submit blocks when it is full.
	QueueSize int
	// OnReport receives every report from the worker goroutine.
	OnReport func(Report)
}

type job struct {
	outcome reactor.Outcome
	done    chan error
}

// Service owns one project. Work runs in submission order on a single worker
// goroutine, so a build never overlaps the previous one.
type Service struct {
	project   *locator.ProjectConfig
	builder   Builder
	refresher SelectorRefresher
	onReport  func(Report)

	queue chan job
	quit  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once

	mu      sync.Mutex
	state   reactor.State
	handle  *toolchain.Handle
	lastErr error
}

// NewService creates a disabled service for p. Call Start to run its worker.
func NewService(p *locator.ProjectConfig, opts ServiceOptions) *Service {
	size := opts.QueueSize
	if size <= 0 {
		size = 16
	}
	return &Service{
		project:   p,
		builder:   opts.Builder,
		refresher: opts.Refresher,
		onReport:  opts.OnReport,
		queue:     make(chan job, size),
		quit:      make(chan struct{}),
	}
}

// Project returns the project the service owns.
func (s *Service) Project() *locator.ProjectConfig {
	return s.project
}

// Name identifies the project in logs and reports.
func (s *Service) Name() string {
	if s.project.ConfigPath != "" {
		return s.project.ConfigPath
	}
	return s.project.Folder
}

// Start runs the worker until ctx is done or Stop is called.
func (s *Service) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.worker(ctx)
}

// Stop stops accepting work and waits for the in-flight job. Pending jobs are
// dropped with ErrStopped.
func (s *Service) Stop() {
	s.once.Do(func() { close(s.quit) })
	s.wg.Wait()
	for {
		select {
		case j := <-s.queue:
			j.done <- ErrStopped
		default:
			return
		}
	}
}

// Submit queues outcome and returns a channel that receives its error once it
// has run.
func (s *Service) Submit(ctx context.Context, outcome reactor.Outcome) <-chan error {
	done := make(chan error, 1)
	select {
	case <-s.quit:
		done <- ErrStopped
		return done
	default:
	}
	select {
	case <-s.quit:
		done <- ErrStopped
	case <-ctx.Done():
		done <- ctx.Err()
	case s.queue <- job{outcome: outcome, done: done}:
	}
	return done
}

// Do queues outcome and waits for it.
func (s *Service) Do(ctx context.Context, outcome reactor.Outcome) error {
	select {
	case err := <-s.Submit(ctx, outcome):
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the project's lifecycle state.
func (s *Service) State() reactor.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Handle returns the loaded toolchain handle, nil until the project is enabled.
func (s *Service) Handle() *toolchain.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle
}

// Err returns the error that last disabled the project.
func (s *Service) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Snapshot is the project as the reactor sees it. Version is the loaded
// toolchain's, or the one detected at discovery until a load succeeds.
func (s *Service) Snapshot() reactor.ProjectState {
	s.mu.Lock()
	defer s.mu.Unlock()
	ps := reactor.ProjectState{Project: s.project, State: s.state, Version: s.project.Toolchain.Version}
	if s.handle != nil {
		ps.Version = s.handle.Toolchain.Version
	}
	return ps
}

// Claims reports whether path is the project's config or one of its
// dependencies.
func (s *Service) Claims(path string) bool {
	path = pathutil.Normalize(path)
	if path == s.project.ConfigPath {
		return true
	}
	for _, d := range s.project.Dependencies {
		if d == path {
			return true
		}
	}
	return false
}

func (s *Service) worker(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case j := <-s.queue:
			start := time.Now()
			err := s.run(ctx, j.outcome)
			r := Report{
				Project:  s.Name(),
				Outcome:  j.outcome,
				State:    s.State(),
				Duration: time.Since(start),
				Err:      err,
			}
			if s.onReport != nil {
				s.onReport(r)
			}
			j.done <- err
		case <-s.quit:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Service) run(ctx context.Context, outcome reactor.Outcome) error {
	switch outcome {
	case reactor.None:
		return nil
	case reactor.RecomputeSelectors:
		if s.refresher == nil {
			return nil
		}
		if err := s.refresher.RefreshSelectors(ctx, s.project); err != nil {
			return fmt.Errorf("refresh selectors of %s: %w", s.Name(), err)
		}
		return nil
	case reactor.Rebuild:
		if s.State() != reactor.Enabled {
			return s.init(ctx)
		}
		return s.build(ctx)
	case reactor.Reinit:
		return s.init(ctx)
	default:
		return fmt.Errorf("outcome %s cannot run on a single project", outcome)
	}
}

func (s *Service) init(ctx context.Context) error {
	s.setState(reactor.Enabling, nil, nil)
	logger.Debug("loading project", logger.String("project", s.Name()))

	h, err := s.builder.Init(ctx, s.project)
	if err != nil {
		return s.disable(ctx, fmt.Errorf("load %s: %w", s.Name(), err))
	}
	if err := s.builder.Build(ctx, s.project, h); err != nil {
		return s.disable(ctx, fmt.Errorf("build %s: %w", s.Name(), err))
	}
	s.setState(reactor.Enabled, h, nil)
	logger.Info("project enabled",
		logger.String("project", s.Name()),
		logger.String("version", h.Toolchain.Version))
	return nil
}

func (s *Service) build(ctx context.Context) error {
	h := s.Handle()
	if err := s.builder.Build(ctx, s.project, h); err != nil {
		return s.disable(ctx, fmt.Errorf("build %s: %w", s.Name(), err))
	}
	logger.Debug("project rebuilt", logger.String("project", s.Name()))
	return nil
}

// disable drops the handle after a failure. A canceled context leaves the
// project as it was.
func (s *Service) disable(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	s.setState(reactor.Disabled, nil, err)
	logger.Warn("project disabled", logger.String("project", s.Name()), logger.Err(err))
	return err
}

func (s *Service) setState(state reactor.State, h *toolchain.Handle, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.handle = h
	s.lastErr = err
}
