package project

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/fulmenhq/twproj/internal/locator"
	"github.com/fulmenhq/twproj/internal/matching"
	"github.com/fulmenhq/twproj/internal/reactor"
	"github.com/fulmenhq/twproj/pkg/logger"
)

// Discoverer finds the projects of a workspace.
type Discoverer interface {
	Search(ctx context.Context) ([]*locator.ProjectConfig, error)
	SelectorRefresher
}

// Classifier turns file changes into per-project outcomes.
type Classifier interface {
	Classify(ctx context.Context, events []reactor.Event, states []reactor.ProjectState) (reactor.Result, error)
}

// SupervisorOptions configures a Supervisor.
type SupervisorOptions struct {
	Discoverer Discoverer
	Classifier Classifier
	Builder    Builder
	// BeforeRestart runs ahead of rediscovery, typically to drop cached
	// filesystem and resolution state.
	BeforeRestart func(ctx context.Context) error
	OnReport      func(Report)
	QueueSize     int
}

// Supervisor owns the services of a workspace.
type Supervisor struct {
	opts SupervisorOptions

	mu       sync.RWMutex
	ctx      context.Context
	services []*Service
	matcher  *matching.Matcher
}

// NewSupervisor creates a supervisor. Nothing runs until Start.
func NewSupervisor(opts SupervisorOptions) *Supervisor {
	return &Supervisor{opts: opts}
}

// Start discovers the projects and loads each of them. Load failures disable
// the project and are reported; they do not fail Start.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	return s.restart(ctx)
}

// Stop stops every service.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	services := s.services
	s.services = nil
	s.matcher = nil
	s.mu.Unlock()
	stopAll(services)
}

// Projects returns the current projects in discovery order.
func (s *Supervisor) Projects() []*locator.ProjectConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*locator.ProjectConfig, len(s.services))
	for i, svc := range s.services {
		out[i] = svc.Project()
	}
	return out
}

// Services returns the current services in discovery order.
func (s *Supervisor) Services() []*Service {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Service(nil), s.services...)
}

// States snapshots every project for the reactor.
func (s *Supervisor) States() []reactor.ProjectState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]reactor.ProjectState, len(s.services))
	for i, svc := range s.services {
		out[i] = svc.Snapshot()
	}
	return out
}

// Match returns the project owning path, or nil.
func (s *Supervisor) Match(path string) *locator.ProjectConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.matcher == nil {
		return nil
	}
	return s.matcher.Match(path)
}

// Apply classifies a batch of changes and carries out the result. It waits
// until every queued job has run.
func (s *Supervisor) Apply(ctx context.Context, events []reactor.Event) (reactor.Result, error) {
	res, err := s.opts.Classifier.Classify(ctx, events, s.States())
	if err != nil {
		return reactor.Result{}, err
	}
	if res.Restart {
		logger.Info("restarting workspace", logger.String("reason", res.Reason))
		return res, s.restart(ctx)
	}

	s.mu.RLock()
	byProject := make(map[*locator.ProjectConfig]*Service, len(s.services))
	for _, svc := range s.services {
		byProject[svc.Project()] = svc
	}
	s.mu.RUnlock()

	var pending []<-chan error
	recompute := false
	for _, d := range res.Decisions {
		svc, ok := byProject[d.Project]
		if !ok || d.Outcome == reactor.None {
			continue
		}
		if d.Outcome == reactor.RecomputeSelectors {
			recompute = true
		}
		pending = append(pending, svc.Submit(ctx, d.Outcome))
	}
	for _, done := range pending {
		select {
		case <-done:
		case <-ctx.Done():
			return res, ctx.Err()
		}
	}
	if recompute {
		s.rematch()
	}
	return res, nil
}

// restart stops the current services, rediscovers and loads the new projects.
func (s *Supervisor) restart(ctx context.Context) error {
	s.Stop()

	if s.opts.BeforeRestart != nil {
		if err := s.opts.BeforeRestart(ctx); err != nil {
			return fmt.Errorf("prepare restart: %w", err)
		}
	}
	projects, err := s.opts.Discoverer.Search(ctx)
	if err != nil {
		return fmt.Errorf("discover projects: %w", err)
	}

	runCtx := ctx
	s.mu.RLock()
	if s.ctx != nil {
		runCtx = s.ctx
	}
	s.mu.RUnlock()

	services := make([]*Service, len(projects))
	for i, p := range projects {
		services[i] = NewService(p, ServiceOptions{
			Builder:   s.opts.Builder,
			Refresher: s.opts.Discoverer,
			QueueSize: s.opts.QueueSize,
			OnReport:  s.opts.OnReport,
		})
		services[i].Start(runCtx)
	}

	s.mu.Lock()
	s.services = services
	s.matcher = matching.NewMatcher(projects)
	s.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, svc := range services {
		g.Go(func() error {
			err := svc.Do(gctx, reactor.Reinit)
			if gctx.Err() != nil {
				return gctx.Err()
			}
			if err != nil {
				logger.Debug("project failed to load", logger.String("project", svc.Name()), logger.Err(err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("workspace ready", logger.Int("projects", len(services)))
	return nil
}

func (s *Supervisor) rematch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	projects := make([]*locator.ProjectConfig, len(s.services))
	for i, svc := range s.services {
		projects[i] = svc.Project()
	}
	s.matcher = matching.NewMatcher(projects)
}

func stopAll(services []*Service) {
	var wg sync.WaitGroup
	for _, svc := range services {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.Stop()
		}()
	}
	wg.Wait()
}
