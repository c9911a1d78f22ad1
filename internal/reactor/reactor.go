// Package reactor decides what a batch of file changes means for the
// projects of a workspace.
package reactor

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/fulmenhq/twproj/internal/locator"
	"github.com/fulmenhq/twproj/internal/matching"
	"github.com/fulmenhq/twproj/pkg/classify"
	"github.com/fulmenhq/twproj/pkg/logger"
	"github.com/fulmenhq/twproj/pkg/pathfinder"
	"github.com/fulmenhq/twproj/pkg/pathutil"
	"github.com/fulmenhq/twproj/pkg/stylesheet"
	"github.com/fulmenhq/twproj/pkg/toolchain"
)

// Kind is the kind of a file change.
type Kind int

const (
	Created Kind = iota + 1
	Changed
	Deleted
)

func (k Kind) String() string {
	switch k {
	case Created:
		return "created"
	case Changed:
		return "changed"
	case Deleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Event is one file change.
type Event struct {
	Path string
	Kind Kind
}

// Outcome is what a project must do. Later values are more expensive and
// win over earlier ones within a batch.
type Outcome int

const (
	None Outcome = iota
	// RecomputeSelectors re-derives the document selectors of a project
	// that is not enabled.
	RecomputeSelectors
	// Rebuild re-runs generation with the current configuration.
	Rebuild
	// Reinit reloads the project from its config.
	Reinit
	// Restart rediscovers every project of the workspace.
	Restart
)

func (o Outcome) String() string {
	switch o {
	case None:
		return "none"
	case RecomputeSelectors:
		return "recompute-selectors"
	case Rebuild:
		return "rebuild"
	case Reinit:
		return "reinit"
	case Restart:
		return "restart"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// State is the lifecycle state of a project.
type State int

const (
	Disabled State = iota
	Enabling
	Enabled
)

func (s State) String() string {
	switch s {
	case Disabled:
		return "disabled"
	case Enabling:
		return "enabling"
	case Enabled:
		return "enabled"
	default:
		return "unknown"
	}
}

// ProjectState is what the reactor needs to know about a project.
type ProjectState struct {
	Project *locator.ProjectConfig
	State   State
	// Version is the toolchain version the project was loaded with.
	Version string
}

func (ps ProjectState) enabled() bool {
	return ps.State != Disabled
}

// cachedVersion falls back to the version detected at discovery for a
// project that has not loaded yet.
func (ps ProjectState) cachedVersion() string {
	if ps.Version != "" {
		return ps.Version
	}
	return ps.Project.Toolchain.Version
}

func (ps ProjectState) tracks(path string) bool {
	return path == ps.Project.ConfigPath || slices.Contains(ps.Project.Dependencies, path)
}

// Decision is the outcome for one project.
type Decision struct {
	Project *locator.ProjectConfig
	Outcome Outcome
}

// Result is the verdict for a batch. When Restart is set Decisions is empty.
type Result struct {
	Restart bool
	// Reason names the event that forced a restart.
	Reason    string
	Decisions []Decision
}

// Options configures a Reactor.
type Options struct {
	// Base is the workspace directory events are relative to for excludes.
	Base    string
	Exclude []string
	// Loader re-detects toolchain versions on package changes. Nil skips the
	// check.
	Loader toolchain.Loader
	// Reader inspects changed stylesheets. Nil skips the inspection.
	Reader stylesheet.Reader
}

// Reactor classifies batches of file changes.
type Reactor struct {
	base    string
	exclude []string
	loader  toolchain.Loader
	reader  stylesheet.Reader
}

// New creates a reactor.
func New(opts Options) *Reactor {
	return &Reactor{
		base:    pathutil.Normalize(opts.Base),
		exclude: pathfinder.NormalizeExcludes(opts.Exclude),
		loader:  opts.Loader,
		reader:  opts.Reader,
	}
}

type restartError struct {
	reason string
}

func (e *restartError) Error() string { return e.reason }

// Classify evaluates the whole batch and returns one outcome per affected
// project, or a restart.
func (r *Reactor) Classify(ctx context.Context, events []Event, states []ProjectState) (Result, error) {
	outcomes := make([]Outcome, len(states))
	versions := make(map[string]string)

	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		ev.Path = pathutil.Normalize(ev.Path)
		if r.excluded(ev.Path) {
			continue
		}

		err := r.workspaceEvent(ctx, ev, states, versions)
		var restart *restartError
		if errors.As(err, &restart) {
			logger.Debug("file change forces restart",
				logger.String("path", ev.Path),
				logger.String("kind", ev.Kind.String()),
				logger.String("reason", restart.reason))
			return Result{Restart: true, Reason: restart.reason}, nil
		}
		if err != nil {
			return Result{}, err
		}

		for i, st := range states {
			if o := projectOutcome(ev, st); o > outcomes[i] {
				outcomes[i] = o
			}
		}
	}

	var res Result
	for i, st := range states {
		if outcomes[i] != None {
			res.Decisions = append(res.Decisions, Decision{Project: st.Project, Outcome: outcomes[i]})
		}
	}
	return res, nil
}

func (r *Reactor) excluded(path string) bool {
	if len(r.exclude) == 0 || !pathutil.Within(r.base, path) {
		return false
	}
	rel := strings.TrimPrefix(strings.TrimPrefix(path, r.base), "/")
	return pathfinder.MatchesAnyPattern(rel, r.exclude)
}

// workspaceEvent returns a *restartError when ev changes the set of projects
// or the toolchain behind them.
func (r *Reactor) workspaceEvent(ctx context.Context, ev Event, states []ProjectState, versions map[string]string) error {
	switch {
	case pathfinder.IsConfigFile(ev.Path) && ev.Kind == Created:
		return &restartError{reason: "config file created"}

	case pathfinder.IsPathMappingConfig(ev.Path):
		return &restartError{reason: "path mapping changed"}

	case pathfinder.IsPackageFile(ev.Path):
		if r.loader == nil {
			return nil
		}
		for _, st := range states {
			dir := st.Project.Folder
			if st.Project.ConfigPath != "" {
				dir = pathutil.Dir(st.Project.ConfigPath)
			}
			version, ok := versions[dir]
			if !ok {
				tc, err := r.loader.Detect(ctx, dir)
				if err != nil {
					return err
				}
				version = tc.Version
				versions[dir] = version
			}
			if cached := st.cachedVersion(); version != cached {
				return &restartError{reason: fmt.Sprintf("toolchain version changed from %s to %s", cached, version)}
			}
		}

	case pathfinder.IsStylesheet(ev.Path) && ev.Kind != Deleted && r.reader != nil:
		text, err := r.reader.Read(ctx, ev.Path)
		if err != nil {
			if errors.Is(err, stylesheet.ErrReadFailure) {
				return nil
			}
			return err
		}
		if ref, ok := stylesheet.ConfigReference(text, ev.Path); ok && referencesNewConfig(ev, states, ref.Path) {
			return &restartError{reason: "stylesheet references a new config"}
		}
		if len(states) == 0 {
			if c := classify.Analyze(text); c.Root && c.Has(classify.V4) {
				return &restartError{reason: "root stylesheet created"}
			}
		}
	}
	return nil
}

// referencesNewConfig reports whether a stylesheet now points at a config no
// project is built from: a created stylesheet, or one that a script-configured
// project tracks.
func referencesNewConfig(ev Event, states []ProjectState, config string) bool {
	for _, st := range states {
		if st.Project.ConfigPath == config {
			return false
		}
	}
	if ev.Kind == Created {
		return true
	}
	for _, st := range states {
		if st.tracks(ev.Path) && !pathfinder.IsStylesheet(st.Project.ConfigPath) {
			return true
		}
	}
	return false
}

// projectOutcome applies the per-project rules to one event.
func projectOutcome(ev Event, st ProjectState) Outcome {
	isConfig := ev.Path == st.Project.ConfigPath
	tracked := st.tracks(ev.Path)
	_, claimed := matching.Claims(st.Project, ev.Path)

	switch ev.Kind {
	case Created:
		if !claimed && !tracked {
			return None
		}
		if st.enabled() {
			return Reinit
		}
		return RecomputeSelectors
	case Changed:
		switch {
		case isConfig:
			return Reinit
		case tracked && st.enabled():
			return Rebuild
		case tracked:
			return Reinit
		}
	case Deleted:
		switch {
		case isConfig:
			return Reinit
		case tracked && st.enabled():
			return Rebuild
		case (tracked || claimed) && !st.enabled():
			return Reinit
		}
	}
	return None
}
